package bytecode

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Disassemble renders img's code section as a flat, human-readable
// listing: one line per instruction, each function's entry point
// labeled by its table index. Used by `harpy run -v` in the spirit of
// funxy's internal/vm/disasm.go.
func Disassemble(img *Image) string {
	var b strings.Builder

	labels := make(map[int]string, len(img.Functions))
	for idx, f := range img.Functions {
		labels[f.CodeOffset] = fmt.Sprintf("func[%d]", idx)
	}

	fmt.Fprintf(&b, "; main = func[%d]\n", img.MainFunctionIndex)

	off := 0
	code := img.Code
	for off < len(code) {
		if lbl, ok := labels[off]; ok {
			fmt.Fprintf(&b, "%s:\n", lbl)
		}

		op := Opcode(code[off])
		size := op.OperandSize()
		fmt.Fprintf(&b, "%08d  %-16s", off, op.String())

		if off+1+size > len(code) {
			fmt.Fprintf(&b, "<truncated operand>\n")
			break
		}
		if size > 0 {
			operand := code[off+1 : off+1+size]
			var v uint64
			switch size {
			case 2:
				v = uint64(binary.BigEndian.Uint16(operand))
			case 4:
				v = uint64(binary.BigEndian.Uint32(operand))
			case 8:
				v = binary.BigEndian.Uint64(operand)
			}
			fmt.Fprintf(&b, " %d", v)
		}
		b.WriteByte('\n')
		off += 1 + size
	}

	return b.String()
}
