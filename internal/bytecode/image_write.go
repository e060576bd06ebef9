// Image writer: header + sections (type, global, const, function,
// bytecode), the canonical order chosen in DESIGN.md's Open Question
// log. Grounded on funxy's internal/vm/bundle.go for fixed-width
// big-endian framing (encoding/binary, a magic + version header) — but
// the section layout itself is harpy's own from-scratch format, since
// §6 specifies an exact byte layout a generic encoding like gob cannot
// produce.
package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const headerSize = 5 + 2 + 2 + 4 + 4 + 4 + 4 + 4 + 4 + 4

// Write serializes img into a complete harpy image.
func Write(img *Image) ([]byte, error) {
	typeSec, err := writeTypeSection(img.Types)
	if err != nil {
		return nil, err
	}
	globalSec := writeGlobalSection(img.Globals)
	constSec, err := writeConstSection(img.Consts)
	if err != nil {
		return nil, err
	}
	funcSec := writeFunctionSection(img.Functions)

	typeOff := headerSize
	globalOff := typeOff + len(typeSec)
	constOff := globalOff + len(globalSec)
	funcOff := constOff + len(constSec)
	bytecodeOff := funcOff + len(funcSec)

	var buf bytes.Buffer
	buf.Write(Magic[:])
	writeU16(&buf, Version)
	writeU16(&buf, 0) // flags, reserved
	writeU32(&buf, uint32(img.MainFunctionIndex))
	writeU32(&buf, uint32(typeOff))
	writeU32(&buf, uint32(globalOff))
	writeU32(&buf, uint32(constOff))
	writeU32(&buf, uint32(funcOff))
	writeU32(&buf, uint32(bytecodeOff))
	writeU32(&buf, uint32(len(img.Code)))

	buf.Write(typeSec)
	buf.Write(globalSec)
	buf.Write(constSec)
	buf.Write(funcSec)
	buf.Write(img.Code)

	return buf.Bytes(), nil
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func writeTypeSection(types []TypeEntry) ([]byte, error) {
	var buf bytes.Buffer
	for _, t := range types {
		switch t.Kind {
		case TVoid:
			buf.WriteByte(byte(TVoid))
		case TPrimitive:
			buf.WriteByte(byte(TPrimitive))
			buf.WriteByte(byte(t.Prim))
			buf.WriteByte(byte(t.Size))
		case TBoxed:
			buf.WriteByte(byte(TBoxed))
			writeU32(&buf, uint32(t.PointeeIdx))
		case TRef:
			buf.WriteByte(byte(TRef))
			writeU32(&buf, uint32(t.PointeeIdx))
		case TCustom:
			buf.WriteByte(byte(TCustom))
			buf.WriteByte(byte(t.Size))
		default:
			return nil, fmt.Errorf("bytecode: unknown type-table kind %d", t.Kind)
		}
	}
	return buf.Bytes(), nil
}

func writeGlobalSection(globals []int) []byte {
	var buf bytes.Buffer
	writeU32(&buf, uint32(len(globals)))
	for _, typeIdx := range globals {
		writeU32(&buf, uint32(typeIdx))
	}
	return buf.Bytes()
}

func writeConstSection(consts []ConstEntry) ([]byte, error) {
	var buf bytes.Buffer
	for _, c := range consts {
		writeU32(&buf, uint32(c.TypeIdx))
		if err := writeConstPayload(&buf, c); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// writeConstPayload writes a constant's payload given its resolved
// type entry is one of Void/Int/Float/Bool/Str — the only shapes
// spec.md §6 assigns a payload encoding to. It switches on c.Kind,
// while Read decodes the payload by the type entry c.TypeIdx names, so
// the two must agree (internal/compiler stamps both from the same
// analysis-time tables.Literal).
func writeConstPayload(buf *bytes.Buffer, c ConstEntry) error {
	switch {
	case c.Kind == ConstVoid:
		return nil
	case c.Kind == ConstInt:
		writeU64(buf, uint64(c.I))
		return nil
	case c.Kind == ConstFloat:
		writeU64(buf, floatBits(c.F))
		return nil
	case c.Kind == ConstBool:
		if c.B {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
		return nil
	case c.Kind == ConstStr:
		writeU64(buf, uint64(len(c.S)))
		buf.WriteString(c.S)
		return nil
	default:
		return fmt.Errorf("bytecode: const entry has no recognizable kind")
	}
}

func writeFunctionSection(funcs []FuncEntry) []byte {
	var buf bytes.Buffer
	for _, f := range funcs {
		writeU64(&buf, uint64(f.CodeOffset))
		writeU16(&buf, uint16(f.ParamCount))
		writeU16(&buf, uint16(len(f.LocalTypes)))
		for _, idx := range f.LocalTypes {
			writeU32(&buf, uint32(idx))
		}
	}
	return buf.Bytes()
}
