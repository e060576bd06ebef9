package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Read parses a complete harpy image back into its in-memory form,
// validating the magic bytes and version before trusting any offset.
func Read(data []byte) (*Image, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("bytecode: image too short (%d bytes, header needs %d)", len(data), headerSize)
	}
	if string(data[0:5]) != string(Magic[:]) {
		return nil, fmt.Errorf("bytecode: bad magic %q", data[0:5])
	}
	version := binary.BigEndian.Uint16(data[5:7])
	if version != Version {
		return nil, fmt.Errorf("bytecode: unsupported version %d (want %d)", version, Version)
	}
	mainIdx := binary.BigEndian.Uint32(data[9:13])
	typeOff := binary.BigEndian.Uint32(data[13:17])
	globalOff := binary.BigEndian.Uint32(data[17:21])
	constOff := binary.BigEndian.Uint32(data[21:25])
	funcOff := binary.BigEndian.Uint32(data[25:29])
	bytecodeOff := binary.BigEndian.Uint32(data[29:33])
	bytecodeSize := binary.BigEndian.Uint32(data[33:37])

	types, err := readTypeSection(data[typeOff:globalOff])
	if err != nil {
		return nil, err
	}
	globals, err := readGlobalSection(data[globalOff:constOff])
	if err != nil {
		return nil, err
	}
	consts, err := readConstSection(data[constOff:funcOff], types)
	if err != nil {
		return nil, err
	}
	funcs, err := readFunctionSection(data[funcOff:bytecodeOff])
	if err != nil {
		return nil, err
	}
	if int(bytecodeOff)+int(bytecodeSize) > len(data) {
		return nil, fmt.Errorf("bytecode: bytecode section overruns image (offset %d size %d len %d)", bytecodeOff, bytecodeSize, len(data))
	}
	code := append([]byte(nil), data[bytecodeOff:bytecodeOff+bytecodeSize]...)

	return &Image{
		MainFunctionIndex: int(mainIdx),
		Types:             types,
		Globals:           globals,
		Consts:            consts,
		Functions:         funcs,
		Code:              code,
	}, nil
}

func readU32(b []byte, off int) (uint32, int) {
	return binary.BigEndian.Uint32(b[off : off+4]), off + 4
}

func readU64(b []byte, off int) (uint64, int) {
	return binary.BigEndian.Uint64(b[off : off+8]), off + 8
}

func readTypeSection(b []byte) ([]TypeEntry, error) {
	var entries []TypeEntry
	off := 0
	for off < len(b) {
		kind := TypeKind(b[off])
		off++
		switch kind {
		case TVoid:
			entries = append(entries, TypeEntry{Kind: TVoid})
		case TPrimitive:
			if off+2 > len(b) {
				return nil, fmt.Errorf("bytecode: truncated primitive type entry")
			}
			prim := Primitive(b[off])
			size := int(b[off+1])
			off += 2
			entries = append(entries, TypeEntry{Kind: TPrimitive, Prim: prim, Size: size})
		case TBoxed, TRef:
			if off+4 > len(b) {
				return nil, fmt.Errorf("bytecode: truncated boxed/ref type entry")
			}
			var idx uint32
			idx, off = readU32(b, off)
			entries = append(entries, TypeEntry{Kind: kind, PointeeIdx: int(idx)})
		case TCustom:
			if off+1 > len(b) {
				return nil, fmt.Errorf("bytecode: truncated custom type entry")
			}
			size := int(b[off])
			off++
			entries = append(entries, TypeEntry{Kind: TCustom, Size: size})
		default:
			return nil, fmt.Errorf("bytecode: unknown type tag %d", kind)
		}
	}
	return entries, nil
}

func readGlobalSection(b []byte) ([]int, error) {
	if len(b) < 4 {
		return nil, fmt.Errorf("bytecode: truncated global section")
	}
	count, off := readU32(b, 0)
	globals := make([]int, 0, count)
	for i := uint32(0); i < count; i++ {
		if off+4 > len(b) {
			return nil, fmt.Errorf("bytecode: truncated global entry %d", i)
		}
		var idx uint32
		idx, off = readU32(b, off)
		globals = append(globals, int(idx))
	}
	return globals, nil
}

// readConstSection needs the already-parsed type table to know whether
// a given TypeIdx names Int, Float, Bool, Str or Void, since that's
// what determines the payload's width and shape.
func readConstSection(b []byte, types []TypeEntry) ([]ConstEntry, error) {
	var consts []ConstEntry
	off := 0
	for off < len(b) {
		if off+4 > len(b) {
			return nil, fmt.Errorf("bytecode: truncated const entry")
		}
		var typeIdxU uint32
		typeIdxU, off = readU32(b, off)
		typeIdx := int(typeIdxU)
		if typeIdx < 0 || typeIdx >= len(types) {
			return nil, fmt.Errorf("bytecode: const entry references out-of-range type index %d", typeIdx)
		}
		te := types[typeIdx]
		var entry ConstEntry
		switch {
		case te.Kind == TVoid:
			entry = VoidConst(typeIdx)
		case te.Kind == TPrimitive && te.Prim == PrimInt:
			if off+8 > len(b) {
				return nil, fmt.Errorf("bytecode: truncated int const")
			}
			var v uint64
			v, off = readU64(b, off)
			entry = IntConst(typeIdx, int64(v))
		case te.Kind == TPrimitive && te.Prim == PrimFloat:
			if off+8 > len(b) {
				return nil, fmt.Errorf("bytecode: truncated float const")
			}
			var v uint64
			v, off = readU64(b, off)
			entry = FloatConst(typeIdx, math.Float64frombits(v))
		case te.Kind == TPrimitive && te.Prim == PrimBool:
			if off+1 > len(b) {
				return nil, fmt.Errorf("bytecode: truncated bool const")
			}
			entry = BoolConst(typeIdx, b[off] != 0)
			off++
		case te.Kind == TPrimitive && te.Prim == PrimStr:
			if off+8 > len(b) {
				return nil, fmt.Errorf("bytecode: truncated string const length")
			}
			var length uint64
			length, off = readU64(b, off)
			if off+int(length) > len(b) {
				return nil, fmt.Errorf("bytecode: truncated string const body")
			}
			entry = StrConst(typeIdx, string(b[off:off+int(length)]))
			off += int(length)
		default:
			return nil, fmt.Errorf("bytecode: const entry has unsupported type kind %d", te.Kind)
		}
		consts = append(consts, entry)
	}
	return consts, nil
}

func readFunctionSection(b []byte) ([]FuncEntry, error) {
	var funcs []FuncEntry
	off := 0
	for off < len(b) {
		if off+8+2+2 > len(b) {
			return nil, fmt.Errorf("bytecode: truncated function entry header")
		}
		var codeOff uint64
		codeOff, off = readU64(b, off)
		paramCount := binary.BigEndian.Uint16(b[off : off+2])
		off += 2
		localCount := binary.BigEndian.Uint16(b[off : off+2])
		off += 2
		locals := make([]int, 0, localCount)
		for i := uint16(0); i < localCount; i++ {
			if off+4 > len(b) {
				return nil, fmt.Errorf("bytecode: truncated function local type")
			}
			var idx uint32
			idx, off = readU32(b, off)
			locals = append(locals, int(idx))
		}
		funcs = append(funcs, FuncEntry{
			CodeOffset: int(codeOff),
			ParamCount: int(paramCount),
			LocalTypes: locals,
		})
	}
	return funcs, nil
}
