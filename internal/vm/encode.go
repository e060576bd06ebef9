package vm

import (
	"encoding/binary"
	"math"

	"github.com/Aiffelowy/harpy-sub000/internal/bytecode"
)

// globalBit marks a Ref's second word as addressing global memory
// rather than the current frame chain; type indices never approach
// this bit in practice, so packing the flag alongside TypeIdx avoids
// growing Ref beyond the 16-byte encoding spec.md §3 assigns it.
const globalBit = int64(1) << 62

// encodeValue writes v into buf at off, sized and shaped according to
// typeIdx's type-table entry. Every variant after Void uses exactly
// sizeOfType(typeIdx) bytes, matching local/global slot layout.
func encodeValue(buf []byte, off int, v Value, typeIdx int, types []bytecode.TypeEntry) error {
	if typeIdx < 0 || typeIdx >= len(types) {
		return errOutOfBounds
	}
	te := types[typeIdx]
	switch te.Kind {
	case bytecode.TVoid:
		return nil
	case bytecode.TPrimitive:
		switch te.Prim {
		case bytecode.PrimInt:
			binary.BigEndian.PutUint64(buf[off:off+8], uint64(v.I))
		case bytecode.PrimFloat:
			binary.BigEndian.PutUint64(buf[off:off+8], math.Float64bits(v.F))
		case bytecode.PrimBool:
			if v.B {
				buf[off] = 1
			} else {
				buf[off] = 0
			}
		case bytecode.PrimStr:
			binary.BigEndian.PutUint64(buf[off:off+8], uint64(v.StrPtr))
			binary.BigEndian.PutUint64(buf[off+8:off+16], uint64(v.StrLen))
		}
		return nil
	case bytecode.TCustom:
		return nil
	case bytecode.TBoxed:
		binary.BigEndian.PutUint64(buf[off:off+8], uint64(v.Addr))
		binary.BigEndian.PutUint64(buf[off+8:off+16], uint64(v.TypeIdx))
		return nil
	case bytecode.TRef:
		word2 := int64(v.TypeIdx)
		if v.Global {
			word2 |= globalBit
		}
		binary.BigEndian.PutUint64(buf[off:off+8], uint64(v.Addr))
		binary.BigEndian.PutUint64(buf[off+8:off+16], uint64(word2))
		return nil
	default:
		return errBadStack
	}
}

// decodeValue is encodeValue's inverse.
func decodeValue(buf []byte, off int, typeIdx int, types []bytecode.TypeEntry) (Value, error) {
	if typeIdx < 0 || typeIdx >= len(types) {
		return Value{}, errOutOfBounds
	}
	te := types[typeIdx]
	switch te.Kind {
	case bytecode.TVoid:
		return VoidValue(), nil
	case bytecode.TPrimitive:
		switch te.Prim {
		case bytecode.PrimInt:
			return IntValue(int64(binary.BigEndian.Uint64(buf[off : off+8]))), nil
		case bytecode.PrimFloat:
			return FloatValue(math.Float64frombits(binary.BigEndian.Uint64(buf[off : off+8]))), nil
		case bytecode.PrimBool:
			return BoolValue(buf[off] != 0), nil
		case bytecode.PrimStr:
			ptr := int(binary.BigEndian.Uint64(buf[off : off+8]))
			length := int(binary.BigEndian.Uint64(buf[off+8 : off+16]))
			return StrValue(ptr, length), nil
		}
		return Value{}, errBadStack
	case bytecode.TCustom:
		return Value{}, errInvalidOperation
	case bytecode.TBoxed:
		addr := int(binary.BigEndian.Uint64(buf[off : off+8]))
		pointeeIdx := int(binary.BigEndian.Uint64(buf[off+8 : off+16]))
		return PointerValue(addr, pointeeIdx), nil
	case bytecode.TRef:
		addr := int(binary.BigEndian.Uint64(buf[off : off+8]))
		word2 := int64(binary.BigEndian.Uint64(buf[off+8 : off+16]))
		global := word2&globalBit != 0
		pointeeIdx := int(word2 &^ globalBit)
		return RefValue(addr, pointeeIdx, global), nil
	default:
		return Value{}, errBadStack
	}
}
