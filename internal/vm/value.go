// Package vm is harpy's bytecode interpreter: a bounds-checked operand
// stack, a byte-buffer call stack, a bump-allocated heap with a
// stop-the-world copying collector, and the decode/dispatch loop that
// ties them together (spec.md §4.6).
//
// Grounded on funxy's internal/vm/vm.go (package-level sentinel errors
// via errors.New, a VM struct wrapping stack/frames/globals) and
// vm_exec.go (a single executeOneOp switch over Opcode) for the overall
// shape — the memory model itself (explicit heap, copying GC, raw byte
// frames) has no equivalent in funxy, which runs on the Go heap/GC
// directly, so it is built from spec.md §4.6's contract alone.
package vm

import "github.com/Aiffelowy/harpy-sub000/internal/bytecode"

// Kind discriminates a Value's variant, mirroring spec.md §4.6's
// VmValue sum.
type Kind byte

const (
	KInt Kind = iota
	KFloat
	KBool
	KStr
	KPointer
	KRef
	KVoid
)

// Value is one operand-stack slot or decoded local/global: Int, Float,
// Bool, StringHandle{len,ptr}, Pointer(HeapAddr, TypeId) or
// Ref(Addr, TypeId, Global). Ref's Global flag distinguishes an address
// into the call stack's current frame chain from one into global
// memory — the two address spaces LOAD/STORE must never confuse.
type Value struct {
	Kind    Kind
	I       int64
	F       float64
	B       bool
	StrLen  int
	StrPtr  int
	Addr    int
	TypeIdx int
	Global  bool
}

func IntValue(v int64) Value     { return Value{Kind: KInt, I: v} }
func FloatValue(v float64) Value { return Value{Kind: KFloat, F: v} }
func BoolValue(v bool) Value     { return Value{Kind: KBool, B: v} }
func StrValue(ptr, length int) Value {
	return Value{Kind: KStr, StrPtr: ptr, StrLen: length}
}
func PointerValue(addr, typeIdx int) Value {
	return Value{Kind: KPointer, Addr: addr, TypeIdx: typeIdx}
}
func RefValue(addr, typeIdx int, global bool) Value {
	return Value{Kind: KRef, Addr: addr, TypeIdx: typeIdx, Global: global}
}
func VoidValue() Value { return Value{Kind: KVoid} }

// sizeOfType returns a type-table entry's in-memory byte size: Void 0,
// primitives/custom their stored Size, Boxed/Ref/Str 16 (address or
// ptr+len, both two 8-byte words) per spec.md §3's ByteSize table.
func sizeOfType(idx int, types []bytecode.TypeEntry) int {
	if idx < 0 || idx >= len(types) {
		return 0
	}
	te := types[idx]
	switch te.Kind {
	case bytecode.TVoid:
		return 0
	case bytecode.TBoxed, bytecode.TRef:
		return 16
	case bytecode.TPrimitive:
		if te.Prim == bytecode.PrimStr {
			return 16
		}
		return te.Size
	case bytecode.TCustom:
		return te.Size
	default:
		return 0
	}
}

// isPointerType reports whether a type-table entry is Boxed — the only
// kind whose values are GC roots when stored in a local.
func isPointerType(idx int, types []bytecode.TypeEntry) bool {
	if idx < 0 || idx >= len(types) {
		return false
	}
	return types[idx].Kind == bytecode.TBoxed
}
