package bytecode

import "math"

// floatBits reinterprets a float64 as its big-endian-ready bit pattern.
func floatBits(f float64) uint64 { return math.Float64bits(f) }

// Magic is the 5-byte signature every harpy image starts with.
var Magic = [5]byte{'h', 'a', 'r', 'p', 'y'}

const Version uint16 = 1

// TypeKind tags a type-table entry's on-disk shape (§6).
type TypeKind byte

const (
	TVoid TypeKind = iota
	TPrimitive
	TBoxed
	TRef
	TCustom
)

// Primitive is the on-disk primitive-id, distinct from types.Primitive's
// zero-based iota so the image format's 1=Int..4=Bool numbering survives
// independent of the in-memory enum's ordering.
type Primitive byte

const (
	PrimInt Primitive = iota + 1
	PrimFloat
	PrimStr
	PrimBool
)

// TypeEntry is one type-table slot. Prim is valid only for TPrimitive,
// PointeeIdx only for TBoxed/TRef, Size only for TPrimitive/TCustom (the
// loader derives Boxed/Ref/Void sizes itself rather than storing a
// redundant field for them).
type TypeEntry struct {
	Kind       TypeKind
	Prim       Primitive
	PointeeIdx int
	Size       int
}

// ConstKind discriminates a ConstEntry's payload shape in memory. It is
// not written to the image: the writer switches on it to pick the
// payload encoding, and the loader recovers it from the type-table
// entry the const's TypeIdx names.
type ConstKind byte

const (
	ConstVoid ConstKind = iota
	ConstInt
	ConstFloat
	ConstBool
	ConstStr
)

// ConstEntry is one constant-pool slot, decoded to a concrete Go value
// rather than kept as raw bytes.
type ConstEntry struct {
	Kind    ConstKind
	TypeIdx int
	I       int64
	F       float64
	B       bool
	S       string
}

// IntConst, FloatConst, BoolConst, StrConst, VoidConst build a
// ConstEntry of the matching kind with typeIdx already resolved
// against the image's type table.
func IntConst(typeIdx int, v int64) ConstEntry   { return ConstEntry{Kind: ConstInt, TypeIdx: typeIdx, I: v} }
func FloatConst(typeIdx int, v float64) ConstEntry {
	return ConstEntry{Kind: ConstFloat, TypeIdx: typeIdx, F: v}
}
func BoolConst(typeIdx int, v bool) ConstEntry { return ConstEntry{Kind: ConstBool, TypeIdx: typeIdx, B: v} }
func StrConst(typeIdx int, v string) ConstEntry {
	return ConstEntry{Kind: ConstStr, TypeIdx: typeIdx, S: v}
}
func VoidConst(typeIdx int) ConstEntry { return ConstEntry{Kind: ConstVoid, TypeIdx: typeIdx} }

// FuncEntry is one function-table slot. LocalTypes holds every local
// slot's type index, params first (ParamCount of them) then lets, in
// address order — exactly the layout the VM's frame push reads to know
// how many stack values to pop into locals and how to size the frame.
type FuncEntry struct {
	CodeOffset int
	ParamCount int
	LocalTypes []int
}

// Image is harpy's complete on-disk program: every table the VM needs
// to run, plus the bytecode itself. The code generator and
// runtime-conversion pass produce one of these (via internal/compiler);
// Write/Read round-trip it to/from bytes per §6.
type Image struct {
	MainFunctionIndex int
	Types             []TypeEntry
	Globals           []int // type-index per global, address order
	Consts            []ConstEntry
	Functions         []FuncEntry
	Code              []byte
}
