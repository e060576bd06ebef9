// Package types implements harpy's structural type system: the Type sum,
// mutability-sensitive compatibility relations, and the compact TypeInfo
// triple the rest of the pipeline keys on.
//
// Modeled after funxy's internal/typesystem package (a Type interface with
// one struct per variant), but flattened from funxy's higher-kinded,
// parametric system down to the fixed Void/Unknown/Base/Boxed/Ref sum
// spec.md §3 describes — harpy has no generics.
package types

import "fmt"

// Primitive is one of the four built-in scalar bases.
type Primitive int

const (
	Int Primitive = iota
	Float
	Str
	Bool
)

func (p Primitive) String() string {
	switch p {
	case Int:
		return "int"
	case Float:
		return "float"
	case Str:
		return "str"
	case Bool:
		return "bool"
	default:
		return "?"
	}
}

// BaseType is either a primitive or a named custom type (the Non-goals
// placeholder aggregate kind).
type BaseType struct {
	Primitive Primitive
	IsCustom  bool
	Name      string // valid only when IsCustom
}

func (b BaseType) String() string {
	if b.IsCustom {
		return b.Name
	}
	return b.Primitive.String()
}

func (a BaseType) Equal(b BaseType) bool {
	if a.IsCustom != b.IsCustom {
		return false
	}
	if a.IsCustom {
		return a.Name == b.Name
	}
	return a.Primitive == b.Primitive
}

// Kind discriminates the Type sum's variants.
type Kind int

const (
	KVoid Kind = iota
	KUnknown
	KBase
	KBoxed
	KRef
)

// Type is harpy's structural type: a sum of Void, Unknown (pre-inference
// placeholder), Base(BaseType), Boxed(Type) and Ref(Type), each carrying
// a mutability flag. Boxed/Ref wrap another *Type via Inner.
type Type struct {
	Kind    Kind
	Base    BaseType
	Inner   *Type // set for Boxed/Ref
	Mutable bool
}

func Void() Type    { return Type{Kind: KVoid} }
func Unknown() Type { return Type{Kind: KUnknown} }

func BasePrim(p Primitive, mutable bool) Type {
	return Type{Kind: KBase, Base: BaseType{Primitive: p}, Mutable: mutable}
}

func Custom(name string, mutable bool) Type {
	return Type{Kind: KBase, Base: BaseType{IsCustom: true, Name: name}, Mutable: mutable}
}

func Boxed(inner Type, mutable bool) Type {
	return Type{Kind: KBoxed, Inner: &inner, Mutable: mutable}
}

func Ref(inner Type, mutable bool) Type {
	return Type{Kind: KRef, Inner: &inner, Mutable: mutable}
}

func (t Type) String() string {
	switch t.Kind {
	case KVoid:
		return "void"
	case KUnknown:
		return "?"
	case KBase:
		return t.Base.String()
	case KBoxed:
		s := "boxed "
		if t.Mutable {
			s += "mut "
		}
		return s + t.Inner.String()
	case KRef:
		s := "&"
		if t.Mutable {
			s += "mut "
		}
		return s + t.Inner.String()
	default:
		return "<invalid type>"
	}
}

func (t Type) IsVoid() bool    { return t.Kind == KVoid }
func (t Type) IsUnknown() bool { return t.Kind == KUnknown }
func (t Type) IsBase() bool    { return t.Kind == KBase }
func (t Type) IsBoxed() bool   { return t.Kind == KBoxed }
func (t Type) IsRef() bool     { return t.Kind == KRef }

// IsIndirection reports whether t is Boxed or Ref.
func (t Type) IsIndirection() bool { return t.Kind == KBoxed || t.Kind == KRef }

// IsPrimitiveBase reports whether t is a non-custom Base — the only shape
// the infix/prefix resolvers operate on.
func (t Type) IsPrimitiveBase() bool { return t.Kind == KBase && !t.Base.IsCustom }

// ContainsUnknown reports whether t or any nested Inner is Unknown.
func (t Type) ContainsUnknown() bool {
	if t.Kind == KUnknown {
		return true
	}
	if t.Inner != nil {
		return t.Inner.ContainsUnknown()
	}
	return false
}

// VerifyPointers enforces the invariant that a Boxed may not directly
// contain a Ref (PointerToRef).
func VerifyPointers(t Type) error {
	if t.Kind == KBoxed && t.Inner != nil && t.Inner.Kind == KRef {
		return fmt.Errorf("PointerToRef: boxed type directly contains a ref: %s", t)
	}
	if t.Inner != nil {
		return VerifyPointers(*t.Inner)
	}
	return nil
}

// sameShape reports whether a and b have identical Kind/Base shape,
// ignoring mutability — the recursive structural-equality core every
// relation below builds on.
func sameShape(a, b Type) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KVoid, KUnknown:
		return true
	case KBase:
		return a.Base.Equal(b.Base)
	case KBoxed, KRef:
		if a.Inner == nil || b.Inner == nil {
			return a.Inner == b.Inner
		}
		return sameShape(*a.Inner, *b.Inner)
	}
	return false
}

// Compatible implements the covariant "a can observe b" relation: bases
// must match, and a must be at least as mutable as b is NOT required —
// rather b must be at least as mutable as a demands, i.e. an immutable
// observer (a) accepts either mutability of b, while a mutable observer
// (a) requires b to also be mutable.
func Compatible(a, b Type) bool {
	if !sameShape(a, b) {
		return false
	}
	if a.Mutable && !b.Mutable {
		return false
	}
	if a.Kind == KBoxed || a.Kind == KRef {
		return Compatible(*a.Inner, *b.Inner)
	}
	return true
}

// StrictCompatible requires exact mutability at every level in addition
// to structural compatibility.
func StrictCompatible(a, b Type) bool {
	if !sameShape(a, b) {
		return false
	}
	if a.Mutable != b.Mutable {
		return false
	}
	if a.Kind == KBoxed || a.Kind == KRef {
		return StrictCompatible(*a.Inner, *b.Inner)
	}
	return true
}

// AssignCompatible reports whether `dst := src` is legal: bases must
// match; for Ref destinations, a mutable inner-destination requires a
// mutable inner-source.
func AssignCompatible(dst, src Type) bool {
	if !sameShape(dst, src) {
		return false
	}
	if dst.Kind == KRef {
		if dst.Inner.Mutable && !src.Inner.Mutable {
			return false
		}
		return AssignCompatible(*dst.Inner, *src.Inner)
	}
	if dst.Kind == KBoxed {
		return AssignCompatible(*dst.Inner, *src.Inner)
	}
	return true
}

// ParamCompatible reports whether an argument of type arg may bind to a
// parameter declared param: base equality, and for indirections a
// mutable inner-param rejects an immutable inner-arg.
func ParamCompatible(param, arg Type) bool {
	if !sameShape(param, arg) {
		return false
	}
	if param.Kind == KBoxed || param.Kind == KRef {
		if param.Inner.Mutable && !arg.Inner.Mutable {
			return false
		}
		return ParamCompatible(*param.Inner, *arg.Inner)
	}
	return true
}

// ReturnCompatible reports whether an expression of type actual may
// satisfy a declared return type of wanted: base equality, and for
// Ref/Boxed the inner must be strictly compatible.
func ReturnCompatible(wanted, actual Type) bool {
	if !sameShape(wanted, actual) {
		return false
	}
	if wanted.Kind == KBoxed || wanted.Kind == KRef {
		return StrictCompatible(*wanted.Inner, *actual.Inner)
	}
	return true
}

// ByteSize returns the on-stack/on-disk size of a value of this type, per
// spec.md §3: Ref/Boxed are 16 bytes (address + type tag), Int/Float 8,
// Bool 1, Str 16 (ptr+len), Void 0.
func (t Type) ByteSize() int {
	switch t.Kind {
	case KVoid:
		return 0
	case KBoxed, KRef:
		return 16
	case KBase:
		switch {
		case t.Base.IsCustom:
			return 8
		case t.Base.Primitive == Bool:
			return 1
		case t.Base.Primitive == Str:
			return 16
		default:
			return 8
		}
	default:
		return 0
	}
}

// TypeInfo pairs a resolved Type with its byte size and its index in the
// shared TypeTable.
type TypeInfo struct {
	Type      Type
	ByteSize  int
	TypeIndex int
}

func NewTypeInfo(t Type, index int) TypeInfo {
	return TypeInfo{Type: t, ByteSize: t.ByteSize(), TypeIndex: index}
}
