package tables

import (
	"fmt"

	"github.com/Aiffelowy/harpy-sub000/internal/source"
	"github.com/Aiffelowy/harpy-sub000/internal/types"
)

// RuntimeKind discriminates RuntimeType's variants: the post-analysis
// Type sum with Unknown removed (conversion fails, CantInferType, if any
// survived — invariant #1 in spec.md §8).
type RuntimeKind int

const (
	RVoid RuntimeKind = iota
	RBase
	RBoxed
	RRef
)

// RuntimeType is Type with Unknown eliminated; Boxed/Ref reference their
// pointee by index into the owning RuntimeTypeTable rather than an
// embedded pointer, so the whole table can be serialized flat (§6).
type RuntimeType struct {
	Kind        RuntimeKind
	Base        types.BaseType
	PointeeIdx  int // valid when Kind is RBoxed/RRef
	Mutable     bool
	ByteSize    int
}

// CantInferTypeError is raised by the runtime-conversion pass when a
// Symbol's type still contains Unknown after analysis.
type CantInferTypeError struct {
	Span source.Span
	What string
}

func (e *CantInferTypeError) Error() string {
	return fmt.Sprintf("CantInferType: could not infer a concrete type for %s (at %s)", e.What, e.Span)
}

// MissingMainError is raised when no function named "main" was declared.
type MissingMainError struct{}

func (e *MissingMainError) Error() string { return "MissingMain: program declares no `fn main`" }

// RuntimeTypeTable is the immutable, deduplicated table of RuntimeTypes
// produced by conversion, keyed by structural equality exactly like its
// analysis-time counterpart.
type RuntimeTypeTable struct {
	entries []RuntimeType
	index   map[string]int
}

func newRuntimeTypeTable() *RuntimeTypeTable {
	t := &RuntimeTypeTable{index: make(map[string]int)}
	t.entries = append(t.entries, RuntimeType{Kind: RVoid})
	t.index[runtimeKey(RuntimeType{Kind: RVoid})] = 0
	return t
}

func runtimeKey(rt RuntimeType) string {
	switch rt.Kind {
	case RVoid:
		return "void"
	case RBase:
		return fmt.Sprintf("base:%s:%v", rt.Base.String(), rt.Mutable)
	case RBoxed:
		return fmt.Sprintf("boxed:%d:%v", rt.PointeeIdx, rt.Mutable)
	case RRef:
		return fmt.Sprintf("ref:%d:%v", rt.PointeeIdx, rt.Mutable)
	default:
		return "?"
	}
}

func (t *RuntimeTypeTable) intern(rt RuntimeType) int {
	key := runtimeKey(rt)
	if idx, ok := t.index[key]; ok {
		return idx
	}
	idx := len(t.entries)
	t.entries = append(t.entries, rt)
	t.index[key] = idx
	return idx
}

func (t *RuntimeTypeTable) Get(idx int) RuntimeType { return t.entries[idx] }
func (t *RuntimeTypeTable) Len() int                { return len(t.entries) }
func (t *RuntimeTypeTable) All() []RuntimeType       { return t.entries }

// InternType converts an analysis-time Type into this table's index,
// interning it if not already present. Exposed so the code generator
// can resolve BOX_ALLOC's type-table operand against the very same
// RuntimeTypeTable the image writer will serialize, rather than the
// analysis-time TypeTable (whose indices don't survive
// ConvertToRuntime's re-dedup).
func (rtt *RuntimeTypeTable) InternType(ty types.Type, span source.Span, what string) (int, error) {
	return convertType(rtt, ty, span, what)
}

// convertType converts an analysis-time Type into a RuntimeTypeTable
// index, failing if ty (or anything it nests) is still Unknown.
func convertType(rtt *RuntimeTypeTable, ty types.Type, span source.Span, what string) (int, error) {
	switch ty.Kind {
	case types.KVoid:
		return 0, nil
	case types.KUnknown:
		return 0, &CantInferTypeError{Span: span, What: what}
	case types.KBase:
		return rtt.intern(RuntimeType{Kind: RBase, Base: ty.Base, Mutable: ty.Mutable, ByteSize: ty.ByteSize()}), nil
	case types.KBoxed, types.KRef:
		inner, err := convertType(rtt, *ty.Inner, span, what)
		if err != nil {
			return 0, err
		}
		kind := RBoxed
		if ty.Kind == types.KRef {
			kind = RRef
		}
		return rtt.intern(RuntimeType{Kind: kind, PointeeIdx: inner, Mutable: ty.Mutable, ByteSize: ty.ByteSize()}), nil
	default:
		return 0, fmt.Errorf("UnresolvedType: unrecognized type kind at %s", span)
	}
}

// literalPrimitive maps a const-pool literal's kind to the primitive
// type it must have a RuntimeTypeTable entry for; LitVoid has none (the
// void type is already entry 0 of every RuntimeTypeTable).
func literalPrimitive(k LiteralKind) (types.Primitive, bool) {
	switch k {
	case LitInt:
		return types.Int, true
	case LitFloat:
		return types.Float, true
	case LitBool:
		return types.Bool, true
	case LitStr:
		return types.Str, true
	default:
		return 0, false
	}
}

// RuntimeConstPool, RuntimeFunctionTable, RuntimeGlobalTable mirror their
// analysis-time counterparts after every embedded Type has been resolved
// to a RuntimeTypeTable index.
type RuntimeConstPool struct {
	Entries []Literal
}

type RuntimeFuncEntry struct {
	Name       string
	ParamTypes []int // RuntimeTypeTable indices
	ReturnType int
	LocalTypes []int // params first, then locals, in address order
}

type RuntimeFunctionTable struct {
	Entries []*RuntimeFuncEntry
	MainIdx int
}

type RuntimeGlobalEntry struct {
	Name string
	Type int // RuntimeTypeTable index
}

type RuntimeGlobalTable struct {
	Entries []*RuntimeGlobalEntry
}

// RuntimeImage bundles the four runtime tables produced by conversion;
// the code generator and image writer consume it directly.
type RuntimeImage struct {
	Types     *RuntimeTypeTable
	Consts    *RuntimeConstPool
	Functions *RuntimeFunctionTable
	Globals   *RuntimeGlobalTable
}

// ConvertToRuntime performs the runtime-conversion pass (C10): it walks
// every TypeInfo recorded against a function's params/return/locals and
// every global's declared type, fails the whole pipeline with
// CantInferType if any Unknown survived, and otherwise builds the four
// immutable runtime tables — including a RuntimeType for every const-pool
// literal's primitive, even one never assigned to a typed symbol. This is
// all-or-nothing per spec.md §7: on failure the caller gets no image.
//
// The analysis-time TypeTable itself is not walked: it is an append-only
// arena the scope builder seeds with a types.Unknown() placeholder for
// every unannotated `let` (scopebuilder.go's declareLocal), which
// analysis then supersedes on the Symbol in place rather than in the
// table, so the table can carry stale Unknown entries that were never
// actually left unresolved.
func ConvertToRuntime(cp *ConstPool, ft *FunctionTable, gt *GlobalTable, funcSpans map[string]source.Span) (*RuntimeImage, []error) {
	var errs []error
	rtt := newRuntimeTypeTable()

	img := &RuntimeImage{Types: rtt, Consts: &RuntimeConstPool{Entries: append([]Literal(nil), cp.All()...)}}

	// A literal can reach the const pool without ever being assigned to a
	// typed symbol (e.g. a bool literal used only as an `if` condition),
	// so the param/local/global/return walk below won't always reach its
	// primitive. Intern one RuntimeType per literal kind up front so
	// compiler.convertConst always finds a match.
	for _, lit := range img.Consts.Entries {
		if prim, ok := literalPrimitive(lit.Kind); ok {
			rtt.intern(RuntimeType{Kind: RBase, Base: types.BaseType{Primitive: prim}, ByteSize: types.BasePrim(prim, false).ByteSize()})
		}
	}

	funcTable := &RuntimeFunctionTable{}
	for _, fe := range ft.All() {
		span := funcSpans[fe.Name]
		entry := &RuntimeFuncEntry{Name: fe.Name}
		for _, p := range fe.Params {
			idx, err := convertType(rtt, p.Type, span, fmt.Sprintf("parameter of %s", fe.Name))
			if err != nil {
				errs = append(errs, err)
				continue
			}
			entry.ParamTypes = append(entry.ParamTypes, idx)
		}
		retIdx, err := convertType(rtt, fe.ReturnType.Type, span, fmt.Sprintf("return type of %s", fe.Name))
		if err != nil {
			errs = append(errs, err)
		} else {
			entry.ReturnType = retIdx
		}
		for _, l := range fe.LocalTypes {
			idx, err := convertType(rtt, l.Type, span, fmt.Sprintf("local in %s", fe.Name))
			if err != nil {
				errs = append(errs, err)
				continue
			}
			entry.LocalTypes = append(entry.LocalTypes, idx)
		}
		funcTable.Entries = append(funcTable.Entries, entry)
	}
	if ft.MainID == nil {
		errs = append(errs, &MissingMainError{})
	} else {
		funcTable.MainIdx = *ft.MainID
	}
	img.Functions = funcTable

	globalTable := &RuntimeGlobalTable{}
	for _, ge := range gt.All() {
		idx, err := convertType(rtt, ge.Type.Type, ge.Span, fmt.Sprintf("global %s", ge.Name))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		globalTable.Entries = append(globalTable.Entries, &RuntimeGlobalEntry{Name: ge.Name, Type: idx})
	}
	img.Globals = globalTable

	if len(errs) > 0 {
		return nil, errs
	}
	return img, nil
}
