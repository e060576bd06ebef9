// Package scope implements the nested scope tree and symbol table built
// by the scope builder (pass 1) and mutated by the semantic analyzer
// (pass 2).
//
// Modeled after funxy's internal/symbols package (Symbol struct shape,
// SymbolKind/ScopeType enums, parent-escalating lookup). funxy keeps
// scopes in an interior-mutability arena with weak parent links because
// its Symbol is shared from multiple side tables under a Rust-flavored
// ownership discipline; in Go, ordinary pointers already give that
// sharing for free and the garbage collector tolerates the parent<->child
// cycle, so harpy's Scope/Symbol are held by plain pointer.
package scope

import (
	"fmt"

	"github.com/Aiffelowy/harpy-sub000/internal/ast"
	"github.com/Aiffelowy/harpy-sub000/internal/source"
	"github.com/Aiffelowy/harpy-sub000/internal/types"
)

// Kind identifies what kind of lexical construct opened a Scope.
type Kind int

const (
	KindGlobal Kind = iota
	KindFunction
	KindLoop
	KindBlock
)

// SymbolKind identifies what a Symbol names.
type SymbolKind int

const (
	SymVariable SymbolKind = iota
	SymParam
	SymFunction
	SymGlobal
)

// BorrowInfo records a single live borrow: the scope depth at which it
// was taken, the symbol it borrows, and the borrow expression's span —
// used to detect LifetimeMismatch when the borrowed variable's scope
// exits (invariant #3 in spec.md §8).
type BorrowInfo struct {
	Depth    int
	Original *Symbol
	Span     source.Span
}

// Symbol is a named, typed entity with a lifecycle bound to its scope:
// created by the scope builder, mutated by the analyzer (type inference,
// initialization, borrow counters), frozen once analysis completes.
type Symbol struct {
	Name       string
	TypeInfo   types.TypeInfo
	Kind       SymbolKind
	NodeId     ast.NodeId
	ScopeDepth int
	Span       source.Span

	// Variable-only fields.
	Declared         bool // declared `mut` in source
	Initialized      bool
	MutablyBorrowed  bool
	ImmutBorrowCount int

	// Function-only fields.
	Params []types.TypeInfo
	Locals []*Symbol

	// LocalIndex is this Param/Variable's slot index within its enclosing
	// function's local-types list (params first, then let-locals, in
	// declaration order) — the operand codegen emits for LOAD_LOCAL et al.
	LocalIndex int
}

// IsMutableDecl reports whether this symbol may be assigned to / mutably
// borrowed (AssignToConst / BorrowMutNonMutable check).
func (s *Symbol) IsMutableDecl() bool { return s.Declared }

// Scope is one node of the nested scope tree.
type Scope struct {
	Kind     Kind
	FuncName string // set when Kind == KindFunction
	Parent   *Scope
	Children []*Scope
	Symbols  map[string]*Symbol
	Depth    int
	Borrows  []*BorrowInfo
}

// NewRoot creates the program's root (global) scope at depth 0.
func NewRoot() *Scope {
	return &Scope{Kind: KindGlobal, Symbols: make(map[string]*Symbol), Depth: 0}
}

// Push creates and attaches a child scope of the given kind.
func (s *Scope) Push(kind Kind, funcName string) *Scope {
	child := &Scope{
		Kind:     kind,
		FuncName: funcName,
		Parent:   s,
		Symbols:  make(map[string]*Symbol),
		Depth:    s.Depth + 1,
	}
	s.Children = append(s.Children, child)
	return child
}

// ErrDuplicateSymbol is returned by Define when name already exists in
// this scope (spec.md §3: "symbol names unique within one scope").
type ErrDuplicateSymbol struct {
	Name string
	Span source.Span
}

func (e *ErrDuplicateSymbol) Error() string {
	return fmt.Sprintf("DuplicateSymbol: %q already defined in this scope (at %s)", e.Name, e.Span)
}

// Define adds sym to this scope under its own Name, failing if the name
// is already taken in this exact scope (not an ancestor).
func (s *Scope) Define(sym *Symbol) error {
	if _, exists := s.Symbols[sym.Name]; exists {
		return &ErrDuplicateSymbol{Name: sym.Name, Span: sym.Span}
	}
	sym.ScopeDepth = s.Depth
	s.Symbols[sym.Name] = sym
	return nil
}

// Lookup finds name in this scope, escalating to ancestors, per spec.md
// §3 ("lookup escalates to parent").
func (s *Scope) Lookup(name string) (*Symbol, bool) {
	for cur := s; cur != nil; cur = cur.Parent {
		if sym, ok := cur.Symbols[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// EnclosingFunction walks up to the nearest Function scope, or nil at
// the program root.
func (s *Scope) EnclosingFunction() *Scope {
	for cur := s; cur != nil; cur = cur.Parent {
		if cur.Kind == KindFunction {
			return cur
		}
	}
	return nil
}

// AddBorrow records a new live borrow in this scope.
func (s *Scope) AddBorrow(b *BorrowInfo) {
	s.Borrows = append(s.Borrows, b)
}
