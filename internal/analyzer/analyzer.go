// Package analyzer implements the scope builder (pass 1, spec-named C6)
// and the semantic analyzer (pass 2, C7) that together turn a parsed
// AST into a fully type-resolved, borrow-checked program ready for the
// runtime-conversion pass.
//
// Grounded on funxy's internal/analyzer package: a symbol-table-driven
// walker that resolves expression types against a pre-built scope tree
// and accumulates errors rather than aborting on the first one. Unlike
// funxy, which re-walks the same mutable AST node to both build and
// check it in one pass with a visited flag, harpy keeps the two passes
// fully separate per spec.md §9's next_unvisited_child note: the scope
// builder records, for every scope-opening node, the exact *scope.Scope
// instance it pushed, and the analyzer looks it up by NodeId instead of
// re-deriving or re-pushing it.
package analyzer

import (
	"github.com/Aiffelowy/harpy-sub000/internal/ast"
	"github.com/Aiffelowy/harpy-sub000/internal/scope"
	"github.com/Aiffelowy/harpy-sub000/internal/source"
	"github.com/Aiffelowy/harpy-sub000/internal/tables"
	"github.com/Aiffelowy/harpy-sub000/internal/types"
)

// Result is the semantic analyzer's output: the interned constant pool
// (built as a side effect of resolving literals) and every accumulated
// error from both passes.
type Result struct {
	Consts  *tables.ConstPool
	Errors  []*SemanticError
	Scopes  *BuildResult

	// ExprTypes is every expression node's resolved type, keyed by
	// NodeId — the code generator consults it for BoxExpr (BOX_ALLOC's
	// type-table operand needs the boxed value's static type, which
	// resolve_expr computes but does not otherwise persist anywhere).
	ExprTypes map[ast.NodeId]types.Type
}

// Analyzer is pass 2: it re-walks the AST synchronized with the scope
// tree pass 1 built, resolving every expression's type, enforcing the
// statement rules of spec.md §4.2, and tracking live borrows.
type Analyzer struct {
	root       *scope.Scope
	typeTable  *tables.TypeTable
	funcs      *tables.FunctionTable
	globals    *tables.GlobalTable
	consts     *tables.ConstPool
	nodeScopes map[ast.NodeId]*scope.Scope
	errors     []*SemanticError
	exprTypes  map[ast.NodeId]types.Type

	curFunc          *tables.FuncEntry
	curFuncBodyDepth int
}

// Analyze runs the full two-pass analysis over prog: scope building,
// then semantic checking, returning the accumulated result whether or
// not errors occurred (the runtime-conversion pass is what refuses to
// proceed on any error, per spec.md §7's propagation policy).
func Analyze(prog *ast.Program) *Result {
	built := BuildScopes(prog)

	a := &Analyzer{
		root:       built.Root,
		typeTable:  built.Types,
		funcs:      built.Funcs,
		globals:    built.Globals,
		consts:     tables.NewConstPool(),
		nodeScopes: built.NodeScopes,
		errors:     append([]*SemanticError{}, built.Errors...),
		exprTypes:  make(map[ast.NodeId]types.Type),
	}

	for _, g := range prog.Globals {
		a.analyzeGlobal(g)
	}
	for _, f := range prog.Functions {
		a.analyzeFunc(f)
	}
	if a.funcs.MainID == nil {
		a.errf(prog.Span(), ErrMissingMain, "program declares no function named main")
	}

	return &Result{Consts: a.consts, Errors: a.errors, Scopes: built, ExprTypes: a.exprTypes}
}

func (a *Analyzer) errf(span source.Span, code, format string, args ...interface{}) {
	a.errors = append(a.errors, newErr(span, code, format, args...))
}

func (a *Analyzer) analyzeGlobal(g *ast.GlobalStmt) {
	valType := a.resolveExpr(g.Value, a.root)
	if valType.IsUnknown() {
		return
	}
	if !types.AssignCompatible(g.Declared, valType) {
		a.errf(g.Span(), ErrLetTypeMismatch, "global %q declared %s but initializer is %s", g.Name, g.Declared, valType)
	}
}

func (a *Analyzer) analyzeFunc(f *ast.FuncDecl) {
	idx, ok := a.funcs.Lookup(f.Name)
	if !ok {
		return
	}
	entry := a.funcs.Get(idx)
	funcScope, ok := a.nodeScopes[f.ID()]
	if !ok {
		return
	}

	prevFunc, prevDepth := a.curFunc, a.curFuncBodyDepth
	a.curFunc = entry
	a.curFuncBodyDepth = funcScope.Depth
	status := a.analyzeBlock(f.Body, funcScope)
	a.curFunc, a.curFuncBodyDepth = prevFunc, prevDepth

	if !f.ReturnType.IsVoid() && status != Always {
		a.errf(f.Span(), ErrNotAllPathsReturn, "function %q does not return on every path", f.Name)
	}
}

// resolveScopeExit resolves every borrow recorded in sc against the
// Depth of the symbol it borrows. A borrow of a variable that lives in
// some ancestor scope survives sc's exit unresolved and bubbles up to
// be re-checked when that ancestor exits in turn; a borrow that is
// still outstanding once the exiting scope reaches the depth the
// borrowed variable itself lives at, but was recorded at a depth
// deeper than that (it was taken in, and escaped, a nested block),
// would dangle once that variable's storage is gone — LifetimeMismatch
// (spec.md §3's BorrowInfo invariant). A borrow taken directly in the
// same scope the variable lives in is resolved there and never flagged.
func (a *Analyzer) resolveScopeExit(sc *scope.Scope) {
	var bubble []*scope.BorrowInfo
	for _, b := range sc.Borrows {
		if b.Original.ScopeDepth < sc.Depth {
			bubble = append(bubble, b)
			continue
		}
		if b.Depth > sc.Depth {
			a.errf(b.Span, ErrLifetimeMismatch, "borrow of %q outlives its scope", b.Original.Name)
		}
	}
	if sc.Parent != nil && len(bubble) > 0 {
		sc.Parent.Borrows = append(sc.Parent.Borrows, bubble...)
	}
	for _, sym := range sc.Symbols {
		if sym.Kind == scope.SymVariable || sym.Kind == scope.SymParam {
			sym.MutablyBorrowed = false
			sym.ImmutBorrowCount = 0
		}
	}
}
