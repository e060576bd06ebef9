package analyzer

import (
	"github.com/Aiffelowy/harpy-sub000/internal/ast"
	"github.com/Aiffelowy/harpy-sub000/internal/scope"
	"github.com/Aiffelowy/harpy-sub000/internal/source"
	"github.com/Aiffelowy/harpy-sub000/internal/tables"
	"github.com/Aiffelowy/harpy-sub000/internal/types"
)

// BuildResult is everything the scope builder produces for the
// semantic analyzer to re-walk against.
type BuildResult struct {
	Root       *scope.Scope
	Types      *tables.TypeTable
	Funcs      *tables.FunctionTable
	Globals    *tables.GlobalTable
	NodeScopes map[ast.NodeId]*scope.Scope
	FuncSpans  map[string]source.Span
	Errors     []*SemanticError
}

// ScopeBuilder is pass 1: it walks the AST once, declaring every symbol
// into the scope tree it builds alongside, and recording which scope
// each scope-opening node pushed — so pass 2 can re-enter the identical
// Scope instance instead of tracking a mutable "visited" flag (design
// note in DESIGN.md, following spec.md §9's next_unvisited_child note).
type ScopeBuilder struct {
	root       *scope.Scope
	types      *tables.TypeTable
	funcs      *tables.FunctionTable
	globals    *tables.GlobalTable
	nodeScopes map[ast.NodeId]*scope.Scope
	funcSpans  map[string]source.Span
	errors     []*SemanticError
}

// BuildScopes runs the scope builder over prog and returns its result.
func BuildScopes(prog *ast.Program) *BuildResult {
	sb := &ScopeBuilder{
		root:       scope.NewRoot(),
		types:      tables.NewTypeTable(),
		funcs:      tables.NewFunctionTable(),
		globals:    tables.NewGlobalTable(),
		nodeScopes: make(map[ast.NodeId]*scope.Scope),
		funcSpans:  make(map[string]source.Span),
	}

	for _, f := range prog.Functions {
		sb.declareFuncHeader(f)
	}
	for _, g := range prog.Globals {
		sb.declareGlobal(g)
	}
	for _, f := range prog.Functions {
		sb.buildFunc(f)
	}

	return &BuildResult{
		Root:       sb.root,
		Types:      sb.types,
		Funcs:      sb.funcs,
		Globals:    sb.globals,
		NodeScopes: sb.nodeScopes,
		FuncSpans:  sb.funcSpans,
		Errors:     sb.errors,
	}
}

func (sb *ScopeBuilder) errf(span source.Span, code, format string, args ...interface{}) {
	sb.errors = append(sb.errors, newErr(span, code, format, args...))
}

func (sb *ScopeBuilder) checkPointers(t types.Type, span source.Span) {
	if err := types.VerifyPointers(t); err != nil {
		sb.errf(span, ErrPointerToRef, "%s", err.Error())
	}
}

func (sb *ScopeBuilder) declareFuncHeader(f *ast.FuncDecl) {
	idx, first := sb.funcs.Declare(f.Name, f.ID())
	entry := sb.funcs.Get(idx)
	if !first {
		sb.errf(f.Span(), ErrDuplicateSymbol, "function %q already declared", f.Name)
		return
	}
	sb.funcSpans[f.Name] = f.Span()
	for _, p := range f.Params {
		sb.checkPointers(p.Type, p.Span())
		entry.Params = append(entry.Params, types.NewTypeInfo(p.Type, sb.types.Intern(p.Type)))
	}
	sb.checkPointers(f.ReturnType, f.Span())
	entry.ReturnType = types.NewTypeInfo(f.ReturnType, sb.types.Intern(f.ReturnType))
}

func (sb *ScopeBuilder) declareGlobal(g *ast.GlobalStmt) {
	sb.checkPointers(g.Declared, g.Span())
	ti := types.NewTypeInfo(g.Declared, sb.types.Intern(g.Declared))
	sb.globals.Declare(g.ID(), g.Name, ti, g.Span())
	sym := &scope.Symbol{
		Name: g.Name, TypeInfo: ti, Kind: scope.SymGlobal, NodeId: g.ID(), Span: g.Span(),
		Declared: g.Mutable, Initialized: true,
	}
	if err := sb.root.Define(sym); err != nil {
		sb.errors = append(sb.errors, &SemanticError{Code: ErrDuplicateSymbol, Msg: err.Error(), Span: g.Span()})
	}
}

func (sb *ScopeBuilder) buildFunc(f *ast.FuncDecl) {
	idx, ok := sb.funcs.Lookup(f.Name)
	if !ok {
		return
	}
	entry := sb.funcs.Get(idx)
	funcScope := sb.root.Push(scope.KindFunction, f.Name)
	sb.nodeScopes[f.ID()] = funcScope

	for i, p := range f.Params {
		ti := entry.Params[i]
		sym := &scope.Symbol{
			Name: p.Name, TypeInfo: ti, Kind: scope.SymParam, NodeId: p.ID(), Span: p.Span(),
			Declared: false, Initialized: true, LocalIndex: len(entry.LocalTypes),
		}
		entry.LocalTypes = append(entry.LocalTypes, ti)
		if err := funcScope.Define(sym); err != nil {
			sb.errors = append(sb.errors, &SemanticError{Code: ErrDuplicateSymbol, Msg: err.Error(), Span: p.Span()})
		}
	}

	sb.buildBlockIn(f.Body, funcScope, entry)
}

// buildBlockIn walks block's statements directly inside sc (no extra
// scope push) — used when sc was already pushed for the construct the
// block belongs to (a function body, a loop body).
func (sb *ScopeBuilder) buildBlockIn(block *ast.BlockStmt, sc *scope.Scope, entry *tables.FuncEntry) {
	sb.nodeScopes[block.ID()] = sc
	for _, stmt := range block.Statements {
		sb.buildStmt(stmt, sc, entry)
	}
}

// buildNestedBlock handles a BlockStmt encountered on its own (an if/else
// arm, a bare `{ }` statement): it gets its own fresh Block scope.
func (sb *ScopeBuilder) buildNestedBlock(block *ast.BlockStmt, parent *scope.Scope, entry *tables.FuncEntry) {
	child := parent.Push(scope.KindBlock, "")
	sb.buildBlockIn(block, child, entry)
}

func (sb *ScopeBuilder) declareLocal(name string, mutable, initialized bool, t types.Type, nodeId ast.NodeId, span source.Span, sc *scope.Scope, entry *tables.FuncEntry) {
	sb.checkPointers(t, span)
	ti := types.NewTypeInfo(t, sb.types.Intern(t))
	sym := &scope.Symbol{
		Name: name, TypeInfo: ti, Kind: scope.SymVariable, NodeId: nodeId, Span: span,
		Declared: mutable, Initialized: initialized, LocalIndex: len(entry.LocalTypes),
	}
	entry.LocalTypes = append(entry.LocalTypes, ti)
	if err := sc.Define(sym); err != nil {
		sb.errors = append(sb.errors, &SemanticError{Code: ErrDuplicateSymbol, Msg: err.Error(), Span: span})
	}
}

func (sb *ScopeBuilder) buildStmt(stmt ast.Statement, sc *scope.Scope, entry *tables.FuncEntry) {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		declared := types.Unknown()
		if s.Declared != nil {
			declared = *s.Declared
		}
		sb.declareLocal(s.Name, s.Mutable, s.Value != nil, declared, s.ID(), s.Span(), sc, entry)

	case *ast.BlockStmt:
		sb.buildNestedBlock(s, sc, entry)

	case *ast.ForStmt:
		loopScope := sc.Push(scope.KindLoop, "")
		sb.nodeScopes[s.ID()] = loopScope
		sb.declareLocal(s.Var, false, true, types.BasePrim(types.Int, false), s.ID(), s.Span(), loopScope, entry)
		sb.buildBlockIn(s.Body, loopScope, entry)

	case *ast.WhileStmt:
		loopScope := sc.Push(scope.KindLoop, "")
		sb.nodeScopes[s.ID()] = loopScope
		sb.buildBlockIn(s.Body, loopScope, entry)

	case *ast.LoopStmt:
		loopScope := sc.Push(scope.KindLoop, "")
		sb.nodeScopes[s.ID()] = loopScope
		sb.buildBlockIn(s.Body, loopScope, entry)

	case *ast.IfStmt:
		sb.buildNestedBlock(s.Then, sc, entry)
		switch els := s.Else.(type) {
		case *ast.BlockStmt:
			sb.buildNestedBlock(els, sc, entry)
		case *ast.IfStmt:
			sb.buildStmt(els, sc, entry)
		}

	case *ast.SwitchStmt:
		for _, c := range s.Cases {
			caseScope := sc.Push(scope.KindBlock, "")
			sb.nodeScopes[c.ID()] = caseScope
			if block, ok := c.Body.(*ast.BlockStmt); ok {
				sb.buildBlockIn(block, caseScope, entry)
			} else if c.Body != nil {
				sb.buildStmt(c.Body, caseScope, entry)
			}
		}

	case *ast.AssignStmt, *ast.ExprStmt, *ast.ReturnStmt:
		// No declarations; nothing to register in pass 1.
	}
}
