package analyzer

import (
	"github.com/Aiffelowy/harpy-sub000/internal/analyzer/resolve"
	"github.com/Aiffelowy/harpy-sub000/internal/ast"
	"github.com/Aiffelowy/harpy-sub000/internal/scope"
	"github.com/Aiffelowy/harpy-sub000/internal/tables"
	"github.com/Aiffelowy/harpy-sub000/internal/types"
)

// resolveExpr is resolve_expr (spec.md §4.2): it types expr against sc,
// raising errors into a.errors and returning types.Unknown() on any
// failure so callers can short-circuit further checks without a second
// error for the same root cause. The resolved type is also recorded
// under expr's NodeId so the code generator can recover it later
// without re-running inference (only BoxExpr needs this today, for
// BOX_ALLOC's type operand).
func (a *Analyzer) resolveExpr(expr ast.Expression, sc *scope.Scope) types.Type {
	t := a.resolveExprKind(expr, sc)
	a.exprTypes[expr.ID()] = t
	return t
}

func (a *Analyzer) resolveExprKind(expr ast.Expression, sc *scope.Scope) types.Type {
	switch e := expr.(type) {
	case *ast.IntLiteral:
		a.consts.Intern(tables.IntLiteral(e.Value))
		return types.BasePrim(types.Int, false)

	case *ast.FloatLiteral:
		a.consts.Intern(tables.FloatLiteral(e.Value))
		return types.BasePrim(types.Float, false)

	case *ast.BoolLiteral:
		a.consts.Intern(tables.BoolLiteral(e.Value))
		return types.BasePrim(types.Bool, false)

	case *ast.StringLiteral:
		a.consts.Intern(tables.StrLiteral(e.Value))
		return types.BasePrim(types.Str, false)

	case *ast.Identifier:
		return a.resolveIdentifier(e, sc)

	case *ast.CallExpr:
		return a.resolveCall(e, sc)

	case *ast.PrefixExpr:
		return a.resolvePrefix(e, sc)

	case *ast.InfixExpr:
		return a.resolveInfix(e, sc)

	case *ast.BorrowExpr:
		return a.resolveBorrow(e, sc)

	case *ast.BoxExpr:
		inner := a.resolveExpr(e.Value, sc)
		return types.Boxed(inner, false)

	default:
		return types.Unknown()
	}
}

func (a *Analyzer) resolveIdentifier(e *ast.Identifier, sc *scope.Scope) types.Type {
	sym, ok := sc.Lookup(e.Name)
	if !ok {
		a.errf(e.Span(), ErrMissingSymbol, "undefined symbol %q", e.Name)
		return types.Unknown()
	}
	if sym.Kind == scope.SymVariable && !sym.Initialized {
		a.errf(e.Span(), ErrUninitializedVar, "%q used before initialization", e.Name)
	}
	return sym.TypeInfo.Type
}

func (a *Analyzer) resolveCall(e *ast.CallExpr, sc *scope.Scope) types.Type {
	idx, ok := a.funcs.Lookup(e.Callee.Name)
	if !ok {
		a.errf(e.Span(), ErrNotAFunc, "%q is not a function", e.Callee.Name)
		return types.Unknown()
	}
	entry := a.funcs.Get(idx)
	a.funcs.BindCallSite(e.ID(), idx)

	if len(e.Args) != len(entry.Params) {
		a.errf(e.Span(), ErrArgCountMismatch, "%q expects %d argument(s), got %d", e.Callee.Name, len(entry.Params), len(e.Args))
	}
	n := len(e.Args)
	if len(entry.Params) < n {
		n = len(entry.Params)
	}
	for i := 0; i < n; i++ {
		argType := a.resolveExpr(e.Args[i], sc)
		if argType.IsUnknown() {
			continue
		}
		if !types.ParamCompatible(entry.Params[i].Type, argType) {
			a.errf(e.Args[i].Span(), ErrArgTypeMismatch, "argument %d of %q: expected %s, got %s", i+1, e.Callee.Name, entry.Params[i].Type, argType)
		}
	}
	for i := n; i < len(e.Args); i++ {
		a.resolveExpr(e.Args[i], sc)
	}
	return entry.ReturnType.Type
}

func (a *Analyzer) resolvePrefix(e *ast.PrefixExpr, sc *scope.Scope) types.Type {
	operand := a.resolveExpr(e.Right, sc)
	if operand.IsUnknown() {
		return types.Unknown()
	}
	result, err := resolve.Prefix(e.Op, operand)
	if err != nil {
		a.errf(e.Span(), ErrPrefixTypeMismatch, "%s", err.Error())
		return types.Unknown()
	}
	return result
}

func (a *Analyzer) resolveInfix(e *ast.InfixExpr, sc *scope.Scope) types.Type {
	left := a.resolveExpr(e.Left, sc)
	right := a.resolveExpr(e.Right, sc)
	if left.IsUnknown() || right.IsUnknown() {
		return types.Unknown()
	}
	result, err := resolve.Infix(e.Op, left, right)
	if err != nil {
		a.errf(e.Span(), ErrInfixTypeMismatch, "%s", err.Error())
		return types.Unknown()
	}
	return result
}

func (a *Analyzer) resolveBorrow(e *ast.BorrowExpr, sc *scope.Scope) types.Type {
	if !ast.IsLvalue(e.Target) {
		a.errf(e.Span(), ErrInvalidBorrow, "cannot borrow a non-lvalue expression")
		return types.Unknown()
	}
	sym := a.borrowSymbol(e.Target, sc)
	if sym == nil {
		a.errf(e.Span(), ErrInvalidVarBorrow, "borrow target is not a variable")
		return types.Unknown()
	}
	if sym.Kind != scope.SymVariable && sym.Kind != scope.SymParam && sym.Kind != scope.SymGlobal {
		a.errf(e.Span(), ErrInvalidVarBorrow, "%q cannot be borrowed", sym.Name)
		return types.Unknown()
	}

	if e.Mutable {
		if !sym.IsMutableDecl() {
			a.errf(e.Span(), ErrBorrowMutNonMutable, "cannot take &mut of immutable %q", sym.Name)
			return types.Unknown()
		}
		if sym.MutablyBorrowed {
			a.errf(e.Span(), ErrAlreadyMutablyBorrowed, "%q is already mutably borrowed", sym.Name)
			return types.Unknown()
		}
		if sym.ImmutBorrowCount > 0 {
			a.errf(e.Span(), ErrCreatedMutableBorrowWhileImmutableBorrow, "cannot take &mut of %q while it is immutably borrowed", sym.Name)
			return types.Unknown()
		}
		sym.MutablyBorrowed = true
	} else {
		if sym.MutablyBorrowed {
			a.errf(e.Span(), ErrAlreadyMutablyBorrowed, "cannot borrow %q while it is mutably borrowed", sym.Name)
			return types.Unknown()
		}
		sym.ImmutBorrowCount++
	}

	sc.AddBorrow(&scope.BorrowInfo{Depth: sc.Depth, Original: sym, Span: e.Span()})
	return types.Ref(sym.TypeInfo.Type, e.Mutable)
}

// borrowSymbol finds the Symbol ultimately named by an lvalue borrow
// target, resolving through dereferences and nested borrows.
func (a *Analyzer) borrowSymbol(expr ast.Expression, sc *scope.Scope) *scope.Symbol {
	switch e := expr.(type) {
	case *ast.Identifier:
		sym, ok := sc.Lookup(e.Name)
		if !ok {
			a.errf(e.Span(), ErrMissingSymbol, "undefined symbol %q", e.Name)
			return nil
		}
		return sym
	case *ast.PrefixExpr:
		if e.Op == ast.PrefixStar {
			return a.borrowSymbol(e.Right, sc)
		}
		return nil
	case *ast.BorrowExpr:
		return a.borrowSymbol(e.Target, sc)
	default:
		return nil
	}
}
