package analyzer

import (
	"github.com/Aiffelowy/harpy-sub000/internal/analyzer/resolve"
	"github.com/Aiffelowy/harpy-sub000/internal/ast"
	"github.com/Aiffelowy/harpy-sub000/internal/scope"
	"github.com/Aiffelowy/harpy-sub000/internal/types"
)

// analyzeBlock resolves every statement of block in its pass-1 scope,
// returning the block's composed ReturnStatus, then resolves that
// scope's outstanding borrows on exit.
func (a *Analyzer) analyzeBlock(block *ast.BlockStmt, fallback *scope.Scope) ReturnStatus {
	sc, ok := a.nodeScopes[block.ID()]
	if !ok {
		sc = fallback
	}
	status := Never
	for _, stmt := range block.Statements {
		status = status.Then(a.analyzeStmt(stmt, sc))
	}
	a.resolveScopeExit(sc)
	return status
}

func (a *Analyzer) analyzeStmt(stmt ast.Statement, sc *scope.Scope) ReturnStatus {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		a.analyzeLet(s, sc)
		return Never

	case *ast.BlockStmt:
		return a.analyzeBlock(s, sc)

	case *ast.ForStmt:
		return a.analyzeFor(s, sc)

	case *ast.WhileStmt:
		return a.analyzeWhile(s, sc)

	case *ast.LoopStmt:
		a.analyzeLoop(s, sc)
		return Always

	case *ast.IfStmt:
		return a.analyzeIf(s, sc)

	case *ast.SwitchStmt:
		return a.analyzeSwitch(s, sc)

	case *ast.ReturnStmt:
		a.analyzeReturn(s, sc)
		return Always

	case *ast.AssignStmt:
		a.analyzeAssign(s, sc)
		return Never

	case *ast.ExprStmt:
		a.resolveExpr(s.Expr, sc)
		return Never

	default:
		return Never
	}
}

func (a *Analyzer) analyzeLet(s *ast.LetStmt, sc *scope.Scope) {
	sym, ok := sc.Lookup(s.Name)
	if !ok {
		return
	}
	if s.Value == nil {
		return
	}
	valType := a.resolveExpr(s.Value, sc)
	if valType.IsUnknown() {
		return
	}
	declared := sym.TypeInfo.Type
	if s.Declared == nil {
		// No annotation: infer the symbol's type from the initializer.
		sym.TypeInfo = types.NewTypeInfo(valType, a.typeTable.Intern(valType))
		if a.curFunc != nil && sym.LocalIndex < len(a.curFunc.LocalTypes) {
			a.curFunc.LocalTypes[sym.LocalIndex] = sym.TypeInfo
		}
		return
	}
	if !types.AssignCompatible(declared, valType) {
		a.errf(s.Span(), ErrLetTypeMismatch, "let %q declared %s but initializer is %s", s.Name, declared, valType)
	}
}

func (a *Analyzer) analyzeFor(s *ast.ForStmt, sc *scope.Scope) ReturnStatus {
	loopScope, ok := a.nodeScopes[s.ID()]
	if !ok {
		loopScope = sc
	}
	fromType := a.resolveExpr(s.From, sc)
	toType := a.resolveExpr(s.To, sc)
	wantInt := types.BasePrim(types.Int, false)
	if !fromType.IsUnknown() && !types.Compatible(wantInt, fromType) {
		a.errf(s.From.Span(), ErrForTypeMismatch, "for-loop start must be int, got %s", fromType)
	}
	if !toType.IsUnknown() && !types.Compatible(wantInt, toType) {
		a.errf(s.To.Span(), ErrForTypeMismatch, "for-loop end must be int, got %s", toType)
	}
	a.analyzeBlock(s.Body, loopScope)
	return Sometimes
}

func (a *Analyzer) analyzeWhile(s *ast.WhileStmt, sc *scope.Scope) ReturnStatus {
	loopScope, ok := a.nodeScopes[s.ID()]
	if !ok {
		loopScope = sc
	}
	condType := a.resolveExpr(s.Cond, sc)
	if !condType.IsUnknown() && !types.Compatible(types.BasePrim(types.Bool, false), condType) {
		a.errf(s.Cond.Span(), ErrWhileTypeMismatch, "while condition must be bool, got %s", condType)
	}
	a.analyzeBlock(s.Body, loopScope)
	return Sometimes
}

func (a *Analyzer) analyzeLoop(s *ast.LoopStmt, sc *scope.Scope) {
	loopScope, ok := a.nodeScopes[s.ID()]
	if !ok {
		loopScope = sc
	}
	a.analyzeBlock(s.Body, loopScope)
}

func (a *Analyzer) analyzeIf(s *ast.IfStmt, sc *scope.Scope) ReturnStatus {
	condType := a.resolveExpr(s.Cond, sc)
	if !condType.IsUnknown() && !types.Compatible(types.BasePrim(types.Bool, false), condType) {
		a.errf(s.Cond.Span(), ErrIfTypeMismatch, "if condition must be bool, got %s", condType)
	}
	thenStatus := a.analyzeBlock(s.Then, sc)
	if s.Else == nil {
		return thenStatus.Intersect(Never)
	}
	switch els := s.Else.(type) {
	case *ast.BlockStmt:
		return thenStatus.Intersect(a.analyzeBlock(els, sc))
	case *ast.IfStmt:
		return thenStatus.Intersect(a.analyzeStmt(els, sc))
	default:
		return thenStatus.Intersect(Never)
	}
}

func (a *Analyzer) analyzeSwitch(s *ast.SwitchStmt, sc *scope.Scope) ReturnStatus {
	subjectType := a.resolveExpr(s.Subject, sc)
	if len(s.Cases) == 0 {
		return Never
	}

	hasDefault := false
	var acc ReturnStatus
	first := true
	for _, c := range s.Cases {
		caseScope, ok := a.nodeScopes[c.ID()]
		if !ok {
			caseScope = sc
		}
		if c.IsDefault {
			hasDefault = true
		} else if c.Value != nil {
			valType := a.resolveExpr(c.Value, caseScope)
			if !subjectType.IsUnknown() && !valType.IsUnknown() && !types.Compatible(subjectType, valType) {
				a.errf(c.Value.Span(), ErrSwitchTypeMismatch, "case value %s incompatible with switch subject %s", valType, subjectType)
			}
		}
		var caseStatus ReturnStatus
		if c.Body != nil {
			caseStatus = a.analyzeStmt(c.Body, caseScope)
		}
		if first {
			acc = caseStatus
			first = false
		} else {
			acc = acc.Intersect(caseStatus)
		}
	}
	if !hasDefault {
		acc = acc.Intersect(Never)
	}
	return acc
}

func (a *Analyzer) analyzeReturn(s *ast.ReturnStmt, sc *scope.Scope) {
	if a.curFunc == nil {
		a.errf(s.Span(), ErrReturnNotInFunc, "return outside of a function")
		return
	}
	wanted := a.curFunc.ReturnType.Type
	if s.Value == nil {
		if !wanted.IsVoid() {
			a.errf(s.Span(), ErrReturnTypeMismatch, "bare return in function declared to return %s", wanted)
		}
		return
	}
	actual := a.resolveExpr(s.Value, sc)
	if actual.IsUnknown() {
		return
	}
	if !types.ReturnCompatible(wanted, actual) {
		a.errf(s.Value.Span(), ErrReturnTypeMismatch, "returning %s from a function declared to return %s", actual, wanted)
	}

	if borrow, ok := s.Value.(*ast.BorrowExpr); ok {
		if ident, ok := borrow.Target.(*ast.Identifier); ok {
			if sym, ok := sc.Lookup(ident.Name); ok && sym.ScopeDepth >= a.curFuncBodyDepth {
				a.errf(s.Span(), ErrReturnRefToLocal, "returning a borrow of local %q, which does not outlive the call", ident.Name)
			}
		}
	}
}

// lvalueInfo resolves an assignment/borrow target to the Symbol it
// ultimately names and the type a write through it must satisfy, along
// with whether that write site is mutable.
type lvalueInfo struct {
	sym      *scope.Symbol
	target   types.Type
	mutable  bool
	resolved bool
}

func (a *Analyzer) resolveLvalue(expr ast.Expression, sc *scope.Scope) lvalueInfo {
	switch e := expr.(type) {
	case *ast.Identifier:
		sym, ok := sc.Lookup(e.Name)
		if !ok {
			a.errf(e.Span(), ErrMissingSymbol, "undefined symbol %q", e.Name)
			return lvalueInfo{}
		}
		return lvalueInfo{sym: sym, target: sym.TypeInfo.Type, mutable: sym.IsMutableDecl(), resolved: true}

	case *ast.PrefixExpr:
		if e.Op != ast.PrefixStar {
			return lvalueInfo{}
		}
		innerType := a.resolveExpr(e.Right, sc)
		if !innerType.IsIndirection() {
			return lvalueInfo{}
		}
		return lvalueInfo{target: *innerType.Inner, mutable: innerType.Mutable, resolved: true}

	case *ast.BorrowExpr:
		innerType := a.resolveExpr(e, sc)
		if !innerType.IsRef() {
			return lvalueInfo{}
		}
		return lvalueInfo{target: *innerType.Inner, mutable: innerType.Mutable, resolved: true}

	default:
		return lvalueInfo{}
	}
}

var compoundToInfix = map[ast.AssignOp]ast.InfixOp{
	ast.AssignAdd: ast.OpAdd,
	ast.AssignSub: ast.OpSub,
	ast.AssignMul: ast.OpMul,
	ast.AssignDiv: ast.OpDiv,
}

func (a *Analyzer) analyzeAssign(s *ast.AssignStmt, sc *scope.Scope) {
	if !ast.IsLvalue(s.Target) {
		a.errf(s.Target.Span(), ErrAssignToRValue, "left-hand side of assignment is not an lvalue")
		return
	}
	lv := a.resolveLvalue(s.Target, sc)
	if !lv.resolved {
		return
	}
	if !lv.mutable {
		a.errf(s.Target.Span(), ErrAssignToConst, "cannot assign through an immutable binding")
	}
	if lv.sym != nil {
		lv.sym.Initialized = true
	}

	valType := a.resolveExpr(s.Value, sc)
	if valType.IsUnknown() {
		return
	}

	if s.Op == ast.AssignPlain {
		if !types.AssignCompatible(lv.target, valType) {
			a.errf(s.Span(), ErrAssignTypeMismatch, "cannot assign %s to %s", valType, lv.target)
		}
		return
	}
	iop := compoundToInfix[s.Op]
	result, err := resolve.Infix(iop, lv.target, valType)
	if err != nil {
		a.errf(s.Span(), ErrInfixTypeMismatch, "%s", err.Error())
		return
	}
	if !types.AssignCompatible(lv.target, result) {
		a.errf(s.Span(), ErrAssignTypeMismatch, "cannot assign %s to %s", result, lv.target)
	}
}
