// Package resolve implements the per-operator type rules the semantic
// analyzer delegates to: what a prefix/infix operator yields given its
// operand types, independent of any particular AST node or scope.
//
// Grounded on funxy's internal/analyzer/constraints.go, which keeps
// operator typing rules (numeric promotion, comparison result types) in
// their own small functions apart from the statement/expression walker;
// harpy's structural type system has no numeric promotion, so each rule
// here is an exact-match table rather than funxy's widening logic.
package resolve

import (
	"fmt"

	"github.com/Aiffelowy/harpy-sub000/internal/ast"
	"github.com/Aiffelowy/harpy-sub000/internal/types"
)

// Error is a PrefixTypeMismatch/InfixTypeMismatch, carrying only a
// human-readable message for the caller to attach a span/code to.
type Error struct {
	Msg string
}

func (e *Error) Error() string { return e.Msg }

func mismatch(format string, args ...interface{}) error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}

// Prefix resolves `+ - ! *` applied to operand.
func Prefix(op ast.PrefixOp, operand types.Type) (types.Type, error) {
	switch op {
	case ast.PrefixPlus, ast.PrefixMinus:
		if operand.IsPrimitiveBase() && (operand.Base.Primitive == types.Int || operand.Base.Primitive == types.Float) {
			return operand, nil
		}
		return types.Unknown(), mismatch("unary %s requires int or float, got %s", prefixName(op), operand)
	case ast.PrefixNot:
		if operand.IsPrimitiveBase() && operand.Base.Primitive == types.Bool {
			return operand, nil
		}
		return types.Unknown(), mismatch("unary ! requires bool, got %s", operand)
	case ast.PrefixStar:
		if operand.IsIndirection() {
			return *operand.Inner, nil
		}
		return types.Unknown(), mismatch("unary * requires boxed or ref, got %s", operand)
	default:
		return types.Unknown(), mismatch("unknown prefix operator")
	}
}

func prefixName(op ast.PrefixOp) string {
	if op == ast.PrefixPlus {
		return "+"
	}
	return "-"
}

var arithmetic = map[ast.InfixOp]bool{ast.OpAdd: true, ast.OpSub: true, ast.OpMul: true, ast.OpDiv: true}
var ordered = map[ast.InfixOp]bool{ast.OpLt: true, ast.OpLte: true, ast.OpGt: true, ast.OpGte: true}
var equality = map[ast.InfixOp]bool{ast.OpEq: true, ast.OpNeq: true}
var logical = map[ast.InfixOp]bool{ast.OpAnd: true, ast.OpOr: true}

// Infix resolves a binary operator given both operand types. Both
// operands must be primitive (never Boxed/Ref).
func Infix(op ast.InfixOp, left, right types.Type) (types.Type, error) {
	if !left.IsPrimitiveBase() || !right.IsPrimitiveBase() {
		return types.Unknown(), mismatch("operator requires primitive operands, got %s and %s", left, right)
	}
	switch {
	case arithmetic[op]:
		if left.Base.Primitive == types.Int && right.Base.Primitive == types.Int {
			return types.BasePrim(types.Int, false), nil
		}
		if left.Base.Primitive == types.Float && right.Base.Primitive == types.Float {
			return types.BasePrim(types.Float, false), nil
		}
		return types.Unknown(), mismatch("arithmetic operator requires int x int or float x float, got %s and %s", left, right)
	case ordered[op], equality[op]:
		if left.Base.Primitive == types.Int && right.Base.Primitive == types.Int {
			return types.BasePrim(types.Bool, false), nil
		}
		if left.Base.Primitive == types.Float && right.Base.Primitive == types.Float {
			return types.BasePrim(types.Bool, false), nil
		}
		return types.Unknown(), mismatch("comparison requires int x int or float x float, got %s and %s", left, right)
	case logical[op]:
		if left.Base.Primitive == types.Bool && right.Base.Primitive == types.Bool {
			return types.BasePrim(types.Bool, false), nil
		}
		return types.Unknown(), mismatch("logical operator requires bool x bool, got %s and %s", left, right)
	default:
		return types.Unknown(), mismatch("unknown infix operator")
	}
}
