package analyzer

import (
	"fmt"

	"github.com/Aiffelowy/harpy-sub000/internal/source"
)

// SemanticError is the compile-time error taxonomy the scope builder and
// analyzer raise: a stable code, a human message, and the span that
// provoked it.
type SemanticError struct {
	Code string
	Msg  string
	Span source.Span
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("%s: %s (at %s)", e.Code, e.Msg, e.Span)
}

func newErr(span source.Span, code, format string, args ...interface{}) *SemanticError {
	return &SemanticError{Code: code, Msg: fmt.Sprintf(format, args...), Span: span}
}

// The enumerated SemanticError codes, named exactly as spec.md §7 lists
// them, used as the Code field of every error this package raises.
const (
	ErrDuplicateSymbol                           = "DuplicateSymbol"
	ErrMissingSymbol                              = "MissingSymbol"
	ErrNotAFunc                                   = "NotAFunc"
	ErrArgCountMismatch                           = "ArgCountMismatch"
	ErrArgTypeMismatch                            = "ArgTypeMismatch"
	ErrPrefixTypeMismatch                         = "PrefixTypeMismatch"
	ErrInfixTypeMismatch                          = "InfixTypeMismatch"
	ErrLetTypeMismatch                            = "LetTypeMismatch"
	ErrForTypeMismatch                            = "ForTypeMismatch"
	ErrWhileTypeMismatch                          = "WhileTypeMismatch"
	ErrIfTypeMismatch                             = "IfTypeMismatch"
	ErrReturnTypeMismatch                         = "ReturnTypeMismatch"
	ErrAssignTypeMismatch                         = "AssignTypeMismatch"
	ErrSwitchTypeMismatch                         = "SwitchTypeMismatch"
	ErrAssignToConst                              = "AssignToConst"
	ErrAssignToRValue                             = "AssignToRValue"
	ErrUninitializedVar                           = "UninitializedVar"
	ErrCantInferType                              = "CantInferType"
	ErrMissingMain                                = "MissingMain"
	ErrUnresolvedType                             = "UnresolvedType"
	ErrPointerToRef                               = "PointerToRef"
	ErrLifetimeMismatch                           = "LifetimeMismatch"
	ErrReturnRefToLocal                           = "ReturnRefToLocal"
	ErrNotAllPathsReturn                          = "NotAllPathsReturn"
	ErrCreatedMutableBorrowWhileImmutableBorrow   = "CreatedMutableBorrowWhileImmutableBorrow"
	ErrAlreadyMutablyBorrowed                     = "AlreadyMutablyBorrowed"
	ErrInvalidBorrow                              = "InvalidBorrow"
	ErrInvalidVarBorrow                           = "InvalidVarBorrow"
	ErrBorrowMutNonMutable                        = "BorrowMutNonMutable"
	ErrReturnNotInFunc                            = "ReturnNotInFunc"
)
