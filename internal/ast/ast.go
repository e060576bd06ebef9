// Package ast defines harpy's typed AST node tree. Every node carries a
// process-unique NodeId (the stable key every side-table in the analyzer
// and tables packages is built around) and a source span.
//
// The interface shape (Node/Statement/Expression, one struct per node
// kind) mirrors funxy's internal/ast package, but traversal dispatches
// via a type switch at each walker (scope builder, analyzer, code
// generator) rather than funxy's Accept(Visitor) double dispatch — the
// tagged-sum-plus-switch shape spec.md §9's design notes call out as the
// natural mapping for "dynamic dispatch over AST nodes", and the same
// style funxy's own evaluator.Eval(node, env) tree-walker uses.
package ast

import (
	"github.com/google/uuid"

	"github.com/Aiffelowy/harpy-sub000/internal/source"
	"github.com/Aiffelowy/harpy-sub000/internal/types"
)

// NodeId is a process-unique opaque handle assigned by the parser to
// every AST node; it is the stable key for every side-table (symbol
// table, tables.TypeTable call-site map, runtime-conversion caches, …).
type NodeId uuid.UUID

func NewNodeId() NodeId { return NodeId(uuid.New()) }

func (id NodeId) String() string { return uuid.UUID(id).String() }

// Node is the base interface every AST node satisfies.
type Node interface {
	ID() NodeId
	Span() source.Span
}

// Statement is a Node that appears where statements are expected.
type Statement interface {
	Node
	statementNode()
}

// Expression is a Node that appears where expressions are expected.
type Expression interface {
	Node
	expressionNode()
}

// base is embedded by every node to provide ID()/Span() without
// boilerplate in each node literal.
type base struct {
	id  NodeId
	spn source.Span
}

func newBase(span source.Span) base {
	return base{id: NewNodeId(), spn: span}
}

func (b base) ID() NodeId        { return b.id }
func (b base) Span() source.Span { return b.spn }

// ---- Program & declarations -------------------------------------------------

type Program struct {
	base
	Globals   []*GlobalStmt
	Functions []*FuncDecl
}

func NewProgram(span source.Span) *Program { return &Program{base: newBase(span)} }

type Param struct {
	base
	Name string
	Type types.Type
}

func NewParam(span source.Span, name string, t types.Type) *Param {
	return &Param{base: newBase(span), Name: name, Type: t}
}

type FuncDecl struct {
	base
	Name       string
	Params     []*Param
	ReturnType types.Type
	Body       *BlockStmt
}

func NewFuncDecl(span source.Span, name string, params []*Param, ret types.Type, body *BlockStmt) *FuncDecl {
	return &FuncDecl{base: newBase(span), Name: name, Params: params, ReturnType: ret, Body: body}
}
func (f *FuncDecl) statementNode()   {}

// ---- Statements --------------------------------------------------------------

type BlockStmt struct {
	base
	Statements []Statement
}

func NewBlockStmt(span source.Span, stmts []Statement) *BlockStmt {
	return &BlockStmt{base: newBase(span), Statements: stmts}
}
func (b *BlockStmt) statementNode()   {}

type LetStmt struct {
	base
	Name        string
	Declared    *types.Type // nil if no annotation
	Value       Expression  // nil if no initializer
	Mutable     bool
}

func NewLetStmt(span source.Span, name string, declared *types.Type, value Expression, mutable bool) *LetStmt {
	return &LetStmt{base: newBase(span), Name: name, Declared: declared, Value: value, Mutable: mutable}
}
func (s *LetStmt) statementNode()   {}

type GlobalStmt struct {
	base
	Name     string
	Declared types.Type
	Value    Expression
	Mutable  bool
}

func NewGlobalStmt(span source.Span, name string, declared types.Type, value Expression, mutable bool) *GlobalStmt {
	return &GlobalStmt{base: newBase(span), Name: name, Declared: declared, Value: value, Mutable: mutable}
}
func (s *GlobalStmt) statementNode()   {}

type ForStmt struct {
	base
	Var   string
	From  Expression
	To    Expression
	Body  *BlockStmt
}

func NewForStmt(span source.Span, v string, from, to Expression, body *BlockStmt) *ForStmt {
	return &ForStmt{base: newBase(span), Var: v, From: from, To: to, Body: body}
}
func (s *ForStmt) statementNode()   {}

type WhileStmt struct {
	base
	Cond Expression
	Body *BlockStmt
}

func NewWhileStmt(span source.Span, cond Expression, body *BlockStmt) *WhileStmt {
	return &WhileStmt{base: newBase(span), Cond: cond, Body: body}
}
func (s *WhileStmt) statementNode()   {}

type LoopStmt struct {
	base
	Body *BlockStmt
}

func NewLoopStmt(span source.Span, body *BlockStmt) *LoopStmt {
	return &LoopStmt{base: newBase(span), Body: body}
}
func (s *LoopStmt) statementNode()   {}

type IfStmt struct {
	base
	Cond Expression
	Then *BlockStmt
	Else Statement // *BlockStmt or *IfStmt (else if), nil if absent
}

func NewIfStmt(span source.Span, cond Expression, then *BlockStmt, els Statement) *IfStmt {
	return &IfStmt{base: newBase(span), Cond: cond, Then: then, Else: els}
}
func (s *IfStmt) statementNode()   {}

// SwitchCase is one `value -> stmt` arm, or the default arm (`. -> stmt`)
// when IsDefault is true (Value is nil in that case).
type SwitchCase struct {
	base
	Value     Expression
	IsDefault bool
	Body      Statement
}

func NewSwitchCase(span source.Span, value Expression, isDefault bool, body Statement) *SwitchCase {
	return &SwitchCase{base: newBase(span), Value: value, IsDefault: isDefault, Body: body}
}

type SwitchStmt struct {
	base
	Subject Expression
	Cases   []*SwitchCase
}

func NewSwitchStmt(span source.Span, subject Expression, cases []*SwitchCase) *SwitchStmt {
	return &SwitchStmt{base: newBase(span), Subject: subject, Cases: cases}
}
func (s *SwitchStmt) statementNode()   {}

type ReturnStmt struct {
	base
	Value Expression // nil for bare `return`
}

func NewReturnStmt(span source.Span, value Expression) *ReturnStmt {
	return &ReturnStmt{base: newBase(span), Value: value}
}
func (s *ReturnStmt) statementNode()   {}

// AssignOp identifies a plain `=` or a compound `+= -= *= /=` assignment.
type AssignOp int

const (
	AssignPlain AssignOp = iota
	AssignAdd
	AssignSub
	AssignMul
	AssignDiv
)

type AssignStmt struct {
	base
	Target Expression // lvalue: Identifier, PrefixExpr{Star}, or BorrowExpr
	Op     AssignOp
	Value  Expression
}

func NewAssignStmt(span source.Span, target Expression, op AssignOp, value Expression) *AssignStmt {
	return &AssignStmt{base: newBase(span), Target: target, Op: op, Value: value}
}
func (s *AssignStmt) statementNode()   {}

// ExprStmt wraps an expression evaluated for side effects (e.g. a call).
type ExprStmt struct {
	base
	Expr Expression
}

func NewExprStmt(span source.Span, expr Expression) *ExprStmt {
	return &ExprStmt{base: newBase(span), Expr: expr}
}
func (s *ExprStmt) statementNode()   {}

// ---- Expressions --------------------------------------------------------------

type Identifier struct {
	base
	Name string
}

func NewIdentifier(span source.Span, name string) *Identifier {
	return &Identifier{base: newBase(span), Name: name}
}
func (e *Identifier) expressionNode()  {}

type IntLiteral struct {
	base
	Value int64
}

func NewIntLiteral(span source.Span, v int64) *IntLiteral {
	return &IntLiteral{base: newBase(span), Value: v}
}
func (e *IntLiteral) expressionNode()  {}

type FloatLiteral struct {
	base
	Value float64
}

func NewFloatLiteral(span source.Span, v float64) *FloatLiteral {
	return &FloatLiteral{base: newBase(span), Value: v}
}
func (e *FloatLiteral) expressionNode()  {}

type BoolLiteral struct {
	base
	Value bool
}

func NewBoolLiteral(span source.Span, v bool) *BoolLiteral {
	return &BoolLiteral{base: newBase(span), Value: v}
}
func (e *BoolLiteral) expressionNode()  {}

type StringLiteral struct {
	base
	Value string
}

func NewStringLiteral(span source.Span, v string) *StringLiteral {
	return &StringLiteral{base: newBase(span), Value: v}
}
func (e *StringLiteral) expressionNode()  {}

type CallExpr struct {
	base
	Callee *Identifier
	Args   []Expression
}

func NewCallExpr(span source.Span, callee *Identifier, args []Expression) *CallExpr {
	return &CallExpr{base: newBase(span), Callee: callee, Args: args}
}
func (e *CallExpr) expressionNode()  {}

// PrefixOp identifies a unary prefix operator.
type PrefixOp int

const (
	PrefixPlus PrefixOp = iota
	PrefixMinus
	PrefixNot
	PrefixStar // deref
)

type PrefixExpr struct {
	base
	Op    PrefixOp
	Right Expression
}

func NewPrefixExpr(span source.Span, op PrefixOp, right Expression) *PrefixExpr {
	return &PrefixExpr{base: newBase(span), Op: op, Right: right}
}
func (e *PrefixExpr) expressionNode()  {}

// InfixOp identifies a binary infix operator.
type InfixOp int

const (
	OpAdd InfixOp = iota
	OpSub
	OpMul
	OpDiv
	OpLt
	OpLte
	OpGt
	OpGte
	OpEq
	OpNeq
	OpAnd
	OpOr
)

type InfixExpr struct {
	base
	Op    InfixOp
	Left  Expression
	Right Expression
}

func NewInfixExpr(span source.Span, op InfixOp, left, right Expression) *InfixExpr {
	return &InfixExpr{base: newBase(span), Op: op, Left: left, Right: right}
}
func (e *InfixExpr) expressionNode()  {}

// BorrowExpr is `&target` / `&mut target`.
type BorrowExpr struct {
	base
	Target  Expression
	Mutable bool
}

func NewBorrowExpr(span source.Span, target Expression, mutable bool) *BorrowExpr {
	return &BorrowExpr{base: newBase(span), Target: target, Mutable: mutable}
}
func (e *BorrowExpr) expressionNode()  {}

// BoxExpr is `box expr`: heap-allocate and initialize.
type BoxExpr struct {
	base
	Value Expression
}

func NewBoxExpr(span source.Span, value Expression) *BoxExpr {
	return &BoxExpr{base: newBase(span), Value: value}
}
func (e *BoxExpr) expressionNode()  {}
