// Package codegen walks an analyzed AST and emits harpy's bytecode: a
// buffer of instructions and symbolic labels, measured and resolved to
// byte offsets in a second scan, exactly as spec.md §4.4 prescribes.
//
// Grounded on funxy's internal/vm/compiler.go and compiler_statements.go
// for the overall "walk the AST, append instructions to a Chunk" shape,
// generalized to harpy's two-pass label scheme (spec.md §4.4 resolves
// symbolic labels in a dedicated second scan rather than funxy's
// backpatch-by-remembered-offset approach, because harpy's emission
// contracts are specified in terms of named labels).
package codegen

import (
	"encoding/binary"
	"fmt"

	"github.com/Aiffelowy/harpy-sub000/internal/analyzer"
	"github.com/Aiffelowy/harpy-sub000/internal/ast"
	"github.com/Aiffelowy/harpy-sub000/internal/bytecode"
	"github.com/Aiffelowy/harpy-sub000/internal/scope"
	"github.com/Aiffelowy/harpy-sub000/internal/tables"
	"github.com/Aiffelowy/harpy-sub000/internal/types"
)

// label is a symbolic jump target created during emission; its byte
// offset is unknown until the whole buffer has been measured.
type label int

// node is one entry of the emission buffer: either a concrete
// instruction, a jump whose operand is a not-yet-resolved label, or a
// label definition marking "here" for some earlier/later jump.
type node struct {
	op       bytecode.Opcode
	operand  int64 // valid when kind == nodeInstr
	target   label // valid when kind == nodeJump
	labelDef label // valid when kind == nodeLabel
	kind     nodeKind
}

type nodeKind int

const (
	nodeInstr nodeKind = iota
	nodeJump
	nodeLabel
)

// Program is the generator's output: the fully resolved bytecode
// stream and every function's entry offset within it, keyed by
// FunctionTable index — exactly what the image writer needs to fill in
// each function-table entry's code_offset (spec.md §6).
type Program struct {
	Code        []byte
	FuncOffsets map[int]int
}

// Generator walks the AST once, using the scope tree the analyzer built
// (for local slot indices and global addresses) and the function/
// global tables it populated (for call targets and addresses).
type Generator struct {
	built     *analyzer.BuildResult
	funcs     *tables.FunctionTable
	globals   *tables.GlobalTable
	consts    *tables.ConstPool
	exprTypes map[ast.NodeId]types.Type
	rtt       *tables.RuntimeTypeTable

	buf        []node
	nextLabel  label
	funcLabels map[int]label
	err        error
}

// Generate compiles prog into a Program. result must come from a
// successful analyzer.Analyze run over the same prog, and rtt from the
// tables.ConvertToRuntime pass run over result's tables — codegen does
// not re-check types or re-resolve symbols, it only reads what analysis
// already recorded, and it resolves BOX_ALLOC's type operand against
// rtt directly so it indexes the very table the image writer embeds.
func Generate(prog *ast.Program, result *analyzer.Result, rtt *tables.RuntimeTypeTable) (*Program, error) {
	g := &Generator{
		built:      result.Scopes,
		funcs:      result.Scopes.Funcs,
		globals:    result.Scopes.Globals,
		consts:     result.Consts,
		exprTypes:  result.ExprTypes,
		rtt:        rtt,
		funcLabels: make(map[int]label),
	}

	for _, gl := range prog.Globals {
		g.emitGlobalInit(gl)
	}

	if g.funcs.MainID == nil {
		return nil, fmt.Errorf("codegen: no main function (runtime-conversion should have caught this)")
	}
	mainIdx := *g.funcs.MainID
	g.emitCall(mainIdx)
	g.emit(bytecode.HALT)

	for _, f := range prog.Functions {
		idx, ok := g.funcs.Lookup(f.Name)
		if !ok {
			continue
		}
		lbl := g.newLabel()
		g.funcLabels[idx] = lbl
		g.place(lbl)
		g.emitFunc(f)
	}

	if g.err != nil {
		return nil, g.err
	}

	code, funcOffsets, err := g.resolve()
	if err != nil {
		return nil, err
	}
	return &Program{Code: code, FuncOffsets: funcOffsets}, nil
}

func (g *Generator) newLabel() label {
	l := g.nextLabel
	g.nextLabel++
	return l
}

func (g *Generator) place(l label) {
	g.buf = append(g.buf, node{kind: nodeLabel, labelDef: l})
}

func (g *Generator) emit(op bytecode.Opcode) {
	g.buf = append(g.buf, node{kind: nodeInstr, op: op})
}

func (g *Generator) emitImm(op bytecode.Opcode, operand int64) {
	g.buf = append(g.buf, node{kind: nodeInstr, op: op, operand: operand})
}

func (g *Generator) emitJump(op bytecode.Opcode, target label) {
	g.buf = append(g.buf, node{kind: nodeJump, op: op, target: target})
}

func (g *Generator) emitCall(funcIdx int) {
	g.emitImm(bytecode.CALL, int64(funcIdx))
}

func (g *Generator) emitFunc(f *ast.FuncDecl) {
	sc, ok := g.built.NodeScopes[f.ID()]
	if !ok {
		sc = g.built.Root
	}
	g.emitBlock(f.Body, sc)
	g.emit(bytecode.RET)
}

func (g *Generator) emitGlobalInit(gl *ast.GlobalStmt) {
	entry, ok := g.globals.Lookup(gl.Name)
	if !ok {
		return
	}
	g.emitExpr(gl.Value, g.built.Root)
	g.emitImm(bytecode.STORE_GLOBAL, int64(entry.Address))
}

// emitBlock emits every statement of block in order (spec.md §4.4's
// BlockStmt contract), resolving block's own scope rather than trusting
// the caller's: the scope builder records one for every BlockStmt it
// visits (function bodies, loop/if/switch bodies alike), so a block
// always knows its own scope once pass 1 has run.
func (g *Generator) emitBlock(block *ast.BlockStmt, fallback *scope.Scope) {
	sc, ok := g.built.NodeScopes[block.ID()]
	if !ok {
		sc = fallback
	}
	for _, stmt := range block.Statements {
		g.emitStmt(stmt, sc)
	}
}

func (g *Generator) emitStmt(stmt ast.Statement, sc *scope.Scope) {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		g.emitLet(s, sc)

	case *ast.GlobalStmt:
		g.emitGlobalInit(s)

	case *ast.BlockStmt:
		g.emitBlock(s, sc)

	case *ast.ForStmt:
		g.emitFor(s, sc)

	case *ast.WhileStmt:
		g.emitWhile(s, sc)

	case *ast.LoopStmt:
		g.emitLoop(s, sc)

	case *ast.IfStmt:
		g.emitIf(s, sc)

	case *ast.SwitchStmt:
		g.emitSwitch(s, sc)

	case *ast.ReturnStmt:
		g.emitReturn(s, sc)

	case *ast.AssignStmt:
		g.emitAssign(s, sc)

	case *ast.ExprStmt:
		g.emitExpr(s.Expr, sc)
		g.emit(bytecode.POP)
	}
}

func (g *Generator) emitLet(s *ast.LetStmt, sc *scope.Scope) {
	if s.Value == nil {
		return
	}
	sym, ok := sc.Lookup(s.Name)
	if !ok {
		return
	}
	g.emitExpr(s.Value, sc)
	g.emitImm(bytecode.STORE_LOCAL, int64(sym.LocalIndex))
}

// emitFor follows spec.md §4.4's literal contract: the bound expression
// b is re-emitted at the top of the loop (not cached into a local), so
// it is re-evaluated on every iteration.
func (g *Generator) emitFor(s *ast.ForStmt, sc *scope.Scope) {
	loopScope, ok := g.built.NodeScopes[s.ID()]
	if !ok {
		loopScope = sc
	}
	iSym, _ := loopScope.Lookup(s.Var)

	g.emitExpr(s.From, sc)
	g.emitImm(bytecode.STORE_LOCAL, int64(iSym.LocalIndex))

	lStart := g.newLabel()
	lEnd := g.newLabel()
	g.place(lStart)
	g.emitImm(bytecode.LOAD_LOCAL, int64(iSym.LocalIndex))
	g.emitExpr(s.To, sc)
	g.emit(bytecode.LT)
	g.emitJump(bytecode.JMP_IF_FALSE, lEnd)

	g.emitBlock(s.Body, loopScope)

	g.emitImm(bytecode.LOAD_LOCAL, int64(iSym.LocalIndex))
	g.emit(bytecode.INC)
	g.emitImm(bytecode.STORE_LOCAL, int64(iSym.LocalIndex))
	g.emitJump(bytecode.JMP, lStart)
	g.place(lEnd)
}

func (g *Generator) emitWhile(s *ast.WhileStmt, sc *scope.Scope) {
	loopScope, ok := g.built.NodeScopes[s.ID()]
	if !ok {
		loopScope = sc
	}
	lStart := g.newLabel()
	lEnd := g.newLabel()
	g.place(lStart)
	g.emitExpr(s.Cond, sc)
	g.emitJump(bytecode.JMP_IF_FALSE, lEnd)
	g.emitBlock(s.Body, loopScope)
	g.emitJump(bytecode.JMP, lStart)
	g.place(lEnd)
}

func (g *Generator) emitLoop(s *ast.LoopStmt, sc *scope.Scope) {
	loopScope, ok := g.built.NodeScopes[s.ID()]
	if !ok {
		loopScope = sc
	}
	lStart := g.newLabel()
	g.place(lStart)
	g.emitBlock(s.Body, loopScope)
	g.emitJump(bytecode.JMP, lStart)
}

func (g *Generator) emitIf(s *ast.IfStmt, sc *scope.Scope) {
	lEnd := g.newLabel()
	g.emitExpr(s.Cond, sc)

	if s.Else == nil {
		g.emitJump(bytecode.JMP_IF_FALSE, lEnd)
		g.emitBlock(s.Then, sc)
		g.place(lEnd)
		return
	}

	lElse := g.newLabel()
	g.emitJump(bytecode.JMP_IF_FALSE, lElse)
	g.emitBlock(s.Then, sc)
	g.emitJump(bytecode.JMP, lEnd)
	g.place(lElse)
	switch els := s.Else.(type) {
	case *ast.BlockStmt:
		g.emitBlock(els, sc)
	case *ast.IfStmt:
		g.emitStmt(els, sc)
	}
	g.place(lEnd)
}

func (g *Generator) emitSwitch(s *ast.SwitchStmt, sc *scope.Scope) {
	g.emitExpr(s.Subject, sc)

	if len(s.Cases) == 0 {
		g.emit(bytecode.POP)
		return
	}

	lEnd := g.newLabel()
	armLabels := make([]label, len(s.Cases))
	var defaultLabel label
	hasDefault := false
	for i, c := range s.Cases {
		armLabels[i] = g.newLabel()
		if c.IsDefault {
			hasDefault = true
			defaultLabel = armLabels[i]
		}
	}

	for i, c := range s.Cases {
		if c.IsDefault {
			continue
		}
		caseScope := g.caseScope(c, sc)
		g.emit(bytecode.DUP)
		g.emitExpr(c.Value, caseScope)
		g.emit(bytecode.EQ)
		g.emitJump(bytecode.JMP_IF_TRUE, armLabels[i])
	}

	if hasDefault {
		g.emitJump(bytecode.JMP, defaultLabel)
	} else {
		g.emit(bytecode.POP)
		g.emitJump(bytecode.JMP, lEnd)
	}

	for i, c := range s.Cases {
		g.place(armLabels[i])
		g.emit(bytecode.POP)
		if c.Body != nil {
			g.emitStmt(c.Body, g.caseScope(c, sc))
		}
		g.emitJump(bytecode.JMP, lEnd)
	}
	g.place(lEnd)
}

func (g *Generator) caseScope(c *ast.SwitchCase, fallback *scope.Scope) *scope.Scope {
	if sc, ok := g.built.NodeScopes[c.ID()]; ok {
		return sc
	}
	return fallback
}

func (g *Generator) emitReturn(s *ast.ReturnStmt, sc *scope.Scope) {
	if s.Value != nil {
		g.emitExpr(s.Value, sc)
	} else {
		g.emitImm(bytecode.LOAD_CONST, int64(g.consts.Intern(tables.Literal{Kind: tables.LitVoid})))
	}
	g.emit(bytecode.RET)
}

var compoundOp = map[ast.AssignOp]bytecode.Opcode{
	ast.AssignAdd: bytecode.ADD,
	ast.AssignSub: bytecode.SUB,
	ast.AssignMul: bytecode.MUL,
	ast.AssignDiv: bytecode.DIV,
}

// emitAssign handles every lvalue shape ast.IsLvalue accepts. Plain
// identifiers store directly into their slot (the same idiom
// LetStmt/GlobalStmt use); dereferences and borrow targets go through
// an address computed once and reused for both the read half of a
// compound op and the final STORE.
func (g *Generator) emitAssign(s *ast.AssignStmt, sc *scope.Scope) {
	if ident, ok := s.Target.(*ast.Identifier); ok {
		it := g.resolveIdent(ident.Name, sc)
		loadOp, storeOp := bytecode.LOAD_LOCAL, bytecode.STORE_LOCAL
		idx := it.local
		if it.isGlobal {
			loadOp, storeOp = bytecode.LOAD_GLOBAL, bytecode.STORE_GLOBAL
			idx = it.global
		}
		if s.Op == ast.AssignPlain {
			g.emitExpr(s.Value, sc)
		} else {
			g.emitImm(loadOp, int64(idx))
			g.emitExpr(s.Value, sc)
			g.emit(compoundOp[s.Op])
		}
		g.emitImm(storeOp, int64(idx))
		return
	}

	// Dereference (*p = v) or borrow-expression target: compute the
	// address once, reuse it for the optional read and the final write.
	if s.Op == ast.AssignPlain {
		g.emitBorrowAddress(s.Target, sc)
		g.emitExpr(s.Value, sc)
		g.emit(bytecode.STORE)
		return
	}
	g.emitBorrowAddress(s.Target, sc)
	g.emit(bytecode.DUP)
	g.emit(bytecode.LOAD)
	g.emitExpr(s.Value, sc)
	g.emit(compoundOp[s.Op])
	g.emit(bytecode.STORE)
}

func (g *Generator) emitExpr(expr ast.Expression, sc *scope.Scope) {
	switch e := expr.(type) {
	case *ast.Identifier:
		it := g.resolveIdent(e.Name, sc)
		if it.isGlobal {
			g.emitImm(bytecode.LOAD_GLOBAL, int64(it.global))
		} else {
			g.emitImm(bytecode.LOAD_LOCAL, int64(it.local))
		}

	case *ast.IntLiteral:
		g.emitImm(bytecode.LOAD_CONST, int64(g.consts.Intern(tables.IntLiteral(e.Value))))

	case *ast.FloatLiteral:
		g.emitImm(bytecode.LOAD_CONST, int64(g.consts.Intern(tables.FloatLiteral(e.Value))))

	case *ast.BoolLiteral:
		g.emitImm(bytecode.LOAD_CONST, int64(g.consts.Intern(tables.BoolLiteral(e.Value))))

	case *ast.StringLiteral:
		g.emitImm(bytecode.LOAD_CONST, int64(g.consts.Intern(tables.StrLiteral(e.Value))))

	case *ast.CallExpr:
		for _, arg := range e.Args {
			g.emitExpr(arg, sc)
		}
		funcIdx, _ := g.funcs.CallSiteFunc(e.ID())
		g.emitCall(funcIdx)

	case *ast.PrefixExpr:
		g.emitPrefix(e, sc)

	case *ast.InfixExpr:
		g.emitExpr(e.Left, sc)
		g.emitExpr(e.Right, sc)
		g.emit(infixOpcode[e.Op])

	case *ast.BorrowExpr:
		g.emitBorrowAddress(e.Target, sc)

	case *ast.BoxExpr:
		g.emitBox(e, sc)
	}
}

func (g *Generator) emitPrefix(e *ast.PrefixExpr, sc *scope.Scope) {
	switch e.Op {
	case ast.PrefixPlus:
		g.emitExpr(e.Right, sc)
	case ast.PrefixMinus:
		g.emitExpr(e.Right, sc)
		g.emit(bytecode.NEG)
	case ast.PrefixNot:
		g.emitExpr(e.Right, sc)
		g.emit(bytecode.NOT)
	case ast.PrefixStar:
		g.emitExpr(e.Right, sc)
		g.emit(bytecode.LOAD)
	}
}

var infixOpcode = map[ast.InfixOp]bytecode.Opcode{
	ast.OpAdd: bytecode.ADD,
	ast.OpSub: bytecode.SUB,
	ast.OpMul: bytecode.MUL,
	ast.OpDiv: bytecode.DIV,
	ast.OpLt:  bytecode.LT,
	ast.OpLte: bytecode.LTE,
	ast.OpGt:  bytecode.GT,
	ast.OpGte: bytecode.GTE,
	ast.OpEq:  bytecode.EQ,
	ast.OpNeq: bytecode.NEQ,
	ast.OpAnd: bytecode.AND,
	ast.OpOr:  bytecode.OR,
}

// emitBorrowAddress pushes the address a borrow or an assignment
// through a dereference should read/write: PUSH_ADDR_LOCAL/GLOBAL for
// a plain identifier, or — for `&*p` and nested borrows — simply the
// already-address-shaped value `p` evaluates to, since a Pointer/Ref
// VmValue already serves LOAD/STORE directly.
func (g *Generator) emitBorrowAddress(target ast.Expression, sc *scope.Scope) {
	switch t := target.(type) {
	case *ast.Identifier:
		it := g.resolveIdent(t.Name, sc)
		if it.isGlobal {
			g.emitImm(bytecode.PUSH_ADDR_GLOBAL, int64(it.global))
		} else {
			g.emitImm(bytecode.PUSH_ADDR_LOCAL, int64(it.local))
		}
	case *ast.PrefixExpr:
		if t.Op == ast.PrefixStar {
			g.emitExpr(t.Right, sc)
			return
		}
		g.emitExpr(t, sc)
	case *ast.BorrowExpr:
		g.emitBorrowAddress(t.Target, sc)
	default:
		g.emitExpr(target, sc)
	}
}

// emitBox resolves the Open Question recorded in DESIGN.md: `box e`
// allocates storage sized for e's static type, duplicates the fresh
// pointer so one copy survives STORE as the expression's value, then
// evaluates and writes e.
func (g *Generator) emitBox(e *ast.BoxExpr, sc *scope.Scope) {
	innerType, ok := g.exprTypes[e.Value.ID()]
	if !ok {
		innerType = types.Unknown()
	}
	idx, err := g.rtt.InternType(innerType, e.Span(), "boxed value")
	if err != nil {
		if g.err == nil {
			g.err = err
		}
		return
	}
	g.emitImm(bytecode.BOX_ALLOC, int64(idx))
	g.emit(bytecode.DUP)
	g.emitExpr(e.Value, sc)
	g.emit(bytecode.STORE)
}

// resolve is the two-pass label fixup: pass one measures every node's
// byte size to locate each label's offset, pass two writes the final
// buffer with jump operands substituted by those offsets.
func (g *Generator) resolve() ([]byte, map[int]int, error) {
	offsets := make(map[label]int)
	pos := 0
	for _, n := range g.buf {
		switch n.kind {
		case nodeLabel:
			offsets[n.labelDef] = pos
		case nodeInstr:
			pos += 1 + n.op.OperandSize()
		case nodeJump:
			pos += 1 + n.op.OperandSize()
		}
	}

	code := make([]byte, 0, pos)
	for _, n := range g.buf {
		switch n.kind {
		case nodeLabel:
			continue
		case nodeInstr:
			code = append(code, byte(n.op))
			code = appendOperand(code, n.op.OperandSize(), n.operand)
		case nodeJump:
			target, ok := offsets[n.target]
			if !ok {
				return nil, nil, fmt.Errorf("codegen: unresolved label in %s", n.op)
			}
			code = append(code, byte(n.op))
			code = appendOperand(code, n.op.OperandSize(), int64(target))
		}
	}

	funcOffsets := make(map[int]int, len(g.funcLabels))
	for idx, lbl := range g.funcLabels {
		funcOffsets[idx] = offsets[lbl]
	}
	return code, funcOffsets, nil
}

func appendOperand(code []byte, size int, value int64) []byte {
	switch size {
	case 0:
		return code
	case 2:
		var b [2]byte
		binary.BigEndian.PutUint16(b[:], uint16(value))
		return append(code, b[:]...)
	case 4:
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(value))
		return append(code, b[:]...)
	case 8:
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(value))
		return append(code, b[:]...)
	default:
		return code
	}
}

// identTarget classifies a name as a local slot or a global address,
// resolved against sc exactly the way the analyzer resolved it.
type identTarget struct {
	isGlobal bool
	local    int
	global   int
}

func (g *Generator) resolveIdent(name string, sc *scope.Scope) identTarget {
	sym, ok := sc.Lookup(name)
	if !ok {
		return identTarget{}
	}
	if sym.Kind == scope.SymGlobal {
		if ge, ok := g.globals.Lookup(name); ok {
			return identTarget{isGlobal: true, global: ge.Address}
		}
	}
	return identTarget{local: sym.LocalIndex}
}
