// Package tables implements the four deduplicated, append-only arenas
// the analyzer builds during semantic analysis (TypeTable, ConstPool,
// FunctionTable, GlobalTable) and the runtime-conversion pass that turns
// them into the immutable runtime image the code generator and VM
// consume.
//
// Grounded on funxy's internal/vm/chunk.go: AddConstant appends to a
// slice and returns its index, the same dedup-by-append shape used here
// four times over, once per table kind, because spec.md §6's binary
// format has four distinct sections instead of funxy's single constants
// pool.
package tables

import (
	"fmt"
	"math"

	"github.com/Aiffelowy/harpy-sub000/internal/ast"
	"github.com/Aiffelowy/harpy-sub000/internal/source"
	"github.com/Aiffelowy/harpy-sub000/internal/types"
)

// TypeTable interns Types by structural key; index 0 is reserved for Void.
type TypeTable struct {
	entries []types.Type
	index   map[string]int
}

func NewTypeTable() *TypeTable {
	t := &TypeTable{index: make(map[string]int)}
	t.entries = append(t.entries, types.Void())
	t.index[types.Void().String()] = 0
	return t
}

// Intern returns the index of ty, adding it if not already present.
func (t *TypeTable) Intern(ty types.Type) int {
	key := ty.String()
	if idx, ok := t.index[key]; ok {
		return idx
	}
	idx := len(t.entries)
	t.entries = append(t.entries, ty)
	t.index[key] = idx
	return idx
}

func (t *TypeTable) Get(idx int) types.Type { return t.entries[idx] }
func (t *TypeTable) Len() int               { return len(t.entries) }
func (t *TypeTable) All() []types.Type      { return t.entries }

// LiteralKind discriminates ConstPool entries.
type LiteralKind int

const (
	LitVoid LiteralKind = iota
	LitInt
	LitFloat
	LitBool
	LitStr
)

// Literal is a single constant-pool entry.
type Literal struct {
	Kind LiteralKind
	I    int64
	F    float64
	B    bool
	S    string
}

func IntLiteral(v int64) Literal    { return Literal{Kind: LitInt, I: v} }
func FloatLiteral(v float64) Literal { return Literal{Kind: LitFloat, F: v} }
func BoolLiteral(v bool) Literal    { return Literal{Kind: LitBool, B: v} }
func StrLiteral(v string) Literal   { return Literal{Kind: LitStr, S: v} }

func (l Literal) key() string {
	switch l.Kind {
	case LitInt:
		return fmt.Sprintf("i%d", l.I)
	case LitFloat:
		return fmt.Sprintf("f%x", math.Float64bits(l.F))
	case LitBool:
		if l.B {
			return "bt"
		}
		return "bf"
	case LitStr:
		return "s" + l.S
	default:
		return "v"
	}
}

// ConstPool interns literal constants; index 0 is reserved for the void
// constant.
type ConstPool struct {
	entries []Literal
	index   map[string]int
}

func NewConstPool() *ConstPool {
	c := &ConstPool{index: make(map[string]int)}
	c.entries = append(c.entries, Literal{Kind: LitVoid})
	c.index[Literal{Kind: LitVoid}.key()] = 0
	return c
}

func (c *ConstPool) Intern(lit Literal) int {
	key := lit.key()
	if idx, ok := c.index[key]; ok {
		return idx
	}
	idx := len(c.entries)
	c.entries = append(c.entries, lit)
	c.index[key] = idx
	return idx
}

func (c *ConstPool) Get(idx int) Literal { return c.entries[idx] }
func (c *ConstPool) Len() int            { return len(c.entries) }
func (c *ConstPool) All() []Literal      { return c.entries }

// FuncEntry is one function's analysis-time metadata.
type FuncEntry struct {
	Name       string
	NodeId     ast.NodeId
	Params     []types.TypeInfo
	ReturnType types.TypeInfo
	LocalTypes []types.TypeInfo // in declaration order: params first, then locals
}

// FunctionTable maps function names to indices and records every call
// site's and declaration's NodeId -> FuncIndex mapping.
type FunctionTable struct {
	entries   []*FuncEntry
	byName    map[string]int
	callSites map[ast.NodeId]int
	decls     map[ast.NodeId]int
	MainID    *int
}

func NewFunctionTable() *FunctionTable {
	return &FunctionTable{
		byName:    make(map[string]int),
		callSites: make(map[ast.NodeId]int),
		decls:     make(map[ast.NodeId]int),
	}
}

// Declare registers a new function and returns its index. Returns
// (existingIndex, false) if the name is already declared.
func (f *FunctionTable) Declare(name string, nodeId ast.NodeId) (int, bool) {
	if idx, ok := f.byName[name]; ok {
		return idx, false
	}
	idx := len(f.entries)
	f.entries = append(f.entries, &FuncEntry{Name: name, NodeId: nodeId})
	f.byName[name] = idx
	f.decls[nodeId] = idx
	if name == "main" {
		m := idx
		f.MainID = &m
	}
	return idx, true
}

func (f *FunctionTable) Lookup(name string) (int, bool) {
	idx, ok := f.byName[name]
	return idx, ok
}

func (f *FunctionTable) Get(idx int) *FuncEntry { return f.entries[idx] }
func (f *FunctionTable) Len() int               { return len(f.entries) }
func (f *FunctionTable) All() []*FuncEntry      { return f.entries }

// BindCallSite records that the call expression nodeId resolved to funcIdx.
func (f *FunctionTable) BindCallSite(nodeId ast.NodeId, funcIdx int) {
	f.callSites[nodeId] = funcIdx
}

func (f *FunctionTable) CallSiteFunc(nodeId ast.NodeId) (int, bool) {
	idx, ok := f.callSites[nodeId]
	return idx, ok
}

func (f *FunctionTable) DeclFunc(nodeId ast.NodeId) (int, bool) {
	idx, ok := f.decls[nodeId]
	return idx, ok
}

// GlobalEntry is one global variable's analysis-time metadata.
type GlobalEntry struct {
	Name    string
	NodeId  ast.NodeId
	Type    types.TypeInfo
	Address int
	Span    source.Span
}

// GlobalTable maps declaration NodeIds to slot addresses, append-only.
type GlobalTable struct {
	entries []*GlobalEntry
	byNode  map[ast.NodeId]int
	byName  map[string]int
}

func NewGlobalTable() *GlobalTable {
	return &GlobalTable{byNode: make(map[ast.NodeId]int), byName: make(map[string]int)}
}

// Declare assigns the next global slot to nodeId/name and returns its
// address, which is its slot index; the VM maps each index to a byte
// offset from the slot types' sizes.
func (g *GlobalTable) Declare(nodeId ast.NodeId, name string, t types.TypeInfo, span source.Span) int {
	addr := len(g.entries)
	g.entries = append(g.entries, &GlobalEntry{Name: name, NodeId: nodeId, Type: t, Address: addr, Span: span})
	g.byNode[nodeId] = addr
	g.byName[name] = addr
	return addr
}

func (g *GlobalTable) Lookup(name string) (*GlobalEntry, bool) {
	idx, ok := g.byName[name]
	if !ok {
		return nil, false
	}
	return g.entries[idx], true
}

func (g *GlobalTable) AddressOf(nodeId ast.NodeId) (int, bool) {
	a, ok := g.byNode[nodeId]
	return a, ok
}

func (g *GlobalTable) Len() int          { return len(g.entries) }
func (g *GlobalTable) All() []*GlobalEntry { return g.entries }
