// Package compiler wires the front end and back end together: lex,
// parse, analyze, convert to runtime tables, generate code, and
// assemble the result into a bytecode.Image ready for Write. cmd/harpy
// and the package's own tests are both expected to go through Compile
// rather than drive the individual passes themselves.
package compiler

import (
	"fmt"

	"github.com/Aiffelowy/harpy-sub000/internal/analyzer"
	"github.com/Aiffelowy/harpy-sub000/internal/bytecode"
	"github.com/Aiffelowy/harpy-sub000/internal/codegen"
	"github.com/Aiffelowy/harpy-sub000/internal/diagnostics"
	"github.com/Aiffelowy/harpy-sub000/internal/parser"
	"github.com/Aiffelowy/harpy-sub000/internal/source"
	"github.com/Aiffelowy/harpy-sub000/internal/tables"
	"github.com/Aiffelowy/harpy-sub000/internal/types"
)

// Error is one compile-time failure, carrying enough to render a
// caret diagnostic against the originating source file.
type Error struct {
	Code string
	Msg  string
	Span source.Span
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s (at %s)", e.Code, e.Msg, e.Span) }

func (e *Error) Diagnostic() *diagnostics.Diagnostic {
	return diagnostics.New(e.Code, e.Span, "%s", e.Msg)
}

// Compile runs the full pipeline over src and returns a ready-to-write
// image, or the accumulated errors from whichever pass rejected the
// program first (parse errors short-circuit analysis; analysis errors
// short-circuit runtime-conversion and codegen, per spec.md §7's
// all-or-nothing propagation policy).
func Compile(src *source.File) (*bytecode.Image, []*Error) {
	prog, diags := parser.ParseProgram(src)
	if len(diags) > 0 {
		return nil, fromDiagnostics(diags)
	}

	result := analyzer.Analyze(prog)
	if len(result.Errors) > 0 {
		return nil, fromSemantic(result.Errors)
	}

	rtImg, errs := tables.ConvertToRuntime(result.Consts, result.Scopes.Funcs, result.Scopes.Globals, result.Scopes.FuncSpans)
	if len(errs) > 0 {
		return nil, fromGeneric(errs)
	}

	genProg, err := codegen.Generate(prog, result, rtImg.Types)
	if err != nil {
		return nil, []*Error{{Code: "CodegenError", Msg: err.Error(), Span: prog.Span()}}
	}

	img, err := assemble(rtImg, genProg)
	if err != nil {
		return nil, []*Error{{Code: "ImageAssemblyError", Msg: err.Error(), Span: prog.Span()}}
	}
	return img, nil
}

func fromDiagnostics(ds []*diagnostics.Diagnostic) []*Error {
	out := make([]*Error, len(ds))
	for i, d := range ds {
		out[i] = &Error{Code: d.Code, Msg: d.Msg, Span: d.Span}
	}
	return out
}

func fromSemantic(es []*analyzer.SemanticError) []*Error {
	out := make([]*Error, len(es))
	for i, e := range es {
		out[i] = &Error{Code: e.Code, Msg: e.Msg, Span: e.Span}
	}
	return out
}

func fromGeneric(errs []error) []*Error {
	out := make([]*Error, len(errs))
	for i, e := range errs {
		out[i] = &Error{Code: "CantInferType", Msg: e.Error()}
	}
	return out
}

// assemble translates the runtime tables and generated code into the
// flat bytecode.Image the writer serializes. The type, const and
// global tables convert field-for-field; only the function table needs
// genProg's resolved code offsets stitched in.
func assemble(rtImg *tables.RuntimeImage, genProg *codegen.Program) (*bytecode.Image, error) {
	img := &bytecode.Image{
		MainFunctionIndex: rtImg.Functions.MainIdx,
		Code:              genProg.Code,
	}

	for _, rt := range rtImg.Types.All() {
		img.Types = append(img.Types, convertType(rt))
	}

	for _, ge := range rtImg.Globals.Entries {
		img.Globals = append(img.Globals, ge.Type)
	}

	for _, lit := range rtImg.Consts.Entries {
		ce, err := convertConst(lit, rtImg.Types)
		if err != nil {
			return nil, err
		}
		img.Consts = append(img.Consts, ce)
	}

	for idx, fe := range rtImg.Functions.Entries {
		offset, ok := genProg.FuncOffsets[idx]
		if !ok {
			return nil, fmt.Errorf("compiler: function %q has no generated code offset", fe.Name)
		}
		img.Functions = append(img.Functions, bytecode.FuncEntry{
			CodeOffset: offset,
			ParamCount: len(fe.ParamTypes),
			LocalTypes: append([]int(nil), fe.LocalTypes...),
		})
	}

	return img, nil
}

func convertType(rt tables.RuntimeType) bytecode.TypeEntry {
	switch rt.Kind {
	case tables.RVoid:
		return bytecode.TypeEntry{Kind: bytecode.TVoid}
	case tables.RBoxed:
		return bytecode.TypeEntry{Kind: bytecode.TBoxed, PointeeIdx: rt.PointeeIdx}
	case tables.RRef:
		return bytecode.TypeEntry{Kind: bytecode.TRef, PointeeIdx: rt.PointeeIdx}
	case tables.RBase:
		if rt.Base.IsCustom {
			return bytecode.TypeEntry{Kind: bytecode.TCustom, Size: rt.ByteSize}
		}
		return bytecode.TypeEntry{Kind: bytecode.TPrimitive, Prim: primitiveTag(rt.Base.Primitive), Size: rt.ByteSize}
	default:
		return bytecode.TypeEntry{Kind: bytecode.TVoid}
	}
}

func primitiveTag(p types.Primitive) bytecode.Primitive {
	switch p {
	case types.Int:
		return bytecode.PrimInt
	case types.Float:
		return bytecode.PrimFloat
	case types.Str:
		return bytecode.PrimStr
	case types.Bool:
		return bytecode.PrimBool
	default:
		return bytecode.PrimInt
	}
}

// convertConst resolves a Literal's primitive type index (needed for
// ConstEntry.TypeIdx) by scanning the already-built type table for a
// matching primitive entry; every primitive type a literal could name is
// guaranteed present because tables.ConvertToRuntime interns one
// RuntimeType per const-pool literal kind up front, independent of
// whether that primitive also appears on some param/local/global/return
// slot.
func convertConst(lit tables.Literal, rtt *tables.RuntimeTypeTable) (bytecode.ConstEntry, error) {
	var want types.Primitive
	switch lit.Kind {
	case tables.LitVoid:
		return bytecode.VoidConst(0), nil
	case tables.LitInt:
		want = types.Int
	case tables.LitFloat:
		want = types.Float
	case tables.LitBool:
		want = types.Bool
	case tables.LitStr:
		want = types.Str
	default:
		return bytecode.ConstEntry{}, fmt.Errorf("compiler: unrecognized literal kind %d", lit.Kind)
	}

	idx := -1
	for i, rt := range rtt.All() {
		if rt.Kind == tables.RBase && !rt.Base.IsCustom && rt.Base.Primitive == want {
			idx = i
			break
		}
	}
	if idx == -1 {
		return bytecode.ConstEntry{}, fmt.Errorf("compiler: no %s type interned for constant pool entry", want)
	}

	switch lit.Kind {
	case tables.LitInt:
		return bytecode.IntConst(idx, lit.I), nil
	case tables.LitFloat:
		return bytecode.FloatConst(idx, lit.F), nil
	case tables.LitBool:
		return bytecode.BoolConst(idx, lit.B), nil
	case tables.LitStr:
		return bytecode.StrConst(idx, lit.S), nil
	default:
		return bytecode.ConstEntry{}, nil
	}
}
