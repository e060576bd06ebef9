package vm

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Aiffelowy/harpy-sub000/internal/bytecode"
	"github.com/Aiffelowy/harpy-sub000/internal/config"
)

// VM runs one loaded image to completion. It owns every piece of
// harpy's memory model: the operand stack, the byte-buffer call stack,
// the heap, and global memory.
type VM struct {
	img *bytecode.Image
	cfg config.VM

	operand *operandStack
	calls   *callStack
	hp      *heap

	globals       []byte
	globalOffsets []int

	localOffsets map[int][]int
	localsSize   map[int]int

	consts  []Value
	strData []string

	returnIPs []int

	out io.Writer
}

// New builds a VM ready to Run img under cfg, writing RET-from-main
// output to out.
func New(img *bytecode.Image, cfg config.VM, out io.Writer) *VM {
	v := &VM{
		img:          img,
		cfg:          cfg,
		operand:      newOperandStack(cfg.OperandStackSize),
		calls:        newCallStack(cfg.CallStackFrames * 256),
		hp:           newHeap(cfg.InitialHeapBytes),
		localOffsets: make(map[int][]int),
		localsSize:   make(map[int]int),
		out:          out,
	}
	v.initGlobals()
	v.initConsts()
	return v
}

func (v *VM) initGlobals() {
	offset := 0
	for _, typeIdx := range v.img.Globals {
		v.globalOffsets = append(v.globalOffsets, offset)
		offset += sizeOfType(typeIdx, v.img.Types)
	}
	v.globals = make([]byte, offset)
}

// initConsts decodes every bytecode.ConstEntry into a Value once at
// startup. String constants are kept out of the collected heap
// entirely: the GC's root set (spec.md §4.6) only ever traces Pointer
// values, so anything placed under v.hp would either have to be
// re-rooted specially or silently drop on the first collection. Since
// nothing in the instruction set dereferences a Str's payload bytes
// (String() just renders the ptr/len pair), the "ptr" field is free to
// be an opaque handle into this immortal side table instead of a real
// heap address.
func (v *VM) initConsts() {
	v.consts = make([]Value, len(v.img.Consts))
	for i, c := range v.img.Consts {
		v.consts[i] = v.constToValue(c)
	}
}

func (v *VM) constToValue(c bytecode.ConstEntry) Value {
	switch c.Kind {
	case bytecode.ConstVoid:
		return VoidValue()
	case bytecode.ConstInt:
		return IntValue(c.I)
	case bytecode.ConstFloat:
		return FloatValue(c.F)
	case bytecode.ConstBool:
		return BoolValue(c.B)
	case bytecode.ConstStr:
		v.strData = append(v.strData, c.S)
		return StrValue(len(v.strData)-1, len(c.S))
	default:
		return VoidValue()
	}
}

func (v *VM) localOffsetsFor(funcIdx int) []int {
	if off, ok := v.localOffsets[funcIdx]; ok {
		return off
	}
	fe := v.img.Functions[funcIdx]
	offsets := make([]int, len(fe.LocalTypes))
	pos := 0
	for i, t := range fe.LocalTypes {
		offsets[i] = pos
		pos += sizeOfType(t, v.img.Types)
	}
	v.localOffsets[funcIdx] = offsets
	v.localsSize[funcIdx] = pos
	return offsets
}

func (v *VM) localsSizeFor(funcIdx int) int {
	v.localOffsetsFor(funcIdx)
	return v.localsSize[funcIdx]
}

// Run executes the image from offset 0 (the program entry: the global
// initializers, then CALL main; HALT) to completion, returning the value RET printed for main, or
// any RuntimeError that stopped it early.
func (v *VM) Run() (Value, error) {
	ip := 0
	code := v.img.Code
	curFuncIdx := -1

	for {
		if ip < 0 || ip >= len(code) {
			return Value{}, errOutOfBounds
		}
		op := bytecode.Opcode(code[ip])
		ip++
		opSize := op.OperandSize()
		if ip+opSize > len(code) {
			return Value{}, errOutOfBounds
		}
		operand := readOperand(code, ip, opSize)
		ip += opSize

		switch op {
		case bytecode.NOP:

		case bytecode.LOAD_CONST:
			idx := int(operand)
			if idx < 0 || idx >= len(v.consts) {
				return Value{}, errOutOfBounds
			}
			if err := v.operand.push(v.consts[idx]); err != nil {
				return Value{}, err
			}

		case bytecode.LOAD_LOCAL:
			val, err := v.loadLocal(curFuncIdx, int(operand))
			if err != nil {
				return Value{}, err
			}
			if err := v.operand.push(val); err != nil {
				return Value{}, err
			}

		case bytecode.STORE_LOCAL:
			val, err := v.operand.pop()
			if err != nil {
				return Value{}, err
			}
			if err := v.storeLocal(curFuncIdx, int(operand), val); err != nil {
				return Value{}, err
			}

		case bytecode.PUSH_ADDR_LOCAL:
			offsets := v.localOffsetsFor(curFuncIdx)
			slot := int(operand)
			if slot < 0 || slot >= len(offsets) {
				return Value{}, errOutOfBounds
			}
			addr, err := v.calls.localAddr(offsets[slot])
			if err != nil {
				return Value{}, err
			}
			typeIdx := v.img.Functions[curFuncIdx].LocalTypes[slot]
			if err := v.operand.push(RefValue(addr, typeIdx, false)); err != nil {
				return Value{}, err
			}

		case bytecode.STORE_GLOBAL:
			val, err := v.operand.pop()
			if err != nil {
				return Value{}, err
			}
			idx := int(operand)
			if idx < 0 || idx >= len(v.globalOffsets) {
				return Value{}, errOutOfBounds
			}
			if err := encodeValue(v.globals, v.globalOffsets[idx], val, v.img.Globals[idx], v.img.Types); err != nil {
				return Value{}, err
			}

		case bytecode.LOAD_GLOBAL:
			idx := int(operand)
			if idx < 0 || idx >= len(v.globalOffsets) {
				return Value{}, errOutOfBounds
			}
			val, err := decodeValue(v.globals, v.globalOffsets[idx], v.img.Globals[idx], v.img.Types)
			if err != nil {
				return Value{}, err
			}
			if err := v.operand.push(val); err != nil {
				return Value{}, err
			}

		case bytecode.PUSH_ADDR_GLOBAL:
			idx := int(operand)
			if idx < 0 || idx >= len(v.globalOffsets) {
				return Value{}, errOutOfBounds
			}
			if err := v.operand.push(RefValue(v.globalOffsets[idx], v.img.Globals[idx], true)); err != nil {
				return Value{}, err
			}

		case bytecode.LOAD:
			target, err := v.operand.pop()
			if err != nil {
				return Value{}, err
			}
			val, err := v.deref(target)
			if err != nil {
				return Value{}, err
			}
			if err := v.operand.push(val); err != nil {
				return Value{}, err
			}

		case bytecode.STORE:
			val, err := v.operand.pop()
			if err != nil {
				return Value{}, err
			}
			target, err := v.operand.pop()
			if err != nil {
				return Value{}, err
			}
			if err := v.assign(target, val); err != nil {
				return Value{}, err
			}

		case bytecode.BOX_ALLOC:
			typeIdx := int(operand)
			v.maybeCollect(curFuncIdx)
			addr := v.hp.alloc(sizeOfType(typeIdx, v.img.Types))
			if err := v.operand.push(PointerValue(addr, typeIdx)); err != nil {
				return Value{}, err
			}

		case bytecode.ADD, bytecode.SUB, bytecode.MUL, bytecode.DIV:
			if err := v.binaryArith(op); err != nil {
				return Value{}, err
			}

		case bytecode.NEG:
			if err := v.unaryNeg(); err != nil {
				return Value{}, err
			}

		case bytecode.INC:
			if err := v.inc(); err != nil {
				return Value{}, err
			}

		case bytecode.EQ, bytecode.NEQ:
			if err := v.equality(op); err != nil {
				return Value{}, err
			}

		case bytecode.LT, bytecode.LTE, bytecode.GT, bytecode.GTE:
			if err := v.ordered(op); err != nil {
				return Value{}, err
			}

		case bytecode.AND, bytecode.OR:
			if err := v.boolBinary(op); err != nil {
				return Value{}, err
			}

		case bytecode.NOT:
			if err := v.boolNot(); err != nil {
				return Value{}, err
			}

		case bytecode.JMP:
			target := int(operand)
			if target < 0 || target > len(code) {
				return Value{}, errOutOfBounds
			}
			ip = target

		case bytecode.JMP_IF_TRUE, bytecode.JMP_IF_FALSE:
			cond, err := v.operand.pop()
			if err != nil {
				return Value{}, err
			}
			if cond.Kind != KBool {
				return Value{}, errInvalidOperation
			}
			target := int(operand)
			if target < 0 || target > len(code) {
				return Value{}, errOutOfBounds
			}
			if (op == bytecode.JMP_IF_TRUE) == cond.B {
				ip = target
			}

		case bytecode.CALL:
			newIp, newFuncIdx, err := v.call(int(operand), curFuncIdx, ip)
			if err != nil {
				return Value{}, err
			}
			ip = newIp
			curFuncIdx = newFuncIdx

		case bytecode.RET:
			if curFuncIdx == v.img.MainFunctionIndex {
				top, err := v.operand.top()
				if err != nil {
					return Value{}, err
				}
				fmt.Fprintln(v.out, top.String())
				return top, nil
			}
			if len(v.returnIPs) == 0 {
				return Value{}, errBadStack
			}
			ip = v.returnIPs[len(v.returnIPs)-1]
			v.returnIPs = v.returnIPs[:len(v.returnIPs)-1]
			if err := v.calls.popFrame(); err != nil {
				return Value{}, err
			}
			curFuncIdx = v.calls.funcIdx

		case bytecode.POP:
			if _, err := v.operand.pop(); err != nil {
				return Value{}, err
			}

		case bytecode.DUP:
			top, err := v.operand.peek(0)
			if err != nil {
				return Value{}, err
			}
			if err := v.operand.push(top); err != nil {
				return Value{}, err
			}

		case bytecode.HALT:
			return Value{}, nil

		default:
			return Value{}, errInvalidOpcode
		}
	}
}

func readOperand(code []byte, off, size int) int64 {
	switch size {
	case 2:
		return int64(binary.BigEndian.Uint16(code[off : off+2]))
	case 4:
		return int64(binary.BigEndian.Uint32(code[off : off+4]))
	case 8:
		return int64(binary.BigEndian.Uint64(code[off : off+8]))
	default:
		return 0
	}
}

func (v *VM) loadLocal(funcIdx, slot int) (Value, error) {
	offsets := v.localOffsetsFor(funcIdx)
	if slot < 0 || slot >= len(offsets) {
		return Value{}, errOutOfBounds
	}
	addr, err := v.calls.localAddr(offsets[slot])
	if err != nil {
		return Value{}, err
	}
	typeIdx := v.img.Functions[funcIdx].LocalTypes[slot]
	return decodeValue(v.calls.buf, addr, typeIdx, v.img.Types)
}

func (v *VM) storeLocal(funcIdx, slot int, val Value) error {
	offsets := v.localOffsetsFor(funcIdx)
	if slot < 0 || slot >= len(offsets) {
		return errOutOfBounds
	}
	addr, err := v.calls.localAddr(offsets[slot])
	if err != nil {
		return err
	}
	typeIdx := v.img.Functions[funcIdx].LocalTypes[slot]
	return encodeValue(v.calls.buf, addr, val, typeIdx, v.img.Types)
}

// deref implements LOAD: pop a Ref or Pointer, read the value it names.
func (v *VM) deref(target Value) (Value, error) {
	switch target.Kind {
	case KRef:
		if target.Global {
			return decodeValue(v.globals, target.Addr, target.TypeIdx, v.img.Types)
		}
		return decodeValue(v.calls.buf, target.Addr, target.TypeIdx, v.img.Types)
	case KPointer:
		size := sizeOfType(target.TypeIdx, v.img.Types)
		raw, err := v.hp.read(target.Addr, size)
		if err != nil {
			return Value{}, err
		}
		return decodeValue(raw, 0, target.TypeIdx, v.img.Types)
	default:
		return Value{}, errInvalidOperation
	}
}

// assign implements STORE: pop value then ref/ptr, write through it.
func (v *VM) assign(target, val Value) error {
	switch target.Kind {
	case KRef:
		if target.Global {
			return encodeValue(v.globals, target.Addr, val, target.TypeIdx, v.img.Types)
		}
		return encodeValue(v.calls.buf, target.Addr, val, target.TypeIdx, v.img.Types)
	case KPointer:
		size := sizeOfType(target.TypeIdx, v.img.Types)
		raw := make([]byte, size)
		if err := encodeValue(raw, 0, val, target.TypeIdx, v.img.Types); err != nil {
			return err
		}
		return v.hp.write(target.Addr, raw)
	default:
		return errInvalidOperation
	}
}

func (v *VM) call(funcIdx, callerFuncIdx, returnIp int) (int, int, error) {
	if funcIdx < 0 || funcIdx >= len(v.img.Functions) {
		return 0, 0, errOutOfBounds
	}
	fe := v.img.Functions[funcIdx]
	args := make([]Value, fe.ParamCount)
	for i := fe.ParamCount - 1; i >= 0; i-- {
		val, err := v.operand.pop()
		if err != nil {
			return 0, 0, err
		}
		args[i] = val
	}
	v.returnIPs = append(v.returnIPs, returnIp)
	if err := v.calls.pushFrame(funcIdx, v.localsSizeFor(funcIdx)); err != nil {
		return 0, 0, err
	}
	offsets := v.localOffsetsFor(funcIdx)
	for i := 0; i < fe.ParamCount; i++ {
		addr, err := v.calls.localAddr(offsets[i])
		if err != nil {
			return 0, 0, err
		}
		if err := encodeValue(v.calls.buf, addr, args[i], fe.LocalTypes[i], v.img.Types); err != nil {
			return 0, 0, err
		}
	}
	return fe.CodeOffset, funcIdx, nil
}

func (v *VM) binaryArith(op bytecode.Opcode) error {
	b, err := v.operand.pop()
	if err != nil {
		return err
	}
	a, err := v.operand.pop()
	if err != nil {
		return err
	}
	if a.Kind != b.Kind || (a.Kind != KInt && a.Kind != KFloat) {
		return errInvalidOperation
	}
	if a.Kind == KInt {
		var r int64
		switch op {
		case bytecode.ADD:
			r = a.I + b.I
		case bytecode.SUB:
			r = a.I - b.I
		case bytecode.MUL:
			r = a.I * b.I
		case bytecode.DIV:
			if b.I == 0 {
				return errInvalidOperation
			}
			r = a.I / b.I
		}
		return v.operand.push(IntValue(r))
	}
	var r float64
	switch op {
	case bytecode.ADD:
		r = a.F + b.F
	case bytecode.SUB:
		r = a.F - b.F
	case bytecode.MUL:
		r = a.F * b.F
	case bytecode.DIV:
		r = a.F / b.F
	}
	return v.operand.push(FloatValue(r))
}

func (v *VM) unaryNeg() error {
	a, err := v.operand.pop()
	if err != nil {
		return err
	}
	switch a.Kind {
	case KInt:
		return v.operand.push(IntValue(-a.I))
	case KFloat:
		return v.operand.push(FloatValue(-a.F))
	default:
		return errInvalidOperation
	}
}

func (v *VM) inc() error {
	a, err := v.operand.pop()
	if err != nil {
		return err
	}
	switch a.Kind {
	case KInt:
		return v.operand.push(IntValue(a.I + 1))
	case KFloat:
		return v.operand.push(FloatValue(a.F + 1))
	default:
		return errInvalidOperation
	}
}

// equality implements EQ/NEQ. Float equality follows IEEE-754 (NaN is
// never equal to anything, including itself), which Go's == already
// gives us (spec.md §9 open question).
func (v *VM) equality(op bytecode.Opcode) error {
	b, err := v.operand.pop()
	if err != nil {
		return err
	}
	a, err := v.operand.pop()
	if err != nil {
		return err
	}
	if a.Kind != b.Kind {
		return errInvalidOperation
	}
	var eq bool
	switch a.Kind {
	case KInt:
		eq = a.I == b.I
	case KFloat:
		eq = a.F == b.F
	case KBool:
		eq = a.B == b.B
	case KStr:
		eq = a.StrPtr == b.StrPtr && a.StrLen == b.StrLen
	default:
		return errInvalidOperation
	}
	if op == bytecode.NEQ {
		eq = !eq
	}
	return v.operand.push(BoolValue(eq))
}

// ordered implements LT/LTE/GT/GTE. Any NaN operand makes every
// ordered comparison false (spec.md §9 open question).
func (v *VM) ordered(op bytecode.Opcode) error {
	b, err := v.operand.pop()
	if err != nil {
		return err
	}
	a, err := v.operand.pop()
	if err != nil {
		return err
	}
	if a.Kind != b.Kind || (a.Kind != KInt && a.Kind != KFloat) {
		return errInvalidOperation
	}
	var r bool
	if a.Kind == KInt {
		switch op {
		case bytecode.LT:
			r = a.I < b.I
		case bytecode.LTE:
			r = a.I <= b.I
		case bytecode.GT:
			r = a.I > b.I
		case bytecode.GTE:
			r = a.I >= b.I
		}
	} else {
		switch op {
		case bytecode.LT:
			r = a.F < b.F
		case bytecode.LTE:
			r = a.F <= b.F
		case bytecode.GT:
			r = a.F > b.F
		case bytecode.GTE:
			r = a.F >= b.F
		}
	}
	return v.operand.push(BoolValue(r))
}

func (v *VM) boolBinary(op bytecode.Opcode) error {
	b, err := v.operand.pop()
	if err != nil {
		return err
	}
	a, err := v.operand.pop()
	if err != nil {
		return err
	}
	if a.Kind != KBool || b.Kind != KBool {
		return errInvalidOperation
	}
	var r bool
	if op == bytecode.AND {
		r = a.B && b.B
	} else {
		r = a.B || b.B
	}
	return v.operand.push(BoolValue(r))
}

func (v *VM) boolNot() error {
	a, err := v.operand.pop()
	if err != nil {
		return err
	}
	if a.Kind != KBool {
		return errInvalidOperation
	}
	return v.operand.push(BoolValue(!a.B))
}

// String renders a Value the way spec.md §8's scenarios print results,
// e.g. "Int(14)".
func (val Value) String() string {
	switch val.Kind {
	case KInt:
		return fmt.Sprintf("Int(%d)", val.I)
	case KFloat:
		return fmt.Sprintf("Float(%g)", val.F)
	case KBool:
		return fmt.Sprintf("Bool(%t)", val.B)
	case KStr:
		return fmt.Sprintf("Str(ptr=%d,len=%d)", val.StrPtr, val.StrLen)
	case KPointer:
		return fmt.Sprintf("Pointer(%d)", val.Addr)
	case KRef:
		return fmt.Sprintf("Ref(%d,global=%t)", val.Addr, val.Global)
	case KVoid:
		return "Void"
	default:
		return "?"
	}
}
