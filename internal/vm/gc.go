package vm

// maybeCollect runs a stop-the-world copying collection (spec.md §4.6,
// C14) whenever the heap has grown past its threshold, then grows the
// threshold by cfg.GCGrowthFactor so repeated short-lived allocation
// bursts don't collect on every single BOX_ALLOC.
func (v *VM) maybeCollect(curFuncIdx int) {
	if v.hp.bytes() < v.hp.threshold {
		return
	}
	v.collect()
	v.hp.threshold *= v.cfg.GCGrowthFactor
}

// collect copies every heap object reachable from the root set into a
// fresh heap and rewrites each root in place to its relocated address,
// then replaces the old heap wholesale. The root set is exactly
// spec.md §4.6's: every Pointer value live on the operand stack, and
// every Boxed-typed local in every frame still on the call stack.
//
// A Boxed object whose own pointee type is itself Boxed carries a
// nested Pointer inside its bytes — types.VerifyPointers lets Boxed
// wrap Boxed, only Boxed-over-Ref is rejected at compile time — so
// relocate follows that nested pointer transitively rather than
// copying it as opaque bytes.
func (v *VM) collect() {
	newHp := newHeap(v.hp.threshold)
	forwarded := make(map[int]int)

	var relocate func(addr, typeIdx int) int
	relocate = func(addr, typeIdx int) int {
		if newAddr, ok := forwarded[addr]; ok {
			return newAddr
		}
		size := sizeOfType(typeIdx, v.img.Types)
		data, err := v.hp.read(addr, size)
		if err != nil {
			return addr
		}
		obj := append([]byte(nil), data...)
		newAddr := newHp.alloc(size)
		forwarded[addr] = newAddr

		if isPointerType(typeIdx, v.img.Types) {
			if inner, ierr := decodeValue(obj, 0, typeIdx, v.img.Types); ierr == nil {
				inner.Addr = relocate(inner.Addr, inner.TypeIdx)
				encodeValue(obj, 0, inner, typeIdx, v.img.Types)
			}
		}
		newHp.write(newAddr, obj)
		return newAddr
	}

	for _, r := range v.operand.roots() {
		r.Addr = relocate(r.Addr, r.TypeIdx)
	}

	for _, fr := range v.calls.walkFrames() {
		fe := v.img.Functions[fr.funcIdx]
		offsets := v.localOffsetsFor(fr.funcIdx)
		for slot, off := range offsets {
			typeIdx := fe.LocalTypes[slot]
			if !isPointerType(typeIdx, v.img.Types) {
				continue
			}
			addr := fr.fp + off
			val, err := decodeValue(v.calls.buf, addr, typeIdx, v.img.Types)
			if err != nil {
				continue
			}
			val.Addr = relocate(val.Addr, val.TypeIdx)
			encodeValue(v.calls.buf, addr, val, typeIdx, v.img.Types)
		}
	}

	v.hp = newHp
}
