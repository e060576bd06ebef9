package vm

import "encoding/binary"

// frameHeaderSize is the two 8-byte saved words every frame carries:
// saved frame pointer, then saved function index (spec.md §4.6).
const frameHeaderSize = 16

// callStack is the raw byte buffer backing every pushed frame. fp
// always points just past the current frame's header, i.e. at the
// start of its locals; top is the next free byte, the bump pointer for
// the next pushFrame.
type callStack struct {
	buf     []byte
	fp      int
	top     int
	funcIdx int
}

func newCallStack(capacityBytes int) *callStack {
	return &callStack{buf: make([]byte, capacityBytes)}
}

// pushFrame writes the saved FP/func-index words, advances fp past
// them, and reserves localsSize bytes for the callee's locals.
func (c *callStack) pushFrame(newFuncIdx, localsSize int) error {
	header := c.top
	if header+frameHeaderSize+localsSize > len(c.buf) {
		return errStackOverflow
	}
	binary.BigEndian.PutUint64(c.buf[header:header+8], uint64(c.fp))
	binary.BigEndian.PutUint64(c.buf[header+8:header+16], uint64(c.funcIdx))
	for i := 0; i < localsSize; i++ {
		c.buf[header+frameHeaderSize+i] = 0
	}
	c.fp = header + frameHeaderSize
	c.funcIdx = newFuncIdx
	c.top = c.fp + localsSize
	return nil
}

// popFrame restores the saved FP and function index, reclaiming the
// popped frame's bytes.
func (c *callStack) popFrame() error {
	if c.fp < frameHeaderSize {
		return errBadStack
	}
	header := c.fp - frameHeaderSize
	savedFP := int(binary.BigEndian.Uint64(c.buf[header : header+8]))
	savedFuncIdx := int(binary.BigEndian.Uint64(c.buf[header+8 : header+16]))
	c.top = header
	c.fp = savedFP
	c.funcIdx = savedFuncIdx
	return nil
}

func (c *callStack) localAddr(offset int) (int, error) {
	addr := c.fp + offset
	if addr < c.fp || addr >= c.top {
		return 0, errOutOfBounds
	}
	return addr, nil
}

// frame describes one entry of the frame chain as walked for GC
// rooting: its locals-start offset and the function whose LocalTypes
// describe that region.
type frame struct {
	fp      int
	funcIdx int
}

// walkFrames returns every live frame, innermost first, by repeatedly
// reading each frame's saved-FP header (spec.md §4.6's GC root walk).
func (c *callStack) walkFrames() []frame {
	var frames []frame
	fp := c.fp
	funcIdx := c.funcIdx
	for fp >= frameHeaderSize {
		frames = append(frames, frame{fp: fp, funcIdx: funcIdx})
		header := fp - frameHeaderSize
		savedFP := int(binary.BigEndian.Uint64(c.buf[header : header+8]))
		savedFuncIdx := int(binary.BigEndian.Uint64(c.buf[header+8 : header+16]))
		if savedFP >= fp {
			break
		}
		fp = savedFP
		funcIdx = savedFuncIdx
	}
	return frames
}
