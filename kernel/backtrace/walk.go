// Package backtrace reconstructs call chains by following the EBP-linked
// frames that the compiler emits on the kernel and user stacks.
//
// Frames are untrusted input: a user program can forge them and a kernel
// bug can corrupt them. The walkers therefore validate every frame before
// dereferencing it and stop at the first invalid one, returning whatever
// was collected up to that point.
package backtrace

// frameSize is the size of a stack frame header: the saved EBP of the
// caller followed by the return address.
const frameSize = 8

// wordMask selects the low address bits that must be clear for a 32-bit
// word to sit inside a single page.
const wordMask = 3

// Bounds describes the address ranges a walk may touch.
type Bounds struct {
	// Low and High delimit the range [Low, High) that return addresses
	// must fall in.
	Low, High uintptr

	// StackLow and StackHigh delimit the stack [StackLow, StackHigh) that
	// frame headers must be located in.
	StackLow, StackHigh uintptr
}

// valid returns true if the stack range is non-empty and contained in the
// address range.
func (b Bounds) valid() bool {
	return b.StackLow < b.StackHigh &&
		b.StackLow >= b.Low && b.StackHigh <= b.High
}

// containsFrame returns true if fp is word aligned and the whole frame
// header at fp lies on the stack.
func (b Bounds) containsFrame(fp uintptr) bool {
	return fp&wordMask == 0 && fp >= b.StackLow && fp < b.StackHigh && b.StackHigh-fp >= frameSize
}

// FrameReader returns the 32-bit word stored at addr. It returns false if
// addr cannot be read, which ends the walk.
type FrameReader func(addr uintptr) (uint32, bool)

// Walk follows the frame chain starting at fp and stores the return
// address of each valid frame into callStack, most recent first. The walk
// stops when callStack is full, when a frame header is misaligned or lies
// outside the stack bounds, when a return address lies outside the address bounds or when
// read fails. It returns the number of entries stored.
//
// Walk does not allocate, and a cyclic chain ends once callStack is full.
func Walk(callStack []uintptr, fp uintptr, b Bounds, read FrameReader) int {
	if !b.valid() {
		return 0
	}

	var n int
	for n < len(callStack) && b.containsFrame(fp) {
		ret, ok := read(fp + 4)
		if !ok || uintptr(ret) < b.Low || uintptr(ret) >= b.High {
			break
		}

		callStack[n] = uintptr(ret)
		n++

		prev, ok := read(fp)
		if !ok {
			break
		}
		fp = uintptr(prev)
	}

	return n
}
