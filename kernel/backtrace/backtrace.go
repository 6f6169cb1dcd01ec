package backtrace

import (
	"io"
	"unsafe"

	"github.com/huawenyu/sweb/kernel/cpu"
	"github.com/huawenyu/sweb/kernel/kfmt"
	"github.com/huawenyu/sweb/kernel/mm"
	"github.com/huawenyu/sweb/kernel/mm/vmm"
	"github.com/huawenyu/sweb/kernel/task"
)

// MaxFrames is the depth of the backtraces logged by Tracer.
const MaxFrames = 20

// translator converts a user virtual address into a kernel virtual address
// that can be dereferenced, or 0 if the address is not mapped.
type translator interface {
	Translate(virtAddr uintptr) uintptr
}

var (
	// kernelMemoryEnd is the first address past kernel memory: the kernel
	// image followed by the kernel heap that thread stacks are carved from.
	kernelMemoryEnd = uintptr(0xffffffff)

	// the following functions are mocked by tests and are automatically
	// inlined by the compiler.
	framePointerFn = cpu.FramePointer
	readWordFn     = readWord
	addressSpaceFn = defaultAddressSpace
)

func readWord(addr uintptr) uint32 {
	return *(*uint32)(unsafe.Pointer(addr))
}

func defaultAddressSpace(pd mm.Frame) translator {
	return vmm.NewAddressSpace(pd)
}

// SetKernelMemoryEnd sets the first address past kernel memory. Kernel
// stacks must lie below end and kernel return addresses at or above end are
// rejected.
func SetKernelMemoryEnd(end uintptr) {
	kernelMemoryEnd = end
}

func readKernelWord(addr uintptr) (uint32, bool) {
	return readWordFn(addr), true
}

// Kernel stores the kernel call chain of ctx into callStack and returns the
// number of entries stored. If useStoredRegisters is true the walk starts
// at the registers saved in ctx.Kernel and callStack[0] receives the saved
// EIP; otherwise the walk starts at the live frame pointer, in which case
// ctx must be the running context.
func Kernel(callStack []uintptr, ctx *task.Context, useStoredRegisters bool) int {
	if ctx == nil || len(callStack) <= 1 {
		return 0
	}

	var (
		fp uintptr
		n  int
	)

	if useStoredRegisters {
		if ctx.Kernel == nil {
			return 0
		}
		callStack[0] = uintptr(ctx.Kernel.EIP)
		fp = uintptr(ctx.Kernel.EBP)
		n = 1
	} else {
		fp = framePointerFn()
	}

	b := Bounds{
		Low:       mm.KernelStart,
		High:      kernelMemoryEnd,
		StackLow:  ctx.KernelStackLow,
		StackHigh: ctx.KernelStackHigh,
	}

	return n + Walk(callStack[n:], fp, b, readKernelWord)
}

// User stores the user-space call chain of ctx into callStack and returns
// the number of entries stored. Every frame is read through the address
// space of the thread's loader; an unmapped frame ends the walk.
func User(callStack []uintptr, ctx *task.Context) int {
	if ctx == nil || len(callStack) == 0 || ctx.User == nil || ctx.Loader == nil {
		return 0
	}

	as := addressSpaceFn(ctx.Loader.PageDirectory())
	b := Bounds{
		Low:       1,
		High:      mm.UserSpaceEnd,
		StackLow:  uintptr(ctx.User.ESP),
		StackHigh: mm.UserStackTop,
	}

	return Walk(callStack, uintptr(ctx.User.EBP), b, func(addr uintptr) (uint32, bool) {
		kernelAddr := as.Translate(addr)
		if kernelAddr == 0 {
			return 0, false
		}
		return readWordFn(kernelAddr), true
	})
}

// Print writes one line per entry of callStack to w. Entries are annotated
// with the name of the enclosing function when symbols is not nil and
// knows about the address.
func Print(w io.Writer, callStack []uintptr, symbols vmm.SymbolResolver) {
	for i, addr := range callStack {
		if symbols != nil {
			if name, start := symbols.FunctionName(addr); start != 0 {
				kfmt.Fprintf(w, "(%d): 0x%8x <%s+%x>\n", i, addr, name, addr-start)
				continue
			}
		}
		kfmt.Fprintf(w, "(%d): 0x%8x <UNKNOWN FUNCTION>\n", i, addr)
	}
}

// Tracer logs backtraces of faulting contexts to the Backtrace debug
// channel.
type Tracer struct {
	Symbols vmm.SymbolResolver
}

// Backtrace logs the kernel call chain stored in ctx followed by its user
// call chain, if the thread has one.
func (t *Tracer) Backtrace(ctx *task.Context) {
	var callStack [MaxFrames]uintptr

	w := kfmt.DebugWriter(kfmt.Backtrace)
	kfmt.Fprintf(w, "kernel backtrace of thread %d (%s):\n", ctx.TID, ctx.Name)
	n := Kernel(callStack[:], ctx, true)
	Print(w, callStack[:n], t.Symbols)

	if !ctx.HasUserSpace() || ctx.Loader == nil {
		return
	}

	kfmt.Fprintf(w, "user backtrace of thread %d (%s):\n", ctx.TID, ctx.Name)
	n = User(callStack[:], ctx)
	Print(w, callStack[:n], nil)
}
