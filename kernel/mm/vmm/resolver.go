package vmm

import (
	"github.com/huawenyu/sweb/kernel/cpu"
	"github.com/huawenyu/sweb/kernel/kfmt"
	"github.com/huawenyu/sweb/kernel/mm"
	"github.com/huawenyu/sweb/kernel/task"
)

// ExitKilledByKernel is the exit status of a process terminated because of
// a fault it could not recover from.
const ExitKilledByKernel = 9999

var (
	// the following functions are mocked by tests and are automatically
	// inlined by the compiler.
	enableInterruptsFn  = cpu.EnableInterrupts
	disableInterruptsFn = cpu.DisableInterrupts
	reloadPDTFn         = cpu.ReloadPDT
	activePDTFn         = cpu.ActivePDT
)

// Action is the kind of Outcome produced for a page fault.
type Action uint8

const (
	// ContinueRecovered resumes the faulting context; the page is mapped.
	ContinueRecovered Action = iota

	// TerminateThread kills the faulting thread.
	TerminateThread

	// TerminateProcess exits the process that owns the faulting thread
	// with Outcome.ExitCode.
	TerminateProcess
)

// Outcome is the result of handling a page fault.
type Outcome struct {
	Action   Action
	ExitCode int
}

// SymbolResolver maps kernel code addresses to function names and source
// lines.
type SymbolResolver interface {
	// FunctionName returns the name and start address of the function
	// that contains addr. A zero start address means no match.
	FunctionName(addr uintptr) (name string, start uintptr)

	// FunctionLine returns the source line for the instruction at offset
	// bytes into the function starting at start, or a value <= 0 if it is
	// unknown.
	FunctionLine(start, offset uintptr) int
}

// Backtracer logs the kernel call chain of a context using its stored
// registers.
type Backtracer interface {
	Backtrace(ctx *task.Context)
}

// Terminator tears down a context according to a fatal Outcome.
type Terminator interface {
	Terminate(ctx *task.Context, out Outcome)
}

// Resolver diagnoses page faults and either recovers them through the
// faulting thread's loader or terminates the faulting context.
type Resolver struct {
	// Symbols is optional.
	Symbols SymbolResolver

	// Backtracer is optional.
	Backtracer Backtracer

	Terminator Terminator
}

// Decide returns the Outcome for a fault at addr without acting on it.
func Decide(ctx *task.Context, addr uintptr, code ErrorCode) Outcome {
	hasLoader := ctx.Loader != nil
	switch {
	case Classify(code, addr, hasLoader).Recoverable:
		return Outcome{Action: ContinueRecovered}
	case hasLoader:
		return Outcome{Action: TerminateProcess, ExitCode: ExitKilledByKernel}
	default:
		return Outcome{Action: TerminateThread}
	}
}

// HandleFault handles a page fault raised by ctx while accessing addr. It
// must be invoked with interrupts masked and returns with interrupts
// masked. The SwitchToUserspace flag of ctx is preserved across the call;
// for fatal outcomes the context has been handed to the Terminator and
// must not be resumed.
func (r *Resolver) HandleFault(ctx *task.Context, addr uintptr, code ErrorCode) Outcome {
	r.diagnose(ctx, addr, code)

	saved := ctx.EnterKernel()
	enableInterruptsFn()

	out := Decide(ctx, addr, code)
	if out.Action == ContinueRecovered {
		ctx.Loader.LoadOnePage(addr)
	} else {
		kfmt.Debugf(kfmt.PM, "unrecoverable: present: %t, below split: %t, loader: %t\n",
			code.Present(), mm.IsUserAddress(addr), ctx.Loader != nil,
		)

		// A kernel-mode fault is a kernel bug; preserve its call chain.
		if !code.User() && r.Backtracer != nil {
			r.Backtracer.Backtrace(ctx)
		}

		if r.Terminator != nil {
			r.Terminator.Terminate(ctx, out)
		}
	}

	disableInterruptsFn()

	// Stale translations survive a PDE update on IA-32 until CR3 is
	// written.
	reloadPDTFn()

	ctx.LeaveKernel(saved)
	return out
}

// diagnose logs everything known about the fault to the PM debug channel.
func (r *Resolver) diagnose(ctx *task.Context, addr uintptr, code ErrorCode) {
	kfmt.Debugf(kfmt.PM, "address: 0x%8x, present: %t, writing: %t, user: %t, rsvd: %t - thread %d:%s, switch_to_userspace: %t\n",
		addr, code.Present(), code.Write(), code.User(), code.ReservedBit(),
		ctx.TID, ctx.Name, ctx.SwitchToUserspace,
	)

	fetchKind := "operand"
	if code.InstructionFetch() {
		fetchKind = "instruction"
	}
	kfmt.Debugf(kfmt.PM, "the page fault was caused by an %s fetch (%s)\n", fetchKind, code.Describe())

	if !code.User() {
		r.reportKernelFunction(ctx)

		if ctx.User != nil && ctx.Kernel != nil && ctx.User.CR3 != ctx.Kernel.CR3 {
			kfmt.Debugf(kfmt.PM, "user and kernel CR3 register values differ, this most likely is a bug!\n")
		}
	}

	if addr == 0 {
		kfmt.Debugf(kfmt.PM, "maybe you're dereferencing a null-pointer!\n")
	}

	switch Classify(code, addr, ctx.Loader != nil).Reason {
	case ReasonProtectionViolation:
		r.reportMapping(ctx, addr, code)
	case ReasonInvalidUserPointer:
		kfmt.Debugf(kfmt.PM, "the virtual page we accessed was not mapped to a physical page\n")
		kfmt.Debugf(kfmt.PM, "WARNING: your user program tried to access an unmapped address >2GiB, most likely a pointer error\n")
	case ReasonKernelPageNotPresent:
		kfmt.Debugf(kfmt.PM, "the virtual page we accessed was not mapped to a physical page\n")
		kfmt.Debugf(kfmt.PM, "WARNING: this is unusual for addresses above 2GiB unless kernel pages are swapped, most likely a pointer error\n")
	case ReasonNoAddressSpace:
		kfmt.Debugf(kfmt.PM, "thread has no loader to resolve the fault\n")
	}

	ctx.DumpTo(kfmt.DebugWriter(kfmt.PM), false)
}

// reportKernelFunction logs the function the kernel EIP belongs to. Lookups
// are approximate; routines living in assembly modules are frequently
// attributed to the wrong function.
func (r *Resolver) reportKernelFunction(ctx *task.Context) {
	if r.Symbols == nil || ctx.Kernel == nil {
		return
	}

	eip := uintptr(ctx.Kernel.EIP)
	name, start := r.Symbols.FunctionName(eip)
	if start == 0 {
		return
	}

	if line := r.Symbols.FunctionLine(start, eip-start); line > 0 {
		kfmt.Debugf(kfmt.PM, "this page fault was probably caused by function <%s:%d>\n", name, line)
		return
	}

	kfmt.Debugf(kfmt.PM, "this page fault was probably caused by function <%s+%x>\n", name, eip-start)
}

// reportMapping logs the paging structure entries that cover addr.
func (r *Resolver) reportMapping(ctx *task.Context, addr uintptr, code ErrorCode) {
	who, access := "some kernel code", "read from"
	if code.User() {
		who = "a user program"
	}
	if code.Write() {
		access = "write to"
	}

	kfmt.Debugf(kfmt.PM, "we got a page fault even though the page mapping is present\n")
	kfmt.Debugf(kfmt.PM, "%s tried to %s address 0x%8x\n", who, access, addr)

	pdFrame := mm.FrameFromAddress(activePDTFn())
	if ctx.Loader != nil {
		pdFrame = ctx.Loader.PageDirectory()
	}

	page := mm.PageFromAddress(addr)
	m := NewAddressSpace(pdFrame).Lookup(page)
	vpn := uintptr(page)
	switch {
	case !m.DirPresent:
		kfmt.Debugf(kfmt.PM, "page directory entry for page %d not present but the fault reports a present page\n", vpn)
	case m.Large:
		kfmt.Debugf(kfmt.PM, "page %d is a 4MiB page\n", vpn)
		kfmt.Debugf(kfmt.PM, "page %d flags are: writeable: %t, userspace_accessible: %t\n", vpn, m.Writable, m.UserAccessible)
	default:
		kfmt.Debugf(kfmt.PM, "page %d is a 4KiB page\n", vpn)
		kfmt.Debugf(kfmt.PM, "page %d flags are: present: %t, writeable: %t, userspace_accessible: %t\n", vpn, m.Present, m.Writable, m.UserAccessible)
	}
}
