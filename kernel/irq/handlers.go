// Package irq contains the kernel side of every trap: hardware interrupts,
// CPU exceptions, page faults and system calls.
//
// Handlers are entered with interrupts masked. Before a handler enables
// interrupts it clears the SwitchToUserspace flag of the interrupted
// context so that a nested trap cannot resume user code with a half-updated
// context, and it masks interrupts again before restoring the flag.
package irq

import (
	"github.com/huawenyu/sweb/kernel/cpu"
	"github.com/huawenyu/sweb/kernel/gate"
	"github.com/huawenyu/sweb/kernel/kfmt"
	"github.com/huawenyu/sweb/kernel/mm/vmm"
	"github.com/huawenyu/sweb/kernel/task"
)

const intelManual = "See Intel 64 and IA-32 Architectures Software Developer's Manual, Vol. 3A, section 6.15 for details on this exception.\n"

var (
	// the following functions are mocked by tests and are automatically
	// inlined by the compiler.
	enableInterruptsFn  = cpu.EnableInterrupts
	disableInterruptsFn = cpu.DisableInterrupts
	readCR2Fn           = cpu.ReadCR2
)

// Scheduler selects the context to run next and tears down threads.
type Scheduler interface {
	// Tick advances the scheduler clock by one timer period.
	Tick()

	// Schedule picks the context to resume. A nil return value resumes
	// the interrupted context.
	Schedule() *task.Context

	// KillThread terminates the thread of ctx. The context must not be
	// resumed afterwards.
	KillThread(ctx *task.Context)

	// ExitProcess terminates the process that owns ctx with the given
	// exit code.
	ExitProcess(ctx *task.Context, code int)
}

// Device is a driver that services an IRQ line.
type Device interface {
	ServiceIRQ(irq uint8)
}

// SyscallDispatcher executes system calls.
type SyscallDispatcher interface {
	Dispatch(op, arg0, arg1, arg2, arg3, arg4 uint32) uint32
}

// InterruptController acknowledges serviced IRQs.
type InterruptController interface {
	EndOfInterrupt(irq uint8)
}

// FaultResolver diagnoses a page fault and either recovers it or
// terminates the faulting context. It is implemented by vmm.Resolver.
type FaultResolver interface {
	HandleFault(ctx *task.Context, addr uintptr, code vmm.ErrorCode) vmm.Outcome
}

// ContextSwitchFn loads the register save area regs and resumes execution
// from it. On hardware it does not return.
type ContextSwitchFn func(regs *task.Registers)

// Handlers routes traps to the kernel subsystems that service them. All
// fields except Heartbeat, Keyboard, Serial and Block must be set.
type Handlers struct {
	Scheduler  Scheduler
	Syscalls   SyscallDispatcher
	Controller InterruptController
	Resolver   FaultResolver

	Keyboard Device
	Serial   Device
	Block    Device

	// Heartbeat is invoked on every timer tick.
	Heartbeat func()

	ContextSwitch ContextSwitchFn
}

// resume hands ctx to the context switch primitive.
func (h *Handlers) resume(ctx *task.Context) {
	h.ContextSwitch(ctx.Active)
}

// scheduleAndResume asks the scheduler for the next context and resumes it.
// If the scheduler has nothing better to run, prev is resumed. A nil prev
// marks a context that must not run again; if the scheduler returns nil as
// well scheduleAndResume returns nil to the entry stub.
func (h *Handlers) scheduleAndResume(prev *task.Context) *task.Context {
	next := h.Scheduler.Schedule()
	if next == nil {
		next = prev
	}
	if next != nil {
		h.resume(next)
	}
	return next
}

// Timer services IRQ 0. It returns the context that was resumed.
func (h *Handlers) Timer(ctx *task.Context) *task.Context {
	if h.Heartbeat != nil {
		h.Heartbeat()
	}

	h.Scheduler.Tick()
	next := h.Scheduler.Schedule()
	if next == nil {
		next = ctx
	}

	h.Controller.EndOfInterrupt(0)
	h.resume(next)
	return next
}

// Reschedule services the software interrupt raised by threads that yield
// the CPU. It returns the context that was resumed.
func (h *Handlers) Reschedule(ctx *task.Context) *task.Context {
	return h.scheduleAndResume(ctx)
}

// DeviceIRQ forwards irq to the driver that owns the line and acknowledges
// it. The interrupted context is resumed by the entry stub once DeviceIRQ
// returns.
func (h *Handlers) DeviceIRQ(irq uint8) {
	switch irq {
	case 1:
		serviceIRQ(h.Keyboard, irq)
	case 3, 4:
		kfmt.Debugf(kfmt.Interrupts, "IRQ %d called\n", irq)
		serviceIRQ(h.Serial, irq)
		h.Controller.EndOfInterrupt(irq)
		kfmt.Debugf(kfmt.Interrupts, "IRQ %d ended\n", irq)
		return
	case 6:
		// The floppy controller has no driver; the line is not
		// acknowledged.
		kfmt.Debugf(kfmt.Interrupts, "IRQ %d called\n", irq)
		kfmt.Debugf(kfmt.Interrupts, "IRQ %d ended\n", irq)
		return
	case 9, 11:
		kfmt.Debugf(kfmt.Interrupts, "IRQ %d called\n", irq)
		serviceIRQ(h.Block, irq)
	case 14, 15:
		serviceIRQ(h.Block, irq)
	default:
		kfmt.Debugf(kfmt.Interrupts, "IRQ %d has no handler\n", irq)
	}

	h.Controller.EndOfInterrupt(irq)
}

func serviceIRQ(dev Device, irq uint8) {
	if dev == nil {
		kfmt.Debugf(kfmt.Interrupts, "IRQ %d has no driver attached\n", irq)
		return
	}
	dev.ServiceIRQ(irq)
}

// Syscall executes the system call requested by the user registers of ctx
// and resumes ctx in user mode with the result stored in EAX.
func (h *Handlers) Syscall(ctx *task.Context) {
	user := ctx.User
	if user == nil {
		// Only ring 3 can reach the syscall gate.
		kfmt.Debugf(kfmt.Syscalls, "syscall from thread %d (%s) without user registers\n", ctx.TID, ctx.Name)
		return
	}

	ctx.EnterKernel()
	enableInterruptsFn()

	kfmt.Debugf(kfmt.Syscalls, "thread %d: syscall %d (%x, %x, %x, %x, %x)\n",
		ctx.TID, user.EAX, user.EBX, user.ECX, user.EDX, user.ESI, user.EDI,
	)
	user.EAX = h.Syscalls.Dispatch(user.EAX, user.EBX, user.ECX, user.EDX, user.ESI, user.EDI)

	disableInterruptsFn()
	ctx.ReturnToUser()
	h.resume(ctx)
}

// CPUFault reports the CPU exception raised on vector and kills the
// faulting thread. It returns the context that was resumed in its place.
func (h *Handlers) CPUFault(ctx *task.Context, vector gate.Vector) *task.Context {
	ctx.EnterKernel()
	enableInterruptsFn()

	kfmt.Debugf(kfmt.Interrupts, "\nCPU Fault %s\n\n%s", vector.ExceptionName(), intelManual)
	kfmt.Printf("\nCPU Fault %s\n\n%s", vector.ExceptionName(), intelManual)

	h.Scheduler.KillThread(ctx)

	disableInterruptsFn()
	return h.scheduleAndResume(nil)
}

// Spurious handles vectors without a registered handler. If the
// interrupted context was about to return to user mode it is resumed;
// otherwise Spurious returns to the entry stub.
func (h *Handlers) Spurious(ctx *task.Context, vector gate.Vector) {
	saved := ctx.EnterKernel()
	enableInterruptsFn()

	kfmt.Debugf(kfmt.Interrupts, "spurious interrupt on vector %d\n", uint32(vector))

	disableInterruptsFn()
	if ctx.LeaveKernel(saved) {
		h.resume(ctx)
	}
}

// PageFault handles a page fault raised by ctx. The faulting address is
// read from CR2. A context that survives the fault is resumed if it was
// about to return to user mode; a terminated context is replaced by the
// next context picked by the scheduler.
func (h *Handlers) PageFault(ctx *task.Context, errorCode uint32) vmm.Outcome {
	addr := uintptr(readCR2Fn())

	out := h.Resolver.HandleFault(ctx, addr, vmm.ErrorCode(errorCode))
	if out.Action != vmm.ContinueRecovered {
		h.scheduleAndResume(nil)
		return out
	}

	if ctx.SwitchToUserspace {
		h.resume(ctx)
	}
	return out
}
