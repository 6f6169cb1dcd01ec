package irq

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/huawenyu/sweb/kernel/cpu"
	"github.com/huawenyu/sweb/kernel/gate"
	"github.com/huawenyu/sweb/kernel/kfmt"
	"github.com/huawenyu/sweb/kernel/mm/vmm"
	"github.com/huawenyu/sweb/kernel/task"
)

// eventLog records the side effects of a handler in the order they happen.
type eventLog struct {
	events      []string
	intsEnabled bool
}

func (l *eventLog) add(format string, args ...interface{}) {
	l.events = append(l.events, fmt.Sprintf(format, args...))
}

type fakeScheduler struct {
	log  *eventLog
	next *task.Context
}

func (s *fakeScheduler) Tick()                   { s.log.add("tick") }
func (s *fakeScheduler) Schedule() *task.Context { s.log.add("schedule"); return s.next }
func (s *fakeScheduler) KillThread(ctx *task.Context) {
	s.log.add("kill %d", ctx.TID)
}
func (s *fakeScheduler) ExitProcess(ctx *task.Context, code int) {
	s.log.add("exit %d %d", ctx.TID, code)
}

type fakeController struct{ log *eventLog }

func (c fakeController) EndOfInterrupt(irq uint8) { c.log.add("eoi %d", irq) }

type fakeDevice struct {
	log  *eventLog
	name string
}

func (d fakeDevice) ServiceIRQ(irq uint8) { d.log.add("%s %d", d.name, irq) }

type fakeSyscalls struct {
	log *eventLog
	ctx *task.Context
	ret uint32
}

func (s fakeSyscalls) Dispatch(op, arg0, arg1, arg2, arg3, arg4 uint32) uint32 {
	s.log.add("syscall %d %d %d %d %d %d ints=%t user=%t", op, arg0, arg1, arg2, arg3, arg4, s.log.intsEnabled, s.ctx.SwitchToUserspace)
	return s.ret
}

type fakeResolver struct {
	log *eventLog
	out vmm.Outcome
}

func (r fakeResolver) HandleFault(ctx *task.Context, addr uintptr, code vmm.ErrorCode) vmm.Outcome {
	r.log.add("fault %d 0x%x %d", ctx.TID, addr, uint32(code))
	return r.out
}

func newContext(tid uint32, withUser bool) *task.Context {
	ctx := &task.Context{
		TID:    tid,
		Name:   fmt.Sprintf("thread-%d", tid),
		Kernel: &task.Registers{EIP: 0x80001000},
	}
	ctx.Active = ctx.Kernel
	if withUser {
		ctx.User = &task.Registers{EIP: 0x08048000}
		ctx.Active = ctx.User
		ctx.SwitchToUserspace = true
	}
	return ctx
}

// setupHandlers returns Handlers wired to fakes that all report into the
// same event log, and a function that restores the mocked CPU primitives.
func setupHandlers() (*Handlers, *eventLog, *fakeScheduler, func()) {
	log := &eventLog{}
	sched := &fakeScheduler{log: log}

	enableInterruptsFn = func() { log.intsEnabled = true; log.add("sti") }
	disableInterruptsFn = func() { log.intsEnabled = false; log.add("cli") }

	h := &Handlers{
		Scheduler:  sched,
		Controller: fakeController{log: log},
		Resolver:   fakeResolver{log: log},
		Keyboard:   fakeDevice{log: log, name: "keyboard"},
		Serial:     fakeDevice{log: log, name: "serial"},
		Block:      fakeDevice{log: log, name: "block"},
		Heartbeat:  func() { log.add("heartbeat") },
		ContextSwitch: func(regs *task.Registers) {
			log.add("switch 0x%x", regs.EIP)
		},
	}

	return h, log, sched, func() {
		enableInterruptsFn = cpu.EnableInterrupts
		disableInterruptsFn = cpu.DisableInterrupts
		readCR2Fn = cpu.ReadCR2
	}
}

func captureDebug() (*bytes.Buffer, func()) {
	var buf bytes.Buffer
	kfmt.EnableChannels(kfmt.Interrupts | kfmt.Syscalls)
	kfmt.SetDebugSink(&buf)
	return &buf, func() {
		kfmt.DisableChannels(kfmt.Syscalls)
		kfmt.SetDebugSink(nil)
	}
}

func expEvents(t *testing.T, log *eventLog, exp ...string) {
	t.Helper()
	if len(exp) == 0 {
		exp = nil
	}
	if !reflect.DeepEqual(log.events, exp) {
		t.Fatalf("expected events:\n%q\ngot:\n%q", exp, log.events)
	}
}

func TestTimer(t *testing.T) {
	t.Run("switch to next context", func(t *testing.T) {
		h, log, sched, restore := setupHandlers()
		defer restore()

		sched.next = newContext(2, true)
		if got := h.Timer(newContext(1, true)); got != sched.next {
			t.Fatal("expected Timer to resume the scheduled context")
		}

		expEvents(t, log, "heartbeat", "tick", "schedule", "eoi 0", "switch 0x8048000")
	})

	t.Run("keep running the interrupted context", func(t *testing.T) {
		h, log, _, restore := setupHandlers()
		defer restore()
		h.Heartbeat = nil

		ctx := newContext(1, false)
		if got := h.Timer(ctx); got != ctx {
			t.Fatal("expected Timer to resume the interrupted context")
		}

		expEvents(t, log, "tick", "schedule", "eoi 0", "switch 0x80001000")
	})
}

func TestReschedule(t *testing.T) {
	h, log, sched, restore := setupHandlers()
	defer restore()

	sched.next = newContext(2, false)
	h.Reschedule(newContext(1, true))

	expEvents(t, log, "schedule", "switch 0x80001000")
}

func TestDeviceIRQ(t *testing.T) {
	specs := []struct {
		irq       uint8
		expEvents []string
		expDebug  []string
	}{
		{1, []string{"keyboard 1", "eoi 1"}, nil},
		{3, []string{"serial 3", "eoi 3"}, []string{"IRQ 3 called", "IRQ 3 ended"}},
		{4, []string{"serial 4", "eoi 4"}, []string{"IRQ 4 called", "IRQ 4 ended"}},
		{6, nil, []string{"IRQ 6 called", "IRQ 6 ended"}},
		{9, []string{"block 9", "eoi 9"}, []string{"IRQ 9 called"}},
		{11, []string{"block 11", "eoi 11"}, []string{"IRQ 11 called"}},
		{14, []string{"block 14", "eoi 14"}, nil},
		{15, []string{"block 15", "eoi 15"}, nil},
		{5, []string{"eoi 5"}, []string{"IRQ 5 has no handler"}},
	}

	for specIndex, spec := range specs {
		t.Run(fmt.Sprint(specIndex), func(t *testing.T) {
			h, log, _, restore := setupHandlers()
			defer restore()
			buf, restoreDebug := captureDebug()
			defer restoreDebug()

			h.DeviceIRQ(spec.irq)

			expEvents(t, log, spec.expEvents...)
			for _, exp := range spec.expDebug {
				if !strings.Contains(buf.String(), "[irq] "+exp) {
					t.Errorf("expected debug output to contain %q; got:\n%s", exp, buf.String())
				}
			}
		})
	}

	t.Run("no driver attached", func(t *testing.T) {
		h, log, _, restore := setupHandlers()
		defer restore()
		buf, restoreDebug := captureDebug()
		defer restoreDebug()

		h.Keyboard = nil
		h.DeviceIRQ(1)

		expEvents(t, log, "eoi 1")
		if !strings.Contains(buf.String(), "IRQ 1 has no driver attached") {
			t.Errorf("expected a missing driver message; got:\n%s", buf.String())
		}
	})
}

func TestSyscall(t *testing.T) {
	h, log, _, restore := setupHandlers()
	defer restore()
	buf, restoreDebug := captureDebug()
	defer restoreDebug()

	ctx := newContext(3, true)
	ctx.User.EAX, ctx.User.EBX, ctx.User.ECX = 4, 1, 0x1000
	ctx.User.EDX, ctx.User.ESI, ctx.User.EDI = 12, 0, 0
	h.Syscalls = fakeSyscalls{log: log, ctx: ctx, ret: 12}

	h.Syscall(ctx)

	expEvents(t, log,
		"sti",
		"syscall 4 1 4096 12 0 0 ints=true user=false",
		"cli",
		"switch 0x8048000",
	)

	if ctx.User.EAX != 12 {
		t.Errorf("expected the return value to be stored in EAX; got %d", ctx.User.EAX)
	}

	if !ctx.SwitchToUserspace || ctx.Active != ctx.User {
		t.Error("expected the context to return to user mode")
	}

	if !strings.Contains(buf.String(), "[sys] thread 3: syscall 4 (1, 1000, c, 0, 0)") {
		t.Errorf("expected a syscall trace; got:\n%s", buf.String())
	}
}

func TestSyscallFromKernelThread(t *testing.T) {
	h, log, _, restore := setupHandlers()
	defer restore()

	ctx := newContext(1, false)
	h.Syscalls = fakeSyscalls{log: log, ctx: ctx}
	h.Syscall(ctx)

	expEvents(t, log)
}

func TestCPUFault(t *testing.T) {
	h, log, sched, restore := setupHandlers()
	defer restore()
	debugBuf, restoreDebug := captureDebug()
	defer restoreDebug()

	var consoleBuf bytes.Buffer
	origSink := kfmt.GetOutputSink()
	kfmt.SetOutputSink(&consoleBuf)
	defer kfmt.SetOutputSink(origSink)

	faulting := newContext(4, true)
	sched.next = newContext(5, false)

	if got := h.CPUFault(faulting, gate.GPFException); got != sched.next {
		t.Fatal("expected the next scheduled context to be resumed")
	}

	expEvents(t, log, "sti", "kill 4", "cli", "schedule", "switch 0x80001000")

	if faulting.SwitchToUserspace || faulting.Active != faulting.Kernel {
		t.Error("expected the faulting context to be marked as running in the kernel")
	}

	for _, out := range []string{consoleBuf.String(), debugBuf.String()} {
		if !strings.Contains(out, "CPU Fault General Protection") || !strings.Contains(out, "Intel 64 and IA-32") {
			t.Errorf("expected a CPU fault report; got:\n%s", out)
		}
	}
}

func TestCPUFaultWithNothingToRun(t *testing.T) {
	h, log, _, restore := setupHandlers()
	defer restore()

	var consoleBuf bytes.Buffer
	origSink := kfmt.GetOutputSink()
	kfmt.SetOutputSink(&consoleBuf)
	defer kfmt.SetOutputSink(origSink)

	if got := h.CPUFault(newContext(4, true), gate.DivideByZero); got != nil {
		t.Fatal("expected no context to be resumed")
	}

	expEvents(t, log, "sti", "kill 4", "cli", "schedule")
}

func TestSpurious(t *testing.T) {
	t.Run("return to user mode", func(t *testing.T) {
		h, log, _, restore := setupHandlers()
		defer restore()
		buf, restoreDebug := captureDebug()
		defer restoreDebug()

		ctx := newContext(1, true)
		h.Spurious(ctx, 200)

		expEvents(t, log, "sti", "cli", "switch 0x8048000")
		if !ctx.SwitchToUserspace || ctx.Active != ctx.User {
			t.Error("expected the user save area to be active again")
		}
		if !strings.Contains(buf.String(), "[irq] spurious interrupt on vector 200") {
			t.Errorf("expected a spurious interrupt message; got:\n%s", buf.String())
		}
	})

	t.Run("stay in the kernel", func(t *testing.T) {
		h, log, _, restore := setupHandlers()
		defer restore()

		ctx := newContext(1, true)
		ctx.EnterKernel()
		h.Spurious(ctx, 200)

		expEvents(t, log, "sti", "cli")
		if ctx.SwitchToUserspace || ctx.Active != ctx.Kernel {
			t.Error("expected the kernel save area to stay active")
		}
	})
}

func TestPageFault(t *testing.T) {
	specs := []struct {
		descr     string
		withUser  bool
		out       vmm.Outcome
		expEvents []string
	}{
		{
			"recovered user fault",
			true,
			vmm.Outcome{Action: vmm.ContinueRecovered},
			[]string{"fault 1 0x1000 6", "switch 0x8048000"},
		},
		{
			"recovered kernel fault",
			false,
			vmm.Outcome{Action: vmm.ContinueRecovered},
			[]string{"fault 1 0x1000 6"},
		},
		{
			"fatal fault",
			true,
			vmm.Outcome{Action: vmm.TerminateProcess, ExitCode: vmm.ExitKilledByKernel},
			[]string{"fault 1 0x1000 6", "schedule", "switch 0x80001000"},
		},
	}

	for specIndex, spec := range specs {
		t.Run(fmt.Sprint(specIndex), func(t *testing.T) {
			h, log, sched, restore := setupHandlers()
			defer restore()

			readCR2Fn = func() uint32 { return 0x1000 }
			h.Resolver = fakeResolver{log: log, out: spec.out}
			sched.next = newContext(2, false)

			if got := h.PageFault(newContext(1, spec.withUser), 6); got != spec.out {
				t.Errorf("%s: expected outcome %+v; got %+v", spec.descr, spec.out, got)
			}

			expEvents(t, log, spec.expEvents...)
		})
	}
}

func TestSchedulerTerminator(t *testing.T) {
	specs := []struct {
		out       vmm.Outcome
		expEvents []string
	}{
		{vmm.Outcome{Action: vmm.TerminateProcess, ExitCode: vmm.ExitKilledByKernel}, []string{"exit 7 9999"}},
		{vmm.Outcome{Action: vmm.TerminateThread}, []string{"kill 7"}},
		{vmm.Outcome{Action: vmm.ContinueRecovered}, nil},
	}

	for specIndex, spec := range specs {
		log := &eventLog{}
		SchedulerTerminator{Scheduler: &fakeScheduler{log: log}}.Terminate(newContext(7, true), spec.out)

		if len(spec.expEvents) == 0 {
			spec.expEvents = nil
		}
		if !reflect.DeepEqual(log.events, spec.expEvents) {
			t.Errorf("[spec %d] expected events %q; got %q", specIndex, spec.expEvents, log.events)
		}
	}
}
