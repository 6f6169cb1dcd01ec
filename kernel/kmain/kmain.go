// Package kmain brings up the trap layer: it wires the trap handlers to
// the rest of the kernel, programs the interrupt controllers and installs
// the interrupt descriptor table.
package kmain

import (
	"github.com/huawenyu/sweb/kernel"
	"github.com/huawenyu/sweb/kernel/backtrace"
	"github.com/huawenyu/sweb/kernel/console"
	"github.com/huawenyu/sweb/kernel/cpu"
	"github.com/huawenyu/sweb/kernel/gate"
	"github.com/huawenyu/sweb/kernel/irq"
	"github.com/huawenyu/sweb/kernel/kfmt"
	"github.com/huawenyu/sweb/kernel/mm/vmm"
	"github.com/huawenyu/sweb/kernel/pic"
)

var (
	errKmainReturned       = &kernel.Error{Module: "kmain", Message: "Kmain returned"}
	errMissingCollaborator = &kernel.Error{Module: "kmain", Message: "scheduler, syscall dispatcher and context switch must be set before installing the IDT"}

	textConsole console.Text
	terminal    console.Terminal
	debugPort   = console.DebugPort{Port: console.BochsDebugPort}

	collaborators Collaborators
	handlers      irq.Handlers
	idt           *gate.Table

	// the following functions are mocked by tests and are automatically
	// inlined by the compiler.
	remapPICFn         = pic.Controller{}.Remap
	maskIRQFn          = pic.Controller{}.Mask
	unmaskIRQFn        = pic.Controller{}.Unmask
	installTableFn     = (*gate.Table).Install
	enableInterruptsFn = cpu.EnableInterrupts
	haltFn             = cpu.Halt
)

// Collaborators are the kernel subsystems that the trap handlers delegate
// to. Symbols and the devices are optional.
type Collaborators struct {
	Scheduler     irq.Scheduler
	Syscalls      irq.SyscallDispatcher
	ContextSwitch irq.ContextSwitchFn
	Symbols       vmm.SymbolResolver

	Keyboard irq.Device
	Serial   irq.Device
	Block    irq.Device

	Heartbeat func()
}

// SetCollaborators registers the subsystems used by the trap handlers. It
// must be called before Init.
func SetCollaborators(c Collaborators) {
	collaborators = c
}

// Handlers returns the trap handlers wired by Init. The entry stubs route
// every trap to Handlers().Dispatch.
func Handlers() *irq.Handlers {
	return &handlers
}

// IDT returns the table installed by Init or nil if Init has not completed.
func IDT() *gate.Table {
	return idt
}

// Init wires the trap handlers to the registered collaborators and installs
// an IDT whose routed vectors point to the entry stubs laid out at
// stubBase, stubSize bytes apart. All other vectors point to defaultStub.
// kernelMemoryEnd is the first address past the kernel heap; kernel
// backtraces only follow frames on stacks below it.
func Init(stubBase, stubSize, defaultStub, kernelMemoryEnd uintptr) *kernel.Error {
	c := collaborators
	if c.Scheduler == nil || c.Syscalls == nil || c.ContextSwitch == nil {
		return errMissingCollaborator
	}

	backtrace.SetKernelMemoryEnd(kernelMemoryEnd)

	handlers = irq.Handlers{
		Scheduler:  c.Scheduler,
		Syscalls:   c.Syscalls,
		Controller: pic.Controller{},
		Resolver: &vmm.Resolver{
			Symbols:    c.Symbols,
			Backtracer: &backtrace.Tracer{Symbols: c.Symbols},
			Terminator: irq.SchedulerTerminator{Scheduler: c.Scheduler},
		},
		Keyboard:      c.Keyboard,
		Serial:        c.Serial,
		Block:         c.Block,
		Heartbeat:     c.Heartbeat,
		ContextSwitch: c.ContextSwitch,
	}

	entries := irq.EntryTable(stubBase, stubSize)
	table, err := gate.Build(entries, defaultStub)
	if err != nil {
		return err
	}

	remapPICFn(uint8(gate.IRQBase), uint8(gate.IRQBase+8))
	enableRoutedIRQs(entries)

	installTableFn(table)
	idt = table

	table.DumpTo(kfmt.DebugWriter(kfmt.Interrupts))
	return nil
}

// enableRoutedIRQs unmasks the IRQ lines that have an entry stub and masks
// every other line, whatever state the firmware left the controllers in.
func enableRoutedIRQs(entries []gate.Entry) {
	var routed [pic.NumIRQs]bool
	for _, entry := range entries {
		if line, ok := entry.Vector.IRQ(); ok && entry.Handler != 0 {
			routed[line] = true
		}
	}

	for line := uint8(0); line < pic.NumIRQs; line++ {
		if routed[line] {
			unmaskIRQFn(line)
		} else {
			maskIRQFn(line)
		}
	}
}

// initConsole routes console output to the VGA text terminal and debug
// channel output to the emulator debug port. Output produced before this
// point is replayed from the early buffers.
func initConsole() {
	textConsole.Init(console.TextWidth, console.TextHeight, console.TextBufferAddr)
	terminal.AttachTo(&textConsole)
	terminal.Clear()

	kfmt.SetOutputSink(&terminal)
	kfmt.SetDebugSink(&debugPort)
}

// Kmain is invoked by the boot code once the GDT, the kernel stack and the
// paging structures are set up. It receives the location of the trap entry
// stubs and the end of kernel memory (image and heap).
//
// Kmain is not expected to return. If it does, the boot code will halt the
// CPU.
//
//go:noinline
func Kmain(stubBase, stubSize, defaultStub, kernelMemoryEnd uintptr) {
	initConsole()

	if err := Init(stubBase, stubSize, defaultStub, kernelMemoryEnd); err != nil {
		kfmt.Panic(err)
	}

	kfmt.Printf("interrupt handling enabled\n")

	// The first timer tick switches to a scheduled thread.
	enableInterruptsFn()
	haltFn()

	// Use kfmt.Panic instead of panic to prevent the compiler from
	// treating kfmt.Panic as dead-code and eliminating it.
	kfmt.Panic(errKmainReturned)
}
