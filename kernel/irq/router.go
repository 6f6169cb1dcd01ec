package irq

import (
	"github.com/huawenyu/sweb/kernel/gate"
	"github.com/huawenyu/sweb/kernel/task"
)

// routedVectors lists, in ascending order, the vectors that get a
// dedicated entry stub. Every other vector is served by the default stub.
var routedVectors = [...]gate.Vector{
	gate.DivideByZero,
	gate.Debug,
	gate.NMI,
	gate.Breakpoint,
	gate.Overflow,
	gate.BoundRangeExceeded,
	gate.InvalidOpcode,
	gate.DeviceNotAvailable,
	gate.DoubleFault,
	gate.CoprocessorSegmentOverrun,
	gate.InvalidTSS,
	gate.SegmentNotPresent,
	gate.StackSegmentFault,
	gate.GPFException,
	gate.PageFaultException,
	gate.FloatingPointException,
	gate.AlignmentCheck,
	gate.MachineCheck,
	gate.SIMDFloatingPointException,
	gate.Timer,
	gate.IRQBase + 1,  // keyboard
	gate.IRQBase + 3,  // COM2
	gate.IRQBase + 4,  // COM1
	gate.IRQBase + 6,  // floppy
	gate.IRQBase + 9,  // ATA / ACPI
	gate.IRQBase + 11, // ATA
	gate.IRQBase + 14, // primary IDE
	gate.IRQBase + 15, // secondary IDE
	gate.Reschedule,
	gate.Syscall,
}

// EntryTable returns the gate entries for the routed vectors. The entry
// stubs are laid out back to back starting at stubBase, stubSize bytes
// apart and indexed by vector number. The returned slice ends with a
// sentinel entry.
func EntryTable(stubBase, stubSize uintptr) []gate.Entry {
	entries := make([]gate.Entry, 0, len(routedVectors)+1)
	for _, v := range routedVectors {
		entries = append(entries, gate.Entry{Vector: v, Handler: stubBase + uintptr(v)*stubSize})
	}
	return append(entries, gate.Entry{})
}

// Dispatch is invoked by the entry stubs with the interrupted context, the
// vector that fired and the error code pushed by the CPU (0 for vectors
// without one).
func (h *Handlers) Dispatch(ctx *task.Context, vector gate.Vector, errorCode uint32) {
	switch {
	case vector == gate.Timer:
		h.Timer(ctx)
	case vector == gate.Reschedule:
		h.Reschedule(ctx)
	case vector == gate.Syscall:
		h.Syscall(ctx)
	case vector == gate.PageFaultException:
		h.PageFault(ctx, errorCode)
	case vector.IsException() && isRouted(vector):
		h.CPUFault(ctx, vector)
	default:
		if irq, ok := vector.IRQ(); ok && isRouted(vector) {
			h.DeviceIRQ(irq)
			return
		}
		h.Spurious(ctx, vector)
	}
}

func isRouted(v gate.Vector) bool {
	for _, routed := range routedVectors {
		if routed == v {
			return true
		}
	}
	return false
}
