package gate

// Vector is an index into the interrupt descriptor table.
type Vector uint32

// Exception vectors defined by the IA-32 architecture.
const (
	DivideByZero               = Vector(0)
	Debug                      = Vector(1)
	NMI                        = Vector(2)
	Breakpoint                 = Vector(3)
	Overflow                   = Vector(4)
	BoundRangeExceeded         = Vector(5)
	InvalidOpcode              = Vector(6)
	DeviceNotAvailable         = Vector(7)
	DoubleFault                = Vector(8)
	CoprocessorSegmentOverrun  = Vector(9)
	InvalidTSS                 = Vector(10)
	SegmentNotPresent          = Vector(11)
	StackSegmentFault          = Vector(12)
	GPFException               = Vector(13)
	PageFaultException         = Vector(14)
	FloatingPointException     = Vector(16)
	AlignmentCheck             = Vector(17)
	MachineCheck               = Vector(18)
	SIMDFloatingPointException = Vector(19)

	// IRQBase is the vector of IRQ 0 after the PICs have been remapped.
	IRQBase = Vector(32)

	// Timer is raised by the PIT on IRQ 0.
	Timer = IRQBase

	// Reschedule is raised in software to yield the CPU.
	Reschedule = Vector(65)

	// Syscall is the software interrupt used by user programs to enter
	// the kernel.
	Syscall = Vector(0x80)

	// MaxVectors is the number of gates an IDT can hold.
	MaxVectors = 256
)

var exceptionNames = [...]string{
	"Divide Error",
	"Debug Exception",
	"NMI Interrupt",
	"Breakpoint",
	"Overflow",
	"BOUND Range Exceeded",
	"Invalid Opcode",
	"Device Not Available",
	"Double Fault",
	"Coprocessor Segment Overrun",
	"Invalid TSS",
	"Segment Not Present",
	"Stack-Segment Fault",
	"General Protection",
	"Page Fault",
	"Reserved",
	"x87 FPU Floating-Point Error",
	"Alignment Check",
	"Machine Check",
	"SIMD Floating-Point Exception",
}

// IsException returns true for the vectors that are reserved for CPU
// exceptions with a defined meaning.
func (v Vector) IsException() bool {
	return v <= SIMDFloatingPointException
}

// IRQ returns the IRQ line mapped to v and true, or false if v is not in the
// range of the remapped PICs.
func (v Vector) IRQ() (uint8, bool) {
	if v < IRQBase || v >= IRQBase+16 {
		return 0, false
	}
	return uint8(v - IRQBase), true
}

// ExceptionName returns the name of the CPU exception raised on v.
func (v Vector) ExceptionName() string {
	if !v.IsException() {
		return "Unknown Exception"
	}
	return exceptionNames[v]
}
