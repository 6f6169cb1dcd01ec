package gate

// Descriptor is an IA-32 interrupt or trap gate descriptor. The hardware
// layout is:
//
//	bits  0..15  handler offset (low word)
//	bits 16..31  code segment selector
//	bits 32..36  reserved
//	bits 37..39  zero
//	bits 40..42  gate type
//	bit  43      gate size (1 = 32-bit)
//	bit  44      unused
//	bits 45..46  descriptor privilege level
//	bit  47      present
//	bits 48..63  handler offset (high word)
type Descriptor uint64

// GateType selects whether a gate masks interrupts on entry.
type GateType uint8

const (
	// InterruptGate clears IF when the gate is taken.
	InterruptGate GateType = 6

	// TrapGate leaves IF untouched when the gate is taken.
	TrapGate GateType = 7
)

const (
	// KernelCodeSelector is the GDT selector of the kernel code segment.
	KernelCodeSelector = uint16(0x08)

	// DPLKernel restricts a gate to software interrupts issued from ring 0.
	DPLKernel = uint8(0)

	// DPLUser allows ring 3 code to raise the gate with an INT instruction.
	DPLUser = uint8(3)
)

const (
	selectorShift   = 16
	typeShift       = 40
	typeMask        = 0x7
	sizeBit         = 43
	dplShift        = 45
	dplMask         = 0x3
	presentBit      = 47
	offsetHighShift = 48
	wordMask        = 0xffff
)

// NewDescriptor returns a present, 32-bit gate that transfers control to
// handler through the code segment selected by selector.
func NewDescriptor(handler uintptr, selector uint16, typ GateType, dpl uint8) Descriptor {
	offset := uint64(handler) & 0xffffffff

	return Descriptor((offset & wordMask) |
		uint64(selector)<<selectorShift |
		uint64(typ&typeMask)<<typeShift |
		1<<sizeBit |
		uint64(dpl&dplMask)<<dplShift |
		1<<presentBit |
		(offset>>16)<<offsetHighShift)
}

// Offset returns the handler address.
func (d Descriptor) Offset() uintptr {
	return uintptr(uint64(d)&wordMask | (uint64(d)>>offsetHighShift)<<16)
}

// Selector returns the code segment selector.
func (d Descriptor) Selector() uint16 {
	return uint16(uint64(d) >> selectorShift)
}

// Type returns the gate type.
func (d Descriptor) Type() GateType {
	return GateType((uint64(d) >> typeShift) & typeMask)
}

// Is32Bit returns true for 32-bit gates.
func (d Descriptor) Is32Bit() bool {
	return d&(1<<sizeBit) != 0
}

// DPL returns the descriptor privilege level.
func (d Descriptor) DPL() uint8 {
	return uint8((uint64(d) >> dplShift) & dplMask)
}

// Present returns true if the present bit is set.
func (d Descriptor) Present() bool {
	return d&(1<<presentBit) != 0
}
