package cpu

// EnableInterrupts enables interrupt handling (sti).
func EnableInterrupts()

// DisableInterrupts masks maskable interrupts (cli).
func DisableInterrupts()

// Halt stops instruction execution.
func Halt()

// ReadCR2 returns the linear address that caused the last page fault.
func ReadCR2() uint32

// ActivePDT returns the physical address of the currently active page
// directory (the contents of CR3).
func ActivePDT() uintptr

// ReloadPDT writes CR3 back to itself, flushing every non-global TLB entry.
func ReloadPDT()

// LoadIDT loads the IDTR register from the 6-byte pseudo-descriptor at the
// supplied address.
func LoadIDT(idtrAddr uintptr)

// FramePointer returns the current value of the EBP register.
func FramePointer() uintptr

// PortWriteByte writes a uint8 value to the requested port.
func PortWriteByte(port uint16, val uint8)

// PortReadByte reads a uint8 value from the requested port.
func PortReadByte(port uint16) uint8
