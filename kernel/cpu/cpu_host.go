//go:build !386

package cpu

// The host stubs below allow the kernel packages to be compiled and tested
// on a development machine. Tests always replace the *Fn variables that
// wrap these functions, so reaching any of them is a test bug.

// EnableInterrupts enables interrupt handling (sti).
func EnableInterrupts() { panic(ErrPrivilegedInstruction) }

// DisableInterrupts masks maskable interrupts (cli).
func DisableInterrupts() { panic(ErrPrivilegedInstruction) }

// Halt stops instruction execution.
func Halt() { panic(ErrPrivilegedInstruction) }

// ReadCR2 returns the linear address that caused the last page fault.
func ReadCR2() uint32 { panic(ErrPrivilegedInstruction) }

// ActivePDT returns the physical address of the currently active page
// directory (the contents of CR3).
func ActivePDT() uintptr { panic(ErrPrivilegedInstruction) }

// ReloadPDT writes CR3 back to itself, flushing every non-global TLB entry.
func ReloadPDT() { panic(ErrPrivilegedInstruction) }

// LoadIDT loads the IDTR register from the 6-byte pseudo-descriptor at the
// supplied address.
func LoadIDT(_ uintptr) { panic(ErrPrivilegedInstruction) }

// FramePointer returns the current value of the EBP register.
func FramePointer() uintptr { panic(ErrPrivilegedInstruction) }

// PortWriteByte writes a uint8 value to the requested port.
func PortWriteByte(_ uint16, _ uint8) { panic(ErrPrivilegedInstruction) }

// PortReadByte reads a uint8 value from the requested port.
func PortReadByte(_ uint16) uint8 { panic(ErrPrivilegedInstruction) }
