package vmm

// ErrorCode is the error word pushed by the CPU when it raises a page fault.
type ErrorCode uint32

const (
	// errCodePresent is clear if the fault was caused by a non-present
	// page and set if it was caused by a protection violation.
	errCodePresent ErrorCode = 1 << iota

	// errCodeWrite is set for write accesses.
	errCodeWrite

	// errCodeUser is set if the access originated in user mode (CPL 3).
	errCodeUser

	// errCodeReservedBit is set if a paging structure has a reserved bit
	// set.
	errCodeReservedBit

	// errCodeInstructionFetch is set if the fault was caused by an
	// instruction fetch.
	errCodeInstructionFetch
)

// Present returns true if the page was present and the fault is a
// protection violation.
func (c ErrorCode) Present() bool { return c&errCodePresent != 0 }

// Write returns true if the faulting access was a write.
func (c ErrorCode) Write() bool { return c&errCodeWrite != 0 }

// User returns true if the fault occurred while executing in user mode.
func (c ErrorCode) User() bool { return c&errCodeUser != 0 }

// ReservedBit returns true if the fault was caused by a reserved bit being
// set in a paging structure.
func (c ErrorCode) ReservedBit() bool { return c&errCodeReservedBit != 0 }

// InstructionFetch returns true if the fault was caused by an instruction
// fetch.
func (c ErrorCode) InstructionFetch() bool { return c&errCodeInstructionFetch != 0 }

// Describe returns a one-line description of the access that faulted.
func (c ErrorCode) Describe() string {
	switch {
	case c.ReservedBit():
		return "page table has reserved bit set"
	case c.InstructionFetch():
		return "instruction fetch"
	}

	switch c &^ errCodeUser {
	case 0:
		return "read from non-present page"
	case errCodePresent:
		return "page protection violation (read)"
	case errCodeWrite:
		return "write to non-present page"
	default:
		return "page protection violation (write)"
	}
}
