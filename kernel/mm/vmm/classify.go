package vmm

import "github.com/huawenyu/sweb/kernel/mm"

// Reason sub-classifies a page fault for diagnostic output. It never alters
// the recovery decision.
type Reason uint8

const (
	// ReasonDemandFault is a non-present page inside a managed user
	// address space; the loader maps it.
	ReasonDemandFault Reason = iota

	// ReasonProtectionViolation is an access to a present page that the
	// page tables do not allow.
	ReasonProtectionViolation

	// ReasonKernelPageNotPresent is a kernel-mode access to a
	// non-present page above the user/kernel split. Kernel pages are
	// never swapped out so this always indicates a bad pointer.
	ReasonKernelPageNotPresent

	// ReasonInvalidUserPointer is a user-mode access to a non-present
	// page above the user/kernel split.
	ReasonInvalidUserPointer

	// ReasonNoAddressSpace is a non-present page below the split while
	// the faulting thread has no loader to resolve it.
	ReasonNoAddressSpace

	// ReasonNullPointer is an access to the first page of the address
	// space, which is never mapped.
	ReasonNullPointer
)

var reasonNames = [...]string{
	ReasonDemandFault:          "demand fault",
	ReasonProtectionViolation:  "protection violation",
	ReasonKernelPageNotPresent: "non-present kernel page",
	ReasonInvalidUserPointer:   "invalid user pointer",
	ReasonNoAddressSpace:       "no managed address space",
	ReasonNullPointer:          "null pointer dereference",
}

// String implements fmt.Stringer.
func (r Reason) String() string {
	if int(r) < len(reasonNames) {
		return reasonNames[r]
	}
	return "unknown"
}

// Classification is the verdict for a single page fault.
type Classification struct {
	// Recoverable is set if the loader can resolve the fault by mapping
	// the page.
	Recoverable bool

	Reason Reason
}

// Classify decides whether a page fault at addr with the supplied error
// code can be recovered. hasLoader reports whether the faulting thread owns
// a managed address space. Classify has no side effects.
func Classify(code ErrorCode, addr uintptr, hasLoader bool) Classification {
	switch {
	case code.Present():
		return Classification{Reason: ReasonProtectionViolation}
	case !mm.IsUserAddress(addr) && code.User():
		return Classification{Reason: ReasonInvalidUserPointer}
	case !mm.IsUserAddress(addr):
		return Classification{Reason: ReasonKernelPageNotPresent}
	case !hasLoader:
		return Classification{Reason: ReasonNoAddressSpace}
	case addr < mm.PageSize:
		return Classification{Reason: ReasonNullPointer}
	default:
		return Classification{Recoverable: true, Reason: ReasonDemandFault}
	}
}
