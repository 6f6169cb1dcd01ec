package vmm

import (
	"github.com/huawenyu/sweb/kernel/mm"
)

// AddressSpace provides read-only access to a two-level IA-32 paging
// structure rooted at a page directory frame.
type AddressSpace struct {
	pdFrame mm.Frame
}

// NewAddressSpace returns an AddressSpace for the page directory stored in
// pdFrame.
func NewAddressSpace(pdFrame mm.Frame) AddressSpace {
	return AddressSpace{pdFrame: pdFrame}
}

// PageDirectory returns the frame of the root paging structure.
func (as AddressSpace) PageDirectory() mm.Frame {
	return as.pdFrame
}

// Mapping describes how a virtual page is mapped by an AddressSpace.
type Mapping struct {
	Page mm.Page

	// DirPresent is false if the page directory entry covering Page is
	// not present; all other fields are then meaningless.
	DirPresent bool

	// Large is set if Page is covered by a 4 MiB page.
	Large bool

	Present        bool
	Writable       bool
	UserAccessible bool

	// Frame is the physical frame backing Page.
	Frame mm.Frame
}

// Lookup resolves the mapping for the virtual page number page.
func (as AddressSpace) Lookup(page mm.Page) Mapping {
	m := Mapping{Page: page}

	pde := *entryAt(as.pdFrame, uintptr(page)>>pdeShift)
	if !pde.HasFlags(FlagPresent) {
		return m
	}

	m.DirPresent = true
	if pde.HasFlags(FlagLargePage) {
		m.Large = true
		m.Present = true
		m.Writable = pde.HasFlags(FlagRW)
		m.UserAccessible = pde.HasFlags(FlagUserAccessible)
		m.Frame = pde.Frame() + mm.Frame(uintptr(page)&(entriesPerTable-1))
		return m
	}

	pte := *entryAt(pde.Frame(), uintptr(page)&(entriesPerTable-1))
	m.Present = pte.HasFlags(FlagPresent)
	m.Writable = pte.HasFlags(FlagRW)
	m.UserAccessible = pte.HasFlags(FlagUserAccessible)
	m.Frame = pte.Frame()
	return m
}

// Translate checks whether virtAddr is mapped by this address space and
// returns the kernel virtual address through which its contents can be
// read. It returns 0 if virtAddr is not mapped. The caller must not assume
// that the returned address remains valid across a page boundary.
func (as AddressSpace) Translate(virtAddr uintptr) uintptr {
	m := as.Lookup(mm.PageFromAddress(virtAddr))
	if !m.Present {
		return 0
	}

	return identityMapFn(m.Frame.Address() + (virtAddr & (mm.PageSize - 1)))
}
