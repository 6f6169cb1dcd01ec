package vmm

import (
	"unsafe"

	"github.com/huawenyu/sweb/kernel/mm"
)

const (
	// entriesPerTable is the number of 32-bit entries held by a page
	// directory or a page table.
	entriesPerTable = 1024

	// pdeShift extracts the page directory index from a virtual page
	// number; the low 10 bits of a virtual page number index the page
	// table.
	pdeShift = 10

	// ptePhysPageMask extracts the frame address from a 4 KiB entry.
	ptePhysPageMask = uintptr(0xfffff000)

	// largePagePhysMask extracts the frame address from a 4 MiB page
	// directory entry.
	largePagePhysMask = uintptr(0xffc00000)

	// identityMapOffset is the kernel virtual address at which all of
	// physical memory is mapped.
	identityMapOffset = uintptr(0xc0000000)
)

// PageTableEntryFlag describes a flag that can be applied to a page
// directory or page table entry.
type PageTableEntryFlag uint32

const (
	// FlagPresent is set when the entry maps a page (or a page table).
	FlagPresent PageTableEntryFlag = 1 << iota

	// FlagRW is set if the page can be written to.
	FlagRW

	// FlagUserAccessible is set if user-mode code can access this page.
	FlagUserAccessible

	// FlagWriteThroughCaching implies write-through caching when set and
	// write-back caching if cleared.
	FlagWriteThroughCaching

	// FlagDoNotCache prevents this page from being cached if set.
	FlagDoNotCache

	// FlagAccessed is set by the CPU when this page is accessed.
	FlagAccessed

	// FlagDirty is set by the CPU when this page is modified.
	FlagDirty

	// FlagLargePage is set on a page directory entry that maps a 4 MiB
	// page directly instead of pointing to a page table.
	FlagLargePage

	// FlagGlobal prevents the TLB entry for this page from being flushed
	// when CR3 is reloaded.
	FlagGlobal
)

var (
	// ptePtrFn returns a pointer to the entry at the supplied kernel
	// virtual address. Tests override it to point into fake tables.
	ptePtrFn = func(entryAddr uintptr) unsafe.Pointer {
		return unsafe.Pointer(entryAddr)
	}

	// identityMapFn returns the kernel virtual address through which a
	// physical address can be accessed.
	identityMapFn = func(physAddr uintptr) uintptr {
		return physAddr + identityMapOffset
	}
)

// pageTableEntry describes an IA-32 (non-PAE) page directory or page table
// entry: bits 0-8 hold flags and bits 12-31 hold the frame address.
type pageTableEntry uint32

// HasFlags returns true if this entry has all the input flags set.
func (pte pageTableEntry) HasFlags(flags PageTableEntryFlag) bool {
	return (uint32(pte) & uint32(flags)) == uint32(flags)
}

// Frame returns the physical frame that this entry points to. For a large
// page directory entry this is the first frame of the 4 MiB page.
func (pte pageTableEntry) Frame() mm.Frame {
	mask := ptePhysPageMask
	if pte.HasFlags(FlagLargePage) {
		mask = largePagePhysMask
	}
	return mm.Frame((uintptr(pte) & mask) >> mm.PageShift)
}

// entryAt returns the entry with the given index inside the table that is
// stored in frame.
func entryAt(table mm.Frame, index uintptr) *pageTableEntry {
	entryAddr := identityMapFn(table.Address()) + (index << mm.PointerShift)
	return (*pageTableEntry)(ptePtrFn(entryAddr))
}
