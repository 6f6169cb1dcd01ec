// Package mm contains the IA-32 memory layout constants and the page/frame
// index types shared by the trap layer.
package mm

const (
	// PointerShift is equal to log2(unsafe.Sizeof(uint32)), the size of a
	// pointer on IA-32.
	PointerShift = uintptr(2)

	// PageShift is equal to log2(PageSize).
	PageShift = uintptr(12)

	// PageSize defines the size of a standard page in bytes.
	PageSize = uintptr(1 << PageShift)

	// LargePageShift is equal to log2(LargePageSize).
	LargePageShift = uintptr(22)

	// LargePageSize is the size of a page mapped directly by a page
	// directory entry (PSE).
	LargePageSize = uintptr(1 << LargePageShift)

	// UserSpaceEnd is the first address of the kernel half of every address
	// space. Addresses below it belong to user space and are managed by the
	// owning process' loader.
	UserSpaceEnd = uintptr(0x80000000)

	// KernelStart is the lowest address occupied by kernel code and data.
	KernelStart = UserSpaceEnd

	// UserStackTop is the highest address a user stack frame may occupy.
	UserStackTop = uintptr(0x7fffffff)
)

// Frame describes a physical memory page index.
type Frame uintptr

// Address returns the physical address pointed to by this Frame.
func (f Frame) Address() uintptr {
	return uintptr(f << PageShift)
}

// FrameFromAddress returns the Frame that contains physAddr.
func FrameFromAddress(physAddr uintptr) Frame {
	return Frame((physAddr & ^(PageSize - 1)) >> PageShift)
}

// Page describes a virtual memory page index (a virtual page number).
type Page uintptr

// Address returns the virtual address pointed to by this Page.
func (p Page) Address() uintptr {
	return uintptr(p << PageShift)
}

// PageFromAddress returns the Page that contains virtAddr. Unaligned
// addresses are rounded down.
func PageFromAddress(virtAddr uintptr) Page {
	return Page((virtAddr & ^(PageSize - 1)) >> PageShift)
}

// IsUserAddress returns true if addr lies below the user/kernel split.
func IsUserAddress(addr uintptr) bool {
	return addr < UserSpaceEnd
}
