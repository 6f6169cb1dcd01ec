package vmm

import (
	"testing"
	"unsafe"

	"github.com/huawenyu/sweb/kernel/mm"
)

// makeEntry encodes an entry the way the paging code of the kernel lays
// out its tables.
func makeEntry(frame mm.Frame, flags PageTableEntryFlag) pageTableEntry {
	return pageTableEntry(uint32(frame.Address()&ptePhysPageMask) | uint32(flags))
}

func TestPageTableEntryFlags(t *testing.T) {
	specs := []struct {
		pte   pageTableEntry
		flags PageTableEntryFlag
		exp   bool
	}{
		{0, FlagPresent, false},
		{makeEntry(mm.Frame(1), FlagPresent), FlagPresent, true},
		{makeEntry(mm.Frame(1), FlagPresent), FlagPresent | FlagRW, false},
		{makeEntry(mm.Frame(1), FlagPresent|FlagRW|FlagUserAccessible), FlagPresent | FlagUserAccessible, true},
		// Frame bits must never be mistaken for flags.
		{makeEntry(mm.Frame(0xfffff), 0), FlagGlobal, false},
	}

	for specIndex, spec := range specs {
		if got := spec.pte.HasFlags(spec.flags); got != spec.exp {
			t.Errorf("[spec %d] expected HasFlags(0x%x) on 0x%x to return %t; got %t", specIndex, uint32(spec.flags), uint32(spec.pte), spec.exp, got)
		}
	}
}

func TestPageTableEntryFrame(t *testing.T) {
	specs := []struct {
		pte pageTableEntry
		exp mm.Frame
	}{
		{makeEntry(mm.Frame(123), FlagPresent|FlagRW), mm.Frame(123)},
		{makeEntry(mm.Frame(0xfffff), FlagPresent|FlagDirty|FlagAccessed), mm.Frame(0xfffff)},
		// Large pages only encode 4 MiB aligned frames.
		{makeEntry(mm.FrameFromAddress(0x00c01000), FlagPresent|FlagLargePage), mm.FrameFromAddress(0x00c00000)},
	}

	for specIndex, spec := range specs {
		if got := spec.pte.Frame(); got != spec.exp {
			t.Errorf("[spec %d] expected Frame() to return %v; got %v", specIndex, spec.exp, got)
		}
	}
}

// fakePhysMem backs page tables with Go memory. Tables are keyed by the
// physical address of the frame they live in.
type fakePhysMem map[uintptr]*[entriesPerTable]pageTableEntry

func (m fakePhysMem) entry(entryAddr uintptr) unsafe.Pointer {
	base := entryAddr &^ (mm.PageSize - 1)
	tbl, ok := m[base]
	if !ok {
		tbl = new([entriesPerTable]pageTableEntry)
		m[base] = tbl
	}
	return unsafe.Pointer(&tbl[(entryAddr&(mm.PageSize-1))>>mm.PointerShift])
}

func (m fakePhysMem) set(table mm.Frame, index uintptr, frame mm.Frame, flags PageTableEntryFlag) {
	pte := (*pageTableEntry)(m.entry(table.Address() + (index << mm.PointerShift)))
	*pte = makeEntry(frame, flags)
}

// useFakePhysMem installs a fresh fakePhysMem and returns it together with
// a function that restores the real accessors.
func useFakePhysMem() (fakePhysMem, func()) {
	origPtePtr, origIdentity := ptePtrFn, identityMapFn

	mem := make(fakePhysMem)
	ptePtrFn = mem.entry
	identityMapFn = func(physAddr uintptr) uintptr { return physAddr }

	return mem, func() {
		ptePtrFn = origPtePtr
		identityMapFn = origIdentity
	}
}

func TestEntryAt(t *testing.T) {
	defer func(orig func(uintptr) unsafe.Pointer) {
		ptePtrFn = orig
	}(ptePtrFn)

	var gotAddr uintptr
	ptePtrFn = func(entryAddr uintptr) unsafe.Pointer {
		gotAddr = entryAddr
		return nil
	}

	entryAt(mm.Frame(0x10), 3)
	if exp := identityMapOffset + 0x10000 + 3*4; gotAddr != exp {
		t.Fatalf("expected entry address 0x%x; got 0x%x", exp, gotAddr)
	}
}
