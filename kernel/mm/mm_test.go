package mm

import "testing"

func TestPageMethods(t *testing.T) {
	for pageIndex := uintptr(0); pageIndex < 128; pageIndex++ {
		page := Page(pageIndex)

		if exp, got := pageIndex<<PageShift, page.Address(); got != exp {
			t.Errorf("expected page (%d, index: %d) call to Address() to return %x; got %x", page, pageIndex, exp, got)
		}
	}
}

func TestPageFromAddress(t *testing.T) {
	specs := []struct {
		input   uintptr
		expPage Page
	}{
		{0, Page(0)},
		{4095, Page(0)},
		{4096, Page(1)},
		{0x00001234, Page(1)},
		{0x80000000, Page(0x80000)},
		{0xfffff123, Page(0xfffff)},
	}

	for specIndex, spec := range specs {
		if got := PageFromAddress(spec.input); got != spec.expPage {
			t.Errorf("[spec %d] expected returned page to be %v; got %v", specIndex, spec.expPage, got)
		}
	}
}

func TestFrameFromAddress(t *testing.T) {
	specs := []struct {
		input    uintptr
		expFrame Frame
	}{
		{0, Frame(0)},
		{0x1fff, Frame(1)},
		{0x00400000, Frame(0x400)},
	}

	for specIndex, spec := range specs {
		got := FrameFromAddress(spec.input)
		if got != spec.expFrame {
			t.Errorf("[spec %d] expected returned frame to be %v; got %v", specIndex, spec.expFrame, got)
		}

		if exp := spec.input &^ (PageSize - 1); got.Address() != exp {
			t.Errorf("[spec %d] expected frame address %x; got %x", specIndex, exp, got.Address())
		}
	}
}

func TestIsUserAddress(t *testing.T) {
	specs := []struct {
		addr uintptr
		exp  bool
	}{
		{0, true},
		{0x00001000, true},
		{0x7fffffff, true},
		{0x80000000, false},
		{0xc0000000, false},
	}

	for specIndex, spec := range specs {
		if got := IsUserAddress(spec.addr); got != spec.exp {
			t.Errorf("[spec %d] expected IsUserAddress(0x%x) to return %t; got %t", specIndex, spec.addr, spec.exp, got)
		}
	}
}
