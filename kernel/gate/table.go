// Package gate builds and installs the interrupt descriptor table.
package gate

import (
	"io"
	"unsafe"

	"github.com/huawenyu/sweb/kernel"
	"github.com/huawenyu/sweb/kernel/cpu"
	"github.com/huawenyu/sweb/kernel/kfmt"
)

const descriptorSize = 8

var (
	// ErrVectorOutOfRange is returned by Build for entries that do not
	// fit in an IDT.
	ErrVectorOutOfRange = &kernel.Error{Module: "gate", Message: "vector exceeds the IDT capacity"}

	// loadIDTFn is mocked by tests and is automatically inlined by the
	// compiler.
	loadIDTFn = cpu.LoadIDT
)

// Entry binds a vector to the address of its low-level entry stub. A table
// of entries is sorted by ascending vector and may end with a sentinel
// whose Handler is 0; entries after the sentinel are ignored.
type Entry struct {
	Vector  Vector
	Handler uintptr
}

// IDTR is the value loaded into the IDT register.
type IDTR struct {
	Limit uint16
	Base  uint32
}

// pseudoDescriptor lays out an IDTR value the way LIDT reads it: the limit
// followed by the base without padding. The leading pad keeps base aligned.
type pseudoDescriptor struct {
	_     uint16
	limit uint16
	base  uint32
}

// Table is a built interrupt descriptor table.
type Table struct {
	gates          []Descriptor
	defaultHandler uintptr
	idtr           pseudoDescriptor
}

// Build allocates a table with one gate for each vector up to the highest
// vector in entries. Vectors listed in entries point at their handler; all
// other vectors point at defaultHandler. Every gate is a present, 32-bit
// interrupt gate in the kernel code segment with DPL 0, except the Syscall
// gate which gets DPL 3 when entries registers a handler for it.
//
// Build walks entries and the table with a single cursor and therefore
// relies on entries being sorted.
func Build(entries []Entry, defaultHandler uintptr) (*Table, *kernel.Error) {
	var count, size int
	for ; count < len(entries) && entries[count].Handler != 0; count++ {
		if entries[count].Vector >= MaxVectors {
			return nil, ErrVectorOutOfRange
		}
		if int(entries[count].Vector) >= size {
			size = int(entries[count].Vector) + 1
		}
	}

	if size == 0 {
		size = 1
	}

	t := &Table{
		gates:          make([]Descriptor, size),
		defaultHandler: defaultHandler,
	}

	var next int
	for i := 0; i < size; i++ {
		vec := Vector(i)
		for next < count && entries[next].Vector < vec {
			next++
		}

		handler, dpl := defaultHandler, DPLKernel
		if next < count && entries[next].Vector == vec {
			handler = entries[next].Handler
			if vec == Syscall {
				dpl = DPLUser
			}
		}

		t.gates[i] = NewDescriptor(handler, KernelCodeSelector, InterruptGate, dpl)
	}

	t.idtr.limit = uint16(size*descriptorSize - 1)
	t.idtr.base = uint32(uintptr(unsafe.Pointer(&t.gates[0])))
	return t, nil
}

// Install loads the table into the IDT register. The table must stay
// reachable for as long as it is installed.
func (t *Table) Install() {
	loadIDTFn(uintptr(unsafe.Pointer(&t.idtr.limit)))
}

// Pointer returns the IDTR value that Install loads.
func (t *Table) Pointer() IDTR {
	return IDTR{Limit: t.idtr.limit, Base: t.idtr.base}
}

// Len returns the number of gates in the table.
func (t *Table) Len() int {
	return len(t.gates)
}

// Gate returns the descriptor for vector v. It returns a zero (not present)
// Descriptor if v is not covered by the table.
func (t *Table) Gate(v Vector) Descriptor {
	if int(v) >= len(t.gates) {
		return 0
	}
	return t.gates[v]
}

// DumpTo writes the gates that do not point at the default handler to w.
func (t *Table) DumpTo(w io.Writer) {
	kfmt.Fprintf(w, "IDT at 0x%8x, limit %d, %d gates\n", t.idtr.base, t.idtr.limit, len(t.gates))
	for i, d := range t.gates {
		if d.Offset() == t.defaultHandler {
			continue
		}
		kfmt.Fprintf(w, "%3d: handler 0x%8x selector 0x%2x dpl %d\n", i, d.Offset(), d.Selector(), d.DPL())
	}
}
