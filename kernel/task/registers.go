package task

import (
	"io"

	"github.com/huawenyu/sweb/kernel/kfmt"
)

// Registers is a register save area. Every thread owns one for its kernel
// half and, if it has a user-space image, one for its user half. The
// context-switch primitive resumes execution from the save area selected by
// Context.Active.
type Registers struct {
	EAX uint32
	EBX uint32
	ECX uint32
	EDX uint32
	ESI uint32
	EDI uint32
	EBP uint32
	ESP uint32

	// The return frame used by IRET.
	EIP    uint32
	CS     uint32
	EFlags uint32
	SS     uint32

	DS uint32
	ES uint32
	FS uint32
	GS uint32

	// CR3 holds the physical address of the page directory that is
	// loaded when this save area is resumed.
	CR3 uint32
}

// DumpTo outputs the register contents to w.
func (r *Registers) DumpTo(w io.Writer) {
	kfmt.Fprintf(w, "EAX = %8x EBX = %8x ECX = %8x EDX = %8x\n", r.EAX, r.EBX, r.ECX, r.EDX)
	kfmt.Fprintf(w, "ESI = %8x EDI = %8x EBP = %8x ESP = %8x\n", r.ESI, r.EDI, r.EBP, r.ESP)
	kfmt.Fprintf(w, "EIP = %8x CS  = %8x SS  = %8x EFL = %8x\n", r.EIP, r.CS, r.SS, r.EFlags)
	kfmt.Fprintf(w, "DS  = %8x ES  = %8x FS  = %8x GS  = %8x\n", r.DS, r.ES, r.FS, r.GS)
	kfmt.Fprintf(w, "CR3 = %8x\n", r.CR3)
}
