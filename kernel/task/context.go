// Package task describes the execution context the trap layer operates on.
// Contexts are owned by the scheduler; trap handlers receive an exclusive
// reference to the interrupted one and only flip the fields documented
// below, always with interrupts masked.
package task

import (
	"io"

	"github.com/huawenyu/sweb/kernel/kfmt"
	"github.com/huawenyu/sweb/kernel/mm"
)

// Loader manages the user address space of a process.
type Loader interface {
	// LoadOnePage resolves a demand fault at addr. It either maps the
	// page that contains addr or terminates the calling thread.
	LoadOnePage(addr uintptr)

	// PageDirectory returns the frame that holds the root paging
	// structure of the address space.
	PageDirectory() mm.Frame
}

// Context is a schedulable thread together with its register save areas.
type Context struct {
	TID  uint32
	Name string

	// Kernel is always valid.
	Kernel *Registers

	// User is nil for threads without a user-space image.
	User *Registers

	// Active selects the save area that the context-switch primitive
	// resumes. It always points to either Kernel or User.
	Active *Registers

	// SwitchToUserspace is set while the thread is expected to resume in
	// user mode once the current trap completes.
	SwitchToUserspace bool

	// KernelStackLow and KernelStackHigh delimit the thread's kernel
	// stack: [KernelStackLow, KernelStackHigh).
	KernelStackLow  uintptr
	KernelStackHigh uintptr

	// Loader is nil for threads without a managed address space.
	Loader Loader
}

// HasUserSpace returns true if the thread owns a user save area.
func (c *Context) HasUserSpace() bool {
	return c.User != nil
}

// EnterKernel marks the context as not returning to user mode and makes
// the kernel save area active. It returns the previous value of
// SwitchToUserspace which must later be handed to LeaveKernel. Callers must
// have interrupts masked; after EnterKernel returns it is safe to enable
// them because a nested trap can no longer resume user execution.
func (c *Context) EnterKernel() bool {
	saved := c.SwitchToUserspace
	c.SwitchToUserspace = false
	c.Active = c.Kernel
	return saved
}

// LeaveKernel restores the SwitchToUserspace flag saved by EnterKernel and,
// if the thread is returning to user mode, makes the user save area active.
// It returns the restored flag. Callers must have interrupts masked.
func (c *Context) LeaveKernel(saved bool) bool {
	c.SwitchToUserspace = saved
	if saved && c.User != nil {
		c.Active = c.User
	}
	return c.SwitchToUserspace
}

// ReturnToUser unconditionally selects the user save area for the next
// resume. Callers must have interrupts masked.
func (c *Context) ReturnToUser() {
	c.SwitchToUserspace = true
	c.Active = c.User
}

// DumpTo prints the thread identity and its save areas to w. When
// userOnly is false the kernel save area is printed as well.
func (c *Context) DumpTo(w io.Writer, userOnly bool) {
	kfmt.Fprintf(w, "thread %d (%s) switch_to_userspace: %t\n", c.TID, c.Name, c.SwitchToUserspace)
	if !userOnly && c.Kernel != nil {
		kfmt.Fprintf(w, "kernel registers:\n")
		c.Kernel.DumpTo(w)
	}
	if c.User != nil {
		kfmt.Fprintf(w, "user registers:\n")
		c.User.DumpTo(w)
	}
}
