// Package cpu exposes the privileged IA-32 instructions used by the trap
// layer. The functions are implemented in assembly for the 386 target; on
// any other GOARCH they are replaced by stubs so the packages that depend
// on them can be unit-tested on a development host.
package cpu

import "github.com/huawenyu/sweb/kernel"

// ErrPrivilegedInstruction is the panic value raised by the host stubs.
var ErrPrivilegedInstruction = &kernel.Error{Module: "cpu", Message: "privileged instruction not available on this GOARCH"}
