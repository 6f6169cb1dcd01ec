package main

import "github.com/huawenyu/sweb/kernel/kmain"

// The boot code stores the location of the trap entry stubs and the end of
// kernel memory (the kernel image followed by the kernel heap) here before
// jumping to main.
var (
	trapStubBase    uintptr
	trapStubSize    uintptr
	defaultTrapStub uintptr
	kernelMemoryEnd uintptr
)

// main is the only Go symbol that is visible (exported) from the boot
// code. It works as a trampoline for calling the actual kernel entrypoint
// (kmain.Kmain) and is intentionally defined to prevent the Go compiler
// from optimizing away the actual kernel code as it is not aware of the
// presence of the boot code.
//
// Global variables are passed as arguments to Kmain to prevent the compiler
// from inlining the call and removing Kmain from the generated object file.
//
// main is not expected to return. If it does, the boot code will halt the
// CPU.
func main() {
	kmain.Kmain(trapStubBase, trapStubSize, defaultTrapStub, kernelMemoryEnd)
}
