package console

import "github.com/huawenyu/sweb/kernel/cpu"

// BochsDebugPort is the I/O port that Bochs and QEMU (with -debugcon)
// echo to the host.
const BochsDebugPort = uint16(0xe9)

// portWriteByteFn is mocked by tests and is automatically inlined by the
// compiler.
var portWriteByteFn = cpu.PortWriteByte

// DebugPort is an io.Writer that sends every byte to an I/O port.
type DebugPort struct {
	Port uint16
}

// Write implements io.Writer.
func (p DebugPort) Write(data []byte) (int, error) {
	for _, b := range data {
		portWriteByteFn(p.Port, b)
	}
	return len(data), nil
}
