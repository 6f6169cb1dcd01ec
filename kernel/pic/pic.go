// Package pic drives the pair of cascaded 8259A programmable interrupt
// controllers found on PC compatible machines.
package pic

import "github.com/huawenyu/sweb/kernel/cpu"

const (
	masterCommand = uint16(0x20)
	masterData    = uint16(0x21)
	slaveCommand  = uint16(0xa0)
	slaveData     = uint16(0xa1)

	cmdEndOfInterrupt = uint8(0x20)

	// ICW1: edge triggered, cascade mode, ICW4 follows.
	icw1Init = uint8(0x11)
	// ICW4: 8086 mode.
	icw48086 = uint8(0x01)

	// cascadeIRQ is the master line the slave controller is wired to.
	cascadeIRQ = uint8(2)

	// NumIRQs is the number of IRQ lines served by both controllers.
	NumIRQs = 16
)

var (
	// the following functions are mocked by tests and are automatically
	// inlined by the compiler.
	portWriteByteFn = cpu.PortWriteByte
	portReadByteFn  = cpu.PortReadByte
)

// Controller acknowledges and masks IRQ lines on the 8259A pair.
type Controller struct{}

// Remap reprograms both controllers so that IRQ 0-7 are delivered on
// vectors masterOffset..masterOffset+7 and IRQ 8-15 on
// slaveOffset..slaveOffset+7. The interrupt masks are preserved.
func (Controller) Remap(masterOffset, slaveOffset uint8) {
	masterMask := portReadByteFn(masterData)
	slaveMask := portReadByteFn(slaveData)

	portWriteByteFn(masterCommand, icw1Init)
	portWriteByteFn(slaveCommand, icw1Init)
	portWriteByteFn(masterData, masterOffset)
	portWriteByteFn(slaveData, slaveOffset)
	portWriteByteFn(masterData, 1<<cascadeIRQ)
	portWriteByteFn(slaveData, cascadeIRQ)
	portWriteByteFn(masterData, icw48086)
	portWriteByteFn(slaveData, icw48086)

	portWriteByteFn(masterData, masterMask)
	portWriteByteFn(slaveData, slaveMask)
}

// EndOfInterrupt acknowledges irq. Lines served by the slave controller
// are acknowledged on both controllers.
func (Controller) EndOfInterrupt(irq uint8) {
	if irq >= 8 {
		portWriteByteFn(slaveCommand, cmdEndOfInterrupt)
	}
	portWriteByteFn(masterCommand, cmdEndOfInterrupt)
}

// Mask stops irq from being delivered.
func (Controller) Mask(irq uint8) {
	port, bit := lineOf(irq)
	portWriteByteFn(port, portReadByteFn(port)|bit)
}

// Unmask allows irq to be delivered. Unmasking a line of the slave
// controller also unmasks the cascade line on the master.
func (c Controller) Unmask(irq uint8) {
	if irq >= 8 {
		c.Unmask(cascadeIRQ)
	}
	port, bit := lineOf(irq)
	portWriteByteFn(port, portReadByteFn(port)&^bit)
}

// lineOf returns the data port and mask bit that control irq.
func lineOf(irq uint8) (uint16, uint8) {
	if irq >= 8 {
		return slaveData, 1 << (irq - 8)
	}
	return masterData, 1 << irq
}
