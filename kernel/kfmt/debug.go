package kfmt

import "io"

// Channel identifies a debug output channel. Debug output is meant for the
// developer (typically a serial line or the emulator's debug port) and is
// kept apart from the console output produced by Printf.
type Channel uint32

const (
	// PM carries paging and page-fault diagnostics.
	PM Channel = 1 << iota

	// Interrupts carries IRQ, exception and spurious interrupt traces.
	Interrupts

	// Backtrace carries stack walks printed for fatal faults.
	Backtrace

	// Syscalls carries system call traces.
	Syscalls

	numChannels = iota
)

var (
	// enabledChannels is a bitmask of the channels whose output is kept.
	enabledChannels = PM | Interrupts | Backtrace

	channelPrefixes = [numChannels][]byte{
		[]byte("[pm] "),
		[]byte("[irq] "),
		[]byte("[bt] "),
		[]byte("[sys] "),
	}

	// earlyDebugBuffer stores Debugf output while no debug sink is attached.
	earlyDebugBuffer ringBuffer

	// debugWriter tags each line written through Debugf with the channel
	// prefix before forwarding it to the debug sink.
	debugWriter = PrefixWriter{Sink: &earlyDebugBuffer}
)

// SetDebugSink redirects Debugf output to w and copies any data accumulated
// in the early debug buffer to it. Passing nil restores the early buffer.
func SetDebugSink(w io.Writer) {
	if w == nil {
		debugWriter.Sink = &earlyDebugBuffer
		return
	}

	debugWriter.Sink = w
	io.Copy(w, &earlyDebugBuffer)
}

// EnableChannels turns on debug output for every channel in mask.
func EnableChannels(mask Channel) {
	enabledChannels |= mask
}

// DisableChannels turns off debug output for every channel in mask.
func DisableChannels(mask Channel) {
	enabledChannels &^= mask
}

// ChannelEnabled returns true if output for ch is currently kept.
func ChannelEnabled(ch Channel) bool {
	return enabledChannels&ch == ch
}

// Debugf formats its arguments like Printf and writes the result to the
// debug sink if ch is enabled. Each output line is prefixed with the name of
// the channel.
func Debugf(ch Channel, format string, args ...interface{}) {
	if !ChannelEnabled(ch) {
		return
	}

	debugWriter.Prefix = channelPrefix(ch)
	Fprintf(&debugWriter, format, args...)
}

// DebugWriter returns an io.Writer that tags each line with the prefix of ch
// and forwards it to the debug sink. If ch is disabled, the returned writer
// discards its input.
func DebugWriter(ch Channel) io.Writer {
	if !ChannelEnabled(ch) {
		return discard{}
	}

	debugWriter.Prefix = channelPrefix(ch)
	return &debugWriter
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// channelPrefix returns the prefix of the lowest channel set in ch.
func channelPrefix(ch Channel) []byte {
	for i := 0; i < numChannels; i++ {
		if ch&(1<<uint(i)) != 0 {
			return channelPrefixes[i]
		}
	}
	return nil
}
