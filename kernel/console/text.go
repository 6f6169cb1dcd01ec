// Package console provides the output devices used by the kernel log: a
// VGA text-mode terminal for console output and the emulator debug port for
// debug channel output.
package console

import "unsafe"

// Attr defines a color attribute.
type Attr uint8

// The set of colors a text-mode cell can use.
const (
	Black Attr = iota
	Blue
	Green
	Cyan
	Red
	Magenta
	Brown
	LightGrey
	Grey
	LightBlue
	LightGreen
	LightCyan
	LightRed
	LightMagenta
	LightBrown
	White
)

const (
	// TextWidth and TextHeight are the dimensions of the VGA text mode
	// set up by the boot loader.
	TextWidth  = 80
	TextHeight = 25

	// TextBufferAddr is the kernel virtual address of the text-mode frame
	// buffer (physical 0xb8000 seen through the identity mapping).
	TextBufferAddr = uintptr(0xc00b8000)

	clearChar = byte(' ')
)

// MakeAttr combines a foreground and a background color.
func MakeAttr(fg, bg Attr) Attr {
	return (bg << 4) | (fg & 0xf)
}

// Text drives a text-mode frame buffer where each cell is a character
// followed by its color attribute.
type Text struct {
	width  uint16
	height uint16

	fb []uint16
}

// Init attaches the console to the width x height frame buffer at fbAddr.
func (cons *Text) Init(width, height uint16, fbAddr uintptr) {
	cons.width = width
	cons.height = height
	cons.fb = unsafe.Slice((*uint16)(unsafe.Pointer(fbAddr)), int(width)*int(height))
}

// Dimensions returns the console width and height in characters.
func (cons *Text) Dimensions() (uint16, uint16) {
	return cons.width, cons.height
}

// Clear blanks the rectangular region at (x, y). The region is clipped to
// the console dimensions.
func (cons *Text) Clear(x, y, width, height uint16) {
	if x > cons.width {
		x = cons.width
	}
	if y > cons.height {
		y = cons.height
	}
	if x+width > cons.width {
		width = cons.width - x
	}
	if y+height > cons.height {
		height = cons.height - y
	}

	blank := uint16(clearChar)
	for row := y; row < y+height; row++ {
		offset := row * cons.width
		for col := x; col < x+width; col++ {
			cons.fb[offset+col] = blank
		}
	}
}

// ScrollUp moves the console contents up by lines rows. The rows at the
// bottom keep their previous contents.
func (cons *Text) ScrollUp(lines uint16) {
	if lines == 0 || lines > cons.height {
		return
	}

	copy(cons.fb, cons.fb[lines*cons.width:])
}

// Write stores ch with the given attribute at (x, y).
func (cons *Text) Write(ch byte, attr Attr, x, y uint16) {
	if x >= cons.width || y >= cons.height {
		return
	}

	cons.fb[y*cons.width+x] = uint16(attr)<<8 | uint16(ch)
}
