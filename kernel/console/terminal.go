package console

const (
	defaultFg = LightGrey
	defaultBg = Black
)

// Terminal is an io.Writer on top of a Text console that understands CR and
// LF and scrolls once the cursor moves past the last row.
type Terminal struct {
	cons *Text

	width  uint16
	height uint16

	curX    uint16
	curY    uint16
	curAttr Attr
}

// AttachTo connects the terminal to cons and moves the cursor to the top
// left corner.
func (t *Terminal) AttachTo(cons *Text) {
	t.cons = cons
	t.width, t.height = cons.Dimensions()
	t.curX, t.curY = 0, 0
	t.curAttr = MakeAttr(defaultFg, defaultBg)
}

// Clear blanks the terminal.
func (t *Terminal) Clear() {
	t.cons.Clear(0, 0, t.width, t.height)
}

// SetAttr sets the color attribute used for subsequent writes.
func (t *Terminal) SetAttr(attr Attr) {
	t.curAttr = attr
}

// Position returns the current cursor position (x, y).
func (t *Terminal) Position() (uint16, uint16) {
	return t.curX, t.curY
}

// SetPosition moves the cursor to (x, y), clipped to the terminal size.
func (t *Terminal) SetPosition(x, y uint16) {
	if x >= t.width {
		x = t.width - 1
	}
	if y >= t.height {
		y = t.height - 1
	}

	t.curX, t.curY = x, y
}

// Write implements io.Writer.
func (t *Terminal) Write(data []byte) (int, error) {
	for _, b := range data {
		switch b {
		case '\r':
			t.curX = 0
		case '\n':
			t.curX = 0
			t.lf()
		default:
			t.cons.Write(b, t.curAttr, t.curX, t.curY)
			t.curX++
			if t.curX == t.width {
				t.curX = 0
				t.lf()
			}
		}
	}

	return len(data), nil
}

// lf advances the cursor by one line, scrolling the contents if the cursor
// is on the last line.
func (t *Terminal) lf() {
	if t.curY+1 < t.height {
		t.curY++
		return
	}

	t.cons.ScrollUp(1)
	t.cons.Clear(0, t.height-1, t.width, 1)
}
