// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import (
	"fmt"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
)

// ErrNotImplemented is returned by the TextDisplay functions the controller
// has no instruction for.
var ErrNotImplemented = fmt.Errorf("hd44780: %w", display.ErrNotImplemented)

// Text adapts a Dev to periph.io/x/conn/v3/display.TextDisplay. Rows and
// columns start at 1.
//
// Unlike Dev, Text remembers the display control register, so that Cursor and
// Display can change one setting without clearing the other.
type Text struct {
	dev  *Dev
	mode Mode
}

// NewText returns a TextDisplay for dev. dev should be initialized already;
// the mode it was initialized with is assumed current.
func NewText(dev *Dev) *Text {
	return &Text{dev: dev, mode: dev.mode}
}

// Dev returns the underlying display.
func (t *Text) Dev() *Dev {
	return t.dev
}

// Not supported by this device. Returns display.ErrNotImplemented
func (t *Text) AutoScroll(enabled bool) error {
	return ErrNotImplemented
}

// Clears the screen and moves the cursor to the first position.
func (t *Text) Clear() error {
	return t.dev.Clear()
}

// Return the number of columns the display supports
func (t *Text) Cols() int {
	return t.dev.Cols()
}

// Set the cursor mode. You can pass multiple arguments.
// Cursor(CursorOff, CursorUnderline)
//
// The HD44780 block cursor always blinks, so CursorBlock and CursorBlink are
// the same.
func (t *Text) Cursor(modes ...display.CursorMode) error {
	val := t.mode & ModeDisplayOn
	for _, mode := range modes {
		switch mode {
		case display.CursorOff:
			val &= ModeDisplayOn
		case display.CursorUnderline:
			val |= ModeCursorOn
		case display.CursorBlock, display.CursorBlink:
			val |= ModeCursorBlink
		default:
			return fmt.Errorf("hd44780: unexpected cursor: %d", mode)
		}
	}
	if err := t.dev.SetMode(val); err != nil {
		return err
	}
	t.mode = val
	return nil
}

// Turn the display on / off
func (t *Text) Display(on bool) error {
	val := t.mode &^ ModeDisplayOn
	if on {
		val |= ModeDisplayOn
	}
	if err := t.dev.SetMode(val); err != nil {
		return err
	}
	t.mode = val
	return nil
}

// Halt releases the display. See Dev.Halt.
func (t *Text) Halt() error {
	return t.dev.Halt()
}

// Move the cursor home (MinRow(),MinCol())
func (t *Text) Home() error {
	return t.dev.Home()
}

// Return the min column position.
func (t *Text) MinCol() int {
	return 1
}

// Return the min row position.
func (t *Text) MinRow() int {
	return 1
}

// Move the cursor forward or backward.
func (t *Text) Move(dir display.CursorDirection) error {
	switch dir {
	case display.Backward:
		return t.dev.Command(cmdShift)
	case display.Forward:
		return t.dev.Command(cmdShift | shiftRight)
	case display.Up, display.Down:
		return ErrNotImplemented
	default:
		return fmt.Errorf("hd44780: unexpected direction: %d", dir)
	}
}

// Move the cursor to arbitrary position.
func (t *Text) MoveTo(row, col int) error {
	if row < t.MinRow() || row > t.Rows() || col < t.MinCol() || col > t.Cols() {
		return fmt.Errorf("hd44780: MoveTo(%d,%d) value out of range", row, col)
	}
	return t.dev.SetCursor(row-t.MinRow(), col-t.MinCol())
}

// Return the number of rows the display supports.
func (t *Text) Rows() int {
	return t.dev.Rows()
}

// Return info about the display.
func (t *Text) String() string {
	return t.dev.String()
}

// Write a set of bytes to the display at the cursor.
func (t *Text) Write(p []byte) (int, error) {
	return t.dev.Write(p)
}

// Write a string output to the display.
func (t *Text) WriteString(text string) (int, error) {
	return t.dev.Write([]byte(text))
}

var _ display.TextDisplay = &Text{}
var _ conn.Resource = &Text{}
