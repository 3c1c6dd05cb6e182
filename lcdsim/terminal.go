// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdsim

import (
	"bytes"
	"fmt"
	"image/color"
	"io"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
)

// TerminalOpts represents the options available for Terminal.
type TerminalOpts struct {
	// W is where to draw. Nil is the console.
	W       io.Writer
	Palette *ansi256.Palette

	_ struct{}
}

var (
	litColor     = color.NRGBA{0x9c, 0xcc, 0x3c, 255}
	unlitColor   = color.NRGBA{0x30, 0x40, 0x20, 255}
	cursorEscape = "\033[4m"
	blinkEscape  = "\033[7m"
)

// Terminal draws a Bus on the console, redrawing over the previous frame.
type Terminal struct {
	w       io.Writer
	palette ansi256.Palette
	drawn   int
	buf     bytes.Buffer
}

// NewTerminal returns a Terminal drawing at the console.
func NewTerminal(opts *TerminalOpts) *Terminal {
	if opts == nil {
		opts = &TerminalOpts{}
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	w := opts.W
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	return &Terminal{w: w, palette: *p}
}

func (t *Terminal) String() string {
	return "lcdsim.Terminal"
}

// Draw draws the visible content of s. The cursor cell is underlined, or
// reversed when blinking.
func (t *Terminal) Draw(s *Bus) error {
	lines := s.Lines()
	st := s.State()
	row, col, ok := s.Cursor()

	t.buf.Reset()
	if t.drawn != 0 {
		fmt.Fprintf(&t.buf, "\033[%dA", t.drawn)
	}
	// The frame shows the backlight.
	bezel := t.palette.Block(unlitColor)
	if st.Backlight {
		bezel = t.palette.Block(litColor)
	}
	t.bezelRow(bezel, s.Cols()+2)
	for r, line := range lines {
		_, _ = t.buf.WriteString("\r\033[0m")
		_, _ = t.buf.WriteString(bezel)
		_, _ = t.buf.WriteString("\033[0m")
		c := 0
		for _, g := range line {
			if !st.DisplayOn {
				g = ' '
			}
			if st.DisplayOn && ok && r == row && c == col && (st.CursorOn || st.Blink) {
				if st.Blink {
					_, _ = t.buf.WriteString(blinkEscape)
				} else {
					_, _ = t.buf.WriteString(cursorEscape)
				}
				_, _ = t.buf.WriteRune(g)
				_, _ = t.buf.WriteString("\033[0m")
			} else {
				_, _ = t.buf.WriteRune(g)
			}
			c++
		}
		_, _ = t.buf.WriteString(bezel)
		_, _ = t.buf.WriteString("\033[0m\n")
	}
	t.bezelRow(bezel, s.Cols()+2)
	t.drawn = len(lines) + 2
	_, err := t.buf.WriteTo(t.w)
	return err
}

func (t *Terminal) bezelRow(block string, n int) {
	_, _ = t.buf.WriteString("\r\033[0m")
	for range n {
		_, _ = t.buf.WriteString(block)
	}
	_, _ = t.buf.WriteString("\033[0m\n")
}

// Halt implements conn.Resource. It resets the console colors.
func (t *Terminal) Halt() error {
	_, err := t.w.Write([]byte("\033[0m"))
	return err
}
