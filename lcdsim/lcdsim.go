// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package lcdsim emulates an HD44780 LCD behind a PCF8574 I²C backpack.
//
// Bus implements i2c.BusCloser. Every byte written to the expander address is
// applied to the output lines, and the controller latches a nibble on each
// falling edge of the enable line, exactly as the real chip pair does. The
// resulting controller state (display RAM, address counter, interface mode,
// display control) can be inspected, or drawn with Terminal and Image.
//
// Useful while you are waiting for your LCD to come by mail, and to test the
// driver without one.
package lcdsim

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/GermanBionicSystems/lcd8574/hd44780"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// Opts represents the options available for the emulator.
type Opts struct {
	// Addr is the expander address. Zero is 0x27.
	Addr uint16
	// Rows and Cols is the visible size. Zero is 2x16.
	Rows, Cols int
	// Wiring of the backpack. Nil is hd44780.DefaultWiring.
	Wiring *hd44780.Wiring
	// RowOffsets is the DDRAM address of each row. Nil is row*64.
	RowOffsets []int
	// Start4Bit starts the controller in 4-bit mode, as a previous program
	// would have left it.
	Start4Bit bool
	// PendingNibble, with Start4Bit, also leaves the first half of a byte
	// latched.
	PendingNibble bool
	// FailAfter makes the FailAfter-th write and all the later ones fail.
	// Zero never fails.
	FailAfter int

	_ struct{}
}

// Transfer is one complete transfer decoded by the controller: an instruction
// (RS low) or a character (RS high).
type Transfer struct {
	RS    bool
	Value byte
}

func (t Transfer) String() string {
	if t.RS {
		return fmt.Sprintf("data(0x%02x)", t.Value)
	}
	return fmt.Sprintf("cmd(0x%02x)", t.Value)
}

// IsAddressSet reports whether t is a "set DDRAM address" instruction.
func (t Transfer) IsAddressSet() bool {
	return !t.RS && t.Value&0x80 != 0
}

// State is a snapshot of the controller registers.
type State struct {
	EightBit  bool
	TwoLine   bool
	DisplayOn bool
	CursorOn  bool
	Blink     bool
	Increment bool
	Backlight bool
	// Address is the address counter. It points in CGRAM when CGRAM is set.
	Address int
	CGRAM   bool
}

var (
	// ErrClosed is returned on I/O after Close.
	ErrClosed = errors.New("lcdsim: bus closed")
	// ErrWrite is returned by writes failing on purpose, see Opts.FailAfter.
	ErrWrite = errors.New("lcdsim: remote I/O error")
)

// Bus is a PCF8574 with an HD44780 attached, reachable as an I²C bus.
type Bus struct {
	addr      uint16
	rows      int
	cols      int
	wiring    hd44780.Wiring
	rowOff    []int
	failAfter int

	mu        sync.Mutex
	closed    bool
	opens     int
	closes    int
	writes    int
	last      byte
	raw       []byte
	transfers []Transfer

	// Controller registers.
	eightBit  bool
	pending   bool
	high      byte
	twoLine   bool
	displayOn bool
	cursorOn  bool
	blink     bool
	increment bool
	backlight bool
	cgMode    bool
	ac        int
	ddram     [128]byte
	cgram     [64]byte
}

// New returns a powered up display. The bus starts open.
func New(opts *Opts) *Bus {
	if opts == nil {
		opts = &Opts{}
	}
	s := &Bus{
		addr:      opts.Addr,
		rows:      opts.Rows,
		cols:      opts.Cols,
		wiring:    hd44780.DefaultWiring,
		failAfter: opts.FailAfter,
		eightBit:  !opts.Start4Bit,
		increment: true,
	}
	if s.addr == 0 {
		s.addr = 0x27
	}
	if s.rows == 0 {
		s.rows = 2
	}
	if s.cols == 0 {
		s.cols = 16
	}
	if opts.Wiring != nil {
		s.wiring = *opts.Wiring
	}
	if len(opts.RowOffsets) != 0 {
		s.rowOff = append([]int(nil), opts.RowOffsets...)
	}
	if opts.Start4Bit && opts.PendingNibble {
		s.pending = true
		s.high = 0x0f
	}
	for ix := range s.ddram {
		s.ddram[ix] = ' '
	}
	return s
}

// Open reopens the bus and returns it. The controller keeps its state, as a
// powered display does between two programs. It has the signature of
// hd44780.Opener.
func (s *Bus) Open() (i2c.BusCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = false
	s.opens++
	return s, nil
}

// Close implements i2c.BusCloser. Closing twice is an error, so that tests
// catch a driver releasing its bus more than once.
func (s *Bus) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.closed = true
	s.closes++
	return nil
}

func (s *Bus) String() string {
	return fmt.Sprintf("lcdsim(PCF8574_%x)", s.addr)
}

// SetSpeed implements i2c.Bus.
func (s *Bus) SetSpeed(f physic.Frequency) error {
	return nil
}

// Tx implements i2c.Bus. A transfer with no payload only checks the address,
// like an address select. Reads are not supported: the driver never reads.
func (s *Bus) Tx(addr uint16, w, r []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if addr != s.addr {
		return fmt.Errorf("lcdsim: no device at 0x%x", addr)
	}
	if len(r) != 0 {
		return errors.New("lcdsim: read not supported")
	}
	for _, b := range w {
		s.writes++
		if s.failAfter > 0 && s.writes >= s.failAfter {
			return ErrWrite
		}
		s.output(b)
	}
	return nil
}

// output applies b to the expander lines.
func (s *Bus) output(b byte) {
	prevRS, prevE, _, prevN := s.wiring.Decode(s.last)
	_, e, bl, _ := s.wiring.Decode(b)
	s.backlight = bl
	if prevE && !e {
		s.latch(prevRS, prevN)
	}
	s.last = b
	s.raw = append(s.raw, b)
}

// latch takes the nibble on D4-D7 at a falling edge of the clock.
func (s *Bus) latch(rs bool, n byte) {
	if s.eightBit {
		// D0-D3 are not connected and read as low.
		s.execute(rs, n<<4)
		return
	}
	if !s.pending {
		s.high = n
		s.pending = true
		return
	}
	s.pending = false
	s.execute(rs, s.high<<4|n)
}

func (s *Bus) execute(rs bool, v byte) {
	s.transfers = append(s.transfers, Transfer{RS: rs, Value: v})
	if rs {
		if s.cgMode {
			s.cgram[s.ac&0x3f] = v
		} else {
			s.ddram[s.ac&0x7f] = v
		}
		s.step()
		return
	}
	switch {
	case v&0x80 != 0:
		s.cgMode = false
		s.ac = int(v & 0x7f)
	case v&0x40 != 0:
		s.cgMode = true
		s.ac = int(v & 0x3f)
	case v&0x20 != 0:
		s.eightBit = v&0x10 != 0
		s.twoLine = v&0x08 != 0
		s.pending = false
	case v&0x10 != 0:
		// Display shift is not modeled, only cursor moves.
		if v&0x08 == 0 {
			if v&0x04 != 0 {
				s.move(1)
			} else {
				s.move(-1)
			}
		}
	case v&0x08 != 0:
		s.displayOn = v&0x04 != 0
		s.cursorOn = v&0x02 != 0
		s.blink = v&0x01 != 0
	case v&0x04 != 0:
		s.increment = v&0x02 != 0
	case v&0x02 != 0:
		s.cgMode = false
		s.ac = 0
	case v&0x01 != 0:
		for ix := range s.ddram {
			s.ddram[ix] = ' '
		}
		s.cgMode = false
		s.ac = 0
		s.increment = true
	}
}

// step moves the address counter after a data write, in the entry mode
// direction.
func (s *Bus) step() {
	if s.increment {
		s.move(1)
	} else {
		s.move(-1)
	}
}

// move moves the address counter by d (±1). In 2-line mode, DDRAM is two
// 40 byte lines at 0x00 and 0x40, and the counter jumps between them.
func (s *Bus) move(d int) {
	if s.cgMode {
		s.ac = (s.ac + d) & 0x3f
		return
	}
	a := s.ac + d
	if s.twoLine {
		switch {
		case d > 0 && s.ac == 0x27:
			a = 0x40
		case d > 0 && s.ac == 0x67:
			a = 0x00
		case d < 0 && s.ac == 0x40:
			a = 0x27
		case d < 0 && s.ac == 0x00:
			a = 0x67
		}
	} else {
		switch {
		case d > 0 && s.ac == 0x4f:
			a = 0x00
		case d < 0 && s.ac == 0x00:
			a = 0x4f
		}
	}
	s.ac = a & 0x7f
}

// Rows returns the number of visible rows.
func (s *Bus) Rows() int {
	return s.rows
}

// Cols returns the number of visible columns.
func (s *Bus) Cols() int {
	return s.cols
}

func (s *Bus) rowAddress(row int) int {
	if row < len(s.rowOff) {
		return s.rowOff[row]
	}
	return row * hd44780.RowStride
}

// Cell returns the character code stored for the visible cell row, col.
func (s *Bus) Cell(row, col int) byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ddram[(s.rowAddress(row)+col)&0x7f]
}

// Lines returns the visible text, one string per row, as Glyph maps it. The
// content is returned even when the display is off.
func (s *Bus) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines := make([]string, s.rows)
	var sb strings.Builder
	for row := range s.rows {
		sb.Reset()
		base := s.rowAddress(row)
		for col := range s.cols {
			sb.WriteRune(Glyph(s.ddram[(base+col)&0x7f]))
		}
		lines[row] = sb.String()
	}
	return lines
}

// Cursor returns the visible cell the address counter points to. ok is false
// when it points off the screen or in CGRAM.
func (s *Bus) Cursor() (row, col int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor()
}

func (s *Bus) cursor() (row, col int, ok bool) {
	if s.cgMode {
		return 0, 0, false
	}
	for row = range s.rows {
		col = s.ac - s.rowAddress(row)
		if col >= 0 && col < s.cols {
			return row, col, true
		}
	}
	return 0, 0, false
}

// State returns a snapshot of the controller registers.
func (s *Bus) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		EightBit:  s.eightBit,
		TwoLine:   s.twoLine,
		DisplayOn: s.displayOn,
		CursorOn:  s.cursorOn,
		Blink:     s.blink,
		Increment: s.increment,
		Backlight: s.backlight,
		Address:   s.ac,
		CGRAM:     s.cgMode,
	}
}

// Transfers returns the transfers decoded since New or the last ResetLog.
func (s *Bus) Transfers() []Transfer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Transfer(nil), s.transfers...)
}

// Raw returns the bytes written to the expander since New or the last
// ResetLog.
func (s *Bus) Raw() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.raw...)
}

// ResetLog forgets the recorded transfers and raw writes.
func (s *Bus) ResetLog() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transfers = nil
	s.raw = nil
}

// Opens returns how many times Open was called.
func (s *Bus) Opens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens
}

// Closes returns how many times the bus was closed successfully.
func (s *Bus) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

// Glyph returns the character the HD44780 A00 character ROM shows for code c.
// CGRAM characters are never programmed and show blank, as do codes the ROM
// leaves empty.
func Glyph(c byte) rune {
	switch {
	case c < 0x10:
		return ' '
	case c == 0x5c:
		return '¥'
	case c == 0x7e:
		return '→'
	case c == 0x7f:
		return '←'
	case c == 0xdf:
		return '°'
	case c >= 0x20 && c < 0x7e:
		return rune(c)
	case c >= 0xa1 && c <= 0xde:
		// Half-width katakana occupy the same order in Unicode.
		return rune(0xff61 + int(c) - 0xa1)
	}
	return ' '
}

var _ i2c.BusCloser = &Bus{}
