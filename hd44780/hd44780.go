// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package hd44780 controls the Hitachi LCD display chipset HD-44780 through a
// PCF8574 I²C backpack.
//
// The controller is operated in 4-bit mode so that the register select,
// enable (clock) and backlight lines, together with the upper four data lines,
// fit on the eight outputs of the expander. Every change of the LCD lines is a
// complete one byte write to the expander. Nothing is ever read back from the
// display; the R/W line, if wired, is held low.
//
// A Dev is created with New, which only stores its arguments. Init opens the
// I²C channel, selects the address and runs the power-up handshake. Halt
// closes the channel again.
//
// # Datasheet
//
// https://www.sparkfun.com/datasheets/LCD/HD44780.pdf
//
// https://www.ti.com/lit/ds/symlink/pcf8574.pdf
package hd44780

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/GermanBionicSystems/lcd8574/pcf857x"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
)

// Mode is the value of the display control register. Combine the flags with
// |. Modes are not cumulative: every call to SetMode sets all three bits.
type Mode byte

const (
	ModeCursorBlink Mode = 0x01
	ModeCursorOn    Mode = 0x02
	ModeDisplayOn   Mode = 0x04
)

const (
	cmdClear    byte = 0x01
	cmdHome     byte = 0x02
	cmdControl  byte = 0x08
	cmdShift    byte = 0x10
	cmdFunction byte = 0x20
	cmdSetDDRAM byte = 0x80

	// Function set flags.
	funcLines byte = 0x08 // more than one line
	func8Bit  byte = 0x10

	// Cursor shift flags.
	shiftRight byte = 0x04

	// RowStride is the number of DDRAM addresses occupied by one row of text,
	// regardless of how many columns are visible.
	RowStride = 64

	// settleDelay is held after each edge of the clock line.
	settleDelay = time.Millisecond
	// initDelay is held after each step of the power-up handshake.
	initDelay = 35 * time.Millisecond
)

var (
	// ErrOpen is returned by Init when the I²C channel can't be opened.
	ErrOpen = errors.New("hd44780: can't open I²C device")
	// ErrAddressSelect is returned by Init when the bus doesn't accept the
	// display address.
	ErrAddressSelect = errors.New("hd44780: can't initialize I²C device")
	// ErrTransmission wraps a failed write to the expander.
	ErrTransmission = errors.New("hd44780: transmission failed")
	// ErrNotReady is returned by display operations before Init succeeded or
	// after Halt.
	ErrNotReady = errors.New("hd44780: display not initialized")
)

// Opener opens the channel to the I²C bus the backpack is attached to. The
// returned bus is owned by the Dev and closed by Halt.
type Opener func() (i2c.BusCloser, error)

// BusOpener returns an Opener for the periph registered bus name. On Linux
// the name "1" is /dev/i2c-1. The empty name is the first bus found.
//
// The host drivers must have been loaded with host.Init() first.
func BusOpener(name string) Opener {
	return func() (i2c.BusCloser, error) {
		return i2creg.Open(name)
	}
}

// Opts holds the configuration of a Dev. The zero value selects the defaults.
type Opts struct {
	// Wiring maps the LCD lines to the expander outputs. Nil is DefaultWiring.
	Wiring *Wiring
	// RowOffsets, if set, is the DDRAM address of the first column of each
	// row. By default row r starts at r*RowStride.
	RowOffsets []int
	// Mode is written to the display control register at the end of Init.
	// Zero selects ModeDisplayOn; use Blank to end Init with the display off.
	Mode Mode
	// Blank clears ModeDisplayOn from Mode, so that Init leaves the display
	// off until SetMode turns it on.
	Blank bool
	// Sleep blocks for the hardware settle times. Nil is time.Sleep.
	Sleep func(time.Duration)
}

// Dev is an HD44780 display driven through a PCF8574 backpack.
//
// Every method holds the device lock for its whole duration, so that a string
// written by one goroutine is never interleaved with the nibbles of another.
type Dev struct {
	addr   uint16
	rows   int
	cols   int
	open   Opener
	wiring Wiring
	mode   Mode
	sleep  func(time.Duration)
	rowOff []int

	mu    sync.Mutex
	bus   i2c.BusCloser
	exp   *pcf857x.Dev
	ready bool
}

// New returns a display at address on the bus opened by open, with the given
// number of rows and columns. A nil open uses the first registered bus. The
// size cannot be read from the device; it is only used to keep writes on the
// screen.
//
// New never fails and performs no I/O. Call Init before using the display.
func New(open Opener, address uint16, rows, cols int, opts *Opts) *Dev {
	if opts == nil {
		opts = &Opts{}
	}
	dev := &Dev{
		addr:   address,
		rows:   rows,
		cols:   cols,
		open:   open,
		wiring: DefaultWiring,
		mode:   opts.Mode,
		sleep:  opts.Sleep,
	}
	if opts.Wiring != nil {
		dev.wiring = *opts.Wiring
	}
	if dev.mode == 0 {
		dev.mode = ModeDisplayOn
	}
	if opts.Blank {
		dev.mode &^= ModeDisplayOn
	}
	if dev.sleep == nil {
		dev.sleep = time.Sleep
	}
	if dev.open == nil {
		dev.open = BusOpener("")
	}
	if len(opts.RowOffsets) != 0 {
		dev.rowOff = append([]int(nil), opts.RowOffsets...)
	}
	return dev
}

// initStage names the steps of the power-up handshake, for error reporting.
type initStage int

const (
	stageClosed initStage = iota
	stageChannelOpen
	stageAddressSelected
	stageUnknownMode
	stageForced8Bit
	stage4Bit
	stageMultiLine
	stageCleared
	stageReady
)

var stageNames = [...]string{
	"closed",
	"channel open",
	"address selected",
	"unknown interface mode",
	"forced 8-bit mode",
	"4-bit mode",
	"multi-line mode",
	"cleared",
	"ready",
}

func (s initStage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("initStage(%d)", int(s))
	}
	return stageNames[s]
}

// Init opens the I²C channel, binds the display address and runs the power-up
// handshake that puts the controller in 4-bit, multi-line mode with a clear
// screen.
//
// On failure the channel is released again and the returned error wraps
// ErrOpen, ErrAddressSelect or ErrTransmission together with the underlying
// system error. Init on a ready display does nothing.
func (dev *Dev) Init() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if dev.ready {
		return nil
	}
	if err := dev.wiring.Validate(); err != nil {
		return err
	}
	bus, err := dev.open()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOpen, err)
	}
	dev.bus = bus
	exp, err := pcf857x.New(bus, dev.addr, pcf857x.PCF8574)
	if err != nil {
		_ = dev.release()
		return fmt.Errorf("%w: %w", ErrAddressSelect, err)
	}
	dev.exp = exp
	if at, err := dev.handshake(); err != nil {
		_ = dev.release()
		return fmt.Errorf("hd44780: init stopped at %s: %w", at, err)
	}
	dev.ready = true
	return nil
}

// handshake brings the controller from an unknown interface mode to 4-bit
// mode. It returns the last stage reached.
func (dev *Dev) handshake() (initStage, error) {
	at := stageAddressSelected
	// The expander outputs power up in an undefined state.
	if err := dev.out(0); err != nil {
		return at, err
	}
	dev.sleep(initDelay)

	// The controller is in 8-bit mode after power-on, but a previous program
	// may have left it in 4-bit mode, possibly halfway through a byte. Three
	// 8-bit function sets, sent as single nibbles, land it in 8-bit mode from
	// any of these: a stray nibble can only complete a pending byte.
	at = stageUnknownMode
	for range 3 {
		if err := dev.sendNibble(false, (cmdFunction|func8Bit)>>4); err != nil {
			return at, err
		}
		dev.sleep(initDelay)
		at = stageForced8Bit
	}

	// Still in 8-bit mode, so one nibble is one command.
	if err := dev.sendNibble(false, cmdFunction>>4); err != nil {
		return at, err
	}
	dev.sleep(initDelay)
	at = stage4Bit

	// The controller only knows one line or more than one.
	if err := dev.sendByte(false, cmdFunction|funcLines); err != nil {
		return at, err
	}
	at = stageMultiLine
	if err := dev.sendByte(false, cmdClear); err != nil {
		return at, err
	}
	at = stageCleared
	if err := dev.sendByte(false, cmdControl|byte(dev.mode)); err != nil {
		return at, err
	}
	return stageReady, nil
}

// Halt clears the ready state and closes the I²C channel. It is safe to call
// more than once. The returned error is only informational: the display is
// released either way.
func (dev *Dev) Halt() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	dev.ready = false
	return dev.release()
}

// release closes the channel if open.
func (dev *Dev) release() error {
	if dev.bus == nil {
		return nil
	}
	err := dev.bus.Close()
	dev.bus = nil
	dev.exp = nil
	if err != nil {
		return fmt.Errorf("hd44780: %w", err)
	}
	return nil
}

// Ready reports whether Init succeeded and Halt was not called since.
func (dev *Dev) Ready() bool {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.ready
}

// Rows returns the number of rows of the display.
func (dev *Dev) Rows() int {
	return dev.rows
}

// Cols returns the number of columns of the display.
func (dev *Dev) Cols() int {
	return dev.cols
}

// Address returns the DDRAM address of the cell at row, col.
func (dev *Dev) Address(row, col int) int {
	if row >= 0 && row < len(dev.rowOff) {
		return dev.rowOff[row] + col
	}
	return row*RowStride + col
}

func (dev *Dev) String() string {
	return fmt.Sprintf("HD44780::PCF8574_%x - Rows: %d, Cols: %d", dev.addr, dev.rows, dev.cols)
}

// WriteCharAt writes c at row, col. Positions off the screen are silently
// ignored.
func (dev *Dev) WriteCharAt(row, col int, c byte) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if !dev.ready {
		return ErrNotReady
	}
	if !dev.onScreen(row, col) {
		return nil
	}
	if err := dev.setAddress(row, col); err != nil {
		return err
	}
	return dev.sendByte(true, c)
}

// WriteStringAt writes s starting at row, col, one byte per cell.
//
// When the end of a row is reached and wrap is set, the address moves to the
// start of the next row and the text continues there. Otherwise, or past the
// last row, the rest of s is dropped; the display never scrolls. Nothing is written if row, col is off
// the screen.
func (dev *Dev) WriteStringAt(row, col int, s string, wrap bool) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.writeStringAt(row, col, s, wrap)
}

func (dev *Dev) writeStringAt(row, col int, s string, wrap bool) error {
	if !dev.ready {
		return ErrNotReady
	}
	if !dev.onScreen(row, col) {
		return nil
	}
	if err := dev.setAddress(row, col); err != nil {
		return err
	}
	// The controller increments the address after each character, so only a
	// row change needs a new address: rows are not contiguous in DDRAM.
	// With wrap set, a filled row moves to the next one even when s is done.
	for ix := 0; ix < len(s); ix++ {
		if err := dev.sendByte(true, s[ix]); err != nil {
			return err
		}
		col++
		if col == dev.cols {
			if !wrap || row+1 >= dev.rows {
				break
			}
			row++
			col = 0
			if err := dev.setAddress(row, col); err != nil {
				return err
			}
		}
	}
	return nil
}

// SetCursor moves the cursor to row, col without changing any character.
//
// The controller has no cursor position of its own; the cursor follows the
// DDRAM address counter. This is a string placement with nothing to write,
// which leaves only the address set.
func (dev *Dev) SetCursor(row, col int) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.writeStringAt(row, col, "", true)
}

// Clear blanks the display. As a side effect the controller moves its address
// counter, and so the cursor, home.
func (dev *Dev) Clear() error {
	return dev.Command(cmdClear)
}

// Home moves the cursor to the first cell and undoes any display shift.
func (dev *Dev) Home() error {
	return dev.Command(cmdHome)
}

// SetMode writes the display control register. mode must hold every wanted
// flag: the driver doesn't remember the previous mode.
func (dev *Dev) SetMode(mode Mode) error {
	return dev.Command(cmdControl | byte(mode&(ModeDisplayOn|ModeCursorOn|ModeCursorBlink)))
}

// Command sends a raw instruction byte to the controller.
func (dev *Dev) Command(cmd byte) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if !dev.ready {
		return ErrNotReady
	}
	return dev.sendByte(false, cmd)
}

// Write sends p as character data at the current address. It implements
// io.Writer. No bounds are applied: the controller address counter wraps on
// its own.
func (dev *Dev) Write(p []byte) (n int, err error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if !dev.ready {
		return 0, ErrNotReady
	}
	for _, c := range p {
		if err = dev.sendByte(true, c); err != nil {
			return
		}
		n++
	}
	return
}

func (dev *Dev) onScreen(row, col int) bool {
	return row >= 0 && col >= 0 && row < dev.rows && col < dev.cols
}

func (dev *Dev) setAddress(row, col int) error {
	return dev.sendByte(false, cmdSetDDRAM|byte(dev.Address(row, col)&0x7f))
}

// sendByte sends b as two nibbles, high first.
func (dev *Dev) sendByte(rs bool, b byte) error {
	if err := dev.sendNibble(rs, b>>4); err != nil {
		return err
	}
	return dev.sendNibble(rs, b&0x0f)
}

// sendNibble latches n into the controller. The expander can only change all
// its outputs at once, so the clock pulse is two writes of the same lines:
// once with the clock high, and once low. The falling edge latches.
//
// The clock is never raised by anything else, so it is already low on entry
// and no leading low write is needed.
func (dev *Dev) sendNibble(rs bool, n byte) error {
	b := dev.wiring.Byte(rs, n, true)
	if err := dev.out(b); err != nil {
		return err
	}
	dev.sleep(settleDelay)
	if err := dev.out(dev.wiring.Byte(rs, n, false)); err != nil {
		return err
	}
	dev.sleep(settleDelay)
	return nil
}

func (dev *Dev) out(b byte) error {
	if err := dev.exp.WriteByte(b); err != nil {
		return fmt.Errorf("%w: %w", ErrTransmission, err)
	}
	return nil
}

var _ conn.Resource = &Dev{}
var _ io.Writer = &Dev{}
