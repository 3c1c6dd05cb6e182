// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import (
	"errors"
	"fmt"
)

// Wiring describes how the LCD module pins are connected to the PCF8574
// outputs. Each field is the output number, 0-7.
type Wiring struct {
	// RS is register select, pin 4 on the LCD module. 0=command, 1=data.
	RS int
	// RW is read/write, pin 5 on the LCD module. It is always driven low. Set
	// to -1 if the pin is tied to 0V.
	RW int
	// E is the clock, usually called enable, pin 6 on the LCD module. The
	// controller latches on its falling edge.
	E int
	// Backlight is the output switching the backlight LED. Set to -1 if the
	// backlight is hard-wired on.
	Backlight int
	// BacklightActiveLow is set when a low output turns the backlight on.
	BacklightActiveLow bool
	// Data holds the outputs of D4, D5, D6 and D7, pins 11-14. D0-D3 are not
	// connected in 4-bit mode.
	Data [4]int
}

var (
	// DefaultWiring is the layout of the common LCD1602/LCD2004 backpacks.
	//
	// https://www.handsontec.com/dataspecs/I2C_2004_LCD.pdf
	DefaultWiring = Wiring{RS: 0, RW: 1, E: 2, Backlight: 3, Data: [4]int{4, 5, 6, 7}}

	// MJKDZWiring is the layout of the mjkdz brand backpacks, which also
	// invert the backlight.
	MJKDZWiring = Wiring{E: 4, RW: 5, RS: 6, Backlight: 7, BacklightActiveLow: true, Data: [4]int{0, 1, 2, 3}}

	// RowOffsets20x4 are the row addresses of the 4 row displays, which are
	// two 40 character lines each split in half.
	RowOffsets20x4 = []int{0x00, 0x40, 0x14, 0x54}

	// ErrWiring is returned by Init for an impossible Wiring.
	ErrWiring = errors.New("hd44780: invalid wiring")
)

// Validate checks every line is on a distinct output 0-7. RW and Backlight
// may be -1.
func (w *Wiring) Validate() error {
	var used byte
	lines := []struct {
		name     string
		bit      int
		optional bool
	}{
		{"RS", w.RS, false},
		{"RW", w.RW, true},
		{"E", w.E, false},
		{"Backlight", w.Backlight, true},
		{"D4", w.Data[0], false},
		{"D5", w.Data[1], false},
		{"D6", w.Data[2], false},
		{"D7", w.Data[3], false},
	}
	for _, l := range lines {
		if l.bit == -1 && l.optional {
			continue
		}
		if l.bit < 0 || l.bit > 7 {
			return fmt.Errorf("%w: %s on output %d", ErrWiring, l.name, l.bit)
		}
		if used&(1<<l.bit) != 0 {
			return fmt.Errorf("%w: %s shares output %d", ErrWiring, l.name, l.bit)
		}
		used |= 1 << l.bit
	}
	return nil
}

// Byte returns the expander output that puts nibble n on the data lines with
// register select rs and the clock line at e. The backlight is always on.
func (w *Wiring) Byte(rs bool, n byte, e bool) byte {
	var b byte
	for ix, bit := range w.Data {
		b = setBit(b, bit, n&(1<<ix) != 0)
	}
	b = setBit(b, w.RS, rs)
	b = setBit(b, w.RW, false)
	b = setBit(b, w.E, e)
	b = setBit(b, w.Backlight, !w.BacklightActiveLow)
	return b
}

// Decode splits an expander output back into the LCD lines. A backlight
// without a control line reads as on.
func (w *Wiring) Decode(b byte) (rs, e, backlight bool, n byte) {
	for ix, bit := range w.Data {
		if getBit(b, bit) {
			n |= 1 << ix
		}
	}
	backlight = true
	if w.Backlight >= 0 {
		backlight = getBit(b, w.Backlight) != w.BacklightActiveLow
	}
	return getBit(b, w.RS), getBit(b, w.E), backlight, n
}

func setBit(b byte, bit int, v bool) byte {
	if bit < 0 {
		return b
	}
	if v {
		return b | 1<<bit
	}
	return b &^ (1 << bit)
}

func getBit(b byte, bit int) bool {
	return bit >= 0 && b&(1<<bit) != 0
}

// NewPCF857xBackpack returns a display attached through a PCF8574 backpack
// with the DefaultWiring, on the periph registered I²C bus busName.
//
// Like New, this only stores the configuration. Call Init to open the bus and
// bring up the display.
func NewPCF857xBackpack(busName string, address uint16, rows, cols int) *Dev {
	return New(BusOpener(busName), address, rows, cols, nil)
}
