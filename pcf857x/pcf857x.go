// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// This package provides the output channel of a TI/NXP PCF857X I²C I/O
// Expander. These devices provide 8 pins (PCF8574) or 16 pins (PCF8575) of
// "quasi-bidirectional" input/output. This device is commonly used in LCD
// backpacks, particularly those sold as LCD2004, LCD1602.
//
// The PCF8575 is a 16-pin device that is functionally identical to the PCF8574.
// When communicating with the PCF8575 writes are 2 bytes wide, while they're
// one byte wide with the PCF8574.
//
// # Datasheet
//
// https://www.ti.com/lit/ds/symlink/pcf8574.pdf
//
// # Notes
//
// This chip doesn't implement normal i2c register architectures. You write 8 or
// 16 bits out, and that sets the corresponding pins. Every write is a complete
// snapshot of all the output lines, so Dev never merges or skips writes: a
// caller that toggles a clock line relies on each value reaching the wire.
package pcf857x

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
)

// Variant represents the actual chip model.
type Variant string

const (
	PCF8574 Variant = "PCF8574"
	PCF8575 Variant = "PCF8575"

	// DefaultAddress is the address of a PCF8574 with A0-A2 tied low.
	DefaultAddress uint16 = 0x20
	// BackpackAddress is the address most LCD backpacks ship with.
	BackpackAddress uint16 = 0x27
)

var (
	// ErrAddress is returned when the bus refuses the target address.
	ErrAddress = errors.New("pcf857x: invalid address")
	// ErrVariant is returned for an unknown chip model.
	ErrVariant = errors.New("pcf857x: unknown variant")
)

// Dev is representation of a PCF857x device.
type Dev struct {
	width    int
	chipType Variant

	mu    sync.Mutex
	d     *i2c.Dev
	value uint16
}

// New selects address on bus and returns the expander bound to it. chip
// should be one of the Variant constants above.
//
// Selecting the address issues a zero-length transfer. The Linux i2c-dev
// driver validates the address without touching the bus, and a test bus sees
// an I/O with no payload.
func New(bus i2c.Bus, address uint16, chip Variant) (*Dev, error) {
	dev := &Dev{d: &i2c.Dev{Bus: bus, Addr: address}, chipType: chip}
	switch chip {
	case PCF8574:
		dev.width = 8
	case PCF8575:
		dev.width = 16
	default:
		return nil, fmt.Errorf("%w %q", ErrVariant, chip)
	}
	if address > 0x7f {
		return nil, fmt.Errorf("%w 0x%x: not a 7-bit address", ErrAddress, address)
	}
	if err := bus.Tx(address, nil, nil); err != nil {
		return nil, fmt.Errorf("%w 0x%x: %w", ErrAddress, address, err)
	}
	return dev, nil
}

// Out drives all the output lines to value in a single bus transaction. For
// the PCF8574 only the low byte is used.
func (dev *Dev) Out(value uint16) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	w := make([]byte, dev.width/8)
	for ix := range w {
		w[ix] = byte(value >> (ix * 8))
	}
	if err := dev.d.Tx(w, nil); err != nil {
		return fmt.Errorf("pcf857x: %w", err)
	}
	if dev.width == 8 {
		value &= 0xff
	}
	dev.value = value
	return nil
}

// WriteByte drives the low 8 lines to b. It implements io.ByteWriter.
func (dev *Dev) WriteByte(b byte) error {
	return dev.Out(uint16(b))
}

// Last returns the last value successfully written.
func (dev *Dev) Last() uint16 {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.value
}

// Width returns the number of output lines.
func (dev *Dev) Width() int {
	return dev.width
}

// Halt implements conn.Resource. The chip has no shutdown state; the bus is
// owned by the caller.
func (dev *Dev) Halt() error {
	return nil
}

func (dev *Dev) String() string {
	return fmt.Sprintf("%s_%x", dev.chipType, dev.d.Addr)
}
