// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package i2cdev opens a Linux /dev/i2c-N character device bound to a single
// slave address, and exposes it as a periph i2c.BusCloser.
//
// The address is bound once at open time with the I2C_SLAVE ioctl, through
// github.com/d2r2/go-i2c, so the bus only talks to that one device. Use it
// when the periph host drivers are not wanted; hd44780.BusOpener is the usual
// choice.
package i2cdev

import (
	"errors"
	"fmt"
	"sync"

	"github.com/GermanBionicSystems/lcd8574/hd44780"
	"github.com/d2r2/go-i2c"
	"github.com/d2r2/go-logger"
	periphi2c "periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// ErrClosed is returned on I/O after Close.
var ErrClosed = errors.New("i2cdev: bus closed")

// conn is the part of *i2c.I2C in use.
type conn interface {
	WriteBytes(buf []byte) (int, error)
	Close() error
}

var (
	openConn = func(addr uint8, bus int) (conn, error) {
		c, err := i2c.NewI2C(addr, bus)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	quietOnce sync.Once
)

// Bus is /dev/i2c-N bound to one address.
type Bus struct {
	number int
	addr   uint16

	mu sync.Mutex
	c  conn
}

// Open opens /dev/i2c-<busNumber> and binds it to addr.
func Open(busNumber int, addr uint16) (*Bus, error) {
	if addr > 0x7f {
		return nil, fmt.Errorf("i2cdev: invalid address 0x%x", addr)
	}
	// go-i2c logs every transfer at debug level.
	quietOnce.Do(func() {
		_ = logger.ChangePackageLogLevel("i2c", logger.InfoLevel)
	})
	c, err := openConn(uint8(addr), busNumber)
	if err != nil {
		return nil, fmt.Errorf("i2cdev: %w", err)
	}
	return &Bus{number: busNumber, addr: addr, c: c}, nil
}

// Opener returns an hd44780.Opener for Open.
func Opener(busNumber int, addr uint16) hd44780.Opener {
	return func() (periphi2c.BusCloser, error) {
		return Open(busNumber, addr)
	}
}

func (b *Bus) String() string {
	return fmt.Sprintf("I2C%d@0x%x", b.number, b.addr)
}

// Tx implements i2c.Bus. Only writes to the bound address are supported. A
// transfer with nothing to write is a no-op, the address was already checked
// by the kernel at open time.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.c == nil {
		return ErrClosed
	}
	if addr != b.addr {
		return fmt.Errorf("i2cdev: bound to 0x%x, can't talk to 0x%x", b.addr, addr)
	}
	if len(r) != 0 {
		return errors.New("i2cdev: read not supported")
	}
	if len(w) == 0 {
		return nil
	}
	n, err := b.c.WriteBytes(w)
	if err != nil {
		return fmt.Errorf("i2cdev: %w", err)
	}
	if n != len(w) {
		return fmt.Errorf("i2cdev: short write, %d of %d bytes", n, len(w))
	}
	return nil
}

// SetSpeed implements i2c.Bus. The speed is set by the kernel driver.
func (b *Bus) SetSpeed(f physic.Frequency) error {
	return errors.New("i2cdev: SetSpeed is not supported")
}

// Close implements i2c.BusCloser. It is safe to call more than once.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.c == nil {
		return nil
	}
	err := b.c.Close()
	b.c = nil
	if err != nil {
		return fmt.Errorf("i2cdev: %w", err)
	}
	return nil
}

var _ periphi2c.BusCloser = &Bus{}
