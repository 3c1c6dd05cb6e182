// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package gpiopin drives a single GPIO line through the Linux sysfs GPIO
// interface (/sys/class/gpio).
//
// The periph sysfs driver exports the line on first use. Call host.Init()
// before Init so that the driver has enumerated the lines.
package gpiopin

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/host/v3/sysfs"
)

var (
	// ErrNotFound is returned by Init when sysfs has no such line.
	ErrNotFound = errors.New("gpiopin: no such GPIO")
	// ErrNotReady is returned by Set before Init or after Halt.
	ErrNotReady = errors.New("gpiopin: pin not initialized")
)

// Pin is one GPIO line used as an output.
type Pin struct {
	n      int
	lookup func(n int) (gpio.PinOut, error)

	mu sync.Mutex
	p  gpio.PinOut
}

// New returns the GPIO line number n. It does no I/O.
func New(n int) *Pin {
	return &Pin{n: n, lookup: sysfsPin}
}

func sysfsPin(n int) (gpio.PinOut, error) {
	p, ok := sysfs.Pins[n]
	if !ok {
		return nil, fmt.Errorf("%w %d", ErrNotFound, n)
	}
	return p, nil
}

func (p *Pin) String() string {
	return fmt.Sprintf("GPIO%d", p.n)
}

// Number returns the line number.
func (p *Pin) Number() int {
	return p.n
}

// Init exports the line and drives it low. Init on an initialized pin does
// nothing.
func (p *Pin) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.p != nil {
		return nil
	}
	pin, err := p.lookup(p.n)
	if err != nil {
		return err
	}
	if err := pin.Out(gpio.Low); err != nil {
		return fmt.Errorf("gpiopin: GPIO%d: %w", p.n, err)
	}
	p.p = pin
	return nil
}

// Set drives the line high when v is true, low otherwise.
func (p *Pin) Set(v bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.p == nil {
		return ErrNotReady
	}
	if err := p.p.Out(gpio.Level(v)); err != nil {
		return fmt.Errorf("gpiopin: GPIO%d: %w", p.n, err)
	}
	return nil
}

// Halt stops using the line. The periph sysfs driver keeps it exported and at
// its last level, so a later Init reuses it. It is safe to call more than
// once; the returned error is only informational.
func (p *Pin) Halt() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.p == nil {
		return nil
	}
	err := p.p.Halt()
	p.p = nil
	if err != nil {
		return fmt.Errorf("gpiopin: GPIO%d: %w", p.n, err)
	}
	return nil
}

var _ conn.Resource = &Pin{}
