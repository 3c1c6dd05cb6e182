// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// lcdclock shows the time and the date on an HD44780 display attached through
// a PCF8574 I²C backpack.
//
// With -backend sim no hardware is needed: the display is emulated and drawn
// on the console.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/GermanBionicSystems/lcd8574/hd44780"
	"github.com/GermanBionicSystems/lcd8574/i2cdev"
	"github.com/GermanBionicSystems/lcd8574/lcdsim"
	"github.com/sirupsen/logrus"
	"periph.io/x/host/v3"
)

// clock writes the current time on a display.
type clock struct {
	dev  *hd44780.Dev
	now  func() time.Time
	sim  *lcdsim.Bus
	term *lcdsim.Terminal
}

// update writes the time on the first row and the date on the second.
func (c *clock) update() error {
	t := c.now()
	if err := c.dev.WriteStringAt(0, 0, t.Format("15:04:05"), false); err != nil {
		return err
	}
	if err := c.dev.WriteStringAt(1, 0, t.Format("2006/01/02"), false); err != nil {
		return err
	}
	logrus.WithField("time", t.Format(time.DateTime)).Debug("updated")
	if c.term != nil {
		return c.term.Draw(c.sim)
	}
	return nil
}

// run updates the display every second until ctx is done or n updates were
// made. n == 0 means forever.
func (c *clock) run(ctx context.Context, n int) error {
	if err := c.dev.Clear(); err != nil {
		return err
	}
	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	for i := 0; n == 0 || i < n; i++ {
		if i != 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-tick.C:
			}
		}
		if err := c.update(); err != nil {
			// The display stays usable, try again next time.
			logrus.WithError(err).Warn("update failed")
		}
	}
	return nil
}

// opener returns how to reach the display for the backend. sim is only set
// for the emulator.
func opener(backend, bus string, addr uint16, rows, cols int) (hd44780.Opener, *lcdsim.Bus, error) {
	switch backend {
	case "periph":
		if _, err := host.Init(); err != nil {
			return nil, nil, err
		}
		return hd44780.BusOpener(bus), nil, nil
	case "ioctl":
		n, err := strconv.Atoi(bus)
		if err != nil {
			return nil, nil, fmt.Errorf("-bus must be a number with -backend ioctl: %w", err)
		}
		return i2cdev.Opener(n, addr), nil, nil
	case "sim":
		sim := lcdsim.New(&lcdsim.Opts{Addr: addr, Rows: rows, Cols: cols})
		return sim.Open, sim, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", backend)
	}
}

func mainImpl() error {
	bus := flag.String("bus", "1", "I²C bus to use")
	addr := flag.Uint("addr", 0x27, "I²C address of the backpack")
	rows := flag.Int("rows", 2, "number of rows of the display")
	cols := flag.Int("cols", 16, "number of columns of the display")
	backend := flag.String("backend", "periph", "periph, ioctl or sim")
	png := flag.String("png", "", "with -backend sim, save the display to this PNG file on exit")
	n := flag.Int("n", 0, "number of updates; 0 runs until interrupted")
	verbose := flag.Bool("v", false, "verbose mode")
	flag.Parse()
	if flag.NArg() != 0 {
		return errors.New("unexpected argument, try -help")
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if *addr > 0x7f {
		return fmt.Errorf("invalid address 0x%x", *addr)
	}
	if *rows < 2 || *cols < 10 {
		return errors.New("the display must have at least 2 rows and 10 columns")
	}
	if *png != "" && *backend != "sim" {
		return errors.New("-png requires -backend sim")
	}

	open, sim, err := opener(*backend, *bus, uint16(*addr), *rows, *cols)
	if err != nil {
		return err
	}
	dev := hd44780.New(open, uint16(*addr), *rows, *cols, nil)
	log := logrus.WithFields(logrus.Fields{"backend": *backend, "dev": dev.String()})
	log.Info("initializing display")
	if err := dev.Init(); err != nil {
		return err
	}
	defer func() {
		if err := dev.Halt(); err != nil {
			log.WithError(err).Warn("halt")
		}
	}()

	c := &clock{dev: dev, now: time.Now, sim: sim}
	if sim != nil {
		c.term = lcdsim.NewTerminal(nil)
		defer c.term.Halt()
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := c.run(ctx, *n); err != nil {
		return err
	}
	log.Info("stopping")
	if *png != "" {
		if err := lcdsim.SavePNG(sim, *png); err != nil {
			return err
		}
		log.WithField("path", *png).Info("saved snapshot")
	}
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "lcdclock: %s.\n", err)
		os.Exit(1)
	}
}
