// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780_test

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/GermanBionicSystems/lcd8574/hd44780"
	"github.com/GermanBionicSystems/lcd8574/lcdsim"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/display/displaytest"
	"periph.io/x/host/v3"
)

// Show the time on a 16x2 display at the usual backpack address on
// /dev/i2c-1.
func Example() {
	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}
	dev := hd44780.NewPCF857xBackpack("1", 0x27, 2, 16)
	if err := dev.Init(); err != nil {
		log.Fatal(err)
	}
	defer dev.Halt()
	fmt.Println(dev)
	for range 10 {
		now := time.Now()
		_ = dev.WriteStringAt(0, 0, now.Format("15:04:05"), false)
		_ = dev.WriteStringAt(1, 0, now.Format("2006/01/02"), false)
		time.Sleep(time.Second)
	}
}

// The emulator stands in for the hardware.
func ExampleNew() {
	sim := lcdsim.New(&lcdsim.Opts{Rows: 2, Cols: 16})
	dev := hd44780.New(sim.Open, 0x27, 2, 16, nil)
	if err := dev.Init(); err != nil {
		log.Fatal(err)
	}
	_ = dev.WriteStringAt(0, 0, "12:34:56", false)
	_ = dev.WriteStringAt(1, 0, "2020/01/01", false)
	for _, line := range sim.Lines() {
		fmt.Printf("%q\n", line)
	}
	if err := dev.Halt(); err != nil {
		log.Fatal(err)
	}
	// Output:
	// "12:34:56        "
	// "2020/01/01      "
}

// Use the display through the periph display.TextDisplay interface.
func ExampleNewText() {
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}
	dev := hd44780.NewPCF857xBackpack("1", 0x27, 4, 20)
	if err := dev.Init(); err != nil {
		log.Fatal(err)
	}
	text := hd44780.NewText(dev)
	defer text.Halt()
	_ = text.Clear()
	_, _ = text.WriteString("Hello")
	time.Sleep(5 * time.Second)
	for _, e := range displaytest.TestTextDisplay(text, true) {
		if !errors.Is(e, display.ErrNotImplemented) {
			log.Println(e)
		}
	}
}
