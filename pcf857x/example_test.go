// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pcf857x_test

import (
	"log"
	"time"

	"github.com/GermanBionicSystems/lcd8574/pcf857x"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

func Example() {
	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}

	// Open default I²C bus.
	bus, err := i2creg.Open("")
	if err != nil {
		log.Fatalf("failed to open I²C: %v", err)
	}
	defer bus.Close()

	// Bind the expander of an LCD backpack.
	extender, err := pcf857x.New(bus, pcf857x.BackpackAddress, pcf857x.PCF8574)
	if err != nil {
		log.Fatalln(err)
	}

	// Blink the backlight line of a typical backpack.
	for range 5 {
		if err = extender.WriteByte(0x08); err != nil {
			log.Fatalln(err)
		}
		time.Sleep(500 * time.Millisecond)
		if err = extender.WriteByte(0x00); err != nil {
			log.Fatalln(err)
		}
		time.Sleep(500 * time.Millisecond)
	}
}
