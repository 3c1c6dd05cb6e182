// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package lcd8574 drives HD44780 character displays attached through a
// PCF8574 I²C backpack.
//
// The driver itself is in the hd44780 package, on top of the pcf857x
// expander. lcdsim emulates the pair for tests and for the -backend sim mode
// of cmd/lcdclock. i2cdev is an alternate /dev/i2c-N channel and gpiopin
// drives single sysfs GPIO lines.
package lcd8574
