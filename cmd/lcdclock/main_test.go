// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/GermanBionicSystems/lcd8574/hd44780"
	"github.com/GermanBionicSystems/lcd8574/lcdsim"
)

func getClock(t *testing.T) (*clock, *lcdsim.Bus) {
	t.Helper()
	open, sim, err := opener("sim", "1", 0x27, 2, 16)
	if err != nil {
		t.Fatal(err)
	}
	dev := hd44780.New(open, 0x27, 2, 16, &hd44780.Opts{Sleep: func(time.Duration) {}})
	if err := dev.Init(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = dev.Halt() })
	now := func() time.Time { return time.Date(2020, 1, 1, 12, 34, 56, 0, time.UTC) }
	return &clock{dev: dev, now: now, sim: sim}, sim
}

func TestRun(t *testing.T) {
	c, sim := getClock(t)
	if err := c.dev.WriteStringAt(1, 0, "leftover garbage", false); err != nil {
		t.Fatal(err)
	}
	if err := c.run(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	lines := sim.Lines()
	if lines[0] != "12:34:56        " || lines[1] != "2020/01/01      " {
		t.Fatalf("got %q", lines)
	}
}

func TestRunCancel(t *testing.T) {
	c, _ := getClock(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan error)
	go func() { done <- c.run(ctx, 0) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop")
	}
}

func TestTerminal(t *testing.T) {
	c, _ := getClock(t)
	var buf bytes.Buffer
	c.term = lcdsim.NewTerminal(&lcdsim.TerminalOpts{W: &buf})
	if err := c.update(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "2020/01/01") {
		t.Fatalf("got %q", buf.String())
	}
}

func TestOpener(t *testing.T) {
	if _, _, err := opener("bogus", "1", 0x27, 2, 16); err == nil {
		t.Error("expected error")
	}
	if _, _, err := opener("ioctl", "one", 0x27, 2, 16); err == nil {
		t.Error("expected error")
	}
	if open, sim, err := opener("ioctl", "1", 0x27, 2, 16); err != nil || open == nil || sim != nil {
		t.Error("ioctl")
	}
}
