// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package i2cdev

import (
	"bytes"
	"errors"
	"testing"
)

type fakeConn struct {
	addr   uint8
	bus    int
	w      [][]byte
	short  bool
	closed int
}

func (f *fakeConn) WriteBytes(buf []byte) (int, error) {
	f.w = append(f.w, append([]byte(nil), buf...))
	if f.short {
		return len(buf) - 1, nil
	}
	return len(buf), nil
}

func (f *fakeConn) Close() error {
	f.closed++
	return nil
}

// fake replaces the device opener for the duration of the test.
func fake(t *testing.T) *fakeConn {
	f := &fakeConn{}
	old := openConn
	openConn = func(addr uint8, bus int) (conn, error) {
		f.addr = addr
		f.bus = bus
		return f, nil
	}
	t.Cleanup(func() { openConn = old })
	return f
}

func TestOpen(t *testing.T) {
	f := fake(t)
	b, err := Opener(1, 0x27)()
	if err != nil {
		t.Fatal(err)
	}
	if f.addr != 0x27 || f.bus != 1 {
		t.Fatalf("opened 0x%x on %d", f.addr, f.bus)
	}
	if s := b.String(); s != "I2C1@0x27" {
		t.Error(s)
	}
	if err := b.Tx(0x27, nil, nil); err != nil {
		t.Fatal(err)
	}
	if err := b.Tx(0x27, []byte{0x3c}, nil); err != nil {
		t.Fatal(err)
	}
	if len(f.w) != 1 || !bytes.Equal(f.w[0], []byte{0x3c}) {
		t.Fatalf("got %v", f.w)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if f.closed != 1 {
		t.Fatalf("closed %d times", f.closed)
	}
	if err := b.Tx(0x27, []byte{0}, nil); !errors.Is(err, ErrClosed) {
		t.Fatal(err)
	}
}

func TestOpenErrors(t *testing.T) {
	old := openConn
	defer func() { openConn = old }()
	openConn = func(addr uint8, bus int) (conn, error) {
		return nil, errors.New("open /dev/i2c-9: no such file or directory")
	}
	if _, err := Open(9, 0x27); err == nil {
		t.Fatal("expected error")
	}
	if _, err := Open(1, 0x80); err == nil {
		t.Fatal("expected error")
	}
}

func TestTxErrors(t *testing.T) {
	f := fake(t)
	b, err := Open(1, 0x27)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Tx(0x20, []byte{0}, nil); err == nil {
		t.Error("wrong address")
	}
	if err := b.Tx(0x27, nil, make([]byte, 1)); err == nil {
		t.Error("read")
	}
	f.short = true
	if err := b.Tx(0x27, []byte{1, 2}, nil); err == nil {
		t.Error("short write")
	}
	if err := b.SetSpeed(0); err == nil {
		t.Error("SetSpeed")
	}
}
