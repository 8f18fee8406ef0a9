// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trig

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestMemBus(t *testing.T) {
	const origin = 0x1000

	mem := make(memRW, 8)
	bus := NewMemBus(mem, origin, uint64(len(mem)))

	bus.Write32(origin+4, 0x01020304)
	if got, want := []byte(mem[4:]), []byte{4, 3, 2, 1}; string(got) != string(want) {
		t.Fatalf("invalid little-endian write: got=%v, want=%v", got, want)
	}
	if got, want := bus.Read32(origin+4), uint32(0x01020304); got != want {
		t.Fatalf("invalid read: got=0x%x, want=0x%x", got, want)
	}
	if err := bus.Err(); err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}

	for _, addr := range []uint64{origin - 4, origin + 6, origin + 8} {
		bus := NewMemBus(mem, origin, uint64(len(mem)))
		if got := bus.Read32(addr); got != 0 {
			t.Fatalf("addr=0x%x: invalid out-of-window read: 0x%x", addr, got)
		}
		if bus.Err() == nil {
			t.Fatalf("addr=0x%x: expected an error", addr)
		}

		// errors are sticky.
		bus.Write32(origin, 0xdeadbeef)
		if got, want := binary.LittleEndian.Uint32(mem[:4]), uint32(0); got != want {
			t.Fatalf("addr=0x%x: write after error: got=0x%x, want=0x%x", addr, got, want)
		}
	}

	bus = NewMemBus(mem, origin, uint64(len(mem)))
	bus.Write32(origin+8, 1)
	if bus.Err() == nil {
		t.Fatalf("expected an out-of-window write error")
	}
}

func TestMemBusDevice(t *testing.T) {
	mem := make(memRW, regSpan)
	binary.LittleEndian.PutUint32(mem[regID:], DeviceID)
	binary.LittleEndian.PutUint32(mem[regRevision:], 42)

	dev, err := Open(NewMemBus(mem, 0, regSpan), 0, discard)
	if err != nil {
		t.Fatalf("could not open device: %+v", err)
	}
	defer dev.Close()

	if got, want := dev.Revision(), uint32(42); got != want {
		t.Fatalf("invalid revision: got=%d, want=%d", got, want)
	}
}

func newFakeDevMem(t *testing.T, base uint64) string {
	t.Helper()

	fname := filepath.Join(t.TempDir(), "dev.mem")
	f, err := os.Create(fname)
	if err != nil {
		t.Fatalf("could not create fake dev-mem: %+v", err)
	}
	defer f.Close()

	err = f.Truncate(int64(base) + int64(os.Getpagesize()))
	if err != nil {
		t.Fatalf("could not resize fake dev-mem: %+v", err)
	}

	buf := make([]byte, regSpan)
	binary.LittleEndian.PutUint32(buf[regID:], DeviceID)
	binary.LittleEndian.PutUint32(buf[regRevision:], fakeRevision)
	binary.LittleEndian.PutUint32(buf[regBuildTime:], fakeBuildTime)
	binary.LittleEndian.PutUint32(buf[regSymbolWidth:], 12)
	binary.LittleEndian.PutUint32(buf[regSymbolNum:], 4)
	_, err = f.WriteAt(buf, int64(base))
	if err != nil {
		t.Fatalf("could not fill fake dev-mem: %+v", err)
	}

	err = f.Close()
	if err != nil {
		t.Fatalf("could not close fake dev-mem: %+v", err)
	}
	return fname
}

func TestOpenDevMem(t *testing.T) {
	for _, base := range []uint64{0, 0x2000, 0x2040} {
		fname := newFakeDevMem(t, base)

		dev, err := OpenDevMem(fname, base, discard)
		if err != nil {
			t.Fatalf("base=0x%x: could not open device: %+v", base, err)
		}

		if got, want := dev.BuildTime(), uint32(fakeBuildTime); got != want {
			t.Fatalf("base=0x%x: invalid buildtime: got=0x%x, want=0x%x", base, got, want)
		}

		info, err := dev.Info()
		if err != nil {
			t.Fatalf("base=0x%x: could not read info: %+v", base, err)
		}
		if info.SymbolWidth != 12 || info.SymbolNum != 4 {
			t.Fatalf("base=0x%x: invalid info: %+v", base, info)
		}

		th := Thresholds{0x400, 0x300, 0x200, 0x100}
		err = dev.ConfigureAndEnable(th, PolarityRising)
		if err != nil {
			t.Fatalf("base=0x%x: could not configure trigger: %+v", base, err)
		}

		err = dev.Close()
		if err != nil {
			t.Fatalf("base=0x%x: could not close device: %+v", base, err)
		}

		raw, err := os.ReadFile(fname)
		if err != nil {
			t.Fatalf("base=0x%x: could not read back fake dev-mem: %+v", base, err)
		}
		regs := raw[base:]
		for _, tc := range []struct {
			off  uint64
			want uint32
		}{
			{regTest, 0xAAAAAAAA},
			{regCtrl, 0x3},
			{regUtUh, th.UpperHigh},
			{regUtLh, th.UpperLow},
			{regLtUh, th.LowerHigh},
			{regLtLh, th.LowerLow},
		} {
			if got := binary.LittleEndian.Uint32(regs[tc.off:]); got != tc.want {
				t.Fatalf("base=0x%x: invalid register 0x%02x: got=0x%x, want=0x%x", base, tc.off, got, tc.want)
			}
		}
	}
}

func TestOpenDevMemFail(t *testing.T) {
	_, err := OpenDevMem(filepath.Join(t.TempDir(), "not-there"), 0, discard)
	if err == nil {
		t.Fatalf("expected an error")
	}

	fname := newFakeDevMem(t, 0)
	f, err := os.OpenFile(fname, os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("could not open fake dev-mem: %+v", err)
	}
	_, err = f.WriteAt([]byte{0, 0, 0, 0}, regID)
	if err != nil {
		t.Fatalf("could not clear identity: %+v", err)
	}
	_ = f.Close()

	dev, err := OpenDevMem(fname, 0, discard)
	if !errors.Is(err, ErrIdentity) {
		t.Fatalf("invalid error: got=%+v, want=%+v", err, ErrIdentity)
	}
	if dev != nil {
		t.Fatalf("unexpected device")
	}
}
