// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trig

import (
	"fmt"
	"io"
	"log"
	"strings"
)

const (
	fakeBase      = 0x43c00000
	fakeRevision  = 0x00010203
	fakeBuildTime = 0x65a0bc00
)

var discard = WithLogger(log.New(io.Discard, "", 0))

type access struct {
	write bool
	off   uint64 // offset from fakeBase
	v     uint32
}

func (op access) String() string {
	if op.write {
		return fmt.Sprintf("W[0x%02x]=0x%08x", op.off, op.v)
	}
	return fmt.Sprintf("R[0x%02x]=0x%08x", op.off, op.v)
}

func rd(off uint64, v uint32) access { return access{off: off, v: v} }
func wr(off uint64, v uint32) access { return access{write: true, off: off, v: v} }

// fakeBus simulates the register file of a digital trigger peripheral,
// recording all accesses.
type fakeBus struct {
	mem map[uint64]uint32
	ops []access

	// rhooks alter the value read back from a register.
	rhooks map[uint64]func(v uint32) uint32
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		mem: map[uint64]uint32{
			regID:          DeviceID,
			regRevision:    fakeRevision,
			regBuildTime:   fakeBuildTime,
			regSymbolWidth: 16,
			regSymbolNum:   8,
		},
		rhooks: make(map[uint64]func(uint32) uint32),
	}
}

func (bus *fakeBus) Read32(addr uint64) uint32 {
	off := addr - fakeBase
	v := bus.mem[off]
	if hook, ok := bus.rhooks[off]; ok {
		v = hook(v)
	}
	bus.ops = append(bus.ops, rd(off, v))
	return v
}

func (bus *fakeBus) Write32(addr uint64, v uint32) {
	off := addr - fakeBase
	bus.ops = append(bus.ops, wr(off, v))
	switch off {
	case regID, regRevision, regBuildTime, regSymbolWidth, regSymbolNum:
		// read-only
	default:
		bus.mem[off] = v
	}
}

func (bus *fakeBus) reset() { bus.ops = bus.ops[:0] }

func (bus *fakeBus) read(off uint64) bool {
	for _, op := range bus.ops {
		if !op.write && op.off == off {
			return true
		}
	}
	return false
}

func opsString(ops []access) string {
	o := new(strings.Builder)
	for i, op := range ops {
		if i > 0 {
			o.WriteString(" ")
		}
		o.WriteString(op.String())
	}
	return o.String()
}

// memRW is a little in-memory region.
type memRW []byte

func (p memRW) ReadAt(b []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(p)) {
		return 0, io.EOF
	}
	n := copy(b, p[off:])
	if n < len(b) {
		return n, io.EOF
	}
	return n, nil
}

func (p memRW) WriteAt(b []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(p)) {
		return 0, io.ErrShortWrite
	}
	n := copy(p[off:], b)
	if n < len(b) {
		return n, io.ErrShortWrite
	}
	return n, nil
}

type closer struct {
	n   int
	err error
}

func (c *closer) Close() error {
	c.n++
	return c.err
}
