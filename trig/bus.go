// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trig

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/go-lpc/dtrig/internal/mmap"
)

// Bus performs 32-bit memory-mapped register accesses at absolute
// addresses.
//
// A Bus may also implement:
//
//	Err() error
//
// in which case the first I/O failure it reports is returned by the
// Device operations.
type Bus interface {
	Read32(addr uint64) uint32
	Write32(addr uint64, v uint32)
}

type errBus interface {
	Err() error
}

// ReaderWriterAt is a random-access memory region.
type ReaderWriterAt interface {
	io.ReaderAt
	io.WriterAt
}

// MemBus is a little-endian Bus over a random-access memory region,
// such as a memory-mapped window of /dev/mem.
//
// I/O errors are sticky: once an access failed, all subsequent
// accesses are no-ops and Err reports the first failure.
type MemBus struct {
	rw     ReaderWriterAt
	origin uint64 // address of the first byte of rw
	size   uint64

	err error
	buf [4]byte
}

// NewMemBus returns a Bus over the size bytes of rw, whose first byte
// sits at address origin.
func NewMemBus(rw ReaderWriterAt, origin, size uint64) *MemBus {
	return &MemBus{rw: rw, origin: origin, size: size}
}

func (bus *MemBus) offset(addr uint64) (int64, error) {
	if addr < bus.origin || addr+4 > bus.origin+bus.size {
		return 0, fmt.Errorf(
			"address 0x%x out of bus window [0x%x, 0x%x)",
			addr, bus.origin, bus.origin+bus.size,
		)
	}
	return int64(addr - bus.origin), nil
}

// Read32 implements Bus.
func (bus *MemBus) Read32(addr uint64) uint32 {
	if bus.err != nil {
		return 0
	}
	off, err := bus.offset(addr)
	if err != nil {
		bus.err = fmt.Errorf("trig: could not read register 0x%x: %w", addr, err)
		return 0
	}
	_, err = bus.rw.ReadAt(bus.buf[:4], off)
	if err != nil {
		bus.err = fmt.Errorf("trig: could not read register 0x%x: %w", addr, err)
		return 0
	}
	return binary.LittleEndian.Uint32(bus.buf[:4])
}

// Write32 implements Bus.
func (bus *MemBus) Write32(addr uint64, v uint32) {
	if bus.err != nil {
		return
	}
	off, err := bus.offset(addr)
	if err != nil {
		bus.err = fmt.Errorf("trig: could not write register 0x%x: %w", addr, err)
		return
	}
	binary.LittleEndian.PutUint32(bus.buf[:4], v)
	_, err = bus.rw.WriteAt(bus.buf[:4], off)
	if err != nil {
		bus.err = fmt.Errorf("trig: could not write register 0x%x: %w", addr, err)
		return
	}
}

// Err returns the first I/O error encountered on the bus.
func (bus *MemBus) Err() error {
	return bus.err
}

// OpenDevMem maps the register block located at physical address base
// from the devmem file (usually /dev/mem) and opens the device through it.
//
// The file and its mapping are owned by the returned device and released
// by Close.
func OpenDevMem(devmem string, base uint64, opts ...Option) (*Device, error) {
	f, err := os.OpenFile(devmem, os.O_RDWR|os.O_SYNC, 0666)
	if err != nil {
		return nil, fmt.Errorf("trig: could not open %q: %w", devmem, err)
	}
	defer func() {
		if err != nil {
			_ = f.Close()
		}
	}()

	mem, err := mmap.Map(f, int64(base), regSpan)
	if err != nil {
		return nil, fmt.Errorf("trig: could not mmap register block at 0x%x: %w", base, err)
	}
	defer func() {
		if err != nil {
			_ = mem.Close()
		}
	}()

	dev, err := Open(NewMemBus(mem, base, regSpan), base, opts...)
	if err != nil {
		return nil, err
	}
	dev.closers = append(dev.closers, mem, f)

	return dev, nil
}

var (
	_ Bus    = (*MemBus)(nil)
	_ errBus = (*MemBus)(nil)
)
