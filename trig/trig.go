// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package trig drives the digital trigger FPGA peripheral through its
// memory-mapped register block.
//
// A Device is obtained with Open (or OpenDevMem), which resets the
// peripheral, checks the register data path with a loopback test and
// verifies the device identity. The trigger is then armed with
// ConfigureAndEnable and disarmed with Disable.
//
// A Device is not safe for concurrent use: callers must serialize
// accesses to a given Device. Two devices must never be opened at the
// same base address, as opening one resets the peripheral under the other.
package trig // import "github.com/go-lpc/dtrig/trig"

import (
	"errors"
	"fmt"
)

// DeviceID is the content of the identity register.
const DeviceID = 0xF7DEC7A5

// register offsets, from the base address of the peripheral.
const (
	regID          = 0x00 // RO
	regRevision    = 0x04 // RO
	regBuildTime   = 0x08 // RO
	regTest        = 0x0C // RW, loopback scratch
	regSymbolWidth = 0x10 // RO
	regSymbolNum   = 0x14 // RO
	regCtrl        = 0x18 // RW
	regStatus      = 0x1C // RW
	regUtUh        = 0x20 // RW, upper threshold, upper hysteresis
	regUtLh        = 0x24 // RW, upper threshold, lower hysteresis
	regLtUh        = 0x28 // RW, lower threshold, upper hysteresis
	regLtLh        = 0x2C // RW, lower threshold, lower hysteresis

	regSpan = 0x30
)

// loopback patterns written to the test register.
const (
	testPattern0 = 0x55555555
	testPattern1 = 0xAAAAAAAA
)

var registers = [...]struct {
	name string
	off  uint64
}{
	{"id", regID},
	{"revision", regRevision},
	{"buildtime", regBuildTime},
	{"test", regTest},
	{"symbol_width", regSymbolWidth},
	{"symbol_num", regSymbolNum},
	{"ctrl", regCtrl},
	{"status", regStatus},
	{"ut_uh", regUtUh},
	{"ut_lh", regUtLh},
	{"lt_uh", regLtUh},
	{"lt_lh", regLtLh},
}

var (
	// ErrNilBus is returned when opening a device without a register bus.
	ErrNilBus = errors.New("trig: nil register bus")

	// ErrLoopback is returned when the test register does not echo
	// back the pattern written to it.
	ErrLoopback = errors.New("trig: loopback test failed")

	// ErrIdentity is returned when the identity register does not
	// hold DeviceID.
	ErrIdentity = errors.New("trig: identity mismatch")

	// ErrThresholdOrder is returned when thresholds do not satisfy
	// ut_uh >= ut_lh >= lt_uh >= lt_lh.
	ErrThresholdOrder = errors.New("trig: invalid threshold order")

	// ErrInvalidPolarity is returned for polarity values outside the
	// 2-bit polarity field.
	ErrInvalidPolarity = errors.New("trig: invalid polarity")

	// ErrClosed is returned when using a closed device.
	ErrClosed = errors.New("trig: device closed")
)

// Thresholds holds the hysteresis levels of the upper and lower
// trigger bands.
type Thresholds struct {
	UpperHigh uint32 // ut_uh
	UpperLow  uint32 // ut_lh
	LowerHigh uint32 // lt_uh
	LowerLow  uint32 // lt_lh
}

// Validate checks that ut_uh >= ut_lh >= lt_uh >= lt_lh.
func (th Thresholds) Validate() error {
	switch {
	case th.UpperHigh < th.UpperLow,
		th.UpperLow < th.LowerHigh,
		th.LowerHigh < th.LowerLow:
		return fmt.Errorf(
			"%w (ut_uh=%d, ut_lh=%d, lt_uh=%d, lt_lh=%d)",
			ErrThresholdOrder,
			th.UpperHigh, th.UpperLow, th.LowerHigh, th.LowerLow,
		)
	}
	return nil
}

func (th Thresholds) String() string {
	return fmt.Sprintf(
		"ut_uh=%d ut_lh=%d lt_uh=%d lt_lh=%d",
		th.UpperHigh, th.UpperLow, th.LowerHigh, th.LowerLow,
	)
}

// Info describes an opened peripheral.
type Info struct {
	Base        uint64
	ID          uint32
	Revision    uint32
	BuildTime   uint32
	SymbolWidth uint32
	SymbolNum   uint32
}
