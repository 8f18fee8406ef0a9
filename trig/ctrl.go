// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trig

import (
	"fmt"
	"strconv"
	"strings"
)

// Polarity selects the signal edges the trigger reacts to.
type Polarity uint8

const (
	PolarityNone    Polarity = 0b00
	PolarityRising  Polarity = 0b01
	PolarityFalling Polarity = 0b10
	PolarityBoth    Polarity = 0b11
)

var polarityNames = [...]string{
	PolarityNone:    "none",
	PolarityRising:  "rising",
	PolarityFalling: "falling",
	PolarityBoth:    "both",
}

// Valid reports whether p fits in the 2-bit polarity field.
func (p Polarity) Valid() bool { return p <= PolarityBoth }

func (p Polarity) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Polarity(%d)", uint8(p))
	}
	return polarityNames[p]
}

// ParsePolarity parses a polarity name (none, rising, falling or both)
// or its numerical value.
func ParsePolarity(s string) (Polarity, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for i, name := range polarityNames {
		if v == name || v == strconv.Itoa(i) {
			return Polarity(i), nil
		}
	}
	switch v {
	case "rising-edge":
		return PolarityRising, nil
	case "falling-edge":
		return PolarityFalling, nil
	case "both-edges", "both-edge":
		return PolarityBoth, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPolarity, s)
}

const (
	ctrlEnable   = uint32(1) << 0
	ctrlPolShift = 1
	ctrlPolMask  = uint32(0x3) << ctrlPolShift
	ctrlReset    = uint32(1) << 31

	// bits 3-30
	ctrlReserved = ^(ctrlEnable | ctrlPolMask | ctrlReset)
)

// Ctrl is the content of the control register.
//
//	bit  0:    trigger enable
//	bits 1-2:  trigger polarity
//	bits 3-30: reserved
//	bit  31:   soft reset
//
// Setters only modify their own field.
type Ctrl uint32

func (c Ctrl) Enable() bool { return uint32(c)&ctrlEnable != 0 }

func (c *Ctrl) SetEnable(v bool) {
	if v {
		*c |= Ctrl(ctrlEnable)
		return
	}
	*c &^= Ctrl(ctrlEnable)
}

func (c Ctrl) Polarity() Polarity {
	return Polarity((uint32(c) & ctrlPolMask) >> ctrlPolShift)
}

// SetPolarity sets the polarity field. Only the 2 low bits of p are used.
func (c *Ctrl) SetPolarity(p Polarity) {
	v := uint32(*c) &^ ctrlPolMask
	v |= (uint32(p) << ctrlPolShift) & ctrlPolMask
	*c = Ctrl(v)
}

func (c Ctrl) Reset() bool { return uint32(c)&ctrlReset != 0 }

func (c *Ctrl) SetReset(v bool) {
	if v {
		*c |= Ctrl(ctrlReset)
		return
	}
	*c &^= Ctrl(ctrlReset)
}

// Reserved returns the reserved bits 3-30, in place.
func (c Ctrl) Reserved() uint32 { return uint32(c) & ctrlReserved }

func (c Ctrl) String() string {
	return fmt.Sprintf(
		"ctrl{enable=%v, polarity=%v, reserved=0x%08x, reset=%v}",
		c.Enable(), c.Polarity(), c.Reserved(), c.Reset(),
	)
}

const (
	statusTriggered   = uint32(1) << 0
	statusDetailShift = 16
)

// Status is the content of the status register.
//
//	bit  0:     triggered
//	bits 16-31: trigger detail code
type Status uint32

func (s Status) Triggered() bool { return uint32(s)&statusTriggered != 0 }

func (s Status) Detail() uint16 { return uint16(uint32(s) >> statusDetailShift) }

func (s Status) String() string {
	return fmt.Sprintf("status{triggered=%v, detail=0x%04x}", s.Triggered(), s.Detail())
}
