// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trig

import (
	"errors"
	"testing"
)

func TestCtrl(t *testing.T) {
	for _, v := range []uint32{0, 0xffffffff, 0x5a5a5a5a, 0xa5a5a5a5, 0x80000001} {
		c := Ctrl(v)

		c.SetEnable(true)
		if !c.Enable() {
			t.Fatalf("0x%08x: enable not set", v)
		}
		if got, want := uint32(c)&^1, v&^1; got != want {
			t.Fatalf("0x%08x: set-enable modified other bits: got=0x%08x, want=0x%08x", v, got, want)
		}

		c.SetEnable(false)
		if c.Enable() {
			t.Fatalf("0x%08x: enable not cleared", v)
		}

		for _, p := range []Polarity{PolarityNone, PolarityRising, PolarityFalling, PolarityBoth} {
			c := Ctrl(v)
			c.SetPolarity(p)
			if got, want := c.Polarity(), p; got != want {
				t.Fatalf("0x%08x: invalid polarity: got=%v, want=%v", v, got, want)
			}
			if got, want := uint32(c)&^0x6, v&^0x6; got != want {
				t.Fatalf("0x%08x: set-polarity modified other bits: got=0x%08x, want=0x%08x", v, got, want)
			}
		}

		c = Ctrl(v)
		c.SetReset(true)
		if !c.Reset() {
			t.Fatalf("0x%08x: reset not set", v)
		}
		c.SetReset(false)
		if c.Reset() {
			t.Fatalf("0x%08x: reset not cleared", v)
		}
		if got, want := c.Reserved(), v&0x7ffffff8; got != want {
			t.Fatalf("0x%08x: invalid reserved bits: got=0x%08x, want=0x%08x", v, got, want)
		}
	}

	c := Ctrl(0)
	c.SetPolarity(Polarity(0xff))
	if got, want := uint32(c), uint32(0x6); got != want {
		t.Fatalf("polarity overflowed its field: got=0x%08x, want=0x%08x", got, want)
	}

	if got, want := Ctrl(0x8000000d).String(), "ctrl{enable=true, polarity=falling, reserved=0x00000008, reset=true}"; got != want {
		t.Fatalf("invalid stringer:\ngot= %q\nwant=%q", got, want)
	}
}

func TestStatus(t *testing.T) {
	for _, tc := range []struct {
		v      uint32
		trig   bool
		detail uint16
	}{
		{0, false, 0},
		{1, true, 0},
		{0xfffe, false, 0},
		{0x12340001, true, 0x1234},
		{0xffff0000, false, 0xffff},
	} {
		st := Status(tc.v)
		if got, want := st.Triggered(), tc.trig; got != want {
			t.Fatalf("0x%08x: invalid triggered: got=%v, want=%v", tc.v, got, want)
		}
		if got, want := st.Detail(), tc.detail; got != want {
			t.Fatalf("0x%08x: invalid detail: got=0x%x, want=0x%x", tc.v, got, want)
		}
	}

	if got, want := Status(0xcafe0001).String(), "status{triggered=true, detail=0xcafe}"; got != want {
		t.Fatalf("invalid stringer: got=%q, want=%q", got, want)
	}
}

func TestPolarity(t *testing.T) {
	for _, tc := range []struct {
		str  string
		want Polarity
		err  error
	}{
		{"none", PolarityNone, nil},
		{"rising", PolarityRising, nil},
		{"Falling", PolarityFalling, nil},
		{" both ", PolarityBoth, nil},
		{"rising-edge", PolarityRising, nil},
		{"falling-edge", PolarityFalling, nil},
		{"both-edges", PolarityBoth, nil},
		{"0", PolarityNone, nil},
		{"3", PolarityBoth, nil},
		{"4", 0, ErrInvalidPolarity},
		{"up", 0, ErrInvalidPolarity},
	} {
		t.Run(tc.str, func(t *testing.T) {
			got, err := ParsePolarity(tc.str)
			if !errors.Is(err, tc.err) {
				t.Fatalf("invalid error: got=%+v, want=%+v", err, tc.err)
			}
			if got != tc.want {
				t.Fatalf("invalid polarity: got=%v, want=%v", got, tc.want)
			}
			if err != nil {
				return
			}
			back, err := ParsePolarity(got.String())
			if err != nil || back != got {
				t.Fatalf("invalid round-trip: %v -> %v (err=%v)", got, back, err)
			}
		})
	}

	if Polarity(4).Valid() {
		t.Fatalf("polarity 4 should be invalid")
	}
	if got, want := Polarity(7).String(), "Polarity(7)"; got != want {
		t.Fatalf("invalid stringer: got=%q, want=%q", got, want)
	}
}

func TestThresholds(t *testing.T) {
	for _, tc := range []struct {
		th   Thresholds
		want error
	}{
		{Thresholds{}, nil},
		{Thresholds{4, 3, 2, 1}, nil},
		{Thresholds{4, 4, 4, 4}, nil},
		{Thresholds{10, 20, 5, 1}, ErrThresholdOrder},
		{Thresholds{30, 20, 25, 1}, ErrThresholdOrder},
		{Thresholds{30, 20, 10, 11}, ErrThresholdOrder},
	} {
		t.Run(tc.th.String(), func(t *testing.T) {
			err := tc.th.Validate()
			if !errors.Is(err, tc.want) {
				t.Fatalf("invalid error: got=%+v, want=%+v", err, tc.want)
			}
		})
	}
}
