// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package api exposes an opened digital trigger device over HTTP.
//
// Routes, relative to the /api prefix:
//
//	GET  /info       device identity and capabilities (Info)
//	GET  /status     status register and enable flag (Status)
//	GET  /config     applied thresholds and polarity (Config)
//	GET  /registers  all registers ([]Register)
//	POST /enable     configure and enable the trigger (Config)
//	POST /disable    disable the trigger
//
// Payloads are JSON documents.
package api // import "github.com/go-lpc/dtrig/api"

import (
	"fmt"
	"strconv"

	"github.com/go-lpc/dtrig/trig"
)

// Info describes the served device.
type Info struct {
	Base        string `json:"base"` // hexadecimal
	ID          string `json:"id"`   // hexadecimal
	Revision    uint32 `json:"revision"`
	BuildTime   uint32 `json:"buildtime"`
	SymbolWidth uint32 `json:"symbol_width"`
	SymbolNum   uint32 `json:"symbol_num"`
}

// Status is the trigger status.
type Status struct {
	Triggered bool   `json:"triggered"`
	Detail    uint16 `json:"detail"`
	Enabled   bool   `json:"enabled"`
}

// Config is a trigger configuration.
type Config struct {
	UtUh     uint32 `json:"ut_uh"`
	UtLh     uint32 `json:"ut_lh"`
	LtUh     uint32 `json:"lt_uh"`
	LtLh     uint32 `json:"lt_lh"`
	Polarity string `json:"polarity"`
}

// Register is the value of a device register.
type Register struct {
	Name   string `json:"name"`
	Offset string `json:"offset"` // hexadecimal
	Value  string `json:"value"`  // hexadecimal
}

func newInfo(info trig.Info) Info {
	return Info{
		Base:        fmt.Sprintf("0x%x", info.Base),
		ID:          fmt.Sprintf("0x%08x", info.ID),
		Revision:    info.Revision,
		BuildTime:   info.BuildTime,
		SymbolWidth: info.SymbolWidth,
		SymbolNum:   info.SymbolNum,
	}
}

func (info Info) trig() (trig.Info, error) {
	base, err := strconv.ParseUint(info.Base, 0, 64)
	if err != nil {
		return trig.Info{}, fmt.Errorf("api: invalid base %q: %w", info.Base, err)
	}
	id, err := strconv.ParseUint(info.ID, 0, 32)
	if err != nil {
		return trig.Info{}, fmt.Errorf("api: invalid id %q: %w", info.ID, err)
	}
	return trig.Info{
		Base:        base,
		ID:          uint32(id),
		Revision:    info.Revision,
		BuildTime:   info.BuildTime,
		SymbolWidth: info.SymbolWidth,
		SymbolNum:   info.SymbolNum,
	}, nil
}

func newConfig(th trig.Thresholds, pol trig.Polarity) Config {
	return Config{
		UtUh:     th.UpperHigh,
		UtLh:     th.UpperLow,
		LtUh:     th.LowerHigh,
		LtLh:     th.LowerLow,
		Polarity: pol.String(),
	}
}

// Thresholds returns the threshold levels of cfg.
func (cfg Config) Thresholds() trig.Thresholds {
	return trig.Thresholds{
		UpperHigh: cfg.UtUh,
		UpperLow:  cfg.UtLh,
		LowerHigh: cfg.LtUh,
		LowerLow:  cfg.LtLh,
	}
}

func newRegister(reg trig.Register) Register {
	return Register{
		Name:   reg.Name,
		Offset: fmt.Sprintf("0x%02x", reg.Offset),
		Value:  fmt.Sprintf("0x%08x", reg.Value),
	}
}

func (reg Register) trig() (trig.Register, error) {
	off, err := strconv.ParseUint(reg.Offset, 0, 64)
	if err != nil {
		return trig.Register{}, fmt.Errorf("api: invalid offset %q for register %q: %w", reg.Offset, reg.Name, err)
	}
	v, err := strconv.ParseUint(reg.Value, 0, 32)
	if err != nil {
		return trig.Register{}, fmt.Errorf("api: invalid value %q for register %q: %w", reg.Value, reg.Name, err)
	}
	return trig.Register{Name: reg.Name, Offset: off, Value: uint32(v)}, nil
}
