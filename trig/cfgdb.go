// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trig

import (
	"context"
	"fmt"

	"github.com/go-lpc/dtrig/conddb"
)

// ConfigDB retrieves stored trigger configurations.
// conddb.DB implements ConfigDB.
type ConfigDB interface {
	TrigConfig(ctx context.Context, name string) (conddb.TrigConfig, error)
	LastTrigConfig(ctx context.Context) (conddb.TrigConfig, error)
}

var _ ConfigDB = (*conddb.DB)(nil)

// LoadConfig retrieves and validates the trigger configuration named name
// from db. An empty name selects the most recent configuration.
func LoadConfig(ctx context.Context, db ConfigDB, name string) (Thresholds, Polarity, error) {
	var (
		cfg conddb.TrigConfig
		err error
	)
	switch name {
	case "":
		cfg, err = db.LastTrigConfig(ctx)
	default:
		cfg, err = db.TrigConfig(ctx, name)
	}
	if err != nil {
		return Thresholds{}, 0, fmt.Errorf("trig: could not load configuration: %w", err)
	}

	return FromConfig(cfg)
}

// FromConfig converts and validates a stored trigger configuration.
func FromConfig(cfg conddb.TrigConfig) (Thresholds, Polarity, error) {
	var (
		th = Thresholds{
			UpperHigh: cfg.UtUh,
			UpperLow:  cfg.UtLh,
			LowerHigh: cfg.LtUh,
			LowerLow:  cfg.LtLh,
		}
		pol = Polarity(cfg.Polarity)
	)

	if err := th.Validate(); err != nil {
		return th, pol, fmt.Errorf("trig: invalid configuration %q: %w", cfg.Name, err)
	}
	if !pol.Valid() {
		return th, pol, fmt.Errorf("trig: invalid configuration %q: %w: %d", cfg.Name, ErrInvalidPolarity, cfg.Polarity)
	}

	return th, pol, nil
}

// ToConfig returns the stored form of a trigger configuration.
func ToConfig(name string, th Thresholds, pol Polarity) conddb.TrigConfig {
	return conddb.TrigConfig{
		Name:     name,
		UtUh:     th.UpperHigh,
		UtLh:     th.UpperLow,
		LtUh:     th.LowerHigh,
		LtLh:     th.LowerLow,
		Polarity: uint8(pol),
	}
}
