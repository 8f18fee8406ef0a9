// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-lpc/dtrig/conddb"
	"github.com/go-lpc/dtrig/preset"
	"github.com/go-lpc/dtrig/trig"
	"github.com/spf13/cobra"
)

func newInfoCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print device identity and capabilities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.run(func(dev backend) error {
				info, err := dev.Info()
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "base:         0x%x\n", info.Base)
				fmt.Fprintf(w, "id:           0x%08x\n", info.ID)
				fmt.Fprintf(w, "revision:     0x%08x\n", info.Revision)
				fmt.Fprintf(w, "buildtime:    0x%08x\n", info.BuildTime)
				fmt.Fprintf(w, "symbol width: %d\n", info.SymbolWidth)
				fmt.Fprintf(w, "symbol num:   %d\n", info.SymbolNum)
				return nil
			})
		},
	}
}

func newStatusCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the trigger status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.run(func(dev backend) error {
				st, err := dev.Status()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(),
					"triggered: %v\ndetail:    0x%04x\nenabled:   %v\n",
					st.Triggered, st.Detail, st.Enabled,
				)
				return nil
			})
		},
	}
}

func newDumpCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Print all the device registers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.run(func(dev backend) error {
				info, err := dev.Info()
				if err != nil {
					return err
				}
				regs, err := dev.Registers()
				if err != nil {
					return err
				}
				return trig.WriteRegisters(cmd.OutOrStdout(), info.Base, regs)
			})
		},
	}
}

func newDisableCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "disable",
		Short: "Disable trigger detection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.run(func(dev backend) error {
				err := dev.Disable()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "trigger disabled\n")
				return nil
			})
		},
	}
}

// levels holds a trigger configuration given on the command line.
type levels struct {
	th  trig.Thresholds
	pol string
}

func (lvl *levels) addFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Uint32Var(&lvl.th.UpperHigh, "ut-uh", 0, "upper threshold, upper hysteresis level")
	flags.Uint32Var(&lvl.th.UpperLow, "ut-lh", 0, "upper threshold, lower hysteresis level")
	flags.Uint32Var(&lvl.th.LowerHigh, "lt-uh", 0, "lower threshold, upper hysteresis level")
	flags.Uint32Var(&lvl.th.LowerLow, "lt-lh", 0, "lower threshold, lower hysteresis level")
	flags.StringVar(&lvl.pol, "pol", "rising", "trigger polarity (none|rising|falling|both)")
}

func (lvl levels) config() (trig.Thresholds, trig.Polarity, error) {
	pol, err := trig.ParsePolarity(lvl.pol)
	if err != nil {
		return lvl.th, pol, err
	}
	if err := lvl.th.Validate(); err != nil {
		return lvl.th, pol, err
	}
	return lvl.th, pol, nil
}

// source selects where a trigger configuration is read from.
type source struct {
	levels

	db    string // conddb database
	store string // preset database file
	file  string // YAML presets file
	cfg   string // configuration name
}

func (src *source) addFlags(cmd *cobra.Command) {
	src.levels.addFlags(cmd)
	flags := cmd.Flags()
	flags.StringVar(&src.db, "db", "", "conddb database holding trigger configurations")
	flags.StringVar(&src.store, "store", "", "preset database file holding trigger configurations")
	flags.StringVar(&src.file, "file", "", "YAML file holding trigger configurations")
	flags.StringVar(&src.cfg, "cfg", "", "name of the stored trigger configuration (default: most recent, or first in file)")
}

func (src source) config(ctx context.Context) (trig.Thresholds, trig.Polarity, error) {
	n := 0
	for _, v := range []string{src.db, src.store, src.file} {
		if v != "" {
			n++
		}
	}
	switch {
	case n > 1:
		return trig.Thresholds{}, 0, fmt.Errorf("--db, --store and --file are mutually exclusive")
	case n == 0 && src.cfg != "":
		return trig.Thresholds{}, 0, fmt.Errorf("--cfg requires one of --db, --store or --file")
	}

	switch {
	case src.db != "":
		db, err := conddb.Open(src.db)
		if err != nil {
			return trig.Thresholds{}, 0, fmt.Errorf("could not open conddb: %w", err)
		}
		defer db.Close()
		return trig.LoadConfig(ctx, db, src.cfg)

	case src.store != "":
		st, err := preset.Open(src.store)
		if err != nil {
			return trig.Thresholds{}, 0, err
		}
		defer st.Close()
		return trig.LoadConfig(ctx, st, src.cfg)

	case src.file != "":
		f, err := os.Open(src.file)
		if err != nil {
			return trig.Thresholds{}, 0, fmt.Errorf("could not open presets file: %w", err)
		}
		defer f.Close()

		cfgs, err := preset.Decode(f)
		if err != nil {
			return trig.Thresholds{}, 0, err
		}
		for _, cfg := range cfgs {
			if src.cfg == "" || cfg.Name == src.cfg {
				return trig.FromConfig(cfg)
			}
		}
		return trig.Thresholds{}, 0, fmt.Errorf("could not find configuration %q in %q", src.cfg, src.file)
	}

	return src.levels.config()
}

func newEnableCommand(g *globals) *cobra.Command {
	var src source
	cmd := &cobra.Command{
		Use:   "enable",
		Short: "Configure thresholds and polarity, then enable the trigger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			th, pol, err := src.config(context.Background())
			if err != nil {
				return fmt.Errorf("could not build trigger configuration: %w", err)
			}
			return g.run(func(dev backend) error {
				err := dev.ConfigureAndEnable(th, pol)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "trigger enabled: %v, polarity=%v\n", th, pol)
				return nil
			})
		},
	}
	src.addFlags(cmd)
	return cmd
}
