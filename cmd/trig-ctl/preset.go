// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-lpc/dtrig/conddb"
	"github.com/go-lpc/dtrig/preset"
	"github.com/go-lpc/dtrig/trig"
	"github.com/spf13/cobra"
)

func defaultStore() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = ""
	}
	return filepath.Join(dir, "trig", "presets.db")
}

func newPresetCommand() *cobra.Command {
	var fname string
	cmd := &cobra.Command{
		Use:   "preset",
		Short: "Manage locally stored trigger configurations",
	}
	cmd.PersistentFlags().StringVar(&fname, "store", defaultStore(), "preset database file")

	open := func() (*preset.Store, error) {
		err := os.MkdirAll(filepath.Dir(fname), 0755)
		if err != nil {
			return nil, fmt.Errorf("could not create preset directory: %w", err)
		}
		return preset.Open(fname)
	}

	withStore := func(f func(st *preset.Store) error) error {
		st, err := open()
		if err != nil {
			return err
		}
		defer st.Close()

		err = f(st)
		if err != nil {
			return err
		}
		return st.Close()
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored trigger configurations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(st *preset.Store) error {
				names, err := st.TrigConfigNames(context.Background())
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\n", name)
				}
				return nil
			})
		},
	}

	export := &cobra.Command{
		Use:   "export [name...]",
		Short: "Print stored trigger configurations as YAML (default: all)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(st *preset.Store) error {
				ctx := context.Background()
				names := args
				if len(names) == 0 {
					var err error
					names, err = st.TrigConfigNames(ctx)
					if err != nil {
						return err
					}
				}
				cfgs := make([]conddb.TrigConfig, 0, len(names))
				for _, name := range names {
					cfg, err := st.TrigConfig(ctx, name)
					if err != nil {
						return err
					}
					cfgs = append(cfgs, cfg)
				}
				return preset.Encode(cmd.OutOrStdout(), cfgs)
			})
		},
	}

	imp := &cobra.Command{
		Use:   "import FILE",
		Short: "Store the trigger configurations of a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("could not open presets file: %w", err)
			}
			defer f.Close()

			cfgs, err := preset.Decode(f)
			if err != nil {
				return err
			}
			for _, cfg := range cfgs {
				_, _, err := trig.FromConfig(cfg)
				if err != nil {
					return err
				}
			}

			return withStore(func(st *preset.Store) error {
				for _, cfg := range cfgs {
					err := st.Put(cfg)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "imported %q\n", cfg.Name)
				}
				return nil
			})
		},
	}

	var lvl levels
	save := &cobra.Command{
		Use:   "save NAME",
		Short: "Store a trigger configuration given on the command line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			th, pol, err := lvl.config()
			if err != nil {
				return err
			}
			return withStore(func(st *preset.Store) error {
				return st.Put(trig.ToConfig(args[0], th, pol))
			})
		},
	}
	lvl.addFlags(save)

	rm := &cobra.Command{
		Use:   "rm NAME",
		Short: "Remove a stored trigger configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(st *preset.Store) error {
				return st.Delete(args[0])
			})
		},
	}

	cmd.AddCommand(list, export, imp, save, rm)
	return cmd
}
