// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/go-lpc/dtrig/api"
	"github.com/spf13/cobra"
)

func newServeCommand(g *globals) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Keep the device opened and serve it over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if g.remote != "" {
				return fmt.Errorf("serve can not be used with --remote")
			}

			dev, err := g.open()
			if err != nil {
				return err
			}
			defer dev.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			srv := api.NewServer(dev, log.New(cmd.OutOrStdout(), "trig-ctl: ", 0))
			err = srv.ListenAndServe(ctx, addr)
			if err != nil {
				return err
			}
			return dev.Close()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8000", "address to serve the trigger API on")
	return cmd
}
