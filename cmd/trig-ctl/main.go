// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command trig-ctl configures and controls a digital trigger peripheral.
//
// Each invocation opens, and thus soft-resets, the peripheral, unless
// commands are sent with -remote to a trig-ctl serve instance that keeps
// the device opened.
//
// Example:
//
//	$> trig-ctl --base=0x43c00000 info
//	$> trig-ctl enable --ut-uh=4000 --ut-lh=3900 --lt-uh=1200 --lt-lh=1100 --pol=rising
//	$> trig-ctl enable --db=trigdb --cfg=cosmics
//	$> trig-ctl preset import presets.yaml
//	$> trig-ctl enable --store=$HOME/.config/trig/presets.db --cfg=cosmics
//	$> trig-ctl serve --addr=:8000 &
//	$> trig-ctl --remote=localhost:8000 status
package main // import "github.com/go-lpc/dtrig/cmd/trig-ctl"

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/go-lpc/dtrig/api"
	"github.com/go-lpc/dtrig/trig"
	"github.com/spf13/cobra"
)

func main() {
	log.SetPrefix("trig-ctl: ")
	log.SetFlags(0)

	err := newRootCommand(os.Stdout).Execute()
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

type globals struct {
	devmem string
	base   string
	remote string
}

func newRootCommand(out io.Writer) *cobra.Command {
	var g globals
	cmd := &cobra.Command{
		Use:           "trig-ctl",
		Short:         "Configure and control a digital trigger peripheral",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)

	flags := cmd.PersistentFlags()
	flags.StringVar(&g.devmem, "dev-mem", "/dev/mem", "path to the physical memory device")
	flags.StringVar(&g.base, "base", "0x43c00000", "physical address of the trigger register block")
	flags.StringVar(&g.remote, "remote", "", "address of a trig-ctl serve instance (e.g. localhost:8000)")

	cmd.AddCommand(
		newInfoCommand(&g),
		newStatusCommand(&g),
		newDumpCommand(&g),
		newEnableCommand(&g),
		newDisableCommand(&g),
		newServeCommand(&g),
		newPresetCommand(),
	)
	return cmd
}

func (g *globals) addr() (uint64, error) {
	addr, err := strconv.ParseUint(g.base, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid base address %q: %w", g.base, err)
	}
	return addr, nil
}

func (g *globals) open() (*trig.Device, error) {
	addr, err := g.addr()
	if err != nil {
		return nil, err
	}
	dev, err := trig.OpenDevMem(g.devmem, addr, trig.WithLogger(log.Default()))
	if err != nil {
		return nil, fmt.Errorf("could not open trigger device: %w", err)
	}
	return dev, nil
}

// backend is a trigger device, either opened locally or served remotely.
type backend interface {
	Info() (trig.Info, error)
	Status() (api.Status, error)
	Registers() ([]trig.Register, error)
	ConfigureAndEnable(th trig.Thresholds, pol trig.Polarity) error
	Disable() error
	Close() error
}

type local struct {
	*trig.Device
}

func (dev local) Status() (api.Status, error) {
	st, err := dev.Device.Status()
	if err != nil {
		return api.Status{}, err
	}
	return api.Status{
		Triggered: st.Triggered(),
		Detail:    st.Detail(),
		Enabled:   dev.Enabled(),
	}, nil
}

type remote struct {
	*api.Client
}

func (remote) Close() error { return nil }

// run runs f against the selected trigger device.
func (g *globals) run(f func(dev backend) error) error {
	var dev backend
	switch g.remote {
	case "":
		d, err := g.open()
		if err != nil {
			return err
		}
		dev = local{d}
	default:
		dev = remote{api.NewClient(g.remote)}
	}
	defer dev.Close()

	err := f(dev)
	if err != nil {
		return err
	}
	return dev.Close()
}

var (
	_ backend = local{}
	_ backend = remote{}
)
