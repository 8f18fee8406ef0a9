// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-lpc/dtrig/conddb"
	"github.com/go-lpc/dtrig/trig"
)

type configDB interface {
	trig.ConfigDB
	TrigConfigNames(ctx context.Context) ([]string, error)
}

type saver interface {
	Put(cfg conddb.TrigConfig) error
}

type shell struct {
	dev   *trig.Device
	db    configDB // nil when no configuration source was requested
	store saver    // nil when no preset database was requested
	w     io.Writer

	th  trig.Thresholds
	pol trig.Polarity

	cmds map[string]command
}

type command struct {
	help string
	run  func(args []string) error
}

func newShell(dev *trig.Device, w io.Writer) *shell {
	sh := &shell{
		dev: dev,
		w:   w,
		th:  dev.Thresholds(),
		pol: trig.PolarityRising,
	}
	sh.cmds = map[string]command{
		"help":    {"print this help message", sh.cmdHelp},
		"info":    {"print device identity and capabilities", sh.cmdInfo},
		"status":  {"print the status register", sh.cmdStatus},
		"dump":    {"print all registers", sh.cmdDump},
		"show":    {"print the staged and applied configuration", sh.cmdShow},
		"set":     {"set ut_uh ut_lh lt_uh lt_lh: stage threshold levels", sh.cmdSet},
		"pol":     {"pol none|rising|falling|both: stage trigger polarity", sh.cmdPol},
		"load":    {"load [name]: stage a stored configuration (default: most recent)", sh.cmdLoad},
		"configs": {"list stored configurations", sh.cmdConfigs},
		"save":    {"save NAME: store the staged configuration as a preset", sh.cmdSave},
		"enable":  {"configure the device with the staged configuration and enable it", sh.cmdEnable},
		"disable": {"disable trigger detection", sh.cmdDisable},
	}
	return sh
}

// exec runs one command line and reports whether the shell should exit.
func (sh *shell) exec(line string) (bool, error) {
	toks := strings.Fields(line)
	if len(toks) == 0 {
		return false, nil
	}

	name, args := toks[0], toks[1:]
	switch name {
	case "quit", "exit":
		return true, nil
	}

	cmd, ok := sh.cmds[name]
	if !ok {
		return false, fmt.Errorf("unknown command %q (try \"help\")", name)
	}
	return false, cmd.run(args)
}

func (sh *shell) names() []string {
	names := make([]string, 0, len(sh.cmds)+2)
	for name := range sh.cmds {
		names = append(names, name)
	}
	names = append(names, "quit", "exit")
	sort.Strings(names)
	return names
}

func (sh *shell) complete(line string) []string {
	var (
		toks = strings.Fields(line)
		o    []string
	)

	switch {
	case len(toks) == 0:
		return sh.names()
	case len(toks) == 1 && !strings.HasSuffix(line, " "):
		for _, name := range sh.names() {
			if strings.HasPrefix(name, toks[0]) {
				o = append(o, name+" ")
			}
		}
		return o
	}

	var (
		prefix = ""
		cands  []string
	)
	if !strings.HasSuffix(line, " ") {
		prefix = toks[len(toks)-1]
	}
	if len(toks) > 2 || (len(toks) == 2 && prefix == "") {
		return nil
	}

	switch toks[0] {
	case "pol":
		cands = []string{"none", "rising", "falling", "both"}
	case "load":
		if sh.db == nil {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		names, err := sh.db.TrigConfigNames(ctx)
		if err != nil {
			return nil
		}
		cands = names
	}

	for _, v := range cands {
		if strings.HasPrefix(v, prefix) {
			o = append(o, toks[0]+" "+v)
		}
	}
	return o
}

func (sh *shell) cmdHelp(args []string) error {
	for _, name := range sh.names() {
		help := "exit the shell"
		if cmd, ok := sh.cmds[name]; ok {
			help = cmd.help
		}
		fmt.Fprintf(sh.w, "  %-8s %s\n", name, help)
	}
	return nil
}

func (sh *shell) cmdInfo(args []string) error {
	info, err := sh.dev.Info()
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.w, "id=0x%08x revision=0x%08x buildtime=0x%08x symbols=%dx%d\n",
		info.ID, info.Revision, info.BuildTime, info.SymbolNum, info.SymbolWidth,
	)
	return nil
}

func (sh *shell) cmdStatus(args []string) error {
	st, err := sh.dev.Status()
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.w, "%v enabled=%v\n", st, sh.dev.Enabled())
	return nil
}

func (sh *shell) cmdDump(args []string) error {
	return sh.dev.DumpRegisters(sh.w)
}

func (sh *shell) cmdShow(args []string) error {
	fmt.Fprintf(sh.w, "staged:  %v polarity=%v\n", sh.th, sh.pol)
	fmt.Fprintf(sh.w, "applied: %v %v\n", sh.dev.Thresholds(), sh.dev.Ctrl())
	return nil
}

func (sh *shell) cmdSet(args []string) error {
	if len(args) != 4 {
		return fmt.Errorf("set: expected 4 threshold levels, got %d", len(args))
	}
	var vs [4]uint32
	for i, arg := range args {
		v, err := strconv.ParseUint(arg, 0, 32)
		if err != nil {
			return fmt.Errorf("set: invalid threshold level %q: %w", arg, err)
		}
		vs[i] = uint32(v)
	}

	th := trig.Thresholds{
		UpperHigh: vs[0],
		UpperLow:  vs[1],
		LowerHigh: vs[2],
		LowerLow:  vs[3],
	}
	if err := th.Validate(); err != nil {
		return err
	}
	sh.th = th
	return nil
}

func (sh *shell) cmdPol(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("pol: expected 1 argument, got %d", len(args))
	}
	pol, err := trig.ParsePolarity(args[0])
	if err != nil {
		return err
	}
	sh.pol = pol
	return nil
}

func (sh *shell) cmdLoad(args []string) error {
	if sh.db == nil {
		return fmt.Errorf("load: no configuration source (use -db or -store)")
	}
	name := ""
	switch len(args) {
	case 0:
	case 1:
		name = args[0]
	default:
		return fmt.Errorf("load: expected at most 1 argument, got %d", len(args))
	}

	th, pol, err := trig.LoadConfig(context.Background(), sh.db, name)
	if err != nil {
		return err
	}
	sh.th = th
	sh.pol = pol
	return sh.cmdShow(nil)
}

func (sh *shell) cmdConfigs(args []string) error {
	if sh.db == nil {
		return fmt.Errorf("configs: no configuration source (use -db or -store)")
	}
	names, err := sh.db.TrigConfigNames(context.Background())
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintf(sh.w, "  %s\n", name)
	}
	return nil
}

func (sh *shell) cmdSave(args []string) error {
	if sh.store == nil {
		return fmt.Errorf("save: no preset database (use -store)")
	}
	if len(args) != 1 {
		return fmt.Errorf("save: expected 1 argument, got %d", len(args))
	}
	return sh.store.Put(trig.ToConfig(args[0], sh.th, sh.pol))
}

func (sh *shell) cmdEnable(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("enable: unexpected arguments %q", args)
	}
	err := sh.dev.ConfigureAndEnable(sh.th, sh.pol)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.w, "trigger enabled: %v\n", sh.dev.Ctrl())
	return nil
}

func (sh *shell) cmdDisable(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("disable: unexpected arguments %q", args)
	}
	err := sh.dev.Disable()
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.w, "trigger disabled: %v\n", sh.dev.Ctrl())
	return nil
}
