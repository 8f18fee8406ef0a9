// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command trig-srv starts a TDAQ server driving a digital trigger peripheral.
//
// The device and its initial configuration are selected through
// environment variables:
//
//   - TRIG_DEVMEM: path to the physical memory device (default: /dev/mem),
//   - TRIG_BASE:   physical address of the register block (default: 0x43c00000),
//   - TRIG_DB:     conddb database holding trigger configurations (optional),
//   - TRIG_CFG:    name of the conddb configuration (default: most recent).
package main // import "github.com/go-lpc/dtrig/cmd/trig-srv"

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/flags"
	"github.com/go-lpc/dtrig/conddb"
	"github.com/go-lpc/dtrig/trig"
)

func main() {
	log.SetPrefix("trig-srv: ")
	log.SetFlags(0)

	cmd := flags.New()

	env, err := envFrom(os.Getenv)
	if err != nil {
		log.Fatalf("invalid environment: %+v", err)
	}

	dev := trig.NewServer(env.devmem, env.base, trig.WithLogger(log.New(os.Stdout, "trig: ", 0)))
	if env.db != "" {
		err = configure(context.Background(), dev, env)
		if err != nil {
			log.Fatalf("could not configure trigger server: %+v", err)
		}
	}

	srv := tdaq.New(cmd, os.Stdout)
	srv.CmdHandle("/config", dev.OnConfig)
	srv.CmdHandle("/init", dev.OnInit)
	srv.CmdHandle("/reset", dev.OnReset)
	srv.CmdHandle("/start", dev.OnStart)
	srv.CmdHandle("/stop", dev.OnStop)
	srv.CmdHandle("/quit", dev.OnQuit)
	srv.CmdHandle("/status", dev.OnStatus)

	srv.RunHandle(func(ctx tdaq.Context) error {
		<-ctx.Ctx.Done()
		return nil
	})

	err = srv.Run(context.Background())
	if err != nil {
		log.Panicf("error: %+v", err)
	}
}

type environ struct {
	devmem string
	base   uint64
	db     string
	cfg    string
}

func envFrom(getenv func(string) string) (environ, error) {
	env := environ{
		devmem: getenv("TRIG_DEVMEM"),
		base:   0x43c00000,
		db:     getenv("TRIG_DB"),
		cfg:    getenv("TRIG_CFG"),
	}
	if env.devmem == "" {
		env.devmem = "/dev/mem"
	}
	if v := getenv("TRIG_BASE"); v != "" {
		base, err := strconv.ParseUint(v, 0, 64)
		if err != nil {
			return env, fmt.Errorf("could not parse TRIG_BASE=%q: %w", v, err)
		}
		env.base = base
	}
	if env.cfg != "" && env.db == "" {
		return env, fmt.Errorf("TRIG_CFG=%q requires TRIG_DB", env.cfg)
	}
	return env, nil
}

func configure(ctx context.Context, srv *trig.Server, env environ) error {
	db, err := conddb.Open(env.db)
	if err != nil {
		return fmt.Errorf("could not open conddb: %w", err)
	}
	defer db.Close()

	th, pol, err := trig.LoadConfig(ctx, db, env.cfg)
	if err != nil {
		return err
	}
	log.Printf("loaded configuration %q: %v polarity=%v", env.cfg, th, pol)
	return srv.Configure(th, pol)
}
