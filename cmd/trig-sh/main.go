// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command trig-sh is an interactive shell driving a digital trigger peripheral.
//
// The device is opened, and thus soft-reset, once when the shell starts
// and stays opened until the shell exits.
//
// Example:
//
//	$> trig-sh -base=0x43c00000 -db=trigdb
//	trig> info
//	trig> load cosmics
//	trig> enable
//
// With -store, configurations are read from a local preset database and
// the staged configuration can be saved into it:
//
//	$> trig-sh -store=presets.db
//	trig> set 4000 3900 1200 1100
//	trig> pol both
//	trig> save cosmics
//	trig> status
//	trig> disable
//	trig> quit
package main // import "github.com/go-lpc/dtrig/cmd/trig-sh"

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-lpc/dtrig/conddb"
	"github.com/go-lpc/dtrig/preset"
	"github.com/go-lpc/dtrig/trig"
	"github.com/peterh/liner"
)

func main() {
	var (
		devmem = flag.String("dev-mem", "/dev/mem", "path to the physical memory device")
		base   = flag.String("base", "0x43c00000", "physical address of the trigger register block")
		dbname = flag.String("db", "", "conddb database holding trigger configurations")
		store  = flag.String("store", "", "preset database file holding trigger configurations")
		hist   = flag.String("history", filepath.Join(os.TempDir(), ".trig-sh.history"), "path to the shell history file")
	)

	log.SetPrefix("trig-sh: ")
	log.SetFlags(0)

	flag.Parse()

	addr, err := strconv.ParseUint(*base, 0, 64)
	if err != nil {
		log.Fatalf("invalid base address %q: %+v", *base, err)
	}

	dev, err := trig.OpenDevMem(*devmem, addr, trig.WithLogger(log.Default()))
	if err != nil {
		log.Fatalf("could not open trigger device: %+v", err)
	}
	defer dev.Close()

	sh := newShell(dev, os.Stdout)
	if *store != "" {
		st, err := preset.Open(*store)
		if err != nil {
			log.Fatalf("could not open preset database: %+v", err)
		}
		defer st.Close()
		sh.db = st
		sh.store = st
	}
	if *dbname != "" {
		db, err := conddb.Open(*dbname)
		if err != nil {
			log.Fatalf("could not open conddb: %+v", err)
		}
		defer db.Close()
		sh.db = db
	}

	err = repl(sh, *hist)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func repl(sh *shell, hist string) error {
	term := liner.NewLiner()
	defer term.Close()

	term.SetCtrlCAborts(true)
	term.SetCompleter(sh.complete)

	if f, err := os.Open(hist); err == nil {
		_, _ = term.ReadHistory(f)
		f.Close()
	}
	defer func() {
		f, err := os.Create(hist)
		if err != nil {
			log.Printf("could not save history: %+v", err)
			return
		}
		defer f.Close()
		_, _ = term.WriteHistory(f)
	}()

	for {
		line, err := term.Prompt("trig> ")
		switch {
		case err == nil:
		case errors.Is(err, liner.ErrPromptAborted), errors.Is(err, io.EOF):
			fmt.Fprintf(sh.w, "\n")
			return nil
		default:
			return fmt.Errorf("could not read command: %w", err)
		}

		if line == "" {
			continue
		}
		term.AppendHistory(line)

		quit, err := sh.exec(line)
		if err != nil {
			fmt.Fprintf(sh.w, "error: %+v\n", err)
		}
		if quit {
			return nil
		}
	}
}
