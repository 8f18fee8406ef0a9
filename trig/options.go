// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trig

import (
	"log"
	"os"
)

type config struct {
	msg *log.Logger
}

func newConfig() config {
	return config{
		msg: log.New(os.Stdout, "trig: ", 0),
	}
}

// Option configures a Device.
type Option func(*config)

// WithLogger sets the logger used to report device activity.
func WithLogger(msg *log.Logger) Option {
	return func(cfg *config) {
		if msg == nil {
			return
		}
		cfg.msg = msg
	}
}
