// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-lpc/dtrig/trig"
	"github.com/imroc/req"
)

// Client drives a trigger device served by a Server.
type Client struct {
	prefix string
	r      *req.Req
}

// NewClient returns a client for the server listening at addr,
// e.g. "http://localhost:8000".
func NewClient(addr string) *Client {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return &Client{
		prefix: strings.TrimRight(addr, "/") + "/api",
		r:      req.New(),
	}
}

func (c *Client) url(path string) string {
	return c.prefix + path
}

func check(resp *req.Resp) error {
	if code := resp.Response().StatusCode; code != http.StatusOK {
		return fmt.Errorf("api: %s: %s",
			resp.Response().Status, strings.TrimSpace(resp.String()),
		)
	}
	return nil
}

func (c *Client) get(path string, v interface{}) error {
	resp, err := c.r.Get(c.url(path))
	if err != nil {
		return fmt.Errorf("api: could not send GET %s: %w", path, err)
	}
	if err := check(resp); err != nil {
		return err
	}
	err = resp.ToJSON(v)
	if err != nil {
		return fmt.Errorf("api: could not decode reply to GET %s: %w", path, err)
	}
	return nil
}

// Info returns the identity of the served device.
func (c *Client) Info() (trig.Info, error) {
	var info Info
	err := c.get("/info", &info)
	if err != nil {
		return trig.Info{}, err
	}
	return info.trig()
}

// Status returns the trigger status of the served device.
func (c *Client) Status() (Status, error) {
	var st Status
	err := c.get("/status", &st)
	return st, err
}

// Config returns the configuration applied to the served device.
func (c *Client) Config() (trig.Thresholds, trig.Polarity, error) {
	var cfg Config
	err := c.get("/config", &cfg)
	if err != nil {
		return trig.Thresholds{}, 0, err
	}
	pol, err := trig.ParsePolarity(cfg.Polarity)
	if err != nil {
		return trig.Thresholds{}, 0, fmt.Errorf("api: %w", err)
	}
	return cfg.Thresholds(), pol, nil
}

// Registers reads all the registers of the served device.
func (c *Client) Registers() ([]trig.Register, error) {
	var raw []Register
	err := c.get("/registers", &raw)
	if err != nil {
		return nil, err
	}
	regs := make([]trig.Register, len(raw))
	for i, reg := range raw {
		regs[i], err = reg.trig()
		if err != nil {
			return nil, err
		}
	}
	return regs, nil
}

// ConfigureAndEnable configures and enables the trigger of the served device.
func (c *Client) ConfigureAndEnable(th trig.Thresholds, pol trig.Polarity) error {
	resp, err := c.r.Post(c.url("/enable"), req.BodyJSON(newConfig(th, pol)))
	if err != nil {
		return fmt.Errorf("api: could not send POST /enable: %w", err)
	}
	return check(resp)
}

// Disable disables the trigger of the served device.
func (c *Client) Disable() error {
	resp, err := c.r.Post(c.url("/disable"))
	if err != nil {
		return fmt.Errorf("api: could not send POST /disable: %w", err)
	}
	return check(resp)
}
