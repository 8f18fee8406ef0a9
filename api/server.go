// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-lpc/dtrig/trig"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// Server serves a trigger device over HTTP.
//
// Requests are serialized: at most one request accesses the device at
// any given time.
type Server struct {
	msg *log.Logger

	mu  sync.Mutex
	dev *trig.Device

	router *mux.Router
}

// NewServer returns a server for the opened device dev.
// A nil logger logs to os.Stdout.
func NewServer(dev *trig.Device, msg *log.Logger) *Server {
	if msg == nil {
		msg = log.New(os.Stdout, "api: ", 0)
	}
	srv := &Server{
		msg:    msg,
		dev:    dev,
		router: mux.NewRouter(),
	}

	sub := srv.router.PathPrefix("/api").Subrouter()
	sub.HandleFunc("/info", srv.handleInfo()).Methods("GET")
	sub.HandleFunc("/status", srv.handleStatus()).Methods("GET")
	sub.HandleFunc("/config", srv.handleConfig()).Methods("GET")
	sub.HandleFunc("/registers", srv.handleRegisters()).Methods("GET")
	sub.HandleFunc("/enable", srv.handleEnable()).Methods("POST")
	sub.HandleFunc("/disable", srv.handleDisable()).Methods("POST")

	return srv
}

// Handler returns the HTTP handler of the server, logging every request.
func (srv *Server) Handler() http.Handler {
	h := handlers.RecoveryHandler(
		handlers.RecoveryLogger(srv.msg),
		handlers.PrintRecoveryStack(true),
	)(srv.router)
	return handlers.LoggingHandler(srv.msg.Writer(), h)
}

// ListenAndServe serves HTTP requests on addr until ctx is done.
func (srv *Server) ListenAndServe(ctx context.Context, addr string) error {
	hsrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		srv.msg.Printf("serving trigger API on %q", addr)
		errc <- hsrv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("api: could not serve: %w", err)
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := hsrv.Shutdown(sctx)
		if err != nil {
			return fmt.Errorf("api: could not shutdown server: %w", err)
		}
		return nil
	}
}

func (srv *Server) handleInfo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		srv.mu.Lock()
		info, err := srv.dev.Info()
		srv.mu.Unlock()
		if err != nil {
			srv.fail(w, err)
			return
		}
		srv.reply(w, newInfo(info))
	}
}

func (srv *Server) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		srv.mu.Lock()
		st, err := srv.dev.Status()
		enabled := srv.dev.Enabled()
		srv.mu.Unlock()
		if err != nil {
			srv.fail(w, err)
			return
		}
		srv.reply(w, Status{
			Triggered: st.Triggered(),
			Detail:    st.Detail(),
			Enabled:   enabled,
		})
	}
}

func (srv *Server) handleConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		srv.mu.Lock()
		cfg := newConfig(srv.dev.Thresholds(), srv.dev.Ctrl().Polarity())
		srv.mu.Unlock()
		srv.reply(w, cfg)
	}
}

func (srv *Server) handleRegisters() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		srv.mu.Lock()
		regs, err := srv.dev.Registers()
		srv.mu.Unlock()
		if err != nil {
			srv.fail(w, err)
			return
		}
		out := make([]Register, len(regs))
		for i, reg := range regs {
			out[i] = newRegister(reg)
		}
		srv.reply(w, out)
	}
}

func (srv *Server) handleEnable() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cfg Config
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		err := dec.Decode(&cfg)
		if err != nil {
			http.Error(w, fmt.Sprintf("could not decode configuration: %+v", err), http.StatusBadRequest)
			return
		}

		pol, err := trig.ParsePolarity(cfg.Polarity)
		if err != nil {
			srv.fail(w, err)
			return
		}

		srv.mu.Lock()
		err = srv.dev.ConfigureAndEnable(cfg.Thresholds(), pol)
		srv.mu.Unlock()
		if err != nil {
			srv.fail(w, err)
			return
		}
		srv.msg.Printf("trigger enabled: %v polarity=%v", cfg.Thresholds(), pol)
		srv.reply(w, newConfig(cfg.Thresholds(), pol))
	}
}

func (srv *Server) handleDisable() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		srv.mu.Lock()
		err := srv.dev.Disable()
		srv.mu.Unlock()
		if err != nil {
			srv.fail(w, err)
			return
		}
		srv.msg.Printf("trigger disabled")
		w.WriteHeader(http.StatusOK)
	}
}

func (srv *Server) reply(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		srv.msg.Printf("could not encode reply: %+v", err)
	}
}

func (srv *Server) fail(w http.ResponseWriter, err error) {
	code := http.StatusBadGateway
	switch {
	case errors.Is(err, trig.ErrThresholdOrder),
		errors.Is(err, trig.ErrInvalidPolarity):
		code = http.StatusBadRequest
	case errors.Is(err, trig.ErrClosed):
		code = http.StatusServiceUnavailable
	}
	http.Error(w, err.Error(), code)
}
