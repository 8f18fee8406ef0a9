// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trig

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-daq/tdaq"
)

// Server exposes a digital trigger device to a TDAQ run control.
//
//   - /config: sets the trigger configuration (see EncodeConfig),
//   - /init:   opens the device,
//   - /reset:  disables and closes the device,
//   - /start:  configures and enables the trigger,
//   - /stop:   disables the trigger,
//   - /quit:   closes the device,
//   - /status: replies with the status register.
type Server struct {
	open func() (*Device, error)
	dev  *Device

	th  Thresholds
	pol Polarity
}

// NewServer returns a server driving the device located at physical
// address base through devmem.
func NewServer(devmem string, base uint64, opts ...Option) *Server {
	return newServer(func() (*Device, error) {
		return OpenDevMem(devmem, base, opts...)
	})
}

func newServer(open func() (*Device, error)) *Server {
	return &Server{
		open: open,
		pol:  PolarityRising,
	}
}

// Configure sets the configuration applied on /start.
func (srv *Server) Configure(th Thresholds, pol Polarity) error {
	if err := th.Validate(); err != nil {
		return err
	}
	if !pol.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidPolarity, uint8(pol))
	}
	srv.th = th
	srv.pol = pol
	return nil
}

// EncodeConfig encodes the payload of a /config command.
func EncodeConfig(w io.Writer, th Thresholds, pol Polarity) error {
	enc := tdaq.NewEncoder(w)
	enc.WriteU32(th.UpperHigh)
	enc.WriteU32(th.UpperLow)
	enc.WriteU32(th.LowerHigh)
	enc.WriteU32(th.LowerLow)
	enc.WriteU8(uint8(pol))
	return enc.Err()
}

func decodeConfig(r io.Reader) (Thresholds, Polarity, error) {
	var (
		dec = tdaq.NewDecoder(r)
		th  Thresholds
	)
	th.UpperHigh = dec.ReadU32()
	th.UpperLow = dec.ReadU32()
	th.LowerHigh = dec.ReadU32()
	th.LowerLow = dec.ReadU32()
	pol := Polarity(dec.ReadU8())
	return th, pol, dec.Err()
}

func (srv *Server) closeDevice() error {
	if srv.dev == nil {
		return nil
	}
	dev := srv.dev
	srv.dev = nil
	return dev.Close()
}

func (srv *Server) OnConfig(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /config command...")
	if len(req.Body) == 0 {
		ctx.Msg.Infof("keeping configuration: %v, polarity=%v", srv.th, srv.pol)
		return nil
	}

	th, pol, err := decodeConfig(bytes.NewReader(req.Body))
	if err != nil {
		ctx.Msg.Errorf("could not decode /config payload: %+v", err)
		return fmt.Errorf("could not decode /config payload: %w", err)
	}

	err = srv.Configure(th, pol)
	if err != nil {
		ctx.Msg.Errorf("invalid configuration: %+v", err)
		return fmt.Errorf("invalid configuration: %w", err)
	}
	ctx.Msg.Infof("configuration: %v, polarity=%v", srv.th, srv.pol)

	return nil
}

func (srv *Server) OnInit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /init command...")
	err := srv.closeDevice()
	if err != nil {
		ctx.Msg.Warnf("could not close previous device: %+v", err)
	}

	dev, err := srv.open()
	if err != nil {
		ctx.Msg.Errorf("could not open device: %+v", err)
		return fmt.Errorf("could not open device: %w", err)
	}
	srv.dev = dev
	ctx.Msg.Infof(
		"device 0x%x: revision=0x%08x, buildtime=0x%08x",
		dev.Base(), dev.Revision(), dev.BuildTime(),
	)

	return nil
}

func (srv *Server) OnReset(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /reset command...")
	if srv.dev == nil {
		return nil
	}

	err := srv.dev.Disable()
	if err != nil {
		ctx.Msg.Errorf("could not disable trigger: %+v", err)
	}

	errClose := srv.closeDevice()
	if err != nil {
		return fmt.Errorf("could not disable trigger: %w", err)
	}
	if errClose != nil {
		return fmt.Errorf("could not close device: %w", errClose)
	}

	return nil
}

func (srv *Server) OnStart(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /start command...")
	if srv.dev == nil {
		return fmt.Errorf("could not start trigger: %w", ErrClosed)
	}

	err := srv.dev.ConfigureAndEnable(srv.th, srv.pol)
	if err != nil {
		ctx.Msg.Errorf("could not enable trigger: %+v", err)
		return fmt.Errorf("could not enable trigger: %w", err)
	}

	return nil
}

func (srv *Server) OnStop(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /stop command...")
	if srv.dev == nil {
		return fmt.Errorf("could not stop trigger: %w", ErrClosed)
	}

	err := srv.dev.Disable()
	if err != nil {
		ctx.Msg.Errorf("could not disable trigger: %+v", err)
		return fmt.Errorf("could not disable trigger: %w", err)
	}

	return nil
}

func (srv *Server) OnQuit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /quit command...")
	err := srv.closeDevice()
	if err != nil {
		return fmt.Errorf("could not close device: %w", err)
	}
	return nil
}

func (srv *Server) OnStatus(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /status command...")
	if srv.dev == nil {
		return fmt.Errorf("could not read status: %w", ErrClosed)
	}

	st, err := srv.dev.Status()
	if err != nil {
		return fmt.Errorf("could not read status: %w", err)
	}

	var (
		buf = new(bytes.Buffer)
		enc = tdaq.NewEncoder(buf)
	)
	enc.WriteU8(boolU8(st.Triggered()))
	enc.WriteU32(uint32(st.Detail()))
	enc.WriteU8(boolU8(srv.dev.Enabled()))
	if err := enc.Err(); err != nil {
		return fmt.Errorf("could not encode status: %w", err)
	}
	resp.Body = buf.Bytes()

	return nil
}

func boolU8(v bool) uint8 {
	if v {
		return 1
	}
	return 0
}
