// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trig

import (
	"bufio"
	"fmt"
	"io"
	"log"
)

// Device is an opened digital trigger peripheral.
//
// A Device must be used through the pointer returned by Open and must
// not be copied nor used concurrently without external locking.
type Device struct {
	msg  *log.Logger
	bus  Bus
	base uint64
	regs pins

	// last known register values
	ctrl      Ctrl
	test      uint32
	id        uint32
	revision  uint32
	buildtime uint32
	th        Thresholds

	closers []io.Closer
}

// Open brings the peripheral located at address base up to a verified
// state:
//   - soft reset,
//   - read/write loopback test of the test register,
//   - identity check,
//   - read-out of the revision and build time registers.
//
// On success the trigger is disabled. On failure no device is returned.
func Open(bus Bus, base uint64, opts ...Option) (*Device, error) {
	if bus == nil {
		return nil, ErrNilBus
	}

	cfg := newConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	dev := &Device{
		msg:  cfg.msg,
		bus:  bus,
		base: base,
		regs: newPins(bus, base),
	}

	var ctrl Ctrl
	ctrl.SetReset(true)
	dev.regs.ctrl.w(uint32(ctrl))
	dev.ctrl = ctrl

	for _, pattern := range []uint32{testPattern0, testPattern1} {
		dev.regs.test.w(pattern)
		dev.test = dev.regs.test.r()
		if err := dev.ioErr(); err != nil {
			return nil, fmt.Errorf("trig: could not run loopback test at 0x%x: %w", base, err)
		}
		if dev.test != pattern {
			return nil, fmt.Errorf(
				"%w at 0x%x (wrote=0x%08x, read=0x%08x)",
				ErrLoopback, base, pattern, dev.test,
			)
		}
	}

	dev.id = dev.regs.id.r()
	if err := dev.ioErr(); err != nil {
		return nil, fmt.Errorf("trig: could not read identity at 0x%x: %w", base, err)
	}
	if dev.id != DeviceID {
		return nil, fmt.Errorf(
			"%w at 0x%x (got=0x%08x, want=0x%08x)",
			ErrIdentity, base, dev.id, uint32(DeviceID),
		)
	}

	dev.revision = dev.regs.revision.r()
	dev.buildtime = dev.regs.buildtime.r()
	if err := dev.ioErr(); err != nil {
		return nil, fmt.Errorf("trig: could not read device info at 0x%x: %w", base, err)
	}

	dev.msg.Printf(
		"opened device at 0x%x: revision=0x%08x, buildtime=0x%08x",
		base, dev.revision, dev.buildtime,
	)

	return dev, nil
}

// Close releases the resources held by the device.
// Close does not access the peripheral: the trigger is left as is.
func (dev *Device) Close() error {
	if dev.bus == nil {
		return ErrClosed
	}
	dev.bus = nil
	dev.regs = pins{}

	var err error
	for _, c := range dev.closers {
		e := c.Close()
		if e != nil && err == nil {
			err = fmt.Errorf("trig: could not close device at 0x%x: %w", dev.base, e)
		}
	}
	dev.closers = nil

	return err
}

// ConfigureAndEnable programs the trigger thresholds and polarity and
// enables the trigger.
//
// The trigger is disabled while thresholds are written. Thresholds and
// polarity are validated before any register access.
func (dev *Device) ConfigureAndEnable(th Thresholds, pol Polarity) error {
	if dev.bus == nil {
		return ErrClosed
	}
	if err := th.Validate(); err != nil {
		return err
	}
	if !pol.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidPolarity, uint8(pol))
	}

	ctrl := dev.readCtrl()
	ctrl.SetEnable(false)
	ctrl.SetPolarity(pol)
	dev.regs.ctrl.w(uint32(ctrl))

	dev.regs.utUh.w(th.UpperHigh)
	dev.regs.utLh.w(th.UpperLow)
	dev.regs.ltUh.w(th.LowerHigh)
	dev.regs.ltLh.w(th.LowerLow)

	ctrl.SetEnable(true)
	dev.regs.ctrl.w(uint32(ctrl))

	if err := dev.ioErr(); err != nil {
		return fmt.Errorf("trig: could not configure trigger at 0x%x: %w", dev.base, err)
	}

	dev.ctrl = ctrl
	dev.th = th

	return nil
}

// Disable disables the trigger, leaving polarity and reserved bits untouched.
// Disabling a disabled trigger is a no-op.
func (dev *Device) Disable() error {
	if dev.bus == nil {
		return ErrClosed
	}

	ctrl := dev.readCtrl()
	ctrl.SetEnable(false)
	dev.regs.ctrl.w(uint32(ctrl))

	if err := dev.ioErr(); err != nil {
		return fmt.Errorf("trig: could not disable trigger at 0x%x: %w", dev.base, err)
	}
	dev.ctrl = ctrl

	return nil
}

// readCtrl reads the control register.
// The soft reset bit is a command: it is never written back.
func (dev *Device) readCtrl() Ctrl {
	ctrl := Ctrl(dev.regs.ctrl.r())
	ctrl.SetReset(false)
	return ctrl
}

// Status reads the status register.
func (dev *Device) Status() (Status, error) {
	if dev.bus == nil {
		return 0, ErrClosed
	}
	v := Status(dev.regs.status.r())
	if err := dev.ioErr(); err != nil {
		return 0, fmt.Errorf("trig: could not read status at 0x%x: %w", dev.base, err)
	}
	return v, nil
}

// Info reads the capability registers of the device.
func (dev *Device) Info() (Info, error) {
	if dev.bus == nil {
		return Info{}, ErrClosed
	}
	info := Info{
		Base:        dev.base,
		ID:          dev.id,
		Revision:    dev.revision,
		BuildTime:   dev.buildtime,
		SymbolWidth: dev.regs.symWidth.r(),
		SymbolNum:   dev.regs.symNum.r(),
	}
	if err := dev.ioErr(); err != nil {
		return Info{}, fmt.Errorf("trig: could not read device info at 0x%x: %w", dev.base, err)
	}
	return info, nil
}

func (dev *Device) Base() uint64           { return dev.base }
func (dev *Device) ID() uint32             { return dev.id }
func (dev *Device) Revision() uint32       { return dev.revision }
func (dev *Device) BuildTime() uint32      { return dev.buildtime }
func (dev *Device) Ctrl() Ctrl             { return dev.ctrl }
func (dev *Device) Thresholds() Thresholds { return dev.th }
func (dev *Device) Enabled() bool          { return dev.ctrl.Enable() }

// Register is the value of a device register.
type Register struct {
	Name   string
	Offset uint64 // offset from the device base address
	Value  uint32
}

// Registers reads all the registers of the device, in address order.
func (dev *Device) Registers() ([]Register, error) {
	if dev.bus == nil {
		return nil, ErrClosed
	}

	regs := make([]Register, len(registers))
	for i, reg := range registers {
		regs[i] = Register{
			Name:   reg.name,
			Offset: reg.off,
			Value:  dev.bus.Read32(dev.base + reg.off),
		}
	}
	if err := dev.ioErr(); err != nil {
		return nil, fmt.Errorf("trig: could not read registers at 0x%x: %w", dev.base, err)
	}
	return regs, nil
}

// DumpRegisters prints the content of all the registers of the device.
func (dev *Device) DumpRegisters(w io.Writer) error {
	regs, err := dev.Registers()
	if err != nil {
		return err
	}
	return WriteRegisters(w, dev.base, regs)
}

// WriteRegisters prints regs, read from the device at address base.
func WriteRegisters(w io.Writer, base uint64, regs []Register) error {
	var (
		buf    = bufio.NewWriter(w)
		err    error
		printf = func(format string, args ...interface{}) {
			if err != nil {
				return
			}
			_, err = fmt.Fprintf(buf, format, args...)
		}
	)

	printf("---- trig registers @0x%x ----\n", base)
	for _, reg := range regs {
		printf("%-13s [0x%02x]= 0x%08x\n", reg.Name, reg.Offset, reg.Value)
	}
	if err != nil {
		return fmt.Errorf("trig: could not dump registers: %w", err)
	}

	err = buf.Flush()
	if err != nil {
		return fmt.Errorf("trig: could not dump registers: %w", err)
	}

	return nil
}

func (dev *Device) ioErr() error {
	if bus, ok := dev.bus.(errBus); ok {
		return bus.Err()
	}
	return nil
}
