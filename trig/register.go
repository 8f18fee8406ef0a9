// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package trig

type reg32 struct {
	r func() uint32
	w func(v uint32)
}

func newReg32(bus Bus, addr uint64) reg32 {
	return reg32{
		r: func() uint32 {
			return bus.Read32(addr)
		},
		w: func(v uint32) {
			bus.Write32(addr, v)
		},
	}
}

type pins struct {
	id        reg32
	revision  reg32
	buildtime reg32
	test      reg32
	symWidth  reg32
	symNum    reg32
	ctrl      reg32
	status    reg32

	utUh reg32
	utLh reg32
	ltUh reg32
	ltLh reg32
}

func newPins(bus Bus, base uint64) pins {
	return pins{
		id:        newReg32(bus, base+regID),
		revision:  newReg32(bus, base+regRevision),
		buildtime: newReg32(bus, base+regBuildTime),
		test:      newReg32(bus, base+regTest),
		symWidth:  newReg32(bus, base+regSymbolWidth),
		symNum:    newReg32(bus, base+regSymbolNum),
		ctrl:      newReg32(bus, base+regCtrl),
		status:    newReg32(bus, base+regStatus),

		utUh: newReg32(bus, base+regUtUh),
		utLh: newReg32(bus, base+regUtLh),
		ltUh: newReg32(bus, base+regLtUh),
		ltLh: newReg32(bus, base+regLtLh),
	}
}
