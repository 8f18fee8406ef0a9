// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package conddb

// TrigConfig is a stored digital trigger configuration.
type TrigConfig struct {
	ID       int32  `json:"identifier"`
	Name     string `json:"name"`
	UtUh     uint32 `json:"ut_uh"` // upper threshold, upper hysteresis
	UtLh     uint32 `json:"ut_lh"` // upper threshold, lower hysteresis
	LtUh     uint32 `json:"lt_uh"` // lower threshold, upper hysteresis
	LtLh     uint32 `json:"lt_lh"` // lower threshold, lower hysteresis
	Polarity uint8  `json:"polarity"`
}
