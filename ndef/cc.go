// go-nfcv
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-nfcv.
//
// go-nfcv is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-nfcv is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-nfcv; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package ndef

import (
	"errors"
	"fmt"
)

// Capability container constants for NFC Forum Type 5 tags
const (
	CCMagic          = 0xE1
	CCVersionAccess  = 0x40 // mapping version 1.0, read/write access granted
	CCSize           = 4
	maxCCMemoryUnits = 0xFF
)

// ErrInvalidCC is returned when block 0 does not hold a Type 5 capability container
var ErrInvalidCC = errors.New("invalid capability container")

// CapabilityContainer builds the 4-byte CC describing dataAreaSize bytes
// of NDEF memory. The size byte counts 8-byte units.
func CapabilityContainer(dataAreaSize int) []byte {
	units := min(max(dataAreaSize/8, 0), maxCCMemoryUnits)
	return []byte{CCMagic, CCVersionAccess, byte(units), 0x00}
}

// ParseCapabilityContainer returns the data area size described by cc.
func ParseCapabilityContainer(cc []byte) (int, error) {
	if len(cc) < CCSize {
		return 0, fmt.Errorf("%w: %d bytes", ErrInvalidCC, len(cc))
	}
	if cc[0] != CCMagic {
		return 0, fmt.Errorf("%w: magic 0x%02X", ErrInvalidCC, cc[0])
	}
	return int(cc[2]) * 8, nil
}
