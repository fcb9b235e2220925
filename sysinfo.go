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

package nfcv

import (
	"errors"
	"fmt"
)

// Get System Information info flags
const (
	InfoFlagDSFID       = 0x01
	InfoFlagAFI         = 0x02
	InfoFlagMemorySize  = 0x04
	InfoFlagICReference = 0x08
)

const uidLength = 8

// ErrShortSystemInfo is returned when a system info payload ends early
var ErrShortSystemInfo = errors.New("system info payload too short")

// SystemInfo is a decoded Get System Information response.
type SystemInfo struct {
	UID            uint64
	BlockCount     int
	BlockSize      int
	InfoFlags      byte
	DSFID          byte
	AFI            byte
	ICReference    byte
	HasDSFID       bool
	HasAFI         bool
	HasMemorySize  bool
	HasICReference bool
}

// UIDString formats the UID most significant byte first, the way it is
// printed on tags.
func (i *SystemInfo) UIDString() string {
	return fmt.Sprintf("%016X", i.UID)
}

// ParseSystemInfo decodes a Get System Information payload (status byte
// already removed). The UID is transmitted least significant byte first.
func ParseSystemInfo(payload []byte) (*SystemInfo, error) {
	if len(payload) < 1+uidLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrShortSystemInfo, len(payload))
	}

	info := &SystemInfo{
		InfoFlags: payload[0],
		UID:       BytesToInt(payload[1 : 1+uidLength]),
	}
	rest := payload[1+uidLength:]

	take := func(n int, field string) ([]byte, error) {
		if len(rest) < n {
			return nil, fmt.Errorf("%w: missing %s", ErrShortSystemInfo, field)
		}
		out := rest[:n]
		rest = rest[n:]
		return out, nil
	}

	if info.InfoFlags&InfoFlagDSFID != 0 {
		b, err := take(1, "DSFID")
		if err != nil {
			return nil, err
		}
		info.DSFID, info.HasDSFID = b[0], true
	}
	if info.InfoFlags&InfoFlagAFI != 0 {
		b, err := take(1, "AFI")
		if err != nil {
			return nil, err
		}
		info.AFI, info.HasAFI = b[0], true
	}
	if info.InfoFlags&InfoFlagMemorySize != 0 {
		b, err := take(2, "memory size")
		if err != nil {
			return nil, err
		}
		info.BlockCount = int(b[0]) + 1
		info.BlockSize = int(b[1]&0x1F) + 1
		info.HasMemorySize = true
	}
	if info.InfoFlags&InfoFlagICReference != 0 {
		b, err := take(1, "IC reference")
		if err != nil {
			return nil, err
		}
		info.ICReference, info.HasICReference = b[0], true
	}
	return info, nil
}
