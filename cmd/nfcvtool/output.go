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

package main

import (
	"fmt"

	"github.com/ZaparooProject/go-nfcv"
)

func printSystemInfo(info *nfcv.SystemInfo) {
	_, _ = fmt.Print("\n=== System Information ===\n")
	_, _ = fmt.Printf("UID:          %s\n", info.UIDString())
	if info.HasMemorySize {
		_, _ = fmt.Printf("Memory:       %d blocks x %d bytes\n", info.BlockCount, info.BlockSize)
	}
	if info.HasDSFID {
		_, _ = fmt.Printf("DSFID:        0x%02X\n", info.DSFID)
	}
	if info.HasAFI {
		_, _ = fmt.Printf("AFI:          0x%02X\n", info.AFI)
	}
	if info.HasICReference {
		_, _ = fmt.Printf("IC reference: 0x%02X\n", info.ICReference)
	}
}

func printBlocks(blocks []nfcv.Block) {
	_, _ = fmt.Print("\n=== Blocks ===\n")
	for _, b := range blocks {
		_, _ = fmt.Printf("%3d: % X\n", b.Address, b.Data)
	}
}

func printNDEF(svc *nfcv.Service, msg []byte) {
	_, _ = fmt.Print("\n=== NDEF ===\n")
	_, _ = fmt.Printf("Raw: %s\n", nfcv.BytesToHex(msg))
	id, err := svc.DecodeDeviceIdentifier(msg)
	if err != nil {
		_, _ = fmt.Printf("Identifier: none (%v)\n", err)
		return
	}
	_, _ = fmt.Printf("Identifier: %s\n", id)
}

func printTagEvent(kind string, e nfcv.TagEvent) {
	if e.Err != nil {
		_, _ = fmt.Printf("[%s] error: %v\n", kind, e.Err)
		return
	}
	_, _ = fmt.Printf("[%s] device %q (%d NDEF bytes)\n", kind, e.DeviceID, len(e.Raw))
}
