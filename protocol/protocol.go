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

// Package protocol defines the command set spoken between the host and an
// NFC-V bridge module, and the ISO 15693 requests the host builds.
//
// Every command is answered with a frame whose first byte is the command
// code plus one, followed by command specific data:
//
//	Init              -> [0x02]
//	CheckAvailability -> [0x03, status]
//	StartListening    -> [0x11]
//	StopListening     -> [0x12]
//	PollTag           -> [0x13, 0x00] or [0x13, 0x01, uid...]
//	Transceive        -> [0x21, module status, tag response...]
//
// Codes overlap across directions: the StartListening reply 0x11 equals
// CmdStopListening and the StopListening reply 0x12 equals CmdPollTag.
// Only the frame identifier (0xD4 host to module, 0xD5 module to host)
// tells a command from a reply, so a reply code must never be read from
// a host frame or the other way round.
package protocol

import (
	"fmt"

	nfcv "github.com/ZaparooProject/go-nfcv"
)

// Bridge module commands
const (
	CmdInit              byte = 0x01
	CmdCheckAvailability byte = 0x02
	CmdStartListening    byte = 0x10
	CmdStopListening     byte = 0x11
	CmdPollTag           byte = 0x12
	CmdTransceive        byte = 0x20
)

// CheckAvailability statuses
const (
	AvailabilityOK       byte = 0x00
	AvailabilityNoNFC    byte = 0x01
	AvailabilityDisabled byte = 0x02
)

// PollTag results
const (
	TagAbsent  byte = 0x00
	TagPresent byte = 0x01
)

// Transceive module statuses
const (
	ModuleOK    byte = 0x00
	ModuleNoTag byte = 0x01
)

// ISO 15693 request flags and commands
const (
	FlagHighDataRate    byte = 0x02
	ISOReadSingleBlock  byte = 0x20
	ISOWriteSingleBlock byte = 0x21
	ISOGetSystemInfo    byte = 0x2B
)

// ResponseCode returns the code a module answers cmd with.
func ResponseCode(cmd byte) byte {
	return cmd + 1
}

// ReadSingleBlock builds a Read Single Block request. Only one-byte block
// addresses are supported.
func ReadSingleBlock(addr []byte) ([]byte, error) {
	if err := checkAddress(addr); err != nil {
		return nil, err
	}
	return []byte{FlagHighDataRate, ISOReadSingleBlock, addr[0]}, nil
}

// WriteSingleBlock builds a Write Single Block request.
func WriteSingleBlock(addr, data []byte) ([]byte, error) {
	if err := checkAddress(addr); err != nil {
		return nil, err
	}
	req := make([]byte, 0, 3+len(data))
	req = append(req, FlagHighDataRate, ISOWriteSingleBlock, addr[0])
	return append(req, data...), nil
}

func checkAddress(addr []byte) error {
	switch {
	case len(addr) == 0:
		return fmt.Errorf("%w: empty block address", nfcv.ErrInvalidParameter)
	case len(addr) > 1:
		return fmt.Errorf("%w: %d bytes", nfcv.ErrAddressTooLong, len(addr))
	}
	return nil
}
