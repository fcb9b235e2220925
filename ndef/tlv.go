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
	"encoding/binary"
	"errors"
	"fmt"
)

// TLV block types found in the data area of a Type 5 tag
const (
	TLVNull          = 0x00
	TLVLockControl   = 0x01
	TLVMemoryControl = 0x02
	TLVNDEF          = 0x03
	TLVProprietary   = 0xFD
	TLVTerminator    = 0xFE

	tlvLongLength  = 0xFF
	maxShortLength = 0xFE
	maxLongLength  = 0xFFFF
)

var (
	// ErrTLVIncomplete means the data ends before the NDEF TLV does;
	// reading more blocks may complete it.
	ErrTLVIncomplete = errors.New("TLV data incomplete")
	// ErrTLVNotFound means a terminator was reached before any NDEF TLV
	ErrTLVNotFound = errors.New("NDEF TLV not found")
	// ErrTLVTooLarge is returned when a message does not fit a TLV length field
	ErrTLVTooLarge = errors.New("NDEF message too large for TLV")
)

// Location describes where an NDEF message sits inside a TLV area.
type Location struct {
	Offset     int // first message byte
	Length     int // message length
	HeaderSize int // 2 for short length, 4 for long length
}

// End returns the offset just past the message.
func (l Location) End() int {
	return l.Offset + l.Length
}

// Locate walks the TLV blocks in data and returns the first NDEF TLV.
// NULL padding is skipped, as are lock/memory control and proprietary
// blocks.
func Locate(data []byte) (Location, error) {
	for off := 0; off < len(data); {
		switch t := data[off]; t {
		case TLVNull:
			off++
		case TLVTerminator:
			return Location{}, ErrTLVNotFound
		default:
			length, header, err := readLength(data, off)
			if err != nil {
				return Location{}, err
			}
			if t == TLVNDEF {
				return Location{Offset: off + header, Length: length, HeaderSize: header}, nil
			}
			off += header + length
		}
	}
	return Location{}, ErrTLVIncomplete
}

func readLength(data []byte, off int) (length, header int, err error) {
	if off+1 >= len(data) {
		return 0, 0, fmt.Errorf("%w: missing length at offset %d", ErrTLVIncomplete, off)
	}
	if data[off+1] != tlvLongLength {
		return int(data[off+1]), 2, nil
	}
	if off+3 >= len(data) {
		return 0, 0, fmt.Errorf("%w: missing long length at offset %d", ErrTLVIncomplete, off)
	}
	return int(binary.BigEndian.Uint16(data[off+2 : off+4])), 4, nil
}

// Extract returns the NDEF message held in the first NDEF TLV of data.
func Extract(data []byte) ([]byte, error) {
	loc, err := Locate(data)
	if err != nil {
		return nil, err
	}
	if loc.End() > len(data) {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTLVIncomplete, loc.End(), len(data))
	}
	out := make([]byte, loc.Length)
	copy(out, data[loc.Offset:loc.End()])
	return out, nil
}

// Wrap frames msg as an NDEF TLV followed by a terminator TLV.
func Wrap(msg []byte) ([]byte, error) {
	n := len(msg)
	if n > maxLongLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrTLVTooLarge, n)
	}

	out := make([]byte, 0, n+5)
	if n <= maxShortLength {
		out = append(out, TLVNDEF, byte(n))
	} else {
		out = append(out, TLVNDEF, tlvLongLength)
		out = binary.BigEndian.AppendUint16(out, uint16(n))
	}
	out = append(out, msg...)
	return append(out, TLVTerminator), nil
}
