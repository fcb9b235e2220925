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

import "strings"

// HexToBytes parses a hexadecimal string two characters at a time.
// Characters that are not hex digits count as zero, an odd trailing
// character is ignored, and the empty string yields an empty slice.
func HexToBytes(hex string) []byte {
	out := make([]byte, 0, len(hex)/2)
	for i := 0; i+1 < len(hex); i += 2 {
		out = append(out, hexNibble(hex[i])<<4|hexNibble(hex[i+1]))
	}
	return out
}

func hexNibble(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return 0
	}
}

// BytesToHex renders bytes as lower-case, zero-padded hex.
func BytesToHex(data []byte) string {
	const digits = "0123456789abcdef"
	var sb strings.Builder
	sb.Grow(len(data) * 2)
	for _, b := range data {
		sb.WriteByte(digits[b>>4])
		sb.WriteByte(digits[b&0x0F])
	}
	return sb.String()
}

// BytesToInt interprets data as a little-endian unsigned integer. Bytes
// beyond the eighth are ignored.
func BytesToInt(data []byte) uint64 {
	var v uint64
	for i := 0; i < len(data) && i < 8; i++ {
		v |= uint64(data[i]) << (8 * i)
	}
	return v
}

// BytesToString maps each byte to the code point of the same value.
func BytesToString(data []byte) string {
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}

// Splice returns a copy of data with count bytes removed at index.
// Out-of-range arguments are clamped.
func Splice(data []byte, index, count int) []byte {
	index = min(max(index, 0), len(data))
	count = min(max(count, 0), len(data)-index)
	out := make([]byte, 0, len(data)-count)
	out = append(out, data[:index]...)
	return append(out, data[index+count:]...)
}
