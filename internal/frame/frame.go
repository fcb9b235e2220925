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

package frame

import (
	"bytes"
	"errors"
	"fmt"
)

var (
	// ErrTooLarge is returned when a command does not fit one frame
	ErrTooLarge = errors.New("frame data too large")
	// ErrIncomplete means more bytes are needed to decode a frame
	ErrIncomplete = errors.New("frame incomplete")
	// ErrLengthChecksum means LEN and LCS do not add up to zero
	ErrLengthChecksum = errors.New("length checksum mismatch")
	// ErrDataChecksum means the frame data and DCS do not add up to zero
	ErrDataChecksum = errors.New("data checksum mismatch")
	// ErrUnexpectedTFI means the frame came from the wrong direction
	ErrUnexpectedTFI = errors.New("unexpected frame identifier")
)

// Kind tells data frames from flow control frames.
type Kind int

const (
	KindData Kind = iota
	KindAck
	KindNack
)

// Build encodes a frame carrying tfi, cmd and args.
func Build(tfi, cmd byte, args []byte) ([]byte, error) {
	dataLen := 2 + len(args)
	if dataLen > MaxFrameDataLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, dataLen)
	}

	frm := make([]byte, 0, Overhead+dataLen)
	frm = append(frm, Preamble, StartCode1, StartCode2,
		byte(dataLen), CalculateLengthChecksum(byte(dataLen)), tfi, cmd)
	frm = append(frm, args...)
	return append(frm, CalculateDataChecksum(tfi, append([]byte{cmd}, args...)), Postamble), nil
}

// FindStart returns the index of the LEN byte following the first start
// code in buf.
func FindStart(buf []byte) (int, bool) {
	idx := bytes.Index(buf, []byte{StartCode1, StartCode2})
	if idx < 0 {
		return 0, false
	}
	return idx + 2, true
}

// Parse decodes the first frame in buf. For data frames the payload is the
// command byte and its data, with the TFI checked against want and
// removed. consumed is how many bytes of buf the frame used; it is also set
// alongside checksum errors so the caller can skip the bad frame.
// ErrIncomplete asks the caller to read more bytes.
func Parse(buf []byte, want byte) (kind Kind, payload []byte, consumed int, err error) {
	start, ok := FindStart(buf)
	if !ok || start+2 > len(buf) {
		return KindData, nil, 0, ErrIncomplete
	}

	length, lcs := buf[start], buf[start+1]
	switch {
	case length == 0x00 && lcs == 0xFF:
		return KindAck, nil, start + 2, nil
	case length == 0xFF && lcs == 0x00:
		return KindNack, nil, start + 2, nil
	case length+lcs != 0:
		return KindData, nil, start + 2, ErrLengthChecksum
	case length == 0:
		return KindData, nil, start + 2, fmt.Errorf("%w: empty frame", ErrLengthChecksum)
	}

	end := start + 2 + int(length)
	if end+1 > len(buf) {
		return KindData, nil, 0, ErrIncomplete
	}
	data := buf[start+2 : end]
	if ValidateChecksum(buf[start+2 : end+1]) {
		return KindData, nil, end + 1, ErrDataChecksum
	}
	if data[0] != want {
		return KindData, nil, end + 1, fmt.Errorf("%w: 0x%02X", ErrUnexpectedTFI, data[0])
	}

	payload = make([]byte, len(data)-1)
	copy(payload, data[1:])
	return KindData, payload, end + 1, nil
}
