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
	"context"

	gondef "github.com/hsanjuan/go-ndef"

	"github.com/ZaparooProject/go-nfcv/ndef"
)

// BlockAddress is a one-byte ISO 15693 block number.
type BlockAddress uint8

// MaxBlockAddress is the highest addressable block.
const MaxBlockAddress = 0xFF

// Block is a block address paired with the data read from it.
type Block struct {
	Data    []byte
	Address BlockAddress
}

// WriteResult is a block address, the data written and the tag's
// acknowledgement exactly as received.
type WriteResult struct {
	Data     []byte
	Response []byte
	Address  BlockAddress
}

// NDEFEvent is the notification a transceiver emits when it detects an
// NDEF message. NDEF holds the message as a JSON array of signed bytes.
type NDEFEvent struct {
	NDEF string `json:"ndef"`
}

// NDEFHandler receives NDEF notifications.
type NDEFHandler func(NDEFEvent)

// Transceiver is the device that talks to the tag. Every method blocks
// until the device answers.
type Transceiver interface {
	Init(ctx context.Context) error
	CheckAvailability(ctx context.Context) error
	// StartListening blocks until a tag is presented and returns the NDEF
	// payload found on it.
	StartListening(ctx context.Context) ([]byte, error)
	StopListening(ctx context.Context) error
	Transceive(ctx context.Context, request []byte) ([]byte, error)
	ReadBlock(ctx context.Context, addr BlockAddress) ([]byte, error)
	WriteBlock(ctx context.Context, addr BlockAddress, data []byte) ([]byte, error)
	AddNDEFListener(ctx context.Context, handler NDEFHandler) error
}

// NDEFDecoder turns raw NDEF bytes into records and text.
type NDEFDecoder interface {
	Parse(payload []byte) (*gondef.Message, error)
	ResolveTextRecord(record *gondef.Record) (ndef.Text, error)
}

// DeviceSignature matches the device identifier stored on a tag.
// *regexp.Regexp satisfies it.
type DeviceSignature interface {
	MatchString(s string) bool
}

// ScanPredicate decides whether ScanBlocks keeps going after a block.
// Returning false makes the current block the last one.
type ScanPredicate func(data []byte, addr BlockAddress, index int) bool
