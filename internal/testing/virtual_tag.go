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

// Package testing provides simulated NFC-V tags, bridge modules and serial
// ports for tests.
package testing

import (
	"fmt"
	"slices"
	"sync"

	"github.com/ZaparooProject/go-nfcv/ndef"
	"github.com/ZaparooProject/go-nfcv/protocol"
)

// ISO 15693 error codes returned by VirtualTag
const (
	ErrCodeNotSupported  = 0x01
	ErrCodeFormat        = 0x02
	ErrCodeBlockNotFound = 0x10
	ErrCodeBlockLocked   = 0x12
)

// TestUID is the UID given to tags created without one, most significant
// byte first.
var TestUID = []byte{0xE0, 0x04, 0x01, 0x50, 0x12, 0x34, 0x56, 0x78}

// VirtualTag is a simulated ISO 15693 tag
type VirtualTag struct {
	UID         []byte
	blocks      [][]byte
	locked      map[int]bool
	BlockSize   int
	DSFID       byte
	AFI         byte
	ICReference byte
	mu          sync.Mutex
	present     bool
}

// NewVirtualTag creates a present tag with blockCount blocks of blockSize
// bytes. Block 0 holds a capability container for the remaining blocks
// and block 1 an empty NDEF TLV.
func NewVirtualTag(uid []byte, blockCount, blockSize int) *VirtualTag {
	if uid == nil {
		uid = TestUID
	}
	tag := &VirtualTag{
		UID:         slices.Clone(uid),
		BlockSize:   blockSize,
		blocks:      make([][]byte, blockCount),
		locked:      make(map[int]bool),
		ICReference: 0x8B,
		present:     true,
	}
	for i := range tag.blocks {
		tag.blocks[i] = make([]byte, blockSize)
	}
	copy(tag.blocks[0], ndef.CapabilityContainer((blockCount-1)*blockSize))
	if blockCount > 1 {
		copy(tag.blocks[1], []byte{ndef.TLVNDEF, 0x00, ndef.TLVTerminator})
	}
	return tag
}

// NewVirtualSLIX creates a 28 block, 4 byte per block tag.
func NewVirtualSLIX(uid []byte) *VirtualTag {
	return NewVirtualTag(uid, 28, 4)
}

// SetNDEFText stores a text record message from block 1.
func (v *VirtualTag) SetNDEFText(text string) error {
	msg, err := ndef.NewTextMessage(text, "en")
	if err != nil {
		return err
	}
	return v.SetNDEF(msg)
}

// SetNDEF stores msg in an NDEF TLV from block 1.
func (v *VirtualTag) SetNDEF(msg []byte) error {
	tlv, err := ndef.Wrap(msg)
	if err != nil {
		return err
	}
	return v.SetDataArea(tlv)
}

// SetDataArea writes data from block 1 onwards, zero padding the last block.
func (v *VirtualTag) SetDataArea(data []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if len(data) > (len(v.blocks)-1)*v.BlockSize {
		return fmt.Errorf("data area of %d bytes does not fit %d blocks", len(data), len(v.blocks)-1)
	}
	for i := 1; i < len(v.blocks); i++ {
		clear(v.blocks[i])
		off := (i - 1) * v.BlockSize
		if off < len(data) {
			copy(v.blocks[i], data[off:])
		}
	}
	return nil
}

// Block returns a copy of a block's data.
func (v *VirtualTag) Block(i int) []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	if i < 0 || i >= len(v.blocks) {
		return nil
	}
	return slices.Clone(v.blocks[i])
}

// Lock write protects a block.
func (v *VirtualTag) Lock(i int) {
	v.mu.Lock()
	v.locked[i] = true
	v.mu.Unlock()
}

// Remove takes the tag out of the field.
func (v *VirtualTag) Remove() {
	v.mu.Lock()
	v.present = false
	v.mu.Unlock()
}

// Insert puts the tag back in the field.
func (v *VirtualTag) Insert() {
	v.mu.Lock()
	v.present = true
	v.mu.Unlock()
}

// Present reports whether the tag is in the field.
func (v *VirtualTag) Present() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.present
}

// Handle answers an ISO 15693 request the way a tag would: a status byte,
// then either data or an error code.
func (v *VirtualTag) Handle(request []byte) []byte {
	v.mu.Lock()
	defer v.mu.Unlock()

	if len(request) < 2 {
		return errorResponse(ErrCodeFormat)
	}

	switch request[1] {
	case protocol.ISOReadSingleBlock:
		if len(request) != 3 {
			return errorResponse(ErrCodeFormat)
		}
		addr := int(request[2])
		if addr >= len(v.blocks) {
			return errorResponse(ErrCodeBlockNotFound)
		}
		return append([]byte{0x00}, v.blocks[addr]...)

	case protocol.ISOWriteSingleBlock:
		if len(request) != 3+v.BlockSize {
			return errorResponse(ErrCodeFormat)
		}
		addr := int(request[2])
		if addr >= len(v.blocks) {
			return errorResponse(ErrCodeBlockNotFound)
		}
		if v.locked[addr] {
			return errorResponse(ErrCodeBlockLocked)
		}
		copy(v.blocks[addr], request[3:])
		return []byte{0x00}

	case protocol.ISOGetSystemInfo:
		resp := []byte{0x00, 0x0F}
		resp = append(resp, reversed(v.UID)...)
		return append(resp, v.DSFID, v.AFI, byte(len(v.blocks)-1), byte(v.BlockSize-1), v.ICReference)

	default:
		return errorResponse(ErrCodeNotSupported)
	}
}

func errorResponse(code byte) []byte {
	return []byte{0x01, code}
}

func reversed(b []byte) []byte {
	out := slices.Clone(b)
	slices.Reverse(out)
	return out
}
