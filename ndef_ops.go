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
	"errors"
	"fmt"

	"github.com/ZaparooProject/go-nfcv/ndef"
)

// NDEFStartBlock is the first block of the NDEF data area; block 0 holds
// the capability container.
const NDEFStartBlock BlockAddress = 1

// ReadNDEF reads blocks from NDEFStartBlock until the NDEF TLV is complete
// and returns the NDEF message it holds.
func (s *Service) ReadNDEF(ctx context.Context, opts ...CallOption) ([]byte, error) {
	var area []byte
	var done bool
	pred := func(data []byte, _ BlockAddress, _ int) bool {
		area = append(area, data...)
		_, err := ndef.Extract(area)
		done = !errors.Is(err, ndef.ErrTLVIncomplete)
		return !done
	}

	if _, err := s.ReadUntil(ctx, NDEFStartBlock, pred, opts...); err != nil {
		return nil, err
	}
	if !done {
		return nil, fmt.Errorf("%w: NDEF TLV not complete after %d bytes", ndef.ErrTLVIncomplete, len(area))
	}
	msg, err := ndef.Extract(area)
	if err != nil {
		return nil, fmt.Errorf("failed to extract NDEF message: %w", err)
	}
	return msg, nil
}

// WriteNDEFText writes a capability container to block 0 and a single
// text record message from NDEFStartBlock, padded to blockSize. The tag
// must expose dataAreaSize bytes of NDEF memory.
func (s *Service) WriteNDEFText(
	ctx context.Context, text string, blockSize, dataAreaSize int, opts ...CallOption,
) ([]WriteResult, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("%w: block size %d", ErrInvalidParameter, blockSize)
	}

	msg, err := ndef.NewTextMessage(text, "en")
	if err != nil {
		return nil, err
	}
	tlv, err := ndef.Wrap(msg)
	if err != nil {
		return nil, err
	}
	if pad := len(tlv) % blockSize; pad != 0 {
		tlv = append(tlv, make([]byte, blockSize-pad)...)
	}
	if len(tlv) > dataAreaSize {
		return nil, fmt.Errorf("%w: message needs %d bytes, tag has %d", ErrDataTooLarge, len(tlv), dataAreaSize)
	}
	if len(tlv)/blockSize > MaxBlockAddress {
		return nil, fmt.Errorf("%w: message needs %d blocks", ErrAddressOverflow, len(tlv)/blockSize)
	}

	cc := ndef.CapabilityContainer(dataAreaSize)
	blocks := make([]Block, 0, 1+len(tlv)/blockSize)
	blocks = append(blocks, Block{Address: 0, Data: padBlock(cc, blockSize)})
	for i := 0; i < len(tlv); i += blockSize {
		blocks = append(blocks, Block{
			Address: NDEFStartBlock + BlockAddress(i/blockSize),
			Data:    tlv[i : i+blockSize],
		})
	}
	return s.Write(ctx, blocks, opts...)
}

func padBlock(data []byte, size int) []byte {
	out := make([]byte, size)
	copy(out, data)
	return out
}
