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
	"fmt"
	"iter"
)

// ReadBlock reads one block and returns its data without the status byte.
func (s *Service) ReadBlock(ctx context.Context, addr BlockAddress, opts ...CallOption) ([]byte, error) {
	cfg := newCallConfig(opts)
	return s.readBlock(ctx, addr, cfg.listen, cfg.device)
}

func (s *Service) readBlock(
	ctx context.Context, addr BlockAddress, listen bool, device DeviceSignature,
) ([]byte, error) {
	if _, err := s.ensureListening(ctx, listen, device); err != nil {
		return nil, err
	}

	resp, err := s.transceiver.ReadBlock(ctx, addr)
	if err != nil {
		return nil, err
	}
	data, err := ValidateResponse(resp)
	if err != nil {
		debugEvent().Str("stage", string(StageRead)).Uint8("block", uint8(addr)).Err(err).Msg("block failed")
		return nil, annotate(err, StageRead, &addr)
	}
	debugEvent().Str("stage", string(StageRead)).Uint8("block", uint8(addr)).Hex("data", data).Msg("block done")
	return data, nil
}

// WriteBlock writes one block. The tag's acknowledgement is returned as
// received, status byte included.
func (s *Service) WriteBlock(
	ctx context.Context, addr BlockAddress, data []byte, opts ...CallOption,
) ([]byte, error) {
	cfg := newCallConfig(opts)
	return s.writeBlock(ctx, addr, data, cfg.listen, cfg.device)
}

func (s *Service) writeBlock(
	ctx context.Context, addr BlockAddress, data []byte, listen bool, device DeviceSignature,
) ([]byte, error) {
	if _, err := s.ensureListening(ctx, listen, device); err != nil {
		return nil, err
	}

	resp, err := s.transceiver.WriteBlock(ctx, addr, data)
	if err != nil {
		return nil, err
	}
	if err := CheckStatus(resp); err != nil {
		debugEvent().Str("stage", string(StageWrite)).Uint8("block", uint8(addr)).Err(err).Msg("block failed")
		return nil, annotate(err, StageWrite, &addr)
	}
	debugEvent().Str("stage", string(StageWrite)).Uint8("block", uint8(addr)).Hex("data", data).Msg("block done")
	return resp, nil
}

// Read listens once and then reads addrs one after another. The first
// failure aborts the batch and nothing read so far is returned.
func (s *Service) Read(ctx context.Context, addrs []BlockAddress, opts ...CallOption) ([]Block, error) {
	cfg := newCallConfig(opts)
	if _, err := s.ensureListening(ctx, cfg.listen, cfg.device); err != nil {
		return nil, err
	}

	blocks := make([]Block, 0, len(addrs))
	for _, addr := range addrs {
		data, err := s.readBlock(ctx, addr, false, nil)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, Block{Address: addr, Data: data})
	}
	return blocks, nil
}

// Write listens once and then writes blocks one after another. The first
// failure aborts the batch; later blocks are not written.
func (s *Service) Write(ctx context.Context, blocks []Block, opts ...CallOption) ([]WriteResult, error) {
	cfg := newCallConfig(opts)
	if _, err := s.ensureListening(ctx, cfg.listen, cfg.device); err != nil {
		return nil, err
	}

	results := make([]WriteResult, 0, len(blocks))
	for _, b := range blocks {
		resp, err := s.writeBlock(ctx, b.Address, b.Data, false, nil)
		if err != nil {
			return nil, err
		}
		results = append(results, WriteResult{Address: b.Address, Data: b.Data, Response: resp})
	}
	return results, nil
}

// ReadRange reads start through end inclusive and concatenates the data.
// An end before start reads nothing.
func (s *Service) ReadRange(
	ctx context.Context, start, end BlockAddress, opts ...CallOption,
) ([]byte, error) {
	var addrs []BlockAddress
	for a := int(start); a <= int(end); a++ {
		addrs = append(addrs, BlockAddress(a))
	}

	blocks, err := s.Read(ctx, addrs, opts...)
	if err != nil {
		return nil, err
	}

	var out []byte
	for _, b := range blocks {
		out = append(out, b.Data...)
	}
	return out, nil
}

// ScanBlocks lazily reads consecutive blocks from start. Listening, if
// requested, happens before the first block only. Each block is yielded
// after pred has seen it; the scan ends after the first block for which
// pred returns false, when WithMaxBlocks is exceeded, or at the first
// error, which is yielded.
func (s *Service) ScanBlocks(
	ctx context.Context, start BlockAddress, pred ScanPredicate, opts ...CallOption,
) iter.Seq2[Block, error] {
	cfg := newCallConfig(opts)
	return func(yield func(Block, error) bool) {
		for index := 0; ; index++ {
			if cfg.hasMax && index > cfg.maxBlocks {
				return
			}

			next := int(start) + index
			if next > MaxBlockAddress {
				yield(Block{}, fmt.Errorf("%w: block %d", ErrAddressOverflow, next))
				return
			}
			addr := BlockAddress(next)

			var data []byte
			var err error
			if index == 0 {
				data, err = s.readBlock(ctx, addr, cfg.listen, cfg.device)
			} else {
				data, err = s.readBlock(ctx, addr, false, nil)
			}
			if err != nil {
				yield(Block{}, err)
				return
			}

			more := pred(data, addr, index)
			if !yield(Block{Address: addr, Data: data}, nil) || !more {
				return
			}
		}
	}
}

// ReadUntil collects ScanBlocks. Any failure discards the blocks read.
func (s *Service) ReadUntil(
	ctx context.Context, start BlockAddress, pred ScanPredicate, opts ...CallOption,
) ([]Block, error) {
	var blocks []Block
	for b, err := range s.ScanBlocks(ctx, start, pred, opts...) {
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}
