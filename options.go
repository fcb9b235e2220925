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

// Option configures a Service.
type Option func(*Service) error

// WithNDEFDecoder replaces the default NDEF decoder.
func WithNDEFDecoder(decoder NDEFDecoder) Option {
	return func(s *Service) error {
		if decoder == nil {
			return fmt.Errorf("%w: nil NDEF decoder", ErrInvalidParameter)
		}
		s.decoder = decoder
		return nil
	}
}

// WithDeviceNameRecord sets which NDEF record holds the device identifier.
func WithDeviceNameRecord(index int) Option {
	return func(s *Service) error {
		if index < 0 {
			return fmt.Errorf("%w: record index %d", ErrInvalidParameter, index)
		}
		s.recordIndex = index
		return nil
	}
}

// CallOption adjusts a single Service call.
type CallOption func(*callConfig)

type callConfig struct {
	device    DeviceSignature
	maxBlocks int
	hasMax    bool
	listen    bool
}

func newCallConfig(opts []CallOption) callConfig {
	cfg := callConfig{listen: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithListening controls whether the call starts listening first.
func WithListening(listen bool) CallOption {
	return func(c *callConfig) {
		c.listen = listen
	}
}

// WithoutListening assumes a tag session is already established.
func WithoutListening() CallOption {
	return WithListening(false)
}

// WithDevice rejects tags whose identifier does not match sig.
func WithDevice(sig DeviceSignature) CallOption {
	return func(c *callConfig) {
		c.device = sig
	}
}

// WithMaxBlocks bounds ScanBlocks and ReadUntil: the scan stops before
// reading the block whose index would exceed n.
func WithMaxBlocks(n int) CallOption {
	return func(c *callConfig) {
		c.maxBlocks = n
		c.hasMax = true
	}
}

var errNilTransceiver = errors.New("nil transceiver")
