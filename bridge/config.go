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

package bridge

import (
	"time"

	"github.com/ZaparooProject/go-nfcv"
	"github.com/ZaparooProject/go-nfcv/polling"
)

// Config holds the bridge transceiver settings.
type Config struct {
	// PollInterval is the delay between presence polls while listening.
	PollInterval time.Duration
	// RemovalTimeout is how long a tag may go unseen before the next
	// placement counts as a new detection.
	RemovalTimeout time.Duration
	// NDEFStartBlock is the first block of the NDEF TLV area.
	NDEFStartBlock nfcv.BlockAddress
	// MaxNDEFBlocks caps how many blocks are read looking for a message.
	MaxNDEFBlocks int
}

// DefaultConfig returns the settings for a Type 5 tag with its capability
// container in block 0.
func DefaultConfig() *Config {
	return &Config{
		PollInterval:   100 * time.Millisecond,
		RemovalTimeout: 600 * time.Millisecond,
		NDEFStartBlock: 1,
		MaxNDEFBlocks:  64,
	}
}

func (c *Config) pollingConfig() *polling.Config {
	return &polling.Config{
		PollInterval:   c.PollInterval,
		PollTimeout:    nfcv.DefaultTimeout,
		RemovalTimeout: c.RemovalTimeout,
	}
}
