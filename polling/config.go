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

package polling

import "time"

// Config controls the monitor's cadence.
type Config struct {
	// PollInterval is the delay between two presence polls.
	PollInterval time.Duration
	// PollTimeout bounds a single poll.
	PollTimeout time.Duration
	// RemovalTimeout is how long a tag may go unseen before it counts as removed.
	RemovalTimeout time.Duration
}

// DefaultConfig returns the settings used by the bridge.
func DefaultConfig() *Config {
	return &Config{
		PollInterval:   100 * time.Millisecond,
		PollTimeout:    time.Second,
		RemovalTimeout: 600 * time.Millisecond,
	}
}
