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
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var (
	debugEnabled atomic.Bool
	loggerMu     sync.RWMutex
	logger       = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
)

// SetDebugEnabled turns debug logging for the whole library on or off.
func SetDebugEnabled(enabled bool) {
	debugEnabled.Store(enabled)
}

// DebugEnabled reports whether debug logging is on.
func DebugEnabled() bool {
	return debugEnabled.Load()
}

// SetLogger replaces the logger used for debug output.
func SetLogger(l zerolog.Logger) {
	loggerMu.Lock()
	logger = l
	loggerMu.Unlock()
}

// Logger returns the logger used for debug output.
func Logger() *zerolog.Logger {
	loggerMu.RLock()
	l := logger
	loggerMu.RUnlock()
	return &l
}

// Debugf logs a formatted message when debug logging is enabled. It is
// exported for the transport and bridge packages.
func Debugf(format string, args ...any) {
	if !debugEnabled.Load() {
		return
	}
	Logger().Debug().Msgf(format, args...)
}

// debugEvent starts a structured debug line, or returns nil (a no-op event)
// while debug logging is off.
func debugEvent() *zerolog.Event {
	if !debugEnabled.Load() {
		return nil
	}
	return Logger().Debug()
}

func debugf(format string, args ...any) {
	Debugf(format, args...)
}

func debugln(args ...any) {
	if !debugEnabled.Load() {
		return
	}
	Logger().Debug().Msg(fmt.Sprint(args...))
}
