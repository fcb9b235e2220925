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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		name string
		want bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "transport timeout", err: ErrTransportTimeout, want: true},
		{name: "transport read", err: ErrTransportRead, want: true},
		{name: "communication failed", err: ErrCommunicationFailed, want: true},
		{name: "no ACK", err: ErrNoACK, want: true},
		{name: "frame corrupted", err: ErrFrameCorrupted, want: true},
		{name: "checksum mismatch", err: ErrChecksumMismatch, want: true},
		{name: "wrapped timeout", err: fmt.Errorf("poll: %w", ErrTransportTimeout), want: true},
		{name: "text copy is not wrapping", err: errors.New("outer: " + ErrTransportTimeout.Error()), want: false},
		{name: "device not found", err: ErrDeviceNotFound, want: false},
		{name: "data too large", err: ErrDataTooLarge, want: false},
		{name: "status failure", err: &OperationFailedError{Err: ErrStatusFailure, Status: 1}, want: false},
		{name: "wrong device", err: &WrongDeviceError{Identifier: "x"}, want: false},
		{
			name: "transport error flag wins",
			err:  &TransportError{Err: ErrTransportTimeout, Type: ErrorTypeTimeout, Retryable: false},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestGetErrorType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		name string
		want ErrorType
	}{
		{name: "nil error", err: nil, want: ErrorTypePermanent},
		{name: "timeout", err: ErrTransportTimeout, want: ErrorTypeTimeout},
		{name: "write", err: ErrTransportWrite, want: ErrorTypeTransient},
		{name: "not ready", err: ErrTransportNotReady, want: ErrorTypeTransient},
		{name: "unknown", err: errors.New("unknown"), want: ErrorTypePermanent},
		{name: "transport error type", err: NewNoACKError("waitAck", "/dev/ttyUSB0"), want: ErrorTypeTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, GetErrorType(tt.err))
		})
	}
}

func TestTransportErrorConstructors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		te        *TransportError
		sentinel  error
		name      string
		wantType  ErrorType
		retryable bool
	}{
		{name: "timeout", te: NewTimeoutError("read", "/dev/ttyUSB0"), sentinel: ErrTransportTimeout, wantType: ErrorTypeTimeout, retryable: true},
		{name: "frame corrupted", te: NewFrameCorruptedError("read", "/dev/ttyUSB0"), sentinel: ErrFrameCorrupted, wantType: ErrorTypeTransient, retryable: true},
		{name: "data too large", te: NewDataTooLargeError("write", "/dev/ttyUSB0"), sentinel: ErrDataTooLarge, wantType: ErrorTypePermanent, retryable: false},
		{name: "no ack", te: NewNoACKError("write", "/dev/ttyUSB0"), sentinel: ErrNoACK, wantType: ErrorTypeTransient, retryable: true},
		{name: "not ready", te: NewTransportNotReadyError("ready", "/dev/i2c-1"), sentinel: ErrTransportNotReady, wantType: ErrorTypeTransient, retryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, tt.te, tt.sentinel)
			assert.Equal(t, tt.wantType, tt.te.Type)
			assert.Equal(t, tt.retryable, tt.te.Retryable)
			assert.NotEmpty(t, tt.te.Port)
		})
	}
}

func TestTransportError_Error(t *testing.T) {
	t.Parallel()

	withPort := &TransportError{Err: errors.New("connection failed"), Op: "read", Port: "/dev/ttyUSB0"}
	assert.Equal(t, "read on /dev/ttyUSB0: connection failed", withPort.Error())

	withoutPort := &TransportError{Err: errors.New("device busy"), Op: "write"}
	assert.Equal(t, "write: device busy", withoutPort.Error())
}

func TestOperationFailedError(t *testing.T) {
	t.Parallel()

	err := annotate(CheckStatus([]byte{0x01, 0x10}), StageRead, func() *BlockAddress {
		a := BlockAddress(7)
		return &a
	}())

	var opErr *OperationFailedError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, StageRead, opErr.Stage)
	assert.Equal(t, BlockAddress(7), opErr.Block)
	assert.True(t, opErr.HasBlock)
	code, ok := opErr.ErrorCode()
	assert.True(t, ok)
	assert.Equal(t, byte(0x10), code)
	assert.ErrorIs(t, err, ErrStatusFailure)
	assert.Equal(t, "read failed at block 7: status 0x01, error code 0x10: tag reported failure status", err.Error())
}

func TestOperationFailedError_StatusOnly(t *testing.T) {
	t.Parallel()

	err := annotate(CheckStatus([]byte{0x01}), StageSystemInfo, nil)
	var opErr *OperationFailedError
	require.ErrorAs(t, err, &opErr)
	_, ok := opErr.ErrorCode()
	assert.False(t, ok)
	assert.False(t, opErr.HasBlock)
	assert.Equal(t, "systemInfo failed: status 0x01: tag reported failure status", err.Error())
}

func TestAnnotate_PassesOtherErrorsThrough(t *testing.T) {
	t.Parallel()

	addr := BlockAddress(1)
	assert.Same(t, ErrNoNFC, annotate(ErrNoNFC, StageRead, &addr))
}

func TestWrongDeviceError(t *testing.T) {
	t.Parallel()

	mismatch := &WrongDeviceError{Identifier: "other"}
	assert.ErrorIs(t, mismatch, ErrWrongDeviceType)
	assert.Contains(t, mismatch.Error(), "other")

	undecodable := &WrongDeviceError{Err: ErrUndefinedNDEF}
	assert.ErrorIs(t, undecodable, ErrWrongDeviceType)
	assert.ErrorIs(t, undecodable, ErrUndefinedNDEF)
}
