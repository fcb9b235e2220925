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

// Transport-level sentinels.
var (
	ErrTransportTimeout    = errors.New("transport timeout")
	ErrTransportRead       = errors.New("transport read failed")
	ErrTransportWrite      = errors.New("transport write failed")
	ErrTransportClosed     = errors.New("transport closed")
	ErrCommunicationFailed = errors.New("communication failed")
	ErrNoACK               = errors.New("no ACK received")
	ErrFrameCorrupted      = errors.New("frame corrupted")
	ErrChecksumMismatch    = errors.New("checksum mismatch")
	ErrTransportNotReady   = errors.New("transport not ready")
	ErrDeviceNotFound      = errors.New("device not found")
	ErrDataTooLarge        = errors.New("data too large")
	ErrInvalidParameter    = errors.New("invalid parameter")
	ErrUnexpectedResponse  = errors.New("unexpected response")
)

// Bridge and tag sentinels.
var (
	ErrTagNotFound     = errors.New("tag not found")
	ErrNoNFC           = errors.New("E_NO_NFC")
	ErrNFCDisabled     = errors.New("E_NFC_DISABLED")
	ErrNullTag         = errors.New("E_NULL_TAG")
	ErrAddressTooLong  = errors.New("E_ADDR_TOO_LONG")
	ErrAddressOverflow = errors.New("block address overflow")
)

// Tag-level outcomes.
var (
	ErrStatusFailure   = errors.New("tag reported failure status")
	ErrEmptyResponse   = errors.New("empty tag response")
	ErrWrongDeviceType = errors.New("E_WRONG_DEVICE_TYPE")
	ErrUndefinedNDEF   = errors.New("UNDEFINED_NDEF")
	ErrNDEFParse       = errors.New("NDEF_PARSE_ERROR")
)

// ErrorType classifies errors for retry decisions
type ErrorType int

const (
	// ErrorTypePermanent indicates an error that won't be fixed by retrying
	ErrorTypePermanent ErrorType = iota
	// ErrorTypeTransient indicates an error that might be fixed by retrying
	ErrorTypeTransient
	// ErrorTypeTimeout indicates a timeout
	ErrorTypeTimeout
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeTimeout:
		return "timeout"
	default:
		return "permanent"
	}
}

// TransportError carries link-level failure details.
type TransportError struct {
	Err       error
	Op        string
	Port      string
	Type      ErrorType
	Retryable bool
}

func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s on %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a transport error; retryability follows the type.
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType != ErrorTypePermanent,
	}
}

// NewTimeoutError creates a retryable timeout error
func NewTimeoutError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTransportTimeout, ErrorTypeTimeout)
}

// NewFrameCorruptedError creates a retryable frame corruption error
func NewFrameCorruptedError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrFrameCorrupted, ErrorTypeTransient)
}

// NewDataTooLargeError creates a permanent error for oversized payloads
func NewDataTooLargeError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrDataTooLarge, ErrorTypePermanent)
}

// NewNoACKError creates a retryable missing ACK error
func NewNoACKError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrNoACK, ErrorTypeTransient)
}

// NewTransportNotReadyError creates a retryable not-ready error
func NewTransportNotReadyError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTransportNotReady, ErrorTypeTransient)
}

var retryableErrors = []error{
	ErrTransportTimeout,
	ErrTransportRead,
	ErrTransportWrite,
	ErrCommunicationFailed,
	ErrNoACK,
	ErrFrameCorrupted,
	ErrChecksumMismatch,
	ErrTransportNotReady,
}

// IsRetryable reports whether err is worth retrying at the link level.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}
	for _, target := range retryableErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// GetErrorType returns the classification of err.
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ErrorTypePermanent
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Type
	}
	if errors.Is(err, ErrTransportTimeout) {
		return ErrorTypeTimeout
	}
	if IsRetryable(err) {
		return ErrorTypeTransient
	}
	return ErrorTypePermanent
}

// Stage names the operation that produced an OperationFailedError.
type Stage string

const (
	StageRead          Stage = "read"
	StageWrite         Stage = "write"
	StageSystemInfo    Stage = "systemInfo"
	StageValidate      Stage = "validate"
	StageListen        Stage = "listen"
	StageStopListening Stage = "stopListening"
)

// OperationFailedError is returned when a tag response carries a non-zero
// status byte (or no bytes at all).
type OperationFailedError struct {
	Err      error
	Stage    Stage
	Block    BlockAddress
	HasBlock bool
	Status   byte
	Code     byte
	HasCode  bool
}

func (e *OperationFailedError) Error() string {
	msg := "operation failed"
	if e.Stage != "" {
		msg = string(e.Stage) + " failed"
	}
	if e.HasBlock {
		msg += fmt.Sprintf(" at block %d", e.Block)
	}
	if e.HasCode {
		msg += fmt.Sprintf(": status 0x%02X, error code 0x%02X", e.Status, e.Code)
	} else if e.Status != 0 {
		msg += fmt.Sprintf(": status 0x%02X", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *OperationFailedError) Unwrap() error {
	return e.Err
}

// ErrorCode returns the ISO 15693 error code if the tag sent one.
func (e *OperationFailedError) ErrorCode() (byte, bool) {
	return e.Code, e.HasCode
}

// WrongDeviceError is returned when the listened tag's identifier does not
// match the requested device signature.
type WrongDeviceError struct {
	Err        error
	Identifier string
}

func (e *WrongDeviceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %v", ErrWrongDeviceType, e.Err)
	}
	return fmt.Sprintf("%v: %q", ErrWrongDeviceType, e.Identifier)
}

func (e *WrongDeviceError) Is(target error) bool {
	return target == ErrWrongDeviceType
}

func (e *WrongDeviceError) Unwrap() error {
	return e.Err
}

// annotate fills in stage and block on an OperationFailedError and passes
// any other error through untouched.
func annotate(err error, stage Stage, addr *BlockAddress) error {
	var opErr *OperationFailedError
	if !errors.As(err, &opErr) {
		return err
	}
	opErr.Stage = stage
	if addr != nil {
		opErr.Block = *addr
		opErr.HasBlock = true
	}
	return err
}
