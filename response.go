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

// StatusOK is the status byte of a successful ISO 15693 response.
const StatusOK = 0x00

// CheckStatus inspects the leading status byte of a tag response. A
// non-zero status becomes an *OperationFailedError; the byte after it is
// reported as the error code only when present.
func CheckStatus(response []byte) error {
	if len(response) == 0 {
		return &OperationFailedError{Err: ErrEmptyResponse}
	}
	if response[0] == StatusOK {
		return nil
	}
	opErr := &OperationFailedError{Err: ErrStatusFailure, Status: response[0]}
	if len(response) >= 2 {
		opErr.Code = response[1]
		opErr.HasCode = true
	}
	return opErr
}

// ValidateResponse checks the status byte and returns the payload that
// follows it as a new slice.
func ValidateResponse(response []byte) ([]byte, error) {
	if err := CheckStatus(response); err != nil {
		return nil, err
	}
	return Splice(response, 0, 1), nil
}
