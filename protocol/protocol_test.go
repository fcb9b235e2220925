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

package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nfcv "github.com/ZaparooProject/go-nfcv"
	"github.com/ZaparooProject/go-nfcv/internal/frame"
)

func TestReadSingleBlock(t *testing.T) {
	t.Parallel()

	req, err := ReadSingleBlock([]byte{0x05})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, 0x20, 0x05}, req)

	_, err = ReadSingleBlock([]byte{0x01, 0x02})
	require.ErrorIs(t, err, nfcv.ErrAddressTooLong)
	_, err = ReadSingleBlock(nil)
	assert.ErrorIs(t, err, nfcv.ErrInvalidParameter)
}

func TestWriteSingleBlock(t *testing.T) {
	t.Parallel()

	req, err := WriteSingleBlock([]byte{0x07}, []byte{0xDE, 0xAD, 0xBE, 0xEF})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, 0x21, 0x07, 0xDE, 0xAD, 0xBE, 0xEF}, req)

	_, err = WriteSingleBlock([]byte{0x00, 0x07}, []byte{0x00})
	assert.ErrorIs(t, err, nfcv.ErrAddressTooLong)
}

func TestResponseCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, byte(0x13), ResponseCode(CmdPollTag))
	assert.Equal(t, byte(0x21), ResponseCode(CmdTransceive))
}

func TestResponseCode_OverlapsResolvedByDirection(t *testing.T) {
	t.Parallel()

	require.Equal(t, CmdStopListening, ResponseCode(CmdStartListening))
	require.Equal(t, CmdPollTag, ResponseCode(CmdStopListening))

	reply, err := frame.Build(frame.ModuleToHost, ResponseCode(CmdStartListening), nil)
	require.NoError(t, err)

	kind, payload, _, err := frame.Parse(reply, frame.ModuleToHost)
	require.NoError(t, err)
	assert.Equal(t, frame.KindData, kind)
	assert.Equal(t, []byte{0x11}, payload)

	_, _, _, err = frame.Parse(reply, frame.HostToModule)
	assert.ErrorIs(t, err, frame.ErrUnexpectedTFI)
}
