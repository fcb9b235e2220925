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

package uart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nfcv "github.com/ZaparooProject/go-nfcv"
	virt "github.com/ZaparooProject/go-nfcv/internal/testing"
	"github.com/ZaparooProject/go-nfcv/protocol"
)

func newTestTransport(t *testing.T) (*Transport, *virt.VirtualPort, *virt.VirtualModule) {
	t.Helper()
	module := virt.NewVirtualModule()
	port := virt.NewVirtualPort(module.SendCommand)
	tr, err := NewWithPort(port, "/dev/ttyVIRT0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Close() })
	return tr, port, module
}

func TestTransportCreation(t *testing.T) {
	t.Parallel()

	transport := &Transport{portName: "/dev/ttyUSB0"}
	assert.Equal(t, nfcv.TransportUART, transport.Type())
	assert.False(t, transport.IsConnected())

	_, err := transport.SendCommand(protocol.CmdInit, nil)
	assert.ErrorIs(t, err, nfcv.ErrTransportClosed)
}

func TestSendCommand(t *testing.T) {
	t.Parallel()

	tr, _, module := newTestTransport(t)
	module.SetAvailability(protocol.AvailabilityDisabled)

	resp, err := tr.SendCommand(protocol.CmdCheckAvailability, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x03, protocol.AvailabilityDisabled}, resp)
	assert.Equal(t, []byte{protocol.CmdCheckAvailability}, module.Commands())
}

func TestSendCommand_Transceive(t *testing.T) {
	t.Parallel()

	tr, _, module := newTestTransport(t)
	tag := virt.NewVirtualSLIX(nil)
	module.SetTag(tag)

	resp, err := tr.SendCommand(protocol.CmdTransceive, []byte{0x02, 0x20, 0x00})
	require.NoError(t, err)
	assert.Equal(t, append([]byte{0x21, protocol.ModuleOK, 0x00}, tag.Block(0)...), resp)
}

func TestSendCommand_NackedResponseIsResent(t *testing.T) {
	t.Parallel()

	tr, port, _ := newTestTransport(t)
	port.CorruptResponses(2)

	resp, err := tr.SendCommand(protocol.CmdInit, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02}, resp)
	assert.Equal(t, 3, port.Writes(), "command plus two NACKs")
}

func TestSendCommand_NackedCommandIsResent(t *testing.T) {
	t.Parallel()

	tr, port, module := newTestTransport(t)
	port.NackCommands(1)

	_, err := tr.SendCommand(protocol.CmdStartListening, nil)
	require.NoError(t, err)
	assert.True(t, module.Listening())
	assert.Equal(t, 1, module.CountCommand(protocol.CmdStartListening))
}

func TestSendCommand_GivesUpAfterRepeatedCorruption(t *testing.T) {
	t.Parallel()

	tr, port, _ := newTestTransport(t)
	port.CorruptResponses(10)

	_, err := tr.SendCommand(protocol.CmdInit, nil)
	require.ErrorIs(t, err, nfcv.ErrCommunicationFailed)
	assert.True(t, nfcv.IsRetryable(err))
}

func TestSendCommand_NoAnswer(t *testing.T) {
	t.Parallel()

	port := virt.NewVirtualPort(func(byte, []byte) ([]byte, error) {
		return nil, errors.New("silent")
	})
	tr, err := NewWithPort(port, "/dev/ttyVIRT1")
	require.NoError(t, err)
	require.NoError(t, tr.SetTimeout(50*time.Millisecond))

	// ACK arrives, response never does
	_, err = tr.SendCommand(protocol.CmdInit, nil)
	require.ErrorIs(t, err, nfcv.ErrTransportTimeout)
	assert.Equal(t, nfcv.ErrorTypeTimeout, nfcv.GetErrorType(err))
}

func TestSendCommandContext_Cancelled(t *testing.T) {
	t.Parallel()

	tr, _, module := newTestTransport(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := tr.SendCommandContext(ctx, protocol.CmdInit, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 10*time.Millisecond)
	assert.Empty(t, module.Commands())
}

func TestSendCommandContext_Deadline(t *testing.T) {
	t.Parallel()

	port := virt.NewVirtualPort(func(byte, []byte) ([]byte, error) {
		return nil, errors.New("silent")
	})
	tr, err := NewWithPort(port, "/dev/ttyVIRT2")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = tr.SendCommandContext(ctx, protocol.CmdPollTag, nil)
	require.Error(t, err)
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 40*time.Millisecond)
	assert.Less(t, elapsed, 500*time.Millisecond)
}

func TestSendCommand_TooLarge(t *testing.T) {
	t.Parallel()

	tr, _, _ := newTestTransport(t)
	_, err := tr.SendCommand(protocol.CmdTransceive, make([]byte, 300))
	require.ErrorIs(t, err, nfcv.ErrDataTooLarge)
	assert.False(t, nfcv.IsRetryable(err))
}

func TestClose(t *testing.T) {
	t.Parallel()

	tr, _, _ := newTestTransport(t)
	require.True(t, tr.IsConnected())
	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
	assert.False(t, tr.IsConnected())
}
