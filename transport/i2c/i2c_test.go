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

package i2c

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nfcv "github.com/ZaparooProject/go-nfcv"
	"github.com/ZaparooProject/go-nfcv/internal/frame"
	virt "github.com/ZaparooProject/go-nfcv/internal/testing"
	"github.com/ZaparooProject/go-nfcv/protocol"
)

// fakeDevice answers I2C transactions like a bridge module: every read
// starts with the ready byte, followed by the next queued frame.
type fakeDevice struct {
	handler  func(cmd byte, args []byte) ([]byte, error)
	pending  [][]byte
	last     []byte
	writes   int
	corrupt  int
	notReady int
	mu       sync.Mutex
}

func (d *fakeDevice) Tx(w, r []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if w != nil {
		d.writes++
		kind, payload, _, err := frame.Parse(w, frame.HostToModule)
		switch {
		case err != nil:
			return err
		case kind == frame.KindNack:
			d.queueResponse(d.last)
		case kind == frame.KindData:
			d.pending = append(d.pending, frame.AckFrame)
			resp, herr := d.handler(payload[0], payload[1:])
			if herr != nil {
				return nil
			}
			frm, berr := frame.Build(frame.ModuleToHost, resp[0], resp[1:])
			if berr != nil {
				return berr
			}
			d.last = frm
			d.queueResponse(frm)
		}
	}

	if r != nil {
		clear(r)
		if len(d.pending) == 0 || d.notReady > 0 {
			if d.notReady > 0 {
				d.notReady--
			}
			return nil
		}
		r[0] = moduleReady
		copy(r[1:], d.pending[0])
		d.pending = d.pending[1:]
	}
	return nil
}

func (d *fakeDevice) queueResponse(frm []byte) {
	if d.corrupt > 0 {
		d.corrupt--
		bad := append([]byte(nil), frm...)
		bad[len(bad)-2]++
		d.pending = append(d.pending, bad)
		return
	}
	d.pending = append(d.pending, frm)
}

func newTestTransport(t *testing.T) (*Transport, *fakeDevice, *virt.VirtualModule) {
	t.Helper()
	module := virt.NewVirtualModule()
	dev := &fakeDevice{handler: module.SendCommand}
	return NewWithDevice(dev, "/dev/i2c-test"), dev, module
}

func TestSendCommand(t *testing.T) {
	t.Parallel()

	tr, dev, module := newTestTransport(t)
	dev.notReady = 3
	module.SetTag(virt.NewVirtualSLIX(nil))

	resp, err := tr.SendCommand(protocol.CmdPollTag, nil)
	require.NoError(t, err)
	assert.Equal(t, append([]byte{0x13, protocol.TagPresent}, virt.TestUID...), resp)
}

func TestSendCommand_CorruptedResponseIsNacked(t *testing.T) {
	t.Parallel()

	tr, dev, _ := newTestTransport(t)
	dev.corrupt = 1

	resp, err := tr.SendCommand(protocol.CmdInit, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02}, resp)
	assert.Equal(t, 2, dev.writes)
}

func TestSendCommand_Timeout(t *testing.T) {
	t.Parallel()

	dev := &fakeDevice{handler: func(byte, []byte) ([]byte, error) {
		return nil, errors.New("no answer")
	}}
	tr := NewWithDevice(dev, "/dev/i2c-test")
	require.NoError(t, tr.SetTimeout(30*time.Millisecond))

	_, err := tr.SendCommand(protocol.CmdInit, nil)
	require.ErrorIs(t, err, nfcv.ErrTransportTimeout)
	assert.True(t, nfcv.IsRetryable(err))
}

func TestI2CContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr, dev, _ := newTestTransport(t)
	_, err := tr.SendCommandContext(ctx, protocol.CmdInit, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, dev.writes)
}

func TestTransportClosed(t *testing.T) {
	t.Parallel()

	tr, _, _ := newTestTransport(t)
	assert.Equal(t, nfcv.TransportI2C, tr.Type())
	assert.True(t, tr.IsConnected())
	require.NoError(t, tr.Close())
	assert.False(t, tr.IsConnected())

	_, err := tr.SendCommand(protocol.CmdInit, nil)
	assert.ErrorIs(t, err, nfcv.ErrTransportClosed)
}
