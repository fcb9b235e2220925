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

package testing

import (
	"slices"
	"sync"
	"time"

	nfcv "github.com/ZaparooProject/go-nfcv"
	"github.com/ZaparooProject/go-nfcv/protocol"
)

// VirtualModule is a simulated bridge module. It implements nfcv.Transport
// by answering the protocol command set against an optional VirtualTag.
type VirtualModule struct {
	tag          *VirtualTag
	failures     map[byte]error
	commands     []byte
	timeout      time.Duration
	mu           sync.Mutex
	availability byte
	listening    bool
	closed       bool
}

// NewVirtualModule creates an available module with no tag in the field.
func NewVirtualModule() *VirtualModule {
	return &VirtualModule{
		failures: make(map[byte]error),
		timeout:  nfcv.DefaultTimeout,
	}
}

// SetTag places tag in the module's field; nil empties it.
func (m *VirtualModule) SetTag(tag *VirtualTag) {
	m.mu.Lock()
	m.tag = tag
	m.mu.Unlock()
}

// SetAvailability sets the CheckAvailability status.
func (m *VirtualModule) SetAvailability(status byte) {
	m.mu.Lock()
	m.availability = status
	m.mu.Unlock()
}

// FailCommand makes every later cmd fail with err; nil clears it.
func (m *VirtualModule) FailCommand(cmd byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, cmd)
		return
	}
	m.failures[cmd] = err
}

// Commands returns the command codes received so far.
func (m *VirtualModule) Commands() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.commands)
}

// CountCommand counts how often cmd was received.
func (m *VirtualModule) CountCommand(cmd byte) int {
	n := 0
	for _, c := range m.Commands() {
		if c == cmd {
			n++
		}
	}
	return n
}

// Listening reports whether the module is armed.
func (m *VirtualModule) Listening() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listening
}

// SendCommand answers one bridge command.
func (m *VirtualModule) SendCommand(cmd byte, args []byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, nfcv.ErrTransportClosed
	}
	m.commands = append(m.commands, cmd)
	if err := m.failures[cmd]; err != nil {
		return nil, err
	}

	resp := []byte{protocol.ResponseCode(cmd)}
	switch cmd {
	case protocol.CmdInit:
		return resp, nil
	case protocol.CmdCheckAvailability:
		return append(resp, m.availability), nil
	case protocol.CmdStartListening:
		m.listening = true
		return resp, nil
	case protocol.CmdStopListening:
		m.listening = false
		return resp, nil
	case protocol.CmdPollTag:
		if m.tag == nil || !m.tag.Present() {
			return append(resp, protocol.TagAbsent), nil
		}
		resp = append(resp, protocol.TagPresent)
		return append(resp, m.tag.UID...), nil
	case protocol.CmdTransceive:
		if m.tag == nil || !m.tag.Present() {
			return append(resp, protocol.ModuleNoTag), nil
		}
		resp = append(resp, protocol.ModuleOK)
		return append(resp, m.tag.Handle(args)...), nil
	default:
		return []byte{0x7F}, nil
	}
}

// Close marks the module closed
func (m *VirtualModule) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// SetTimeout records the timeout
func (m *VirtualModule) SetTimeout(timeout time.Duration) error {
	m.mu.Lock()
	m.timeout = timeout
	m.mu.Unlock()
	return nil
}

// IsConnected reports whether Close has not been called
func (m *VirtualModule) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// Type returns TransportMock
func (*VirtualModule) Type() nfcv.TransportType {
	return nfcv.TransportMock
}

var _ nfcv.Transport = (*VirtualModule)(nil)
