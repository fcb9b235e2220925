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
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MockTransceiver is a scriptable Transceiver that records every call as
// "init", "availability", "listen", "stop", "transceive", "read:<addr>",
// "write:<addr>" or "addListener".
type MockTransceiver struct {
	ListenFunc      func(ctx context.Context) ([]byte, error)
	ReadFunc        func(addr BlockAddress) ([]byte, error)
	WriteFunc       func(addr BlockAddress, data []byte) ([]byte, error)
	TransceiveFunc  func(request []byte) ([]byte, error)
	InitErr         error
	AvailabilityErr error
	StopErr         error
	AddListenerErr  error
	handler         NDEFHandler
	calls           []string
	mu              sync.Mutex
}

func (m *MockTransceiver) record(call string) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
}

// Calls returns the recorded calls in order.
func (m *MockTransceiver) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// CountCalls counts recorded calls starting with prefix.
func (m *MockTransceiver) CountCalls(prefix string) int {
	n := 0
	for _, c := range m.Calls() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// Emit delivers event to the registered NDEF handler, if any.
func (m *MockTransceiver) Emit(event NDEFEvent) bool {
	m.mu.Lock()
	h := m.handler
	m.mu.Unlock()
	if h == nil {
		return false
	}
	h(event)
	return true
}

func (m *MockTransceiver) Init(context.Context) error {
	m.record("init")
	return m.InitErr
}

func (m *MockTransceiver) CheckAvailability(context.Context) error {
	m.record("availability")
	return m.AvailabilityErr
}

func (m *MockTransceiver) StartListening(ctx context.Context) ([]byte, error) {
	m.record("listen")
	if m.ListenFunc != nil {
		return m.ListenFunc(ctx)
	}
	return nil, nil
}

func (m *MockTransceiver) StopListening(context.Context) error {
	m.record("stop")
	return m.StopErr
}

func (m *MockTransceiver) Transceive(_ context.Context, request []byte) ([]byte, error) {
	m.record("transceive")
	if m.TransceiveFunc != nil {
		return m.TransceiveFunc(request)
	}
	return []byte{StatusOK}, nil
}

// ReadBlock answers with four bytes of the address by default.
func (m *MockTransceiver) ReadBlock(_ context.Context, addr BlockAddress) ([]byte, error) {
	m.record(fmt.Sprintf("read:%d", addr))
	if m.ReadFunc != nil {
		return m.ReadFunc(addr)
	}
	a := byte(addr)
	return []byte{StatusOK, a, a, a, a}, nil
}

func (m *MockTransceiver) WriteBlock(_ context.Context, addr BlockAddress, data []byte) ([]byte, error) {
	m.record(fmt.Sprintf("write:%d", addr))
	if m.WriteFunc != nil {
		return m.WriteFunc(addr, data)
	}
	return []byte{StatusOK}, nil
}

func (m *MockTransceiver) AddNDEFListener(_ context.Context, handler NDEFHandler) error {
	m.record("addListener")
	if m.AddListenerErr != nil {
		return m.AddListenerErr
	}
	m.mu.Lock()
	m.handler = handler
	m.mu.Unlock()
	return nil
}

var _ Transceiver = (*MockTransceiver)(nil)

// BlockingMockTransport is a Transport whose commands block until
// Unblock, Close or the timeout. It is used for context cancellation tests.
type BlockingMockTransport struct {
	blockChan    chan struct{}
	ResponseFunc func(cmd byte, args []byte) ([]byte, error)
	timeout      time.Duration
	mu           sync.Mutex
	closed       bool
}

// NewBlockingMockTransport creates a new blocking mock transport
func NewBlockingMockTransport() *BlockingMockTransport {
	return &BlockingMockTransport{
		blockChan: make(chan struct{}),
		timeout:   5 * time.Second,
	}
}

// SendCommand blocks until Unblock is called, the timeout expires or the
// transport is closed. It echoes the command back by default.
func (m *BlockingMockTransport) SendCommand(cmd byte, args []byte) ([]byte, error) {
	m.mu.Lock()
	blockChan, closed, timeout := m.blockChan, m.closed, m.timeout
	m.mu.Unlock()

	if closed {
		return nil, ErrTransportClosed
	}

	select {
	case <-blockChan:
	case <-time.After(timeout):
		return nil, NewTimeoutError("SendCommand", "mock")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrTransportClosed
	}
	if m.ResponseFunc != nil {
		return m.ResponseFunc(cmd, args)
	}
	return []byte{cmd + 1}, nil
}

// Unblock releases every SendCommand currently waiting
func (m *BlockingMockTransport) Unblock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		close(m.blockChan)
		m.blockChan = make(chan struct{})
	}
}

// Close unblocks all operations and marks the transport as closed
func (m *BlockingMockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.blockChan)
	}
	return nil
}

// SetTimeout sets how long SendCommand blocks before timing out
func (m *BlockingMockTransport) SetTimeout(timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeout = timeout
	return nil
}

// Timeout returns the current timeout
func (m *BlockingMockTransport) Timeout() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timeout
}

// IsConnected reports whether Close has not been called
func (m *BlockingMockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// Type returns TransportMock
func (*BlockingMockTransport) Type() TransportType {
	return TransportMock
}
