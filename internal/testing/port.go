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
	"errors"
	"io"
	"sync"
	"time"

	"github.com/ZaparooProject/go-nfcv/internal/frame"
)

// VirtualPort is a simulated serial port with a bridge module on the other
// end. Host frames written to it are ACKed and answered by Handler.
type VirtualPort struct {
	Handler     func(cmd byte, args []byte) ([]byte, error)
	readReady   chan struct{}
	inbound     []byte
	outbound    []byte
	lastFrame   []byte
	readTimeout time.Duration
	corruptNext int
	nackNext    int
	writes      int
	mu          sync.Mutex
	closed      bool
}

// NewVirtualPort connects a port to handler, usually a VirtualModule's
// SendCommand.
func NewVirtualPort(handler func(cmd byte, args []byte) ([]byte, error)) *VirtualPort {
	return &VirtualPort{
		Handler:     handler,
		readReady:   make(chan struct{}, 1),
		readTimeout: 10 * time.Millisecond,
	}
}

// CorruptResponses damages the data checksum of the next n response frames.
func (p *VirtualPort) CorruptResponses(n int) {
	p.mu.Lock()
	p.corruptNext = n
	p.mu.Unlock()
}

// NackCommands answers the next n host commands with a NACK.
func (p *VirtualPort) NackCommands(n int) {
	p.mu.Lock()
	p.nackNext = n
	p.mu.Unlock()
}

// Writes returns how many Write calls were made.
func (p *VirtualPort) Writes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writes
}

// Write accepts host frames.
func (p *VirtualPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, io.ErrClosedPipe
	}
	p.writes++
	p.inbound = append(p.inbound, b...)

	for {
		kind, payload, consumed, err := frame.Parse(p.inbound, frame.HostToModule)
		if errors.Is(err, frame.ErrIncomplete) {
			break
		}
		p.inbound = p.inbound[consumed:]
		if err != nil {
			p.queue(frame.NackFrame)
			continue
		}

		switch kind {
		case frame.KindNack:
			if p.lastFrame != nil {
				p.respond(p.lastFrame)
			}
		case frame.KindAck:
		case frame.KindData:
			p.answer(payload)
		}
	}
	return len(b), nil
}

func (p *VirtualPort) answer(payload []byte) {
	if p.nackNext > 0 {
		p.nackNext--
		p.queue(frame.NackFrame)
		return
	}
	p.queue(frame.AckFrame)

	resp, err := p.Handler(payload[0], payload[1:])
	if err != nil || len(resp) == 0 {
		return
	}
	frm, err := frame.Build(frame.ModuleToHost, resp[0], resp[1:])
	if err != nil {
		return
	}
	p.lastFrame = frm
	p.respond(frm)
}

func (p *VirtualPort) respond(frm []byte) {
	if p.corruptNext > 0 {
		p.corruptNext--
		bad := append([]byte(nil), frm...)
		bad[len(bad)-2]++
		p.queue(bad)
		return
	}
	p.queue(frm)
}

func (p *VirtualPort) queue(b []byte) {
	p.outbound = append(p.outbound, b...)
	select {
	case p.readReady <- struct{}{}:
	default:
	}
}

// Read returns queued module bytes, or 0 bytes after the read timeout.
func (p *VirtualPort) Read(b []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, io.EOF
	}
	if len(p.outbound) == 0 {
		timeout := p.readTimeout
		p.mu.Unlock()
		select {
		case <-p.readReady:
		case <-time.After(timeout):
		}
		p.mu.Lock()
	}
	defer p.mu.Unlock()

	n := copy(b, p.outbound)
	p.outbound = p.outbound[n:]
	return n, nil
}

// SetReadTimeout sets how long Read waits for data
func (p *VirtualPort) SetReadTimeout(timeout time.Duration) error {
	p.mu.Lock()
	p.readTimeout = timeout
	p.mu.Unlock()
	return nil
}

// ResetInputBuffer drops unread module bytes
func (p *VirtualPort) ResetInputBuffer() error {
	p.mu.Lock()
	p.outbound = nil
	p.mu.Unlock()
	return nil
}

// Close closes the port
func (p *VirtualPort) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}
