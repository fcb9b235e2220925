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

// Package uart provides the UART transport for NFC-V bridge modules
package uart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"

	nfcv "github.com/ZaparooProject/go-nfcv"
	"github.com/ZaparooProject/go-nfcv/internal/frame"
	link "github.com/ZaparooProject/go-nfcv/internal/transport"
)

const (
	// DefaultBaudRate is the bridge module's UART speed
	DefaultBaudRate = 115200

	readPollInterval = 10 * time.Millisecond
	maxResends       = 3
	maxBuffered      = 4 * (frame.MaxFrameDataLength + frame.Overhead)
)

// Port is the serial port the transport drives. go.bug.st/serial ports
// satisfy it.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(timeout time.Duration) error
	ResetInputBuffer() error
}

// Transport implements nfcv.TransportContext over a serial port
type Transport struct {
	port     Port
	portName string
	rx       []byte
	timeout  time.Duration
	mu       sync.Mutex
}

// New opens portName at DefaultBaudRate, 8N1.
func New(portName string) (*Transport, error) {
	mode := &serial.Mode{
		BaudRate: DefaultBaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, nfcv.NewTransportError("open", portName,
			fmt.Errorf("%w: %w", nfcv.ErrDeviceNotFound, err), nfcv.ErrorTypePermanent)
	}
	return NewWithPort(port, portName)
}

// NewWithPort wraps an already open port.
func NewWithPort(port Port, portName string) (*Transport, error) {
	if err := port.SetReadTimeout(readPollInterval); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", portName, err)
	}
	return &Transport{
		port:     port,
		portName: portName,
		timeout:  nfcv.DefaultTimeout,
	}, nil
}

// SendCommand sends a command and waits for the response
func (t *Transport) SendCommand(cmd byte, args []byte) ([]byte, error) {
	return t.SendCommandContext(context.Background(), cmd, args)
}

// SendCommandContext sends a command, waits for the ACK and returns the
// response payload starting with the response code. Frames that fail
// their checksum are NACKed and read again.
func (t *Transport) SendCommandContext(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled before sending command: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return nil, nfcv.NewTransportError("SendCommand", t.portName, nfcv.ErrTransportClosed, nfcv.ErrorTypePermanent)
	}

	frm, err := frame.Build(frame.HostToModule, cmd, args)
	if err != nil {
		return nil, nfcv.NewDataTooLargeError("SendCommand", t.portName)
	}

	deadline := time.Now().Add(t.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	_ = t.port.ResetInputBuffer()
	t.rx = t.rx[:0]
	if err := t.write(frm); err != nil {
		return nil, err
	}
	if err := t.waitAck(ctx, deadline, frm); err != nil {
		return nil, err
	}
	return t.receive(ctx, deadline)
}

func (t *Transport) write(data []byte) error {
	if _, err := t.port.Write(data); err != nil {
		return nfcv.NewTransportError("write", t.portName,
			fmt.Errorf("%w: %w", nfcv.ErrTransportWrite, err), nfcv.ErrorTypeTransient)
	}
	return nil
}

func (t *Transport) waitAck(ctx context.Context, deadline time.Time, frm []byte) error {
	_, err := link.WithRetry(link.RetryConfig{
		MaxRetries: maxResends,
		Exhausted:  nfcv.NewNoACKError("waitAck", t.portName),
		OnRetry: func(attempt int) error {
			nfcv.Debugf("uart %s: resending command (attempt %d)", t.portName, attempt)
			return t.write(frm)
		},
	}, func() (struct{}, bool, error) {
		kind, _, err := t.readFrame(ctx, deadline)
		switch {
		case errors.Is(err, nfcv.ErrTransportTimeout):
			return struct{}{}, false, nfcv.NewNoACKError("waitAck", t.portName)
		case err != nil && !isFrameError(err):
			return struct{}{}, false, err
		}
		return struct{}{}, err != nil || kind != frame.KindAck, nil
	})
	return err
}

func (t *Transport) receive(ctx context.Context, deadline time.Time) ([]byte, error) {
	var lastErr error
	return link.WithRetry(link.RetryConfig{
		MaxRetries: maxResends,
		Exhausted:  nfcv.NewTransportError("receive", t.portName, nfcv.ErrCommunicationFailed, nfcv.ErrorTypeTransient),
		OnRetry: func(int) error {
			nfcv.Debugf("uart %s: bad response frame, sending NACK: %v", t.portName, lastErr)
			return t.write(frame.NackFrame)
		},
	}, func() ([]byte, bool, error) {
		kind, payload, err := t.readFrame(ctx, deadline)
		if err == nil && kind == frame.KindData && len(payload) > 0 {
			return payload, false, nil
		}
		if err != nil && !isFrameError(err) {
			return nil, false, err
		}
		lastErr = err
		return nil, true, nil
	})
}

func isFrameError(err error) bool {
	return errors.Is(err, frame.ErrLengthChecksum) ||
		errors.Is(err, frame.ErrDataChecksum) ||
		errors.Is(err, frame.ErrUnexpectedTFI)
}

// readFrame returns the next complete frame, reading from the port as
// needed until deadline.
func (t *Transport) readFrame(ctx context.Context, deadline time.Time) (frame.Kind, []byte, error) {
	buf := make([]byte, frame.MaxFrameDataLength+frame.Overhead)
	for {
		kind, payload, consumed, err := frame.Parse(t.rx, frame.ModuleToHost)
		if !errors.Is(err, frame.ErrIncomplete) {
			t.rx = t.rx[consumed:]
			return kind, payload, err
		}

		if err := ctx.Err(); err != nil {
			return 0, nil, fmt.Errorf("context cancelled while waiting for response: %w", err)
		}
		if time.Now().After(deadline) {
			return 0, nil, nfcv.NewTimeoutError("readFrame", t.portName)
		}

		n, err := t.port.Read(buf)
		if err != nil {
			return 0, nil, nfcv.NewTransportError("read", t.portName,
				fmt.Errorf("%w: %w", nfcv.ErrTransportRead, err), nfcv.ErrorTypeTransient)
		}
		t.rx = append(t.rx, buf[:n]...)
		if len(t.rx) > maxBuffered {
			t.rx = t.rx[len(t.rx)-maxBuffered:]
		}
	}
}

// SetTimeout sets the response timeout
func (t *Transport) SetTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timeout = timeout
	return nil
}

// Close closes the serial port
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	if err != nil {
		return fmt.Errorf("failed to close UART port %s: %w", t.portName, err)
	}
	return nil
}

// IsConnected returns true while the port is open
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port != nil
}

// Type returns the transport type
func (*Transport) Type() nfcv.TransportType {
	return nfcv.TransportUART
}

var _ nfcv.TransportContext = (*Transport)(nil)
