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

// Package i2c provides the I2C transport for NFC-V bridge modules
package i2c

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	nfcv "github.com/ZaparooProject/go-nfcv"
	"github.com/ZaparooProject/go-nfcv/internal/frame"
	link "github.com/ZaparooProject/go-nfcv/internal/transport"
)

const (
	// DefaultAddress is the bridge module's 7-bit I2C address
	DefaultAddress = 0x24

	moduleReady  = 0x01
	maxClockFreq = 400 * physic.KiloHertz
	pollInterval = time.Millisecond
	maxResends   = 3
)

// Device is the bus device the transport drives. *i2c.Dev satisfies it.
type Device interface {
	Tx(w, r []byte) error
}

// Transport implements nfcv.TransportContext for I2C communication
type Transport struct {
	dev     Device
	busName string
	timeout time.Duration
	mu      sync.Mutex
}

// New opens busName (for example "/dev/i2c-1" or "1") and talks to the
// module at DefaultAddress.
func New(busName string) (*Transport, error) {
	return NewWithAddress(busName, DefaultAddress)
}

// NewWithAddress opens busName and talks to the module at addr.
func NewWithAddress(busName string, addr uint16) (*Transport, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, nfcv.NewTransportError("open", busName,
			fmt.Errorf("%w: %w", nfcv.ErrDeviceNotFound, err), nfcv.ErrorTypePermanent)
	}

	// Ignore error, continue with default speed
	_ = bus.SetSpeed(maxClockFreq)

	return NewWithDevice(&i2c.Dev{Addr: addr, Bus: bus}, busName), nil
}

// NewWithDevice wraps an already opened device.
func NewWithDevice(dev Device, busName string) *Transport {
	return &Transport{
		dev:     dev,
		busName: busName,
		timeout: nfcv.DefaultTimeout,
	}
}

// SendCommand sends a command and waits for the response
func (t *Transport) SendCommand(cmd byte, args []byte) ([]byte, error) {
	return t.SendCommandContext(context.Background(), cmd, args)
}

// SendCommandContext sends a command, waits for the ACK and returns the
// response payload starting with the response code.
func (t *Transport) SendCommandContext(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled before sending command: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.dev == nil {
		return nil, nfcv.NewTransportError("SendCommand", t.busName, nfcv.ErrTransportClosed, nfcv.ErrorTypePermanent)
	}

	frm, err := frame.Build(frame.HostToModule, cmd, args)
	if err != nil {
		return nil, nfcv.NewDataTooLargeError("sendFrame", t.busName)
	}

	deadline := time.Now().Add(t.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	_, err = link.WithRetry(link.RetryConfig{
		MaxRetries: maxResends,
		Exhausted:  nfcv.NewNoACKError("waitAck", t.busName),
	}, func() (struct{}, bool, error) {
		if err := t.tx(frm, nil, "sendFrame"); err != nil {
			return struct{}{}, false, err
		}
		acked, err := t.waitAck(ctx, deadline)
		return struct{}{}, !acked, err
	})
	if err != nil {
		return nil, err
	}

	return t.receiveFrame(ctx, deadline)
}

func (t *Transport) tx(w, r []byte, op string) error {
	if err := t.dev.Tx(w, r); err != nil {
		sentinel := nfcv.ErrTransportRead
		if r == nil {
			sentinel = nfcv.ErrTransportWrite
		}
		return nfcv.NewTransportError(op, t.busName, fmt.Errorf("%w: %w", sentinel, err), nfcv.ErrorTypeTransient)
	}
	return nil
}

// readReady reads len(buf) bytes and reports whether the module had data
// ready. The first byte read is the ready status and is not part of the
// frame.
func (t *Transport) readReady(ctx context.Context, deadline time.Time, buf []byte, op string) error {
	_, err := link.TimeoutRetry(ctx, deadline, pollInterval, nfcv.NewTimeoutError(op, t.busName),
		func() (struct{}, bool, error) {
			if err := t.tx(nil, buf, op); err != nil {
				return struct{}{}, false, err
			}
			return struct{}{}, buf[0] != moduleReady, nil
		})
	return err
}

// waitAck returns false when the module NACKed the command.
func (t *Transport) waitAck(ctx context.Context, deadline time.Time) (bool, error) {
	buf := make([]byte, 1+len(frame.AckFrame))
	if err := t.readReady(ctx, deadline, buf, "waitAck"); err != nil {
		if errors.Is(err, nfcv.ErrTransportTimeout) {
			return false, nfcv.NewNoACKError("waitAck", t.busName)
		}
		return false, err
	}

	kind, _, _, err := frame.Parse(buf[1:], frame.ModuleToHost)
	if err == nil && kind == frame.KindAck {
		return true, nil
	}
	nfcv.Debugf("i2c %s: expected ACK, got % x", t.busName, buf[1:])
	return false, nil
}

func (t *Transport) receiveFrame(ctx context.Context, deadline time.Time) ([]byte, error) {
	buf := make([]byte, 1+frame.MaxFrameDataLength+frame.Overhead)
	var lastErr error
	return link.WithRetry(link.RetryConfig{
		MaxRetries: maxResends,
		Exhausted:  nfcv.NewTransportError("receiveFrame", t.busName, nfcv.ErrCommunicationFailed, nfcv.ErrorTypeTransient),
		OnRetry: func(int) error {
			nfcv.Debugf("i2c %s: bad response frame, sending NACK: %v", t.busName, lastErr)
			return t.tx(frame.NackFrame, nil, "sendNack")
		},
	}, func() ([]byte, bool, error) {
		if err := t.readReady(ctx, deadline, buf, "receiveFrame"); err != nil {
			return nil, false, err
		}
		kind, payload, _, err := frame.Parse(buf[1:], frame.ModuleToHost)
		if err == nil && kind == frame.KindData && len(payload) > 0 {
			return slices.Clone(payload), false, nil
		}
		lastErr = err
		return nil, true, nil
	})
}

// SetTimeout sets the response timeout
func (t *Transport) SetTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timeout = timeout
	return nil
}

// Close releases the device. periph keeps the bus open for the process.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dev = nil
	return nil
}

// IsConnected returns true until Close is called
func (t *Transport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dev != nil
}

// Type returns the transport type
func (*Transport) Type() nfcv.TransportType {
	return nfcv.TransportI2C
}

var _ nfcv.TransportContext = (*Transport)(nil)
