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

// Package bridge implements nfcv.Transceiver for an NFC-V bridge module
// reached through a framed nfcv.Transport.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ZaparooProject/go-nfcv"
	"github.com/ZaparooProject/go-nfcv/ndef"
	"github.com/ZaparooProject/go-nfcv/polling"
	"github.com/ZaparooProject/go-nfcv/protocol"
)

// nonNDEF is the payload reported for tags without a readable NDEF message.
var nonNDEF = []byte{0x00}

// Transceiver drives a bridge module. Commands are serialized on the link.
type Transceiver struct {
	transport     nfcv.TransportContext
	config        *Config
	monitor       *polling.Monitor
	cancelMonitor context.CancelFunc
	monitorDone   chan struct{}
	handlers      []nfcv.NDEFHandler
	linkMu        sync.Mutex
	mu            sync.Mutex
	listening     bool
	closed        bool
}

// New creates a transceiver on transport. A nil config uses DefaultConfig.
func New(transport nfcv.Transport, config *Config) (*Transceiver, error) {
	if transport == nil {
		return nil, fmt.Errorf("%w: nil transport", nfcv.ErrInvalidParameter)
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxNDEFBlocks <= 0 {
		return nil, fmt.Errorf("%w: MaxNDEFBlocks must be positive", nfcv.ErrInvalidParameter)
	}
	return &Transceiver{
		transport: nfcv.AsTransportContext(transport),
		config:    config,
	}, nil
}

// Probe checks that transport leads to a bridge module by sending Init.
func Probe(ctx context.Context, transport nfcv.Transport) error {
	t, err := New(transport, nil)
	if err != nil {
		return err
	}
	if err := t.Init(ctx); err != nil {
		return fmt.Errorf("%w: %w", nfcv.ErrDeviceNotFound, err)
	}
	return nil
}

// send runs one command and returns the payload after the response code.
func (t *Transceiver) send(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	t.linkMu.Lock()
	defer t.linkMu.Unlock()

	resp, err := t.transport.SendCommandContext(ctx, cmd, args)
	if err != nil {
		return nil, fmt.Errorf("command 0x%02X: %w", cmd, err)
	}
	if len(resp) == 0 {
		return nil, fmt.Errorf("%w: empty response to command 0x%02X", nfcv.ErrUnexpectedResponse, cmd)
	}
	if want := protocol.ResponseCode(cmd); resp[0] != want {
		return nil, fmt.Errorf("%w: got 0x%02X, want 0x%02X", nfcv.ErrUnexpectedResponse, resp[0], want)
	}
	return resp[1:], nil
}

// Init resets the module.
func (t *Transceiver) Init(ctx context.Context) error {
	_, err := t.send(ctx, protocol.CmdInit, nil)
	return err
}

// CheckAvailability returns nil when the module's radio is usable, ErrNoNFC
// when it has none and ErrNFCDisabled when it is switched off.
func (t *Transceiver) CheckAvailability(ctx context.Context) error {
	resp, err := t.send(ctx, protocol.CmdCheckAvailability, nil)
	if err != nil {
		return err
	}
	if len(resp) == 0 {
		return fmt.Errorf("%w: availability status missing", nfcv.ErrUnexpectedResponse)
	}
	switch resp[0] {
	case protocol.AvailabilityOK:
		return nil
	case protocol.AvailabilityNoNFC:
		return nfcv.ErrNoNFC
	case protocol.AvailabilityDisabled:
		return nfcv.ErrNFCDisabled
	default:
		return fmt.Errorf("%w: availability status 0x%02X", nfcv.ErrUnexpectedResponse, resp[0])
	}
}

// StartListening arms the module, waits for a tag and returns its NDEF
// message. Tags without one give a single zero byte. The module stays armed
// until StopListening.
func (t *Transceiver) StartListening(ctx context.Context) ([]byte, error) {
	if _, err := t.send(ctx, protocol.CmdStartListening, nil); err != nil {
		return nil, err
	}
	t.setListening(true)

	for {
		uid, err := t.PollTag(ctx)
		switch {
		case err == nil:
			nfcv.Debugf("bridge: tag %s detected", nfcv.BytesToHex(uid))
			return t.readNDEF(ctx)
		case !errors.Is(err, polling.ErrNoTagInPoll):
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(t.config.PollInterval):
		}
	}
}

// StopListening disarms the module.
func (t *Transceiver) StopListening(ctx context.Context) error {
	t.setListening(false)
	_, err := t.send(ctx, protocol.CmdStopListening, nil)
	return err
}

// Listening reports whether the module is armed.
func (t *Transceiver) Listening() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.listening
}

// setListening also pauses or resumes NDEF notifications.
func (t *Transceiver) setListening(listening bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listening = listening
	if t.monitor == nil {
		return
	}
	if listening {
		t.monitor.Resume()
	} else {
		t.monitor.Pause()
	}
}

// PollTag returns the UID of the tag in the field, or
// polling.ErrNoTagInPoll.
func (t *Transceiver) PollTag(ctx context.Context) ([]byte, error) {
	resp, err := t.send(ctx, protocol.CmdPollTag, nil)
	if err != nil {
		return nil, err
	}
	if len(resp) == 0 {
		return nil, fmt.Errorf("%w: poll result missing", nfcv.ErrUnexpectedResponse)
	}
	switch resp[0] {
	case protocol.TagAbsent:
		return nil, polling.ErrNoTagInPoll
	case protocol.TagPresent:
		if len(resp) == 1 {
			return nil, fmt.Errorf("%w: tag present without UID", nfcv.ErrUnexpectedResponse)
		}
		return slices.Clone(resp[1:]), nil
	default:
		return nil, fmt.Errorf("%w: poll result 0x%02X", nfcv.ErrUnexpectedResponse, resp[0])
	}
}

// Transceive sends a raw ISO 15693 request and returns the tag's response,
// status byte included. ErrNullTag means no tag is in the field.
func (t *Transceiver) Transceive(ctx context.Context, request []byte) ([]byte, error) {
	resp, err := t.send(ctx, protocol.CmdTransceive, request)
	if err != nil {
		return nil, err
	}
	if len(resp) == 0 {
		return nil, fmt.Errorf("%w: transceive status missing", nfcv.ErrUnexpectedResponse)
	}
	switch resp[0] {
	case protocol.ModuleOK:
		return slices.Clone(resp[1:]), nil
	case protocol.ModuleNoTag:
		return nil, nfcv.ErrNullTag
	default:
		return nil, fmt.Errorf("%w: transceive status 0x%02X", nfcv.ErrUnexpectedResponse, resp[0])
	}
}

// ReadBlock sends Read Single Block for addr.
func (t *Transceiver) ReadBlock(ctx context.Context, addr nfcv.BlockAddress) ([]byte, error) {
	req, err := protocol.ReadSingleBlock([]byte{byte(addr)})
	if err != nil {
		return nil, err
	}
	return t.Transceive(ctx, req)
}

// WriteBlock sends Write Single Block for addr.
func (t *Transceiver) WriteBlock(ctx context.Context, addr nfcv.BlockAddress, data []byte) ([]byte, error) {
	req, err := protocol.WriteSingleBlock([]byte{byte(addr)}, data)
	if err != nil {
		return nil, err
	}
	return t.Transceive(ctx, req)
}

// readNDEF reads blocks from NDEFStartBlock until the NDEF TLV is complete.
// Link errors are returned; anything the tag rejects or that is not an
// NDEF TLV yields nonNDEF.
func (t *Transceiver) readNDEF(ctx context.Context) ([]byte, error) {
	var data []byte
	for i := range t.config.MaxNDEFBlocks {
		addr := int(t.config.NDEFStartBlock) + i
		if addr > nfcv.MaxBlockAddress {
			break
		}

		resp, err := t.ReadBlock(ctx, nfcv.BlockAddress(addr))
		if err != nil {
			return nil, err
		}
		if err := nfcv.CheckStatus(resp); err != nil {
			nfcv.Debugf("bridge: block %d unreadable: %v", addr, err)
			return slices.Clone(nonNDEF), nil
		}
		data = append(data, resp[1:]...)

		msg, err := ndef.Extract(data)
		switch {
		case err == nil:
			return msg, nil
		case !errors.Is(err, ndef.ErrTLVIncomplete):
			nfcv.Debugf("bridge: no NDEF message: %v", err)
			return slices.Clone(nonNDEF), nil
		}
	}
	nfcv.Debugf("bridge: NDEF message exceeds %d blocks", t.config.MaxNDEFBlocks)
	return slices.Clone(nonNDEF), nil
}

// AddNDEFListener registers handler for NDEF notifications. The first
// registration starts watching the field; notifications are only produced
// while the module is armed.
func (t *Transceiver) AddNDEFListener(ctx context.Context, handler nfcv.NDEFHandler) error {
	if handler == nil {
		return fmt.Errorf("%w: nil handler", nfcv.ErrInvalidParameter)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nfcv.ErrTransportClosed
	}
	t.handlers = append(t.handlers, handler)
	if t.monitor != nil {
		return nil
	}

	monitor := polling.NewMonitor(polling.PollerFunc(t.PollTag), t.config.pollingConfig())
	monitor.OnTagDetected = t.handleTagDetected
	monitor.OnTagRemoved = func() { nfcv.Debugf("bridge: tag removed") }
	if !t.listening {
		monitor.Pause()
	}

	monitorCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = monitor.Start(monitorCtx)
	}()

	t.monitor = monitor
	t.cancelMonitor = cancel
	t.monitorDone = done
	return nil
}

func (t *Transceiver) handleTagDetected(ctx context.Context, uid []byte) error {
	payload, err := t.readNDEF(ctx)
	if err != nil {
		return err
	}
	event, err := nfcv.EncodeNDEFEvent(payload)
	if err != nil {
		return err
	}

	if nfcv.DebugEnabled() {
		nfcv.Logger().Debug().
			Str("uid", nfcv.BytesToHex(uid)).
			Int("ndef_bytes", len(payload)).
			Msg("bridge: NDEF detected")
	}

	t.mu.Lock()
	handlers := slices.Clone(t.handlers)
	t.mu.Unlock()
	for _, h := range handlers {
		h(event)
	}
	return nil
}

// Close stops NDEF notifications and closes the transport.
func (t *Transceiver) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	cancel, done, monitor := t.cancelMonitor, t.monitorDone, t.monitor
	t.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
		_ = monitor.Close()
	}
	if err := t.transport.Close(); err != nil {
		return fmt.Errorf("failed to close transport: %w", err)
	}
	return nil
}

var _ nfcv.Transceiver = (*Transceiver)(nil)
