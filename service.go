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
	"sync"
	"sync/atomic"

	"github.com/ZaparooProject/go-nfcv/ndef"
)

// CmdGetSystemInfo is the ISO 15693 Get System Information request.
var CmdGetSystemInfo = []byte{0x00, 0x2B}

// Service sequences tag operations over a Transceiver.
//
// Block operations inside one call are strictly sequential. Separate calls
// are not serialized against each other; callers sharing a Service across
// goroutines must do that themselves.
type Service struct {
	transceiver Transceiver
	decoder     NDEFDecoder
	ndefEvents  *Broadcaster[TagEvent]
	tagEvents   *Broadcaster[TagEvent]
	recordIndex int
	ndefMu      sync.Mutex
	ndefAdded   bool
	waiting     atomic.Bool
}

// New creates a Service on top of t.
func New(t Transceiver, opts ...Option) (*Service, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParameter, errNilTransceiver)
	}

	s := &Service{
		transceiver: t,
		decoder:     ndef.Decoder{},
		ndefEvents:  NewBroadcaster[TagEvent](),
		tagEvents:   NewBroadcaster[TagEvent](),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Init initializes the transceiver.
func (s *Service) Init(ctx context.Context) error {
	return s.transceiver.Init(ctx)
}

// IsAvailable returns nil when the transceiver can talk to tags.
func (s *Service) IsAvailable(ctx context.Context) error {
	return s.transceiver.CheckAvailability(ctx)
}

// Transceive sends a raw request and returns the raw response.
func (s *Service) Transceive(ctx context.Context, request []byte) ([]byte, error) {
	return s.transceiver.Transceive(ctx, request)
}

// GetSystemInfo returns the Get System Information payload with the status
// byte removed.
func (s *Service) GetSystemInfo(ctx context.Context, opts ...CallOption) ([]byte, error) {
	cfg := newCallConfig(opts)
	if _, err := s.ensureListening(ctx, cfg.listen, cfg.device); err != nil {
		return nil, err
	}

	resp, err := s.transceiver.Transceive(ctx, CmdGetSystemInfo)
	if err != nil {
		return nil, err
	}
	payload, err := ValidateResponse(resp)
	if err != nil {
		debugEvent().Str("stage", string(StageSystemInfo)).Err(err).Msg("system info failed")
		return nil, annotate(err, StageSystemInfo, nil)
	}
	debugEvent().Str("stage", string(StageSystemInfo)).Hex("payload", payload).Msg("system info")
	return payload, nil
}

// ReadSystemInfo is GetSystemInfo followed by ParseSystemInfo.
func (s *Service) ReadSystemInfo(ctx context.Context, opts ...CallOption) (*SystemInfo, error) {
	payload, err := s.GetSystemInfo(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return ParseSystemInfo(payload)
}

// DecodeDeviceIdentifier resolves the device identifier text stored in an
// NDEF payload. An empty payload gives ErrUndefinedNDEF; anything that
// cannot be decoded down to the configured text record gives ErrNDEFParse.
func (s *Service) DecodeDeviceIdentifier(payload []byte) (string, error) {
	if len(payload) == 0 {
		return "", ErrUndefinedNDEF
	}

	msg, err := s.decoder.Parse(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNDEFParse, err)
	}
	if msg == nil || len(msg.Records) <= s.recordIndex {
		return "", fmt.Errorf("%w: no record at index %d", ErrNDEFParse, s.recordIndex)
	}

	text, err := s.decoder.ResolveTextRecord(msg.Records[s.recordIndex])
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNDEFParse, err)
	}
	return text.Content, nil
}
