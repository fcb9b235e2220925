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
	"encoding/json"
	"errors"
	"fmt"
)

// TagEvent is the outcome of a tag detection. DeviceID is set when the tag
// carried a readable identifier. Err is ErrUndefinedNDEF or ErrNDEFParse
// (possibly wrapped) for NDEF that could not be decoded, or the listen
// failure for WaitForTag.
type TagEvent struct {
	Err      error
	DeviceID string
	Raw      []byte
}

// OK reports whether the event carries a device identifier.
func (e TagEvent) OK() bool {
	return e.Err == nil
}

// AddNDEFListener registers with the transceiver for NDEF notifications.
// Decoded events are published to OnNDEF subscribers. Only the first
// successful call registers.
func (s *Service) AddNDEFListener(ctx context.Context) error {
	s.ndefMu.Lock()
	defer s.ndefMu.Unlock()

	if s.ndefAdded {
		return nil
	}
	if err := s.transceiver.AddNDEFListener(ctx, s.handleNDEFEvent); err != nil {
		return err
	}
	s.ndefAdded = true
	return nil
}

// WaitForNDEF is an alias for AddNDEFListener.
func (s *Service) WaitForNDEF(ctx context.Context) error {
	return s.AddNDEFListener(ctx)
}

func (s *Service) handleNDEFEvent(event NDEFEvent) {
	payload, err := DecodeNDEFEvent(event)
	if err != nil {
		debugf("undecodable NDEF event: %v", err)
		s.ndefEvents.Publish(TagEvent{Err: fmt.Errorf("%w: %w", ErrNDEFParse, err)})
		return
	}

	id, err := s.DecodeDeviceIdentifier(payload)
	if err != nil {
		debugf("NDEF event without identifier: %v", err)
		s.ndefEvents.Publish(TagEvent{Raw: payload, Err: err})
		return
	}
	s.ndefEvents.Publish(TagEvent{Raw: payload, DeviceID: id})
}

// OnNDEF subscribes fn to decoded NDEF notifications. The most recent
// event, if any, is delivered immediately.
func (s *Service) OnNDEF(fn func(TagEvent)) (unsubscribe func()) {
	return s.ndefEvents.Subscribe(fn)
}

// OnTag subscribes fn to WaitForTag outcomes. The most recent outcome, if
// any, is delivered immediately.
func (s *Service) OnTag(fn func(TagEvent)) (unsubscribe func()) {
	return s.tagEvents.Subscribe(fn)
}

// WaitForTag starts listening in the background and publishes the outcome
// to OnTag subscribers. It returns false without doing anything while a
// previous wait is still pending.
func (s *Service) WaitForTag(ctx context.Context, opts ...CallOption) bool {
	if !s.waiting.CompareAndSwap(false, true) {
		debugln("wait for tag already pending")
		return false
	}

	cfg := newCallConfig(opts)
	go func() {
		raw, err := s.ensureListening(ctx, true, cfg.device)
		s.waiting.Store(false)
		if err != nil {
			s.tagEvents.Publish(TagEvent{Err: err})
			return
		}

		event := TagEvent{Raw: raw}
		if id, idErr := s.DecodeDeviceIdentifier(raw); idErr == nil {
			event.DeviceID = id
		}
		s.tagEvents.Publish(event)
	}()
	return true
}

// ErrInvalidNDEFEvent is returned for notifications whose payload is not a
// JSON byte array.
var ErrInvalidNDEFEvent = errors.New("invalid NDEF event payload")

// EncodeNDEFEvent packs payload the way transceivers deliver it: a JSON
// array of signed bytes.
func EncodeNDEFEvent(payload []byte) (NDEFEvent, error) {
	signed := make([]int8, len(payload))
	for i, b := range payload {
		signed[i] = int8(b)
	}
	data, err := json.Marshal(signed)
	if err != nil {
		return NDEFEvent{}, fmt.Errorf("failed to encode NDEF event: %w", err)
	}
	return NDEFEvent{NDEF: string(data)}, nil
}

// DecodeNDEFEvent unpacks an NDEF notification. Both signed and unsigned
// byte values are accepted.
func DecodeNDEFEvent(event NDEFEvent) ([]byte, error) {
	var values []int
	if err := json.Unmarshal([]byte(event.NDEF), &values); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidNDEFEvent, err)
	}

	payload := make([]byte, len(values))
	for i, v := range values {
		if v < -128 || v > 255 {
			return nil, fmt.Errorf("%w: value %d at index %d", ErrInvalidNDEFEvent, v, i)
		}
		payload[i] = byte(v)
	}
	return payload, nil
}
