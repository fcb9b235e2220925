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

package polling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ZaparooProject/go-nfcv"
)

// Poller reports the UID of the tag in the field, or ErrNoTagInPoll.
type Poller interface {
	PollTag(ctx context.Context) ([]byte, error)
}

// PollerFunc adapts a function to Poller.
type PollerFunc func(ctx context.Context) ([]byte, error)

// PollTag calls f.
func (f PollerFunc) PollTag(ctx context.Context) ([]byte, error) {
	return f(ctx)
}

// Monitor polls for tags and tracks their arrival and removal.
//
// OnTagDetected runs once per tag placement, outside the monitor's lock and
// with the removal timer suspended, so it may perform long reads. When it
// returns an error the tag is handled again on the next poll.
type Monitor struct {
	poller        Poller
	config        *Config
	OnTagDetected func(ctx context.Context, uid []byte) error
	OnTagChanged  func(ctx context.Context, uid []byte) error
	OnTagRemoved  func()
	resumeChan    chan struct{}
	state         TagState
	generation    uint64
	mu            sync.Mutex
	isPaused      atomic.Bool
}

// NewMonitor creates a monitor around poller
func NewMonitor(poller Poller, config *Config) *Monitor {
	if config == nil {
		config = DefaultConfig()
	}
	return &Monitor{
		poller:     poller,
		config:     config,
		resumeChan: make(chan struct{}, 1),
	}
}

// Start polls until ctx is done and returns ctx's error.
func (m *Monitor) Start(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if m.isPaused.Load() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-m.resumeChan:
			}
			continue
		}

		uid, err := m.performSinglePoll(ctx)
		switch {
		case err == nil:
			m.processPollingResults(ctx, uid)
		case !errors.Is(err, ErrNoTagInPoll):
			m.handlePollingError(err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.config.PollInterval):
		}
	}
}

// Pause stops polling after the current cycle. The tracked tag is kept.
func (m *Monitor) Pause() {
	m.isPaused.Store(true)
}

// Resume restarts polling.
func (m *Monitor) Resume() {
	if !m.isPaused.Swap(false) {
		return
	}
	select {
	case m.resumeChan <- struct{}{}:
	default:
	}
}

// IsPaused reports whether Pause is in effect.
func (m *Monitor) IsPaused() bool {
	return m.isPaused.Load()
}

// GetState returns a snapshot of the tag state.
func (m *Monitor) GetState() TagState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Close stops any pending removal timer.
func (m *Monitor) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	safeTimerStop(m.state.RemovalTimer)
	m.state.RemovalTimer = nil
	m.generation++
	return nil
}

func (m *Monitor) performSinglePoll(ctx context.Context) ([]byte, error) {
	pollCtx, cancel := context.WithTimeout(ctx, m.config.PollTimeout)
	defer cancel()

	uid, err := m.poller.PollTag(pollCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, ErrNoTagInPoll
		}
		if errors.Is(err, ErrNoTagInPoll) {
			return nil, err
		}
		return nil, fmt.Errorf("tag poll failed: %w", err)
	}
	if len(uid) == 0 {
		return nil, ErrNoTagInPoll
	}
	return uid, nil
}

// handlePollingError treats a failing poller as an empty field.
func (m *Monitor) handlePollingError(err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return
	}
	nfcv.Debugf("polling: %v", err)
	m.removeTag(0, true)
}

// removalCallback must be called with mu held.
func (m *Monitor) removalCallback() func() {
	m.generation++
	gen := m.generation
	return func() { m.removeTag(gen, false) }
}

// removeTag forgets the tag. Unless forced, it only acts for the timer of
// the current generation.
func (m *Monitor) removeTag(gen uint64, force bool) {
	m.mu.Lock()
	if !m.state.Present || (!force && gen != m.generation) {
		m.mu.Unlock()
		return
	}
	m.generation++
	m.state.TransitionToIdle()
	onRemoved := m.OnTagRemoved
	m.mu.Unlock()

	if onRemoved != nil {
		onRemoved()
	}
}

func (m *Monitor) processPollingResults(ctx context.Context, uid []byte) {
	id := nfcv.BytesToHex(uid)

	m.mu.Lock()
	wasPresent := m.state.Present
	changed := m.updateTagState(id)
	if m.state.DetectionState != StateReading {
		m.state.TransitionToDetected(m.config.RemovalTimeout, m.removalCallback())
	}
	handle := changed || m.state.HandledUID != id
	if handle {
		m.state.TransitionToReading()
		m.generation++
		m.state.HandledUID = id
	}
	m.mu.Unlock()

	if !handle {
		return
	}

	callback := m.OnTagDetected
	if wasPresent && changed && m.OnTagChanged != nil {
		callback = m.OnTagChanged
	}
	var err error
	if callback != nil {
		err = callback(ctx, uid)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.state.Present || m.state.LastUID != id {
		return
	}
	if err != nil {
		nfcv.Debugf("polling: handling tag %s failed: %v", id, err)
		m.state.HandledUID = ""
	}
	m.state.TransitionToPostReadGrace(m.config.RemovalTimeout, m.removalCallback())
}

// updateTagState must be called with mu held. It reports whether a new tag
// arrived.
func (m *Monitor) updateTagState(id string) bool {
	if m.state.Present && m.state.LastUID == id {
		return false
	}
	m.state.Present = true
	m.state.LastUID = id
	m.state.HandledUID = ""
	return true
}
