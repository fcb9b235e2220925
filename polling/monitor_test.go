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
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fieldPoller reports whatever UID is currently placed in the field
type fieldPoller struct {
	err   error
	uid   []byte
	mu    sync.Mutex
	polls atomic.Int32
}

func (p *fieldPoller) set(uid []byte, err error) {
	p.mu.Lock()
	p.uid, p.err = uid, err
	p.mu.Unlock()
}

func (p *fieldPoller) PollTag(context.Context) ([]byte, error) {
	p.polls.Add(1)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	if p.uid == nil {
		return nil, ErrNoTagInPoll
	}
	return p.uid, nil
}

type monitorEvents struct {
	detected []string
	changed  []string
	removed  int
	mu       sync.Mutex
}

func (e *monitorEvents) counts() (detected, changed, removed int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.detected), len(e.changed), e.removed
}

func testConfig() *Config {
	return &Config{
		PollInterval:   5 * time.Millisecond,
		PollTimeout:    100 * time.Millisecond,
		RemovalTimeout: 50 * time.Millisecond,
	}
}

func startMonitor(t *testing.T, poller Poller) (*Monitor, *monitorEvents) {
	t.Helper()
	m := NewMonitor(poller, testConfig())
	events := &monitorEvents{}
	m.OnTagDetected = func(_ context.Context, uid []byte) error {
		events.mu.Lock()
		events.detected = append(events.detected, string(uid))
		events.mu.Unlock()
		return nil
	}
	m.OnTagChanged = func(_ context.Context, uid []byte) error {
		events.mu.Lock()
		events.changed = append(events.changed, string(uid))
		events.mu.Unlock()
		return nil
	}
	m.OnTagRemoved = func() {
		events.mu.Lock()
		events.removed++
		events.mu.Unlock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.ErrorIs(t, <-done, context.Canceled)
		_ = m.Close()
	})
	return m, events
}

func TestNewMonitor(t *testing.T) {
	t.Parallel()

	t.Run("WithDefaultConfig", func(t *testing.T) {
		t.Parallel()
		m := NewMonitor(&fieldPoller{}, nil)
		assert.Equal(t, DefaultConfig(), m.config)
		assert.False(t, m.IsPaused())
		assert.Equal(t, StateIdle, m.GetState().DetectionState)
	})

	t.Run("WithCustomConfig", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig()
		m := NewMonitor(&fieldPoller{}, cfg)
		assert.Same(t, cfg, m.config)
	})
}

func TestMonitor_DetectOncePerPlacement(t *testing.T) {
	t.Parallel()
	poller := &fieldPoller{}
	poller.set([]byte{0xE0, 0x01}, nil)
	m, events := startMonitor(t, poller)

	require.Eventually(t, func() bool {
		d, _, _ := events.counts()
		return d == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(60 * time.Millisecond)
	d, c, r := events.counts()
	assert.Equal(t, 1, d)
	assert.Zero(t, c)
	assert.Zero(t, r)

	state := m.GetState()
	assert.True(t, state.Present)
	assert.Equal(t, "e001", state.LastUID)
	assert.True(t, state.CanStartRemovalTimer())
}

func TestMonitor_Removal(t *testing.T) {
	t.Parallel()
	poller := &fieldPoller{}
	poller.set([]byte{0xE0, 0x01}, nil)
	m, events := startMonitor(t, poller)

	require.Eventually(t, func() bool {
		d, _, _ := events.counts()
		return d == 1
	}, time.Second, 5*time.Millisecond)

	poller.set(nil, nil)
	require.Eventually(t, func() bool {
		_, _, r := events.counts()
		return r == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, StateIdle, m.GetState().DetectionState)

	poller.set([]byte{0xE0, 0x01}, nil)
	require.Eventually(t, func() bool {
		d, _, _ := events.counts()
		return d == 2
	}, time.Second, 5*time.Millisecond)
}

func TestMonitor_TagChanged(t *testing.T) {
	t.Parallel()
	poller := &fieldPoller{}
	poller.set([]byte{0x01}, nil)
	_, events := startMonitor(t, poller)

	require.Eventually(t, func() bool {
		d, _, _ := events.counts()
		return d == 1
	}, time.Second, 5*time.Millisecond)

	poller.set([]byte{0x02}, nil)
	require.Eventually(t, func() bool {
		_, c, _ := events.counts()
		return c == 1
	}, time.Second, 5*time.Millisecond)

	events.mu.Lock()
	defer events.mu.Unlock()
	assert.Equal(t, []string{"\x02"}, events.changed)
}

func TestMonitor_PollErrorRemovesTag(t *testing.T) {
	t.Parallel()
	poller := &fieldPoller{}
	poller.set([]byte{0x01}, nil)
	_, events := startMonitor(t, poller)

	require.Eventually(t, func() bool {
		d, _, _ := events.counts()
		return d == 1
	}, time.Second, 5*time.Millisecond)

	poller.set(nil, errors.New("device unplugged"))
	require.Eventually(t, func() bool {
		_, _, r := events.counts()
		return r == 1
	}, time.Second, 5*time.Millisecond)
}

func TestMonitor_FailedHandlingIsRetried(t *testing.T) {
	t.Parallel()
	poller := &fieldPoller{}
	poller.set([]byte{0x01}, nil)

	m := NewMonitor(poller, testConfig())
	var attempts atomic.Int32
	m.OnTagDetected = func(context.Context, []byte) error {
		if attempts.Add(1) < 3 {
			return errors.New("read interrupted")
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Start(ctx) }()

	require.Eventually(t, func() bool { return attempts.Load() >= 3 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestMonitor_PauseResume(t *testing.T) {
	t.Parallel()
	poller := &fieldPoller{}
	m := NewMonitor(poller, testConfig())
	m.Pause()
	assert.True(t, m.IsPaused())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Start(ctx) }()

	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, poller.polls.Load(), "paused monitor must not poll")

	m.Resume()
	m.Resume()
	assert.False(t, m.IsPaused())
	require.Eventually(t, func() bool { return poller.polls.Load() > 0 }, time.Second, 5*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestMonitor_StopsOnCancelWhilePaused(t *testing.T) {
	t.Parallel()
	m := NewMonitor(&fieldPoller{}, testConfig())
	m.Pause()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}

func TestTagState_Transitions(t *testing.T) {
	t.Parallel()
	var ts TagState
	fired := make(chan struct{}, 1)

	ts.TransitionToDetected(time.Hour, func() {})
	assert.Equal(t, StateTagDetected, ts.DetectionState)
	assert.NotNil(t, ts.RemovalTimer)

	ts.TransitionToReading()
	assert.Equal(t, StateReading, ts.DetectionState)
	assert.Nil(t, ts.RemovalTimer)
	assert.False(t, ts.CanStartRemovalTimer())

	ts.TransitionToPostReadGrace(20*time.Millisecond, func() { fired <- struct{}{} })
	assert.Equal(t, StatePostReadGrace, ts.DetectionState)
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("grace timer did not fire")
	}

	ts.Present = true
	ts.LastUID = "e001"
	ts.TransitionToIdle()
	assert.Equal(t, TagState{}, ts)
	assert.Equal(t, "idle", ts.DetectionState.String())
}
