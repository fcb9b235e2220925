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
	"errors"
	"time"
)

// DetectionState is the tag presence state machine
type DetectionState int

const (
	StateIdle DetectionState = iota
	StateTagDetected
	StateReading
	StatePostReadGrace
)

func (s DetectionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTagDetected:
		return "detected"
	case StateReading:
		return "reading"
	case StatePostReadGrace:
		return "post-read grace"
	default:
		return "unknown"
	}
}

// TagState tracks the tag currently in the field.
type TagState struct {
	LastSeenTime   time.Time
	ReadStartTime  time.Time
	RemovalTimer   *time.Timer
	LastUID        string
	HandledUID     string
	DetectionState DetectionState
	Present        bool
}

// ErrNoTagInPoll means a poll cycle saw no tag. It is not a failure.
var ErrNoTagInPoll = errors.New("no tag detected in polling cycle")

// safeTimerStop stops timer and drains its channel if it already fired
func safeTimerStop(timer *time.Timer) {
	if timer == nil {
		return
	}
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}

// TransitionToReading suspends the removal timer while the tag is read.
func (ts *TagState) TransitionToReading() {
	ts.DetectionState = StateReading
	ts.ReadStartTime = time.Now()
	safeTimerStop(ts.RemovalTimer)
	ts.RemovalTimer = nil
}

// TransitionToPostReadGrace arms a shortened removal timer after a read.
func (ts *TagState) TransitionToPostReadGrace(timeout time.Duration, callback func()) {
	ts.DetectionState = StatePostReadGrace
	safeTimerStop(ts.RemovalTimer)
	ts.RemovalTimer = time.AfterFunc(timeout/2, callback)
}

// TransitionToDetected re-arms the full removal timer.
func (ts *TagState) TransitionToDetected(timeout time.Duration, callback func()) {
	ts.DetectionState = StateTagDetected
	ts.LastSeenTime = time.Now()
	safeTimerStop(ts.RemovalTimer)
	ts.RemovalTimer = time.AfterFunc(timeout, callback)
}

// TransitionToIdle forgets the tag.
func (ts *TagState) TransitionToIdle() {
	ts.DetectionState = StateIdle
	ts.Present = false
	ts.LastUID = ""
	ts.HandledUID = ""
	ts.LastSeenTime = time.Time{}
	ts.ReadStartTime = time.Time{}
	safeTimerStop(ts.RemovalTimer)
	ts.RemovalTimer = nil
}

// CanStartRemovalTimer reports whether a removal timer may run in this state.
func (ts *TagState) CanStartRemovalTimer() bool {
	return ts.DetectionState == StateTagDetected || ts.DetectionState == StatePostReadGrace
}
