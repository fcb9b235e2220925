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
	"time"
)

// TransportContext is a Transport whose commands honour a context.
type TransportContext interface {
	Transport

	// SendCommandContext sends a command, giving up when ctx is done
	SendCommandContext(ctx context.Context, cmd byte, args []byte) ([]byte, error)
}

type transportContextAdapter struct {
	Transport
}

// SendCommandContext narrows the transport timeout to the context deadline
// and stops waiting when the context is cancelled. The command itself keeps
// running until the transport times out.
func (t *transportContextAdapter) SendCommandContext(ctx context.Context, cmd byte, args []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled before sending command: %w", err)
	}

	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline {
		if timeout := time.Until(deadline); timeout > 0 && timeout < DefaultTimeout {
			if err := t.SetTimeout(timeout); err != nil {
				return nil, err
			}
			defer func() {
				_ = t.SetTimeout(DefaultTimeout)
			}()
		}
	}

	type result struct {
		err  error
		data []byte
	}
	resultChan := make(chan result, 1)
	go func() {
		data, err := t.SendCommand(cmd, args)
		resultChan <- result{err: err, data: data}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled while waiting for command response: %w", ctx.Err())
	case res := <-resultChan:
		// A transport timeout at the narrowed deadline is the context's.
		if res.err != nil && hasDeadline && !time.Now().Before(deadline) {
			return nil, fmt.Errorf("command timed out at context deadline: %w", context.DeadlineExceeded)
		}
		if res.err != nil && ctx.Err() != nil {
			return nil, fmt.Errorf("context cancelled while waiting for command response: %w", ctx.Err())
		}
		return res.data, res.err
	}
}

// AsTransportContext returns t itself if it already supports contexts,
// otherwise an adapter.
func AsTransportContext(t Transport) TransportContext {
	if tc, ok := t.(TransportContext); ok {
		return tc
	}
	return &transportContextAdapter{Transport: t}
}
