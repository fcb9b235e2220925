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

// Package transport holds the link-level retry loops shared by the UART and
// I2C transports.
package transport

import (
	"context"
	"fmt"
	"time"
)

// RetryOperation is one attempt. It returns the result, whether the attempt
// should be repeated, and an error that ends the loop at once.
type RetryOperation[T any] func() (T, bool, error)

// RetryConfig configures WithRetry.
type RetryConfig struct {
	// OnRetry runs before every repeated attempt, e.g. to NACK a frame or
	// resend a command. Its error ends the loop.
	OnRetry func(attempt int) error
	// Exhausted is returned once MaxRetries repeats have all asked for
	// another attempt.
	Exhausted  error
	MaxRetries int
}

// WithRetry runs operation at most MaxRetries+1 times.
func WithRetry[T any](config RetryConfig, operation RetryOperation[T]) (T, error) {
	var zero T

	for attempt := 0; ; attempt++ {
		result, retry, err := operation()
		if err != nil {
			return zero, err
		}
		if !retry {
			return result, nil
		}
		if attempt >= config.MaxRetries {
			return zero, config.Exhausted
		}
		if config.OnRetry != nil {
			if err := config.OnRetry(attempt + 1); err != nil {
				return zero, err
			}
		}
	}
}

// TimeoutRetry repeats operation every interval until it stops asking for a
// retry, ctx ends, or deadline passes, in which case timeoutErr is returned.
func TimeoutRetry[T any](
	ctx context.Context, deadline time.Time, interval time.Duration, timeoutErr error, operation RetryOperation[T],
) (T, error) {
	var zero T

	for {
		result, retry, err := operation()
		if err != nil {
			return zero, err
		}
		if !retry {
			return result, nil
		}
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("context cancelled while waiting for module: %w", err)
		}
		if time.Now().After(deadline) {
			return zero, timeoutErr
		}
		time.Sleep(interval)
	}
}
