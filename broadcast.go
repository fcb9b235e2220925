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

import "sync"

// Broadcaster delivers values to every subscriber and remembers the last
// one, which late subscribers receive as soon as they subscribe.
//
// Deliveries are serialized, so a subscriber sees values in publish order.
// Subscribers must not call Publish or Subscribe on the same Broadcaster
// from inside their callback.
type Broadcaster[T any] struct {
	observers map[uint64]func(T)
	last      T
	nextID    uint64
	mu        sync.Mutex
	deliverMu sync.Mutex
	hasLast   bool
}

// NewBroadcaster returns an empty Broadcaster.
func NewBroadcaster[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{observers: make(map[uint64]func(T))}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Broadcaster[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	b.deliverMu.Lock()
	defer b.deliverMu.Unlock()

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.observers[id] = fn
	last, hasLast := b.last, b.hasLast
	b.mu.Unlock()

	if hasLast {
		fn(last)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.observers, id)
			b.mu.Unlock()
		})
	}
}

// Publish stores v as the last value and hands it to every subscriber.
func (b *Broadcaster[T]) Publish(v T) {
	b.deliverMu.Lock()
	defer b.deliverMu.Unlock()

	b.mu.Lock()
	b.last = v
	b.hasLast = true
	observers := make([]func(T), 0, len(b.observers))
	for _, fn := range b.observers {
		observers = append(observers, fn)
	}
	b.mu.Unlock()

	for _, fn := range observers {
		fn(v)
	}
}

// Last returns the most recently published value.
func (b *Broadcaster[T]) Last() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last, b.hasLast
}
