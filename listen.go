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

import "context"

// StartListening waits for a tag and returns the raw NDEF payload the
// transceiver found on it. With WithoutListening it returns (nil, nil)
// without touching the transceiver. With WithDevice, a tag whose
// identifier does not match fails with a *WrongDeviceError.
func (s *Service) StartListening(ctx context.Context, opts ...CallOption) ([]byte, error) {
	cfg := newCallConfig(opts)
	return s.ensureListening(ctx, cfg.listen, cfg.device)
}

// StopListening asks the transceiver to stop listening. Failures are only
// logged.
func (s *Service) StopListening(ctx context.Context) {
	if err := s.transceiver.StopListening(ctx); err != nil {
		debugf("stop listening: %v", err)
	}
}

func (s *Service) ensureListening(ctx context.Context, listen bool, device DeviceSignature) ([]byte, error) {
	if !listen {
		return nil, nil
	}

	raw, err := s.transceiver.StartListening(ctx)
	if err != nil {
		return nil, err
	}
	if device == nil {
		return raw, nil
	}

	id, err := s.DecodeDeviceIdentifier(raw)
	if err != nil {
		return nil, &WrongDeviceError{Err: err}
	}
	if !device.MatchString(id) {
		return nil, &WrongDeviceError{Identifier: id}
	}
	debugf("device %q matched", id)
	return raw, nil
}
