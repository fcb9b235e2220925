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

// Package i2c detects bridge modules on I2C buses. Importing it registers
// the detector. Bus scanning is only implemented on Linux.
package i2c

import (
	"context"
	"fmt"

	"github.com/ZaparooProject/go-nfcv/bridge"
	"github.com/ZaparooProject/go-nfcv/detection"
	"github.com/ZaparooProject/go-nfcv/transport/i2c"
)

// DefaultAddress is the address bridge modules answer on
const DefaultAddress = i2c.DefaultAddress

type detector struct{}

// New creates the I2C detector
func New() detection.Detector {
	return &detector{}
}

func init() {
	detection.RegisterDetector(New())
}

func (*detector) Transport() string {
	return "i2c"
}

// Detect scans the I2C buses for bridge modules.
func (*detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	if opts == nil {
		opts = detection.DefaultOptions()
	}
	return detectBuses(ctx, opts)
}

// candidate builds the DeviceInfo for a responding address, or reports that
// the address should be skipped.
func candidate(
	ctx context.Context, busPath string, addr uint8, opts *detection.Options,
	probe func(ctx context.Context, busPath string, addr uint8) error,
) (detection.DeviceInfo, bool) {
	devicePath := fmt.Sprintf("%s:0x%02X", busPath, addr)
	if detection.IsPathIgnored(devicePath, opts.IgnorePaths) {
		return detection.DeviceInfo{}, false
	}
	if addr != DefaultAddress && opts.Mode != detection.Full {
		return detection.DeviceInfo{}, false
	}

	device := detection.DeviceInfo{
		Transport:  "i2c",
		Path:       devicePath,
		Name:       fmt.Sprintf("I2C device at %s address 0x%02X", busPath, addr),
		Confidence: detection.Low,
		Metadata: map[string]string{
			"bus":     busPath,
			"address": fmt.Sprintf("0x%02X", addr),
		},
	}
	if addr == DefaultAddress {
		device.Confidence = detection.Medium
	}
	if opts.Mode == detection.Passive {
		return device, true
	}

	timeout := opts.ProbeTimeout
	if timeout <= 0 {
		timeout = detection.DefaultOptions().ProbeTimeout
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := probe(probeCtx, busPath, addr); err != nil {
		return device, device.Confidence > detection.Low
	}
	device.Confidence = detection.High
	return device, true
}

// probeAddress sends a bridge Init over the periph I2C transport.
func probeAddress(ctx context.Context, busPath string, addr uint8) error {
	transport, err := i2c.NewWithAddress(busPath, uint16(addr))
	if err != nil {
		return err
	}
	defer func() { _ = transport.Close() }()
	return bridge.Probe(ctx, transport)
}
