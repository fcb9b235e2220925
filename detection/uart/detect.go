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

// Package uart detects bridge modules behind USB serial adapters. Importing
// it registers the detector.
package uart

import (
	"context"
	"fmt"

	"go.bug.st/serial/enumerator"

	"github.com/ZaparooProject/go-nfcv"
	"github.com/ZaparooProject/go-nfcv/bridge"
	"github.com/ZaparooProject/go-nfcv/detection"
	"github.com/ZaparooProject/go-nfcv/transport/uart"
)

// KnownBridges maps the USB serial chips bridge modules ship with to a
// description.
var KnownBridges = map[string]string{
	"1A86:7523": "CH340",
	"10C4:EA60": "CP210x",
	"0403:6001": "FT232R",
}

type detector struct {
	listPorts func() ([]*enumerator.PortDetails, error)
	probe     func(ctx context.Context, path string) error
}

// New creates the serial port detector.
func New() detection.Detector {
	return &detector{
		listPorts: enumerator.GetDetailedPortsList,
		probe:     probePort,
	}
}

func init() {
	detection.RegisterDetector(New())
}

func (*detector) Transport() string {
	return "uart"
}

// Detect lists serial ports and, depending on the mode, probes them with
// a bridge Init command.
func (d *detector) Detect(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	if opts == nil {
		opts = detection.DefaultOptions()
	}

	ports, err := d.listPorts()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	var devices []detection.DeviceInfo
	for _, port := range ports {
		if ctx.Err() != nil {
			return devices, detection.ErrDetectionTimeout
		}
		if device, ok := d.inspect(ctx, port, opts); ok {
			devices = append(devices, device)
		}
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

func (d *detector) inspect(
	ctx context.Context, port *enumerator.PortDetails, opts *detection.Options,
) (detection.DeviceInfo, bool) {
	if detection.IsPathIgnored(port.Name, opts.IgnorePaths) {
		return detection.DeviceInfo{}, false
	}

	vidpid := ""
	if port.IsUSB {
		vidpid = detection.FormatVIDPID(port.VID, port.PID)
	}
	chip, known := KnownBridges[vidpid]

	device := detection.DeviceInfo{
		Transport:  "uart",
		Path:       port.Name,
		Name:       port.Name,
		Confidence: detection.Low,
		Metadata:   map[string]string{},
	}
	if vidpid != "" {
		device.Metadata["vidpid"] = vidpid
	}
	if port.Product != "" {
		device.Name = port.Product
	}
	if port.SerialNumber != "" {
		device.Metadata["serial"] = port.SerialNumber
	}
	if known {
		device.Confidence = detection.Medium
		device.Metadata["chip"] = chip
	}

	shouldProbe := opts.Mode == detection.Full || (opts.Mode == detection.Safe && known)
	if detection.IsBlocked(vidpid, opts.Blocklist) {
		shouldProbe = false
	}
	if !shouldProbe {
		return device, known
	}

	timeout := opts.ProbeTimeout
	if timeout <= 0 {
		timeout = nfcv.DefaultTimeout
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := d.probe(probeCtx, port.Name); err != nil {
		nfcv.Debugf("detection: %s did not answer: %v", port.Name, err)
		return device, known
	}
	device.Confidence = detection.High
	return device, true
}

func probePort(ctx context.Context, path string) error {
	transport, err := uart.New(path)
	if err != nil {
		return err
	}
	defer func() { _ = transport.Close() }()
	return bridge.Probe(ctx, transport)
}
