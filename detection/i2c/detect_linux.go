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

package i2c

import (
	"context"
	"fmt"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/ZaparooProject/go-nfcv/detection"
)

const (
	// ioctlSlave sets the target address on an I2C bus file descriptor
	ioctlSlave = 0x0703
	// ioctlFuncs reads the adapter functionality mask
	ioctlFuncs = 0x0705

	funcI2C = 0x00000001

	firstAddress = 0x08
	lastAddress  = 0x77
)

func detectBuses(ctx context.Context, opts *detection.Options) ([]detection.DeviceInfo, error) {
	buses, err := findBuses()
	if err != nil {
		return nil, err
	}
	if len(buses) == 0 {
		return nil, detection.ErrNoDevicesFound
	}

	var devices []detection.DeviceInfo
	for _, bus := range buses {
		if ctx.Err() != nil {
			return devices, detection.ErrDetectionTimeout
		}
		for _, addr := range scanBus(bus) {
			if device, ok := candidate(ctx, bus, addr, opts, probeAddress); ok {
				devices = append(devices, device)
			}
		}
	}

	if len(devices) == 0 {
		return nil, detection.ErrNoDevicesFound
	}
	return devices, nil
}

// findBuses returns the /dev/i2c-* adapters that speak plain I2C.
func findBuses() ([]string, error) {
	matches, err := filepath.Glob("/dev/i2c-*")
	if err != nil {
		return nil, fmt.Errorf("failed to scan for I2C buses: %w", err)
	}

	buses := make([]string, 0, len(matches))
	for _, path := range matches {
		fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
		if err != nil {
			continue
		}
		funcs, err := unix.IoctlGetUint32(fd, ioctlFuncs)
		_ = unix.Close(fd)
		if err != nil || funcs&funcI2C == 0 {
			continue
		}
		buses = append(buses, path)
	}
	return buses, nil
}

// scanBus returns the addresses that acknowledge a one byte read.
func scanBus(busPath string) []uint8 {
	fd, err := unix.Open(busPath, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil
	}
	defer func() { _ = unix.Close(fd) }()

	var found []uint8
	buf := make([]byte, 1)
	for addr := uint8(firstAddress); addr <= lastAddress; addr++ {
		if err := unix.IoctlSetInt(fd, ioctlSlave, int(addr)); err != nil {
			continue
		}
		if _, err := unix.Read(fd, buf); err == nil {
			found = append(found, addr)
		}
	}
	return found
}
