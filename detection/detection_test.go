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

package detection

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPathIgnored(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		devicePath  string
		ignorePaths []string
		expected    bool
	}{
		{name: "empty ignore list", devicePath: "/dev/ttyUSB0", ignorePaths: []string{}},
		{name: "empty device path", devicePath: "", ignorePaths: []string{"/dev/ttyUSB0"}},
		{name: "exact unix path", devicePath: "/dev/ttyUSB0", ignorePaths: []string{"/dev/ttyUSB0"}, expected: true},
		{name: "exact windows path", devicePath: "COM2", ignorePaths: []string{"COM2"}, expected: true},
		{name: "case insensitive", devicePath: "com2", ignorePaths: []string{"COM2"}, expected: true},
		{name: "no match", devicePath: "/dev/ttyUSB1", ignorePaths: []string{"/dev/ttyUSB0"}},
		{
			name:        "one of many",
			devicePath:  "/dev/ttyUSB1",
			ignorePaths: []string{"/dev/ttyUSB0", "/dev/ttyUSB1", "COM2"},
			expected:    true,
		},
		{name: "i2c path", devicePath: "/dev/i2c-1:0x24", ignorePaths: []string{"/dev/i2c-1:0x24"}, expected: true},
		{name: "relative components", devicePath: "/dev/../dev/ttyUSB0", ignorePaths: []string{"/dev/ttyUSB0"}, expected: true},
		{name: "empty entries", devicePath: "/dev/ttyUSB0", ignorePaths: []string{"", "/dev/ttyUSB0"}, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, IsPathIgnored(tt.devicePath, tt.ignorePaths))
		})
	}
}

func TestIsBlocked(t *testing.T) {
	t.Parallel()

	blocklist := []string{"2341:0043", " 1a86:7523 "}
	assert.True(t, IsBlocked("2341:0043", blocklist))
	assert.True(t, IsBlocked("1A86:7523", blocklist))
	assert.True(t, IsBlocked("1a86:7523", blocklist))
	assert.False(t, IsBlocked("10C4:EA60", blocklist))
	assert.False(t, IsBlocked("", blocklist))
	assert.False(t, IsBlocked("not-an-id", blocklist))
}

func TestFormatVIDPID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1A86:7523", FormatVIDPID("1a86", "7523"))
	assert.Equal(t, "0403:6001", FormatVIDPID("403", "6001"))
	assert.Empty(t, FormatVIDPID("", "6001"))
	assert.Empty(t, FormatVIDPID("zz", "6001"))
}

func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	assert.Nil(t, opts.IgnorePaths)
	assert.Equal(t, Safe, opts.Mode)
	assert.True(t, IsBlocked("2341:0043", opts.Blocklist))
	assert.Equal(t, "safe", opts.Mode.String())
	assert.Equal(t, "high", High.String())
}

type stubDetector struct {
	err       error
	transport string
	devices   []DeviceInfo
}

func (d *stubDetector) Transport() string { return d.transport }

func (d *stubDetector) Detect(context.Context, *Options) ([]DeviceInfo, error) {
	return d.devices, d.err
}

// The registry is global, so these cases run sequentially in one test.
func TestDetectAll(t *testing.T) {
	saved := Detectors()
	registryMu.Lock()
	registry = nil
	registryMu.Unlock()
	t.Cleanup(func() {
		registryMu.Lock()
		registry = saved
		registryMu.Unlock()
	})

	_, err := DetectAll(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoDetectors)

	RegisterDetector(&stubDetector{transport: "uart", err: errors.New("enumeration failed")})
	_, err = DetectAll(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoDevicesFound)

	RegisterDetector(&stubDetector{transport: "uart", devices: []DeviceInfo{
		{Transport: "uart", Path: "/dev/ttyUSB0", Confidence: Low},
	}})
	RegisterDetector(&stubDetector{transport: "i2c", devices: []DeviceInfo{
		{Transport: "i2c", Path: "/dev/i2c-1:0x24", Confidence: High},
	}})
	assert.Len(t, Detectors(), 2)

	devices, err := DetectAll(context.Background(), &Options{})
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "i2c", devices[0].Transport)

	best, err := DetectBest(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "/dev/i2c-1:0x24", best.Path)
}
