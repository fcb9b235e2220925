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

// Package detection finds NFC-V bridge modules attached over UART or I2C.
// Transport specific detectors register themselves when their package is
// imported.
package detection

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"
)

var (
	// ErrNoDevicesFound is returned when no detector found a module
	ErrNoDevicesFound = errors.New("no NFC-V bridge devices found")
	// ErrUnsupportedPlatform is returned by detectors that cannot run here
	ErrUnsupportedPlatform = errors.New("detection not supported on this platform")
	// ErrDetectionTimeout is returned when the detection context ends first
	ErrDetectionTimeout = errors.New("device detection timed out")
	// ErrNoDetectors is returned when no detector package was imported
	ErrNoDetectors = errors.New("no detectors registered")
)

// Mode controls how intrusive detection is.
type Mode int

const (
	// Passive only enumerates; nothing is opened.
	Passive Mode = iota
	// Safe probes candidates whose USB IDs or bus address match a known
	// bridge.
	Safe
	// Full probes every candidate that is not blocked.
	Full
)

func (m Mode) String() string {
	switch m {
	case Passive:
		return "passive"
	case Safe:
		return "safe"
	case Full:
		return "full"
	default:
		return "unknown"
	}
}

// Confidence ranks how likely a candidate is a bridge module.
type Confidence int

const (
	Low Confidence = iota
	Medium
	High
)

func (c Confidence) String() string {
	switch c {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	default:
		return "unknown"
	}
}

// DeviceInfo describes a detected candidate.
type DeviceInfo struct {
	Metadata   map[string]string
	Transport  string
	Path       string
	Name       string
	Confidence Confidence
}

// Options configures detection.
type Options struct {
	// Blocklist holds VID:PID pairs that are never probed.
	Blocklist []string
	// IgnorePaths holds device paths that are skipped entirely.
	IgnorePaths []string
	// Timeout bounds the whole detection run.
	Timeout time.Duration
	// ProbeTimeout bounds each probe.
	ProbeTimeout time.Duration
	Mode         Mode
}

// DefaultOptions probes known bridges only.
func DefaultOptions() *Options {
	return &Options{
		Mode:         Safe,
		Timeout:      5 * time.Second,
		ProbeTimeout: time.Second,
		Blocklist:    DefaultBlocklist(),
	}
}

// Detector finds candidates on one transport.
type Detector interface {
	Transport() string
	Detect(ctx context.Context, opts *Options) ([]DeviceInfo, error)
}

var (
	registryMu sync.RWMutex
	registry   []Detector
)

// RegisterDetector adds d to the detectors used by DetectAll. A detector
// for an already registered transport replaces it.
func RegisterDetector(d Detector) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = slices.DeleteFunc(registry, func(e Detector) bool {
		return e.Transport() == d.Transport()
	})
	registry = append(registry, d)
}

// Detectors returns the registered detectors.
func Detectors() []Detector {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return slices.Clone(registry)
}

// DetectAll runs every registered detector and returns the candidates,
// most confident first. Failing detectors are skipped.
func DetectAll(ctx context.Context, opts *Options) ([]DeviceInfo, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	detectors := Detectors()
	if len(detectors) == 0 {
		return nil, ErrNoDetectors
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	var devices []DeviceInfo
	for _, d := range detectors {
		if ctx.Err() != nil {
			break
		}
		found, err := d.Detect(ctx, opts)
		if err != nil {
			continue
		}
		devices = append(devices, found...)
	}

	if len(devices) == 0 {
		if ctx.Err() != nil {
			return nil, ErrDetectionTimeout
		}
		return nil, ErrNoDevicesFound
	}
	sort.SliceStable(devices, func(i, j int) bool {
		return devices[i].Confidence > devices[j].Confidence
	})
	return devices, nil
}

// DetectBest returns the most confident candidate.
func DetectBest(ctx context.Context, opts *Options) (DeviceInfo, error) {
	devices, err := DetectAll(ctx, opts)
	if err != nil {
		return DeviceInfo{}, err
	}
	return devices[0], nil
}
