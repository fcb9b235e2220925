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

// Command nfcvtool reads and writes NFC-V tags through a bridge module.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/ZaparooProject/go-nfcv"
	"github.com/ZaparooProject/go-nfcv/bridge"
	"github.com/ZaparooProject/go-nfcv/detection"
	// Import the detectors to register them
	_ "github.com/ZaparooProject/go-nfcv/detection/i2c"
	_ "github.com/ZaparooProject/go-nfcv/detection/uart"
	"github.com/ZaparooProject/go-nfcv/transport/i2c"
	"github.com/ZaparooProject/go-nfcv/transport/uart"
)

type config struct {
	devicePath   *string
	transport    *string
	mode         *string
	pattern      *string
	data         *string
	text         *string
	listenAddr   *string
	timeout      *time.Duration
	pollInterval *time.Duration
	start        *int
	end          *int
	block        *int
	debug        *bool
}

func parseFlags() *config {
	cfg := &config{
		devicePath: flag.String("device", "",
			"Device path (e.g., /dev/ttyUSB0, COM3 or /dev/i2c-1). Leave empty for auto-detection."),
		transport: flag.String("transport", "auto", "Transport: auto, uart or i2c"),
		mode:      flag.String("mode", "info", "Mode: info, read, write, ndef, wait or serve"),
		pattern:   flag.String("pattern", "", "Regular expression the tag's device identifier must match"),
		data:      flag.String("data", "", "Hex block data for write mode"),
		text:      flag.String("text", "", "Text record to write in ndef mode (read only when empty)"),
		listenAddr: flag.String("listen", "localhost:8787",
			"Address for the websocket event feed in serve mode"),
		timeout:      flag.Duration("timeout", 30*time.Second, "Timeout for waiting on a tag"),
		pollInterval: flag.Duration("poll-interval", 100*time.Millisecond, "Polling interval for tag detection"),
		start:        flag.Int("start", 0, "First block for read mode"),
		end:          flag.Int("end", 3, "Last block for read mode"),
		block:        flag.Int("block", 1, "Block for write mode"),
		debug:        flag.Bool("debug", false, "Enable debug output"),
	}
	flag.Parse()

	if *cfg.debug {
		nfcv.SetDebugEnabled(true)
	}
	return cfg
}

// newTransport opens path with the requested transport. "auto" picks I2C
// for paths that look like an I2C bus and UART otherwise.
func newTransport(kind, path string) (nfcv.Transport, error) {
	if path == "" {
		return nil, errors.New("empty device path")
	}
	if kind == "auto" {
		kind = "uart"
		if strings.Contains(strings.ToLower(path), "i2c") {
			kind = "i2c"
		}
	}

	switch kind {
	case "uart":
		transport, err := uart.New(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create UART transport: %w", err)
		}
		return transport, nil
	case "i2c":
		bus, addr, hasAddr := strings.Cut(path, ":")
		address := uint64(i2c.DefaultAddress)
		if hasAddr {
			var err error
			if address, err = strconv.ParseUint(addr, 0, 16); err != nil {
				return nil, fmt.Errorf("invalid I2C address %q: %w", addr, err)
			}
		}
		transport, err := i2c.NewWithAddress(bus, uint16(address))
		if err != nil {
			return nil, fmt.Errorf("failed to create I2C transport: %w", err)
		}
		return transport, nil
	default:
		return nil, fmt.Errorf("unsupported transport type: %s", kind)
	}
}

// connect opens the configured device, auto-detecting it when no path is
// given, and returns a ready Service.
func connect(ctx context.Context, cfg *config) (*nfcv.Service, *bridge.Transceiver, error) {
	path, kind := *cfg.devicePath, *cfg.transport
	if path == "" {
		_, _ = fmt.Println("Auto-detecting NFC-V bridge modules...")
		device, err := detection.DetectBest(ctx, detection.DefaultOptions())
		if err != nil {
			return nil, nil, fmt.Errorf("auto-detection failed: %w", err)
		}
		_, _ = fmt.Printf("Found %s (%s, %s confidence)\n", device.Path, device.Transport, device.Confidence)
		path, kind = device.Path, device.Transport
	} else {
		_, _ = fmt.Printf("Opening device: %s\n", path)
	}

	transport, err := newTransport(kind, path)
	if err != nil {
		return nil, nil, err
	}

	bridgeConfig := bridge.DefaultConfig()
	bridgeConfig.PollInterval = *cfg.pollInterval
	tr, err := bridge.New(transport, bridgeConfig)
	if err != nil {
		_ = transport.Close()
		return nil, nil, err
	}

	svc, err := nfcv.New(tr)
	if err != nil {
		_ = tr.Close()
		return nil, nil, err
	}
	if err := svc.Init(ctx); err != nil {
		_ = tr.Close()
		return nil, nil, fmt.Errorf("failed to initialize module: %w", err)
	}
	if err := svc.IsAvailable(ctx); err != nil {
		_ = tr.Close()
		return nil, nil, fmt.Errorf("NFC unavailable: %w", err)
	}
	return svc, tr, nil
}

func main() {
	cfg := parseFlags()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	svc, tr, err := connect(ctx, cfg)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to connect to device: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = tr.Close() }()

	if err := run(ctx, svc, cfg); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		stop()
		_ = tr.Close()
		os.Exit(1)
	}
}
