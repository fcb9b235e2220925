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

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/ZaparooProject/go-nfcv"
	"github.com/ZaparooProject/go-nfcv/server"
)

func run(ctx context.Context, svc *nfcv.Service, cfg *config) error {
	opts, err := callOptions(cfg)
	if err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, *cfg.timeout)
	defer cancel()

	switch *cfg.mode {
	case "info":
		return runInfo(waitCtx, svc, opts)
	case "read":
		return runRead(waitCtx, svc, *cfg.start, *cfg.end, opts)
	case "write":
		return runWrite(waitCtx, svc, *cfg.block, *cfg.data, opts)
	case "ndef":
		return runNDEF(waitCtx, svc, *cfg.text, opts)
	case "wait":
		return runWait(waitCtx, svc, opts)
	case "serve":
		return runServe(ctx, svc, *cfg.listenAddr)
	default:
		return fmt.Errorf("unknown mode %q", *cfg.mode)
	}
}

func callOptions(cfg *config) ([]nfcv.CallOption, error) {
	if *cfg.pattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile(*cfg.pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid -pattern: %w", err)
	}
	return []nfcv.CallOption{nfcv.WithDevice(re)}, nil
}

func blockAddress(n int) (nfcv.BlockAddress, error) {
	if n < 0 || n > nfcv.MaxBlockAddress {
		return 0, fmt.Errorf("%w: block %d", nfcv.ErrAddressOverflow, n)
	}
	return nfcv.BlockAddress(n), nil
}

func runInfo(ctx context.Context, svc *nfcv.Service, opts []nfcv.CallOption) error {
	_, _ = fmt.Println("Waiting for tag...")
	info, err := svc.ReadSystemInfo(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to read system info: %w", err)
	}
	printSystemInfo(info)
	return nil
}

func runRead(ctx context.Context, svc *nfcv.Service, start, end int, opts []nfcv.CallOption) error {
	first, err := blockAddress(start)
	if err != nil {
		return err
	}
	last, err := blockAddress(end)
	if err != nil {
		return err
	}

	addrs := make([]nfcv.BlockAddress, 0, max(0, end-start+1))
	for a := int(first); a <= int(last); a++ {
		addrs = append(addrs, nfcv.BlockAddress(a))
	}

	_, _ = fmt.Println("Waiting for tag...")
	blocks, err := svc.Read(ctx, addrs, opts...)
	if err != nil {
		return fmt.Errorf("read failed: %w", err)
	}
	printBlocks(blocks)
	return nil
}

func runWrite(ctx context.Context, svc *nfcv.Service, block int, data string, opts []nfcv.CallOption) error {
	addr, err := blockAddress(block)
	if err != nil {
		return err
	}
	payload := nfcv.HexToBytes(data)
	if len(payload) == 0 {
		return fmt.Errorf("%w: -data must be hex bytes", nfcv.ErrInvalidParameter)
	}

	_, _ = fmt.Println("Waiting for tag to write...")
	resp, err := svc.WriteBlock(ctx, addr, payload, opts...)
	if err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	_, _ = fmt.Printf("Block %d written, tag answered %s\n", addr, nfcv.BytesToHex(resp))
	return nil
}

func runNDEF(ctx context.Context, svc *nfcv.Service, text string, opts []nfcv.CallOption) error {
	_, _ = fmt.Println("Waiting for tag...")
	if text != "" {
		info, err := svc.ReadSystemInfo(ctx, opts...)
		if err != nil {
			return fmt.Errorf("failed to read system info: %w", err)
		}
		if !info.HasMemorySize {
			return errors.New("tag does not report its memory size")
		}
		dataArea := (info.BlockCount - int(nfcv.NDEFStartBlock)) * info.BlockSize
		if _, err := svc.WriteNDEFText(ctx, text, info.BlockSize, dataArea, nfcv.WithoutListening()); err != nil {
			return fmt.Errorf("failed to write NDEF: %w", err)
		}
		_, _ = fmt.Println("Write successful!")
		opts = []nfcv.CallOption{nfcv.WithoutListening()}
	}

	msg, err := svc.ReadNDEF(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to read NDEF: %w", err)
	}
	printNDEF(svc, msg)
	return nil
}

func runWait(ctx context.Context, svc *nfcv.Service, opts []nfcv.CallOption) error {
	events := make(chan nfcv.TagEvent, 1)
	unsubscribe := svc.OnTag(func(e nfcv.TagEvent) {
		select {
		case events <- e:
		default:
		}
	})
	defer unsubscribe()

	if !svc.WaitForTag(ctx, opts...) {
		return errors.New("a wait is already pending")
	}
	_, _ = fmt.Println("Waiting for tag...")

	select {
	case e := <-events:
		printTagEvent("tag", e)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("no tag detected: %w", ctx.Err())
	}
}

// runServe arms the module and publishes tag events until ctx ends.
func runServe(ctx context.Context, svc *nfcv.Service, addr string) error {
	srv := server.New(svc)
	defer func() { _ = srv.Close() }()

	unsubscribe := svc.OnNDEF(func(e nfcv.TagEvent) { printTagEvent("ndef", e) })
	defer unsubscribe()
	if err := svc.AddNDEFListener(ctx); err != nil {
		return fmt.Errorf("failed to register NDEF listener: %w", err)
	}
	svc.WaitForTag(ctx)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		_, _ = fmt.Printf("Serving events on ws://%s/ws\n", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	svc.StopListening(shutdownCtx)
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}
	return nil
}
