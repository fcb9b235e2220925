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

/*
Package nfcv drives NFC-V (ISO 15693) tags through a transceiver, usually a
bridge module reached over UART or I2C.

The Service sequences block reads and writes, validates the status byte of
every tag response, and turns NDEF notifications into device identifier
events. It performs no radio I/O itself; that is the Transceiver's job.

Basic Usage:

	import (
	    "github.com/ZaparooProject/go-nfcv"
	    "github.com/ZaparooProject/go-nfcv/bridge"
	    "github.com/ZaparooProject/go-nfcv/transport/uart"
	)

	transport, err := uart.New("/dev/ttyUSB0")
	if err != nil {
	    log.Fatal(err)
	}

	tr, err := bridge.New(transport, nil)
	if err != nil {
	    log.Fatal(err)
	}
	defer tr.Close()

	svc, err := nfcv.New(tr)
	if err != nil {
	    log.Fatal(err)
	}

	// Waits for a tag, then reads blocks 0 to 3
	data, err := svc.ReadRange(ctx, 0, 3)
	if err != nil {
	    log.Fatal(err)
	}

Listening:

Every operation first waits for a tag unless WithoutListening is given.
Batch operations (Read, Write, ReadRange, ScanBlocks) wait once and then
run their blocks one after another. WithDevice restricts an operation to
tags whose stored device identifier matches a pattern:

	blocks, err := svc.Read(ctx, addrs, nfcv.WithDevice(regexp.MustCompile(`^lamp-`)))
	if errors.Is(err, nfcv.ErrWrongDeviceType) {
	    // another tag was presented
	}

Events:

OnTag and OnNDEF deliver TagEvents to any number of subscribers. A late
subscriber first receives the most recent event.

Error Handling:

Tag failures are reported as *OperationFailedError carrying the stage,
block address and ISO 15693 error code. Transport failures are
*TransportError values classified by ErrorType. Both wrap the sentinel
errors declared in this package, so errors.Is works throughout.

Thread Safety:

A Service may be shared, but separate calls are not serialized against
each other. The bridge transceiver serializes commands on its link.
*/
package nfcv
