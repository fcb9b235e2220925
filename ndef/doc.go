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

// Package ndef decodes and builds the NDEF messages stored on NFC-V
// (ISO 15693, NFC Forum Type 5) tags.
//
// Messages live in an NDEF TLV that starts right after the capability
// container in block 0. Parsing of the record layer is delegated to
// github.com/hsanjuan/go-ndef; this package adds the TLV framing, the
// capability container and a text record resolver that copes with both
// UTF-8 and UTF-16 encoded text.
package ndef
