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

package ndef

import (
	"errors"
	"fmt"

	gondef "github.com/hsanjuan/go-ndef"
	"golang.org/x/text/encoding/unicode"
)

var (
	// ErrMalformed is returned when bytes cannot be parsed as an NDEF message
	ErrMalformed = errors.New("malformed NDEF message")
	// ErrNotTextRecord is returned when resolving a record that is not a well-known "T" record
	ErrNotTextRecord = errors.New("not a text record")
	// ErrInvalidTextPayload is returned for truncated text record payloads
	ErrInvalidTextPayload = errors.New("invalid text record payload")
)

const (
	textStatusUTF16   = 0x80
	textStatusLangLen = 0x3F
)

// Text is the decoded content of an NDEF text record.
type Text struct {
	Language string
	Content  string
	UTF16    bool
}

// Decoder is the default NDEF decoder.
type Decoder struct{}

// Parse decodes payload into an NDEF message. Input comes straight from
// the air, so a panic inside the record parser is reported as ErrMalformed.
func (Decoder) Parse(payload []byte) (msg *gondef.Message, err error) {
	defer func() {
		if r := recover(); r != nil {
			msg = nil
			err = fmt.Errorf("%w: %v", ErrMalformed, r)
		}
	}()

	msg = &gondef.Message{}
	if _, err := msg.Unmarshal(payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return msg, nil
}

// ResolveTextRecord returns the text carried by a well-known "T" record.
func (Decoder) ResolveTextRecord(record *gondef.Record) (text Text, err error) {
	if record == nil {
		return Text{}, ErrNotTextRecord
	}
	if record.TNF() != gondef.NFCForumWellKnownType || record.Type() != "T" {
		return Text{}, fmt.Errorf("%w: tnf %d type %q", ErrNotTextRecord, record.TNF(), record.Type())
	}

	defer func() {
		if r := recover(); r != nil {
			text = Text{}
			err = fmt.Errorf("%w: %v", ErrInvalidTextPayload, r)
		}
	}()

	payload, err := record.Payload()
	if err != nil {
		return Text{}, fmt.Errorf("%w: %w", ErrInvalidTextPayload, err)
	}
	return DecodeTextPayload(payload.Marshal())
}

// DecodeTextPayload decodes a raw text record payload: a status byte
// (bit 7 set for UTF-16, low six bits the language code length), the
// language code, then the text.
func DecodeTextPayload(payload []byte) (Text, error) {
	if len(payload) == 0 {
		return Text{}, fmt.Errorf("%w: empty payload", ErrInvalidTextPayload)
	}

	status := payload[0]
	langLen := int(status & textStatusLangLen)
	if 1+langLen > len(payload) {
		return Text{}, fmt.Errorf("%w: language code length %d exceeds payload", ErrInvalidTextPayload, langLen)
	}

	text := Text{
		Language: string(payload[1 : 1+langLen]),
		UTF16:    status&textStatusUTF16 != 0,
	}
	body := payload[1+langLen:]
	if !text.UTF16 {
		text.Content = string(body)
		return text, nil
	}

	decoded, err := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder().Bytes(body)
	if err != nil {
		return Text{}, fmt.Errorf("%w: %w", ErrInvalidTextPayload, err)
	}
	text.Content = string(decoded)
	return text, nil
}

// NewTextMessage builds the bytes of a single text record message.
func NewTextMessage(text, language string) ([]byte, error) {
	data, err := gondef.NewTextMessage(text, language).Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal text message: %w", err)
	}
	return data, nil
}
