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

package nfcv

import (
	"context"
	"errors"
	"regexp"
	"testing"

	gondef "github.com/hsanjuan/go-ndef"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZaparooProject/go-nfcv/ndef"
)

func textPayload(t *testing.T, text string) []byte {
	t.Helper()
	data, err := ndef.NewTextMessage(text, "en")
	require.NoError(t, err)
	return data
}

func newTestService(t *testing.T, mock *MockTransceiver, opts ...Option) *Service {
	t.Helper()
	svc, err := New(mock, opts...)
	require.NoError(t, err)
	return svc
}

type stubDecoder struct {
	msg *gondef.Message
	err error
}

func (d stubDecoder) Parse([]byte) (*gondef.Message, error) {
	return d.msg, d.err
}

func (stubDecoder) ResolveTextRecord(*gondef.Record) (ndef.Text, error) {
	return ndef.Text{Content: "stub"}, nil
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := New(nil)
	require.ErrorIs(t, err, ErrInvalidParameter)

	_, err = New(&MockTransceiver{}, WithNDEFDecoder(nil))
	require.ErrorIs(t, err, ErrInvalidParameter)

	_, err = New(&MockTransceiver{}, WithDeviceNameRecord(-1))
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestService_PassThroughs(t *testing.T) {
	t.Parallel()

	mock := &MockTransceiver{AvailabilityErr: ErrNFCDisabled}
	mock.TransceiveFunc = func(req []byte) ([]byte, error) {
		return append([]byte{0x00}, req...), nil
	}
	svc := newTestService(t, mock)
	ctx := context.Background()

	require.NoError(t, svc.Init(ctx))
	assert.ErrorIs(t, svc.IsAvailable(ctx), ErrNFCDisabled)

	resp, err := svc.Transceive(ctx, []byte{0x02, 0x20, 0x05})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x02, 0x20, 0x05}, resp, "transceive returns the raw response")

	svc.StopListening(ctx)
	assert.Equal(t, []string{"init", "availability", "transceive", "stop"}, mock.Calls())
}

func TestStopListening_IgnoresFailure(t *testing.T) {
	t.Parallel()

	mock := &MockTransceiver{StopErr: errors.New("not listening")}
	svc := newTestService(t, mock)
	svc.StopListening(context.Background())
	assert.Equal(t, 1, mock.CountCalls("stop"))
}

func TestStartListening(t *testing.T) {
	t.Parallel()

	payload := textPayload(t, "reader-1")
	listenErr := errors.New("radio off")

	tests := []struct {
		listenErr error
		wantErr   error
		device    DeviceSignature
		name      string
		opts      []CallOption
		listens   int
		wantRaw   bool
	}{
		{name: "no listening is a no-op", opts: []CallOption{WithoutListening()}, listens: 0},
		{name: "listen without signature", listens: 1, wantRaw: true},
		{name: "signature matches", device: regexp.MustCompile(`^reader-\d$`), listens: 1, wantRaw: true},
		{name: "signature mismatch", device: regexp.MustCompile(`^door-`), listens: 1, wantErr: ErrWrongDeviceType},
		{name: "transceiver failure unchanged", listenErr: listenErr, listens: 1, wantErr: listenErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mock := &MockTransceiver{ListenFunc: func(context.Context) ([]byte, error) {
				if tt.listenErr != nil {
					return nil, tt.listenErr
				}
				return payload, nil
			}}
			svc := newTestService(t, mock)

			opts := tt.opts
			if tt.device != nil {
				opts = append(opts, WithDevice(tt.device))
			}
			raw, err := svc.StartListening(context.Background(), opts...)
			assert.Equal(t, tt.listens, mock.CountCalls("listen"))

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				if tt.listenErr != nil {
					assert.Same(t, tt.listenErr, err)
				}
				return
			}
			require.NoError(t, err)
			if tt.wantRaw {
				assert.Equal(t, payload, raw)
			} else {
				assert.Nil(t, raw)
			}
		})
	}
}

func TestStartListening_SignatureOnUndecodableTag(t *testing.T) {
	t.Parallel()

	mock := &MockTransceiver{ListenFunc: func(context.Context) ([]byte, error) {
		return []byte{0x00}, nil
	}}
	svc := newTestService(t, mock)

	_, err := svc.StartListening(context.Background(), WithDevice(regexp.MustCompile(".*")))
	var wrong *WrongDeviceError
	require.ErrorAs(t, err, &wrong)
	assert.ErrorIs(t, err, ErrNDEFParse)
}

func TestDecodeDeviceIdentifier(t *testing.T) {
	t.Parallel()

	two := gondef.NewMessageFromRecords(
		gondef.NewTextRecord("first", "en"),
		gondef.NewTextRecord("second", "en"),
	)
	twoBytes, err := two.Marshal()
	require.NoError(t, err)

	tests := []struct {
		wantErr error
		name    string
		want    string
		payload []byte
		opts    []Option
	}{
		{name: "empty payload", payload: nil, wantErr: ErrUndefinedNDEF},
		{name: "text record", payload: textPayload(t, "reader-7"), want: "reader-7"},
		{name: "malformed", payload: []byte{0xFF}, wantErr: ErrNDEFParse},
		{name: "zero records", payload: []byte{0x01}, opts: []Option{WithNDEFDecoder(stubDecoder{msg: &gondef.Message{}})}, wantErr: ErrNDEFParse},
		{name: "decoder error", payload: []byte{0x01}, opts: []Option{WithNDEFDecoder(stubDecoder{err: errors.New("bad")})}, wantErr: ErrNDEFParse},
		{name: "custom decoder", payload: []byte{0x01}, opts: []Option{WithNDEFDecoder(stubDecoder{msg: two})}, want: "stub"},
		{name: "second record", payload: twoBytes, opts: []Option{WithDeviceNameRecord(1)}, want: "second"},
		{name: "record index past end", payload: textPayload(t, "only"), opts: []Option{WithDeviceNameRecord(1)}, wantErr: ErrNDEFParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := newTestService(t, &MockTransceiver{}, tt.opts...)
			got, err := svc.DecodeDeviceIdentifier(tt.payload)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeDeviceIdentifier_SentinelsDistinct(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &MockTransceiver{}, WithNDEFDecoder(stubDecoder{msg: &gondef.Message{}}))

	_, emptyErr := svc.DecodeDeviceIdentifier(nil)
	_, zeroErr := svc.DecodeDeviceIdentifier([]byte{0xD1})

	assert.ErrorIs(t, emptyErr, ErrUndefinedNDEF)
	assert.NotErrorIs(t, emptyErr, ErrNDEFParse)
	assert.ErrorIs(t, zeroErr, ErrNDEFParse)
	assert.NotErrorIs(t, zeroErr, ErrUndefinedNDEF)
}

func TestGetSystemInfo(t *testing.T) {
	t.Parallel()

	resp := []byte{0x00, 0x0F, 0x78, 0x56, 0x34, 0x12, 0x00, 0x01, 0x04, 0xE0, 0x00, 0x00, 0x3F, 0x03, 0x8B}
	mock := &MockTransceiver{TransceiveFunc: func(req []byte) ([]byte, error) {
		if assert.Equal(t, CmdGetSystemInfo, req) {
			return resp, nil
		}
		return nil, errors.New("unexpected request")
	}}
	svc := newTestService(t, mock)

	payload, err := svc.GetSystemInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, resp[1:], payload)
	assert.Equal(t, []string{"listen", "transceive"}, mock.Calls())

	info, err := svc.ReadSystemInfo(context.Background(), WithoutListening())
	require.NoError(t, err)
	assert.Equal(t, "E004010012345678", info.UIDString())
	assert.Equal(t, 64, info.BlockCount)
	assert.Equal(t, 4, info.BlockSize)
}

func TestGetSystemInfo_StatusFailure(t *testing.T) {
	t.Parallel()

	mock := &MockTransceiver{TransceiveFunc: func([]byte) ([]byte, error) {
		return []byte{0x01, 0x02}, nil
	}}
	svc := newTestService(t, mock)

	_, err := svc.GetSystemInfo(context.Background(), WithoutListening())
	var opErr *OperationFailedError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, StageSystemInfo, opErr.Stage)
	assert.Equal(t, byte(0x02), opErr.Code)
}
