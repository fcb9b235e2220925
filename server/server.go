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

// Package server publishes a Service's tag and NDEF events to websocket
// clients.
package server

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ZaparooProject/go-nfcv"
)

// Message types
const (
	TypeHello            = "hello"
	TypeTagEvent         = "tagEvent"
	TypeNDEFEvent        = "ndefEvent"
	TypeWaitForTag       = "waitForTag"
	TypeWaitForTagResult = "waitForTagResult"
	TypeError            = "error"
)

// Error codes sent in error envelopes
const (
	CodeParseError     = "PARSE_ERROR"
	CodeUnknownType    = "UNKNOWN_TYPE"
	CodeInvalidPattern = "INVALID_PATTERN"
)

// Envelope is the JSON frame exchanged with clients.
type Envelope struct {
	Payload any    `json:"payload,omitempty"`
	ID      string `json:"id,omitempty"`
	Type    string `json:"type"`
}

// request is an Envelope as received, with the payload left raw.
type request struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// EventPayload carries an nfcv.TagEvent. Code is set on failure.
type EventPayload struct {
	DeviceID string `json:"deviceId,omitempty"`
	NDEF     string `json:"ndef,omitempty"`
	Code     string `json:"code,omitempty"`
	Error    string `json:"error,omitempty"`
}

// WaitForTagPayload is the payload of a waitForTag request. Device, when
// set, is a regular expression the tag's identifier must match.
type WaitForTagPayload struct {
	Device string `json:"device,omitempty"`
}

// ErrorPayload is the payload of an error envelope.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Service is the part of *nfcv.Service the server uses.
type Service interface {
	OnTag(fn func(nfcv.TagEvent)) (unsubscribe func())
	OnNDEF(fn func(nfcv.TagEvent)) (unsubscribe func())
	WaitForTag(ctx context.Context, opts ...nfcv.CallOption) bool
}

type client struct {
	conn    *websocket.Conn
	id      string
	writeMu sync.Mutex
}

func (c *client) send(env Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(env)
}

// Server fans Service events out to websocket clients. Clients connecting
// late receive the most recent tag and NDEF events first.
type Server struct {
	service     Service
	ctx         context.Context
	cancel      context.CancelFunc
	clients     map[*client]struct{}
	last        map[string]Envelope
	upgrader    websocket.Upgrader
	unsubscribe []func()
	mu          sync.RWMutex
}

// New subscribes to svc's events.
func New(svc Service) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		service: svc,
		ctx:     ctx,
		cancel:  cancel,
		clients: make(map[*client]struct{}),
		last:    make(map[string]Envelope),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	s.unsubscribe = append(s.unsubscribe,
		svc.OnTag(func(e nfcv.TagEvent) { s.broadcast(TypeTagEvent, e) }),
		svc.OnNDEF(func(e nfcv.TagEvent) { s.broadcast(TypeNDEFEvent, e) }),
	)
	return s
}

// Handler returns the HTTP routes: /ws for the event feed and /health.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  "ok",
			"clients": s.ClientCount(),
		})
	})
	return mux
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Close unsubscribes from the service and disconnects every client.
func (s *Server) Close() error {
	s.cancel()
	for _, unsubscribe := range s.unsubscribe {
		unsubscribe()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for c := range s.clients {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(s.clients, c)
	}
	return errors.Join(errs...)
}

// EventEnvelope converts a tag event to its wire form.
func EventEnvelope(typ string, e nfcv.TagEvent) Envelope {
	payload := EventPayload{DeviceID: e.DeviceID}
	if len(e.Raw) > 0 {
		payload.NDEF = hex.EncodeToString(e.Raw)
	}
	if e.Err != nil {
		payload.Code = ErrorCode(e.Err)
		payload.Error = e.Err.Error()
	}
	return Envelope{Type: typ, Payload: payload}
}

// ErrorCode maps an event error to the code clients branch on.
func ErrorCode(err error) string {
	for _, sentinel := range []error{
		nfcv.ErrWrongDeviceType,
		nfcv.ErrUndefinedNDEF,
		nfcv.ErrNDEFParse,
		nfcv.ErrNoNFC,
		nfcv.ErrNFCDisabled,
		nfcv.ErrNullTag,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "ERROR"
}

func (s *Server) broadcast(typ string, e nfcv.TagEvent) {
	env := EventEnvelope(typ, e)

	s.mu.Lock()
	s.last[typ] = env
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		if err := c.send(env); err != nil {
			nfcv.Debugf("server: dropping client %s: %v", c.id, err)
			s.remove(c)
		}
	}
}

func (s *Server) remove(c *client) {
	s.mu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	s.mu.Unlock()
	if ok {
		_ = c.conn.Close()
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		nfcv.Debugf("server: upgrade failed: %v", err)
		return
	}
	c := &client{conn: conn, id: uuid.New().String()}

	// The client's write lock is held across registration and replay so
	// broadcasts cannot overtake the replayed events.
	c.writeMu.Lock()
	s.mu.Lock()
	s.clients[c] = struct{}{}
	replay := []Envelope{{Type: TypeHello, Payload: map[string]string{"clientId": c.id}}}
	for _, typ := range []string{TypeTagEvent, TypeNDEFEvent} {
		if env, ok := s.last[typ]; ok {
			replay = append(replay, env)
		}
	}
	s.mu.Unlock()
	err = writeAll(conn, replay)
	c.writeMu.Unlock()
	defer s.remove(c)
	if err != nil {
		return
	}
	nfcv.Debugf("server: client %s connected, replayed %d events", c.id, len(replay)-1)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				nfcv.Debugf("server: read from %s: %v", c.id, err)
			}
			return
		}
		s.handleRequest(c, data)
	}
}

func writeAll(conn *websocket.Conn, envs []Envelope) error {
	for _, env := range envs {
		if err := conn.WriteJSON(env); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) handleRequest(c *client, data []byte) {
	var req request
	if err := json.Unmarshal(data, &req); err != nil {
		s.sendError(c, "", CodeParseError, "invalid message format")
		return
	}

	switch req.Type {
	case TypeWaitForTag:
		s.handleWaitForTag(c, req)
	default:
		s.sendError(c, req.ID, CodeUnknownType, "unknown message type: "+req.Type)
	}
}

func (s *Server) handleWaitForTag(c *client, req request) {
	var payload WaitForTagPayload
	if len(req.Payload) > 0 {
		if err := json.Unmarshal(req.Payload, &payload); err != nil {
			s.sendError(c, req.ID, CodeParseError, "invalid waitForTag payload")
			return
		}
	}

	var opts []nfcv.CallOption
	if payload.Device != "" {
		re, err := regexp.Compile(payload.Device)
		if err != nil {
			s.sendError(c, req.ID, CodeInvalidPattern, err.Error())
			return
		}
		opts = append(opts, nfcv.WithDevice(re))
	}

	started := s.service.WaitForTag(s.ctx, opts...)
	_ = c.send(Envelope{
		ID:      req.ID,
		Type:    TypeWaitForTagResult,
		Payload: map[string]bool{"started": started},
	})
}

func (*Server) sendError(c *client, id, code, message string) {
	_ = c.send(Envelope{ID: id, Type: TypeError, Payload: ErrorPayload{Code: code, Message: message}})
}
