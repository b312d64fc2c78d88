// Copyright (C) 2025 Josh Simonot
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package climateweb serves the climate adapter over HTTP and websockets.
package climateweb

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"mideair/internal/climate"
	"mideair/internal/config"
	"mideair/internal/events"
	"mideair/pkg/eventbus"
	"mideair/pkg/logger"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

//go:embed www/climate.html
var indexPage []byte

// maxControlBody bounds a /control request; a full change is well under it.
const maxControlBody = 4 << 10

// Controller is the adapter surface the web service drives.
type Controller interface {
	Control(req climate.RequestedChange) bool
	Traits() climate.CapabilityDescriptor
}

type Service struct {
	ctrl    Controller
	bus     *eventbus.Bus
	clients *clientSet
	limit   rate.Limit
	burst   int
	log     *logger.Logger
	mux     *http.ServeMux
}

func New(conf *config.Config, ctrl Controller) *Service {
	s := &Service{
		ctrl:    ctrl,
		bus:     conf.EventBus,
		clients: newClientSet(),
		limit:   rate.Limit(conf.Web.ClientRatePerSec),
		burst:   conf.Web.ClientBurst,
		log:     logger.New("ClimateWeb"),
		mux:     http.NewServeMux(),
	}
	s.mux.HandleFunc("/state", s.serveState)
	s.mux.HandleFunc("/traits", s.serveTraits)
	s.mux.HandleFunc("/control", s.serveControl)
	s.mux.HandleFunc("/ws", s.serveWebSockets())
	s.mux.HandleFunc("/", s.serveRoot)
	return s
}

func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Run pushes every published climate update to the websocket clients.
func (s *Service) Run(ctx context.Context) {
	updates, unsub := s.bus.Subscribe(ctx, events.TopicClimate, true)
	defer unsub()
	defer s.clients.closeAll()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-updates:
			if !ok {
				return
			}
			upd, ok := ev.(events.ClimateUpdate)
			if !ok {
				continue
			}
			if pm := s.prepare(upd); pm != nil {
				s.clients.broadcast(pm, s.log)
			}
		}
	}
}

func (s *Service) serveRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexPage)
}

func (s *Service) serveState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	upd, ok := s.last()
	if !ok {
		http.Error(w, "no state published yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, upd)
}

func (s *Service) serveTraits(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.ctrl.Traits())
}

func (s *Service) serveControl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req climate.RequestedChange
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxControlBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}
	if !s.ctrl.Control(req.Normalize()) {
		http.Error(w, "control queue full", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Service) serveWebSockets() http.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			s.log.Debug("checking origin: %s", origin)
			if origin == "" {
				return false
			}
			if strings.Contains(origin, "localhost") {
				return true
			}
			return strings.Contains(origin, r.Host)
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.log.Error("failed to upgrade websocket: %v", err)
			return
		}
		defer ws.Close()

		var initial *websocket.PreparedMessage
		if upd, ok := s.last(); ok {
			initial = s.prepare(upd)
		}
		if err := s.clients.add(ws, initial); err != nil {
			s.log.Error("failed to send initial state: %v", err)
			return
		}
		defer s.clients.remove(ws)

		limiter := rate.NewLimiter(s.limit, s.burst)
		for {
			var req climate.RequestedChange
			if err := ws.ReadJSON(&req); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.log.Error("failed ws ReadJSON: %v", err)
				}
				return
			}
			if !limiter.Allow() {
				s.log.Debug("client over rate limit; dropping control message")
				continue
			}
			if !s.ctrl.Control(req.Normalize()) {
				s.log.Debug("control queue is full; dropping client message")
			}
		}
	}
}

func (s *Service) last() (events.ClimateUpdate, bool) {
	ev, ok := s.bus.GetLast(events.TopicClimate)
	if !ok {
		return events.ClimateUpdate{}, false
	}
	upd, ok := ev.(events.ClimateUpdate)
	return upd, ok
}

func (s *Service) prepare(upd events.ClimateUpdate) *websocket.PreparedMessage {
	data, err := json.Marshal(upd)
	if err != nil {
		s.log.Error("failed to marshal broadcast: %v", err)
		return nil
	}
	pm, err := websocket.NewPreparedMessage(websocket.TextMessage, data)
	if err != nil {
		s.log.Error("failed to prepare message: %v", err)
		return nil
	}
	return pm
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
