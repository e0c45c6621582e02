// Package api exposes read-only snapshot queries over the registry and
// a WebSocket stream of reconciled events.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/audioscope/audioscope/internal/logger"
	"github.com/audioscope/audioscope/internal/registry"
)

// Server is the HTTP presentation layer.
type Server struct {
	router     *mux.Router
	reg        *registry.Registry
	reconciler *registry.Reconciler
	upgrader   websocket.Upgrader
}

// NewServer creates an API server over a registry and its reconciler.
func NewServer(reg *registry.Registry, rc *registry.Reconciler) *Server {
	s := &Server{
		router:     mux.NewRouter(),
		reg:        reg,
		reconciler: rc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/devices", s.handleDevices).Methods("GET")
	api.HandleFunc("/devices/{id}", s.handleDevice).Methods("GET")
	api.HandleFunc("/devices/{id}/sessions", s.handleDeviceSessions).Methods("GET")
	api.HandleFunc("/defaults", s.handleDefaults).Methods("GET")
	api.HandleFunc("/focus", s.handleFocus).Methods("GET")
	api.HandleFunc("/events", s.handleEvents)
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start starts the HTTP server
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	logger.WithComponent("api").Info().Str("addr", addr).Msg("serving")
	return http.ListenAndServe(addr, s.router)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.reg.Snapshot())
}

func (s *Server) handleDevice(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	snap, ok := s.reg.SnapshotDevice(id)
	if !ok {
		http.Error(w, "device not found", http.StatusNotFound)
		return
	}
	writeJSON(w, snap)
}

func (s *Server) handleDeviceSessions(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	snap, ok := s.reg.SnapshotDevice(id)
	if !ok {
		http.Error(w, "device not found", http.StatusNotFound)
		return
	}
	writeJSON(w, snap.Sessions)
}

func (s *Server) handleDefaults(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.reg.SnapshotDefaults())
}

func (s *Server) handleFocus(w http.ResponseWriter, r *http.Request) {
	pid, focused, ok := s.reconciler.Focused()
	if !ok {
		http.Error(w, "no focus observed yet", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{
		"pid":      pid,
		"sessions": focused,
	})
}

// handleEvents upgrades to WebSocket and streams reconciled updates.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("api")
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	updates := s.reconciler.Subscribe()
	defer s.reconciler.Unsubscribe(updates)

	for update := range updates {
		if err := conn.WriteJSON(update); err != nil {
			log.Debug().Err(err).Msg("websocket write failed, dropping subscriber")
			return
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":  "healthy",
		"devices": s.reg.DeviceCount(),
	})
}
