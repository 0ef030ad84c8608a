// Package server exposes the running sync core to local read-only views.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/UrsacheMihai/Productivity-App-V1/internal/middleware"
	ws "github.com/UrsacheMihai/Productivity-App-V1/internal/websocket"
)

// View is the state a server renders: the current collections and the
// derived agenda for a date.
type View interface {
	State() any
	Today(date time.Time) any
	Subscribe(fn func()) func()
}

type Server struct {
	view    View
	hub     *ws.Hub
	origins []string
	now     func() time.Time
	logger  *slog.Logger
}

// New builds a server over view. Notices and snapshots reach live views
// through hub; origins lists the websocket origin patterns allowed besides
// same-origin.
func New(view View, hub *ws.Hub, origins []string, logger *slog.Logger) *Server {
	return &Server{
		view:    view,
		hub:     hub,
		origins: origins,
		now:     time.Now,
		logger:  logger,
	}
}

// Publish broadcasts the current state now and after every change until the
// returned function is called.
func (s *Server) Publish() func() {
	s.hub.Broadcast(ws.SnapshotMessage(s.view.State()))
	return s.view.Subscribe(func() {
		s.hub.Broadcast(ws.SnapshotMessage(s.view.State()))
	})
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /api/snapshot", s.snapshotHandler)
	mux.HandleFunc("GET /api/today", s.todayHandler)
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.origins, s.logger.With("component", "websocket")))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "clients": s.hub.ClientCount()})
}

func (s *Server) snapshotHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.view.State())
}

// todayHandler serves the agenda for ?date=YYYY-MM-DD, defaulting to today.
func (s *Server) todayHandler(w http.ResponseWriter, r *http.Request) {
	date := s.now()
	if q := r.URL.Query().Get("date"); q != "" {
		d, err := time.ParseInLocation("2006-01-02", q, time.Local)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD"})
			return
		}
		date = d
	}
	writeJSON(w, http.StatusOK, s.view.Today(date))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
