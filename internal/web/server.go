// Package web serves the websocket event stream and the HTTP status page.
package web

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/sweeney/hall-direction/internal/status"
)

// Server serves websocket subscribers and the status page on one port.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	events     http.Handler
}

// New creates a Server. events handles websocket upgrades; the status page
// and JSON read from tracker.
func New(addr string, tracker *status.Tracker, events http.Handler) *Server {
	s := &Server{tracker: tracker, events: events}

	r := chi.NewRouter()
	r.Get("/", s.handleRoot)
	r.Get("/ws", events.ServeHTTP)
	r.Get("/index.html", s.handleIndex)
	r.Get("/index.json", s.handleJSON)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the root HTTP handler. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server. Hijacked websocket connections
// are not tracked by net/http and are closed by their own handlers.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// handleRoot serves websocket peers that connect to "/" as well as browsers.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		s.events.ServeHTTP(w, r)
		return
	}
	s.handleIndex(w, r)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}
