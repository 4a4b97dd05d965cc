// Package server shares one grid between websocket clients. every edit is
// propagated through the engine and the changed cells are broadcast to all
// connected clients.
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/NYTimes/gziphandler"
	"go.alis.build/alog"
)

type Server struct {
	session *Session
	hub     *Hub
}

func New(session *Session) *Server {
	return &Server{session: session, hub: NewHub(session)}
}

// Session returns the document served by s
func (s *Server) Session() *Session {
	return s.session
}

// Run runs the hub until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	return s.hub.Run(ctx)
}

// Handler serves GET /grid and the /ws websocket endpoint
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /grid", gziphandler.GzipHandler(http.HandlerFunc(s.serveGrid)))
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWs(s.hub, w, r)
	})
	return mux
}

func (s *Server) serveGrid(w http.ResponseWriter, r *http.Request) {
	body, err := json.Marshal(s.session.Snapshot())
	if err != nil {
		alog.Errorf(r.Context(), "server: encode grid: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}
