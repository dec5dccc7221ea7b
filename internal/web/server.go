// Package web serves the node's status page and a code decoder over HTTP.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"

	"github.com/sweeney/meshnode/internal/protocol"
	"github.com/sweeney/meshnode/internal/status"
)

// Source supplies the snapshots rendered by the server.
type Source interface {
	Snapshot() status.Snapshot
}

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	src        Source
}

// New creates a Server on addr reading state from src.
func New(addr string, src Source) *Server {
	s := &Server{src: src}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("/recent.json", s.handleRecent)
	mux.HandleFunc("/decode", handleDecode)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// Handler exposes the routes, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on ln.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, s.src.Snapshot())
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(s.src.Snapshot()))
}

// handleRecent returns the received-code history, oldest first.
func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	recent := status.RecentJSONOf(s.src.Snapshot().Recent)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(recent); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleDecode describes ?code=0x51, optionally with &layout=buzzer-relay.
func handleDecode(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code, err := protocol.ParseCode(q.Get("code"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	layout := protocol.LayoutMesh
	if name := q.Get("layout"); name != "" {
		if layout, err = protocol.ParseLayout(name); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, layout.Describe(code))
}
