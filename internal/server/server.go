package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/unixpickle/dnc"
	"github.com/unixpickle/dnc/internal/checkpoint"
)

// Server serves step-by-step inference over HTTP.
//
// Every session owns a Runner, and with it a private
// memory, so sessions never observe each other's writes.
type Server struct {
	machine *dnc.Machine
	db      *checkpoint.DB
	router  chi.Router
	version string
	started time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// New creates a Server whose sessions run m by default.
// The db may be nil, in which case sessions cannot be
// started from checkpoints.
func New(m *dnc.Machine, db *checkpoint.DB, version string) *Server {
	s := &Server{
		machine:  m,
		db:       db,
		version:  version,
		started:  time.Now(),
		sessions: map[string]*session{},
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Get("/sessions", s.handleListSessions)
		r.Post("/sessions", s.handleCreateSession)
		r.Get("/sessions/{sessionID}/state", s.handleGetState)
		r.Post("/sessions/{sessionID}/step", s.handleStep)
		r.Post("/sessions/{sessionID}/reset", s.handleReset)
		r.Delete("/sessions/{sessionID}", s.handleDeleteSession)

		r.Get("/checkpoints", s.handleListCheckpoints)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	count := len(s.sessions)
	s.mu.Unlock()

	resp := map[string]any{
		"status":   "ok",
		"version":  s.version,
		"uptime":   time.Since(s.started).Seconds(),
		"sessions": count,
		"memory": map[string]int{
			"memory_size": s.machine.Config.MemorySize,
			"word_size":   s.machine.Config.WordSize,
			"read_heads":  s.machine.Config.ReadHeads,
		},
		"layout_version": dnc.LayoutVersion,
	}
	if s.db != nil {
		resp["db"] = s.db.Ping() == nil
		resp["db_path"] = s.db.Path
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
