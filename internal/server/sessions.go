package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/unixpickle/dnc"
	"github.com/unixpickle/dnc/internal/checkpoint"
	"github.com/unixpickle/num-analysis/linalg"
)

type session struct {
	mu         sync.Mutex
	id         string
	checkpoint string
	runner     *dnc.Runner
	steps      int
	created    time.Time
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) *session {
	id := chi.URLParam(r, "sessionID")
	s.mu.Lock()
	sess := s.sessions[id]
	s.mu.Unlock()
	if sess == nil {
		writeError(w, http.StatusNotFound, "session not found: "+id)
	}
	return sess
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Checkpoint string `json:"checkpoint"`
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body failed")
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
	}

	machine := s.machine
	if req.Checkpoint != "" {
		if s.db == nil {
			writeError(w, http.StatusServiceUnavailable, "checkpoint store not configured")
			return
		}
		machine, _, err = s.db.Load(req.Checkpoint)
		if errors.Is(err, checkpoint.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		} else if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	sess := &session{
		id:         uuid.NewString(),
		checkpoint: req.Checkpoint,
		runner:     dnc.NewRunner(machine),
		created:    time.Now(),
	}
	info := sessionInfo(sess)
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	log.Printf("server: created session %s", sess.id)

	writeJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	list := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		list = append(list, sess)
	}
	s.mu.Unlock()
	sort.Slice(list, func(i, j int) bool {
		return list[i].created.Before(list[j].created)
	})

	res := make([]map[string]any, len(list))
	for i, sess := range list {
		sess.mu.Lock()
		res[i] = sessionInfo(sess)
		sess.mu.Unlock()
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": res})
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	sess := s.lookup(w, r)
	if sess == nil {
		return
	}

	var req struct {
		Input linalg.Vector `json:"input"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	want := sess.runner.Machine.Controller.InputSize()
	if len(req.Input) != want {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("input has length %d, want %d", len(req.Input), want))
		return
	}
	out := sess.runner.StepTime(req.Input)
	sess.steps++

	writeJSON(w, http.StatusOK, map[string]any{
		"step":   sess.steps,
		"output": out,
		"reads":  sess.runner.State().ReadVectors,
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess := s.lookup(w, r)
	if sess == nil {
		return
	}
	sess.mu.Lock()
	sess.runner.NewSequenceReset()
	sess.steps = 0
	sess.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	sess := s.lookup(w, r)
	if sess == nil {
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	state := sess.runner.State()
	seq := state.Sequence
	writeJSON(w, http.StatusOK, map[string]any{
		"step":            sess.steps,
		"usage":           seq.Usage,
		"precedence":      seq.Precedence,
		"write_weighting": seq.WriteWeighting,
		"read_weightings": seq.ReadWeightings,
		"allocation":      state.Allocation,
		"reads":           state.ReadVectors,
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "session not found: "+id)
		return
	}
	log.Printf("server: deleted session %s", id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleListCheckpoints(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeError(w, http.StatusServiceUnavailable, "checkpoint store not configured")
		return
	}
	list, err := s.db.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	res := make([]map[string]any, len(list))
	for i, cp := range list {
		res[i] = map[string]any{
			"id":             cp.ID,
			"name":           cp.Name,
			"memory_size":    cp.Config.MemorySize,
			"word_size":      cp.Config.WordSize,
			"read_heads":     cp.Config.ReadHeads,
			"layout_version": cp.LayoutVersion,
			"size":           cp.Size,
			"created_at":     cp.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"checkpoints": res})
}

func sessionInfo(sess *session) map[string]any {
	c := sess.runner.Machine.Config
	return map[string]any{
		"session_id":  sess.id,
		"checkpoint":  sess.checkpoint,
		"step":        sess.steps,
		"input_size":  sess.runner.Machine.Controller.InputSize(),
		"output_size": sess.runner.Machine.Controller.OutputSize(),
		"memory_size": c.MemorySize,
		"word_size":   c.WordSize,
		"read_heads":  c.ReadHeads,
		"created_at":  sess.created.UnixMilli(),
	}
}
