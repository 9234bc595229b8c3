package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/tomek7667/sysmon/internal/stats"
)

// maxProcessLimit caps ?limit= so a stray query cannot ask for the
// whole process table.
const maxProcessLimit = 100

// AddAPIRoutes registers the JSON endpoints the dashboard consumes.
func (s *Server) AddAPIRoutes() {
	s.r.Get("/api/system", s.handleSystem)
	s.r.Get("/api/stats", s.handleStats)
	s.r.Get("/api/processes", s.handleProcesses)
	s.r.Get("/health", s.handleHealth)
}

func (s *Server) handleSystem(w http.ResponseWriter, r *http.Request) {
	info, err := s.provider.SystemInfo(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleStats runs one full collection per request; appending to the
// rolling history is a side effect of the collection itself, so the
// poll rate of the client sets the history resolution.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := s.provider.Collect(r.Context())
	if s.publisher != nil {
		s.publisher.Publish(resp)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProcesses(w http.ResponseWriter, r *http.Request) {
	limit := stats.DefaultProcessLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= maxProcessLimit {
			limit = v
		}
	}

	procs, err := s.provider.TopProcesses(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if procs == nil {
		procs = []stats.ProcessEntry{}
	}
	writeJSON(w, http.StatusOK, procs)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
