package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/IIP-Design/orchestra/internal/poller"
)

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/sources", s.handleListSources)
	s.mux.HandleFunc("GET /api/sources/{name}", s.handleGetSource)
	s.mux.HandleFunc("POST /api/sources/{name}/fetch", s.handleFetch)
}

// writeJSON marshals v as JSON and writes it to the response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	statuses := s.sched.Status()
	polling := 0
	for _, st := range statuses {
		if st.State == poller.Polling {
			polling++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"environment": s.env,
		"sources":     len(statuses),
		"polling":     polling,
		"uptime":      time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sched.Status())
}

func (s *Server) handleGetSource(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	for _, st := range s.sched.Status() {
		if st.Source == name {
			writeJSON(w, http.StatusOK, st)
			return
		}
	}
	writeError(w, http.StatusNotFound, "unknown source: "+name)
}

// handleFetch starts an immediate poll cycle for one source.
func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	started, err := s.sched.Trigger(r.Context(), name)
	switch {
	case errors.Is(err, poller.ErrUnknownSource):
		writeError(w, http.StatusNotFound, "unknown source: "+name)
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	case !started:
		writeError(w, http.StatusConflict, "fetch already in progress")
	default:
		s.logger.Info("server: fetch triggered", "source", name)
		writeJSON(w, http.StatusAccepted, map[string]any{"source": name, "started": true})
	}
}
