package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/claude/setlog/internal/engine"
	"github.com/claude/setlog/internal/importer"
	"github.com/claude/setlog/internal/stats"
	"github.com/claude/setlog/internal/storage"
)

// Entry-surface ranges for template fields. The store itself only checks
// the looser trusted-caller invariants.
const (
	minSets, maxSets               = 1, 20
	minTargetTotal, maxTargetTotal = 1, 200
	minRestSec, maxRestSec         = 10, 600
)

type templatePayload struct {
	Name        *string `json:"name"`
	Sets        *int    `json:"sets"`
	TargetTotal *int    `json:"targetTotal"`
	RestSec     *int    `json:"restSec"`
}

func (p *templatePayload) validateRanges() string {
	if p.Name != nil && *p.Name == "" {
		return "name must not be empty"
	}
	if p.Sets != nil && (*p.Sets < minSets || *p.Sets > maxSets) {
		return "sets must be between 1 and 20"
	}
	if p.TargetTotal != nil && (*p.TargetTotal < minTargetTotal || *p.TargetTotal > maxTargetTotal) {
		return "targetTotal must be between 1 and 200"
	}
	if p.RestSec != nil && (*p.RestSec < minRestSec || *p.RestSec > maxRestSec) {
		return "restSec must be between 10 and 600"
	}
	return ""
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.db.ListTemplates(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := s.db.GetTemplate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var p templatePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if p.Name == nil || p.Sets == nil || p.TargetTotal == nil || p.RestSec == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name, sets, targetTotal and restSec are required"})
		return
	}
	if msg := p.validateRanges(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	t, err := s.db.CreateTemplate(r.Context(), *p.Name, *p.Sets, *p.TargetTotal, *p.RestSec)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var p templatePayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if msg := p.validateRanges(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	t, err := s.db.UpdateTemplate(r.Context(), chi.URLParam(r, "id"), storage.TemplateUpdate{
		Name:        p.Name,
		Sets:        p.Sets,
		TargetTotal: p.TargetTotal,
		RestSec:     p.RestSec,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.db.DeleteTemplate(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLastSession(w http.ResponseWriter, r *http.Request) {
	last, err := s.db.LastSessionForTemplate(r.Context(), chi.URLParam(r, "id"), "")
	if err != nil {
		s.writeError(w, err)
		return
	}
	if last == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no sessions for template"})
		return
	}
	writeJSON(w, http.StatusOK, last)
}

type createSessionPayload struct {
	TemplateID string `json:"templateId"`
	Sets       *int   `json:"sets"`
	RestSec    *int   `json:"restSec"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var p createSessionPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if p.TemplateID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "templateId is required"})
		return
	}

	sess, err := s.db.CreateSession(r.Context(), p.TemplateID, storage.SessionOptions{
		Sets:    p.Sets,
		RestSec: p.RestSec,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	sessions, err := s.db.ListSessions(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.db.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.workouts.Stop(id)
	if err := s.db.DeleteSession(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWeeklyStats(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.db.ListSessions(r.Context(), 0)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats.WeeklySummary(sessions, s.weekPolicy, stats.DefaultWeeks))
}

func (s *Server) handleProgressStats(w http.ResponseWriter, r *http.Request) {
	templateID := r.URL.Query().Get("templateId")
	if templateID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "templateId parameter required"})
		return
	}

	sessions, err := s.db.SessionsForTemplate(r.Context(), templateID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats.ExerciseSeries(sessions))
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	result, err := importer.Import(r.Context(), s.db, r.Body, s.log)
	if err != nil {
		s.log.Error("import error", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// writeError maps domain errors onto status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, storage.ErrValidation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, engine.ErrInvalidState):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		s.log.Error("internal error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
