package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleWorkoutStart(w http.ResponseWriter, r *http.Request) {
	e, err := s.workouts.Start(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e.Status())
}

func (s *Server) handleWorkoutStatus(w http.ResponseWriter, r *http.Request) {
	e, err := s.workouts.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e.Status())
}

func (s *Server) handleWorkoutRecord(w http.ResponseWriter, r *http.Request) {
	var p struct {
		Reps *int `json:"reps"`
	}
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if p.Reps == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reps is required"})
		return
	}

	e, err := s.workouts.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := e.RecordSet(r.Context(), *p.Reps); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e.Status())
}

func (s *Server) handleWorkoutUndo(w http.ResponseWriter, r *http.Request) {
	e, err := s.workouts.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := e.Undo(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e.Status())
}

func (s *Server) handleWorkoutSkipRest(w http.ResponseWriter, r *http.Request) {
	e, err := s.workouts.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := e.SkipRest(); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e.Status())
}

func (s *Server) handleWorkoutAdjustRest(w http.ResponseWriter, r *http.Request) {
	var p struct {
		Delta *int `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if p.Delta == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "delta is required"})
		return
	}

	e, err := s.workouts.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := e.AdjustRest(*p.Delta); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e.Status())
}

func (s *Server) handleWorkoutFinish(w http.ResponseWriter, r *http.Request) {
	e, err := s.workouts.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := e.FinishEarly(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e.Status())
}
