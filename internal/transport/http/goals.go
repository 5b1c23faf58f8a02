package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/YusovID/git-done/internal/apperrors"
	"github.com/YusovID/git-done/internal/calendar"
	"github.com/YusovID/git-done/internal/service"
	"github.com/YusovID/git-done/pkg/logger/sl"
	"github.com/go-chi/chi/v5"
)

func goalID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: goal id %q", apperrors.ErrNotFound, chi.URLParam(r, "id"))
	}

	return id, nil
}

func (s *Server) listGoals(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.listGoals"

	goals, err := s.services.Goals.ListGoals(r.Context(), currentUser(r.Context()))
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	resp := make([]goalResponse, 0, len(goals))
	for i := range goals {
		resp = append(resp, s.goalResponse(&goals[i], nil))
	}

	s.respond(w, http.StatusOK, resp)
}

func (s *Server) createGoal(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.createGoal"

	var req createGoalRequest
	if err := s.decodeAndValidate(w, r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	res, err := s.services.Goals.CreateGoal(r.Context(), currentUser(r.Context()), req.input())
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusCreated, s.goalResponse(res.Goal, res.Warnings))
}

func (s *Server) updateGoal(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.updateGoal"

	id, err := goalID(r)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	var req updateGoalRequest
	if err := s.decode(w, r, &req); err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	goal, err := s.services.Goals.UpdateGoal(r.Context(), currentUser(r.Context()), id, req.input())
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, s.goalResponse(goal, nil))
}

type deleteResponse struct {
	Status   string            `json:"status"`
	Warnings []service.Warning `json:"warnings,omitempty"`
}

func (s *Server) deleteGoal(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.deleteGoal"

	id, err := goalID(r)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	res, err := s.services.Goals.DeleteGoal(r.Context(), currentUser(r.Context()), id)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	s.respond(w, http.StatusOK, deleteResponse{Status: "deleted", Warnings: res.Warnings})
}

func (s *Server) goalCalendar(w http.ResponseWriter, r *http.Request) {
	const op = "internal.transport.http.goalCalendar"

	id, err := goalID(r)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	ics, err := s.services.Goals.GoalCalendar(r.Context(), currentUser(r.Context()), id)
	if err != nil {
		s.handleServiceError(w, r, op, err)
		return
	}

	w.Header().Set("Content-Type", calendar.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+calendar.Filename(id))
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(ics); err != nil {
		s.log.Warn("failed to write calendar", slog.String("op", op), sl.Err(err))
	}
}
