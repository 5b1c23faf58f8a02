package http

import (
	"time"

	"github.com/YusovID/git-done/internal/domain"
	"github.com/YusovID/git-done/internal/service"
)

// createGoalRequest accepts "description" as an alias of "title".
type createGoalRequest struct {
	Title               string `json:"title" validate:"required_without=Description,max=255"`
	Description         string `json:"description" validate:"max=255"`
	Details             string `json:"details"`
	Deadline            string `json:"deadline" validate:"required,notblank"`
	DeadlineDisplay     string `json:"deadline_display" validate:"max=25"`
	RepoURL             string `json:"repo_url" validate:"required,repo_url"`
	CompletionCondition string `json:"completion_condition" validate:"required,notblank,max=200"`
	CompletionType      string `json:"completion_type" validate:"omitempty,completion_type"`
}

func (r createGoalRequest) input() service.CreateGoalInput {
	title := r.Title
	if title == "" {
		title = r.Description
	}

	return service.CreateGoalInput{
		Title:               title,
		Details:             r.Details,
		Deadline:            r.Deadline,
		DeadlineDisplay:     r.DeadlineDisplay,
		RepoURL:             r.RepoURL,
		CompletionCondition: r.CompletionCondition,
		CompletionType:      r.CompletionType,
	}
}

// updateGoalRequest is partial: nil means "leave as is". Field rules are
// enforced by the service.
type updateGoalRequest struct {
	Title               *string `json:"title"`
	Description         *string `json:"description"`
	Details             *string `json:"details"`
	Deadline            *string `json:"deadline"`
	DeadlineDisplay     *string `json:"deadline_display"`
	CompletionCondition *string `json:"completion_condition"`
	CompletionType      *string `json:"completion_type"`
}

func (r updateGoalRequest) input() service.UpdateGoalInput {
	title := r.Title
	if title == nil {
		title = r.Description
	}

	return service.UpdateGoalInput{
		Title:               title,
		Details:             r.Details,
		Deadline:            r.Deadline,
		DeadlineDisplay:     r.DeadlineDisplay,
		CompletionCondition: r.CompletionCondition,
		CompletionType:      r.CompletionType,
	}
}

type goalResponse struct {
	ID                  int64             `json:"id"`
	UserGitHubID        string            `json:"user_github_id"`
	Title               string            `json:"title"`
	Details             string            `json:"details"`
	Deadline            string            `json:"deadline"`
	DeadlineDisplay     string            `json:"deadline_display"`
	RepoURL             string            `json:"repo_url"`
	RepoOwner           string            `json:"repo_owner"`
	RepoName            string            `json:"repo_name"`
	CompletionCondition string            `json:"completion_condition"`
	CompletionType      string            `json:"completion_type"`
	Status              string            `json:"status"`
	CreatedAt           string            `json:"created_at"`
	CompletedAt         *string           `json:"completed_at"`
	EmbedToken          string            `json:"embed_token"`
	EmbedURL            string            `json:"embed_url"`
	Warnings            []service.Warning `json:"warnings,omitempty"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func (s *Server) goalResponse(g *domain.Goal, warnings []service.Warning) goalResponse {
	resp := goalResponse{
		ID:                  g.ID,
		UserGitHubID:        g.OwnerID,
		Title:               g.Title,
		Details:             g.Details,
		Deadline:            formatTime(g.Deadline),
		DeadlineDisplay:     g.DeadlineDisplay,
		RepoURL:             g.RepoURL,
		RepoOwner:           g.RepoOwner,
		RepoName:            g.RepoName,
		CompletionCondition: g.CompletionCondition,
		CompletionType:      string(g.CompletionType),
		Status:              string(g.Status),
		CreatedAt:           formatTime(g.CreatedAt),
		EmbedToken:          g.EmbedToken,
		EmbedURL:            s.opts.PublicBaseURL + "/embed/" + g.EmbedToken,
		Warnings:            warnings,
	}

	if g.CompletedAt != nil {
		completed := formatTime(*g.CompletedAt)
		resp.CompletedAt = &completed
	}

	return resp
}
