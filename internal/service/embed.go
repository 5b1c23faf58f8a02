package service

import (
	"context"
	"fmt"
	"time"

	"github.com/YusovID/git-done/internal/domain"
	"github.com/YusovID/git-done/internal/embed"
	"github.com/YusovID/git-done/internal/repository"
)

// EmbedService resolves public widget tokens. It never requires a session.
type EmbedService interface {
	Goal(ctx context.Context, token string) (*domain.Goal, error)
	Projection(ctx context.Context, token string) (*embed.Projection, error)
}

type EmbedServiceImpl struct {
	goalQuery repository.GoalQueryRepository
	now       func() time.Time
}

func NewEmbedService(goalQuery repository.GoalQueryRepository) *EmbedServiceImpl {
	return &EmbedServiceImpl{
		goalQuery: goalQuery,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *EmbedServiceImpl) Goal(ctx context.Context, token string) (*domain.Goal, error) {
	goal, err := s.goalQuery.GetGoalByEmbedToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("repo.GetGoalByEmbedToken failed: %w", err)
	}

	return goal, nil
}

func (s *EmbedServiceImpl) Projection(ctx context.Context, token string) (*embed.Projection, error) {
	goal, err := s.Goal(ctx, token)
	if err != nil {
		return nil, err
	}

	p := embed.Project(goal, s.now())

	return &p, nil
}
