// package repository defines the interfaces for the data persistence layer.
// These interfaces abstract the underlying database implementation from the service layer.
package repository

import (
	"context"
	"time"

	"github.com/YusovID/git-done/internal/domain"
	"github.com/jmoiron/sqlx"
)

// UserRepository stores the accounts created by OAuth sign-in.
type UserRepository interface {
	// UpsertUser inserts the user or refreshes username and access token
	// when the GitHub id already exists.
	UpsertUser(ctx context.Context, user *domain.User) (*domain.User, error)

	// GetUserByID returns apperrors.ErrNotFound if the user does not exist.
	GetUserByID(ctx context.Context, githubID string) (*domain.User, error)
}

// GoalQueryRepository defines read-only goal operations, following the CQRS pattern.
type GoalQueryRepository interface {
	// GetGoalByID returns apperrors.ErrNotFound if the goal does not exist.
	GetGoalByID(ctx context.Context, id int64) (*domain.Goal, error)

	// GetGoalByEmbedToken resolves the public widget token.
	// Returns apperrors.ErrNotFound for an unknown token.
	GetGoalByEmbedToken(ctx context.Context, token string) (*domain.Goal, error)

	// ListGoalsByOwner returns the owner's goals ordered by deadline ascending.
	ListGoalsByOwner(ctx context.Context, ownerID string) ([]domain.Goal, error)

	// FindActiveGoal returns the first active goal, by insertion order, tracking
	// repo with the given completion type. Returns apperrors.ErrNotFound if there is none.
	FindActiveGoal(ctx context.Context, repo domain.Repo, completionType domain.CompletionType) (*domain.Goal, error)
}

// GoalCommandRepository defines write and locking operations on goals.
type GoalCommandRepository interface {
	// CreateGoal inserts the goal and fills in its ID and CreatedAt.
	CreateGoal(ctx context.Context, goal *domain.Goal) error

	// SetWebhookID records the id of the hook registered for the goal.
	SetWebhookID(ctx context.Context, goalID int64, webhookID string) error

	// GetGoalByIDWithLock retrieves a goal and acquires a row-level lock ("FOR UPDATE").
	// It returns apperrors.ErrNotFound if the goal is not found.
	GetGoalByIDWithLock(ctx context.Context, tx *sqlx.Tx, id int64) (*domain.Goal, error)

	// UpdateGoal writes the user-editable fields of goal.
	UpdateGoal(ctx context.Context, tx *sqlx.Tx, goal *domain.Goal) error

	// DeleteGoal removes the goal if ownerID owns it.
	// It returns apperrors.ErrNotFound otherwise.
	DeleteGoal(ctx context.Context, id int64, ownerID string) error

	// CompleteGoal moves an active goal to completed. It reports false when the
	// goal was no longer active, which is how duplicate deliveries show up.
	CompleteGoal(ctx context.Context, id int64, completedAt time.Time) (bool, error)
}
