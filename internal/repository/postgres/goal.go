package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/YusovID/git-done/internal/apperrors"
	"github.com/YusovID/git-done/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var goalColumns = []string{
	"id", "user_github_id", "title", "details", "deadline", "deadline_display",
	"repo_url", "repo_owner", "repo_name", "completion_condition", "completion_type",
	"status", "created_at", "completed_at", "embed_token", "webhook_id",
}

type GoalRepository struct {
	db  *sqlx.DB
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewGoalRepository(db *sqlx.DB, log *slog.Logger) *GoalRepository {
	return &GoalRepository{
		db:  db,
		log: log,
		sq:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// deadline and created_at are TIMESTAMP columns holding UTC; the driver hands
// them back with an anonymous zero-offset location.
func normalizeGoal(g *domain.Goal) {
	g.Deadline = g.Deadline.UTC()
	g.CreatedAt = g.CreatedAt.UTC()

	if g.CompletedAt != nil {
		completed := g.CompletedAt.UTC()
		g.CompletedAt = &completed
	}
}

func (r *GoalRepository) getOne(ctx context.Context, ext sqlx.QueryerContext, op string, b sq.SelectBuilder, what string) (*domain.Goal, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var goal domain.Goal
	if err := sqlx.GetContext(ctx, ext, &goal, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w: %s", op, apperrors.ErrNotFound, what)
		}

		return nil, fmt.Errorf("%s: failed to get goal: %w", op, err)
	}

	normalizeGoal(&goal)

	return &goal, nil
}

func (r *GoalRepository) GetGoalByID(ctx context.Context, id int64) (*domain.Goal, error) {
	const op = "internal.repository.postgres.GetGoalByID"

	b := r.sq.Select(goalColumns...).
		From("goals").
		Where(sq.Eq{"id": id})

	return r.getOne(ctx, r.db, op, b, fmt.Sprintf("goal with id '%d'", id))
}

func (r *GoalRepository) GetGoalByEmbedToken(ctx context.Context, token string) (*domain.Goal, error) {
	const op = "internal.repository.postgres.GetGoalByEmbedToken"

	b := r.sq.Select(goalColumns...).
		From("goals").
		Where(sq.Eq{"embed_token": token})

	return r.getOne(ctx, r.db, op, b, "embed token")
}

func (r *GoalRepository) GetGoalByIDWithLock(ctx context.Context, tx *sqlx.Tx, id int64) (*domain.Goal, error) {
	const op = "internal.repository.postgres.GetGoalByIDWithLock"

	b := r.sq.Select(goalColumns...).
		From("goals").
		Where(sq.Eq{"id": id}).
		Suffix("FOR UPDATE")

	return r.getOne(ctx, tx, op, b, fmt.Sprintf("goal with id '%d'", id))
}

func (r *GoalRepository) FindActiveGoal(ctx context.Context, repo domain.Repo, completionType domain.CompletionType) (*domain.Goal, error) {
	const op = "internal.repository.postgres.FindActiveGoal"

	b := r.sq.Select(goalColumns...).
		From("goals").
		Where(sq.Eq{
			"repo_owner":      repo.Owner,
			"repo_name":       repo.Name,
			"completion_type": completionType,
			"status":          domain.GoalActive,
		}).
		OrderBy("id ASC").
		Limit(1)

	return r.getOne(ctx, r.db, op, b, fmt.Sprintf("active %s goal for %s", completionType, repo.FullName()))
}

func (r *GoalRepository) ListGoalsByOwner(ctx context.Context, ownerID string) ([]domain.Goal, error) {
	const op = "internal.repository.postgres.ListGoalsByOwner"

	query, args, err := r.sq.Select(goalColumns...).
		From("goals").
		Where(sq.Eq{"user_github_id": ownerID}).
		OrderBy("deadline ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	goals := []domain.Goal{}
	if err := r.db.SelectContext(ctx, &goals, query, args...); err != nil {
		return nil, fmt.Errorf("%s: failed to execute query: %w", op, err)
	}

	for i := range goals {
		normalizeGoal(&goals[i])
	}

	return goals, nil
}

func (r *GoalRepository) CreateGoal(ctx context.Context, goal *domain.Goal) error {
	const op = "internal.repository.postgres.CreateGoal"

	query, args, err := r.sq.Insert("goals").
		Columns(
			"user_github_id", "title", "details", "deadline", "deadline_display",
			"repo_url", "repo_owner", "repo_name", "completion_condition", "completion_type",
			"status", "embed_token",
		).
		Values(
			goal.OwnerID, goal.Title, goal.Details, goal.Deadline.UTC(), goal.DeadlineDisplay,
			goal.RepoURL, goal.RepoOwner, goal.RepoName, goal.CompletionCondition, goal.CompletionType,
			goal.Status, goal.EmbedToken,
		).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build insert query: %w", op, err)
	}

	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&goal.ID, &goal.CreatedAt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("%s: embed token collision: %w", op, err)
		}

		return fmt.Errorf("%s: failed to execute insert: %w", op, err)
	}

	goal.CreatedAt = goal.CreatedAt.UTC()

	return nil
}

func (r *GoalRepository) SetWebhookID(ctx context.Context, goalID int64, webhookID string) error {
	const op = "internal.repository.postgres.SetWebhookID"

	query, args, err := r.sq.Update("goals").
		Set("webhook_id", webhookID).
		Where(sq.Eq{"id": goalID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: failed to execute update: %w", op, err)
	}

	return nil
}

func (r *GoalRepository) UpdateGoal(ctx context.Context, tx *sqlx.Tx, goal *domain.Goal) error {
	const op = "internal.repository.postgres.UpdateGoal"

	query, args, err := r.sq.Update("goals").
		SetMap(map[string]interface{}{
			"title":                goal.Title,
			"details":              goal.Details,
			"deadline":             goal.Deadline.UTC(),
			"deadline_display":     goal.DeadlineDisplay,
			"completion_condition": goal.CompletionCondition,
			"completion_type":      goal.CompletionType,
		}).
		Where(sq.Eq{"id": goal.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: failed to execute update: %w", op, err)
	}

	if rowsAffected, err := res.RowsAffected(); err == nil && rowsAffected == 0 {
		return fmt.Errorf("%s: %w: goal with id '%d'", op, apperrors.ErrNotFound, goal.ID)
	}

	return nil
}

func (r *GoalRepository) DeleteGoal(ctx context.Context, id int64, ownerID string) error {
	const op = "internal.repository.postgres.DeleteGoal"

	query, args, err := r.sq.Delete("goals").
		Where(sq.Eq{"id": id, "user_github_id": ownerID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: failed to build delete query: %w", op, err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: failed to execute delete: %w", op, err)
	}

	if rowsAffected, err := res.RowsAffected(); err == nil && rowsAffected == 0 {
		return fmt.Errorf("%s: %w: goal with id '%d'", op, apperrors.ErrNotFound, id)
	}

	return nil
}

func (r *GoalRepository) CompleteGoal(ctx context.Context, id int64, completedAt time.Time) (bool, error) {
	const op = "internal.repository.postgres.CompleteGoal"

	query, args, err := r.sq.Update("goals").
		Set("status", domain.GoalCompleted).
		Set("completed_at", completedAt.UTC()).
		Where(sq.Eq{"id": id, "status": domain.GoalActive}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%s: failed to build update query: %w", op, err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%s: failed to execute update: %w", op, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: failed to read affected rows: %w", op, err)
	}

	if rowsAffected == 0 {
		r.log.Debug("goal is no longer active", slog.String("op", op), slog.Int64("goal_id", id))
		return false, nil
	}

	return true, nil
}
