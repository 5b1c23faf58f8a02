package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/YusovID/git-done/internal/apperrors"
	"github.com/YusovID/git-done/internal/domain"
	"github.com/jmoiron/sqlx"
)

type UserRepository struct {
	db  *sqlx.DB
	log *slog.Logger
	sq  sq.StatementBuilderType
}

func NewUserRepository(db *sqlx.DB, log *slog.Logger) *UserRepository {
	return &UserRepository{
		db:  db,
		log: log,
		sq:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (ur *UserRepository) UpsertUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	const op = "internal.repository.postgres.UpsertUser"

	log := ur.log.With(slog.String("op", op), slog.String("github_id", user.GitHubID))

	query, args, err := ur.sq.Insert("users").
		Columns("github_id", "username", "access_token").
		Values(user.GitHubID, user.Username, user.AccessToken).
		Suffix(`ON CONFLICT (github_id) DO UPDATE SET
            username = EXCLUDED.username,
            access_token = EXCLUDED.access_token,
            updated_at = NOW()
        RETURNING github_id, username, access_token, created_at, updated_at`).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build upsert query: %w", op, err)
	}

	var saved domain.User
	if err := ur.db.QueryRowxContext(ctx, query, args...).StructScan(&saved); err != nil {
		return nil, fmt.Errorf("%s: failed to execute upsert: %w", op, err)
	}

	log.Debug("user saved", slog.String("username", saved.Username))

	return &saved, nil
}

func (ur *UserRepository) GetUserByID(ctx context.Context, githubID string) (*domain.User, error) {
	const op = "internal.repository.postgres.GetUserByID"

	query, args, err := ur.sq.Select("github_id", "username", "access_token", "created_at", "updated_at").
		From("users").
		Where(sq.Eq{"github_id": githubID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to build query: %w", op, err)
	}

	var user domain.User
	if err := ur.db.GetContext(ctx, &user, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w: user with id '%s'", op, apperrors.ErrNotFound, githubID)
		}

		return nil, fmt.Errorf("%s: failed to execute query: %w", op, err)
	}

	return &user, nil
}
