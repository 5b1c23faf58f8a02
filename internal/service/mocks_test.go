package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/YusovID/git-done/internal/domain"
	"github.com/YusovID/git-done/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"
)

type TransactorMock struct {
	mock.Mock
}

func (m *TransactorMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	var tx *sqlx.Tx

	args := m.Called(ctx, opts)
	if args.Get(0) != nil {
		tx = args.Get(0).(*sqlx.Tx)
	}

	return tx, args.Error(1)
}

type UserRepositoryMock struct {
	mock.Mock
}

var _ repository.UserRepository = (*UserRepositoryMock)(nil)

func (m *UserRepositoryMock) UpsertUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *UserRepositoryMock) GetUserByID(ctx context.Context, githubID string) (*domain.User, error) {
	args := m.Called(ctx, githubID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.User), args.Error(1)
}

type GoalQueryRepositoryMock struct {
	mock.Mock
}

var _ repository.GoalQueryRepository = (*GoalQueryRepositoryMock)(nil)

func (m *GoalQueryRepositoryMock) GetGoalByID(ctx context.Context, id int64) (*domain.Goal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.Goal), args.Error(1)
}

func (m *GoalQueryRepositoryMock) GetGoalByEmbedToken(ctx context.Context, token string) (*domain.Goal, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.Goal), args.Error(1)
}

func (m *GoalQueryRepositoryMock) ListGoalsByOwner(ctx context.Context, ownerID string) ([]domain.Goal, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.Goal), args.Error(1)
}

func (m *GoalQueryRepositoryMock) FindActiveGoal(ctx context.Context, repo domain.Repo, completionType domain.CompletionType) (*domain.Goal, error) {
	args := m.Called(ctx, repo, completionType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.Goal), args.Error(1)
}

type GoalCommandRepositoryMock struct {
	mock.Mock
}

var _ repository.GoalCommandRepository = (*GoalCommandRepositoryMock)(nil)

func (m *GoalCommandRepositoryMock) CreateGoal(ctx context.Context, goal *domain.Goal) error {
	args := m.Called(ctx, goal)
	return args.Error(0)
}

func (m *GoalCommandRepositoryMock) SetWebhookID(ctx context.Context, goalID int64, webhookID string) error {
	args := m.Called(ctx, goalID, webhookID)
	return args.Error(0)
}

func (m *GoalCommandRepositoryMock) GetGoalByIDWithLock(ctx context.Context, tx *sqlx.Tx, id int64) (*domain.Goal, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.Goal), args.Error(1)
}

func (m *GoalCommandRepositoryMock) UpdateGoal(ctx context.Context, tx *sqlx.Tx, goal *domain.Goal) error {
	args := m.Called(ctx, tx, goal)
	return args.Error(0)
}

func (m *GoalCommandRepositoryMock) DeleteGoal(ctx context.Context, id int64, ownerID string) error {
	args := m.Called(ctx, id, ownerID)
	return args.Error(0)
}

func (m *GoalCommandRepositoryMock) CompleteGoal(ctx context.Context, id int64, completedAt time.Time) (bool, error) {
	args := m.Called(ctx, id, completedAt)
	return args.Bool(0), args.Error(1)
}

type HookRegistrarMock struct {
	mock.Mock
}

var _ HookRegistrar = (*HookRegistrarMock)(nil)

func (m *HookRegistrarMock) RegisterHook(ctx context.Context, token string, repo domain.Repo, callbackURL, secret string) (string, error) {
	args := m.Called(ctx, token, repo, callbackURL, secret)
	return args.String(0), args.Error(1)
}

func (m *HookRegistrarMock) DeleteHook(ctx context.Context, token string, repo domain.Repo, hookID string) error {
	args := m.Called(ctx, token, repo, hookID)
	return args.Error(0)
}
