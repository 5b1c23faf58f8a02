package http

import (
	"context"

	"github.com/YusovID/git-done/internal/domain"
	"github.com/YusovID/git-done/internal/embed"
	"github.com/YusovID/git-done/internal/github"
	"github.com/YusovID/git-done/internal/service"
	"github.com/YusovID/git-done/internal/webhook"
	"github.com/stretchr/testify/mock"
)

type GoalServiceMock struct {
	mock.Mock
}

var _ service.GoalService = (*GoalServiceMock)(nil)

func (m *GoalServiceMock) CreateGoal(ctx context.Context, ownerID string, in service.CreateGoalInput) (*service.GoalResult, error) {
	args := m.Called(ctx, ownerID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*service.GoalResult), args.Error(1)
}

func (m *GoalServiceMock) UpdateGoal(ctx context.Context, ownerID string, id int64, in service.UpdateGoalInput) (*domain.Goal, error) {
	args := m.Called(ctx, ownerID, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.Goal), args.Error(1)
}

func (m *GoalServiceMock) DeleteGoal(ctx context.Context, ownerID string, id int64) (*service.DeleteResult, error) {
	args := m.Called(ctx, ownerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*service.DeleteResult), args.Error(1)
}

func (m *GoalServiceMock) ListGoals(ctx context.Context, ownerID string) ([]domain.Goal, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.Goal), args.Error(1)
}

func (m *GoalServiceMock) GoalCalendar(ctx context.Context, ownerID string, id int64) ([]byte, error) {
	args := m.Called(ctx, ownerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]byte), args.Error(1)
}

type UserServiceMock struct {
	mock.Mock
}

var _ service.UserService = (*UserServiceMock)(nil)

func (m *UserServiceMock) Login(ctx context.Context, githubID, username, accessToken string) (*domain.User, error) {
	args := m.Called(ctx, githubID, username, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.User), args.Error(1)
}

type CompletionServiceMock struct {
	mock.Mock
}

var _ service.CompletionService = (*CompletionServiceMock)(nil)

func (m *CompletionServiceMock) Apply(ctx context.Context, event webhook.Event) (*service.CompletionResult, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*service.CompletionResult), args.Error(1)
}

type EmbedServiceMock struct {
	mock.Mock
}

var _ service.EmbedService = (*EmbedServiceMock)(nil)

func (m *EmbedServiceMock) Goal(ctx context.Context, token string) (*domain.Goal, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.Goal), args.Error(1)
}

func (m *EmbedServiceMock) Projection(ctx context.Context, token string) (*embed.Projection, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*embed.Projection), args.Error(1)
}

type OAuthProviderMock struct {
	mock.Mock
}

var _ OAuthProvider = (*OAuthProviderMock)(nil)

func (m *OAuthProviderMock) AuthURL(state string) string {
	return m.Called(state).String(0)
}

func (m *OAuthProviderMock) Exchange(ctx context.Context, code string) (*github.Identity, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*github.Identity), args.Error(1)
}

type PingerMock struct {
	mock.Mock
}

func (m *PingerMock) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
