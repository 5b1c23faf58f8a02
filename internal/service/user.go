package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/YusovID/git-done/internal/domain"
	"github.com/YusovID/git-done/internal/repository"
)

type UserService interface {
	// Login records a successful sign-in, refreshing the stored token.
	Login(ctx context.Context, githubID, username, accessToken string) (*domain.User, error)
}

type UserServiceImpl struct {
	repo repository.UserRepository
	log  *slog.Logger
}

func NewUserService(repo repository.UserRepository, log *slog.Logger) *UserServiceImpl {
	return &UserServiceImpl{repo: repo, log: log}
}

func (s *UserServiceImpl) Login(ctx context.Context, githubID, username, accessToken string) (*domain.User, error) {
	user, err := s.repo.UpsertUser(ctx, &domain.User{
		GitHubID:    githubID,
		Username:    username,
		AccessToken: accessToken,
	})
	if err != nil {
		return nil, fmt.Errorf("repo.UpsertUser failed: %w", err)
	}

	s.log.Info("user signed in", slog.String("github_id", githubID), slog.String("username", username))

	return user, nil
}
