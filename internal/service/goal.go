package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/YusovID/git-done/internal/apperrors"
	"github.com/YusovID/git-done/internal/calendar"
	"github.com/YusovID/git-done/internal/deadline"
	"github.com/YusovID/git-done/internal/domain"
	"github.com/YusovID/git-done/internal/repository"
	"github.com/YusovID/git-done/pkg/logger/sl"
	"github.com/jmoiron/sqlx"
)

const (
	maxTitleLen     = 255
	maxConditionLen = 200
	maxDisplayLen   = 25
	embedTokenBytes = 16
)

// HookRegistrar manages the repository webhooks that feed completions.
type HookRegistrar interface {
	RegisterHook(ctx context.Context, token string, repo domain.Repo, callbackURL, secret string) (string, error)
	DeleteHook(ctx context.Context, token string, repo domain.Repo, hookID string) error
}

// HookSettings describes where GitHub should deliver events. An empty
// CallbackURL disables registration.
type HookSettings struct {
	CallbackURL string
	Secret      string
}

type CreateGoalInput struct {
	Title               string
	Details             string
	Deadline            string
	DeadlineDisplay     string
	RepoURL             string
	CompletionCondition string
	CompletionType      string
}

// UpdateGoalInput carries only the fields the caller sent.
type UpdateGoalInput struct {
	Title               *string
	Details             *string
	Deadline            *string
	DeadlineDisplay     *string
	CompletionCondition *string
	CompletionType      *string
}

type GoalResult struct {
	Goal     *domain.Goal
	Warnings []Warning
}

type DeleteResult struct {
	Warnings []Warning
}

type GoalService interface {
	CreateGoal(ctx context.Context, ownerID string, in CreateGoalInput) (*GoalResult, error)
	UpdateGoal(ctx context.Context, ownerID string, id int64, in UpdateGoalInput) (*domain.Goal, error)
	DeleteGoal(ctx context.Context, ownerID string, id int64) (*DeleteResult, error)
	ListGoals(ctx context.Context, ownerID string) ([]domain.Goal, error)
	GoalCalendar(ctx context.Context, ownerID string, id int64) ([]byte, error)
}

type GoalServiceImpl struct {
	BaseService
	users     repository.UserRepository
	goalQuery repository.GoalQueryRepository
	goalCmd   repository.GoalCommandRepository
	hooks     HookRegistrar
	hookCfg   HookSettings
}

func NewGoalService(
	db Transactor,
	log *slog.Logger,
	users repository.UserRepository,
	goalQuery repository.GoalQueryRepository,
	goalCmd repository.GoalCommandRepository,
	hooks HookRegistrar,
	hookCfg HookSettings,
) *GoalServiceImpl {
	return &GoalServiceImpl{
		BaseService: NewBaseService(db, log),
		users:       users,
		goalQuery:   goalQuery,
		goalCmd:     goalCmd,
		hooks:       hooks,
		hookCfg:     hookCfg,
	}
}

func (s *GoalServiceImpl) CreateGoal(ctx context.Context, ownerID string, in CreateGoalInput) (*GoalResult, error) {
	const op = "internal.service.goal.CreateGoal"
	log := s.log.With(slog.String("op", op), slog.String("user_id", ownerID))

	user, err := s.users.GetUserByID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	goal, err := s.newGoal(ownerID, in)
	if err != nil {
		return nil, err
	}

	if err := s.goalCmd.CreateGoal(ctx, goal); err != nil {
		return nil, fmt.Errorf("%s: failed to save goal: %w", op, err)
	}

	log.Info("goal created", slog.Int64("goal_id", goal.ID), slog.String("repo", goal.Repo().FullName()))

	result := &GoalResult{Goal: goal}

	if s.hookCfg.CallbackURL == "" {
		log.Debug("public base url not configured, skipping webhook registration")
		return result, nil
	}

	hookID, err := s.hooks.RegisterHook(ctx, user.AccessToken, goal.Repo(), s.hookCfg.CallbackURL, s.hookCfg.Secret)
	if err != nil {
		log.Warn("webhook registration failed", sl.Err(err))
		result.Warnings = append(result.Warnings, Warning{
			Code:    WarningHookRegistration,
			Message: fmt.Sprintf("could not register webhook on %s: %v", goal.Repo().FullName(), err),
		})

		return result, nil
	}

	if err := s.goalCmd.SetWebhookID(ctx, goal.ID, hookID); err != nil {
		log.Warn("failed to save webhook id", sl.Err(err), slog.String("hook_id", hookID))
		result.Warnings = append(result.Warnings, Warning{
			Code:    WarningHookSave,
			Message: "webhook registered but its id could not be saved",
		})

		return result, nil
	}

	goal.WebhookID = &hookID

	return result, nil
}

func (s *GoalServiceImpl) newGoal(ownerID string, in CreateGoalInput) (*domain.Goal, error) {
	title := strings.TrimSpace(in.Title)
	condition := strings.TrimSpace(in.CompletionCondition)
	rawDeadline := strings.TrimSpace(in.Deadline)
	repoURL := strings.TrimSpace(in.RepoURL)

	switch {
	case title == "":
		return nil, &apperrors.FieldError{Field: "title", Reason: "is required"}
	case rawDeadline == "":
		return nil, &apperrors.FieldError{Field: "deadline", Reason: "is required"}
	case repoURL == "":
		return nil, &apperrors.FieldError{Field: "repo_url", Reason: "is required"}
	case condition == "":
		return nil, &apperrors.FieldError{Field: "completion_condition", Reason: "is required"}
	}

	if err := checkLengths(title, condition, in.DeadlineDisplay); err != nil {
		return nil, err
	}

	completionType := domain.CompletionCommit
	if in.CompletionType != "" {
		completionType = domain.CompletionType(in.CompletionType)
		if !completionType.Valid() {
			return nil, apperrors.Invalid(apperrors.ErrCompletionType)
		}
	}

	repo, ok := domain.ParseRepoURL(repoURL)
	if !ok {
		return nil, apperrors.Invalid(apperrors.ErrInvalidRepoURL)
	}

	due, err := deadline.Parse(rawDeadline)
	if err != nil {
		return nil, apperrors.Invalid(apperrors.ErrInvalidDeadline)
	}

	if due.Before(s.now()) {
		return nil, apperrors.Invalid(apperrors.ErrDeadlinePast)
	}

	token, err := newEmbedToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate embed token: %w", err)
	}

	return &domain.Goal{
		OwnerID:             ownerID,
		Title:               title,
		Details:             strings.TrimSpace(in.Details),
		Deadline:            due,
		DeadlineDisplay:     deadline.Display(due, strings.TrimSpace(in.DeadlineDisplay)),
		RepoURL:             repoURL,
		RepoOwner:           repo.Owner,
		RepoName:            repo.Name,
		CompletionCondition: condition,
		CompletionType:      completionType,
		Status:              domain.GoalActive,
		EmbedToken:          token,
	}, nil
}

func checkLengths(title, condition, display string) error {
	switch {
	case utf8.RuneCountInString(title) > maxTitleLen:
		return &apperrors.FieldError{Field: "title", Reason: fmt.Sprintf("must be at most %d characters", maxTitleLen)}
	case utf8.RuneCountInString(condition) > maxConditionLen:
		return &apperrors.FieldError{Field: "completion_condition", Reason: fmt.Sprintf("must be at most %d characters", maxConditionLen)}
	case utf8.RuneCountInString(strings.TrimSpace(display)) > maxDisplayLen:
		return &apperrors.FieldError{Field: "deadline_display", Reason: fmt.Sprintf("must be at most %d characters", maxDisplayLen)}
	}

	return nil
}

func newEmbedToken() (string, error) {
	b := make([]byte, embedTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}

func (s *GoalServiceImpl) UpdateGoal(ctx context.Context, ownerID string, id int64, in UpdateGoalInput) (*domain.Goal, error) {
	const op = "internal.service.goal.UpdateGoal"
	log := s.log.With(slog.String("op", op), slog.String("user_id", ownerID), slog.Int64("goal_id", id))

	var goal *domain.Goal

	err := s.transaction(ctx, op, func(tx *sqlx.Tx) error {
		var err error

		goal, err = s.goalCmd.GetGoalByIDWithLock(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("%s: failed to get goal with lock: %w", op, err)
		}

		if goal.OwnerID != ownerID {
			return fmt.Errorf("%s: %w: goal with id '%d'", op, apperrors.ErrNotFound, id)
		}

		if err := applyUpdate(goal, in); err != nil {
			return err
		}

		if err := s.goalCmd.UpdateGoal(ctx, tx, goal); err != nil {
			return fmt.Errorf("%s: failed to update goal: %w", op, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("goal updated")

	return goal, nil
}

// applyUpdate validates and copies the present fields onto goal. The deadline
// is not checked against the current time here, unlike on create.
func applyUpdate(goal *domain.Goal, in UpdateGoalInput) error {
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return &apperrors.FieldError{Field: "title", Reason: "cannot be empty"}
		}

		goal.Title = title
	}

	if in.Details != nil {
		details := strings.TrimSpace(*in.Details)
		if details == "" {
			return &apperrors.FieldError{Field: "details", Reason: "cannot be empty"}
		}

		goal.Details = details
	}

	if in.CompletionCondition != nil {
		condition := strings.TrimSpace(*in.CompletionCondition)
		if condition == "" {
			return &apperrors.FieldError{Field: "completion_condition", Reason: "cannot be empty"}
		}

		goal.CompletionCondition = condition
	}

	if in.CompletionType != nil {
		completionType := domain.CompletionType(*in.CompletionType)
		if !completionType.Valid() {
			return apperrors.Invalid(apperrors.ErrCompletionType)
		}

		goal.CompletionType = completionType
	}

	display := ""
	if in.DeadlineDisplay != nil {
		display = strings.TrimSpace(*in.DeadlineDisplay)
	}

	if err := checkLengths(goal.Title, goal.CompletionCondition, display); err != nil {
		return err
	}

	if in.Deadline != nil {
		due, err := deadline.Parse(*in.Deadline)
		if err != nil {
			return apperrors.Invalid(apperrors.ErrInvalidDeadline)
		}

		goal.Deadline = due
		goal.DeadlineDisplay = deadline.Display(due, display)
	} else if display != "" {
		goal.DeadlineDisplay = display
	}

	return nil
}

func (s *GoalServiceImpl) DeleteGoal(ctx context.Context, ownerID string, id int64) (*DeleteResult, error) {
	const op = "internal.service.goal.DeleteGoal"
	log := s.log.With(slog.String("op", op), slog.String("user_id", ownerID), slog.Int64("goal_id", id))

	goal, err := s.ownedGoal(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := &DeleteResult{}

	if warning := s.removeHook(ctx, log, goal); warning != nil {
		result.Warnings = append(result.Warnings, *warning)
	}

	if err := s.goalCmd.DeleteGoal(ctx, id, ownerID); err != nil {
		return nil, fmt.Errorf("%s: failed to delete goal: %w", op, err)
	}

	log.Info("goal deleted")

	return result, nil
}

func (s *GoalServiceImpl) removeHook(ctx context.Context, log *slog.Logger, goal *domain.Goal) *Warning {
	if goal.WebhookID == nil || *goal.WebhookID == "" || goal.RepoOwner == "" || goal.RepoName == "" {
		return nil
	}

	user, err := s.users.GetUserByID(ctx, goal.OwnerID)
	if err != nil || user.AccessToken == "" {
		log.Warn("no access token to remove webhook", sl.Err(err))
		return &Warning{Code: WarningHookRemoval, Message: "webhook could not be removed: no access token"}
	}

	if err := s.hooks.DeleteHook(ctx, user.AccessToken, goal.Repo(), *goal.WebhookID); err != nil {
		log.Warn("webhook removal failed", sl.Err(err), slog.String("hook_id", *goal.WebhookID))
		return &Warning{
			Code:    WarningHookRemoval,
			Message: fmt.Sprintf("could not remove webhook from %s: %v", goal.Repo().FullName(), err),
		}
	}

	return nil
}

func (s *GoalServiceImpl) ListGoals(ctx context.Context, ownerID string) ([]domain.Goal, error) {
	const op = "internal.service.goal.ListGoals"

	goals, err := s.goalQuery.ListGoalsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return goals, nil
}

func (s *GoalServiceImpl) GoalCalendar(ctx context.Context, ownerID string, id int64) ([]byte, error) {
	const op = "internal.service.goal.GoalCalendar"

	goal, err := s.ownedGoal(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return calendar.Render(goal, s.now()), nil
}

// ownedGoal folds "not yours" into not found so goal ids do not leak.
func (s *GoalServiceImpl) ownedGoal(ctx context.Context, ownerID string, id int64) (*domain.Goal, error) {
	goal, err := s.goalQuery.GetGoalByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if goal.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: goal with id '%d'", apperrors.ErrNotFound, id)
	}

	return goal, nil
}

var _ GoalService = (*GoalServiceImpl)(nil)
