package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/YusovID/git-done/internal/apperrors"
	"github.com/YusovID/git-done/internal/domain"
	"github.com/YusovID/git-done/internal/repository"
	"github.com/YusovID/git-done/internal/webhook"
)

type Outcome string

const (
	OutcomeCompleted        Outcome = "completed"
	OutcomeAlreadyCompleted Outcome = "already_completed"
	OutcomeNoGoal           Outcome = "no_goal"
	OutcomeNoMatch          Outcome = "no_match"
	OutcomeIgnored          Outcome = "ignored"
)

type CompletionResult struct {
	Outcome Outcome
	GoalID  int64
	Message string
}

type CompletionService interface {
	Apply(ctx context.Context, event webhook.Event) (*CompletionResult, error)
}

type CompletionServiceImpl struct {
	BaseService
	goalQuery repository.GoalQueryRepository
	goalCmd   repository.GoalCommandRepository
}

func NewCompletionService(
	log *slog.Logger,
	goalQuery repository.GoalQueryRepository,
	goalCmd repository.GoalCommandRepository,
) *CompletionServiceImpl {
	return &CompletionServiceImpl{
		BaseService: NewBaseService(nil, log),
		goalQuery:   goalQuery,
		goalCmd:     goalCmd,
	}
}

// Apply evaluates a verified delivery against the first active goal tracking
// its repository and completes that goal when the evidence matches.
func (s *CompletionServiceImpl) Apply(ctx context.Context, event webhook.Event) (*CompletionResult, error) {
	switch ev := event.(type) {
	case webhook.PushEvent:
		return s.applyPush(ctx, ev)
	case webhook.IssuesEvent:
		return s.applyIssues(ctx, ev)
	default:
		return &CompletionResult{Outcome: OutcomeIgnored, Message: fmt.Sprintf("event %q ignored", event.Kind())}, nil
	}
}

func (s *CompletionServiceImpl) applyPush(ctx context.Context, ev webhook.PushEvent) (*CompletionResult, error) {
	const op = "internal.service.completion.applyPush"

	goal, res, err := s.activeGoal(ctx, op, ev.Repo, domain.CompletionCommit)
	if goal == nil {
		return res, err
	}

	for _, c := range ev.Commits {
		if commitMatches(goal.CompletionCondition, c.Message) {
			return s.complete(ctx, op, goal, fmt.Sprintf("commit %s matched", shortSHA(c.ID)))
		}
	}

	return &CompletionResult{
		Outcome: OutcomeNoMatch,
		GoalID:  goal.ID,
		Message: "no commit message contains the completion condition",
	}, nil
}

func (s *CompletionServiceImpl) applyIssues(ctx context.Context, ev webhook.IssuesEvent) (*CompletionResult, error) {
	const op = "internal.service.completion.applyIssues"

	if !ev.Closed() {
		return &CompletionResult{Outcome: OutcomeIgnored, Message: fmt.Sprintf("issue action %q ignored", ev.Action)}, nil
	}

	goal, res, err := s.activeGoal(ctx, op, ev.Repo, domain.CompletionIssue)
	if goal == nil {
		return res, err
	}

	if !issueMatches(goal.CompletionCondition, ev.IssueNumber) {
		return &CompletionResult{
			Outcome: OutcomeNoMatch,
			GoalID:  goal.ID,
			Message: fmt.Sprintf("issue #%d does not match the completion condition", ev.IssueNumber),
		}, nil
	}

	return s.complete(ctx, op, goal, fmt.Sprintf("issue #%d closed", ev.IssueNumber))
}

// activeGoal returns either the goal to evaluate or the result to report
// when there is none.
func (s *CompletionServiceImpl) activeGoal(ctx context.Context, op string, repo domain.Repo, completionType domain.CompletionType) (*domain.Goal, *CompletionResult, error) {
	goal, err := s.goalQuery.FindActiveGoal(ctx, repo, completionType)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, &CompletionResult{
				Outcome: OutcomeNoGoal,
				Message: fmt.Sprintf("no active %s goal for %s", completionType, repo.FullName()),
			}, nil
		}

		return nil, nil, fmt.Errorf("%s: failed to find goal: %w", op, err)
	}

	return goal, nil, nil
}

func (s *CompletionServiceImpl) complete(ctx context.Context, op string, goal *domain.Goal, reason string) (*CompletionResult, error) {
	log := s.log.With(slog.String("op", op), slog.Int64("goal_id", goal.ID))

	ok, err := s.goalCmd.CompleteGoal(ctx, goal.ID, s.now())
	if err != nil {
		return nil, fmt.Errorf("%s: failed to complete goal: %w", op, err)
	}

	if !ok {
		log.Info("goal already completed, duplicate delivery")
		return &CompletionResult{Outcome: OutcomeAlreadyCompleted, GoalID: goal.ID, Message: "goal already completed"}, nil
	}

	log.Info("goal completed", slog.String("reason", reason))

	return &CompletionResult{Outcome: OutcomeCompleted, GoalID: goal.ID, Message: reason}, nil
}

func commitMatches(condition, message string) bool {
	return condition != "" && strings.Contains(message, condition)
}

// issueMatches accepts "42" or "#42" for issue 42.
func issueMatches(condition string, number int) bool {
	n := strconv.Itoa(number)
	condition = strings.TrimSpace(condition)

	return condition == n || condition == "#"+n
}

func shortSHA(id string) string {
	if len(id) > 7 {
		return id[:7]
	}

	return id
}
