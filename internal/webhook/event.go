package webhook

import (
	"fmt"

	"github.com/YusovID/git-done/internal/apperrors"
	"github.com/YusovID/git-done/internal/domain"
	"github.com/google/go-github/v57/github"
)

type Kind string

const (
	KindPush   Kind = "push"
	KindIssues Kind = "issues"
)

const ActionClosed = "closed"

// Event is one decoded delivery. The set of implementations is closed:
// PushEvent, IssuesEvent and UnsupportedEvent.
type Event interface {
	Kind() Kind
	event()
}

type Commit struct {
	ID      string
	Message string
}

type PushEvent struct {
	Repo    domain.Repo
	Commits []Commit
}

func (PushEvent) Kind() Kind { return KindPush }
func (PushEvent) event()     {}

// IssuesEvent carries the repository and issue number only for the closed
// action; other actions are never evaluated.
type IssuesEvent struct {
	Action      string
	Repo        domain.Repo
	IssueNumber int
}

func (IssuesEvent) Kind() Kind { return KindIssues }
func (IssuesEvent) event()     {}

func (e IssuesEvent) Closed() bool { return e.Action == ActionClosed }

// UnsupportedEvent stands for every event kind the service does not act on,
// including the "ping" GitHub sends when a hook is created.
type UnsupportedEvent struct {
	Name string
}

func (e UnsupportedEvent) Kind() Kind { return Kind(e.Name) }
func (UnsupportedEvent) event()       {}

// Decode turns a verified body into an Event. Unknown kinds are not an error.
func Decode(eventType string, body []byte) (Event, error) {
	const op = "internal.webhook.Decode"

	switch Kind(eventType) {
	case KindPush, KindIssues:
	default:
		return UnsupportedEvent{Name: eventType}, nil
	}

	parsed, err := github.ParseWebHook(eventType, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", op, apperrors.ErrMalformedPayload, err)
	}

	switch ev := parsed.(type) {
	case *github.PushEvent:
		return decodePush(ev)
	case *github.IssuesEvent:
		return decodeIssues(ev)
	default:
		return UnsupportedEvent{Name: eventType}, nil
	}
}

func decodePush(ev *github.PushEvent) (Event, error) {
	repo, ok := domain.ParseFullName(ev.GetRepo().GetFullName())
	if !ok {
		return nil, fmt.Errorf("%w: payload missing repository name", apperrors.ErrMalformedPayload)
	}

	commits := make([]Commit, 0, len(ev.Commits))
	for _, c := range ev.Commits {
		if c == nil {
			continue
		}

		commits = append(commits, Commit{ID: c.GetID(), Message: c.GetMessage()})
	}

	return PushEvent{Repo: repo, Commits: commits}, nil
}

func decodeIssues(ev *github.IssuesEvent) (Event, error) {
	out := IssuesEvent{Action: ev.GetAction()}
	if !out.Closed() {
		return out, nil
	}

	repo, ok := domain.ParseFullName(ev.GetRepo().GetFullName())
	number := ev.GetIssue().GetNumber()

	if !ok || number == 0 {
		return nil, fmt.Errorf("%w: payload missing repository or issue information", apperrors.ErrMalformedPayload)
	}

	out.Repo = repo
	out.IssueNumber = number

	return out, nil
}
