package domain

import (
	"strings"
	"time"
)

type CompletionType string

const (
	CompletionCommit CompletionType = "commit"
	CompletionIssue  CompletionType = "issue"
)

func (t CompletionType) Valid() bool {
	return t == CompletionCommit || t == CompletionIssue
}

type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
)

type User struct {
	GitHubID    string    `db:"github_id"`
	Username    string    `db:"username"`
	AccessToken string    `db:"access_token"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type Goal struct {
	ID                  int64          `db:"id"`
	OwnerID             string         `db:"user_github_id"`
	Title               string         `db:"title"`
	Details             string         `db:"details"`
	Deadline            time.Time      `db:"deadline"`
	DeadlineDisplay     string         `db:"deadline_display"`
	RepoURL             string         `db:"repo_url"`
	RepoOwner           string         `db:"repo_owner"`
	RepoName            string         `db:"repo_name"`
	CompletionCondition string         `db:"completion_condition"`
	CompletionType      CompletionType `db:"completion_type"`
	Status              GoalStatus     `db:"status"`
	CreatedAt           time.Time      `db:"created_at"`
	CompletedAt         *time.Time     `db:"completed_at"`
	EmbedToken          string         `db:"embed_token"`
	WebhookID           *string        `db:"webhook_id"`
}

func (g *Goal) IsCompleted() bool {
	return g.Status == GoalCompleted
}

func (g *Goal) Repo() Repo {
	return Repo{Owner: g.RepoOwner, Name: g.RepoName}
}

// Repo identifies a repository by owner and name.
type Repo struct {
	Owner string
	Name  string
}

func (r Repo) FullName() string {
	return r.Owner + "/" + r.Name
}

// ParseRepoURL takes the last two path segments of a repository URL as
// owner and name, dropping a trailing ".git" from the name. It also accepts
// "owner/name".
func ParseRepoURL(raw string) (Repo, bool) {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
	if trimmed == "" {
		return Repo{}, false
	}

	parts := strings.Split(trimmed, "/")
	if len(parts) < 2 {
		return Repo{}, false
	}

	owner := parts[len(parts)-2]
	name := strings.TrimSuffix(parts[len(parts)-1], ".git")

	if owner == "" || name == "" || strings.HasSuffix(owner, ":") {
		return Repo{}, false
	}

	return Repo{Owner: owner, Name: name}, true
}

// ParseFullName splits a GitHub "owner/name" string.
func ParseFullName(fullName string) (Repo, bool) {
	owner, name, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return Repo{}, false
	}

	return Repo{Owner: owner, Name: name}, true
}
