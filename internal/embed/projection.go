// Package embed builds the public countdown widget: the JSON projection the
// widget polls and the HTML page that hosts it.
package embed

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/YusovID/git-done/internal/deadline"
	"github.com/YusovID/git-done/internal/domain"
)

const (
	CacheCompleted = "public, max-age=3600, s-maxage=3600"
	CacheActive    = "no-cache, no-store, must-revalidate, max-age=0"
)

// Projection is the read-only view served to the widget. It never carries
// owner identity or repository details.
type Projection struct {
	GoalID              int64   `json:"goal_id"`
	Title               string  `json:"title"`
	Details             string  `json:"details"`
	Deadline            string  `json:"deadline"`
	DeadlineDisplay     string  `json:"deadline_display"`
	Status              string  `json:"status"`
	TimeRemaining       int64   `json:"time_remaining"`
	IsOverdue           bool    `json:"is_overdue"`
	CompletionCondition string  `json:"completion_condition"`
	CompletedAt         *string `json:"completed_at"`
	LastUpdated         string  `json:"last_updated"`
	ServerTimeUTC       string  `json:"server_time_utc"`
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// Project computes the widget view of goal at now. Completed goals never
// report time remaining or overdue.
func Project(goal *domain.Goal, now time.Time) Projection {
	now = now.UTC()

	p := Projection{
		GoalID:              goal.ID,
		Title:               goal.Title,
		Details:             goal.Details,
		Deadline:            timestamp(goal.Deadline),
		DeadlineDisplay:     deadline.Display(goal.Deadline, goal.DeadlineDisplay),
		Status:              string(goal.Status),
		CompletionCondition: goal.CompletionCondition,
		LastUpdated:         timestamp(now),
		ServerTimeUTC:       timestamp(now),
	}

	if goal.CompletedAt != nil {
		completed := timestamp(*goal.CompletedAt)
		p.CompletedAt = &completed
	}

	if goal.IsCompleted() {
		return p
	}

	left := goal.Deadline.Sub(now)
	if left > 0 {
		p.TimeRemaining = int64(left / time.Second)
	}
	p.IsOverdue = left <= 0

	return p
}

// ETag fingerprints the fields that change what the widget shows.
func (p Projection) ETag() string {
	completed := "none"
	if p.CompletedAt != nil {
		completed = *p.CompletedAt
	}

	sum := md5.Sum([]byte(fmt.Sprintf("%d-%s-%d-%s", p.GoalID, p.Status, p.TimeRemaining, completed)))

	return `"` + hex.EncodeToString(sum[:]) + `"`
}

// SetCacheHeaders lets intermediaries keep completed goals for an hour and
// forbids caching anything still counting down.
func (p Projection) SetCacheHeaders(h http.Header) {
	if p.Status == string(domain.GoalCompleted) {
		h.Set("Cache-Control", CacheCompleted)
		return
	}

	h.Set("Cache-Control", CacheActive)
	h.Set("Pragma", "no-cache")
	h.Set("Expires", "0")
}
