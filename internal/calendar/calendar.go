// Package calendar renders a goal deadline as an iCalendar (RFC 5545) file.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/YusovID/git-done/internal/domain"
)

const (
	ContentType = "text/calendar; charset=utf-8"

	prodID      = "-//Git-Done//Deadline Event//EN"
	stampLayout = "20060102T150405Z"
	maxLine     = 75
)

// Filename is the attachment name offered for goal id.
func Filename(id int64) string {
	return fmt.Sprintf("goal_%d.ics", id)
}

// Render returns a VCALENDAR with a single VEVENT starting at the deadline.
// Lines are CRLF-terminated and folded at 75 octets.
func Render(goal *domain.Goal, now time.Time) []byte {
	var b strings.Builder

	line := func(name, value string) {
		b.WriteString(fold(name + ":" + value))
		b.WriteString("\r\n")
	}

	line("BEGIN", "VCALENDAR")
	line("VERSION", "2.0")
	line("PRODID", prodID)
	line("CALSCALE", "GREGORIAN")
	line("METHOD", "PUBLISH")
	line("BEGIN", "VEVENT")
	line("UID", fmt.Sprintf("%d@git-done.app", goal.ID))
	line("DTSTAMP", now.UTC().Format(stampLayout))
	line("DTSTART", goal.Deadline.UTC().Format(stampLayout))
	line("SUMMARY", escape(goal.Title))
	line("DESCRIPTION", escape(description(goal)))
	if goal.RepoURL != "" {
		line("URL", goal.RepoURL)
	}
	line("END", "VEVENT")
	line("END", "VCALENDAR")

	return []byte(b.String())
}

func description(goal *domain.Goal) string {
	desc := fmt.Sprintf("GitHub Repo: %s | Completion Tag: %s", goal.RepoURL, goal.CompletionCondition)
	if goal.Details != "" {
		desc = goal.Details + "\n" + desc
	}

	return desc
}

var textEscaper = strings.NewReplacer(
	`\`, `\\`,
	";", `\;`,
	",", `\,`,
	"\r\n", `\n`,
	"\n", `\n`,
	"\r", `\n`,
)

func escape(s string) string {
	return textEscaper.Replace(s)
}

// fold splits a content line into 75-octet chunks, continuing each with a
// single space. Multi-byte runes are never split.
func fold(s string) string {
	if len(s) <= maxLine {
		return s
	}

	var b strings.Builder

	width := 0
	limit := maxLine

	for _, r := range s {
		size := len(string(r))
		if width+size > limit {
			b.WriteString("\r\n ")
			width = 0
			limit = maxLine - 1
		}

		b.WriteRune(r)
		width += size
	}

	return b.String()
}
