// Package deadline parses user-supplied deadlines into UTC instants and
// renders the fallback display string stored next to them.
package deadline

import (
	"errors"
	"strings"
	"time"
)

// DisplayLayout is the DD/MM/YYYY HH:MM form shown to users.
const DisplayLayout = "02/01/2006 15:04"

const compactLayout = "2006-01-02T15:04"

var ErrInvalidFormat = errors.New("invalid deadline format, use DD/MM/YYYY HH:MM or ISO")

// isoLayouts are tried after a trailing "Z" has been removed; the result is
// read as UTC.
var isoLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// isoOffsetLayouts carry an explicit numeric offset and are converted to UTC.
var isoOffsetLayouts = []string{
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04-07:00",
	"2006-01-02 15:04-07:00",
}

// Parse accepts, in order: ISO-8601 (optional trailing Z), the compact
// YYYY-MM-DDTHH:MM form and the DD/MM/YYYY HH:MM display form. The returned
// instant is always in UTC.
func Parse(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrInvalidFormat
	}

	if t, ok := parseISO(raw); ok {
		return t, nil
	}

	if t, err := time.ParseInLocation(compactLayout, raw, time.UTC); err == nil {
		return t, nil
	}

	if t, err := time.ParseInLocation(DisplayLayout, raw, time.UTC); err == nil {
		return t, nil
	}

	return time.Time{}, ErrInvalidFormat
}

func parseISO(raw string) (time.Time, bool) {
	naive := strings.TrimSuffix(raw, "Z")

	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, naive, time.UTC); err == nil {
			return t, true
		}
	}

	if naive != raw {
		return time.Time{}, false
	}

	for _, layout := range isoOffsetLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}

	return time.Time{}, false
}

// Format renders t in the display form, in UTC.
func Format(t time.Time) string {
	return t.UTC().Format(DisplayLayout)
}

// Display returns the caller's string verbatim when given, otherwise the
// formatted instant.
func Display(t time.Time, supplied string) string {
	if supplied != "" {
		return supplied
	}

	return Format(t)
}
