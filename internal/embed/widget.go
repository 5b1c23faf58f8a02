package embed

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/YusovID/git-done/internal/deadline"
	"github.com/YusovID/git-done/internal/domain"
)

//go:embed templates/*.tmpl
var content embed.FS

var widgetTemplate = template.Must(template.ParseFS(content, "templates/widget.html.tmpl"))

const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// NormalizeTheme maps anything but "light" to the dark theme.
func NormalizeTheme(theme string) string {
	if theme == ThemeLight {
		return ThemeLight
	}

	return ThemeDark
}

type widgetView struct {
	Theme               string
	Title               string
	Details             string
	DeadlineDisplay     string
	CompletionCondition string
	DataURL             string
}

// RenderWidget writes the widget page for goal. The page polls dataURL for
// the live projection.
func RenderWidget(w io.Writer, goal *domain.Goal, theme, dataURL string) error {
	const op = "internal.embed.RenderWidget"

	view := widgetView{
		Theme:               NormalizeTheme(theme),
		Title:               goal.Title,
		Details:             goal.Details,
		DeadlineDisplay:     deadline.Display(goal.Deadline, goal.DeadlineDisplay),
		CompletionCondition: goal.CompletionCondition,
		DataURL:             dataURL,
	}

	if err := widgetTemplate.Execute(w, view); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
