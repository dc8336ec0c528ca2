// Package style holds the colors and icons shared by the log handler and the
// command output.
package style

import "github.com/charmbracelet/lipgloss"

// Palette.
var (
	Iris   = lipgloss.Color("#8B5CF6")
	Slate  = lipgloss.Color("#667085")
	Green  = lipgloss.Color("#22A06B")
	Red    = lipgloss.Color("#D93025")
	Yellow = lipgloss.Color("#F59E0B")
)

// Icons.
const (
	Check   = "✓"
	Cross   = "✗"
	Warning = "!"
	Tilde   = "~"
	Dot     = "●"
	Circle  = "○"
)

// Styles renders text for one writer's color profile.
type Styles struct {
	Title   lipgloss.Style
	Muted   lipgloss.Style
	Valid   lipgloss.Style
	Invalid lipgloss.Style
	Shared  lipgloss.Style
}

// New returns the styles rendered by r.
func New(r *lipgloss.Renderer) Styles {
	return Styles{
		Title:   r.NewStyle().Bold(true).Foreground(Iris),
		Muted:   r.NewStyle().Foreground(Slate),
		Valid:   r.NewStyle().Foreground(Green),
		Invalid: r.NewStyle().Foreground(Red),
		Shared:  r.NewStyle().Foreground(Yellow),
	}
}

// Verdict renders the outcome of a validity check.
func (s Styles) Verdict(valid bool) string {
	if valid {
		return s.Valid.Render(Check + " valid")
	}
	return s.Invalid.Render(Cross + " invalid")
}
