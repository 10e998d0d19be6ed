package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/disposal-planner/internal/theme"
)

// Layout holds the terminal dimensions and the fixed bar heights around the
// disposal list.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with one-line header and status bars.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the rows left between the header and status bar.
func (l Layout) ContentHeight() int {
	return l.Height - l.HeaderHeight - l.StatusBarHeight
}

// Summary is the workload shown on the right of the header. A non-empty
// Notice replaces the counts until it is cleared.
type Summary struct {
	Filter    string
	Overdue   int
	DueToday  int
	Notice    string
	NoticeErr bool
}

// String renders the summary as plain text, e.g.
// "2 overdue | 1 due today | filter: active".
func (s Summary) String() string {
	if s.Notice != "" {
		return s.Notice
	}
	parts := make([]string, 0, 3)
	if s.Overdue > 0 {
		parts = append(parts, fmt.Sprintf("%d overdue", s.Overdue))
	}
	if s.DueToday > 0 {
		parts = append(parts, fmt.Sprintf("%d due today", s.DueToday))
	}
	parts = append(parts, "filter: "+s.Filter)
	return strings.Join(parts, " | ")
}

func (s Summary) render() string {
	text := s.String()
	switch {
	case s.Notice != "" && s.NoticeErr:
		return theme.ErrorStyle.Inherit(theme.HeaderStyle).Render(text)
	case s.Notice == "" && s.Overdue > 0:
		return theme.HeaderStyle.Foreground(theme.ColorRed).Render(text)
	default:
		return theme.HeaderStyle.Render(text)
	}
}

// RenderHeader renders the title on the left and the workload summary on
// the right, padded to the full width.
func (l Layout) RenderHeader(title string, s Summary) string {
	left := theme.HeaderStyle.Render(title)
	right := s.render()
	return lipgloss.JoinHorizontal(lipgloss.Top,
		left, l.fill(theme.HeaderStyle, left, right), right)
}

// RenderStatusBar renders key hints and, when refreshed is set, the time of
// the last list load in loc.
func (l Layout) RenderStatusBar(hints string, refreshed time.Time, loc *time.Location) string {
	left := theme.StatusBarStyle.Render(hints)
	right := ""
	if !refreshed.IsZero() {
		right = theme.StatusBarStyle.Render("updated " + refreshed.In(loc).Format("15:04"))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		left, l.fill(theme.StatusBarStyle, left, right), right)
}

// fill pads the gap between two rendered segments with the bar background.
func (l Layout) fill(bar lipgloss.Style, left, right string) string {
	gap := l.Width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	return lipgloss.NewStyle().
		Width(gap).
		Background(bar.GetBackground()).
		Render("")
}

// RenderWithFrame stacks header, content and status bar.
func (l Layout) RenderWithFrame(header, content, statusBar string) string {
	return lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
}
