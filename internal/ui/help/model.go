package help

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/disposal-planner/internal/keys"
	"github.com/nhle/disposal-planner/internal/model"
	"github.com/nhle/disposal-planner/internal/theme"
)

var hazardLevels = []string{model.HazardCritical, "high", "medium", "low"}

var priorities = []model.Priority{
	model.PriorityCritical,
	model.PriorityHigh,
	model.PriorityMedium,
	model.PriorityLow,
}

// Model is the help overlay: key bindings plus a legend for the badges
// drawn in the disposal list.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	width  int
	height int
}

// New creates a help overlay.
func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width - 4
	h.ShowAll = true
	return Model{keys: keys, help: h, width: width, height: height}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) { return m, nil }

func (m Model) View() string {
	section := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).MarginTop(1)

	content := lipgloss.JoinVertical(lipgloss.Left,
		section.UnsetMarginTop().Render("Keys"),
		m.help.View(m.keys),
		section.Render("Status"),
		legend(statusBadges()),
		section.Render("Priority"),
		legend(priorityBadges()),
		section.Render("Hazard"),
		legend(hazardBadges()),
		theme.DimmedStyle.MarginTop(1).Render("↻ marks a recurring disposal; completing it schedules the next one."),
	)

	return theme.PanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(content)
}

func statusBadges() []string {
	out := make([]string, len(model.Statuses))
	for i, st := range model.Statuses {
		out[i] = theme.StatusStyle(st).Render(string(st))
	}
	return out
}

func priorityBadges() []string {
	out := make([]string, len(priorities))
	for i, p := range priorities {
		out[i] = theme.PriorityStyle(p).Render(fmt.Sprintf("P%d %s", i+1, p))
	}
	return out
}

func hazardBadges() []string {
	out := make([]string, len(hazardLevels))
	for i, h := range hazardLevels {
		out[i] = theme.HazardStyle(h).Render(strings.ToUpper(h))
	}
	return out
}

func legend(badges []string) string {
	return strings.Join(badges, "  ")
}

// SetSize updates the overlay dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
