package schedulelist

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/disposal-planner/internal/model"
	"github.com/nhle/disposal-planner/internal/recurrence"
	"github.com/nhle/disposal-planner/internal/theme"
)

// ScheduleItem wraps a model.DisposalSchedule so it can be used in a bubbles/list.
type ScheduleItem struct {
	Schedule model.DisposalSchedule
}

// FilterValue returns the string used for fuzzy filtering.
func (i ScheduleItem) FilterValue() string { return i.Title() }

// Title returns the waste name, falling back to the item id.
func (i ScheduleItem) Title() string {
	if i.Schedule.WasteName != "" {
		return i.Schedule.WasteName
	}
	return i.Schedule.WasteItemID
}

// Description returns a short summary line for the list.
func (i ScheduleItem) Description() string {
	parts := []string{
		string(i.Schedule.Status),
		string(i.Schedule.Priority),
		i.Schedule.ScheduledDate.Format("2006-01-02"),
	}
	return strings.Join(parts, " | ")
}

// ItemDelegate implements list.ItemDelegate for rendering schedule entries.
type ItemDelegate struct {
	loc *time.Location
	now func() time.Time
}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single list item line.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	si, ok := item.(ScheduleItem)
	if !ok {
		return
	}
	fmt.Fprint(w, d.renderLine(si.Schedule, index == m.Index()))
}

func (d ItemDelegate) renderLine(s model.DisposalSchedule, isSelected bool) string {
	var prefix string
	switch s.Status {
	case model.StatusCompleted:
		prefix = "✓"
	case model.StatusCancelled:
		prefix = "✗"
	default:
		prefix = "○"
	}

	statusBadge := theme.StatusStyle(s.Status).Render(string(s.Status))
	priBadge := theme.PriorityStyle(s.Priority).Render(priorityLabel(s.Priority))

	hazardBadge := ""
	if s.HazardLevel != "" {
		hazardBadge = " " + theme.HazardStyle(s.HazardLevel).Render(strings.ToUpper(s.HazardLevel))
	}

	title := ScheduleItem{Schedule: s}.Title()

	at := s.ScheduledDate.In(d.loc)
	dateStr := theme.DateStyle.Render(" " + at.Format("Mon Jan 02 15:04"))
	due := ""
	if !s.Status.Terminal() {
		due = " " + dueLabel(s.ScheduledDate, d.now(), d.loc)
	}

	recurring := ""
	if s.IsRecurring && s.RecurrencePattern != nil {
		recurring = theme.RecurringStyle.Render(" ↻ " + string(*s.RecurrencePattern))
	}

	assignee := ""
	if s.AssignedToName != "" {
		assignee = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Render(" @" + s.AssignedToName)
	}

	line := fmt.Sprintf(
		"%s %s %s%s %s%s%s%s%s",
		prefix, statusBadge, priBadge, hazardBadge, title,
		dateStr, due, recurring, assignee,
	)

	if s.Status.Terminal() {
		line = theme.DimmedStyle.Render(line)
	}

	if isSelected {
		return theme.SelectedItemStyle.Render(line)
	}
	return theme.ListItemStyle.Render(line)
}

// dueLabel describes how far the scheduled calendar day is from today.
func dueLabel(at, now time.Time, loc *time.Location) string {
	day := recurrence.StartOfDay(at, loc)
	today := recurrence.StartOfDay(now, loc)

	// DST days are 23 or 25 hours long.
	days := int(math.Round(day.Sub(today).Hours() / 24))

	switch {
	case days == 0:
		return "today"
	case days == 1:
		return "tomorrow"
	case days == -1:
		return "1d late"
	case days < 0:
		return fmt.Sprintf("%dd late", -days)
	case days < 7:
		return fmt.Sprintf("in %dd", days)
	default:
		return fmt.Sprintf("in %dw", days/7)
	}
}

// priorityLabel returns a short label for the given priority.
func priorityLabel(p model.Priority) string {
	switch p {
	case model.PriorityCritical:
		return "P1"
	case model.PriorityHigh:
		return "P2"
	case model.PriorityMedium:
		return "P3"
	case model.PriorityLow:
		return "P4"
	default:
		return "P?"
	}
}
