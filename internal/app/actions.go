package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/disposal-planner/internal/model"
	"github.com/nhle/disposal-planner/internal/schedule"
	"github.com/nhle/disposal-planner/internal/theme"
	"github.com/nhle/disposal-planner/internal/ui/schedulelist"
)

// resultMsg reports the outcome of a state change for the header.
type resultMsg struct {
	text string
	err  bool
}

type dayLoadedMsg struct {
	report *schedule.ConflictReport
	err    error
}

type formOptionsLoadedMsg struct {
	items []model.WasteItem
	users []model.User
	err   error
}

func (m *Model) runAction(a schedulelist.ActionMsg) tea.Cmd {
	b := m.backend
	loc := b.Location()
	return func() tea.Msg {
		ctx := context.Background()
		name := schedulelist.ScheduleItem{Schedule: a.Schedule}.Title()

		switch a.Action {
		case schedulelist.ActionComplete:
			res, err := b.Complete(ctx, a.Schedule.ID, schedule.CompleteOptions{})
			if err != nil {
				return resultMsg{text: err.Error(), err: true}
			}
			return completionNotice(name, res, loc)

		case schedulelist.ActionCancel:
			if _, err := b.Cancel(ctx, a.Schedule.ID, nil); err != nil {
				return resultMsg{text: err.Error(), err: true}
			}
			return resultMsg{text: "cancelled " + name}
		}
		return nil
	}
}

func completionNotice(name string, res *schedule.CompletionResult, loc *time.Location) resultMsg {
	switch {
	case res.SuccessorError != nil:
		return resultMsg{
			text: fmt.Sprintf("completed %s; next occurrence not created: %v", name, res.SuccessorError),
			err:  true,
		}
	case res.Successor != nil:
		return resultMsg{text: fmt.Sprintf("completed %s; next on %s",
			name, res.Successor.ScheduledDate.In(loc).Format("Mon Jan 02"))}
	default:
		return resultMsg{text: "completed " + name}
	}
}

// create persists c and warns when the day is already at its ceiling.
func (m *Model) create(c schedule.Candidate) tea.Cmd {
	b := m.backend
	return func() tea.Msg {
		ctx := context.Background()
		d, err := b.Create(ctx, c)
		if err != nil {
			return resultMsg{text: err.Error(), err: true}
		}

		name := schedulelist.ScheduleItem{Schedule: *d}.Title()
		report, err := b.CheckConflicts(ctx, d.ScheduledDate, 0)
		if err == nil && report.HasConflict {
			return resultMsg{text: fmt.Sprintf("created %s; day has %d of %d disposals",
				name, report.Count, report.MaxPerDay)}
		}
		return resultMsg{text: "created " + name}
	}
}

func (m *Model) loadDay(date time.Time) tea.Cmd {
	b := m.backend
	return func() tea.Msg {
		report, err := b.CheckConflicts(context.Background(), date, 0)
		return dayLoadedMsg{report: report, err: err}
	}
}

func (m *Model) loadFormOptions() tea.Cmd {
	d := m.directory
	return func() tea.Msg {
		ctx := context.Background()
		items, err := d.ListWasteItems(ctx)
		if err != nil {
			return formOptionsLoadedMsg{err: err}
		}
		if len(items) == 0 {
			return formOptionsLoadedMsg{err: fmt.Errorf("no waste items; import reference data first")}
		}
		users, err := d.ListUsers(ctx)
		if err != nil {
			return formOptionsLoadedMsg{err: err}
		}
		return formOptionsLoadedMsg{items: items, users: users}
	}
}

func (m Model) renderDayLoad() string {
	r := m.dayLoad
	if r == nil {
		return ""
	}
	loc := m.backend.Location()

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).MarginBottom(1)
	title := titleStyle.Render(fmt.Sprintf("%s: %d of %d disposals",
		r.Date.In(loc).Format("Monday, Jan 02 2006"), r.Count, r.MaxPerDay))

	var b strings.Builder
	if r.HasConflict {
		b.WriteString(theme.ErrorStyle.Render("Day is at or over capacity") + "\n")
	}
	if r.CriticalCount > 0 {
		b.WriteString(theme.HazardStyle(model.HazardCritical).
			Render(fmt.Sprintf("%d critical", r.CriticalCount)) + "\n")
	}
	for _, d := range r.Details {
		fmt.Fprintf(&b, "%s  %s  %s\n",
			d.ScheduledDate.In(loc).Format("15:04"),
			theme.StatusStyle(d.Status).Render(string(d.Status)),
			schedulelist.ScheduleItem{Schedule: d}.Title())
	}

	w := m.layout.ContentWidth() - 4
	if w < 20 {
		w = 20
	}
	return theme.PanelStyle.
		Width(w).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, b.String()))
}
