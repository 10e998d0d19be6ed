package schedulelist

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/disposal-planner/internal/keys"
	"github.com/nhle/disposal-planner/internal/model"
	"github.com/nhle/disposal-planner/internal/recurrence"
	"github.com/nhle/disposal-planner/internal/store"
	"github.com/nhle/disposal-planner/internal/theme"
)

// RefreshInterval is how often the list reloads on its own.
var RefreshInterval = 5 * time.Minute

// Lister loads schedule entries.
type Lister interface {
	List(ctx context.Context, filter store.ScheduleFilter) ([]model.DisposalSchedule, error)
}

// SchedulesLoadedMsg is sent when entries have been loaded.
type SchedulesLoadedMsg struct {
	Schedules []model.DisposalSchedule
	Err       error
}

// Action identifies a state change requested on the selected entry.
type Action int

const (
	ActionNone Action = iota
	ActionComplete
	ActionCancel
)

func (a Action) verb() string {
	switch a {
	case ActionComplete:
		return "Complete"
	case ActionCancel:
		return "Cancel"
	default:
		return ""
	}
}

// ActionMsg is sent once the user confirms an action.
type ActionMsg struct {
	Action   Action
	Schedule model.DisposalSchedule
}

// DayLoadMsg asks for the conflict report of the selected entry's day.
type DayLoadMsg struct {
	Date time.Time
}

type refreshMsg time.Time

// statusFilters are cycled by Tab. The empty value lists every active entry.
var statusFilters = []model.Status{
	"",
	model.StatusScheduled,
	model.StatusRescheduled,
	model.StatusOverdue,
	model.StatusCompleted,
	model.StatusCancelled,
}

// Model is the schedule list view component.
type Model struct {
	list        list.Model
	lister      Lister
	keys        *keys.KeyMap
	filterIndex int
	pending     Action
	err         error
	loc         *time.Location
	now         func() time.Time
	loadedAt    time.Time
	width       int
	height      int
}

// New creates a new schedule list model. Dates render in loc.
func New(l Lister, k *keys.KeyMap, loc *time.Location, width, height int) Model {
	return newModel(l, k, loc, time.Now, width, height)
}

func newModel(l Lister, k *keys.KeyMap, loc *time.Location, now func() time.Time, width, height int) Model {
	delegate := ItemDelegate{loc: loc, now: now}
	lm := list.New([]list.Item{}, delegate, width, height-2)
	lm.Title = "Disposals"
	lm.SetShowStatusBar(true)
	lm.SetShowHelp(false)
	lm.SetFilteringEnabled(false)
	lm.Styles.Title = theme.HeaderStyle

	return Model{
		list:   lm,
		lister: l,
		keys:   k,
		loc:    loc,
		now:    now,
		width:  width,
		height: height,
	}
}

// Init loads the first page and starts the refresh timer.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.LoadSchedules(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(RefreshInterval, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

// Update handles messages for the schedule list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case SchedulesLoadedMsg:
		m.err = msg.Err
		if msg.Err != nil {
			return m, nil
		}
		m.loadedAt = m.now()
		items := make([]list.Item, len(msg.Schedules))
		for i, s := range msg.Schedules {
			items[i] = ScheduleItem{Schedule: s}
		}
		return m, m.list.SetItems(items)

	case refreshMsg:
		return m, tea.Batch(m.LoadSchedules(), tick())

	case tea.KeyMsg:
		if m.pending != ActionNone {
			return m.handleConfirmKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) handleConfirmKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		action := m.pending
		m.pending = ActionNone
		sel, ok := m.Selected()
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg {
			return ActionMsg{Action: action, Schedule: sel}
		}

	case key.Matches(msg, m.keys.Back):
		m.pending = ActionNone
	}
	return m, nil
}

func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Complete):
		if sel, ok := m.Selected(); ok && !sel.Status.Terminal() {
			m.pending = ActionComplete
		}
		return m, nil

	case key.Matches(msg, m.keys.Cancel):
		if sel, ok := m.Selected(); ok && !sel.Status.Terminal() {
			m.pending = ActionCancel
		}
		return m, nil

	case key.Matches(msg, m.keys.Conflicts):
		sel, ok := m.Selected()
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg { return DayLoadMsg{Date: sel.ScheduledDate} }

	case key.Matches(msg, m.keys.CycleStatus):
		m.filterIndex = (m.filterIndex + 1) % len(statusFilters)
		return m, m.LoadSchedules()

	case key.Matches(msg, m.keys.Refresh):
		return m, m.LoadSchedules()
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// Filter returns the store filter for the current status selection.
func (m Model) Filter() store.ScheduleFilter {
	st := statusFilters[m.filterIndex]
	if st == "" {
		return store.ScheduleFilter{
			ExcludeStatuses: []model.Status{model.StatusCompleted, model.StatusCancelled},
		}
	}
	return store.ScheduleFilter{Status: &st}
}

// FilterLabel names the current status selection.
func (m Model) FilterLabel() string {
	if st := statusFilters[m.filterIndex]; st != "" {
		return string(st)
	}
	return "active"
}

// Selected returns the focused entry.
func (m Model) Selected() (model.DisposalSchedule, bool) {
	item, ok := m.list.SelectedItem().(ScheduleItem)
	if !ok {
		return model.DisposalSchedule{}, false
	}
	return item.Schedule, true
}

// LoadedAt returns when the list last loaded successfully.
func (m Model) LoadedAt() time.Time { return m.loadedAt }

// Workload counts the loaded entries that are overdue and those still due
// today. An entry is overdue when marked so or when its day has passed
// before the sweep reached it.
func (m Model) Workload() (overdue, dueToday int) {
	start, end := recurrence.DayBounds(m.now(), m.loc)
	for _, it := range m.list.Items() {
		s := it.(ScheduleItem).Schedule
		switch {
		case s.Status.Terminal():
		case s.Status == model.StatusOverdue || s.ScheduledDate.Before(start):
			overdue++
		case s.ScheduledDate.Before(end):
			dueToday++
		}
	}
	return overdue, dueToday
}

// Confirming reports whether a confirmation prompt is open.
func (m Model) Confirming() bool { return m.pending != ActionNone }

// View renders the schedule list view.
func (m Model) View() string {
	if m.err != nil {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Render(theme.ErrorStyle.Render("Loading failed: " + m.err.Error()))
	}

	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}

	if m.pending != ActionNone {
		sel, _ := m.Selected()
		prompt := lipgloss.NewStyle().
			Foreground(theme.ColorYellow).
			Bold(true).
			Padding(0, 1).
			Render(fmt.Sprintf("%s %q? (y/n)", m.pending.verb(), ScheduleItem{Schedule: sel}.Title()))
		return lipgloss.JoinVertical(lipgloss.Left, prompt, m.list.View())
	}

	return m.list.View()
}

func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	return style.Render(fmt.Sprintf(
		"No %s disposals.\n\nPress tab to change the status filter.",
		m.FilterLabel(),
	))
}

// LoadSchedules returns a tea.Cmd that queries entries with the current filter.
func (m Model) LoadSchedules() tea.Cmd {
	filter := m.Filter()
	l := m.lister
	return func() tea.Msg {
		out, err := l.List(context.Background(), filter)
		return SchedulesLoadedMsg{Schedules: out, Err: err}
	}
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
}
