package app

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/disposal-planner/internal/keys"
	"github.com/nhle/disposal-planner/internal/model"
	"github.com/nhle/disposal-planner/internal/schedule"
	"github.com/nhle/disposal-planner/internal/store"
	"github.com/nhle/disposal-planner/internal/ui"
	helpview "github.com/nhle/disposal-planner/internal/ui/help"
	"github.com/nhle/disposal-planner/internal/ui/scheduleform"
	"github.com/nhle/disposal-planner/internal/ui/schedulelist"
)

// Backend is the schedule engine surface the UI drives.
type Backend interface {
	List(ctx context.Context, filter store.ScheduleFilter) ([]model.DisposalSchedule, error)
	Create(ctx context.Context, c schedule.Candidate) (*model.DisposalSchedule, error)
	Complete(ctx context.Context, id string, opts schedule.CompleteOptions) (*schedule.CompletionResult, error)
	Cancel(ctx context.Context, id string, notes *string) (*model.DisposalSchedule, error)
	CheckConflicts(ctx context.Context, date time.Time, maxPerDay int) (*schedule.ConflictReport, error)
	Location() *time.Location
}

// Directory lists the reference data offered by the create form.
type Directory interface {
	ListWasteItems(ctx context.Context) ([]model.WasteItem, error)
	ListUsers(ctx context.Context) ([]model.User, error)
}

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewList ViewState = iota
	ViewHelp
	ViewCreate
	ViewDayLoad
)

// Model is the root Bubble Tea model that manages view routing and layout.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	backend      Backend
	directory    Directory
	keys         *keys.KeyMap
	scheduleList schedulelist.Model
	helpView     helpview.Model
	formView     scheduleform.Model
	dayLoad      *schedule.ConflictReport
	notice       string
	noticeErr    bool
	ready        bool
}

// New creates a new root application model.
func New(b Backend, d Directory) Model {
	k := keys.DefaultKeyMap()
	loc := b.Location()

	return Model{
		currentView:  ViewList,
		backend:      b,
		directory:    d,
		keys:         k,
		scheduleList: schedulelist.New(b, k, loc, 80, 24),
		helpView:     helpview.New(k, 80, 24),
		formView:     scheduleform.New(loc, 80, 24),
	}
}

// Init loads the list and starts its refresh timer.
func (m Model) Init() tea.Cmd {
	return m.scheduleList.Init()
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.scheduleList.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.formView.SetSize(w, h)
		// Forward to the active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case schedulelist.ActionMsg:
		return m, m.runAction(msg)

	case schedulelist.DayLoadMsg:
		return m, m.loadDay(msg.Date)

	case dayLoadedMsg:
		if msg.err != nil {
			m.setNotice(msg.err.Error(), true)
			return m, nil
		}
		m.dayLoad = msg.report
		m.previousView = m.currentView
		m.currentView = ViewDayLoad
		return m, nil

	case formOptionsLoadedMsg:
		if msg.err != nil {
			m.currentView = ViewList
			m.setNotice(msg.err.Error(), true)
			return m, nil
		}
		m.formView.SetOptions(msg.items, msg.users)
		return m, m.formView.Start()

	case scheduleform.SubmittedMsg:
		m.currentView = ViewList
		return m, m.create(msg.Candidate)

	case scheduleform.CancelMsg:
		m.currentView = ViewList
		return m, nil

	case resultMsg:
		m.setNotice(msg.text, msg.err)
		return m, m.scheduleList.LoadSchedules()

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		switch m.currentView {
		case ViewList:
			if m.scheduleList.Confirming() {
				break
			}
			switch {
			case key.Matches(msg, m.keys.Quit):
				return m, tea.Quit
			case key.Matches(msg, m.keys.Help):
				m.previousView = m.currentView
				m.currentView = ViewHelp
				return m, nil
			case msg.String() == "n":
				m.previousView = m.currentView
				m.currentView = ViewCreate
				m.notice = ""
				return m, m.loadFormOptions()
			}

		case ViewCreate:
			if msg.String() == "esc" {
				m.currentView = ViewList
				return m, nil
			}

		case ViewHelp:
			if key.Matches(msg, m.keys.Help, m.keys.Back) {
				m.currentView = m.previousView
				return m, nil
			}

		case ViewDayLoad:
			if key.Matches(msg, m.keys.Back, m.keys.Conflicts) {
				m.currentView = ViewList
				m.dayLoad = nil
				return m, nil
			}
		}
	}

	return m.updateActiveView(msg)
}

// updateActiveView dispatches the message to the currently active view.
// Timer and load messages always reach the list so its refresh loop
// survives while another view is open.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCreate:
		if _, isKey := msg.(tea.KeyMsg); !isKey {
			var listCmd tea.Cmd
			m.scheduleList, listCmd = m.scheduleList.Update(msg)
			m.formView, cmd = m.formView.Update(msg)
			return m, tea.Batch(cmd, listCmd)
		}
		m.formView, cmd = m.formView.Update(msg)
	case ViewDayLoad:
		if _, isKey := msg.(tea.KeyMsg); !isKey {
			m.scheduleList, cmd = m.scheduleList.Update(msg)
		}
	default:
		m.scheduleList, cmd = m.scheduleList.Update(msg)
	}

	return m, cmd
}

func (m *Model) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeErr = isErr
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("Disposal Planner", m.summary())
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.keyHints(), m.scheduleList.LoadedAt(), m.backend.Location())

	return m.layout.RenderWithFrame(header, content, statusBar)
}

func (m Model) renderContent() string {
	switch m.currentView {
	case ViewHelp:
		return m.helpView.View()
	case ViewCreate:
		return m.formView.View()
	case ViewDayLoad:
		return m.renderDayLoad()
	default:
		return m.scheduleList.View()
	}
}

func (m Model) summary() ui.Summary {
	overdue, today := m.scheduleList.Workload()
	return ui.Summary{
		Filter:    m.scheduleList.FilterLabel(),
		Overdue:   overdue,
		DueToday:  today,
		Notice:    m.notice,
		NoticeErr: m.noticeErr,
	}
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCreate:
		return "enter next | shift+tab previous | esc cancel"
	case ViewDayLoad:
		return "esc back"
	default:
		if m.scheduleList.Confirming() {
			return "y confirm | n/esc back"
		}
		return "q quit | ? help | n new | c complete | x cancel | v day load | tab status | r refresh"
	}
}
