package scheduleform

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/disposal-planner/internal/model"
	"github.com/nhle/disposal-planner/internal/schedule"
	"github.com/nhle/disposal-planner/internal/theme"
)

// DateTimeLayout is the format the date field accepts besides a bare date.
const DateTimeLayout = "2006-01-02 15:04"

// SubmittedMsg is dispatched when the form is completed.
type SubmittedMsg struct {
	Candidate schedule.Candidate
}

// CancelMsg is dispatched when the user aborts the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	wasteItemID string
	date        string
	priority    model.Priority
	assignedTo  string
	recurring   bool
	pattern     model.RecurrencePattern
	endDate     string
	quantity    string
	unit        string
	notes       string
}

// Model is the Bubble Tea model for the new-disposal form.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	items  []model.WasteItem
	users  []model.User
	loc    *time.Location
	width  int
	height int
}

// New creates a new form model. Dates are read in loc.
func New(loc *time.Location, width, height int) Model {
	return Model{
		fb:     &formBindings{priority: model.PriorityMedium, pattern: model.RecurrenceWeekly},
		loc:    loc,
		width:  width,
		height: height,
	}
}

// SetOptions sets the waste items and users offered by the selectors.
func (m *Model) SetOptions(items []model.WasteItem, users []model.User) {
	m.items = items
	m.users = users
}

// Start resets the fields and builds a fresh form.
func (m *Model) Start() tea.Cmd {
	*m.fb = formBindings{priority: model.PriorityMedium, pattern: model.RecurrenceWeekly}
	m.form = m.build().WithWidth(m.formWidth()).WithHeight(m.formHeight())
	return m.form.Init()
}

// Run shows the form outside a Bubble Tea program and returns the candidate.
func Run(items []model.WasteItem, users []model.User, loc *time.Location) (schedule.Candidate, error) {
	if len(items) == 0 {
		return schedule.Candidate{}, fmt.Errorf("no waste items to choose from")
	}
	m := New(loc, 80, 24)
	m.SetOptions(items, users)
	if err := m.build().Run(); err != nil {
		return schedule.Candidate{}, err
	}
	return m.candidate()
}

// Update handles messages for the form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		c, err := m.candidate()
		if err != nil {
			c = schedule.RejectedCandidate(err)
		}
		return m, func() tea.Msg { return SubmittedMsg{Candidate: c} }
	case huh.StateAborted:
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render("New Disposal") + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) build() *huh.Form {
	itemOpts := make([]huh.Option[string], len(m.items))
	for i, it := range m.items {
		itemOpts[i] = huh.NewOption(it.Name, it.ID)
	}

	userOpts := []huh.Option[string]{huh.NewOption("Unassigned", "")}
	for _, u := range m.users {
		userOpts = append(userOpts, huh.NewOption(u.Name, u.ID))
	}

	patternOpts := make([]huh.Option[model.RecurrencePattern], len(model.RecurrencePatterns))
	for i, p := range model.RecurrencePatterns {
		patternOpts[i] = huh.NewOption(string(p), p)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Waste item").
				Options(itemOpts...).
				Value(&m.fb.wasteItemID),
			huh.NewInput().
				Title("Scheduled").
				Placeholder("YYYY-MM-DD or YYYY-MM-DD HH:MM").
				Value(&m.fb.date).
				Validate(m.validateDate(true)),
			huh.NewSelect[model.Priority]().
				Title("Priority").
				Options(
					huh.NewOption("Critical", model.PriorityCritical),
					huh.NewOption("High", model.PriorityHigh),
					huh.NewOption("Medium", model.PriorityMedium),
					huh.NewOption("Low", model.PriorityLow),
				).
				Value(&m.fb.priority),
			huh.NewSelect[string]().
				Title("Assigned to").
				Options(userOpts...).
				Value(&m.fb.assignedTo),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Quantity").
				Placeholder("optional").
				Value(&m.fb.quantity).
				Validate(validateQuantity),
			huh.NewInput().
				Title("Unit").
				Placeholder("L, kg, containers...").
				Value(&m.fb.unit),
			huh.NewText().
				Title("Notes").
				Value(&m.fb.notes),
			huh.NewConfirm().
				Title("Recurring?").
				Value(&m.fb.recurring),
		),
		huh.NewGroup(
			huh.NewSelect[model.RecurrencePattern]().
				Title("Repeats").
				Options(patternOpts...).
				Value(&m.fb.pattern),
			huh.NewInput().
				Title("Until").
				Placeholder("YYYY-MM-DD (optional)").
				Value(&m.fb.endDate).
				Validate(m.validateDate(false)),
		).WithHideFunc(func() bool { return !m.fb.recurring }),
	)
}

func (m Model) candidate() (schedule.Candidate, error) {
	fb := m.fb
	at, err := parseDate(fb.date, m.loc)
	if err != nil {
		return schedule.Candidate{}, err
	}

	c := schedule.Candidate{
		WasteItemID:   fb.wasteItemID,
		ScheduledDate: &at,
		Priority:      fb.priority,
		AssignedTo:    optString(fb.assignedTo),
		Notes:         optString(fb.notes),
		Unit:          optString(fb.unit),
	}

	if q := strings.TrimSpace(fb.quantity); q != "" {
		v, err := strconv.ParseFloat(q, 64)
		if err != nil {
			return schedule.Candidate{}, fmt.Errorf("quantity: %w", err)
		}
		c.Quantity = &v
	}

	if fb.recurring {
		p := fb.pattern
		c.IsRecurring = true
		c.RecurrencePattern = &p
		if strings.TrimSpace(fb.endDate) != "" {
			end, err := parseDate(fb.endDate, m.loc)
			if err != nil {
				return schedule.Candidate{}, err
			}
			c.RecurrenceEndDate = &end
		}
	}

	return c, nil
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 4
	if h < 10 {
		h = 10
	}
	return h
}

func (m Model) validateDate(required bool) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			if required {
				return fmt.Errorf("date is required")
			}
			return nil
		}
		_, err := parseDate(s, m.loc)
		return err
	}
}

func validateQuantity(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return fmt.Errorf("quantity must be a non-negative number")
	}
	return nil
}

// parseDate reads a bare date as midnight in loc.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{DateTimeLayout, "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q, use YYYY-MM-DD or YYYY-MM-DD HH:MM", s)
}

func optString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
