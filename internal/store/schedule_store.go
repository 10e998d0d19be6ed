package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/disposal-planner/internal/model"
)

// scheduleColumns is the enriched projection shared by every schedule read.
const scheduleColumns = `
	s.id, s.waste_item_id, s.scheduled_date, s.actual_date, s.completed_at,
	s.completed_by, s.assigned_to, s.status, s.priority, s.is_recurring,
	s.recurrence_pattern, s.recurrence_end_date, s.reminder_dates,
	s.notes, s.disposal_method, s.quantity, s.unit,
	s.created_by, s.created_at, s.updated_at,
	COALESCE(wi.name, '') AS waste_name,
	COALESCE(wt.hazard_level, '') AS hazard_level,
	COALESCE(wt.category, '') AS category,
	COALESCE(wt.color, '') AS color,
	COALESCE(wt.icon, '') AS icon,
	COALESCE(au.name, '') AS assigned_to_name,
	COALESCE(cu.name, '') AS created_by_name,
	COALESCE(cb.name, '') AS completed_by_name`

// scheduleJoins attaches the read-only display entities.
const scheduleJoins = `
	FROM disposal_schedules s
	LEFT JOIN waste_items wi ON wi.id = s.waste_item_id
	LEFT JOIN waste_templates wt ON wt.id = wi.template_id
	LEFT JOIN users au ON au.id = s.assigned_to
	LEFT JOIN users cu ON cu.id = s.created_by
	LEFT JOIN users cb ON cb.id = s.completed_by`

// scheduleRow mirrors scheduleColumns for sqlx scanning.
type scheduleRow struct {
	ID                string     `db:"id"`
	WasteItemID       string     `db:"waste_item_id"`
	ScheduledDate     time.Time  `db:"scheduled_date"`
	ActualDate        *time.Time `db:"actual_date"`
	CompletedAt       *time.Time `db:"completed_at"`
	CompletedBy       *string    `db:"completed_by"`
	AssignedTo        *string    `db:"assigned_to"`
	Status            string     `db:"status"`
	Priority          string     `db:"priority"`
	IsRecurring       bool       `db:"is_recurring"`
	RecurrencePattern *string    `db:"recurrence_pattern"`
	RecurrenceEndDate *time.Time `db:"recurrence_end_date"`
	ReminderDates     string     `db:"reminder_dates"`
	Notes             *string    `db:"notes"`
	DisposalMethod    *string    `db:"disposal_method"`
	Quantity          *float64   `db:"quantity"`
	Unit              *string    `db:"unit"`
	CreatedBy         *string    `db:"created_by"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
	WasteName         string     `db:"waste_name"`
	HazardLevel       string     `db:"hazard_level"`
	Category          string     `db:"category"`
	Color             string     `db:"color"`
	Icon              string     `db:"icon"`
	AssignedToName    string     `db:"assigned_to_name"`
	CreatedByName     string     `db:"created_by_name"`
	CompletedByName   string     `db:"completed_by_name"`
}

// toModel converts a scanned row into the domain type.
func (r scheduleRow) toModel() (model.DisposalSchedule, error) {
	reminders, err := decodeTimes(r.ReminderDates)
	if err != nil {
		return model.DisposalSchedule{}, fmt.Errorf("schedule %s: %w", r.ID, err)
	}

	var pattern *model.RecurrencePattern
	if r.RecurrencePattern != nil {
		p := model.RecurrencePattern(*r.RecurrencePattern)
		pattern = &p
	}

	return model.DisposalSchedule{
		ID:                r.ID,
		WasteItemID:       r.WasteItemID,
		ScheduledDate:     r.ScheduledDate,
		ActualDate:        r.ActualDate,
		CompletedAt:       r.CompletedAt,
		CompletedBy:       r.CompletedBy,
		AssignedTo:        r.AssignedTo,
		Status:            model.Status(r.Status),
		Priority:          model.Priority(r.Priority),
		IsRecurring:       r.IsRecurring,
		RecurrencePattern: pattern,
		RecurrenceEndDate: r.RecurrenceEndDate,
		ReminderDates:     reminders,
		Notes:             r.Notes,
		DisposalMethod:    r.DisposalMethod,
		Quantity:          r.Quantity,
		Unit:              r.Unit,
		CreatedBy:         r.CreatedBy,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
		WasteName:         r.WasteName,
		HazardLevel:       r.HazardLevel,
		Category:          r.Category,
		Color:             r.Color,
		Icon:              r.Icon,
		AssignedToName:    r.AssignedToName,
		CreatedByName:     r.CreatedByName,
		CompletedByName:   r.CompletedByName,
	}, nil
}

// CreateSchedule inserts a fully populated schedule entry. The caller
// assigns the ID and timestamps.
func (s *SQLStore) CreateSchedule(ctx context.Context, d model.DisposalSchedule) error {
	if d.ID == "" {
		return fmt.Errorf("schedule id must not be empty")
	}
	reminders, err := encodeTimes(d.ReminderDates)
	if err != nil {
		return err
	}

	var pattern any
	if d.RecurrencePattern != nil {
		pattern = string(*d.RecurrencePattern)
	}

	_, err = s.db.ExecContext(ctx, s.q(`
		INSERT INTO disposal_schedules (
			id, waste_item_id, scheduled_date, actual_date, completed_at,
			completed_by, assigned_to, status, priority, is_recurring,
			recurrence_pattern, recurrence_end_date, reminder_dates,
			notes, disposal_method, quantity, unit,
			created_by, created_at, updated_at
		) VALUES (
			?, ?, ?, ?, ?,
			?, ?, ?, ?, ?,
			?, ?, ?,
			?, ?, ?, ?,
			?, ?, ?
		)`),
		d.ID, d.WasteItemID, d.ScheduledDate.UTC(), nullTime(d.ActualDate), nullTime(d.CompletedAt),
		nullString(d.CompletedBy), nullString(d.AssignedTo), string(d.Status), string(d.Priority), boolToInt(d.IsRecurring),
		pattern, nullTime(d.RecurrenceEndDate), reminders,
		nullString(d.Notes), nullString(d.DisposalMethod), nullFloat(d.Quantity), nullString(d.Unit),
		nullString(d.CreatedBy), d.CreatedAt.UTC(), d.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating schedule: %w", err)
	}
	return nil
}

// GetSchedule retrieves a single enriched schedule entry by ID.
func (s *SQLStore) GetSchedule(ctx context.Context, id string) (*model.DisposalSchedule, error) {
	var row scheduleRow
	err := s.db.GetContext(ctx, &row,
		s.q("SELECT"+scheduleColumns+scheduleJoins+" WHERE s.id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("schedule %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting schedule %s: %w", id, err)
	}

	d, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListSchedules retrieves enriched schedule entries matching the filter,
// ordered by scheduled date ascending.
func (s *SQLStore) ListSchedules(
	ctx context.Context,
	filter ScheduleFilter,
) ([]model.DisposalSchedule, error) {
	where, args := buildScheduleWhere(filter)

	query := "SELECT" + scheduleColumns + scheduleJoins + where +
		" ORDER BY s.scheduled_date ASC, s.created_at ASC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	var rows []scheduleRow
	if err := s.db.SelectContext(ctx, &rows, s.q(query), args...); err != nil {
		return nil, fmt.Errorf("querying schedules: %w", err)
	}

	out := make([]model.DisposalSchedule, 0, len(rows))
	for _, r := range rows {
		d, err := r.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// UpdateSchedule writes the set fields of patch to the entry with the given
// ID and refreshes updated_at.
func (s *SQLStore) UpdateSchedule(
	ctx context.Context,
	id string,
	patch model.SchedulePatch,
	updatedAt time.Time,
) error {
	return s.updateSchedule(ctx, id, patch, updatedAt, false)
}

// UpdateActiveSchedule is UpdateSchedule restricted to entries that are not
// completed or cancelled; it returns ErrNotActive for terminal entries.
func (s *SQLStore) UpdateActiveSchedule(
	ctx context.Context,
	id string,
	patch model.SchedulePatch,
	updatedAt time.Time,
) error {
	return s.updateSchedule(ctx, id, patch, updatedAt, true)
}

func (s *SQLStore) updateSchedule(
	ctx context.Context,
	id string,
	patch model.SchedulePatch,
	updatedAt time.Time,
	activeOnly bool,
) error {
	sets, args, err := buildPatchSet(patch)
	if err != nil {
		return err
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, updatedAt.UTC())

	query := "UPDATE disposal_schedules SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	args = append(args, id)
	if activeOnly {
		query += " AND status NOT IN (?, ?)"
		args = append(args, string(model.StatusCompleted), string(model.StatusCancelled))
	}

	result, err := s.db.ExecContext(ctx, s.q(query), args...)
	if err != nil {
		return fmt.Errorf("updating schedule %s: %w", id, err)
	}
	return s.checkAffected(ctx, result, id)
}

// CompleteSchedule marks a non-terminal entry completed in a single
// conditional UPDATE. It returns ErrNotActive if the entry is already
// completed or cancelled, ErrNotFound if it does not exist.
func (s *SQLStore) CompleteSchedule(ctx context.Context, id string, c Completion) error {
	sets := []string{
		"status = ?", "actual_date = ?", "completed_at = ?",
		"completed_by = ?", "updated_at = ?",
	}
	args := []any{
		string(model.StatusCompleted), c.ActualDate.UTC(), c.CompletedAt.UTC(),
		nullString(c.CompletedBy), c.CompletedAt.UTC(),
	}
	if c.Notes.Set {
		sets = append(sets, "notes = ?")
		args = append(args, nullString(c.Notes.Value))
	}
	args = append(args, id, string(model.StatusCompleted), string(model.StatusCancelled))

	result, err := s.db.ExecContext(ctx, s.q(
		"UPDATE disposal_schedules SET "+strings.Join(sets, ", ")+
			" WHERE id = ? AND status NOT IN (?, ?)"),
		args...,
	)
	if err != nil {
		return fmt.Errorf("completing schedule %s: %w", id, err)
	}
	return s.checkAffected(ctx, result, id)
}

// DeleteSchedule removes a schedule entry by ID.
func (s *SQLStore) DeleteSchedule(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		s.q("DELETE FROM disposal_schedules WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("deleting schedule %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("schedule %s: %w", id, ErrNotFound)
	}
	return nil
}

// MarkOverdue flips scheduled and rescheduled entries planned before the
// given instant to overdue and returns how many rows changed.
func (s *SQLStore) MarkOverdue(ctx context.Context, before, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, s.q(`
		UPDATE disposal_schedules
		SET status = ?, updated_at = ?
		WHERE status IN (?, ?) AND scheduled_date < ?`),
		string(model.StatusOverdue), now.UTC(),
		string(model.StatusScheduled), string(model.StatusRescheduled),
		before.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("marking overdue schedules: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

// checkAffected turns a zero-row conditional update into ErrNotFound or
// ErrNotActive depending on whether the row exists.
func (s *SQLStore) checkAffected(ctx context.Context, result sql.Result, id string) error {
	rows, _ := result.RowsAffected()
	if rows > 0 {
		return nil
	}

	var count int
	if err := s.db.GetContext(ctx, &count,
		s.q("SELECT COUNT(*) FROM disposal_schedules WHERE id = ?"), id); err != nil {
		return fmt.Errorf("checking schedule %s: %w", id, err)
	}
	if count == 0 {
		return fmt.Errorf("schedule %s: %w", id, ErrNotFound)
	}
	return fmt.Errorf("schedule %s: %w", id, ErrNotActive)
}

// buildPatchSet turns the set fields of patch into SET fragments and args.
func buildPatchSet(p model.SchedulePatch) ([]string, []any, error) {
	var sets []string
	var args []any
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	if p.WasteItemID.Set {
		add("waste_item_id", p.WasteItemID.Value)
	}
	if p.ScheduledDate.Set {
		add("scheduled_date", p.ScheduledDate.Value.UTC())
	}
	if p.AssignedTo.Set {
		add("assigned_to", nullString(p.AssignedTo.Value))
	}
	if p.Status.Set {
		add("status", string(p.Status.Value))
	}
	if p.Priority.Set {
		add("priority", string(p.Priority.Value))
	}
	if p.IsRecurring.Set {
		add("is_recurring", boolToInt(p.IsRecurring.Value))
	}
	if p.RecurrencePattern.Set {
		var v any
		if p.RecurrencePattern.Value != nil {
			v = string(*p.RecurrencePattern.Value)
		}
		add("recurrence_pattern", v)
	}
	if p.RecurrenceEndDate.Set {
		add("recurrence_end_date", nullTime(p.RecurrenceEndDate.Value))
	}
	if p.ReminderDates.Set {
		encoded, err := encodeTimes(p.ReminderDates.Value)
		if err != nil {
			return nil, nil, err
		}
		add("reminder_dates", encoded)
	}
	if p.Notes.Set {
		add("notes", nullString(p.Notes.Value))
	}
	if p.DisposalMethod.Set {
		add("disposal_method", nullString(p.DisposalMethod.Value))
	}
	if p.Quantity.Set {
		add("quantity", nullFloat(p.Quantity.Value))
	}
	if p.Unit.Set {
		add("unit", nullString(p.Unit.Value))
	}
	return sets, args, nil
}

// buildScheduleWhere constructs the WHERE clause and args for a ScheduleFilter.
func buildScheduleWhere(filter ScheduleFilter) (string, []any) {
	var conditions []string
	var args []any

	if filter.Status != nil {
		conditions = append(conditions, "s.status = ?")
		args = append(args, string(*filter.Status))
	}
	if len(filter.ExcludeStatuses) > 0 {
		placeholders := make([]string, len(filter.ExcludeStatuses))
		for i, st := range filter.ExcludeStatuses {
			placeholders[i] = "?"
			args = append(args, string(st))
		}
		conditions = append(conditions,
			"s.status NOT IN ("+strings.Join(placeholders, ", ")+")")
	}
	if filter.AssignedTo != nil {
		conditions = append(conditions, "s.assigned_to = ?")
		args = append(args, *filter.AssignedTo)
	}
	if filter.WasteItemID != nil {
		conditions = append(conditions, "s.waste_item_id = ?")
		args = append(args, *filter.WasteItemID)
	}
	if filter.HazardLevel != nil {
		conditions = append(conditions, "wt.hazard_level = ?")
		args = append(args, *filter.HazardLevel)
	}
	if filter.Category != nil {
		conditions = append(conditions, "wt.category = ?")
		args = append(args, *filter.Category)
	}
	if filter.From != nil {
		conditions = append(conditions, "s.scheduled_date >= ?")
		args = append(args, filter.From.UTC())
	}
	if filter.Before != nil {
		conditions = append(conditions, "s.scheduled_date < ?")
		args = append(args, filter.Before.UTC())
	}
	if filter.HasReminders {
		conditions = append(conditions, "s.reminder_dates <> '[]'")
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
