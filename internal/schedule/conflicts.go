package schedule

import (
	"context"
	"time"

	"github.com/nhle/disposal-planner/internal/model"
	"github.com/nhle/disposal-planner/internal/recurrence"
	"github.com/nhle/disposal-planner/internal/store"
)

// ConflictReport describes how loaded a calendar day is.
type ConflictReport struct {
	Date          time.Time                `json:"date"`
	HasConflict   bool                     `json:"has_conflict"`
	Count         int                      `json:"count"`
	CriticalCount int                      `json:"critical_count"`
	MaxPerDay     int                      `json:"max_per_day"`
	Details       []model.DisposalSchedule `json:"details"`
}

// CheckConflicts counts the non-terminal entries on date's calendar day in
// the service timezone. The day has a conflict once the count reaches
// maxPerDay; a non-positive maxPerDay uses the configured ceiling. The check
// is advisory and never blocks persistence.
func (s *Service) CheckConflicts(ctx context.Context, date time.Time, maxPerDay int) (*ConflictReport, error) {
	if maxPerDay <= 0 {
		maxPerDay = s.MaxPerDay()
	}

	start, end := recurrence.DayBounds(date, s.loc)
	entries, err := s.repo.ListSchedules(ctx, store.ScheduleFilter{
		ExcludeStatuses: []model.Status{model.StatusCompleted, model.StatusCancelled},
		From:            &start,
		Before:          &end,
	})
	if err != nil {
		return nil, &InfrastructureError{Op: "check conflicts", Err: err}
	}

	report := &ConflictReport{
		Date:      start,
		Count:     len(entries),
		MaxPerDay: maxPerDay,
		Details:   entries,
	}
	for _, e := range entries {
		if e.IsCritical() {
			report.CriticalCount++
		}
	}
	report.HasConflict = report.Count >= maxPerDay
	return report, nil
}
