package schedule

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/nhle/disposal-planner/internal/model"
	"github.com/nhle/disposal-planner/internal/store"
)

// DueReminders lists the reminders of non-terminal entries whose reminder
// time falls in (from, to], ordered by reminder time.
func (s *Service) DueReminders(ctx context.Context, from, to time.Time) ([]model.Reminder, error) {
	if !to.After(from) {
		return nil, invalid("to", "must be after from")
	}

	entries, err := s.repo.ListSchedules(ctx, store.ScheduleFilter{
		ExcludeStatuses: []model.Status{model.StatusCompleted, model.StatusCancelled},
		HasReminders:    true,
	})
	if err != nil {
		return nil, &InfrastructureError{Op: "list reminders", Err: err}
	}

	emails := make(map[string]string)
	var out []model.Reminder
	for _, e := range entries {
		for _, at := range e.ReminderDates {
			if !at.After(from) || at.After(to) {
				continue
			}
			r := model.Reminder{
				ScheduleID:    e.ID,
				RemindAt:      at,
				ScheduledDate: e.ScheduledDate,
				WasteName:     e.WasteName,
				HazardLevel:   e.HazardLevel,
				Priority:      e.Priority,
			}
			if e.AssignedTo != nil {
				r.AssignedTo = e.AssignedToName
				email, err := s.userEmail(ctx, *e.AssignedTo, emails)
				if err != nil {
					return nil, err
				}
				r.AssigneeEmail = email
			}
			out = append(out, r)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RemindAt.Before(out[j].RemindAt)
	})
	return out, nil
}

// userEmail resolves a user's email through cache. A user deleted since the
// entry was assigned has no email.
func (s *Service) userEmail(ctx context.Context, id string, cache map[string]string) (string, error) {
	if email, ok := cache[id]; ok {
		return email, nil
	}
	u, err := s.repo.GetUser(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		cache[id] = ""
	case err != nil:
		return "", &InfrastructureError{Op: "look up user", Err: err}
	default:
		cache[id] = u.Email
	}
	return cache[id], nil
}
