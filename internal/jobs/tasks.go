package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/disposal-planner/internal/model"
	"github.com/nhle/disposal-planner/internal/reminder"
)

// OverdueMarker flags past-due entries.
type OverdueMarker interface {
	MarkOverdue(ctx context.Context) (int64, error)
}

// OverdueSweep returns a job that flags entries scheduled before today.
func OverdueSweep(m OverdueMarker) Job {
	return func(ctx context.Context) error {
		_, err := m.MarkOverdue(ctx)
		return err
	}
}

// ReminderSource lists reminders due in (from, to].
type ReminderSource interface {
	DueReminders(ctx context.Context, from, to time.Time) ([]model.Reminder, error)
}

// ReminderDispatch hands due reminders to a notifier. Each run covers the
// window since the previous successful run; the first run looks back by
// the configured backfill.
type ReminderDispatch struct {
	src      ReminderSource
	notifier reminder.Notifier
	log      zerolog.Logger
	now      func() time.Time

	mu   sync.Mutex
	last time.Time
}

// NewReminderDispatch creates a dispatcher whose first window starts
// backfill before now.
func NewReminderDispatch(
	src ReminderSource,
	notifier reminder.Notifier,
	backfill time.Duration,
	log zerolog.Logger,
) *ReminderDispatch {
	return &ReminderDispatch{
		src:      src,
		notifier: notifier,
		log:      log,
		now:      time.Now,
		last:     time.Now().Add(-backfill),
	}
}

// Run dispatches one window. It satisfies Job.
func (d *ReminderDispatch) Run(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if !now.After(d.last) {
		return nil
	}

	due, err := d.src.DueReminders(ctx, d.last, now)
	if err != nil {
		return err
	}
	sent, err := d.notifier.Notify(ctx, due)
	if err != nil {
		return err
	}
	if sent > 0 {
		d.log.Info().Int("sent", sent).Int("due", len(due)).Msg("reminders dispatched")
	}
	d.last = now
	return nil
}
