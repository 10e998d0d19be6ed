package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/disposal-planner/internal/model"
)

type fakeMarker struct {
	calls int
	err   error
}

func (f *fakeMarker) MarkOverdue(context.Context) (int64, error) {
	f.calls++
	return 2, f.err
}

type fakeSource struct {
	windows [][2]time.Time
	out     []model.Reminder
	err     error
}

func (f *fakeSource) DueReminders(_ context.Context, from, to time.Time) ([]model.Reminder, error) {
	f.windows = append(f.windows, [2]time.Time{from, to})
	return f.out, f.err
}

type fakeNotifier struct {
	got []model.Reminder
}

func (f *fakeNotifier) Notify(_ context.Context, rs []model.Reminder) (int, error) {
	f.got = append(f.got, rs...)
	return len(rs), nil
}

func TestOverdueSweep(t *testing.T) {
	m := &fakeMarker{}
	require.NoError(t, OverdueSweep(m)(context.Background()))
	assert.Equal(t, 1, m.calls)

	m.err = errors.New("db down")
	assert.Error(t, OverdueSweep(m)(context.Background()))
}

func TestReminderDispatchAdvancesWindow(t *testing.T) {
	src := &fakeSource{out: []model.Reminder{{ScheduleID: "a"}}}
	n := &fakeNotifier{}
	d := NewReminderDispatch(src, n, time.Hour, zerolog.Nop())

	t0 := time.Date(2025, time.January, 6, 12, 0, 0, 0, time.UTC)
	d.last = t0.Add(-time.Hour)
	d.now = func() time.Time { return t0 }
	require.NoError(t, d.Run(context.Background()))

	t1 := t0.Add(5 * time.Minute)
	d.now = func() time.Time { return t1 }
	require.NoError(t, d.Run(context.Background()))

	require.Len(t, src.windows, 2)
	assert.Equal(t, t0.Add(-time.Hour), src.windows[0][0])
	assert.Equal(t, t0, src.windows[1][0], "second window starts where the first ended")
	assert.Equal(t, t1, src.windows[1][1])
	assert.Len(t, n.got, 2)
}

func TestReminderDispatchRetriesWindowAfterFailure(t *testing.T) {
	src := &fakeSource{err: errors.New("timeout")}
	d := NewReminderDispatch(src, &fakeNotifier{}, time.Hour, zerolog.Nop())
	start := d.last

	assert.Error(t, d.Run(context.Background()))
	assert.Equal(t, start, d.last)
}

func TestRunnerRejectsBadSpec(t *testing.T) {
	r := NewRunner(time.UTC, time.Minute, zerolog.Nop())
	assert.Error(t, r.Add("broken", "every now and then", OverdueSweep(&fakeMarker{})))

	require.NoError(t, r.Add("sweep", "@every 15m", OverdueSweep(&fakeMarker{})))
	assert.Equal(t, 1, r.Len())

	r.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r.Stop(ctx)
}
