package schedule_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/disposal-planner/internal/model"
	"github.com/nhle/disposal-planner/internal/schedule"
	"github.com/nhle/disposal-planner/internal/store"
	"github.com/nhle/disposal-planner/tests/testutil"
)

var fixedNow = time.Date(2025, time.January, 6, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 0, 0, 0, time.UTC)
}

func newService(t *testing.T, repo schedule.Repository) *schedule.Service {
	t.Helper()
	svc, err := schedule.NewService(repo,
		model.ScheduleConfig{Timezone: "UTC", MaxPerDay: 3},
		schedule.WithClock(func() time.Time { return fixedNow }),
	)
	require.NoError(t, err)
	return svc
}

func setup(t *testing.T) (*schedule.Service, *store.SQLStore) {
	t.Helper()
	s := testutil.NewTestStore(t)
	testutil.Seed(t, s)
	return newService(t, s), s
}

func weekly(at time.Time, end *time.Time) schedule.Candidate {
	return schedule.Candidate{
		WasteItemID:       testutil.ItemAcetone,
		ScheduledDate:     &at,
		AssignedTo:        ptr(testutil.UserAlice),
		Priority:          model.PriorityHigh,
		IsRecurring:       true,
		RecurrencePattern: ptr(model.RecurrenceWeekly),
		RecurrenceEndDate: end,
		ReminderDates:     []time.Time{at.Add(-24 * time.Hour)},
		Notes:             ptr("seal before pickup"),
		DisposalMethod:    ptr("incineration"),
		Quantity:          ptr(20.0),
		Unit:              ptr("L"),
		CreatedBy:         ptr(testutil.UserBob),
	}
}

func TestCreateAppliesDefaultsAndEnriches(t *testing.T) {
	svc, _ := setup(t)
	at := day(2025, time.January, 8)

	d, err := svc.Create(context.Background(), schedule.Candidate{
		WasteItemID:   testutil.ItemNeedles,
		ScheduledDate: &at,
		AssignedTo:    ptr(testutil.UserAlice),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, d.ID)
	assert.Equal(t, model.StatusScheduled, d.Status)
	assert.Equal(t, model.PriorityMedium, d.Priority)
	assert.False(t, d.IsRecurring)
	assert.NotNil(t, d.ReminderDates)
	assert.Empty(t, d.ReminderDates)
	assert.Equal(t, "Needle container", d.WasteName)
	assert.Equal(t, "Alice", d.AssignedToName)
	assert.True(t, fixedNow.Equal(d.CreatedAt))
}

func TestCreateValidation(t *testing.T) {
	svc, _ := setup(t)
	at := day(2025, time.January, 8)

	cases := []struct {
		name  string
		c     schedule.Candidate
		field string
	}{
		{"missing waste item", schedule.Candidate{ScheduledDate: &at}, "waste_item_id"},
		{"missing date", schedule.Candidate{WasteItemID: testutil.ItemAcetone}, "scheduled_date"},
		{"bad priority", schedule.Candidate{WasteItemID: testutil.ItemAcetone, ScheduledDate: &at, Priority: "urgent"}, "priority"},
		{"bad status", schedule.Candidate{WasteItemID: testutil.ItemAcetone, ScheduledDate: &at, Status: "done"}, "status"},
		{"bad pattern", schedule.Candidate{WasteItemID: testutil.ItemAcetone, ScheduledDate: &at, IsRecurring: true, RecurrencePattern: ptr(model.RecurrencePattern("hourly"))}, "recurrence_pattern"},
		{"recurring without pattern", schedule.Candidate{WasteItemID: testutil.ItemAcetone, ScheduledDate: &at, IsRecurring: true}, "recurrence_pattern"},
		{"pattern without recurring", schedule.Candidate{WasteItemID: testutil.ItemAcetone, ScheduledDate: &at, RecurrencePattern: ptr(model.RecurrenceDaily)}, "recurrence_pattern"},
		{"negative quantity", schedule.Candidate{WasteItemID: testutil.ItemAcetone, ScheduledDate: &at, Quantity: ptr(-1.0)}, "quantity"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tc.c)
			var ve *schedule.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func TestCreateReferentialChecks(t *testing.T) {
	svc, _ := setup(t)
	at := day(2025, time.January, 8)

	_, err := svc.Create(context.Background(), schedule.Candidate{WasteItemID: "ghost", ScheduledDate: &at})
	var re *schedule.ReferentialError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "waste_item_id", re.Field)

	_, err = svc.Create(context.Background(), schedule.Candidate{
		WasteItemID:   testutil.ItemAcetone,
		ScheduledDate: &at,
		AssignedTo:    ptr("ghost"),
	})
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "assigned_to", re.Field)
}

func TestDecodeCandidateMalformedReminders(t *testing.T) {
	svc, _ := setup(t)

	c := schedule.DecodeCandidate([]byte(`{
		"waste_item_id": "item-acetone",
		"scheduled_date": "2025-01-08T09:00:00Z",
		"reminder_dates": "tomorrow"
	}`))
	_, err := svc.Create(context.Background(), c)

	var ve *schedule.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "reminder_dates", ve.Field)
}

func TestGetNotFound(t *testing.T) {
	svc, _ := setup(t)

	_, err := svc.Get(context.Background(), "missing")
	var nf *schedule.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdatePartial(t *testing.T) {
	s := testutil.NewTestStore(t)
	testutil.Seed(t, s)
	now := fixedNow
	svc, err := schedule.NewService(s, model.ScheduleConfig{Timezone: "UTC", MaxPerDay: 3},
		schedule.WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	ctx := context.Background()

	created, err := svc.Create(ctx, weekly(day(2025, time.January, 6), nil))
	require.NoError(t, err)

	later := fixedNow.Add(time.Hour)
	now = later

	updated, err := svc.Update(ctx, created.ID, model.SchedulePatch{
		Priority:   model.Some(model.PriorityCritical),
		AssignedTo: model.Null[*string](),
	})
	require.NoError(t, err)
	assert.Equal(t, model.PriorityCritical, updated.Priority)
	assert.Nil(t, updated.AssignedTo)
	assert.Equal(t, "seal before pickup", *updated.Notes)
	assert.True(t, later.Equal(updated.UpdatedAt))
}

func TestUpdateRejectsCompletionAndUnknownIDs(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	created, err := svc.Create(ctx, weekly(day(2025, time.January, 6), nil))
	require.NoError(t, err)

	_, err = svc.Update(ctx, created.ID, model.SchedulePatch{Status: model.Some(model.StatusCompleted)})
	var ve *schedule.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "status", ve.Field)

	_, err = svc.Update(ctx, "missing", model.SchedulePatch{Priority: model.Some(model.PriorityLow)})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = svc.Update(ctx, created.ID, model.SchedulePatch{IsRecurring: model.Some(true), RecurrencePattern: model.Null[*model.RecurrencePattern]()})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "recurrence_pattern", ve.Field)
}

func TestUpdateCannotReopenTerminalEntries(t *testing.T) {
	svc, s := setup(t)
	ctx := context.Background()
	end := day(2025, time.March, 1)
	created, err := svc.Create(ctx, weekly(day(2025, time.January, 6), &end))
	require.NoError(t, err)

	res, err := svc.Complete(ctx, created.ID, schedule.CompleteOptions{})
	require.NoError(t, err)
	require.NotNil(t, res.Successor)

	for _, st := range []model.Status{model.StatusScheduled, model.StatusRescheduled, model.StatusOverdue, model.StatusCancelled} {
		_, err = svc.Update(ctx, created.ID, model.SchedulePatch{Status: model.Some(st)})
		assert.ErrorIs(t, err, schedule.ErrInvalidTransition, "status %s", st)
	}

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)

	_, err = svc.Complete(ctx, created.ID, schedule.CompleteOptions{})
	assert.ErrorIs(t, err, schedule.ErrInvalidTransition)

	all, err := s.ListSchedules(ctx, store.ScheduleFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2, "one successor only")

	updated, err := svc.Update(ctx, created.ID, model.SchedulePatch{Notes: model.Some(ptr("manifest filed"))})
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, updated.Status)
	assert.Equal(t, "manifest filed", *updated.Notes)

	cancelled, err := svc.Cancel(ctx, res.Successor.ID, nil)
	require.NoError(t, err)
	_, err = svc.Update(ctx, cancelled.ID, model.SchedulePatch{Status: model.Some(model.StatusScheduled)})
	assert.ErrorIs(t, err, schedule.ErrInvalidTransition)
}

func TestUpdateTurningRecurrenceOffClearsPattern(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	end := day(2025, time.March, 1)
	created, err := svc.Create(ctx, weekly(day(2025, time.January, 6), &end))
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, model.SchedulePatch{IsRecurring: model.Some(false)})
	require.NoError(t, err)
	assert.False(t, updated.IsRecurring)
	assert.Nil(t, updated.RecurrencePattern)
	assert.Nil(t, updated.RecurrenceEndDate)
}

func TestCompleteNonRecurringHasNoSuccessor(t *testing.T) {
	svc, s := setup(t)
	ctx := context.Background()
	at := day(2025, time.January, 6)
	created, err := svc.Create(ctx, schedule.Candidate{WasteItemID: testutil.ItemNeedles, ScheduledDate: &at})
	require.NoError(t, err)

	res, err := svc.Complete(ctx, created.ID, schedule.CompleteOptions{Notes: ptr("done early")})
	require.NoError(t, err)

	assert.Equal(t, model.StatusCompleted, res.Schedule.Status)
	require.NotNil(t, res.Schedule.ActualDate)
	assert.True(t, fixedNow.Equal(*res.Schedule.ActualDate), "actual date defaults to now")
	assert.Equal(t, "done early", *res.Schedule.Notes)
	assert.Nil(t, res.NextOccurrenceDate)
	assert.Nil(t, res.Successor)

	all, err := s.ListSchedules(ctx, store.ScheduleFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCompleteWeeklyPastEndDateCreatesNoSuccessor(t *testing.T) {
	svc, s := setup(t)
	ctx := context.Background()
	end := time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)
	created, err := svc.Create(ctx, weekly(day(2025, time.January, 6), &end))
	require.NoError(t, err)

	res, err := svc.Complete(ctx, created.ID, schedule.CompleteOptions{})
	require.NoError(t, err)
	assert.Nil(t, res.Successor)
	assert.Nil(t, res.NextOccurrenceDate)

	all, err := s.ListSchedules(ctx, store.ScheduleFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCompleteWeeklyWithinEndDateCreatesSuccessor(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	end := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)
	src := weekly(day(2025, time.January, 6), &end)
	created, err := svc.Create(ctx, src)
	require.NoError(t, err)

	res, err := svc.Complete(ctx, created.ID, schedule.CompleteOptions{CompletedBy: ptr(testutil.UserBob)})
	require.NoError(t, err)
	require.NoError(t, res.SuccessorError)
	require.NotNil(t, res.Successor)
	require.NotNil(t, res.NextOccurrenceDate)

	succ := res.Successor
	want := day(2025, time.January, 13)
	assert.True(t, want.Equal(*res.NextOccurrenceDate))
	assert.True(t, want.Equal(succ.ScheduledDate))
	assert.Equal(t, model.StatusScheduled, succ.Status)
	assert.NotEqual(t, created.ID, succ.ID)

	assert.Equal(t, created.WasteItemID, succ.WasteItemID)
	assert.Equal(t, created.AssignedTo, succ.AssignedTo)
	assert.Equal(t, created.Notes, succ.Notes)
	assert.Equal(t, created.Priority, succ.Priority)
	assert.Equal(t, created.IsRecurring, succ.IsRecurring)
	assert.Equal(t, created.RecurrencePattern, succ.RecurrencePattern)
	assert.True(t, created.RecurrenceEndDate.Equal(*succ.RecurrenceEndDate))
	assert.Equal(t, created.DisposalMethod, succ.DisposalMethod)
	assert.Equal(t, created.Quantity, succ.Quantity)
	assert.Equal(t, created.Unit, succ.Unit)
	assert.Equal(t, created.CreatedBy, succ.CreatedBy)
	require.Len(t, succ.ReminderDates, 1)
	assert.True(t, created.ReminderDates[0].Equal(succ.ReminderDates[0]))
	assert.Nil(t, succ.ActualDate)
	assert.Nil(t, succ.CompletedBy)
}

func TestCompleteMonthlyClampsToMonthEnd(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	at := day(2025, time.January, 31)
	created, err := svc.Create(ctx, schedule.Candidate{
		WasteItemID:       testutil.ItemAcetone,
		ScheduledDate:     &at,
		IsRecurring:       true,
		RecurrencePattern: ptr(model.RecurrenceMonthly),
	})
	require.NoError(t, err)

	res, err := svc.Complete(ctx, created.ID, schedule.CompleteOptions{})
	require.NoError(t, err)
	require.NotNil(t, res.Successor)
	assert.True(t, day(2025, time.February, 28).Equal(res.Successor.ScheduledDate))
}

func TestCompleteTwiceIsInvalidTransition(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	at := day(2025, time.January, 6)
	created, err := svc.Create(ctx, schedule.Candidate{WasteItemID: testutil.ItemNeedles, ScheduledDate: &at})
	require.NoError(t, err)

	_, err = svc.Complete(ctx, created.ID, schedule.CompleteOptions{})
	require.NoError(t, err)

	_, err = svc.Complete(ctx, created.ID, schedule.CompleteOptions{})
	assert.ErrorIs(t, err, schedule.ErrInvalidTransition)

	_, err = svc.Complete(ctx, "missing", schedule.CompleteOptions{})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// failingCreates lets the first n CreateSchedule calls through.
type failingCreates struct {
	schedule.Repository
	allowed int
}

func (f *failingCreates) CreateSchedule(ctx context.Context, d model.DisposalSchedule) error {
	if f.allowed <= 0 {
		return errors.New("disk full")
	}
	f.allowed--
	return f.Repository.CreateSchedule(ctx, d)
}

func TestSuccessorFailureKeepsCompletion(t *testing.T) {
	s := testutil.NewTestStore(t)
	testutil.Seed(t, s)
	svc := newService(t, &failingCreates{Repository: s, allowed: 1})
	ctx := context.Background()

	created, err := svc.Create(ctx, weekly(day(2025, time.January, 6), nil))
	require.NoError(t, err)

	res, err := svc.Complete(ctx, created.ID, schedule.CompleteOptions{})
	require.NoError(t, err)
	assert.Nil(t, res.Successor)
	require.NotNil(t, res.NextOccurrenceDate)
	var ie *schedule.InfrastructureError
	require.ErrorAs(t, res.SuccessorError, &ie)

	got, err := s.GetSchedule(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
}

func TestRescheduleAndCancel(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	at := day(2025, time.January, 6)
	created, err := svc.Create(ctx, schedule.Candidate{WasteItemID: testutil.ItemNeedles, ScheduledDate: &at})
	require.NoError(t, err)

	moved, err := svc.Reschedule(ctx, created.ID, schedule.RescheduleRequest{
		ScheduledDate: day(2025, time.January, 9),
		AssignedTo:    model.Some(ptr(testutil.UserBob)),
		Notes:         model.Some(ptr("truck delayed")),
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusRescheduled, moved.Status)
	assert.True(t, day(2025, time.January, 9).Equal(moved.ScheduledDate))
	assert.Equal(t, "Bob", moved.AssignedToName)
	assert.Equal(t, "truck delayed", *moved.Notes)

	cancelled, err := svc.Cancel(ctx, created.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)
	assert.Equal(t, "truck delayed", *cancelled.Notes)

	_, err = svc.Reschedule(ctx, created.ID, schedule.RescheduleRequest{ScheduledDate: day(2025, time.January, 10)})
	assert.ErrorIs(t, err, schedule.ErrInvalidTransition)

	_, err = svc.Reschedule(ctx, created.ID, schedule.RescheduleRequest{})
	var ve *schedule.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestDelete(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	at := day(2025, time.January, 6)
	created, err := svc.Create(ctx, schedule.Candidate{WasteItemID: testutil.ItemNeedles, ScheduledDate: &at})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))
	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, created.ID), store.ErrNotFound)
}

func TestMarkOverdue(t *testing.T) {
	svc, s := setup(t)
	ctx := context.Background()

	yesterday := day(2025, time.January, 5)
	today := time.Date(2025, time.January, 6, 8, 0, 0, 0, time.UTC)
	past, err := svc.Create(ctx, schedule.Candidate{WasteItemID: testutil.ItemNeedles, ScheduledDate: &yesterday})
	require.NoError(t, err)
	current, err := svc.Create(ctx, schedule.Candidate{WasteItemID: testutil.ItemNeedles, ScheduledDate: &today})
	require.NoError(t, err)

	n, err := svc.MarkOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := s.GetSchedule(ctx, past.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusOverdue, got.Status)

	got, err = s.GetSchedule(ctx, current.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusScheduled, got.Status, "entries due later today are not overdue")
}

func TestDueReminders(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	at := day(2025, time.January, 10)
	inWindow := time.Date(2025, time.January, 6, 15, 0, 0, 0, time.UTC)
	outside := time.Date(2025, time.January, 9, 9, 0, 0, 0, time.UTC)
	_, err := svc.Create(ctx, schedule.Candidate{
		WasteItemID:   testutil.ItemAcetone,
		ScheduledDate: &at,
		AssignedTo:    ptr(testutil.UserAlice),
		ReminderDates: []time.Time{outside, inWindow},
	})
	require.NoError(t, err)

	reminders, err := svc.DueReminders(ctx, fixedNow, fixedNow.Add(6*time.Hour))
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.True(t, inWindow.Equal(reminders[0].RemindAt))
	assert.Equal(t, "alice@lab.example", reminders[0].AssigneeEmail)
	assert.Equal(t, model.HazardCritical, reminders[0].HazardLevel)

	_, err = svc.DueReminders(ctx, fixedNow, fixedNow)
	var ve *schedule.ValidationError
	assert.ErrorAs(t, err, &ve)
}
