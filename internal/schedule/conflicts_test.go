package schedule_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/disposal-planner/internal/model"
	"github.com/nhle/disposal-planner/internal/schedule"
	"github.com/nhle/disposal-planner/tests/testutil"
)

func createAt(t *testing.T, svc *schedule.Service, item string, at time.Time) *model.DisposalSchedule {
	t.Helper()
	d, err := svc.Create(context.Background(), schedule.Candidate{WasteItemID: item, ScheduledDate: &at})
	require.NoError(t, err)
	return d
}

func TestCheckConflictsThreshold(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	target := time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)

	createAt(t, svc, testutil.ItemAcetone, target.Add(8*time.Hour))
	createAt(t, svc, testutil.ItemNeedles, target.Add(23*time.Hour+59*time.Minute))
	createAt(t, svc, testutil.ItemNeedles, target.Add(24*time.Hour))
	createAt(t, svc, testutil.ItemNeedles, target.Add(-time.Minute))

	report, err := svc.CheckConflicts(ctx, target.Add(12*time.Hour), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Count)
	assert.True(t, report.HasConflict, "count equal to the ceiling is a conflict")
	assert.Equal(t, 1, report.CriticalCount)
	assert.Equal(t, 2, report.MaxPerDay)
	assert.True(t, target.Equal(report.Date))
	assert.Len(t, report.Details, 2)

	report, err = svc.CheckConflicts(ctx, target, 3)
	require.NoError(t, err)
	assert.False(t, report.HasConflict)
}

func TestCheckConflictsExcludesTerminal(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()
	at := time.Date(2025, time.January, 20, 10, 0, 0, 0, time.UTC)

	done := createAt(t, svc, testutil.ItemAcetone, at)
	cancelled := createAt(t, svc, testutil.ItemAcetone, at)
	createAt(t, svc, testutil.ItemNeedles, at)

	_, err := svc.Complete(ctx, done.ID, schedule.CompleteOptions{})
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, cancelled.ID, nil)
	require.NoError(t, err)

	report, err := svc.CheckConflicts(ctx, at, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Count)
	assert.Equal(t, 0, report.CriticalCount)
	assert.False(t, report.HasConflict)
}

func TestCheckConflictsDefaultCeiling(t *testing.T) {
	svc, _ := setup(t)
	at := time.Date(2025, time.January, 21, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		createAt(t, svc, testutil.ItemNeedles, at)
	}

	report, err := svc.CheckConflicts(context.Background(), at, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, report.MaxPerDay)
	assert.True(t, report.HasConflict)

	svc.SetMaxPerDay(5)
	report, err = svc.CheckConflicts(context.Background(), at, -1)
	require.NoError(t, err)
	assert.Equal(t, 5, report.MaxPerDay)
	assert.False(t, report.HasConflict)
}

func TestCheckConflictsUsesServiceTimezone(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	s := testutil.NewTestStore(t)
	testutil.Seed(t, s)
	svc, err := schedule.NewService(s, model.ScheduleConfig{Timezone: "America/New_York", MaxPerDay: 3})
	require.NoError(t, err)

	// 02:00 UTC on the 16th is still the 15th in New York.
	createAt(t, svc, testutil.ItemNeedles, time.Date(2025, time.January, 16, 2, 0, 0, 0, time.UTC))

	report, err := svc.CheckConflicts(context.Background(), time.Date(2025, time.January, 15, 12, 0, 0, 0, loc), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Count)
}
