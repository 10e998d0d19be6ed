package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/disposal-planner/internal/model"
	"github.com/nhle/disposal-planner/internal/schedule"
	"github.com/nhle/disposal-planner/tests/testutil"
)

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	s := testutil.NewTestStore(t)
	testutil.Seed(t, s)
	svc, err := schedule.NewService(s, model.ScheduleConfig{Timezone: "UTC", MaxPerDay: 2})
	require.NoError(t, err)
	return NewServer(svc, s, model.ServerConfig{}, zerolog.Nop())
}

func do(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func create(t *testing.T, e *echo.Echo, body string) model.DisposalSchedule {
	t.Helper()
	rec := do(t, e, http.MethodPost, "/api/schedules", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[model.DisposalSchedule](t, rec)
}

func TestHealth(t *testing.T) {
	e := newTestServer(t)
	rec := do(t, e, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":{"ok":true}`)
}

type downPinger struct{}

func (downPinger) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealthUnavailable(t *testing.T) {
	s := testutil.NewTestStore(t)
	svc, err := schedule.NewService(s, model.ScheduleConfig{Timezone: "UTC", MaxPerDay: 2})
	require.NoError(t, err)
	e := NewServer(svc, downPinger{}, model.ServerConfig{}, zerolog.Nop())

	rec := do(t, e, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCreateGetAndErrors(t *testing.T) {
	e := newTestServer(t)

	d := create(t, e, `{"waste_item_id":"item-acetone","scheduled_date":"2025-01-06T09:00:00Z","assigned_to":"user-alice"}`)
	assert.Equal(t, model.StatusScheduled, d.Status)
	assert.Equal(t, "Alice", d.AssignedToName)

	rec := do(t, e, http.MethodGet, "/api/schedules/"+d.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, d.ID, decode[model.DisposalSchedule](t, rec).ID)

	rec = do(t, e, http.MethodGet, "/api/schedules/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, e, http.MethodPost, "/api/schedules", `{"scheduled_date":"2025-01-06T09:00:00Z"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "waste_item_id", decode[errorBody](t, rec).Field)

	rec = do(t, e, http.MethodPost, "/api/schedules", `{"waste_item_id":"ghost","scheduled_date":"2025-01-06T09:00:00Z"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestListFilters(t *testing.T) {
	e := newTestServer(t)
	create(t, e, `{"waste_item_id":"item-acetone","scheduled_date":"2025-01-06T09:00:00Z"}`)
	create(t, e, `{"waste_item_id":"item-needles","scheduled_date":"2025-01-07T09:00:00Z"}`)
	create(t, e, `{"waste_item_id":"item-needles","scheduled_date":"2025-01-09T09:00:00Z"}`)

	rec := do(t, e, http.MethodGet, "/api/schedules?hazard_level=critical", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.DisposalSchedule](t, rec), 1)

	rec = do(t, e, http.MethodGet, "/api/schedules?from=2025-01-07&to=2025-01-07", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.DisposalSchedule](t, rec), 1, "a date-only upper bound covers the whole day")

	rec = do(t, e, http.MethodGet, "/api/schedules?from=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, e, http.MethodGet, "/api/schedules?status=lost", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPatchClearsAndKeeps(t *testing.T) {
	e := newTestServer(t)
	d := create(t, e, `{"waste_item_id":"item-acetone","scheduled_date":"2025-01-06T09:00:00Z","assigned_to":"user-alice","notes":"keep me"}`)

	rec := do(t, e, http.MethodPatch, "/api/schedules/"+d.ID, `{"assigned_to":null,"priority":"critical"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[model.DisposalSchedule](t, rec)
	assert.Nil(t, got.AssignedTo)
	assert.Equal(t, model.PriorityCritical, got.Priority)
	require.NotNil(t, got.Notes)
	assert.Equal(t, "keep me", *got.Notes)

	rec = do(t, e, http.MethodPatch, "/api/schedules/"+d.ID, `{"status":"completed"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, e, http.MethodPatch, "/api/schedules/"+d.ID, `{"priority":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompleteCreatesSuccessorAndRejectsRepeat(t *testing.T) {
	e := newTestServer(t)
	d := create(t, e, `{
		"waste_item_id":"item-acetone",
		"scheduled_date":"2025-01-06T09:00:00Z",
		"is_recurring":true,
		"recurrence_pattern":"weekly",
		"recurrence_end_date":"2025-02-01T00:00:00Z"
	}`)

	rec := do(t, e, http.MethodPost, "/api/schedules/"+d.ID+"/complete", `{"notes":"done"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[completionResponse](t, rec)
	assert.Equal(t, model.StatusCompleted, res.Schedule.Status)
	require.NotNil(t, res.Successor)
	assert.True(t, time.Date(2025, time.January, 13, 9, 0, 0, 0, time.UTC).Equal(res.Successor.ScheduledDate))
	assert.Empty(t, res.SuccessorError)

	rec = do(t, e, http.MethodPost, "/api/schedules/"+d.ID+"/complete", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRescheduleCancelDelete(t *testing.T) {
	e := newTestServer(t)
	d := create(t, e, `{"waste_item_id":"item-needles","scheduled_date":"2025-01-06T09:00:00Z"}`)

	rec := do(t, e, http.MethodPost, "/api/schedules/"+d.ID+"/reschedule", `{"scheduled_date":"2025-01-08T09:00:00Z"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.StatusRescheduled, decode[model.DisposalSchedule](t, rec).Status)

	rec = do(t, e, http.MethodPost, "/api/schedules/"+d.ID+"/cancel", `{"notes":"pickup cancelled"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.StatusCancelled, decode[model.DisposalSchedule](t, rec).Status)

	rec = do(t, e, http.MethodPost, "/api/schedules/"+d.ID+"/cancel", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, e, http.MethodDelete, "/api/schedules/"+d.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, e, http.MethodDelete, "/api/schedules/"+d.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConflicts(t *testing.T) {
	e := newTestServer(t)
	create(t, e, `{"waste_item_id":"item-acetone","scheduled_date":"2025-01-06T09:00:00Z"}`)
	create(t, e, `{"waste_item_id":"item-needles","scheduled_date":"2025-01-06T15:00:00Z"}`)

	rec := do(t, e, http.MethodGet, "/api/schedules/conflicts?date=2025-01-06", "")
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[schedule.ConflictReport](t, rec)
	assert.Equal(t, 2, report.Count)
	assert.Equal(t, 1, report.CriticalCount)
	assert.Equal(t, 2, report.MaxPerDay)
	assert.True(t, report.HasConflict)

	rec = do(t, e, http.MethodGet, "/api/schedules/conflicts?date=2025-01-06&max_per_day=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[schedule.ConflictReport](t, rec).HasConflict)

	rec = do(t, e, http.MethodGet, "/api/schedules/conflicts", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBatch(t *testing.T) {
	e := newTestServer(t)
	rec := do(t, e, http.MethodPost, "/api/schedules/batch", `[
		{"waste_item_id":"item-acetone","scheduled_date":"2025-01-06T09:00:00Z"},
		{"waste_item_id":"item-acetone","reminder_dates":"soon"},
		{"waste_item_id":"item-needles","scheduled_date":"2025-01-07T09:00:00Z"}
	]`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[schedule.BatchResult](t, rec)
	assert.Equal(t, 2, res.SuccessCount)
	assert.Equal(t, 1, res.ErrorCount)
	require.Len(t, res.ErrorDetails, 1)
	assert.Equal(t, 1, res.ErrorDetails[0].Index)
	assert.Equal(t, []int{0, 2}, []int{res.Results[0].Index, res.Results[1].Index})

	rec = do(t, e, http.MethodPost, "/api/schedules/batch", `{"not":"an array"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDueReminders(t *testing.T) {
	e := newTestServer(t)
	create(t, e, `{
		"waste_item_id":"item-acetone",
		"scheduled_date":"2025-01-08T09:00:00Z",
		"assigned_to":"user-bob",
		"reminder_dates":["2025-01-07T09:00:00Z","2025-01-08T07:00:00Z"]
	}`)

	rec := do(t, e, http.MethodGet, "/api/reminders/due?from=2025-01-07T00:00:00Z&to=2025-01-07T23:59:59Z", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	reminders := decode[[]model.Reminder](t, rec)
	require.Len(t, reminders, 1)
	assert.Equal(t, "bob@lab.example", reminders[0].AssigneeEmail)
}

func TestRateLimit(t *testing.T) {
	s := testutil.NewTestStore(t)
	svc, err := schedule.NewService(s, model.ScheduleConfig{Timezone: "UTC", MaxPerDay: 2})
	require.NoError(t, err)
	e := NewServer(svc, s, model.ServerConfig{RatePerSec: 0.001}, zerolog.Nop())

	codes := map[int]int{}
	for i := 0; i < 5; i++ {
		codes[do(t, e, http.MethodGet, "/health", "").Code]++
	}
	assert.Positive(t, codes[http.StatusTooManyRequests])
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable,
		statusFor(&schedule.InfrastructureError{Op: "list", Err: errors.New("down")}))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}
