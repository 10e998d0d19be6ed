package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nhle/disposal-planner/internal/model"
	"github.com/nhle/disposal-planner/internal/recurrence"
	"github.com/nhle/disposal-planner/internal/schedule"
	"github.com/nhle/disposal-planner/internal/store"
)

const dateLayout = "2006-01-02"

// ScheduleHandler serves the /api/schedules and /api/reminders routes.
type ScheduleHandler struct {
	svc *schedule.Service
}

// NewScheduleHandler creates a ScheduleHandler.
func NewScheduleHandler(svc *schedule.Service) *ScheduleHandler {
	return &ScheduleHandler{svc: svc}
}

// Register mounts the routes on g.
func (h *ScheduleHandler) Register(g *echo.Group) {
	g.GET("/schedules", h.List)
	g.POST("/schedules", h.Create)
	g.POST("/schedules/batch", h.ImportBatch)
	g.GET("/schedules/conflicts", h.Conflicts)
	g.GET("/schedules/:id", h.Get)
	g.PATCH("/schedules/:id", h.Update)
	g.DELETE("/schedules/:id", h.Delete)
	g.POST("/schedules/:id/complete", h.Complete)
	g.POST("/schedules/:id/reschedule", h.Reschedule)
	g.POST("/schedules/:id/cancel", h.Cancel)
	g.GET("/reminders/due", h.DueReminders)
}

// List handles GET /api/schedules.
func (h *ScheduleHandler) List(c echo.Context) error {
	var f store.ScheduleFilter
	if v := c.QueryParam("status"); v != "" {
		st := model.Status(v)
		f.Status = &st
	}
	f.AssignedTo = optQuery(c, "assigned_to")
	f.WasteItemID = optQuery(c, "waste_item_id")
	f.HazardLevel = optQuery(c, "hazard_level")
	f.Category = optQuery(c, "category")

	loc := h.svc.Location()
	if v := c.QueryParam("from"); v != "" {
		from, _, err := parseInstant(v, loc)
		if err != nil {
			return badRequest("from: " + err.Error())
		}
		f.From = &from
	}
	if v := c.QueryParam("to"); v != "" {
		to, dateOnly, err := parseInstant(v, loc)
		if err != nil {
			return badRequest("to: " + err.Error())
		}
		if dateOnly {
			_, to = recurrence.DayBounds(to, loc)
		}
		f.Before = &to
	}
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return badRequest("limit must be a non-negative integer")
		}
		f.Limit = n
	}

	out, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// Create handles POST /api/schedules.
func (h *ScheduleHandler) Create(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}
	d, err := h.svc.Create(c.Request().Context(), schedule.DecodeCandidate(body))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, d)
}

// ImportBatch handles POST /api/schedules/batch. Elements are decoded one at
// a time so a malformed element is reported at its index.
func (h *ScheduleHandler) ImportBatch(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return badRequest("body must be a JSON array of schedule candidates")
	}

	candidates := make([]schedule.Candidate, len(raw))
	for i, msg := range raw {
		candidates[i] = schedule.DecodeCandidate(msg)
	}

	res, err := h.svc.ImportBatch(c.Request().Context(), candidates)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// Conflicts handles GET /api/schedules/conflicts?date=&max_per_day=.
func (h *ScheduleHandler) Conflicts(c echo.Context) error {
	v := c.QueryParam("date")
	if v == "" {
		return badRequest("date is required")
	}
	date, _, err := parseInstant(v, h.svc.Location())
	if err != nil {
		return badRequest("date: " + err.Error())
	}

	maxPerDay := 0
	if v := c.QueryParam("max_per_day"); v != "" {
		if maxPerDay, err = strconv.Atoi(v); err != nil {
			return badRequest("max_per_day must be an integer")
		}
	}

	report, err := h.svc.CheckConflicts(c.Request().Context(), date, maxPerDay)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

// Get handles GET /api/schedules/:id.
func (h *ScheduleHandler) Get(c echo.Context) error {
	d, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

// Update handles PATCH /api/schedules/:id. Only keys present in the body
// are written; an explicit null clears a nullable field.
func (h *ScheduleHandler) Update(c echo.Context) error {
	var patch model.SchedulePatch
	if err := decodeJSON(c, &patch); err != nil {
		return err
	}
	d, err := h.svc.Update(c.Request().Context(), c.Param("id"), patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

// Delete handles DELETE /api/schedules/:id.
func (h *ScheduleHandler) Delete(c echo.Context) error {
	if err := h.svc.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type completionResponse struct {
	Schedule           *model.DisposalSchedule `json:"schedule"`
	NextOccurrenceDate *time.Time              `json:"next_occurrence_date,omitempty"`
	Successor          *model.DisposalSchedule `json:"successor,omitempty"`
	SuccessorError     string                  `json:"successor_error,omitempty"`
}

// Complete handles POST /api/schedules/:id/complete. The body is optional.
func (h *ScheduleHandler) Complete(c echo.Context) error {
	var opts schedule.CompleteOptions
	if err := decodeJSON(c, &opts); err != nil {
		return err
	}

	res, err := h.svc.Complete(c.Request().Context(), c.Param("id"), opts)
	if err != nil {
		return err
	}

	out := completionResponse{
		Schedule:           res.Schedule,
		NextOccurrenceDate: res.NextOccurrenceDate,
		Successor:          res.Successor,
	}
	if res.SuccessorError != nil {
		out.SuccessorError = res.SuccessorError.Error()
	}
	return c.JSON(http.StatusOK, out)
}

// Reschedule handles POST /api/schedules/:id/reschedule.
func (h *ScheduleHandler) Reschedule(c echo.Context) error {
	var req schedule.RescheduleRequest
	if err := decodeJSON(c, &req); err != nil {
		return err
	}
	d, err := h.svc.Reschedule(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

// Cancel handles POST /api/schedules/:id/cancel.
func (h *ScheduleHandler) Cancel(c echo.Context) error {
	var body struct {
		Notes *string `json:"notes"`
	}
	if err := decodeJSON(c, &body); err != nil {
		return err
	}
	d, err := h.svc.Cancel(c.Request().Context(), c.Param("id"), body.Notes)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

// DueReminders handles GET /api/reminders/due?from=&to=. The window
// defaults to the next 24 hours.
func (h *ScheduleHandler) DueReminders(c echo.Context) error {
	loc := h.svc.Location()
	from := time.Now()
	to := from.Add(24 * time.Hour)

	var err error
	if v := c.QueryParam("from"); v != "" {
		if from, _, err = parseInstant(v, loc); err != nil {
			return badRequest("from: " + err.Error())
		}
	}
	if v := c.QueryParam("to"); v != "" {
		if to, _, err = parseInstant(v, loc); err != nil {
			return badRequest("to: " + err.Error())
		}
	}

	out, err := h.svc.DueReminders(c.Request().Context(), from, to)
	if err != nil {
		return err
	}
	if out == nil {
		out = []model.Reminder{}
	}
	return c.JSON(http.StatusOK, out)
}

func readBody(c echo.Context) ([]byte, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, badRequest("reading request body")
	}
	return body, nil
}

// decodeJSON decodes an optional JSON body into v; an empty body leaves v
// untouched.
func decodeJSON(c echo.Context, v any) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return badRequest(fmt.Sprintf("malformed JSON body: %v", err))
	}
	return nil
}

// parseInstant accepts RFC 3339 or a YYYY-MM-DD date, which is taken as
// midnight in loc. dateOnly reports the latter.
func parseInstant(s string, loc *time.Location) (t time.Time, dateOnly bool, err error) {
	if t, err = time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	if t, err = time.ParseInLocation(dateLayout, s, loc); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, fmt.Errorf("expected RFC 3339 or %s, got %q", dateLayout, s)
}

func optQuery(c echo.Context, name string) *string {
	if v := c.QueryParam(name); v != "" {
		return &v
	}
	return nil
}
