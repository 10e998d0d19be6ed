package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/nhle/disposal-planner/internal/model"
	"github.com/nhle/disposal-planner/internal/schedule"
)

// dateLayouts are tried in order for tabular date cells.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseCSV reads a CSV file whose first row names the columns.
func ParseCSV(r io.Reader, loc *time.Location) ([]schedule.Candidate, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}
	return fromTable(records, loc)
}

// ParseXLSX reads the first sheet of a workbook whose first row names the
// columns.
func ParseXLSX(r io.Reader, loc *time.Location) ([]schedule.Candidate, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}
	return fromTable(rows, loc)
}

// fromTable converts a header row plus data rows into candidates. Blank
// rows are skipped; each candidate carries its 1-based file row.
func fromTable(rows [][]string, loc *time.Location) ([]schedule.Candidate, error) {
	if len(rows) == 0 {
		return []schedule.Candidate{}, nil
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}
	if !contains(header, "waste_item_id") || !contains(header, "scheduled_date") {
		return nil, fmt.Errorf("header must name waste_item_id and scheduled_date columns")
	}

	out := make([]schedule.Candidate, 0, len(rows)-1)
	for n, row := range rows[1:] {
		line := n + 2
		if blank(row) {
			continue
		}
		rec := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[col] = strings.TrimSpace(row[i])
			}
		}

		c, err := fromRecord(rec, loc)
		if err != nil {
			c = schedule.RejectedCandidate(fmt.Errorf("row %d: %w", line, err))
		}
		c.Row = line
		out = append(out, c)
	}
	return out, nil
}

func fromRecord(rec map[string]string, loc *time.Location) (schedule.Candidate, error) {
	c := schedule.Candidate{
		WasteItemID:    rec["waste_item_id"],
		AssignedTo:     optString(rec["assigned_to"]),
		Status:         model.Status(strings.ToLower(rec["status"])),
		Priority:       model.Priority(strings.ToLower(rec["priority"])),
		Notes:          optString(rec["notes"]),
		DisposalMethod: optString(rec["disposal_method"]),
		Unit:           optString(rec["unit"]),
		CreatedBy:      optString(rec["created_by"]),
	}

	var err error
	if c.ScheduledDate, err = optDate(rec["scheduled_date"], loc); err != nil {
		return c, fmt.Errorf("scheduled_date: %w", err)
	}
	if c.RecurrenceEndDate, err = optDate(rec["recurrence_end_date"], loc); err != nil {
		return c, fmt.Errorf("recurrence_end_date: %w", err)
	}

	if v := rec["is_recurring"]; v != "" {
		if c.IsRecurring, err = strconv.ParseBool(v); err != nil {
			return c, fmt.Errorf("is_recurring: %q is not a boolean", v)
		}
	}
	if v := strings.ToLower(rec["recurrence_pattern"]); v != "" {
		p := model.RecurrencePattern(v)
		c.RecurrencePattern = &p
	}

	if v := rec["quantity"]; v != "" {
		q, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return c, fmt.Errorf("quantity: %q is not a number", v)
		}
		c.Quantity = &q
	}

	if v := rec["reminder_dates"]; v != "" {
		for _, part := range strings.Split(v, ";") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			t, err := parseDate(part, loc)
			if err != nil {
				return c, fmt.Errorf("reminder_dates: %w", err)
			}
			c.ReminderDates = append(c.ReminderDates, t)
		}
	}
	return c, nil
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func optDate(s string, loc *time.Location) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := parseDate(s, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
