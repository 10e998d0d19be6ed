package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/pflag"

	"github.com/nhle/disposal-planner/internal/importer"
	"github.com/nhle/disposal-planner/internal/model"
	"github.com/nhle/disposal-planner/internal/recurrence"
	"github.com/nhle/disposal-planner/internal/reminder"
	"github.com/nhle/disposal-planner/internal/schedule"
	"github.com/nhle/disposal-planner/internal/store"
	"github.com/nhle/disposal-planner/internal/ui/scheduleform"
)

const dateTimeLayout = "2006-01-02 15:04"

func newFlagSet(name string) *pflag.FlagSet {
	return pflag.NewFlagSet("disposal "+name, pflag.ContinueOnError)
}

func runList(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("list")
	status := fs.String("status", "", "only entries with this status")
	assigned := fs.String("assigned-to", "", "only entries assigned to this user id")
	hazard := fs.String("hazard", "", "only entries whose template has this hazard level")
	from := fs.String("from", "", "earliest scheduled date (YYYY-MM-DD)")
	to := fs.String("to", "", "latest scheduled date, inclusive (YYYY-MM-DD)")
	limit := fs.Int("limit", 0, "maximum number of entries")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	loc := e.svc.Location()
	f := store.ScheduleFilter{Limit: *limit}
	if *status != "" {
		st := model.Status(*status)
		f.Status = &st
	}
	f.AssignedTo = optFlag(*assigned)
	f.HazardLevel = optFlag(*hazard)
	if *from != "" {
		t, err := parseDate(*from, loc)
		if err != nil {
			return fmt.Errorf("--from: %w", err)
		}
		f.From = &t
	}
	if *to != "" {
		t, err := parseDate(*to, loc)
		if err != nil {
			return fmt.Errorf("--to: %w", err)
		}
		_, end := recurrence.DayBounds(t, loc)
		f.Before = &end
	}

	out, err := e.svc.List(ctx, f)
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(e.out, out)
	}
	return writeSchedules(e.out, out, loc)
}

func runCreate(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("create")
	interactive := fs.BoolP("interactive", "i", false, "fill in the entry with a form")
	item := fs.String("item", "", "waste item id")
	at := fs.String("at", "", "scheduled date (YYYY-MM-DD or YYYY-MM-DD HH:MM)")
	priority := fs.String("priority", "", "low, medium, high or critical")
	assign := fs.String("assign", "", "assigned user id")
	by := fs.String("by", "", "creating user id")
	pattern := fs.String("recurring", "", "recurrence pattern (daily, weekly, biweekly, monthly, quarterly, yearly)")
	until := fs.String("until", "", "last date a recurrence may land on (YYYY-MM-DD)")
	notes := fs.String("notes", "", "free-form notes")
	method := fs.String("method", "", "disposal method")
	quantity := fs.Float64("quantity", -1, "amount of waste")
	unit := fs.String("unit", "", "unit of the quantity")
	remind := fs.StringSlice("remind", nil, "reminder date, repeatable")
	yes := fs.BoolP("yes", "y", false, "create even when the day is at capacity")
	if err := fs.Parse(args); err != nil {
		return err
	}

	loc := e.svc.Location()
	var c schedule.Candidate
	if *interactive {
		items, err := e.store.ListWasteItems(ctx)
		if err != nil {
			return err
		}
		users, err := e.store.ListUsers(ctx)
		if err != nil {
			return err
		}
		if c, err = scheduleform.Run(items, users, loc); err != nil {
			return err
		}
	} else {
		c = schedule.Candidate{
			WasteItemID:    *item,
			Priority:       model.Priority(*priority),
			AssignedTo:     optFlag(*assign),
			CreatedBy:      optFlag(*by),
			Notes:          optFlag(*notes),
			DisposalMethod: optFlag(*method),
			Unit:           optFlag(*unit),
		}
		if *at != "" {
			t, err := parseDate(*at, loc)
			if err != nil {
				return fmt.Errorf("--at: %w", err)
			}
			c.ScheduledDate = &t
		}
		if *pattern != "" {
			p := model.RecurrencePattern(*pattern)
			c.IsRecurring = true
			c.RecurrencePattern = &p
		}
		if *until != "" {
			t, err := parseDate(*until, loc)
			if err != nil {
				return fmt.Errorf("--until: %w", err)
			}
			c.RecurrenceEndDate = &t
		}
		if *quantity >= 0 {
			c.Quantity = quantity
		}
		for _, r := range *remind {
			t, err := parseDate(r, loc)
			if err != nil {
				return fmt.Errorf("--remind: %w", err)
			}
			c.ReminderDates = append(c.ReminderDates, t)
		}
	}

	if c.ScheduledDate != nil && !*yes {
		report, err := e.svc.CheckConflicts(ctx, *c.ScheduledDate, 0)
		if err != nil {
			return err
		}
		if report.HasConflict {
			proceed, err := confirm(fmt.Sprintf("%s already has %d of %d disposals (%d critical). Create anyway?",
				report.Date.In(loc).Format("Mon Jan 02"), report.Count, report.MaxPerDay, report.CriticalCount))
			if err != nil {
				return err
			}
			if !proceed {
				return errors.New("aborted")
			}
		}
	}

	d, err := e.svc.Create(ctx, c)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "created %s for %s on %s\n",
		d.ID, displayName(*d), d.ScheduledDate.In(loc).Format(dateTimeLayout))
	return nil
}

// confirm asks a yes/no question on the terminal.
func confirm(question string) (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title(question).
		Affirmative("Create").
		Negative("Cancel").
		Value(&ok).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}

func runComplete(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("complete")
	at := fs.String("at", "", "actual disposal date (default now)")
	notes := fs.String("notes", "", "replace the entry's notes")
	by := fs.String("by", "", "completing user id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: disposal complete [flags] <id>")
	}

	loc := e.svc.Location()
	opts := schedule.CompleteOptions{
		Notes:       optFlag(*notes),
		CompletedBy: optFlag(*by),
	}
	if *at != "" {
		t, err := parseDate(*at, loc)
		if err != nil {
			return fmt.Errorf("--at: %w", err)
		}
		opts.ActualDate = &t
	}

	res, err := e.svc.Complete(ctx, fs.Arg(0), opts)
	if err != nil {
		return err
	}

	fmt.Fprintf(e.out, "completed %s\n", res.Schedule.ID)
	switch {
	case res.SuccessorError != nil:
		return fmt.Errorf("next occurrence on %s was not created: %w",
			res.NextOccurrenceDate.In(loc).Format(dateTimeLayout), res.SuccessorError)
	case res.Successor != nil:
		fmt.Fprintf(e.out, "next occurrence %s on %s\n",
			res.Successor.ID, res.Successor.ScheduledDate.In(loc).Format(dateTimeLayout))
	}
	return nil
}

func runConflicts(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("conflicts")
	maxPerDay := fs.Int("max", 0, "ceiling for the day (default from config)")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: disposal conflicts [flags] <YYYY-MM-DD>")
	}

	loc := e.svc.Location()
	date, err := parseDate(fs.Arg(0), loc)
	if err != nil {
		return err
	}
	report, err := e.svc.CheckConflicts(ctx, date, *maxPerDay)
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(e.out, report)
	}

	state := "ok"
	if report.HasConflict {
		state = "AT CAPACITY"
	}
	fmt.Fprintf(e.out, "%s: %d of %d disposals, %d critical, %s\n",
		report.Date.In(loc).Format("2006-01-02"), report.Count, report.MaxPerDay, report.CriticalCount, state)
	return writeSchedules(e.out, report.Details, loc)
}

func runImport(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("import")
	asJSON := fs.Bool("json", false, "print the batch result as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: disposal import [flags] <file>")
	}

	candidates, err := importer.LoadFile(fs.Arg(0), e.svc.Location())
	if err != nil {
		return err
	}
	res, err := e.svc.ImportBatch(ctx, candidates)
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(e.out, res)
	}

	fmt.Fprintf(e.out, "imported %d, failed %d\n", res.SuccessCount, res.ErrorCount)
	for _, be := range res.ErrorDetails {
		if be.Row > 0 {
			fmt.Fprintf(e.out, "  #%d (row %d): %s\n", be.Index, be.Row, be.Error)
			continue
		}
		fmt.Fprintf(e.out, "  #%d: %s\n", be.Index, be.Error)
	}
	return nil
}

func runSeed(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: disposal seed <file.yaml>")
	}
	ref, err := importer.LoadReference(args[0])
	if err != nil {
		return err
	}
	if err := ref.Apply(ctx, e.store); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "seeded %d templates, %d waste items, %d users\n",
		len(ref.Templates), len(ref.WasteItems), len(ref.Users))
	return nil
}

func runSweep(ctx context.Context, e *env, _ []string) error {
	n, err := e.svc.MarkOverdue(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "marked %d entries overdue\n", n)
	return nil
}

func runReminders(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("reminders")
	since := fs.Duration("since", 24*time.Hour, "look back this far for due reminders")
	dryRun := fs.Bool("dry-run", false, "list reminders without writing the outbox")
	if err := fs.Parse(args); err != nil {
		return err
	}

	loc := e.svc.Location()
	now := time.Now()
	due, err := e.svc.DueReminders(ctx, now.Add(-*since), now)
	if err != nil {
		return err
	}

	if *dryRun || !e.cfg.Reminders.Enabled {
		w := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "REMIND AT\tSCHEDULED\tITEM\tEMAIL")
		for _, r := range due {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				r.RemindAt.In(loc).Format(dateTimeLayout),
				r.ScheduledDate.In(loc).Format(dateTimeLayout),
				r.WasteName, orDash(r.AssigneeEmail))
		}
		return w.Flush()
	}

	outbox, err := reminder.NewOutbox(e.cfg.Reminders, loc, e.log)
	if err != nil {
		return err
	}
	sent, err := outbox.Notify(ctx, due)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "%d due, %d written to %s\n", len(due), sent, e.cfg.Reminders.OutboxDir)
	return nil
}

func writeSchedules(w io.Writer, entries []model.DisposalSchedule, loc *time.Location) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSCHEDULED\tSTATUS\tPRIORITY\tHAZARD\tITEM\tASSIGNED")
	for _, d := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			d.ID,
			d.ScheduledDate.In(loc).Format(dateTimeLayout),
			d.Status, d.Priority, orDash(d.HazardLevel),
			displayName(d), orDash(d.AssignedToName))
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseDate accepts RFC 3339, YYYY-MM-DD HH:MM or YYYY-MM-DD; the latter
// two are read in loc.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{dateTimeLayout, "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

func displayName(d model.DisposalSchedule) string {
	if d.WasteName != "" {
		return d.WasteName
	}
	return d.WasteItemID
}

func optFlag(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
