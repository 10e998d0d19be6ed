// Package reminder delivers due disposal reminders as RFC 5322 messages
// dropped into an outbox directory for a mail relay to pick up.
package reminder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/rs/zerolog"

	"github.com/nhle/disposal-planner/internal/model"
)

// Notifier delivers reminders and reports how many were newly sent.
type Notifier interface {
	Notify(ctx context.Context, reminders []model.Reminder) (int, error)
}

// Outbox writes one .eml file per reminder. Files are keyed by schedule and
// reminder time, so delivering the same reminder twice is a no-op.
type Outbox struct {
	dir  string
	from *mail.Address
	to   *mail.Address
	loc  *time.Location
	log  zerolog.Logger
	now  func() time.Time
}

var _ Notifier = (*Outbox)(nil)

// NewOutbox creates the outbox directory if needed. fallbackTo receives
// reminders for unassigned entries; when empty those reminders are skipped.
func NewOutbox(cfg model.RemindersConfig, loc *time.Location, log zerolog.Logger) (*Outbox, error) {
	if cfg.OutboxDir == "" {
		return nil, fmt.Errorf("reminders outbox_dir is not set")
	}
	if err := os.MkdirAll(cfg.OutboxDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating outbox dir: %w", err)
	}

	from, err := mail.ParseAddress(cfg.From)
	if err != nil {
		return nil, fmt.Errorf("parsing reminders.from %q: %w", cfg.From, err)
	}
	o := &Outbox{dir: cfg.OutboxDir, from: from, loc: loc, log: log, now: time.Now}
	if cfg.To != "" {
		if o.to, err = mail.ParseAddress(cfg.To); err != nil {
			return nil, fmt.Errorf("parsing reminders.to %q: %w", cfg.To, err)
		}
	}
	return o, nil
}

// Notify writes the reminders that have not been written before.
func (o *Outbox) Notify(ctx context.Context, reminders []model.Reminder) (int, error) {
	sent := 0
	for _, r := range reminders {
		if err := ctx.Err(); err != nil {
			return sent, err
		}

		to := o.recipient(r)
		if to == nil {
			o.log.Warn().Str("schedule_id", r.ScheduleID).Msg("reminder has no recipient, skipping")
			continue
		}

		path := filepath.Join(o.dir, fileName(r))
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return sent, fmt.Errorf("creating %s: %w", path, err)
		}

		msg, err := o.compose(r, to)
		if err == nil {
			_, err = f.Write(msg)
		}
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(path)
			return sent, fmt.Errorf("writing reminder for %s: %w", r.ScheduleID, err)
		}

		sent++
		o.log.Debug().Str("schedule_id", r.ScheduleID).Str("to", to.Address).Msg("reminder queued")
	}
	return sent, nil
}

func (o *Outbox) recipient(r model.Reminder) *mail.Address {
	if r.AssigneeEmail != "" {
		return &mail.Address{Name: r.AssignedTo, Address: r.AssigneeEmail}
	}
	return o.to
}

func (o *Outbox) compose(r model.Reminder, to *mail.Address) ([]byte, error) {
	var h mail.Header
	h.SetDate(o.now())
	h.SetAddressList("From", []*mail.Address{o.from})
	h.SetAddressList("To", []*mail.Address{to})
	h.SetSubject(subject(r))
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	if err := h.GenerateMessageID(); err != nil {
		return nil, err
	}
	h.Set("X-Disposal-Schedule-Id", r.ScheduleID)

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write([]byte(o.body(r))); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func subject(r model.Reminder) string {
	name := r.WasteName
	if name == "" {
		name = "waste disposal"
	}
	if r.HazardLevel == model.HazardCritical {
		return "[CRITICAL] Disposal reminder: " + name
	}
	return "Disposal reminder: " + name
}

func (o *Outbox) body(r model.Reminder) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Disposal of %s is scheduled for %s.\n\n",
		nonEmpty(r.WasteName, "a waste item"),
		r.ScheduledDate.In(o.loc).Format("Mon, 02 Jan 2006 15:04 MST"))
	fmt.Fprintf(&b, "Priority: %s\n", r.Priority)
	if r.HazardLevel != "" {
		fmt.Fprintf(&b, "Hazard level: %s\n", r.HazardLevel)
	}
	if r.AssignedTo != "" {
		fmt.Fprintf(&b, "Assigned to: %s\n", r.AssignedTo)
	}
	fmt.Fprintf(&b, "Schedule: %s\n", r.ScheduleID)
	return b.String()
}

func fileName(r model.Reminder) string {
	return fmt.Sprintf("%s-%s.eml", r.RemindAt.UTC().Format("20060102T150405Z"), r.ScheduleID)
}

func nonEmpty(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
