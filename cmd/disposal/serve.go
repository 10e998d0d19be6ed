package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/disposal-planner/internal/api"
	"github.com/nhle/disposal-planner/internal/app"
	"github.com/nhle/disposal-planner/internal/jobs"
	"github.com/nhle/disposal-planner/internal/logging"
	"github.com/nhle/disposal-planner/internal/model"
	"github.com/nhle/disposal-planner/internal/reminder"
)

const (
	shutdownTimeout  = 10 * time.Second
	jobTimeout       = 2 * time.Minute
	reminderBackfill = time.Hour
)

func runServe(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet("serve")
	addr := fs.String("addr", e.cfg.Server.Addr, "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	e.watchConfig()

	runner, err := e.newRunner()
	if err != nil {
		return err
	}
	runner.Start()

	srv := api.NewServer(e.svc, e.store, e.cfg.Server, logging.Component(e.log, "http"))
	errCh := make(chan error, 1)
	go func() {
		e.log.Info().Str("addr", *addr).Msg("http server listening")
		if err := srv.Start(*addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	e.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	runner.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// newRunner schedules the overdue sweep and, when enabled, reminder dispatch.
func (e *env) newRunner() (*jobs.Runner, error) {
	log := logging.Component(e.log, "jobs")
	loc := e.svc.Location()
	runner := jobs.NewRunner(loc, jobTimeout, log)

	if spec := e.cfg.Jobs.OverdueSpec; spec != "" {
		if err := runner.Add("overdue-sweep", spec, jobs.OverdueSweep(e.svc)); err != nil {
			return nil, err
		}
	}

	if spec := e.cfg.Jobs.ReminderSpec; spec != "" && e.cfg.Reminders.Enabled {
		outbox, err := reminder.NewOutbox(e.cfg.Reminders, loc, logging.Component(e.log, "reminder"))
		if err != nil {
			return nil, err
		}
		dispatch := jobs.NewReminderDispatch(e.svc, outbox, reminderBackfill, log)
		if err := runner.Add("reminder-dispatch", spec, dispatch.Run); err != nil {
			return nil, err
		}
	}

	return runner, nil
}

// watchConfig applies edits of the conflict ceiling without a restart.
// Other settings are read once at startup.
func (e *env) watchConfig() {
	if _, err := os.Stat(e.cfgPath); err != nil {
		return
	}
	log := logging.Component(e.log, "config")
	_, err := model.WatchConfig(e.cfgPath,
		func(cfg *model.AppConfig) {
			if cfg.Schedule.MaxPerDay != e.svc.MaxPerDay() {
				log.Info().
					Int("from", e.svc.MaxPerDay()).
					Int("to", cfg.Schedule.MaxPerDay).
					Msg("max_per_day changed")
				e.svc.SetMaxPerDay(cfg.Schedule.MaxPerDay)
			}
		},
		func(err error) {
			log.Warn().Err(err).Msg("ignoring invalid config edit")
		},
	)
	if err != nil {
		log.Warn().Err(err).Msg("config watch disabled")
	}
}

func runTUI(_ context.Context, e *env, _ []string) error {
	p := tea.NewProgram(app.New(e.svc, e.store), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
