// Package jobs runs the periodic maintenance work of the server: the
// overdue sweep and reminder dispatch.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is one unit of periodic work.
type Job func(ctx context.Context) error

// Runner schedules jobs on cron specs. Overlapping runs of the same job
// are skipped and panics are recovered.
type Runner struct {
	c       *cron.Cron
	log     zerolog.Logger
	timeout time.Duration
}

// NewRunner creates a Runner evaluating specs in loc. Each run gets a
// context bounded by timeout.
func NewRunner(loc *time.Location, timeout time.Duration, log zerolog.Logger) *Runner {
	cl := cronLogger{log: log}
	return &Runner{
		c: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		log:     log,
		timeout: timeout,
	}
}

// Add registers job under name. Specs accept the standard five fields and
// descriptors such as "@every 15m".
func (r *Runner) Add(name, spec string, job Job) error {
	_, err := r.c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		start := time.Now()
		if err := job(ctx); err != nil {
			r.log.Error().Err(err).Str("job", name).Msg("job failed")
			return
		}
		r.log.Debug().Str("job", name).Dur("took", time.Since(start)).Msg("job finished")
	})
	if err != nil {
		return fmt.Errorf("scheduling job %s with spec %q: %w", name, spec, err)
	}
	r.log.Info().Str("job", name).Str("spec", spec).Msg("job scheduled")
	return nil
}

// Start runs the scheduler in its own goroutine.
func (r *Runner) Start() { r.c.Start() }

// Stop stops scheduling and waits for running jobs or ctx, whichever ends
// first.
func (r *Runner) Stop(ctx context.Context) {
	select {
	case <-r.c.Stop().Done():
	case <-ctx.Done():
	}
}

// Len returns the number of scheduled jobs.
func (r *Runner) Len() int { return len(r.c.Entries()) }

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
