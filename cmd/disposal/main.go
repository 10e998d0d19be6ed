// Command disposal plans and tracks hazardous waste disposals.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/nhle/disposal-planner/internal/logging"
	"github.com/nhle/disposal-planner/internal/model"
	"github.com/nhle/disposal-planner/internal/schedule"
	"github.com/nhle/disposal-planner/internal/store"
)

type command struct {
	summary string
	run     func(ctx context.Context, e *env, args []string) error
}

var commands = map[string]command{
	"serve":     {"run the HTTP API and periodic jobs", runServe},
	"list":      {"list schedule entries", runList},
	"create":    {"create one schedule entry", runCreate},
	"complete":  {"mark an entry completed", runComplete},
	"conflicts": {"show how loaded a day is", runConflicts},
	"import":    {"import entries from JSON, YAML, CSV or XLSX", runImport},
	"seed":      {"upsert waste templates, items and users from YAML", runSeed},
	"sweep":     {"mark past entries overdue", runSweep},
	"reminders": {"write due reminders to the outbox", runReminders},
	"tui":       {"browse upcoming disposals", runTUI},
}

// env carries the wiring shared by every command.
type env struct {
	cfgPath string
	cfg     *model.AppConfig
	log     zerolog.Logger
	store   *store.SQLStore
	svc     *schedule.Service
	out     io.Writer
	closers []io.Closer
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "disposal:", err)
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("disposal", pflag.ContinueOnError)
	fs.SetInterspersed(false)
	cfgPath := fs.String("config", model.DefaultConfigPath(), "path to the YAML config file")
	fs.Usage = func() { usage(fs) }
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if fs.NArg() == 0 {
		usage(fs)
		return errors.New("missing command")
	}

	name := fs.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		usage(fs)
		return fmt.Errorf("unknown command %q", name)
	}

	// A .env file is optional; DISPOSAL_* variables may also come from the shell.
	_ = godotenv.Load()

	// The terminal browser owns the screen, so it only logs to a file.
	e, err := setup(*cfgPath, name == "tui")
	if err != nil {
		return err
	}
	defer e.close()

	return cmd.run(ctx, e, fs.Args()[1:])
}

func setup(cfgPath string, quiet bool) (*env, error) {
	cfg, err := model.LoadConfig(cfgPath)
	if err != nil {
		return nil, err
	}

	newLogger := logging.New
	if quiet {
		newLogger = logging.NewQuiet
	}
	log, closer, err := newLogger(cfg.Log)
	if err != nil {
		return nil, err
	}

	s, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		closer.Close()
		return nil, err
	}

	svc, err := schedule.NewService(s, cfg.Schedule,
		schedule.WithLogger(logging.Component(log, "schedule")))
	if err != nil {
		s.Close()
		closer.Close()
		return nil, err
	}

	return &env{
		cfgPath: cfgPath,
		cfg:     cfg,
		log:     log,
		store:   s,
		svc:     svc,
		out:     os.Stdout,
		closers: []io.Closer{s, closer},
	}, nil
}

func (e *env) close() {
	for _, c := range e.closers {
		if err := c.Close(); err != nil {
			e.log.Warn().Err(err).Msg("closing resource")
		}
	}
}

func usage(fs *pflag.FlagSet) {
	fmt.Fprintln(os.Stderr, "usage: disposal [--config path] <command> [flags]")
	fmt.Fprintln(os.Stderr, "\ncommands:")
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(os.Stderr, "  %-10s %s\n", n, commands[n].summary)
	}
	fmt.Fprintln(os.Stderr, "\nglobal flags:")
	fs.PrintDefaults()
}
