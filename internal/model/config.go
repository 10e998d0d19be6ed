package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// DatabaseConfig selects the SQL backend.
type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `mapstructure:"driver" yaml:"driver"`

	// DSN is a file path for sqlite or a connection URL for postgres.
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

// ScheduleConfig holds engine-wide scheduling settings.
type ScheduleConfig struct {
	// Timezone is the IANA zone used for calendar-day boundaries and
	// recurrence arithmetic. "Local" uses the host zone.
	Timezone string `mapstructure:"timezone" yaml:"timezone"`

	// MaxPerDay is the default conflict ceiling for a single day.
	MaxPerDay int `mapstructure:"max_per_day" yaml:"max_per_day"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr       string  `mapstructure:"addr" yaml:"addr"`
	RatePerSec float64 `mapstructure:"rate_per_sec" yaml:"rate_per_sec"`
}

// JobsConfig holds cron specs for the periodic jobs run by `serve`.
// An empty spec disables the job.
type JobsConfig struct {
	OverdueSpec  string `mapstructure:"overdue_spec" yaml:"overdue_spec"`
	ReminderSpec string `mapstructure:"reminder_spec" yaml:"reminder_spec"`
}

// RemindersConfig configures the mail outbox notifier.
type RemindersConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	OutboxDir string `mapstructure:"outbox_dir" yaml:"outbox_dir"`
	From      string `mapstructure:"from" yaml:"from"`

	// To is the fallback recipient when the assignee has no email.
	To string `mapstructure:"to" yaml:"to"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level   string `mapstructure:"level" yaml:"level"`
	Console bool   `mapstructure:"console" yaml:"console"`
	File    string `mapstructure:"file" yaml:"file"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Database  DatabaseConfig  `mapstructure:"database" yaml:"database"`
	Schedule  ScheduleConfig  `mapstructure:"schedule" yaml:"schedule"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Jobs      JobsConfig      `mapstructure:"jobs" yaml:"jobs"`
	Reminders RemindersConfig `mapstructure:"reminders" yaml:"reminders"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

// Location resolves the configured timezone, falling back to time.Local.
func (c ScheduleConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/disposal/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "disposal", "config.yaml")
}

// defaultDataDir returns ~/.local/share/disposal, or the working directory
// when the home directory is unknown.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share", "disposal")
}

// DefaultAppConfig returns a sensible default configuration.
func DefaultAppConfig() *AppConfig {
	dataDir := defaultDataDir()
	return &AppConfig{
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    filepath.Join(dataDir, "disposal.db"),
		},
		Schedule: ScheduleConfig{
			Timezone:  "Local",
			MaxPerDay: 3,
		},
		Server: ServerConfig{
			Addr:       ":8080",
			RatePerSec: 20,
		},
		Jobs: JobsConfig{
			OverdueSpec:  "@every 15m",
			ReminderSpec: "@every 5m",
		},
		Reminders: RemindersConfig{
			OutboxDir: filepath.Join(dataDir, "outbox"),
			From:      "disposal-planner@localhost",
		},
		Log: LogConfig{
			Level:   "info",
			Console: true,
		},
	}
}

// newViper builds a viper instance bound to path with defaults and
// DISPOSAL_-prefixed environment overrides.
func newViper(path string) *viper.Viper {
	def := DefaultAppConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("disposal")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults so missing keys resolve to sensible values and env
	// overrides are visible to Unmarshal.
	v.SetDefault("database.driver", def.Database.Driver)
	v.SetDefault("database.dsn", def.Database.DSN)
	v.SetDefault("schedule.timezone", def.Schedule.Timezone)
	v.SetDefault("schedule.max_per_day", def.Schedule.MaxPerDay)
	v.SetDefault("server.addr", def.Server.Addr)
	v.SetDefault("server.rate_per_sec", def.Server.RatePerSec)
	v.SetDefault("jobs.overdue_spec", def.Jobs.OverdueSpec)
	v.SetDefault("jobs.reminder_spec", def.Jobs.ReminderSpec)
	v.SetDefault("reminders.enabled", def.Reminders.Enabled)
	v.SetDefault("reminders.outbox_dir", def.Reminders.OutboxDir)
	v.SetDefault("reminders.from", def.Reminders.From)
	v.SetDefault("reminders.to", def.Reminders.To)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.console", def.Log.Console)
	v.SetDefault("log.file", def.Log.File)
	return v
}

// decode unmarshals v into a fresh config and validates it.
func decode(v *viper.Viper, path string) (*AppConfig, error) {
	cfg := DefaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, defaults plus environment overrides are used.
func LoadConfig(path string) (*AppConfig, error) {
	v := newViper(path)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return decode(v, path)
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return decode(v, path)
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	return decode(v, path)
}

// WatchConfig loads the config at path and invokes onChange with the
// re-parsed configuration every time the file is written. Invalid edits are
// reported through onError and otherwise ignored.
func WatchConfig(
	path string,
	onChange func(*AppConfig),
	onError func(error),
) (*AppConfig, error) {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg, err := decode(v, path)
	if err != nil {
		return nil, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		next, err := decode(v, path)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(next)
	})
	v.WatchConfig()

	return cfg, nil
}

// Validate checks cross-field constraints that viper cannot express.
func (c *AppConfig) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("database.dsn must not be empty")
	}
	if c.Schedule.MaxPerDay < 1 {
		return fmt.Errorf("schedule.max_per_day must be at least 1, got %d", c.Schedule.MaxPerDay)
	}
	if _, err := c.Schedule.Location(); err != nil {
		return err
	}
	return nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("database", cfg.Database)
	v.Set("schedule", cfg.Schedule)
	v.Set("server", cfg.Server)
	v.Set("jobs", cfg.Jobs)
	v.Set("reminders", cfg.Reminders)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
