package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	def := DefaultAppConfig()
	assert.Equal(t, def.Database, cfg.Database)
	assert.Equal(t, 3, cfg.Schedule.MaxPerDay)
	assert.Equal(t, "@every 15m", cfg.Jobs.OverdueSpec)
}

func TestLoadConfigFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  driver: postgres
  dsn: postgres://lab@localhost/disposal?sslmode=disable
schedule:
  timezone: Europe/Berlin
  max_per_day: 5
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5, cfg.Schedule.MaxPerDay)
	assert.Equal(t, ":8080", cfg.Server.Addr)

	loc, err := cfg.Schedule.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("DISPOSAL_SCHEDULE_MAX_PER_DAY", "9")
	t.Setenv("DISPOSAL_SERVER_ADDR", "127.0.0.1:9000")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Schedule.MaxPerDay)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
}

func TestLoadConfigRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("schedule:\n  max_per_day: 0\n"), 0o644))

	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "max_per_day")
}

func TestValidate(t *testing.T) {
	cfg := DefaultAppConfig()
	require.NoError(t, cfg.Validate())

	cfg.Database.Driver = "mysql"
	assert.ErrorContains(t, cfg.Validate(), "database.driver")

	cfg = DefaultAppConfig()
	cfg.Database.DSN = "  "
	assert.ErrorContains(t, cfg.Validate(), "database.dsn")

	cfg = DefaultAppConfig()
	cfg.Schedule.Timezone = "Mars/Olympus"
	assert.ErrorContains(t, cfg.Validate(), "Mars/Olympus")
}

func TestSaveConfigThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultAppConfig()
	cfg.Schedule.MaxPerDay = 7
	cfg.Reminders.Enabled = true
	cfg.Reminders.To = "safety@lab.example"

	require.NoError(t, SaveConfig(path, cfg))

	got, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Schedule.MaxPerDay)
	assert.True(t, got.Reminders.Enabled)
	assert.Equal(t, "safety@lab.example", got.Reminders.To)
}
