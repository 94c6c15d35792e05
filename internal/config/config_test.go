package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/intakebot/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaultsWithEnvToken(t *testing.T) {
	t.Setenv("INTAKE_TELEGRAM_TOKEN", "123456789:token")
	t.Setenv("INTAKE_TELEGRAM_ADMIN_IDS", "11,22")

	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "123456789:token", cfg.Telegram.Token)
	assert.Equal(t, []int64{11, 22}, cfg.Telegram.AdminIDs)
	assert.Equal(t, config.DefaultWorkStartHour, cfg.Business.WorkStartHour)
	assert.Equal(t, config.DefaultWorkEndHour, cfg.Business.WorkEndHour)
	assert.Equal(t, config.DefaultWorkDays, cfg.Business.WorkDays)
	assert.Equal(t, 30, cfg.Business.SlotMinutes)
	assert.Equal(t, 3, cfg.RateLimit.PerSecond)
	assert.Equal(t, 20, cfg.RateLimit.PerMinute)
	assert.Equal(t, time.Minute, cfg.RateLimit.BlockDuration)
	assert.Equal(t, config.DefaultDeliveryAttempts, cfg.Telegram.Delivery.Attempts)
	assert.Equal(t, 30*time.Second, cfg.Telegram.Delivery.OpenDuration)

	require.Contains(t, cfg.Scheduler.Tasks, config.TaskSendReminders)
	assert.True(t, cfg.Scheduler.Tasks[config.TaskSendReminders].Enabled)
	assert.NotEmpty(t, cfg.Scheduler.Tasks[config.TaskScheduleReminders].Schedule)

	assert.True(t, cfg.IsStaticAdmin(22))
	assert.False(t, cfg.IsStaticAdmin(33))
	assert.Equal(t, "Europe/Moscow", cfg.Location().String())
}

func TestLoadConfigAdminIDsFromEnvOverrideFile(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "abc:def"
  admin_ids: [1]
`)
	t.Setenv("INTAKE_TELEGRAM_ADMIN_IDS", "33, 44,55")

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []int64{33, 44, 55}, cfg.Telegram.AdminIDs)
	assert.False(t, cfg.IsStaticAdmin(1))
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
logger:
  level: debug
  json: true
database:
  path: /tmp/test.db
telegram:
  token: "abc:def"
  admin_ids: [42]
business:
  name: Test Bureau
  timezone: UTC
  work_start_hour: 9
  work_end_hour: 17
  work_days: [1, 2, 3, 4, 5, 6]
rate_limit:
  block_duration: 2m
scheduler:
  tasks:
    sql_maintenance:
      enabled: false
`)
	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.True(t, cfg.Logger.JSON)
	assert.Equal(t, "/tmp/test.db", cfg.Database.Path)
	assert.Equal(t, []int64{42}, cfg.Telegram.AdminIDs)
	assert.Equal(t, "Test Bureau", cfg.Business.Name)
	assert.Equal(t, 9, cfg.Business.WorkStartHour)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, cfg.Business.WorkDays)
	assert.Equal(t, 2*time.Minute, cfg.RateLimit.BlockDuration)
	assert.False(t, cfg.Scheduler.Tasks[config.TaskSQLMaintenance].Enabled)
	assert.True(t, cfg.Scheduler.Tasks[config.TaskSendReminders].Enabled)

	sat := time.Date(2030, time.January, 5, 12, 0, 0, 0, time.UTC)
	sun := sat.AddDate(0, 0, 1)
	assert.True(t, cfg.Business.IsWorkDay(sat))
	assert.False(t, cfg.Business.IsWorkDay(sun))
}

func TestLoadConfigValidation(t *testing.T) {
	tests := map[string]string{
		"missing token": `
business:
  timezone: UTC
`,
		"end before start": `
telegram:
  token: "a:b"
business:
  work_start_hour: 18
  work_end_hour: 10
`,
		"bad weekday": `
telegram:
  token: "a:b"
business:
  work_days: [0, 8]
`,
		"unknown timezone": `
telegram:
  token: "a:b"
business:
  timezone: Mars/Olympus
`,
		"bad log level": `
telegram:
  token: "a:b"
logger:
  level: loud
`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := config.LoadConfig(writeConfig(t, body))
			require.Error(t, err)
		})
	}
}
