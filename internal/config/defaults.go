package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default values for configuration
const (
	DefaultLogLevel     = "info"
	DefaultDatabasePath = "./intake.db"
	DefaultBusinessName = "Legal Center"
	DefaultTimezone     = "Europe/Moscow"

	DefaultWorkStartHour         = 10
	DefaultWorkEndHour           = 18
	DefaultSlotMinutes           = 30
	DefaultDayBeforeReminderHour = 18

	DefaultDeliveryAttempts     = 3
	DefaultDeliveryBackoff      = 500 * time.Millisecond
	DefaultDeliveryMaxFailures  = 5
	DefaultDeliveryOpenDuration = 30 * time.Second

	DefaultRatePerSecond     = 3
	DefaultRatePerMinute     = 20
	DefaultRateBlockDuration = 60 * time.Second
)

// DefaultWorkDays are ISO weekdays, Monday = 1.
var DefaultWorkDays = []int{1, 2, 3, 4, 5}

// Task names known to the scheduler.
const (
	TaskScheduleReminders = "schedule_reminders"
	TaskSendReminders     = "send_reminders"
	TaskSQLMaintenance    = "sql_maintenance"
)

// setDefaults registers every key so environment variables can override keys absent from the file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", DefaultLogLevel)
	v.SetDefault("logger.json", false)

	v.SetDefault("database.path", DefaultDatabasePath)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_ids", []int64{})
	v.SetDefault("telegram.delivery.attempts", DefaultDeliveryAttempts)
	v.SetDefault("telegram.delivery.backoff", DefaultDeliveryBackoff)
	v.SetDefault("telegram.delivery.max_failures", DefaultDeliveryMaxFailures)
	v.SetDefault("telegram.delivery.open_duration", DefaultDeliveryOpenDuration)

	v.SetDefault("business.name", DefaultBusinessName)
	v.SetDefault("business.phone", "")
	v.SetDefault("business.email", "")
	v.SetDefault("business.address", "")
	v.SetDefault("business.website", "")
	v.SetDefault("business.about", "")
	v.SetDefault("business.timezone", DefaultTimezone)
	v.SetDefault("business.work_start_hour", DefaultWorkStartHour)
	v.SetDefault("business.work_end_hour", DefaultWorkEndHour)
	v.SetDefault("business.work_days", DefaultWorkDays)
	v.SetDefault("business.slot_minutes", DefaultSlotMinutes)
	v.SetDefault("business.day_before_reminder_hour", DefaultDayBeforeReminderHour)

	v.SetDefault("scheduler.tasks", map[string]any{
		TaskScheduleReminders: map[string]any{"enabled": true, "schedule": "0 */30 * * * *"},
		TaskSendReminders:     map[string]any{"enabled": true, "schedule": "0 */5 * * * *"},
		TaskSQLMaintenance:    map[string]any{"enabled": true, "schedule": "0 0 4 * * 0"},
	})

	v.SetDefault("rate_limit.per_second", DefaultRatePerSecond)
	v.SetDefault("rate_limit.per_minute", DefaultRatePerMinute)
	v.SetDefault("rate_limit.block_duration", DefaultRateBlockDuration)
}
