// Package config loads the bot configuration from a YAML file and INTAKE_* environment variables.
package config

import "time"

// Config is the complete bot configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Business  BusinessConfig  `mapstructure:"business"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// LoggerConfig controls slog output.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// DatabaseConfig points at the SQLite file.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// TelegramConfig holds the bot token and the static admin allow-list.
type TelegramConfig struct {
	Token    string         `mapstructure:"token" validate:"required"`
	AdminIDs []int64        `mapstructure:"admin_ids" validate:"dive,ne=0"`
	Delivery DeliveryConfig `mapstructure:"delivery"`
}

// DeliveryConfig tunes retries and the circuit breaker around outgoing Bot API calls.
type DeliveryConfig struct {
	Attempts     int           `mapstructure:"attempts" validate:"gte=1,lte=5"`
	Backoff      time.Duration `mapstructure:"backoff" validate:"gte=0"`
	MaxFailures  int           `mapstructure:"max_failures" validate:"gt=0"`
	OpenDuration time.Duration `mapstructure:"open_duration" validate:"gt=0"`
}

// BusinessConfig describes the business the bot takes requests for.
type BusinessConfig struct {
	Name     string `mapstructure:"name" validate:"required"`
	Phone    string `mapstructure:"phone"`
	Email    string `mapstructure:"email" validate:"omitempty,email"`
	Address  string `mapstructure:"address"`
	Website  string `mapstructure:"website" validate:"omitempty,url"`
	About    string `mapstructure:"about"`
	Timezone string `mapstructure:"timezone" validate:"required"`

	WorkStartHour int   `mapstructure:"work_start_hour" validate:"gte=0,lte=23"`
	WorkEndHour   int   `mapstructure:"work_end_hour" validate:"gtfield=WorkStartHour,lte=24"`
	WorkDays      []int `mapstructure:"work_days" validate:"min=1,dive,gte=1,lte=7"`
	SlotMinutes   int   `mapstructure:"slot_minutes" validate:"gt=0,lte=240"`

	// DayBeforeReminderHour is the local hour at which day_before reminders go out.
	DayBeforeReminderHour int `mapstructure:"day_before_reminder_hour" validate:"gte=0,lte=23"`
}

// TaskConfig enables a scheduled task and sets its cron schedule.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

// SchedulerConfig lists scheduled tasks by name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// RateLimitConfig bounds how fast a single user may send messages.
type RateLimitConfig struct {
	PerSecond     int           `mapstructure:"per_second" validate:"gt=0"`
	PerMinute     int           `mapstructure:"per_minute" validate:"gt=0"`
	BlockDuration time.Duration `mapstructure:"block_duration" validate:"gt=0"`
}
