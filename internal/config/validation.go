package config

import (
	"fmt"
	"slices"
	"time"
	_ "time/tzdata" // business timezone must resolve on hosts without zoneinfo

	"github.com/go-playground/validator/v10"
)

// Validate checks field constraints and that the timezone exists.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := time.LoadLocation(c.Business.Timezone); err != nil {
		return fmt.Errorf("invalid configuration: unknown timezone %q: %w", c.Business.Timezone, err)
	}
	return nil
}

// IsStaticAdmin reports whether userID is in the configured allow-list.
func (c *Config) IsStaticAdmin(userID int64) bool {
	return slices.Contains(c.Telegram.AdminIDs, userID)
}

// Location returns the business timezone, UTC if it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Business.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsWorkDay reports whether t falls on a configured work day.
func (b BusinessConfig) IsWorkDay(t time.Time) bool {
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7
	}
	return slices.Contains(b.WorkDays, wd)
}
