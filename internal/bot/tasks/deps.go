// Package tasks implements the scheduled tasks of the bot: appointment reminders and
// database maintenance.
package tasks

import (
	"log/slog"
	"time"

	"github.com/edgard/intakebot/internal/chat"
	"github.com/edgard/intakebot/internal/config"
	"github.com/edgard/intakebot/internal/database"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger    *slog.Logger
	Store     database.Store
	Messenger chat.Messenger
	Config    *config.Config
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}
