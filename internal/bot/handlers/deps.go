package handlers

import (
	"log/slog"
	"time"

	"github.com/edgard/intakebot/internal/catalog"
	"github.com/edgard/intakebot/internal/chat"
	"github.com/edgard/intakebot/internal/config"
	"github.com/edgard/intakebot/internal/conversation"
	"github.com/edgard/intakebot/internal/database"
	"github.com/edgard/intakebot/internal/ratelimit"
)

// HandlerDeps provides dependencies for the conversation handlers.
type HandlerDeps struct {
	Logger    *slog.Logger
	Config    *config.Config
	Store     database.Store
	Sessions  *conversation.Store
	Messenger chat.Messenger
	Catalog   *catalog.Catalog
	// Limiter throttles inbound events per user; nil disables throttling.
	Limiter *ratelimit.Limiter
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}
