package handlers

import (
	"context"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/intakebot/internal/chat"
)

// AdminOnly creates a middleware that lets a command through only if the sender is an admin,
// either static or granted. Others get a "no access" reply and processing stops.
func AdminOnly(desk *Desk) tgbot.Middleware {
	return requireAdmin(desk, desk.isAdmin)
}

// StaticAdminOnly is AdminOnly restricted to the configured allow-list.
func StaticAdminOnly(desk *Desk) tgbot.Middleware {
	return requireAdmin(desk, func(_ context.Context, userID int64) bool {
		return desk.deps.Config.IsStaticAdmin(userID)
	})
}

func requireAdmin(desk *Desk, allowed func(context.Context, int64) bool) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
			if update.Message == nil || update.Message.From == nil {
				next(ctx, bot, update)
				return
			}

			userID := update.Message.From.ID
			if !allowed(ctx, userID) {
				chatID := update.Message.Chat.ID
				log := desk.log.With("middleware", "AdminOnly")
				log.WarnContext(ctx, "Unauthorized access attempt", "user_id", userID, "chat_id", chatID)
				desk.send(ctx, chatID, chat.Message{Text: "⛔ No access"})
				return
			}

			next(ctx, bot, update)
		}
	}
}
