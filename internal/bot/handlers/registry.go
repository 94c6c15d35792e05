package handlers

import (
	"context"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/intakebot/internal/chat"
	"github.com/edgard/intakebot/internal/telegram"
)

// RegisterAllCommands returns the command and callback handlers of the bot.
// Free text reaches the Desk through NewDefaultHandler instead.
func RegisterAllCommands(desk *Desk) map[string]telegram.RegisteredHandler {
	handlers := make(map[string]telegram.RegisteredHandler)

	handlers["/start"] = telegram.RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "start",
		Handler:     textHandler(desk.HandleStart),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
	}
	handlers["/admin"] = telegram.RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "admin",
		Handler:     textHandler(desk.HandleAdmin),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
		Middleware:  []tgbot.Middleware{AdminOnly(desk)},
	}
	handlers["/grant_admin"] = telegram.RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "grant_admin",
		Handler:     textHandler(desk.HandleGrantAdmin),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
		Middleware:  []tgbot.Middleware{StaticAdminOnly(desk)},
	}

	for _, ns := range []string{nsService, nsSimple, nsAppointment, nsQuestion, nsAdmin, nsExport} {
		handlers[ns+":"] = telegram.RegisteredHandler{
			HandlerType: tgbot.HandlerTypeCallbackQueryData,
			Pattern:     ns + ":",
			Handler:     buttonHandler(desk.HandleButton),
			MatchType:   tgbot.MatchTypePrefix,
		}
	}

	return handlers
}

// NewDefaultHandler routes every update no registered handler matched.
func NewDefaultHandler(desk *Desk) tgbot.HandlerFunc {
	return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
		if _, ok := telegram.ButtonEventFromUpdate(update); ok {
			buttonHandler(desk.HandleButton)(ctx, b, update)
			return
		}
		textHandler(desk.HandleText)(ctx, b, update)
	}
}

func textHandler(fn func(context.Context, chat.TextEvent)) tgbot.HandlerFunc {
	return func(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
		ev, ok := telegram.TextEventFromUpdate(update)
		if !ok {
			return
		}
		fn(ctx, ev)
	}
}

func buttonHandler(fn func(context.Context, chat.ButtonEvent)) tgbot.HandlerFunc {
	return func(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
		ev, ok := telegram.ButtonEventFromUpdate(update)
		if !ok {
			return
		}
		fn(ctx, ev)
	}
}
