package telegram

import (
	"github.com/go-telegram/bot/models"

	"github.com/edgard/intakebot/internal/chat"
)

func sender(u models.User) chat.Sender {
	return chat.Sender{ID: u.ID, Username: u.Username, FirstName: u.FirstName, LastName: u.LastName}
}

// TextEventFromUpdate converts a text message update. ok is false for other updates.
func TextEventFromUpdate(update *models.Update) (ev chat.TextEvent, ok bool) {
	if update == nil || update.Message == nil || update.Message.From == nil {
		return chat.TextEvent{}, false
	}
	msg := update.Message
	return chat.TextEvent{
		From:      sender(*msg.From),
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
		Text:      msg.Text,
	}, true
}

// ButtonEventFromUpdate converts a callback query update. ok is false for other updates.
func ButtonEventFromUpdate(update *models.Update) (ev chat.ButtonEvent, ok bool) {
	if update == nil || update.CallbackQuery == nil {
		return chat.ButtonEvent{}, false
	}
	cq := update.CallbackQuery
	ev = chat.ButtonEvent{
		ID:   cq.ID,
		From: sender(cq.From),
		Data: cq.Data,
	}
	ev.ChatID, ev.MessageID = callbackOrigin(cq)
	if ev.ChatID == 0 {
		ev.ChatID = cq.From.ID
	}
	return ev, true
}

// callbackOrigin returns the chat and message the pressed button belongs to.
func callbackOrigin(cq *models.CallbackQuery) (chatID int64, messageID int) {
	switch {
	case cq.Message.Message != nil:
		return cq.Message.Message.Chat.ID, cq.Message.Message.ID
	case cq.Message.InaccessibleMessage != nil:
		return cq.Message.InaccessibleMessage.Chat.ID, cq.Message.InaccessibleMessage.MessageID
	default:
		return 0, 0
	}
}
