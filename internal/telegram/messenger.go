package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/intakebot/internal/chat"
	"github.com/edgard/intakebot/internal/config"
	"github.com/edgard/intakebot/internal/resilience"
)

var errNotBound = errors.New("messenger is not bound to a telegram bot")

// Messenger implements chat.Messenger on top of the Telegram Bot API.
// It is created before the bot so handlers can hold it, and bound once the bot exists.
// Every API call goes through a resilience.Guard.
type Messenger struct {
	mu     sync.RWMutex
	bot    *bot.Bot
	guard  *resilience.Guard
	logger *slog.Logger
}

// NewMessenger returns an unbound Messenger.
func NewMessenger(logger *slog.Logger, delivery config.DeliveryConfig) *Messenger {
	if logger == nil {
		logger = slog.Default()
	}
	guard := resilience.New(resilience.Settings{
		Name:         "telegram",
		Attempts:     delivery.Attempts,
		Backoff:      delivery.Backoff,
		MaxFailures:  delivery.MaxFailures,
		OpenDuration: delivery.OpenDuration,
		Permanent:    permanent,
	}, logger)
	return &Messenger{guard: guard, logger: logger.With("component", "messenger")}
}

// permanent reports Bot API errors a retry cannot fix: blocked bots, bad input, missing chats.
func permanent(err error) bool {
	return errors.Is(err, errNotBound) ||
		errors.Is(err, bot.ErrorForbidden) ||
		errors.Is(err, bot.ErrorBadRequest) ||
		errors.Is(err, bot.ErrorUnauthorized) ||
		errors.Is(err, bot.ErrorNotFound)
}

// Bind attaches the bot used for delivery.
func (m *Messenger) Bind(b *bot.Bot) {
	m.mu.Lock()
	m.bot = b
	m.mu.Unlock()
}

func (m *Messenger) client() (*bot.Bot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.bot == nil {
		return nil, errNotBound
	}
	return m.bot, nil
}

// Send delivers msg. Inline buttons take precedence over a menu keyboard, as Telegram
// accepts a single reply markup per message.
func (m *Messenger) Send(ctx context.Context, chatID int64, msg chat.Message) (int, error) {
	b, err := m.client()
	if err != nil {
		return 0, err
	}
	var sent *models.Message
	err = m.guard.Do(ctx, func(ctx context.Context) error {
		var err error
		sent, err = b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:      chatID,
			Text:        msg.Text,
			ReplyMarkup: replyMarkup(msg),
		})
		return err
	})
	if err != nil {
		m.logger.WarnContext(ctx, "Failed to send message", "chat_id", chatID, "error", err)
		return 0, fmt.Errorf("failed to send message to chat %d: %w", chatID, err)
	}
	return sent.ID, nil
}

func (m *Messenger) Edit(ctx context.Context, chatID int64, messageID int, msg chat.Message) error {
	b, err := m.client()
	if err != nil {
		return err
	}
	params := &bot.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      msg.Text,
	}
	if len(msg.Inline) > 0 {
		params.ReplyMarkup = inlineMarkup(msg.Inline)
	}
	err = m.guard.Do(ctx, func(ctx context.Context) error {
		_, err := b.EditMessageText(ctx, params)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to edit message %d in chat %d: %w", messageID, chatID, err)
	}
	return nil
}

func (m *Messenger) Answer(ctx context.Context, callbackID, text string, alert bool) error {
	b, err := m.client()
	if err != nil {
		return err
	}
	err = m.guard.Do(ctx, func(ctx context.Context) error {
		_, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: callbackID,
			Text:            text,
			ShowAlert:       alert,
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to answer callback query: %w", err)
	}
	return nil
}

func (m *Messenger) SendDocument(ctx context.Context, chatID int64, filename string, data []byte, caption string) error {
	b, err := m.client()
	if err != nil {
		return err
	}
	err = m.guard.Do(ctx, func(ctx context.Context) error {
		_, err := b.SendDocument(ctx, &bot.SendDocumentParams{
			ChatID:   chatID,
			Document: &models.InputFileUpload{Filename: filename, Data: bytes.NewReader(data)},
			Caption:  caption,
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to send document to chat %d: %w", chatID, err)
	}
	return nil
}

func replyMarkup(msg chat.Message) models.ReplyMarkup {
	switch {
	case len(msg.Inline) > 0:
		return inlineMarkup(msg.Inline)
	case len(msg.Menu) > 0:
		keyboard := make([][]models.KeyboardButton, 0, len(msg.Menu))
		for _, row := range msg.Menu {
			buttons := make([]models.KeyboardButton, 0, len(row))
			for _, label := range row {
				buttons = append(buttons, models.KeyboardButton{Text: label})
			}
			keyboard = append(keyboard, buttons)
		}
		return &models.ReplyKeyboardMarkup{Keyboard: keyboard, ResizeKeyboard: true}
	case msg.RemoveMenu:
		return &models.ReplyKeyboardRemove{RemoveKeyboard: true}
	default:
		return nil
	}
}

func inlineMarkup(rows [][]chat.Button) *models.InlineKeyboardMarkup {
	keyboard := make([][]models.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]models.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			buttons = append(buttons, models.InlineKeyboardButton{
				Text:         btn.Text,
				CallbackData: btn.Data,
				URL:          btn.URL,
			})
		}
		keyboard = append(keyboard, buttons)
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: keyboard}
}
