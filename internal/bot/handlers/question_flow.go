package handlers

import (
	"context"
	"fmt"

	"github.com/edgard/intakebot/internal/chat"
	"github.com/edgard/intakebot/internal/conversation"
	"github.com/edgard/intakebot/internal/database"
)

func (d *Desk) startQuestion(ctx context.Context, ev chat.TextEvent, _ conversation.State) {
	d.ensureUser(ctx, ev.From)
	if owner, ok := d.deps.Sessions.Begin(ev.From.ID, conversation.QuestionIntake{Step: conversation.WaitingQuestion}); !ok {
		d.busy(ctx, ev.ChatID, owner)
		return
	}
	d.send(ctx, ev.ChatID, chat.Message{
		Text: "❓ Type your question in one message and our lawyer will answer you here.",
		Menu: cancelMenu(),
	})
}

// continueQuestion takes the message as the question body.
func (d *Desk) continueQuestion(ctx context.Context, ev chat.TextEvent, _ conversation.QuestionIntake) {
	q := &database.Question{
		UserID:     ev.From.ID,
		Text:       ev.Text,
		ClientName: nullString(ev.From.DisplayName()),
		Status:     database.QuestionNew,
	}
	user, err := d.deps.Store.GetUser(ctx, ev.From.ID)
	if err != nil {
		d.log.WarnContext(ctx, "Failed to load user", "error", err, "user_id", ev.From.ID)
	} else if user != nil && user.Phone.Valid {
		q.ClientPhone = user.Phone
	}

	d.ensureUser(ctx, ev.From)
	if err := d.deps.Store.CreateQuestion(ctx, q); err != nil {
		d.log.ErrorContext(ctx, "Failed to create question", "error", err, "user_id", ev.From.ID)
		d.send(ctx, ev.ChatID, chat.Message{
			Text: "⚠️ We could not save your question. Please send it again in a minute.",
			Menu: cancelMenu(),
		})
		return
	}
	d.deps.Sessions.Clear(ev.From.ID)
	d.log.InfoContext(ctx, "Question created", "question_id", q.ID, "user_id", ev.From.ID)

	d.fanOut(ctx, chat.Message{
		Text:   "🆕 New question\n\n" + formatQuestion(*q, d.loc),
		Inline: questionActions(*q),
	})
	d.send(ctx, ev.ChatID, chat.Message{
		Text: fmt.Sprintf("✅ Thank you! Your question #%d has been received. We will answer you soon.", q.ID),
		Menu: mainMenu(d.isAdmin(ctx, ev.From.ID)),
	})
}
