package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/edgard/intakebot/internal/chat"
	"github.com/edgard/intakebot/internal/conversation"
	"github.com/edgard/intakebot/internal/database"
	"github.com/edgard/intakebot/internal/validate"
)

func (d *Desk) startReply(ctx context.Context, ev chat.ButtonEvent, q *database.Question) {
	next := conversation.AdminReplying{QuestionID: q.ID, TargetUserID: q.UserID}
	if owner, ok := d.deps.Sessions.Begin(ev.From.ID, next); !ok {
		d.busy(ctx, ev.ChatID, owner)
		return
	}
	d.send(ctx, ev.ChatID, chat.Message{
		Text: fmt.Sprintf("✍️ Type the answer to question #%d:\n\n%s", q.ID, q.Text),
		Menu: cancelMenu(),
	})
}

// continueReply sends the message to the asking client as the answer.
func (d *Desk) continueReply(ctx context.Context, ev chat.TextEvent, s conversation.AdminReplying) {
	log := d.log.With("flow", "admin_reply", "question_id", s.QuestionID)
	if !d.isAdmin(ctx, ev.From.ID) {
		log.WarnContext(ctx, "Reply by non-admin dropped", "user_id", ev.From.ID)
		d.deps.Sessions.Clear(ev.From.ID)
		return
	}

	q, err := d.deps.Store.GetQuestion(ctx, s.QuestionID)
	if err != nil || q == nil {
		if err != nil {
			log.ErrorContext(ctx, "Failed to load question", "error", err)
		}
		d.resetToAdmin(ctx, ev.From.ID, ev.ChatID, fmt.Sprintf("⚠️ Question #%d was not found.", s.QuestionID))
		return
	}

	reply := fmt.Sprintf("💬 Answer to your question:\n\n«%s»\n\n%s", q.Text, ev.Text)
	if _, err := d.deps.Messenger.Send(ctx, s.TargetUserID, chat.Message{Text: reply}); err != nil {
		log.WarnContext(ctx, "Failed to deliver answer", "error", err, "user_id", s.TargetUserID)
		d.resetToAdmin(ctx, ev.From.ID, ev.ChatID,
			"⚠️ The answer could not be delivered, the client may have blocked the bot. The question stays open.")
		return
	}

	if err := d.deps.Store.UpdateQuestionStatus(ctx, q.ID, database.QuestionAnswered); err != nil {
		log.ErrorContext(ctx, "Failed to mark question answered", "error", err)
	}
	log.InfoContext(ctx, "Question answered", "admin_id", ev.From.ID)
	d.resetToAdmin(ctx, ev.From.ID, ev.ChatID, fmt.Sprintf("✅ The answer to question #%d has been sent.", q.ID))
}

func (d *Desk) startPayment(ctx context.Context, ev chat.ButtonEvent, a *database.Appointment) {
	next := conversation.AdminPayment{AppointmentID: a.ID, Step: conversation.WaitingAmount}
	if owner, ok := d.deps.Sessions.Begin(ev.From.ID, next); !ok {
		d.busy(ctx, ev.ChatID, owner)
		return
	}
	d.send(ctx, ev.ChatID, chat.Message{
		Text: fmt.Sprintf("💳 Payment request for #%d (%s, %s)\n\nEnter the amount in rubles:",
			a.ID, a.ClientName, a.Service),
		Menu: cancelMenu(),
	})
}

// continuePayment consumes one message of the payment request.
func (d *Desk) continuePayment(ctx context.Context, ev chat.TextEvent, s conversation.AdminPayment) {
	switch s.Step {
	case conversation.WaitingAmount:
		amount, err := validate.Amount(ev.Text)
		if err != nil {
			d.reject(ctx, ev.ChatID, "Enter a positive amount, for example 5000 or 2 500,50.", cancelMenu())
			return
		}
		s.Amount = amount
		s.Step = conversation.WaitingLink
		d.deps.Sessions.Set(ev.From.ID, s)
		d.send(ctx, ev.ChatID, chat.Message{
			Text: fmt.Sprintf("Amount: %s\n\n🔗 Send the payment link, or press «%s» to send the request without a link.",
				formatAmount(amount), labelSkip),
			Menu: skipMenu(),
		})

	case conversation.WaitingLink:
		link, err := validate.PaymentLink(ev.Text)
		if err != nil {
			d.reject(ctx, ev.ChatID, "The link must start with http:// or https://, or press «"+labelSkip+"».", skipMenu())
			return
		}
		d.finishPayment(ctx, ev, s, link)
	}
}

func (d *Desk) finishPayment(ctx context.Context, ev chat.TextEvent, s conversation.AdminPayment, link string) {
	log := d.log.With("flow", "admin_payment", "appointment_id", s.AppointmentID)
	if !d.isAdmin(ctx, ev.From.ID) {
		log.WarnContext(ctx, "Payment by non-admin dropped", "user_id", ev.From.ID)
		d.deps.Sessions.Clear(ev.From.ID)
		return
	}

	comment := "Amount: " + formatAmount(s.Amount)
	if link != "" {
		comment += ", link: " + link
	}
	appt, err := d.deps.Store.UpdateAppointmentStatus(ctx, s.AppointmentID, database.StatusPaymentSent, ev.From.ID, comment)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			d.resetToAdmin(ctx, ev.From.ID, ev.ChatID, fmt.Sprintf("⚠️ Request #%d was not found.", s.AppointmentID))
			return
		}
		log.ErrorContext(ctx, "Failed to set payment status", "error", err)
		d.send(ctx, ev.ChatID, chat.Message{Text: "⚠️ Could not update the request, try sending the link again.", Menu: skipMenu()})
		return
	}

	text := fmt.Sprintf("💳 Payment for request #%d (%s)\n\nAmount: %s", appt.ID, appt.Service, formatAmount(s.Amount))
	var buttons [][]chat.Button
	if link != "" {
		text += "\n\nUse the button below to pay."
		buttons = [][]chat.Button{chat.Row(chat.Link("💳 Pay", link))}
	} else if phone := d.deps.Config.Business.Phone; phone != "" {
		text += "\n\nCall us to arrange the payment: " + phone
	} else {
		text += "\n\nWe will contact you to arrange the payment."
	}

	notice := fmt.Sprintf("✅ Payment request for #%d sent to the client.", appt.ID)
	if _, err := d.deps.Messenger.Send(ctx, appt.UserID, chat.Message{Text: text, Inline: buttons}); err != nil {
		log.WarnContext(ctx, "Failed to deliver payment request", "error", err, "user_id", appt.UserID)
		notice = fmt.Sprintf("⚠️ Request #%d is marked as awaiting payment, but the client could not be notified. "+
			"Contact them by phone: %s", appt.ID, appt.ClientPhone)
	}
	log.InfoContext(ctx, "Payment requested", "admin_id", ev.From.ID, "amount", s.Amount)
	d.resetToAdmin(ctx, ev.From.ID, ev.ChatID, notice)
}

// resetToAdmin clears the admin's workflow and shows the admin menu.
func (d *Desk) resetToAdmin(ctx context.Context, userID, chatID int64, notice string) {
	d.deps.Sessions.Clear(userID)
	d.send(ctx, chatID, chat.Message{Text: notice, Menu: adminMenu()})
}
