package handlers

import (
	"context"

	"github.com/edgard/intakebot/internal/chat"
	"github.com/edgard/intakebot/internal/conversation"
)

// Consumer names the component that handled a free-text message.
type Consumer int

const (
	ConsumerNone Consumer = iota
	ConsumerReset
	ConsumerAdminPayment
	ConsumerAdminReply
	ConsumerQuestion
	ConsumerAppointment
	ConsumerServiceDetail
	ConsumerCategory
)

func (c Consumer) String() string {
	switch c {
	case ConsumerReset:
		return "reset"
	case ConsumerAdminPayment:
		return "admin_payment"
	case ConsumerAdminReply:
		return "admin_reply"
	case ConsumerQuestion:
		return "question"
	case ConsumerAppointment:
		return "appointment"
	case ConsumerServiceDetail:
		return "service_detail"
	case ConsumerCategory:
		return "category"
	default:
		return "none"
	}
}

// Route hands a free-text message to exactly one consumer and reports which one ran.
// The active workflow wins; with no workflow, catalog labels open the catalog.
func (d *Desk) Route(ctx context.Context, ev chat.TextEvent, state conversation.State) Consumer {
	if !state.Consistent() {
		d.log.WarnContext(ctx, "Inconsistent conversation state, resetting",
			"user_id", ev.From.ID, "kind", state.Kind().String())
		d.resetToMenu(ctx, ev.From.ID, ev.ChatID, "⚠️ Something went wrong with the current form. Please start again.")
		return ConsumerReset
	}

	switch s := state.(type) {
	case conversation.AdminPayment:
		d.continuePayment(ctx, ev, s)
		return ConsumerAdminPayment
	case conversation.AdminReplying:
		d.continueReply(ctx, ev, s)
		return ConsumerAdminReply
	case conversation.QuestionIntake:
		d.continueQuestion(ctx, ev, s)
		return ConsumerQuestion
	case conversation.AppointmentIntake:
		d.continueAppointment(ctx, ev, s)
		return ConsumerAppointment
	}

	if svc, ok := d.deps.Catalog.ServiceByLabel(ev.Text); ok {
		d.showService(ctx, ev.ChatID, svc)
		return ConsumerServiceDetail
	}
	if cat, ok := d.deps.Catalog.CategoryByLabel(ev.Text); ok {
		d.showCategory(ctx, ev.ChatID, cat)
		return ConsumerCategory
	}

	d.log.DebugContext(ctx, "Message not handled", "user_id", ev.From.ID)
	return ConsumerNone
}
