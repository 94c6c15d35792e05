package handlers

import (
	"context"
	"fmt"

	"github.com/edgard/intakebot/internal/chat"
	"github.com/edgard/intakebot/internal/database"
)

// fanOut sends msg to every configured admin. Each delivery fails independently.
func (d *Desk) fanOut(ctx context.Context, msg chat.Message) {
	for _, adminID := range d.deps.Config.Telegram.AdminIDs {
		if _, err := d.deps.Messenger.Send(ctx, adminID, msg); err != nil {
			d.log.WarnContext(ctx, "Failed to notify admin", "error", err, "admin_id", adminID)
		}
	}
}

func appointmentActions(a database.Appointment) [][]chat.Button {
	id := fmt.Sprint(a.ID)
	var rows [][]chat.Button
	switch a.Status {
	case database.StatusPending:
		rows = append(rows,
			chat.Row(chat.Action("✅ Confirm", data(nsAppointment, "confirm", id)),
				chat.Action("💳 Payment", data(nsAppointment, "pay", id))),
			chat.Row(chat.Action("❌ Cancel", data(nsAppointment, "cancel", id))))
	case database.StatusConfirmed:
		rows = append(rows,
			chat.Row(chat.Action("🏁 Complete", data(nsAppointment, "complete", id)),
				chat.Action("💳 Payment", data(nsAppointment, "pay", id))),
			chat.Row(chat.Action("❌ Cancel", data(nsAppointment, "cancel", id))))
	case database.StatusPaymentSent:
		rows = append(rows,
			chat.Row(chat.Action("🏁 Complete", data(nsAppointment, "complete", id)),
				chat.Action("❌ Cancel", data(nsAppointment, "cancel", id))))
	}
	return append(rows,
		chat.Row(chat.Action("📞 Call", data(nsAppointment, "call", id)),
			chat.Action("📜 History", data(nsAppointment, "history", id))),
		backToPanel())
}

func questionActions(q database.Question) [][]chat.Button {
	id := fmt.Sprint(q.ID)
	var rows [][]chat.Button
	if q.Status != database.QuestionClosed {
		rows = append(rows, chat.Row(chat.Action("✍️ Reply", data(nsQuestion, "reply", id))))
	}
	if q.Status == database.QuestionNew {
		rows = append(rows, chat.Row(chat.Action("✅ Answered", data(nsQuestion, "answered", id)),
			chat.Action("🔒 Close", data(nsQuestion, "close", id))))
	} else if q.Status == database.QuestionAnswered {
		rows = append(rows, chat.Row(chat.Action("🔒 Close", data(nsQuestion, "close", id))))
	}
	return append(rows,
		chat.Row(chat.Action("📞 Call", data(nsQuestion, "call", id))),
		backToPanel())
}

var clientStatusText = map[database.AppointmentStatus]string{
	database.StatusConfirmed: "✅ Your request #%d (%s) has been confirmed. We look forward to seeing you!",
	database.StatusCancelled: "❌ Your request #%d (%s) has been cancelled. Contact us if you have any questions.",
	database.StatusCompleted: "🏁 Your request #%d (%s) is completed. Thank you for choosing us!",
}

// notifyClient tells the owner of a about its new status. It reports whether delivery succeeded.
func (d *Desk) notifyClient(ctx context.Context, a database.Appointment) bool {
	tmpl, ok := clientStatusText[a.Status]
	if !ok {
		return true
	}
	text := fmt.Sprintf(tmpl, a.ID, a.Service)
	if w := when(a); w != "" && a.Status == database.StatusConfirmed {
		text += "\n\n📅 " + w
	}
	if _, err := d.deps.Messenger.Send(ctx, a.UserID, chat.Message{Text: text}); err != nil {
		d.log.WarnContext(ctx, "Failed to notify client", "error", err,
			"user_id", a.UserID, "appointment_id", a.ID, "status", a.Status)
		return false
	}
	return true
}
