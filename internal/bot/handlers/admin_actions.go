package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/edgard/intakebot/internal/chat"
	"github.com/edgard/intakebot/internal/database"
)

// pageSize is the number of entries per admin list page.
const pageSize = 5

// dispatchAdmin handles appt:, q:, adm: and export: buttons. The caller has checked admin rights.
func (d *Desk) dispatchAdmin(ctx context.Context, ev chat.ButtonEvent, parts []string) {
	ns, action := parts[0], ""
	if len(parts) > 1 {
		action = parts[1]
	}
	args := parts[min(2, len(parts)):]
	log := d.log.With("admin_id", ev.From.ID, "action", ns+":"+action)

	switch ns {
	case nsAppointment:
		d.appointmentAction(ctx, ev, action, args)
	case nsQuestion:
		d.questionAction(ctx, ev, action, args)
	case nsAdmin:
		d.answer(ctx, ev, "", false)
		switch action {
		case "filters":
			d.show(ctx, ev, filterMessage())
		default:
			d.show(ctx, ev, d.panelOverview(ctx))
		}
	case nsExport:
		d.answer(ctx, ev, "⏳ Preparing the file…", false)
		d.export(ctx, ev.ChatID, action)
	default:
		log.WarnContext(ctx, "Unknown admin action")
		d.answer(ctx, ev, "", false)
	}
}

func (d *Desk) appointmentAction(ctx context.Context, ev chat.ButtonEvent, action string, args []string) {
	if action == "list" {
		d.answer(ctx, ev, "", false)
		filter, page := "all", 0
		if len(args) > 0 {
			filter = args[0]
		}
		if len(args) > 1 {
			page, _ = strconv.Atoi(args[1])
		}
		d.show(ctx, ev, d.appointmentList(ctx, filter, page))
		return
	}

	id, err := parseID(args)
	if err != nil {
		d.answer(ctx, ev, "⚠️ Malformed request", false)
		return
	}
	appt, err := d.deps.Store.GetAppointment(ctx, id)
	if err != nil {
		d.log.ErrorContext(ctx, "Failed to load appointment", "error", err, "appointment_id", id)
		d.answer(ctx, ev, "⚠️ Could not load the request, try again.", true)
		return
	}
	if appt == nil {
		d.answer(ctx, ev, fmt.Sprintf("⚠️ Request #%d was not found.", id), true)
		return
	}

	switch action {
	case "view":
		d.answer(ctx, ev, "", false)
		d.show(ctx, ev, chat.Message{Text: formatAppointment(*appt, d.loc), Inline: appointmentActions(*appt)})
	case "confirm":
		d.changeStatus(ctx, ev, appt.ID, database.StatusConfirmed)
	case "cancel":
		d.changeStatus(ctx, ev, appt.ID, database.StatusCancelled)
	case "complete":
		d.changeStatus(ctx, ev, appt.ID, database.StatusCompleted)
	case "pay":
		d.answer(ctx, ev, "", false)
		d.startPayment(ctx, ev, appt)
	case "call":
		d.answer(ctx, ev, fmt.Sprintf("📞 %s\n%s", appt.ClientName, appt.ClientPhone), true)
	case "history":
		history, err := d.deps.Store.ListStatusHistory(ctx, appt.ID)
		if err != nil {
			d.log.ErrorContext(ctx, "Failed to load history", "error", err, "appointment_id", appt.ID)
			d.answer(ctx, ev, "⚠️ Could not load the history, try again.", true)
			return
		}
		d.answer(ctx, ev, "", false)
		d.show(ctx, ev, chat.Message{
			Text: formatHistory(appt.ID, history, d.loc),
			Inline: [][]chat.Button{
				chat.Row(chat.Action("🔙 Back to request", data(nsAppointment, "view", strconv.FormatInt(appt.ID, 10)))),
			},
		})
	default:
		d.answer(ctx, ev, "", false)
	}
}

// changeStatus writes a new status through the store, refreshes the card and tells the client.
func (d *Desk) changeStatus(ctx context.Context, ev chat.ButtonEvent, id int64, status database.AppointmentStatus) {
	appt, err := d.deps.Store.UpdateAppointmentStatus(ctx, id, status, ev.From.ID, "")
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			d.answer(ctx, ev, fmt.Sprintf("⚠️ Request #%d was not found.", id), true)
			return
		}
		d.log.ErrorContext(ctx, "Failed to update appointment status", "error", err, "appointment_id", id, "status", status)
		d.answer(ctx, ev, "⚠️ Could not update the request, try again.", true)
		return
	}
	d.log.InfoContext(ctx, "Appointment status changed", "appointment_id", id, "status", status, "admin_id", ev.From.ID)
	d.answer(ctx, ev, statusLabel(status), false)
	d.show(ctx, ev, chat.Message{Text: formatAppointment(*appt, d.loc), Inline: appointmentActions(*appt)})

	if !d.notifyClient(ctx, *appt) {
		d.send(ctx, ev.ChatID, chat.Message{
			Text: fmt.Sprintf("⚠️ The client of request #%d could not be notified. Phone: %s", appt.ID, appt.ClientPhone),
		})
	}
}

func (d *Desk) questionAction(ctx context.Context, ev chat.ButtonEvent, action string, args []string) {
	if action == "list" {
		d.answer(ctx, ev, "", false)
		page := 0
		if len(args) > 0 {
			page, _ = strconv.Atoi(args[0])
		}
		d.show(ctx, ev, d.questionList(ctx, page))
		return
	}

	id, err := parseID(args)
	if err != nil {
		d.answer(ctx, ev, "⚠️ Malformed request", false)
		return
	}
	q, err := d.deps.Store.GetQuestion(ctx, id)
	if err != nil {
		d.log.ErrorContext(ctx, "Failed to load question", "error", err, "question_id", id)
		d.answer(ctx, ev, "⚠️ Could not load the question, try again.", true)
		return
	}
	if q == nil {
		d.answer(ctx, ev, fmt.Sprintf("⚠️ Question #%d was not found.", id), true)
		return
	}

	switch action {
	case "view":
		d.answer(ctx, ev, "", false)
		d.show(ctx, ev, chat.Message{Text: formatQuestion(*q, d.loc), Inline: questionActions(*q)})
	case "answered":
		d.changeQuestion(ctx, ev, q, database.QuestionAnswered)
	case "close":
		d.changeQuestion(ctx, ev, q, database.QuestionClosed)
	case "reply":
		d.answer(ctx, ev, "", false)
		d.startReply(ctx, ev, q)
	case "call":
		phone := "not provided"
		if q.ClientPhone.Valid && q.ClientPhone.String != "" {
			phone = q.ClientPhone.String
		}
		d.answer(ctx, ev, fmt.Sprintf("📞 %s\n%s", q.ClientName.String, phone), true)
	default:
		d.answer(ctx, ev, "", false)
	}
}

func (d *Desk) changeQuestion(ctx context.Context, ev chat.ButtonEvent, q *database.Question, status database.QuestionStatus) {
	if err := d.deps.Store.UpdateQuestionStatus(ctx, q.ID, status); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			d.answer(ctx, ev, fmt.Sprintf("⚠️ Question #%d was not found.", q.ID), true)
			return
		}
		d.log.ErrorContext(ctx, "Failed to update question status", "error", err, "question_id", q.ID)
		d.answer(ctx, ev, "⚠️ Could not update the question, try again.", true)
		return
	}
	q.Status = status
	d.answer(ctx, ev, questionLabel(status), false)
	d.show(ctx, ev, chat.Message{Text: formatQuestion(*q, d.loc), Inline: questionActions(*q)})
}

func parseID(args []string) (int64, error) {
	if len(args) == 0 {
		return 0, errors.New("missing id")
	}
	return strconv.ParseInt(args[0], 10, 64)
}
