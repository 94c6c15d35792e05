package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/edgard/intakebot/internal/chat"
	"github.com/edgard/intakebot/internal/conversation"
	"github.com/edgard/intakebot/internal/database"
	"github.com/edgard/intakebot/internal/export"
)

// calendarDays is how far ahead the calendar looks, today included.
const calendarDays = 7

// Export kinds, used as export:<kind> callback data.
const (
	exportAppointmentsAll       = "appointments_all"
	exportAppointmentsPending   = "appointments_pending"
	exportAppointmentsConfirmed = "appointments_confirmed"
	exportQuestions             = "questions"
)

func (d *Desk) showAdminPanel(ctx context.Context, ev chat.TextEvent, _ conversation.State) {
	d.send(ctx, ev.ChatID, chat.Message{Text: "🔐 Admin panel", Menu: adminMenu()})
	d.send(ctx, ev.ChatID, d.panelOverview(ctx))
}

func (d *Desk) showNewRequests(ctx context.Context, ev chat.TextEvent, _ conversation.State) {
	d.send(ctx, ev.ChatID, d.panelOverview(ctx))
}

func (d *Desk) showFilters(ctx context.Context, ev chat.TextEvent, _ conversation.State) {
	d.send(ctx, ev.ChatID, filterMessage())
}

// panelOverview summarizes what needs attention.
func (d *Desk) panelOverview(ctx context.Context) chat.Message {
	pending, err := d.deps.Store.CountAppointments(ctx, database.StatusPending)
	if err != nil {
		d.log.ErrorContext(ctx, "Failed to count appointments", "error", err)
	}
	newQuestions, err := d.deps.Store.CountQuestions(ctx, database.QuestionNew)
	if err != nil {
		d.log.ErrorContext(ctx, "Failed to count questions", "error", err)
	}
	return chat.Message{
		Text: fmt.Sprintf("📋 New requests\n\n⏳ Pending requests: %d\n❓ New questions: %d", pending, newQuestions),
		Inline: [][]chat.Button{
			chat.Row(chat.Action(fmt.Sprintf("⏳ Requests (%d)", pending), data(nsAppointment, "list", string(database.StatusPending), "0"))),
			chat.Row(chat.Action(fmt.Sprintf("❓ Questions (%d)", newQuestions), data(nsQuestion, "list", "0"))),
			chat.Row(chat.Action(labelAllRequests, data(nsAdmin, "filters"))),
		},
	}
}

func filterMessage() chat.Message {
	rows := [][]chat.Button{chat.Row(chat.Action("📁 All", data(nsAppointment, "list", "all", "0")))}
	for _, s := range database.AppointmentStatuses {
		rows = append(rows, chat.Row(chat.Action(statusLabel(s), data(nsAppointment, "list", string(s), "0"))))
	}
	rows = append(rows, backToPanel())
	return chat.Message{Text: "📁 All requests\n\nChoose a status:", Inline: rows}
}

// appointmentList renders one page of appointments. filter is a status or "all".
func (d *Desk) appointmentList(ctx context.Context, filter string, page int) chat.Message {
	status := database.AppointmentStatus(filter)
	title := "📁 All requests"
	if filter == "all" || !status.Valid() {
		filter, status = "all", ""
	} else {
		title = "📁 Requests: " + statusLabel(status)
	}
	page = max(page, 0)

	total, err := d.deps.Store.CountAppointments(ctx, status)
	if err != nil {
		d.log.ErrorContext(ctx, "Failed to count appointments", "error", err, "filter", filter)
		return chat.Message{Text: "⚠️ Could not load requests, try again.", Inline: [][]chat.Button{backToPanel()}}
	}
	appts, err := d.deps.Store.ListAppointmentsByStatus(ctx, status, pageSize, page*pageSize)
	if err != nil {
		d.log.ErrorContext(ctx, "Failed to list appointments", "error", err, "filter", filter)
		return chat.Message{Text: "⚠️ Could not load requests, try again.", Inline: [][]chat.Button{backToPanel()}}
	}
	if total == 0 {
		return chat.Message{Text: title + "\n\nNo requests.", Inline: [][]chat.Button{backToPanel()}}
	}

	rows := make([][]chat.Button, 0, len(appts)+2)
	for _, a := range appts {
		rows = append(rows, chat.Row(chat.Action(appointmentLine(a), data(nsAppointment, "view", strconv.FormatInt(a.ID, 10)))))
	}
	if nav := pageNav(page, total, func(p int) string {
		return data(nsAppointment, "list", filter, strconv.Itoa(p))
	}); len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows, backToPanel())
	return chat.Message{
		Text:   fmt.Sprintf("%s\n\nPage %d of %d, %d in total.", title, page+1, pages(total), total),
		Inline: rows,
	}
}

func (d *Desk) questionList(ctx context.Context, page int) chat.Message {
	page = max(page, 0)
	total, err := d.deps.Store.CountQuestions(ctx, database.QuestionNew)
	if err != nil {
		d.log.ErrorContext(ctx, "Failed to count questions", "error", err)
		return chat.Message{Text: "⚠️ Could not load questions, try again.", Inline: [][]chat.Button{backToPanel()}}
	}
	qs, err := d.deps.Store.ListQuestionsByStatus(ctx, database.QuestionNew, pageSize, page*pageSize)
	if err != nil {
		d.log.ErrorContext(ctx, "Failed to list questions", "error", err)
		return chat.Message{Text: "⚠️ Could not load questions, try again.", Inline: [][]chat.Button{backToPanel()}}
	}
	if total == 0 {
		return chat.Message{Text: "❓ New questions\n\nNo new questions.", Inline: [][]chat.Button{backToPanel()}}
	}

	rows := make([][]chat.Button, 0, len(qs)+2)
	for _, q := range qs {
		rows = append(rows, chat.Row(chat.Action(questionLine(q), data(nsQuestion, "view", strconv.FormatInt(q.ID, 10)))))
	}
	if nav := pageNav(page, total, func(p int) string { return data(nsQuestion, "list", strconv.Itoa(p)) }); len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows, backToPanel())
	return chat.Message{
		Text:   fmt.Sprintf("❓ New questions\n\nPage %d of %d, %d in total.", page+1, pages(total), total),
		Inline: rows,
	}
}

func pages(total int) int {
	return max(1, (total+pageSize-1)/pageSize)
}

func pageNav(page, total int, target func(int) string) []chat.Button {
	var nav []chat.Button
	if page > 0 {
		nav = append(nav, chat.Action("◀️", target(page-1)))
	}
	if (page+1)*pageSize < total {
		nav = append(nav, chat.Action("▶️", target(page+1)))
	}
	return nav
}

func (d *Desk) showCalendar(ctx context.Context, ev chat.TextEvent, _ conversation.State) {
	now := d.now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, d.loc)
	to := from.AddDate(0, 0, calendarDays-1)

	appts, err := d.deps.Store.ListAppointmentsBetween(ctx, from.Format(database.DateLayout), to.Format(database.DateLayout))
	if err != nil {
		d.log.ErrorContext(ctx, "Failed to load calendar", "error", err)
		d.send(ctx, ev.ChatID, chat.Message{Text: "⚠️ Could not load the calendar, try again."})
		return
	}

	byDate := make(map[string][]database.Appointment)
	for _, a := range appts {
		byDate[a.Date.String] = append(byDate[a.Date.String], a)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📅 Calendar %s - %s\n", from.Format("02.01"), to.Format("02.01"))
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		fmt.Fprintf(&b, "\n%s, %s", day.Format("Mon 02.01"), d.dayNote(day))
		for _, a := range byDate[day.Format(database.DateLayout)] {
			fmt.Fprintf(&b, "\n  %s  #%d %s · %s · %s", a.Time.String, a.ID, a.ClientName, a.Service, statusLabel(a.Status))
		}
	}
	d.send(ctx, ev.ChatID, chat.Message{Text: b.String()})
}

func (d *Desk) dayNote(day time.Time) string {
	if !d.deps.Config.Business.IsWorkDay(day) {
		return "day off"
	}
	return "working day"
}

func (d *Desk) showStatistics(ctx context.Context, ev chat.TextEvent, _ conversation.State) {
	counts, err := d.deps.Store.CountAppointmentsByStatus(ctx)
	if err != nil {
		d.log.ErrorContext(ctx, "Failed to load statistics", "error", err)
		d.send(ctx, ev.ChatID, chat.Message{Text: "⚠️ Could not load statistics, try again."})
		return
	}
	newQuestions, err := d.deps.Store.CountQuestions(ctx, database.QuestionNew)
	if err != nil {
		d.log.ErrorContext(ctx, "Failed to count questions", "error", err)
	}
	allQuestions, err := d.deps.Store.CountQuestions(ctx, "")
	if err != nil {
		d.log.ErrorContext(ctx, "Failed to count questions", "error", err)
	}

	var b strings.Builder
	b.WriteString("📊 Statistics\n\nRequests:")
	total := 0
	for _, s := range database.AppointmentStatuses {
		fmt.Fprintf(&b, "\n  %s: %d", statusLabel(s), counts[s])
		total += counts[s]
	}
	fmt.Fprintf(&b, "\n  Total: %d\n\nQuestions:\n  New: %d\n  Total: %d", total, newQuestions, allQuestions)
	d.send(ctx, ev.ChatID, chat.Message{Text: b.String()})
}

func (d *Desk) showExportOptions(ctx context.Context, ev chat.TextEvent, _ conversation.State) {
	d.send(ctx, ev.ChatID, chat.Message{
		Text: "📥 Export to CSV\n\nChoose what to export:",
		Inline: [][]chat.Button{
			chat.Row(chat.Action("📁 All requests", data(nsExport, exportAppointmentsAll))),
			chat.Row(chat.Action(statusLabel(database.StatusPending), data(nsExport, exportAppointmentsPending))),
			chat.Row(chat.Action(statusLabel(database.StatusConfirmed), data(nsExport, exportAppointmentsConfirmed))),
			chat.Row(chat.Action("❓ Questions", data(nsExport, exportQuestions))),
		},
	})
}

// export builds the requested CSV and sends it as a document.
func (d *Desk) export(ctx context.Context, chatID int64, kind string) {
	var (
		content []byte
		count   int
		err     error
		name    string
	)
	switch kind {
	case exportAppointmentsAll, exportAppointmentsPending, exportAppointmentsConfirmed:
		status := database.AppointmentStatus("")
		switch kind {
		case exportAppointmentsPending:
			status = database.StatusPending
		case exportAppointmentsConfirmed:
			status = database.StatusConfirmed
		}
		var appts []database.Appointment
		appts, err = d.deps.Store.ListAppointmentsByStatus(ctx, status, 0, 0)
		if err == nil {
			count = len(appts)
			content, err = export.Appointments(appts, d.loc)
		}
		name = "appointments"
	case exportQuestions:
		var qs []database.Question
		qs, err = d.deps.Store.ListQuestionsByStatus(ctx, "", 0, 0)
		if err == nil {
			count = len(qs)
			content, err = export.Questions(qs, d.loc)
		}
		name = "questions"
	default:
		d.log.WarnContext(ctx, "Unknown export kind", "kind", kind)
		return
	}
	if err != nil {
		d.log.ErrorContext(ctx, "Failed to build export", "error", err, "kind", kind)
		d.send(ctx, chatID, chat.Message{Text: "⚠️ Could not build the export, try again."})
		return
	}
	if count == 0 {
		d.send(ctx, chatID, chat.Message{Text: "Nothing to export."})
		return
	}

	filename := export.Filename(name, d.now())
	caption := fmt.Sprintf("📥 %s: %d rows", kind, count)
	if err := d.deps.Messenger.SendDocument(ctx, chatID, filename, content, caption); err != nil {
		d.log.ErrorContext(ctx, "Failed to send export", "error", err, "kind", kind)
		d.send(ctx, chatID, chat.Message{Text: "⚠️ Could not send the file, try again."})
		return
	}
	d.log.InfoContext(ctx, "Export sent", "kind", kind, "rows", count, "chat_id", chatID)
}
