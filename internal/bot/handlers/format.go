package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/edgard/intakebot/internal/database"
)

var statusLabels = map[database.AppointmentStatus]string{
	database.StatusPending:     "⏳ Pending",
	database.StatusConfirmed:   "✅ Confirmed",
	database.StatusPaymentSent: "💳 Payment sent",
	database.StatusCompleted:   "🏁 Completed",
	database.StatusCancelled:   "❌ Cancelled",
}

var questionLabels = map[database.QuestionStatus]string{
	database.QuestionNew:      "🆕 New",
	database.QuestionAnswered: "✅ Answered",
	database.QuestionClosed:   "🔒 Closed",
}

func statusLabel(s database.AppointmentStatus) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

func questionLabel(s database.QuestionStatus) string {
	if l, ok := questionLabels[s]; ok {
		return l
	}
	return string(s)
}

// displayDate turns a stored date into DD.MM.YYYY.
func displayDate(stored string) string {
	t, err := time.Parse(database.DateLayout, stored)
	if err != nil {
		return stored
	}
	return t.Format("02.01.2006")
}

// when renders the date and time of an appointment, empty for date-free requests.
func when(a database.Appointment) string {
	if !a.Date.Valid {
		return ""
	}
	s := displayDate(a.Date.String)
	if a.Time.Valid {
		s += " " + a.Time.String
	}
	return s
}

// formatAppointment renders the full card of an appointment.
func formatAppointment(a database.Appointment, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 Request #%d\n\n", a.ID)
	fmt.Fprintf(&b, "🛎 Service: %s\n", a.Service)
	fmt.Fprintf(&b, "👤 Client: %s\n", a.ClientName)
	fmt.Fprintf(&b, "📞 Phone: %s\n", a.ClientPhone)
	if a.ClientEmail.Valid && a.ClientEmail.String != "" {
		fmt.Fprintf(&b, "📧 Email: %s\n", a.ClientEmail.String)
	}
	if w := when(a); w != "" {
		fmt.Fprintf(&b, "📅 Date: %s\n", w)
	}
	if a.Comment.Valid && a.Comment.String != "" {
		fmt.Fprintf(&b, "💬 Comment: %s\n", a.Comment.String)
	}
	fmt.Fprintf(&b, "\nStatus: %s\n", statusLabel(a.Status))
	if !a.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "Created: %s", a.CreatedAt.In(loc).Format("02.01.2006 15:04"))
	}
	return strings.TrimRight(b.String(), "\n")
}

// appointmentLine is the one-line summary used on list buttons.
func appointmentLine(a database.Appointment) string {
	line := fmt.Sprintf("#%d %s", a.ID, a.ClientName)
	if w := when(a); w != "" {
		line += " · " + w
	}
	return line
}

func formatQuestion(q database.Question, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "❓ Question #%d\n\n", q.ID)
	if q.ClientName.Valid {
		fmt.Fprintf(&b, "👤 Client: %s\n", q.ClientName.String)
	}
	if q.ClientPhone.Valid && q.ClientPhone.String != "" {
		fmt.Fprintf(&b, "📞 Phone: %s\n", q.ClientPhone.String)
	}
	fmt.Fprintf(&b, "\n%s\n\nStatus: %s", q.Text, questionLabel(q.Status))
	if !q.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "\nCreated: %s", q.CreatedAt.In(loc).Format("02.01.2006 15:04"))
	}
	return b.String()
}

func questionLine(q database.Question) string {
	text := []rune(q.Text)
	if len(text) > 30 {
		text = append(text[:30], '…')
	}
	return fmt.Sprintf("#%d %s", q.ID, string(text))
}

func formatHistory(id int64, history []database.StatusChange, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📜 History of request #%d\n", id)
	if len(history) == 0 {
		b.WriteString("\nNo status changes yet.")
		return b.String()
	}
	for _, h := range history {
		fmt.Fprintf(&b, "\n%s  %s → %s", h.ChangedAt.In(loc).Format("02.01.2006 15:04"),
			statusLabel(h.OldStatus), statusLabel(h.NewStatus))
		if h.Comment.Valid && h.Comment.String != "" {
			fmt.Fprintf(&b, "\n   %s", h.Comment.String)
		}
	}
	return b.String()
}

func formatAmount(amount float64) string {
	if amount == float64(int64(amount)) {
		return fmt.Sprintf("%d ₽", int64(amount))
	}
	return fmt.Sprintf("%.2f ₽", amount)
}
