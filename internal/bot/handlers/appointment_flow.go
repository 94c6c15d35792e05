package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/edgard/intakebot/internal/catalog"
	"github.com/edgard/intakebot/internal/chat"
	"github.com/edgard/intakebot/internal/conversation"
	"github.com/edgard/intakebot/internal/database"
	"github.com/edgard/intakebot/internal/validate"
)

// dateSuggestions is how many upcoming bookable dates the date prompt offers.
const dateSuggestions = 6

func (d *Desk) startAppointment(ctx context.Context, ev chat.TextEvent, _ conversation.State) {
	d.ensureUser(ctx, ev.From)
	next := conversation.AppointmentIntake{Variant: conversation.Full, Step: conversation.WaitingService}
	if owner, ok := d.deps.Sessions.Begin(ev.From.ID, next); !ok {
		d.busy(ctx, ev.ChatID, owner)
		return
	}
	d.log.InfoContext(ctx, "Appointment intake started", "user_id", ev.From.ID, "variant", next.Variant.String())
	d.send(ctx, ev.ChatID, chat.Message{
		Text: "📞 Booking a consultation\n\nChoose the service you are interested in:",
		Menu: gridMenu(d.deps.Catalog.ServiceNames(), 1),
	})
}

func (d *Desk) startSimplified(ctx context.Context, from chat.Sender, chatID int64, svc catalog.Service) {
	d.ensureUser(ctx, from)
	next := conversation.AppointmentIntake{
		Variant: conversation.Simplified,
		Step:    conversation.WaitingName,
		Draft:   conversation.AppointmentDraft{Service: svc.Label},
	}
	if owner, ok := d.deps.Sessions.Begin(from.ID, next); !ok {
		d.busy(ctx, chatID, owner)
		return
	}
	d.log.InfoContext(ctx, "Appointment intake started", "user_id", from.ID,
		"variant", next.Variant.String(), "service", svc.Key)
	d.send(ctx, chatID, chat.Message{
		Text: fmt.Sprintf("📝 Request for «%s»\n\nPlease enter your full name:", svc.Label),
		Menu: cancelMenu(),
	})
}

// continueAppointment consumes one message of an appointment intake.
func (d *Desk) continueAppointment(ctx context.Context, ev chat.TextEvent, s conversation.AppointmentIntake) {
	switch s.Step {
	case conversation.WaitingService:
		svc, ok := d.deps.Catalog.ServiceByLabel(ev.Text)
		if !ok {
			d.send(ctx, ev.ChatID, chat.Message{
				Text: "Please choose a service from the list below.",
				Menu: gridMenu(d.deps.Catalog.ServiceNames(), 1),
			})
			return
		}
		s.Draft.Service = svc.Label
		d.advance(ctx, ev, s, conversation.WaitingName, "👤 Please enter your full name:", cancelMenu())

	case conversation.WaitingName:
		name, err := validate.Name(ev.Text)
		if err != nil {
			d.reject(ctx, ev.ChatID, "Enter your name with at least 3 letters.", cancelMenu())
			return
		}
		s.Draft.Name = name
		d.advance(ctx, ev, s, conversation.WaitingPhone,
			"📞 Enter your phone number, for example +7 999 123-45-67:", cancelMenu())

	case conversation.WaitingPhone:
		phone, err := validate.Phone(ev.Text)
		if err != nil {
			d.reject(ctx, ev.ChatID, phoneProblem(err), cancelMenu())
			return
		}
		s.Draft.Phone = phone
		if err := d.deps.Store.UpdateUserPhone(ctx, ev.From.ID, phone); err != nil && !errors.Is(err, database.ErrNotFound) {
			d.log.WarnContext(ctx, "Failed to save user phone", "error", err, "user_id", ev.From.ID)
		}
		if s.Variant == conversation.Simplified {
			d.advance(ctx, ev, s, conversation.WaitingEmail, "📧 Enter your email address:", cancelMenu())
			return
		}
		d.advance(ctx, ev, s, conversation.WaitingDate,
			"📅 Enter the desired date, for example 25.12.2030, or choose one below:", d.dateMenu(ctx))

	case conversation.WaitingDate:
		d.takeDate(ctx, ev, s)

	case conversation.WaitingTime:
		d.takeTime(ctx, ev, s)

	case conversation.WaitingComment:
		if !validate.IsSkip(ev.Text) {
			s.Draft.Comment = ev.Text
		}
		d.finishAppointment(ctx, ev.From, ev.ChatID, s)

	case conversation.WaitingEmail:
		email, err := validate.Email(ev.Text)
		if err != nil {
			d.reject(ctx, ev.ChatID, "The email address looks wrong, for example: ivanov@example.com", cancelMenu())
			return
		}
		s.Draft.Email = email
		s.Step = conversation.WaitingConfirm
		d.deps.Sessions.Set(ev.From.ID, s)
		d.askConfirmation(ctx, ev.ChatID, s)

	case conversation.WaitingConfirm:
		d.askConfirmation(ctx, ev.ChatID, s)
	}
}

func (d *Desk) advance(ctx context.Context, ev chat.TextEvent, s conversation.AppointmentIntake,
	step conversation.AppointmentStep, prompt string, menu [][]string,
) {
	s.Step = step
	d.deps.Sessions.Set(ev.From.ID, s)
	d.send(ctx, ev.ChatID, chat.Message{Text: prompt, Menu: menu})
}

func (d *Desk) reject(ctx context.Context, chatID int64, problem string, menu [][]string) {
	d.send(ctx, chatID, chat.Message{Text: "⚠️ " + problem, Menu: menu})
}

func phoneProblem(err error) string {
	switch {
	case errors.Is(err, validate.ErrPhoneTooShort):
		return "The phone number is too short. Example: +7 999 123-45-67"
	case errors.Is(err, validate.ErrPhoneTooLong):
		return "The phone number is too long. Example: +7 999 123-45-67"
	default:
		return "Enter a Russian phone number starting with +7 or 8. Example: +7 999 123-45-67"
	}
}

func (d *Desk) takeDate(ctx context.Context, ev chat.TextEvent, s conversation.AppointmentIntake) {
	now := d.now()
	date, err := validate.Date(ev.Text, now)
	if err != nil {
		d.reject(ctx, ev.ChatID, "Enter the date as DD.MM.YYYY, for example 25.12.2030.", d.dateMenu(ctx))
		return
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, d.loc)
	if date.Before(today) {
		d.reject(ctx, ev.ChatID, "This date has already passed. Choose another one.", d.dateMenu(ctx))
		return
	}
	if !d.deps.Config.Business.IsWorkDay(date) {
		d.reject(ctx, ev.ChatID, "We do not work on this day. Choose another date.", d.dateMenu(ctx))
		return
	}
	free, err := d.freeSlots(ctx, date)
	if err != nil {
		d.log.ErrorContext(ctx, "Failed to compute free slots", "error", err, "user_id", ev.From.ID)
		d.reject(ctx, ev.ChatID, "Could not check the schedule, please try again.", d.dateMenu(ctx))
		return
	}
	if len(free) == 0 {
		d.reject(ctx, ev.ChatID, "There are no free slots on this date. Choose another one.", d.dateMenu(ctx))
		return
	}

	s.Draft.Date = date
	d.advance(ctx, ev, s, conversation.WaitingTime,
		fmt.Sprintf("🕐 Free slots on %s. Choose a time:", date.Format("02.01.2006")), gridMenu(free, 4))
}

func (d *Desk) takeTime(ctx context.Context, ev chat.TextEvent, s conversation.AppointmentIntake) {
	free, err := d.freeSlots(ctx, s.Draft.Date)
	if err != nil {
		d.log.ErrorContext(ctx, "Failed to compute free slots", "error", err, "user_id", ev.From.ID)
		d.reject(ctx, ev.ChatID, "Could not check the schedule, please try again.", cancelMenu())
		return
	}
	slot, err := validate.Time(ev.Text)
	if err != nil {
		d.reject(ctx, ev.ChatID, "Choose a time from the list, for example 14:30.", gridMenu(free, 4))
		return
	}
	if !slices.Contains(free, slot) {
		d.reject(ctx, ev.ChatID, "This time is not available. Choose one of the free slots.", gridMenu(free, 4))
		return
	}
	s.Draft.Time = slot
	d.advance(ctx, ev, s, conversation.WaitingComment,
		"💬 Add a comment to your request, or press «"+labelSkip+"»:", skipMenu())
}

// dateMenu offers the next working dates that still have free slots.
func (d *Desk) dateMenu(ctx context.Context) [][]string {
	now := d.now()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, d.loc)
	var dates []string
	for i := 0; i < 30 && len(dates) < dateSuggestions; i++ {
		candidate := day.AddDate(0, 0, i)
		if !d.deps.Config.Business.IsWorkDay(candidate) {
			continue
		}
		free, err := d.freeSlots(ctx, candidate)
		if err != nil {
			d.log.WarnContext(ctx, "Failed to compute date suggestions", "error", err)
			break
		}
		if len(free) > 0 {
			dates = append(dates, candidate.Format("02.01.2006"))
		}
	}
	return gridMenu(dates, 3)
}

func (d *Desk) askConfirmation(ctx context.Context, chatID int64, s conversation.AppointmentIntake) {
	text := fmt.Sprintf("Please check your request:\n\n🛎 Service: %s\n👤 Name: %s\n📞 Phone: %s\n📧 Email: %s",
		s.Draft.Service, s.Draft.Name, s.Draft.Phone, s.Draft.Email)
	d.send(ctx, chatID, chat.Message{
		Text: text,
		Inline: [][]chat.Button{chat.Row(
			chat.Action("✅ Confirm", data(nsSimple, "confirm")),
			chat.Action("❌ Cancel", data(nsSimple, "cancel")),
		)},
	})
}

// handleSimpleButton handles the confirmation buttons of the simplified intake.
func (d *Desk) handleSimpleButton(ctx context.Context, ev chat.ButtonEvent, args []string) {
	d.answer(ctx, ev, "", false)
	s, ok := d.deps.Sessions.Get(ev.From.ID).(conversation.AppointmentIntake)
	if !ok || s.Variant != conversation.Simplified || s.Step != conversation.WaitingConfirm {
		d.show(ctx, ev, chat.Message{Text: "This request is no longer active."})
		return
	}
	if !s.Consistent() {
		d.log.WarnContext(ctx, "Inconsistent conversation state, resetting", "user_id", ev.From.ID)
		d.resetToMenu(ctx, ev.From.ID, ev.ChatID, "⚠️ Something went wrong with the current form. Please start again.")
		return
	}
	if len(args) == 0 {
		return
	}

	switch args[0] {
	case "confirm":
		d.show(ctx, ev, chat.Message{Text: "⏳ Sending your request…"})
		d.finishAppointment(ctx, ev.From, ev.ChatID, s)
	case "cancel":
		d.deps.Sessions.Clear(ev.From.ID)
		d.show(ctx, ev, chat.Message{Text: "Request cancelled."})
		d.showCategories(ctx, chat.TextEvent{From: ev.From, ChatID: ev.ChatID}, nil)
	}
}

// finishAppointment persists the draft, notifies the admins and the client, and clears the state.
func (d *Desk) finishAppointment(ctx context.Context, from chat.Sender, chatID int64, s conversation.AppointmentIntake) {
	appt := &database.Appointment{
		UserID:      from.ID,
		Service:     s.Draft.Service,
		ClientName:  s.Draft.Name,
		ClientPhone: s.Draft.Phone,
		ClientEmail: nullString(s.Draft.Email),
		Comment:     nullString(s.Draft.Comment),
		Status:      database.StatusPending,
	}
	if !s.Draft.Date.IsZero() {
		appt.Date = nullString(s.Draft.Date.Format(database.DateLayout))
		appt.Time = nullString(s.Draft.Time)
	}

	// the intake may have outlived the user row written when it started
	d.ensureUser(ctx, from)
	if err := d.deps.Store.CreateAppointment(ctx, appt); err != nil {
		d.log.ErrorContext(ctx, "Failed to create appointment", "error", err, "user_id", from.ID)
		d.send(ctx, chatID, chat.Message{
			Text: "⚠️ We could not save your request. Please try again in a minute.",
			Menu: cancelMenu(),
		})
		return
	}
	d.deps.Sessions.Clear(from.ID)
	d.log.InfoContext(ctx, "Appointment created", "appointment_id", appt.ID, "user_id", from.ID)

	header := "🆕 New request"
	if username := from.Username; username != "" {
		header += " from @" + username
	}
	d.fanOut(ctx, chat.Message{
		Text:   header + "\n\n" + formatAppointment(*appt, d.loc),
		Inline: appointmentActions(*appt),
	})

	var b strings.Builder
	fmt.Fprintf(&b, "✅ Thank you! Your request #%d has been received.\n\n🛎 %s", appt.ID, appt.Service)
	if w := when(*appt); w != "" {
		fmt.Fprintf(&b, "\n📅 %s", w)
	}
	b.WriteString("\n\nWe will contact you shortly to confirm the details.")
	d.send(ctx, chatID, chat.Message{Text: b.String(), Menu: mainMenu(d.isAdmin(ctx, from.ID))})
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
