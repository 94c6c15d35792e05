package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/edgard/intakebot/internal/chat"
	"github.com/edgard/intakebot/internal/database"
)

// lateReminderDelay schedules a day_before reminder shortly after now when the
// configured hour has already passed.
const lateReminderDelay = 5 * time.Minute

// newScheduleRemindersTask creates reminders for upcoming appointments. Appointments that
// already have a reminder of a type are skipped, so running it twice creates nothing new.
func newScheduleRemindersTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "schedule_reminders")
	loc := deps.Config.Location()

	return func(ctx context.Context) error {
		now := deps.Now().In(loc)
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
		tomorrow := today.AddDate(0, 0, 1)

		var errs []error
		created := 0

		dayBefore, err := deps.Store.ListAppointmentsForDayBeforeReminder(ctx, tomorrow.Format(database.DateLayout))
		if err != nil {
			return fmt.Errorf("failed to list appointments for day_before reminders: %w", err)
		}
		at := today.Add(time.Duration(deps.Config.Business.DayBeforeReminderHour) * time.Hour)
		if !at.After(now) {
			at = now.Add(lateReminderDelay)
		}
		for _, a := range dayBefore {
			ok, err := create(ctx, deps.Store, a.ID, database.ReminderDayBefore, at)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if ok {
				created++
			}
		}

		hourBefore, err := deps.Store.ListAppointmentsForHourBeforeReminder(ctx, today.Format(database.DateLayout))
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to list appointments for hour_before reminders: %w", err))
		}
		for _, a := range hourBefore {
			start, ok := a.StartsAt(loc)
			if !ok || start.Sub(now) <= time.Hour {
				continue
			}
			ok, err := create(ctx, deps.Store, a.ID, database.ReminderHourBefore, start.Add(-time.Hour))
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if ok {
				created++
			}
		}

		log.InfoContext(ctx, "Reminders scheduled", "created", created)
		return errors.Join(errs...)
	}
}

// create adds a pending reminder unless one of the same type already exists for the
// appointment. It reports whether a reminder was written.
func create(ctx context.Context, store database.Store, appointmentID int64, typ database.ReminderType, at time.Time) (bool, error) {
	exists, err := store.HasReminder(ctx, appointmentID, typ)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	err = store.CreateReminder(ctx, &database.Reminder{
		AppointmentID: appointmentID,
		Type:          typ,
		ScheduledAt:   at,
		Status:        database.ReminderPending,
	})
	return err == nil, err
}

// newSendRemindersTask delivers due reminders and records the outcome of each.
func newSendRemindersTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "send_reminders")

	return func(ctx context.Context) error {
		now := deps.Now()
		due, err := deps.Store.ListDueReminders(ctx, now)
		if err != nil {
			return fmt.Errorf("failed to list due reminders: %w", err)
		}

		var errs []error
		sent, failed := 0, 0
		for _, r := range due {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			status := database.ReminderSent
			if r.Status != database.StatusPending && r.Status != database.StatusConfirmed {
				log.InfoContext(ctx, "Appointment no longer active, dropping reminder",
					"reminder_id", r.ReminderID, "appointment_id", r.AppointmentID, "status", r.Status)
				status = database.ReminderFailed
			} else if _, err := deps.Messenger.Send(ctx, r.UserID, chat.Message{Text: reminderText(r)}); err != nil {
				log.WarnContext(ctx, "Failed to deliver reminder", "error", err,
					"reminder_id", r.ReminderID, "user_id", r.UserID)
				status = database.ReminderFailed
			}

			if err := deps.Store.MarkReminder(ctx, r.ReminderID, status, now); err != nil {
				errs = append(errs, err)
				continue
			}
			if status == database.ReminderSent {
				sent++
			} else {
				failed++
			}
		}

		if len(due) > 0 {
			log.InfoContext(ctx, "Reminders processed", "sent", sent, "failed", failed)
		}
		return errors.Join(errs...)
	}
}

func reminderText(r database.DueReminder) string {
	date := r.Date.String
	if d, err := time.Parse(database.DateLayout, r.Date.String); err == nil {
		date = d.Format("02.01.2006")
	}
	if r.Type == database.ReminderHourBefore {
		return fmt.Sprintf("🔔 Reminder: your appointment «%s» starts in one hour, at %s.", r.Service, r.Time.String)
	}
	return fmt.Sprintf("🔔 Reminder: tomorrow, %s at %s, you have an appointment «%s».\n\n"+
		"If your plans have changed, please let us know.", date, r.Time.String, r.Service)
}
