package database

import (
	"database/sql"
	"strings"
	"time"
)

// DateLayout and TimeLayout are the storage formats of appointment_date and appointment_time.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// AppointmentStatus is the admin-visible lifecycle state of an Appointment.
type AppointmentStatus string

const (
	StatusPending     AppointmentStatus = "pending"
	StatusConfirmed   AppointmentStatus = "confirmed"
	StatusCancelled   AppointmentStatus = "cancelled"
	StatusCompleted   AppointmentStatus = "completed"
	StatusPaymentSent AppointmentStatus = "payment_sent"
)

// AppointmentStatuses lists every status in display order.
var AppointmentStatuses = []AppointmentStatus{
	StatusPending, StatusConfirmed, StatusPaymentSent, StatusCompleted, StatusCancelled,
}

// Valid reports whether s is a known appointment status.
func (s AppointmentStatus) Valid() bool {
	for _, known := range AppointmentStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// QuestionStatus is the lifecycle state of a Question.
type QuestionStatus string

const (
	QuestionNew      QuestionStatus = "new"
	QuestionAnswered QuestionStatus = "answered"
	QuestionClosed   QuestionStatus = "closed"
)

// ReminderType distinguishes the two reminder kinds.
type ReminderType string

const (
	ReminderDayBefore  ReminderType = "day_before"
	ReminderHourBefore ReminderType = "hour_before"
)

// ReminderStatus is the delivery state of a Reminder.
type ReminderStatus string

const (
	ReminderPending ReminderStatus = "pending"
	ReminderSent    ReminderStatus = "sent"
	ReminderFailed  ReminderStatus = "failed"
)

// User is a Telegram identity that has contacted the bot at least once.
type User struct {
	ID        int64          `db:"id"`
	Username  string         `db:"username"`
	FirstName string         `db:"first_name"`
	LastName  string         `db:"last_name"`
	Phone     sql.NullString `db:"phone"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

// DisplayName returns the full name, falling back to the username.
func (u User) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name != "" {
		return name
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return ""
}

// Appointment is a client request for a service, optionally bound to a date and time slot.
type Appointment struct {
	ID          int64             `db:"id"`
	UserID      int64             `db:"user_id"`
	Service     string            `db:"service"`
	ClientName  string            `db:"client_name"`
	ClientPhone string            `db:"client_phone"`
	ClientEmail sql.NullString    `db:"client_email"`
	Date        sql.NullString    `db:"appointment_date"` // DateLayout
	Time        sql.NullString    `db:"appointment_time"` // TimeLayout
	Comment     sql.NullString    `db:"comment"`
	Status      AppointmentStatus `db:"status"`
	CreatedAt   time.Time         `db:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at"`
}

// StartsAt combines Date and Time in loc. ok is false for date-free appointments.
func (a Appointment) StartsAt(loc *time.Location) (t time.Time, ok bool) {
	if !a.Date.Valid || !a.Time.Valid {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, a.Date.String+" "+a.Time.String, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// StatusChange is one row of the append-only appointment status history.
type StatusChange struct {
	ID            int64             `db:"id"`
	AppointmentID int64             `db:"appointment_id"`
	OldStatus     AppointmentStatus `db:"old_status"`
	NewStatus     AppointmentStatus `db:"new_status"`
	ChangedBy     int64             `db:"changed_by"`
	Comment       sql.NullString    `db:"comment"`
	ChangedAt     time.Time         `db:"changed_at"`
}

// Question is a free-text question left by a client.
type Question struct {
	ID          int64          `db:"id"`
	UserID      int64          `db:"user_id"`
	Text        string         `db:"question_text"`
	ClientName  sql.NullString `db:"client_name"`
	ClientPhone sql.NullString `db:"client_phone"`
	Status      QuestionStatus `db:"status"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

// Reminder is a scheduled notification about an upcoming appointment.
type Reminder struct {
	ID            int64          `db:"id"`
	AppointmentID int64          `db:"appointment_id"`
	Type          ReminderType   `db:"reminder_type"`
	ScheduledAt   time.Time      `db:"scheduled_at"`
	Status        ReminderStatus `db:"status"`
	SentAt        sql.NullTime   `db:"sent_at"`
	CreatedAt     time.Time      `db:"created_at"`
}

// DueReminder joins a pending reminder with the appointment fields needed to deliver it.
type DueReminder struct {
	ReminderID    int64             `db:"reminder_id"`
	Type          ReminderType      `db:"reminder_type"`
	ScheduledAt   time.Time         `db:"scheduled_at"`
	AppointmentID int64             `db:"appointment_id"`
	UserID        int64             `db:"user_id"`
	Service       string            `db:"service"`
	ClientName    string            `db:"client_name"`
	Date          sql.NullString    `db:"appointment_date"`
	Time          sql.NullString    `db:"appointment_time"`
	Status        AppointmentStatus `db:"status"`
}

// StatusCount is one row of an aggregate count per appointment status.
type StatusCount struct {
	Status AppointmentStatus `db:"status"`
	Count  int               `db:"count"`
}
