package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned by mutations whose target row does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines the interface for database operations.
// Lookups return nil, nil when the row does not exist.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error

	// UpsertUser creates the user or refreshes its names. The stored phone is kept.
	UpsertUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, userID int64) (*User, error)
	UpdateUserPhone(ctx context.Context, userID int64, phone string) error

	CreateAppointment(ctx context.Context, appt *Appointment) error
	GetAppointment(ctx context.Context, id int64) (*Appointment, error)
	// ListAppointmentsByDate returns the non-cancelled appointments on date (DateLayout).
	ListAppointmentsByDate(ctx context.Context, date string) ([]Appointment, error)
	// ListAppointmentsByStatus pages through appointments, newest first. An empty status means all.
	ListAppointmentsByStatus(ctx context.Context, status AppointmentStatus, limit, offset int) ([]Appointment, error)
	CountAppointments(ctx context.Context, status AppointmentStatus) (int, error)
	// ListAppointmentsBetween returns non-cancelled appointments dated within [from, to], in slot order.
	ListAppointmentsBetween(ctx context.Context, from, to string) ([]Appointment, error)
	CountAppointmentsByStatus(ctx context.Context) (map[AppointmentStatus]int, error)

	// UpdateAppointmentStatus is the only way an appointment status changes. The status row and
	// its history entry are written in one transaction. Returns ErrNotFound for unknown ids.
	UpdateAppointmentStatus(ctx context.Context, id int64, status AppointmentStatus, changedBy int64, comment string) (*Appointment, error)
	ListStatusHistory(ctx context.Context, appointmentID int64) ([]StatusChange, error)

	CreateQuestion(ctx context.Context, q *Question) error
	GetQuestion(ctx context.Context, id int64) (*Question, error)
	ListQuestionsByStatus(ctx context.Context, status QuestionStatus, limit, offset int) ([]Question, error)
	CountQuestions(ctx context.Context, status QuestionStatus) (int, error)
	UpdateQuestionStatus(ctx context.Context, id int64, status QuestionStatus) error

	// IsAdmin checks the durable admin set only; static admins come from configuration.
	IsAdmin(ctx context.Context, userID int64) (bool, error)
	AddAdmin(ctx context.Context, userID, addedBy int64) error

	// ListAppointmentsForDayBeforeReminder returns active appointments on date without a day_before reminder.
	ListAppointmentsForDayBeforeReminder(ctx context.Context, date string) ([]Appointment, error)
	// ListAppointmentsForHourBeforeReminder returns active appointments on date without an hour_before reminder.
	ListAppointmentsForHourBeforeReminder(ctx context.Context, date string) ([]Appointment, error)
	HasReminder(ctx context.Context, appointmentID int64, reminderType ReminderType) (bool, error)
	CreateReminder(ctx context.Context, r *Reminder) error
	// ListDueReminders returns pending reminders scheduled at or before now.
	ListDueReminders(ctx context.Context, now time.Time) ([]DueReminder, error)
	MarkReminder(ctx context.Context, id int64, status ReminderStatus, at time.Time) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM must run outside a transaction in SQLite
	_, err := s.db.ExecContext(ctx, "VACUUM;")

	switch {
	case isContextErr(err):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)

	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)

	default:
		s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	}

	return nil
}

// --- Users ---

func (s *sqlxStore) UpsertUser(ctx context.Context, user *User) error {
	if user == nil || user.ID == 0 {
		return fmt.Errorf("user must have a non-zero id")
	}
	ts := now()
	user.CreatedAt = ts
	user.UpdatedAt = ts

	query := `
        INSERT INTO users (id, username, first_name, last_name, phone, created_at, updated_at)
        VALUES (:id, :username, :first_name, :last_name, :phone, :created_at, :updated_at)
        ON CONFLICT (id) DO UPDATE SET
            username = excluded.username,
            first_name = excluded.first_name,
            last_name = excluded.last_name,
            updated_at = excluded.updated_at;
    `
	if _, err := s.db.NamedExecContext(ctx, query, user); err != nil {
		s.logger.ErrorContext(ctx, "Error upserting user", "user_id", user.ID, "error", err)
		return fmt.Errorf("failed to upsert user %d: %w", user.ID, err)
	}
	return nil
}

func (s *sqlxStore) GetUser(ctx context.Context, userID int64) (*User, error) {
	var user User
	err := s.db.GetContext(ctx, &user, `SELECT * FROM users WHERE id = ?`, userID)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No user found", "user_id", userID)
		return nil, nil

	case isContextErr(err):
		return nil, err

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting user by ID", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	return &user, nil
}

func (s *sqlxStore) UpdateUserPhone(ctx context.Context, userID int64, phone string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET phone = ?, updated_at = ? WHERE id = ?`, phone, now(), userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error updating user phone", "user_id", userID, "error", err)
		return fmt.Errorf("failed to update phone of user %d: %w", userID, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Appointments ---

func (s *sqlxStore) CreateAppointment(ctx context.Context, appt *Appointment) error {
	if appt == nil {
		return fmt.Errorf("cannot save nil appointment")
	}
	if appt.UserID == 0 {
		return fmt.Errorf("appointment must have a non-zero user_id")
	}
	if appt.Service == "" {
		return fmt.Errorf("appointment must have a service")
	}
	if appt.Status == "" {
		appt.Status = StatusPending
	}
	ts := now()
	appt.CreatedAt = ts
	appt.UpdatedAt = ts

	query := `
        INSERT INTO appointments (user_id, service, client_name, client_phone, client_email,
            appointment_date, appointment_time, comment, status, created_at, updated_at)
        VALUES (:user_id, :service, :client_name, :client_phone, :client_email,
            :appointment_date, :appointment_time, :comment, :status, :created_at, :updated_at);
    `
	result, err := s.db.NamedExecContext(ctx, query, appt)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving appointment", "user_id", appt.UserID, "error", err)
		return fmt.Errorf("failed to save appointment for user %d: %w", appt.UserID, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read appointment id: %w", err)
	}
	appt.ID = id

	s.logger.DebugContext(ctx, "Appointment saved successfully", "appointment_id", appt.ID, "user_id", appt.UserID)
	return nil
}

func (s *sqlxStore) GetAppointment(ctx context.Context, id int64) (*Appointment, error) {
	var appt Appointment
	err := s.db.GetContext(ctx, &appt, `SELECT * FROM appointments WHERE id = ?`, id)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No appointment found", "appointment_id", id)
		return nil, nil

	case isContextErr(err):
		return nil, err

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting appointment", "appointment_id", id, "error", err)
		return nil, fmt.Errorf("failed to get appointment %d: %w", id, err)
	}
	return &appt, nil
}

func (s *sqlxStore) selectAppointments(ctx context.Context, query string, args ...any) ([]Appointment, error) {
	var appts []Appointment
	if err := s.db.SelectContext(ctx, &appts, query, args...); err != nil {
		if isContextErr(err) {
			return nil, err
		}
		s.logger.ErrorContext(ctx, "Error listing appointments", "error", err)
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appts, nil
}

func (s *sqlxStore) ListAppointmentsByDate(ctx context.Context, date string) ([]Appointment, error) {
	return s.selectAppointments(ctx, `
        SELECT * FROM appointments
        WHERE appointment_date = ? AND status != ?
        ORDER BY appointment_time, id;`, date, StatusCancelled)
}

func (s *sqlxStore) ListAppointmentsByStatus(ctx context.Context, status AppointmentStatus, limit, offset int) ([]Appointment, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	if status == "" {
		return s.selectAppointments(ctx, `
            SELECT * FROM appointments ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?;`, limit, offset)
	}
	return s.selectAppointments(ctx, `
        SELECT * FROM appointments WHERE status = ?
        ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?;`, status, limit, offset)
}

func (s *sqlxStore) CountAppointments(ctx context.Context, status AppointmentStatus) (int, error) {
	var count int
	var err error
	if status == "" {
		err = s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM appointments`)
	} else {
		err = s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM appointments WHERE status = ?`, status)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count appointments: %w", err)
	}
	return count, nil
}

func (s *sqlxStore) ListAppointmentsBetween(ctx context.Context, from, to string) ([]Appointment, error) {
	return s.selectAppointments(ctx, `
        SELECT * FROM appointments
        WHERE appointment_date BETWEEN ? AND ? AND status != ?
        ORDER BY appointment_date, appointment_time, id;`, from, to, StatusCancelled)
}

func (s *sqlxStore) CountAppointmentsByStatus(ctx context.Context) (map[AppointmentStatus]int, error) {
	var rows []StatusCount
	if err := s.db.SelectContext(ctx, &rows, `SELECT status, COUNT(*) AS count FROM appointments GROUP BY status`); err != nil {
		return nil, fmt.Errorf("failed to count appointments by status: %w", err)
	}
	counts := make(map[AppointmentStatus]int, len(AppointmentStatuses))
	for _, st := range AppointmentStatuses {
		counts[st] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (s *sqlxStore) UpdateAppointmentStatus(ctx context.Context, id int64, status AppointmentStatus, changedBy int64, comment string) (*Appointment, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unknown appointment status %q", status)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for status update", "appointment_id", id, "error", err)
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				if !errors.Is(rollbackErr, sql.ErrTxDone) {
					s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
				}
			}
		}
	}()

	var appt Appointment
	err = tx.GetContext(ctx, &appt, `SELECT * FROM appointments WHERE id = ?`, id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to load appointment %d: %w", id, err)
	}

	ts := now()
	if _, err := tx.ExecContext(ctx, `UPDATE appointments SET status = ?, updated_at = ? WHERE id = ?`, status, ts, id); err != nil {
		s.logger.ErrorContext(ctx, "Error updating appointment status", "appointment_id", id, "error", err)
		return nil, fmt.Errorf("failed to update status of appointment %d: %w", id, err)
	}

	change := StatusChange{
		AppointmentID: id,
		OldStatus:     appt.Status,
		NewStatus:     status,
		ChangedBy:     changedBy,
		Comment:       sql.NullString{String: comment, Valid: comment != ""},
		ChangedAt:     ts,
	}
	_, err = tx.NamedExecContext(ctx, `
        INSERT INTO appointment_status_history (appointment_id, old_status, new_status, changed_by, comment, changed_at)
        VALUES (:appointment_id, :old_status, :new_status, :changed_by, :comment, :changed_at);`, change)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error recording status history", "appointment_id", id, "error", err)
		return nil, fmt.Errorf("failed to record status history of appointment %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction", "appointment_id", id, "error", err)
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	appt.Status = status
	appt.UpdatedAt = ts
	s.logger.InfoContext(ctx, "Appointment status changed",
		"appointment_id", id, "old_status", change.OldStatus, "new_status", status, "changed_by", changedBy)
	return &appt, nil
}

func (s *sqlxStore) ListStatusHistory(ctx context.Context, appointmentID int64) ([]StatusChange, error) {
	var history []StatusChange
	err := s.db.SelectContext(ctx, &history, `
        SELECT * FROM appointment_status_history WHERE appointment_id = ? ORDER BY id;`, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list status history of appointment %d: %w", appointmentID, err)
	}
	return history, nil
}

// --- Questions ---

func (s *sqlxStore) CreateQuestion(ctx context.Context, q *Question) error {
	if q == nil {
		return fmt.Errorf("cannot save nil question")
	}
	if q.UserID == 0 {
		return fmt.Errorf("question must have a non-zero user_id")
	}
	if q.Status == "" {
		q.Status = QuestionNew
	}
	ts := now()
	q.CreatedAt = ts
	q.UpdatedAt = ts

	result, err := s.db.NamedExecContext(ctx, `
        INSERT INTO questions (user_id, question_text, client_name, client_phone, status, created_at, updated_at)
        VALUES (:user_id, :question_text, :client_name, :client_phone, :status, :created_at, :updated_at);`, q)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving question", "user_id", q.UserID, "error", err)
		return fmt.Errorf("failed to save question for user %d: %w", q.UserID, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read question id: %w", err)
	}
	q.ID = id
	return nil
}

func (s *sqlxStore) GetQuestion(ctx context.Context, id int64) (*Question, error) {
	var q Question
	err := s.db.GetContext(ctx, &q, `SELECT * FROM questions WHERE id = ?`, id)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No question found", "question_id", id)
		return nil, nil

	case isContextErr(err):
		return nil, err

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting question", "question_id", id, "error", err)
		return nil, fmt.Errorf("failed to get question %d: %w", id, err)
	}
	return &q, nil
}

func (s *sqlxStore) ListQuestionsByStatus(ctx context.Context, status QuestionStatus, limit, offset int) ([]Question, error) {
	if limit <= 0 {
		limit = -1
	}
	var qs []Question
	var err error
	if status == "" {
		err = s.db.SelectContext(ctx, &qs, `
            SELECT * FROM questions ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?;`, limit, offset)
	} else {
		err = s.db.SelectContext(ctx, &qs, `
            SELECT * FROM questions WHERE status = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?;`,
			status, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return qs, nil
}

func (s *sqlxStore) CountQuestions(ctx context.Context, status QuestionStatus) (int, error) {
	var count int
	var err error
	if status == "" {
		err = s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM questions`)
	} else {
		err = s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM questions WHERE status = ?`, status)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count questions: %w", err)
	}
	return count, nil
}

func (s *sqlxStore) UpdateQuestionStatus(ctx context.Context, id int64, status QuestionStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE questions SET status = ?, updated_at = ? WHERE id = ?`, status, now(), id)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error updating question status", "question_id", id, "error", err)
		return fmt.Errorf("failed to update status of question %d: %w", id, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Admins ---

func (s *sqlxStore) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	if err := s.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM admins WHERE id = ?)`, userID); err != nil {
		return false, fmt.Errorf("failed to check admin %d: %w", userID, err)
	}
	return exists, nil
}

func (s *sqlxStore) AddAdmin(ctx context.Context, userID, addedBy int64) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO admins (id, added_by, created_at) VALUES (?, ?, ?)`,
		userID, addedBy, now())
	if err != nil {
		return fmt.Errorf("failed to add admin %d: %w", userID, err)
	}
	s.logger.InfoContext(ctx, "Admin added", "user_id", userID, "added_by", addedBy)
	return nil
}

// --- Reminders ---

func (s *sqlxStore) listAppointmentsWithoutReminder(ctx context.Context, date string, reminderType ReminderType) ([]Appointment, error) {
	return s.selectAppointments(ctx, `
        SELECT a.* FROM appointments a
        WHERE a.appointment_date = ?
          AND a.appointment_time IS NOT NULL
          AND a.status IN (?, ?)
          AND NOT EXISTS (
              SELECT 1 FROM reminders r WHERE r.appointment_id = a.id AND r.reminder_type = ?
          )
        ORDER BY a.appointment_time, a.id;`, date, StatusPending, StatusConfirmed, reminderType)
}

func (s *sqlxStore) ListAppointmentsForDayBeforeReminder(ctx context.Context, date string) ([]Appointment, error) {
	return s.listAppointmentsWithoutReminder(ctx, date, ReminderDayBefore)
}

func (s *sqlxStore) ListAppointmentsForHourBeforeReminder(ctx context.Context, date string) ([]Appointment, error) {
	return s.listAppointmentsWithoutReminder(ctx, date, ReminderHourBefore)
}

func (s *sqlxStore) HasReminder(ctx context.Context, appointmentID int64, reminderType ReminderType) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `
        SELECT EXISTS (SELECT 1 FROM reminders WHERE appointment_id = ? AND reminder_type = ?)`,
		appointmentID, reminderType)
	if err != nil {
		return false, fmt.Errorf("failed to check reminder for appointment %d: %w", appointmentID, err)
	}
	return exists, nil
}

func (s *sqlxStore) CreateReminder(ctx context.Context, r *Reminder) error {
	if r == nil || r.AppointmentID == 0 {
		return fmt.Errorf("reminder must reference an appointment")
	}
	if r.Status == "" {
		r.Status = ReminderPending
	}
	r.ScheduledAt = r.ScheduledAt.UTC().Truncate(time.Second)
	r.CreatedAt = now()

	result, err := s.db.NamedExecContext(ctx, `
        INSERT INTO reminders (appointment_id, reminder_type, scheduled_at, status, sent_at, created_at)
        VALUES (:appointment_id, :reminder_type, :scheduled_at, :status, :sent_at, :created_at);`, r)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving reminder", "appointment_id", r.AppointmentID, "error", err)
		return fmt.Errorf("failed to save reminder for appointment %d: %w", r.AppointmentID, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read reminder id: %w", err)
	}
	r.ID = id
	return nil
}

func (s *sqlxStore) ListDueReminders(ctx context.Context, at time.Time) ([]DueReminder, error) {
	var pending []DueReminder
	err := s.db.SelectContext(ctx, &pending, `
        SELECT r.id AS reminder_id, r.reminder_type, r.scheduled_at, r.appointment_id,
               a.user_id, a.service, a.client_name, a.appointment_date, a.appointment_time, a.status
        FROM reminders r
        JOIN appointments a ON a.id = r.appointment_id
        WHERE r.status = ?
        ORDER BY r.id;`, ReminderPending)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending reminders: %w", err)
	}

	// scheduled_at is compared here rather than in SQL to stay independent of the stored time text format.
	due := pending[:0]
	for _, r := range pending {
		if !r.ScheduledAt.After(at) {
			due = append(due, r)
		}
	}
	return due, nil
}

func (s *sqlxStore) MarkReminder(ctx context.Context, id int64, status ReminderStatus, at time.Time) error {
	var sentAt sql.NullTime
	if status == ReminderSent {
		sentAt = sql.NullTime{Time: at.UTC().Truncate(time.Second), Valid: true}
	}
	res, err := s.db.ExecContext(ctx, `UPDATE reminders SET status = ?, sent_at = ? WHERE id = ?`, status, sentAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark reminder %d: %w", id, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}
