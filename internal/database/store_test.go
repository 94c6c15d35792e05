package database_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/intakebot/internal/database"
)

func newTestStore(t *testing.T) database.Store {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "intake.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })
	return database.NewStore(db, nil)
}

func seedAppointment(t *testing.T, store database.Store, userID int64, date, slot string) *database.Appointment {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.UpsertUser(ctx, &database.User{ID: userID, FirstName: "Ivan"}))
	appt := &database.Appointment{
		UserID:      userID,
		Service:     "Consultation",
		ClientName:  "Ivan Ivanov",
		ClientPhone: "+7 (999) 123-45-67",
		Date:        sql.NullString{String: date, Valid: date != ""},
		Time:        sql.NullString{String: slot, Valid: slot != ""},
	}
	require.NoError(t, store.CreateAppointment(ctx, appt))
	return appt
}

func TestExtractDBNameFromPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"data/bot.db", "data/bot.db"},
		{"file:data/bot.db?_pragma=foreign_keys(1)", "data/bot.db"},
		{"file:my%20bot.db", "my bot.db"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, database.ExtractDBNameFromPath(tt.in), tt.in)
	}
}

func TestCreateAppointmentStartsPendingWithoutHistory(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	appt := seedAppointment(t, store, 100, "2030-05-14", "10:00")
	require.NotZero(t, appt.ID)

	got, err := store.GetAppointment(ctx, appt.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, database.StatusPending, got.Status)
	assert.Equal(t, "2030-05-14", got.Date.String)
	assert.Equal(t, "10:00", got.Time.String)

	history, err := store.ListStatusHistory(ctx, appt.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestUpdateAppointmentStatusAppendsHistoryEveryTime(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()
	appt := seedAppointment(t, store, 101, "2030-05-14", "11:00")

	const adminID = 9000
	for i := 0; i < 3; i++ {
		updated, err := store.UpdateAppointmentStatus(ctx, appt.ID, database.StatusConfirmed, adminID, "")
		require.NoError(t, err)
		assert.Equal(t, database.StatusConfirmed, updated.Status)
	}
	_, err := store.UpdateAppointmentStatus(ctx, appt.ID, database.StatusCancelled, adminID, "client called")
	require.NoError(t, err)

	history, err := store.ListStatusHistory(ctx, appt.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)

	assert.Equal(t, database.StatusPending, history[0].OldStatus)
	assert.Equal(t, database.StatusConfirmed, history[1].OldStatus)
	assert.Equal(t, database.StatusConfirmed, history[1].NewStatus)
	assert.Equal(t, database.StatusCancelled, history[3].NewStatus)
	assert.Equal(t, "client called", history[3].Comment.String)
	assert.EqualValues(t, adminID, history[3].ChangedBy)

	got, err := store.GetAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, history[len(history)-1].NewStatus, got.Status)
}

func TestUpdateAppointmentStatusErrors(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.UpdateAppointmentStatus(ctx, 424242, database.StatusConfirmed, 1, "")
	require.ErrorIs(t, err, database.ErrNotFound)

	appt := seedAppointment(t, store, 102, "", "")
	_, err = store.UpdateAppointmentStatus(ctx, appt.ID, database.AppointmentStatus("archived"), 1, "")
	require.Error(t, err)

	history, err := store.ListStatusHistory(ctx, appt.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestListAppointmentsByDateSkipsCancelled(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	first := seedAppointment(t, store, 103, "2030-06-01", "10:30")
	seedAppointment(t, store, 103, "2030-06-01", "10:00")
	cancelled := seedAppointment(t, store, 103, "2030-06-01", "12:00")
	seedAppointment(t, store, 103, "2030-06-02", "10:00")
	_, err := store.UpdateAppointmentStatus(ctx, cancelled.ID, database.StatusCancelled, 1, "")
	require.NoError(t, err)

	appts, err := store.ListAppointmentsByDate(ctx, "2030-06-01")
	require.NoError(t, err)
	require.Len(t, appts, 2)
	assert.Equal(t, "10:00", appts[0].Time.String)
	assert.Equal(t, first.ID, appts[1].ID)

	between, err := store.ListAppointmentsBetween(ctx, "2030-06-01", "2030-06-07")
	require.NoError(t, err)
	assert.Len(t, between, 3)
}

func TestListAndCountAppointmentsByStatus(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		seedAppointment(t, store, 104, "", "")
	}
	confirmed := seedAppointment(t, store, 104, "", "")
	_, err := store.UpdateAppointmentStatus(ctx, confirmed.ID, database.StatusConfirmed, 1, "")
	require.NoError(t, err)

	page, err := store.ListAppointmentsByStatus(ctx, database.StatusPending, 5, 5)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	all, err := store.ListAppointmentsByStatus(ctx, "", 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 8)

	n, err := store.CountAppointments(ctx, database.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	counts, err := store.CountAppointmentsByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, counts[database.StatusPending])
	assert.Equal(t, 1, counts[database.StatusConfirmed])
	assert.Equal(t, 0, counts[database.StatusCompleted])
}

func TestUsersKeepPhoneOnUpsert(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertUser(ctx, &database.User{ID: 105, FirstName: "Anna"}))
	require.NoError(t, store.UpdateUserPhone(ctx, 105, "+7 (999) 000-00-00"))
	require.NoError(t, store.UpsertUser(ctx, &database.User{ID: 105, FirstName: "Anna", LastName: "K"}))

	user, err := store.GetUser(ctx, 105)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "Anna K", user.DisplayName())
	assert.Equal(t, "+7 (999) 000-00-00", user.Phone.String)

	missing, err := store.GetUser(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.ErrorIs(t, store.UpdateUserPhone(ctx, 999, "x"), database.ErrNotFound)
}

func TestQuestionsLifecycle(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.UpsertUser(ctx, &database.User{ID: 106}))

	q := &database.Question{UserID: 106, Text: "How much is a consultation?"}
	require.NoError(t, store.CreateQuestion(ctx, q))
	assert.Equal(t, database.QuestionNew, q.Status)

	n, err := store.CountQuestions(ctx, database.QuestionNew)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, store.UpdateQuestionStatus(ctx, q.ID, database.QuestionAnswered))
	got, err := store.GetQuestion(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, database.QuestionAnswered, got.Status)

	list, err := store.ListQuestionsByStatus(ctx, database.QuestionNew, 5, 0)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.ErrorIs(t, store.UpdateQuestionStatus(ctx, 777, database.QuestionClosed), database.ErrNotFound)
}

func TestAdmins(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	ok, err := store.IsAdmin(ctx, 55)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.AddAdmin(ctx, 55, 1))
	require.NoError(t, store.AddAdmin(ctx, 55, 1))

	ok, err = store.IsAdmin(ctx, 55)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReminderQueries(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	appt := seedAppointment(t, store, 107, "2030-07-10", "14:00")
	seedAppointment(t, store, 107, "2030-07-10", "") // date-only requests are never reminded

	candidates, err := store.ListAppointmentsForDayBeforeReminder(ctx, "2030-07-10")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, appt.ID, candidates[0].ID)

	scheduled := time.Date(2030, 7, 9, 15, 0, 0, 0, time.UTC)
	require.NoError(t, store.CreateReminder(ctx, &database.Reminder{
		AppointmentID: appt.ID,
		Type:          database.ReminderDayBefore,
		ScheduledAt:   scheduled,
	}))

	has, err := store.HasReminder(ctx, appt.ID, database.ReminderDayBefore)
	require.NoError(t, err)
	assert.True(t, has)

	candidates, err = store.ListAppointmentsForDayBeforeReminder(ctx, "2030-07-10")
	require.NoError(t, err)
	assert.Empty(t, candidates)

	hourCandidates, err := store.ListAppointmentsForHourBeforeReminder(ctx, "2030-07-10")
	require.NoError(t, err)
	assert.Len(t, hourCandidates, 1)

	due, err := store.ListDueReminders(ctx, scheduled.Add(-time.Minute))
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = store.ListDueReminders(ctx, scheduled)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, appt.ID, due[0].AppointmentID)
	assert.EqualValues(t, 107, due[0].UserID)
	assert.Equal(t, database.ReminderDayBefore, due[0].Type)

	require.NoError(t, store.MarkReminder(ctx, due[0].ReminderID, database.ReminderSent, scheduled))
	due, err = store.ListDueReminders(ctx, scheduled.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, due)
}
