package handlers

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/intakebot/internal/chat"
	"github.com/edgard/intakebot/internal/conversation"
	"github.com/edgard/intakebot/internal/database"
)

func TestAdminStatusActionsAppendHistoryAndNotifyClient(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	appt := env.seedAppointment(t, clientID, bookingDate, "12:00")

	for i := 0; i < 3; i++ {
		env.press(adminID, fmt.Sprintf("appt:confirm:%d", appt.ID))
	}
	env.press(adminID, fmt.Sprintf("appt:cancel:%d", appt.ID))

	got, err := env.store.GetAppointment(env.ctx, appt.ID)
	require.NoError(t, err)
	history, err := env.store.ListStatusHistory(env.ctx, appt.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, database.StatusCancelled, got.Status)
	assert.Equal(t, got.Status, history[len(history)-1].NewStatus)
	assert.Equal(t, adminID, history[0].ChangedBy)

	toClient := env.msgr.to(clientID)
	require.Len(t, toClient, 4)
	assert.Contains(t, toClient[0].Text, "confirmed")
	assert.Contains(t, toClient[3].Text, "cancelled")
}

func TestAdminActionWithUnreachableClientStillChangesStatus(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	appt := env.seedAppointment(t, clientID, "", "")
	env.msgr.fail[clientID] = true

	env.press(adminID, fmt.Sprintf("appt:complete:%d", appt.ID))

	got, err := env.store.GetAppointment(env.ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, database.StatusCompleted, got.Status)
	assert.Contains(t, env.msgr.last(t, adminID).Text, "could not be notified")
}

func TestAdminActionsDeniedForNonAdmins(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	appt := env.seedAppointment(t, clientID, "", "")

	for _, action := range []string{"appt:confirm:%d", "appt:pay:%d", "appt:call:%d", "adm:back:%d", "export:questions:%d"} {
		env.press(clientID, fmt.Sprintf(action, appt.ID))
		assert.Equal(t, "⛔ No access", env.msgr.lastAnswer(t).Text, action)
	}

	got, err := env.store.GetAppointment(env.ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, database.StatusPending, got.Status)
	assert.Equal(t, conversation.KindIdle, env.state(clientID).Kind())

	env.text(clientID, labelStats)
	assert.Equal(t, "⛔ No access", env.msgr.last(t, clientID).Text)
}

func TestGrantedAdminIsRecognized(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	appt := env.seedAppointment(t, clientID, "", "")
	granted := int64(777)

	env.desk.HandleGrantAdmin(env.ctx, chat.TextEvent{From: chat.Sender{ID: adminID}, ChatID: adminID, Text: "/grant_admin 777"})
	assert.Contains(t, env.msgr.last(t, adminID).Text, "777")

	env.press(granted, fmt.Sprintf("appt:confirm:%d", appt.ID))
	got, err := env.store.GetAppointment(env.ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, database.StatusConfirmed, got.Status)

	env.desk.HandleGrantAdmin(env.ctx, chat.TextEvent{From: chat.Sender{ID: granted}, ChatID: granted, Text: "/grant_admin 778"})
	ok, err := env.store.IsAdmin(env.ctx, 778)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMissingEntityIsReported(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	env.press(adminID, "appt:confirm:42")
	a := env.msgr.lastAnswer(t)
	assert.True(t, a.Alert)
	assert.Contains(t, a.Text, "#42 was not found")

	env.press(adminID, "q:answered:42")
	assert.Contains(t, env.msgr.lastAnswer(t).Text, "#42 was not found")
}

func TestAdminReply(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	q := env.seedQuestion(t, clientID)

	env.press(adminID, fmt.Sprintf("q:reply:%d", q.ID))
	require.Equal(t, conversation.AdminReplying{QuestionID: q.ID, TargetUserID: clientID}, env.state(adminID))

	env.text(adminID, labelCalendar)

	assert.Equal(t, conversation.KindIdle, env.state(adminID).Kind())
	assert.Contains(t, env.msgr.last(t, clientID).Text, labelCalendar)
	got, err := env.store.GetQuestion(env.ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, database.QuestionAnswered, got.Status)
	assert.Contains(t, env.msgr.last(t, adminID).Text, "has been sent")
}

func TestAdminReplyDeliveryFailure(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	q := env.seedQuestion(t, clientID)
	env.msgr.fail[clientID] = true

	env.press(adminID, fmt.Sprintf("q:reply:%d", q.ID))
	env.text(adminID, "You can, with one month notice.")

	assert.Equal(t, conversation.KindIdle, env.state(adminID).Kind())
	got, err := env.store.GetQuestion(env.ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, database.QuestionNew, got.Status)
	assert.Contains(t, env.msgr.last(t, adminID).Text, "could not be delivered")
}

func TestAdminReplyByRevokedAdminIsDropped(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	q := env.seedQuestion(t, clientID)
	revoked := int64(778)
	env.desk.deps.Sessions.Set(revoked, conversation.AdminReplying{QuestionID: q.ID, TargetUserID: clientID})

	env.text(revoked, "hello")

	assert.Equal(t, conversation.KindIdle, env.state(revoked).Kind())
	assert.Empty(t, env.msgr.to(clientID))
	assert.Empty(t, env.msgr.to(revoked))
}

func TestPaymentFlow(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	appt := env.seedAppointment(t, clientID, bookingDate, "15:00")

	env.press(adminID, fmt.Sprintf("appt:pay:%d", appt.ID))
	env.text(adminID, "free")
	assert.Equal(t, conversation.WaitingAmount, env.state(adminID).(conversation.AdminPayment).Step)

	env.text(adminID, "5 000 ₽")
	s := env.state(adminID).(conversation.AdminPayment)
	assert.Equal(t, conversation.WaitingLink, s.Step)
	assert.InDelta(t, 5000, s.Amount, 0.001)

	env.text(adminID, "ftp://pay.example.com")
	assert.Equal(t, conversation.WaitingLink, env.state(adminID).(conversation.AdminPayment).Step)

	env.text(adminID, "https://pay.example.com/inv/1")

	assert.Equal(t, conversation.KindIdle, env.state(adminID).Kind())
	got, err := env.store.GetAppointment(env.ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, database.StatusPaymentSent, got.Status)

	history, err := env.store.ListStatusHistory(env.ctx, appt.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, database.StatusPending, history[0].OldStatus)
	assert.Contains(t, history[0].Comment.String, "5000 ₽")

	msg := env.msgr.last(t, clientID)
	assert.Contains(t, msg.Text, "5000 ₽")
	require.Len(t, msg.Inline, 1)
	assert.Equal(t, "https://pay.example.com/inv/1", msg.Inline[0][0].URL)
}

func TestPaymentWithoutLinkFallsBackToPhone(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	appt := env.seedAppointment(t, clientID, "", "")

	env.press(adminID, fmt.Sprintf("appt:pay:%d", appt.ID))
	env.text(adminID, "1500,50")
	env.text(adminID, labelSkip)

	msg := env.msgr.last(t, clientID)
	assert.Contains(t, msg.Text, "1500.50 ₽")
	assert.Contains(t, msg.Text, "+7 (812) 000-00-00")
	assert.Empty(t, msg.Inline)
}

func TestAppointmentListPagination(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	for i := 0; i < 7; i++ {
		env.seedAppointment(t, clientID, "", "")
	}

	first := env.desk.appointmentList(env.ctx, string(database.StatusPending), 0)
	assert.Contains(t, first.Text, "Page 1 of 2, 7 in total")
	assert.True(t, hasButton(first, "appt:list:pending:1"))
	assert.False(t, hasButton(first, "appt:list:pending:-1"))

	second := env.desk.appointmentList(env.ctx, "bogus", 1)
	assert.Contains(t, second.Text, "All requests")
	assert.True(t, hasButton(second, "appt:list:all:0"))
	assert.Len(t, second.Inline, 4) // two entries, navigation, back
}

func TestDetailActionsDependOnStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status database.AppointmentStatus
		want   []string
		absent []string
	}{
		{database.StatusPending, []string{"confirm", "pay", "cancel"}, []string{"complete"}},
		{database.StatusConfirmed, []string{"complete", "pay", "cancel"}, []string{"confirm"}},
		{database.StatusPaymentSent, []string{"complete", "cancel"}, []string{"confirm", "pay"}},
		{database.StatusCompleted, nil, []string{"confirm", "pay", "cancel", "complete"}},
	}
	for _, tt := range tests {
		msg := chat.Message{Inline: appointmentActions(database.Appointment{ID: 5, Status: tt.status})}
		for _, a := range append(tt.want, "call", "history") {
			assert.True(t, hasButton(msg, "appt:"+a+":5"), "%s: %s", tt.status, a)
		}
		for _, a := range tt.absent {
			assert.False(t, hasButton(msg, "appt:"+a+":5"), "%s: %s", tt.status, a)
		}
	}
}

func TestExportSendsCSV(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.seedAppointment(t, clientID, bookingDate, "10:00")
	env.seedQuestion(t, clientID)

	env.press(adminID, "export:appointments_all")
	env.press(adminID, "export:questions")
	env.press(adminID, "export:appointments_confirmed")

	require.Len(t, env.msgr.docs, 2)
	assert.Equal(t, "appointments_20300422_0900.csv", env.msgr.docs[0].Filename)
	assert.True(t, strings.HasPrefix(string(env.msgr.docs[0].Data), "\ufeffID;"))
	assert.Equal(t, "questions_20300422_0900.csv", env.msgr.docs[1].Filename)
	assert.Equal(t, "Nothing to export.", env.msgr.last(t, adminID).Text)
}

func TestCalendarAndStatistics(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.seedAppointment(t, clientID, bookingDate, "10:00")
	env.seedAppointment(t, clientID, "2030-05-30", "10:00")

	env.text(adminID, labelCalendar)
	cal := env.msgr.last(t, adminID).Text
	assert.Contains(t, cal, "Tue 23.04")
	assert.Contains(t, cal, "10:00  #1")
	assert.NotContains(t, cal, "#2")
	assert.Contains(t, cal, "Sat 27.04, day off")

	env.text(adminID, labelStats)
	stats := env.msgr.last(t, adminID).Text
	assert.Contains(t, stats, "⏳ Pending: 2")
	assert.Contains(t, stats, "Total: 2")
}
