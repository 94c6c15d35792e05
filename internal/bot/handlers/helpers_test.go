package handlers

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/edgard/intakebot/internal/catalog"
	"github.com/edgard/intakebot/internal/chat"
	"github.com/edgard/intakebot/internal/config"
	"github.com/edgard/intakebot/internal/conversation"
	"github.com/edgard/intakebot/internal/database"
	"github.com/edgard/intakebot/internal/logger"
)

const (
	adminID  int64 = 900
	clientID int64 = 100
)

var errBlocked = errors.New("forbidden: bot was blocked by the user")

type sentMessage struct {
	ChatID int64
	Msg    chat.Message
}

type answered struct {
	ID    string
	Text  string
	Alert bool
}

type document struct {
	ChatID   int64
	Filename string
	Data     []byte
}

// fakeMessenger records outbound traffic. Sends to chats listed in fail return errBlocked.
type fakeMessenger struct {
	mu      sync.Mutex
	sent    []sentMessage
	edited  []sentMessage
	answers []answered
	docs    []document
	fail    map[int64]bool
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{fail: make(map[int64]bool)}
}

func (f *fakeMessenger) Send(_ context.Context, chatID int64, msg chat.Message) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[chatID] {
		return 0, errBlocked
	}
	f.sent = append(f.sent, sentMessage{ChatID: chatID, Msg: msg})
	return len(f.sent), nil
}

func (f *fakeMessenger) Edit(_ context.Context, chatID int64, _ int, msg chat.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edited = append(f.edited, sentMessage{ChatID: chatID, Msg: msg})
	return nil
}

func (f *fakeMessenger) Answer(_ context.Context, callbackID, text string, alert bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, answered{ID: callbackID, Text: text, Alert: alert})
	return nil
}

func (f *fakeMessenger) SendDocument(_ context.Context, chatID int64, filename string, data []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[chatID] {
		return errBlocked
	}
	f.docs = append(f.docs, document{ChatID: chatID, Filename: filename, Data: data})
	return nil
}

// to returns the messages sent to chatID.
func (f *fakeMessenger) to(chatID int64) []chat.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []chat.Message
	for _, s := range f.sent {
		if s.ChatID == chatID {
			out = append(out, s.Msg)
		}
	}
	return out
}

func (f *fakeMessenger) last(t *testing.T, chatID int64) chat.Message {
	t.Helper()
	msgs := f.to(chatID)
	require.NotEmpty(t, msgs, "no messages sent to %d", chatID)
	return msgs[len(msgs)-1]
}

func (f *fakeMessenger) lastAnswer(t *testing.T) answered {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.answers)
	return f.answers[len(f.answers)-1]
}

// testNow is Monday 22.04.2030 09:00 in Moscow.
var testNow = time.Date(2030, 4, 22, 9, 0, 0, 0, msk())

func msk() *time.Location {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		panic(err)
	}
	return loc
}

type testEnv struct {
	desk  *Desk
	store database.Store
	msgr  *fakeMessenger
	ctx   context.Context
}

func testConfig() *config.Config {
	return &config.Config{
		Telegram: config.TelegramConfig{Token: "test", AdminIDs: []int64{adminID}},
		Business: config.BusinessConfig{
			Name:          "Legal Center",
			Phone:         "+7 (812) 000-00-00",
			Timezone:      "Europe/Moscow",
			WorkStartHour: 10,
			WorkEndHour:   18,
			WorkDays:      []int{1, 2, 3, 4, 5},
			SlotMinutes:   30,
		},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "intake.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })

	store := database.NewStore(db, nil)
	msgr := newFakeMessenger()
	desk := NewDesk(HandlerDeps{
		Logger:    logger.Discard(),
		Config:    testConfig(),
		Store:     store,
		Sessions:  conversation.NewStore(),
		Messenger: msgr,
		Catalog:   catalog.Default(),
		Now:       func() time.Time { return testNow },
	})
	return &testEnv{desk: desk, store: store, msgr: msgr, ctx: context.Background()}
}

func (e *testEnv) text(userID int64, text string) {
	e.desk.HandleText(e.ctx, chat.TextEvent{
		From:   chat.Sender{ID: userID, FirstName: "Ivan", Username: "ivan"},
		ChatID: userID,
		Text:   text,
	})
}

func (e *testEnv) press(userID int64, data string) {
	e.desk.HandleButton(e.ctx, chat.ButtonEvent{
		ID:     "cb",
		From:   chat.Sender{ID: userID, FirstName: "Ivan"},
		ChatID: userID,
		Data:   data,
	})
}

// appointmentsOf returns every appointment owned by userID, newest first.
func (e *testEnv) appointmentsOf(userID int64) ([]database.Appointment, error) {
	all, err := e.store.ListAppointmentsByStatus(e.ctx, "", 0, 0)
	if err != nil {
		return nil, err
	}
	var own []database.Appointment
	for _, a := range all {
		if a.UserID == userID {
			own = append(own, a)
		}
	}
	return own, nil
}

func (e *testEnv) state(userID int64) conversation.State {
	return e.desk.deps.Sessions.Get(userID)
}

func (e *testEnv) seedAppointment(t *testing.T, userID int64, date, slot string) *database.Appointment {
	t.Helper()
	require.NoError(t, e.store.UpsertUser(e.ctx, &database.User{ID: userID, FirstName: "Client"}))
	appt := &database.Appointment{
		UserID:      userID,
		Service:     "💬 Legal consultation",
		ClientName:  "Petr Petrov",
		ClientPhone: "+7 (999) 000-11-22",
		Date:        nullString(date),
		Time:        nullString(slot),
	}
	require.NoError(t, e.store.CreateAppointment(e.ctx, appt))
	return appt
}

func (e *testEnv) seedQuestion(t *testing.T, userID int64) *database.Question {
	t.Helper()
	require.NoError(t, e.store.UpsertUser(e.ctx, &database.User{ID: userID, FirstName: "Client"}))
	q := &database.Question{UserID: userID, Text: "How much is a consultation?", ClientName: nullString("Client")}
	require.NoError(t, e.store.CreateQuestion(e.ctx, q))
	return q
}

func hasButton(msg chat.Message, data string) bool {
	for _, row := range msg.Inline {
		for _, b := range row {
			if b.Data == data {
				return true
			}
		}
	}
	return false
}
