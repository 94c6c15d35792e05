package conversation_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/intakebot/internal/conversation"
)

func allStates() []conversation.State {
	return []conversation.State{
		conversation.AppointmentIntake{Variant: conversation.Full, Step: conversation.WaitingService},
		conversation.QuestionIntake{Step: conversation.WaitingQuestion},
		conversation.AdminReplying{QuestionID: 1, TargetUserID: 2},
		conversation.AdminPayment{AppointmentID: 3, Step: conversation.WaitingAmount},
	}
}

func TestGetDefaultsToIdle(t *testing.T) {
	t.Parallel()
	s := conversation.NewStore()
	assert.Equal(t, conversation.KindIdle, s.Get(1).Kind())
}

func TestBeginKeepsHigherPriorityState(t *testing.T) {
	t.Parallel()

	for _, first := range allStates() {
		for _, second := range allStates() {
			if first.Kind() == second.Kind() {
				continue
			}
			first, second := first, second
			name := first.Kind().String() + "+" + second.Kind().String()
			t.Run(name, func(t *testing.T) {
				t.Parallel()
				s := conversation.NewStore()
				_, ok := s.Begin(7, first)
				require.True(t, ok)

				owner, installed := s.Begin(7, second)
				want := first
				if second.Kind() > first.Kind() {
					want = second
				}
				assert.Equal(t, want.Kind(), owner.Kind())
				assert.Equal(t, want.Kind(), s.Get(7).Kind())
				assert.Equal(t, second.Kind() > first.Kind(), installed)
			})
		}
	}
}

func TestBeginSameKindRestarts(t *testing.T) {
	t.Parallel()
	s := conversation.NewStore()
	s.Begin(1, conversation.AdminPayment{AppointmentID: 1, Step: conversation.WaitingAmount})
	_, ok := s.Begin(1, conversation.AdminPayment{AppointmentID: 2, Step: conversation.WaitingAmount})
	require.True(t, ok)
	assert.Equal(t, int64(2), s.Get(1).(conversation.AdminPayment).AppointmentID)
}

func TestClearAndIsolation(t *testing.T) {
	t.Parallel()
	s := conversation.NewStore()
	s.Set(1, conversation.QuestionIntake{Step: conversation.WaitingQuestion})
	s.Set(2, conversation.AdminReplying{QuestionID: 5, TargetUserID: 1})

	s.Clear(1)
	assert.Equal(t, conversation.KindIdle, s.Get(1).Kind())
	assert.Equal(t, conversation.KindAdminReplying, s.Get(2).Kind())
}

func TestLockSerializesUserTurns(t *testing.T) {
	t.Parallel()
	s := conversation.NewStore()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		inside int
		peak   int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := s.Lock(42)
			defer unlock()

			mu.Lock()
			inside++
			if inside > peak {
				peak = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, peak)
}

func TestAppointmentIntakeConsistency(t *testing.T) {
	t.Parallel()
	day := time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		state conversation.AppointmentIntake
		want  bool
	}{
		{"full start", conversation.AppointmentIntake{Step: conversation.WaitingService}, true},
		{"full name without service", conversation.AppointmentIntake{Step: conversation.WaitingName}, false},
		{"full time without date", conversation.AppointmentIntake{
			Step:  conversation.WaitingTime,
			Draft: conversation.AppointmentDraft{Service: "s", Name: "n", Phone: "p"},
		}, false},
		{"full time with date", conversation.AppointmentIntake{
			Step:  conversation.WaitingTime,
			Draft: conversation.AppointmentDraft{Service: "s", Name: "n", Phone: "p", Date: day},
		}, true},
		{"simplified without service", conversation.AppointmentIntake{
			Variant: conversation.Simplified, Step: conversation.WaitingName,
		}, false},
		{"simplified confirm", conversation.AppointmentIntake{
			Variant: conversation.Simplified, Step: conversation.WaitingConfirm,
			Draft: conversation.AppointmentDraft{Service: "s", Name: "n", Phone: "p", Email: "e"},
		}, true},
		{"step of other variant", conversation.AppointmentIntake{
			Variant: conversation.Simplified, Step: conversation.WaitingDate,
			Draft: conversation.AppointmentDraft{Service: "s"},
		}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.Consistent(), tt.name)
	}

	assert.False(t, conversation.AdminPayment{AppointmentID: 1, Step: conversation.WaitingLink}.Consistent())
	assert.False(t, conversation.AdminReplying{QuestionID: 1}.Consistent())
	assert.True(t, conversation.QuestionIntake{Step: conversation.WaitingQuestion}.Consistent())
}
