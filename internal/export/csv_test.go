package export_test

import (
	"database/sql"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/intakebot/internal/database"
	"github.com/edgard/intakebot/internal/export"
)

func parse(t *testing.T, data []byte) [][]string {
	t.Helper()
	s := string(data)
	require.True(t, strings.HasPrefix(s, "\ufeff"))
	r := csv.NewReader(strings.NewReader(strings.TrimPrefix(s, "\ufeff")))
	r.Comma = ';'
	records, err := r.ReadAll()
	require.NoError(t, err)
	return records
}

func TestAppointments(t *testing.T) {
	t.Parallel()
	created := time.Date(2030, 3, 1, 7, 5, 0, 0, time.UTC)

	data, err := export.Appointments([]database.Appointment{{
		ID:          3,
		ClientName:  "Ivan; Ivanov",
		ClientPhone: "+7 (999) 123-45-67",
		ClientEmail: sql.NullString{String: "ivan@example.com", Valid: true},
		Service:     "Consultation",
		Date:        sql.NullString{String: "2030-03-05", Valid: true},
		Time:        sql.NullString{String: "10:30", Valid: true},
		Comment:     sql.NullString{String: "line one\nline two", Valid: true},
		Status:      database.StatusConfirmed,
		CreatedAt:   created,
	}}, time.FixedZone("MSK", 3*3600))
	require.NoError(t, err)

	records := parse(t, data)
	require.Len(t, records, 2)
	assert.Equal(t, "ID", records[0][0])
	row := records[1]
	assert.Equal(t, "3", row[0])
	assert.Equal(t, "01.03.2030 10:05", row[1])
	assert.Equal(t, "Ivan; Ivanov", row[2])
	assert.Equal(t, "05.03.2030", row[6])
	assert.Equal(t, "line one\nline two", row[8])
	assert.Equal(t, "confirmed", row[9])
}

func TestQuestionsAndFilename(t *testing.T) {
	t.Parallel()

	data, err := export.Questions([]database.Question{{
		ID: 1, Text: "Price?", Status: database.QuestionNew,
		ClientName: sql.NullString{String: "Anna", Valid: true},
	}}, time.UTC)
	require.NoError(t, err)
	records := parse(t, data)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"1", "01.01.0001 00:00", "Anna", "", "Price?", "new"}, records[1])

	assert.Equal(t, "appointments_20300301_0705.csv",
		export.Filename("appointments", time.Date(2030, 3, 1, 7, 5, 0, 0, time.UTC)))
}
