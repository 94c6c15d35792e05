// Package export renders appointments and questions as CSV for spreadsheet tools.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/edgard/intakebot/internal/database"
)

// Files start with a UTF-8 byte order mark and use ';' so spreadsheet tools in
// comma-decimal locales split the columns.
const (
	bom       = "\ufeff"
	separator = ';'
	stampFmt  = "02.01.2006 15:04"
)

var appointmentHeader = []string{
	"ID", "Created", "Client", "Phone", "Email", "Service", "Date", "Time", "Comment", "Status",
}

var questionHeader = []string{"ID", "Created", "Client", "Phone", "Question", "Status"}

// Appointments renders appts, timestamps shown in loc.
func Appointments(appts []database.Appointment, loc *time.Location) ([]byte, error) {
	rows := make([][]string, 0, len(appts))
	for _, a := range appts {
		rows = append(rows, []string{
			strconv.FormatInt(a.ID, 10),
			a.CreatedAt.In(loc).Format(stampFmt),
			a.ClientName,
			a.ClientPhone,
			a.ClientEmail.String,
			a.Service,
			displayDate(a.Date.String),
			a.Time.String,
			a.Comment.String,
			string(a.Status),
		})
	}
	return render(appointmentHeader, rows)
}

// Questions renders qs, timestamps shown in loc.
func Questions(qs []database.Question, loc *time.Location) ([]byte, error) {
	rows := make([][]string, 0, len(qs))
	for _, q := range qs {
		rows = append(rows, []string{
			strconv.FormatInt(q.ID, 10),
			q.CreatedAt.In(loc).Format(stampFmt),
			q.ClientName.String,
			q.ClientPhone.String,
			q.Text,
			string(q.Status),
		})
	}
	return render(questionHeader, rows)
}

// Filename names an export file after its kind and the moment it was made.
func Filename(kind string, at time.Time) string {
	return fmt.Sprintf("%s_%s.csv", kind, at.Format("20060102_1504"))
}

func render(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(bom)

	w := csv.NewWriter(&buf)
	w.Comma = separator
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("failed to write csv rows: %w", err)
	}
	return buf.Bytes(), nil
}

func displayDate(stored string) string {
	d, err := time.Parse(database.DateLayout, stored)
	if err != nil {
		return stored
	}
	return d.Format("02.01.2006")
}
