package handlers

import (
	"strings"

	"github.com/edgard/intakebot/internal/chat"
)

// Reply keyboard labels.
const (
	labelServices     = "📋 Our services"
	labelBook         = "📞 Book a consultation"
	labelAsk          = "❓ Ask a question"
	labelAbout        = "ℹ️ About us"
	labelContacts     = "📍 Contacts"
	labelAdminPanel   = "🔐 Admin panel"
	labelMainMenu     = "🏠 Main menu"
	labelCancel       = "❌ Cancel"
	labelSkip         = "Skip"
	labelBackServices = "🔙 Back to services"

	labelNewRequests = "📋 New requests"
	labelAllRequests = "📁 All requests"
	labelCalendar    = "📅 Calendar"
	labelStats       = "📊 Statistics"
	labelExport      = "📥 Export"
)

// sentinels abort any workflow and return to the main menu.
var sentinels = map[string]bool{
	strings.ToLower(labelMainMenu): true,
	"main menu":                    true,
	"главное меню":                 true,
	strings.ToLower(labelCancel):   true,
	"cancel":                       true,
	"отмена":                       true,
	"/cancel":                      true,
	"/menu":                        true,
}

func isSentinel(text string) bool {
	return sentinels[strings.ToLower(strings.TrimSpace(text))]
}

func mainMenu(admin bool) [][]string {
	rows := [][]string{
		{labelServices},
		{labelBook},
		{labelAsk},
		{labelAbout, labelContacts},
	}
	if admin {
		rows = append(rows, []string{labelAdminPanel})
	}
	return rows
}

func adminMenu() [][]string {
	return [][]string{
		{labelNewRequests, labelAllRequests},
		{labelCalendar},
		{labelStats},
		{labelExport},
		{labelMainMenu},
	}
}

func cancelMenu() [][]string {
	return [][]string{{labelCancel}}
}

func skipMenu() [][]string {
	return [][]string{{labelSkip}, {labelCancel}}
}

// gridMenu lays labels out in rows of width, followed by a cancel row.
func gridMenu(labels []string, width int) [][]string {
	var rows [][]string
	for len(labels) > 0 {
		n := min(width, len(labels))
		rows = append(rows, labels[:n])
		labels = labels[n:]
	}
	return append(rows, []string{labelCancel})
}

// Callback data namespaces and actions. Data has the form ns:action[:arg...].
const (
	nsAppointment = "appt"
	nsQuestion    = "q"
	nsAdmin       = "adm"
	nsExport      = "export"
	nsService     = "svc"
	nsSimple      = "simple"
)

func data(parts ...string) string {
	return strings.Join(parts, ":")
}

func backToPanel() []chat.Button {
	return chat.Row(chat.Action("🔙 Back", data(nsAdmin, "back")))
}
