// Package chat is the boundary between the conversation core and the messaging transport.
package chat

import (
	"context"
	"strings"
)

// Button is an inline action button. Exactly one of Data and URL is set.
type Button struct {
	Text string
	Data string
	URL  string
}

// Message is an outbound message. Inline buttons are attached to the message itself,
// Menu replaces the persistent reply keyboard and RemoveMenu hides it.
type Message struct {
	Text       string
	Inline     [][]Button
	Menu       [][]string
	RemoveMenu bool
}

// Messenger delivers messages to users. Implementations must be safe for concurrent use.
type Messenger interface {
	// Send delivers msg to chatID and returns the id of the sent message.
	Send(ctx context.Context, chatID int64, msg Message) (int, error)
	// Edit replaces text and inline buttons of a message sent earlier.
	Edit(ctx context.Context, chatID int64, messageID int, msg Message) error
	// Answer acknowledges a button press, optionally showing text as a toast or an alert.
	Answer(ctx context.Context, callbackID, text string, alert bool) error
	// SendDocument delivers a file.
	SendDocument(ctx context.Context, chatID int64, filename string, data []byte, caption string) error
}

// Sender identifies who produced an inbound event.
type Sender struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

// DisplayName returns the full name, falling back to the username.
func (s Sender) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(s.FirstName) + " " + strings.TrimSpace(s.LastName))
	if name != "" {
		return name
	}
	if s.Username != "" {
		return "@" + s.Username
	}
	return "Client"
}

// TextEvent is an inbound free-text message.
type TextEvent struct {
	From      Sender
	ChatID    int64
	MessageID int
	Text      string
}

// ButtonEvent is an inbound inline button press.
type ButtonEvent struct {
	ID        string
	From      Sender
	ChatID    int64
	MessageID int
	Data      string
}

// Row builds a single keyboard row.
func Row(buttons ...Button) []Button { return buttons }

// Action builds a callback button.
func Action(text, data string) Button { return Button{Text: text, Data: data} }

// Link builds a URL button.
func Link(text, url string) Button { return Button{Text: text, URL: url} }
