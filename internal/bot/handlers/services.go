package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/edgard/intakebot/internal/catalog"
	"github.com/edgard/intakebot/internal/chat"
	"github.com/edgard/intakebot/internal/conversation"
)

func (d *Desk) showCategories(ctx context.Context, ev chat.TextEvent, _ conversation.State) {
	cats := d.deps.Catalog.Categories()
	labels := make([]string, 0, len(cats))
	for _, c := range cats {
		labels = append(labels, c.Label)
	}
	rows := make([][]string, 0, len(labels)+1)
	for _, l := range labels {
		rows = append(rows, []string{l})
	}
	rows = append(rows, []string{labelMainMenu})
	d.send(ctx, ev.ChatID, chat.Message{Text: "📋 Choose a category:", Menu: rows})
}

func (d *Desk) showCategory(ctx context.Context, chatID int64, cat catalog.Category) {
	rows := make([][]string, 0, len(cat.Services)+1)
	for _, svc := range cat.Services {
		rows = append(rows, []string{svc.Label})
	}
	rows = append(rows, []string{labelBackServices, labelMainMenu})
	d.send(ctx, chatID, chat.Message{Text: cat.Label + "\n\nChoose a service:", Menu: rows})
}

func (d *Desk) showService(ctx context.Context, chatID int64, svc catalog.Service) {
	d.send(ctx, chatID, chat.Message{
		Text: svc.Detail(),
		Inline: [][]chat.Button{
			chat.Row(chat.Action("📝 Leave a request", data(nsService, "book", svc.Key))),
			chat.Row(chat.Action(labelBackServices, data(nsService, "back"))),
		},
	})
}

// handleServiceButton handles svc:book:<key> and svc:back.
func (d *Desk) handleServiceButton(ctx context.Context, ev chat.ButtonEvent, args []string) {
	d.answer(ctx, ev, "", false)
	if len(args) == 0 {
		return
	}
	switch args[0] {
	case "book":
		if len(args) < 2 {
			return
		}
		svc, ok := d.deps.Catalog.ServiceByKey(args[1])
		if !ok {
			d.send(ctx, ev.ChatID, chat.Message{Text: "⚠️ This service is no longer available."})
			return
		}
		d.startSimplified(ctx, ev.From, ev.ChatID, svc)
	case "back":
		d.showCategories(ctx, chat.TextEvent{From: ev.From, ChatID: ev.ChatID}, nil)
	}
}

func (d *Desk) showAbout(ctx context.Context, ev chat.TextEvent, _ conversation.State) {
	b := d.deps.Config.Business
	text := "ℹ️ " + b.Name
	if b.About != "" {
		text += "\n\n" + b.About
	}
	d.send(ctx, ev.ChatID, chat.Message{Text: text})
}

func (d *Desk) showContacts(ctx context.Context, ev chat.TextEvent, _ conversation.State) {
	b := d.deps.Config.Business
	lines := []string{"📍 Contacts", ""}
	add := func(label, value string) {
		if value != "" {
			lines = append(lines, fmt.Sprintf("%s %s", label, value))
		}
	}
	add("📞", b.Phone)
	add("📧", b.Email)
	add("🏢", b.Address)
	add("🌐", b.Website)
	lines = append(lines, "", fmt.Sprintf("🕐 Working hours: %02d:00-%02d:00", b.WorkStartHour, b.WorkEndHour))
	d.send(ctx, ev.ChatID, chat.Message{Text: strings.Join(lines, "\n")})
}
