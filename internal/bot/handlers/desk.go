// Package handlers contains the conversation core of the bot: the message router, the
// intake and admin workflows, the admin action dispatcher and their Telegram registration.
package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/edgard/intakebot/internal/chat"
	"github.com/edgard/intakebot/internal/conversation"
	"github.com/edgard/intakebot/internal/database"
	"github.com/edgard/intakebot/internal/ratelimit"
)

// Desk handles every inbound event. Text goes through fixed menu commands and then the
// Router; button presses go to the dispatcher owning the callback namespace.
type Desk struct {
	deps HandlerDeps
	log  *slog.Logger
	loc  *time.Location
	menu map[string]menuAction
}

type menuAction func(ctx context.Context, ev chat.TextEvent, state conversation.State)

// NewDesk builds a Desk from deps.
func NewDesk(deps HandlerDeps) *Desk {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	d := &Desk{
		deps: deps,
		log:  deps.Logger.With("component", "desk"),
		loc:  deps.Config.Location(),
	}
	d.menu = map[string]menuAction{
		labelServices:     d.showCategories,
		labelBackServices: d.showCategories,
		labelBook:         d.startAppointment,
		labelAsk:          d.startQuestion,
		labelAbout:        d.showAbout,
		labelContacts:     d.showContacts,
		labelAdminPanel:   d.adminOnlyText(d.showAdminPanel),
		labelNewRequests:  d.adminOnlyText(d.showNewRequests),
		labelAllRequests:  d.adminOnlyText(d.showFilters),
		labelCalendar:     d.adminOnlyText(d.showCalendar),
		labelStats:        d.adminOnlyText(d.showStatistics),
		labelExport:       d.adminOnlyText(d.showExportOptions),
	}
	return d
}

func (d *Desk) now() time.Time {
	return d.deps.Now().In(d.loc)
}

// HandleText processes one free-text message.
func (d *Desk) HandleText(ctx context.Context, ev chat.TextEvent) {
	if !d.admit(ctx, ev.From.ID, ev.ChatID) {
		return
	}
	unlock := d.deps.Sessions.Lock(ev.From.ID)
	defer unlock()

	ev.Text = strings.TrimSpace(ev.Text)
	if ev.Text == "" {
		return
	}

	if isSentinel(ev.Text) {
		d.resetToMenu(ctx, ev.From.ID, ev.ChatID, "")
		return
	}

	state := d.deps.Sessions.Get(ev.From.ID)
	if action, ok := d.menu[ev.Text]; ok && !capturesEveryMessage(state) {
		action(ctx, ev, state)
		return
	}

	d.Route(ctx, ev, state)
}

// capturesEveryMessage reports whether state treats any non-sentinel text as its input,
// including texts that look like menu commands.
func capturesEveryMessage(state conversation.State) bool {
	k := state.Kind()
	return k == conversation.KindAdminReplying || k == conversation.KindAdminPayment
}

// HandleButton processes one inline button press.
func (d *Desk) HandleButton(ctx context.Context, ev chat.ButtonEvent) {
	if !d.admit(ctx, ev.From.ID, ev.ChatID) {
		d.answer(ctx, ev, "", false)
		return
	}
	unlock := d.deps.Sessions.Lock(ev.From.ID)
	defer unlock()

	parts := strings.Split(ev.Data, ":")
	switch parts[0] {
	case nsService:
		d.handleServiceButton(ctx, ev, parts[1:])
	case nsSimple:
		d.handleSimpleButton(ctx, ev, parts[1:])
	case nsAppointment, nsQuestion, nsAdmin, nsExport:
		if !d.isAdmin(ctx, ev.From.ID) {
			d.log.WarnContext(ctx, "Denied admin action", "user_id", ev.From.ID, "data", ev.Data)
			d.answer(ctx, ev, "⛔ No access", false)
			return
		}
		d.dispatchAdmin(ctx, ev, parts)
	default:
		d.log.WarnContext(ctx, "Unknown callback data", "user_id", ev.From.ID, "data", ev.Data)
		d.answer(ctx, ev, "", false)
	}
}

// HandleStart registers the user and shows the main menu.
func (d *Desk) HandleStart(ctx context.Context, ev chat.TextEvent) {
	unlock := d.deps.Sessions.Lock(ev.From.ID)
	defer unlock()

	d.ensureUser(ctx, ev.From)
	d.deps.Sessions.Clear(ev.From.ID)

	name := d.deps.Config.Business.Name
	text := fmt.Sprintf("👋 Hello, %s!\n\nWelcome to %s. Here you can browse our services, "+
		"book a consultation or ask a question.\n\nChoose an item in the menu below.", ev.From.DisplayName(), name)
	d.send(ctx, ev.ChatID, chat.Message{Text: text, Menu: mainMenu(d.isAdmin(ctx, ev.From.ID))})
}

// HandleAdmin shows the admin panel to admins.
func (d *Desk) HandleAdmin(ctx context.Context, ev chat.TextEvent) {
	unlock := d.deps.Sessions.Lock(ev.From.ID)
	defer unlock()
	d.adminOnlyText(d.showAdminPanel)(ctx, ev, d.deps.Sessions.Get(ev.From.ID))
}

// HandleGrantAdmin adds a user to the durable admin set. Only static admins may grant.
func (d *Desk) HandleGrantAdmin(ctx context.Context, ev chat.TextEvent) {
	log := d.log.With("handler", "grant_admin")
	if !d.deps.Config.IsStaticAdmin(ev.From.ID) {
		log.WarnContext(ctx, "Unauthorized grant attempt", "user_id", ev.From.ID)
		d.send(ctx, ev.ChatID, chat.Message{Text: "⛔ No access"})
		return
	}

	fields := strings.Fields(ev.Text)
	var target int64
	if len(fields) == 2 {
		fmt.Sscan(fields[1], &target) //nolint:errcheck // zero target is rejected below
	}
	if target <= 0 {
		d.send(ctx, ev.ChatID, chat.Message{Text: "Usage: /grant_admin <telegram user id>"})
		return
	}

	if err := d.deps.Store.AddAdmin(ctx, target, ev.From.ID); err != nil {
		log.ErrorContext(ctx, "Failed to add admin", "error", err, "target_id", target)
		d.send(ctx, ev.ChatID, chat.Message{Text: "⚠️ Could not grant admin rights, try again later."})
		return
	}
	d.send(ctx, ev.ChatID, chat.Message{Text: fmt.Sprintf("✅ User %d is now an admin.", target)})
}

// admit applies the rate limit. Static admins are never throttled.
func (d *Desk) admit(ctx context.Context, userID, chatID int64) bool {
	if d.deps.Limiter == nil || d.deps.Config.IsStaticAdmin(userID) {
		return true
	}
	now := d.deps.Now()
	switch d.deps.Limiter.Check(userID, now) {
	case ratelimit.Block:
		wait := d.deps.Limiter.BlockedUntil(userID, now).Sub(now).Round(time.Second)
		d.log.WarnContext(ctx, "User rate limited", "user_id", userID, "block", wait)
		d.send(ctx, chatID, chat.Message{
			Text: fmt.Sprintf("⏳ Too many messages. Please wait %d seconds and try again.", int(wait.Seconds())),
		})
		return false
	case ratelimit.Silence:
		return false
	default:
		return true
	}
}

// isAdmin checks the static allow-list, then the durable admin set.
func (d *Desk) isAdmin(ctx context.Context, userID int64) bool {
	if d.deps.Config.IsStaticAdmin(userID) {
		return true
	}
	ok, err := d.deps.Store.IsAdmin(ctx, userID)
	if err != nil {
		d.log.ErrorContext(ctx, "Failed to check admin status", "error", err, "user_id", userID)
		return false
	}
	return ok
}

func (d *Desk) adminOnlyText(next menuAction) menuAction {
	return func(ctx context.Context, ev chat.TextEvent, state conversation.State) {
		if !d.isAdmin(ctx, ev.From.ID) {
			d.log.WarnContext(ctx, "Denied admin menu", "user_id", ev.From.ID, "text", ev.Text)
			d.send(ctx, ev.ChatID, chat.Message{Text: "⛔ No access"})
			return
		}
		next(ctx, ev, state)
	}
}

// ensureUser records the sender so entities can reference it.
func (d *Desk) ensureUser(ctx context.Context, from chat.Sender) {
	err := d.deps.Store.UpsertUser(ctx, &database.User{
		ID:        from.ID,
		Username:  from.Username,
		FirstName: from.FirstName,
		LastName:  from.LastName,
	})
	if err != nil {
		d.log.ErrorContext(ctx, "Failed to register user", "error", err, "user_id", from.ID)
	}
}

// resetToMenu clears any workflow and shows the main menu.
func (d *Desk) resetToMenu(ctx context.Context, userID, chatID int64, notice string) {
	d.deps.Sessions.Clear(userID)
	text := "🏠 Main menu"
	if notice != "" {
		text = notice + "\n\n" + text
	}
	d.send(ctx, chatID, chat.Message{Text: text, Menu: mainMenu(d.isAdmin(ctx, userID))})
}

// busy tells the user a higher-priority workflow is active.
func (d *Desk) busy(ctx context.Context, chatID int64, owner conversation.State) {
	d.log.InfoContext(ctx, "Workflow start refused", "chat_id", chatID, "active", owner.Kind().String())
	d.send(ctx, chatID, chat.Message{
		Text: "⚠️ Please finish the current action first, or send " + labelCancel + " to abort it.",
	})
}

// send delivers msg and logs failures. Callers that must react to failures use the Messenger directly.
func (d *Desk) send(ctx context.Context, chatID int64, msg chat.Message) {
	if _, err := d.deps.Messenger.Send(ctx, chatID, msg); err != nil {
		d.log.ErrorContext(ctx, "Failed to send message", "error", err, "chat_id", chatID)
	}
}

// show replaces the message that carried the pressed button, falling back to a new message.
func (d *Desk) show(ctx context.Context, ev chat.ButtonEvent, msg chat.Message) {
	if ev.MessageID != 0 && len(msg.Menu) == 0 {
		if err := d.deps.Messenger.Edit(ctx, ev.ChatID, ev.MessageID, msg); err == nil {
			return
		}
	}
	d.send(ctx, ev.ChatID, msg)
}

func (d *Desk) answer(ctx context.Context, ev chat.ButtonEvent, text string, alert bool) {
	if err := d.deps.Messenger.Answer(ctx, ev.ID, text, alert); err != nil {
		d.log.WarnContext(ctx, "Failed to answer callback", "error", err, "user_id", ev.From.ID)
	}
}
