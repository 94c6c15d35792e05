package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/edgard/intakebot/internal/config"
	"github.com/edgard/intakebot/internal/database"
)

// slotGrid lists slot start times from the opening hour up to the last start before closing.
func slotGrid(b config.BusinessConfig) []string {
	step := b.SlotMinutes
	if step <= 0 {
		step = config.DefaultSlotMinutes
	}
	var slots []string
	for m := b.WorkStartHour * 60; m < b.WorkEndHour*60; m += step {
		slots = append(slots, fmt.Sprintf("%02d:%02d", m/60, m%60))
	}
	return slots
}

// freeSlots returns the grid slots of date that are not booked and not in the past.
func (d *Desk) freeSlots(ctx context.Context, date time.Time) ([]string, error) {
	booked, err := d.deps.Store.ListAppointmentsByDate(ctx, date.Format(database.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to load bookings: %w", err)
	}
	taken := make(map[string]bool, len(booked))
	for _, a := range booked {
		if a.Time.Valid {
			taken[a.Time.String] = true
		}
	}

	now := d.now()
	var free []string
	for _, slot := range slotGrid(d.deps.Config.Business) {
		if taken[slot] {
			continue
		}
		start, err := time.ParseInLocation(database.DateLayout+" "+database.TimeLayout,
			date.Format(database.DateLayout)+" "+slot, d.loc)
		if err != nil || !start.After(now) {
			continue
		}
		free = append(free, slot)
	}
	return free, nil
}
