package gcal

import (
	"testing"

	"github.com/eventsync/eventsync/internal/event"
)

func TestToGoogleEvent(t *testing.T) {
	rec := event.Record{
		Title:         "Standup",
		Description:   "daily sync",
		StartDateTime: "2025-06-18T09:00",
		EndDateTime:   "2025-06-18T09:30",
		Location:      "Room 4",
	}

	ev := toGoogleEvent(rec, "America/New_York")

	if ev.Summary != "Standup" || ev.Description != "daily sync" || ev.Location != "Room 4" {
		t.Errorf("fields not mapped: %+v", ev)
	}
	// Seconds suffix and timezone are attached only here, at the boundary.
	if ev.Start.DateTime != "2025-06-18T09:00:00" {
		t.Errorf("Start.DateTime = %q", ev.Start.DateTime)
	}
	if ev.End.DateTime != "2025-06-18T09:30:00" {
		t.Errorf("End.DateTime = %q", ev.End.DateTime)
	}
	if ev.Start.TimeZone != "America/New_York" || ev.End.TimeZone != "America/New_York" {
		t.Errorf("timezone not attached: %q, %q", ev.Start.TimeZone, ev.End.TimeZone)
	}
}
