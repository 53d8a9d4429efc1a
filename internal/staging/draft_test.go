package staging

import (
	"testing"
	"time"
)

func TestGenerateDraft(t *testing.T) {
	clock := func() time.Time {
		return time.Date(2025, 6, 18, 14, 37, 52, 123, time.UTC)
	}
	g := NewDraftGenerator(clock)

	rec := g.Generate(time.UTC)

	if rec.Title != "Enter Title" || rec.Description != "Enter Description" || rec.Location != "Enter Location" {
		t.Errorf("placeholders wrong: %+v", rec)
	}
	// Truncated to the minute, seconds discarded
	if rec.StartDateTime != "2025-06-18T14:37" {
		t.Errorf("StartDateTime = %q, want 2025-06-18T14:37", rec.StartDateTime)
	}
	if rec.EndDateTime != "2025-06-18T15:37" {
		t.Errorf("EndDateTime = %q, want one hour later", rec.EndDateTime)
	}
}

func TestGenerateDraftRendersInLocation(t *testing.T) {
	clock := func() time.Time {
		return time.Date(2025, 6, 18, 23, 30, 0, 0, time.UTC)
	}
	g := NewDraftGenerator(clock)

	loc := time.FixedZone("UTC+2", 2*60*60)
	rec := g.Generate(loc)

	// 23:30 UTC is 01:30 the next day in UTC+2; the rendered string is naive
	// local time with no offset.
	if rec.StartDateTime != "2025-06-19T01:30" {
		t.Errorf("StartDateTime = %q, want 2025-06-19T01:30", rec.StartDateTime)
	}
	if rec.EndDateTime != "2025-06-19T02:30" {
		t.Errorf("EndDateTime = %q, want 2025-06-19T02:30", rec.EndDateTime)
	}
}
