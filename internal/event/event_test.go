package event

import (
	"testing"
	"time"
)

func strptr(s string) *string { return &s }

func TestApplyPartialPatch(t *testing.T) {
	rec := Record{
		Title:         "Standup",
		Description:   "daily",
		StartDateTime: "2025-06-18T09:00",
		EndDateTime:   "2025-06-18T09:30",
		Location:      "Room 4",
	}

	rec.Apply(Patch{Title: strptr("Daily Standup")})

	if rec.Title != "Daily Standup" {
		t.Errorf("Title = %q, want %q", rec.Title, "Daily Standup")
	}
	// Every other field must be preserved
	if rec.Description != "daily" || rec.StartDateTime != "2025-06-18T09:00" ||
		rec.EndDateTime != "2025-06-18T09:30" || rec.Location != "Room 4" {
		t.Errorf("unpatched fields changed: %+v", rec)
	}
}

func TestApplyEmptyStringOverwrites(t *testing.T) {
	rec := Record{Location: "Room 4"}
	rec.Apply(Patch{Location: strptr("")})
	if rec.Location != "" {
		t.Errorf("Location = %q, want empty", rec.Location)
	}
}

func TestAsPatchRoundTrip(t *testing.T) {
	src := Record{
		Title:         "Lunch",
		Description:   "with team",
		StartDateTime: "2025-06-18T12:00",
		EndDateTime:   "2025-06-18T13:00",
		Location:      "Cafe",
	}
	var dst Record
	dst.Apply(src.AsPatch())
	if dst != src {
		t.Errorf("round trip mismatch: got %+v, want %+v", dst, src)
	}
}

func TestNormalizeDateTime(t *testing.T) {
	now := time.Date(2025, 6, 18, 9, 41, 12, 0, time.UTC)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"valid datetime-local", "2025-06-20T18:30", "2025-06-20T18:30"},
		{"empty", "", "2025-06-18T12:00"},
		{"date only", "2025-06-20", "2025-06-18T12:00"},
		{"with seconds", "2025-06-20T18:30:00", "2025-06-18T12:00"},
		{"with offset", "2025-06-20T18:30+02:00", "2025-06-18T12:00"},
		{"prose", "tomorrow evening", "2025-06-18T12:00"},
		{"impossible date", "2025-13-40T99:99", "2025-06-18T12:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeDateTime(tt.input, now); got != tt.want {
				t.Errorf("NormalizeDateTime(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeRecord(t *testing.T) {
	now := time.Date(2025, 6, 18, 9, 0, 0, 0, time.UTC)
	rec := Record{StartDateTime: "2025-06-19T10:00", EndDateTime: "whenever"}
	rec.Normalize(now)

	if rec.StartDateTime != "2025-06-19T10:00" {
		t.Errorf("valid start changed: %q", rec.StartDateTime)
	}
	if rec.EndDateTime != "2025-06-18T12:00" {
		t.Errorf("invalid end not defaulted: %q", rec.EndDateTime)
	}
}
