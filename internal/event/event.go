// Package event defines the calendar event record exchanged between the
// extraction relay, the staging session, and the calendar writer.
package event

import "time"

// Layout is the datetime-local format used for all event datetimes. Values
// carry no offset; the viewer's IANA timezone is attached only at commit time.
const Layout = "2006-01-02T15:04"

// Record is a candidate calendar event. Datetimes are naive local strings in
// Layout format.
type Record struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	StartDateTime string `json:"startDateTime"`
	EndDateTime   string `json:"endDateTime"`
	Location      string `json:"location"`
}

// Patch is a partial Record. Nil fields are left untouched when applied.
type Patch struct {
	Title         *string `json:"title,omitempty"`
	Description   *string `json:"description,omitempty"`
	StartDateTime *string `json:"startDateTime,omitempty"`
	EndDateTime   *string `json:"endDateTime,omitempty"`
	Location      *string `json:"location,omitempty"`
}

// Apply merges the patch into the record, field by field.
func (r *Record) Apply(p Patch) {
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.StartDateTime != nil {
		r.StartDateTime = *p.StartDateTime
	}
	if p.EndDateTime != nil {
		r.EndDateTime = *p.EndDateTime
	}
	if p.Location != nil {
		r.Location = *p.Location
	}
}

// AsPatch returns a patch that sets every field to the record's current
// values. Used to commit a fully edited draft buffer in one update.
func (r Record) AsPatch() Patch {
	return Patch{
		Title:         &r.Title,
		Description:   &r.Description,
		StartDateTime: &r.StartDateTime,
		EndDateTime:   &r.EndDateTime,
		Location:      &r.Location,
	}
}

// NormalizeDateTime returns s unchanged when it is a well-formed
// datetime-local value, and otherwise falls back to noon of the current day.
// The extraction model occasionally emits prose or partial dates; the
// fallback keeps downstream consumers free of date parsing errors.
func NormalizeDateTime(s string, now time.Time) string {
	if len(s) == len(Layout) {
		if _, err := time.Parse(Layout, s); err == nil {
			return s
		}
	}
	return now.Format("2006-01-02") + "T12:00"
}

// Normalize applies NormalizeDateTime to both datetime fields.
func (r *Record) Normalize(now time.Time) {
	r.StartDateTime = NormalizeDateTime(r.StartDateTime, now)
	r.EndDateTime = NormalizeDateTime(r.EndDateTime, now)
}
