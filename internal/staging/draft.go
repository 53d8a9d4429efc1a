package staging

import (
	"time"

	"github.com/eventsync/eventsync/internal/event"
)

// Placeholder values for manually added drafts, shown to the user for
// in-place editing.
const (
	placeholderTitle       = "Enter Title"
	placeholderDescription = "Enter Description"
	placeholderLocation    = "Enter Location"
)

// DraftGenerator produces placeholder event records anchored to the current
// wall-clock time. Each call reflects "now"; drafts are not reproducible.
type DraftGenerator struct {
	now func() time.Time
}

// NewDraftGenerator builds a generator on the given clock. A nil clock uses
// time.Now.
func NewDraftGenerator(now func() time.Time) *DraftGenerator {
	if now == nil {
		now = time.Now
	}
	return &DraftGenerator{now: now}
}

// Generate returns a draft starting at the current minute in loc and ending
// one hour later, with placeholder text in the remaining fields.
func (g *DraftGenerator) Generate(loc *time.Location) event.Record {
	if loc == nil {
		loc = time.Local
	}
	now := g.now().In(loc)
	return event.Record{
		Title:         placeholderTitle,
		Description:   placeholderDescription,
		StartDateTime: now.Format(event.Layout),
		EndDateTime:   now.Add(time.Hour).Format(event.Layout),
		Location:      placeholderLocation,
	}
}
