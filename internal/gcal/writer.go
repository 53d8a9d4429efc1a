// Package gcal writes staged events to the user's Google Calendar using the
// bearer credential supplied with each request.
package gcal

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/eventsync/eventsync/internal/event"
)

// calendarID targets the user's default calendar.
const calendarID = "primary"

// Writer creates events in Google Calendar. It satisfies
// staging.CalendarWriter.
type Writer struct{}

func NewWriter() *Writer { return &Writer{} }

// Create inserts one event into the user's primary calendar. The record's
// naive datetime-local strings gain a seconds component and the viewer's
// IANA timezone here, at the provider boundary. Returns the
// provider-assigned event id.
func (w *Writer) Create(ctx context.Context, rec event.Record, timeZone, bearer string) (string, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: bearer})
	srv, err := calendar.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return "", fmt.Errorf("create calendar service: %w", err)
	}

	created, err := srv.Events.Insert(calendarID, toGoogleEvent(rec, timeZone)).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("insert event %q: %w", rec.Title, err)
	}
	return created.Id, nil
}

func toGoogleEvent(rec event.Record, timeZone string) *calendar.Event {
	return &calendar.Event{
		Summary:     rec.Title,
		Description: rec.Description,
		Location:    rec.Location,
		Start: &calendar.EventDateTime{
			DateTime: rec.StartDateTime + ":00",
			TimeZone: timeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: rec.EndDateTime + ":00",
			TimeZone: timeZone,
		},
	}
}
