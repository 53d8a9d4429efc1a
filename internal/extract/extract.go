// Package extract turns captured screenshots into candidate event records by
// way of a vision-capable language model.
package extract

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/eventsync/eventsync/internal/event"
)

// Extractor derives zero or more event records from an encoded still image.
// A nil error with an empty slice means the model found no events; callers
// treat both the same way apart from notice text.
type Extractor interface {
	Extract(ctx context.Context, image []byte) ([]event.Record, error)
}

var codeFence = regexp.MustCompile("```(?:json)?\n?|\n?```")

// parseModelResponse decodes the model's JSON-array reply into event
// records. Markdown code fences are stripped first since models wrap output
// in them despite instructions. A single bare object is tolerated as a
// one-element array. Unparseable replies yield an empty result rather than
// an error; the model returning prose is equivalent to finding nothing.
func parseModelResponse(text string, now time.Time) []event.Record {
	cleaned := strings.TrimSpace(codeFence.ReplaceAllString(text, ""))
	if cleaned == "" {
		return nil
	}

	var records []event.Record
	if err := json.Unmarshal([]byte(cleaned), &records); err != nil {
		var single event.Record
		if err := json.Unmarshal([]byte(cleaned), &single); err != nil {
			return nil
		}
		records = []event.Record{single}
	}

	for i := range records {
		records[i].Normalize(now)
	}
	return records
}

// DecodeImage decodes a captured screenshot sent as a base64 payload,
// optionally carrying a data URL prefix such as "data:image/jpeg;base64,".
func DecodeImage(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(stripDataURL(s))
}

// stripDataURL removes a data URL prefix so the remainder can be
// base64-decoded. Payloads without a prefix pass through unchanged.
func stripDataURL(s string) string {
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if i := strings.IndexByte(s, ','); i >= 0 {
		return s[i+1:]
	}
	return s
}
