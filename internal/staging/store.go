// Package staging holds the in-memory staging session: the event store, the
// draft generator, and the controller that drives a session from extraction
// through review to commit. Nothing in this package persists across process
// restarts.
package staging

import (
	"errors"

	"github.com/eventsync/eventsync/internal/event"
)

// ErrNotFound indicates an unknown staged event id.
var ErrNotFound = errors.New("staged event not found")

// StagedEvent is an event record held in the session, not yet committed.
type StagedEvent struct {
	ID     int64        `json:"id"`
	Record event.Record `json:"record"`
}

// EventStore is an ordered, keyed collection of staged events. IDs are
// assigned on insertion, strictly increasing, and never reused within a
// session, even after deletion. Insertion order is the display order.
//
// The store is not safe for concurrent use; the owning Controller serializes
// access.
type EventStore struct {
	nextID int64
	order  []int64
	events map[int64]event.Record
}

func NewEventStore() *EventStore {
	return &EventStore{events: make(map[int64]event.Record)}
}

// AddEvent stores a copy of rec under the next id and returns the staged
// event.
func (s *EventStore) AddEvent(rec event.Record) StagedEvent {
	s.nextID++
	s.order = append(s.order, s.nextID)
	s.events[s.nextID] = rec
	return StagedEvent{ID: s.nextID, Record: rec}
}

// UpdateEvent merges the patch into the record for id. Unknown ids are a
// no-op and report false.
func (s *EventStore) UpdateEvent(id int64, p event.Patch) bool {
	rec, ok := s.events[id]
	if !ok {
		return false
	}
	rec.Apply(p)
	s.events[id] = rec
	return true
}

// GetEvent returns the current record for id.
func (s *EventStore) GetEvent(id int64) (event.Record, bool) {
	rec, ok := s.events[id]
	return rec, ok
}

// DeleteEvent removes the entry if present and reports whether removal
// occurred. Remaining ids keep their identities and order.
func (s *EventStore) DeleteEvent(id int64) bool {
	if _, ok := s.events[id]; !ok {
		return false
	}
	delete(s.events, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Events returns the staged events in insertion order. The returned slice is
// a snapshot; callers cannot mutate the store through it.
func (s *EventStore) Events() []StagedEvent {
	out := make([]StagedEvent, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, StagedEvent{ID: id, Record: s.events[id]})
	}
	return out
}

// Len reports the number of staged events.
func (s *EventStore) Len() int { return len(s.order) }

// Reset clears all staged events and restarts id assignment from 1.
func (s *EventStore) Reset() {
	s.nextID = 0
	s.order = nil
	s.events = make(map[int64]event.Record)
}
