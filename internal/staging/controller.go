package staging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/eventsync/eventsync/internal/event"
)

// Extractor derives candidate event records from a captured screenshot.
type Extractor interface {
	Extract(ctx context.Context, image []byte) ([]event.Record, error)
}

// CalendarWriter creates a single event in the user's calendar. The record's
// datetimes are naive local strings; timeZone names the viewer's IANA zone
// and bearer is the user's credential.
type CalendarWriter interface {
	Create(ctx context.Context, rec event.Record, timeZone, bearer string) (string, error)
}

// Phase is the controller's position in the staging lifecycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseStaged
	PhaseCommitting
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseStaged:
		return "staged"
	case PhaseCommitting:
		return "committing"
	}
	return "unknown"
}

// ErrBusy is returned when an operation is triggered from a phase that does
// not permit it, e.g. a commit without a staged session.
var ErrBusy = errors.New("staging session busy")

// ErrNotEditing is returned when a draft mutation targets an event that is
// not in edit mode.
var ErrNotEditing = errors.New("event is not being edited")

// NoticeKind classifies a transient user-facing notice.
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeWarning NoticeKind = "warning"
	NoticeError   NoticeKind = "error"
)

// Notice is a dismissable, auto-expiring message surfaced to the user after
// an operation. It never blocks further interaction.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}

// CommitFailure records one event that could not be written to the calendar.
type CommitFailure struct {
	Record event.Record
	Err    error
}

// CommitSummary is the aggregate outcome of a commit attempt.
type CommitSummary struct {
	SuccessCount int
	Failures     []CommitFailure
}

// View is a render-ready snapshot of the session. The client displays it
// verbatim; all authoritative state lives in the controller.
type View struct {
	Phase      string        `json:"phase"`
	Events     []StagedEvent `json:"events"`
	ExpandedID int64         `json:"expandedId,omitempty"`
	EditingID  int64         `json:"editingId,omitempty"`
	Draft      *event.Record `json:"draft,omitempty"`
	Notice     *Notice       `json:"notice,omitempty"`
}

// Controller owns one staging session: the event store, the UI expansion and
// edit state, and the commit protocol. All operations are serialized by an
// internal mutex, mirroring the single-threaded cooperative model of the
// popup it drives.
//
// At most one event is expanded and at most one is in edit mode at a time;
// an editing event is always the expanded one. Edits accumulate in a draft
// buffer and reach the store only on save.
type Controller struct {
	mu sync.Mutex

	extractor Extractor
	writer    CalendarWriter
	drafts    *DraftGenerator
	loc       *time.Location

	phase      Phase
	store      *EventStore
	expandedID int64 // 0 = none
	editingID  int64 // 0 = none
	draft      *event.Record
	notice     *Notice
}

// NewController builds an idle session. loc is the viewer's timezone used
// for draft generation and attached to records at commit; nil means UTC
// until BeginStaging supplies one.
func NewController(extractor Extractor, writer CalendarWriter, drafts *DraftGenerator, loc *time.Location) *Controller {
	if loc == nil {
		loc = time.UTC
	}
	if drafts == nil {
		drafts = NewDraftGenerator(nil)
	}
	return &Controller{
		extractor: extractor,
		writer:    writer,
		drafts:    drafts,
		loc:       loc,
		store:     NewEventStore(),
	}
}

// View returns a snapshot of the session and consumes any pending notice.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() View {
	v := View{
		Phase:      c.phase.String(),
		Events:     c.store.Events(),
		ExpandedID: c.expandedID,
		EditingID:  c.editingID,
		Notice:     c.notice,
	}
	if c.draft != nil {
		d := *c.draft
		v.Draft = &d
	}
	c.notice = nil
	return v
}

// BeginStaging resets the session and populates it from the screenshot. The
// extraction call is made while holding the session lock, so concurrent
// triggers on the same session serialize rather than interleave. Extraction
// failure and a zero-event result both leave an empty staged session,
// distinguished only by notice text.
func (c *Controller) BeginStaging(ctx context.Context, image []byte, loc *time.Location) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase == PhaseLoading || c.phase == PhaseCommitting {
		return c.snapshotLocked(), ErrBusy
	}

	if loc != nil {
		c.loc = loc
	}
	c.phase = PhaseLoading
	c.resetLocked()

	records, err := c.extractor.Extract(ctx, image)
	c.phase = PhaseStaged

	switch {
	case err != nil:
		c.notice = &Notice{
			Kind:    NoticeError,
			Message: "There was an error processing your request. Please try again.",
		}
	case len(records) == 0:
		c.notice = &Notice{
			Kind:    NoticeWarning,
			Message: "We couldn't find any events in the current screen. Please try a different screen or image.",
		}
	default:
		for _, rec := range records {
			c.store.AddEvent(rec)
		}
		// First drafted event starts expanded for immediate review.
		c.expandedID = c.store.Events()[0].ID
	}
	return c.snapshotLocked(), nil
}

// AddDraft appends a blank placeholder draft. The first event of a session
// starts expanded.
func (c *Controller) AddDraft() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.phase = PhaseStaged
	staged := c.store.AddEvent(c.drafts.Generate(c.loc))
	if staged.ID == 1 {
		c.expandedID = staged.ID
	}
	return c.snapshotLocked()
}

// Expand toggles expansion of id. Every other event is collapsed first, and
// any in-progress edit on another event is cancelled with discard semantics:
// its draft buffer is dropped and its stored record is untouched.
func (c *Controller) Expand(id int64) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.store.GetEvent(id); !ok {
		return c.snapshotLocked(), ErrNotFound
	}

	if c.editingID != 0 && c.editingID != id {
		c.dropDraftLocked()
	}
	if c.expandedID == id {
		// Collapsing the target also abandons its edit, if any.
		if c.editingID == id {
			c.dropDraftLocked()
		}
		c.expandedID = 0
	} else {
		c.expandedID = id
	}
	return c.snapshotLocked(), nil
}

// BeginEdit puts id into edit mode, collapsing and cancelling edits on all
// other events first. The draft buffer is seeded from the stored record.
func (c *Controller) BeginEdit(id int64) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.store.GetEvent(id)
	if !ok {
		return c.snapshotLocked(), ErrNotFound
	}

	if c.editingID != 0 && c.editingID != id {
		c.dropDraftLocked()
	}
	c.expandedID = id
	c.editingID = id
	buf := rec
	c.draft = &buf
	return c.snapshotLocked(), nil
}

// EditDraft merges the patch into the draft buffer for id. The store is not
// touched until SaveEdit.
func (c *Controller) EditDraft(id int64, p event.Patch) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.editingID != id || c.draft == nil {
		return c.snapshotLocked(), ErrNotEditing
	}
	c.draft.Apply(p)
	return c.snapshotLocked(), nil
}

// SaveEdit commits the draft buffer to the store and exits edit mode. An
// optional final patch is applied to the buffer first, covering clients that
// post all field values with the save itself.
func (c *Controller) SaveEdit(id int64, p event.Patch) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.editingID != id || c.draft == nil {
		return c.snapshotLocked(), ErrNotEditing
	}
	c.draft.Apply(p)
	if !c.store.UpdateEvent(id, c.draft.AsPatch()) {
		// Unknown id should not occur under correct sequencing; leave the
		// session unchanged.
		return c.snapshotLocked(), ErrNotFound
	}
	c.dropDraftLocked()
	c.expandedID = 0
	return c.snapshotLocked(), nil
}

// CancelEdit discards the draft buffer and exits edit mode without mutating
// the store.
func (c *Controller) CancelEdit(id int64) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.editingID != id {
		return c.snapshotLocked(), ErrNotEditing
	}
	c.dropDraftLocked()
	return c.snapshotLocked(), nil
}

// Delete removes id from the session. Other ids keep their identities.
func (c *Controller) Delete(id int64) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.store.DeleteEvent(id) {
		return c.snapshotLocked(), ErrNotFound
	}
	if c.editingID == id {
		c.dropDraftLocked()
	}
	if c.expandedID == id {
		c.expandedID = 0
	}
	return c.snapshotLocked(), nil
}

// Commit writes all staged events to the calendar, one at a time in
// insertion order. Each write is independent: a failure on one event does
// not block the rest. The session is reset afterwards regardless of outcome;
// partially written batches are not tracked for resumption.
func (c *Controller) Commit(ctx context.Context, bearer string) (View, CommitSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseStaged {
		return c.snapshotLocked(), CommitSummary{}, ErrBusy
	}
	c.phase = PhaseCommitting

	tz := c.loc.String()
	var summary CommitSummary
	for _, staged := range c.store.Events() {
		if _, err := c.writer.Create(ctx, staged.Record, tz, bearer); err != nil {
			summary.Failures = append(summary.Failures, CommitFailure{Record: staged.Record, Err: err})
		} else {
			summary.SuccessCount++
		}
	}

	c.resetLocked()
	c.phase = PhaseIdle
	c.notice = commitNotice(summary)
	return c.snapshotLocked(), summary, nil
}

func commitNotice(s CommitSummary) *Notice {
	switch {
	case s.SuccessCount == 0:
		return &Notice{
			Kind:    NoticeError,
			Message: "There was an error adding events to your calendar. Please try again.",
		}
	case len(s.Failures) > 0:
		return &Notice{
			Kind:    NoticeWarning,
			Message: fmt.Sprintf("%d events added, %d failed", s.SuccessCount, len(s.Failures)),
		}
	default:
		return &Notice{
			Kind:    NoticeSuccess,
			Message: fmt.Sprintf("%d events added to calendar", s.SuccessCount),
		}
	}
}

func (c *Controller) dropDraftLocked() {
	c.editingID = 0
	c.draft = nil
}

func (c *Controller) resetLocked() {
	c.store.Reset()
	c.expandedID = 0
	c.dropDraftLocked()
}
