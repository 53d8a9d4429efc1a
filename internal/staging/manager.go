package staging

import (
	"sync"
	"time"
)

// Manager hands out one Controller per user, keyed by the credential
// subject. Sessions are in-memory only and evicted after a period of
// inactivity; a returning user simply starts a fresh session.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*managedSession

	extractor Extractor
	writer    CalendarWriter
	drafts    *DraftGenerator
	maxIdle   time.Duration
	now       func() time.Time
}

type managedSession struct {
	controller *Controller
	lastAccess time.Time
}

// DefaultMaxIdle is how long an untouched session survives before eviction.
const DefaultMaxIdle = 30 * time.Minute

func NewManager(extractor Extractor, writer CalendarWriter, maxIdle time.Duration) *Manager {
	if maxIdle <= 0 {
		maxIdle = DefaultMaxIdle
	}
	return &Manager{
		sessions:  make(map[string]*managedSession),
		extractor: extractor,
		writer:    writer,
		drafts:    NewDraftGenerator(nil),
		maxIdle:   maxIdle,
		now:       time.Now,
	}
}

// Session returns the controller for key, creating one on first use.
func (m *Manager) Session(key string) *Controller {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.evictStaleLocked()

	s, ok := m.sessions[key]
	if !ok {
		s = &managedSession{
			controller: NewController(m.extractor, m.writer, m.drafts, nil),
		}
		m.sessions[key] = s
	}
	s.lastAccess = m.now()
	return s.controller
}

func (m *Manager) evictStaleLocked() {
	cutoff := m.now().Add(-m.maxIdle)
	for key, s := range m.sessions {
		if s.lastAccess.Before(cutoff) {
			delete(m.sessions, key)
		}
	}
}
