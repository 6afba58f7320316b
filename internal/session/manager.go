package session

import (
	"fmt"
	"sync"
	"time"

	"reclamai/internal/logger"
	"reclamai/internal/types"
)

// Manager owns every session and enforces the at-most-one-active invariant
// per obligation. Distinct obligations never contend with each other: the
// registry lock only guards map access, while transitions run under a
// per-obligation mutex held just for the critical section.
type Manager struct {
	mu       sync.Mutex
	locks    map[string]*sync.Mutex
	active   map[string]*Session
	sessions map[string]*Session

	maxRounds int
	ttl       time.Duration
}

func NewManager(maxRounds int, ttl time.Duration) *Manager {
	if maxRounds <= 0 {
		maxRounds = 5
	}
	if ttl <= 0 {
		ttl = 10 * 24 * time.Hour
	}
	return &Manager{
		locks:     make(map[string]*sync.Mutex),
		active:    make(map[string]*Session),
		sessions:  make(map[string]*Session),
		maxRounds: maxRounds,
		ttl:       ttl,
	}
}

func (m *Manager) obligationLock(obligationID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lk, ok := m.locks[obligationID]
	if !ok {
		lk = &sync.Mutex{}
		m.locks[obligationID] = lk
	}
	return lk
}

// Start opens a new session for the obligation. A second start while one is
// still active fails with ErrConcurrencyConflict.
func (m *Manager) Start(obligationID string) (*Session, error) {
	if obligationID == "" {
		return nil, types.NewValidationError("obligation_id", "required")
	}
	lk := m.obligationLock(obligationID)
	lk.Lock()
	defer lk.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.active[obligationID]; ok && !cur.State.Terminal() {
		return nil, fmt.Errorf("%w: obligation %s already has session %s in state %s",
			types.ErrConcurrencyConflict, obligationID, cur.ID, cur.State)
	}
	s := newSession(obligationID, m.maxRounds, m.ttl)
	m.active[obligationID] = s
	m.sessions[s.ID] = s
	logger.Infof("session: started id=%s obligation=%s deadline=%s", s.ID, obligationID, s.Deadline.Format(time.RFC3339))
	return s, nil
}

// With runs fn under the obligation's exclusive lock. Terminal sessions are
// detached from the active slot on the way out so a new one can start.
func (m *Manager) With(obligationID string, fn func(*Session) error) error {
	lk := m.obligationLock(obligationID)
	lk.Lock()
	defer lk.Unlock()

	m.mu.Lock()
	s, ok := m.active[obligationID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: no active session for obligation %s", ErrInvalidTransition, obligationID)
	}

	err := fn(s)

	if s.State.Terminal() {
		m.mu.Lock()
		if m.active[obligationID] == s {
			delete(m.active, obligationID)
		}
		m.mu.Unlock()
	}
	return err
}

// Session looks a session up by its own id, active or resolved.
func (m *Manager) Session(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Active returns the live session for an obligation, if any.
func (m *Manager) Active(obligationID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.active[obligationID]
	return s, ok
}

// SweepExpired expires every active session whose deadline has passed and
// returns the ones it resolved.
func (m *Manager) SweepExpired(now time.Time) []*Session {
	m.mu.Lock()
	ids := make([]string, 0, len(m.active))
	for id := range m.active {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	var expired []*Session
	for _, obligationID := range ids {
		_ = m.With(obligationID, func(s *Session) error {
			if s.State.Terminal() || now.Before(s.Deadline) {
				return nil
			}
			if err := s.Expire("session deadline elapsed"); err != nil {
				return err
			}
			logger.Infof("session: expired id=%s obligation=%s", s.ID, s.ObligationID)
			expired = append(expired, s)
			return nil
		})
	}
	return expired
}
