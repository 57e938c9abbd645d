// Package session keeps per-recipient conversation state in process memory.
// Nothing survives a restart; the next reminder cycle recreates what is lost.
package session

import (
	"sync"
	"time"

	"github.com/skors/reminder-engine/internal/domains"
)

// Store is the session-store contract shared by the delivery mediator (which
// creates sessions) and the reply handler (which reads and mutates them).
type Store interface {
	Get(recipient string) (*domains.Session, bool)
	Put(s *domains.Session)
	Delete(recipient string)
	Sweep()
	Stats() Stats
}

// Stats describes the live session population.
type Stats struct {
	ActiveSessions int `json:"active_sessions"`
	PendingItems   int `json:"pending_items"`
}

// MemoryStore is a mutex-guarded map with a fixed session timeout. Expiry is
// checked lazily on Get and the whole map is swept on every Put so stale
// sessions cannot accumulate between reminder cycles.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*domains.Session
	timeout  time.Duration
	now      func() time.Time
}

func NewMemoryStore(timeout time.Duration) *MemoryStore {
	if timeout <= 0 {
		timeout = 48 * time.Hour
	}
	return &MemoryStore{
		sessions: make(map[string]*domains.Session),
		timeout:  timeout,
		now:      time.Now,
	}
}

func (s *MemoryStore) Get(recipient string) (*domains.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[recipient]
	if !ok {
		return nil, false
	}
	if s.expired(sess) {
		delete(s.sessions, recipient)
		return nil, false
	}
	return sess, true
}

func (s *MemoryStore) Put(sess *domains.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()
	s.sessions[sess.Recipient] = sess
}

func (s *MemoryStore) Delete(recipient string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, recipient)
}

func (s *MemoryStore) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()
}

func (s *MemoryStore) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{}
	for _, sess := range s.sessions {
		if s.expired(sess) {
			continue
		}
		stats.ActiveSessions++
		stats.PendingItems += len(sess.Items)
	}
	return stats
}

func (s *MemoryStore) sweepLocked() {
	for recipient, sess := range s.sessions {
		if s.expired(sess) {
			delete(s.sessions, recipient)
		}
	}
}

func (s *MemoryStore) expired(sess *domains.Session) bool {
	return s.now().Sub(sess.CreatedAt) > s.timeout
}
