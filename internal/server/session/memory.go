package session

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/typicaltools/internal/clock"
)

// MemoryStore is an in-process Store. Expired entries are dropped lazily on
// access and by Sweep.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	clock    clock.Clock
	lastSeen map[string]time.Time
}

func NewMemoryStore(ttl time.Duration, clk clock.Clock) *MemoryStore {
	return &MemoryStore{ttl: ttl, clock: clk, lastSeen: make(map[string]time.Time)}
}

func (s *MemoryStore) Create(_ context.Context) (string, error) {
	id := newID()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen[id] = s.clock.Now()
	return id, nil
}

func (s *MemoryStore) Touch(_ context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	seen, ok := s.lastSeen[id]
	if !ok {
		return false, nil
	}
	if now.Sub(seen) > s.ttl {
		delete(s.lastSeen, id)
		return false, nil
	}
	s.lastSeen[id] = now
	return true, nil
}

// Sweep removes every expired session and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now, n := s.clock.Now(), 0
	for id, seen := range s.lastSeen {
		if now.Sub(seen) > s.ttl {
			delete(s.lastSeen, id)
			n++
		}
	}
	return n
}

// Len reports the number of tracked sessions, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lastSeen)
}
