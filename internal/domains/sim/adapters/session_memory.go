package adapters

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/megamake/roleplay/internal/domains/sim/domain"
)

// MemorySessionStore is a concurrency-safe in-memory session registry.
// Sessions disappear with the process; nothing is written to disk.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]*memorySession
}

type memorySession struct {
	sess     *domain.Session
	lastSeen time.Time
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: map[string]*memorySession{},
	}
}

func (s *MemorySessionStore) Create(now time.Time) (*domain.Session, error) {
	if s == nil {
		return nil, fmt.Errorf("sessionstore: nil receiver")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	if _, exists := s.sessions[id]; exists {
		return nil, fmt.Errorf("sessionstore: id collision: %s", id)
	}

	sess := domain.NewSession(id, now)
	s.sessions[id] = &memorySession{sess: sess, lastSeen: now}
	return sess, nil
}

func (s *MemorySessionStore) Get(id string, now time.Time) (*domain.Session, bool) {
	if s == nil || id == "" {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ms, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if now.After(ms.lastSeen) {
		ms.lastSeen = now
	}
	return ms.sess, true
}

func (s *MemorySessionStore) Delete(id string) bool {
	if s == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

func (s *MemorySessionStore) Expire(before time.Time) []string {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []string
	for id, ms := range s.sessions {
		if ms.lastSeen.Before(before) {
			delete(s.sessions, id)
			out = append(out, id)
		}
	}
	return out
}

func (s *MemorySessionStore) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
