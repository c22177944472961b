package domain

import (
	"sync"
	"time"
)

// Session is one student's live simulation: its conversation history and
// transcript. Turns of a session run one at a time; callers hold the session
// lock (Lock/Unlock) for the whole turn.
type Session struct {
	ID        string
	CreatedAt time.Time

	History    *History
	Transcript *Transcript

	mu sync.Mutex
}

// NewSession returns a session whose history holds only the persona.
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:         id,
		CreatedAt:  now,
		History:    NewHistory(PersonaTurn()),
		Transcript: &Transcript{},
	}
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }
