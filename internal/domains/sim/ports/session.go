package ports

import (
	"time"

	"github.com/megamake/roleplay/internal/domains/sim/domain"
)

// SessionStore holds live sessions for the lifetime of the process.
// Implementations must be safe for concurrent use.
type SessionStore interface {
	// Create allocates a new session with a fresh id.
	Create(now time.Time) (*domain.Session, error)

	// Get returns the session and marks it as seen at now.
	Get(id string, now time.Time) (*domain.Session, bool)

	// Delete removes the session. It reports whether the session existed.
	Delete(id string) bool

	// Expire removes every session not seen since before and returns their ids.
	Expire(before time.Time) []string

	Len() int
}

// SessionTokens binds a browser to its session id.
type SessionTokens interface {
	Issue(sessionID string, now time.Time) (string, error)

	// Parse validates token and returns the session id it carries.
	Parse(token string, now time.Time) (string, error)
}
