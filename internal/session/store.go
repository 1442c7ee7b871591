package session

import (
	"context"
	"time"
)

// Session represents an authenticated user session. It stores identity
// pointers only, no auth state.
type Session struct {
	SessionID string    // unique session identifier
	UserID    string    // references users.id
	ExpiresAt time.Time // absolute expiry time
}

// Store defines how sessions are stored and retrieved. Implementations
// must be stateless so any instance can serve any session.
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
}
