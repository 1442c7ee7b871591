// Package notify delivers user-facing status messages as a best-effort
// side effect. Nothing in this package ever raises to the caller: a
// user whose account was linked must not see an error page because a
// notification row failed to insert.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// KindAccountLinked marks the notification written after a successful
// identity link.
const KindAccountLinked = "account_linked"

// Notification is a persisted status message, owned by this package's
// store with a lifecycle independent from whatever produced it.
type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Kind      string     `json:"kind"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	CreatedAt time.Time  `json:"created_at"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
}

// Store persists notifications.
type Store interface {
	Insert(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*Notification, error)
}

// Service writes notifications through the store.
type Service struct {
	store   Store
	logger  *zap.Logger
	timeout time.Duration
}

func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{
		store:   store,
		logger:  logger,
		timeout: 5 * time.Second,
	}
}

// Notify records a status message for the user. All failures, including
// panics from the store, are captured and logged here; the caller's
// control flow is never affected. The parent context is only consulted
// for tracing values, not cancellation, so an already-finished request
// cannot cancel the write.
func (s *Service) Notify(ctx context.Context, userID, kind, title, message string) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("notification dispatch panicked",
				zap.String("user_id", userID),
				zap.String("kind", kind),
				zap.Any("panic", rec),
			)
		}
	}()

	dispatchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	n := &Notification{
		UserID:  userID,
		Kind:    kind,
		Title:   title,
		Message: message,
	}
	if err := s.store.Insert(dispatchCtx, n); err != nil {
		s.logger.Error("failed to store notification",
			zap.String("user_id", userID),
			zap.String("kind", kind),
			zap.Error(err),
		)
	}
}
