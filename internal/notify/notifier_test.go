package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubStore struct {
	mu        sync.Mutex
	inserted  []*Notification
	insertErr error
	panicMsg  string
}

func (s *stubStore) Insert(ctx context.Context, n *Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserted = append(s.inserted, n)
	return nil
}

func (s *stubStore) ListByUser(context.Context, string, int) ([]*Notification, error) {
	return nil, nil
}

func TestNotify(t *testing.T) {
	store := &stubStore{}
	svc := NewService(store, zap.NewNop())

	svc.Notify(context.Background(), "user-1", KindAccountLinked, "Account linked", "Your discord account is now connected.")

	require.Len(t, store.inserted, 1)
	n := store.inserted[0]
	assert.Equal(t, "user-1", n.UserID)
	assert.Equal(t, KindAccountLinked, n.Kind)
	assert.Equal(t, "Account linked", n.Title)
}

func TestNotify_SwallowsStoreError(t *testing.T) {
	store := &stubStore{insertErr: errors.New("deadlock detected")}
	svc := NewService(store, zap.NewNop())

	assert.NotPanics(t, func() {
		svc.Notify(context.Background(), "user-1", KindAccountLinked, "t", "m")
	})
}

func TestNotify_SwallowsStorePanic(t *testing.T) {
	store := &stubStore{panicMsg: "nil pointer somewhere deep"}
	svc := NewService(store, zap.NewNop())

	assert.NotPanics(t, func() {
		svc.Notify(context.Background(), "user-1", KindAccountLinked, "t", "m")
	})
}

func TestNotify_SurvivesCancelledRequestContext(t *testing.T) {
	store := &stubStore{}
	svc := NewService(store, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc.Notify(ctx, "user-1", KindAccountLinked, "t", "m")
	assert.Len(t, store.inserted, 1)
}
