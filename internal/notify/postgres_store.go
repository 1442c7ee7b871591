package notify

import (
	"context"
	"fmt"

	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/db"
)

// PostgresStore persists notifications in the notifications table.
type PostgresStore struct {
	db *db.DB
}

func NewPostgresStore(db *db.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, n *Notification) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO notifications (user_id, kind, title, message)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, n.UserID, n.Kind, n.Title, n.Message).Scan(&n.ID, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string, limit int) ([]*Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, kind, title, message, created_at, read_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []*Notification
	for rows.Next() {
		n := &Notification{}
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Message, &n.CreatedAt, &n.ReadAt); err != nil {
			return nil, fmt.Errorf("list notifications: scan: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}

var _ Store = (*PostgresStore)(nil)
