package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/db"
	"github.com/AeThex-Foundation/PlatformOS-sub011/internal/identity"
)

const uniqueViolation = "23505"

// PostgresRepository is the canonical identity.Repository. Uniqueness of
// account links is enforced by the account_links constraints; a losing
// concurrent insert surfaces as identity.ErrDuplicateLink and the caller
// falls back to the existing row.
type PostgresRepository struct {
	db *db.DB
}

func NewPostgresRepository(db *db.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindLinkByExternalID(
	ctx context.Context,
	provider, externalID string,
) (*identity.AccountLink, error) {
	link := &identity.AccountLink{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, provider, external_id, linked_at
		FROM account_links
		WHERE provider = $1
		  AND external_id = $2
	`, provider, externalID).Scan(
		&link.ID, &link.UserID, &link.Provider, &link.ExternalID, &link.LinkedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find link by external id: %w", err)
	}
	return link, nil
}

func (r *PostgresRepository) CreateLink(
	ctx context.Context,
	userID, provider, externalID string,
) (*identity.AccountLink, error) {
	link := &identity.AccountLink{}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO account_links (user_id, provider, external_id)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, provider, external_id, linked_at
	`, userID, provider, externalID).Scan(
		&link.ID, &link.UserID, &link.Provider, &link.ExternalID, &link.LinkedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, identity.ErrDuplicateLink
		}
		return nil, fmt.Errorf("create link: %w", err)
	}
	return link, nil
}

func (r *PostgresRepository) FindOrCreateAccount(
	ctx context.Context,
	profile *identity.ExternalIdentity,
) (string, error) {
	if profile == nil {
		return "", errors.New("profile is nil")
	}
	email := strings.TrimSpace(profile.Email)
	if email == "" {
		return "", errors.New("profile has no email to resolve an account by")
	}

	var userID string
	err := r.db.QueryRowContext(ctx, `
		SELECT id FROM users
		WHERE LOWER(email) = LOWER($1)
	`, email).Scan(&userID)
	if err == nil {
		return userID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("find account by email: %w", err)
	}

	err = r.db.QueryRowContext(ctx, `
		INSERT INTO users (email, display_name, avatar_url)
		VALUES ($1, $2, $3)
		RETURNING id
	`, email, profile.DisplayName, profile.AvatarURL).Scan(&userID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			// Lost a race on the email index; the other request's row wins.
			err = r.db.QueryRowContext(ctx, `
				SELECT id FROM users
				WHERE LOWER(email) = LOWER($1)
			`, email).Scan(&userID)
			if err != nil {
				return "", fmt.Errorf("refetch account after email race: %w", err)
			}
			return userID, nil
		}
		return "", fmt.Errorf("create account: %w", err)
	}
	return userID, nil
}

func (r *PostgresRepository) DeleteLink(ctx context.Context, userID, provider string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM account_links
		WHERE user_id = $1 AND provider = $2
	`, userID, provider)
	if err != nil {
		return fmt.Errorf("delete link: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete link: rows affected: %w", err)
	}
	if n == 0 {
		return identity.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) LinksByUser(ctx context.Context, userID string) ([]*identity.AccountLink, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, provider, external_id, linked_at
		FROM account_links
		WHERE user_id = $1
		ORDER BY provider
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("links by user: %w", err)
	}
	defer rows.Close()

	var links []*identity.AccountLink
	for rows.Next() {
		link := &identity.AccountLink{}
		if err := rows.Scan(&link.ID, &link.UserID, &link.Provider, &link.ExternalID, &link.LinkedAt); err != nil {
			return nil, fmt.Errorf("links by user: scan: %w", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("links by user: %w", err)
	}
	return links, nil
}

var _ identity.Repository = (*PostgresRepository)(nil)
