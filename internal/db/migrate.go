package db

import (
	"context"
	"database/sql"
)

const keystoneMigration = `
CREATE EXTENSION IF NOT EXISTS "pgcrypto";

CREATE TABLE IF NOT EXISTS users (
    id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
    email text NOT NULL,
    display_name text NOT NULL DEFAULT '',
    avatar_url text NOT NULL DEFAULT '',
    created_at timestamptz NOT NULL DEFAULT NOW(),
    updated_at timestamptz NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS users_email_lower_unique
ON users (LOWER(email));

CREATE TABLE IF NOT EXISTS account_links (
    id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id uuid NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    provider text NOT NULL,
    external_id text NOT NULL,
    linked_at timestamptz NOT NULL DEFAULT NOW(),
    CONSTRAINT account_links_external_unique
        UNIQUE (provider, external_id),
    CONSTRAINT account_links_user_provider_unique
        UNIQUE (user_id, provider)
);

CREATE INDEX IF NOT EXISTS account_links_user_id_idx
ON account_links (user_id);

CREATE TABLE IF NOT EXISTS notifications (
    id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id uuid NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    kind text NOT NULL,
    title text NOT NULL,
    message text NOT NULL,
    created_at timestamptz NOT NULL DEFAULT NOW(),
    read_at timestamptz
);

CREATE INDEX IF NOT EXISTS notifications_user_id_idx
ON notifications (user_id, created_at DESC);
`

// RunKeystoneMigration applies the idempotent base schema. The two
// unique constraints on account_links are what make concurrent link
// creation safe; application code relies on them instead of locking.
func RunKeystoneMigration(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, keystoneMigration)
	return err
}
