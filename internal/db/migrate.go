package db

import (
	"context"
	"fmt"
)

// schema is valid for both Postgres and SQLite. Timestamps are ISO-8601
// text so records round-trip unchanged through either engine.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id text PRIMARY KEY,
    role text NOT NULL,
    secret_hash text NOT NULL,
    created_at text NOT NULL,
    updated_at text NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
    id text PRIMARY KEY,
    created_at text NOT NULL
);

CREATE TABLE IF NOT EXISTS strategies (
    id text PRIMARY KEY,
    name text NOT NULL,
    description text NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS events (
    id text PRIMARY KEY,
    session_id text NOT NULL,
    strategy text NOT NULL DEFAULT '',
    score double precision NOT NULL DEFAULT 0,
    occurred_at text NOT NULL DEFAULT '',
    details text NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS events_session_id_idx
ON events (session_id);

CREATE TABLE IF NOT EXISTS evaluations (
    id text PRIMARY KEY,
    session_id text NOT NULL,
    event_id text NOT NULL,
    user_id text NOT NULL,
    reaction text,
    recorded_at text NOT NULL
);

CREATE INDEX IF NOT EXISTS evaluations_session_id_idx
ON evaluations (session_id);

CREATE TABLE IF NOT EXISTS corrections (
    id text PRIMARY KEY,
    session_id text NOT NULL,
    event_id text NOT NULL,
    user_id text NOT NULL,
    correct_strategy text NOT NULL,
    recorded_at text NOT NULL
);

CREATE TABLE IF NOT EXISTS permissions (
    id text PRIMARY KEY,
    user_id text NOT NULL,
    session_id text NOT NULL,
    can_vote boolean NOT NULL
);

CREATE INDEX IF NOT EXISTS permissions_user_id_idx
ON permissions (user_id);
`

// Migrate creates the schema if it does not exist.
func Migrate(ctx context.Context, d *DB) error {
	if _, err := d.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("db: migrate: %w", err)
	}
	return nil
}
