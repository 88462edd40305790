// Package db provides database connection helpers and the schema
// bootstrap used by the daemon.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPostgresPool creates and verifies a pgxpool connection pool.
func NewPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS search_profiles (
	id           UUID PRIMARY KEY,
	name         TEXT NOT NULL,
	keywords     TEXT[] NOT NULL DEFAULT '{}',
	location     TEXT NOT NULL DEFAULT '',
	radius_miles INT NOT NULL DEFAULT 50,
	work_type    TEXT NOT NULL DEFAULT 'any',
	experience   TEXT NOT NULL DEFAULT 'any',
	home_lat     DOUBLE PRECISION,
	home_lon     DOUBLE PRECISION,
	sources      TEXT[] NOT NULL DEFAULT '{}',
	active       BOOLEAN NOT NULL DEFAULT TRUE,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS listing_feed (
	id          BIGSERIAL PRIMARY KEY,
	run_id      UUID NOT NULL,
	profile_id  UUID NOT NULL,
	source      TEXT NOT NULL,
	external_id TEXT NOT NULL,
	title       TEXT NOT NULL,
	company     TEXT NOT NULL DEFAULT '',
	location    TEXT NOT NULL DEFAULT '',
	posting_url TEXT NOT NULL,
	salary_min  DOUBLE PRECISION,
	salary_max  DOUBLE PRECISION,
	date_posted TIMESTAMPTZ,
	payload     JSONB NOT NULL,
	inserted_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS listing_feed_inserted_at_idx ON listing_feed (inserted_at DESC);
CREATE INDEX IF NOT EXISTS listing_feed_posting_url_idx ON listing_feed (posting_url);

CREATE TABLE IF NOT EXISTS applications (
	id          BIGSERIAL PRIMARY KEY,
	listing_id  TEXT NOT NULL UNIQUE,
	source      TEXT NOT NULL DEFAULT '',
	title       TEXT NOT NULL,
	company     TEXT NOT NULL DEFAULT '',
	location    TEXT NOT NULL DEFAULT '',
	posting_url TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'Applied',
	applied_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS timeline_events (
	id             BIGSERIAL PRIMARY KEY,
	application_id BIGINT NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
	status         TEXT NOT NULL,
	event_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS timeline_events_app_idx ON timeline_events (application_id, event_at);
`

// EnsureSchema creates the JobTrack tables when they do not exist yet.
// Idempotent, runs on every daemon start.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
