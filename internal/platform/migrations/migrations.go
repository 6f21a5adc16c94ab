// Package migrations applies the SQL schema the PostgreSQL store expects.
// Statements are ordered and idempotent so Apply can run on every startup.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS oracle_registry (
		address     TEXT PRIMARY KEY,
		weight      INTEGER NOT NULL CHECK (weight BETWEEN 1 AND 100),
		approved_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS oracle_activity (
		address          TEXT PRIMARY KEY,
		submission_count BIGINT NOT NULL DEFAULT 0,
		last_active_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS price_submissions (
		id             UUID PRIMARY KEY,
		subject        BIGINT NOT NULL CHECK (subject > 0),
		oracle_address TEXT NOT NULL,
		price          BIGINT NOT NULL CHECK (price > 0),
		submitted_at   TIMESTAMPTZ NOT NULL,
		UNIQUE (subject, oracle_address)
	)`,
	`CREATE INDEX IF NOT EXISTS price_submissions_subject_idx
		ON price_submissions (subject)`,
	`CREATE TABLE IF NOT EXISTS subject_valuations (
		subject      BIGINT PRIMARY KEY,
		value        BIGINT NOT NULL,
		source_count INTEGER NOT NULL,
		computed_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS engine_params (
		id                         INTEGER PRIMARY KEY CHECK (id = 1),
		max_oracles                INTEGER NOT NULL,
		consensus_threshold        INTEGER NOT NULL,
		max_submissions_per_oracle BIGINT NOT NULL,
		staleness_window_secs      BIGINT NOT NULL,
		admin_address              TEXT NOT NULL
	)`,
}

// Apply executes all schema statements in order against the database.
func Apply(ctx context.Context, db *sql.DB) error {
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
