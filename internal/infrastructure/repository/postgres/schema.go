package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"slices"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const schemaLockKey = int64(2026101501)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// DefaultSettings are inserted once when the settings table is created.
var DefaultSettings = map[string]string{
	"max_text_length":     "8000",
	"display_text_length": "500",
	"use_json_mode":       "true",
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS processing_history (
	id BIGSERIAL PRIMARY KEY,
	document_id INTEGER NOT NULL,
	document_title TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	suggested_metadata JSONB,
	error_message TEXT NOT NULL DEFAULT '',
	failed_step TEXT NOT NULL DEFAULT '',
	text_source TEXT NOT NULL DEFAULT '',
	tokens_used INTEGER NOT NULL DEFAULT 0,
	metadata_updated BOOLEAN NOT NULL DEFAULT FALSE,
	processed_at TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_processing_history_document ON processing_history(document_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_processing_history_created_at ON processing_history(created_at DESC);

CREATE TABLE IF NOT EXISTS prompt_configurations (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	prompts JSONB NOT NULL DEFAULT '{}'::jsonb,
	use_json_mode BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS api_logs (
	id BIGSERIAL PRIMARY KEY,
	service TEXT NOT NULL,
	endpoint TEXT NOT NULL,
	method TEXT NOT NULL,
	status_code INTEGER,
	duration_ms BIGINT NOT NULL DEFAULT 0,
	request_data JSONB,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_api_logs_created_at ON api_logs(created_at DESC);
`

// EnsureSchema creates the tables and seeds default settings.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockKey); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}
	if _, err := tx.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}
	for _, key := range slices.Sorted(maps.Keys(DefaultSettings)) {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, now())
ON CONFLICT (key) DO NOTHING
`, key, DefaultSettings[key]); err != nil {
			return fmt.Errorf("seed setting %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
