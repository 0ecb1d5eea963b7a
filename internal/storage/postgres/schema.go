package postgres

import (
	"context"
	"fmt"
)

// schemaStatements are idempotent, applied in order at startup.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS articles (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		domain TEXT NOT NULL,
		source_name TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		raw_content TEXT NOT NULL,
		language TEXT NOT NULL DEFAULT '',
		word_count INTEGER NOT NULL DEFAULT 0,
		published_at TIMESTAMPTZ,
		extraction_method TEXT NOT NULL,
		extracted_at TIMESTAMPTZ NOT NULL,
		content_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_domain ON articles (domain)`,
	`CREATE TABLE IF NOT EXISTS seen_articles (
		id TEXT PRIMARY KEY,
		first_seen_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS failed_extractions (
		article_id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		source_name TEXT NOT NULL,
		discovered_at TIMESTAMPTZ NOT NULL,
		attempts JSONB NOT NULL DEFAULT '[]'::jsonb,
		total_attempts INTEGER NOT NULL DEFAULT 0,
		last_attempted_at TIMESTAMPTZ NOT NULL,
		retryable BOOLEAN NOT NULL DEFAULT TRUE,
		resolved BOOLEAN NOT NULL DEFAULT FALSE,
		resolved_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_failed_unresolved
		ON failed_extractions (resolved, retryable, last_attempted_at)`,
	`CREATE TABLE IF NOT EXISTS sync_status (
		article_id TEXT NOT NULL,
		store_name TEXT NOT NULL,
		state TEXT NOT NULL DEFAULT 'pending',
		content_hash TEXT NOT NULL,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_attempted_at TIMESTAMPTZ,
		last_error TEXT NOT NULL DEFAULT '',
		enqueued_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		synced_at TIMESTAMPTZ,
		PRIMARY KEY (article_id, store_name)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sync_state ON sync_status (store_name, state)`,
}

// EnsureSchema applies the schema statements. Safe to run on every start.
func EnsureSchema(ctx context.Context, db DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
