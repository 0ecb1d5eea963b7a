package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/moltrus/Crypton/internal/news"
)

// SyncStore tracks the per-vector-store delivery state of each article.
type SyncStore struct {
	db DB
}

// NewSyncStore wraps the pool.
func NewSyncStore(db DB) *SyncStore {
	return &SyncStore{db: db}
}

// Enqueue registers id for delivery to storeName. An existing row is reset
// to pending only when the content hash changed; re-enqueueing an already
// synced, unchanged article is a no-op.
func (s *SyncStore) Enqueue(ctx context.Context, id, storeName, contentHash string) error {
	query := `
INSERT INTO sync_status (article_id, store_name, state, content_hash)
VALUES ($1, $2, 'pending', $3)
ON CONFLICT (article_id, store_name) DO UPDATE SET
	state = 'pending',
	content_hash = EXCLUDED.content_hash,
	attempt_count = 0,
	last_error = '',
	enqueued_at = now()
WHERE sync_status.content_hash IS DISTINCT FROM EXCLUDED.content_hash`

	if _, err := s.db.Exec(ctx, query, id, storeName, contentHash); err != nil {
		return fmt.Errorf("enqueue sync: %w", err)
	}
	return nil
}

// ListSyncable returns rows awaiting delivery to storeName: pending rows
// plus failed rows under the retry budget. maxRetries <= 0 lifts the
// budget, which is how explicit retry runs pick up exhausted rows.
func (s *SyncStore) ListSyncable(ctx context.Context, storeName string, maxRetries, limit int) ([]news.SyncStatus, error) {
	state := sq.Or{
		sq.Eq{"state": string(news.SyncPending)},
		sq.Eq{"state": string(news.SyncFailed)},
	}
	if maxRetries > 0 {
		state = sq.Or{
			sq.Eq{"state": string(news.SyncPending)},
			sq.And{
				sq.Eq{"state": string(news.SyncFailed)},
				sq.Lt{"attempt_count": maxRetries},
			},
		}
	}

	query, args, err := psql.
		Select("article_id", "store_name", "state", "content_hash",
			"attempt_count", "last_attempted_at", "last_error").
		From("sync_status").
		Where(sq.Eq{"store_name": storeName}).
		Where(state).
		OrderBy("enqueued_at ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list syncable: %w", err)
	}
	defer rows.Close()

	var out []news.SyncStatus
	for rows.Next() {
		var st news.SyncStatus
		if err := rows.Scan(
			&st.ArticleID, &st.StoreName, &st.State, &st.ContentHash,
			&st.AttemptCount, &st.LastAttemptedAt, &st.LastError,
		); err != nil {
			return nil, fmt.Errorf("scan sync status: %w", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list syncable rows: %w", err)
	}
	return out, nil
}

// MarkSynced records a successful delivery of the given content version.
// attempt_count is left alone: it budgets failed attempts only.
func (s *SyncStore) MarkSynced(ctx context.Context, id, storeName, contentHash string, at time.Time) error {
	query := `
UPDATE sync_status SET
	state = 'synced',
	content_hash = $3,
	last_attempted_at = $4,
	synced_at = $4,
	last_error = ''
WHERE article_id = $1 AND store_name = $2`

	if _, err := s.db.Exec(ctx, query, id, storeName, contentHash, at); err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	return nil
}

// MarkFailed records a failed delivery attempt.
func (s *SyncStore) MarkFailed(ctx context.Context, id, storeName, lastError string, at time.Time) error {
	query := `
UPDATE sync_status SET
	state = 'failed',
	attempt_count = attempt_count + 1,
	last_attempted_at = $4,
	last_error = $3
WHERE article_id = $1 AND store_name = $2`

	if _, err := s.db.Exec(ctx, query, id, storeName, lastError, at); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// ListByArticle returns every store's sync row for the article.
func (s *SyncStore) ListByArticle(ctx context.Context, id string) ([]news.SyncStatus, error) {
	query, args, err := psql.
		Select("article_id", "store_name", "state", "content_hash",
			"attempt_count", "last_attempted_at", "last_error").
		From("sync_status").
		Where(sq.Eq{"article_id": id}).
		OrderBy("store_name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list by article: %w", err)
	}
	defer rows.Close()

	var out []news.SyncStatus
	for rows.Next() {
		var st news.SyncStatus
		if err := rows.Scan(
			&st.ArticleID, &st.StoreName, &st.State, &st.ContentHash,
			&st.AttemptCount, &st.LastAttemptedAt, &st.LastError,
		); err != nil {
			return nil, fmt.Errorf("scan sync status: %w", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list by article rows: %w", err)
	}
	return out, nil
}

var _ news.SyncStore = (*SyncStore)(nil)
