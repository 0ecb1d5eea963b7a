package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/moltrus/Crypton/internal/metrics"
	"github.com/moltrus/Crypton/internal/news"
)

// FailureLedger records extraction passes that exhausted the whole chain,
// so they can be retried later with exponential backoff.
type FailureLedger struct {
	db          DB
	backoffBase time.Duration
	backoffCap  time.Duration
	clock       news.Clock
}

// NewFailureLedger wraps the pool. backoffBase and backoffCap bound the
// per-entry retry delay, which doubles with each recorded pass.
func NewFailureLedger(db DB, backoffBase, backoffCap time.Duration, clock news.Clock) *FailureLedger {
	if clock == nil {
		clock = news.SystemClock{}
	}
	return &FailureLedger{db: db, backoffBase: backoffBase, backoffCap: backoffCap, clock: clock}
}

// RecordFailure appends one pass's attempt trail to the entry for id,
// creating it if needed. total_attempts counts chain passes, not
// individual strategy attempts, and advances by exactly one per call;
// a previously resolved entry that fails again is reopened.
func (l *FailureLedger) RecordFailure(ctx context.Context, id string, ref news.ArticleReference, trail []news.MethodAttempt, retryable bool) error {
	if id == "" {
		return fmt.Errorf("article id is required")
	}
	trailJSON, err := json.Marshal(trail)
	if err != nil {
		return fmt.Errorf("marshal attempt trail: %w", err)
	}

	query := `
INSERT INTO failed_extractions (
	article_id, url, source_name, discovered_at,
	attempts, total_attempts, last_attempted_at, retryable, resolved
) VALUES ($1,$2,$3,$4,$5::jsonb,1,$6,$7,FALSE)
ON CONFLICT (article_id) DO UPDATE SET
	attempts = failed_extractions.attempts || EXCLUDED.attempts,
	total_attempts = failed_extractions.total_attempts + 1,
	last_attempted_at = EXCLUDED.last_attempted_at,
	retryable = EXCLUDED.retryable,
	resolved = FALSE,
	resolved_at = NULL`

	if _, err := l.db.Exec(ctx, query,
		id, ref.URL, ref.SourceName, ref.DiscoveredAt,
		trailJSON, l.clock.Now(), retryable,
	); err != nil {
		return fmt.Errorf("record failure: %w", err)
	}
	return nil
}

// RecordResolved marks the entry for id resolved. A missing entry is not
// an error: most articles never fail in the first place.
func (l *FailureLedger) RecordResolved(ctx context.Context, id string) error {
	if _, err := l.db.Exec(ctx,
		`UPDATE failed_extractions SET resolved = TRUE, resolved_at = $2 WHERE article_id = $1 AND NOT resolved`,
		id, l.clock.Now(),
	); err != nil {
		return fmt.Errorf("record resolved: %w", err)
	}
	return nil
}

// ListUnresolved returns entries eligible for another pass: unresolved,
// under maxAttempts, and past their backoff window. Structural-only
// entries are excluded unless includeStructural is set.
func (l *FailureLedger) ListUnresolved(ctx context.Context, maxAttempts int, includeStructural bool, limit int) ([]news.FailedExtraction, error) {
	backoffExpr := fmt.Sprintf(
		"last_attempted_at <= now() - (interval '1 second' * LEAST(%d, %d * POWER(2, GREATEST(total_attempts - 1, 0))))",
		int(l.backoffCap.Seconds()), int(l.backoffBase.Seconds()),
	)

	builder := psql.
		Select("article_id", "url", "source_name", "discovered_at",
			"attempts", "total_attempts", "last_attempted_at", "retryable", "resolved").
		From("failed_extractions").
		Where(sq.Eq{"resolved": false}).
		Where(sq.Lt{"total_attempts": maxAttempts}).
		Where(backoffExpr).
		OrderBy("last_attempted_at ASC").
		Limit(uint64(limit))
	if !includeStructural {
		builder = builder.Where(sq.Eq{"retryable": true})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := l.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list unresolved: %w", err)
	}
	defer rows.Close()

	var out []news.FailedExtraction
	for rows.Next() {
		var (
			fe        news.FailedExtraction
			trailJSON []byte
		)
		if err := rows.Scan(
			&fe.ArticleID, &fe.Ref.URL, &fe.Ref.SourceName, &fe.Ref.DiscoveredAt,
			&trailJSON, &fe.TotalAttempts, &fe.LastAttemptedAt, &fe.Retryable, &fe.Resolved,
		); err != nil {
			return nil, fmt.Errorf("scan failed extraction: %w", err)
		}
		if err := json.Unmarshal(trailJSON, &fe.Attempts); err != nil {
			return nil, fmt.Errorf("unmarshal attempt trail: %w", err)
		}
		out = append(out, fe)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list unresolved rows: %w", err)
	}

	metrics.ObserveUnresolvedReturned(len(out))
	return out, nil
}

var _ news.FailureLedger = (*FailureLedger)(nil)
