package news

import (
	"context"
	"time"
)

// DedupStore is the authoritative record of which article ids have already
// produced a persisted Article. No false negatives are permitted.
type DedupStore interface {
	Has(ctx context.Context, id string) (bool, error)
	// Mark registers id. Idempotent; when several workers race on the same
	// id, exactly one caller observes won=true.
	Mark(ctx context.Context, id string) (won bool, err error)
}

// ArticleStore persists extracted articles.
type ArticleStore interface {
	// Save inserts the article, or refreshes raw_content/content_hash when
	// a row with the same id already exists with different content.
	// created is true only for a first-time insert.
	Save(ctx context.Context, a Article) (created bool, err error)
	Get(ctx context.Context, id string) (Article, error)
}

// FailureLedger is the durable audit trail of extraction attempts that did
// not yet succeed.
type FailureLedger interface {
	// RecordFailure appends trail to the unresolved record for ref's id,
	// creating it on first failure. TotalAttempts increases by one per call.
	RecordFailure(ctx context.Context, id string, ref ArticleReference, trail []MethodAttempt, retryable bool) error
	// RecordResolved flips the record to resolved. No-op when none exists;
	// the record is retained for audit either way.
	RecordResolved(ctx context.Context, id string) error
	// ListUnresolved returns retry-eligible records: unresolved, retryable,
	// under maxAttempts, and past their backoff window, ordered by
	// last_attempted_at ascending (oldest-stalled-first). Set
	// includeStructural to bypass the retryable flag for operator-triggered
	// passes.
	ListUnresolved(ctx context.Context, maxAttempts int, includeStructural bool, limit int) ([]FailedExtraction, error)
}

// SyncStore owns the per-(article, store) sync status rows.
type SyncStore interface {
	// Enqueue upserts a pending row for (id, storeName) at contentHash.
	// A row already synced at the same hash is left untouched; a hash
	// change resets the row to pending.
	Enqueue(ctx context.Context, id, storeName, contentHash string) error
	// ListSyncable returns rows in {pending} or {failed under maxRetries},
	// oldest first. maxRetries <= 0 disables the ceiling (operator retry).
	ListSyncable(ctx context.Context, storeName string, maxRetries, limit int) ([]SyncStatus, error)
	MarkSynced(ctx context.Context, id, storeName, contentHash string, at time.Time) error
	MarkFailed(ctx context.Context, id, storeName, lastError string, at time.Time) error
	ListByArticle(ctx context.Context, id string) ([]SyncStatus, error)
}

// Strategy is one pluggable extraction capability. Implementations classify
// their failures via ExtractionError and apply their own call timeout.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, ref ArticleReference) (ExtractedContent, error)
}

// FeedSource produces the candidate references for one poll cycle.
// Finite per poll, restartable on the next cycle.
type FeedSource interface {
	Poll(ctx context.Context) ([]ArticleReference, error)
}

// Clock returns the current time (swappable in tests).
type Clock interface {
	Now() time.Time
}

// SystemClock is the real Clock.
type SystemClock struct{}

// Now returns time.Now in UTC.
func (SystemClock) Now() time.Time { return time.Now().UTC() }
