package news

import "time"

// ArticleReference identifies a candidate article discovered in a feed,
// before any extraction has been attempted. Immutable once created.
type ArticleReference struct {
	URL          string    `json:"url"`
	SourceName   string    `json:"source_name"`
	DiscoveredAt time.Time `json:"discovered_at"`
}

// Article is the canonical extracted record. Created exactly once per
// unique ID; RawContent and ContentHash may be refreshed by an explicit
// re-extraction pass.
type Article struct {
	ID               string     `json:"id"`
	URL              string     `json:"url"`
	Domain           string     `json:"domain"`
	SourceName       string     `json:"source_name"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	RawContent       string     `json:"raw_content"`
	Language         string     `json:"language"`
	WordCount        int        `json:"word_count"`
	PublishedAt      *time.Time `json:"published_at,omitempty"`
	ExtractionMethod string     `json:"extraction_method"`
	ExtractedAt      time.Time  `json:"extracted_at"`
	ContentHash      string     `json:"content_hash"`
}

// MethodAttempt records a single strategy attempt within one chain pass.
type MethodAttempt struct {
	Method      string    `json:"method"`
	ErrorKind   ErrorKind `json:"error_kind"`
	Message     string    `json:"message"`
	AttemptedAt time.Time `json:"attempted_at"`
}

// FailedExtraction is the durable audit record for an article whose
// extraction has not yet succeeded. Resolved records are kept, not deleted.
type FailedExtraction struct {
	Ref             ArticleReference `json:"ref"`
	ArticleID       string           `json:"article_id"`
	Attempts        []MethodAttempt  `json:"attempts"`
	TotalAttempts   int              `json:"total_attempts"`
	LastAttemptedAt time.Time        `json:"last_attempted_at"`
	Retryable       bool             `json:"retryable"`
	Resolved        bool             `json:"resolved"`
}

// SyncState is the lifecycle state of one (article, store) pair.
type SyncState string

// Sync states persisted in the sync status store.
const (
	SyncPending SyncState = "pending"
	SyncSynced  SyncState = "synced"
	SyncFailed  SyncState = "failed"
)

// SyncStatus tracks delivery of one article into one vector store.
// ContentHash is the hash the row was last enqueued or synced with; a
// mismatch against the article's current hash resets the row to pending.
type SyncStatus struct {
	ArticleID       string     `json:"article_id"`
	StoreName       string     `json:"store_name"`
	State           SyncState  `json:"state"`
	ContentHash     string     `json:"content_hash"`
	AttemptCount    int        `json:"attempt_count"`
	LastAttemptedAt *time.Time `json:"last_attempted_at,omitempty"`
	LastError       string     `json:"last_error,omitempty"`
}

// BatchResult summarizes one ingestion batch. No single article's failure
// aborts a batch; everything lands in one of these three buckets.
type BatchResult struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Add accumulates another result into r.
func (r *BatchResult) Add(other BatchResult) {
	r.Succeeded += other.Succeeded
	r.Failed += other.Failed
	r.Skipped += other.Skipped
}

// SyncResult summarizes one sync batch against a single store.
type SyncResult struct {
	Store    string `json:"store"`
	Synced   int    `json:"synced"`
	Failed   int    `json:"failed"`
	Skipped  int    `json:"skipped"`
	Selected int    `json:"selected"`
}

// ExtractedContent is what a strategy returns on success.
type ExtractedContent struct {
	Title string
	Text  string
}
