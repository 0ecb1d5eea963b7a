// Package vector provides embedding generation and the vector store
// adapters articles are synced into.
package vector

import "context"

// Record is one embedded chunk ready for storage.
type Record struct {
	ID       string
	Values   []float32
	Metadata map[string]any
}

// Match is a query hit.
type Match struct {
	ID       string         `json:"id"`
	Score    float32        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Stats summarizes a store's contents.
type Stats struct {
	VectorCount int64 `json:"vector_count"`
	Dimension   int   `json:"dimension"`
}

// Store is a destination for embedded article chunks. Implementations must
// make Upsert idempotent: writing the same ids twice leaves one copy.
type Store interface {
	Name() string
	Upsert(ctx context.Context, records []Record) error
	Delete(ctx context.Context, ids []string) error
	Query(ctx context.Context, vector []float32, k int) ([]Match, error)
	Stats(ctx context.Context) (Stats, error)
}
