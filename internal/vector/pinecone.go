package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/moltrus/Crypton/internal/news"
)

// PineconeStore talks to a Pinecone index over its data-plane REST API.
type PineconeStore struct {
	client    *http.Client
	host      string
	apiKey    string
	namespace string
	logger    *zap.Logger
}

// NewPineconeStore builds a client for the index at host (the per-index
// endpoint, e.g. https://my-index-abc123.svc.us-east-1.pinecone.io).
func NewPineconeStore(host, apiKey, namespace string, logger *zap.Logger) (*PineconeStore, error) {
	if host == "" {
		return nil, fmt.Errorf("pinecone host is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("pinecone api key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PineconeStore{
		client:    &http.Client{Timeout: 30 * time.Second},
		host:      strings.TrimRight(host, "/"),
		apiKey:    apiKey,
		namespace: namespace,
		logger:    logger,
	}, nil
}

// Name implements Store.
func (s *PineconeStore) Name() string { return "pinecone" }

type pineconeVector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Upsert writes records into the configured namespace. Pinecone upserts by
// id, so repeated calls with the same chunks are safe.
func (s *PineconeStore) Upsert(ctx context.Context, records []Record) error {
	vectors := make([]pineconeVector, 0, len(records))
	for _, rec := range records {
		vectors = append(vectors, pineconeVector{ID: rec.ID, Values: rec.Values, Metadata: rec.Metadata})
	}
	body := map[string]any{
		"vectors":   vectors,
		"namespace": s.namespace,
	}
	return s.post(ctx, "/vectors/upsert", body, nil)
}

// Delete removes ids from the namespace.
func (s *PineconeStore) Delete(ctx context.Context, ids []string) error {
	body := map[string]any{
		"ids":       ids,
		"namespace": s.namespace,
	}
	return s.post(ctx, "/vectors/delete", body, nil)
}

// Query returns the k nearest vectors with their metadata.
func (s *PineconeStore) Query(ctx context.Context, vector []float32, k int) ([]Match, error) {
	body := map[string]any{
		"vector":          vector,
		"topK":            k,
		"namespace":       s.namespace,
		"includeMetadata": true,
	}
	var resp struct {
		Matches []struct {
			ID       string         `json:"id"`
			Score    float32        `json:"score"`
			Metadata map[string]any `json:"metadata"`
		} `json:"matches"`
	}
	if err := s.post(ctx, "/query", body, &resp); err != nil {
		return nil, err
	}
	matches := make([]Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		matches = append(matches, Match{ID: m.ID, Score: m.Score, Metadata: m.Metadata})
	}
	return matches, nil
}

// Stats reports the namespace's vector count and the index dimension.
func (s *PineconeStore) Stats(ctx context.Context) (Stats, error) {
	var resp struct {
		Namespaces map[string]struct {
			VectorCount int64 `json:"vectorCount"`
		} `json:"namespaces"`
		Dimension        int   `json:"dimension"`
		TotalVectorCount int64 `json:"totalVectorCount"`
	}
	if err := s.post(ctx, "/describe_index_stats", map[string]any{}, &resp); err != nil {
		return Stats{}, err
	}

	stats := Stats{Dimension: resp.Dimension, VectorCount: resp.TotalVectorCount}
	if ns, ok := resp.Namespaces[s.namespace]; ok {
		stats.VectorCount = ns.VectorCount
	}
	return stats, nil
}

func (s *PineconeStore) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &news.AdapterError{Store: s.Name(), Op: path, Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.host+path, bytes.NewReader(payload))
	if err != nil {
		return &news.AdapterError{Store: s.Name(), Op: path, Err: err}
	}
	req.Header.Set("Api-Key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return &news.AdapterError{Store: s.Name(), Op: path, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &news.AdapterError{Store: s.Name(), Op: path, Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Warn("pinecone request failed",
			zap.String("op", path),
			zap.Int("status", resp.StatusCode),
		)
		return &news.AdapterError{
			Store: s.Name(),
			Op:    path,
			Err:   fmt.Errorf("http status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))),
		}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return &news.AdapterError{Store: s.Name(), Op: path, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}

var _ Store = (*PineconeStore)(nil)
