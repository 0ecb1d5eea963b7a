package vector

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"go.uber.org/zap"
)

const localRecordPrefix = "vec:"

// LocalStore keeps vectors in an embedded Badger database and answers
// queries with a brute-force cosine scan. Suited to the corpus sizes a
// single ingest node produces; swap in a remote store past that.
type LocalStore struct {
	db     *badger.DB
	logger *zap.Logger
}

type badgerZapAdapter struct {
	logger *zap.SugaredLogger
}

var _ badger.Logger = (*badgerZapAdapter)(nil)

func (l *badgerZapAdapter) Errorf(msg string, args ...any)   { l.logger.Errorf(msg, args...) }
func (l *badgerZapAdapter) Warningf(msg string, args ...any) { l.logger.Warnf(msg, args...) }
func (l *badgerZapAdapter) Infof(msg string, args ...any)    { l.logger.Debugf(msg, args...) }
func (l *badgerZapAdapter) Debugf(msg string, args ...any)   { l.logger.Debugf(msg, args...) }

// NewLocalStore opens (or creates) the database at path. An empty path
// opens an in-memory database, used by tests.
func NewLocalStore(path string, logger *zap.Logger) (*LocalStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path)
	}
	opts.Logger = &badgerZapAdapter{logger: logger.Named("badger").Sugar()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open local vector store: %w", err)
	}
	return &LocalStore{db: db, logger: logger}, nil
}

// Close releases the database.
func (s *LocalStore) Close() error {
	return s.db.Close()
}

// Name implements Store.
func (s *LocalStore) Name() string { return "local" }

// Upsert writes records, replacing any existing entries with the same ids.
func (s *LocalStore) Upsert(ctx context.Context, records []Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, rec := range records {
			if rec.ID == "" {
				return fmt.Errorf("record id is required")
			}
			buf, err := encodeRecord(rec)
			if err != nil {
				return err
			}
			if err := txn.Set(localKey(rec.ID), buf); err != nil {
				return fmt.Errorf("set %s: %w", rec.ID, err)
			}
		}
		return nil
	})
}

// Delete removes the given ids. Missing ids are ignored.
func (s *LocalStore) Delete(ctx context.Context, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, id := range ids {
			if err := txn.Delete(localKey(id)); err != nil {
				return fmt.Errorf("delete %s: %w", id, err)
			}
		}
		return nil
	})
}

// Query scans every stored vector and returns the k most cosine-similar.
func (s *LocalStore) Query(ctx context.Context, vector []float32, k int) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var matches []Match
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(localRecordPrefix)
		iter := txn.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var rec Record
			err := iter.Item().Value(func(val []byte) error {
				return decodeRecord(val, &rec)
			})
			if err != nil {
				return err
			}
			if len(rec.Values) == 0 {
				continue
			}
			matches = append(matches, Match{
				ID:       rec.ID,
				Score:    cosineSimilarity(vector, rec.Values),
				Metadata: rec.Metadata,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query local vectors: %w", err)
	}

	slices.SortFunc(matches, func(a, b Match) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Stats counts stored vectors and reports the dimension of the first one.
func (s *LocalStore) Stats(ctx context.Context) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}

	var stats Stats
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(localRecordPrefix)
		iter := txn.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			stats.VectorCount++
			if stats.Dimension == 0 {
				var rec Record
				if err := iter.Item().Value(func(val []byte) error {
					return decodeRecord(val, &rec)
				}); err != nil {
					return err
				}
				stats.Dimension = len(rec.Values)
			}
		}
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("local vector stats: %w", err)
	}
	return stats, nil
}

func localKey(id string) []byte {
	return []byte(localRecordPrefix + id)
}

func encodeRecord(rec Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return nil, fmt.Errorf("encode record %s: %w", rec.ID, err)
	}
	return buf.Bytes(), nil
}

func decodeRecord(data []byte, rec *Record) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(rec); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return nil
}

func cosineSimilarity(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

var _ Store = (*LocalStore)(nil)
