package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/moltrus/Crypton/internal/news"
)

// DedupStore tracks which article ids have already been accepted into the
// pipeline. Membership never yields false positives: an id is present only
// after a successful Mark.
type DedupStore struct {
	db DB
}

// NewDedupStore wraps the pool.
func NewDedupStore(db DB) *DedupStore {
	return &DedupStore{db: db}
}

// Has reports whether id has been marked.
func (s *DedupStore) Has(ctx context.Context, id string) (bool, error) {
	query, args, err := psql.
		Select("1").
		From("seen_articles").
		Where(sq.Eq{"id": id}).
		Prefix("SELECT EXISTS (").
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var exists bool
	if err := s.db.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("dedup lookup: %w", err)
	}
	return exists, nil
}

// Mark records id as seen. won reports whether this caller inserted the
// row; concurrent markers of the same id see won=true exactly once.
func (s *DedupStore) Mark(ctx context.Context, id string) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`INSERT INTO seen_articles (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, id)
	if err != nil {
		return false, fmt.Errorf("dedup mark: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

var _ news.DedupStore = (*DedupStore)(nil)
