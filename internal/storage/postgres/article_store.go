package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/moltrus/Crypton/internal/news"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// ArticleStore persists extracted articles keyed by their stable id.
type ArticleStore struct {
	db DB
}

// NewArticleStore wraps the pool.
func NewArticleStore(db DB) *ArticleStore {
	return &ArticleStore{db: db}
}

// Save upserts the article. The row is rewritten only when the content hash
// changed; created reports whether a new row was inserted.
func (s *ArticleStore) Save(ctx context.Context, a news.Article) (bool, error) {
	if a.ID == "" {
		return false, fmt.Errorf("article id is required")
	}
	query := `
INSERT INTO articles (
	id, url, domain, source_name, title, description, raw_content,
	language, word_count, published_at, extraction_method, extracted_at, content_hash
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (id) DO UPDATE SET
	title = EXCLUDED.title,
	description = EXCLUDED.description,
	raw_content = EXCLUDED.raw_content,
	language = EXCLUDED.language,
	word_count = EXCLUDED.word_count,
	published_at = EXCLUDED.published_at,
	extraction_method = EXCLUDED.extraction_method,
	extracted_at = EXCLUDED.extracted_at,
	content_hash = EXCLUDED.content_hash,
	updated_at = now()
WHERE articles.content_hash IS DISTINCT FROM EXCLUDED.content_hash
RETURNING (xmax = 0) AS created`

	var created bool
	err := s.db.QueryRow(ctx, query,
		a.ID, a.URL, a.Domain, a.SourceName, a.Title, a.Description, a.RawContent,
		a.Language, a.WordCount, a.PublishedAt, a.ExtractionMethod, a.ExtractedAt, a.ContentHash,
	).Scan(&created)
	if errors.Is(err, pgx.ErrNoRows) {
		// Conflict with identical content: nothing written.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("save article: %w", err)
	}
	return created, nil
}

// Get loads an article by id, returning news.ErrNotFound when absent.
func (s *ArticleStore) Get(ctx context.Context, id string) (news.Article, error) {
	query, args, err := psql.
		Select("id", "url", "domain", "source_name", "title", "description", "raw_content",
			"language", "word_count", "published_at", "extraction_method", "extracted_at", "content_hash").
		From("articles").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return news.Article{}, fmt.Errorf("build query: %w", err)
	}

	var a news.Article
	err = s.db.QueryRow(ctx, query, args...).Scan(
		&a.ID, &a.URL, &a.Domain, &a.SourceName, &a.Title, &a.Description, &a.RawContent,
		&a.Language, &a.WordCount, &a.PublishedAt, &a.ExtractionMethod, &a.ExtractedAt, &a.ContentHash,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return news.Article{}, news.ErrNotFound
	}
	if err != nil {
		return news.Article{}, fmt.Errorf("get article: %w", err)
	}
	return a, nil
}

var _ news.ArticleStore = (*ArticleStore)(nil)
