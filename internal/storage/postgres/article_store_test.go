package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moltrus/Crypton/internal/news"
)

func testArticle() news.Article {
	extractedAt := time.Unix(1700000000, 0).UTC()
	return news.Article{
		ID:               "v1:abc",
		URL:              "https://example.com/story",
		Domain:           "example.com",
		SourceName:       "example",
		Title:            "Title",
		Description:      "Desc",
		RawContent:       "body text",
		Language:         "en",
		WordCount:        2,
		ExtractionMethod: "direct",
		ExtractedAt:      extractedAt,
		ContentHash:      "hash-1",
	}
}

func TestArticleStoreSaveInserts(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	a := testArticle()
	mock.ExpectQuery("INSERT INTO articles").
		WithArgs(a.ID, a.URL, a.Domain, a.SourceName, a.Title, a.Description, a.RawContent,
			a.Language, a.WordCount, a.PublishedAt, a.ExtractionMethod, a.ExtractedAt, a.ContentHash).
		WillReturnRows(pgxmock.NewRows([]string{"created"}).AddRow(true))

	created, err := NewArticleStore(mock).Save(context.Background(), a)
	require.NoError(t, err)
	assert.True(t, created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArticleStoreSaveUnchangedContentIsNoop(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	a := testArticle()
	mock.ExpectQuery("INSERT INTO articles").
		WithArgs(a.ID, a.URL, a.Domain, a.SourceName, a.Title, a.Description, a.RawContent,
			a.Language, a.WordCount, a.PublishedAt, a.ExtractionMethod, a.ExtractedAt, a.ContentHash).
		WillReturnError(pgx.ErrNoRows)

	created, err := NewArticleStore(mock).Save(context.Background(), a)
	require.NoError(t, err)
	assert.False(t, created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArticleStoreSaveRequiresID(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewArticleStore(mock).Save(context.Background(), news.Article{})
	require.Error(t, err)
}

func TestArticleStoreGet(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	a := testArticle()
	mock.ExpectQuery("SELECT .+ FROM articles").
		WithArgs(a.ID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "url", "domain", "source_name", "title", "description", "raw_content",
			"language", "word_count", "published_at", "extraction_method", "extracted_at", "content_hash",
		}).AddRow(a.ID, a.URL, a.Domain, a.SourceName, a.Title, a.Description, a.RawContent,
			a.Language, a.WordCount, a.PublishedAt, a.ExtractionMethod, a.ExtractedAt, a.ContentHash))

	got, err := NewArticleStore(mock).Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, a, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArticleStoreGetNotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT .+ FROM articles").
		WithArgs("v1:missing").
		WillReturnError(pgx.ErrNoRows)

	_, err = NewArticleStore(mock).Get(context.Background(), "v1:missing")
	require.ErrorIs(t, err, news.ErrNotFound)
}
