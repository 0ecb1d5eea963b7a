package vector

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moltrus/Crypton/internal/news"
)

func TestChunkArticleSingleChunk(t *testing.T) {
	a := news.Article{
		ID:         "v1:abc",
		URL:        "https://example.com/a",
		Title:      "Title",
		SourceName: "example",
		Domain:     "example.com",
		RawContent: "one two three",
	}

	chunks := ChunkArticle(a, 100, 0)
	require.Len(t, chunks, 1)
	assert.Equal(t, "v1:abc#0", chunks[0].ID)
	assert.Equal(t, "one two three", chunks[0].Text)
	assert.Equal(t, "v1:abc", chunks[0].Metadata["article_id"])
	assert.Equal(t, 1, chunks[0].Metadata["chunk_count"])
}

func TestChunkArticleSplitsOnWordBudget(t *testing.T) {
	words := make([]string, 25)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	a := news.Article{ID: "v1:abc", RawContent: strings.Join(words, " ")}

	chunks := ChunkArticle(a, 10, 0)
	require.Len(t, chunks, 3)
	assert.Equal(t, "v1:abc#0", chunks[0].ID)
	assert.Equal(t, "v1:abc#2", chunks[2].ID)
	assert.Len(t, strings.Fields(chunks[0].Text), 10)
	assert.Len(t, strings.Fields(chunks[2].Text), 5)
	assert.Equal(t, 2, chunks[2].Metadata["chunk_index"])
}

func TestChunkArticleCapsChunks(t *testing.T) {
	a := news.Article{ID: "v1:abc", RawContent: strings.Repeat("word ", 100)}

	chunks := ChunkArticle(a, 10, 3)
	assert.Len(t, chunks, 3)
}

func TestChunkArticleEmptyContent(t *testing.T) {
	assert.Nil(t, ChunkArticle(news.Article{ID: "v1:abc"}, 10, 0))
}

func TestChunkArticleCarriesPublishedAt(t *testing.T) {
	at := time.Date(2026, 2, 1, 8, 30, 0, 0, time.UTC)
	a := news.Article{ID: "v1:abc", RawContent: "some words here", PublishedAt: &at}

	chunks := ChunkArticle(a, 10, 0)
	require.Len(t, chunks, 1)
	assert.Equal(t, "2026-02-01T08:30:00Z", chunks[0].Metadata["published_at"])
}
