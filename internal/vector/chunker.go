package vector

import (
	"fmt"
	"strings"

	"github.com/moltrus/Crypton/internal/news"
)

// Chunk is one slice of an article's content, sized for the embedding
// model's input window.
type Chunk struct {
	ID       string
	Text     string
	Metadata map[string]any
}

// ChunkArticle splits the article into word-bounded chunks. Chunk ids are
// derived from the article id so re-chunking the same content overwrites
// rather than duplicates. maxChunks caps pathological inputs; 0 means no cap.
func ChunkArticle(a news.Article, maxWords, maxChunks int) []Chunk {
	if maxWords <= 0 {
		maxWords = 1
	}
	words := strings.Fields(a.RawContent)
	if len(words) == 0 {
		return nil
	}

	total := (len(words) + maxWords - 1) / maxWords
	if maxChunks > 0 && total > maxChunks {
		total = maxChunks
	}

	chunks := make([]Chunk, 0, total)
	for i := 0; i < total; i++ {
		start := i * maxWords
		end := start + maxWords
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, Chunk{
			ID:   fmt.Sprintf("%s#%d", a.ID, i),
			Text: strings.Join(words[start:end], " "),
			Metadata: map[string]any{
				"article_id":  a.ID,
				"url":         a.URL,
				"title":       a.Title,
				"source":      a.SourceName,
				"domain":      a.Domain,
				"chunk_index": i,
				"chunk_count": total,
			},
		})
	}
	if a.PublishedAt != nil {
		for i := range chunks {
			chunks[i].Metadata["published_at"] = a.PublishedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
		}
	}
	return chunks
}
