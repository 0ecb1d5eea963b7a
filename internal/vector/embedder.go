package vector

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

// Embedder produces embeddings through an OpenAI-compatible API.
type Embedder struct {
	embedder embeddings.Embedder
	logger   *zap.Logger
}

// NewEmbedder builds a client against host using the given model. token may
// be "none" for local services that skip authentication.
func NewEmbedder(host, token, model string, logger *zap.Logger) (*Embedder, error) {
	if host == "" {
		return nil, fmt.Errorf("embedding host is required")
	}
	if token == "" {
		token = "none"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := openai.New(
		openai.WithBaseURL(host),
		openai.WithToken(token),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("embedding client: %w", err)
	}
	emb, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("wrap embedder: %w", err)
	}
	return &Embedder{embedder: emb, logger: logger}, nil
}

// EmbedTexts embeds a batch of texts, one vector per input.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("embedding batch failed", zap.Int("count", len(texts)), zap.Error(err))
		return nil, fmt.Errorf("embed texts: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embed texts: got %d vectors for %d inputs", len(vectors), len(texts))
	}
	return vectors, nil
}

// EmbedQuery embeds a single search query.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		e.logger.Error("query embedding failed", zap.Error(err))
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return vec, nil
}
