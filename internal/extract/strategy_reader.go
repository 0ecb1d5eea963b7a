package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/moltrus/Crypton/internal/news"
)

// ReaderStrategy delegates extraction to a hosted reader API (an
// r.jina.ai-style service that returns the page as plain text). Last in
// the default chain: it is the slowest and the only one that costs money.
type ReaderStrategy struct {
	client   *http.Client
	endpoint string
	apiKey   string
	minChars int
	logger   *zap.Logger
}

// NewReaderStrategy constructs the strategy. endpoint and apiKey come from
// configuration; wiring skips registration entirely when the key is unset.
func NewReaderStrategy(endpoint, apiKey string, minChars int, logger *zap.Logger) *ReaderStrategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReaderStrategy{
		client:   &http.Client{},
		endpoint: endpoint,
		apiKey:   apiKey,
		minChars: minChars,
		logger:   logger,
	}
}

// Name implements news.Strategy.
func (s *ReaderStrategy) Name() string { return MethodReader }

// Extract posts ref's URL to the reader service and returns its text.
func (s *ReaderStrategy) Extract(ctx context.Context, ref news.ArticleReference) (news.ExtractedContent, error) {
	payload, err := json.Marshal(map[string]string{"url": ref.URL})
	if err != nil {
		return news.ExtractedContent{}, news.NewStructuralError(MethodReader, fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(string(payload)))
	if err != nil {
		return news.ExtractedContent{}, news.NewStructuralError(MethodReader, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Retain-Images", "none")

	resp, err := s.client.Do(req)
	if err != nil {
		return news.ExtractedContent{}, classifyNetErr(MethodReader, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(MethodReader, resp.StatusCode); err != nil {
		return news.ExtractedContent{}, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return news.ExtractedContent{}, classifyNetErr(MethodReader, err)
	}

	text := strings.TrimSpace(string(body))
	if err := guardContent(MethodReader, text, s.minChars); err != nil {
		return news.ExtractedContent{}, err
	}
	return news.ExtractedContent{Text: text}, nil
}
