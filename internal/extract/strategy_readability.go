package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"go.uber.org/zap"

	"github.com/moltrus/Crypton/internal/news"
)

// ReadabilityStrategy fetches the page with a plain HTTP client and runs
// the readability content scorer over it. Catches article layouts the
// DOM-selector pass misjudges.
type ReadabilityStrategy struct {
	client    *http.Client
	userAgent string
	minChars  int
	logger    *zap.Logger
}

// NewReadabilityStrategy constructs the strategy. The per-call timeout is
// applied by the chain through the request context.
func NewReadabilityStrategy(userAgent string, minChars int, logger *zap.Logger) *ReadabilityStrategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReadabilityStrategy{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: 8,
				ForceAttemptHTTP2:   true,
			},
		},
		userAgent: userAgent,
		minChars:  minChars,
		logger:    logger,
	}
}

// Name implements news.Strategy.
func (s *ReadabilityStrategy) Name() string { return MethodReadability }

// Extract fetches ref's URL and runs readability over the response body.
func (s *ReadabilityStrategy) Extract(ctx context.Context, ref news.ArticleReference) (news.ExtractedContent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.URL, nil)
	if err != nil {
		return news.ExtractedContent{}, news.NewStructuralError(MethodReadability, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return news.ExtractedContent{}, classifyNetErr(MethodReadability, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(MethodReadability, resp.StatusCode); err != nil {
		return news.ExtractedContent{}, err
	}

	pageURL, err := url.Parse(ref.URL)
	if err != nil {
		return news.ExtractedContent{}, news.NewStructuralError(MethodReadability, fmt.Errorf("parse url: %w", err))
	}

	article, err := readability.FromReader(resp.Body, pageURL)
	if err != nil {
		return news.ExtractedContent{}, news.NewStructuralError(MethodReadability, fmt.Errorf("readability: %w", err))
	}

	text := strings.TrimSpace(article.TextContent)
	if err := guardContent(MethodReadability, text, s.minChars); err != nil {
		return news.ExtractedContent{}, err
	}
	return news.ExtractedContent{Title: article.Title, Text: text}, nil
}
