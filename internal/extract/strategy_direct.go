package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/moltrus/Crypton/internal/news"
)

// DirectStrategy fetches the page with Colly and pulls article text out of
// the DOM with goquery. The cheapest strategy, so the usual chain head.
type DirectStrategy struct {
	baseCollector *colly.Collector
	minChars      int
	logger        *zap.Logger
}

// NewDirectStrategy constructs a configured Colly-backed strategy.
func NewDirectStrategy(userAgent string, timeout time.Duration, minChars int, logger *zap.Logger) (*DirectStrategy, error) {
	base := colly.NewCollector(
		colly.UserAgent(userAgent),
	)
	base.AllowURLRevisit = true
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(timeout)

	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectStrategy{
		baseCollector: base,
		minChars:      minChars,
		logger:        logger,
	}, nil
}

// Name implements news.Strategy.
func (s *DirectStrategy) Name() string { return MethodDirect }

// Extract fetches ref's URL and returns the visible article text.
func (s *DirectStrategy) Extract(ctx context.Context, ref news.ArticleReference) (news.ExtractedContent, error) {
	collector := s.baseCollector.Clone()
	resultCh := make(chan directResult, 1)
	var once sync.Once
	send := func(res directResult) {
		once.Do(func() { resultCh <- res })
	}

	collector.OnResponse(func(r *colly.Response) {
		send(directResult{
			status: r.StatusCode,
			body:   append([]byte{}, r.Body...),
		})
	})
	collector.OnError(func(r *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		send(directResult{status: status, err: err})
	})

	if err := collector.Visit(ref.URL); err != nil {
		return news.ExtractedContent{}, classifyNetErr(MethodDirect, err)
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		if err := ctx.Err(); err != nil {
			return news.ExtractedContent{}, classifyNetErr(MethodDirect, err)
		}
		return s.parse(res)
	default:
		return news.ExtractedContent{}, news.NewTransientError(MethodDirect, errors.New("fetch produced no result"))
	}
}

func (s *DirectStrategy) parse(res directResult) (news.ExtractedContent, error) {
	if res.err != nil {
		if res.status != 0 {
			if statusErr := classifyStatus(MethodDirect, res.status); statusErr != nil {
				return news.ExtractedContent{}, statusErr
			}
		}
		return news.ExtractedContent{}, classifyNetErr(MethodDirect, res.err)
	}
	if err := classifyStatus(MethodDirect, res.status); err != nil {
		return news.ExtractedContent{}, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.body))
	if err != nil {
		return news.ExtractedContent{}, news.NewStructuralError(MethodDirect, fmt.Errorf("parse html: %w", err))
	}

	doc.Find("script, style, nav, header, footer, aside, form, noscript").Remove()

	title := strings.TrimSpace(doc.Find("title").First().Text())
	text := collectText(doc.Find("article"))
	if text == "" {
		text = collectText(doc.Find("main"))
	}
	if text == "" {
		text = collectText(doc.Find("body"))
	}

	if err := guardContent(MethodDirect, text, s.minChars); err != nil {
		return news.ExtractedContent{}, err
	}
	return news.ExtractedContent{Title: title, Text: text}, nil
}

// collectText joins paragraph-level text under sel, skipping boilerplate
// fragments shorter than a sentence.
func collectText(sel *goquery.Selection) string {
	var parts []string
	sel.Find("p, h1, h2, h3, li").Each(func(_ int, el *goquery.Selection) {
		t := strings.TrimSpace(el.Text())
		if len(t) >= 20 {
			parts = append(parts, t)
		}
	})
	return strings.Join(parts, "\n\n")
}

type directResult struct {
	status int
	body   []byte
	err    error
}
