// Package feed wraps RSS/Atom polling behind the news.FeedSource contract.
package feed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/moltrus/Crypton/internal/config"
	"github.com/moltrus/Crypton/internal/news"
)

// ItemMetadata carries the feed-level fields the pipeline folds into an
// Article once extraction succeeds: the feed's title, summary and
// publication date for the item's URL.
type ItemMetadata struct {
	Title       string
	Description string
	Language    string
	PublishedAt *time.Time
}

// Poller polls a fixed set of feed sources and emits ArticleReferences.
// Each Poll is finite; the next cycle restarts from the live feed.
type Poller struct {
	sources []config.Source
	parser  *gofeed.Parser
	clock   news.Clock
	logger  *zap.Logger

	lastMeta map[string]ItemMetadata
}

// NewPoller constructs a Poller over the configured sources.
func NewPoller(sources []config.Source, userAgent string, clock news.Clock, logger *zap.Logger) *Poller {
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	if clock == nil {
		clock = news.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		sources:  sources,
		parser:   parser,
		clock:    clock,
		logger:   logger,
		lastMeta: make(map[string]ItemMetadata),
	}
}

// Poll fetches every configured feed once. A single feed's failure does not
// abort the cycle; its items are simply absent until the next poll. The
// per-item feed metadata from this cycle is retrievable via Metadata.
func (p *Poller) Poll(ctx context.Context) ([]news.ArticleReference, error) {
	meta := make(map[string]ItemMetadata)
	var refs []news.ArticleReference
	var failed int
	for _, src := range p.sources {
		items, err := p.pollSource(ctx, src, meta)
		if err != nil {
			if ctx.Err() != nil {
				return refs, ctx.Err()
			}
			failed++
			p.logger.Warn("feed poll failed",
				zap.String("source", src.Name),
				zap.Error(err),
			)
			continue
		}
		refs = append(refs, items...)
	}
	p.lastMeta = meta
	if failed == len(p.sources) && len(p.sources) > 0 {
		return nil, fmt.Errorf("all %d feed sources failed", failed)
	}
	return refs, nil
}

// Metadata returns the feed item metadata for a URL seen in the most
// recent Poll, if any.
func (p *Poller) Metadata(url string) (ItemMetadata, bool) {
	m, ok := p.lastMeta[url]
	return m, ok
}

func (p *Poller) pollSource(ctx context.Context, src config.Source, meta map[string]ItemMetadata) ([]news.ArticleReference, error) {
	parsed, err := p.parser.ParseURLWithContext(src.FeedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", src.FeedURL, err)
	}

	now := p.clock.Now()
	refs := make([]news.ArticleReference, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		link := strings.TrimSpace(item.Link)
		if link == "" {
			continue
		}
		refs = append(refs, news.ArticleReference{
			URL:          link,
			SourceName:   src.Name,
			DiscoveredAt: now,
		})
		meta[link] = ItemMetadata{
			Title:       item.Title,
			Description: item.Description,
			Language:    parsed.Language,
			PublishedAt: item.PublishedParsed,
		}
	}
	p.logger.Debug("feed polled",
		zap.String("source", src.Name),
		zap.Int("items", len(refs)),
	)
	return refs, nil
}
