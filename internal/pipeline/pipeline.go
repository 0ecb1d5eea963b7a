// Package pipeline turns feed references into persisted, sync-enqueued
// articles.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/moltrus/Crypton/internal/extract"
	"github.com/moltrus/Crypton/internal/feed"
	"github.com/moltrus/Crypton/internal/hash"
	"github.com/moltrus/Crypton/internal/metrics"
	"github.com/moltrus/Crypton/internal/news"
)

// MetadataSource supplies feed-level item metadata captured during polling.
type MetadataSource interface {
	Metadata(url string) (feed.ItemMetadata, bool)
}

// ChainRunner is the extraction entry point the pipeline drives.
type ChainRunner interface {
	Run(ctx context.Context, ref news.ArticleReference) (extract.Result, error)
}

// Options tune a Pipeline.
type Options struct {
	Concurrency  int
	SyncStores   []string
	FlushTimeout time.Duration
}

// Pipeline processes a batch of article references: dedup check, extraction
// chain, persistence, ledger bookkeeping, and sync enqueueing. Articles are
// independent; one failing never aborts the batch.
type Pipeline struct {
	dedup    news.DedupStore
	articles news.ArticleStore
	ledger   news.FailureLedger
	statuses news.SyncStore
	chain    ChainRunner
	meta     MetadataSource
	opts     Options
	clock    news.Clock
	logger   *zap.Logger
}

// New builds a Pipeline. meta may be nil when refs carry no feed metadata,
// such as ledger re-extraction runs.
func New(
	dedup news.DedupStore,
	articles news.ArticleStore,
	ledger news.FailureLedger,
	statuses news.SyncStore,
	chain ChainRunner,
	meta MetadataSource,
	opts Options,
	clock news.Clock,
	logger *zap.Logger,
) *Pipeline {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if clock == nil {
		clock = news.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		dedup:    dedup,
		articles: articles,
		ledger:   ledger,
		statuses: statuses,
		chain:    chain,
		meta:     meta,
		opts:     opts,
		clock:    clock,
		logger:   logger,
	}
}

// Run processes refs with a bounded worker pool and returns the batch
// tally. Cancelling ctx stops admission; items already submitted finish,
// with their final writes running on a detached, time-boxed context.
func (p *Pipeline) Run(ctx context.Context, refs []news.ArticleReference) (news.BatchResult, error) {
	pool, err := ants.NewPool(p.opts.Concurrency)
	if err != nil {
		return news.BatchResult{}, fmt.Errorf("worker pool: %w", err)
	}
	defer pool.Release()

	start := p.clock.Now()
	defer func() { metrics.ObserveBatch("ingest", p.clock.Now().Sub(start)) }()

	var (
		mu     sync.Mutex
		result news.BatchResult
		wg     sync.WaitGroup
	)
	record := func(outcome func(*news.BatchResult)) {
		mu.Lock()
		outcome(&result)
		mu.Unlock()
	}

	for _, ref := range refs {
		if ctx.Err() != nil {
			record(func(r *news.BatchResult) { r.Skipped++ })
			continue
		}

		ref := ref
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			metrics.IncActiveWorkers()
			defer metrics.DecActiveWorkers()

			switch p.processSafely(ctx, ref) {
			case outcomeSucceeded:
				record(func(r *news.BatchResult) { r.Succeeded++ })
			case outcomeSkipped:
				record(func(r *news.BatchResult) { r.Skipped++ })
			default:
				record(func(r *news.BatchResult) { r.Failed++ })
			}
		})
		if submitErr != nil {
			wg.Done()
			record(func(r *news.BatchResult) { r.Failed++ })
			p.logger.Error("submit to pool failed", zap.String("url", ref.URL), zap.Error(submitErr))
		}
	}

	wg.Wait()
	p.logger.Info("ingest batch finished",
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

// Reextract re-runs the chain for ledger entries that are due another
// pass. Entries that succeed this time are resolved by the normal path.
func (p *Pipeline) Reextract(ctx context.Context, maxAttempts int, includeStructural bool, limit int) (news.BatchResult, error) {
	entries, err := p.ledger.ListUnresolved(ctx, maxAttempts, includeStructural, limit)
	if err != nil {
		return news.BatchResult{}, fmt.Errorf("list unresolved: %w", err)
	}
	refs := make([]news.ArticleReference, len(entries))
	for i, e := range entries {
		refs[i] = e.Ref
	}
	return p.Run(ctx, refs)
}

type outcome int

const (
	outcomeSucceeded outcome = iota
	outcomeFailed
	outcomeSkipped
)

// processSafely wraps processOne with panic recovery so a misbehaving
// strategy or parser takes down one article, not the batch.
func (p *Pipeline) processSafely(ctx context.Context, ref news.ArticleReference) (out outcome) {
	id := hash.ArticleID(ref.URL)
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("article processing panicked",
				zap.String("url", ref.URL),
				zap.Any("panic", r),
			)
			p.recordFailure(ref, id, []news.MethodAttempt{{
				Method:      "pipeline",
				ErrorKind:   news.KindTransient,
				Message:     fmt.Sprintf("panic: %v", r),
				AttemptedAt: p.clock.Now(),
			}}, true)
			out = outcomeFailed
		}
	}()
	return p.processOne(ctx, ref, id)
}

func (p *Pipeline) processOne(ctx context.Context, ref news.ArticleReference, id string) outcome {
	seen, err := p.dedup.Has(ctx, id)
	if err != nil {
		p.logger.Error("dedup lookup failed", zap.String("url", ref.URL), zap.Error(err))
		metrics.ObserveArticle(ref.SourceName, "error")
		return outcomeFailed
	}
	if seen {
		metrics.ObserveArticle(ref.SourceName, "duplicate")
		return outcomeSkipped
	}

	res, err := p.chain.Run(ctx, ref)
	if err != nil {
		retryable := true
		var trail []news.MethodAttempt
		var chainErr *news.ChainError
		if errors.As(err, &chainErr) {
			trail = chainErr.Trail
			retryable = chainErr.Retryable()
		}
		p.recordFailure(ref, id, trail, retryable)
		metrics.ObserveArticle(ref.SourceName, "failure")
		return outcomeFailed
	}

	article := p.buildArticle(id, ref, res)
	if _, err := p.articles.Save(ctx, article); err != nil {
		p.logger.Error("save article failed", zap.String("id", id), zap.Error(err))
		metrics.ObserveArticle(ref.SourceName, "error")
		return outcomeFailed
	}

	won, err := p.dedup.Mark(ctx, id)
	if err != nil {
		p.logger.Error("dedup mark failed", zap.String("id", id), zap.Error(err))
		metrics.ObserveArticle(ref.SourceName, "error")
		return outcomeFailed
	}
	if !won {
		// Another worker extracted the same URL concurrently; its copy is
		// authoritative and already enqueued.
		metrics.ObserveArticle(ref.SourceName, "duplicate")
		return outcomeSkipped
	}

	flushCtx, cancel := p.flushContext(ctx)
	defer cancel()

	if err := p.ledger.RecordResolved(flushCtx, id); err != nil {
		p.logger.Warn("record resolved failed", zap.String("id", id), zap.Error(err))
	}
	for _, store := range p.opts.SyncStores {
		if err := p.statuses.Enqueue(flushCtx, id, store, article.ContentHash); err != nil {
			p.logger.Error("enqueue sync failed",
				zap.String("id", id),
				zap.String("store", store),
				zap.Error(err),
			)
			metrics.ObserveArticle(ref.SourceName, "error")
			return outcomeFailed
		}
	}

	metrics.ObserveArticle(ref.SourceName, "success")
	return outcomeSucceeded
}

func (p *Pipeline) buildArticle(id string, ref news.ArticleReference, res extract.Result) news.Article {
	title := res.Content.Title
	description := ""
	language := ""
	var publishedAt *time.Time
	if p.meta != nil {
		if meta, ok := p.meta.Metadata(ref.URL); ok {
			if title == "" {
				title = meta.Title
			}
			description = meta.Description
			language = meta.Language
			publishedAt = meta.PublishedAt
		}
	}
	return news.Article{
		ID:               id,
		URL:              ref.URL,
		Domain:           hash.Domain(ref.URL),
		SourceName:       ref.SourceName,
		Title:            title,
		Description:      description,
		RawContent:       res.Content.Text,
		Language:         language,
		WordCount:        len(strings.Fields(res.Content.Text)),
		PublishedAt:      publishedAt,
		ExtractionMethod: res.Method,
		ExtractedAt:      p.clock.Now(),
		ContentHash:      hash.ContentHash(res.Content.Text),
	}
}

// recordFailure writes the ledger entry on a detached context so a batch
// cancelled mid-flight still gets its bookkeeping.
func (p *Pipeline) recordFailure(ref news.ArticleReference, id string, trail []news.MethodAttempt, retryable bool) {
	flushCtx, cancel := p.flushContext(context.Background())
	defer cancel()
	if err := p.ledger.RecordFailure(flushCtx, id, ref, trail, retryable); err != nil {
		p.logger.Error("record failure failed", zap.String("id", id), zap.Error(err))
	}
}

func (p *Pipeline) flushContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if p.opts.FlushTimeout <= 0 {
		return detached, func() {}
	}
	return context.WithTimeout(detached, p.opts.FlushTimeout)
}
