// Package syncer drives delivery of extracted articles into vector stores.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/moltrus/Crypton/internal/metrics"
	"github.com/moltrus/Crypton/internal/news"
	"github.com/moltrus/Crypton/internal/vector"
)

// Embedder is the slice of the embedding client the coordinator needs.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Options tune a Coordinator.
type Options struct {
	MaxRetries  int
	BatchSize   int
	MaxWords    int
	MaxChunks   int
	CallTimeout time.Duration
}

// Coordinator moves pending sync rows into their vector stores. Each store
// has its own rows and its own loop; one store failing never blocks another.
type Coordinator struct {
	articles news.ArticleStore
	statuses news.SyncStore
	stores   map[string]vector.Store
	embedder Embedder
	opts     Options
	clock    news.Clock
	logger   *zap.Logger
}

// New builds a Coordinator over the given adapters.
func New(articles news.ArticleStore, statuses news.SyncStore, stores []vector.Store, embedder Embedder, opts Options, clock news.Clock, logger *zap.Logger) *Coordinator {
	byName := make(map[string]vector.Store, len(stores))
	for _, s := range stores {
		byName[s.Name()] = s
	}
	if clock == nil {
		clock = news.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	// The chunk cap doubles as the stale-chunk cleanup horizon, so an
	// unset cap would leave a shortened article's old chunks behind.
	if opts.MaxChunks <= 0 {
		opts.MaxChunks = 16
	}
	return &Coordinator{
		articles: articles,
		statuses: statuses,
		stores:   byName,
		embedder: embedder,
		opts:     opts,
		clock:    clock,
		logger:   logger,
	}
}

// StoreNames lists the configured store names.
func (c *Coordinator) StoreNames() []string {
	names := make([]string, 0, len(c.stores))
	for name := range c.stores {
		names = append(names, name)
	}
	return names
}

// SyncBatch delivers up to maxItems eligible rows to storeName. Rows whose
// content already reached the store are skipped. A status row pointing at a
// missing article is a consistency fault and aborts the batch.
func (c *Coordinator) SyncBatch(ctx context.Context, storeName string, maxItems int) (news.SyncResult, error) {
	return c.run(ctx, storeName, c.opts.MaxRetries, maxItems)
}

// RetryFailed re-drives every failed row for storeName once, ignoring the
// retry ceiling.
func (c *Coordinator) RetryFailed(ctx context.Context, storeName string, maxItems int) (news.SyncResult, error) {
	return c.run(ctx, storeName, 0, maxItems)
}

// SyncAll runs SyncBatch against every configured store. Store failures are
// joined, not short-circuited.
func (c *Coordinator) SyncAll(ctx context.Context, maxItems int) ([]news.SyncResult, error) {
	var (
		results []news.SyncResult
		errs    []error
	)
	for name := range c.stores {
		res, err := c.SyncBatch(ctx, name, maxItems)
		results = append(results, res)
		if err != nil {
			errs = append(errs, fmt.Errorf("store %s: %w", name, err))
		}
	}
	return results, errors.Join(errs...)
}

// Search embeds the query and runs it against the named store.
func (c *Coordinator) Search(ctx context.Context, storeName, query string, k int) ([]vector.Match, error) {
	store, ok := c.stores[storeName]
	if !ok {
		return nil, fmt.Errorf("unknown vector store %q", storeName)
	}
	vec, err := c.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	callCtx, cancel := c.callContext(ctx)
	defer cancel()
	return store.Query(callCtx, vec, k)
}

func (c *Coordinator) run(ctx context.Context, storeName string, maxRetries, maxItems int) (news.SyncResult, error) {
	result := news.SyncResult{Store: storeName}

	store, ok := c.stores[storeName]
	if !ok {
		return result, fmt.Errorf("unknown vector store %q", storeName)
	}

	start := c.clock.Now()
	defer func() { metrics.ObserveBatch("sync", c.clock.Now().Sub(start)) }()

	if maxItems <= 0 {
		maxItems = c.opts.BatchSize
	}
	rows, err := c.statuses.ListSyncable(ctx, storeName, maxRetries, maxItems)
	if err != nil {
		return result, fmt.Errorf("list syncable: %w", err)
	}
	result.Selected = len(rows)

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		article, err := c.articles.Get(ctx, row.ArticleID)
		if errors.Is(err, news.ErrNotFound) {
			return result, &news.ConsistencyError{
				ArticleID: row.ArticleID,
				Detail:    fmt.Sprintf("sync row for store %s references a missing article", storeName),
			}
		}
		if err != nil {
			return result, fmt.Errorf("load article %s: %w", row.ArticleID, err)
		}

		if row.State == news.SyncSynced && row.ContentHash == article.ContentHash {
			result.Skipped++
			metrics.ObserveSync(storeName, "skipped")
			continue
		}

		if err := c.syncOne(ctx, store, article); err != nil {
			result.Failed++
			metrics.ObserveSync(storeName, "failure")
			c.logger.Warn("sync failed",
				zap.String("store", storeName),
				zap.String("article_id", article.ID),
				zap.Error(err),
			)
			if markErr := c.statuses.MarkFailed(ctx, article.ID, storeName, err.Error(), c.clock.Now()); markErr != nil {
				return result, fmt.Errorf("mark failed: %w", markErr)
			}
			continue
		}

		result.Synced++
		metrics.ObserveSync(storeName, "success")
		if err := c.statuses.MarkSynced(ctx, article.ID, storeName, article.ContentHash, c.clock.Now()); err != nil {
			return result, fmt.Errorf("mark synced: %w", err)
		}
	}

	c.logger.Info("sync batch finished",
		zap.String("store", storeName),
		zap.Int("selected", result.Selected),
		zap.Int("synced", result.Synced),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

// syncOne embeds the article's chunks and upserts them, clearing any stale
// higher-numbered chunks left by a longer previous version.
func (c *Coordinator) syncOne(ctx context.Context, store vector.Store, article news.Article) error {
	chunks := vector.ChunkArticle(article, c.opts.MaxWords, c.opts.MaxChunks)
	if len(chunks) == 0 {
		return fmt.Errorf("article %s has no content to embed", article.ID)
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	vectors, err := c.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return err
	}

	records := make([]vector.Record, len(chunks))
	for i, ch := range chunks {
		records[i] = vector.Record{ID: ch.ID, Values: vectors[i], Metadata: ch.Metadata}
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	if err := store.Upsert(callCtx, records); err != nil {
		return err
	}

	if stale := staleChunkIDs(article.ID, len(chunks), c.opts.MaxChunks); len(stale) > 0 {
		if err := store.Delete(callCtx, stale); err != nil {
			return err
		}
	}
	return nil
}

func (c *Coordinator) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opts.CallTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.opts.CallTimeout)
}

func staleChunkIDs(articleID string, from, to int) []string {
	if to <= from {
		return nil
	}
	ids := make([]string, 0, to-from)
	for i := from; i < to; i++ {
		ids = append(ids, fmt.Sprintf("%s#%d", articleID, i))
	}
	return ids
}
