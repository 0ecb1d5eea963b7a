// Package app initializes and holds long-lived application services,
// acting as a dependency injection container.
package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/moltrus/Crypton/internal/api"
	"github.com/moltrus/Crypton/internal/config"
	"github.com/moltrus/Crypton/internal/extract"
	"github.com/moltrus/Crypton/internal/feed"
	"github.com/moltrus/Crypton/internal/logging"
	"github.com/moltrus/Crypton/internal/news"
	"github.com/moltrus/Crypton/internal/pipeline"
	"github.com/moltrus/Crypton/internal/storage/postgres"
	"github.com/moltrus/Crypton/internal/syncer"
	"github.com/moltrus/Crypton/internal/vector"
)

// App holds the shared, long-lived services: config, logger, database
// pool, stores, the extraction chain, the pipeline, and the sync
// coordinator. Initialized once at startup; fails fast when a critical
// service cannot come up.
type App struct {
	Cfg         config.Config
	Sites       config.Sites
	Logger      *zap.Logger
	Pool        *pgxpool.Pool
	Dedup       *postgres.DedupStore
	Articles    *postgres.ArticleStore
	Ledger      *postgres.FailureLedger
	Statuses    *postgres.SyncStore
	Poller      *feed.Poller
	Chain       *extract.Chain
	Pipeline    *pipeline.Pipeline
	Coordinator *syncer.Coordinator

	headless   *extract.HeadlessStrategy
	localStore *vector.LocalStore
}

// New builds the full service graph from configuration.
func New(ctx context.Context, cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	sites, err := loadSites(cfg, logger)
	if err != nil {
		return nil, err
	}

	pool, err := postgres.NewPool(ctx, cfg.DB.DSN, int32(cfg.DB.MaxOpenConns))
	if err != nil {
		return nil, err
	}
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	clock := news.SystemClock{}
	a := &App{
		Cfg:      cfg,
		Sites:    sites,
		Logger:   logger,
		Pool:     pool,
		Dedup:    postgres.NewDedupStore(pool),
		Articles: postgres.NewArticleStore(pool),
		Ledger: postgres.NewFailureLedger(pool,
			cfg.BackoffBase(), cfg.BackoffCap(), clock),
		Statuses: postgres.NewSyncStore(pool),
		Poller:   feed.NewPoller(sites.Sources, cfg.Extract.UserAgent, clock, logger),
	}

	strategies, err := a.buildStrategies(logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Chain = extract.NewChain(strategies, sites, cfg.ExtractTimeout(), clock, logging.Named(logger, "extract"))

	stores, embedder, err := a.buildVectorStack(logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Coordinator = syncer.New(a.Articles, a.Statuses, stores, embedder, syncer.Options{
		MaxRetries:  cfg.Sync.MaxRetries,
		BatchSize:   cfg.Sync.BatchSize,
		MaxWords:    cfg.Vector.MaxWordsPerChunk,
		MaxChunks:   cfg.Vector.MaxChunks,
		CallTimeout: cfg.SyncTimeout(),
	}, clock, logging.Named(logger, "syncer"))

	a.Pipeline = pipeline.New(a.Dedup, a.Articles, a.Ledger, a.Statuses, a.Chain, a.Poller,
		pipeline.Options{
			Concurrency:  cfg.Pipeline.Concurrency,
			SyncStores:   cfg.Sync.Stores,
			FlushTimeout: cfg.FlushTimeout(),
		}, clock, logging.Named(logger, "pipeline"))

	return a, nil
}

// Server builds the HTTP server over the app's services.
func (a *App) Server() *api.Server {
	return api.NewServer(a.Articles, a.Statuses, a.Ledger, a.Coordinator, api.Options{
		MaxExtractAttempts: a.Cfg.Pipeline.MaxExtractAttempts,
		SyncBatchSize:      a.Cfg.Sync.BatchSize,
		DefaultStore:       a.Cfg.Sync.Stores[0],
	}, logging.Named(a.Logger, "api"))
}

// Close releases every service the App owns.
func (a *App) Close() {
	if a.headless != nil {
		if err := a.headless.Close(); err != nil {
			a.Logger.Warn("close headless browser", zap.Error(err))
		}
	}
	if a.localStore != nil {
		if err := a.localStore.Close(); err != nil {
			a.Logger.Warn("close local vector store", zap.Error(err))
		}
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
}

func loadSites(cfg config.Config, logger *zap.Logger) (config.Sites, error) {
	sites, err := config.LoadSites(cfg.Sites.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("sites file missing, using defaults", zap.String("path", cfg.Sites.Path))
			return config.ParseSites(nil)
		}
		return config.Sites{}, fmt.Errorf("load sites: %w", err)
	}
	return sites, nil
}

func (a *App) buildStrategies(logger *zap.Logger) ([]news.Strategy, error) {
	cfg := a.Cfg
	log := logging.Named(logger, "extract")

	direct, err := extract.NewDirectStrategy(cfg.Extract.UserAgent, cfg.ExtractTimeout(), cfg.Extract.MinContentChars, log)
	if err != nil {
		return nil, fmt.Errorf("init direct strategy: %w", err)
	}
	strategies := []news.Strategy{
		direct,
		extract.NewReadabilityStrategy(cfg.Extract.UserAgent, cfg.Extract.MinContentChars, log),
	}

	if cfg.Headless.Enabled {
		headless, err := extract.NewHeadlessStrategy(extract.HeadlessOptions{
			UserAgent:   cfg.Extract.UserAgent,
			MaxParallel: cfg.Headless.MaxParallel,
			NavTimeout:  cfg.HeadlessNavTimeout(),
			DomainQPS:   cfg.Headless.DomainQPS,
			MinChars:    cfg.Extract.MinContentChars,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("init headless strategy: %w", err)
		}
		a.headless = headless
		strategies = append(strategies, headless)
	}

	if cfg.Extract.ReaderAPIKey != "" {
		strategies = append(strategies,
			extract.NewReaderStrategy(cfg.Extract.ReaderEndpoint, cfg.Extract.ReaderAPIKey, cfg.Extract.MinContentChars, log))
	}
	return strategies, nil
}

func (a *App) buildVectorStack(logger *zap.Logger) ([]vector.Store, *vector.Embedder, error) {
	cfg := a.Cfg
	log := logging.Named(logger, "vector")

	embedder, err := vector.NewEmbedder(cfg.Vector.EmbeddingHost, cfg.Vector.EmbeddingAPIKey, cfg.Vector.EmbeddingModel, log)
	if err != nil {
		return nil, nil, fmt.Errorf("init embedder: %w", err)
	}

	var stores []vector.Store
	for _, name := range cfg.Sync.Stores {
		switch name {
		case "local":
			local, err := vector.NewLocalStore(cfg.Vector.LocalPath, log)
			if err != nil {
				return nil, nil, fmt.Errorf("init local vector store: %w", err)
			}
			a.localStore = local
			stores = append(stores, local)
		case "pinecone":
			pc, err := vector.NewPineconeStore(cfg.Vector.PineconeHost, cfg.Vector.PineconeAPIKey, cfg.Vector.Namespace, log)
			if err != nil {
				return nil, nil, fmt.Errorf("init pinecone store: %w", err)
			}
			stores = append(stores, pc)
		}
	}
	return stores, embedder, nil
}
