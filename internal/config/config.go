// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	DB       DBConfig       `mapstructure:"db"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Extract  ExtractConfig  `mapstructure:"extract"`
	Headless HeadlessConfig `mapstructure:"headless"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Vector   VectorConfig   `mapstructure:"vector"`
	Sites    SitesConfig    `mapstructure:"sites"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// PipelineConfig governs the ingestion batch pipeline.
type PipelineConfig struct {
	Concurrency        int `mapstructure:"concurrency"`
	MaxExtractAttempts int `mapstructure:"max_extract_attempts"`
	BackoffBaseSec     int `mapstructure:"backoff_base_seconds"`
	BackoffMaxSec      int `mapstructure:"backoff_max_seconds"`
	FlushTimeoutSec    int `mapstructure:"flush_timeout_seconds"`
}

// ExtractConfig configures the extraction strategies.
type ExtractConfig struct {
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
	UserAgent       string `mapstructure:"user_agent"`
	MinContentChars int    `mapstructure:"min_content_chars"`
	ReaderEndpoint  string `mapstructure:"reader_endpoint"`
	ReaderAPIKey    string `mapstructure:"reader_api_key"`
}

// HeadlessConfig configures the headless rendering strategy.
type HeadlessConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	MaxParallel   int     `mapstructure:"max_parallel"`
	NavTimeoutSec int     `mapstructure:"nav_timeout_seconds"`
	DomainQPS     float64 `mapstructure:"domain_qps"`
}

// SyncConfig governs the vector sync coordinator.
type SyncConfig struct {
	Stores         []string `mapstructure:"stores"`
	MaxRetries     int      `mapstructure:"max_retries"`
	BatchSize      int      `mapstructure:"batch_size"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
}

// VectorConfig configures the vector store adapters and the embedder.
type VectorConfig struct {
	EmbeddingHost    string `mapstructure:"embedding_host"`
	EmbeddingAPIKey  string `mapstructure:"embedding_api_key"`
	EmbeddingModel   string `mapstructure:"embedding_model"`
	PineconeHost     string `mapstructure:"pinecone_host"`
	PineconeAPIKey   string `mapstructure:"pinecone_api_key"`
	Namespace        string `mapstructure:"namespace"`
	LocalPath        string `mapstructure:"local_path"`
	MaxWordsPerChunk int    `mapstructure:"max_words_per_chunk"`
	MaxChunks        int    `mapstructure:"max_chunks"`
}

// SitesConfig points at the feeds/site-overrides file.
type SitesConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CRYPTON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("db.max_open_conns", 8)
	v.SetDefault("pipeline.concurrency", 4)
	v.SetDefault("pipeline.max_extract_attempts", 5)
	v.SetDefault("pipeline.backoff_base_seconds", 300)
	v.SetDefault("pipeline.backoff_max_seconds", 86400)
	v.SetDefault("pipeline.flush_timeout_seconds", 10)
	v.SetDefault("extract.timeout_seconds", 20)
	v.SetDefault("extract.user_agent", "crypton-bot/0.1")
	v.SetDefault("extract.min_content_chars", 100)
	v.SetDefault("extract.reader_endpoint", "https://r.jina.ai/")
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("headless.domain_qps", 0.5)
	v.SetDefault("sync.stores", []string{"local"})
	v.SetDefault("sync.max_retries", 3)
	v.SetDefault("sync.batch_size", 50)
	v.SetDefault("sync.timeout_seconds", 30)
	v.SetDefault("vector.embedding_host", "https://api.mistral.ai/v1")
	v.SetDefault("vector.embedding_model", "mistral-embed")
	v.SetDefault("vector.namespace", "rss-feeds")
	v.SetDefault("vector.local_path", "data/vectors")
	v.SetDefault("vector.max_words_per_chunk", 5500)
	v.SetDefault("vector.max_chunks", 16)
	v.SetDefault("sites.path", "sites.yaml")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Pipeline.Concurrency <= 0 {
		return fmt.Errorf("pipeline.concurrency must be > 0")
	}
	if c.Pipeline.MaxExtractAttempts <= 0 {
		return fmt.Errorf("pipeline.max_extract_attempts must be > 0")
	}
	if c.Extract.TimeoutSeconds <= 0 {
		return fmt.Errorf("extract.timeout_seconds must be > 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	if len(c.Sync.Stores) == 0 {
		return fmt.Errorf("sync.stores must name at least one vector store")
	}
	for _, s := range c.Sync.Stores {
		if s != "local" && s != "pinecone" {
			return fmt.Errorf("sync.stores: unknown store %q", s)
		}
	}
	if c.Sync.MaxRetries < 0 {
		return fmt.Errorf("sync.max_retries must be >= 0")
	}
	if c.Vector.MaxWordsPerChunk <= 0 {
		return fmt.Errorf("vector.max_words_per_chunk must be > 0")
	}
	if c.Vector.MaxChunks <= 0 {
		return fmt.Errorf("vector.max_chunks must be > 0")
	}
	return nil
}

// ExtractTimeout returns the per-strategy call timeout.
func (c Config) ExtractTimeout() time.Duration {
	return time.Duration(c.Extract.TimeoutSeconds) * time.Second
}

// SyncTimeout returns the per-adapter call timeout.
func (c Config) SyncTimeout() time.Duration {
	return time.Duration(c.Sync.TimeoutSeconds) * time.Second
}

// FlushTimeout bounds the detached bookkeeping writes of in-flight
// articles during shutdown.
func (c Config) FlushTimeout() time.Duration {
	return time.Duration(c.Pipeline.FlushTimeoutSec) * time.Second
}

// HeadlessNavTimeout returns the headless page navigation timeout.
func (c Config) HeadlessNavTimeout() time.Duration {
	return time.Duration(c.Headless.NavTimeoutSec) * time.Second
}

// BackoffBase returns the first retry delay.
func (c Config) BackoffBase() time.Duration {
	return time.Duration(c.Pipeline.BackoffBaseSec) * time.Second
}

// BackoffCap returns the maximum retry delay.
func (c Config) BackoffCap() time.Duration {
	return time.Duration(c.Pipeline.BackoffMaxSec) * time.Second
}
