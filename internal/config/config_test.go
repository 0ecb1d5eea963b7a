package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Pipeline.Concurrency)
	assert.Equal(t, []string{"local"}, cfg.Sync.Stores)
	assert.Equal(t, 20*time.Second, cfg.ExtractTimeout())
	assert.Equal(t, "rss-feeds", cfg.Vector.Namespace)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9100
pipeline:
  concurrency: 8
sync:
  stores: [local, pinecone]
  max_retries: 5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Pipeline.Concurrency)
	assert.Equal(t, []string{"local", "pinecone"}, cfg.Sync.Stores)
	assert.Equal(t, 5, cfg.Sync.MaxRetries)
}

func TestValidateRejectsUnknownStore(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Sync.Stores = []string{"weaviate"}
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsZeroConcurrency(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Pipeline.Concurrency = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsZeroMaxChunks(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Vector.MaxChunks = 0
	assert.Error(t, cfg.Validate())
}
