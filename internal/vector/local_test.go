package vector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocal(t *testing.T) *LocalStore {
	t.Helper()
	store, err := NewLocalStore("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestLocalStoreUpsertQueryDelete(t *testing.T) {
	store := newLocal(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, []Record{
		{ID: "a#0", Values: []float32{1, 0, 0}, Metadata: map[string]any{"article_id": "a"}},
		{ID: "b#0", Values: []float32{0, 1, 0}, Metadata: map[string]any{"article_id": "b"}},
		{ID: "c#0", Values: []float32{0.9, 0.1, 0}, Metadata: map[string]any{"article_id": "c"}},
	}))

	matches, err := store.Query(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "a#0", matches[0].ID)
	assert.Equal(t, "c#0", matches[1].ID)
	assert.InDelta(t, 1.0, float64(matches[0].Score), 1e-6)
	assert.Equal(t, "a", matches[0].Metadata["article_id"])

	require.NoError(t, store.Delete(ctx, []string{"a#0"}))

	matches, err = store.Query(ctx, []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "c#0", matches[0].ID)
}

func TestLocalStoreUpsertIsIdempotent(t *testing.T) {
	store := newLocal(t)
	ctx := context.Background()

	rec := Record{ID: "a#0", Values: []float32{1, 0}}
	require.NoError(t, store.Upsert(ctx, []Record{rec}))
	require.NoError(t, store.Upsert(ctx, []Record{rec}))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.VectorCount)
	assert.Equal(t, 2, stats.Dimension)
}

func TestLocalStoreDeleteMissingIsNoop(t *testing.T) {
	store := newLocal(t)
	require.NoError(t, store.Delete(context.Background(), []string{"ghost#0"}))
}

func TestLocalStoreEmptyQuery(t *testing.T) {
	store := newLocal(t)
	matches, err := store.Query(context.Background(), []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, float64(cosineSimilarity([]float32{1, 2}, []float32{2, 4})), 1e-6)
	assert.InDelta(t, 0.0, float64(cosineSimilarity([]float32{1, 0}, []float32{0, 1})), 1e-6)
	assert.InDelta(t, -1.0, float64(cosineSimilarity([]float32{1, 0}, []float32{-1, 0})), 1e-6)
	assert.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}
