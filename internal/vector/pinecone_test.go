package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moltrus/Crypton/internal/news"
)

func newPineconeServer(t *testing.T, handler func(path string, body map[string]any) (int, string)) (*httptest.Server, *PineconeStore) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("Api-Key"))
		assert.Equal(t, http.MethodPost, r.Method)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		status, resp := handler(r.URL.Path, body)
		w.WriteHeader(status)
		fmt.Fprint(w, resp)
	}))
	t.Cleanup(srv.Close)

	store, err := NewPineconeStore(srv.URL, "secret", "rss-feeds", nil)
	require.NoError(t, err)
	return srv, store
}

func TestPineconeUpsert(t *testing.T) {
	_, store := newPineconeServer(t, func(path string, body map[string]any) (int, string) {
		assert.Equal(t, "/vectors/upsert", path)
		assert.Equal(t, "rss-feeds", body["namespace"])
		vectors := body["vectors"].([]any)
		assert.Len(t, vectors, 1)
		first := vectors[0].(map[string]any)
		assert.Equal(t, "v1:abc#0", first["id"])
		return http.StatusOK, `{"upsertedCount":1}`
	})

	err := store.Upsert(context.Background(), []Record{
		{ID: "v1:abc#0", Values: []float32{0.1, 0.2}, Metadata: map[string]any{"article_id": "v1:abc"}},
	})
	require.NoError(t, err)
}

func TestPineconeQuery(t *testing.T) {
	_, store := newPineconeServer(t, func(path string, body map[string]any) (int, string) {
		assert.Equal(t, "/query", path)
		assert.Equal(t, true, body["includeMetadata"])
		assert.EqualValues(t, 3, body["topK"])
		return http.StatusOK, `{"matches":[{"id":"v1:abc#0","score":0.93,"metadata":{"title":"T"}}]}`
	})

	matches, err := store.Query(context.Background(), []float32{0.1, 0.2}, 3)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "v1:abc#0", matches[0].ID)
	assert.InDelta(t, 0.93, float64(matches[0].Score), 1e-6)
	assert.Equal(t, "T", matches[0].Metadata["title"])
}

func TestPineconeDelete(t *testing.T) {
	_, store := newPineconeServer(t, func(path string, body map[string]any) (int, string) {
		assert.Equal(t, "/vectors/delete", path)
		ids := body["ids"].([]any)
		assert.Equal(t, []any{"v1:abc#0", "v1:abc#1"}, ids)
		return http.StatusOK, `{}`
	})

	require.NoError(t, store.Delete(context.Background(), []string{"v1:abc#0", "v1:abc#1"}))
}

func TestPineconeStatsPrefersNamespaceCount(t *testing.T) {
	_, store := newPineconeServer(t, func(path string, body map[string]any) (int, string) {
		assert.Equal(t, "/describe_index_stats", path)
		return http.StatusOK, `{"namespaces":{"rss-feeds":{"vectorCount":42},"other":{"vectorCount":7}},"dimension":1024,"totalVectorCount":49}`
	})

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 42, stats.VectorCount)
	assert.Equal(t, 1024, stats.Dimension)
}

func TestPineconeErrorsWrapAdapterError(t *testing.T) {
	_, store := newPineconeServer(t, func(path string, body map[string]any) (int, string) {
		return http.StatusUnauthorized, `{"message":"bad key"}`
	})

	err := store.Upsert(context.Background(), []Record{{ID: "x", Values: []float32{1}}})
	var ae *news.AdapterError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "pinecone", ae.Store)
	assert.Equal(t, "/vectors/upsert", ae.Op)
	assert.Contains(t, ae.Error(), "401")
}
