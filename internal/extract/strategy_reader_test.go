package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moltrus/Crypton/internal/news"
)

func TestReaderStrategyPostsAndReturnsText(t *testing.T) {
	body := strings.Repeat("Central banks around the world weighed fresh moves this week. ", 4)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "none", r.Header.Get("X-Retain-Images"))

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://example.com/story", req["url"])

		fmt.Fprint(w, body)
	}))
	defer srv.Close()

	s := NewReaderStrategy(srv.URL, "test-key", 100, nil)
	content, err := s.Extract(context.Background(), news.ArticleReference{URL: "https://example.com/story"})
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSpace(body), content.Text)
}

func TestReaderStrategyRateLimitIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := NewReaderStrategy(srv.URL, "test-key", 100, nil)
	_, err := s.Extract(context.Background(), news.ArticleReference{URL: "https://example.com/story"})

	var ee *news.ExtractionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, news.KindTransient, ee.Kind)
}

func TestReaderStrategyShortResponseIsStructural(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "nothing here")
	}))
	defer srv.Close()

	s := NewReaderStrategy(srv.URL, "test-key", 100, nil)
	_, err := s.Extract(context.Background(), news.ArticleReference{URL: "https://example.com/story"})

	var ee *news.ExtractionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, news.KindStructural, ee.Kind)
}
