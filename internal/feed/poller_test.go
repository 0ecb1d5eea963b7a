package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/moltrus/Crypton/internal/config"
)

const rssPayload = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Site A</title>
    <item>
      <title>First story</title>
      <link>https://a.example.com/story/1</link>
      <description>summary one</description>
      <pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
    </item>
    <item>
      <title>No link item</title>
    </item>
    <item>
      <title>Second story</title>
      <link>https://a.example.com/story/2</link>
    </item>
  </channel>
</rss>`

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func TestPollEmitsReferencesAndMetadata(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, rssPayload)
	}))
	defer srv.Close()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p := NewPoller(
		[]config.Source{{Name: "siteA", FeedURL: srv.URL}},
		"test-agent",
		fixedClock{now: now},
		zap.NewNop(),
	)

	refs, err := p.Poll(context.Background())
	require.NoError(t, err)
	require.Len(t, refs, 2, "item without a link must be dropped")

	assert.Equal(t, "https://a.example.com/story/1", refs[0].URL)
	assert.Equal(t, "siteA", refs[0].SourceName)
	assert.Equal(t, now, refs[0].DiscoveredAt)

	meta, ok := p.Metadata("https://a.example.com/story/1")
	require.True(t, ok)
	assert.Equal(t, "First story", meta.Title)
	assert.Equal(t, "summary one", meta.Description)
	require.NotNil(t, meta.PublishedAt)
}

func TestPollToleratesSingleSourceFailure(t *testing.T) {
	t.Parallel()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, rssPayload)
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	p := NewPoller(
		[]config.Source{
			{Name: "bad", FeedURL: bad.URL},
			{Name: "good", FeedURL: good.URL},
		},
		"test-agent", nil, nil,
	)

	refs, err := p.Poll(context.Background())
	require.NoError(t, err)
	assert.Len(t, refs, 2)
}

func TestPollFailsWhenAllSourcesFail(t *testing.T) {
	t.Parallel()

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	p := NewPoller([]config.Source{{Name: "bad", FeedURL: bad.URL}}, "test-agent", nil, nil)

	_, err := p.Poll(context.Background())
	assert.Error(t, err)
}
