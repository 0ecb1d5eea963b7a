package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moltrus/Crypton/internal/news"
)

const readabilityHTML = `<!doctype html>
<html>
<head><title>Treasury Yields Slip</title></head>
<body>
<div class="sidebar">Trending now: five stories you missed.</div>
<div id="content">
<h1>Treasury Yields Slip After Soft Jobs Report</h1>
<p>Yields on ten year Treasury notes fell sharply on Friday after the monthly employment report came in well below economist forecasts.</p>
<p>Traders moved to price in an earlier start to the easing cycle, with futures now implying a cut at the next policy meeting.</p>
<p>Equity markets initially rallied on the news before giving back gains as recession worries resurfaced through the afternoon session.</p>
</div>
</body>
</html>`

func TestReadabilityStrategyExtracts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "TestAgent", r.UserAgent())
		fmt.Fprint(w, readabilityHTML)
	}))
	defer srv.Close()

	s := NewReadabilityStrategy("TestAgent", 100, nil)
	content, err := s.Extract(context.Background(), news.ArticleReference{URL: srv.URL + "/markets/yields"})
	require.NoError(t, err)

	assert.Contains(t, content.Text, "monthly employment report")
}

func TestReadabilityStrategyStatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	s := NewReadabilityStrategy("TestAgent", 100, nil)
	_, err := s.Extract(context.Background(), news.ArticleReference{URL: srv.URL})

	var ee *news.ExtractionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, news.KindStructural, ee.Kind)
}

func TestReadabilityStrategyRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewReadabilityStrategy("TestAgent", 100, nil)
	_, err := s.Extract(ctx, news.ArticleReference{URL: "http://127.0.0.1:1/unreachable"})

	var ee *news.ExtractionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, news.KindTransient, ee.Kind)
}
