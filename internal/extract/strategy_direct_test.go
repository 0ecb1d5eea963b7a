package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moltrus/Crypton/internal/news"
)

const articleHTML = `<!doctype html>
<html>
<head><title>Fed Holds Rates Steady</title></head>
<body>
<nav><a href="/">Home</a></nav>
<article>
<h1>Fed Holds Rates Steady Amid Cooling Inflation</h1>
<p>The Federal Reserve left its benchmark interest rate unchanged on Wednesday, citing continued progress on inflation.</p>
<p>Officials signaled that two cuts remain possible this year if the labor market softens further than expected.</p>
</article>
<footer>Copyright</footer>
</body>
</html>`

func newDirect(t *testing.T) *DirectStrategy {
	t.Helper()
	s, err := NewDirectStrategy("TestAgent", 5*time.Second, 100, nil)
	require.NoError(t, err)
	return s
}

func TestDirectStrategyExtractsArticleText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "TestAgent", r.UserAgent())
		fmt.Fprint(w, articleHTML)
	}))
	defer srv.Close()

	content, err := newDirect(t).Extract(context.Background(), news.ArticleReference{URL: srv.URL + "/story"})
	require.NoError(t, err)

	assert.Equal(t, "Fed Holds Rates Steady", content.Title)
	assert.Contains(t, content.Text, "benchmark interest rate unchanged")
	assert.NotContains(t, content.Text, "Copyright")
}

func TestDirectStrategyRejectsThinPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>Too thin to count as an article.</p></body></html>`)
	}))
	defer srv.Close()

	_, err := newDirect(t).Extract(context.Background(), news.ArticleReference{URL: srv.URL})
	var ee *news.ExtractionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, news.KindStructural, ee.Kind)
}

func TestDirectStrategyClassifiesStatuses(t *testing.T) {
	cases := []struct {
		status int
		kind   news.ErrorKind
	}{
		{http.StatusNotFound, news.KindStructural},
		{http.StatusServiceUnavailable, news.KindTransient},
		{http.StatusTooManyRequests, news.KindTransient},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprint(tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			_, err := newDirect(t).Extract(context.Background(), news.ArticleReference{URL: srv.URL})
			var ee *news.ExtractionError
			require.ErrorAs(t, err, &ee)
			assert.Equal(t, tc.kind, ee.Kind)
		})
	}
}

func TestDirectStrategyFallsBackToBody(t *testing.T) {
	page := `<html><body>` + strings.Repeat("<p>Paragraph outside any article or main wrapper element.</p>", 5) + `</body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	content, err := newDirect(t).Extract(context.Background(), news.ArticleReference{URL: srv.URL})
	require.NoError(t, err)
	assert.Contains(t, content.Text, "outside any article")
}
