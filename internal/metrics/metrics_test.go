package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestObserveHelpers exercises every helper against the registered
// collectors; a bad label cardinality would panic here.
func TestObserveHelpers(t *testing.T) {
	ObserveArticle("siteA", "succeeded")
	ObserveExtraction("direct", "success", 120*time.Millisecond)
	ObserveSync("local", "failed")
	ObserveBatch("ingest", time.Second)
	IncActiveWorkers()
	DecActiveWorkers()
	ObserveUnresolvedReturned(3)
}

// TestHandlerServesMetrics verifies the promhttp handler exposes our series.
func TestHandlerServesMetrics(t *testing.T) {
	ObserveArticle("siteA", "skipped")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "crypton_articles_total")
}
