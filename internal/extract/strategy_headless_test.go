package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/moltrus/Crypton/internal/news"
)

func TestHeadlessStrategyDisabled(t *testing.T) {
	_, err := NewHeadlessStrategy(HeadlessOptions{MaxParallel: 0}, nil)
	if !errors.Is(err, ErrHeadlessDisabled) {
		t.Fatalf("expected ErrHeadlessDisabled, got %v", err)
	}
}

func TestHeadlessStrategyRendersDynamicContent(t *testing.T) {
	para := strings.Repeat("<p>Dynamic markets coverage inserted after page load by script.</p>", 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<!doctype html><html><head><title>SPA Story</title></head><body><script>document.body.innerHTML = '<article>%s</article>';</script></body></html>`, para)
	}))
	defer srv.Close()

	s, err := NewHeadlessStrategy(HeadlessOptions{
		UserAgent:   "TestAgent",
		MaxParallel: 1,
		NavTimeout:  10 * time.Second,
		DomainQPS:   2,
		MinChars:    100,
	}, nil)
	if errors.Is(err, ErrHeadlessDisabled) {
		t.Skip("headless disabled")
	}
	if err != nil {
		t.Skipf("chromedp unavailable: %v", err)
	}
	defer s.Close()

	content, err := s.Extract(context.Background(), news.ArticleReference{URL: srv.URL})
	if err != nil {
		t.Skipf("render failed: %v", err)
	}
	if !strings.Contains(content.Text, "Dynamic markets coverage") {
		t.Fatal("rendered text missing dynamic content")
	}
}
