package extract

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	readability "github.com/go-shiori/go-readability"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/moltrus/Crypton/internal/hash"
	"github.com/moltrus/Crypton/internal/news"
)

// ErrHeadlessDisabled indicates headless rendering is off in configuration.
var ErrHeadlessDisabled = errors.New("headless extraction disabled")

// HeadlessOptions configures the chromedp-backed strategy.
type HeadlessOptions struct {
	UserAgent   string
	MaxParallel int
	NavTimeout  time.Duration
	DomainQPS   float64
	MinChars    int
}

// HeadlessStrategy renders the page in headless Chrome, then runs
// readability over the settled DOM. It carries the expensive machinery:
// a shared browser, a slot semaphore, and per-domain rate limiters.
type HeadlessStrategy struct {
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	sem             chan struct{}
	navTimeout      time.Duration
	domainQPS       float64
	domainLimiters  sync.Map
	userAgent       string
	minChars        int
	logger          *zap.Logger
}

// NewHeadlessStrategy launches the shared browser. Callers must Close it.
func NewHeadlessStrategy(opts HeadlessOptions, logger *zap.Logger) (*HeadlessStrategy, error) {
	if opts.MaxParallel <= 0 {
		return nil, ErrHeadlessDisabled
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	allocOpts := chromedp.DefaultExecAllocatorOptions[:]
	allocOpts = append(allocOpts,
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.UserAgent(opts.UserAgent),
	)
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocatorCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	return &HeadlessStrategy{
		allocatorCancel: allocatorCancel,
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
		sem:             make(chan struct{}, opts.MaxParallel),
		navTimeout:      opts.NavTimeout,
		domainQPS:       opts.DomainQPS,
		userAgent:       opts.UserAgent,
		minChars:        opts.MinChars,
		logger:          logger,
	}, nil
}

// Close tears down the browser and allocator contexts.
func (s *HeadlessStrategy) Close() error {
	if s == nil {
		return nil
	}
	s.browserCancel()
	s.allocatorCancel()
	return nil
}

// Name implements news.Strategy.
func (s *HeadlessStrategy) Name() string { return MethodHeadless }

// Extract renders ref's URL with JavaScript and extracts readable text
// from the resulting DOM.
func (s *HeadlessStrategy) Extract(ctx context.Context, ref news.ArticleReference) (news.ExtractedContent, error) {
	release, err := s.acquireSlot(ctx)
	if err != nil {
		return news.ExtractedContent{}, news.NewTransientError(MethodHeadless, err)
	}
	defer release()

	if err := s.waitDomainBudget(ctx, ref.URL); err != nil {
		return news.ExtractedContent{}, news.NewTransientError(MethodHeadless, err)
	}

	html, status, err := s.render(ctx, ref.URL)
	if err != nil {
		return news.ExtractedContent{}, classifyNetErr(MethodHeadless, err)
	}
	if status != 0 {
		if statusErr := classifyStatus(MethodHeadless, status); statusErr != nil {
			return news.ExtractedContent{}, statusErr
		}
	}
	return s.parse(ref.URL, html)
}

func (s *HeadlessStrategy) render(ctx context.Context, rawURL string) (html string, status int, err error) {
	tabCtx, cancelTab := chromedp.NewContext(s.browserCtx)
	defer cancelTab()

	taskCtx := tabCtx
	if s.navTimeout > 0 {
		var cancelTask context.CancelFunc
		taskCtx, cancelTask = context.WithTimeout(tabCtx, s.navTimeout)
		defer cancelTask()
	}

	stop := forwardCancel(ctx, cancelTab)
	defer stop()

	var once sync.Once
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok || resp.Type != network.ResourceTypeDocument {
			return
		}
		once.Do(func() { status = int(resp.Response.Status) })
	})

	tasks := chromedp.Tasks{
		network.Enable(),
		emulation.SetUserAgentOverride(s.userAgent),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if runErr := chromedp.Run(taskCtx, tasks); runErr != nil {
		return "", status, fmt.Errorf("chromedp run: %w", runErr)
	}
	return html, status, nil
}

func (s *HeadlessStrategy) parse(rawURL, html string) (news.ExtractedContent, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return news.ExtractedContent{}, news.NewStructuralError(MethodHeadless, fmt.Errorf("parse url: %w", err))
	}
	article, err := readability.FromReader(strings.NewReader(html), pageURL)
	if err != nil {
		return news.ExtractedContent{}, news.NewStructuralError(MethodHeadless, fmt.Errorf("readability: %w", err))
	}
	text := strings.TrimSpace(article.TextContent)
	if err := guardContent(MethodHeadless, text, s.minChars); err != nil {
		return news.ExtractedContent{}, err
	}
	s.logger.Debug("rendered extraction", zap.String("url", rawURL), zap.Int("chars", len(text)))
	return news.ExtractedContent{Title: article.Title, Text: text}, nil
}

func (s *HeadlessStrategy) acquireSlot(ctx context.Context) (func(), error) {
	select {
	case s.sem <- struct{}{}:
		return func() { <-s.sem }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire render slot: %w", ctx.Err())
	}
}

func (s *HeadlessStrategy) waitDomainBudget(ctx context.Context, rawURL string) error {
	if s.domainQPS <= 0 {
		return nil
	}
	host := hash.Domain(rawURL)
	val, _ := s.domainLimiters.LoadOrStore(host, rate.NewLimiter(rate.Limit(s.domainQPS), 1))
	limiter, ok := val.(*rate.Limiter)
	if !ok {
		return fmt.Errorf("unexpected limiter type %T", val)
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait domain limiter: %w", err)
	}
	return nil
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
