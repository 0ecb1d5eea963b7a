// Package extract implements the content extraction chain: an ordered list
// of pluggable strategies tried until one yields usable article text.
package extract

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/moltrus/Crypton/internal/config"
	"github.com/moltrus/Crypton/internal/hash"
	"github.com/moltrus/Crypton/internal/metrics"
	"github.com/moltrus/Crypton/internal/news"
)

// Strategy method names. The sites file refers to strategies by these.
const (
	MethodDirect      = "direct"
	MethodReadability = "readability"
	MethodHeadless    = "headless"
	MethodReader      = "reader"
)

// Result is a successful chain run: the winning content and method plus
// the trail of attempts that failed before it.
type Result struct {
	Content news.ExtractedContent
	Method  string
	Trail   []news.MethodAttempt
}

// Chain runs strategies in site-configured order. It has no persistence
// side effects; recording outcomes is the caller's responsibility.
type Chain struct {
	strategies map[string]news.Strategy
	sites      config.Sites
	timeout    time.Duration
	clock      news.Clock
	logger     *zap.Logger
}

// NewChain builds a Chain over the given strategies. Strategies absent
// from the map (for example headless when disabled) are skipped wherever
// a site order names them.
func NewChain(strategies []news.Strategy, sites config.Sites, timeout time.Duration, clock news.Clock, logger *zap.Logger) *Chain {
	byName := make(map[string]news.Strategy, len(strategies))
	for _, s := range strategies {
		byName[s.Name()] = s
	}
	if clock == nil {
		clock = news.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{
		strategies: byName,
		sites:      sites,
		timeout:    timeout,
		clock:      clock,
		logger:     logger,
	}
}

// Run tries each strategy in order until one succeeds. On total failure it
// returns a *news.ChainError carrying the full attempt trail.
func (c *Chain) Run(ctx context.Context, ref news.ArticleReference) (Result, error) {
	order := c.sites.OrderFor(hash.Domain(ref.URL))

	var trail []news.MethodAttempt
	for _, name := range order {
		strategy, ok := c.strategies[name]
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			trail = append(trail, news.MethodAttempt{
				Method:      name,
				ErrorKind:   news.KindTransient,
				Message:     err.Error(),
				AttemptedAt: c.clock.Now(),
			})
			return Result{}, &news.ChainError{Ref: ref, Trail: trail}
		}

		content, err := c.attempt(ctx, strategy, ref)
		if err == nil {
			c.logger.Debug("extraction succeeded",
				zap.String("url", ref.URL),
				zap.String("method", name),
				zap.Int("chars", len(content.Text)),
			)
			return Result{Content: content, Method: name, Trail: trail}, nil
		}

		kind, msg := classify(err)
		trail = append(trail, news.MethodAttempt{
			Method:      name,
			ErrorKind:   kind,
			Message:     msg,
			AttemptedAt: c.clock.Now(),
		})
		c.logger.Debug("extraction attempt failed",
			zap.String("url", ref.URL),
			zap.String("method", name),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}

	return Result{}, &news.ChainError{Ref: ref, Trail: trail}
}

func (c *Chain) attempt(ctx context.Context, strategy news.Strategy, ref news.ArticleReference) (news.ExtractedContent, error) {
	attemptCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := c.clock.Now()
	content, err := strategy.Extract(attemptCtx, ref)
	elapsed := c.clock.Now().Sub(start)

	outcome := "success"
	if err != nil {
		kind, _ := classify(err)
		outcome = string(kind)
	}
	metrics.ObserveExtraction(strategy.Name(), outcome, elapsed)
	return content, err
}

// classify maps an attempt error to its retry classification. Strategies
// classify their own failures via news.ExtractionError; anything
// unclassified (including timeouts surfacing as context errors) is treated
// as transient, since only a strategy can prove content is absent.
func classify(err error) (news.ErrorKind, string) {
	var ee *news.ExtractionError
	if errors.As(err, &ee) {
		return ee.Kind, ee.Err.Error()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return news.KindTransient, "strategy call timed out"
	}
	return news.KindTransient, err.Error()
}
