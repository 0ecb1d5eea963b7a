// Package api exposes the HTTP interface for the ingest service.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/moltrus/Crypton/internal/metrics"
	"github.com/moltrus/Crypton/internal/news"
	"github.com/moltrus/Crypton/internal/vector"
)

// SyncDriver is the slice of the sync coordinator the API drives.
type SyncDriver interface {
	SyncBatch(ctx context.Context, storeName string, maxItems int) (news.SyncResult, error)
	RetryFailed(ctx context.Context, storeName string, maxItems int) (news.SyncResult, error)
	Search(ctx context.Context, storeName, query string, k int) ([]vector.Match, error)
	StoreNames() []string
}

// Options tune the server's handler defaults.
type Options struct {
	MaxExtractAttempts int
	SyncBatchSize      int
	DefaultStore       string
}

// Server wires HTTP handlers to the stores and the sync coordinator.
type Server struct {
	router   chi.Router
	articles news.ArticleStore
	statuses news.SyncStore
	ledger   news.FailureLedger
	sync     SyncDriver
	opts     Options
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	articles news.ArticleStore,
	statuses news.SyncStore,
	ledger news.FailureLedger,
	sync SyncDriver,
	opts Options,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.SyncBatchSize <= 0 {
		opts.SyncBatchSize = 50
	}
	if opts.MaxExtractAttempts <= 0 {
		opts.MaxExtractAttempts = 5
	}
	if opts.DefaultStore == "" {
		opts.DefaultStore = "local"
	}
	s := &Server{
		articles: articles,
		statuses: statuses,
		ledger:   ledger,
		sync:     sync,
		opts:     opts,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/articles/{article_id}", func(r chi.Router) {
			r.Get("/", s.getArticle)
			r.Get("/status", s.getArticleStatus)
		})
		r.Get("/failures", s.listFailures)
		r.Get("/search", s.search)
		r.Route("/sync/{store}", func(r chi.Router) {
			r.Post("/", s.triggerSync)
			r.Post("/retry", s.triggerRetry)
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("panic", rec))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
