package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/moltrus/Crypton/internal/news"
)

func (s *Server) getArticle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "article_id")
	article, err := s.articles.Get(r.Context(), id)
	if errors.Is(err, news.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "article not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load article")
		return
	}
	statuses, err := s.statuses.ListByArticle(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load sync status")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"article": article,
		"sync":    statuses,
	})
}

func (s *Server) getArticleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "article_id")
	statuses, err := s.statuses.ListByArticle(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to load sync status")
		return
	}
	if len(statuses) == 0 {
		s.writeError(w, http.StatusNotFound, "no sync status for article")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"sync": statuses})
}

func (s *Server) listFailures(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	includeStructural := queryBool(r, "include_structural")

	failures, err := s.ledger.ListUnresolved(r.Context(), s.opts.MaxExtractAttempts, includeStructural, limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to list failures")
		return
	}
	if failures == nil {
		failures = []news.FailedExtraction{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"failures": failures})
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		s.writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	k := queryInt(r, "k", 10)
	store := r.URL.Query().Get("store")
	if store == "" {
		store = s.opts.DefaultStore
	}

	matches, err := s.sync.Search(r.Context(), store, query, k)
	if err != nil {
		if strings.Contains(err.Error(), "unknown vector store") {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		s.logger.Error("search failed", zap.String("store", store), zap.Error(err))
		s.writeError(w, http.StatusBadGateway, "search failed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"store": store, "matches": matches})
}

func (s *Server) triggerSync(w http.ResponseWriter, r *http.Request) {
	s.runSync(w, r, s.sync.SyncBatch)
}

func (s *Server) triggerRetry(w http.ResponseWriter, r *http.Request) {
	s.runSync(w, r, s.sync.RetryFailed)
}

func (s *Server) runSync(w http.ResponseWriter, r *http.Request, drive func(ctx context.Context, storeName string, maxItems int) (news.SyncResult, error)) {
	store := chi.URLParam(r, "store")
	result, err := drive(r.Context(), store, queryInt(r, "max_items", s.opts.SyncBatchSize))
	if err != nil {
		if strings.Contains(err.Error(), "unknown vector store") {
			s.writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if news.IsConsistency(err) {
			s.logger.Error("sync consistency fault", zap.String("store", store), zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.logger.Error("sync run failed", zap.String("store", store), zap.Error(err))
		s.writeError(w, http.StatusBadGateway, "sync run failed")
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func queryBool(r *http.Request, key string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(key))
	return err == nil && v
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
