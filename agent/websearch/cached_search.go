package websearch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/uipilot/internal/cache"
)

// Cache is the key-value store behind CachedSearch. internal/cache.Manager satisfies it.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

// CachedSearch memoizes a Searcher. Cache failures fall through to the wrapped
// Searcher; error results are never stored.
type CachedSearch struct {
	inner     Searcher
	cache     Cache
	namespace string
	ttl       time.Duration
	logger    *zap.Logger
}

// NewCachedSearch wraps inner. namespace keeps providers apart (e.g. "llm", "browser").
func NewCachedSearch(inner Searcher, store Cache, namespace string, ttl time.Duration, logger *zap.Logger) *CachedSearch {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedSearch{
		inner:     inner,
		cache:     store,
		namespace: namespace,
		ttl:       ttl,
		logger:    logger.With(zap.String("component", "search_cache")),
	}
}

// Search implements Searcher.
func (s *CachedSearch) Search(ctx context.Context, query string, n int) ([]Result, error) {
	n = normalizeN(n)
	key := s.key("search", strconv.Itoa(n), strings.ToLower(strings.TrimSpace(query)))

	var cached []Result
	if s.lookup(ctx, key, &cached) {
		s.logger.Debug("search cache hit", zap.String("query", query))
		return cached, nil
	}

	results, err := s.inner.Search(ctx, query, n)
	if err != nil || isErrorResult(results) {
		return results, err
	}
	if err := s.cache.SetJSON(ctx, key, results, s.ttl); err != nil {
		s.logger.Warn("failed to cache search results", zap.Error(err))
	}
	return results, nil
}

// Content implements Searcher.
func (s *CachedSearch) Content(ctx context.Context, url string) (string, error) {
	key := s.key("content", url)

	var cached string
	if s.lookup(ctx, key, &cached) {
		return cached, nil
	}

	text, err := s.inner.Content(ctx, url)
	if err != nil {
		return text, err
	}
	if err := s.cache.SetJSON(ctx, key, text, s.ttl); err != nil {
		s.logger.Warn("failed to cache page content", zap.Error(err))
	}
	return text, nil
}

// lookup reports a hit. Errors other than a miss are logged and treated as a miss.
func (s *CachedSearch) lookup(ctx context.Context, key string, dest any) bool {
	err := s.cache.GetJSON(ctx, key, dest)
	if err == nil {
		return true
	}
	if !cache.IsCacheMiss(err) {
		s.logger.Warn("search cache read failed", zap.String("key", key), zap.Error(err))
	}
	return false
}

func (s *CachedSearch) key(kind string, parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return s.namespace + ":" + kind + ":" + hex.EncodeToString(sum[:16])
}

func isErrorResult(results []Result) bool {
	return len(results) == 1 && results[0].Title == errorResultTitle
}
