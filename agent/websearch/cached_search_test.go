package websearch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/BaSui01/uipilot/internal/cache"
)

type countingSearcher struct {
	searches int
	contents int
	results  []Result
	err      error
}

func (s *countingSearcher) Search(_ context.Context, _ string, n int) ([]Result, error) {
	s.searches++
	return truncate(s.results, n), s.err
}

func (s *countingSearcher) Content(_ context.Context, url string) (string, error) {
	s.contents++
	if s.err != nil {
		return "", s.err
	}
	return "content of " + url, nil
}

func newTestCache(t *testing.T) (*miniredis.Miniredis, *cache.Manager) {
	t.Helper()
	mr := miniredis.RunT(t)
	cfg := cache.DefaultConfig()
	cfg.Addr = mr.Addr()
	m, err := cache.NewManager(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return mr, m
}

func TestCachedSearch_Search(t *testing.T) {
	_, c := newTestCache(t)
	inner := &countingSearcher{results: []Result{
		{Title: "Go", URL: "https://go.dev"},
		{Title: "Tour", URL: "https://go.dev/tour"},
	}}
	s := NewCachedSearch(inner, c, "llm", time.Hour, zaptest.NewLogger(t))
	ctx := context.Background()

	first, err := s.Search(ctx, "Golang", 2)
	require.NoError(t, err)
	second, err := s.Search(ctx, "  golang ", 2)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.searches)

	// a different n is a different key
	_, err = s.Search(ctx, "golang", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.searches)
}

func TestCachedSearch_ErrorResultsAreNotCached(t *testing.T) {
	_, c := newTestCache(t)
	inner := &countingSearcher{results: ErrorResult("boom")}
	s := NewCachedSearch(inner, c, "llm", time.Hour, nil)

	for i := 0; i < 2; i++ {
		results, err := s.Search(context.Background(), "go", 5)
		require.NoError(t, err)
		assert.Equal(t, "Search error", results[0].Title)
	}
	assert.Equal(t, 2, inner.searches)
}

func TestCachedSearch_Expiry(t *testing.T) {
	mr, c := newTestCache(t)
	inner := &countingSearcher{results: []Result{{Title: "Go"}}}
	s := NewCachedSearch(inner, c, "browser", time.Minute, nil)
	ctx := context.Background()

	_, _ = s.Search(ctx, "go", 5)
	mr.FastForward(2 * time.Minute)
	_, _ = s.Search(ctx, "go", 5)
	assert.Equal(t, 2, inner.searches)
}

func TestCachedSearch_Content(t *testing.T) {
	_, c := newTestCache(t)
	inner := &countingSearcher{}
	s := NewCachedSearch(inner, c, "llm", time.Hour, nil)
	ctx := context.Background()

	text, err := s.Content(ctx, "https://go.dev")
	require.NoError(t, err)
	assert.Equal(t, "content of https://go.dev", text)

	text, err = s.Content(ctx, "https://go.dev")
	require.NoError(t, err)
	assert.Equal(t, "content of https://go.dev", text)
	assert.Equal(t, 1, inner.contents)

	inner.err = errors.New("blocked")
	_, err = s.Content(ctx, "https://evilvideos.com")
	assert.Error(t, err)
}

func TestCachedSearch_CacheDownFallsThrough(t *testing.T) {
	_, c := newTestCache(t)
	require.NoError(t, c.Close())

	inner := &countingSearcher{results: []Result{{Title: "Go"}}}
	s := NewCachedSearch(inner, c, "llm", time.Hour, nil)

	results, err := s.Search(context.Background(), "go", 5)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

type brokenCache struct{ err error }

func (c brokenCache) GetJSON(context.Context, string, any) error { return c.err }

func (c brokenCache) SetJSON(context.Context, string, any, time.Duration) error { return nil }

func TestCachedSearch_ReadErrorsAreLoggedNotMisses(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	inner := &countingSearcher{results: []Result{{Title: "Go"}}}

	missing := NewCachedSearch(inner, brokenCache{err: cache.ErrCacheMiss}, "llm", time.Hour, zap.New(core))
	_, err := missing.Search(context.Background(), "go", 5)
	require.NoError(t, err)
	assert.Equal(t, 0, logs.Len())

	broken := NewCachedSearch(inner, brokenCache{err: errors.New("connection reset")}, "llm", time.Hour, zap.New(core))
	_, err = broken.Search(context.Background(), "go", 5)
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("search cache read failed").Len())
	assert.Equal(t, 2, inner.searches)
}
