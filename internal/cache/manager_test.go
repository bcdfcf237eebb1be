package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// =============================================================================
// 🧪 Manager 测试
// =============================================================================

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Manager) {
	t.Helper()
	mr := miniredis.RunT(t)

	config := DefaultConfig()
	config.Addr = mr.Addr()
	config.DefaultTTL = time.Minute

	manager, err := NewManager(config, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Close() })

	return mr, manager
}

func TestManager_SetAndGet_UsesPrefix(t *testing.T) {
	mr, manager := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, manager.Set(ctx, "search:go", "cached", time.Minute))

	value, err := manager.Get(ctx, "search:go")
	require.NoError(t, err)
	assert.Equal(t, "cached", value)

	raw, err := mr.Get("uipilot:cache:search:go")
	require.NoError(t, err)
	assert.Equal(t, "cached", raw)
}

func TestManager_Miss(t *testing.T) {
	_, manager := setupTestRedis(t)

	value, err := manager.Get(context.Background(), "non-existent")
	assert.True(t, IsCacheMiss(err))
	assert.Equal(t, "", value)

	var result []string
	assert.True(t, IsCacheMiss(manager.GetJSON(context.Background(), "non-existent", &result)))
}

func TestManager_DefaultTTL(t *testing.T) {
	mr, manager := setupTestRedis(t)

	require.NoError(t, manager.Set(context.Background(), "k", "v", 0))
	assert.Equal(t, time.Minute, mr.TTL("uipilot:cache:k"))

	mr.FastForward(2 * time.Minute)
	_, err := manager.Get(context.Background(), "k")
	assert.True(t, IsCacheMiss(err))
}

func TestManager_JSON(t *testing.T) {
	_, manager := setupTestRedis(t)
	ctx := context.Background()

	type result struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	}
	in := []result{{Title: "Go", URL: "https://go.dev"}}
	require.NoError(t, manager.SetJSON(ctx, "results", in, time.Minute))

	var out []result
	require.NoError(t, manager.GetJSON(ctx, "results", &out))
	assert.Equal(t, in, out)

	assert.Error(t, manager.SetJSON(ctx, "bad", make(chan int), time.Minute))

	require.NoError(t, manager.Set(ctx, "not-json", "nope", time.Minute))
	err := manager.GetJSON(ctx, "not-json", &out)
	assert.Error(t, err)
	assert.False(t, IsCacheMiss(err))
}

func TestManager_Closed(t *testing.T) {
	_, manager := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, manager.Close())
	assert.NoError(t, manager.Close())

	_, err := manager.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, manager.Set(ctx, "a", "1", 0), ErrClosed)
	assert.False(t, IsCacheMiss(err))
}

func TestNewManager_Unreachable(t *testing.T) {
	config := DefaultConfig()
	config.Addr = "127.0.0.1:1"

	manager, err := NewManager(config, nil)
	assert.Nil(t, manager)
	assert.Error(t, err)
}
