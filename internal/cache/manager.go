// Package cache provides internal cache management.
// This package is internal and should not be imported by external projects.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var (
	// ErrCacheMiss 缓存未命中错误
	ErrCacheMiss = errors.New("cache miss")

	// ErrClosed 管理器已关闭
	ErrClosed = errors.New("cache manager is closed")
)

// IsCacheMiss 判断是否为缓存未命中错误
func IsCacheMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss)
}

// Config 搜索结果缓存所用的 Redis 连接
type Config struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"password"`
	DB       int    `yaml:"db" json:"db"`

	// 所有键写入为 <KeyPrefix>:<key>
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix"`

	// Set 传入 0 时使用
	DefaultTTL time.Duration `yaml:"default_ttl" json:"default_ttl"`

	MaxRetries int `yaml:"max_retries" json:"max_retries"`
	PoolSize   int `yaml:"pool_size" json:"pool_size"`
}

// DefaultConfig 返回本地 Redis、一小时过期的配置
func DefaultConfig() Config {
	return Config{
		Addr:       "localhost:6379",
		KeyPrefix:  "uipilot:cache",
		DefaultTTL: time.Hour,
		MaxRetries: 3,
		PoolSize:   4,
	}
}

// =============================================================================
// 💾 Manager
// =============================================================================

// Manager 以 JSON 字符串形式保存带前缀、带过期时间的值
type Manager struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// NewManager 连接 Redis；5 秒内 PING 不通时返回错误
func NewManager(config Config, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:       config.Addr,
		Password:   config.Password,
		DB:         config.DB,
		MaxRetries: config.MaxRetries,
		PoolSize:   config.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	m := &Manager{
		rdb:    rdb,
		prefix: config.KeyPrefix,
		ttl:    config.DefaultTTL,
		logger: logger.With(zap.String("component", "cache")),
	}
	m.logger.Debug("cache connected",
		zap.String("addr", config.Addr),
		zap.String("prefix", config.KeyPrefix),
		zap.Duration("default_ttl", config.DefaultTTL),
	)
	return m, nil
}

func (m *Manager) fullKey(k string) string {
	if m.prefix == "" {
		return k
	}
	return m.prefix + ":" + k
}

// use 在读锁内执行 fn，管理器关闭后返回 ErrClosed
func (m *Manager) use(fn func(rdb *redis.Client) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	return fn(m.rdb)
}

// Get 读取原始字符串，不存在时返回 ErrCacheMiss
func (m *Manager) Get(ctx context.Context, key string) (string, error) {
	var val string
	err := m.use(func(rdb *redis.Client) error {
		v, err := rdb.Get(ctx, m.fullKey(key)).Result()
		switch {
		case errors.Is(err, redis.Nil):
			return ErrCacheMiss
		case err != nil:
			m.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
			return fmt.Errorf("cache get failed: %w", err)
		}
		val = v
		return nil
	})
	return val, err
}

// Set 写入原始字符串，ttl 为 0 时使用 DefaultTTL
func (m *Manager) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl == 0 {
		ttl = m.ttl
	}
	return m.use(func(rdb *redis.Client) error {
		if err := rdb.Set(ctx, m.fullKey(key), value, ttl).Err(); err != nil {
			m.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
			return fmt.Errorf("cache set failed: %w", err)
		}
		return nil
	})
}

// GetJSON 读取并解码到 dest
func (m *Manager) GetJSON(ctx context.Context, key string, dest any) error {
	val, err := m.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return nil
}

// SetJSON 编码 value 后写入
func (m *Manager) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return m.Set(ctx, key, string(data), ttl)
}

// Close 断开 Redis，可重复调用
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	return m.rdb.Close()
}
