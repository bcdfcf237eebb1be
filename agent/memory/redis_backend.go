package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackendConfig contains Redis-specific configuration
type RedisBackendConfig struct {
	Addr      string `json:"addr" yaml:"addr"`
	Password  string `json:"password" yaml:"password"`
	DB        int    `json:"db" yaml:"db"`
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix"`
}

// DefaultRedisKeyPrefix is used when RedisBackendConfig.KeyPrefix is empty.
const DefaultRedisKeyPrefix = "uipilot"

// RedisBackend keeps each agent's snapshot as a single JSON value, so the
// document shape matches the file backend byte for byte.
type RedisBackend struct {
	client *redis.Client
	key    string
	owned  bool
}

// NewRedisBackend uses an existing client. Close leaves the client open.
func NewRedisBackend(client *redis.Client, keyPrefix, agentName string) (*RedisBackend, error) {
	if agentName == "" {
		return nil, ErrInvalidName
	}
	return &RedisBackend{
		client: client,
		key:    redisKey(keyPrefix, agentName),
	}, nil
}

// DialRedisBackend connects to Redis and verifies the connection.
func DialRedisBackend(ctx context.Context, cfg RedisBackendConfig, agentName string) (*RedisBackend, error) {
	if agentName == "" {
		return nil, ErrInvalidName
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisBackend{
		client: client,
		key:    redisKey(cfg.KeyPrefix, agentName),
		owned:  true,
	}, nil
}

func redisKey(prefix, agentName string) string {
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	return prefix + ":" + agentName + ":selector_memory"
}

// Key returns the Redis key holding the snapshot.
func (b *RedisBackend) Key() string { return b.key }

// Location implements Backend.
func (b *RedisBackend) Location() string {
	return "redis://" + b.client.Options().Addr + "/" + b.key
}

// Load implements Backend.
func (b *RedisBackend) Load(ctx context.Context) (Snapshot, error) {
	data, err := b.client.Get(ctx, b.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", b.key, err)
	}
	return decodeSnapshot(data)
}

// Save implements Backend.
func (b *RedisBackend) Save(ctx context.Context, snap Snapshot) error {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("failed to encode selector memory: %w", err)
	}
	if err := b.client.Set(ctx, b.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", b.key, err)
	}
	return nil
}

// Close implements Backend.
func (b *RedisBackend) Close() error {
	if !b.owned {
		return nil
	}
	return b.client.Close()
}
