package memory

import (
	"context"
	"fmt"
)

// BackendConfig selects and configures a Backend.
type BackendConfig struct {
	// Type is the storage backend type (default: file)
	Type BackendType `json:"type" yaml:"type"`

	// CacheDir is the root directory for the file backend
	CacheDir string `json:"cache_dir" yaml:"cache_dir"`

	// Redis configuration (only used when Type is "redis")
	Redis RedisBackendConfig `json:"redis" yaml:"redis"`

	// SQLiteDSN is the database file (only used when Type is "sql")
	SQLiteDSN string `json:"sqlite_dsn" yaml:"sqlite_dsn"`

	// Mongo configuration (only used when Type is "mongo")
	Mongo MongoBackendConfig `json:"mongo" yaml:"mongo"`
}

// NewBackend creates a Backend for agentName based on the configuration
func NewBackend(ctx context.Context, config BackendConfig, agentName string) (Backend, error) {
	switch config.Type {
	case "", BackendFile:
		dir := config.CacheDir
		if dir == "" {
			dir = DefaultCacheDir
		}
		return NewFileBackend(dir, agentName)
	case BackendRedis:
		return DialRedisBackend(ctx, config.Redis, agentName)
	case BackendSQL:
		if config.SQLiteDSN == "" {
			return nil, fmt.Errorf("sql backend requires sqlite_dsn")
		}
		return OpenSQLiteBackend(config.SQLiteDSN, agentName)
	case BackendMongo:
		return DialMongoBackend(ctx, config.Mongo, agentName)
	default:
		return nil, fmt.Errorf("unsupported selector memory backend: %s", config.Type)
	}
}

// OpenWithBackendConfig builds the configured backend and opens the store on it.
func OpenWithBackendConfig(ctx context.Context, agentName string, config BackendConfig, opts ...Option) (*Store, error) {
	backend, err := NewBackend(ctx, config, agentName)
	if err != nil {
		return nil, err
	}
	store, err := Open(ctx, Config{AgentName: agentName, CacheDir: config.CacheDir},
		append(opts, WithBackend(backend))...)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	return store, nil
}
