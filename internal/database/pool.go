package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ErrPoolClosed 连接池已关闭
var ErrPoolClosed = errors.New("pool is closed")

// PoolConfig 连接池配置
type PoolConfig struct {
	MaxIdleConns    int           `yaml:"max_idle_conns" json:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`

	// 写锁被占用时 SQLite 的等待时间，写入 DSN 的 _pragma=busy_timeout
	BusyTimeout time.Duration `yaml:"busy_timeout" json:"busy_timeout"`

	// WithTransactionRetry 的最多尝试次数
	MaxRetries int `yaml:"max_retries" json:"max_retries"`
}

// DefaultPoolConfig 返回单连接配置，SQLite 同一时间只有一个写者
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxIdleConns:    1,
		MaxOpenConns:    1,
		ConnMaxLifetime: time.Hour,
		BusyTimeout:     5 * time.Second,
		MaxRetries:      3,
	}
}

// =============================================================================
// 🗄️ PoolManager
// =============================================================================

// PoolManager 持有 gorm 连接，并在锁冲突时重试事务
type PoolManager struct {
	db         *gorm.DB
	sqlDB      *sql.DB
	maxRetries int
	logger     *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPoolManager 把 config 应用到 db 的底层 sql.DB
func NewPoolManager(db *gorm.DB, config PoolConfig, logger *zap.Logger) (*PoolManager, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)

	maxRetries := config.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &PoolManager{
		db:         db,
		sqlDB:      sqlDB,
		maxRetries: maxRetries,
		logger:     logger.With(zap.String("component", "db_pool"), zap.String("dialect", db.Dialector.Name())),
	}, nil
}

// OpenSQLite 打开（或创建）SQLite 文件；gorm 日志静默
func OpenSQLite(dsn string, config PoolConfig, logger *zap.Logger) (*PoolManager, error) {
	if dsn == "" {
		return nil, fmt.Errorf("sqlite dsn is required")
	}
	db, err := gorm.Open(sqlite.Open(withBusyTimeout(dsn, config.BusyTimeout)), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", dsn, err)
	}
	pm, err := NewPoolManager(db, config, logger)
	if err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return nil, err
	}
	return pm, nil
}

// withBusyTimeout 追加 _pragma=busy_timeout(ms)；DSN 已指定时原样返回
func withBusyTimeout(dsn string, timeout time.Duration) string {
	if timeout <= 0 || strings.Contains(dsn, "busy_timeout") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout(%d)", dsn, sep, timeout.Milliseconds())
}

// DB 返回 gorm 实例
func (pm *PoolManager) DB() *gorm.DB {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.db
}

// Close 关闭底层连接，可重复调用
func (pm *PoolManager) Close() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.closed {
		return nil
	}
	pm.closed = true
	return pm.sqlDB.Close()
}

// =============================================================================
// 🔄 事务
// =============================================================================

// TransactionFunc 事务回调
type TransactionFunc func(tx *gorm.DB) error

// WithTransaction 在一个事务中执行 fn，fn 返回错误时回滚
func (pm *PoolManager) WithTransaction(ctx context.Context, fn TransactionFunc) error {
	pm.mu.RLock()
	closed, db := pm.closed, pm.db
	pm.mu.RUnlock()
	if closed {
		return ErrPoolClosed
	}
	return db.WithContext(ctx).Transaction(fn)
}

// WithTransactionRetry 与 WithTransaction 相同，但锁冲突时以 50ms 起步的指数退避重试
func (pm *PoolManager) WithTransactionRetry(ctx context.Context, fn TransactionFunc) error {
	var lastErr error
	for attempt := 0; attempt < pm.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After((50 * time.Millisecond) << (attempt - 1)):
			}
		}

		lastErr = pm.WithTransaction(ctx, fn)
		if lastErr == nil || !isRetryableError(lastErr) {
			return lastErr
		}
		pm.logger.Warn("transaction hit a lock, retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", pm.maxRetries),
			zap.Error(lastErr),
		)
	}
	return fmt.Errorf("transaction failed after %d retries: %w", pm.maxRetries, lastErr)
}

// retryableMarkers 出现在锁冲突或连接失效错误中的文本（小写）
var retryableMarkers = []string{
	"database is locked",
	"sqlite_busy",
	"database table is locked",
	"deadlock",
	"bad connection",
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, m := range retryableMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
