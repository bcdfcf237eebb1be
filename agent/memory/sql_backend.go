package memory

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/BaSui01/uipilot/internal/database"
)

// selectorRow 是选择器记忆在关系型数据库中的行模型
type selectorRow struct {
	Agent        string  `gorm:"primaryKey;size:128"`
	Page         string  `gorm:"primaryKey;size:255"`
	Element      string  `gorm:"primaryKey;size:255"`
	Selector     string  `gorm:"type:text;not null"`
	// NULL 表示条目从未记录成功率
	SuccessRate  *float64
	LastUpdated  float64 `gorm:"not null"`
	LastAccessed float64 `gorm:"not null;index"`
	Uses         int     `gorm:"not null"`
}

func (selectorRow) TableName() string { return "selector_entries" }

// SQLBackend stores entries as rows keyed by (agent, page, element).
// Save rewrites the agent's rows inside one transaction.
type SQLBackend struct {
	db    *gorm.DB
	agent string
	// pool is set only when the backend opened the database itself.
	pool *database.PoolManager
}

// NewSQLBackend uses an existing gorm handle and migrates the table.
func NewSQLBackend(db *gorm.DB, agentName string) (*SQLBackend, error) {
	if agentName == "" {
		return nil, ErrInvalidName
	}
	if err := db.AutoMigrate(&selectorRow{}); err != nil {
		return nil, fmt.Errorf("failed to auto migrate: %w", err)
	}
	return &SQLBackend{db: db, agent: agentName}, nil
}

// OpenSQLiteBackend opens (or creates) a SQLite database file.
func OpenSQLiteBackend(dsn, agentName string) (*SQLBackend, error) {
	pool, err := database.OpenSQLite(dsn, database.DefaultPoolConfig(), nil)
	if err != nil {
		return nil, err
	}
	b, err := NewSQLBackend(pool.DB(), agentName)
	if err != nil {
		_ = pool.Close()
		return nil, err
	}
	b.pool = pool
	return b, nil
}

// Location implements Backend.
func (b *SQLBackend) Location() string {
	return "sql://" + b.db.Dialector.Name() + "/selector_entries?agent=" + b.agent
}

// Load implements Backend. An agent with no rows is reported as ErrNotExist.
func (b *SQLBackend) Load(ctx context.Context) (Snapshot, error) {
	var rows []selectorRow
	if err := b.db.WithContext(ctx).Where("agent = ?", b.agent).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query selector entries: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNotExist
	}

	snap := Snapshot{}
	for _, r := range rows {
		elems, ok := snap[r.Page]
		if !ok {
			elems = make(map[string]Entry)
			snap[r.Page] = elems
		}
		e := Entry{
			Selector:     r.Selector,
			LastUpdated:  r.LastUpdated,
			LastAccessed: r.LastAccessed,
			Uses:         r.Uses,
			rateMissing:  r.SuccessRate == nil,
		}
		if r.SuccessRate != nil {
			e.SuccessRate = *r.SuccessRate
		}
		elems[r.Element] = e
	}
	return snap, nil
}

// Save implements Backend.
func (b *SQLBackend) Save(ctx context.Context, snap Snapshot) error {
	rows := make([]selectorRow, 0, snap.Len())
	for page, elems := range snap {
		for name, e := range elems {
			row := selectorRow{
				Agent:        b.agent,
				Page:         page,
				Element:      name,
				Selector:     e.Selector,
				LastUpdated:  e.LastUpdated,
				LastAccessed: e.LastAccessed,
				Uses:         e.Uses,
			}
			if e.HasSuccessRate() {
				rate := e.SuccessRate
				row.SuccessRate = &rate
			}
			rows = append(rows, row)
		}
	}

	rewrite := func(tx *gorm.DB) error {
		if err := tx.Where("agent = ?", b.agent).Delete(&selectorRow{}).Error; err != nil {
			return fmt.Errorf("failed to delete selector entries: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to insert selector entries: %w", err)
		}
		return nil
	}

	if b.pool != nil {
		return b.pool.WithTransactionRetry(ctx, rewrite)
	}
	return b.db.WithContext(ctx).Transaction(rewrite)
}

// Close implements Backend.
func (b *SQLBackend) Close() error {
	if b.pool == nil {
		return nil
	}
	return b.pool.Close()
}
