package memory

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Common errors
var (
	ErrNotExist    = errors.New("selector memory does not exist")
	ErrCorrupt     = errors.New("selector memory is corrupt")
	ErrInvalidName = errors.New("agent name must not be empty")
)

// MemoryFileName is the per-agent document name inside the cache directory.
const MemoryFileName = "selector_memory.json"

// BackendType names a storage backend.
type BackendType string

const (
	BackendFile  BackendType = "file"
	BackendRedis BackendType = "redis"
	BackendSQL   BackendType = "sql"
	BackendMongo BackendType = "mongo"
)

// Backend persists a whole agent snapshot at once.
//
// Load returns ErrNotExist when nothing was stored yet and an error wrapping
// ErrCorrupt when the stored document cannot be decoded.
type Backend interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
	// Location describes where the snapshot lives, for logs.
	Location() string
	Close() error
}

// FileBackend stores the snapshot as <cache_dir>/<agent>/selector_memory.json.
type FileBackend struct {
	dir  string
	path string
}

// NewFileBackend 创建文件后端，目录不存在时递归创建
func NewFileBackend(cacheDir, agentName string) (*FileBackend, error) {
	if agentName == "" {
		return nil, ErrInvalidName
	}
	dir := filepath.Join(cacheDir, agentName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create selector memory directory: %w", err)
	}
	return &FileBackend{
		dir:  dir,
		path: filepath.Join(dir, MemoryFileName),
	}, nil
}

// Path returns the memory file path.
func (b *FileBackend) Path() string { return b.path }

// Location implements Backend.
func (b *FileBackend) Location() string { return b.path }

// Load implements Backend.
func (b *FileBackend) Load(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", b.path, err)
	}
	return decodeSnapshot(data)
}

// Save implements Backend.
// 原子写: 独占创建临时文件, fsync 后重命名覆盖
func (b *FileBackend) Save(ctx context.Context, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("failed to encode selector memory: %w", err)
	}

	f, err := os.CreateTemp(b.dir, ".selector_memory-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := f.Name()

	if err := writeAndSync(f, data); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, b.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace %s: %w", b.path, err)
	}
	return nil
}

func writeAndSync(f *os.File, data []byte) error {
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write selector memory: %w", err)
	}
	if err := f.Chmod(0644); err != nil {
		f.Close()
		return fmt.Errorf("failed to chmod selector memory: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync selector memory: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close selector memory: %w", err)
	}
	return nil
}

// Close implements Backend. The file backend holds no open handles between writes.
func (b *FileBackend) Close() error { return nil }
