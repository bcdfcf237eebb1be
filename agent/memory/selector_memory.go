package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// EMAAlpha is the weight given to the newest outcome in the success rate.
	EMAAlpha = 0.3

	// ConfidenceFloor hides entries whose success rate is at or below it from
	// SelectorsForPage.
	ConfidenceFloor = 0.3

	// DefaultMaxAge is the staleness limit used by CleanOld callers that have no
	// preference of their own.
	DefaultMaxAge = 30 * 24 * time.Hour

	// DefaultCacheDir is used when Config.CacheDir is empty.
	DefaultCacheDir = "./cache"
)

// DaysToMaxAge converts a day count into the duration accepted by CleanOld.
func DaysToMaxAge(days int) time.Duration {
	return time.Duration(days) * 86400 * time.Second
}

// LoadResult tells which path Open took when reading the backend.
type LoadResult int

const (
	// LoadAbsent means nothing was stored yet.
	LoadAbsent LoadResult = iota
	// LoadLoaded means a stored snapshot was read.
	LoadLoaded
	// LoadCorruptRecovered means the stored snapshot was unreadable and the
	// store started empty. The next write replaces it.
	LoadCorruptRecovered
)

func (r LoadResult) String() string {
	switch r {
	case LoadAbsent:
		return "absent"
	case LoadLoaded:
		return "loaded"
	case LoadCorruptRecovered:
		return "corrupt_recovered"
	default:
		return fmt.Sprintf("LoadResult(%d)", int(r))
	}
}

// Observer receives selector memory events. internal/metrics.Collector satisfies it.
type Observer interface {
	ObserveSelectorLookup(agent string, hit bool)
	ObserveSelectorUpdate(agent string, success bool)
}

// Config 选择器记忆配置
type Config struct {
	// AgentName namespaces the memory; required.
	AgentName string `json:"agent_name" yaml:"agent_name"`
	// CacheDir is the root directory of the file backend.
	CacheDir string `json:"cache_dir" yaml:"cache_dir"`
}

// Option customizes a Store.
type Option func(*Store)

// WithBackend replaces the default file backend.
func WithBackend(b Backend) Option {
	return func(s *Store) { s.backend = b }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithObserver attaches an Observer.
func WithObserver(o Observer) Option {
	return func(s *Store) { s.observer = o }
}

// Store is the selector memory of one agent.
//
// Every mutating call writes the complete snapshot to the backend before it
// returns. The mutex only serializes callers inside this process; two processes
// sharing a backend overwrite each other (last write wins).
type Store struct {
	agentName  string
	backend    Backend
	pages      Snapshot
	loadResult LoadResult
	now        func() time.Time
	observer   Observer
	logger     *zap.Logger
	mu         sync.Mutex
}

// Open loads (or initializes) the memory of cfg.AgentName.
// A missing or corrupt snapshot never fails Open; other backend errors do.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	name := strings.TrimSpace(cfg.AgentName)
	if name == "" {
		return nil, ErrInvalidName
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = DefaultCacheDir
	}

	s := &Store{
		agentName: name,
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "selector_memory"), zap.String("agent", name))

	if s.backend == nil {
		fb, err := NewFileBackend(cfg.CacheDir, name)
		if err != nil {
			return nil, err
		}
		s.backend = fb
	}

	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load(ctx context.Context) error {
	snap, err := s.backend.Load(ctx)
	switch {
	case err == nil:
		s.pages = snap
		s.loadResult = LoadLoaded
	case errors.Is(err, ErrNotExist):
		s.pages = Snapshot{}
		s.loadResult = LoadAbsent
	case errors.Is(err, ErrCorrupt):
		s.logger.Warn("selector memory corrupted, starting with empty memory",
			zap.String("location", s.backend.Location()),
			zap.Error(err))
		s.pages = Snapshot{}
		s.loadResult = LoadCorruptRecovered
	default:
		return fmt.Errorf("failed to load selector memory: %w", err)
	}

	s.logger.Debug("selector memory loaded",
		zap.String("result", s.loadResult.String()),
		zap.Int("entries", s.pages.Len()))
	return nil
}

// AgentName returns the namespace of this store.
func (s *Store) AgentName() string { return s.agentName }

// LoadResult reports how the snapshot was obtained at Open.
func (s *Store) LoadResult() LoadResult { return s.loadResult }

// Location describes the backing storage.
func (s *Store) Location() string { return s.backend.Location() }

// GetSelector returns the remembered selector for (page, element).
// A hit refreshes last_accessed and is persisted; a miss returns ok == false.
func (s *Store) GetSelector(ctx context.Context, page, element string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.pages[page][element]
	s.observeLookup(ok)
	if !ok {
		return "", false, nil
	}

	e.LastAccessed = toUnixSeconds(s.now())
	s.pages[page][element] = e
	if err := s.flush(ctx); err != nil {
		return "", false, err
	}
	return e.Selector, true, nil
}

// Entry returns a copy of the stored entry without touching last_accessed.
func (s *Store) Entry(page, element string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.pages[page][element]
	return e, ok
}

// UpdateSelector records the outcome of trying selector for (page, element).
//
// A new key starts at success rate 1 or 0. An existing key moves by the
// exponential moving average with EMAAlpha, gets selector stored as-is (even
// when the attempt failed), and has Uses incremented.
func (s *Store) UpdateSelector(ctx context.Context, page, element, selector string, success bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := toUnixSeconds(s.now())
	elems, ok := s.pages[page]
	if !ok {
		elems = make(map[string]Entry)
		s.pages[page] = elems
	}

	if e, exists := elems[element]; exists {
		e.Selector = selector
		e.SuccessRate = nextSuccessRate(e.emaBase(), success)
		e.rateMissing = false
		e.LastUpdated = now
		e.LastAccessed = now
		e.Uses++
		elems[element] = e
	} else {
		elems[element] = Entry{
			Selector:     selector,
			SuccessRate:  outcome(success),
			LastUpdated:  now,
			LastAccessed: now,
			Uses:         1,
		}
	}

	if s.observer != nil {
		s.observer.ObserveSelectorUpdate(s.agentName, success)
	}
	return s.flush(ctx)
}

// SelectorsForPage returns element -> selector for every entry of page whose
// success rate is strictly above ConfidenceFloor. Entries without a recorded
// rate count as 0. Nothing is modified.
func (s *Store) SelectorsForPage(page string) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string)
	for name, e := range s.pages[page] {
		if e.SuccessRate > ConfidenceFloor {
			out[name] = e.Selector
		}
	}
	return out
}

// Pages returns the page names currently holding entries.
func (s *Store) Pages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	pages := make([]string, 0, len(s.pages))
	for p := range s.pages {
		pages = append(pages, p)
	}
	return pages
}

// Snapshot returns a deep copy of the whole memory.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pages.Clone()
}

// ForgetSelector removes (page, element). Absent keys are a no-op and cause no write.
func (s *Store) ForgetSelector(ctx context.Context, page, element string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	elems, ok := s.pages[page]
	if !ok {
		return nil
	}
	if _, ok := elems[element]; !ok {
		return nil
	}
	delete(elems, element)
	if len(elems) == 0 {
		delete(s.pages, page)
	}
	return s.flush(ctx)
}

// Clear drops every entry of this agent and persists the empty memory.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pages = Snapshot{}
	if err := s.flush(ctx); err != nil {
		return err
	}
	s.logger.Info("selector memory cleared")
	return nil
}

// CleanOld removes entries not accessed within maxAge, then pages left empty.
// It returns the number of entries removed and writes only when that is > 0.
func (s *Store) CleanOld(ctx context.Context, maxAge time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := toUnixSeconds(s.now())
	limit := maxAge.Seconds()
	count := 0

	for page, elems := range s.pages {
		for name, e := range elems {
			if now-e.LastAccessed > limit {
				delete(elems, name)
				count++
			}
		}
		if len(elems) == 0 {
			delete(s.pages, page)
		}
	}

	if count == 0 {
		return 0, nil
	}
	if err := s.flush(ctx); err != nil {
		return count, err
	}
	s.logger.Info("cleaned old selectors", zap.Int("removed", count))
	return count, nil
}

// Close releases backend resources. The in-memory state is already persisted.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) flush(ctx context.Context) error {
	if err := s.backend.Save(ctx, s.pages); err != nil {
		s.logger.Error("failed to persist selector memory",
			zap.String("location", s.backend.Location()),
			zap.Error(err))
		return fmt.Errorf("failed to persist selector memory: %w", err)
	}
	return nil
}

func (s *Store) observeLookup(hit bool) {
	if s.observer != nil {
		s.observer.ObserveSelectorLookup(s.agentName, hit)
	}
}

func outcome(success bool) float64 {
	if success {
		return 1.0
	}
	return 0.0
}

func nextSuccessRate(current float64, success bool) float64 {
	return EMAAlpha*outcome(success) + (1-EMAAlpha)*current
}
