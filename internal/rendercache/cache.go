package rendercache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"clipforge/internal/logging"
	"clipforge/internal/queue"
)

// Entry is one cached pipeline result.
type Entry struct {
	Fingerprint    string                    `json:"fingerprint"`
	Results        map[string]queue.Artifact `json:"results"`
	CreatedAt      time.Time                 `json:"created_at"`
	LastAccessedAt time.Time                 `json:"last_accessed_at"`
	Hits           int64                     `json:"hits"`
}

// Stats summarizes cache effectiveness for introspection endpoints.
type Stats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// Cache provides thread-safe fingerprint-to-result storage with LRU capacity
// eviction. If path is empty the cache is memory-only; otherwise the index is
// persisted as JSON and reloaded on construction.
type Cache struct {
	path       string
	maxEntries int
	ttl        time.Duration
	logger     *slog.Logger

	mu      sync.RWMutex
	entries map[string]*Entry
	hits    int64
	misses  int64
	now     func() time.Time
}

// Option customizes cache construction.
type Option func(*Cache)

// WithClock overrides the time source (used in tests).
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a cache bounded to maxEntries with the given TTL. The cache
// file is created lazily on first Set.
func New(path string, maxEntries int, ttl time.Duration, logger *slog.Logger, opts ...Option) *Cache {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "rendercache")
	if maxEntries < 1 {
		maxEntries = 1
	}

	c := &Cache{
		path:       path,
		maxEntries: maxEntries,
		ttl:        ttl,
		logger:     logger,
		entries:    make(map[string]*Entry),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	if path != "" {
		if err := c.load(); err != nil {
			logger.Warn("failed to load cache index",
				logging.String(logging.FieldEventType, "cache_load_failed"),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "cache will start empty"))
		}
	}
	return c
}

// Get returns the cached results for a fingerprint. Expired entries are
// dropped on access and reported as a miss.
func (c *Cache) Get(fingerprint string) (map[string]queue.Artifact, bool) {
	fingerprint = strings.TrimSpace(fingerprint)
	if fingerprint == "" {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, found := c.entries[fingerprint]
	if !found {
		c.misses++
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(entry.CreatedAt) > c.ttl {
		delete(c.entries, fingerprint)
		c.misses++
		c.persistLocked()
		return nil, false
	}

	entry.Hits++
	entry.LastAccessedAt = c.now()
	c.hits++
	return cloneResults(entry.Results), true
}

// Set stores results under a fingerprint. Writes are idempotent: identical
// inputs produce identical values, so last-writer-wins is acceptable.
func (c *Cache) Set(fingerprint string, results map[string]queue.Artifact) error {
	fingerprint = strings.TrimSpace(fingerprint)
	if fingerprint == "" {
		return errors.New("fingerprint cannot be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.entries[fingerprint] = &Entry{
		Fingerprint:    fingerprint,
		Results:        cloneResults(results),
		CreatedAt:      now,
		LastAccessedAt: now,
	}
	c.evictLocked()

	if err := c.persistLocked(); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}
	return nil
}

// Clear removes every entry.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*Entry)
	if err := c.persistLocked(); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}
	return nil
}

// Stats reports entry count and hit/miss counters.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Entries: len(c.entries),
		Hits:    c.hits,
		Misses:  c.misses,
	}
}

// RemoveExpired drops entries older than the TTL and returns how many were
// removed.
func (c *Cache) RemoveExpired() int {
	if c.ttl <= 0 {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-c.ttl)
	removed := 0
	for fingerprint, entry := range c.entries {
		if entry.CreatedAt.Before(cutoff) {
			delete(c.entries, fingerprint)
			removed++
		}
	}
	if removed > 0 {
		c.persistLocked()
		c.logger.Debug("expired cache entries removed", logging.Int("removed", removed))
	}
	return removed
}

// evictLocked enforces the entry bound, removing least-recently-accessed
// entries first. Caller holds the write lock.
func (c *Cache) evictLocked() {
	if len(c.entries) <= c.maxEntries {
		return
	}

	ordered := make([]*Entry, 0, len(c.entries))
	for _, entry := range c.entries {
		ordered = append(ordered, entry)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].LastAccessedAt.Before(ordered[j].LastAccessedAt)
	})

	excess := len(c.entries) - c.maxEntries
	for _, entry := range ordered[:excess] {
		delete(c.entries, entry.Fingerprint)
	}
	c.logger.Debug("cache capacity enforced",
		logging.Int("evicted", excess),
		logging.Int("remaining", len(c.entries)))
}

// persistLocked writes the index to disk. Persistence failures are reported
// but never stop the in-memory cache from working. Caller holds the write
// lock. Returns nil when no path is configured.
func (c *Cache) persistLocked() error {
	if c.path == "" {
		return nil
	}

	ordered := make([]*Entry, 0, len(c.entries))
	for _, entry := range c.entries {
		ordered = append(ordered, entry)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Fingerprint < ordered[j].Fingerprint
	})

	data, err := json.MarshalIndent(ordered, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache index: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write cache index: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("replace cache index: %w", err)
	}
	return nil
}

func (c *Cache) load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read cache index: %w", err)
	}

	var stored []*Entry
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("parse cache index: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, entry := range stored {
		if entry == nil || strings.TrimSpace(entry.Fingerprint) == "" {
			continue
		}
		c.entries[entry.Fingerprint] = entry
	}
	return nil
}

func cloneResults(results map[string]queue.Artifact) map[string]queue.Artifact {
	if results == nil {
		return nil
	}
	cp := make(map[string]queue.Artifact, len(results))
	for key, artifact := range results {
		cp[key] = artifact
	}
	return cp
}
