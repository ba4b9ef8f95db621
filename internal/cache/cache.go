// Package cache stores polygon sampling results keyed by a deterministic
// polygon fingerprint. An in-memory map serves the running process; an
// optional durable backend carries entries across restarts. The memory tier
// is authoritative for a session, so backend failures are logged and
// swallowed rather than surfaced.
package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/heliomap/solar-cli/internal/model"
)

// Backend is a durable store for fingerprint→radiation entries.
type Backend interface {
	Get(ctx context.Context, fingerprint string) (float64, bool, error)
	Put(ctx context.Context, fingerprint string, value float64) error
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
	Close() error
}

// Cache is the two-tier sample cache. Entries have no TTL; invalidation is
// the explicit Clear operation.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]float64
	backend Backend

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a Cache. backend may be nil for memory-only operation.
func New(backend Backend) *Cache {
	return &Cache{
		entries: make(map[string]float64),
		backend: backend,
	}
}

// Get returns the cached radiation value for a fingerprint. A backend read
// failure counts as a miss.
func (c *Cache) Get(ctx context.Context, fingerprint string) (float64, bool) {
	c.mu.RLock()
	v, ok := c.entries[fingerprint]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		zap.L().Debug("sample cache hit", zap.String("fingerprint", shortKey(fingerprint)))
		return v, true
	}

	if c.backend != nil {
		v, ok, err := c.backend.Get(ctx, fingerprint)
		switch {
		case err != nil:
			zap.L().Warn("sample cache backend read failed", zap.Error(err))
		case ok:
			c.mu.Lock()
			c.entries[fingerprint] = v
			c.mu.Unlock()
			c.hits.Add(1)
			zap.L().Debug("sample cache hit (durable)", zap.String("fingerprint", shortKey(fingerprint)))
			return v, true
		}
	}

	c.misses.Add(1)
	return 0, false
}

// Put stores a value in both tiers. Backend write failures are non-fatal.
func (c *Cache) Put(ctx context.Context, fingerprint string, value float64) {
	c.mu.Lock()
	c.entries[fingerprint] = value
	c.mu.Unlock()

	if c.backend == nil {
		return
	}
	if err := c.backend.Put(ctx, fingerprint, value); err != nil {
		zap.L().Warn("sample cache backend write failed", zap.Error(err))
	}
}

// Clear empties both tiers. The memory tier always clears; a backend failure
// is reported to the caller.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]float64)
	c.mu.Unlock()

	if c.backend == nil {
		return nil
	}
	return c.backend.Clear(ctx)
}

// Len reports the number of in-memory entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Size reports the number of durable entries, falling back to the memory
// tier when no backend is configured.
func (c *Cache) Size(ctx context.Context) (int64, error) {
	if c.backend == nil {
		return int64(c.Len()), nil
	}
	return c.backend.Count(ctx)
}

// Stats reports hit and miss counts since construction.
func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Close releases the backend, if any.
func (c *Cache) Close() error {
	if c.backend == nil {
		return nil
	}
	return c.backend.Close()
}

// Fingerprint derives the cache key for a polygon: vertices at six decimal
// places (≈0.1 m) joined in order, hashed to SHA-256 hex. Vertex order is
// part of the identity; the rounding keeps sub-centimeter jitter from
// splitting entries.
func Fingerprint(p model.Polygon) string {
	var sb strings.Builder
	for i, v := range p {
		if i > 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(strconv.FormatFloat(v.Lat, 'f', 6, 64))
		sb.WriteByte(',')
		sb.WriteString(strconv.FormatFloat(v.Lng, 'f', 6, 64))
	}
	h := sha256.Sum256([]byte(sb.String()))
	return fmt.Sprintf("%x", h)
}

func shortKey(fingerprint string) string {
	if len(fingerprint) > 12 {
		return fingerprint[:12]
	}
	return fingerprint
}
