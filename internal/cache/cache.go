// Package cache deduplicates bursty identical upstream queries within a
// short TTL window. Entries are value-immutable once stored; staleness is
// purely time-based and stale entries are read-invisible whether or not they
// have been evicted yet.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/trendpulse/pulsed/config"
)

// Key identifies a cacheable unit of work. Stable under repeated identical
// requests.
type Key struct {
	Kind  string
	Query string
	Limit int
}

func (k Key) String() string { return fmt.Sprintf("%s:%s:%d", k.Kind, k.Query, k.Limit) }

// Store is the query cache shared across concurrent requests. Get returns
// the stored payload only while it is fresher than the TTL. Set overwrites
// unconditionally; last writer wins.
type Store interface {
	Get(ctx context.Context, key Key) ([]byte, bool)
	Set(ctx context.Context, key Key, payload []byte)
}

// NewStore builds the configured cache backend, memory by default.
func NewStore(cfg config.CacheConfig) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(cfg.TTL, cfg.Sweep), nil
	case "redis":
		return NewRedisStore(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB, cfg.TTL), nil
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", cfg.Backend)
	}
}

type entry struct {
	capturedAt time.Time
	payload    []byte
}
