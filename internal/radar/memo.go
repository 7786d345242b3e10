package radar

import (
	"context"
	"sync"
	"time"

	"github.com/lifesciencesignals/radar/pkg/redis"
)

// SignalMemo remembers drill-downs per (session, account)
type SignalMemo interface {
	Load(ctx context.Context, key string) (*SignalList, bool)
	Store(ctx context.Context, key string, list *SignalList)
}

// RedisMemo keeps drill-downs in the shared Redis cache
type RedisMemo struct {
	cache *redis.Cache
	ttl   time.Duration
}

// NewRedisMemo creates a Redis-backed memo
func NewRedisMemo(cache *redis.Cache, ttl time.Duration) *RedisMemo {
	return &RedisMemo{cache: cache, ttl: ttl}
}

func (m *RedisMemo) Load(ctx context.Context, key string) (*SignalList, bool) {
	var list SignalList
	found, err := m.cache.Get(ctx, key, &list)
	if err != nil || !found {
		return nil, false
	}
	return &list, true
}

func (m *RedisMemo) Store(ctx context.Context, key string, list *SignalList) {
	_ = m.cache.Set(ctx, key, list, m.ttl)
}

type memoEntry struct {
	list     *SignalList
	storedAt time.Time
}

// MemoryMemo is the in-process fallback used when Redis is disabled.
// Expired entries are dropped on Load and swept on Store at most once per ttl.
type MemoryMemo struct {
	mu        sync.Mutex
	entries   map[string]memoEntry
	ttl       time.Duration
	lastSweep time.Time
}

// NewMemoryMemo creates an in-process memo. A zero ttl never expires.
func NewMemoryMemo(ttl time.Duration) *MemoryMemo {
	return &MemoryMemo{
		entries: make(map[string]memoEntry),
		ttl:     ttl,
	}
}

func (m *MemoryMemo) expired(e memoEntry, now time.Time) bool {
	return m.ttl > 0 && now.Sub(e.storedAt) > m.ttl
}

func (m *MemoryMemo) Load(_ context.Context, key string) (*SignalList, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if m.expired(e, time.Now()) {
		delete(m.entries, key)
		return nil, false
	}
	return e.list, true
}

func (m *MemoryMemo) Store(_ context.Context, key string, list *SignalList) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if m.ttl > 0 && now.Sub(m.lastSweep) > m.ttl {
		for k, e := range m.entries {
			if m.expired(e, now) {
				delete(m.entries, k)
			}
		}
		m.lastSweep = now
	}

	m.entries[key] = memoEntry{list: list, storedAt: now}
}

// Len returns the number of memoized drill-downs
func (m *MemoryMemo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// NewSignalMemo picks the Redis memo when the client is enabled
func NewSignalMemo(client *redis.Client, ttl time.Duration) SignalMemo {
	if client != nil && client.Enabled() {
		return NewRedisMemo(redis.NewCache(client, "radar"), ttl)
	}
	return NewMemoryMemo(ttl)
}
