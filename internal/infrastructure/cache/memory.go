// Package cache holds the time-bounded fee store. Staleness is checked
// lazily on read; there is no background sweep, the cost is amortized
// across reads.
package cache

import (
	"sync"
	"time"

	"cryptoquote-service/internal/application"
	"cryptoquote-service/internal/domain"
	infraconfig "cryptoquote-service/internal/infrastructure/config"
)

var _ application.FeeCache = (*Memory)(nil)

type entry struct {
	fee      domain.FeeQuote
	cachedAt time.Time
}

// Memory is the in-process fee cache. Entries for different symbols are
// independent; there is no global invalidation.
type Memory struct {
	ttl   time.Duration
	clock application.Clock

	mu      sync.Mutex
	entries map[string]*entry
}

type MemoryOption func(*Memory)

func WithClock(c application.Clock) MemoryOption {
	return func(m *Memory) { m.clock = c }
}

func NewMemory(ttl time.Duration, opts ...MemoryOption) *Memory {
	if ttl <= 0 {
		ttl = infraconfig.DefaultFeeCacheTTL
	}
	m := &Memory{ttl: ttl, entries: map[string]*entry{}}
	for _, opt := range opts {
		opt(m)
	}
	if m.clock == nil {
		m.clock = application.SystemClock{}
	}
	return m
}

// Get returns the entry for symbol only while it is younger than the TTL.
// Missing and stale entries look the same to the caller: refetch.
func (m *Memory) Get(symbol string) (domain.FeeQuote, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[symbol]
	if !ok {
		return domain.FeeQuote{}, false
	}
	if m.clock.Now().Sub(e.cachedAt) >= m.ttl {
		// Stale entries stay in place until overwritten by a refetch.
		return domain.FeeQuote{}, false
	}
	return e.fee, true
}

// Put stores the fee wholesale and stamps the entry's age.
func (m *Memory) Put(symbol string, fee domain.FeeQuote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[symbol] = &entry{fee: fee, cachedAt: m.clock.Now()}
}

// PatchLive overwrites only the fee percent of an existing entry. The
// entry's age is deliberately untouched: a push update is a best-effort
// patch on top of the polled baseline, not a refresh of it. Missing
// entries are left missing.
func (m *Memory) PatchLive(symbol, feePercent string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[symbol]
	if !ok {
		return
	}
	e.fee.FeePercent = feePercent
}
