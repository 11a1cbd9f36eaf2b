package ledger

import (
	"sync"
	"time"

	"tokenwatch/internal/config"
	"tokenwatch/internal/models"
)

// Ledger records which (address, tier) pairs have already been notified.
// Entries expire after a per-tier retention window; expiry is lazy on read
// with an opportunistic Sweep, so callers never observe a stale entry.
type Ledger struct {
	mu         sync.Mutex
	mid        map[string]time.Time
	high       map[string]time.Time
	midTTL     time.Duration
	highTTL    time.Duration
	maxEntries int
}

func New(cfg config.LedgerConfig) *Ledger {
	return &Ledger{
		mid:        map[string]time.Time{},
		high:       map[string]time.Time{},
		midTTL:     cfg.MidTTL,
		highTTL:    cfg.HighTTL,
		maxEntries: cfg.MaxEntries,
	}
}

// HasNotified reports whether a live entry exists for the pair. An expired
// entry is removed and reported absent.
func (l *Ledger) HasNotified(addr string, tier models.Tier, now time.Time) bool {
	set, ttl := l.tierSet(tier)
	if set == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	at, ok := set[addr]
	if !ok {
		return false
	}
	if now.Sub(at) > ttl {
		delete(set, addr)
		return false
	}
	return true
}

// Record marks the pair notified. First write wins: a live entry keeps its
// original timestamp, an expired one is re-created at now.
func (l *Ledger) Record(addr string, tier models.Tier, now time.Time) {
	set, ttl := l.tierSet(tier)
	if set == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if at, ok := set[addr]; ok && now.Sub(at) <= ttl {
		return
	}
	set[addr] = now
	l.evictOldestLocked(set)
}

// Promote retires the Mid entry once a token has been notified at High.
// There is no reverse direction.
func (l *Ledger) Promote(addr string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.mid, addr)
}

// Sweep drops every expired entry. Run periodically; correctness does not
// depend on it because reads expire lazily.
func (l *Ledger) Sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for addr, at := range l.mid {
		if now.Sub(at) > l.midTTL {
			delete(l.mid, addr)
		}
	}
	for addr, at := range l.high {
		if now.Sub(at) > l.highTTL {
			delete(l.high, addr)
		}
	}
}

// Sizes returns the live entry counts, for the status endpoint.
func (l *Ledger) Sizes() (mid, high int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.mid), len(l.high)
}

func (l *Ledger) tierSet(tier models.Tier) (map[string]time.Time, time.Duration) {
	switch tier {
	case models.TierMid:
		return l.mid, l.midTTL
	case models.TierHigh:
		return l.high, l.highTTL
	default:
		return nil, 0
	}
}

func (l *Ledger) evictOldestLocked(set map[string]time.Time) {
	if l.maxEntries <= 0 {
		return
	}
	for len(set) > l.maxEntries {
		var oldestAddr string
		var oldestAt time.Time
		for addr, at := range set {
			if oldestAddr == "" || at.Before(oldestAt) {
				oldestAddr = addr
				oldestAt = at
			}
		}
		delete(set, oldestAddr)
	}
}
