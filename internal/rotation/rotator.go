package rotation

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// KeySource yields the credential to attach to discovery-feed requests.
type KeySource interface {
	Current() string
}

// Rotator spreads request load over a pool of equivalent API keys. The day
// is split into fixed slices; every call within a slice sees the same key.
// The key order is a permutation reshuffled once per UTC day, seeded from
// the day start so a restart mid-day lands on the same assignment.
type Rotator struct {
	keys  []string
	slice time.Duration
	now   func() time.Time

	mu    sync.Mutex
	day   time.Time
	order []int
}

func New(keys []string, slice time.Duration, now func() time.Time) (*Rotator, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("rotation: empty key pool")
	}
	if slice <= 0 {
		slice = 4 * time.Hour
	}
	if now == nil {
		now = time.Now
	}
	return &Rotator{keys: keys, slice: slice, now: now}, nil
}

func (r *Rotator) Current() string {
	ts := r.now().UTC()
	day := ts.Truncate(24 * time.Hour)

	r.mu.Lock()
	defer r.mu.Unlock()

	if !day.Equal(r.day) {
		r.day = day
		r.order = shuffledOrder(len(r.keys), day.UnixNano())
	}

	idx := int(ts.Sub(day)/r.slice) % len(r.order)
	return r.keys[r.order[idx]]
}

func shuffledOrder(n int, seed int64) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(n, func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})
	return order
}
