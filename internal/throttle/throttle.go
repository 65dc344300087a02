// internal/throttle/throttle.go
package throttle

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Keyed hands out one token bucket per user. Buckets untouched for longer than the
// idle window are dropped on a later Allow, so the map tracks active users only.
type Keyed struct {
	mu        sync.Mutex
	every     time.Duration
	burst     int
	idle      time.Duration
	limiters  map[uuid.UUID]*entry
	lastSweep time.Time
	now       func() time.Time
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewKeyed allows burst events at once per user, refilled one every interval.
func NewKeyed(every time.Duration, burst int) *Keyed {
	// a bucket idle this long has refilled completely, so forgetting it changes nothing
	idle := every * time.Duration(burst)
	if idle < time.Minute {
		idle = time.Minute
	}
	return &Keyed{
		every:    every,
		burst:    burst,
		idle:     idle,
		limiters: make(map[uuid.UUID]*entry),
		now:      time.Now,
	}
}

// Allow reports whether id may act now and consumes a token if so.
func (k *Keyed) Allow(id uuid.UUID) bool {
	if k == nil {
		return true
	}
	k.mu.Lock()
	now := k.now()
	if now.Sub(k.lastSweep) >= k.idle {
		k.sweep(now)
	}
	e, ok := k.limiters[id]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rate.Every(k.every), k.burst)}
		k.limiters[id] = e
	}
	e.lastSeen = now
	k.mu.Unlock()
	return e.limiter.AllowN(now, 1)
}

// Len is the number of buckets currently held.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.limiters)
}

func (k *Keyed) sweep(now time.Time) {
	for id, e := range k.limiters {
		if now.Sub(e.lastSeen) >= k.idle {
			delete(k.limiters, id)
		}
	}
	k.lastSweep = now
}
