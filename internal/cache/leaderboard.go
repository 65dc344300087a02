// internal/cache/leaderboard.go
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jason-s-yu/csgames/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// LeaderboardKey selects one leaderboard view.
type LeaderboardKey struct {
	Timeframe string // "all", "week" or "month"
	Sort      string // "rating", "wins" or "games"
}

func (k LeaderboardKey) redisKey() string {
	return "csgames:leaderboard:" + k.Timeframe + ":" + k.Sort
}

var (
	knownTimeframes = []string{"all", "week", "month"}
	knownSorts      = []string{"rating", "wins", "games"}
)

// Entry is one cached leaderboard.
type Entry struct {
	Value    []models.Profile `json:"value"`
	Expiry   time.Time        `json:"expiry"`
	HitCount int              `json:"hit_count"`
}

// Loader computes a leaderboard from the store.
type Loader func(ctx context.Context, key LeaderboardKey) ([]models.Profile, error)

// Leaderboard caches leaderboard reads. An entry is reloaded once it expires or has
// been served MaxHits times. With a Redis client, loaded entries are shared with other
// instances for the remainder of their TTL.
type Leaderboard struct {
	TTL     time.Duration
	MaxHits int

	rdb    *redis.Client
	logger *logrus.Logger
	now    func() time.Time

	mu      sync.Mutex
	entries map[LeaderboardKey]*Entry
}

// NewLeaderboard builds a cache. rdb may be nil.
func NewLeaderboard(ttl time.Duration, maxHits int, rdb *redis.Client, logger *logrus.Logger) *Leaderboard {
	return &Leaderboard{
		TTL:     ttl,
		MaxHits: maxHits,
		rdb:     rdb,
		logger:  logger,
		now:     time.Now,
		entries: make(map[LeaderboardKey]*Entry),
	}
}

// Get returns the cached leaderboard for key, calling load when the entry is missing
// or stale.
func (c *Leaderboard) Get(ctx context.Context, key LeaderboardKey, load Loader) ([]models.Profile, error) {
	now := c.now()
	c.mu.Lock()
	if e, ok := c.entries[key]; ok && c.fresh(e, now) {
		e.HitCount++
		out := e.Value
		c.mu.Unlock()
		return out, nil
	}
	c.mu.Unlock()

	if e := c.fromRedis(ctx, key, now); e != nil {
		c.mu.Lock()
		c.entries[key] = e
		c.mu.Unlock()
		return e.Value, nil
	}

	rows, err := load(ctx, key)
	if err != nil {
		return nil, err
	}
	e := &Entry{Value: rows, Expiry: now.Add(c.TTL), HitCount: 1}
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	c.toRedis(ctx, key, e)
	return rows, nil
}

// Invalidate drops every cached entry locally, and every known view in Redis including
// ones this instance never loaded.
func (c *Leaderboard) Invalidate(ctx context.Context) {
	c.mu.Lock()
	seen := make(map[string]bool)
	for k := range c.entries {
		seen[k.redisKey()] = true
	}
	c.entries = make(map[LeaderboardKey]*Entry)
	c.mu.Unlock()

	for _, tf := range knownTimeframes {
		for _, by := range knownSorts {
			seen[LeaderboardKey{Timeframe: tf, Sort: by}.redisKey()] = true
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}

	if c.rdb != nil && len(keys) > 0 {
		if err := c.rdb.Del(ctx, keys...).Err(); err != nil && c.logger != nil {
			c.logger.Warnf("leaderboard cache: redis del failed: %v", err)
		}
	}
}

func (c *Leaderboard) fresh(e *Entry, now time.Time) bool {
	if !now.Before(e.Expiry) {
		return false
	}
	return c.MaxHits <= 0 || e.HitCount < c.MaxHits
}

func (c *Leaderboard) fromRedis(ctx context.Context, key LeaderboardKey, now time.Time) *Entry {
	if c.rdb == nil {
		return nil
	}
	b, err := c.rdb.Get(ctx, key.redisKey()).Bytes()
	if err != nil {
		if err != redis.Nil && c.logger != nil {
			c.logger.Warnf("leaderboard cache: redis get failed: %v", err)
		}
		return nil
	}
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil || !now.Before(e.Expiry) {
		return nil
	}
	// hits are counted per instance
	e.HitCount = 1
	return &e
}

func (c *Leaderboard) toRedis(ctx context.Context, key LeaderboardKey, e *Entry) {
	if c.rdb == nil {
		return
	}
	b, err := json.Marshal(e)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key.redisKey(), b, c.TTL).Err(); err != nil && c.logger != nil {
		c.logger.Warnf("leaderboard cache: redis set failed: %v", err)
	}
}
