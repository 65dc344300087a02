// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jason-s-yu/csgames/internal/config"
	"github.com/jason-s-yu/csgames/internal/models"
	"github.com/redis/go-redis/v9"
)

// Rdb is the global Redis client. Connect it once at application startup.
var Rdb *redis.Client

// DefaultQueueName is the Redis list (queue) the historian drains.
var DefaultQueueName = "csgames_moves"

// ConnectRedis initializes the global Redis client with environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func ConnectRedis() error {
	addr := config.GetEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := config.GetEnvInt("REDIS_DB", 0)

	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// MoveQueue pushes accepted moves onto the historian's Redis list.
type MoveQueue struct {
	rdb   *redis.Client
	queue string
}

// NewMoveQueue returns a queue writer. An empty name uses HISTORIAN_QUEUE_NAME or
// DefaultQueueName.
func NewMoveQueue(rdb *redis.Client, name string) *MoveQueue {
	if name == "" {
		name = config.GetEnv("HISTORIAN_QUEUE_NAME", DefaultQueueName)
	}
	return &MoveQueue{rdb: rdb, queue: name}
}

// Name is the Redis key of the list.
func (q *MoveQueue) Name() string { return q.queue }

// PublishMove serializes the record to JSON, then pushes it to the Redis queue. This
// does not block the calling logic other than a quick network send.
func (q *MoveQueue) PublishMove(ctx context.Context, rec models.MoveRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal MoveRecord: %w", err)
	}
	if err := q.rdb.RPush(ctx, q.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", q.queue, err)
	}
	return nil
}

// Requeue pushes recs back onto the head of the queue in their original order, so the
// next PopMoves returns them first.
func (q *MoveQueue) Requeue(ctx context.Context, recs []models.MoveRecord) error {
	if len(recs) == 0 {
		return nil
	}
	vals := make([]interface{}, 0, len(recs))
	for i := len(recs) - 1; i >= 0; i-- {
		data, err := json.Marshal(recs[i])
		if err != nil {
			return fmt.Errorf("failed to marshal MoveRecord: %w", err)
		}
		vals = append(vals, data)
	}
	if err := q.rdb.LPush(ctx, q.queue, vals...).Err(); err != nil {
		return fmt.Errorf("failed to LPush to Redis list '%s': %w", q.queue, err)
	}
	return nil
}

// PopMoves blocks up to timeout for the first record, then drains up to max-1 more
// without blocking. A timeout with nothing queued returns an empty slice.
func (q *MoveQueue) PopMoves(ctx context.Context, max int, timeout time.Duration) ([]models.MoveRecord, error) {
	res, err := q.rdb.BLPop(ctx, timeout, q.queue).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	raw := []string{res[1]}
	for len(raw) < max {
		v, err := q.rdb.LPop(ctx, q.queue).Result()
		if err == redis.Nil {
			break
		}
		if err != nil {
			return nil, err
		}
		raw = append(raw, v)
	}

	out := make([]models.MoveRecord, 0, len(raw))
	for _, r := range raw {
		var rec models.MoveRecord
		if err := json.Unmarshal([]byte(r), &rec); err != nil {
			// a poisoned entry must not wedge the queue
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
