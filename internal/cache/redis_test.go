package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/csgames/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(context.Background()).Err())
	return rdb
}

func TestMoveQueueRoundTrip(t *testing.T) {
	rdb := testRedis(t)
	ctx := context.Background()
	q := NewMoveQueue(rdb, "csgames_test_moves_"+uuid.NewString())
	t.Cleanup(func() { rdb.Del(ctx, q.Name()) })

	for i := 1; i <= 3; i++ {
		require.NoError(t, q.PublishMove(ctx, models.MoveRecord{GameID: uuid.New(), MoveIndex: i, Kind: models.KindTicTacToe}))
	}
	require.NoError(t, rdb.RPush(ctx, q.Name(), "{not json").Err())

	recs, err := q.PopMoves(ctx, 10, time.Second)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, 1, recs[0].MoveIndex)
	assert.Equal(t, 3, recs[2].MoveIndex)

	recs, err = q.PopMoves(ctx, 10, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestMoveQueueRequeueGoesFirst(t *testing.T) {
	rdb := testRedis(t)
	ctx := context.Background()
	q := NewMoveQueue(rdb, "csgames_test_moves_"+uuid.NewString())
	t.Cleanup(func() { rdb.Del(ctx, q.Name()) })

	require.NoError(t, q.PublishMove(ctx, models.MoveRecord{GameID: uuid.New(), MoveIndex: 9}))
	back := []models.MoveRecord{{GameID: uuid.New(), MoveIndex: 1}, {GameID: uuid.New(), MoveIndex: 2}}
	require.NoError(t, q.Requeue(ctx, back))

	recs, err := q.PopMoves(ctx, 10, time.Second)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, []int{1, 2, 9}, []int{recs[0].MoveIndex, recs[1].MoveIndex, recs[2].MoveIndex})
}

func TestLeaderboardSharedThroughRedis(t *testing.T) {
	rdb := testRedis(t)
	ctx := context.Background()
	key := LeaderboardKey{Timeframe: "test-" + uuid.NewString(), Sort: "rating"}
	t.Cleanup(func() { rdb.Del(ctx, key.redisKey()) })

	a := NewLeaderboard(time.Minute, 0, rdb, nil)
	b := NewLeaderboard(time.Minute, 0, rdb, nil)
	l := &countingLoader{}

	_, err := a.Get(ctx, key, l.load)
	require.NoError(t, err)
	_, err = b.Get(ctx, key, l.load)
	require.NoError(t, err)
	assert.Equal(t, 1, l.calls, "second instance reads the shared entry")
}

func TestInvalidateFromAnotherInstance(t *testing.T) {
	rdb := testRedis(t)
	ctx := context.Background()
	key := LeaderboardKey{Timeframe: "week", Sort: "wins"}
	rdb.Del(ctx, key.redisKey())
	t.Cleanup(func() { rdb.Del(ctx, key.redisKey()) })

	server := NewLeaderboard(time.Minute, 0, rdb, nil)
	historian := NewLeaderboard(time.Minute, 0, rdb, nil)
	l := &countingLoader{}

	_, err := server.Get(ctx, key, l.load)
	require.NoError(t, err)
	historian.Invalidate(ctx)

	n, err := rdb.Exists(ctx, key.redisKey()).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
}
