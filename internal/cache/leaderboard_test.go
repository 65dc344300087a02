package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/csgames/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLoader struct {
	calls int
	err   error
}

func (l *countingLoader) load(_ context.Context, key LeaderboardKey) ([]models.Profile, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	return []models.Profile{{ID: uuid.New(), DisplayName: key.Sort}}, nil
}

func TestLeaderboardExpiresAfterTTL(t *testing.T) {
	c := NewLeaderboard(time.Minute, 0, nil, nil)
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	l := &countingLoader{}
	key := LeaderboardKey{Timeframe: "all", Sort: "rating"}

	first, err := c.Get(context.Background(), key, l.load)
	require.NoError(t, err)
	second, err := c.Get(context.Background(), key, l.load)
	require.NoError(t, err)
	assert.Equal(t, 1, l.calls)
	assert.Equal(t, first, second)

	now = now.Add(time.Minute)
	_, err = c.Get(context.Background(), key, l.load)
	require.NoError(t, err)
	assert.Equal(t, 2, l.calls)
}

func TestLeaderboardRefreshesAfterHits(t *testing.T) {
	c := NewLeaderboard(time.Hour, 3, nil, nil)
	l := &countingLoader{}
	key := LeaderboardKey{Timeframe: "week", Sort: "wins"}

	for i := 0; i < 3; i++ {
		_, err := c.Get(context.Background(), key, l.load)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, l.calls)
	_, err := c.Get(context.Background(), key, l.load)
	require.NoError(t, err)
	assert.Equal(t, 2, l.calls)
}

func TestLeaderboardKeysAreIndependent(t *testing.T) {
	c := NewLeaderboard(time.Hour, 0, nil, nil)
	l := &countingLoader{}
	a, err := c.Get(context.Background(), LeaderboardKey{"all", "rating"}, l.load)
	require.NoError(t, err)
	b, err := c.Get(context.Background(), LeaderboardKey{"all", "wins"}, l.load)
	require.NoError(t, err)
	assert.Equal(t, 2, l.calls)
	assert.Equal(t, "rating", a[0].DisplayName)
	assert.Equal(t, "wins", b[0].DisplayName)

	c.Invalidate(context.Background())
	_, err = c.Get(context.Background(), LeaderboardKey{"all", "rating"}, l.load)
	require.NoError(t, err)
	assert.Equal(t, 3, l.calls)
}

func TestLeaderboardLoadErrorIsNotCached(t *testing.T) {
	c := NewLeaderboard(time.Hour, 0, nil, nil)
	l := &countingLoader{err: errors.New("db down")}
	key := LeaderboardKey{"all", "rating"}
	_, err := c.Get(context.Background(), key, l.load)
	assert.Error(t, err)

	l.err = nil
	rows, err := c.Get(context.Background(), key, l.load)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 2, l.calls)
}
