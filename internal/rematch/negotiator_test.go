package rematch

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/csgames/internal/game"
	"github.com/jason-s-yu/csgames/internal/models"
	"github.com/jason-s-yu/csgames/internal/realtime"
	"github.com/jason-s-yu/csgames/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	st  *store.MemoryStore
	reg *game.Registry
	neg *Negotiator
	hub *realtime.Hub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	hub := realtime.NewHub(logger)
	st := store.NewMemoryStore(hub, logger)
	reg := game.DefaultRegistry()
	return &fixture{st: st, reg: reg, neg: NewNegotiator(st, reg, logger), hub: hub}
}

// finishedGame seeds a lobby whose game has already ended.
func (f *fixture) finishedGame(t *testing.T, kind models.GameKind, p1 uuid.UUID, p2 *uuid.UUID) *models.GameState {
	t.Helper()
	ctx := context.Background()
	lobby := &models.Lobby{ID: uuid.New(), CreatorID: p1, GameID: kind}
	gs, err := f.reg.NewGameState(kind, lobby.ID, p1, p2)
	require.NoError(t, err)
	require.NoError(t, f.st.CreateLobbyWithGameState(ctx, lobby, gs))
	done, err := f.st.UpdateGameState(ctx, gs.ID, func(cur *models.GameState) (*models.GameState, error) {
		cur.Status = models.GameFinished
		cur.Winner = &p1
		return cur, nil
	})
	require.NoError(t, err)
	return done
}

func requireReason(t *testing.T, err error, reason models.RejectReason) {
	t.Helper()
	var rej *models.Rejection
	require.True(t, errors.As(err, &rej), "expected rejection %s, got %v", reason, err)
	assert.Equal(t, reason, rej.Reason)
}

func TestRematchIdempotence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()
	orig := f.finishedGame(t, models.KindTicTacToe, a, &b)

	req, err := f.neg.RequestRematch(ctx, orig.ID, orig.LobbyID, a)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a}, req.RequestedBy)
	assert.Nil(t, req.NewGameID)

	req, err = f.neg.RequestRematch(ctx, orig.ID, orig.LobbyID, a)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a}, req.RequestedBy)
	assert.Nil(t, req.NewGameID)

	cur, err := f.st.GetGameStateByLobby(ctx, orig.LobbyID)
	require.NoError(t, err)
	assert.Equal(t, orig.ID, cur.ID, "no new game yet")
}

func TestRematchCompletionSwapsSeats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()
	orig := f.finishedGame(t, models.KindConnectFour, a, &b)

	_, err := f.neg.RequestRematch(ctx, orig.ID, uuid.Nil, a)
	require.NoError(t, err)
	req, err := f.neg.RequestRematch(ctx, orig.ID, orig.LobbyID, b)
	require.NoError(t, err)
	require.NotNil(t, req.NewGameID)
	assert.ElementsMatch(t, []uuid.UUID{a, b}, req.RequestedBy)

	next, err := f.st.GetGameState(ctx, *req.NewGameID)
	require.NoError(t, err)
	assert.Equal(t, orig.LobbyID, next.LobbyID)
	assert.Equal(t, b, next.Player1)
	require.NotNil(t, next.Player2)
	assert.Equal(t, a, *next.Player2)
	assert.Equal(t, b, next.CurrentPlayer)
	assert.Equal(t, models.GamePlaying, next.Status)
	assert.Zero(t, next.MoveCount)
	assert.False(t, next.Extensions.Gravity.Flipped)

	// later calls leave the request alone
	again, err := f.neg.RequestRematch(ctx, orig.ID, orig.LobbyID, b)
	require.NoError(t, err)
	assert.Equal(t, *req.NewGameID, *again.NewGameID)

	status, err := f.neg.Status(ctx, orig.ID)
	require.NoError(t, err)
	assert.Equal(t, *req.NewGameID, *status.NewGameID)

	lobby, err := f.st.GetLobby(ctx, orig.LobbyID)
	require.NoError(t, err)
	assert.Equal(t, models.LobbyPlaying, lobby.Status)
}

func TestRematchConcurrentRequestsCreateOneGame(t *testing.T) {
	for i := 0; i < 25; i++ {
		f := newFixture(t)
		ctx := context.Background()
		a, b := uuid.New(), uuid.New()
		orig := f.finishedGame(t, models.KindTicTacToe, a, &b)

		sub := f.hub.Subscribe(realtime.TableGameStates, realtime.Filter{Column: "lobby_id", Value: orig.LobbyID.String()})

		var wg sync.WaitGroup
		for _, p := range []uuid.UUID{a, b, a, b} {
			wg.Add(1)
			go func(p uuid.UUID) {
				defer wg.Done()
				_, err := f.neg.RequestRematch(ctx, orig.ID, orig.LobbyID, p)
				assert.NoError(t, err)
			}(p)
		}
		wg.Wait()
		sub.Unsubscribe()

		inserts := 0
		for ev := range sub.Events() {
			if ev.Type == realtime.Insert {
				inserts++
			}
		}
		assert.Equal(t, 1, inserts, "exactly one new game")

		req, err := f.neg.Status(ctx, orig.ID)
		require.NoError(t, err)
		require.NotNil(t, req.NewGameID)
		assert.Len(t, req.RequestedBy, 2)
	}
}

func TestRematchAgainstAI(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	human, ai := uuid.New(), models.AIPlayerID
	orig := f.finishedGame(t, models.KindBattleship, human, &ai)

	_, err := f.neg.RequestRematch(ctx, orig.ID, orig.LobbyID, ai)
	requireReason(t, err, models.ReasonNotAPlayer)

	req, err := f.neg.RequestRematch(ctx, orig.ID, orig.LobbyID, human)
	require.NoError(t, err)
	require.NotNil(t, req.NewGameID)

	next, err := f.st.GetGameState(ctx, *req.NewGameID)
	require.NoError(t, err)
	assert.Equal(t, human, next.Player1)
	assert.Equal(t, ai, *next.Player2)
	assert.Equal(t, models.GameWaiting, next.Status, "fleets are placed again")
}

func TestRematchSinglePlayer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := uuid.New()
	orig := f.finishedGame(t, models.KindMinesweeper, p, nil)

	req, err := f.neg.RequestRematch(ctx, orig.ID, orig.LobbyID, p)
	require.NoError(t, err)
	require.NotNil(t, req.NewGameID)
	next, err := f.st.GetGameState(ctx, *req.NewGameID)
	require.NoError(t, err)
	assert.Equal(t, models.GamePlaying, next.Status)
	assert.False(t, next.Extensions.Minefield.Placed)
}

func TestRematchRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := uuid.New(), uuid.New()
	orig := f.finishedGame(t, models.KindTicTacToe, a, &b)

	_, err := f.neg.RequestRematch(ctx, orig.ID, orig.LobbyID, uuid.New())
	requireReason(t, err, models.ReasonNotAPlayer)

	_, err = f.neg.RequestRematch(ctx, orig.ID, uuid.New(), a)
	assert.True(t, errors.Is(err, store.ErrNotFound))

	_, err = f.neg.RequestRematch(ctx, uuid.New(), orig.LobbyID, a)
	assert.True(t, errors.Is(err, store.ErrNotFound))

	lobby := &models.Lobby{ID: uuid.New(), CreatorID: a, GameID: models.KindTicTacToe}
	live, err := f.reg.NewGameState(models.KindTicTacToe, lobby.ID, a, &b)
	require.NoError(t, err)
	require.NoError(t, f.st.CreateLobbyWithGameState(ctx, lobby, live))
	_, err = f.neg.RequestRematch(ctx, live.ID, lobby.ID, a)
	requireReason(t, err, models.ReasonRematchNotFinished)
}
