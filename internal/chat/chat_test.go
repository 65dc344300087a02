package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/csgames/internal/models"
	"github.com/jason-s-yu/csgames/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*Service, *models.Lobby) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	st := store.NewMemoryStore(nil, logger)
	creator := uuid.New()
	l := &models.Lobby{ID: uuid.New(), CreatorID: creator, GameID: models.KindTicTacToe, Name: "chat"}
	gs := &models.GameState{ID: uuid.New(), Kind: models.KindTicTacToe, Player1: creator, CurrentPlayer: creator, Status: models.GamePending}
	require.NoError(t, st.CreateLobbyWithGameState(context.Background(), l, gs))
	return NewService(st, logger), l
}

func rejectReason(err error) models.RejectReason {
	var rej *models.Rejection
	if errors.As(err, &rej) {
		return rej.Reason
	}
	return ""
}

func TestPostAndHistory(t *testing.T) {
	svc, l := setup(t)
	ctx := context.Background()

	msg, err := svc.Post(ctx, l.ID, l.CreatorID, "  good luck  ")
	require.NoError(t, err)
	assert.Equal(t, "good luck", msg.Body)
	assert.NotEqual(t, uuid.Nil, msg.ID)

	_, err = svc.Post(ctx, l.ID, uuid.New(), "have fun")
	require.NoError(t, err)

	msgs, err := svc.History(ctx, l.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "good luck", msgs[0].Body)

	_, err = svc.History(ctx, uuid.New(), 10)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestPostRejectsBadBodies(t *testing.T) {
	svc, l := setup(t)
	ctx := context.Background()

	_, err := svc.Post(ctx, l.ID, l.CreatorID, "   ")
	assert.Equal(t, models.ReasonInvalidMessage, rejectReason(err))

	_, err = svc.Post(ctx, l.ID, l.CreatorID, strings.Repeat("a", MaxBodyLength+1))
	assert.Equal(t, models.ReasonInvalidMessage, rejectReason(err))
}

func TestPostRateLimited(t *testing.T) {
	svc, l := setup(t)
	ctx := context.Background()

	var last error
	for i := 0; i < 6; i++ {
		_, last = svc.Post(ctx, l.ID, l.CreatorID, "spam")
	}
	assert.Equal(t, models.ReasonRateLimited, rejectReason(last))

	_, err := svc.Post(ctx, l.ID, uuid.New(), "still fine")
	assert.NoError(t, err)
}
