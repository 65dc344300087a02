package clientsync

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/csgames/internal/board"
	"github.com/jason-s-yu/csgames/internal/game"
	"github.com/jason-s-yu/csgames/internal/models"
	"github.com/jason-s-yu/csgames/internal/realtime"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRemote serves a single game from memory and records what the client asked for.
type fakeRemote struct {
	mu        sync.Mutex
	game      *models.GameState
	rematch   *models.PlayAgainRequest
	reject    models.RejectReason
	fetches   int
	submits   []map[string]interface{}
	feeds     []*fakeFeed
	subscribe error
}

func (f *fakeRemote) FetchGame(_ context.Context, id uuid.UUID) (*models.GameState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.game == nil || f.game.ID != id {
		return nil, ErrNotFound
	}
	return f.game.Clone(), nil
}

func (f *fakeRemote) SubmitMove(_ context.Context, _ uuid.UUID, payload map[string]interface{}) (*models.GameState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits = append(f.submits, payload)
	if f.reject != "" {
		return nil, models.Reject(f.reject)
	}
	mv, err := game.DecodeMove(payload)
	if err != nil {
		return nil, models.Reject(models.ReasonInvalidMove)
	}
	next, rej := game.DefaultRegistry().ApplyMove(f.game, mv, f.game.CurrentPlayer)
	if rej != nil {
		return nil, rej
	}
	next.Version++
	f.game = next
	return next.Clone(), nil
}

func (f *fakeRemote) FetchRematch(context.Context, uuid.UUID) (*models.PlayAgainRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rematch == nil {
		return nil, ErrNotFound
	}
	return f.rematch.Clone(), nil
}

func (f *fakeRemote) RequestRematch(_ context.Context, gameID, lobbyID uuid.UUID) (*models.PlayAgainRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rematch == nil {
		f.rematch = &models.PlayAgainRequest{OriginalGameID: gameID, LobbyID: lobbyID}
	}
	return f.rematch.Clone(), nil
}

func (f *fakeRemote) Subscribe(_ context.Context, table string, filter realtime.Filter) (Feed, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribe != nil {
		return nil, f.subscribe
	}
	feed := &fakeFeed{table: table, filter: filter, ch: make(chan realtime.Event, 8)}
	f.feeds = append(f.feeds, feed)
	return feed, nil
}

func (f *fakeRemote) set(gs *models.GameState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.game = gs.Clone()
}

func (f *fakeRemote) feed(table string) *fakeFeed {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, fd := range f.feeds {
		if fd.table == table {
			return fd
		}
	}
	return nil
}

type fakeFeed struct {
	table  string
	filter realtime.Filter
	ch     chan realtime.Event

	mu     sync.Mutex
	closed bool
}

func (f *fakeFeed) Events() <-chan realtime.Event { return f.ch }

func (f *fakeFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeFeed) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// recordingNavigator remembers every navigation.
type recordingNavigator struct {
	mu     sync.Mutex
	visits []uuid.UUID
}

func (n *recordingNavigator) ToGame(id uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.visits = append(n.visits, id)
}

func (n *recordingNavigator) all() []uuid.UUID {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]uuid.UUID(nil), n.visits...)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func pendingGame(t *testing.T, kind models.GameKind, p1 uuid.UUID) *models.GameState {
	t.Helper()
	gs, err := game.DefaultRegistry().NewGameState(kind, uuid.New(), p1, nil)
	require.NoError(t, err)
	gs.Version = 1
	return gs
}

func seated(gs *models.GameState, p2 uuid.UUID) *models.GameState {
	next := gs.Clone()
	res, _ := game.DefaultRegistry().Lookup(next.Kind)
	game.SeatPlayer2(res, next, p2)
	next.Version++
	return next
}

func pushGame(t *testing.T, fd *fakeFeed, gs *models.GameState) {
	t.Helper()
	ev, err := realtime.NewEvent(realtime.TableGameStates, realtime.Update, gs, nil, nil)
	require.NoError(t, err)
	fd.ch <- ev
}

func TestRedirectFiresOncePerTransition(t *testing.T) {
	me, them := uuid.New(), uuid.New()
	gs := pendingGame(t, models.KindTicTacToe, me)
	remote := &fakeRemote{game: gs}
	nav := &recordingNavigator{}
	s := New(remote, nav, game.DefaultRegistry(), quietLogger(), me, gs.ID)

	require.NoError(t, s.Resync(context.Background()))
	assert.Empty(t, nav.all())

	playing := seated(gs, them)
	assert.True(t, s.Apply(playing, SourcePush))
	// the same transition seen again by the poll
	assert.False(t, s.Apply(playing, SourcePoll))
	later := playing.Clone()
	later.Version++
	later.Board[0][0] = board.Player1Mark
	assert.True(t, s.Apply(later, SourcePoll))

	assert.Equal(t, []uuid.UUID{gs.ID}, nav.all())
}

func TestSnapshotsReplaceAndIgnoreStale(t *testing.T) {
	me, them := uuid.New(), uuid.New()
	gs := seated(pendingGame(t, models.KindTicTacToe, me), them)
	remote := &fakeRemote{game: gs}
	s := New(remote, &recordingNavigator{}, game.DefaultRegistry(), quietLogger(), me, gs.ID)

	var updates []Update
	s.OnUpdate = func(u Update) { updates = append(updates, u) }
	require.NoError(t, s.Resync(context.Background()))

	next := gs.Clone()
	next.Version++
	next.Board[1][2] = board.Player1Mark
	require.True(t, s.Apply(next, SourcePush))
	assert.Equal(t, []board.Point{{Row: 1, Col: 2}}, updates[len(updates)-1].Changed)

	assert.False(t, s.Apply(gs, SourcePoll), "older snapshot is dropped")
	assert.Equal(t, next.Version, s.State().Version)
	assert.Equal(t, board.Player1Mark, s.State().Board[1][2])
}

func TestOptimisticMoveConfirmed(t *testing.T) {
	me, them := uuid.New(), uuid.New()
	gs := seated(pendingGame(t, models.KindConnectFour, me), them)
	remote := &fakeRemote{game: gs}
	s := New(remote, &recordingNavigator{}, game.DefaultRegistry(), quietLogger(), me, gs.ID)
	require.NoError(t, s.Resync(context.Background()))

	var sources []Source
	s.OnUpdate = func(u Update) { sources = append(sources, u.Source) }
	require.NoError(t, s.SubmitMove(context.Background(), game.DropIn(3)))

	assert.Equal(t, []Source{SourceOptimistic, SourceSubmit}, sources)
	assert.False(t, s.Optimistic())
	st := s.State()
	assert.Equal(t, gs.Version+1, st.Version)
	assert.Equal(t, board.Player1Mark, st.Board[5][3])
	assert.Equal(t, them, st.CurrentPlayer)
}

func TestOptimisticMoveDiscardedOnRejection(t *testing.T) {
	me, them := uuid.New(), uuid.New()
	gs := seated(pendingGame(t, models.KindTicTacToe, me), them)
	remote := &fakeRemote{game: gs, reject: models.ReasonNotYourTurn}
	s := New(remote, &recordingNavigator{}, game.DefaultRegistry(), quietLogger(), me, gs.ID)
	require.NoError(t, s.Resync(context.Background()))

	var seen []Update
	s.OnUpdate = func(u Update) { seen = append(seen, u) }
	err := s.SubmitMove(context.Background(), game.MarkAt(0, 0))

	var rej *models.Rejection
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, models.ReasonNotYourTurn, rej.Reason)

	require.NotEmpty(t, seen)
	assert.True(t, seen[0].Optimistic)
	assert.Equal(t, board.Player1Mark, seen[0].State.Board[0][0])

	assert.False(t, s.Optimistic())
	assert.Equal(t, board.Empty, s.State().Board[0][0])
	assert.Len(t, remote.submits, 1, "rejected moves are not retried")
	assert.Equal(t, 2, remote.fetches, "initial fetch plus resync")
}

func TestOptimisticMoveSurvivesSameVersionPoll(t *testing.T) {
	me, them := uuid.New(), uuid.New()
	gs := seated(pendingGame(t, models.KindTicTacToe, me), them)
	s := New(&fakeRemote{game: gs}, &recordingNavigator{}, game.DefaultRegistry(), quietLogger(), me, gs.ID)
	require.NoError(t, s.Resync(context.Background()))

	s.mu.Lock()
	next, rej := s.reg.ApplyMove(s.state, game.MarkAt(2, 2), me)
	require.Nil(t, rej)
	s.base = s.state
	s.replaceLocked(s.state, next, SourceOptimistic, true)

	assert.False(t, s.Apply(gs, SourcePoll))
	assert.True(t, s.Optimistic())

	confirmed := next.Clone()
	confirmed.Version = gs.Version + 1
	assert.True(t, s.Apply(confirmed, SourcePush))
	assert.False(t, s.Optimistic())
}

func TestNoOptimisticUpdateForHiddenInformation(t *testing.T) {
	me := uuid.New()
	gs := pendingGame(t, models.KindMinesweeper, me)
	remote := &fakeRemote{game: gs}
	s := New(remote, &recordingNavigator{}, game.DefaultRegistry(), quietLogger(), me, gs.ID)
	require.NoError(t, s.Resync(context.Background()))

	var sources []Source
	s.OnUpdate = func(u Update) { sources = append(sources, u.Source) }
	require.NoError(t, s.SubmitMove(context.Background(), game.FlagAt(0, 0)))
	assert.Equal(t, []Source{SourceSubmit}, sources)
	assert.True(t, s.State().Extensions.Minefield.Flagged[0][0])
}

func TestRematchNavigation(t *testing.T) {
	me, them := uuid.New(), uuid.New()
	gs := seated(pendingGame(t, models.KindTicTacToe, me), them)
	gs.Status = models.GameFinished
	remote := &fakeRemote{game: gs}
	nav := &recordingNavigator{}
	s := New(remote, nav, game.DefaultRegistry(), quietLogger(), me, gs.ID)
	require.NoError(t, s.Resync(context.Background()))

	newID := uuid.New()
	// not requested by me
	s.ApplyRematch(&models.PlayAgainRequest{OriginalGameID: gs.ID, RequestedBy: []uuid.UUID{them}, NewGameID: &newID})
	assert.Empty(t, nav.all())
	// no new game yet
	s.ApplyRematch(&models.PlayAgainRequest{OriginalGameID: gs.ID, RequestedBy: []uuid.UUID{me}})
	assert.Empty(t, nav.all())

	done := &models.PlayAgainRequest{OriginalGameID: gs.ID, RequestedBy: []uuid.UUID{me, them}, NewGameID: &newID}
	s.ApplyRematch(done)
	s.ApplyRematch(done)
	assert.Equal(t, []uuid.UUID{newID}, nav.all())
}

func TestRunPollsPushesAndUnsubscribes(t *testing.T) {
	me, them := uuid.New(), uuid.New()
	gs := pendingGame(t, models.KindTicTacToe, me)
	remote := &fakeRemote{game: gs}
	nav := &recordingNavigator{}
	s := New(remote, nav, game.DefaultRegistry(), quietLogger(), me, gs.ID)
	s.PollInterval = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return remote.feed(realtime.TableGameStates) != nil && remote.feed(realtime.TablePlayAgainRequests) != nil
	}, time.Second, 5*time.Millisecond)
	fd := remote.feed(realtime.TableGameStates)
	assert.Equal(t, realtime.Filter{Column: "id", Value: gs.ID.String()}, fd.filter)

	// push path
	playing := seated(gs, them)
	pushGame(t, fd, playing)
	require.Eventually(t, func() bool { return len(nav.all()) == 1 }, time.Second, 5*time.Millisecond)

	// poll path picks up a change the push missed
	moved := playing.Clone()
	moved.Version++
	moved.Board[1][1] = board.Player1Mark
	remote.set(moved)
	require.Eventually(t, func() bool {
		st := s.State()
		return st != nil && st.Board[1][1] == board.Player1Mark
	}, time.Second, 5*time.Millisecond)

	// rematch push for a finished game
	newID := uuid.New()
	ev, err := realtime.NewEvent(realtime.TablePlayAgainRequests, realtime.Update,
		&models.PlayAgainRequest{OriginalGameID: gs.ID, RequestedBy: []uuid.UUID{me, them}, NewGameID: &newID}, nil, nil)
	require.NoError(t, err)
	remote.feed(realtime.TablePlayAgainRequests).ch <- ev
	require.Eventually(t, func() bool { return len(nav.all()) == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.True(t, fd.isClosed())
	assert.True(t, remote.feed(realtime.TablePlayAgainRequests).isClosed())
	assert.Equal(t, []uuid.UUID{gs.ID, newID}, nav.all())
}

func TestRunFallsBackToPollingWithoutPush(t *testing.T) {
	me, them := uuid.New(), uuid.New()
	gs := pendingGame(t, models.KindTicTacToe, me)
	remote := &fakeRemote{game: gs, subscribe: errors.New("dial refused")}
	nav := &recordingNavigator{}
	s := New(remote, nav, game.DefaultRegistry(), quietLogger(), me, gs.ID)
	s.PollInterval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()
	require.Eventually(t, func() bool { return s.State() != nil }, time.Second, 5*time.Millisecond)

	remote.set(seated(gs, them))
	require.Eventually(t, func() bool { return len(nav.all()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestRunUnknownGame(t *testing.T) {
	s := New(&fakeRemote{}, &recordingNavigator{}, game.DefaultRegistry(), quietLogger(), uuid.New(), uuid.New())
	err := s.Run(context.Background())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestPressAndReleaseCell(t *testing.T) {
	me := uuid.New()
	gs := pendingGame(t, models.KindMinesweeper, me)
	remote := &fakeRemote{game: gs}
	s := New(remote, &recordingNavigator{}, game.DefaultRegistry(), quietLogger(), me, gs.ID)
	require.NoError(t, s.Resync(context.Background()))

	// tap reveals
	s.PressCell(4, 4)
	require.NoError(t, s.ReleaseCell(context.Background()))
	require.Len(t, remote.submits, 1)
	assert.Equal(t, game.ActionReveal, remote.submits[0]["action"])

	// leaving the cell cancels without a move
	s.PressCell(0, 0)
	s.LeaveCell()
	require.NoError(t, s.ReleaseCell(context.Background()))
	assert.Len(t, remote.submits, 1)
}
