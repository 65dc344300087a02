// internal/clientsync/sync.go
package clientsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/csgames/internal/board"
	"github.com/jason-s-yu/csgames/internal/game"
	"github.com/jason-s-yu/csgames/internal/models"
	"github.com/jason-s-yu/csgames/internal/realtime"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultPollInterval is the polling backstop period.
const DefaultPollInterval = 3 * time.Second

// Source says where a snapshot came from.
type Source string

const (
	SourcePoll       Source = "poll"
	SourcePush       Source = "push"
	SourceSubmit     Source = "submit"
	SourceOptimistic Source = "optimistic"
	SourceResync     Source = "resync"
)

// Update is delivered to the view whenever the local snapshot is replaced.
type Update struct {
	State  *models.GameState
	Source Source
	// Changed lists board cells that differ from the previous snapshot. It is for
	// animation only.
	Changed []board.Point
	// Optimistic is true while State holds a move the server has not confirmed.
	Optimistic bool
}

// Synchronizer keeps one client's copy of a game in step with the server. Every
// snapshot replaces the local copy wholesale; snapshots older than the current one are
// dropped by Version.
type Synchronizer struct {
	remote Remote
	nav    Navigator
	reg    *game.Registry
	logger *logrus.Logger
	me     uuid.UUID
	gameID uuid.UUID

	// PollInterval defaults to DefaultPollInterval.
	PollInterval time.Duration
	// OnUpdate, if set, is called after each replacement, outside the lock.
	OnUpdate func(Update)

	mu         sync.Mutex
	state      *models.GameState
	base       *models.GameState // authoritative snapshot under an optimistic move
	optimistic bool
	redirected map[uuid.UUID]bool
	rematchTo  *uuid.UUID

	hold     *Hold
	holdCell board.Point
}

// New builds a synchronizer for gameID on behalf of player me.
func New(remote Remote, nav Navigator, reg *game.Registry, logger *logrus.Logger, me, gameID uuid.UUID) *Synchronizer {
	s := &Synchronizer{
		remote:       remote,
		nav:          nav,
		reg:          reg,
		logger:       logger,
		me:           me,
		gameID:       gameID,
		PollInterval: DefaultPollInterval,
		redirected:   make(map[uuid.UUID]bool),
	}
	s.hold = NewHold(DefaultHoldDuration, s.onHold)
	return s
}

// State returns the current local snapshot, which may be nil before the first fetch.
func (s *Synchronizer) State() *models.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Optimistic reports whether the local snapshot holds an unconfirmed move.
func (s *Synchronizer) Optimistic() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.optimistic
}

// Run fetches the game, then polls and listens for pushes until ctx ends. Both
// subscriptions are closed on return however Run exits. Fetch and feed errors are
// logged and the last known state kept; Run only fails if the game does not exist.
func (s *Synchronizer) Run(ctx context.Context) error {
	if err := s.Resync(ctx); errors.Is(err, ErrNotFound) {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.pollLoop(gctx) })
	g.Go(func() error {
		return s.pushLoop(gctx, realtime.TableGameStates, realtime.Filter{Column: "id", Value: s.gameID.String()})
	})
	g.Go(func() error {
		return s.pushLoop(gctx, realtime.TablePlayAgainRequests, realtime.Filter{Column: "original_game_id", Value: s.gameID.String()})
	})
	err := g.Wait()
	s.hold.Leave()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Synchronizer) pollLoop(ctx context.Context) error {
	interval := s.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

func (s *Synchronizer) poll(ctx context.Context) {
	gs, err := s.remote.FetchGame(ctx, s.gameID)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.WithField("game", s.gameID).Warnf("poll failed: %v", err)
		}
		return
	}
	s.Apply(gs, SourcePoll)

	if gs.Status != models.GameFinished {
		return
	}
	req, err := s.remote.FetchRematch(ctx, s.gameID)
	if errors.Is(err, ErrNotFound) {
		return
	}
	if err != nil {
		if ctx.Err() == nil {
			s.logger.WithField("game", s.gameID).Warnf("rematch poll failed: %v", err)
		}
		return
	}
	s.ApplyRematch(req)
}

// pushLoop holds one subscription open until ctx ends. A feed that cannot be opened
// or drops is logged; polling keeps the view correct in the meantime.
func (s *Synchronizer) pushLoop(ctx context.Context, table string, f realtime.Filter) error {
	feed, err := s.remote.Subscribe(ctx, table, f)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.WithField("table", table).Warnf("subscribe failed, relying on polling: %v", err)
		}
		return nil
	}
	defer feed.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-feed.Events():
			if !ok {
				if ctx.Err() == nil {
					s.logger.WithField("table", table).Warn("push feed closed, relying on polling")
				}
				return nil
			}
			s.handleEvent(ev)
		}
	}
}

func (s *Synchronizer) handleEvent(ev realtime.Event) {
	if ev.Type == realtime.Delete || len(ev.New) == 0 {
		return
	}
	switch ev.Table {
	case realtime.TableGameStates:
		var gs models.GameState
		if err := json.Unmarshal(ev.New, &gs); err != nil {
			s.logger.Warnf("undecodable game push: %v", err)
			return
		}
		if gs.ID != s.gameID {
			return
		}
		s.Apply(&gs, SourcePush)
	case realtime.TablePlayAgainRequests:
		var req models.PlayAgainRequest
		if err := json.Unmarshal(ev.New, &req); err != nil {
			s.logger.Warnf("undecodable rematch push: %v", err)
			return
		}
		s.ApplyRematch(&req)
	}
}

// Apply replaces the local snapshot with gs unless gs is older. While an optimistic
// move is pending, a snapshot at the same version as the one it was built on is
// ignored so the move does not flicker away.
func (s *Synchronizer) Apply(gs *models.GameState, src Source) bool {
	if gs == nil {
		return false
	}
	s.mu.Lock()
	cur := s.state
	if cur != nil {
		if gs.Version < cur.Version {
			s.mu.Unlock()
			return false
		}
		if s.optimistic && src != SourceSubmit && src != SourceResync && gs.Version <= s.base.Version {
			s.mu.Unlock()
			return false
		}
		if !s.optimistic && gs.Version == cur.Version && src != SourceResync {
			s.mu.Unlock()
			return false
		}
	}
	return s.replaceLocked(cur, gs.Clone(), src, false)
}

// replaceLocked installs next, runs the redirect rule and notifies. It releases s.mu.
func (s *Synchronizer) replaceLocked(prev, next *models.GameState, src Source, optimistic bool) bool {
	s.state = next
	s.optimistic = optimistic
	if !optimistic {
		s.base = nil
	}

	redirect := false
	if prev != nil && prev.Status.PrePlay() && next.Status == models.GamePlaying && !s.redirected[next.ID] {
		s.redirected[next.ID] = true
		redirect = true
	}
	var changed []board.Point
	if prev != nil && prev.Board.Rows() == next.Board.Rows() && prev.Board.Cols() == next.Board.Cols() {
		changed = prev.Board.Diff(next.Board)
	}
	u := Update{State: next.Clone(), Source: src, Changed: changed, Optimistic: optimistic}
	s.mu.Unlock()

	if redirect {
		s.logger.WithField("game", next.ID).Debug("game started, opening game view")
		s.nav.ToGame(next.ID)
	}
	if s.OnUpdate != nil {
		s.OnUpdate(u)
	}
	return true
}

// ApplyRematch navigates to the follow-up game once it exists and this player asked
// for it. Navigation happens at most once.
func (s *Synchronizer) ApplyRematch(req *models.PlayAgainRequest) {
	if req == nil || req.OriginalGameID != s.gameID || req.NewGameID == nil || !req.Has(s.me) {
		return
	}
	s.mu.Lock()
	if s.rematchTo != nil {
		s.mu.Unlock()
		return
	}
	id := *req.NewGameID
	s.rematchTo = &id
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{"game": s.gameID, "new_game": id}).Debug("rematch ready, opening new game")
	s.nav.ToGame(id)
}

// Resync replaces the local snapshot with a fresh fetch, dropping any optimistic move.
func (s *Synchronizer) Resync(ctx context.Context) error {
	gs, err := s.remote.FetchGame(ctx, s.gameID)
	if err != nil {
		s.logger.WithField("game", s.gameID).Warnf("resync failed: %v", err)
		return err
	}
	s.Apply(gs, SourceResync)
	return nil
}

// SubmitMove applies mv locally when the game allows it, then sends it. On rejection
// the local move is discarded and the game fetched again; the move is not retried.
func (s *Synchronizer) SubmitMove(ctx context.Context, mv game.Move) error {
	s.mu.Lock()
	cur := s.state
	if cur == nil {
		s.mu.Unlock()
		return fmt.Errorf("game %s not loaded", s.gameID)
	}
	applied := false
	if game.Optimistic(cur.Kind) && !s.optimistic {
		if next, rej := s.reg.ApplyMove(cur, mv, s.me); rej == nil {
			s.base = cur
			applied = s.replaceLocked(cur, next, SourceOptimistic, true)
		}
	}
	if !applied {
		s.mu.Unlock()
	}

	accepted, err := s.remote.SubmitMove(ctx, s.gameID, mv.Payload())
	if err == nil {
		s.Apply(accepted, SourceSubmit)
		return nil
	}

	var rej *models.Rejection
	if errors.As(err, &rej) {
		s.logger.WithFields(logrus.Fields{"game": s.gameID, "action": mv.Action}).Infof("move rejected: %s", rej.Reason)
	} else {
		s.logger.WithField("game", s.gameID).Warnf("failed to submit move: %v", err)
	}
	s.discardOptimistic()
	_ = s.Resync(ctx)
	return err
}

// discardOptimistic restores the snapshot the pending local move was built on.
func (s *Synchronizer) discardOptimistic() {
	s.mu.Lock()
	if !s.optimistic || s.base == nil {
		s.mu.Unlock()
		return
	}
	base := s.base
	s.replaceLocked(s.state, base, SourceResync, false)
}

// RequestRematch asks for a rematch of this game.
func (s *Synchronizer) RequestRematch(ctx context.Context) (*models.PlayAgainRequest, error) {
	s.mu.Lock()
	cur := s.state
	s.mu.Unlock()
	if cur == nil {
		return nil, fmt.Errorf("game %s not loaded", s.gameID)
	}
	req, err := s.remote.RequestRematch(ctx, s.gameID, cur.LobbyID)
	if err != nil {
		return nil, err
	}
	s.ApplyRematch(req)
	return req, nil
}

// PressCell starts a Minesweeper press on a cell. Holding past DefaultHoldDuration
// flags it; releasing earlier reveals it.
func (s *Synchronizer) PressCell(row, col int) {
	s.mu.Lock()
	s.holdCell = board.Point{Row: row, Col: col}
	s.mu.Unlock()
	s.hold.Press()
}

// ReleaseCell ends a press. A tap reveals the pressed cell.
func (s *Synchronizer) ReleaseCell(ctx context.Context) error {
	if !s.hold.Release() {
		return nil
	}
	s.mu.Lock()
	p := s.holdCell
	s.mu.Unlock()
	return s.SubmitMove(ctx, game.RevealAt(p.Row, p.Col))
}

// LeaveCell abandons a press without acting.
func (s *Synchronizer) LeaveCell() {
	s.hold.Leave()
}

func (s *Synchronizer) onHold() {
	s.mu.Lock()
	p := s.holdCell
	s.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.SubmitMove(ctx, game.FlagAt(p.Row, p.Col)); err != nil {
		s.logger.WithField("game", s.gameID).Debugf("flag failed: %v", err)
	}
}
