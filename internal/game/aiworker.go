// internal/game/aiworker.go
package game

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/csgames/internal/models"
	"github.com/jason-s-yu/csgames/internal/realtime"
	"github.com/sirupsen/logrus"
)

// Subscriber opens change feed subscriptions.
type Subscriber interface {
	Subscribe(table string, f realtime.Filter) *realtime.Subscription
}

// AIWorker plays for the AI sentinel. It watches the game_states feed and submits a move
// through the regular move service whenever the sentinel holds the turn.
//
// Each game is driven by its own goroutine so a move waiting out Delay never holds up
// the feed. Games seen on the feed are also re-read every Rescan, which recovers turns
// whose change events were dropped.
type AIWorker struct {
	svc    *Service
	feed   Subscriber
	logger *logrus.Logger

	rngMu sync.Mutex
	rng   *rand.Rand

	mu sync.Mutex
	// running holds one entry per game with a live driver; the value is the newest
	// snapshot it has not handled yet, or nil.
	running map[uuid.UUID]*models.GameState
	watched map[uuid.UUID]struct{}
	wg      sync.WaitGroup

	// Delay is waited before each move so the opponent sees the turn pass.
	Delay time.Duration
	// Rescan is how often watched games are re-read from the store. Zero disables it.
	Rescan time.Duration
}

// NewAIWorker builds a worker. Call Run to start it.
func NewAIWorker(svc *Service, feed Subscriber, logger *logrus.Logger) *AIWorker {
	return &AIWorker{
		svc:     svc,
		feed:    feed,
		logger:  logger,
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		running: make(map[uuid.UUID]*models.GameState),
		watched: make(map[uuid.UUID]struct{}),
		Delay:   400 * time.Millisecond,
		Rescan:  5 * time.Second,
	}
}

// Run processes game changes until ctx is cancelled, then waits for in-flight moves.
func (w *AIWorker) Run(ctx context.Context) error {
	sub := w.feed.Subscribe(realtime.TableGameStates, realtime.Filter{})
	defer sub.Unsubscribe()
	defer w.wg.Wait()

	var tick <-chan time.Time
	if w.Rescan > 0 {
		t := time.NewTicker(w.Rescan)
		defer t.Stop()
		tick = t.C
	}

	w.logger.Info("ai worker started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			w.rescan(ctx)
		case ev, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if ev.Type == realtime.Delete || len(ev.New) == 0 {
				continue
			}
			var gs models.GameState
			if err := json.Unmarshal(ev.New, &gs); err != nil {
				w.logger.Warnf("ai worker: undecodable game state: %v", err)
				continue
			}
			w.dispatch(ctx, &gs)
		}
	}
}

// dispatch hands gs to the game's driver, starting one if none is running. A driver
// that is busy keeps only the newest snapshot.
func (w *AIWorker) dispatch(ctx context.Context, gs *models.GameState) {
	if !gs.HasAI() {
		return
	}
	w.mu.Lock()
	if gs.Status == models.GameFinished {
		delete(w.watched, gs.ID)
	} else {
		w.watched[gs.ID] = struct{}{}
	}
	if next, busy := w.running[gs.ID]; busy {
		if next == nil || gs.Version >= next.Version {
			w.running[gs.ID] = gs
		}
		w.mu.Unlock()
		return
	}
	w.running[gs.ID] = nil
	w.wg.Add(1)
	w.mu.Unlock()

	go w.drive(ctx, gs)
}

func (w *AIWorker) drive(ctx context.Context, gs *models.GameState) {
	defer w.wg.Done()
	id := gs.ID
	for gs != nil && ctx.Err() == nil {
		w.Handle(ctx, gs)

		w.mu.Lock()
		gs = w.running[id]
		w.running[id] = nil
		w.mu.Unlock()
	}
	w.mu.Lock()
	delete(w.running, id)
	w.mu.Unlock()
}

// rescan re-reads every watched game that has no driver running.
func (w *AIWorker) rescan(ctx context.Context) {
	w.mu.Lock()
	ids := make([]uuid.UUID, 0, len(w.watched))
	for id := range w.watched {
		if _, busy := w.running[id]; !busy {
			ids = append(ids, id)
		}
	}
	w.mu.Unlock()

	for _, id := range ids {
		gs, err := w.svc.Store().GetGameState(ctx, id)
		if err != nil {
			w.logger.WithField("game", id).Debugf("ai rescan: %v", err)
			continue
		}
		w.dispatch(ctx, gs)
	}
}

// Handle reacts to one snapshot of a game. It blocks for Delay before a move and acts on
// the stored state read after the wait.
func (w *AIWorker) Handle(ctx context.Context, gs *models.GameState) {
	if !aiHasWork(gs) {
		return
	}
	setup := gs.Status == models.GameWaiting
	if !setup && w.Delay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.Delay):
		}
	}

	cur, err := w.svc.Store().GetGameState(ctx, gs.ID)
	if err != nil {
		w.logger.WithField("game", gs.ID).Warnf("ai reload failed: %v", err)
		return
	}
	if !aiHasWork(cur) {
		return
	}
	if cur.Kind == models.KindBattleship && cur.Status == models.GameWaiting {
		w.prepareFleet(ctx, cur)
		return
	}

	w.rngMu.Lock()
	mv, ok := ChooseMove(cur, models.AIPlayerID, w.rng)
	w.rngMu.Unlock()
	if ok {
		w.submit(ctx, cur, mv)
	}
}

func aiHasWork(gs *models.GameState) bool {
	switch {
	case !gs.HasAI() || gs.Status == models.GameFinished:
		return false
	case gs.Kind == models.KindBattleship && gs.Status == models.GameWaiting:
		return true
	}
	return gs.Status == models.GamePlaying && gs.CurrentPlayer == models.AIPlayerID
}

func (w *AIWorker) prepareFleet(ctx context.Context, gs *models.GameState) {
	if gs.Extensions.Battleship == nil {
		return
	}
	side := gs.Extensions.Battleship.Sides[models.AIPlayerID]
	if side == nil || side.Ready {
		return
	}
	if !side.FleetComplete() {
		w.rngMu.Lock()
		fleet := RandomFleet(w.rng)
		w.rngMu.Unlock()
		if !w.submit(ctx, gs, PlaceFleet(fleet)) {
			return
		}
	}
	w.submit(ctx, gs, Move{Action: ActionReady})
}

func (w *AIWorker) submit(ctx context.Context, gs *models.GameState, mv Move) bool {
	_, err := w.svc.MakeMove(ctx, gs.ID, models.AIPlayerID, mv)
	if err == nil {
		return true
	}
	var rej *models.Rejection
	if errors.As(err, &rej) {
		// a newer snapshot already moved on
		w.logger.WithField("game", gs.ID).Debugf("ai move rejected: %s", rej.Reason)
		return false
	}
	w.logger.WithField("game", gs.ID).Warnf("ai move failed: %v", err)
	return false
}
