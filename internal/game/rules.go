// internal/game/rules.go
package game

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/csgames/internal/catalog"
	"github.com/jason-s-yu/csgames/internal/models"
)

// Resolver validates and applies moves for one game kind.
type Resolver interface {
	Kind() models.GameKind
	// Seats is 1 for single-player games and 2 otherwise.
	Seats() int
	// SetupPhase reports whether the game needs a pre-play step after both seats fill.
	SetupPhase() bool
	// Init lays out a fresh board and extension block on gs.
	Init(gs *models.GameState)
	// Seat prepares per-player state when a player takes a seat.
	Seat(gs *models.GameState, player uuid.UUID)
	// Apply mutates gs, which the caller owns, or returns a rejection and leaves it
	// untouched.
	Apply(gs *models.GameState, mv Move, actor uuid.UUID) *models.Rejection
}

// Registry dispatches on GameKind.
type Registry struct {
	resolvers map[models.GameKind]Resolver
}

// NewRegistry builds a registry from the given resolvers.
func NewRegistry(resolvers ...Resolver) *Registry {
	r := &Registry{resolvers: make(map[models.GameKind]Resolver, len(resolvers))}
	for _, res := range resolvers {
		r.resolvers[res.Kind()] = res
	}
	return r
}

// DefaultRegistry holds every playable game with the standard Minesweeper field.
func DefaultRegistry() *Registry {
	return NewRegistry(
		TicTacToe{},
		ConnectFour{},
		Battleship{},
		NewMinesweeper(DefaultMineRows, DefaultMineCols, DefaultMineCount),
	)
}

// RegistryFor is DefaultRegistry with the Minesweeper field taken from the catalog.
func RegistryFor(cat *catalog.Catalog) *Registry {
	ms := NewMinesweeper(DefaultMineRows, DefaultMineCols, DefaultMineCount)
	if g, ok := cat.Lookup(models.KindMinesweeper); ok && g.Minefield != nil {
		ms = NewMinesweeper(g.Minefield.Rows, g.Minefield.Cols, g.Minefield.Mines)
	}
	return NewRegistry(TicTacToe{}, ConnectFour{}, Battleship{}, ms)
}

// Lookup returns the resolver for kind.
func (r *Registry) Lookup(kind models.GameKind) (Resolver, bool) {
	res, ok := r.resolvers[kind]
	return res, ok
}

// Supports reports whether kind has a turn-based state machine.
func (r *Registry) Supports(kind models.GameKind) bool {
	_, ok := r.resolvers[kind]
	return ok
}

// NewGameState builds the first GameState for a lobby. player2 may be nil.
func (r *Registry) NewGameState(kind models.GameKind, lobbyID, player1 uuid.UUID, player2 *uuid.UUID) (*models.GameState, error) {
	res, ok := r.Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("no resolver for game %q", kind)
	}
	now := time.Now().UTC()
	gs := &models.GameState{
		ID:            uuid.New(),
		LobbyID:       lobbyID,
		Kind:          kind,
		Player1:       player1,
		CurrentPlayer: player1,
		Status:        models.GamePending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	res.Init(gs)
	res.Seat(gs, player1)
	if res.Seats() == 1 {
		gs.Status = models.GamePlaying
		return gs, nil
	}
	if player2 != nil {
		SeatPlayer2(res, gs, *player2)
	}
	return gs, nil
}

// ApplyMove is the move validator entry point. It never mutates gs: on acceptance it
// returns a new state with MoveCount advanced; on failure it returns the rejection.
func (r *Registry) ApplyMove(gs *models.GameState, mv Move, actor uuid.UUID) (*models.GameState, *models.Rejection) {
	res, ok := r.Lookup(gs.Kind)
	if !ok {
		return nil, models.Reject(models.ReasonUnsupportedGame)
	}
	if gs.Status == models.GameFinished {
		return nil, models.Reject(models.ReasonGameOver)
	}
	next := gs.Clone()
	if rej := res.Apply(next, mv, actor); rej != nil {
		return nil, rej
	}
	next.MoveCount++
	return next, nil
}
