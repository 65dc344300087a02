// internal/models/game_state.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/csgames/internal/board"
)

// GameStatus is the turn coordinator state of a single GameState.
type GameStatus string

const (
	GamePending  GameStatus = "pending"  // waiting for a second player
	GameWaiting  GameStatus = "waiting"  // both players known, pre-play setup
	GamePlaying  GameStatus = "playing"  // moves being exchanged
	GameFinished GameStatus = "finished" // terminal
)

// PrePlay reports whether the status comes before play starts.
func (s GameStatus) PrePlay() bool {
	return s == GamePending || s == GameWaiting
}

// AIPlayerID is the sentinel identifier that stands in for a computer opponent.
var AIPlayerID = uuid.MustParse("00000000-0000-4000-8000-0000000000a1")

// GameState is the authoritative record of one game instance.
type GameState struct {
	ID      uuid.UUID  `json:"id"`
	LobbyID uuid.UUID  `json:"lobby_id"`
	Kind    GameKind   `json:"kind"`
	Board   board.Grid `json:"board"`

	Player1       uuid.UUID  `json:"player1"`
	Player2       *uuid.UUID `json:"player2"`
	CurrentPlayer uuid.UUID  `json:"current_player"`
	Status        GameStatus `json:"status"`
	Winner        *uuid.UUID `json:"winner"`

	// MoveCount counts accepted moves. Version is bumped on every mutation and lets
	// clients order and de-duplicate snapshots.
	MoveCount int       `json:"move_count"`
	Version   int64     `json:"version"`
	LastMove  *LastMove `json:"last_move,omitempty"`

	Extensions Extensions `json:"extensions"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LastMove records where the most recent accepted move landed, for presentation.
type LastMove struct {
	PlayerID uuid.UUID    `json:"player_id"`
	Action   string       `json:"action"`
	Cell     *board.Point `json:"cell,omitempty"`
	Result   string       `json:"result,omitempty"`
}

// Extensions carries per-game state that does not fit on the shared board.
type Extensions struct {
	Gravity    *GravityExt      `json:"gravity,omitempty"`
	Battleship *BattleshipExt   `json:"battleship,omitempty"`
	Minefield  *board.Minefield `json:"minefield,omitempty"`
}

// GravityExt holds Connect Four's flip flag and the players who spent their flip.
type GravityExt struct {
	Flipped bool        `json:"flipped"`
	UsedBy  []uuid.UUID `json:"used_by"`
}

// Used reports whether player has already flipped gravity in this game.
func (g *GravityExt) Used(player uuid.UUID) bool {
	if g == nil {
		return false
	}
	for _, id := range g.UsedBy {
		if id == player {
			return true
		}
	}
	return false
}

// BattleshipExt maps each player to their side of the battle.
type BattleshipExt struct {
	Sides map[uuid.UUID]*board.Side `json:"sides"`
}

// HasPlayer2 reports whether the second seat is filled.
func (g *GameState) HasPlayer2() bool {
	return g.Player2 != nil && *g.Player2 != uuid.Nil
}

// Players returns the seated players in seat order.
func (g *GameState) Players() []uuid.UUID {
	if g.HasPlayer2() {
		return []uuid.UUID{g.Player1, *g.Player2}
	}
	return []uuid.UUID{g.Player1}
}

// IsPlayer reports whether id occupies a seat.
func (g *GameState) IsPlayer(id uuid.UUID) bool {
	return id == g.Player1 || (g.HasPlayer2() && *g.Player2 == id)
}

// Opponent returns the other seated player. ok is false when id is not seated or the
// second seat is empty.
func (g *GameState) Opponent(id uuid.UUID) (uuid.UUID, bool) {
	if !g.HasPlayer2() {
		return uuid.Nil, false
	}
	switch id {
	case g.Player1:
		return *g.Player2, true
	case *g.Player2:
		return g.Player1, true
	}
	return uuid.Nil, false
}

// MarkFor returns the board mark of the given player.
func (g *GameState) MarkFor(id uuid.UUID) board.Cell {
	if id == g.Player1 {
		return board.Player1Mark
	}
	return board.Player2Mark
}

// PlayerForMark is the inverse of MarkFor.
func (g *GameState) PlayerForMark(c board.Cell) *uuid.UUID {
	switch c {
	case board.Player1Mark:
		id := g.Player1
		return &id
	case board.Player2Mark:
		if g.HasPlayer2() {
			id := *g.Player2
			return &id
		}
	}
	return nil
}

// HasAI reports whether the AI sentinel occupies a seat.
func (g *GameState) HasAI() bool {
	return g.IsPlayer(AIPlayerID)
}

// Clone returns a deep copy so resolvers can work without touching the input.
func (g *GameState) Clone() *GameState {
	if g == nil {
		return nil
	}
	out := *g
	out.Board = g.Board.Clone()
	out.Player2 = cloneID(g.Player2)
	out.Winner = cloneID(g.Winner)
	if g.LastMove != nil {
		lm := *g.LastMove
		if lm.Cell != nil {
			c := *lm.Cell
			lm.Cell = &c
		}
		out.LastMove = &lm
	}
	if g.Extensions.Gravity != nil {
		out.Extensions.Gravity = &GravityExt{
			Flipped: g.Extensions.Gravity.Flipped,
			UsedBy:  append([]uuid.UUID(nil), g.Extensions.Gravity.UsedBy...),
		}
	}
	if g.Extensions.Battleship != nil {
		sides := make(map[uuid.UUID]*board.Side, len(g.Extensions.Battleship.Sides))
		for id, s := range g.Extensions.Battleship.Sides {
			sides[id] = s.Clone()
		}
		out.Extensions.Battleship = &BattleshipExt{Sides: sides}
	}
	out.Extensions.Minefield = g.Extensions.Minefield.Clone()
	return &out
}

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
