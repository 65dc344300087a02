// internal/game/move.go
package game

import (
	"fmt"

	"github.com/jason-s-yu/csgames/internal/board"
	"github.com/mitchellh/mapstructure"
)

// Move actions. A payload without an action gets the default action of its game.
const (
	ActionMark   = "mark"   // Tic-Tac-Toe
	ActionDrop   = "drop"   // Connect Four
	ActionFlip   = "flip"   // Connect Four gravity flip
	ActionPlace  = "place"  // Battleship fleet placement
	ActionReady  = "ready"  // Battleship placement done
	ActionFire   = "fire"   // Battleship shot
	ActionReveal = "reveal" // Minesweeper
	ActionFlag   = "flag"   // Minesweeper
)

// Move is the decoded form of a client move payload.
type Move struct {
	Action string            `mapstructure:"action"`
	Row    *int              `mapstructure:"row"`
	Col    *int              `mapstructure:"col"`
	Column *int              `mapstructure:"column"`
	Ships  []board.Placement `mapstructure:"ships"`
}

// Cell returns the targeted coordinate. ok is false when row or col is missing.
func (m Move) Cell() (board.Point, bool) {
	if m.Row == nil || m.Col == nil {
		return board.Point{}, false
	}
	return board.Point{Row: *m.Row, Col: *m.Col}, true
}

// DecodeMove converts a generic JSON payload such as {"row":0,"col":2} or
// {"column":3} into a Move.
func DecodeMove(payload map[string]interface{}) (Move, error) {
	var mv Move
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &mv,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return Move{}, err
	}
	if err := dec.Decode(payload); err != nil {
		return Move{}, fmt.Errorf("decode move: %w", err)
	}
	return mv, nil
}

// Payload is the inverse of DecodeMove, used when logging moves and by clients that
// submit typed moves.
func (m Move) Payload() map[string]interface{} {
	out := map[string]interface{}{}
	if m.Action != "" {
		out["action"] = m.Action
	}
	if m.Row != nil {
		out["row"] = *m.Row
	}
	if m.Col != nil {
		out["col"] = *m.Col
	}
	if m.Column != nil {
		out["column"] = *m.Column
	}
	if len(m.Ships) > 0 {
		ships := make([]interface{}, len(m.Ships))
		for i, s := range m.Ships {
			ships[i] = map[string]interface{}{
				"row":         s.Row,
				"col":         s.Col,
				"length":      s.Length,
				"orientation": string(s.Orientation),
			}
		}
		out["ships"] = ships
	}
	return out
}

// MarkAt builds a Tic-Tac-Toe move.
func MarkAt(row, col int) Move {
	return Move{Action: ActionMark, Row: &row, Col: &col}
}

// DropIn builds a Connect Four drop.
func DropIn(column int) Move {
	return Move{Action: ActionDrop, Column: &column}
}

// FireAt builds a Battleship shot.
func FireAt(row, col int) Move {
	return Move{Action: ActionFire, Row: &row, Col: &col}
}

// RevealAt builds a Minesweeper reveal.
func RevealAt(row, col int) Move {
	return Move{Action: ActionReveal, Row: &row, Col: &col}
}

// FlagAt builds a Minesweeper flag toggle.
func FlagAt(row, col int) Move {
	return Move{Action: ActionFlag, Row: &row, Col: &col}
}

// PlaceFleet builds a Battleship placement move.
func PlaceFleet(ships []board.Placement) Move {
	return Move{Action: ActionPlace, Ships: ships}
}
