// internal/game/game_test.go
package game

import (
	"math/rand/v2"
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/csgames/internal/board"
	"github.com/jason-s-yu/csgames/internal/catalog"
	"github.com/jason-s-yu/csgames/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newPlaying builds a two-player game of kind that is already in play.
func newPlaying(t *testing.T, reg *Registry, kind models.GameKind) (*models.GameState, uuid.UUID, uuid.UUID) {
	t.Helper()
	p1, p2 := uuid.New(), uuid.New()
	gs, err := reg.NewGameState(kind, uuid.New(), p1, &p2)
	require.NoError(t, err)
	return gs, p1, p2
}

// apply requires the move to be accepted.
func apply(t *testing.T, reg *Registry, gs *models.GameState, mv Move, actor uuid.UUID) *models.GameState {
	t.Helper()
	next, rej := reg.ApplyMove(gs, mv, actor)
	require.Nil(t, rej, "unexpected rejection")
	require.NotNil(t, next)
	return next
}

func TestTicTacToeTopRowScenario(t *testing.T) {
	reg := DefaultRegistry()
	gs, x, o := newPlaying(t, reg, models.KindTicTacToe)
	require.Equal(t, models.GamePlaying, gs.Status)
	require.Equal(t, x, gs.CurrentPlayer)

	moves := []struct {
		actor    uuid.UUID
		row, col int
	}{
		{x, 0, 0}, {o, 1, 1}, {x, 0, 1}, {o, 2, 2}, {x, 0, 2},
	}
	for i, m := range moves {
		gs = apply(t, reg, gs, MarkAt(m.row, m.col), m.actor)
		if i < len(moves)-1 {
			assert.Equal(t, models.GamePlaying, gs.Status)
		}
	}
	assert.Equal(t, models.GameFinished, gs.Status)
	require.NotNil(t, gs.Winner)
	assert.Equal(t, x, *gs.Winner)
	assert.Equal(t, 5, gs.MoveCount)
}

func TestTicTacToeDraw(t *testing.T) {
	reg := DefaultRegistry()
	gs, x, o := newPlaying(t, reg, models.KindTicTacToe)
	// X O X
	// X O O
	// O X X
	seq := []board.Point{{Row: 0, Col: 0}, {Row: 0, Col: 1}, {Row: 0, Col: 2}, {Row: 1, Col: 1}, {Row: 1, Col: 0}, {Row: 1, Col: 2}, {Row: 2, Col: 1}, {Row: 2, Col: 0}, {Row: 2, Col: 2}}
	players := []uuid.UUID{x, o}
	for i, p := range seq {
		gs = apply(t, reg, gs, MarkAt(p.Row, p.Col), players[i%2])
	}
	assert.Equal(t, models.GameFinished, gs.Status)
	assert.Nil(t, gs.Winner)
}

func TestWinDetectionEveryTicTacToeLine(t *testing.T) {
	reg := DefaultRegistry()
	for i, line := range board.TicTacToeLines {
		gs, _, o := newPlaying(t, reg, models.KindTicTacToe)
		// place two of O's marks on the line directly, then let O complete it
		gs.Board[line[0].Row][line[0].Col] = board.Player2Mark
		gs.Board[line[1].Row][line[1].Col] = board.Player2Mark
		gs.CurrentPlayer = o
		next := apply(t, reg, gs, MarkAt(line[2].Row, line[2].Col), o)
		assert.Equal(t, models.GameFinished, next.Status, "line %d", i)
		require.NotNil(t, next.Winner)
		assert.Equal(t, o, *next.Winner)
	}
}

func TestTurnAlternation(t *testing.T) {
	reg := DefaultRegistry()
	gs, p1, p2 := newPlaying(t, reg, models.KindConnectFour)
	rng := rand.New(rand.NewPCG(1, 2))
	for n := 0; n < 40 && gs.Status == models.GamePlaying; n++ {
		actor := gs.CurrentPlayer
		col := rng.IntN(board.ConnectFourCols)
		next, rej := reg.ApplyMove(gs, DropIn(col), actor)
		if rej != nil {
			assert.Equal(t, models.ReasonColumnFull, rej.Reason)
			continue
		}
		gs = next
		if gs.Status == models.GamePlaying {
			assert.NotEqual(t, actor, gs.CurrentPlayer, "move %d", n)
			assert.Contains(t, []uuid.UUID{p1, p2}, gs.CurrentPlayer)
		}
	}
}

func TestRejectionsLeaveStateUntouched(t *testing.T) {
	reg := DefaultRegistry()
	gs, x, o := newPlaying(t, reg, models.KindTicTacToe)
	gs = apply(t, reg, gs, MarkAt(1, 1), x)
	before := gs.Clone()

	cases := []struct {
		name   string
		mv     Move
		actor  uuid.UUID
		reason models.RejectReason
	}{
		{"occupied", MarkAt(1, 1), o, models.ReasonCellOccupied},
		{"wrong turn", MarkAt(0, 0), x, models.ReasonNotYourTurn},
		{"stranger", MarkAt(0, 0), uuid.New(), models.ReasonNotYourTurn},
		{"out of bounds", MarkAt(3, 0), o, models.ReasonOutOfBounds},
		{"missing cell", Move{Action: ActionMark}, o, models.ReasonInvalidMove},
		{"wrong action", Move{Action: ActionFire}, o, models.ReasonInvalidMove},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, rej := reg.ApplyMove(gs, tc.mv, tc.actor)
			assert.Nil(t, next)
			require.NotNil(t, rej)
			assert.Equal(t, tc.reason, rej.Reason)
			assert.Equal(t, before, gs)
		})
	}
}

func TestFinishedGameRejectsMoves(t *testing.T) {
	reg := DefaultRegistry()
	gs, x, _ := newPlaying(t, reg, models.KindTicTacToe)
	gs.Status = models.GameFinished
	_, rej := reg.ApplyMove(gs, MarkAt(0, 0), x)
	require.NotNil(t, rej)
	assert.Equal(t, models.ReasonGameOver, rej.Reason)
}

func TestFinishedGameRejectsForeignActionsAsGameOver(t *testing.T) {
	reg := DefaultRegistry()
	for _, kind := range []models.GameKind{models.KindTicTacToe, models.KindConnectFour, models.KindBattleship} {
		gs, x, _ := newPlaying(t, reg, kind)
		gs.Status = models.GameFinished
		for _, mv := range []Move{{Action: ActionDrop}, {Action: "bogus"}, {Action: ActionFlip}} {
			_, rej := reg.ApplyMove(gs, mv, x)
			require.NotNil(t, rej, "%s %q", kind, mv.Action)
			assert.Equal(t, models.ReasonGameOver, rej.Reason, "%s %q", kind, mv.Action)
		}
	}
}

func TestTicTacToeChecksTurnBeforeAction(t *testing.T) {
	reg := DefaultRegistry()
	gs, _, o := newPlaying(t, reg, models.KindTicTacToe)
	_, rej := reg.ApplyMove(gs, Move{Action: ActionDrop}, o)
	require.NotNil(t, rej)
	assert.Equal(t, models.ReasonNotYourTurn, rej.Reason)
}

func TestPendingGameRejectsMoves(t *testing.T) {
	reg := DefaultRegistry()
	p1 := uuid.New()
	gs, err := reg.NewGameState(models.KindTicTacToe, uuid.New(), p1, nil)
	require.NoError(t, err)
	assert.Equal(t, models.GamePending, gs.Status)
	_, rej := reg.ApplyMove(gs, MarkAt(0, 0), p1)
	require.NotNil(t, rej)
	assert.Equal(t, models.ReasonGameNotStarted, rej.Reason)
}

func TestConnectFourGravity(t *testing.T) {
	reg := DefaultRegistry()
	gs, p1, p2 := newPlaying(t, reg, models.KindConnectFour)
	players := []uuid.UUID{p1, p2}
	for k := 0; k < board.ConnectFourRows; k++ {
		gs = apply(t, reg, gs, DropIn(0), players[k%2])
		require.NotNil(t, gs.LastMove.Cell)
		assert.Equal(t, board.ConnectFourRows-1-k, gs.LastMove.Cell.Row, "piece %d", k)
	}

	before := gs.Clone()
	_, rej := reg.ApplyMove(gs, DropIn(0), gs.CurrentPlayer)
	require.NotNil(t, rej)
	assert.Equal(t, models.ReasonColumnFull, rej.Reason)
	assert.True(t, before.Board.Equal(gs.Board))

	_, rej = reg.ApplyMove(gs, DropIn(7), gs.CurrentPlayer)
	require.NotNil(t, rej)
	assert.Equal(t, models.ReasonOutOfBounds, rej.Reason)
}

func TestConnectFourFlip(t *testing.T) {
	reg := DefaultRegistry()
	gs, p1, p2 := newPlaying(t, reg, models.KindConnectFour)

	gs = apply(t, reg, gs, Move{Action: ActionFlip}, p1)
	assert.True(t, gs.Extensions.Gravity.Flipped)
	assert.Equal(t, p2, gs.CurrentPlayer, "a flip uses the turn")

	gs = apply(t, reg, gs, DropIn(2), p2)
	assert.Equal(t, 0, gs.LastMove.Cell.Row, "flipped pieces settle at the top")

	_, rej := reg.ApplyMove(gs, Move{Action: ActionFlip}, p1)
	require.NotNil(t, rej)
	assert.Equal(t, models.ReasonAbilityUsed, rej.Reason)

	gs = apply(t, reg, gs, DropIn(2), p1)
	gs = apply(t, reg, gs, Move{Action: ActionFlip}, p2)
	assert.False(t, gs.Extensions.Gravity.Flipped, "second player's flip restores gravity")
	assert.ElementsMatch(t, []uuid.UUID{p1, p2}, gs.Extensions.Gravity.UsedBy)

	gs = apply(t, reg, gs, DropIn(2), p1)
	assert.Equal(t, board.ConnectFourRows-1, gs.LastMove.Cell.Row)
}

func TestConnectFourDiagonalWin(t *testing.T) {
	reg := DefaultRegistry()
	gs, p1, _ := newPlaying(t, reg, models.KindConnectFour)
	// red diagonal from (5,0) to (2,3); last piece completes it at (2,3)
	gs.Board[5][0] = board.Player1Mark
	gs.Board[4][1] = board.Player1Mark
	gs.Board[3][2] = board.Player1Mark
	for r := 3; r <= 5; r++ {
		gs.Board[r][3] = board.Player2Mark
	}
	gs.Board[5][1] = board.Player2Mark
	gs.Board[5][2], gs.Board[4][2] = board.Player2Mark, board.Player1Mark

	gs = apply(t, reg, gs, DropIn(3), p1)
	assert.Equal(t, models.GameFinished, gs.Status)
	require.NotNil(t, gs.Winner)
	assert.Equal(t, p1, *gs.Winner)
}

func TestBattleshipSetupAndPlay(t *testing.T) {
	reg := DefaultRegistry()
	gs, p1, p2 := newPlaying(t, reg, models.KindBattleship)
	require.Equal(t, models.GameWaiting, gs.Status)

	_, rej := reg.ApplyMove(gs, FireAt(0, 0), p1)
	require.NotNil(t, rej)
	assert.Equal(t, models.ReasonGameNotStarted, rej.Reason)

	_, rej = reg.ApplyMove(gs, Move{Action: ActionReady}, p1)
	require.NotNil(t, rej)
	assert.Equal(t, models.ReasonInvalidPlacement, rej.Reason, "cannot ready without a fleet")

	bad := []board.Placement{{Row: 0, Col: 0, Length: 5, Orientation: board.Horizontal}}
	_, rej = reg.ApplyMove(gs, PlaceFleet(bad), p1)
	require.NotNil(t, rej)
	assert.Equal(t, models.ReasonInvalidPlacement, rej.Reason)

	rng := rand.New(rand.NewPCG(3, 4))
	gs = apply(t, reg, gs, PlaceFleet(RandomFleet(rng)), p1)
	gs = apply(t, reg, gs, Move{Action: ActionReady}, p1)
	assert.Equal(t, models.GameWaiting, gs.Status)

	gs = apply(t, reg, gs, PlaceFleet(RandomFleet(rng)), p2)
	gs = apply(t, reg, gs, Move{Action: ActionReady}, p2)
	assert.Equal(t, models.GamePlaying, gs.Status)
	assert.Equal(t, p1, gs.CurrentPlayer)

	_, rej = reg.ApplyMove(gs, PlaceFleet(RandomFleet(rng)), p1)
	require.NotNil(t, rej)

	gs = apply(t, reg, gs, FireAt(0, 0), p1)
	assert.Equal(t, p2, gs.CurrentPlayer)
	gs = apply(t, reg, gs, FireAt(9, 9), p2)

	_, rej = reg.ApplyMove(gs, FireAt(0, 0), p1)
	require.NotNil(t, rej)
	assert.Equal(t, models.ReasonCellOccupied, rej.Reason)

	_, rej = reg.ApplyMove(gs, FireAt(10, 0), p1)
	require.NotNil(t, rej)
	assert.Equal(t, models.ReasonOutOfBounds, rej.Reason)
}

func TestBattleshipAllSunk(t *testing.T) {
	reg := DefaultRegistry()
	gs, p1, p2 := newPlaying(t, reg, models.KindBattleship)
	target := gs.Extensions.Battleship.Sides[p2]
	require.True(t, target.Place(board.Placement{Row: 0, Col: 0, Length: 2, Orientation: board.Horizontal}))
	gs.Extensions.Battleship.Sides[p1].Place(board.Placement{Row: 5, Col: 5, Length: 2, Orientation: board.Vertical})
	StartPlay(gs)

	gs = apply(t, reg, gs, FireAt(0, 0), p1)
	assert.Equal(t, 1, gs.Extensions.Battleship.Sides[p2].Fleet[0].Health)
	assert.Equal(t, "hit", gs.LastMove.Result)
	gs = apply(t, reg, gs, FireAt(9, 9), p2)
	gs = apply(t, reg, gs, FireAt(0, 1), p1)

	assert.Equal(t, 0, gs.Extensions.Battleship.Sides[p2].Fleet[0].Health)
	assert.Equal(t, "sunk", gs.LastMove.Result)
	assert.Equal(t, models.GameFinished, gs.Status)
	require.NotNil(t, gs.Winner)
	assert.Equal(t, p1, *gs.Winner)
}

func fixedMinesweeper(rows, cols, mines int, seed uint64) Minesweeper {
	m := NewMinesweeper(rows, cols, mines)
	m.NewRand = func() *rand.Rand { return rand.New(rand.NewPCG(seed, seed)) }
	return m
}

func TestMinesweeperSinglePlayer(t *testing.T) {
	reg := NewRegistry(fixedMinesweeper(16, 16, 40, 7))
	player := uuid.New()
	gs, err := reg.NewGameState(models.KindMinesweeper, uuid.New(), player, nil)
	require.NoError(t, err)
	assert.Equal(t, models.GamePlaying, gs.Status)

	gs = apply(t, reg, gs, RevealAt(4, 4), player)
	require.Equal(t, models.GamePlaying, gs.Status)
	assert.Equal(t, player, gs.CurrentPlayer, "single player keeps the turn")
	assert.True(t, gs.Extensions.Minefield.Placed)
	assert.False(t, gs.Extensions.Minefield.Mine[4][4])

	_, rej := reg.ApplyMove(gs, RevealAt(4, 4), player)
	require.NotNil(t, rej)
	assert.Equal(t, models.ReasonCellOccupied, rej.Reason)

	_, rej = reg.ApplyMove(gs, RevealAt(4, 4), uuid.New())
	require.NotNil(t, rej)
	assert.Equal(t, models.ReasonNotYourTurn, rej.Reason)
}

func TestMinesweeperMineFinishesWithoutWinner(t *testing.T) {
	reg := NewRegistry(fixedMinesweeper(9, 9, 10, 11))
	player := uuid.New()
	gs, err := reg.NewGameState(models.KindMinesweeper, uuid.New(), player, nil)
	require.NoError(t, err)
	gs = apply(t, reg, gs, RevealAt(0, 0), player)

	var mine board.Point
	found := false
	for r := 0; r < 9 && !found; r++ {
		for c := 0; c < 9; c++ {
			if gs.Extensions.Minefield.Mine[r][c] {
				mine, found = board.Point{Row: r, Col: c}, true
				break
			}
		}
	}
	require.True(t, found)

	flagged := apply(t, reg, gs, FlagAt(mine.Row, mine.Col), player)
	_, rej := reg.ApplyMove(flagged, RevealAt(mine.Row, mine.Col), player)
	require.NotNil(t, rej, "flagged cells cannot be revealed")

	gs = apply(t, reg, gs, RevealAt(mine.Row, mine.Col), player)
	assert.Equal(t, models.GameFinished, gs.Status)
	assert.Nil(t, gs.Winner)
	assert.Equal(t, "mine", gs.LastMove.Result)
}

func TestMinesweeperClearWins(t *testing.T) {
	reg := NewRegistry(fixedMinesweeper(3, 3, 0, 1))
	player := uuid.New()
	gs, err := reg.NewGameState(models.KindMinesweeper, uuid.New(), player, nil)
	require.NoError(t, err)
	gs = apply(t, reg, gs, RevealAt(1, 1), player)
	assert.Equal(t, models.GameFinished, gs.Status)
	require.NotNil(t, gs.Winner)
	assert.Equal(t, player, *gs.Winner)
}

func TestUnsupportedKind(t *testing.T) {
	reg := DefaultRegistry()
	_, err := reg.NewGameState(models.KindWordle, uuid.New(), uuid.New(), nil)
	assert.Error(t, err)

	gs := &models.GameState{Kind: models.KindWordle}
	_, rej := reg.ApplyMove(gs, Move{}, uuid.New())
	require.NotNil(t, rej)
	assert.Equal(t, models.ReasonUnsupportedGame, rej.Reason)
}

func TestRegistryForUsesCatalogMinefield(t *testing.T) {
	cat, err := catalog.Parse([]byte(`
games:
  - id: minesweeper
    name: Minesweeper
    players: 1
    minefield: {rows: 16, cols: 16, mines: 40}
`))
	require.NoError(t, err)

	res, ok := RegistryFor(cat).Lookup(models.KindMinesweeper)
	require.True(t, ok)
	ms := res.(Minesweeper)
	assert.Equal(t, 16, ms.Rows)
	assert.Equal(t, 40, ms.Mines)

	res, ok = RegistryFor(nil).Lookup(models.KindMinesweeper)
	require.True(t, ok)
	assert.Equal(t, DefaultMineCount, res.(Minesweeper).Mines)
}

func TestDecodeMove(t *testing.T) {
	mv, err := DecodeMove(map[string]interface{}{"row": float64(1), "col": float64(2)})
	require.NoError(t, err)
	p, ok := mv.Cell()
	require.True(t, ok)
	assert.Equal(t, board.Point{Row: 1, Col: 2}, p)

	mv, err = DecodeMove(map[string]interface{}{"column": float64(3)})
	require.NoError(t, err)
	require.NotNil(t, mv.Column)
	assert.Equal(t, 3, *mv.Column)

	mv, err = DecodeMove(map[string]interface{}{
		"action": "place",
		"ships": []interface{}{
			map[string]interface{}{"row": float64(0), "col": float64(0), "length": float64(2), "orientation": "vertical"},
		},
	})
	require.NoError(t, err)
	require.Len(t, mv.Ships, 1)
	assert.Equal(t, board.Vertical, mv.Ships[0].Orientation)

	_, err = DecodeMove(map[string]interface{}{"bogus": true})
	assert.Error(t, err)

	decoded, err := DecodeMove(DropIn(4).Payload())
	require.NoError(t, err)
	assert.Equal(t, DropIn(4), decoded)
}

func TestViewForHidesOpponentShipsAndMines(t *testing.T) {
	reg := DefaultRegistry()
	gs, p1, p2 := newPlaying(t, reg, models.KindBattleship)
	gs.Extensions.Battleship.Sides[p2].Place(board.Placement{Row: 0, Col: 0, Length: 3, Orientation: board.Horizontal})
	gs.Extensions.Battleship.Sides[p1].Place(board.Placement{Row: 5, Col: 5, Length: 2, Orientation: board.Vertical})
	gs.Extensions.Battleship.Sides[p2].ReceiveShot(board.Point{Row: 0, Col: 1})

	view := ViewFor(gs, p1)
	theirs := view.Extensions.Battleship.Sides[p2]
	assert.Equal(t, 0, theirs.Ships.Count(board.Ship))
	assert.Equal(t, board.Hit, theirs.Ships[0][1])
	assert.Nil(t, theirs.Fleet[0].Cells)
	assert.Equal(t, 2, view.Extensions.Battleship.Sides[p1].Ships.Count(board.Ship), "own ships stay visible")
	assert.Equal(t, 2, gs.Extensions.Battleship.Sides[p2].Ships.Count(board.Ship), "source is not modified")

	gs.Status = models.GameFinished
	assert.Equal(t, 2, ViewFor(gs, p1).Extensions.Battleship.Sides[p2].Ships.Count(board.Ship))

	msReg := NewRegistry(fixedMinesweeper(5, 5, 3, 9))
	player := uuid.New()
	ms, err := msReg.NewGameState(models.KindMinesweeper, uuid.New(), player, nil)
	require.NoError(t, err)
	ms = apply(t, msReg, ms, RevealAt(2, 2), player)
	if ms.Status == models.GamePlaying {
		v := ViewFor(ms, player)
		for r := 0; r < 5; r++ {
			for c := 0; c < 5; c++ {
				assert.False(t, v.Extensions.Minefield.Mine[r][c])
			}
		}
	}
}

func TestChooseMoveWinsAndBlocks(t *testing.T) {
	reg := DefaultRegistry()
	gs, _, ai := newPlaying(t, reg, models.KindTicTacToe)
	gs.Board[0][0], gs.Board[0][1] = board.Player1Mark, board.Player1Mark
	gs.Board[1][0], gs.Board[1][1] = board.Player2Mark, board.Player2Mark
	gs.CurrentPlayer = ai
	mv, ok := ChooseMove(gs, ai, rand.New(rand.NewPCG(1, 1)))
	require.True(t, ok)
	assert.Equal(t, MarkAt(1, 2), mv, "take the win before blocking")

	gs.Board[1][1] = board.Empty
	mv, ok = ChooseMove(gs, ai, rand.New(rand.NewPCG(1, 1)))
	require.True(t, ok)
	assert.Equal(t, MarkAt(0, 2), mv, "block the open row")

	cf, _, ai2 := newPlaying(t, reg, models.KindConnectFour)
	for r := 3; r <= 5; r++ {
		cf.Board[r][6] = board.Player1Mark
	}
	mv, ok = ChooseMove(cf, ai2, rand.New(rand.NewPCG(1, 1)))
	require.True(t, ok)
	assert.Equal(t, DropIn(6), mv)
}

func TestRandomFleetIsLegal(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	for i := 0; i < 20; i++ {
		s := board.NewSide()
		assert.True(t, s.PlaceFleet(RandomFleet(rng)))
	}
}

func TestBattleshipShotHuntsAroundHits(t *testing.T) {
	reg := DefaultRegistry()
	gs, p1, ai := newPlaying(t, reg, models.KindBattleship)
	target := gs.Extensions.Battleship.Sides[p1]
	require.True(t, target.Place(board.Placement{Row: 4, Col: 4, Length: 3, Orientation: board.Horizontal}))
	target.ReceiveShot(board.Point{Row: 4, Col: 4})
	StartPlay(gs)
	gs.CurrentPlayer = ai

	mv, ok := ChooseMove(gs, ai, rand.New(rand.NewPCG(1, 1)))
	require.True(t, ok)
	p, _ := mv.Cell()
	dist := abs(p.Row-4) + abs(p.Col-4)
	assert.Equal(t, 1, dist)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
