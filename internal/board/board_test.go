// internal/board/board_test.go
package board

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicTacToeWinnerAllLines(t *testing.T) {
	for i, line := range TicTacToeLines {
		g := NewTicTacToe()
		for _, p := range line {
			g[p.Row][p.Col] = Player2Mark
		}
		mark, cells, ok := TicTacToeWinner(g)
		require.True(t, ok, "line %d not detected", i)
		assert.Equal(t, Player2Mark, mark)
		assert.ElementsMatch(t, line[:], cells)
	}
}

func TestTicTacToeNoWinner(t *testing.T) {
	// X O X
	// X O O
	// O X X
	g := Grid{
		{Player1Mark, Player2Mark, Player1Mark},
		{Player1Mark, Player2Mark, Player2Mark},
		{Player2Mark, Player1Mark, Player1Mark},
	}
	_, _, ok := TicTacToeWinner(g)
	assert.False(t, ok)
	assert.True(t, g.Full())
}

func TestConnectFourWinnerOrientations(t *testing.T) {
	cases := []struct {
		name  string
		cells []Point
	}{
		{"horizontal bottom right", []Point{{5, 3}, {5, 4}, {5, 5}, {5, 6}}},
		{"vertical left edge", []Point{{0, 0}, {1, 0}, {2, 0}, {3, 0}}},
		{"diagonal down-right", []Point{{2, 3}, {3, 4}, {4, 5}, {5, 6}}},
		{"diagonal down-left at edge", []Point{{2, 3}, {3, 2}, {4, 1}, {5, 0}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := NewConnectFour()
			for _, p := range tc.cells {
				g[p.Row][p.Col] = Player1Mark
			}
			mark, cells, ok := ConnectFourWinner(g)
			require.True(t, ok)
			assert.Equal(t, Player1Mark, mark)
			assert.ElementsMatch(t, tc.cells, cells)
		})
	}
}

func TestConnectFourThreeIsNotAWin(t *testing.T) {
	g := NewConnectFour()
	g[5][0], g[5][1], g[5][2] = Player2Mark, Player2Mark, Player2Mark
	_, _, ok := ConnectFourWinner(g)
	assert.False(t, ok)
}

func TestLandingRow(t *testing.T) {
	g := NewConnectFour()
	for k := 0; k < ConnectFourRows; k++ {
		row, ok := LandingRow(g, 3, false)
		require.True(t, ok)
		assert.Equal(t, ConnectFourRows-1-k, row, "piece %d should land %d from the bottom", k, k)
		g[row][3] = Player1Mark
	}
	_, ok := LandingRow(g, 3, false)
	assert.False(t, ok)
	assert.True(t, ColumnFull(g, 3))

	g = NewConnectFour()
	for k := 0; k < 3; k++ {
		row, ok := LandingRow(g, 6, true)
		require.True(t, ok)
		assert.Equal(t, k, row)
		g[row][6] = Player2Mark
	}

	_, ok = LandingRow(g, 7, false)
	assert.False(t, ok)
	_, ok = LandingRow(g, -1, true)
	assert.False(t, ok)
}

func TestGridDiff(t *testing.T) {
	a := NewTicTacToe()
	b := a.Clone()
	b[1][2] = Player1Mark
	assert.Equal(t, []Point{{1, 2}}, a.Diff(b))
	assert.Empty(t, a.Diff(a.Clone()))
	assert.Len(t, a.Diff(NewConnectFour()), ConnectFourRows*ConnectFourCols)
}

func TestRunFromLeavesGrid(t *testing.T) {
	g := NewConnectFour()
	g[0][5], g[0][6] = Player1Mark, Player1Mark
	assert.False(t, g.RunFrom(Point{0, 5}, Point{0, 1}, 4))
	assert.True(t, g.RunFrom(Point{0, 5}, Point{0, 1}, 2))
}

func validFleet() []Placement {
	return []Placement{
		{Row: 0, Col: 0, Length: 5, Orientation: Horizontal},
		{Row: 2, Col: 0, Length: 4, Orientation: Horizontal},
		{Row: 4, Col: 0, Length: 3, Orientation: Horizontal},
		{Row: 6, Col: 0, Length: 3, Orientation: Horizontal},
		{Row: 8, Col: 0, Length: 2, Orientation: Vertical},
	}
}

func TestPlaceFleet(t *testing.T) {
	s := NewSide()
	require.True(t, s.PlaceFleet(validFleet()))
	assert.True(t, s.FleetComplete())
	assert.Equal(t, 17, s.Remaining())
	assert.Equal(t, 17, s.Ships.Count(Ship))
}

func TestPlaceFleetRejectsWithoutMutation(t *testing.T) {
	cases := map[string][]Placement{
		"out of bounds": {
			{Row: 0, Col: 6, Length: 5, Orientation: Horizontal},
			{Row: 2, Col: 0, Length: 4, Orientation: Horizontal},
			{Row: 4, Col: 0, Length: 3, Orientation: Horizontal},
			{Row: 6, Col: 0, Length: 3, Orientation: Horizontal},
			{Row: 8, Col: 0, Length: 2, Orientation: Horizontal},
		},
		"overlap": {
			{Row: 0, Col: 0, Length: 5, Orientation: Horizontal},
			{Row: 0, Col: 2, Length: 4, Orientation: Vertical},
			{Row: 4, Col: 4, Length: 3, Orientation: Horizontal},
			{Row: 6, Col: 0, Length: 3, Orientation: Horizontal},
			{Row: 8, Col: 0, Length: 2, Orientation: Horizontal},
		},
		"touching diagonally": {
			{Row: 0, Col: 0, Length: 5, Orientation: Horizontal},
			{Row: 1, Col: 5, Length: 4, Orientation: Vertical},
			{Row: 4, Col: 0, Length: 3, Orientation: Horizontal},
			{Row: 6, Col: 0, Length: 3, Orientation: Horizontal},
			{Row: 8, Col: 0, Length: 2, Orientation: Horizontal},
		},
		"wrong fleet": {
			{Row: 0, Col: 0, Length: 5, Orientation: Horizontal},
			{Row: 2, Col: 0, Length: 5, Orientation: Horizontal},
		},
	}
	for name, placements := range cases {
		t.Run(name, func(t *testing.T) {
			s := NewSide()
			require.True(t, s.PlaceFleet(validFleet()))
			before := s.Clone()
			assert.False(t, s.PlaceFleet(placements))
			assert.True(t, before.Ships.Equal(s.Ships))
			assert.Equal(t, before.Fleet, s.Fleet)
		})
	}
}

func TestCanPlaceAdjacency(t *testing.T) {
	s := NewSide()
	require.True(t, s.Place(Placement{Row: 4, Col: 4, Length: 2, Orientation: Horizontal}))
	assert.False(t, s.CanPlace(Placement{Row: 5, Col: 6, Length: 2, Orientation: Horizontal}), "diagonal touch")
	assert.False(t, s.CanPlace(Placement{Row: 3, Col: 4, Length: 2, Orientation: Horizontal}), "edge touch")
	assert.True(t, s.CanPlace(Placement{Row: 6, Col: 4, Length: 2, Orientation: Horizontal}))
	assert.False(t, s.CanPlace(Placement{Row: 9, Col: 9, Length: 2, Orientation: Vertical}))
	assert.False(t, s.CanPlace(Placement{Row: 0, Col: 0, Length: 2, Orientation: "diagonal"}))
}

func TestReceiveShotHealth(t *testing.T) {
	s := NewSide()
	require.True(t, s.Place(Placement{Row: 0, Col: 0, Length: 2, Orientation: Horizontal}))

	res, idx, ok := s.ReceiveShot(Point{0, 0})
	require.True(t, ok)
	assert.Equal(t, Hit, res)
	assert.Equal(t, 0, idx)
	assert.Equal(t, 1, s.Fleet[0].Health)
	assert.False(t, s.AllSunk())

	_, _, ok = s.ReceiveShot(Point{0, 0})
	assert.False(t, ok, "already fired")

	res, _, ok = s.ReceiveShot(Point{5, 5})
	require.True(t, ok)
	assert.Equal(t, Miss, res)

	res, _, ok = s.ReceiveShot(Point{0, 1})
	require.True(t, ok)
	assert.Equal(t, Hit, res)
	assert.Equal(t, 0, s.Fleet[0].Health)
	assert.True(t, s.Fleet[0].Sunk())
	assert.True(t, s.AllSunk())

	_, _, ok = s.ReceiveShot(Point{10, 0})
	assert.False(t, ok)
}

func TestMinefieldFirstRevealIsSafe(t *testing.T) {
	for seed := uint64(0); seed < 20; seed++ {
		m := NewMinefield(9, 9, 10)
		first := Point{4, 4}
		m.PlaceMines(rand.New(rand.NewPCG(seed, seed+1)), first)

		mines := 0
		for r := 0; r < 9; r++ {
			for c := 0; c < 9; c++ {
				if m.Mine[r][c] {
					mines++
				}
			}
		}
		require.Equal(t, 10, mines)
		assert.False(t, m.Mine[4][4])
		for _, n := range m.Neighbours(first) {
			assert.False(t, m.Mine[n.Row][n.Col])
		}

		hit, revealed := m.Reveal(first)
		assert.False(t, hit)
		assert.NotEmpty(t, revealed)
		assert.Equal(t, 0, m.Adjacent[4][4])
	}
}

func TestMinefieldFloodAndClear(t *testing.T) {
	m := NewMinefield(3, 3, 1)
	m.Mine[2][2] = true
	m.Placed = true
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			for _, n := range m.Neighbours(Point{r, c}) {
				if m.Mine[n.Row][n.Col] {
					m.Adjacent[r][c]++
				}
			}
		}
	}

	hit, revealed := m.Reveal(Point{0, 0})
	assert.False(t, hit)
	assert.Len(t, revealed, 8)
	assert.True(t, m.Cleared())

	assert.False(t, m.ToggleFlag(Point{0, 0}), "revealed cells cannot be flagged")
	assert.True(t, m.ToggleFlag(Point{2, 2}))
	assert.True(t, m.Flagged[2][2])
}

func TestMinefieldFlagBlocksReveal(t *testing.T) {
	m := NewMinefield(3, 3, 1)
	m.Mine[0][0] = true
	m.Placed = true
	require.True(t, m.ToggleFlag(Point{0, 0}))
	hit, revealed := m.Reveal(Point{0, 0})
	assert.False(t, hit)
	assert.Nil(t, revealed)

	require.True(t, m.ToggleFlag(Point{0, 0}))
	hit, _ = m.Reveal(Point{0, 0})
	assert.True(t, hit)
	require.NotNil(t, m.Exploded)
	assert.Equal(t, Point{0, 0}, *m.Exploded)
}
