// internal/board/battleship.go
package board

import "sort"

// BattleshipSize is the side length of each Battleship grid.
const BattleshipSize = 10

// FleetLengths is the fixed fleet every side must place: carrier, battleship,
// cruiser, submarine and destroyer.
var FleetLengths = []int{5, 4, 3, 3, 2}

// Orientation of a ship placement.
type Orientation string

const (
	Horizontal Orientation = "horizontal"
	Vertical   Orientation = "vertical"
)

// Placement describes a ship by its bow cell, length and orientation.
type Placement struct {
	Row         int         `json:"row" mapstructure:"row"`
	Col         int         `json:"col" mapstructure:"col"`
	Length      int         `json:"length" mapstructure:"length"`
	Orientation Orientation `json:"orientation" mapstructure:"orientation"`
}

// Cells expands the placement into the contiguous cells it covers.
func (p Placement) Cells() []Point {
	cells := make([]Point, 0, p.Length)
	for i := 0; i < p.Length; i++ {
		if p.Orientation == Vertical {
			cells = append(cells, Point{p.Row + i, p.Col})
		} else {
			cells = append(cells, Point{p.Row, p.Col + i})
		}
	}
	return cells
}

// ShipState tracks a placed ship. Health counts segments not yet hit.
type ShipState struct {
	Length int     `json:"length"`
	Cells  []Point `json:"cells"`
	Health int     `json:"health"`
}

// Sunk reports whether every segment has been hit.
func (s ShipState) Sunk() bool { return s.Health == 0 }

// Side is one player's half of a Battleship game: the grid holding their own ships and
// the grid recording shots they have received.
type Side struct {
	Ships Grid        `json:"ships"`
	Shots Grid        `json:"shots"`
	Fleet []ShipState `json:"fleet"`
	Ready bool        `json:"ready"`
}

// NewSide returns a side with empty 10x10 grids and no fleet.
func NewSide() *Side {
	return &Side{
		Ships: NewGrid(BattleshipSize, BattleshipSize),
		Shots: NewGrid(BattleshipSize, BattleshipSize),
	}
}

// Clone returns a deep copy of the side.
func (s *Side) Clone() *Side {
	if s == nil {
		return nil
	}
	out := &Side{
		Ships: s.Ships.Clone(),
		Shots: s.Shots.Clone(),
		Ready: s.Ready,
	}
	for _, sh := range s.Fleet {
		out.Fleet = append(out.Fleet, ShipState{
			Length: sh.Length,
			Cells:  append([]Point(nil), sh.Cells...),
			Health: sh.Health,
		})
	}
	return out
}

// CanPlace reports whether the ship fits: every cell in bounds, and no cell overlapping
// or orthogonally/diagonally touching an existing ship.
func (s *Side) CanPlace(p Placement) bool {
	if p.Length <= 0 || (p.Orientation != Horizontal && p.Orientation != Vertical) {
		return false
	}
	for _, c := range p.Cells() {
		if !s.Ships.InBounds(c.Row, c.Col) {
			return false
		}
		for dr := -1; dr <= 1; dr++ {
			for dc := -1; dc <= 1; dc++ {
				if s.Ships.Get(c.Row+dr, c.Col+dc) == Ship {
					return false
				}
			}
		}
	}
	return true
}

// Place adds the ship when CanPlace allows it. A rejected placement leaves the side untouched.
func (s *Side) Place(p Placement) bool {
	if !s.CanPlace(p) {
		return false
	}
	cells := p.Cells()
	for _, c := range cells {
		s.Ships[c.Row][c.Col] = Ship
	}
	s.Fleet = append(s.Fleet, ShipState{Length: p.Length, Cells: cells, Health: p.Length})
	return true
}

// PlaceFleet replaces the whole fleet with the given placements. The lengths must match
// FleetLengths exactly and every ship must place; otherwise nothing changes.
func (s *Side) PlaceFleet(placements []Placement) bool {
	if !matchesFleet(placements) {
		return false
	}
	staged := NewSide()
	for _, p := range placements {
		if !staged.Place(p) {
			return false
		}
	}
	s.Ships = staged.Ships
	s.Fleet = staged.Fleet
	return true
}

// FleetComplete reports whether the placed ships match FleetLengths.
func (s *Side) FleetComplete() bool {
	lengths := make([]int, len(s.Fleet))
	for i, sh := range s.Fleet {
		lengths[i] = sh.Length
	}
	return sameLengths(lengths, FleetLengths)
}

// Remaining returns the sum of all ship health counters.
func (s *Side) Remaining() int {
	n := 0
	for _, sh := range s.Fleet {
		n += sh.Health
	}
	return n
}

// AllSunk reports whether the fleet has no health left. An empty fleet is never sunk.
func (s *Side) AllSunk() bool {
	return len(s.Fleet) > 0 && s.Remaining() == 0
}

// AlreadyFired reports whether a shot has been received at p.
func (s *Side) AlreadyFired(p Point) bool {
	v := s.Shots.Get(p.Row, p.Col)
	return v == Hit || v == Miss
}

// ReceiveShot records an incoming shot at p. It returns Hit or Miss and, on a hit, the
// index of the ship that was struck. ok is false when p is out of bounds or was already
// fired upon, in which case nothing changes.
func (s *Side) ReceiveShot(p Point) (result Cell, ship int, ok bool) {
	if !s.Shots.InBounds(p.Row, p.Col) || s.AlreadyFired(p) {
		return Empty, -1, false
	}
	if s.Ships[p.Row][p.Col] != Ship {
		s.Shots[p.Row][p.Col] = Miss
		return Miss, -1, true
	}
	s.Shots[p.Row][p.Col] = Hit
	s.Ships[p.Row][p.Col] = Hit
	for i := range s.Fleet {
		for _, c := range s.Fleet[i].Cells {
			if c == p {
				s.Fleet[i].Health--
				return Hit, i, true
			}
		}
	}
	return Hit, -1, true
}

func matchesFleet(placements []Placement) bool {
	lengths := make([]int, len(placements))
	for i, p := range placements {
		lengths[i] = p.Length
	}
	return sameLengths(lengths, FleetLengths)
}

func sameLengths(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	x := append([]int(nil), a...)
	y := append([]int(nil), b...)
	sort.Ints(x)
	sort.Ints(y)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}
