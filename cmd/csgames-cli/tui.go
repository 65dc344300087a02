package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	lip "github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/jason-s-yu/csgames/internal/board"
	"github.com/jason-s-yu/csgames/internal/clientsync"
	"github.com/jason-s-yu/csgames/internal/game"
	"github.com/jason-s-yu/csgames/internal/models"
)

var (
	headerStyle  = lip.NewStyle().Foreground(lip.Color("#F1FA8C")).Bold(true)
	footerStyle  = lip.NewStyle().Foreground(lip.Color("#6272A4"))
	winStyle     = lip.NewStyle().Foreground(lip.Color("#50FA7B")).Bold(true)
	errStyle     = lip.NewStyle().Foreground(lip.Color("#FF5555"))
	pendingStyle = lip.NewStyle().Foreground(lip.Color("#FFB86C")).Italic(true)
	xStyle       = lip.NewStyle().Foreground(lip.Color("#8BE9FD"))
	oStyle       = lip.NewStyle().Foreground(lip.Color("#FF79C6"))
	hitStyle     = lip.NewStyle().Foreground(lip.Color("#FF5555")).Bold(true)
	cellStyle    = lip.NewStyle().Foreground(lip.Color("#BD93F9"))
	cursorStyle  = lip.NewStyle().Background(lip.Color("#44475a"))
	boxStyle     = lip.NewStyle().Border(lip.RoundedBorder()).BorderForeground(lip.Color("#6272A4")).Padding(0, 1)
)

const helpLine = "arrows/hjkl move · enter act · f flag · x flip · p place · r ready · m rematch · q quit"

// session is the part of the synchronizer the board view drives.
type session interface {
	SubmitMove(ctx context.Context, mv game.Move) error
	RequestRematch(ctx context.Context) (*models.PlayAgainRequest, error)
	PressCell(row, col int)
	ReleaseCell(ctx context.Context) error
}

type (
	updateMsg   clientsync.Update
	rematchMsg  uuid.UUID
	syncDoneMsg struct{ err error }
	actionMsg   struct {
		what string
		err  error
	}
)

type coord struct {
	row int
	col int
}

// playModel renders one game and turns key presses into moves.
type playModel struct {
	ctx  context.Context
	sess session
	me   uuid.UUID
	rng  *rand.Rand

	state      *models.GameState
	optimistic bool
	changed    map[board.Point]bool
	cursor     coord
	status     string
	failed     bool

	next uuid.UUID
	err  error
}

func newPlayModel(ctx context.Context, sess session, me uuid.UUID) playModel {
	return playModel{
		ctx:  ctx,
		sess: sess,
		me:   me,
		rng:  rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

func (m playModel) Init() tea.Cmd {
	return nil
}

func (m playModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case updateMsg:
		m.state = msg.State
		m.optimistic = msg.Optimistic
		m.changed = make(map[board.Point]bool, len(msg.Changed))
		for _, p := range msg.Changed {
			m.changed[p] = true
		}
		m.clampCursor()
		return m, nil
	case rematchMsg:
		m.next = uuid.UUID(msg)
		return m, tea.Quit
	case syncDoneMsg:
		m.err = msg.err
		return m, tea.Quit
	case actionMsg:
		m.status, m.failed = describe(msg.what, msg.err)
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg.String())
	}
	return m, nil
}

func (m playModel) handleKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		m.cursor.row--
	case "down", "j":
		m.cursor.row++
	case "left", "h":
		m.cursor.col--
	case "right", "l":
		m.cursor.col++
	case "m":
		return m, m.rematch()
	}
	m.clampCursor()

	if m.state == nil {
		return m, nil
	}
	mv, ok := m.moveFor(key)
	if !ok {
		return m, nil
	}
	if m.state.Kind == models.KindMinesweeper && mv.Action == game.ActionReveal {
		return m, m.tap()
	}
	return m, m.submit(mv)
}

// moveFor maps a key to the move it makes in the current game.
func (m playModel) moveFor(key string) (game.Move, bool) {
	r, c := m.cursor.row, m.cursor.col
	kind := m.state.Kind
	switch key {
	case "enter", " ":
		switch kind {
		case models.KindConnectFour:
			return game.DropIn(c), true
		case models.KindBattleship:
			return game.FireAt(r, c), true
		case models.KindMinesweeper:
			return game.RevealAt(r, c), true
		default:
			return game.MarkAt(r, c), true
		}
	case "f":
		if kind == models.KindMinesweeper {
			return game.FlagAt(r, c), true
		}
	case "x":
		if kind == models.KindConnectFour {
			return game.Move{Action: game.ActionFlip}, true
		}
	case "p":
		if kind == models.KindBattleship {
			return game.PlaceFleet(game.RandomFleet(m.rng)), true
		}
	case "r":
		if kind == models.KindBattleship {
			return game.Move{Action: game.ActionReady}, true
		}
	}
	return game.Move{}, false
}

func (m playModel) submit(mv game.Move) tea.Cmd {
	ctx, sess := m.ctx, m.sess
	what := mv.Action
	if what == "" {
		what = "move"
	}
	return func() tea.Msg {
		return actionMsg{what: what, err: sess.SubmitMove(ctx, mv)}
	}
}

// tap presses and immediately releases the cursor cell, which reveals it.
func (m playModel) tap() tea.Cmd {
	ctx, sess, cur := m.ctx, m.sess, m.cursor
	return func() tea.Msg {
		sess.PressCell(cur.row, cur.col)
		return actionMsg{what: game.ActionReveal, err: sess.ReleaseCell(ctx)}
	}
}

func (m playModel) rematch() tea.Cmd {
	ctx, sess := m.ctx, m.sess
	return func() tea.Msg {
		_, err := sess.RequestRematch(ctx)
		return actionMsg{what: "rematch requested", err: err}
	}
}

func describe(what string, err error) (string, bool) {
	if err == nil {
		return what, false
	}
	var rej *models.Rejection
	if errors.As(err, &rej) {
		return "rejected: " + string(rej.Reason), true
	}
	return "error: " + err.Error(), true
}

// bounds is the cursor area of the current game.
func (m playModel) bounds() (rows, cols int) {
	gs := m.state
	switch {
	case gs == nil:
		return 1, 1
	case gs.Kind == models.KindConnectFour:
		return 1, gs.Board.Cols()
	case gs.Extensions.Battleship != nil:
		return board.BattleshipSize, board.BattleshipSize
	case gs.Extensions.Minefield != nil:
		return gs.Extensions.Minefield.Rows, gs.Extensions.Minefield.Cols
	}
	return gs.Board.Rows(), gs.Board.Cols()
}

func (m *playModel) clampCursor() {
	rows, cols := m.bounds()
	m.cursor.row = clamp(m.cursor.row, rows)
	m.cursor.col = clamp(m.cursor.col, cols)
}

func clamp(v, n int) int {
	if v >= n {
		v = n - 1
	}
	if v < 0 {
		v = 0
	}
	return v
}

func (m playModel) View() string {
	if m.state == nil {
		return headerStyle.Render("loading game...") + "\n"
	}
	gs := m.state

	var b strings.Builder
	header := fmt.Sprintf("%s · v%d · %s", gs.Kind, gs.Version, gs.Status)
	b.WriteString(headerStyle.Render(header))
	if m.optimistic {
		b.WriteString(" " + pendingStyle.Render("(pending)"))
	}
	b.WriteString("\n")

	switch {
	case gs.Extensions.Battleship != nil:
		b.WriteString(m.battleshipView())
	case gs.Extensions.Minefield != nil:
		b.WriteString(boxStyle.Render(m.minefieldView(gs.Extensions.Minefield)))
	case gs.Kind == models.KindConnectFour:
		b.WriteString(boxStyle.Render(m.dropRow(gs.Board.Cols()) + "\n" + m.gridView(gs.Board, false)))
	default:
		b.WriteString(boxStyle.Render(m.gridView(gs.Board, true)))
	}
	b.WriteString("\n")

	if line := outcome(gs, m.me); line != "" {
		b.WriteString(winStyle.Render(line) + "\n")
	}
	if m.status != "" {
		if m.failed {
			b.WriteString(errStyle.Render(m.status) + "\n")
		} else {
			b.WriteString(footerStyle.Render(m.status) + "\n")
		}
	}
	b.WriteString(footerStyle.Render(helpLine) + "\n")
	return b.String()
}

func outcome(gs *models.GameState, me uuid.UUID) string {
	switch {
	case gs.Status == models.GameFinished && gs.Winner == nil:
		return "draw"
	case gs.Status == models.GameFinished && *gs.Winner == me:
		return "you won"
	case gs.Status == models.GameFinished:
		return "you lost"
	case gs.Status == models.GamePlaying && gs.CurrentPlayer == me:
		return "your turn"
	}
	return ""
}

func (m playModel) dropRow(cols int) string {
	var b strings.Builder
	for c := 0; c < cols; c++ {
		if c == m.cursor.col {
			b.WriteString(cursorStyle.Render("v"))
		} else {
			b.WriteString(" ")
		}
	}
	return b.String()
}

func (m playModel) gridView(g board.Grid, withCursor bool) string {
	var b strings.Builder
	for r, row := range g {
		for c, cell := range row {
			s := styleCell(cell).Render(cell.String())
			if m.changed[board.Point{Row: r, Col: c}] {
				s = lip.NewStyle().Underline(true).Render(s)
			}
			if withCursor && r == m.cursor.row && c == m.cursor.col {
				s = cursorStyle.Render(s)
			}
			b.WriteString(s)
		}
		if r < len(g)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (m playModel) battleshipView() string {
	ext := m.state.Extensions.Battleship
	var mine, target board.Grid
	if side := ext.Sides[m.me]; side != nil {
		mine = side.Ships
	}
	if opp, ok := m.state.Opponent(m.me); ok {
		if side := ext.Sides[opp]; side != nil {
			target = side.Shots
		}
	}
	left := headerStyle.Render("you") + "\n" + boxStyle.Render(plainGrid(mine))
	right := headerStyle.Render("target") + "\n" + boxStyle.Render(m.gridView(target, true))
	return lip.JoinHorizontal(lip.Top, left, "  ", right)
}

func plainGrid(g board.Grid) string {
	var b strings.Builder
	for r, row := range g {
		for _, cell := range row {
			b.WriteString(styleCell(cell).Render(cell.String()))
		}
		if r < len(g)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (m playModel) minefieldView(mf *board.Minefield) string {
	var b strings.Builder
	for r := 0; r < mf.Rows; r++ {
		for c := 0; c < mf.Cols; c++ {
			var s string
			switch {
			case mf.Flagged[r][c]:
				s = hitStyle.Render("F")
			case !mf.Revealed[r][c]:
				s = cellStyle.Render("#")
			case mf.Mine[r][c]:
				s = hitStyle.Render("*")
			case mf.Adjacent[r][c] == 0:
				s = "."
			default:
				s = xStyle.Render(strconv.Itoa(mf.Adjacent[r][c]))
			}
			if r == m.cursor.row && c == m.cursor.col {
				s = cursorStyle.Render(s)
			}
			b.WriteString(s)
		}
		if r < mf.Rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func styleCell(c board.Cell) lip.Style {
	switch c {
	case board.Player1Mark:
		return xStyle
	case board.Player2Mark:
		return oStyle
	case board.Hit:
		return hitStyle
	case board.Ship, board.Miss:
		return cellStyle
	}
	return footerStyle
}
