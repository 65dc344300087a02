// cmd/csgames-cli/main.go is a terminal client for the CSGames API. It keeps a game in
// sync through polling and the realtime feed and draws it with bubbletea.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"os/signal"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/jason-s-yu/csgames/internal/catalog"
	"github.com/jason-s-yu/csgames/internal/clientsync"
	"github.com/jason-s-yu/csgames/internal/game"
	"github.com/jason-s-yu/csgames/internal/models"
	"github.com/jason-s-yu/csgames/internal/wordle"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

const usage = `usage: csgames-cli [flags] <command> [args]

commands:
  session                 print your profile and token
  create <game> [name]    open a lobby (tictactoe, connect4, battleship, minesweeper)
  join <code>             redeem an invite code
  invite <lobby>          issue an invite code
  ai <lobby>              add the computer opponent
  play <game-id>          play a game on the board view
  move <game-id> <move>   submit one move: r c | c (connect4) | flip | place | ready | f r c
  wordle <word>           check a word against the dictionary
`

func main() {
	server := flag.String("server", envOr("CSGAMES_SERVER", "http://localhost:8080"), "API base URL")
	token := flag.String("token", os.Getenv("CSGAMES_TOKEN"), "session token (auth_token cookie)")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage); flag.PrintDefaults() }
	flag.Parse()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.WarnLevel)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	remote := clientsync.NewHTTPRemote(*server, *token, logger)
	if err := run(ctx, remote, logger, args); err != nil {
		var rej *models.Rejection
		if errors.As(err, &rej) {
			fmt.Fprintf(os.Stderr, "rejected: %s\n", rej.Reason)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, remote *clientsync.HTTPRemote, logger *logrus.Logger, args []string) error {
	cmd, args := args[0], args[1:]
	if cmd == "wordle" {
		if len(args) != 1 {
			return errors.New("wordle takes one word")
		}
		fmt.Println(wordle.Validate(args[0]))
		return nil
	}

	me, err := remote.Session(ctx)
	if err != nil {
		return err
	}

	switch cmd {
	case "session":
		fmt.Printf("user:   %s (%s)\nrating: %.0f\ntoken:  %s\n", me.DisplayName, me.ID, me.Rating, remote.Token)
	case "create":
		if len(args) < 1 {
			return errors.New("create needs a game id")
		}
		l, gs, err := remote.CreateLobby(ctx, models.GameKind(args[0]), strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Printf("lobby %s (%s)\ngame  %s\n", l.ID, l.Name, gs.ID)
	case "join":
		if len(args) != 1 {
			return errors.New("join needs an invite code")
		}
		red, err := remote.RedeemCode(ctx, args[0])
		if err != nil {
			return err
		}
		gs, err := remote.LobbyGame(ctx, red.LobbyID)
		if err != nil {
			return err
		}
		fmt.Printf("joined %s\ngame %s\n", red.LobbyName, gs.ID)
	case "invite":
		id, err := lobbyArg(args)
		if err != nil {
			return err
		}
		inv, err := remote.Invite(ctx, id)
		if err != nil {
			return err
		}
		fmt.Printf("code %s\n%s\n", inv.Code, inv.FullURL)
	case "ai":
		id, err := lobbyArg(args)
		if err != nil {
			return err
		}
		gs, err := remote.SetupAI(ctx, id)
		if err != nil {
			return err
		}
		fmt.Printf("game %s is %s\n", gs.ID, gs.Status)
	case "play":
		id, err := lobbyArg(args)
		if err != nil {
			return err
		}
		return play(ctx, remote, logger, me.ID, id)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func lobbyArg(args []string) (uuid.UUID, error) {
	if len(args) != 1 {
		return uuid.Nil, errors.New("expected one id")
	}
	return uuid.Parse(args[0])
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// play runs a synchronizer for gameID behind the board view and follows rematches into
// new games until the player quits or ctx ends.
func play(ctx context.Context, remote *clientsync.HTTPRemote, logger *logrus.Logger, me, gameID uuid.UUID) error {
	// the board owns the terminal; logs go to a file or nowhere
	if logger.IsLevelEnabled(logrus.DebugLevel) {
		f, err := os.OpenFile("csgames-cli.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		logger.SetOutput(f)
	} else {
		logger.SetOutput(io.Discard)
	}

	reg := game.RegistryFor(catalog.Default())
	for {
		next, err := playOne(ctx, remote, reg, logger, me, gameID)
		if err != nil || next == uuid.Nil {
			return err
		}
		logger.WithField("game", next).Info("following rematch")
		gameID = next
	}
}

func playOne(ctx context.Context, remote *clientsync.HTTPRemote, reg *game.Registry, logger *logrus.Logger, me, gameID uuid.UUID) (uuid.UUID, error) {
	gctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var p *tea.Program
	nav := clientsync.NavigatorFunc(func(id uuid.UUID) { p.Send(rematchMsg(id)) })
	s := clientsync.New(remote, nav, reg, logger, me, gameID)
	p = tea.NewProgram(newPlayModel(gctx, s, me), tea.WithContext(gctx), tea.WithAltScreen())
	s.OnUpdate = func(u clientsync.Update) { p.Send(updateMsg(u)) }

	go func() { p.Send(syncDoneMsg{err: s.Run(gctx)}) }()

	final, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, err
	}
	m := final.(playModel)
	return m.next, m.err
}

// move submits a single move without the board view.
func move(ctx context.Context, remote *clientsync.HTTPRemote, args []string) error {
	if len(args) < 2 {
		return errors.New("move needs a game id and a move")
	}
	id, err := uuid.Parse(args[0])
	if err != nil {
		return err
	}
	gs, err := remote.FetchGame(ctx, id)
	if err != nil {
		return err
	}
	mv, err := parseMove(gs.Kind, args[1:])
	if err != nil {
		return err
	}
	next, err := remote.SubmitMove(ctx, id, mv.Payload())
	if err != nil {
		return err
	}
	fmt.Printf("game %s v%d %s\n", next.ID, next.Version, next.Status)
	return nil
}

func parseMove(kind models.GameKind, f []string) (game.Move, error) {
	switch {
	case len(f) == 1 && f[0] == "flip":
		return game.Move{Action: game.ActionFlip}, nil
	case len(f) == 1 && f[0] == "place":
		return game.PlaceFleet(game.RandomFleet(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))), nil
	case len(f) == 1 && f[0] == "ready":
		return game.Move{Action: game.ActionReady}, nil
	case len(f) == 1 && kind == models.KindConnectFour:
		c, err := strconv.Atoi(f[0])
		return game.DropIn(c), err
	case len(f) == 3 && f[0] == "f":
		r, c, err := cell(f[1], f[2])
		return game.FlagAt(r, c), err
	case len(f) == 2:
		r, c, err := cell(f[0], f[1])
		if err != nil {
			return game.Move{}, err
		}
		switch kind {
		case models.KindBattleship:
			return game.FireAt(r, c), nil
		case models.KindMinesweeper:
			return game.RevealAt(r, c), nil
		default:
			return game.MarkAt(r, c), nil
		}
	}
	return game.Move{}, fmt.Errorf("cannot parse move %q", strings.Join(f, " "))
}

func cell(rs, cs string) (int, int, error) {
	r, err := strconv.Atoi(rs)
	if err != nil {
		return 0, 0, err
	}
	c, err := strconv.Atoi(cs)
	return r, c, err
}
