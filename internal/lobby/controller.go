// internal/lobby/controller.go
package lobby

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/csgames/internal/catalog"
	"github.com/jason-s-yu/csgames/internal/game"
	"github.com/jason-s-yu/csgames/internal/models"
	"github.com/jason-s-yu/csgames/internal/store"
	"github.com/sirupsen/logrus"
)

// InviteTTL is how long a generated invite code stays redeemable.
const InviteTTL = 24 * time.Hour

// maxCodeAttempts bounds retries when a generated code collides with a live one.
const maxCodeAttempts = 8

// Controller implements lobby creation, joining, AI seating and invite codes. It keeps
// no state of its own; every side effect goes through the store.
type Controller struct {
	store     store.Store
	reg       *game.Registry
	cat       *catalog.Catalog
	logger    *logrus.Logger
	publicURL string

	now     func() time.Time
	newCode func() (string, error)
}

// NewController wires a controller. publicURL prefixes the links handed out with invite
// codes.
func NewController(st store.Store, reg *game.Registry, cat *catalog.Catalog, logger *logrus.Logger, publicURL string) *Controller {
	return &Controller{
		store:     st,
		reg:       reg,
		cat:       cat,
		logger:    logger,
		publicURL: strings.TrimRight(publicURL, "/"),
		now:       func() time.Time { return time.Now().UTC() },
		newCode:   NewInviteCode,
	}
}

// CreateLobby allocates a lobby and its first game with the creator in seat one. An
// empty name defaults to "<game name> lobby".
func (c *Controller) CreateLobby(ctx context.Context, creatorID uuid.UUID, kind models.GameKind, name string) (*models.Lobby, *models.GameState, error) {
	if !c.reg.Supports(kind) {
		return nil, nil, models.Reject(models.ReasonUnsupportedGame)
	}
	if g, ok := c.cat.Lookup(kind); ok && !g.HostsLobby() {
		return nil, nil, models.Reject(models.ReasonUnsupportedGame)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = c.cat.Name(kind) + " lobby"
	}

	lobby := &models.Lobby{
		ID:        uuid.New(),
		CreatorID: creatorID,
		GameID:    kind,
		Name:      name,
	}
	gs, err := c.reg.NewGameState(kind, lobby.ID, creatorID, nil)
	if err != nil {
		return nil, nil, err
	}
	if err := c.store.CreateLobbyWithGameState(ctx, lobby, gs); err != nil {
		return nil, nil, fmt.Errorf("create lobby: %w", err)
	}
	c.logger.WithFields(logrus.Fields{"lobby": lobby.ID, "game": gs.ID, "kind": kind}).Info("lobby created")
	return lobby, gs, nil
}

// JoinLobby seats joiner as player two of the lobby's current game.
func (c *Controller) JoinLobby(ctx context.Context, lobbyID, joiner uuid.UUID) (*models.GameState, error) {
	cur, err := c.store.GetGameStateByLobby(ctx, lobbyID)
	if err != nil {
		return nil, err
	}
	res, ok := c.reg.Lookup(cur.Kind)
	if !ok {
		return nil, models.Reject(models.ReasonUnsupportedGame)
	}
	next, err := c.store.UpdateGameState(ctx, cur.ID, func(gs *models.GameState) (*models.GameState, error) {
		switch {
		case gs.Player1 == joiner:
			return nil, models.Reject(models.ReasonSelfJoin)
		case gs.HasPlayer2() || res.Seats() < 2:
			return nil, models.Reject(models.ReasonLobbyFull)
		case !gs.Status.PrePlay():
			return nil, models.Reject(models.ReasonLobbyNotWaiting)
		}
		game.SeatPlayer2(res, gs, joiner)
		return gs, nil
	})
	if err != nil {
		return nil, err
	}
	c.logger.WithFields(logrus.Fields{"lobby": lobbyID, "game": next.ID, "player": joiner}).Info("player joined lobby")
	return next, nil
}

// SetupAIOpponent seats the AI sentinel as player two. Only the creator may ask, and
// only while the lobby still waits for an opponent.
func (c *Controller) SetupAIOpponent(ctx context.Context, lobbyID, requester uuid.UUID) (*models.GameState, error) {
	lobby, err := c.store.GetLobby(ctx, lobbyID)
	if err != nil {
		return nil, err
	}
	if lobby.CreatorID != requester {
		return nil, models.Reject(models.ReasonNotLobbyCreator)
	}
	if lobby.Status != models.LobbyWaiting {
		return nil, models.Reject(models.ReasonLobbyNotWaiting)
	}
	if g, ok := c.cat.Lookup(lobby.GameID); ok && !g.AI {
		return nil, models.Reject(models.ReasonUnsupportedGame)
	}
	cur, err := c.store.GetGameStateByLobby(ctx, lobbyID)
	if err != nil {
		return nil, err
	}
	res, ok := c.reg.Lookup(cur.Kind)
	if !ok || res.Seats() < 2 {
		return nil, models.Reject(models.ReasonUnsupportedGame)
	}
	next, err := c.store.UpdateGameState(ctx, cur.ID, func(gs *models.GameState) (*models.GameState, error) {
		if gs.HasPlayer2() {
			return nil, models.Reject(models.ReasonLobbyFull)
		}
		if !gs.Status.PrePlay() {
			return nil, models.Reject(models.ReasonLobbyNotWaiting)
		}
		game.SeatPlayer2(res, gs, models.AIPlayerID)
		return gs, nil
	})
	if err != nil {
		return nil, err
	}
	c.logger.WithFields(logrus.Fields{"lobby": lobbyID, "game": next.ID}).Info("ai opponent seated")
	return next, nil
}

// InviteLink is handed back when an invite code is generated.
type InviteLink struct {
	Code     string    `json:"code"`
	FullURL  string    `json:"fullUrl"`
	LobbyURL string    `json:"lobbyUrl"`
	Expires  time.Time `json:"expiresAt"`
}

// GenerateInviteCode binds a fresh code to the lobby. Each call issues a new code.
func (c *Controller) GenerateInviteCode(ctx context.Context, lobbyID, requester uuid.UUID) (*InviteLink, error) {
	lobby, err := c.store.GetLobby(ctx, lobbyID)
	if err != nil {
		return nil, err
	}
	if lobby.Status != models.LobbyWaiting {
		return nil, models.Reject(models.ReasonLobbyNotWaiting)
	}

	now := c.now()
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := c.newCode()
		if err != nil {
			return nil, fmt.Errorf("generate invite code: %w", err)
		}
		inv := &models.InviteCode{
			Code:      code,
			LobbyID:   lobbyID,
			CreatedBy: requester,
			ExpiresAt: now.Add(InviteTTL),
			CreatedAt: now,
		}
		err = c.store.InsertInvite(ctx, inv)
		if errors.Is(err, store.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("store invite code: %w", err)
		}
		c.logger.WithFields(logrus.Fields{"lobby": lobbyID, "code": code}).Debug("invite code issued")
		return &InviteLink{
			Code:     code,
			FullURL:  c.publicURL + "/join/" + code,
			LobbyURL: c.LobbyURL(lobbyID),
			Expires:  inv.ExpiresAt,
		}, nil
	}
	return nil, fmt.Errorf("generate invite code: %d collisions in a row", maxCodeAttempts)
}

// Redemption tells the client where a redeemed code leads.
type Redemption struct {
	LobbyID   uuid.UUID `json:"lobbyId"`
	LobbyName string    `json:"lobbyName"`
	LobbyURL  string    `json:"lobbyUrl"`
}

// RedeemInviteCode joins the lobby behind code. A player already seated in the lobby
// may redeem again without error.
func (c *Controller) RedeemInviteCode(ctx context.Context, code string, joiner uuid.UUID) (*Redemption, error) {
	code = NormalizeCode(code)
	if !ValidCode(code) {
		return nil, models.Reject(models.ReasonInviteUnknown)
	}
	inv, err := c.store.GetInvite(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, models.Reject(models.ReasonInviteUnknown)
	}
	if err != nil {
		return nil, err
	}
	if inv.Expired(c.now()) {
		return nil, models.Reject(models.ReasonInviteExpired)
	}

	lobby, err := c.store.GetLobby(ctx, inv.LobbyID)
	if err != nil {
		return nil, err
	}
	cur, err := c.store.GetGameStateByLobby(ctx, lobby.ID)
	if err != nil {
		return nil, err
	}
	if !cur.IsPlayer(joiner) {
		if _, err := c.JoinLobby(ctx, lobby.ID, joiner); err != nil {
			return nil, err
		}
	}
	return &Redemption{
		LobbyID:   lobby.ID,
		LobbyName: lobby.Name,
		LobbyURL:  c.LobbyURL(lobby.ID),
	}, nil
}

// LobbyURL is the client route of a lobby.
func (c *Controller) LobbyURL(lobbyID uuid.UUID) string {
	return c.publicURL + "/lobby/" + lobbyID.String()
}
