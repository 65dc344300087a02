// internal/store/memory.go
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/csgames/internal/models"
	"github.com/jason-s-yu/csgames/internal/realtime"
	"github.com/sirupsen/logrus"
)

// MemoryStore keeps everything in process. A single mutex plays the role of the
// database row locks, so read-modify-write sequences are serialized.
type MemoryStore struct {
	mu sync.Mutex

	lobbies   map[uuid.UUID]*models.Lobby
	games     map[uuid.UUID]*models.GameState
	lobbyGame map[uuid.UUID]uuid.UUID // lobby -> current game
	rematches map[uuid.UUID]*models.PlayAgainRequest
	invites   map[string]*models.InviteCode
	profiles  map[uuid.UUID]*models.Profile
	chat      map[uuid.UUID][]models.ChatMessage
	moves     []models.MoveRecord

	pub    realtime.Publisher
	logger *logrus.Logger
	now    func() time.Time
}

// NewMemoryStore returns an empty store publishing to pub, which may be nil.
func NewMemoryStore(pub realtime.Publisher, logger *logrus.Logger) *MemoryStore {
	return &MemoryStore{
		lobbies:   make(map[uuid.UUID]*models.Lobby),
		games:     make(map[uuid.UUID]*models.GameState),
		lobbyGame: make(map[uuid.UUID]uuid.UUID),
		rematches: make(map[uuid.UUID]*models.PlayAgainRequest),
		invites:   make(map[string]*models.InviteCode),
		profiles:  make(map[uuid.UUID]*models.Profile),
		chat:      make(map[uuid.UUID][]models.ChatMessage),
		pub:       pub,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Emit publishes a row change, logging instead of failing when the row cannot be encoded.
func Emit(ctx context.Context, pub realtime.Publisher, logger *logrus.Logger, table string, typ realtime.EventType, newRow, oldRow interface{}, keys map[string]string) {
	if pub == nil {
		return
	}
	ev, err := realtime.NewEvent(table, typ, newRow, oldRow, keys)
	if err != nil {
		if logger != nil {
			logger.Warnf("failed to encode %s change: %v", table, err)
		}
		return
	}
	pub.Publish(ctx, ev)
}

func (s *MemoryStore) emit(ctx context.Context, table string, typ realtime.EventType, newRow, oldRow interface{}, keys map[string]string) {
	Emit(ctx, s.pub, s.logger, table, typ, newRow, oldRow, keys)
}

func (s *MemoryStore) CreateLobbyWithGameState(ctx context.Context, lobby *models.Lobby, gs *models.GameState) error {
	s.mu.Lock()
	if _, exists := s.lobbies[lobby.ID]; exists {
		s.mu.Unlock()
		return fmt.Errorf("lobby %s: %w", lobby.ID, ErrConflict)
	}
	now := s.now()
	lobby.CreatedAt, lobby.UpdatedAt = now, now
	lobby.Status = models.LobbyStatusFor(gs.Status)
	gs.LobbyID = lobby.ID
	gs.Version = 1
	gs.CreatedAt, gs.UpdatedAt = now, now

	l := *lobby
	g := gs.Clone()
	s.lobbies[l.ID] = &l
	s.games[g.ID] = g
	s.lobbyGame[l.ID] = g.ID
	lOut, gOut := l, g.Clone()
	s.mu.Unlock()

	s.emit(ctx, realtime.TableLobbies, realtime.Insert, &lOut, nil, LobbyKeys(&lOut))
	s.emit(ctx, realtime.TableGameStates, realtime.Insert, gOut, nil, GameKeys(gOut))
	return nil
}

func (s *MemoryStore) GetLobby(_ context.Context, id uuid.UUID) (*models.Lobby, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lobbies[id]
	if !ok {
		return nil, fmt.Errorf("lobby %s: %w", id, ErrNotFound)
	}
	out := *l
	return &out, nil
}

func (s *MemoryStore) ListLobbies(_ context.Context, status models.LobbyStatus) ([]models.Lobby, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Lobby, 0, len(s.lobbies))
	for _, l := range s.lobbies {
		if status != "" && l.Status != status {
			continue
		}
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) GetGameState(_ context.Context, id uuid.UUID) (*models.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	if !ok {
		return nil, fmt.Errorf("game %s: %w", id, ErrNotFound)
	}
	return g.Clone(), nil
}

func (s *MemoryStore) GetGameStateByLobby(_ context.Context, lobbyID uuid.UUID) (*models.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.lobbyGame[lobbyID]
	if !ok {
		return nil, fmt.Errorf("game for lobby %s: %w", lobbyID, ErrNotFound)
	}
	return s.games[id].Clone(), nil
}

func (s *MemoryStore) UpdateGameState(ctx context.Context, id uuid.UUID, fn GameMutator) (*models.GameState, error) {
	s.mu.Lock()
	cur, ok := s.games[id]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("game %s: %w", id, ErrNotFound)
	}
	next, err := fn(cur.Clone())
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	old := cur
	next = next.Clone()
	next.ID, next.LobbyID = cur.ID, cur.LobbyID
	next.Version = cur.Version + 1
	next.UpdatedAt = s.now()
	s.games[id] = next

	lobby, lobbyChanged := s.mirrorLobbyLocked(next)
	out := next.Clone()
	s.mu.Unlock()

	s.emit(ctx, realtime.TableGameStates, realtime.Update, out, old, GameKeys(out))
	if lobbyChanged {
		s.emit(ctx, realtime.TableLobbies, realtime.Update, lobby, nil, LobbyKeys(lobby))
	}
	return out, nil
}

// mirrorLobbyLocked copies the game's status onto the lobby when gs is its current game.
func (s *MemoryStore) mirrorLobbyLocked(gs *models.GameState) (*models.Lobby, bool) {
	if s.lobbyGame[gs.LobbyID] != gs.ID {
		return nil, false
	}
	l, ok := s.lobbies[gs.LobbyID]
	if !ok {
		return nil, false
	}
	status := models.LobbyStatusFor(gs.Status)
	if l.Status == status {
		return nil, false
	}
	l.Status = status
	l.UpdatedAt = s.now()
	out := *l
	return &out, true
}

func (s *MemoryStore) GetPlayAgainRequest(_ context.Context, originalGameID uuid.UUID) (*models.PlayAgainRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rematches[originalGameID]
	if !ok {
		return nil, fmt.Errorf("play again request for %s: %w", originalGameID, ErrNotFound)
	}
	return r.Clone(), nil
}

func (s *MemoryStore) UpdatePlayAgainRequest(ctx context.Context, originalGameID, lobbyID uuid.UUID, fn RematchMutator) (*models.PlayAgainRequest, error) {
	s.mu.Lock()
	orig, ok := s.games[originalGameID]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("game %s: %w", originalGameID, ErrNotFound)
	}
	now := s.now()
	existing, exists := s.rematches[originalGameID]
	req := existing.Clone()
	if !exists {
		req = &models.PlayAgainRequest{
			OriginalGameID: originalGameID,
			LobbyID:        lobbyID,
			RequestedBy:    []uuid.UUID{},
			CreatedAt:      now,
		}
	}

	newGame, err := fn(req, orig.Clone())
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	req.UpdatedAt = now

	var lobby *models.Lobby
	var lobbyChanged bool
	if newGame != nil {
		g := newGame.Clone()
		g.LobbyID = orig.LobbyID
		g.Version = 1
		g.CreatedAt, g.UpdatedAt = now, now
		s.games[g.ID] = g
		s.lobbyGame[g.LobbyID] = g.ID
		id := g.ID
		req.NewGameID = &id
		lobby, lobbyChanged = s.mirrorLobbyLocked(g)
		newGame = g.Clone()
	}
	s.rematches[originalGameID] = req
	out := req.Clone()
	s.mu.Unlock()

	if newGame != nil {
		s.emit(ctx, realtime.TableGameStates, realtime.Insert, newGame, nil, GameKeys(newGame))
	}
	if lobbyChanged {
		s.emit(ctx, realtime.TableLobbies, realtime.Update, lobby, nil, LobbyKeys(lobby))
	}
	if exists {
		s.emit(ctx, realtime.TablePlayAgainRequests, realtime.Update, out, existing, RematchKeys(out))
	} else {
		s.emit(ctx, realtime.TablePlayAgainRequests, realtime.Insert, out, nil, RematchKeys(out))
	}
	return out, nil
}

func (s *MemoryStore) InsertInvite(_ context.Context, code *models.InviteCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.invites[code.Code]; ok && !cur.Expired(s.now()) {
		return fmt.Errorf("invite %s: %w", code.Code, ErrConflict)
	}
	c := *code
	s.invites[c.Code] = &c
	return nil
}

func (s *MemoryStore) GetInvite(_ context.Context, code string) (*models.InviteCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.invites[code]
	if !ok {
		return nil, fmt.Errorf("invite %s: %w", code, ErrNotFound)
	}
	out := *c
	return &out, nil
}

func (s *MemoryStore) PurgeExpiredInvites(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for code, c := range s.invites {
		if c.Expired(now) {
			delete(s.invites, code)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) EnsureProfile(_ context.Context, p *models.Profile) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.profiles[p.ID]; ok {
		out := *cur
		return &out, nil
	}
	c := *p
	s.profiles[c.ID] = &c
	out := c
	return &out, nil
}

func (s *MemoryStore) GetProfile(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", id, ErrNotFound)
	}
	out := *p
	return &out, nil
}

func (s *MemoryStore) UpdateProfiles(_ context.Context, ids []uuid.UUID, fn ProfileMutator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := make(map[uuid.UUID]*models.Profile, len(ids))
	for _, id := range ids {
		p, ok := s.profiles[id]
		if !ok {
			continue
		}
		c := *p
		work[id] = &c
	}
	if err := fn(work); err != nil {
		return err
	}
	now := s.now()
	for id, p := range work {
		p.UpdatedAt = now
		s.profiles[id] = p
	}
	return nil
}

func (s *MemoryStore) Leaderboard(_ context.Context, q LeaderboardQuery) ([]models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Profile
	for _, p := range s.profiles {
		if p.GamesPlayed == 0 {
			continue
		}
		if !q.Since.IsZero() && p.UpdatedAt.Before(q.Since) {
			continue
		}
		out = append(out, *p)
	}
	SortProfiles(out, q.Sort)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// SortProfiles orders leaderboard rows by the requested column, highest first.
func SortProfiles(ps []models.Profile, by string) {
	sort.SliceStable(ps, func(i, j int) bool {
		a, b := ps[i], ps[j]
		switch by {
		case "wins":
			if a.Wins != b.Wins {
				return a.Wins > b.Wins
			}
		case "games":
			if a.GamesPlayed != b.GamesPlayed {
				return a.GamesPlayed > b.GamesPlayed
			}
		}
		if a.Rating != b.Rating {
			return a.Rating > b.Rating
		}
		return a.ID.String() < b.ID.String()
	})
}

func (s *MemoryStore) AppendChatMessage(ctx context.Context, msg *models.ChatMessage) error {
	s.mu.Lock()
	if _, ok := s.lobbies[msg.LobbyID]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("lobby %s: %w", msg.LobbyID, ErrNotFound)
	}
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	msg.CreatedAt = s.now()
	s.chat[msg.LobbyID] = append(s.chat[msg.LobbyID], *msg)
	m := *msg
	s.mu.Unlock()

	s.emit(ctx, realtime.TableChatMessages, realtime.Insert, &m, nil, ChatKeys(&m))
	return nil
}

func (s *MemoryStore) ListChatMessages(_ context.Context, lobbyID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.chat[lobbyID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]models.ChatMessage(nil), msgs...), nil
}

func (s *MemoryStore) InsertMoveRecords(_ context.Context, records []models.MoveRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moves = append(s.moves, records...)
	return nil
}

// MoveRecords returns the move log captured so far.
func (s *MemoryStore) MoveRecords() []models.MoveRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.MoveRecord(nil), s.moves...)
}

var _ Store = (*MemoryStore)(nil)
