// internal/handlers/lobby.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/jason-s-yu/csgames/internal/game"
	"github.com/jason-s-yu/csgames/internal/models"
)

type createLobbyRequest struct {
	GameID models.GameKind `json:"gameId"`
	Name   string          `json:"name"`
}

// CreateLobbyHandler is createLobbyWithGameState.
func (s *Server) CreateLobbyHandler(w http.ResponseWriter, r *http.Request) {
	var req createLobbyRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "bad lobby request payload")
		return
	}
	if req.GameID == "" {
		badRequest(w, "gameId is required")
		return
	}
	l, gs, err := s.Lobbies.CreateLobby(r.Context(), userFrom(r.Context()), req.GameID, req.Name)
	if err != nil {
		writeError(w, s.Logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"lobby": l, "game": gs})
}

// ListLobbiesHandler lists lobbies, optionally by ?status=.
func (s *Server) ListLobbiesHandler(w http.ResponseWriter, r *http.Request) {
	status := models.LobbyStatus(r.URL.Query().Get("status"))
	switch status {
	case "", models.LobbyWaiting, models.LobbyPlaying, models.LobbyFinished:
	default:
		badRequest(w, "invalid status")
		return
	}
	lobbies, err := s.Store.ListLobbies(r.Context(), status)
	if err != nil {
		writeError(w, s.Logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lobbies)
}

// GetLobbyHandler returns a lobby and the users currently connected to it.
func (s *Server) GetLobbyHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "lobbyID")
	if !ok {
		badRequest(w, "invalid lobby id")
		return
	}
	l, err := s.Store.GetLobby(r.Context(), id)
	if err != nil {
		writeError(w, s.Logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"lobby": l, "online": s.Presence.Online(id)})
}

// JoinLobbyHandler is joinLobbySimple.
func (s *Server) JoinLobbyHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "lobbyID")
	if !ok {
		badRequest(w, "invalid lobby id")
		return
	}
	me := userFrom(r.Context())
	gs, err := s.Lobbies.JoinLobby(r.Context(), id, me)
	if err != nil {
		writeError(w, s.Logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, game.ViewFor(gs, me))
}

// SetupAIHandler is setupAiOpponent.
func (s *Server) SetupAIHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "lobbyID")
	if !ok {
		badRequest(w, "invalid lobby id")
		return
	}
	me := userFrom(r.Context())
	gs, err := s.Lobbies.SetupAIOpponent(r.Context(), id, me)
	if err != nil {
		writeError(w, s.Logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, game.ViewFor(gs, me))
}

// LobbyGameHandler returns the lobby's current game.
func (s *Server) LobbyGameHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "lobbyID")
	if !ok {
		badRequest(w, "invalid lobby id")
		return
	}
	gs, err := s.Store.GetGameStateByLobby(r.Context(), id)
	if err != nil {
		writeError(w, s.Logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, game.ViewFor(gs, userFrom(r.Context())))
}

type lobbyRef struct {
	LobbyID uuid.UUID `json:"lobbyId"`
}

// InviteHandler generates an invite code for a waiting lobby.
func (s *Server) InviteHandler(w http.ResponseWriter, r *http.Request) {
	var req lobbyRef
	if err := decodeBody(r, &req); err != nil || req.LobbyID == uuid.Nil {
		badRequest(w, "lobbyId is required")
		return
	}
	link, err := s.Lobbies.GenerateInviteCode(r.Context(), req.LobbyID, userFrom(r.Context()))
	if err != nil {
		writeError(w, s.Logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

// JoinCodeHandler redeems an invite code.
func (s *Server) JoinCodeHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := decodeBody(r, &req); err != nil || req.Code == "" {
		badRequest(w, "code is required")
		return
	}
	red, err := s.Lobbies.RedeemInviteCode(r.Context(), req.Code, userFrom(r.Context()))
	if err != nil {
		writeError(w, s.Logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, red)
}

// ChatHistoryHandler returns recent messages, ?limit= bounded by the chat service.
func (s *Server) ChatHistoryHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "lobbyID")
	if !ok {
		badRequest(w, "invalid lobby id")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	msgs, err := s.Chat.History(r.Context(), id, limit)
	if err != nil {
		writeError(w, s.Logger, r, err)
		return
	}
	if msgs == nil {
		msgs = []models.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

// PostChatHandler appends a message to the lobby's chat.
func (s *Server) PostChatHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "lobbyID")
	if !ok {
		badRequest(w, "invalid lobby id")
		return
	}
	var req struct {
		Body string `json:"body"`
	}
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "bad chat payload")
		return
	}
	msg, err := s.Chat.Post(r.Context(), id, userFrom(r.Context()), req.Body)
	if err != nil {
		writeError(w, s.Logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}
