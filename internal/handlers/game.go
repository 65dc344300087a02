// internal/handlers/game.go
package handlers

import "net/http"

// GetGameHandler is the poll read of game_states, as seen by the caller.
func (s *Server) GetGameHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "gameID")
	if !ok {
		badRequest(w, "invalid game id")
		return
	}
	gs, err := s.Games.GetGame(r.Context(), id, userFrom(r.Context()))
	if err != nil {
		writeError(w, s.Logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gs)
}

// MakeMoveHandler is makeMove. The body is the raw move payload.
func (s *Server) MakeMoveHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "gameID")
	if !ok {
		badRequest(w, "invalid game id")
		return
	}
	payload := map[string]interface{}{}
	if err := decodeBody(r, &payload); err != nil {
		badRequest(w, "invalid move payload")
		return
	}
	gs, err := s.Games.MakeMovePayload(r.Context(), id, userFrom(r.Context()), payload)
	if err != nil {
		writeError(w, s.Logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gs)
}

// GetRematchHandler returns the play-again request of a finished game.
func (s *Server) GetRematchHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "gameID")
	if !ok {
		badRequest(w, "invalid game id")
		return
	}
	req, err := s.Rematch.Status(r.Context(), id)
	if err != nil {
		writeError(w, s.Logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// RequestRematchHandler records the caller's rematch request. An omitted lobbyId means
// the game's own lobby.
func (s *Server) RequestRematchHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "gameID")
	if !ok {
		badRequest(w, "invalid game id")
		return
	}
	var body lobbyRef
	if err := decodeBody(r, &body); err != nil {
		badRequest(w, "bad rematch payload")
		return
	}
	req, err := s.Rematch.RequestRematch(r.Context(), id, body.LobbyID, userFrom(r.Context()))
	if err != nil {
		writeError(w, s.Logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

