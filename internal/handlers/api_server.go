// internal/handlers/api_server.go
package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jason-s-yu/csgames/internal/cache"
	"github.com/jason-s-yu/csgames/internal/catalog"
	"github.com/jason-s-yu/csgames/internal/chat"
	"github.com/jason-s-yu/csgames/internal/game"
	"github.com/jason-s-yu/csgames/internal/lobby"
	"github.com/jason-s-yu/csgames/internal/middleware"
	"github.com/jason-s-yu/csgames/internal/realtime"
	"github.com/jason-s-yu/csgames/internal/rematch"
	"github.com/jason-s-yu/csgames/internal/store"
	"github.com/sirupsen/logrus"
)

// Server holds the services behind the HTTP API.
type Server struct {
	Logger      *logrus.Logger
	Store       store.Store
	Games       *game.Service
	Lobbies     *lobby.Controller
	Rematch     *rematch.Negotiator
	Chat        *chat.Service
	Hub         *realtime.Hub
	Presence    *lobby.Presence
	Leaderboard *cache.Leaderboard
	Catalog     *catalog.Catalog

	AllowedOrigins []string
	Production     bool
}

// NewServer wires the services over st and hub. The leaderboard cache may be nil.
func NewServer(logger *logrus.Logger, st store.Store, reg *game.Registry, cat *catalog.Catalog, hub *realtime.Hub, moves game.MoveLog, board *cache.Leaderboard, publicURL string) *Server {
	return &Server{
		Logger:      logger,
		Store:       st,
		Games:       game.NewService(st, reg, moves, logger),
		Lobbies:     lobby.NewController(st, reg, cat, logger, publicURL),
		Rematch:     rematch.NewNegotiator(st, reg, logger),
		Chat:        chat.NewService(st, logger),
		Hub:         hub,
		Presence:    lobby.NewPresence(),
		Leaderboard: board,
		Catalog:     cat,
	}
}

// Router builds the chi router for the whole API.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.Heartbeat("/ping"))
	r.Use(s.corsHandler())
	r.Use(middleware.LogMiddleware(s.Logger))

	r.Get("/realtime/ws", s.RealtimeWSHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(chimw.Timeout(15 * time.Second))
		r.Get("/catalog", s.CatalogHandler)
		r.Post("/wordle-validate", s.WordleValidateHandler)
		r.Get("/leaderboard", s.LeaderboardHandler)

		r.Group(func(r chi.Router) {
			r.Use(s.withSession)
			r.Get("/session", s.SessionHandler)

			r.Get("/lobbies", s.ListLobbiesHandler)
			r.Post("/lobbies", s.CreateLobbyHandler)
			r.Route("/lobbies/{lobbyID}", func(r chi.Router) {
				r.Get("/", s.GetLobbyHandler)
				r.Post("/join", s.JoinLobbyHandler)
				r.Post("/ai", s.SetupAIHandler)
				r.Get("/game", s.LobbyGameHandler)
				r.Get("/chat", s.ChatHistoryHandler)
				r.Post("/chat", s.PostChatHandler)
			})
			r.Post("/invite", s.InviteHandler)
			r.Post("/join-code", s.JoinCodeHandler)

			r.Route("/games/{gameID}", func(r chi.Router) {
				r.Get("/", s.GetGameHandler)
				r.Post("/moves", s.MakeMoveHandler)
				r.Get("/rematch", s.GetRematchHandler)
				r.Post("/rematch", s.RequestRematchHandler)
			})
		})
	})
	return r
}

// corsHandler allows the configured origins. Outside production any origin is
// accepted when none are configured.
func (s *Server) corsHandler() func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins:   s.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if !s.Production && len(s.AllowedOrigins) == 0 {
		opts.AllowOriginFunc = func(*http.Request, string) bool { return true }
	}
	return cors.Handler(opts)
}
