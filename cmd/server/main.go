// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/csgames/internal/auth"
	"github.com/jason-s-yu/csgames/internal/cache"
	"github.com/jason-s-yu/csgames/internal/catalog"
	"github.com/jason-s-yu/csgames/internal/config"
	"github.com/jason-s-yu/csgames/internal/database"
	"github.com/jason-s-yu/csgames/internal/game"
	"github.com/jason-s-yu/csgames/internal/handlers"
	"github.com/jason-s-yu/csgames/internal/realtime"
	"github.com/jason-s-yu/csgames/internal/store"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()
	var err error

	logger := logrus.New()
	if cfg.Production() {
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	// instances behind a load balancer must share keys; a lone instance can mint its own
	if priv, pub := config.GetEnv("JWT_PRIVATE_KEY_PATH", ""), config.GetEnv("JWT_PUBLIC_KEY_PATH", ""); priv != "" && pub != "" {
		err = auth.InitFromPath(priv, pub)
	} else {
		err = auth.Init()
	}
	if err != nil {
		logger.Fatalf("auth init failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logger.Fatalf("catalog: %v", err)
	}

	hub := realtime.NewHub(logger)
	var (
		pub    realtime.Publisher = hub
		bridge *realtime.RedisBridge
		moves  game.MoveLog
	)
	if err := cache.ConnectRedis(); err != nil {
		logger.Warnf("redis unavailable, running single-instance without move history: %v", err)
		cache.Rdb = nil
	} else {
		bridge = realtime.NewRedisBridge(hub, cache.Rdb, cfg.RealtimeChannel, logger)
		pub = bridge
		moves = cache.NewMoveQueue(cache.Rdb, cfg.HistorianQueue)
	}

	var st store.Store
	switch cfg.StoreBackend {
	case "memory":
		st = store.NewMemoryStore(pub, logger)
	case "postgres":
		pool, err := database.ConnectDB(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("database: %v", err)
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool); err != nil {
			logger.Fatalf("migrate: %v", err)
		}
		st = database.NewPostgresStore(pool, pub, logger)
	default:
		logger.Fatalf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	board := cache.NewLeaderboard(cfg.LeaderboardTTL, cfg.LeaderboardMaxHits, cache.Rdb, logger)
	srv := handlers.NewServer(logger, st, game.RegistryFor(cat), cat, hub, moves, board, cfg.PublicURL)
	srv.AllowedOrigins = cfg.AllowedOrigins
	srv.Production = cfg.Production()

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ai := game.NewAIWorker(srv.Games, hub, logger)
	ai.Delay = cfg.AIDelay
	ai.Rescan = cfg.AIRescan

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Running on %s (store=%s)", httpSrv.Addr, cfg.StoreBackend)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return ai.Run(gctx) })
	if bridge != nil {
		g.Go(func() error { return bridge.Run(gctx) })
	}

	if err := g.Wait(); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
	logger.Info("server stopped")
}
