// cmd/historian/main.go drains the Redis move queue into PostgreSQL, settles finished
// games onto player profiles and purges expired invite codes.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/csgames/internal/cache"
	"github.com/jason-s-yu/csgames/internal/config"
	"github.com/jason-s-yu/csgames/internal/database"
	"github.com/jason-s-yu/csgames/internal/historian"
	"github.com/jason-s-yu/csgames/internal/realtime"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()

	logger := logrus.New()
	if cfg.Production() {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cache.ConnectRedis(); err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer cache.Rdb.Close()

	pool, err := database.ConnectDB(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatalf("migrate: %v", err)
	}

	// Profile changes are not on the change feed; the hub only satisfies the store's
	// publisher and has no subscribers in this process.
	st := database.NewPostgresStore(pool, realtime.NewHub(logger), logger)
	queue := cache.NewMoveQueue(cache.Rdb, cfg.HistorianQueue)
	board := cache.NewLeaderboard(cfg.LeaderboardTTL, cfg.LeaderboardMaxHits, cache.Rdb, logger)

	svc := historian.NewService(queue, st, board, logger)
	svc.BatchSize = cfg.HistorianBatchSize
	svc.FlushDelay = cfg.HistorianFlush
	svc.PurgeEvery = cfg.InvitePurgeEvery

	logger.Infof("historian reading '%s'", queue.Name())
	if err := svc.Run(ctx); err != nil {
		logger.Fatalf("historian exited: %v", err)
	}
}
