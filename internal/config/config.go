// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is read once from the environment at startup. A .env file in the working
// directory is loaded by the binaries through godotenv/autoload.
type Config struct {
	Port      string
	PublicURL string
	Env       string // "production" tightens CORS

	StoreBackend string // "postgres" or "memory"
	DatabaseURL  string

	RedisAddr       string
	RedisDB         int
	RealtimeChannel string

	HistorianQueue     string
	HistorianBatchSize int
	HistorianFlush     time.Duration
	InvitePurgeEvery   time.Duration

	AllowedOrigins     []string
	CatalogPath        string
	PollInterval       time.Duration
	LeaderboardTTL     time.Duration
	LeaderboardMaxHits int
	AIDelay            time.Duration
	AIRescan           time.Duration
}

// Load reads the environment.
func Load() Config {
	return Config{
		Port:      GetEnv("PORT", "8080"),
		PublicURL: GetEnv("PUBLIC_URL", "http://localhost:3000"),
		Env:       GetEnv("CSGAMES_ENV", "development"),

		StoreBackend: GetEnv("STORE_BACKEND", "postgres"),
		DatabaseURL:  DatabaseURL(),

		RedisAddr:       GetEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:         GetEnvInt("REDIS_DB", 0),
		RealtimeChannel: GetEnv("REALTIME_CHANNEL", "csgames_changes"),

		HistorianQueue:     GetEnv("HISTORIAN_QUEUE_NAME", "csgames_moves"),
		HistorianBatchSize: GetEnvInt("HISTORIAN_BATCH_SIZE", 100),
		HistorianFlush:     time.Duration(GetEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
		InvitePurgeEvery:   GetEnvDuration("INVITE_PURGE_INTERVAL", time.Hour),

		AllowedOrigins:     splitList(GetEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		CatalogPath:        os.Getenv("CATALOG_PATH"),
		PollInterval:       GetEnvDuration("POLL_INTERVAL", 3*time.Second),
		LeaderboardTTL:     GetEnvDuration("LEADERBOARD_TTL", 5*time.Minute),
		LeaderboardMaxHits: GetEnvInt("LEADERBOARD_MAX_HITS", 200),
		AIDelay:            GetEnvDuration("AI_MOVE_DELAY", 400*time.Millisecond),
		AIRescan:           GetEnvDuration("AI_RESCAN_INTERVAL", 5*time.Second),
	}
}

// Production reports whether CSGAMES_ENV is production.
func (c Config) Production() bool {
	return c.Env == "production"
}

// DatabaseURL returns DATABASE_URL, or builds one from the POSTGRES_* / PG_* variables.
func DatabaseURL() string {
	if u := os.Getenv("DATABASE_URL"); u != "" {
		return u
	}
	user := GetEnv("POSTGRES_USER", "postgres")
	pass := GetEnv("POSTGRES_PASSWORD", "postgres")
	host := GetEnv("PG_HOST", "localhost")
	port := GetEnv("PG_PORT", "5432")
	db := GetEnv("PG_DATABASE", "csgames")
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", user, pass, host, port, db)
}

// GetEnv reads an environment variable or returns def.
func GetEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// GetEnvInt parses an environment variable as an integer, else def.
func GetEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// GetEnvDuration parses an environment variable with time.ParseDuration, else def.
func GetEnvDuration(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
