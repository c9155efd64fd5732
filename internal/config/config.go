package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// envPrefix namespaces every MindForge environment variable, e.g.
// MINDFORGE_SERVER_PORT maps to the key "server.port".
const envPrefix = "MINDFORGE_"

type Config struct {
	Server      ServerConfig
	Log         LogConfig
	Auth        AuthConfig
	Graph       GraphConfig
	Session     SessionConfig
	Persistence PersistenceConfig
	Redis       RedisConfig
	Recall      RecallConfig
	NATS        NATSConfig
	Workspace   WorkspaceConfig
	CORS        CORSConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type LogConfig struct {
	Level  string
	Format string
}

// AuthConfig guards the HTTP API with a single operator credential. An
// empty JWTSecret disables authentication entirely.
type AuthConfig struct {
	JWTSecret    string
	TokenExpiry  time.Duration
	PasswordHash string
	LoginMaxReqs int
	LoginWindow  int
}

func (c AuthConfig) Enabled() bool {
	return c.JWTSecret != ""
}

type GraphConfig struct {
	JanitorInterval time.Duration
	CleanupMaxAge   time.Duration
	Rank            string
}

type SessionConfig struct {
	ClassifierTimeout time.Duration
}

// PersistenceConfig selects the change-log backend. "sqlite" (default)
// writes a local file, "redis" shares the Redis instance, "none" keeps the
// graph purely in memory.
type PersistenceConfig struct {
	Backend      string
	Namespace    string
	SQLitePath   string
	CompactEvery int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

// RecallConfig enables the Postgres/pgvector semantic index. Recall stays
// off until a DSN is provided.
type RecallConfig struct {
	DSN            string
	MaxConns       int32
	MigrationsPath string
}

func (c RecallConfig) Enabled() bool {
	return c.DSN != ""
}

// NATSConfig wires the event bridge and remote agents. An empty URL keeps
// everything in-process; AgentPrefix must additionally be set before work
// intents are dispatched to bus-side agents.
type NATSConfig struct {
	URL          string
	AgentPrefix  string
	AgentTimeout time.Duration
}

func (c NATSConfig) Enabled() bool {
	return c.URL != ""
}

// WorkspaceConfig points the file-fact feed at a directory tree. An empty
// Root disables the watcher.
type WorkspaceConfig struct {
	Root     string
	Ignore   []string
	Debounce time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.ParserEnv(envPrefix, ".", normalizeKey))

	// Load environment variables (override .env)
	err := k.Load(env.Provider(envPrefix, ".", normalizeKey), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: k.String("server.host"),
			Port: k.Int("server.port"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
		Auth: AuthConfig{
			JWTSecret:    k.String("auth.jwt.secret"),
			PasswordHash: k.String("auth.password.hash"),
			LoginMaxReqs: k.Int("auth.login.max.reqs"),
			LoginWindow:  k.Int("auth.login.window.sec"),
		},
		Graph: GraphConfig{
			Rank: k.String("graph.rank"),
		},
		Persistence: PersistenceConfig{
			Backend:      k.String("persistence.backend"),
			Namespace:    k.String("persistence.namespace"),
			SQLitePath:   k.String("persistence.sqlite.path"),
			CompactEvery: k.Int("persistence.compact.every"),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		Recall: RecallConfig{
			DSN:            k.String("recall.dsn"),
			MaxConns:       int32(k.Int("recall.max.conns")),
			MigrationsPath: k.String("recall.migrations.path"),
		},
		NATS: NATSConfig{
			URL:         k.String("nats.url"),
			AgentPrefix: k.String("nats.agent.prefix"),
		},
		Workspace: WorkspaceConfig{
			Root:   k.String("workspace.root"),
			Ignore: splitCSV(k.String("workspace.ignore")),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(k.String("cors.allowed.origins")),
		},
	}

	// Apply defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Auth.LoginMaxReqs == 0 {
		cfg.Auth.LoginMaxReqs = 10
	}
	if cfg.Auth.LoginWindow == 0 {
		cfg.Auth.LoginWindow = 60
	}
	if cfg.Graph.Rank == "" {
		cfg.Graph.Rank = "recency"
	}
	if cfg.Persistence.Backend == "" {
		cfg.Persistence.Backend = "sqlite"
	}
	if cfg.Persistence.Namespace == "" {
		cfg.Persistence.Namespace = "mindforge"
	}
	if cfg.Persistence.SQLitePath == "" {
		cfg.Persistence.SQLitePath = "mindforge.db"
	}
	if cfg.Persistence.CompactEvery == 0 {
		cfg.Persistence.CompactEvery = 500
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Recall.MaxConns == 0 {
		cfg.Recall.MaxConns = 10
	}
	if cfg.Recall.MigrationsPath == "" {
		cfg.Recall.MigrationsPath = "migrations"
	}
	if len(cfg.Workspace.Ignore) == 0 {
		cfg.Workspace.Ignore = []string{".git", "node_modules", "vendor", ".idea", "dist"}
	}

	// Parse durations
	cfg.Auth.TokenExpiry, err = duration(k, "auth.token.expiry", "12h")
	if err != nil {
		return nil, err
	}
	cfg.Graph.JanitorInterval, err = duration(k, "graph.janitor.interval", "10m")
	if err != nil {
		return nil, err
	}
	cfg.Graph.CleanupMaxAge, err = duration(k, "graph.cleanup.max.age", "720h")
	if err != nil {
		return nil, err
	}
	cfg.Session.ClassifierTimeout, err = duration(k, "session.classifier.timeout", "5s")
	if err != nil {
		return nil, err
	}
	cfg.NATS.AgentTimeout, err = duration(k, "nats.agent.timeout", "10s")
	if err != nil {
		return nil, err
	}
	cfg.Workspace.Debounce, err = duration(k, "workspace.debounce", "500ms")
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(s, envPrefix), "_", "."))
}

func duration(k *koanf.Koanf, key, fallback string) (time.Duration, error) {
	raw := k.String(key)
	if raw == "" {
		raw = fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return d, nil
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
