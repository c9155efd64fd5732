package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		Log:    LogConfig{Level: "info", Format: "text"},
		Auth: AuthConfig{
			JWTSecret:    "jwt-secret-that-is-at-least-32-chars!!!!",
			TokenExpiry:  12 * time.Hour,
			PasswordHash: "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW",
			LoginMaxReqs: 10,
			LoginWindow:  60,
		},
		Graph: GraphConfig{
			JanitorInterval: 10 * time.Minute,
			CleanupMaxAge:   720 * time.Hour,
			Rank:            "recency",
		},
		Session: SessionConfig{ClassifierTimeout: 5 * time.Second},
		Persistence: PersistenceConfig{
			Backend:      "sqlite",
			Namespace:    "mindforge",
			SQLitePath:   "mindforge.db",
			CompactEvery: 500,
		},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestValidate_AuthDisabledIsAllowed(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.JWTSecret = ""
	cfg.Auth.PasswordHash = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("auth disabled should validate, got: %v", err)
	}
}

func TestValidate_JWTSecretTooShort(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.JWTSecret = "short"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "MINDFORGE_AUTH_JWT_SECRET") {
		t.Fatalf("expected MINDFORGE_AUTH_JWT_SECRET error, got: %v", err)
	}
}

func TestValidate_PasswordHashRequiredWithAuth(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.PasswordHash = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "MINDFORGE_AUTH_PASSWORD_HASH") {
		t.Fatalf("expected MINDFORGE_AUTH_PASSWORD_HASH error, got: %v", err)
	}
}

func TestValidate_PasswordHashMustBeBcrypt(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.PasswordHash = "plaintext-password"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "bcrypt") {
		t.Fatalf("expected bcrypt error, got: %v", err)
	}
}

func TestValidate_InvalidServerPort(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "MINDFORGE_SERVER_PORT") {
		t.Fatalf("expected MINDFORGE_SERVER_PORT error, got: %v", err)
	}
}

func TestValidate_UnknownPersistenceBackend(t *testing.T) {
	cfg := validConfig()
	cfg.Persistence.Backend = "postgres"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "MINDFORGE_PERSISTENCE_BACKEND") {
		t.Fatalf("expected MINDFORGE_PERSISTENCE_BACKEND error, got: %v", err)
	}
}

func TestValidate_RedisBackendNeedsRedisHost(t *testing.T) {
	cfg := validConfig()
	cfg.Persistence.Backend = "redis"
	cfg.Redis.Host = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "MINDFORGE_REDIS_HOST") {
		t.Fatalf("expected MINDFORGE_REDIS_HOST error, got: %v", err)
	}
}

func TestValidate_UnknownRankStrategy(t *testing.T) {
	cfg := validConfig()
	cfg.Graph.Rank = "alphabetical"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "MINDFORGE_GRAPH_RANK") {
		t.Fatalf("expected MINDFORGE_GRAPH_RANK error, got: %v", err)
	}
}

func TestValidate_AgentPrefixNeedsNATS(t *testing.T) {
	cfg := validConfig()
	cfg.NATS.AgentPrefix = "mindforge.agents"
	cfg.NATS.URL = ""
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "MINDFORGE_NATS_URL") {
		t.Fatalf("expected MINDFORGE_NATS_URL error, got: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	cfg.Auth.JWTSecret = "short"
	cfg.Graph.Rank = "bogus"
	cfg.Persistence.CompactEvery = 0
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected multiple validation errors")
	}
	errStr := err.Error()
	for _, substr := range []string{"MINDFORGE_SERVER_PORT", "MINDFORGE_AUTH_JWT_SECRET", "MINDFORGE_GRAPH_RANK", "MINDFORGE_PERSISTENCE_COMPACT_EVERY"} {
		if !strings.Contains(errStr, substr) {
			t.Errorf("expected %q in error: %s", substr, errStr)
		}
	}
}
