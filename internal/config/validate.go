package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	// Auth: disabled is allowed (local single-operator use) but noisy.
	if c.Auth.Enabled() {
		if len(c.Auth.JWTSecret) < 32 {
			errs = append(errs, "MINDFORGE_AUTH_JWT_SECRET must be at least 32 characters")
		}
		if c.Auth.PasswordHash == "" {
			errs = append(errs, "MINDFORGE_AUTH_PASSWORD_HASH is required when auth is enabled (generate one with `mindforgectl hash-password`)")
		} else if !strings.HasPrefix(c.Auth.PasswordHash, "$2") {
			errs = append(errs, "MINDFORGE_AUTH_PASSWORD_HASH must be a bcrypt hash")
		}
		if c.Auth.TokenExpiry <= 0 {
			errs = append(errs, "MINDFORGE_AUTH_TOKEN_EXPIRY must be positive")
		}
	} else {
		slog.Warn("MINDFORGE_AUTH_JWT_SECRET is empty, the HTTP API has no authentication")
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("MINDFORGE_SERVER_PORT must be 1-65535, got %d", c.Server.Port))
	}
	if c.Redis.Enabled() && (c.Redis.Port < 1 || c.Redis.Port > 65535) {
		errs = append(errs, fmt.Sprintf("MINDFORGE_REDIS_PORT must be 1-65535, got %d", c.Redis.Port))
	}

	// Persistence
	if !slices.Contains([]string{"sqlite", "redis", "none"}, c.Persistence.Backend) {
		errs = append(errs, fmt.Sprintf("MINDFORGE_PERSISTENCE_BACKEND must be sqlite, redis or none, got %q", c.Persistence.Backend))
	}
	if c.Persistence.Backend == "sqlite" && c.Persistence.SQLitePath == "" {
		errs = append(errs, "MINDFORGE_PERSISTENCE_SQLITE_PATH is required for the sqlite backend")
	}
	if c.Persistence.Backend == "redis" && !c.Redis.Enabled() {
		errs = append(errs, "MINDFORGE_REDIS_HOST is required for the redis persistence backend")
	}
	if c.Persistence.CompactEvery < 1 {
		errs = append(errs, fmt.Sprintf("MINDFORGE_PERSISTENCE_COMPACT_EVERY must be positive, got %d", c.Persistence.CompactEvery))
	}

	// Graph
	if !slices.Contains([]string{"recency", "weight_age"}, c.Graph.Rank) {
		errs = append(errs, fmt.Sprintf("MINDFORGE_GRAPH_RANK must be recency or weight_age, got %q", c.Graph.Rank))
	}
	if c.Graph.JanitorInterval <= 0 {
		errs = append(errs, "MINDFORGE_GRAPH_JANITOR_INTERVAL must be positive")
	}
	if c.Graph.CleanupMaxAge <= 0 {
		errs = append(errs, "MINDFORGE_GRAPH_CLEANUP_MAX_AGE must be positive")
	}

	// Session pipeline
	if c.Session.ClassifierTimeout <= 0 {
		errs = append(errs, "MINDFORGE_SESSION_CLASSIFIER_TIMEOUT must be positive")
	}

	// Remote agents need a bus to ride on.
	if c.NATS.AgentPrefix != "" && !c.NATS.Enabled() {
		errs = append(errs, "MINDFORGE_NATS_URL is required when MINDFORGE_NATS_AGENT_PREFIX is set")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
