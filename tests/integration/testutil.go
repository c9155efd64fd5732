//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mindforge-ai/mindforge/internal/agents"
	"github.com/mindforge-ai/mindforge/internal/api"
	"github.com/mindforge-ai/mindforge/internal/auth"
	"github.com/mindforge-ai/mindforge/internal/graph"
	"github.com/mindforge-ai/mindforge/internal/intent"
	"github.com/mindforge-ai/mindforge/internal/middleware"
	"github.com/mindforge-ai/mindforge/internal/recall"
	"github.com/mindforge-ai/mindforge/internal/session"
)

const operatorPassword = "integration-operator-secret"

// TestEnv is the suite-wide stack: real Postgres and Redis containers
// behind the same wiring cmd/api uses.
type TestEnv struct {
	Pool        *pgxpool.Pool
	RedisClient *redis.Client
	Store       *graph.Store
	Orch        *session.Orchestrator
	Server      *httptest.Server
}

var testEnv *TestEnv

func TestMain(m *testing.M) {
	code, err := runSuite(m)
	if err != nil {
		log.Fatalf("integration setup: %v", err)
	}
	os.Exit(code)
}

func runSuite(m *testing.M) (int, error) {
	ctx := context.Background()

	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "pgvector/pgvector:0.8.1-pg16",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "mindforge_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return 0, fmt.Errorf("starting postgres container: %w", err)
	}
	defer pgContainer.Terminate(ctx)

	pgHost, _ := pgContainer.Host(ctx)
	pgPort, _ := pgContainer.MappedPort(ctx, "5432")
	dsn := fmt.Sprintf("postgres://test:test@%s:%s/mindforge_test?sslmode=disable", pgHost, pgPort.Port())

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return 0, fmt.Errorf("starting redis container: %w", err)
	}
	defer redisContainer.Terminate(ctx)

	redisHost, _ := redisContainer.Host(ctx)
	redisPort, _ := redisContainer.MappedPort(ctx, "6379")

	migrator, err := migrate.New(fmt.Sprintf("file://%s", getMigrationsPath()), dsn)
	if err != nil {
		return 0, fmt.Errorf("creating migrator: %w", err)
	}
	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return 0, fmt.Errorf("running migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return 0, fmt.Errorf("connecting to postgres: %w", err)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", redisHost, redisPort.Port()),
	})
	defer redisClient.Close()

	// Assemble the stack the way cmd/api does. The classifier has no
	// provider, so every message goes through the keyword fallback.
	store := graph.New()
	classifier := intent.NewClassifier(nil, time.Second)
	orch := session.NewOrchestrator(store, classifier, agents.NewRegistry(), nil)

	repo := recall.NewPostgresRepository(pool)
	indexerCtx, stopIndexer := context.WithCancel(ctx)
	defer stopIndexer()
	go recall.NewIndexer(store, repo, slog.Default()).Run(indexerCtx)

	manager := auth.NewManager("integration-test-secret-0123456789abcdef", time.Hour)
	passwordHash, err := auth.HashPassword(operatorPassword)
	if err != nil {
		return 0, fmt.Errorf("hashing operator password: %w", err)
	}

	sessionHandler := session.NewHandler(orch)
	graphHandler := graph.NewHandler(store)

	// Generous login limit; the rate-limit test builds its own limiter.
	limiter := middleware.NewRateLimiter(redisClient, "login", 100, 60)

	router := api.NewRouter(api.RouterConfig{
		AuthRateLimiter: limiter.Middleware,
		ReadyChecks: []api.ReadyCheck{
			{Name: "recall", Check: repo.Ping},
			{Name: "redis", Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
		},
	}, api.HandlerSet{
		Login:          auth.NewHandler(manager, passwordHash).Login,
		AuthMiddleware: auth.Middleware(manager),

		CreateSession:  sessionHandler.Create,
		ListSessions:   sessionHandler.List,
		CurrentSession: sessionHandler.Current,
		PauseCurrent:   sessionHandler.Pause,
		EndCurrent:     sessionHandler.End,
		ResumeSession:  sessionHandler.Resume,
		ProcessMessage: sessionHandler.Process,

		CreateNode:      graphHandler.CreateNode,
		GetNode:         graphHandler.GetNode,
		UpdateNode:      graphHandler.UpdateNode,
		DeleteNode:      graphHandler.DeleteNode,
		CreateEdge:      graphHandler.CreateEdge,
		DeleteEdge:      graphHandler.DeleteEdge,
		RelatedNodes:    graphHandler.Related,
		NodeConnections: graphHandler.Connections,
		SearchGraph:     graphHandler.Search,
		GraphStats:      graphHandler.GraphStats,
		GraphCleanup:    graphHandler.Cleanup,

		RecallSearch: recall.NewHandler(repo).Search,
	})

	server := httptest.NewServer(router)
	defer server.Close()

	testEnv = &TestEnv{
		Pool:        pool,
		RedisClient: redisClient,
		Store:       store,
		Orch:        orch,
		Server:      server,
	}

	return m.Run(), nil
}

func SetupTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	if testEnv == nil {
		t.Fatal("test environment not initialized")
	}
	return testEnv
}

func getMigrationsPath() string {
	paths := []string{
		"../../migrations",
		"../../../migrations",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	log.Fatal("migrations directory not found")
	return ""
}

// Helper functions

func LoginOperator(t *testing.T, env *TestEnv) string {
	t.Helper()
	body := map[string]string{"password": operatorPassword}
	resp := DoRequest(t, env, "POST", "/api/v1/auth/login", body, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: status %d", resp.StatusCode)
	}
	result := ParseResponse(t, resp)
	data := result["data"].(map[string]any)
	return data["access_token"].(string)
}

func DoRequest(t *testing.T, env *TestEnv, method, path string, body any, token string) *http.Response {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, env.Server.URL+path, bodyReader)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("doing request: %v", err)
	}
	return resp
}

func ParseResponse(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("parsing response: %v", err)
	}
	return result
}
