package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/mindforge-ai/mindforge/internal/agents"
	"github.com/mindforge-ai/mindforge/internal/api"
	"github.com/mindforge-ai/mindforge/internal/auth"
	"github.com/mindforge-ai/mindforge/internal/bus"
	"github.com/mindforge-ai/mindforge/internal/config"
	"github.com/mindforge-ai/mindforge/internal/database"
	"github.com/mindforge-ai/mindforge/internal/graph"
	"github.com/mindforge-ai/mindforge/internal/intent"
	"github.com/mindforge-ai/mindforge/internal/middleware"
	"github.com/mindforge-ai/mindforge/internal/persistence"
	"github.com/mindforge-ai/mindforge/internal/recall"
	iredis "github.com/mindforge-ai/mindforge/internal/redis"
	"github.com/mindforge-ai/mindforge/internal/server"
	"github.com/mindforge-ai/mindforge/internal/session"
	"github.com/mindforge-ai/mindforge/internal/workspace"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("validating config", "error", err)
		os.Exit(1)
	}

	// One context drives every background goroutine and the HTTP
	// listener; the first SIGINT/SIGTERM cancels it.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var readyChecks []api.ReadyCheck

	// Knowledge graph
	store := graph.New()
	if cfg.Graph.Rank == "weight_age" {
		store.SetRank(graph.RankByWeightAge)
	}

	// Redis (login rate limiting, optional persistence backend)
	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = iredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Error("connecting to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		readyChecks = append(readyChecks, api.ReadyCheck{
			Name: "redis",
			Check: func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		})
	}

	// Persistence: append-only change log with periodic compaction
	var logBackend persistence.Log
	switch cfg.Persistence.Backend {
	case "sqlite":
		sqliteLog, err := persistence.NewSQLiteLog(cfg.Persistence.SQLitePath, cfg.Persistence.Namespace)
		if err != nil {
			slog.Error("opening sqlite change log", "error", err)
			os.Exit(1)
		}
		logBackend = sqliteLog
	case "redis":
		logBackend = persistence.NewRedisLog(redisClient, cfg.Persistence.Namespace)
	}

	var wg sync.WaitGroup
	if logBackend != nil {
		keeper := persistence.NewKeeper(store, logBackend, cfg.Persistence.CompactEvery, slog.Default())
		// Fail hard here: starting empty and compacting later would
		// overwrite a good snapshot.
		if err := keeper.Restore(ctx); err != nil {
			slog.Error("restoring graph from change log", "error", err)
			os.Exit(1)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			keeper.Run(ctx)
		}()
		readyChecks = append(readyChecks, api.ReadyCheck{Name: "persistence", Check: logBackend.Ping})
	}

	// Janitor sweeps stale low-weight nodes
	go graph.NewJanitor(store, cfg.Graph.JanitorInterval, cfg.Graph.CleanupMaxAge).Run(ctx)

	// NATS: change-notification bridge, intent provider, remote agents
	var busClient *bus.Client
	var provider intent.Provider
	if cfg.NATS.Enabled() {
		busClient, err = bus.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Error("connecting to nats", "error", err)
			os.Exit(1)
		}
		defer busClient.Close()

		go bus.NewBridge(store, busClient.JetStream(), slog.Default()).Run(ctx)
		provider = bus.NewProvider(busClient.Conn())

		readyChecks = append(readyChecks, api.ReadyCheck{
			Name: "nats",
			Check: func(context.Context) error {
				if !busClient.Healthy() {
					return errors.New("nats connection down")
				}
				return nil
			},
		})
	}

	classifier := intent.NewClassifier(provider, cfg.Session.ClassifierTimeout)

	registry := agents.NewRegistry()
	if busClient != nil && cfg.NATS.AgentPrefix != "" {
		requester := bus.NewRequester(busClient.Conn())
		for _, in := range []intent.Intent{
			intent.Plan, intent.Build, intent.Design, intent.Test, intent.Deploy, intent.Code,
		} {
			subject := cfg.NATS.AgentPrefix + "." + string(in)
			registry.Register(in, agents.NewRemoteAgent(string(in), subject, requester, cfg.NATS.AgentTimeout))
		}
	}

	// Session orchestrator
	var saver session.Saver
	if logBackend != nil {
		saver = logBackend
	}
	orch := session.NewOrchestrator(store, classifier, registry, saver)
	if logBackend != nil {
		if saved, err := logBackend.LoadSessions(ctx); err != nil {
			slog.Warn("loading saved sessions", "error", err)
		} else if len(saved) > 0 {
			orch.Restore(saved)
			slog.Info("sessions restored", "count", len(saved))
		}
	}

	// Semantic recall (optional)
	var recallSearch http.HandlerFunc
	if cfg.Recall.Enabled() {
		if err := database.RunMigrations(cfg.Recall.DSN, cfg.Recall.MigrationsPath); err != nil {
			slog.Error("running recall migrations", "error", err)
			os.Exit(1)
		}
		pool, err := database.NewPostgresPool(ctx, cfg.Recall)
		if err != nil {
			slog.Error("connecting to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		repo := recall.NewPostgresRepository(pool)
		go recall.NewIndexer(store, repo, slog.Default()).Run(ctx)
		recallSearch = recall.NewHandler(repo).Search
		readyChecks = append(readyChecks, api.ReadyCheck{Name: "recall", Check: repo.Ping})
	}

	// Workspace watcher (optional)
	if cfg.Workspace.Root != "" {
		watcher, err := workspace.New(store, cfg.Workspace, slog.Default())
		if err != nil {
			slog.Error("starting workspace watcher", "error", err)
			os.Exit(1)
		}
		go func() {
			if err := watcher.Run(ctx); err != nil {
				slog.Error("workspace watcher stopped", "error", err)
			}
		}()
	}

	// Handlers
	sessionHandler := session.NewHandler(orch)
	graphHandler := graph.NewHandler(store)

	handlers := api.HandlerSet{
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

		RecallSearch: recallSearch,
	}

	routerCfg := api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		ReadyChecks:        readyChecks,
	}

	// Auth (optional)
	if cfg.Auth.Enabled() {
		manager := auth.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
		handlers.Login = auth.NewHandler(manager, cfg.Auth.PasswordHash).Login
		handlers.AuthMiddleware = auth.Middleware(manager)
		if redisClient != nil {
			limiter := middleware.NewRateLimiter(redisClient, "login", cfg.Auth.LoginMaxReqs, cfg.Auth.LoginWindow)
			routerCfg.AuthRateLimiter = limiter.Middleware
		}
	}

	router := api.NewRouter(routerCfg, handlers)

	// Serve until the context is canceled, then let the keeper finish
	// its final snapshot before exiting.
	srvErr := server.New(cfg.Server, router).Start(ctx)
	stop()
	wg.Wait()
	if logBackend != nil {
		logBackend.Close()
	}
	if srvErr != nil {
		slog.Error("server error", "error", srvErr)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
