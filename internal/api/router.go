package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	mw "github.com/mindforge-ai/mindforge/internal/middleware"
)

// HandlerSet holds handler functions injected from main.go to avoid import
// cycles. Nil optional handlers (Login, RecallSearch) leave their routes
// unregistered.
type HandlerSet struct {
	// Auth
	Login          http.HandlerFunc
	AuthMiddleware func(http.Handler) http.Handler

	// Sessions and messages
	CreateSession  http.HandlerFunc
	ListSessions   http.HandlerFunc
	CurrentSession http.HandlerFunc
	PauseCurrent   http.HandlerFunc
	EndCurrent     http.HandlerFunc
	ResumeSession  http.HandlerFunc
	ProcessMessage http.HandlerFunc

	// Knowledge graph
	CreateNode      http.HandlerFunc
	GetNode         http.HandlerFunc
	UpdateNode      http.HandlerFunc
	DeleteNode      http.HandlerFunc
	CreateEdge      http.HandlerFunc
	DeleteEdge      http.HandlerFunc
	RelatedNodes    http.HandlerFunc
	NodeConnections http.HandlerFunc
	SearchGraph     http.HandlerFunc
	GraphStats      http.HandlerFunc
	GraphCleanup    http.HandlerFunc

	// Semantic recall (optional)
	RecallSearch http.HandlerFunc
}

// ReadyCheck is one dependency probed by the readiness endpoint.
type ReadyCheck struct {
	Name  string
	Check func(context.Context) error
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	AuthRateLimiter    func(http.Handler) http.Handler
	ReadyChecks        []ReadyCheck
}

func NewRouter(cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))

	// Liveness probe: always 200, no dependency checks.
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	// Readiness probe: runs whatever dependency checks were configured.
	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{"status": "healthy"}
		status := http.StatusOK

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		for _, rc := range cfg.ReadyChecks {
			if err := rc.Check(ctx); err != nil {
				health[rc.Name] = "unhealthy"
				health["status"] = "degraded"
				status = http.StatusServiceUnavailable
			} else {
				health[rc.Name] = "healthy"
			}
		}

		JSON(w, status, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Login is public and optionally rate-limited; absent when auth
		// is off.
		if h.Login != nil {
			r.Route("/auth", func(r chi.Router) {
				if cfg.AuthRateLimiter != nil {
					r.Use(cfg.AuthRateLimiter)
				}
				r.Post("/login", h.Login)
			})
		}

		// Protected routes
		r.Group(func(r chi.Router) {
			if h.AuthMiddleware != nil {
				r.Use(h.AuthMiddleware)
			}

			r.Route("/sessions", func(r chi.Router) {
				r.Post("/", h.CreateSession)
				r.Get("/", h.ListSessions)
				r.Get("/current", h.CurrentSession)
				r.Post("/current/pause", h.PauseCurrent)
				r.Post("/current/end", h.EndCurrent)
				r.Post("/{sessionID}/resume", h.ResumeSession)
			})

			r.Post("/messages", h.ProcessMessage)

			r.Route("/graph", func(r chi.Router) {
				r.Route("/nodes", func(r chi.Router) {
					r.Post("/", h.CreateNode)
					r.Route("/{nodeID}", func(r chi.Router) {
						r.Get("/", h.GetNode)
						r.Patch("/", h.UpdateNode)
						r.Delete("/", h.DeleteNode)
						r.Get("/related", h.RelatedNodes)
						r.Get("/connections", h.NodeConnections)
					})
				})
				r.Post("/edges", h.CreateEdge)
				r.Delete("/edges/{edgeID}", h.DeleteEdge)
				r.Get("/search", h.SearchGraph)
				r.Get("/stats", h.GraphStats)
				r.Post("/cleanup", h.GraphCleanup)
			})

			if h.RecallSearch != nil {
				r.Post("/recall/search", h.RecallSearch)
			}
		})
	})

	return r
}
