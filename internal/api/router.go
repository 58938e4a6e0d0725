package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"cyberguard/internal/api/handlers"
	apimiddleware "cyberguard/internal/api/middleware"
	"cyberguard/internal/config"
	"cyberguard/internal/infrastructure/cache"
	"cyberguard/internal/infrastructure/database"
	"cyberguard/internal/streaming"
	"cyberguard/pkg/logger"
)

// Router holds dependencies for the API router
type Router struct {
	config   config.Config
	handlers *handlers.Handlers
	store    *database.Store
	cache    *cache.RedisCache
	chatHub  *streaming.ChatHub
	logger   *logger.Logger
}

// NewRouter creates a new Router instance
func NewRouter(cfg config.Config, h *handlers.Handlers, store *database.Store, c *cache.RedisCache, hub *streaming.ChatHub, log *logger.Logger) *Router {
	return &Router{
		config:   cfg,
		handlers: h,
		store:    store,
		cache:    c,
		chatHub:  hub,
		logger:   log.WithComponent("router"),
	}
}

// Setup sets up the Chi router with all routes and middleware
func (r *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Core middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(apimiddleware.Logger(r.logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(120 * time.Second))

	// CORS
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   r.config.CORS.AllowedOrigins,
		AllowedMethods:   r.config.CORS.AllowedMethods,
		AllowedHeaders:   r.config.CORS.AllowedHeaders,
		AllowCredentials: r.config.CORS.AllowCredentials,
		MaxAge:           r.config.CORS.MaxAge,
	}))

	// Rate limiting
	if r.config.RateLimit.Enabled && r.cache != nil {
		router.Use(apimiddleware.RateLimiter(r.cache, r.config.RateLimit))
	}

	// Public routes
	router.Group(func(pub chi.Router) {
		pub.Get("/health", r.handlers.Health.Check)
		pub.Get("/ready", r.handlers.Health.Ready)

		pub.Post("/api/signup", r.handlers.Auth.Signup)
		pub.Post("/api/login", r.handlers.Auth.Login)
		pub.Post("/api/logout", r.handlers.Auth.Logout)
	})

	// Authenticated profile route
	router.Group(func(auth chi.Router) {
		auth.Use(apimiddleware.SessionAuth(r.store))
		auth.Get("/api/me", r.handlers.Auth.Me)
	})

	// API v1 routes (authenticated)
	router.Route("/api/v1", func(api chi.Router) {
		api.Use(apimiddleware.SessionAuth(r.store))

		api.Post("/chat", r.handlers.Chat.Chat)
		api.Get("/models", r.handlers.Chat.Models)
		api.Delete("/sessions/{id}", r.handlers.Chat.DeleteSession)

		api.Post("/analyze", r.handlers.Analyze.Analyze)
		api.Post("/analyze/url", r.handlers.Analyze.AnalyzeURL)
	})

	// WebSocket chat endpoint; the token is validated inside the handler
	// because it arrives as a query parameter
	router.Get("/ws/chat", r.chatHub.HandleWebSocket)

	return router
}
