package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cyberguard/internal/api"
	"cyberguard/internal/api/handlers"
	"cyberguard/internal/config"
	"cyberguard/internal/domain/services"
	"cyberguard/internal/infrastructure/cache"
	"cyberguard/internal/infrastructure/database"
	"cyberguard/internal/streaming"
	"cyberguard/pkg/logger"
)

func main() {
	// Load .env if present; real env vars take precedence
	_ = godotenv.Load()

	cfg, err := config.LoadDefault()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	var log *logger.Logger
	if cfg.App.Environment == "production" {
		log = logger.NewProduction()
	} else {
		log = logger.NewDevelopment()
	}
	logger.SetGlobal(log)

	log.Info().
		Str("app", cfg.App.Name).
		Str("env", cfg.App.Environment).
		Str("version", cfg.App.Version).
		Msg("starting CyberGuard")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize infrastructure
	store, err := database.NewStore(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer store.Close()

	var redisCache *cache.RedisCache
	if cfg.Redis.Enabled {
		redisCache, err = cache.NewRedis(ctx, cfg.Redis, log)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to Redis, continuing without rate limiting")
		} else {
			defer redisCache.Close()
		}
	}

	// Initialize services
	var reputation services.ReputationClient
	vtClient := services.NewVirusTotalClient(cfg.VirusTotal, log)
	if vtClient.Enabled() {
		reputation = vtClient
		log.Info().Msg("VirusTotal URL reputation enabled")
	} else {
		log.Warn().Msg("no VirusTotal API key configured, URL reputation disabled")
	}

	evaluator := services.NewThreatEvaluator(reputation, log)

	llm := services.NewOpenRouterClient(cfg.OpenRouter, log)
	if !llm.Enabled() {
		log.Warn().Msg("no OpenRouter API key configured, chat endpoints will fail")
	}

	sessions := services.NewSessionManager(llm, evaluator, log)

	// WebSocket chat hub
	chatHub := streaming.NewChatHub(store, sessions, log)

	// Periodic cleanup of expired auth sessions
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := store.CleanupExpiredSessions(ctx); err != nil {
					log.Warn().Err(err).Msg("session cleanup failed")
				} else if n > 0 {
					log.Info().Int64("removed", n).Msg("expired sessions cleaned up")
				}
			}
		}
	}()

	// Initialize handlers and router
	h := handlers.NewHandlers(handlers.Dependencies{
		Sessions: sessions,
		Store:    store,
		Cache:    redisCache,
		Config:   cfg,
		Logger:   log,
	})

	router := api.NewRouter(*cfg, h, store, redisCache, chatHub, log)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().
			Str("addr", httpServer.Addr).
			Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("shutdown complete")
}
