package handlers

import (
	"cyberguard/internal/config"
	"cyberguard/internal/domain/services"
	"cyberguard/internal/infrastructure/cache"
	"cyberguard/internal/infrastructure/database"
	"cyberguard/pkg/logger"
)

// Handlers holds all API handlers
type Handlers struct {
	Health  *HealthHandler
	Auth    *AuthHandler
	Chat    *ChatHandler
	Analyze *AnalyzeHandler
}

// Dependencies holds dependencies for handlers
type Dependencies struct {
	Sessions *services.SessionManager
	Store    *database.Store
	Cache    *cache.RedisCache
	Config   *config.Config
	Logger   *logger.Logger
}

// NewHandlers creates all handlers
func NewHandlers(deps Dependencies) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(deps.Cache, deps.Store, deps.Logger),
		Auth:    NewAuthHandler(deps.Store, deps.Config.Session, deps.Logger),
		Chat:    NewChatHandler(deps.Sessions, deps.Config.OpenRouter, deps.Logger),
		Analyze: NewAnalyzeHandler(deps.Sessions.Evaluator(), deps.Logger),
	}
}
