package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"cyberguard/internal/config"
	"cyberguard/internal/domain/services"
	"cyberguard/pkg/logger"
)

// ChatHandler handles chat endpoints
type ChatHandler struct {
	sessions     *services.SessionManager
	defaultModel string
	logger       *logger.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(sessions *services.SessionManager, cfg config.OpenRouterConfig, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		sessions:     sessions,
		defaultModel: cfg.Model,
		logger:       log.WithComponent("chat-handler"),
	}
}

// ChatRequest is the request body for a chat turn
type ChatRequest struct {
	Message     string  `json:"message"`
	SessionID   string  `json:"session_id,omitempty"`
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// Chat handles POST /api/v1/chat - runs one chat turn through the
// threat-screened chatbot. A missing session_id starts a new session.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debug().Err(err).Msg("invalid request body")
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	if req.Message == "" {
		http.Error(w, `{"error":"message is required"}`, http.StatusBadRequest)
		return
	}

	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}

	bot := h.sessions.Get(req.SessionID)
	turn, err := bot.Chat(r.Context(), req.Message, services.CompletionOptions{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		h.logger.Error().Err(err).Str("session_id", req.SessionID).Msg("chat turn failed")
		http.Error(w, `{"error":"chat completion failed"}`, http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(turn)
}

// DeleteSession handles DELETE /api/v1/sessions/{id} - drops a chat session
// and its conversation history
func (h *ChatHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if sessionID == "" {
		http.Error(w, `{"error":"session id is required"}`, http.StatusBadRequest)
		return
	}

	if !h.sessions.Clear(sessionID) {
		http.Error(w, `{"error":"session not found"}`, http.StatusNotFound)
		return
	}

	h.logger.Info().Str("session_id", sessionID).Msg("chat session cleared")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "cleared", "session_id": sessionID})
}

// Models handles GET /api/v1/models - lists the chat models on offer
func (h *ChatHandler) Models(w http.ResponseWriter, r *http.Request) {
	models := []map[string]string{
		{"id": h.defaultModel, "name": "Default", "provider": "openrouter"},
		{"id": "meta-llama/meta-llama-3.1-70b-instruct", "name": "Llama 3.1 70B", "provider": "openrouter"},
		{"id": "anthropic/claude-3.5-sonnet", "name": "Claude 3.5 Sonnet", "provider": "openrouter"},
		{"id": "openai/gpt-4o-mini", "name": "GPT-4o Mini", "provider": "openrouter"},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"default": h.defaultModel,
		"models":  models,
	})
}
