package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"cyberguard/internal/api/middleware"
	"cyberguard/internal/config"
	"cyberguard/internal/infrastructure/database"
	"cyberguard/pkg/logger"
)

// AuthHandler handles signup, login, and session endpoints
type AuthHandler struct {
	store      *database.Store
	sessionTTL time.Duration
	logger     *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(store *database.Store, cfg config.SessionConfig, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		store:      store,
		sessionTTL: cfg.TTL,
		logger:     log.WithComponent("auth-handler"),
	}
}

// SignupRequest is the request body for user registration
type SignupRequest struct {
	Email    string `json:"email"`
	FullName string `json:"fullname"`
	Password string `json:"password"`
}

// LoginRequest is the request body for login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse is returned on successful signup or login
type SessionResponse struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullname"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Signup handles POST /api/signup - registers a user and opens a session
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		http.Error(w, `{"error":"a valid email is required"}`, http.StatusBadRequest)
		return
	}
	if req.FullName == "" {
		http.Error(w, `{"error":"fullname is required"}`, http.StatusBadRequest)
		return
	}
	if len(req.Password) < 8 {
		http.Error(w, `{"error":"password must be at least 8 characters"}`, http.StatusBadRequest)
		return
	}

	user, err := h.store.CreateUser(r.Context(), req.Email, req.FullName, req.Password)
	if err != nil {
		if errors.Is(err, database.ErrUserExists) {
			http.Error(w, `{"error":"email already registered"}`, http.StatusConflict)
			return
		}
		h.logger.Error().Err(err).Msg("failed to create user")
		http.Error(w, `{"error":"registration failed"}`, http.StatusInternalServerError)
		return
	}

	sess, err := h.store.CreateSession(r.Context(), user.ID, h.sessionTTL)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to create session")
		http.Error(w, `{"error":"registration failed"}`, http.StatusInternalServerError)
		return
	}

	h.logger.Info().Str("email", user.Email).Msg("user registered")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(SessionResponse{
		Token:     sess.Token,
		Email:     sess.Email,
		FullName:  sess.FullName,
		ExpiresAt: sess.ExpiresAt,
	})
}

// Login handles POST /api/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	user, err := h.store.VerifyUser(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, database.ErrInvalidCredentials) {
			http.Error(w, `{"error":"invalid email or password"}`, http.StatusUnauthorized)
			return
		}
		h.logger.Error().Err(err).Msg("login failed")
		http.Error(w, `{"error":"login failed"}`, http.StatusInternalServerError)
		return
	}

	sess, err := h.store.CreateSession(r.Context(), user.ID, h.sessionTTL)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to create session")
		http.Error(w, `{"error":"login failed"}`, http.StatusInternalServerError)
		return
	}

	h.logger.Info().Str("email", user.Email).Msg("user logged in")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SessionResponse{
		Token:     sess.Token,
		Email:     sess.Email,
		FullName:  sess.FullName,
		ExpiresAt: sess.ExpiresAt,
	})
}

// Logout handles POST /api/logout - invalidates the current session
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.ExtractToken(r)
	if token == "" {
		http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
		return
	}

	if err := h.store.DeleteSession(r.Context(), token); err != nil {
		h.logger.Error().Err(err).Msg("failed to delete session")
		http.Error(w, `{"error":"logout failed"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "logged out"})
}

// Me handles GET /api/me - returns the authenticated user's profile
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())
	if sess == nil {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"email":      sess.Email,
		"fullname":   sess.FullName,
		"expires_at": sess.ExpiresAt,
	})
}
