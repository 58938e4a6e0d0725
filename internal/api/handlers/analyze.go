package handlers

import (
	"encoding/json"
	"net/http"

	"cyberguard/internal/domain/services"
	"cyberguard/pkg/logger"
)

// AnalyzeHandler handles threat analysis endpoints
type AnalyzeHandler struct {
	evaluator *services.ThreatEvaluator
	logger    *logger.Logger
}

// NewAnalyzeHandler creates a new analyze handler
func NewAnalyzeHandler(evaluator *services.ThreatEvaluator, log *logger.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{
		evaluator: evaluator,
		logger:    log.WithComponent("analyze-handler"),
	}
}

// AnalyzeRequest is the request body for message analysis
type AnalyzeRequest struct {
	Message string `json:"message"`
}

// Analyze handles POST /api/v1/analyze - analyzes a message for threats
// without generating a chat response
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debug().Err(err).Msg("invalid request body")
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	if req.Message == "" {
		http.Error(w, `{"error":"message is required"}`, http.StatusBadRequest)
		return
	}

	verdict := h.evaluator.Analyze(r.Context(), req.Message)

	h.logger.Info().
		Str("risk_level", string(verdict.RiskLevel)).
		Int("risk_score", verdict.RiskScore).
		Msg("message analyzed")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"verdict":         verdict,
		"recommendations": services.SecurityRecommendations(verdict),
	})
}

// AnalyzeURL handles POST /api/v1/analyze/url - analyzes a bare URL by
// treating it as the whole message
func (h *AnalyzeHandler) AnalyzeURL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	if req.URL == "" {
		http.Error(w, `{"error":"url is required"}`, http.StatusBadRequest)
		return
	}

	verdict := h.evaluator.Analyze(r.Context(), req.URL)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"url":             req.URL,
		"verdict":         verdict,
		"recommendations": services.SecurityRecommendations(verdict),
	})
}
