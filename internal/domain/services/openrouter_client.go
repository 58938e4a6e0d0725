package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"cyberguard/internal/config"
	"cyberguard/internal/domain/models"
	"cyberguard/pkg/logger"
)

const openRouterAPIURL = "https://openrouter.ai/api/v1"

// OpenRouterClient calls the OpenRouter chat-completions API
type OpenRouterClient struct {
	apiKey      string
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
	client      *http.Client
	logger      *logger.Logger
}

// CompletionOptions override per-request generation parameters. Zero values
// fall back to the configured defaults.
type CompletionOptions struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// NewOpenRouterClient creates a new OpenRouter client
func NewOpenRouterClient(cfg config.OpenRouterConfig, log *logger.Logger) *OpenRouterClient {
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.7
	}

	return &OpenRouterClient{
		apiKey:      cfg.APIKey,
		baseURL:     openRouterAPIURL,
		model:       cfg.Model,
		maxTokens:   maxTokens,
		temperature: temperature,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: log.WithComponent("openrouter"),
	}
}

// Enabled reports whether an API key is configured
func (c *OpenRouterClient) Enabled() bool {
	return c.apiKey != ""
}

// Model returns the default model name
func (c *OpenRouterClient) Model() string {
	return c.model
}

type completionRequest struct {
	Model       string               `json:"model"`
	Messages    []models.ChatMessage `json:"messages"`
	MaxTokens   int                  `json:"max_tokens"`
	Temperature float64              `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message models.ChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends a chat-completion request and returns the assistant content
func (c *OpenRouterClient) Complete(ctx context.Context, messages []models.ChatMessage, opts CompletionOptions) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("OpenRouter API key not configured")
	}

	reqBody := completionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}
	if opts.Model != "" {
		reqBody.Model = opts.Model
	}
	if opts.MaxTokens > 0 {
		reqBody.MaxTokens = opts.MaxTokens
	}
	if opts.Temperature > 0 {
		reqBody.Temperature = opts.Temperature
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var result completionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if result.Error != nil && result.Error.Message != "" {
			return "", fmt.Errorf("OpenRouter API error: %s", result.Error.Message)
		}
		return "", fmt.Errorf("OpenRouter returned status %d", resp.StatusCode)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("unexpected response format: no choices")
	}

	c.logger.Debug().
		Str("model", reqBody.Model).
		Dur("duration", time.Since(start)).
		Msg("completion received")

	return result.Choices[0].Message.Content, nil
}
