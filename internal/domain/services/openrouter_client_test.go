package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cyberguard/internal/config"
	"cyberguard/internal/domain/models"
)

func newTestLLM(t *testing.T, handler http.Handler) *OpenRouterClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := NewOpenRouterClient(config.OpenRouterConfig{
		APIKey: "test-key",
		Model:  "test/model-a",
	}, testLogger())
	c.baseURL = server.URL
	return c
}

func TestOpenRouterDisabledWithoutKey(t *testing.T) {
	c := NewOpenRouterClient(config.OpenRouterConfig{}, testLogger())
	assert.False(t, c.Enabled())

	_, err := c.Complete(context.Background(), nil, CompletionOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestOpenRouterComplete(t *testing.T) {
	var captured completionRequest
	c := newTestLLM(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"stay safe"}}]}`))
	}))

	messages := []models.ChatMessage{
		{Role: models.RoleSystem, Content: "be helpful"},
		{Role: models.RoleUser, Content: "hi"},
	}

	content, err := c.Complete(context.Background(), messages, CompletionOptions{})
	require.NoError(t, err)
	assert.Equal(t, "stay safe", content)
	assert.Equal(t, "test/model-a", captured.Model)
	assert.Len(t, captured.Messages, 2)
}

func TestOpenRouterCompletionOptions(t *testing.T) {
	var captured completionRequest
	c := newTestLLM(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))

	_, err := c.Complete(context.Background(), nil, CompletionOptions{
		Model:       "test/model-b",
		MaxTokens:   512,
		Temperature: 0.2,
	})
	require.NoError(t, err)
	assert.Equal(t, "test/model-b", captured.Model)
	assert.Equal(t, 512, captured.MaxTokens)
	assert.InDelta(t, 0.2, captured.Temperature, 1e-9)
}

func TestOpenRouterAPIError(t *testing.T) {
	c := newTestLLM(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":{"message":"insufficient credits"}}`))
	}))

	_, err := c.Complete(context.Background(), nil, CompletionOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient credits")
}

func TestOpenRouterNoChoices(t *testing.T) {
	c := newTestLLM(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))

	_, err := c.Complete(context.Background(), nil, CompletionOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestOpenRouterContextCancelled(t *testing.T) {
	var requests atomic.Int32
	c := newTestLLM(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		<-r.Context().Done()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Complete(ctx, nil, CompletionOptions{})
	require.Error(t, err)
}
