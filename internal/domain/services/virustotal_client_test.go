package services

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cyberguard/internal/config"
	"cyberguard/internal/domain/models"
)

func newTestVTClient(t *testing.T, handler http.Handler) (*VirusTotalClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := NewVirusTotalClient(config.VirusTotalConfig{
		APIKey:       "test-key",
		PollInterval: 10 * time.Millisecond,
		PollAttempts: 3,
	}, testLogger())
	c.baseURL = server.URL
	return c, server
}

func TestVirusTotalDisabledWithoutKey(t *testing.T) {
	c := NewVirusTotalClient(config.VirusTotalConfig{}, testLogger())
	assert.False(t, c.Enabled())

	c = NewVirusTotalClient(config.VirusTotalConfig{APIKey: "k"}, testLogger())
	assert.True(t, c.Enabled())
}

func TestVirusTotalLookupExistingReport(t *testing.T) {
	rawURL := "https://evil.example.com/login"
	urlID := base64.RawURLEncoding.EncodeToString([]byte(rawURL))

	mux := http.NewServeMux()
	mux.HandleFunc("/urls/"+urlID, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-apikey"))
		w.Write([]byte(`{"data":{"attributes":{"last_analysis_stats":{
			"malicious":5,"suspicious":1,"undetected":4,"harmless":60,"timeout":0}}}}`))
	})

	c, _ := newTestVTClient(t, mux)

	verdict := c.Lookup(context.Background(), rawURL)
	assert.Equal(t, models.ReputationComplete, verdict.Status)
	assert.Equal(t, 5, verdict.Malicious)
	assert.Equal(t, 1, verdict.Suspicious)
	assert.Equal(t, 70, verdict.Total)
	assert.InDelta(t, 6.0/70.0, verdict.Score, 1e-9)
}

func TestVirusTotalSubmitAndPoll(t *testing.T) {
	rawURL := "https://unknown.example.com"
	urlID := base64.RawURLEncoding.EncodeToString([]byte(rawURL))

	var polls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/urls/"+urlID, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":"NotFoundError"}}`, http.StatusNotFound)
	})
	mux.HandleFunc("/urls", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, rawURL, r.PostForm.Get("url"))
		w.Write([]byte(`{"data":{"id":"analysis-123"}}`))
	})
	mux.HandleFunc("/analyses/analysis-123", func(w http.ResponseWriter, r *http.Request) {
		// First poll still queued, second completes
		if polls.Add(1) == 1 {
			w.Write([]byte(`{"data":{"attributes":{"status":"queued"}}}`))
			return
		}
		w.Write([]byte(`{"data":{"attributes":{"status":"completed","stats":{
			"malicious":2,"suspicious":0,"undetected":8,"harmless":50,"timeout":0}}}}`))
	})

	c, _ := newTestVTClient(t, mux)

	verdict := c.Lookup(context.Background(), rawURL)
	assert.Equal(t, models.ReputationComplete, verdict.Status)
	assert.Equal(t, 2, verdict.Malicious)
	assert.Equal(t, 60, verdict.Total)
	assert.GreaterOrEqual(t, polls.Load(), int32(2))
}

func TestVirusTotalPollExhaustion(t *testing.T) {
	rawURL := "https://slow.example.com"
	urlID := base64.RawURLEncoding.EncodeToString([]byte(rawURL))

	mux := http.NewServeMux()
	mux.HandleFunc("/urls/"+urlID, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{}`, http.StatusNotFound)
	})
	mux.HandleFunc("/urls", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"id":"analysis-slow"}}`))
	})
	mux.HandleFunc("/analyses/analysis-slow", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"attributes":{"status":"queued"}}}`))
	})

	c, _ := newTestVTClient(t, mux)

	verdict := c.Lookup(context.Background(), rawURL)
	assert.Equal(t, models.ReputationTimeout, verdict.Status)
	assert.Equal(t, "analysis taking too long", verdict.Message)
}

func TestVirusTotalCancelledDuringPoll(t *testing.T) {
	rawURL := "https://cancelled.example.com"
	urlID := base64.RawURLEncoding.EncodeToString([]byte(rawURL))

	mux := http.NewServeMux()
	mux.HandleFunc("/urls/"+urlID, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{}`, http.StatusNotFound)
	})
	mux.HandleFunc("/urls", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"id":"analysis-x"}}`))
	})
	mux.HandleFunc("/analyses/analysis-x", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"attributes":{"status":"queued"}}}`))
	})

	c, _ := newTestVTClient(t, mux)
	c.pollInterval = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	verdict := c.Lookup(ctx, rawURL)
	assert.Equal(t, models.ReputationTimeout, verdict.Status)
}

func TestVirusTotalInvalidURL(t *testing.T) {
	var requests atomic.Int32
	c, _ := newTestVTClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))

	for _, bad := range []string{"", "   ", "not a url", "example.com/no-scheme"} {
		verdict := c.Lookup(context.Background(), bad)
		assert.Equal(t, models.ReputationError, verdict.Status, "input %q", bad)
		assert.Equal(t, "invalid URL format", verdict.Message)
	}
	assert.Zero(t, requests.Load(), "invalid URLs must not reach the network")
}

func TestVirusTotalAPIError(t *testing.T) {
	c, _ := newTestVTClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"quota"}`, http.StatusTooManyRequests)
	}))

	verdict := c.Lookup(context.Background(), "https://example.com")
	assert.Equal(t, models.ReputationError, verdict.Status)
	assert.Contains(t, verdict.Message, "429")
}

func TestVirusTotalSubmissionFailure(t *testing.T) {
	rawURL := "https://submitfail.example.com"
	urlID := base64.RawURLEncoding.EncodeToString([]byte(rawURL))

	mux := http.NewServeMux()
	mux.HandleFunc("/urls/"+urlID, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{}`, http.StatusNotFound)
	})
	mux.HandleFunc("/urls", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{}`, http.StatusBadRequest)
	})

	c, _ := newTestVTClient(t, mux)

	verdict := c.Lookup(context.Background(), rawURL)
	assert.Equal(t, models.ReputationError, verdict.Status)
}

func TestVirusTotalZeroVendorStats(t *testing.T) {
	rawURL := "https://empty.example.com"
	urlID := base64.RawURLEncoding.EncodeToString([]byte(rawURL))

	mux := http.NewServeMux()
	mux.HandleFunc("/urls/"+urlID, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"attributes":{"last_analysis_stats":{}}}}`))
	})

	c, _ := newTestVTClient(t, mux)

	verdict := c.Lookup(context.Background(), rawURL)
	assert.Equal(t, models.ReputationComplete, verdict.Status)
	assert.Zero(t, verdict.Total)
	assert.Zero(t, verdict.Score)
}
