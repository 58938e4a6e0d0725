package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cyberguard/internal/config"
	"cyberguard/internal/domain/models"
	"cyberguard/pkg/logger"
)

const virusTotalAPIURL = "https://www.virustotal.com/api/v3"

// ReputationClient looks up the reputation of a URL against an external
// scanning service. Callers must check Enabled before calling Lookup.
type ReputationClient interface {
	Enabled() bool
	Lookup(ctx context.Context, rawURL string) models.ReputationVerdict
}

// VirusTotalClient checks URLs against the VirusTotal v3 API using the
// submit-then-poll flow: fetch an existing report, submit for analysis when
// none exists, then poll the analysis until it completes or the bounded
// attempt budget runs out.
type VirusTotalClient struct {
	apiKey       string
	baseURL      string
	client       *http.Client
	pollInterval time.Duration
	pollAttempts int
	logger       *logger.Logger
}

// NewVirusTotalClient creates a new VirusTotal client. An empty API key
// produces a disabled client; Lookup must not be called on it.
func NewVirusTotalClient(cfg config.VirusTotalConfig, log *logger.Logger) *VirusTotalClient {
	pollInterval := cfg.PollInterval
	if pollInterval == 0 {
		pollInterval = 5 * time.Second
	}
	pollAttempts := cfg.PollAttempts
	if pollAttempts == 0 {
		pollAttempts = 5
	}

	return &VirusTotalClient{
		apiKey:  cfg.APIKey,
		baseURL: virusTotalAPIURL,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		pollInterval: pollInterval,
		pollAttempts: pollAttempts,
		logger:       log.WithComponent("virustotal"),
	}
}

// Enabled reports whether an API key is configured
func (c *VirusTotalClient) Enabled() bool {
	return c.apiKey != ""
}

type vtAnalysisStats struct {
	Malicious  int `json:"malicious"`
	Suspicious int `json:"suspicious"`
	Undetected int `json:"undetected"`
	Harmless   int `json:"harmless"`
	Timeout    int `json:"timeout"`
}

func (s vtAnalysisStats) total() int {
	return s.Malicious + s.Suspicious + s.Undetected + s.Harmless + s.Timeout
}

type vtURLReport struct {
	Data struct {
		Attributes struct {
			LastAnalysisStats vtAnalysisStats `json:"last_analysis_stats"`
		} `json:"attributes"`
	} `json:"data"`
}

type vtSubmitResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

type vtAnalysisResponse struct {
	Data struct {
		Attributes struct {
			Status string          `json:"status"`
			Stats  vtAnalysisStats `json:"stats"`
		} `json:"attributes"`
	} `json:"data"`
}

// Lookup checks a single URL against VirusTotal. It never returns an error
// to the caller: transport and parse failures are downgraded to a verdict
// with status error, and context cancellation during polling yields timeout.
func (c *VirusTotalClient) Lookup(ctx context.Context, rawURL string) models.ReputationVerdict {
	rawURL = strings.TrimSpace(rawURL)

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return errorVerdict(rawURL, "invalid URL format")
	}

	urlID := base64.RawURLEncoding.EncodeToString([]byte(rawURL))

	status, body, err := c.get(ctx, c.baseURL+"/urls/"+urlID)
	if err != nil {
		c.logger.Warn().Err(err).Str("url", rawURL).Msg("report lookup failed")
		return errorVerdict(rawURL, err.Error())
	}

	switch status {
	case http.StatusOK:
		var report vtURLReport
		if err := json.Unmarshal(body, &report); err != nil {
			return errorVerdict(rawURL, "failed to parse report: "+err.Error())
		}
		return c.verdictFromStats(rawURL, report.Data.Attributes.LastAnalysisStats)

	case http.StatusNotFound:
		c.logger.Info().Str("url", rawURL).Msg("URL not found in VirusTotal, submitting for analysis")
		return c.submitAndPoll(ctx, rawURL)

	default:
		return errorVerdict(rawURL, fmt.Sprintf("API error: %d", status))
	}
}

// submitAndPoll submits the URL for analysis and polls the analysis status
// with a fixed delay between attempts. The attempt budget bounds the worst
// case latency; this lookup sits in the critical path of a chat turn.
func (c *VirusTotalClient) submitAndPoll(ctx context.Context, rawURL string) models.ReputationVerdict {
	form := url.Values{"url": {rawURL}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/urls",
		strings.NewReader(form.Encode()))
	if err != nil {
		return errorVerdict(rawURL, err.Error())
	}
	req.Header.Set("x-apikey", c.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return errorVerdict(rawURL, err.Error())
	}
	body, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return errorVerdict(rawURL, readErr.Error())
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn().Int("status", resp.StatusCode).Str("url", rawURL).Msg("submission failed")
		return errorVerdict(rawURL, fmt.Sprintf("API error: %d", resp.StatusCode))
	}

	var submitted vtSubmitResponse
	if err := json.Unmarshal(body, &submitted); err != nil {
		return errorVerdict(rawURL, "failed to parse submission response: "+err.Error())
	}
	if submitted.Data.ID == "" {
		return errorVerdict(rawURL, "submission returned no analysis ID")
	}

	for attempt := 0; attempt < c.pollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			c.logger.Debug().Str("url", rawURL).Msg("lookup cancelled while polling")
			return timeoutVerdict(rawURL)
		case <-time.After(c.pollInterval):
		}

		status, body, err := c.get(ctx, c.baseURL+"/analyses/"+submitted.Data.ID)
		if err != nil {
			if ctx.Err() != nil {
				return timeoutVerdict(rawURL)
			}
			continue
		}
		if status != http.StatusOK {
			continue
		}

		var analysis vtAnalysisResponse
		if err := json.Unmarshal(body, &analysis); err != nil {
			continue
		}
		if analysis.Data.Attributes.Status == "completed" {
			return c.verdictFromStats(rawURL, analysis.Data.Attributes.Stats)
		}

		c.logger.Debug().
			Str("url", rawURL).
			Int("attempt", attempt+1).
			Msg("analysis still queued, waiting")
	}

	c.logger.Warn().Str("url", rawURL).Msg("analysis timed out")
	return timeoutVerdict(rawURL)
}

// verdictFromStats derives a complete verdict from vendor vote counts
func (c *VirusTotalClient) verdictFromStats(rawURL string, stats vtAnalysisStats) models.ReputationVerdict {
	total := stats.total()
	score := 0.0
	if total > 0 {
		score = float64(stats.Malicious+stats.Suspicious) / float64(total)
	}

	return models.ReputationVerdict{
		URL:        rawURL,
		Status:     models.ReputationComplete,
		Malicious:  stats.Malicious,
		Suspicious: stats.Suspicious,
		Total:      total,
		Score:      score,
	}
}

func (c *VirusTotalClient) get(ctx context.Context, endpoint string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("x-apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}

	return resp.StatusCode, body, nil
}

func errorVerdict(rawURL, message string) models.ReputationVerdict {
	return models.ReputationVerdict{
		URL:     rawURL,
		Status:  models.ReputationError,
		Message: message,
	}
}

func timeoutVerdict(rawURL string) models.ReputationVerdict {
	return models.ReputationVerdict{
		URL:     rawURL,
		Status:  models.ReputationTimeout,
		Message: "analysis taking too long",
	}
}
