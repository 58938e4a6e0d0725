package models

import "time"

// ChatMessage is a single message in an LLM conversation
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatTurn is the result of one chat exchange, including the threat
// annotation derived from the user's message
type ChatTurn struct {
	SessionID string         `json:"session_id"`
	Response  string         `json:"response"`
	ModelUsed string         `json:"model_used"`
	Verdict   *ThreatVerdict `json:"threat_analysis,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
