package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"cyberguard/internal/domain/models"
	"cyberguard/pkg/logger"
)

const systemPrompt = `You are CyberGuard AI, a specialized cybersecurity assistant. Your purpose is to:
1. Detect potential cybersecurity threats in user inputs
2. Educate users about scams, phishing, malware, and best security practices
3. Provide accurate, actionable advice for cybersecurity incidents
4. Be vigilant about potential security risks in user scenarios

Always prioritize user security and privacy in your responses. Be detailed and factual when providing cybersecurity information. If there's a potential security threat, clearly explain why it's concerning and what steps the user should take.`

// maxHistoryExchanges bounds the conversation history carried into each
// completion (one exchange = user message + assistant reply)
const maxHistoryExchanges = 5

// Chatbot handles one chat session: it screens each user message for
// threats, folds the resulting security advice into the model prompt, and
// keeps a bounded conversation history.
type Chatbot struct {
	sessionID string
	llm       *OpenRouterClient
	evaluator *ThreatEvaluator
	logger    *logger.Logger

	mu      sync.Mutex
	history []models.ChatMessage
}

// NewChatbot creates a chatbot for one session
func NewChatbot(sessionID string, llm *OpenRouterClient, evaluator *ThreatEvaluator, log *logger.Logger) *Chatbot {
	return &Chatbot{
		sessionID: sessionID,
		llm:       llm,
		evaluator: evaluator,
		logger:    log.WithComponent("chatbot").WithSessionID(sessionID),
	}
}

// Chat processes a user message: analyze it for threats, generate a model
// response that addresses any findings, and return both. The threat analysis
// never fails; an LLM failure returns an error without touching history.
func (b *Chatbot) Chat(ctx context.Context, userInput string, opts CompletionOptions) (*models.ChatTurn, error) {
	verdict := b.evaluator.Analyze(ctx, userInput)

	var advice []string
	if verdict.RiskLevel != models.RiskLevelNone {
		advice = SecurityRecommendations(verdict)
		b.logger.Info().
			Str("risk_level", string(verdict.RiskLevel)).
			Int("risk_score", verdict.RiskScore).
			Strs("categories", verdict.ThreatCategories).
			Msg("threats detected in user message")
	}

	messages := b.buildMessages(userInput, advice)

	content, err := b.llm.Complete(ctx, messages, opts)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	b.mu.Lock()
	b.history = append(b.history,
		models.ChatMessage{Role: models.RoleUser, Content: userInput},
		models.ChatMessage{Role: models.RoleAssistant, Content: content},
	)
	if len(b.history) > maxHistoryExchanges*2 {
		b.history = b.history[len(b.history)-maxHistoryExchanges*2:]
	}
	b.mu.Unlock()

	modelUsed := opts.Model
	if modelUsed == "" {
		modelUsed = b.llm.Model()
	}

	return &models.ChatTurn{
		SessionID: b.sessionID,
		Response:  content,
		ModelUsed: "openrouter:" + modelUsed,
		Verdict:   verdict,
		Timestamp: time.Now(),
	}, nil
}

// Analyze runs the threat analysis without generating a model response
func (b *Chatbot) Analyze(ctx context.Context, message string) *models.ThreatVerdict {
	return b.evaluator.Analyze(ctx, message)
}

// ClearHistory clears the conversation history
func (b *Chatbot) ClearHistory() {
	b.mu.Lock()
	b.history = nil
	b.mu.Unlock()
	b.logger.Info().Msg("conversation history cleared")
}

// buildMessages assembles the completion messages: system prompt (with any
// security alert folded in), recent history, then the current user message
func (b *Chatbot) buildMessages(userInput string, advice []string) []models.ChatMessage {
	prompt := systemPrompt
	if len(advice) > 0 {
		prompt += "\n\nIMPORTANT SECURITY ALERT: The user's message contains potential security threats:\n" +
			strings.Join(advice, "\n") +
			"\n\nMake sure to address these concerns in your response."
	}

	b.mu.Lock()
	history := make([]models.ChatMessage, len(b.history))
	copy(history, b.history)
	b.mu.Unlock()

	messages := make([]models.ChatMessage, 0, len(history)+2)
	messages = append(messages, models.ChatMessage{Role: models.RoleSystem, Content: prompt})
	messages = append(messages, history...)
	messages = append(messages, models.ChatMessage{Role: models.RoleUser, Content: userInput})

	return messages
}

// SessionManager hands out per-session chatbot instances
type SessionManager struct {
	llm       *OpenRouterClient
	evaluator *ThreatEvaluator
	logger    *logger.Logger

	mu       sync.RWMutex
	sessions map[string]*Chatbot
}

// NewSessionManager creates a new session manager
func NewSessionManager(llm *OpenRouterClient, evaluator *ThreatEvaluator, log *logger.Logger) *SessionManager {
	return &SessionManager{
		llm:       llm,
		evaluator: evaluator,
		logger:    log.WithComponent("session-manager"),
		sessions:  make(map[string]*Chatbot),
	}
}

// Get returns the chatbot for a session, creating it on first use
func (m *SessionManager) Get(sessionID string) *Chatbot {
	m.mu.RLock()
	bot, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if ok {
		return bot
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if bot, ok := m.sessions[sessionID]; ok {
		return bot
	}

	bot = NewChatbot(sessionID, m.llm, m.evaluator, m.logger)
	m.sessions[sessionID] = bot
	m.logger.Info().Str("session_id", sessionID).Int("sessions", len(m.sessions)).Msg("chat session created")
	return bot
}

// Evaluator returns the shared threat evaluator
func (m *SessionManager) Evaluator() *ThreatEvaluator {
	return m.evaluator
}

// Clear drops a session and its history. Returns false if unknown.
func (m *SessionManager) Clear(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	bot, ok := m.sessions[sessionID]
	if !ok {
		return false
	}
	bot.ClearHistory()
	delete(m.sessions, sessionID)
	return true
}

// Count returns the number of live sessions
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
