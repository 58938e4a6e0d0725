package streaming

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"cyberguard/internal/domain/models"
	"cyberguard/internal/domain/services"
	"cyberguard/internal/infrastructure/database"
	"cyberguard/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Browser clients connect from arbitrary origins
		return true
	},
}

// Frame types sent to the client
const (
	FrameThinking = "thinking"
	FrameMessage  = "message"
	FrameError    = "error"
	FramePong     = "pong"
)

// ChatHub serves WebSocket chat connections. Each connection is bound to
// one authenticated user and one chat session.
type ChatHub struct {
	store    *database.Store
	sessions *services.SessionManager
	logger   *logger.Logger

	mu      sync.RWMutex
	clients map[*chatClient]bool
}

type chatClient struct {
	hub       *ChatHub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
	email     string
	logger    *logger.Logger
}

// inboundFrame is a message received from the client
type inboundFrame struct {
	Type        string  `json:"type,omitempty"`
	Message     string  `json:"message,omitempty"`
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// outboundFrame is a message sent to the client
type outboundFrame struct {
	Type           string                `json:"type"`
	Content        string                `json:"content,omitempty"`
	ModelUsed      string                `json:"model_used,omitempty"`
	ThreatAnalysis *models.ThreatVerdict `json:"threat_analysis,omitempty"`
	Message        string                `json:"message,omitempty"`
	SessionID      string                `json:"session_id,omitempty"`
}

// NewChatHub creates a new chat hub
func NewChatHub(store *database.Store, sessions *services.SessionManager, log *logger.Logger) *ChatHub {
	return &ChatHub{
		store:    store,
		sessions: sessions,
		logger:   log.WithComponent("chat-hub"),
		clients:  make(map[*chatClient]bool),
	}
}

// ClientCount returns the number of connected clients
func (h *ChatHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket handles GET /ws/chat. The session token travels as a
// query parameter because browser WebSocket clients cannot set headers.
func (h *ChatHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, `{"error":"missing token"}`, http.StatusUnauthorized)
		return
	}

	sess, err := h.store.VerifySession(r.Context(), token)
	if err != nil {
		http.Error(w, `{"error":"invalid or expired session"}`, http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to upgrade connection")
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	client := &chatClient{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, 256),
		sessionID: sessionID,
		email:     sess.Email,
		logger:    h.logger.WithSessionID(sessionID),
	}

	h.registerClient(client)

	go client.writePump()
	go client.readPump()
}

func (h *ChatHub) registerClient(client *chatClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
	h.logger.Info().Str("email", client.email).Int("clients", len(h.clients)).Msg("client connected")
}

func (h *ChatHub) unregisterClient(client *chatClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		h.logger.Info().Int("clients", len(h.clients)).Msg("client disconnected")
	}
}

// readPump reads frames from the client and runs chat turns
func (c *chatClient) readPump() {
	defer func() {
		c.hub.unregisterClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(64 * 1024)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("websocket read error")
			}
			break
		}

		var frame inboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.enqueue(outboundFrame{Type: FrameError, Message: "invalid message format"})
			continue
		}

		// Application-level keepalive, distinct from protocol pings
		if frame.Type == "ping" {
			c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			c.enqueue(outboundFrame{Type: FramePong})
			continue
		}

		if frame.Message == "" {
			c.enqueue(outboundFrame{Type: FrameError, Message: "message is required"})
			continue
		}

		c.handleChat(frame)
	}
}

// handleChat runs one chat turn and streams the status frames back.
// Turns run sequentially per connection; the read deadline is pushed out
// to cover the model latency.
func (c *chatClient) handleChat(frame inboundFrame) {
	c.enqueue(outboundFrame{Type: FrameThinking, SessionID: c.sessionID})
	c.conn.SetReadDeadline(time.Now().Add(5 * time.Minute))

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	bot := c.hub.sessions.Get(c.sessionID)
	turn, err := bot.Chat(ctx, frame.Message, services.CompletionOptions{
		Model:       frame.Model,
		MaxTokens:   frame.MaxTokens,
		Temperature: frame.Temperature,
	})
	if err != nil {
		c.logger.Error().Err(err).Msg("chat turn failed")
		c.enqueue(outboundFrame{Type: FrameError, Message: "chat completion failed", SessionID: c.sessionID})
		return
	}

	c.enqueue(outboundFrame{
		Type:           FrameMessage,
		Content:        turn.Response,
		ModelUsed:      turn.ModelUsed,
		ThreatAnalysis: turn.Verdict,
		SessionID:      c.sessionID,
	})
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
}

// enqueue marshals and queues a frame for the write pump
func (c *chatClient) enqueue(frame outboundFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		c.logger.Error().Err(err).Msg("failed to marshal frame")
		return
	}
	select {
	case c.send <- data:
	default:
		c.logger.Warn().Msg("send buffer full, dropping frame")
	}
}

// writePump writes queued frames to the client and keeps the connection
// alive with protocol pings
func (c *chatClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
