package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/maxicoach/backend/internal/auth"
	"github.com/maxicoach/backend/internal/chat"
	"github.com/maxicoach/backend/internal/middleware/validation"
	"github.com/maxicoach/backend/pkg/logger"
)

const (
	wsMessage = "message"
	wsPing    = "ping"
	wsPong    = "pong"
	wsTyping  = "typing"
	wsReply   = "reply"
	wsError   = "error"
)

type wsInbound struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type wsOutbound struct {
	Type  string     `json:"type"`
	Turn  *chat.Turn `json:"turn,omitempty"`
	Error string     `json:"error,omitempty"`
}

type jsonWriter interface {
	WriteJSON(v interface{}) error
}

type WebSocketHandler struct {
	chat          *chat.Service
	thinkingDelay time.Duration
	maxLen        int
}

// NewWebSocketHandler builds the live chat handler. thinkingDelay is the
// pause between the typing indicator and the reply.
func NewWebSocketHandler(chatService *chat.Service, thinkingDelay time.Duration, maxLen int) *WebSocketHandler {
	return &WebSocketHandler{
		chat:          chatService,
		thinkingDelay: thinkingDelay,
		maxLen:        maxLen,
	}
}

// UpgradeRequired rejects plain HTTP requests on the socket route.
func UpgradeRequired(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	sid, _ := c.Locals(auth.LocalSessionID).(string)
	logger.Info("WebSocket connection established", zap.String("session_id", sid))

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		c.Close()
		logger.Info("WebSocket connection closed", zap.String("session_id", sid))
	}()

	// The reader owns the read side; a read error ends the connection and
	// cancels any reply still waiting out the thinking delay.
	incoming := make(chan wsInbound)
	go func() {
		defer cancel()
		for {
			var msg wsInbound
			if err := c.ReadJSON(&msg); err != nil {
				logger.Debug("WebSocket read ended", zap.String("session_id", sid), zap.Error(err))
				return
			}
			select {
			case incoming <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-incoming:
			if err := h.handle(ctx, c, sid, msg); err != nil {
				if !errors.Is(err, context.Canceled) {
					logger.Error("Failed to answer WebSocket message", zap.String("session_id", sid), zap.Error(err))
				}
				return
			}
		}
	}
}

// handle answers one inbound frame. A returned error ends the connection;
// per-message problems are reported to the client as error frames.
func (h *WebSocketHandler) handle(ctx context.Context, w jsonWriter, sid string, msg wsInbound) error {
	switch msg.Type {
	case wsPing:
		return w.WriteJSON(wsOutbound{Type: wsPong})
	case wsMessage:
	default:
		return w.WriteJSON(wsOutbound{Type: wsError, Error: "unknown message type"})
	}

	text, err := validation.CheckText(msg.Text, h.maxLen)
	if err != nil {
		return w.WriteJSON(wsOutbound{Type: wsError, Error: err.Error()})
	}
	if text == "" {
		return nil
	}

	if err := w.WriteJSON(wsOutbound{Type: wsTyping}); err != nil {
		return err
	}

	if h.thinkingDelay > 0 {
		timer := time.NewTimer(h.thinkingDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	turn, err := h.chat.Send(ctx, sid, text)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		return nil
	case err != nil:
		reason := err.Error()
		if statusFor(err) == fiber.StatusInternalServerError {
			logger.Error("Chat turn failed", zap.String("session_id", sid), zap.Error(err))
			reason = "error interno, intenta de nuevo"
		}
		return w.WriteJSON(wsOutbound{Type: wsError, Error: reason})
	}

	return w.WriteJSON(wsOutbound{Type: wsReply, Turn: turn})
}
