package handlers

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/maxicoach/backend/internal/auth"
	"github.com/maxicoach/backend/internal/chat"
	"github.com/maxicoach/backend/internal/coach"
	"github.com/maxicoach/backend/internal/speech"
	"github.com/maxicoach/backend/pkg/logger"
)

type Speaker interface {
	Play(ctx context.Context, sessionID, text, theme string) (*speech.Audio, error)
	Stop(sessionID string)
}

type SpeechHandler struct {
	chat    *chat.Service
	speaker Speaker
}

// NewSpeechHandler builds the handler. A nil speaker answers 503, for
// deployments without a speech API key.
func NewSpeechHandler(chatService *chat.Service, speaker Speaker) *SpeechHandler {
	return &SpeechHandler{chat: chatService, speaker: speaker}
}

// Speak synthesizes one transcript message and returns raw 16-bit mono PCM.
func (h *SpeechHandler) Speak(c *fiber.Ctx) error {
	if h.speaker == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "speech is disabled")
	}

	sid := auth.SessionID(c)
	msg, err := h.chat.Message(c.Context(), sid, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}

	audio, err := h.speaker.Play(c.Context(), sid, coach.SpeechText(msg.Payload), c.Query("theme"))
	if err != nil {
		if statusFor(err) == fiber.StatusInternalServerError {
			// Remote synthesis failures are transient for the client.
			logger.Warn("Speech unavailable", zap.String("session_id", sid), zap.Error(err))
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "no se pudo generar el audio, intenta de nuevo",
			})
		}
		return respondError(c, err)
	}

	c.Set(fiber.HeaderContentType, fmt.Sprintf("audio/L16;rate=%d;channels=1", audio.SampleRate))
	c.Set("X-Voice", audio.Voice)
	c.Set("X-Audio-Cached", strconv.FormatBool(audio.Cached))
	return c.Send(audio.PCM)
}

func (h *SpeechHandler) Stop(c *fiber.Ctx) error {
	if h.speaker != nil {
		h.speaker.Stop(auth.SessionID(c))
	}
	return c.SendStatus(fiber.StatusNoContent)
}
