package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/maxicoach/backend/internal/auth"
	"github.com/maxicoach/backend/internal/chat"
	"github.com/maxicoach/backend/internal/coach"
	"github.com/maxicoach/backend/internal/knowledge"
)

type SessionHandler struct {
	chat     *chat.Service
	validate *validator.Validate
}

func NewSessionHandler(chatService *chat.Service, validate *validator.Validate) *SessionHandler {
	return &SessionHandler{chat: chatService, validate: validate}
}

type switchPersonaRequest struct {
	Persona string `json:"persona" validate:"required,oneof=agent lead"`
}

type setContextRequest struct {
	Dictamen    string `json:"dictamen" validate:"required"`
	GestionType string `json:"gestionType" validate:"required"`
	MoraBucket  string `json:"moraBucket" validate:"required"`
}

// selectorOptions are the values the UI offers for the case context.
type selectorOptions struct {
	Dictamen    []string `json:"dictamen"`
	GestionType []string `json:"gestionType"`
	MoraBucket  []string `json:"moraBucket"`
	Performance []string `json:"performance"`
}

var options = selectorOptions{
	Dictamen:    coach.DictamenOptions,
	GestionType: coach.GestionOptions,
	MoraBucket:  coach.MoraOptions,
	Performance: chat.PerformanceLevels,
}

func (h *SessionHandler) Get(c *fiber.Ctx) error {
	sess, err := h.chat.Get(c.Context(), auth.SessionID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"session": sess,
		"options": options,
	})
}

func (h *SessionHandler) SwitchPersona(c *fiber.Ctx) error {
	var req switchPersonaRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}

	sess, err := h.chat.SwitchPersona(c.Context(), auth.SessionID(c), knowledge.Persona(req.Persona))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"session": sess})
}

func (h *SessionHandler) SetContext(c *fiber.Ctx) error {
	var req setContextRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}

	sess, err := h.chat.SetContext(c.Context(), auth.SessionID(c), req.Dictamen, req.GestionType, req.MoraBucket)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"state": sess.State})
}
