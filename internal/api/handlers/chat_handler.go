package handlers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/maxicoach/backend/internal/auth"
	"github.com/maxicoach/backend/internal/chat"
	"github.com/maxicoach/backend/internal/middleware/validation"
)

type ChatHandler struct {
	chat         *chat.Service
	validate     *validator.Validate
	historyLimit int
}

func NewChatHandler(chatService *chat.Service, validate *validator.Validate, historyLimit int) *ChatHandler {
	if historyLimit <= 0 {
		historyLimit = 50
	}
	return &ChatHandler{
		chat:         chatService,
		validate:     validate,
		historyLimit: historyLimit,
	}
}

// SendMessage expects the validation middleware in front of it.
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	text, ok := validation.Text(c)
	if !ok {
		return fiber.NewError(fiber.StatusBadRequest, "text is required")
	}

	turn, err := h.chat.Send(c.Context(), auth.SessionID(c), text)
	if errors.Is(err, chat.ErrEmptyMessage) {
		return c.SendStatus(fiber.StatusNoContent)
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(turn)
}

func (h *ChatHandler) History(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", h.historyLimit)
	if limit <= 0 || limit > h.historyLimit {
		limit = h.historyLimit
	}

	turns, err := h.chat.History(c.Context(), auth.SessionID(c), limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"history": turns})
}

func (h *ChatHandler) FAQs(c *fiber.Ctx) error {
	faqs, err := h.chat.FAQs(c.Context(), auth.SessionID(c), c.Query("search"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"faqs": faqs})
}

func (h *ChatHandler) Guide(c *fiber.Ctx) error {
	guide, err := h.chat.Guide(c.Context(), auth.SessionID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(guide)
}

func (h *ChatHandler) Pillars(c *fiber.Ctx) error {
	pillars, err := h.chat.Pillars(c.Context(), auth.SessionID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"pillars": pillars})
}

func (h *ChatHandler) GeneratePlan(c *fiber.Ctx) error {
	var req chat.PlanRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}

	turn, err := h.chat.GeneratePlan(c.Context(), auth.SessionID(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(turn)
}
