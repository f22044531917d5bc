package handlers

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/maxicoach/backend/internal/auth"
	"github.com/maxicoach/backend/internal/chat"
	"github.com/maxicoach/backend/internal/knowledge"
	"github.com/maxicoach/backend/internal/metrics"
	"github.com/maxicoach/backend/pkg/logger"
)

type AuthHandler struct {
	auth     *auth.Service
	chat     *chat.Service
	tokens   *auth.TokenIssuer
	validate *validator.Validate
}

func NewAuthHandler(authService *auth.Service, chatService *chat.Service, tokens *auth.TokenIssuer, validate *validator.Validate) *AuthHandler {
	return &AuthHandler{
		auth:     authService,
		chat:     chatService,
		tokens:   tokens,
		validate: validate,
	}
}

type loginRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,max=200"`
}

type changePasswordRequest struct {
	Username        string `json:"username" validate:"required,max=100"`
	CurrentPassword string `json:"currentPassword" validate:"required,max=200"`
	NewPassword     string `json:"newPassword" validate:"required,max=200"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,max=200"`
}

type loginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	User      auth.User     `json:"user"`
	Session   *chat.Session `json:"session"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}

	user, err := h.auth.Login(c.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordChangeRequired) {
			metrics.LoginsTotal.WithLabelValues("password_change").Inc()
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error":                  err.Error(),
				"passwordChangeRequired": true,
			})
		}
		metrics.LoginsTotal.WithLabelValues("rejected").Inc()
		return respondError(c, err)
	}

	metrics.LoginsTotal.WithLabelValues("ok").Inc()
	return h.openSession(c, user)
}

func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var req changePasswordRequest
	if err := parseBody(c, h.validate, &req); err != nil {
		return err
	}

	user, err := h.auth.ChangePassword(c.Context(), req.Username, req.CurrentPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		return respondError(c, err)
	}
	return h.openSession(c, user)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.chat.End(c.Context(), auth.SessionID(c)); err != nil {
		return respondError(c, err)
	}
	logger.Info("User logged out", zap.String("username", auth.Username(c)))
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AuthHandler) openSession(c *fiber.Ctx, user *auth.User) error {
	access := chat.Access{
		Agent: user.CanUse(knowledge.PersonaAgent),
		Lead:  user.CanUse(knowledge.PersonaLead),
	}
	sess, err := h.chat.Start(c.Context(), user.Username, access)
	if err != nil {
		return respondError(c, err)
	}

	token, expiresAt, err := h.tokens.Issue(user.Username, sess.ID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(loginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      *user,
		Session:   sess,
	})
}
