package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/maxicoach/backend/internal/auth"
	"github.com/maxicoach/backend/internal/chat"
	"github.com/maxicoach/backend/internal/coach"
	"github.com/maxicoach/backend/internal/speech"
	"github.com/maxicoach/backend/pkg/logger"
)

// statusFor maps service errors onto HTTP status codes. Unknown errors are
// internal.
func statusFor(err error) int {
	switch {
	case errors.Is(err, chat.ErrSessionNotFound),
		errors.Is(err, chat.ErrMessageNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, chat.ErrPersonaNotAllowed),
		errors.Is(err, chat.ErrLeadOnly),
		errors.Is(err, auth.ErrNoAccess):
		return fiber.StatusForbidden
	case errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, coach.ErrInvalidContext),
		errors.Is(err, auth.ErrPasswordMismatch),
		errors.Is(err, auth.ErrPasswordTooShort):
		return fiber.StatusBadRequest
	case errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, auth.ErrInvalidPassword):
		return fiber.StatusUnauthorized
	case errors.Is(err, auth.ErrPasswordChangeRequired),
		errors.Is(err, speech.ErrStopped):
		return fiber.StatusConflict
	case errors.Is(err, speech.ErrNothingToSay):
		return fiber.StatusUnprocessableEntity
	}
	return fiber.StatusInternalServerError
}

func respondError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("path", c.Path()),
			zap.String("method", c.Method()),
			zap.Error(err),
		)
		return c.Status(status).JSON(fiber.Map{"error": "error interno, intenta de nuevo"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

// ErrorHandler renders errors that escape handlers, including fiber's own
// (404 routes, body limit) and bad request bodies from parseBody.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}
	return respondError(c, err)
}

// parseBody decodes and validates a JSON request body.
func parseBody(c *fiber.Ctx, v *validator.Validate, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := v.Struct(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, describe(err))
	}
	return nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return "Invalid request: " + strings.Join(parts, ", ")
}

// NewValidator reports field errors under their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
