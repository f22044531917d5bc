package validation

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// LocalText holds the sanitized chat text for the next handler.
const LocalText = "sanitized_text"

var (
	ErrTooLong       = errors.New("message exceeds maximum length")
	ErrUnsafeContent = errors.New("message contains disallowed content")
	ErrInvalidUTF8   = errors.New("message is not valid UTF-8")
)

var xssPattern = regexp.MustCompile(`(?i)(<script|<iframe|<object|<embed|javascript:|vbscript:|data:text/html|on[a-z]+\s*=)`)

type Config struct {
	MaxMessageLength int
	Logger           *zap.Logger
}

// CheckText validates one chat message and returns it sanitized. Empty text
// is passed through; the chat service treats it as a no-op.
func CheckText(text string, maxLen int) (string, error) {
	if !utf8.ValidString(text) {
		return "", ErrInvalidUTF8
	}
	if maxLen > 0 && utf8.RuneCountInString(text) > maxLen {
		return "", ErrTooLong
	}
	if xssPattern.MatchString(text) {
		return "", ErrUnsafeContent
	}
	return sanitizeString(text), nil
}

// Middleware validates JSON bodies that carry a chat "text" field.
func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxMessageLength == 0 {
		cfg.MaxMessageLength = 2000
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
				"error": "Unsupported content type",
			})
		}

		var req struct {
			Text *string `json:"text"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid JSON format",
			})
		}
		if req.Text == nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "text is required and must be a string",
			})
		}

		text, err := CheckText(*req.Text, cfg.MaxMessageLength)
		if err != nil {
			cfg.Logger.Warn("Rejected chat message",
				zap.String("ip", c.IP()),
				zap.String("path", c.Path()),
				zap.Int("length", len(*req.Text)),
				zap.Error(err),
			)
			status := fiber.StatusBadRequest
			if errors.Is(err, ErrTooLong) {
				status = fiber.StatusRequestEntityTooLarge
			}
			return c.Status(status).JSON(fiber.Map{"error": err.Error()})
		}

		c.Locals(LocalText, text)
		return c.Next()
	}
}

// Text returns the sanitized message stored by Middleware.
func Text(c *fiber.Ctx) (string, bool) {
	s, ok := c.Locals(LocalText).(string)
	return s, ok
}

// sanitizeString drops control characters other than newline and tab.
func sanitizeString(input string) string {
	input = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, input)
	return strings.TrimSpace(input)
}
