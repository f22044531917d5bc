// Package api wires the HTTP and WebSocket surface onto a fiber app.
package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/maxicoach/backend/internal/api/handlers"
	"github.com/maxicoach/backend/internal/metrics"
)

type Handlers struct {
	Auth      *handlers.AuthHandler
	Session   *handlers.SessionHandler
	Chat      *handlers.ChatHandler
	Speech    *handlers.SpeechHandler
	WebSocket *handlers.WebSocketHandler
	Health    *handlers.HealthHandler
}

type Middleware struct {
	// Auth verifies the session token.
	Auth fiber.Handler
	// RateLimit runs after Auth so callers are keyed by username.
	RateLimit fiber.Handler
	// Validation checks chat text bodies.
	Validation fiber.Handler
}

// Register mounts every route under /api/v1. Middleware is attached per
// route: group middleware would also cover /health and /auth/login.
func Register(app *fiber.App, h Handlers, mw Middleware) {
	api := app.Group("/api/v1")

	api.Get("/health", h.Health.Health)
	api.Get("/ready", h.Health.Ready)
	api.Get("/metrics", metrics.MetricsHandler())

	api.Post("/auth/login", mw.RateLimit, h.Auth.Login)
	api.Post("/auth/password", mw.RateLimit, h.Auth.ChangePassword)
	api.Post("/auth/logout", mw.Auth, h.Auth.Logout)

	api.Get("/session", mw.Auth, h.Session.Get)
	api.Put("/session/persona", mw.Auth, mw.RateLimit, h.Session.SwitchPersona)
	api.Put("/session/context", mw.Auth, mw.RateLimit, h.Session.SetContext)

	api.Post("/chat/messages", mw.Auth, mw.RateLimit, mw.Validation, h.Chat.SendMessage)
	api.Get("/chat/history", mw.Auth, h.Chat.History)

	api.Get("/faqs", mw.Auth, h.Chat.FAQs)
	api.Get("/guide", mw.Auth, h.Chat.Guide)
	api.Get("/pillars", mw.Auth, h.Chat.Pillars)
	api.Post("/plans", mw.Auth, mw.RateLimit, h.Chat.GeneratePlan)

	api.Post("/speech/messages/:id", mw.Auth, mw.RateLimit, h.Speech.Speak)
	api.Delete("/speech", mw.Auth, h.Speech.Stop)

	api.Get("/ws", handlers.UpgradeRequired, mw.Auth, websocket.New(h.WebSocket.HandleConnection))
}
