package handlers

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxicoach/backend/internal/auth"
	"github.com/maxicoach/backend/internal/chat"
	"github.com/maxicoach/backend/internal/chat/store"
	"github.com/maxicoach/backend/internal/coach"
	"github.com/maxicoach/backend/internal/knowledge"
	"github.com/maxicoach/backend/internal/speech"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{chat.ErrSessionNotFound, fiber.StatusNotFound},
		{fmt.Errorf("wrapped: %w", chat.ErrMessageNotFound), fiber.StatusNotFound},
		{fmt.Errorf("%w: lead", chat.ErrPersonaNotAllowed), fiber.StatusForbidden},
		{chat.ErrLeadOnly, fiber.StatusForbidden},
		{fmt.Errorf("%w: mora", coach.ErrInvalidContext), fiber.StatusBadRequest},
		{auth.ErrInvalidPassword, fiber.StatusUnauthorized},
		{auth.ErrPasswordChangeRequired, fiber.StatusConflict},
		{speech.ErrNothingToSay, fiber.StatusUnprocessableEntity},
		{errors.New("disk full"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

type recorder struct {
	frames []wsOutbound
}

func (r *recorder) WriteJSON(v interface{}) error {
	r.frames = append(r.frames, v.(wsOutbound))
	return nil
}

func (r *recorder) types() []string {
	out := make([]string, 0, len(r.frames))
	for _, f := range r.frames {
		out = append(out, f.Type)
	}
	return out
}

func newWSFixture(t *testing.T, delay time.Duration) (*WebSocketHandler, string) {
	t.Helper()
	lib, err := knowledge.LoadDefault()
	require.NoError(t, err)
	svc := chat.NewService(lib, store.NewMemoryStore(time.Hour), nil, nil)
	sess, err := svc.Start(context.Background(), "ana", chat.Access{Agent: true})
	require.NoError(t, err)
	return NewWebSocketHandler(svc, delay, 100), sess.ID
}

func TestWebSocket_MessageGetsTypingThenReply(t *testing.T) {
	h, sid := newWSFixture(t, 0)
	rec := &recorder{}

	err := h.handle(context.Background(), rec, sid, wsInbound{Type: wsMessage, Text: "¿Cómo confirmo una promesa de pago?"})
	require.NoError(t, err)
	assert.Equal(t, []string{wsTyping, wsReply}, rec.types())
	require.NotNil(t, rec.frames[1].Turn)
	assert.Equal(t, coach.OutcomeMatch, rec.frames[1].Turn.Outcome)
}

func TestWebSocket_EmptyIsIgnored(t *testing.T) {
	h, sid := newWSFixture(t, 0)
	rec := &recorder{}

	require.NoError(t, h.handle(context.Background(), rec, sid, wsInbound{Type: wsMessage, Text: "  \t "}))
	assert.Empty(t, rec.frames)
}

func TestWebSocket_ErrorsAreFrames(t *testing.T) {
	h, sid := newWSFixture(t, 0)
	rec := &recorder{}
	ctx := context.Background()

	require.NoError(t, h.handle(ctx, rec, sid, wsInbound{Type: "subscribe"}))
	require.NoError(t, h.handle(ctx, rec, sid, wsInbound{Type: wsMessage, Text: "<script>x</script>"}))
	require.NoError(t, h.handle(ctx, rec, "gone", wsInbound{Type: wsMessage, Text: "hola"}))
	require.NoError(t, h.handle(ctx, rec, sid, wsInbound{Type: wsPing}))

	assert.Equal(t, []string{wsError, wsError, wsTyping, wsError, wsPong}, rec.types())
	assert.Equal(t, chat.ErrSessionNotFound.Error(), rec.frames[3].Error)
}

func TestWebSocket_DelayHonoursCancellation(t *testing.T) {
	h, sid := newWSFixture(t, time.Hour)
	rec := &recorder{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.handle(ctx, rec, sid, wsInbound{Type: wsMessage, Text: "hola"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{wsTyping}, rec.types())
}
