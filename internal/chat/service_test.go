package chat_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxicoach/backend/internal/chat"
	"github.com/maxicoach/backend/internal/chat/store"
	"github.com/maxicoach/backend/internal/coach"
	"github.com/maxicoach/backend/internal/knowledge"
	"github.com/maxicoach/backend/internal/metrics"
	"github.com/maxicoach/backend/internal/storage/models"
)

type fakeHistory struct {
	mu    sync.Mutex
	turns []models.ConversationTurn
	err   error
}

func (f *fakeHistory) InsertTurn(ctx context.Context, t *models.ConversationTurn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.turns = append(f.turns, *t)
	return nil
}

func (f *fakeHistory) GetTurnHistory(ctx context.Context, username string, limit int) ([]models.ConversationTurn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ConversationTurn(nil), f.turns...), nil
}

type fakeStopper struct {
	mu      sync.Mutex
	stopped []string
}

func (f *fakeStopper) Stop(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = append(f.stopped, id)
}

type fixture struct {
	svc     *chat.Service
	lib     *knowledge.Library
	history *fakeHistory
	speech  *fakeStopper
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	lib, err := knowledge.LoadDefault()
	require.NoError(t, err)
	f := &fixture{lib: lib, history: &fakeHistory{}, speech: &fakeStopper{}}
	f.svc = chat.NewService(lib, store.NewMemoryStore(time.Hour), f.history, f.speech)
	return f
}

var both = chat.Access{Agent: true, Lead: true}

func TestStart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.svc.Start(ctx, "ana", both)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, coach.NewState(knowledge.PersonaAgent), sess.State)
	require.Len(t, sess.Transcript, 1)
	assert.Equal(t, coach.DirectPayload{Text: f.lib.Agent.Initial}, sess.Transcript[0].Payload)

	leadOnly, err := f.svc.Start(ctx, "luis", chat.Access{Lead: true})
	require.NoError(t, err)
	assert.Equal(t, knowledge.PersonaLead, leadOnly.State.Persona)

	_, err = f.svc.Start(ctx, "nadie", chat.Access{})
	assert.ErrorIs(t, err, chat.ErrPersonaNotAllowed)
}

func TestSend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Start(ctx, "ana", both)
	require.NoError(t, err)

	turn, err := f.svc.Send(ctx, sess.ID, "  ¿Cómo confirmo una promesa de pago?  ")
	require.NoError(t, err)
	assert.Equal(t, coach.OutcomeMatch, turn.Outcome)
	assert.Equal(t, coach.TextPayload{Text: "¿Cómo confirmo una promesa de pago?"}, turn.UserMessage.Payload)
	require.Len(t, turn.Replies, 1)
	assert.Equal(t, coach.SenderAssistant, turn.Replies[0].Sender)

	stored, err := f.svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Transcript, 3)

	require.Len(t, f.history.turns, 1)
	rec := f.history.turns[0]
	assert.Equal(t, "ana", rec.Username)
	assert.Equal(t, "match", rec.Outcome)
	assert.NotEmpty(t, rec.Response)
}

func TestSend_EmptyIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Start(ctx, "ana", both)
	require.NoError(t, err)

	_, err = f.svc.Send(ctx, sess.ID, "   ")
	assert.ErrorIs(t, err, chat.ErrEmptyMessage)

	stored, err := f.svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Transcript, 1)
	assert.Empty(t, f.history.turns)
	assert.Empty(t, f.speech.stopped)
}

func TestSend_StopsPlayback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Start(ctx, "ana", both)
	require.NoError(t, err)

	_, err = f.svc.Send(ctx, sess.ID, "hola")
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, sess.ID, "otra pregunta")
	require.NoError(t, err)

	assert.Equal(t, []string{sess.ID, sess.ID}, f.speech.stopped)
}

func TestSend_UnknownSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Send(context.Background(), "missing", "hola")
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)
}

func TestSend_HistoryFailureDoesNotFailTurn(t *testing.T) {
	f := newFixture(t)
	f.history.err = errors.New("disk full")
	ctx := context.Background()
	sess, err := f.svc.Start(ctx, "ana", both)
	require.NoError(t, err)

	turn, err := f.svc.Send(ctx, sess.ID, "hola")
	require.NoError(t, err)
	assert.Equal(t, coach.OutcomeFallback, turn.Outcome)
}

func TestSend_SurveyRepromptAppendsTwoReplies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Start(ctx, "ana", both)
	require.NoError(t, err)

	turn, err := f.svc.Send(ctx, sess.ID, "el cliente chocó")
	require.NoError(t, err)
	require.Equal(t, coach.OutcomeSurvey, turn.Outcome)

	turn, err = f.svc.Send(ctx, sess.ID, "mmm")
	require.NoError(t, err)
	require.Len(t, turn.Replies, 2)
	assert.Equal(t, coach.KindFallback, turn.Replies[0].Payload.Kind())
	assert.Equal(t, coach.KindSurvey, turn.Replies[1].Payload.Kind())
	assert.NotEmpty(t, turn.State.LastFaqTopic)

	turn, err = f.svc.Send(ctx, sess.ID, "sí")
	require.NoError(t, err)
	assert.Equal(t, coach.OutcomeSurveyResolved, turn.Outcome)
	assert.Empty(t, turn.State.LastFaqTopic)
}

func TestSwitchPersona_ResetsEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Start(ctx, "ana", both)
	require.NoError(t, err)

	_, err = f.svc.SetContext(ctx, sess.ID, "Siniestro", "Campo", coach.MoraHigh)
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, sess.ID, "hola")
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, sess.ID, "el cliente chocó")
	require.NoError(t, err)

	switched, err := f.svc.SwitchPersona(ctx, sess.ID, knowledge.PersonaLead)
	require.NoError(t, err)
	assert.Equal(t, coach.NewState(knowledge.PersonaLead), switched.State)
	require.Len(t, switched.Transcript, 1)
	assert.Equal(t, coach.DirectPayload{Text: f.lib.Lead.Initial}, switched.Transcript[0].Payload)
	assert.Contains(t, f.speech.stopped, sess.ID)
}

func TestSwitchPersona_NotAllowed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Start(ctx, "ana", chat.Access{Agent: true})
	require.NoError(t, err)

	_, err = f.svc.SwitchPersona(ctx, sess.ID, knowledge.PersonaLead)
	assert.ErrorIs(t, err, chat.ErrPersonaNotAllowed)
	_, err = f.svc.SwitchPersona(ctx, sess.ID, knowledge.Persona("boss"))
	assert.ErrorIs(t, err, chat.ErrPersonaNotAllowed)
}

func TestSetContext_KeepsPendingSurvey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Start(ctx, "ana", both)
	require.NoError(t, err)

	turn, err := f.svc.Send(ctx, sess.ID, "el cliente chocó")
	require.NoError(t, err)
	pending := turn.State.LastFaqTopic

	updated, err := f.svc.SetContext(ctx, sess.ID, "Siniestro", "Campo", coach.MoraMedium)
	require.NoError(t, err)
	assert.Equal(t, pending, updated.State.LastFaqTopic)
	assert.Len(t, updated.Transcript, 3)

	_, err = f.svc.SetContext(ctx, sess.ID, "Siniestro", "Campo", "90+")
	assert.ErrorIs(t, err, coach.ErrInvalidContext)
}

func TestFAQs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Start(ctx, "ana", both)
	require.NoError(t, err)

	faqs, err := f.svc.FAQs(ctx, sess.ID, "")
	require.NoError(t, err)
	assert.Contains(t, faqs, "¿Cómo confirmo una promesa de pago?")
	assert.NotContains(t, faqs, "¿Qué hago si el titular falleció?")
	for _, q := range faqs {
		assert.False(t, knowledge.IsCompoundKey(q))
	}

	_, err = f.svc.SetContext(ctx, sess.ID, coach.DictamenAll, "Telefónica", coach.MoraLow)
	require.NoError(t, err)
	all, err := f.svc.FAQs(ctx, sess.ID, "")
	require.NoError(t, err)
	assert.Equal(t, f.lib.Agent.Questions(), all)

	_, err = f.svc.SwitchPersona(ctx, sess.ID, knowledge.PersonaLead)
	require.NoError(t, err)
	found, err := f.svc.FAQs(ctx, sess.ID, "FEEDBACK")
	require.NoError(t, err)
	assert.Equal(t, []string{"¿Cómo doy feedback efectivo?"}, found)
}

func TestPillarsAndGuide(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Start(ctx, "ana", both)
	require.NoError(t, err)

	_, err = f.svc.Pillars(ctx, sess.ID)
	assert.ErrorIs(t, err, chat.ErrLeadOnly)

	guide, err := f.svc.Guide(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, f.lib.Agent.Guide, guide.Body)

	_, err = f.svc.SwitchPersona(ctx, sess.ID, knowledge.PersonaLead)
	require.NoError(t, err)
	pillars, err := f.svc.Pillars(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, pillars, 6)
	assert.Equal(t, "¿Cómo hago coaching a un gestor con bajo desempeño?", pillars[0].Title)
}

func TestGeneratePlan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Start(ctx, "luis", chat.Access{Lead: true})
	require.NoError(t, err)

	req := chat.PlanRequest{
		GestorName:  "Pedro",
		Assigned:    120,
		Managed:     80,
		Priority:    15,
		Unmanaged:   40,
		Performance: "En Desarrollo",
	}
	assert.Equal(t,
		"Genera un plan de acción para el gestor Pedro con el siguiente perfil: Créditos Asignados: 120, Créditos Gestionados: 80, Créditos Prioridad: 15, Créditos sin Gestión: 40, Desempeño: En Desarrollo.",
		req.Prompt())

	turn, err := f.svc.GeneratePlan(ctx, sess.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "¿Cómo armo un plan de acción para un gestor?", turn.Question)

	agent, err := f.svc.Start(ctx, "ana", chat.Access{Agent: true})
	require.NoError(t, err)
	_, err = f.svc.GeneratePlan(ctx, agent.ID, req)
	assert.ErrorIs(t, err, chat.ErrLeadOnly)
}

func TestEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Start(ctx, "ana", both)
	require.NoError(t, err)

	ended := metrics.SessionEvents.WithLabelValues("ended")
	before := testutil.ToFloat64(ended)

	require.NoError(t, f.svc.End(ctx, sess.ID))
	_, err = f.svc.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)
	assert.Contains(t, f.speech.stopped, sess.ID)

	assert.NoError(t, f.svc.End(ctx, sess.ID))
	assert.Equal(t, before+1, testutil.ToFloat64(ended))
}

func TestSend_ConcurrentCallsAreSerialized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Start(ctx, "ana", chat.Access{Agent: true})
	require.NoError(t, err)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Send(ctx, sess.ID, "hola")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stored, err := f.svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Transcript, 1+2*n)
	assert.Equal(t, n%len(f.lib.Agent.Fallback.OffTopic), stored.State.FallbackCursor)
}

func TestHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Start(ctx, "ana", both)
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, sess.ID, "hola")
	require.NoError(t, err)

	turns, err := f.svc.History(ctx, sess.ID, 10)
	require.NoError(t, err)
	assert.Len(t, turns, 1)
}

func TestMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess, err := f.svc.Start(ctx, "ana", both)
	require.NoError(t, err)
	greeting := sess.Transcript[0]

	got, err := f.svc.Message(ctx, sess.ID, greeting.ID)
	require.NoError(t, err)
	assert.Equal(t, greeting.Payload, got.Payload)

	_, err = f.svc.Message(ctx, sess.ID, "missing")
	assert.ErrorIs(t, err, chat.ErrMessageNotFound)

	_, err = f.svc.Message(ctx, "nope", greeting.ID)
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)
}
