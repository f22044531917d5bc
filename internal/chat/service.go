package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/maxicoach/backend/internal/coach"
	"github.com/maxicoach/backend/internal/knowledge"
	"github.com/maxicoach/backend/internal/metrics"
	"github.com/maxicoach/backend/internal/storage/models"
	"github.com/maxicoach/backend/pkg/logger"
)

type Service struct {
	library *knowledge.Library
	store   Store
	history HistoryStore
	speech  SpeechStopper
	locks   *keyedMutex
	now     func() time.Time
}

// NewService wires the chat flow. history and speech may be nil.
func NewService(library *knowledge.Library, store Store, history HistoryStore, speech SpeechStopper) *Service {
	return &Service{
		library: library,
		store:   store,
		history: history,
		speech:  speech,
		locks:   newKeyedMutex(),
		now:     time.Now,
	}
}

// Start opens a fresh session seeded with the default persona's greeting.
func (s *Service) Start(ctx context.Context, username string, access Access) (*Session, error) {
	if !access.Agent && !access.Lead {
		return nil, ErrPersonaNotAllowed
	}

	now := s.now()
	sess := &Session{
		ID:        uuid.New().String(),
		Username:  username,
		Access:    access,
		CreatedAt: now,
	}
	s.reset(sess, access.DefaultPersona())

	if err := s.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	metrics.SessionEvents.WithLabelValues("started").Inc()
	logger.Info("Chat session started",
		zap.String("session_id", sess.ID),
		zap.String("username", username),
		zap.String("persona", string(sess.State.Persona)),
	)
	return sess, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Session, error) {
	return s.store.Get(ctx, id)
}

// Send answers one user message.
func (s *Service) Send(ctx context.Context, id, text string) (*Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	// A new turn silences whatever the previous reply was reading out.
	if s.speech != nil {
		s.speech.Stop(id)
	}

	start := time.Now()
	now := s.now()
	kb := s.library.For(sess.State.Persona)

	userMsg := coach.NewMessage(coach.SenderUser, coach.TextPayload{Text: text}, now)
	reply, next := coach.Respond(text, sess.State, kb)

	replies := make([]coach.Message, 0, len(reply.Payloads))
	for _, p := range reply.Payloads {
		replies = append(replies, coach.NewMessage(coach.SenderAssistant, p, now))
	}

	sess.Transcript = append(sess.Transcript, userMsg)
	sess.Transcript = append(sess.Transcript, replies...)
	sess.State = next
	sess.UpdatedAt = now

	if err := s.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	elapsed := time.Since(start)
	persona := string(next.Persona)
	metrics.TurnDuration.WithLabelValues(persona).Observe(elapsed.Seconds())
	metrics.TurnsTotal.WithLabelValues(persona, string(reply.Outcome)).Inc()
	if reply.Score > 0 {
		metrics.MatchScore.WithLabelValues(persona).Observe(reply.Score)
	}

	logger.Info("Message answered",
		zap.String("session_id", id),
		zap.String("persona", persona),
		zap.String("outcome", string(reply.Outcome)),
		zap.String("matched_question", reply.Question),
		zap.Float64("score", reply.Score),
	)

	s.recordTurn(ctx, sess, text, reply, elapsed, now)

	return &Turn{
		UserMessage: userMsg,
		Replies:     replies,
		State:       next,
		Outcome:     reply.Outcome,
		Question:    reply.Question,
		Score:       reply.Score,
	}, nil
}

func (s *Service) recordTurn(ctx context.Context, sess *Session, input string, reply coach.Reply, elapsed time.Duration, now time.Time) {
	if s.history == nil {
		return
	}

	var response string
	if len(reply.Payloads) > 0 {
		response = coach.SpeechText(reply.Payloads[len(reply.Payloads)-1])
	}

	turn := &models.ConversationTurn{
		ID:              uuid.New().String(),
		Username:        sess.Username,
		SessionID:       sess.ID,
		Persona:         string(sess.State.Persona),
		Dictamen:        sess.State.Dictamen,
		GestionType:     sess.State.GestionType,
		MoraBucket:      sess.State.MoraBucket,
		Input:           input,
		MatchedQuestion: reply.Question,
		Outcome:         string(reply.Outcome),
		Score:           reply.Score,
		Response:        response,
		LatencyMS:       int(elapsed.Milliseconds()),
		CreatedAt:       now,
	}
	if err := s.history.InsertTurn(ctx, turn); err != nil {
		metrics.HistoryWriteFailures.Inc()
		logger.Warn("Failed to record conversation turn",
			zap.String("session_id", sess.ID),
			zap.Error(err),
		)
	}
}

// SwitchPersona resets the whole conversation under the new persona.
func (s *Service) SwitchPersona(ctx context.Context, id string, p knowledge.Persona) (*Session, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Valid() || !sess.Access.Allows(p) {
		return nil, fmt.Errorf("%w: %s", ErrPersonaNotAllowed, p)
	}

	if s.speech != nil {
		s.speech.Stop(id)
	}
	s.reset(sess, p)

	if err := s.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	metrics.PersonaSwitches.WithLabelValues(string(p)).Inc()
	logger.Info("Persona switched", zap.String("session_id", id), zap.String("persona", string(p)))
	return sess, nil
}

// SetContext changes the case selectors. The transcript and any pending
// survey are left untouched.
func (s *Service) SetContext(ctx context.Context, id, dictamen, gestion, mora string) (*Session, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	next, err := sess.State.WithContext(dictamen, gestion, mora)
	if err != nil {
		return nil, err
	}
	sess.State = next
	sess.UpdatedAt = s.now()

	if err := s.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	logger.Debug("Case context updated",
		zap.String("session_id", id),
		zap.String("dictamen", dictamen),
		zap.String("gestion", gestion),
		zap.String("mora", mora),
	)
	return sess, nil
}

// End deletes the session and stops its playback.
func (s *Service) End(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	if s.speech != nil {
		s.speech.Stop(id)
	}
	if _, err := s.store.Get(ctx, id); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil
		}
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	metrics.SessionEvents.WithLabelValues("ended").Inc()
	logger.Info("Chat session ended", zap.String("session_id", id))
	return nil
}

// Message finds one transcript message of the session.
func (s *Service) Message(ctx context.Context, id, messageID string) (coach.Message, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return coach.Message{}, err
	}
	for _, m := range sess.Transcript {
		if m.ID == messageID {
			return m, nil
		}
	}
	return coach.Message{}, ErrMessageNotFound
}

// History returns the persisted turns of the session's user, newest first.
func (s *Service) History(ctx context.Context, id string, limit int) ([]models.ConversationTurn, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.history == nil {
		return []models.ConversationTurn{}, nil
	}
	return s.history.GetTurnHistory(ctx, sess.Username, limit)
}

func (s *Service) reset(sess *Session, p knowledge.Persona) {
	now := s.now()
	sess.State = coach.NewState(p)
	sess.Transcript = []coach.Message{
		coach.NewMessage(coach.SenderAssistant, coach.DirectPayload{Text: s.library.For(p).Initial}, now),
	}
	sess.UpdatedAt = now
}
