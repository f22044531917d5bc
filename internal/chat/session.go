package chat

import (
	"context"
	"errors"
	"time"

	"github.com/maxicoach/backend/internal/coach"
	"github.com/maxicoach/backend/internal/knowledge"
	"github.com/maxicoach/backend/internal/storage/models"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrEmptyMessage      = errors.New("message is empty")
	ErrPersonaNotAllowed = errors.New("persona not allowed for this user")
	ErrLeadOnly          = errors.New("operation requires the lead persona")
	ErrMessageNotFound   = errors.New("message not found")
)

// Access lists the personas a user may talk to.
type Access struct {
	Agent bool `json:"agent"`
	Lead  bool `json:"lead"`
}

func (a Access) Allows(p knowledge.Persona) bool {
	switch p {
	case knowledge.PersonaAgent:
		return a.Agent
	case knowledge.PersonaLead:
		return a.Lead
	}
	return false
}

// DefaultPersona prefers the agent coach when the user has both.
func (a Access) DefaultPersona() knowledge.Persona {
	if a.Agent {
		return knowledge.PersonaAgent
	}
	return knowledge.PersonaLead
}

type Session struct {
	ID         string          `json:"id"`
	Username   string          `json:"username"`
	Access     Access          `json:"access"`
	State      coach.State     `json:"state"`
	Transcript []coach.Message `json:"transcript"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Turn is what one call to Send produced.
type Turn struct {
	UserMessage coach.Message   `json:"userMessage"`
	Replies     []coach.Message `json:"replies"`
	State       coach.State     `json:"state"`
	Outcome     coach.Outcome   `json:"outcome"`
	Question    string          `json:"matchedQuestion,omitempty"`
	Score       float64         `json:"score"`
}

// Store persists sessions between requests.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// HistoryStore records answered turns. Failures never fail a turn.
type HistoryStore interface {
	InsertTurn(ctx context.Context, t *models.ConversationTurn) error
	GetTurnHistory(ctx context.Context, username string, limit int) ([]models.ConversationTurn, error)
}

// SpeechStopper cancels in-flight playback of a session.
type SpeechStopper interface {
	Stop(sessionID string)
}
