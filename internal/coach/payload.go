package coach

import (
	"encoding/json"
	"fmt"

	"github.com/maxicoach/backend/internal/knowledge"
)

type PayloadKind string

const (
	KindText     PayloadKind = "text"
	KindDirect   PayloadKind = "direct"
	KindSurvey   PayloadKind = "interactiveSurvey"
	KindFallback PayloadKind = "fallback"
)

// Payload is the content of one transcript message. The set of
// implementations is closed.
type Payload interface {
	Kind() PayloadKind
	payload()
}

// TextPayload is what the user typed.
type TextPayload struct {
	Text string
}

// DirectPayload is either a knowledge-base entry or a plain rich-text string
// (greetings, guides). Exactly one of Entry and Text is set.
type DirectPayload struct {
	Entry *knowledge.Entry
	Text  string
}

type SurveyPayload struct {
	Question string             `json:"question"`
	Options  []knowledge.Option `json:"options"`
}

type FallbackPayload struct {
	Summary string `json:"summary"`
	Detail  string `json:"detail,omitempty"`
}

func (TextPayload) Kind() PayloadKind     { return KindText }
func (DirectPayload) Kind() PayloadKind   { return KindDirect }
func (SurveyPayload) Kind() PayloadKind   { return KindSurvey }
func (FallbackPayload) Kind() PayloadKind { return KindFallback }

func (TextPayload) payload()     {}
func (DirectPayload) payload()   {}
func (SurveyPayload) payload()   {}
func (FallbackPayload) payload() {}

type envelope struct {
	Type PayloadKind     `json:"type"`
	Data json.RawMessage `json:"data"`
}

// MarshalPayload encodes p as {"type": ..., "data": ...}.
func MarshalPayload(p Payload) ([]byte, error) {
	var data any
	switch v := p.(type) {
	case TextPayload:
		data = v.Text
	case DirectPayload:
		if v.Entry != nil {
			data = v.Entry
		} else {
			data = v.Text
		}
	case SurveyPayload:
		data = v
	case FallbackPayload:
		data = v
	default:
		return nil, fmt.Errorf("unsupported payload %T", p)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: p.Kind(), Data: raw})
}

func UnmarshalPayload(b []byte) (Payload, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, err
	}
	switch env.Type {
	case KindText:
		var s string
		if err := json.Unmarshal(env.Data, &s); err != nil {
			return nil, fmt.Errorf("text payload: %w", err)
		}
		return TextPayload{Text: s}, nil
	case KindDirect:
		var s string
		if err := json.Unmarshal(env.Data, &s); err == nil {
			return DirectPayload{Text: s}, nil
		}
		var e knowledge.Entry
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, fmt.Errorf("direct payload: %w", err)
		}
		return DirectPayload{Entry: &e}, nil
	case KindSurvey:
		var s SurveyPayload
		if err := json.Unmarshal(env.Data, &s); err != nil {
			return nil, fmt.Errorf("survey payload: %w", err)
		}
		return s, nil
	case KindFallback:
		var f FallbackPayload
		if err := json.Unmarshal(env.Data, &f); err != nil {
			return nil, fmt.Errorf("fallback payload: %w", err)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unknown payload type %q", env.Type)
	}
}
