package coach

import (
	"strings"

	"github.com/maxicoach/backend/internal/knowledge"
)

// DefaultOffTopic is used when the agent knowledge base has no off-topic
// replies to rotate through.
const DefaultOffTopic = "No tengo una guía específica para eso, pero puedo ayudarte con estrategias de cobranza. ¿Hay algo más en lo que pueda asistirte?"

const defaultClarification = "No entendí tu respuesta. Por favor elige una de las opciones."

const (
	keywordScore  = 1.0
	exactScore    = 10.0
	dictamenBoost = 0.5
)

type Outcome string

const (
	OutcomeMatch          Outcome = "match"
	OutcomeSurvey         Outcome = "survey"
	OutcomeSurveyResolved Outcome = "survey_resolved"
	OutcomeSurveyReprompt Outcome = "survey_reprompt"
	OutcomeGuide          Outcome = "guide"
	OutcomeFallback       Outcome = "fallback"
)

// Reply is everything one user turn produces. Payloads are in display order.
type Reply struct {
	Payloads []Payload
	Question string
	Score    float64
	Outcome  Outcome
}

// Respond picks the assistant reply for input. It never fails: anything it
// cannot place ends in the persona's fallback.
func Respond(input string, st State, kb *knowledge.KnowledgeBase) (Reply, State) {
	text := strings.ToLower(strings.TrimSpace(input))

	if st.LastFaqTopic != "" {
		if pending, ok := kb.Lookup(st.LastFaqTopic); ok && pending.IsSurvey() {
			return answerSurvey(text, pending, st, kb)
		}
		st.LastFaqTopic = ""
	}

	key, score := bestMatch(text, st, kb)
	if score > 0 {
		entry, _ := kb.Lookup(key)
		if entry.IsSurvey() {
			st.LastFaqTopic = key
			return Reply{
				Payloads: []Payload{surveyPayload(entry.Survey)},
				Question: key,
				Score:    score,
				Outcome:  OutcomeSurvey,
			}, st
		}
		st.LastFaqTopic = ""
		return Reply{
			Payloads: []Payload{direct(entry, st)},
			Question: key,
			Score:    score,
			Outcome:  OutcomeMatch,
		}, st
	}

	st.LastFaqTopic = ""
	if mentionsAny(text, kb.LegalKeywords) {
		return Reply{
			Payloads: []Payload{DirectPayload{Text: kb.Guide}},
			Outcome:  OutcomeGuide,
		}, st
	}

	return fallback(st, kb)
}

func answerSurvey(text string, pending knowledge.Entry, st State, kb *knowledge.KnowledgeBase) (Reply, State) {
	s := pending.Survey

	// Affirmative wins when a reply carries markers of both branches.
	var linked string
	switch {
	case mentionsAny(text, s.Affirmative.Markers):
		linked = s.AffirmativeKey()
	case mentionsAny(text, s.Negative.Markers):
		linked = s.NegativeKey()
	default:
		clarification := s.Clarification
		if clarification == "" {
			clarification = defaultClarification
		}
		return Reply{
			Payloads: []Payload{
				FallbackPayload{Summary: clarification},
				surveyPayload(s),
			},
			Question: st.LastFaqTopic,
			Outcome:  OutcomeSurveyReprompt,
		}, st
	}

	st.LastFaqTopic = ""
	entry, ok := kb.Lookup(linked)
	if !ok || entry.IsSurvey() {
		return fallback(st, kb)
	}
	return Reply{
		Payloads: []Payload{direct(entry, st)},
		Question: linked,
		Outcome:  OutcomeSurveyResolved,
	}, st
}

// bestMatch scores every top-level question in data order. Only a strictly
// higher score replaces the current best, so earlier questions win ties.
func bestMatch(text string, st State, kb *knowledge.KnowledgeBase) (string, float64) {
	var (
		bestKey   string
		bestScore float64
	)
	if text == "" {
		return "", 0
	}

	for _, key := range kb.Questions() {
		entry, _ := kb.Lookup(key)
		var score float64
		for _, kw := range entry.Keywords {
			if strings.Contains(text, kw) {
				score += keywordScore
			}
		}
		if text == strings.ToLower(key) {
			score += exactScore
		}
		if score > 0 && st.Persona == knowledge.PersonaAgent && dictamenApplies(entry, st.Dictamen) {
			score += dictamenBoost
		}
		if score > bestScore {
			bestKey, bestScore = key, score
		}
	}
	return bestKey, bestScore
}

func dictamenApplies(e knowledge.Entry, filter string) bool {
	if filter == DictamenAll {
		return len(e.Dictamen) > 0
	}
	return e.HasDictamen(filter)
}

func direct(e knowledge.Entry, st State) DirectPayload {
	if st.Persona == knowledge.PersonaAgent {
		e = Enhance(e, st.MoraBucket)
	}
	return DirectPayload{Entry: &e}
}

func surveyPayload(s *knowledge.Survey) SurveyPayload {
	return SurveyPayload{
		Question: s.Question,
		Options:  append([]knowledge.Option(nil), s.Options...),
	}
}

func fallback(st State, kb *knowledge.KnowledgeBase) (Reply, State) {
	st.LastFaqTopic = ""
	if st.Persona == knowledge.PersonaLead {
		return Reply{
			Payloads: []Payload{FallbackPayload{Summary: kb.Fallback.Summary, Detail: kb.Fallback.Detail}},
			Outcome:  OutcomeFallback,
		}, st
	}

	options := kb.Fallback.OffTopic
	summary := DefaultOffTopic
	if len(options) > 0 {
		summary = options[st.FallbackCursor%len(options)]
	}
	st.FallbackCursor = (st.FallbackCursor + 1) % max(len(options), 1)
	return Reply{
		Payloads: []Payload{FallbackPayload{Summary: summary}},
		Outcome:  OutcomeFallback,
	}, st
}

func mentionsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
