package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/maxicoach/backend/internal/coach"
	"github.com/maxicoach/backend/internal/knowledge"
)

var pillarKeywords = []string{"coaching", "feedback", "motivar", "malas prácticas", "tiempo", "estrella"}

var PerformanceLevels = []string{
	"Alto Rendimiento",
	"En Desarrollo",
	"Baja Motivación",
	"Actitud Negativa",
	"Novato",
}

type Pillar struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

type Guide struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type PlanRequest struct {
	GestorName  string `json:"gestorName" validate:"required,max=100"`
	Assigned    int    `json:"creditosAsignados" validate:"min=0"`
	Managed     int    `json:"creditosGestionados" validate:"min=0"`
	Priority    int    `json:"creditosPrioridad" validate:"min=0"`
	Unmanaged   int    `json:"creditosSinGestion" validate:"min=0"`
	Performance string `json:"desempeno" validate:"required,oneof='Alto Rendimiento' 'En Desarrollo' 'Baja Motivación' 'Actitud Negativa' Novato"`
}

// Prompt renders the request as the chat message a lead would type.
func (r PlanRequest) Prompt() string {
	return fmt.Sprintf(
		"Genera un plan de acción para el gestor %s con el siguiente perfil: Créditos Asignados: %d, Créditos Gestionados: %d, Créditos Prioridad: %d, Créditos sin Gestión: %d, Desempeño: %s.",
		strings.TrimSpace(r.GestorName), r.Assigned, r.Managed, r.Priority, r.Unmanaged, r.Performance,
	)
}

// FAQs lists the shortcut questions for the session. Agents see the
// questions tagged with the current dictamen (or untagged ones); leads see
// everything that matches search.
func (s *Service) FAQs(ctx context.Context, id, search string) ([]string, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	kb := s.library.For(sess.State.Persona)
	term := strings.ToLower(strings.TrimSpace(search))
	out := []string{}
	for _, q := range kb.Questions() {
		e, _ := kb.Lookup(q)
		switch sess.State.Persona {
		case knowledge.PersonaAgent:
			if sess.State.Dictamen != coach.DictamenAll && len(e.Dictamen) > 0 && !e.HasDictamen(sess.State.Dictamen) {
				continue
			}
		case knowledge.PersonaLead:
			if term != "" && !matchesSearch(e, term) {
				continue
			}
		}
		out = append(out, q)
	}
	return out, nil
}

func matchesSearch(e knowledge.Entry, term string) bool {
	if strings.Contains(strings.ToLower(e.Question), term) {
		return true
	}
	for _, kw := range e.Keywords {
		if strings.Contains(kw, term) {
			return true
		}
	}
	return false
}

// Pillars returns the leadership pillars of the lead knowledge base in data
// order.
func (s *Service) Pillars(ctx context.Context, id string) ([]Pillar, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.State.Persona != knowledge.PersonaLead {
		return nil, ErrLeadOnly
	}

	kb := s.library.Lead
	out := []Pillar{}
	for _, q := range kb.Questions() {
		e, _ := kb.Lookup(q)
		if e.Summary == "" || !hasAnyKeyword(e, pillarKeywords) {
			continue
		}
		out = append(out, Pillar{Title: q, Summary: e.Summary})
	}
	return out, nil
}

func hasAnyKeyword(e knowledge.Entry, wanted []string) bool {
	for _, kw := range e.Keywords {
		for _, w := range wanted {
			if kw == w {
				return true
			}
		}
	}
	return false
}

func (s *Service) Guide(ctx context.Context, id string) (*Guide, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	kb := s.library.For(sess.State.Persona)
	return &Guide{Title: kb.GuideTitle, Body: kb.Guide}, nil
}

// GeneratePlan sends the action-plan prompt through the normal chat flow.
func (s *Service) GeneratePlan(ctx context.Context, id string, req PlanRequest) (*Turn, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.State.Persona != knowledge.PersonaLead {
		return nil, ErrLeadOnly
	}
	return s.Send(ctx, id, req.Prompt())
}
