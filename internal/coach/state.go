// Package coach holds the scripted responder: session state, the response
// selector, severity enhancement and speech-text extraction.
package coach

import (
	"errors"
	"fmt"

	"github.com/maxicoach/backend/internal/knowledge"
)

var ErrInvalidContext = errors.New("invalid case context")

const (
	DictamenAll     = "Todos"
	DefaultDictamen = "Promesa de pago"
	DefaultGestion  = "Telefónica"

	MoraLow    = "1 a 15"
	MoraMedium = "15 a 30"
	MoraHigh   = "30+"
)

var DictamenOptions = []string{
	DictamenAll,
	"Promesa de pago",
	"Negativa de pago",
	"Sin contacto",
	"Siniestro",
	"Moto recuperada",
	"Cambio de domicilio",
	"Contacto con tercero",
	"Prestanombre",
	"Defunción",
	"Jurídico",
}

var GestionOptions = []string{"Telefónica", "Campo"}

var MoraOptions = []string{MoraLow, MoraMedium, MoraHigh}

// State is the per-session conversation context. It is passed by value into
// Respond and a new value comes back; nothing else mutates it.
type State struct {
	Persona        knowledge.Persona `json:"persona"`
	Dictamen       string            `json:"dictamen"`
	GestionType    string            `json:"gestionType"`
	MoraBucket     string            `json:"moraBucket"`
	LastFaqTopic   string            `json:"lastFaqTopic,omitempty"`
	FallbackCursor int               `json:"fallbackCursor"`
}

// NewState returns the defaults used after login and on every persona switch.
func NewState(p knowledge.Persona) State {
	return State{
		Persona:     p,
		Dictamen:    DefaultDictamen,
		GestionType: DefaultGestion,
		MoraBucket:  MoraLow,
	}
}

// WithContext replaces the case selectors. The pending survey and the
// fallback cursor are left alone.
func (s State) WithContext(dictamen, gestion, mora string) (State, error) {
	if !contains(DictamenOptions, dictamen) {
		return s, fmt.Errorf("%w: dictamen %q", ErrInvalidContext, dictamen)
	}
	if !contains(GestionOptions, gestion) {
		return s, fmt.Errorf("%w: gestión %q", ErrInvalidContext, gestion)
	}
	if !contains(MoraOptions, mora) {
		return s, fmt.Errorf("%w: mora %q", ErrInvalidContext, mora)
	}
	s.Dictamen = dictamen
	s.GestionType = gestion
	s.MoraBucket = mora
	return s, nil
}

func contains(options []string, v string) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}
