package coach

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maxicoach/backend/internal/knowledge"
)

func TestSpeechText_DirectEntry(t *testing.T) {
	e := &knowledge.Entry{
		ExpertNote:    "<p><b>Nota:</b> riesgo alto</p>",
		Summary:       "Ofrece <b>opciones</b>",
		ObjetivoClave: "Cerrar",
		Detail: &knowledge.Detail{
			Strategy:   "Escucha",
			Phrases:    `"Hola"<br>"Adiós"`,
			LeaderPlan: "Revisar<br><ul><li>Meta 1</li><li>Meta 2</li></ul>",
		},
	}

	got := SpeechText(DirectPayload{Entry: e})
	assert.Equal(t,
		`Nota: riesgo alto. Ofrece opciones. Objetivo Clave: Cerrar. Estrategia Detallada: Escucha. Frases a utilizar: "Hola". "Adiós". Plan de Monitoreo: Revisar. . Meta 1Meta 2`,
		got)
}

func TestSpeechText_Kinds(t *testing.T) {
	tests := []struct {
		name    string
		payload Payload
		want    string
	}{
		{"direct string", DirectPayload{Text: "<b>Marco</b>   legal &amp; guía"}, "Marco legal & guía"},
		{"user text", TextPayload{Text: "hola  mundo"}, "hola mundo"},
		{
			"survey",
			SurveyPayload{
				Question: "¿Tiene <b>seguro</b>?",
				Options:  []knowledge.Option{{Text: "Sí"}, {Text: "No"}},
			},
			"¿Tiene seguro? Las opciones son: Sí, No",
		},
		{"survey without options", SurveyPayload{Question: "¿Tiene seguro?"}, "¿Tiene seguro?"},
		{"fallback", FallbackPayload{Summary: "No <i>sé</i>", Detail: "ignorado"}, "No sé"},
		{"entry without summary", DirectPayload{Entry: &knowledge.Entry{}}, ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SpeechText(tt.payload))
		})
	}
}
