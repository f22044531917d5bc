package knowledge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefault(t *testing.T) {
	lib, err := LoadDefault()
	require.NoError(t, err)

	assert.Equal(t, PersonaAgent, lib.Agent.Persona)
	assert.Equal(t, PersonaLead, lib.Lead.Persona)
	assert.Same(t, lib.Lead, lib.For(PersonaLead))
	assert.Same(t, lib.Agent, lib.For(PersonaAgent))

	assert.NotEmpty(t, lib.Agent.Initial)
	assert.NotEmpty(t, lib.Agent.Guide)
	assert.NotEmpty(t, lib.Agent.Fallback.OffTopic)
	assert.NotEmpty(t, lib.Lead.Fallback.Summary)
	assert.Contains(t, lib.Lead.LegalKeywords, "guía de uso")
}

func TestQuestions_ExcludeCompoundKeys(t *testing.T) {
	lib, err := LoadDefault()
	require.NoError(t, err)

	questions := lib.Agent.Questions()
	for _, q := range questions {
		assert.False(t, IsCompoundKey(q), q)
	}
	assert.Equal(t, "¿Qué hago si el cliente dice que no puede pagar?", questions[0])

	_, ok := lib.Agent.Lookup("chocó-con-seguro")
	assert.True(t, ok)
	assert.Greater(t, lib.Agent.Len(), len(questions))
}

func TestLookup_ReturnsCopy(t *testing.T) {
	lib, err := LoadDefault()
	require.NoError(t, err)

	key := "¿Qué hago si el cliente dice que no puede pagar?"
	e, ok := lib.Agent.Lookup(key)
	require.True(t, ok)
	require.NotNil(t, e.Detail)

	e.Detail.Strategy = "changed"
	e.MoraSpecificDetail["30+"] = MoraDetail{Strategy: "changed"}
	e.Keywords[0] = "changed"

	again, _ := lib.Agent.Lookup(key)
	assert.NotEqual(t, "changed", again.Detail.Strategy)
	assert.NotEqual(t, "changed", again.MoraSpecificDetail["30+"].Strategy)
	assert.NotEqual(t, "changed", again.Keywords[0])

	_, ok = lib.Agent.Lookup("missing")
	assert.False(t, ok)
}

func TestSurveyLinks(t *testing.T) {
	lib, err := LoadDefault()
	require.NoError(t, err)

	e, ok := lib.Agent.Lookup("¿Qué hago si el cliente chocó o le robaron la moto?")
	require.True(t, ok)
	require.True(t, e.IsSurvey())
	assert.Empty(t, e.Summary)
	assert.Equal(t, "chocó-con-seguro", e.Survey.AffirmativeKey())
	assert.Equal(t, "chocó-sin-seguro", e.Survey.NegativeKey())
	assert.Len(t, e.Survey.Options, 2)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{
			name:    "unknown persona",
			data:    "persona: boss\ninitial: hi\n",
			wantErr: "unknown persona",
		},
		{
			name:    "missing greeting",
			data:    "persona: agent\n",
			wantErr: "initial greeting",
		},
		{
			name: "summary and survey",
			data: `persona: agent
initial: hi
faqs:
  - question: q
    summary: s
    survey:
      question: sq
      options: [{text: a, trigger: a}]
`,
			wantErr: "exactly one of summary or survey",
		},
		{
			name: "neither summary nor survey",
			data: `persona: agent
initial: hi
faqs:
  - question: q
`,
			wantErr: "exactly one of summary or survey",
		},
		{
			name: "duplicate",
			data: `persona: agent
initial: hi
faqs:
  - question: q
    summary: a
  - question: q
    summary: b
`,
			wantErr: "duplicate question",
		},
		{
			name: "survey links missing sub-answer",
			data: `persona: agent
initial: hi
faqs:
  - question: q
    survey:
      question: sq
      options: [{text: a, trigger: a}]
      prefix: p
      affirmative: {markers: [si], suffix: si}
      negative: {markers: ["no"], suffix: nope}
  - question: p-si
    summary: ok
`,
			wantErr: `links missing entry "p-nope"`,
		},
		{
			name:    "lead without fallback",
			data:    "persona: lead\ninitial: hi\n",
			wantErr: "lead fallback summary",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParse_NormalizesKeywords(t *testing.T) {
	kb, err := Parse([]byte(`persona: agent
initial: hi
faqs:
  - question: Q
    summary: s
    keywords: ["  Promesa ", ""]
`))
	require.NoError(t, err)

	e, ok := kb.Lookup("Q")
	require.True(t, ok)
	assert.Equal(t, []string{"promesa"}, e.Keywords)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	agent := "persona: agent\ninitial: hola\nfaqs:\n  - question: a\n    summary: b\n"
	lead := "persona: lead\ninitial: hola\nfallback:\n  summary: s\n  detail: d\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "agent.yaml"), []byte(agent), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lead.yaml"), []byte(lead), 0o644))

	lib, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, lib.Agent.Questions())
	assert.Empty(t, lib.Lead.Questions())

	// Persona mismatch between file name and content.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lead.yaml"), []byte(agent), 0o644))
	_, err = LoadDir(dir)
	assert.Error(t, err)
}
