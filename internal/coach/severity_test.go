package coach

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxicoach/backend/internal/knowledge"
)

func sampleEntry() knowledge.Entry {
	return knowledge.Entry{
		Question:      "q",
		Summary:       "resumen",
		ObjetivoClave: "Cerrar acuerdo.",
		Detail: &knowledge.Detail{
			Strategy:   "general",
			Phrases:    "frase",
			LeaderPlan: "plan",
		},
		MoraSpecificDetail: map[string]knowledge.MoraDetail{
			MoraMedium: {Strategy: "media", Phrases: "frase media"},
		},
	}
}

func TestEnhance_IsPure(t *testing.T) {
	src := sampleEntry()
	pristine := sampleEntry()

	first := Enhance(src, MoraMedium)
	second := Enhance(src, MoraMedium)

	assert.Equal(t, first, second)
	assert.Equal(t, pristine, src)
	assert.NotSame(t, src.Detail, first.Detail)
}

func TestEnhance_Buckets(t *testing.T) {
	tests := []struct {
		bucket    string
		objective string
		strategy  string
	}{
		{MoraLow, "PREVENCIÓN Y CONTACTO. Cerrar acuerdo.", "general"},
		{MoraMedium, "PRESIÓN Y SKIP TRACING. Cerrar acuerdo.", "media"},
		{MoraHigh, "RECUPERACIÓN INTENSA. Cerrar acuerdo.", "general"},
	}

	for _, tt := range tests {
		t.Run(tt.bucket, func(t *testing.T) {
			e := Enhance(sampleEntry(), tt.bucket)
			assert.Equal(t, tt.objective, e.ObjetivoClave)
			assert.Equal(t, tt.strategy, e.Detail.Strategy)
			assert.Equal(t, "plan", e.Detail.LeaderPlan)
			assert.Contains(t, e.ExpertNote, "Nota del Experto")
		})
	}
}

func TestEnhance_UnknownBucket(t *testing.T) {
	e := Enhance(sampleEntry(), "90+")
	assert.Empty(t, e.ExpertNote)
	assert.Equal(t, "Cerrar acuerdo.", e.ObjetivoClave)
}

func TestEnhance_WithoutObjectiveOrDetail(t *testing.T) {
	src := knowledge.Entry{
		Summary: "s",
		MoraSpecificDetail: map[string]knowledge.MoraDetail{
			MoraHigh: {Strategy: "alta", Phrases: "ya"},
		},
	}
	e := Enhance(src, MoraHigh)

	assert.Empty(t, e.ObjetivoClave)
	require.NotNil(t, e.Detail)
	assert.Equal(t, "alta", e.Detail.Strategy)
	assert.Empty(t, e.Detail.LeaderPlan)
	assert.Nil(t, src.Detail)
}

func TestEnhance_SkipsEntriesWithoutSummary(t *testing.T) {
	src := knowledge.Entry{Survey: &knowledge.Survey{Question: "¿?"}}
	e := Enhance(src, MoraHigh)
	assert.Empty(t, e.ExpertNote)
}
