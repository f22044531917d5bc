package coach

import "github.com/maxicoach/backend/internal/knowledge"

type severity struct {
	note   string
	prefix string
}

var severities = map[string]severity{
	MoraLow: {
		note:   `<p><b>Nota del Experto (Mora 1-15 días):</b> Cliente de riesgo bajo a medio. Enfócate en <b>garantizar contacto, escuchar objeciones y convencer al deudor</b>. La estrategia es preventiva y cordial, buscando reactivar el compromiso.</p>`,
		prefix: "PREVENCIÓN Y CONTACTO. ",
	},
	MoraMedium: {
		note:   `<p><b>Nota del Experto (Mora 15-30 días):</b> Cliente de riesgo medio a alto. Aplica <b>presión efectiva, recordatorios de consecuencias y, si es necesario, inicia skip tracing</b> si no hay contacto. La estrategia es firme pero busca el acuerdo.</p>`,
		prefix: "PRESIÓN Y SKIP TRACING. ",
	},
	MoraHigh: {
		note:   `<p><b>Nota del Experto (Mora 30+ días):</b> Cliente de riesgo máximo. Las estrategias deben ser <b>intensas y enfocadas en la recuperación del activo</b>. Utiliza todas las palancas de presión y prepara la escalada a jurídico.</p>`,
		prefix: "RECUPERACIÓN INTENSA. ",
	},
}

// Enhance returns a copy of e adapted to the days-overdue bucket: the fixed
// expert note, the objective prefix and any bucket-specific strategy and
// phrases. e itself is never modified. Entries without a summary come back
// as an unmodified copy; an unknown bucket yields an empty note.
func Enhance(e knowledge.Entry, bucket string) knowledge.Entry {
	out := e.Clone()
	if out.Summary == "" {
		return out
	}

	sev := severities[bucket]
	out.ExpertNote = sev.note
	if out.ObjetivoClave != "" {
		out.ObjetivoClave = sev.prefix + out.ObjetivoClave
	}

	if md, ok := out.MoraSpecificDetail[bucket]; ok {
		var d knowledge.Detail
		if out.Detail != nil {
			d = *out.Detail
		}
		d.Strategy = md.Strategy
		d.Phrases = md.Phrases
		out.Detail = &d
	}
	return out
}
