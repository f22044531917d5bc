package coach

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var listBreaks = strings.NewReplacer("<br>", ". ", "<ul>", ". ", "<li>", "", "</li>", "", "</ul>", "")

// SpeechText flattens a payload into the plain sentence sequence read aloud
// by the speech engine. It returns "" for anything without readable text.
func SpeechText(p Payload) string {
	switch v := p.(type) {
	case TextPayload:
		return stripMarkup(v.Text)
	case DirectPayload:
		if v.Entry == nil {
			return stripMarkup(v.Text)
		}
		e := v.Entry
		if e.Summary == "" {
			return ""
		}
		var b strings.Builder
		if e.ExpertNote != "" {
			b.WriteString(stripMarkup(e.ExpertNote))
			b.WriteString(". ")
		}
		b.WriteString(e.Summary)
		if e.ObjetivoClave != "" {
			b.WriteString(". Objetivo Clave: ")
			b.WriteString(e.ObjetivoClave)
		}
		if d := e.Detail; d != nil {
			if d.Strategy != "" {
				b.WriteString(". Estrategia Detallada: ")
				b.WriteString(d.Strategy)
			}
			if d.Phrases != "" {
				b.WriteString(". Frases a utilizar: ")
				b.WriteString(strings.ReplaceAll(d.Phrases, "<br>", ". "))
			}
			if d.LeaderPlan != "" {
				b.WriteString(". Plan de Monitoreo: ")
				b.WriteString(listBreaks.Replace(d.LeaderPlan))
			}
		}
		return stripMarkup(b.String())
	case SurveyPayload:
		text := v.Question
		if len(v.Options) > 0 {
			labels := make([]string, len(v.Options))
			for i, o := range v.Options {
				labels[i] = o.Text
			}
			text += " Las opciones son: " + strings.Join(labels, ", ")
		}
		return stripMarkup(text)
	case FallbackPayload:
		return stripMarkup(v.Summary)
	}
	return ""
}

func stripMarkup(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return collapse(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return collapse(s)
	}
	return collapse(doc.Text())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
