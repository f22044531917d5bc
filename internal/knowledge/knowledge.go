// Package knowledge loads the static per-persona knowledge bases that the
// coach answers from.
package knowledge

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var embedded embed.FS

// KnowledgeBase is read-only once loaded. Lookups hand out deep copies.
type KnowledgeBase struct {
	Persona       Persona
	Initial       string
	Guide         string
	GuideTitle    string
	LegalKeywords []string
	Fallback      Fallback

	order   []string
	entries map[string]*Entry
}

type fileFormat struct {
	Persona       Persona  `yaml:"persona"`
	Initial       string   `yaml:"initial"`
	GuideTitle    string   `yaml:"guideTitle"`
	Guide         string   `yaml:"guide"`
	LegalKeywords []string `yaml:"legalKeywords"`
	Fallback      Fallback `yaml:"fallback"`
	FAQs          []Entry  `yaml:"faqs"`
}

// Library holds the knowledge base of every persona.
type Library struct {
	Agent *KnowledgeBase
	Lead  *KnowledgeBase
}

func (l *Library) For(p Persona) *KnowledgeBase {
	if p == PersonaLead {
		return l.Lead
	}
	return l.Agent
}

// LoadDefault reads the knowledge bases compiled into the binary.
func LoadDefault() (*Library, error) {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, fmt.Errorf("knowledge: embedded data: %w", err)
	}
	return LoadFS(sub)
}

// LoadDir reads agent.yaml and lead.yaml from dir.
func LoadDir(dir string) (*Library, error) {
	return LoadFS(os.DirFS(dir))
}

func LoadFS(fsys fs.FS) (*Library, error) {
	agent, err := loadFile(fsys, "agent.yaml")
	if err != nil {
		return nil, err
	}
	lead, err := loadFile(fsys, "lead.yaml")
	if err != nil {
		return nil, err
	}
	if agent.Persona != PersonaAgent {
		return nil, fmt.Errorf("knowledge: agent.yaml declares persona %q", agent.Persona)
	}
	if lead.Persona != PersonaLead {
		return nil, fmt.Errorf("knowledge: lead.yaml declares persona %q", lead.Persona)
	}
	return &Library{Agent: agent, Lead: lead}, nil
}

func loadFile(fsys fs.FS, name string) (*KnowledgeBase, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("knowledge: read %s: %w", filepath.Base(name), err)
	}
	kb, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("knowledge: %s: %w", name, err)
	}
	return kb, nil
}

// Parse decodes one persona's knowledge base and validates it.
func Parse(data []byte) (*KnowledgeBase, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	kb := &KnowledgeBase{
		Persona:       f.Persona,
		Initial:       strings.TrimSpace(f.Initial),
		Guide:         strings.TrimSpace(f.Guide),
		GuideTitle:    f.GuideTitle,
		LegalKeywords: lowerAll(f.LegalKeywords),
		Fallback:      f.Fallback,
		entries:       make(map[string]*Entry, len(f.FAQs)),
	}

	for i := range f.FAQs {
		e := f.FAQs[i]
		e.Keywords = lowerAll(e.Keywords)
		e.ExpertNote = ""
		if e.Survey != nil {
			e.Survey.Affirmative.Markers = lowerAll(e.Survey.Affirmative.Markers)
			e.Survey.Negative.Markers = lowerAll(e.Survey.Negative.Markers)
		}
		if _, dup := kb.entries[e.Question]; dup {
			return nil, fmt.Errorf("duplicate question %q", e.Question)
		}
		kb.entries[e.Question] = &e
		if !IsCompoundKey(e.Question) {
			kb.order = append(kb.order, e.Question)
		}
	}

	if err := kb.validate(); err != nil {
		return nil, err
	}
	return kb, nil
}

func (kb *KnowledgeBase) validate() error {
	if !kb.Persona.Valid() {
		return fmt.Errorf("unknown persona %q", kb.Persona)
	}
	if kb.Initial == "" {
		return fmt.Errorf("initial greeting is required")
	}
	if kb.Persona == PersonaLead && kb.Fallback.Summary == "" {
		return fmt.Errorf("lead fallback summary is required")
	}

	for key, e := range kb.entries {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("entry with empty question")
		}
		if e.IsSurvey() == (e.Summary != "") {
			return fmt.Errorf("entry %q must have exactly one of summary or survey", key)
		}
		if !e.IsSurvey() {
			continue
		}
		if IsCompoundKey(key) {
			return fmt.Errorf("survey %q cannot be a sub-answer", key)
		}
		s := e.Survey
		if s.Question == "" || len(s.Options) == 0 {
			return fmt.Errorf("survey %q needs a question and options", key)
		}
		if s.Prefix == "" || IsCompoundKey(s.Prefix) {
			return fmt.Errorf("survey %q has an invalid prefix %q", key, s.Prefix)
		}
		for _, b := range []Branch{s.Affirmative, s.Negative} {
			if len(b.Markers) == 0 || b.Suffix == "" {
				return fmt.Errorf("survey %q branches need markers and a suffix", key)
			}
			linked, ok := kb.entries[CompoundKey(s.Prefix, b.Suffix)]
			if !ok {
				return fmt.Errorf("survey %q links missing entry %q", key, CompoundKey(s.Prefix, b.Suffix))
			}
			if linked.IsSurvey() {
				return fmt.Errorf("survey %q links another survey", key)
			}
		}
	}
	return nil
}

// Questions returns the top-level questions in data order. Sub-answers of
// surveys are never included.
func (kb *KnowledgeBase) Questions() []string {
	return append([]string(nil), kb.order...)
}

// Lookup returns a copy of the entry stored under key.
func (kb *KnowledgeBase) Lookup(key string) (Entry, bool) {
	e, ok := kb.entries[key]
	if !ok {
		return Entry{}, false
	}
	return e.Clone(), true
}

// Len counts every stored entry, sub-answers included.
func (kb *KnowledgeBase) Len() int {
	return len(kb.entries)
}

func lowerAll(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
