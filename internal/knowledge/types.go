package knowledge

import "strings"

type Persona string

const (
	PersonaAgent Persona = "agent"
	PersonaLead  Persona = "lead"
)

func (p Persona) Valid() bool {
	return p == PersonaAgent || p == PersonaLead
}

type Detail struct {
	Strategy   string `yaml:"strategy" json:"strategy,omitempty"`
	Phrases    string `yaml:"phrases" json:"phrases,omitempty"`
	LeaderPlan string `yaml:"leaderPlan" json:"leaderPlan,omitempty"`
}

type MoraDetail struct {
	Strategy string `yaml:"strategy" json:"strategy"`
	Phrases  string `yaml:"phrases" json:"phrases"`
}

type Option struct {
	Text    string `yaml:"text" json:"text"`
	Trigger string `yaml:"trigger" json:"trigger"`
}

// Branch is one answer of a survey. Markers are matched against the user's
// reply; the resolved entry lives under "<prefix>-<suffix>".
type Branch struct {
	Markers []string `yaml:"markers" json:"-"`
	Suffix  string   `yaml:"suffix" json:"-"`
}

type Survey struct {
	Question      string   `yaml:"question" json:"question"`
	Options       []Option `yaml:"options" json:"options"`
	Prefix        string   `yaml:"prefix" json:"-"`
	Affirmative   Branch   `yaml:"affirmative" json:"-"`
	Negative      Branch   `yaml:"negative" json:"-"`
	Clarification string   `yaml:"clarification" json:"-"`
}

func (s *Survey) AffirmativeKey() string {
	return CompoundKey(s.Prefix, s.Affirmative.Suffix)
}

func (s *Survey) NegativeKey() string {
	return CompoundKey(s.Prefix, s.Negative.Suffix)
}

// Entry is one canned answer. A plain entry has Summary; a survey entry has
// Survey. ExpertNote is derived at answer time and never loaded from data.
type Entry struct {
	Question           string                `yaml:"question" json:"question"`
	Summary            string                `yaml:"summary" json:"summary,omitempty"`
	ObjetivoClave      string                `yaml:"objetivoClave" json:"objetivoClave,omitempty"`
	Detail             *Detail               `yaml:"detail" json:"detail,omitempty"`
	Keywords           []string              `yaml:"keywords" json:"keywords,omitempty"`
	Dictamen           []string              `yaml:"dictamen" json:"dictamen,omitempty"`
	ExpertNote         string                `yaml:"-" json:"expertNote,omitempty"`
	MoraSpecificDetail map[string]MoraDetail `yaml:"moraSpecificDetail" json:"moraSpecificDetail,omitempty"`
	Survey             *Survey               `yaml:"survey" json:"survey,omitempty"`
}

func (e *Entry) IsSurvey() bool {
	return e.Survey != nil
}

func (e *Entry) HasDictamen(tag string) bool {
	for _, d := range e.Dictamen {
		if d == tag {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can derive new values without
// touching the loaded knowledge base.
func (e Entry) Clone() Entry {
	out := e
	if e.Detail != nil {
		d := *e.Detail
		out.Detail = &d
	}
	if e.Keywords != nil {
		out.Keywords = append([]string(nil), e.Keywords...)
	}
	if e.Dictamen != nil {
		out.Dictamen = append([]string(nil), e.Dictamen...)
	}
	if e.MoraSpecificDetail != nil {
		out.MoraSpecificDetail = make(map[string]MoraDetail, len(e.MoraSpecificDetail))
		for k, v := range e.MoraSpecificDetail {
			out.MoraSpecificDetail[k] = v
		}
	}
	if e.Survey != nil {
		s := *e.Survey
		s.Options = append([]Option(nil), e.Survey.Options...)
		s.Affirmative.Markers = append([]string(nil), e.Survey.Affirmative.Markers...)
		s.Negative.Markers = append([]string(nil), e.Survey.Negative.Markers...)
		out.Survey = &s
	}
	return out
}

// Fallback holds the no-match data. The agent persona rotates through
// OffTopic; the lead persona always answers Summary and Detail.
type Fallback struct {
	OffTopic []string `yaml:"offTopic"`
	Summary  string   `yaml:"summary"`
	Detail   string   `yaml:"detail"`
}

const compoundSep = "-"

func CompoundKey(prefix, suffix string) string {
	return prefix + compoundSep + suffix
}

// IsCompoundKey reports whether key names a survey sub-answer rather than a
// top-level question.
func IsCompoundKey(key string) bool {
	return strings.Contains(key, compoundSep)
}
