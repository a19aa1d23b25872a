package conversation

import (
	"context"
	"math/rand"
	"strings"
)

// Suggestion statuses returned by IngestAndSuggest.
const (
	StatusOK            = "ok"
	StatusExistingSkill = "suggested_existing_skill"
	StatusNewSkill      = "suggested_new_skill"
)

// SkillRef identifies a skill in a suggestion.
type SkillRef struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

// Suggestion is the outcome of one ingest.
type Suggestion struct {
	Status  string    `json:"status"`
	Message string    `json:"message,omitempty"`
	Skill   *SkillRef `json:"skill,omitempty"`
}

// Suggester stores conversation events and occasionally proposes a skill
// to create or update based on the session's accumulated history.
type Suggester struct {
	store  Store
	skills []Skill
	// sample gates how often a suggestion is attempted; roughly one in
	// three ingests by default.
	sample func() bool
}

// NewSuggester builds a Suggester over the given store and skill manifest.
func NewSuggester(store Store, skills []Skill) *Suggester {
	return &Suggester{
		store:  store,
		skills: skills,
		sample: func() bool { return rand.Intn(3) == 0 },
	}
}

// WithSampler overrides the suggestion gate (tests).
func (s *Suggester) WithSampler(sample func() bool) *Suggester {
	s.sample = sample
	return s
}

// IngestAndSuggest stores the events, then on sampled requests scans
// the session history for skill keywords. A keyword hit suggests updating
// the existing skill; otherwise a new-skill stub is proposed.
func (s *Suggester) IngestAndSuggest(ctx context.Context, sessionID string, events []Event) (Suggestion, error) {
	if err := s.store.SaveEvents(ctx, sessionID, events); err != nil {
		return Suggestion{}, err
	}
	history, err := s.store.History(ctx, sessionID)
	if err != nil {
		return Suggestion{}, err
	}

	if !s.sample() {
		return Suggestion{Status: StatusOK}, nil
	}

	var sb strings.Builder
	for _, item := range history {
		sb.WriteString(item.Message)
		sb.WriteString(" ")
	}
	historyText := strings.ToLower(sb.String())

	for _, skill := range s.skills {
		for _, keyword := range skill.Keywords {
			if strings.Contains(historyText, strings.ToLower(keyword)) {
				return Suggestion{
					Status:  StatusExistingSkill,
					Message: "Consider updating the existing skill '" + skill.Name + "'.",
					Skill:   &SkillRef{Name: skill.Name, Path: skill.Path, Description: skill.Description},
				}, nil
			}
		}
	}

	return Suggestion{
		Status:  StatusNewSkill,
		Message: "Consider creating a new skill from this repeated correction.",
		Skill: &SkillRef{
			Name:        "style-guard",
			Path:        ".codex/skills/style-guard/SKILL.md",
			Description: "Style guardrails learned from conversation corrections.",
		},
	}, nil
}
