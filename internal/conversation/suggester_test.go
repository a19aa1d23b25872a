package conversation

import (
	"context"
	"testing"
	"time"
)

// memStore is an in-memory Store for tests.
type memStore struct {
	events map[string][]StoredEvent
}

func newMemStore() *memStore {
	return &memStore{events: make(map[string][]StoredEvent)}
}

func (m *memStore) SaveEvents(_ context.Context, sessionID string, events []Event) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, e := range events {
		m.events[sessionID] = append(m.events[sessionID], StoredEvent{
			SessionID: sessionID,
			Speaker:   e.Speaker,
			Message:   e.Message,
			Timestamp: e.Timestamp,
			Source:    e.Source,
			CreatedAt: now,
		})
	}
	return nil
}

func (m *memStore) History(_ context.Context, sessionID string) ([]StoredEvent, error) {
	return m.events[sessionID], nil
}

func always() bool { return true }
func never() bool  { return false }

func testSkills(t *testing.T) []Skill {
	t.Helper()
	skills, err := LoadSkills("")
	if err != nil {
		t.Fatal(err)
	}
	return skills
}

func TestSuggesterStoresWithoutSuggesting(t *testing.T) {
	store := newMemStore()
	s := NewSuggester(store, testSkills(t)).WithSampler(never)

	got, err := s.IngestAndSuggest(context.Background(), "s1", []Event{
		{Speaker: "user", Message: "hello"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusOK || got.Skill != nil {
		t.Errorf("unexpected suggestion: %+v", got)
	}
	if len(store.events["s1"]) != 1 {
		t.Errorf("expected 1 stored event, got %d", len(store.events["s1"]))
	}
}

func TestSuggesterMatchesExistingSkill(t *testing.T) {
	store := newMemStore()
	s := NewSuggester(store, testSkills(t)).WithSampler(always)

	got, err := s.IngestAndSuggest(context.Background(), "s1", []Event{
		{Speaker: "user", Message: "please use a parameterized SQL query here"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusExistingSkill {
		t.Fatalf("expected existing-skill suggestion, got %s", got.Status)
	}
	if got.Skill == nil || got.Skill.Name != "db-access" {
		t.Errorf("unexpected skill: %+v", got.Skill)
	}
}

func TestSuggesterHistoryAccumulatesAcrossIngests(t *testing.T) {
	store := newMemStore()
	s := NewSuggester(store, testSkills(t))

	s.WithSampler(never)
	if _, err := s.IngestAndSuggest(context.Background(), "s1", []Event{
		{Speaker: "user", Message: "the findings report needs a summary"},
	}); err != nil {
		t.Fatal(err)
	}

	// The keyword from the earlier ingest still matches later.
	s.WithSampler(always)
	got, err := s.IngestAndSuggest(context.Background(), "s1", []Event{
		{Speaker: "user", Message: "unrelated message"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusExistingSkill || got.Skill == nil || got.Skill.Name != "report-writer" {
		t.Errorf("expected report-writer from history, got %+v", got)
	}
}

func TestSuggesterFallsBackToNewSkill(t *testing.T) {
	store := newMemStore()
	s := NewSuggester(store, testSkills(t)).WithSampler(always)

	got, err := s.IngestAndSuggest(context.Background(), "s1", []Event{
		{Speaker: "user", Message: "nothing matches any keyword"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusNewSkill {
		t.Fatalf("expected new-skill suggestion, got %s", got.Status)
	}
	if got.Skill == nil || got.Skill.Name != "style-guard" {
		t.Errorf("unexpected skill: %+v", got.Skill)
	}
}

func TestLoadSkillsRejectsMissingManifest(t *testing.T) {
	if _, err := LoadSkills("/nonexistent/manifest.yaml"); err == nil {
		t.Error("expected error for missing manifest file")
	}
}
