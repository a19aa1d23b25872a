package rollout

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadPromptHistorySkipsInvalidRows(t *testing.T) {
	codexHome := t.TempDir()
	content := `{"session_id":"s1","ts":10,"text":"hello"}
{"session_id":"s2","ts":20,"text":"world"}
{"bad":"row"}
`
	if err := os.WriteFile(filepath.Join(codexHome, "history.jsonl"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	entries := ReadPromptHistory(codexHome, DefaultHistoryLimit)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].SessionID != "s1" || entries[0].Text != "hello" {
		t.Errorf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].SessionID != "s2" || entries[1].Text != "world" {
		t.Errorf("unexpected second entry: %+v", entries[1])
	}
}

func TestReadPromptHistoryOrdersAndLimits(t *testing.T) {
	codexHome := t.TempDir()
	content := `{"session_id":"s3","ts":30,"text":"c"}
{"session_id":"s1","ts":10,"text":"a"}
{"session_id":"s2","ts":20,"text":"b"}
`
	if err := os.WriteFile(filepath.Join(codexHome, "history.jsonl"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	entries := ReadPromptHistory(codexHome, 2)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	// The first two accepted rows, sorted ascending by ts.
	if entries[0].Ts != 10 || entries[1].Ts != 30 {
		t.Errorf("unexpected ts order: %v, %v", entries[0].Ts, entries[1].Ts)
	}
}

func TestReadPromptHistoryMissingFile(t *testing.T) {
	if entries := ReadPromptHistory(t.TempDir(), DefaultHistoryLimit); len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}
