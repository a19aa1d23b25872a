package rollout

import (
	"encoding/json"
	"path/filepath"
	"sort"
)

// DefaultHistoryLimit is the limit the prompt-history route applies when the
// request gives none. ReadPromptHistory itself reads without bound when
// limit <= 0.
const DefaultHistoryLimit = 500

// ReadPromptHistory is a best-effort reader for <codex_home>/history.jsonl.
// Each accepted line must carry a string session_id, a string text and a
// numeric ts; other lines are skipped. Reading stops once limit entries are
// accepted. Entries are returned ascending by ts.
func ReadPromptHistory(codexHome string, limit int) []PromptHistoryEntry {
	path := filepath.Join(codexHome, "history.jsonl")

	var entries []PromptHistoryEntry
	scanLines(path, func(line []byte) (bool, error) {
		var row map[string]any
		if err := json.Unmarshal(line, &row); err != nil {
			return true, nil
		}
		sessionID, ok := row["session_id"].(string)
		if !ok {
			return true, nil
		}
		text, ok := row["text"].(string)
		if !ok {
			return true, nil
		}
		ts, ok := row["ts"].(float64)
		if !ok {
			return true, nil
		}
		entries = append(entries, PromptHistoryEntry{SessionID: sessionID, Ts: ts, Text: text})
		return limit <= 0 || len(entries) < limit, nil
	})

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Ts < entries[j].Ts })
	return entries
}
