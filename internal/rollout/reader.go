package rollout

import (
	"bufio"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/andywolf/codexd/internal/paths"
)

// maxLineBytes bounds a single journal line. Rollout lines carry full tool
// outputs and can be large.
const maxLineBytes = 10 * 1024 * 1024

// iterRolloutFiles returns every rollout-*.jsonl file under the sessions
// directory, in walk order. A missing sessions directory yields nil.
func iterRolloutFiles(codexHome string) []string {
	sessionsDir := filepath.Join(codexHome, "sessions")
	var files []string
	_ = filepath.WalkDir(sessionsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, "rollout-") && strings.HasSuffix(name, ".jsonl") {
			files = append(files, path)
		}
		return nil
	})
	return files
}

// ParseTimestamp parses journal timestamps of the form
// "2026-02-05T20:31:08.228Z" (or with an explicit offset). Malformed values
// yield nil, never an error.
func ParseTimestamp(value string) *time.Time {
	if value == "" {
		return nil
	}
	if strings.HasSuffix(value, "Z") {
		value = value[:len(value)-1] + "+00:00"
	}
	for _, layout := range []string{
		"2006-01-02T15:04:05.999999999-07:00",
		"2006-01-02T15:04:05-07:00",
	} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}

// flattenContent joins the text fields of a message payload's content
// blocks with newlines, trimmed.
func flattenContent(payload *messagePayload) string {
	var parts []string
	for _, item := range payload.Content {
		if item.Text != "" {
			parts = append(parts, item.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// scanLines visits each non-empty line of a journal file. The callback
// returns false to stop early. Any I/O or JSON error aborts the file; the
// caller keeps whatever it accumulated before the error.
func scanLines(path string, visit func(line []byte) (keepGoing bool, err error)) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		keepGoing, err := visit([]byte(line))
		if err != nil || !keepGoing {
			return
		}
	}
}

// readFirstMeta scans forward to the first session_meta record. Files
// without one (or with an unreadable line before it) yield nil.
func readFirstMeta(path string) *sessionMeta {
	var meta *sessionMeta
	scanLines(path, func(line []byte) (bool, error) {
		var rec rolloutLine
		if err := json.Unmarshal(line, &rec); err != nil {
			return false, err
		}
		if rec.Type != "session_meta" || len(rec.Payload) == 0 {
			return true, nil
		}
		var payload sessionMeta
		if err := json.Unmarshal(rec.Payload, &payload); err != nil {
			return false, err
		}
		meta = &payload
		return false, nil
	})
	return meta
}

// readFirstUserTitle scans forward to the first user message and returns
// its first line, truncated to 120 characters. Empty when none is found.
func readFirstUserTitle(path string) string {
	title := ""
	scanLines(path, func(line []byte) (bool, error) {
		var rec rolloutLine
		if err := json.Unmarshal(line, &rec); err != nil {
			return false, err
		}
		if rec.Type != "response_item" || len(rec.Payload) == 0 {
			return true, nil
		}
		var payload messagePayload
		if err := json.Unmarshal(rec.Payload, &payload); err != nil {
			return false, err
		}
		if payload.Type != "message" || payload.Role != "user" {
			return true, nil
		}
		text := flattenContent(&payload)
		if text == "" {
			return true, nil
		}
		first := strings.SplitN(text, "\n", 2)[0]
		runes := []rune(first)
		if len(runes) > 120 {
			runes = runes[:120]
		}
		title = string(runes)
		return false, nil
	})
	return title
}

// cwdWithinRepo reports whether cwd equals repoRoot or has repoRoot as an
// ancestor, after canonicalization.
func cwdWithinRepo(cwd, repoRoot string) bool {
	rel, err := filepath.Rel(repoRoot, paths.Canonical(cwd))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// ListSessions enumerates sessions found in the journal, newest first.
// Files without a usable session_meta are skipped. When includeAllRepos is
// false and repoRoot is non-empty, only sessions whose recorded cwd is the
// repo root or a descendant of it are included; sessions with no recorded
// cwd are always included.
func ListSessions(codexHome, repoRoot string, includeAllRepos bool, limit int) []SessionSummary {
	repoRootResolved := ""
	if repoRoot != "" {
		repoRootResolved = paths.Canonical(repoRoot)
	}

	var summaries []SessionSummary
	for _, path := range iterRolloutFiles(codexHome) {
		meta := readFirstMeta(path)
		if meta == nil || meta.ID == "" {
			continue
		}
		if !includeAllRepos && repoRootResolved != "" && meta.Cwd != "" {
			if !cwdWithinRepo(meta.Cwd, repoRootResolved) {
				continue
			}
		}
		summaries = append(summaries, SessionSummary{
			SessionID:   meta.ID,
			StartedAt:   ParseTimestamp(meta.Timestamp),
			Cwd:         meta.Cwd,
			Originator:  meta.Originator,
			RolloutPath: path,
			Title:       readFirstUserTitle(path),
		})
	}

	// Newest first; sessions without a timestamp sort last.
	sort.SliceStable(summaries, func(i, j int) bool {
		si, sj := summaries[i].StartedAt, summaries[j].StartedAt
		switch {
		case si != nil && sj != nil:
			return si.After(*sj)
		case si != nil:
			return true
		default:
			return false
		}
	})
	if limit >= 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries
}

// FindRolloutBySession returns the path of the first rollout file whose
// session_meta id matches, or "" when none does.
func FindRolloutBySession(codexHome, sessionID string) string {
	for _, path := range iterRolloutFiles(codexHome) {
		if meta := readFirstMeta(path); meta != nil && meta.ID == sessionID {
			return path
		}
	}
	return ""
}

// ReadSessionMessages returns the ordered transcript of one session,
// keeping response_item messages whose role is in includeRoles (nil means
// user/assistant/developer) and dropping empty-text messages. Messages are
// sorted ascending by timestamp; messages without one sort first, stable on
// file order within ties.
func ReadSessionMessages(codexHome, sessionID string, includeRoles []string) []ConversationMessage {
	path := FindRolloutBySession(codexHome, sessionID)
	if path == "" {
		return nil
	}
	if includeRoles == nil {
		includeRoles = DefaultIncludeRoles
	}
	roles := make(map[string]bool, len(includeRoles))
	for _, r := range includeRoles {
		roles[r] = true
	}

	var messages []ConversationMessage
	scanLines(path, func(line []byte) (bool, error) {
		var rec rolloutLine
		if err := json.Unmarshal(line, &rec); err != nil {
			return false, err
		}
		if rec.Type != "response_item" || len(rec.Payload) == 0 {
			return true, nil
		}
		var payload messagePayload
		if err := json.Unmarshal(rec.Payload, &payload); err != nil {
			return false, err
		}
		if payload.Type != "message" || !roles[payload.Role] {
			return true, nil
		}
		text := flattenContent(&payload)
		if text == "" {
			return true, nil
		}
		messages = append(messages, ConversationMessage{
			SessionID: sessionID,
			Timestamp: ParseTimestamp(rec.Timestamp),
			Role:      payload.Role,
			Text:      text,
			Phase:     payload.Phase,
		})
		return true, nil
	})

	sortMessages(messages)
	return messages
}

// ReadConversationMessages aggregates user/assistant messages across all
// sessions visible for the repo filter, globally ordered by timestamp and
// truncated to limit. Intended for dashboards and debugging.
func ReadConversationMessages(codexHome, repoRoot string, includeAllRepos bool, limit int) []ConversationMessage {
	sessions := ListSessions(codexHome, repoRoot, includeAllRepos, -1)
	var out []ConversationMessage
	for _, s := range sessions {
		out = append(out, ReadSessionMessages(codexHome, s.SessionID, []string{"user", "assistant"})...)
		if limit >= 0 && len(out) >= limit {
			break
		}
	}
	sortMessages(out)
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func sortMessages(messages []ConversationMessage) {
	sort.SliceStable(messages, func(i, j int) bool {
		return messageSortKey(messages[i]) < messageSortKey(messages[j])
	})
}

func messageSortKey(m ConversationMessage) float64 {
	if m.Timestamp == nil {
		return 0
	}
	return float64(m.Timestamp.UnixNano()) / float64(time.Second)
}
