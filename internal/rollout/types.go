// Package rollout reads the Codex CLI's on-disk session journals: one
// newline-delimited JSON file per session under
// <codex_home>/sessions/**/rollout-*.jsonl, plus the prompt history file
// <codex_home>/history.jsonl. All reads are forward-only and stateless;
// nothing is cached between calls.
package rollout

import (
	"encoding/json"
	"time"
)

// SessionSummary describes one past Codex session discovered in the journal.
type SessionSummary struct {
	SessionID   string
	StartedAt   *time.Time
	Cwd         string
	Originator  string
	RolloutPath string
	// Title is the first line of the first user message, truncated to 120
	// characters. Empty when the rollout has no user message.
	Title string
}

// ConversationMessage is one turn within a session.
type ConversationMessage struct {
	SessionID string
	Timestamp *time.Time
	Role      string
	Text      string
	Phase     string
}

// PromptHistoryEntry is one accepted row from history.jsonl.
type PromptHistoryEntry struct {
	SessionID string
	Ts        float64
	Text      string
}

// DefaultIncludeRoles is the role filter applied by ReadSessionMessages
// when the caller passes none.
var DefaultIncludeRoles = []string{"user", "assistant", "developer"}

// rolloutLine is the top-level shape of a journal record. Unknown types are
// skipped; only session_meta and response_item records are interpreted.
type rolloutLine struct {
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// sessionMeta is the payload of a session_meta record.
type sessionMeta struct {
	ID         string `json:"id"`
	Cwd        string `json:"cwd"`
	Originator string `json:"originator"`
	Timestamp  string `json:"timestamp"`
}

// messagePayload is the payload of a response_item record. Only
// type=="message" payloads are interpreted.
type messagePayload struct {
	Type    string        `json:"type"`
	Role    string        `json:"role"`
	Phase   string        `json:"phase"`
	Content []contentItem `json:"content"`
}

type contentItem struct {
	Text string `json:"text"`
}
