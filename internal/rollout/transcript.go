package rollout

import "strings"

// DefaultTranscriptChars caps rendered transcripts embedded into prompts.
const DefaultTranscriptChars = 60_000

// RenderTranscript renders messages as a plain-text transcript suitable for
// embedding into a prompt. Each message becomes a "[role][phase]\nbody\n"
// block; blocks are joined by blank lines. Rendering stops before the block
// that would exceed maxChars; messages are never split.
func RenderTranscript(messages []ConversationMessage, maxChars int) string {
	var chunks []string
	remaining := maxChars
	for _, msg := range messages {
		header := "[" + msg.Role + "]"
		if msg.Phase != "" {
			header += "[" + msg.Phase + "]"
		}
		piece := header + "\n" + strings.TrimSpace(msg.Text) + "\n"
		if len(piece) > remaining {
			break
		}
		chunks = append(chunks, piece)
		remaining -= len(piece)
	}
	if len(chunks) == 0 {
		return ""
	}
	return strings.TrimSpace(strings.Join(chunks, "\n"))
}
