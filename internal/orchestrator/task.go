package orchestrator

import "strings"

func trimmed(s string) string { return strings.TrimSpace(s) }

// buildInsightsTask composes the phase-one prompt: the schema contract, the
// rendered transcript in fork mode, then the caller's prompt.
func (o *Orchestrator) buildInsightsTask(req InsightsRunRequest) string {
	base := []string{
		"You are generating *insights* to help improve this repository's Codex skills and AGENTS.md.",
		"Return ONLY a JSON object matching the provided output schema.",
	}
	if transcript := o.transcriptFor(req.Mode, req.SessionID); transcript != "" {
		base = append(base, "", "Conversation transcript:", transcript)
	}
	base = append(base, "", "User prompt:", trimmed(req.Prompt))
	return trimmed(strings.Join(base, "\n")) + "\n"
}

// buildProposalTask composes the phase-two prompt: the diff contract and
// allow-list, the serialized insight (truncated), the transcript in fork
// mode, then the caller's optional prompt.
func (o *Orchestrator) buildProposalTask(req ProposalRunRequest) string {
	insight := "{}"
	if data, err := marshalPrettySorted(req.InsightJSON); err == nil {
		insight = strings.TrimRight(string(data), "\n")
		if len(insight) > insightJSONLimit {
			insight = insight[:insightJSONLimit]
		}
	}

	base := []string{
		"You are proposing changes to make Codex more effective on this repository.",
		"You MUST output a unified diff in the `diff` field of the JSON schema.",
		"Allowed paths: `.codex/skills/**` and `AGENTS.md` only.",
		"Return ONLY a JSON object matching the provided output schema.",
		"",
		"Insights (JSON):",
		insight,
	}
	if transcript := o.transcriptFor(req.Mode, req.SessionID); transcript != "" {
		base = append(base, "", "Conversation transcript:", transcript)
	}
	if req.Prompt != "" {
		base = append(base, "", "Additional user prompt:", trimmed(req.Prompt))
	}
	return trimmed(strings.Join(base, "\n")) + "\n"
}
