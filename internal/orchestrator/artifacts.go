package orchestrator

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// OrchestratorDirName is the on-repo directory all workflow artifacts live
// under.
const OrchestratorDirName = ".codex-orchestrator"

// InsightsArtifact is the output of a phase-one run: a markdown summary and
// the raw JSON the agent returned.
type InsightsArtifact struct {
	ArtifactID   string
	SessionID    string
	MarkdownPath string
	JSONPath     string
	CreatedAt    time.Time
}

// ProposalArtifact is the output of a phase-two run: a unified diff plus
// metadata.
type ProposalArtifact struct {
	ProposalID string
	SessionID  string
	DiffPath   string
	MetaPath   string
	CreatedAt  time.Time
}

// InsightSummary is a listing entry for artifacts discovered on disk.
type InsightSummary struct {
	ArtifactID   string
	MarkdownPath string
	JSONPath     string
}

// Root returns <repo_root>/.codex-orchestrator.
func Root(repoRoot string) string {
	return filepath.Join(repoRoot, OrchestratorDirName)
}

// InsightsDir returns the artifact directory for one session's insights.
func InsightsDir(repoRoot, sessionID string) string {
	return filepath.Join(Root(repoRoot), "insights", sessionID)
}

// ProposalsDir returns the artifact directory for one proposal.
func ProposalsDir(repoRoot, proposalID string) string {
	return filepath.Join(Root(repoRoot), "proposals", proposalID)
}

// RunsDir returns the run-metadata directory.
func RunsDir(repoRoot string) string {
	return filepath.Join(Root(repoRoot), "runs")
}

// timestampSlug renders the artifact filename prefix, e.g. 20260205-203108Z.
// The trailing Z doubles as the separator in front of the artifact id.
func timestampSlug(t time.Time) string {
	return t.UTC().Format("20060102-150405") + "Z"
}

// artifactIDFromStem recovers the artifact id from a filename stem of the
// form <slug>Z-<id>. Splitting on the slug terminator keeps the id intact
// whatever its length; stems without a separator are returned whole.
func artifactIDFromStem(stem string) string {
	if idx := strings.Index(stem, "Z-"); idx >= 0 {
		return stem[idx+2:]
	}
	return stem
}

// ListInsights enumerates the insight artifacts recorded for a session,
// newest filename first. Sessions with no artifacts yield an empty list.
func ListInsights(repoRoot, sessionID string) []InsightSummary {
	base := InsightsDir(repoRoot, sessionID)
	matches, err := filepath.Glob(filepath.Join(base, "*.json"))
	if err != nil {
		return nil
	}
	sort.Sort(sort.Reverse(sort.StringSlice(matches)))

	out := make([]InsightSummary, 0, len(matches))
	for _, js := range matches {
		stem := strings.TrimSuffix(filepath.Base(js), ".json")
		out = append(out, InsightSummary{
			ArtifactID:   artifactIDFromStem(stem),
			MarkdownPath: strings.TrimSuffix(js, ".json") + ".md",
			JSONPath:     js,
		})
	}
	return out
}

// FindInsightPaths locates the markdown and JSON files for one artifact id.
// Either path is empty when the corresponding file does not exist.
func FindInsightPaths(repoRoot, sessionID, artifactID string) (mdPath, jsonPath string) {
	base := InsightsDir(repoRoot, sessionID)
	if mds, _ := filepath.Glob(filepath.Join(base, "*-"+artifactID+".md")); len(mds) > 0 {
		mdPath = mds[0]
	}
	if jss, _ := filepath.Glob(filepath.Join(base, "*-"+artifactID+".json")); len(jss) > 0 {
		jsonPath = jss[0]
	}
	return mdPath, jsonPath
}

// ReadLastMessage reads the agent's final output file, trimmed. Missing or
// empty files yield "".
func ReadLastMessage(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
