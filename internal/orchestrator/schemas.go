package orchestrator

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
)

//go:embed schemas/insights.schema.json
var insightsSchema []byte

//go:embed schemas/proposal.schema.json
var proposalSchema []byte

// ensureSchemas materializes the embedded output schemas under the
// orchestrator root so the agent binary gets real --output-schema paths.
// Existing files are rewritten; the schemas are versioned with the binary,
// not with the repository.
func ensureSchemas(repoRoot string) (insightsPath, proposalPath string, err error) {
	dir := filepath.Join(Root(repoRoot), "schemas")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", fmt.Errorf("create schemas dir: %w", err)
	}
	insightsPath = filepath.Join(dir, "insights.schema.json")
	proposalPath = filepath.Join(dir, "proposal.schema.json")
	if err := os.WriteFile(insightsPath, insightsSchema, 0644); err != nil {
		return "", "", fmt.Errorf("write insights schema: %w", err)
	}
	if err := os.WriteFile(proposalPath, proposalSchema, 0644); err != nil {
		return "", "", fmt.Errorf("write proposal schema: %w", err)
	}
	return insightsPath, proposalPath, nil
}
