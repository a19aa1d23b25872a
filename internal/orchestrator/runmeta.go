package orchestrator

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/andywolf/codexd/internal/runner"
)

// persistRunMeta writes <repo_root>/.codex-orchestrator/runs/<job_id>.json
// at job-creation time: the durable record of every orchestrator-initiated
// run, usable for audit after the in-memory registry is gone.
func (o *Orchestrator) persistRunMeta(job *runner.Snapshot, kind string, outputs map[string]any) error {
	dir := RunsDir(o.repoRoot)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create runs dir: %w", err)
	}
	payload := map[string]any{
		"job_id":     job.ID,
		"kind":       kind,
		"created_at": formatTimestamp(job.CreatedAt),
		"command":    job.Command,
		"workdir":    job.Cwd,
		"codex_home": job.CodexHome,
		"outputs":    outputs,
	}
	data, err := marshalPrettySorted(payload)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, job.ID+".json"), data, 0644)
}
