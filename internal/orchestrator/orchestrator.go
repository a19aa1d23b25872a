// Package orchestrator composes two-phase Codex workflows: an insights run
// over a past session, then a change proposal constrained to the skills
// allow-list, finally applied via git. Each phase launches a headless
// Runner job and finalizes its artifacts asynchronously once the job
// reaches a terminal state.
package orchestrator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/andywolf/codexd/internal/rollout"
	"github.com/andywolf/codexd/internal/runner"
)

// RunMode selects how a workflow relates to the prior session. Fork mode
// starts a fresh session seeded with the rendered transcript; resume mode
// hands the session id to the agent so it continues natively.
type RunMode string

const (
	ModeFork   RunMode = "fork"
	ModeResume RunMode = "resume"
)

// Valid reports whether the mode is one of the two recognized values.
func (m RunMode) Valid() bool { return m == ModeFork || m == ModeResume }

// defaultPollInterval is how often finalizers sample job status. The Runner
// exposes snapshots, not completion events, so polling it is.
const defaultPollInterval = 250 * time.Millisecond

// insightJSONLimit caps the serialized insight embedded into the proposal
// prompt.
const insightJSONLimit = 50_000

// Options configure an Orchestrator.
type Options struct {
	Runner *runner.Runner
	// PollInterval overrides the finalizer poll cadence (tests).
	PollInterval time.Duration
}

// Orchestrator owns the job-to-artifact maps and the workflow finalizers.
type Orchestrator struct {
	mu          sync.Mutex
	runner      *runner.Runner
	repoRoot    string
	codexHome   string
	poll        time.Duration
	jobInsight  map[string]InsightsArtifact
	jobProposal map[string]ProposalArtifact
}

// New creates an Orchestrator over the given Runner. Repo root and Codex
// home are taken from the Runner so both subsystems agree on layout.
func New(opts Options) *Orchestrator {
	poll := opts.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	return &Orchestrator{
		runner:      opts.Runner,
		repoRoot:    opts.Runner.RepoRoot(),
		codexHome:   opts.Runner.CodexHome(),
		poll:        poll,
		jobInsight:  make(map[string]InsightsArtifact),
		jobProposal: make(map[string]ProposalArtifact),
	}
}

// RepoRoot returns the repository root the orchestrator works against.
func (o *Orchestrator) RepoRoot() string { return o.repoRoot }

// InsightsRunRequest are the parameters of a phase-one run.
type InsightsRunRequest struct {
	SessionID string
	Prompt    string
	Mode      RunMode
	Workdir   string
	Model     string
}

// ProposalRunRequest are the parameters of a phase-two run.
type ProposalRunRequest struct {
	SessionID   string
	InsightJSON any
	Prompt      string
	Mode        RunMode
	Workdir     string
	Model       string
}

// StartInsightsRun launches phase one: a read-only Codex job that distills
// a prior session into an insights artifact. The artifact paths are
// declared up front; the finalizer fills them in once the job succeeds.
func (o *Orchestrator) StartInsightsRun(req InsightsRunRequest) (*runner.Snapshot, InsightsArtifact, error) {
	outDir := InsightsDir(o.repoRoot, req.SessionID)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, InsightsArtifact{}, fmt.Errorf("create insights dir: %w", err)
	}

	now := time.Now().UTC()
	artifactID := uuid.NewString()
	slug := timestampSlug(now)
	artifact := InsightsArtifact{
		ArtifactID:   artifactID,
		SessionID:    req.SessionID,
		MarkdownPath: filepath.Join(outDir, slug+"-"+artifactID+".md"),
		JSONPath:     filepath.Join(outDir, slug+"-"+artifactID+".json"),
		CreatedAt:    now,
	}

	schemaPath, _, err := ensureSchemas(o.repoRoot)
	if err != nil {
		return nil, InsightsArtifact{}, err
	}

	job, err := o.runner.CreateJob(runner.JobRequest{
		Task:             o.buildInsightsTask(req),
		Workdir:          req.Workdir,
		Sandbox:          runner.SandboxReadOnly,
		Approval:         runner.ApprovalNever,
		Model:            req.Model,
		OutputSchemaPath: schemaPath,
		ResumeSessionID:  resumeID(req.Mode, req.SessionID),
	})
	if err != nil {
		return nil, InsightsArtifact{}, err
	}

	o.mu.Lock()
	o.jobInsight[job.ID] = artifact
	o.mu.Unlock()

	if err := o.persistRunMeta(job, "insights", map[string]any{"artifact_id": artifactID}); err != nil {
		log.Printf("[orchestrator] job %s: persist run meta: %v", job.ID, err)
	}
	go o.finalizeInsights(job.ID)
	return job, artifact, nil
}

// StartProposalRun launches phase two: a read-only Codex job that turns an
// insights artifact into a unified diff against the allow-listed paths.
func (o *Orchestrator) StartProposalRun(req ProposalRunRequest) (*runner.Snapshot, ProposalArtifact, error) {
	proposalID := uuid.NewString()
	outDir := ProposalsDir(o.repoRoot, proposalID)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, ProposalArtifact{}, fmt.Errorf("create proposal dir: %w", err)
	}

	artifact := ProposalArtifact{
		ProposalID: proposalID,
		SessionID:  req.SessionID,
		DiffPath:   filepath.Join(outDir, "proposal.diff"),
		MetaPath:   filepath.Join(outDir, "meta.json"),
		CreatedAt:  time.Now().UTC(),
	}

	_, schemaPath, err := ensureSchemas(o.repoRoot)
	if err != nil {
		return nil, ProposalArtifact{}, err
	}

	job, err := o.runner.CreateJob(runner.JobRequest{
		Task:             o.buildProposalTask(req),
		Workdir:          req.Workdir,
		Sandbox:          runner.SandboxReadOnly,
		Approval:         runner.ApprovalNever,
		Model:            req.Model,
		OutputSchemaPath: schemaPath,
		ResumeSessionID:  resumeID(req.Mode, req.SessionID),
	})
	if err != nil {
		return nil, ProposalArtifact{}, err
	}

	o.mu.Lock()
	o.jobProposal[job.ID] = artifact
	o.mu.Unlock()

	if err := o.persistRunMeta(job, "proposal", map[string]any{"proposal_id": proposalID}); err != nil {
		log.Printf("[orchestrator] job %s: persist run meta: %v", job.ID, err)
	}
	go o.finalizeProposal(job.ID)
	return job, artifact, nil
}

// InsightsArtifactForJob returns the artifact registered for a job id.
func (o *Orchestrator) InsightsArtifactForJob(jobID string) (InsightsArtifact, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	a, ok := o.jobInsight[jobID]
	return a, ok
}

// ProposalArtifactForJob returns the artifact registered for a job id.
func (o *Orchestrator) ProposalArtifactForJob(jobID string) (ProposalArtifact, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	a, ok := o.jobProposal[jobID]
	return a, ok
}

func resumeID(mode RunMode, sessionID string) string {
	if mode == ModeResume {
		return sessionID
	}
	return ""
}

// awaitTerminal polls until the job leaves queued/running, then returns the
// final snapshot (nil when the job vanished).
func (o *Orchestrator) awaitTerminal(jobID string) *runner.Snapshot {
	for {
		job := o.runner.GetJob(jobID)
		if job == nil {
			return nil
		}
		if job.Status.Terminal() {
			return job
		}
		time.Sleep(o.poll)
	}
}

// finalizeInsights persists the insights artifact once its job succeeds.
// Anything short of a parsed final message leaves a partial artifact: the
// JSON is written when it parses, the markdown only when the payload
// carries a non-empty insights_markdown string.
func (o *Orchestrator) finalizeInsights(jobID string) {
	artifact, ok := o.InsightsArtifactForJob(jobID)
	if !ok {
		return
	}
	job := o.awaitTerminal(jobID)
	if job == nil || job.Status != runner.StatusSucceeded {
		return
	}

	last := ReadLastMessage(job.LastMessagePath)
	if last == "" {
		return
	}
	var payload any
	if err := json.Unmarshal([]byte(last), &payload); err != nil {
		log.Printf("[orchestrator] job %s: final message is not JSON: %v", jobID, err)
		return
	}

	data, err := marshalPrettySorted(payload)
	if err != nil {
		return
	}
	if err := os.WriteFile(artifact.JSONPath, data, 0644); err != nil {
		log.Printf("[orchestrator] job %s: write insights json: %v", jobID, err)
		return
	}
	if obj, ok := payload.(map[string]any); ok {
		if md, ok := obj["insights_markdown"].(string); ok && trimmed(md) != "" {
			if err := os.WriteFile(artifact.MarkdownPath, []byte(trimmed(md)+"\n"), 0644); err != nil {
				log.Printf("[orchestrator] job %s: write insights markdown: %v", jobID, err)
			}
		}
	}
}

// finalizeProposal persists the diff and meta.json once its job succeeds.
// A final message without a non-empty diff string writes nothing.
func (o *Orchestrator) finalizeProposal(jobID string) {
	artifact, ok := o.ProposalArtifactForJob(jobID)
	if !ok {
		return
	}
	job := o.awaitTerminal(jobID)
	if job == nil || job.Status != runner.StatusSucceeded {
		return
	}

	last := ReadLastMessage(job.LastMessagePath)
	if last == "" {
		return
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(last), &payload); err != nil {
		log.Printf("[orchestrator] job %s: final message is not JSON: %v", jobID, err)
		return
	}

	diff, _ := payload["diff"].(string)
	if trimmed(diff) == "" {
		return
	}
	if err := os.WriteFile(artifact.DiffPath, []byte(trimmed(diff)+"\n"), 0644); err != nil {
		log.Printf("[orchestrator] job %s: write proposal diff: %v", jobID, err)
		return
	}

	meta := map[string]any{
		"proposal_id":   artifact.ProposalID,
		"session_id":    artifact.SessionID,
		"created_at":    formatTimestamp(artifact.CreatedAt),
		"job_id":        jobID,
		"summary":       payload["summary"],
		"files_touched": payload["files_touched"],
		"safety_notes":  payload["safety_notes"],
	}
	data, err := marshalPrettySorted(meta)
	if err != nil {
		return
	}
	if err := os.WriteFile(artifact.MetaPath, data, 0644); err != nil {
		log.Printf("[orchestrator] job %s: write proposal meta: %v", jobID, err)
	}
}

// transcriptFor renders the prior session's transcript for fork-mode
// prompts. Empty in resume mode or when the session has no messages.
func (o *Orchestrator) transcriptFor(mode RunMode, sessionID string) string {
	if mode != ModeFork {
		return ""
	}
	messages := rollout.ReadSessionMessages(o.codexHome, sessionID, nil)
	return rollout.RenderTranscript(messages, rollout.DefaultTranscriptChars)
}

// marshalPrettySorted serializes with two-space indentation, sorted object
// keys, no HTML escaping and a trailing newline. Writing then re-reading an
// artifact is a fixed point of this encoding.
func marshalPrettySorted(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// formatTimestamp renders UTC ISO-8601 with a Z offset.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
