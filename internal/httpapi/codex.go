package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/andywolf/codexd/internal/orchestrator"
	"github.com/andywolf/codexd/internal/runner"
)

const (
	defaultJobTail = 200
	maxJobTail     = 2000
)

type execRequest struct {
	Task             string   `json:"task"`
	Workdir          string   `json:"workdir"`
	Sandbox          string   `json:"sandbox"`
	Approval         string   `json:"approval"`
	Model            string   `json:"model"`
	OSS              bool     `json:"oss"`
	LocalProvider    string   `json:"local_provider"`
	Profile          string   `json:"profile"`
	ConfigOverrides  []string `json:"config_overrides"`
	OutputSchemaPath string   `json:"output_schema_path"`
	SkipGitRepoCheck bool     `json:"skip_git_repo_check"`
	MaxOutputLines   int      `json:"max_output_lines"`
}

type jobResponse struct {
	ID         string           `json:"id"`
	Status     string           `json:"status"`
	Returncode *int             `json:"returncode"`
	TaskID     *string          `json:"task_id"`
	Command    []string         `json:"command"`
	CodexHome  string           `json:"codex_home"`
	CreatedAt  string           `json:"created_at"`
	StartedAt  *string          `json:"started_at"`
	FinishedAt *string          `json:"finished_at"`
	LastMsg    *string          `json:"last_message"`
	StdoutTail []string         `json:"stdout_tail"`
	StderrTail []string         `json:"stderr_tail"`
	EventsTail []map[string]any `json:"events_tail"`
}

func toJobResponse(job *runner.Snapshot) jobResponse {
	resp := jobResponse{
		ID:         job.ID,
		Status:     string(job.Status),
		Returncode: job.Returncode,
		TaskID:     strOrNil(job.TaskID),
		Command:    job.Command,
		CodexHome:  job.CodexHome,
		CreatedAt:  job.CreatedAt.UTC().Format(time.RFC3339Nano),
		StartedAt:  timeOrNil(job.StartedAt),
		FinishedAt: timeOrNil(job.FinishedAt),
		LastMsg:    strOrNil(orchestrator.ReadLastMessage(job.LastMessagePath)),
		StdoutTail: job.StdoutTail,
		StderrTail: job.StderrTail,
		EventsTail: job.EventsTail,
	}
	if resp.StdoutTail == nil {
		resp.StdoutTail = []string{}
	}
	if resp.StderrTail == nil {
		resp.StderrTail = []string{}
	}
	if resp.EventsTail == nil {
		resp.EventsTail = []map[string]any{}
	}
	return resp
}

var validSandboxes = map[string]bool{
	string(runner.SandboxReadOnly):       true,
	string(runner.SandboxWorkspaceWrite): true,
	string(runner.SandboxFullAccess):     true,
}

var validApprovals = map[string]bool{
	string(runner.ApprovalUntrusted): true,
	string(runner.ApprovalOnFailure): true,
	string(runner.ApprovalOnRequest): true,
	string(runner.ApprovalNever):     true,
}

var validLocalProviders = map[string]bool{"lmstudio": true, "ollama": true}

func (s *Server) handleExec(w http.ResponseWriter, r *http.Request) {
	var req execRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Task == "" {
		httpError(w, http.StatusBadRequest, "task is required")
		return
	}
	if req.Sandbox != "" && !validSandboxes[req.Sandbox] {
		httpError(w, http.StatusBadRequest, "invalid sandbox mode")
		return
	}
	if req.Approval != "" && !validApprovals[req.Approval] {
		httpError(w, http.StatusBadRequest, "invalid approval policy")
		return
	}
	if req.LocalProvider != "" && !validLocalProviders[req.LocalProvider] {
		httpError(w, http.StatusBadRequest, "invalid local provider")
		return
	}

	job, err := s.runner.CreateJob(runner.JobRequest{
		Task:             req.Task,
		Workdir:          req.Workdir,
		Sandbox:          runner.SandboxMode(req.Sandbox),
		Approval:         runner.ApprovalPolicy(req.Approval),
		Model:            req.Model,
		OSS:              req.OSS,
		LocalProvider:    req.LocalProvider,
		Profile:          req.Profile,
		ConfigOverrides:  req.ConfigOverrides,
		OutputSchemaPath: req.OutputSchemaPath,
		SkipGitRepoCheck: req.SkipGitRepoCheck,
		MaxOutputLines:   req.MaxOutputLines,
	})
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toJobResponse(job))
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	tail := defaultJobTail
	if raw := r.URL.Query().Get("tail"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxJobTail {
			httpError(w, http.StatusBadRequest, "tail must be in [1, 2000]")
			return
		}
		tail = n
	}

	job := s.runner.Tail(mux.Vars(r)["id"], tail)
	if job == nil {
		httpError(w, http.StatusNotFound, "Job not found")
		return
	}
	writeJSON(w, http.StatusOK, toJobResponse(job))
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !s.runner.CancelJob(id) {
		httpError(w, http.StatusNotFound, "Job not running or not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "canceled", "id": id})
}
