package httpapi

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gorilla/mux"

	"github.com/andywolf/codexd/internal/orchestrator"
)

type insightsRunRequest struct {
	SessionID string `json:"session_id"`
	Prompt    string `json:"prompt"`
	Mode      string `json:"mode"`
	Workdir   string `json:"workdir"`
	Model     string `json:"model"`
}

type insightsRunResponse struct {
	JobID      string `json:"job_id"`
	ArtifactID string `json:"artifact_id"`
}

type insightSummaryResponse struct {
	ArtifactID   string  `json:"artifact_id"`
	CreatedAt    *string `json:"created_at"`
	MarkdownPath string  `json:"markdown_path"`
	JSONPath     string  `json:"json_path"`
}

type insightArtifactResponse struct {
	ArtifactID string  `json:"artifact_id"`
	SessionID  string  `json:"session_id"`
	CreatedAt  *string `json:"created_at"`
	Markdown   *string `json:"markdown"`
	JSON       any     `json:"json"`
}

// parseMode validates the fork/resume selector, defaulting to fork.
func parseMode(raw string) (orchestrator.RunMode, bool) {
	if raw == "" {
		return orchestrator.ModeFork, true
	}
	mode := orchestrator.RunMode(raw)
	return mode, mode.Valid()
}

func (s *Server) handleInsightsRun(w http.ResponseWriter, r *http.Request) {
	var req insightsRunRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SessionID == "" || req.Prompt == "" {
		httpError(w, http.StatusBadRequest, "session_id and prompt are required")
		return
	}
	mode, ok := parseMode(req.Mode)
	if !ok {
		httpError(w, http.StatusBadRequest, "mode must be fork or resume")
		return
	}

	job, artifact, err := s.orch.StartInsightsRun(orchestrator.InsightsRunRequest{
		SessionID: req.SessionID,
		Prompt:    req.Prompt,
		Mode:      mode,
		Workdir:   req.Workdir,
		Model:     req.Model,
	})
	if err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, insightsRunResponse{JobID: job.ID, ArtifactID: artifact.ArtifactID})
}

func (s *Server) handleListInsights(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["session_id"]
	list := orchestrator.ListInsights(s.orch.RepoRoot(), sessionID)
	out := make([]insightSummaryResponse, 0, len(list))
	for _, item := range list {
		out = append(out, insightSummaryResponse{
			ArtifactID:   item.ArtifactID,
			MarkdownPath: item.MarkdownPath,
			JSONPath:     item.JSONPath,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func readJSONFile(path string) (any, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, false
	}
	return v, true
}

func (s *Server) handleGetInsight(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID, artifactID := vars["session_id"], vars["artifact_id"]

	mdPath, jsonPath := orchestrator.FindInsightPaths(s.orch.RepoRoot(), sessionID, artifactID)
	if mdPath == "" && jsonPath == "" {
		httpError(w, http.StatusNotFound, "Insight artifact not found")
		return
	}

	resp := insightArtifactResponse{ArtifactID: artifactID, SessionID: sessionID}
	if mdPath != "" {
		if data, err := os.ReadFile(mdPath); err == nil {
			md := string(data)
			resp.Markdown = &md
		}
	}
	if jsonPath != "" {
		if payload, ok := readJSONFile(jsonPath); ok {
			resp.JSON = payload
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type proposalRunRequest struct {
	SessionID         string `json:"session_id"`
	InsightArtifactID string `json:"insight_artifact_id"`
	Prompt            string `json:"prompt"`
	Mode              string `json:"mode"`
	Workdir           string `json:"workdir"`
	Model             string `json:"model"`
}

type proposalRunResponse struct {
	JobID      string `json:"job_id"`
	ProposalID string `json:"proposal_id"`
}

type proposalResponse struct {
	ProposalID       string   `json:"proposal_id"`
	SessionID        string   `json:"session_id"`
	Status           string   `json:"status"`
	Diff             *string  `json:"diff"`
	Summary          *string  `json:"summary"`
	FilesTouched     []string `json:"files_touched"`
	ValidationErrors []string `json:"validation_errors"`
}

func (s *Server) handleProposalRun(w http.ResponseWriter, r *http.Request) {
	var req proposalRunRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SessionID == "" || req.InsightArtifactID == "" {
		httpError(w, http.StatusBadRequest, "session_id and insight_artifact_id are required")
		return
	}
	mode, ok := parseMode(req.Mode)
	if !ok {
		httpError(w, http.StatusBadRequest, "mode must be fork or resume")
		return
	}

	_, jsonPath := orchestrator.FindInsightPaths(s.orch.RepoRoot(), req.SessionID, req.InsightArtifactID)
	if jsonPath == "" {
		httpError(w, http.StatusNotFound, "Insight JSON not found")
		return
	}
	insight, ok := readJSONFile(jsonPath)
	if !ok {
		httpError(w, http.StatusBadRequest, "Insight JSON is invalid")
		return
	}

	job, artifact, err := s.orch.StartProposalRun(orchestrator.ProposalRunRequest{
		SessionID:   req.SessionID,
		InsightJSON: insight,
		Prompt:      req.Prompt,
		Mode:        mode,
		Workdir:     req.Workdir,
		Model:       req.Model,
	})
	if err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, proposalRunResponse{JobID: job.ID, ProposalID: artifact.ProposalID})
}

func (s *Server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	proposalID := mux.Vars(r)["id"]
	base := orchestrator.ProposalsDir(s.orch.RepoRoot(), proposalID)
	if _, err := os.Stat(base); err != nil {
		httpError(w, http.StatusNotFound, "Proposal not found")
		return
	}

	sessionID, summary := "", (*string)(nil)
	if meta, ok := readJSONFile(filepath.Join(base, "meta.json")); ok {
		if m, ok := meta.(map[string]any); ok {
			if sid, ok := m["session_id"].(string); ok {
				sessionID = sid
			}
			if sum, ok := m["summary"].(string); ok {
				summary = &sum
			}
		}
	}

	resp := proposalResponse{
		ProposalID:       proposalID,
		SessionID:        sessionID,
		FilesTouched:     []string{},
		ValidationErrors: []string{},
	}

	diffPath := filepath.Join(base, "proposal.diff")
	data, err := os.ReadFile(diffPath)
	if err != nil {
		resp.Status = "missing"
		writeJSON(w, http.StatusOK, resp)
		return
	}

	diffText := string(data)
	validation := orchestrator.ValidateDiffPaths(diffText)
	resp.Status = "ready"
	resp.Diff = &diffText
	resp.Summary = summary
	if validation.Touched != nil {
		resp.FilesTouched = validation.Touched
	}
	if validation.Errors != nil {
		resp.ValidationErrors = validation.Errors
	}
	writeJSON(w, http.StatusOK, resp)
}

type applyRequest struct {
	Confirm bool `json:"confirm"`
}

type applyResponse struct {
	Applied      bool     `json:"applied"`
	FilesTouched []string `json:"files_touched"`
	Errors       []string `json:"errors"`
}

func (s *Server) handleApplyProposal(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !req.Confirm {
		httpError(w, http.StatusBadRequest, "Missing confirmation")
		return
	}

	proposalID := mux.Vars(r)["id"]
	diffPath := filepath.Join(orchestrator.ProposalsDir(s.orch.RepoRoot(), proposalID), "proposal.diff")
	if _, err := os.Stat(diffPath); err != nil {
		httpError(w, http.StatusNotFound, "Proposal diff not found")
		return
	}

	result := s.orch.ApplyProposalDiff(diffPath)
	resp := applyResponse{Applied: result.Applied, FilesTouched: []string{}, Errors: []string{}}
	if result.FilesTouched != nil {
		resp.FilesTouched = result.FilesTouched
	}
	if result.Errors != nil {
		resp.Errors = result.Errors
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOrchestratorRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"root": orchestrator.Root(s.orch.RepoRoot())})
}
