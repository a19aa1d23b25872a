package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/andywolf/codexd/internal/rollout"
)

const (
	defaultSessionLimit = 50
	maxSessionLimit     = 500
)

type sessionSummaryResponse struct {
	ID         string  `json:"id"`
	Title      *string `json:"title"`
	StartedAt  *string `json:"started_at"`
	Cwd        *string `json:"cwd"`
	Originator *string `json:"originator"`
}

type conversationMessageResponse struct {
	Role      string  `json:"role"`
	Text      string  `json:"text"`
	Timestamp *string `json:"timestamp"`
	Phase     *string `json:"phase"`
}

type sessionDetailResponse struct {
	ID       string                        `json:"id"`
	Messages []conversationMessageResponse `json:"messages"`
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit := defaultSessionLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxSessionLimit {
			httpError(w, http.StatusBadRequest, "limit must be in [1, 500]")
			return
		}
		limit = n
	}
	allRepos := r.URL.Query().Get("all_repos") == "true"

	sessions := rollout.ListSessions(s.runner.CodexHome(), s.runner.RepoRoot(), allRepos, limit)
	out := make([]sessionSummaryResponse, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sessionSummaryResponse{
			ID:         sess.SessionID,
			Title:      strOrNil(sess.Title),
			StartedAt:  timeOrNil(sess.StartedAt),
			Cwd:        strOrNil(sess.Cwd),
			Originator: strOrNil(sess.Originator),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSessionDetail(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var roles []string
	if raw := r.URL.Query().Get("include_roles"); raw != "" {
		for _, role := range strings.Split(raw, ",") {
			if role = strings.TrimSpace(role); role != "" {
				roles = append(roles, role)
			}
		}
	}

	messages := rollout.ReadSessionMessages(s.runner.CodexHome(), sessionID, roles)
	if len(messages) == 0 {
		httpError(w, http.StatusNotFound, "Session not found (or no readable messages)")
		return
	}

	out := make([]conversationMessageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, conversationMessageResponse{
			Role:      m.Role,
			Text:      m.Text,
			Timestamp: timeOrNil(m.Timestamp),
			Phase:     strOrNil(m.Phase),
		})
	}
	writeJSON(w, http.StatusOK, sessionDetailResponse{ID: sessionID, Messages: out})
}

type promptHistoryResponse struct {
	SessionID string  `json:"session_id"`
	Ts        float64 `json:"ts"`
	Text      string  `json:"text"`
}

func (s *Server) handlePromptHistory(w http.ResponseWriter, r *http.Request) {
	limit := rollout.DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httpError(w, http.StatusBadRequest, "limit must be positive")
			return
		}
		limit = n
	}

	entries := rollout.ReadPromptHistory(s.runner.CodexHome(), limit)
	out := make([]promptHistoryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, promptHistoryResponse{SessionID: e.SessionID, Ts: e.Ts, Text: e.Text})
	}
	writeJSON(w, http.StatusOK, out)
}
