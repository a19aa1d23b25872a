// Package httpapi is the thin HTTP surface over the runner, rollout reader,
// orchestrator and conversation services. Handlers validate requests, map
// errors to status codes and marshal JSON; all real work happens in the
// wrapped packages.
package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/andywolf/codexd/internal/conversation"
	"github.com/andywolf/codexd/internal/orchestrator"
	"github.com/andywolf/codexd/internal/runner"
)

// Options wire a Server.
type Options struct {
	Runner       *runner.Runner
	Orchestrator *orchestrator.Orchestrator
	// Suggester is optional; the conversation routes answer 500 when it is
	// not configured.
	Suggester *conversation.Suggester
	// CORSOrigins lists origins allowed to call the API from a browser.
	CORSOrigins []string
}

// Server holds the handler dependencies.
type Server struct {
	runner      *runner.Runner
	orch        *orchestrator.Orchestrator
	suggester   *conversation.Suggester
	corsOrigins []string
}

// New creates a Server.
func New(opts Options) *Server {
	return &Server{
		runner:      opts.Runner,
		orch:        opts.Orchestrator,
		suggester:   opts.Suggester,
		corsOrigins: opts.CORSOrigins,
	}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(s.corsMiddleware)

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	router.HandleFunc("/codex/exec", s.handleExec).Methods(http.MethodPost)
	router.HandleFunc("/codex/jobs/{id}", s.handleGetJob).Methods(http.MethodGet)
	router.HandleFunc("/codex/jobs/{id}", s.handleCancelJob).Methods(http.MethodDelete)

	router.HandleFunc("/codex/sessions", s.handleListSessions).Methods(http.MethodGet)
	router.HandleFunc("/codex/sessions/{id}", s.handleSessionDetail).Methods(http.MethodGet)
	router.HandleFunc("/codex/history", s.handlePromptHistory).Methods(http.MethodGet)

	router.HandleFunc("/codex/insights/run", s.handleInsightsRun).Methods(http.MethodPost)
	router.HandleFunc("/codex/insights/artifacts/{session_id}/{artifact_id}", s.handleGetInsight).Methods(http.MethodGet)
	router.HandleFunc("/codex/insights/{session_id}", s.handleListInsights).Methods(http.MethodGet)

	router.HandleFunc("/codex/proposals/run", s.handleProposalRun).Methods(http.MethodPost)
	router.HandleFunc("/codex/proposals/{id}", s.handleGetProposal).Methods(http.MethodGet)
	router.HandleFunc("/codex/proposals/{id}/apply", s.handleApplyProposal).Methods(http.MethodPost)
	router.HandleFunc("/codex/orchestrator/root", s.handleOrchestratorRoot).Methods(http.MethodGet)

	router.HandleFunc("/conversation/ingest", s.handleIngest).Methods(http.MethodPost)

	return router
}

// corsMiddleware answers preflight requests and stamps the allowed origin
// on responses when the request origin is configured.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	for _, allowed := range s.corsOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON marshals v with a status code. Encoding failures are logged;
// the status line has already been written by then.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[httpapi] encode response: %v", err)
	}
}

// httpError mirrors the {"detail": ...} error body the frontend expects.
func httpError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

func strOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func timeOrNil(t *time.Time) *string {
	if t == nil {
		return nil
	}
	formatted := t.UTC().Format(time.RFC3339Nano)
	return &formatted
}
