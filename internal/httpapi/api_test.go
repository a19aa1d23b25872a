package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/andywolf/codexd/internal/conversation"
	"github.com/andywolf/codexd/internal/orchestrator"
	"github.com/andywolf/codexd/internal/runner"
)

type testEnv struct {
	server    *Server
	router    http.Handler
	runner    *runner.Runner
	repoRoot  string
	codexHome string
}

func newTestEnv(t *testing.T, binary string) *testEnv {
	t.Helper()
	repoRoot := t.TempDir()
	codexHome := filepath.Join(t.TempDir(), ".codex")
	r := runner.New(runner.Options{Binary: binary, RepoRoot: repoRoot, CodexHome: codexHome})
	orch := orchestrator.New(orchestrator.Options{Runner: r, PollInterval: 10 * time.Millisecond})
	srv := New(Options{Runner: r, Orchestrator: orch})
	return &testEnv{server: srv, router: srv.Router(), runner: r, repoRoot: repoRoot, codexHome: codexHome}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("invalid response JSON: %v (%s)", err, rec.Body.String())
	}
	return v
}

func stubScript(t *testing.T, content string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs require a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "stub-codex")
	if err := os.WriteFile(path, []byte(content), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, "codex")
	rec := env.do(t, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestExecCreatesJob(t *testing.T) {
	env := newTestEnv(t, "codex")
	rec := env.do(t, http.MethodPost, "/codex/exec", map[string]any{"task": "say hi"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeJSON[map[string]any](t, rec)
	if body["id"] == "" || body["id"] == nil {
		t.Error("expected a job id")
	}
	status, _ := body["status"].(string)
	if status != "queued" && status != "running" {
		t.Errorf("unexpected status %q", status)
	}
	command, _ := body["command"].([]any)
	if len(command) == 0 || command[0] != "codex" {
		t.Fatalf("unexpected command: %v", command)
	}
	joined := ""
	for _, c := range command {
		joined += c.(string) + " "
	}
	for _, needle := range []string{"exec", "--json", "-o"} {
		if !strings.Contains(joined, needle) {
			t.Errorf("command missing %q: %s", needle, joined)
		}
	}
	if command[len(command)-1] != "-" {
		t.Errorf("expected trailing '-': %v", command)
	}
	if events, ok := body["events_tail"].([]any); !ok || len(events) != 0 {
		t.Errorf("expected empty events_tail, got %v", body["events_tail"])
	}
}

func TestExecValidation(t *testing.T) {
	env := newTestEnv(t, "codex")
	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing task", map[string]any{}},
		{"bad sandbox", map[string]any{"task": "x", "sandbox": "yolo"}},
		{"bad approval", map[string]any{"task": "x", "approval": "always"}},
		{"bad local provider", map[string]any{"task": "x", "local_provider": "gpu-farm"}},
		{"bad max lines", map[string]any{"task": "x", "max_output_lines": 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := env.do(t, http.MethodPost, "/codex/exec", tt.body); rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestGetJobNotFound(t *testing.T) {
	env := newTestEnv(t, "codex")
	if rec := env.do(t, http.MethodGet, "/codex/jobs/does-not-exist", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/codex/jobs/x?tail=0", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad tail, got %d", rec.Code)
	}
}

func TestCancelJobFlow(t *testing.T) {
	script := stubScript(t, "#!/bin/sh\nexec sleep 60\n")
	env := newTestEnv(t, script)

	rec := env.do(t, http.MethodPost, "/codex/exec", map[string]any{"task": "long"})
	body := decodeJSON[map[string]any](t, rec)
	id, _ := body["id"].(string)
	if id == "" {
		t.Fatal("no job id")
	}

	deadline := time.Now().Add(10 * time.Second)
	var cancelRec *httptest.ResponseRecorder
	for {
		cancelRec = env.do(t, http.MethodDelete, "/codex/jobs/"+id, nil)
		if cancelRec.Code == http.StatusOK || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if cancelRec.Code != http.StatusOK {
		t.Fatalf("cancel never succeeded: %d", cancelRec.Code)
	}
	cancelBody := decodeJSON[map[string]string](t, cancelRec)
	if cancelBody["status"] != "canceled" || cancelBody["id"] != id {
		t.Errorf("unexpected cancel body: %v", cancelBody)
	}

	for time.Now().Before(deadline) {
		getRec := env.do(t, http.MethodGet, "/codex/jobs/"+id, nil)
		got := decodeJSON[map[string]any](t, getRec)
		if got["status"] == "canceled" && got["finished_at"] != nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job never showed canceled with finished_at")
}

func TestCancelUnknownJob(t *testing.T) {
	env := newTestEnv(t, "codex")
	if rec := env.do(t, http.MethodDelete, "/codex/jobs/nope", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func seedRollout(t *testing.T, codexHome, sessionID, cwd string) {
	t.Helper()
	path := filepath.Join(codexHome, "sessions", "rollout-"+sessionID+".jsonl")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	lines := `{"type":"session_meta","payload":{"id":"` + sessionID + `","cwd":"` + cwd + `","timestamp":"2026-02-05T09:00:00Z"}}
{"type":"response_item","timestamp":"2026-02-05T09:01:00Z","payload":{"type":"message","role":"user","content":[{"text":"hello there"}]}}
`
	if err := os.WriteFile(path, []byte(lines), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestSessionsListAndDetail(t *testing.T) {
	env := newTestEnv(t, "codex")
	seedRollout(t, env.codexHome, "sess-1", env.repoRoot)

	rec := env.do(t, http.MethodGet, "/codex/sessions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	list := decodeJSON[[]map[string]any](t, rec)
	if len(list) != 1 || list[0]["id"] != "sess-1" {
		t.Fatalf("unexpected session list: %v", list)
	}
	if list[0]["title"] != "hello there" {
		t.Errorf("unexpected title: %v", list[0]["title"])
	}

	detail := env.do(t, http.MethodGet, "/codex/sessions/sess-1", nil)
	if detail.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", detail.Code)
	}
	detailBody := decodeJSON[map[string]any](t, detail)
	messages, _ := detailBody["messages"].([]any)
	if len(messages) != 1 {
		t.Errorf("expected 1 message, got %v", detailBody)
	}

	if missing := env.do(t, http.MethodGet, "/codex/sessions/unknown", nil); missing.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", missing.Code)
	}
}

func TestSessionsLimitValidation(t *testing.T) {
	env := newTestEnv(t, "codex")
	if rec := env.do(t, http.MethodGet, "/codex/sessions?limit=0", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/codex/sessions?limit=9999", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestPromptHistoryRoute(t *testing.T) {
	env := newTestEnv(t, "codex")
	if err := os.MkdirAll(env.codexHome, 0755); err != nil {
		t.Fatal(err)
	}
	content := `{"session_id":"s1","ts":10,"text":"hello"}
{"bad":"row"}
`
	if err := os.WriteFile(filepath.Join(env.codexHome, "history.jsonl"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	rec := env.do(t, http.MethodGet, "/codex/history", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	entries := decodeJSON[[]map[string]any](t, rec)
	if len(entries) != 1 || entries[0]["session_id"] != "s1" {
		t.Errorf("unexpected entries: %v", entries)
	}
}

func TestInsightsWorkflowOverHTTP(t *testing.T) {
	script := stubScript(t, `#!/bin/sh
out=""
prev=""
for arg in "$@"; do
  if [ "$prev" = "-o" ]; then out="$arg"; fi
  prev="$arg"
done
cat >/dev/null
printf '%s' '{"insights_markdown":"# Learned","summary":"s"}' > "$out"
exit 0
`)
	env := newTestEnv(t, script)

	rec := env.do(t, http.MethodPost, "/codex/insights/run", map[string]any{
		"session_id": "sess-9",
		"prompt":     "what did we learn",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	run := decodeJSON[map[string]string](t, rec)
	if run["job_id"] == "" || run["artifact_id"] == "" {
		t.Fatalf("unexpected run response: %v", run)
	}

	// Wait for the finalizer to land the artifacts, via the listing route.
	deadline := time.Now().Add(10 * time.Second)
	for {
		listRec := env.do(t, http.MethodGet, "/codex/insights/sess-9", nil)
		list := decodeJSON[[]map[string]any](t, listRec)
		if len(list) == 1 && list[0]["artifact_id"] == run["artifact_id"] {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("insight artifact never listed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	artRec := env.do(t, http.MethodGet, "/codex/insights/artifacts/sess-9/"+run["artifact_id"], nil)
	if artRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", artRec.Code)
	}
	art := decodeJSON[map[string]any](t, artRec)
	if md, _ := art["markdown"].(string); md != "# Learned\n" {
		t.Errorf("unexpected markdown: %q", art["markdown"])
	}
	payload, _ := art["json"].(map[string]any)
	if payload["summary"] != "s" {
		t.Errorf("unexpected json payload: %v", payload)
	}

	if missing := env.do(t, http.MethodGet, "/codex/insights/artifacts/sess-9/zzz", nil); missing.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown artifact, got %d", missing.Code)
	}
}

func TestProposalRoutes(t *testing.T) {
	env := newTestEnv(t, "codex")

	rec := env.do(t, http.MethodPost, "/codex/proposals/run", map[string]any{
		"session_id":          "sess-1",
		"insight_artifact_id": "missing",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing insight, got %d", rec.Code)
	}

	if rec := env.do(t, http.MethodGet, "/codex/proposals/unknown", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown proposal, got %d", rec.Code)
	}

	// A proposal directory without a diff reports status missing.
	base := orchestrator.ProposalsDir(env.repoRoot, "p-1")
	if err := os.MkdirAll(base, 0755); err != nil {
		t.Fatal(err)
	}
	getRec := env.do(t, http.MethodGet, "/codex/proposals/p-1", nil)
	got := decodeJSON[map[string]any](t, getRec)
	if got["status"] != "missing" {
		t.Errorf("expected status missing, got %v", got["status"])
	}

	// Apply requires confirmation.
	if rec := env.do(t, http.MethodPost, "/codex/proposals/p-1/apply", map[string]any{}); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without confirm, got %d", rec.Code)
	}
	// With confirmation but no diff on disk: 404.
	if rec := env.do(t, http.MethodPost, "/codex/proposals/p-1/apply", map[string]any{"confirm": true}); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing diff, got %d", rec.Code)
	}

	// A ready proposal with a disallowed path surfaces validation errors.
	diff := "--- a/src/app.go\n+++ b/src/app.go\n"
	if err := os.WriteFile(filepath.Join(base, "proposal.diff"), []byte(diff), 0644); err != nil {
		t.Fatal(err)
	}
	readyRec := env.do(t, http.MethodGet, "/codex/proposals/p-1", nil)
	ready := decodeJSON[map[string]any](t, readyRec)
	if ready["status"] != "ready" {
		t.Errorf("expected status ready, got %v", ready["status"])
	}
	errs, _ := ready["validation_errors"].([]any)
	if len(errs) != 1 || errs[0] != "Disallowed path in diff: src/app.go" {
		t.Errorf("unexpected validation errors: %v", errs)
	}
}

// fakeStore is an in-memory conversation.Store for route tests.
type fakeStore struct {
	saved map[string][]conversation.StoredEvent
}

func (f *fakeStore) SaveEvents(_ context.Context, sessionID string, events []conversation.Event) error {
	for _, e := range events {
		f.saved[sessionID] = append(f.saved[sessionID], conversation.StoredEvent{
			SessionID: sessionID,
			Speaker:   e.Speaker,
			Message:   e.Message,
		})
	}
	return nil
}

func (f *fakeStore) History(_ context.Context, sessionID string) ([]conversation.StoredEvent, error) {
	return f.saved[sessionID], nil
}

func TestConversationIngest(t *testing.T) {
	env := newTestEnv(t, "codex")

	// Unconfigured store answers 500.
	rec := env.do(t, http.MethodPost, "/conversation/ingest", map[string]any{
		"session_id": "s1",
		"events":     []map[string]any{{"speaker": "user", "message": "hi"}},
	})
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 without store, got %d", rec.Code)
	}

	skills, err := conversation.LoadSkills("")
	if err != nil {
		t.Fatal(err)
	}
	store := &fakeStore{saved: make(map[string][]conversation.StoredEvent)}
	suggester := conversation.NewSuggester(store, skills).WithSampler(func() bool { return true })
	env.server.suggester = suggester

	rec = env.do(t, http.MethodPost, "/conversation/ingest", map[string]any{
		"session_id": "s1",
		"events":     []map[string]any{{"speaker": "user", "message": "fix this sql query"}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeJSON[map[string]any](t, rec)
	if body["status"] != conversation.StatusExistingSkill {
		t.Errorf("unexpected status: %v", body["status"])
	}
	skill, _ := body["skill"].(map[string]any)
	if skill["name"] != "db-access" {
		t.Errorf("unexpected skill: %v", skill)
	}

	// Validation errors.
	if rec := env.do(t, http.MethodPost, "/conversation/ingest", map[string]any{"session_id": "s1"}); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty events, got %d", rec.Code)
	}
}
