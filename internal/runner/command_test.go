package runner

import (
	"reflect"
	"testing"
)

func TestBuildCommandExec(t *testing.T) {
	req := JobRequest{
		Task:     "say hi",
		Sandbox:  SandboxWorkspaceWrite,
		Approval: ApprovalNever,
	}
	got := buildCommand("codex", req, "/repo", "/home/.codex/jobs/x/last_message.txt")
	want := []string{
		"codex", "--no-alt-screen",
		"--ask-for-approval", "never",
		"--sandbox", "workspace-write",
		"exec", "--json", "-C", "/repo", "-o", "/home/.codex/jobs/x/last_message.txt",
		"-",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("unexpected argv:\n got %v\nwant %v", got, want)
	}
}

func TestBuildCommandAllFlags(t *testing.T) {
	req := JobRequest{
		Task:             "task",
		Sandbox:          SandboxReadOnly,
		Approval:         ApprovalOnRequest,
		Model:            "gpt-5",
		OSS:              true,
		LocalProvider:    "ollama",
		Profile:          "fast",
		ConfigOverrides:  []string{"a=1", "b=2"},
		OutputSchemaPath: "/schemas/out.json",
		SkipGitRepoCheck: true,
	}
	got := buildCommand("codex", req, "/work", "/last.txt")
	want := []string{
		"codex", "--no-alt-screen",
		"--ask-for-approval", "on-request",
		"--sandbox", "read-only",
		"--model", "gpt-5",
		"--oss",
		"--local-provider", "ollama",
		"--profile", "fast",
		"-c", "a=1",
		"-c", "b=2",
		"exec", "--json", "-C", "/work", "-o", "/last.txt",
		"--output-schema", "/schemas/out.json",
		"--skip-git-repo-check",
		"-",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("unexpected argv:\n got %v\nwant %v", got, want)
	}
}

func TestBuildCommandResume(t *testing.T) {
	req := JobRequest{
		Task:             "continue",
		Sandbox:          SandboxReadOnly,
		Approval:         ApprovalNever,
		OutputSchemaPath: "/schemas/out.json",
		ResumeSessionID:  "sess-123",
	}
	got := buildCommand("codex", req, "/work", "/last.txt")
	want := []string{
		"codex", "--no-alt-screen",
		"--ask-for-approval", "never",
		"--sandbox", "read-only",
		"exec", "resume", "--json", "-C", "/work", "-o", "/last.txt",
		"--output-schema", "/schemas/out.json",
		"sess-123", "-",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("unexpected argv:\n got %v\nwant %v", got, want)
	}
}
