package version

import (
	"strings"
	"testing"
)

func TestShort(t *testing.T) {
	if Short() == "" {
		t.Error("expected non-empty version")
	}
}

func TestInfoTruncatesCommit(t *testing.T) {
	origCommit := Commit
	defer func() { Commit = origCommit }()

	Commit = "abcdef0123456789"
	info := Info()
	if !strings.Contains(info, "abcdef0") {
		t.Errorf("expected truncated commit in %q", info)
	}
	if strings.Contains(info, "abcdef01234") {
		t.Errorf("commit not truncated in %q", info)
	}
}
