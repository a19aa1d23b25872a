package orchestrator

import (
	"sort"
	"strings"
)

// DiffValidation is the result of checking a proposal diff against the
// allow-list.
type DiffValidation struct {
	OK      bool
	Touched []string
	Errors  []string
}

// allowedDiffPath reports whether a touched path is inside the allow-list:
// AGENTS.md (at any directory level) or anything under .codex/skills/.
func allowedDiffPath(path string) bool {
	if path == "AGENTS.md" || strings.HasSuffix(path, "/AGENTS.md") {
		return true
	}
	return strings.HasPrefix(path, ".codex/skills/")
}

// ValidateDiffPaths extracts the file paths a unified diff touches from its
// "+++ " and "--- " headers and enforces the allow-list. The diff body is
// never parsed beyond the headers. The touched list is sorted and returned
// whether or not validation passes.
func ValidateDiffPaths(diffText string) DiffValidation {
	touched := map[string]bool{}
	var errors []string

	for _, line := range strings.Split(diffText, "\n") {
		if !strings.HasPrefix(line, "+++ ") && !strings.HasPrefix(line, "--- ") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}
		path := parts[1]
		if path == "a/dev/null" || path == "b/dev/null" || path == "/dev/null" {
			continue
		}
		if strings.HasPrefix(path, "a/") || strings.HasPrefix(path, "b/") {
			path = path[2:]
		}
		touched[path] = true
	}

	if len(touched) == 0 {
		errors = append(errors, "No file paths detected in diff.")
	}

	sorted := make([]string, 0, len(touched))
	for path := range touched {
		sorted = append(sorted, path)
	}
	sort.Strings(sorted)

	for _, path := range sorted {
		if !allowedDiffPath(path) {
			errors = append(errors, "Disallowed path in diff: "+path)
		}
	}

	return DiffValidation{OK: len(errors) == 0, Touched: sorted, Errors: errors}
}
