// Package paths resolves the directories the coordinator works against:
// the host repository root, the Codex home directory, and per-request
// working directories.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// EnvCodexHome is the environment variable that overrides the Codex home
// directory. An absolute value is used verbatim; a relative value is joined
// to the repository root.
const EnvCodexHome = "CODEX_HOME"

// Canonical resolves path to an absolute, symlink-free form. When the path
// does not exist (so symlinks cannot be evaluated), the cleaned absolute
// path is returned instead.
func Canonical(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	return filepath.Clean(path)
}

// FindRepoRoot walks from start upward through its parents and returns the
// first directory containing a .git marker. When no marker is found the
// canonical start is returned.
func FindRepoRoot(start string) string {
	dir := Canonical(start)
	for candidate := dir; ; {
		if _, err := os.Stat(filepath.Join(candidate, ".git")); err == nil {
			return candidate
		}
		parent := filepath.Dir(candidate)
		if parent == candidate {
			return dir
		}
		candidate = parent
	}
}

// ResolveAgentHome returns the Codex home directory used for both reading
// conversation history and running headless jobs (auth lives here).
//
// When CODEX_HOME is set, an absolute value is taken verbatim and a
// relative value is joined to repoRoot; either way a leading ~ is expanded
// and the result canonicalized. Otherwise the default is ~/.codex.
func ResolveAgentHome(repoRoot string) string {
	raw := os.Getenv(EnvCodexHome)
	if raw == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		return Canonical(filepath.Join(home, ".codex"))
	}
	expanded := ExpandUser(raw)
	if !filepath.IsAbs(expanded) {
		expanded = filepath.Join(repoRoot, expanded)
	}
	return Canonical(expanded)
}

// ResolveWorkdir resolves a caller-supplied working directory against the
// repository root. Empty means the repo root itself; absolute paths are
// used as-is; relative paths are joined to the root and canonicalized.
func ResolveWorkdir(repoRoot, workdir string) string {
	if workdir == "" {
		return repoRoot
	}
	if filepath.IsAbs(workdir) {
		return workdir
	}
	return Canonical(filepath.Join(repoRoot, workdir))
}

// ExpandUser replaces a leading ~ with the current user's home directory.
func ExpandUser(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	}
	return path
}
