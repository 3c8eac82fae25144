// Package paths resolves the repository and data-directory locations used by
// every other package.
package paths

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// Directory constants
const (
	DataDir        = ".whowrote"
	LogsDir        = ".whowrote/logs"
	PendingDBFile  = ".whowrote/pending.db"
	SettingsFile   = ".whowrote/settings.json"
	LocalSettings  = ".whowrote/settings.local.json"
	PendingDBName  = "pending.db"
	DefaultNoteRef = "refs/notes/whowrote"
)

// ErrNoDataDir is returned when no ancestor of a path contains a data directory.
var ErrNoDataDir = errors.New("no " + DataDir + " directory found")

// repoRootCache caches the repository root keyed by working directory.
var (
	repoRootMu       sync.RWMutex
	repoRootCache    string
	repoRootCacheDir string
)

// RepoRoot returns the git repository root directory.
// Uses 'git rev-parse --show-toplevel' which works from any subdirectory.
// The result is cached per working directory.
func RepoRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = ""
	}

	repoRootMu.RLock()
	if repoRootCache != "" && repoRootCacheDir == cwd {
		cached := repoRootCache
		repoRootMu.RUnlock()
		return cached, nil
	}
	repoRootMu.RUnlock()

	cmd := exec.CommandContext(context.Background(), "git", "rev-parse", "--show-toplevel")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("failed to get git repository root: %w", err)
	}
	root := strings.TrimSpace(string(output))

	repoRootMu.Lock()
	repoRootCache = root
	repoRootCacheDir = cwd
	repoRootMu.Unlock()

	return root, nil
}

// ClearRepoRootCache clears the cached repository root.
// This is primarily useful for testing when changing directories.
func ClearRepoRootCache() {
	repoRootMu.Lock()
	repoRootCache = ""
	repoRootCacheDir = ""
	repoRootMu.Unlock()
}

// AbsPath returns the absolute path for a path relative to the repository root.
// If the path is already absolute, it is returned as-is.
func AbsPath(relPath string) (string, error) {
	if filepath.IsAbs(relPath) {
		return relPath, nil
	}
	root, err := RepoRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, relPath), nil
}

// FindDataRoot walks up from start (a file or directory) and returns the
// nearest ancestor directory that contains a .whowrote directory.
// Nested repositories resolve to the innermost root. The walk stops at the
// first directory holding a .git entry, so an untracked repository never
// resolves to a tracked one around it.
func FindDataRoot(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", start, err)
	}

	dir := abs
	if info, statErr := os.Stat(abs); statErr != nil || !info.IsDir() {
		dir = filepath.Dir(abs)
	}

	for {
		info, statErr := os.Stat(filepath.Join(dir, DataDir))
		if statErr == nil && info.IsDir() {
			return dir, nil
		}
		// .git is a file in worktrees and submodules.
		if _, gitErr := os.Lstat(filepath.Join(dir, ".git")); gitErr == nil {
			return "", ErrNoDataDir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNoDataDir
		}
		dir = parent
	}
}

// PendingDBPath returns the pending store location for a repository root.
func PendingDBPath(root string) string {
	return filepath.Join(root, DataDir, PendingDBName)
}

// ToRelativePath converts an absolute path to a slash-separated path relative
// to root. Returns empty string if the path is outside root.
func ToRelativePath(absPath, root string) string {
	if !filepath.IsAbs(absPath) {
		return filepath.ToSlash(absPath)
	}
	relPath, err := filepath.Rel(root, absPath)
	if err != nil || relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return ""
	}
	return filepath.ToSlash(relPath)
}

// IsInfrastructurePath returns true if the path is inside the .whowrote directory.
func IsInfrastructurePath(path string) bool {
	return strings.HasPrefix(path, DataDir+"/") || path == DataDir
}
