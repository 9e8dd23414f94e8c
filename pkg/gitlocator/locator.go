// Package gitlocator resolves user-supplied repository locators into a
// canonical clone URL or local path, plus any branch and subdirectory
// embedded in a web front-end URL.
package gitlocator

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrInvalidLocator is returned when a locator is empty or matches no
// recognized shape.
var ErrInvalidLocator = errors.New("invalid repository locator")

// Target is the resolved form of a repository locator. Exactly one of
// CloneURL and Path is set.
type Target struct {
	// CloneURL is the canonical clone URL for remote repositories.
	CloneURL string
	// Path is the absolute filesystem path for local repositories.
	Path string
	// Branch is the branch embedded in a web front-end URL, if any.
	// Informational: an explicitly requested branch always wins downstream.
	Branch string
	// Subdir is the subdirectory embedded in a web front-end URL, if any.
	// It seeds, but does not override, an explicit subdirectory filter.
	Subdir string
}

// IsLocal reports whether the target refers to a repository on disk.
func (t Target) IsLocal() bool { return t.Path != "" }

// Canonical returns the canonical location used as the cache key basis.
func (t Target) Canonical() string {
	if t.IsLocal() {
		return t.Path
	}
	return t.CloneURL
}

// scpLikeURL matches SSH clone addresses such as git@github.com:owner/repo.git.
var scpLikeURL = regexp.MustCompile(`^[\w.+-]+@[\w.-]+:\S+$`)

// Resolve parses a repository locator. Existing local directories resolve to
// their absolute path with no network interaction. GitHub web URLs with a
// /tree/<ref>/<path> or /blob/<ref>/<path> segment are normalized to a clone
// URL plus the detected branch and subdirectory. Anything else that looks
// like a clone URL is passed through opaquely.
func Resolve(locator string) (Target, error) {
	trimmed := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(locator), "#"))
	if trimmed == "" {
		return Target{}, fmt.Errorf("%w: empty locator", ErrInvalidLocator)
	}

	if info, err := os.Stat(trimmed); err == nil && info.IsDir() {
		abs, err := filepath.Abs(trimmed)
		if err != nil {
			return Target{}, fmt.Errorf("resolving local path %q: %w", trimmed, err)
		}
		return Target{Path: abs}, nil
	}

	if target, ok := parseGitHubURL(trimmed); ok {
		return target, nil
	}

	if strings.Contains(trimmed, "://") || scpLikeURL.MatchString(trimmed) {
		return Target{CloneURL: trimmed}, nil
	}

	return Target{}, fmt.Errorf(
		"%w: %q is neither an existing directory nor a recognizable clone URL",
		ErrInvalidLocator, locator)
}

// parseGitHubURL extracts the clone URL, branch and subdirectory from a
// GitHub web front-end URL. Examples:
//
//	https://github.com/llvm/llvm-project                 -> clone URL only
//	https://github.com/llvm/llvm-project/tree/main       -> branch "main"
//	https://github.com/llvm/llvm-project/tree/main/clang -> branch "main", subdir "clang"
func parseGitHubURL(raw string) (Target, bool) {
	parsed, err := url.Parse(raw)
	if err != nil || !strings.Contains(parsed.Host, "github.com") {
		return Target{}, false
	}

	parts := splitPath(parsed.Path)
	if len(parts) < 2 {
		return Target{}, false
	}

	owner := parts[0]
	repo := strings.TrimSuffix(parts[1], ".git")

	target := Target{
		CloneURL: fmt.Sprintf("https://github.com/%s/%s.git", owner, repo),
	}

	if len(parts) >= 4 && (parts[2] == "tree" || parts[2] == "blob") {
		target.Branch = parts[3]
		if len(parts) > 4 {
			target.Subdir = strings.Join(parts[4:], "/")
		}
	}

	return target, true
}

// GitHubRepo extracts the owner and repository name from a GitHub clone URL.
// It reports false for non-GitHub targets and local paths.
func (t Target) GitHubRepo() (owner, repo string, ok bool) {
	if t.IsLocal() {
		return "", "", false
	}

	cloneURL := t.CloneURL
	if m := scpLikeURL.FindString(cloneURL); m != "" && strings.Contains(cloneURL, "github.com") {
		// git@github.com:owner/repo.git
		_, after, found := strings.Cut(cloneURL, ":")
		if !found {
			return "", "", false
		}
		parts := splitPath(after)
		if len(parts) < 2 {
			return "", "", false
		}
		return parts[0], strings.TrimSuffix(parts[1], ".git"), true
	}

	parsed, err := url.Parse(cloneURL)
	if err != nil || !strings.Contains(parsed.Host, "github.com") {
		return "", "", false
	}
	parts := splitPath(parsed.Path)
	if len(parts) < 2 {
		return "", "", false
	}
	return parts[0], strings.TrimSuffix(parts[1], ".git"), true
}

func splitPath(p string) []string {
	var parts []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}
