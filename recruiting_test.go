package recruiting_test

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	recruiting "github.com/arames/git-recruiting"
	"github.com/arames/git-recruiting/pkg/gitlog"
)

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v failed: %v\n%s", args, err, out)
	}
}

func commitAs(t *testing.T, dir, name, email, file string, when time.Time) {
	t.Helper()
	path := filepath.Join(dir, file)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", file, err)
	}
	if err := os.WriteFile(path, []byte(when.String()+"\n"), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", file, err)
	}
	runGit(t, dir, "add", ".")

	cmd := exec.Command("git", "commit", "-m", "update "+file)
	cmd.Dir = dir
	stamp := when.Format(time.RFC3339)
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME="+name,
		"GIT_AUTHOR_EMAIL="+email,
		"GIT_AUTHOR_DATE="+stamp,
		"GIT_COMMITTER_NAME="+name,
		"GIT_COMMITTER_EMAIL="+email,
		"GIT_COMMITTER_DATE="+stamp,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git commit failed: %v\n%s", err, out)
	}
}

func setupRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	runGit(t, dir, "init", "-b", "main")
	runGit(t, dir, "config", "user.name", "Test User")
	runGit(t, dir, "config", "user.email", "test@example.com")

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	commitAs(t, dir, "Alice", "alice@example.com", "README.md", base)
	commitAs(t, dir, "Bob", "bob@example.com", "docs/guide.md", base.Add(24*time.Hour))
	commitAs(t, dir, "Alice", "alice@example.com", "main.go", base.Add(48*time.Hour))
	return dir
}

func TestAnalyzeLocalRepository(t *testing.T) {
	repo := setupRepo(t)

	var lastProgress int
	result, err := recruiting.Analyze(context.Background(), recruiting.Options{
		Repo:      repo,
		CacheRoot: t.TempDir(),
		Progress:  func(n int) { lastProgress = n },
	})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if result.RepoPath != repo {
		t.Errorf("RepoPath = %q, want the local path %q", result.RepoPath, repo)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", result.Warnings)
	}
	if len(result.Contributors) != 2 {
		t.Fatalf("got %d contributors, want 2", len(result.Contributors))
	}
	if result.Contributors[0].Name != "Alice" || result.Contributors[0].Commits != 2 {
		t.Errorf("first = {%s %d}, want {Alice 2}",
			result.Contributors[0].Name, result.Contributors[0].Commits)
	}
	if result.Contributors[1].Name != "Bob" || result.Contributors[1].Commits != 1 {
		t.Errorf("second = {%s %d}, want {Bob 1}",
			result.Contributors[1].Name, result.Contributors[1].Commits)
	}
	// Only 3 commits, so the progress callback never fires.
	if lastProgress != 0 {
		t.Errorf("progress = %d, want 0 for a 3-commit history", lastProgress)
	}
}

func TestAnalyzeSubdirFilter(t *testing.T) {
	repo := setupRepo(t)

	result, err := recruiting.Analyze(context.Background(), recruiting.Options{
		Repo:      repo,
		Subdir:    "docs",
		CacheRoot: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if len(result.Contributors) != 1 {
		t.Fatalf("got %d contributors, want 1", len(result.Contributors))
	}
	if result.Contributors[0].Name != "Bob" {
		t.Errorf("contributor = %q, want %q", result.Contributors[0].Name, "Bob")
	}
}

func TestAnalyzeSubdirNotFoundWarns(t *testing.T) {
	repo := setupRepo(t)

	result, err := recruiting.Analyze(context.Background(), recruiting.Options{
		Repo:      repo,
		Subdir:    "no/such/dir",
		CacheRoot: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Analyze() error = %v, want nil with a warning", err)
	}
	if len(result.Contributors) != 0 {
		t.Errorf("got %d contributors, want 0", len(result.Contributors))
	}
	if len(result.Warnings) != 1 || !errors.Is(result.Warnings[0], gitlog.ErrSubdirNotFound) {
		t.Errorf("Warnings = %v, want [ErrSubdirNotFound]", result.Warnings)
	}
}

func TestAnalyzeDateRange(t *testing.T) {
	repo := setupRepo(t)

	since := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	until := time.Date(2024, 5, 2, 23, 59, 59, 0, time.UTC)
	result, err := recruiting.Analyze(context.Background(), recruiting.Options{
		Repo:      repo,
		Since:     &since,
		Until:     &until,
		CacheRoot: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if len(result.Contributors) != 1 || result.Contributors[0].Name != "Bob" {
		t.Fatalf("contributors = %+v, want only Bob's day", result.Contributors)
	}
}

func TestAnalyzeLineStats(t *testing.T) {
	repo := setupRepo(t)

	result, err := recruiting.Analyze(context.Background(), recruiting.Options{
		Repo:      repo,
		LineStats: true,
		CacheRoot: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	for _, c := range result.Contributors {
		if c.LinesAdded == 0 {
			t.Errorf("%s has LinesAdded = 0, want > 0", c.Name)
		}
	}
}

func TestAnalyzeRemoteMirror(t *testing.T) {
	source := setupRepo(t)
	cacheRoot := t.TempDir()

	result, err := recruiting.Analyze(context.Background(), recruiting.Options{
		// file:// forces the clone path instead of the local passthrough.
		Repo:      "file://" + source,
		CacheRoot: cacheRoot,
	})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if result.RepoPath == source {
		t.Error("RepoPath is the source, want a mirror under the cache root")
	}
	if rel, err := filepath.Rel(cacheRoot, result.RepoPath); err != nil || strings.HasPrefix(rel, "..") {
		t.Errorf("RepoPath = %q, want it under %q", result.RepoPath, cacheRoot)
	}
	if len(result.Contributors) != 2 {
		t.Errorf("got %d contributors, want 2", len(result.Contributors))
	}
}

func TestAnalyzeBadLocator(t *testing.T) {
	_, err := recruiting.Analyze(context.Background(), recruiting.Options{
		Repo:      "not a repository at all",
		CacheRoot: t.TempDir(),
	})
	if err == nil {
		t.Fatal("Analyze() succeeded on a nonsense locator, want error")
	}
}

func TestAnalyzeRefNotFound(t *testing.T) {
	repo := setupRepo(t)

	_, err := recruiting.Analyze(context.Background(), recruiting.Options{
		Repo:      repo,
		Branch:    "no-such-branch",
		CacheRoot: t.TempDir(),
	})
	if !errors.Is(err, gitlog.ErrRefNotFound) {
		t.Fatalf("Analyze() error = %v, want ErrRefNotFound", err)
	}
}
