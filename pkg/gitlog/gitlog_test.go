package gitlog_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/arames/git-recruiting/pkg/gitlog"
)

// --- Test Suite Setup ---

func setupGitRepo(t *testing.T) string {
	t.Helper()
	repoPath := t.TempDir()
	runGitCommand(t, repoPath, "init", "-b", "main")
	runGitCommand(t, repoPath, "config", "user.name", "Test User")
	runGitCommand(t, repoPath, "config", "user.email", "test@example.com")
	return repoPath
}

func runGitCommand(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git command failed (args: %v): %v\nOutput:\n%s", args, err, string(output))
	}
}

// gitCommit writes relPath with content and commits it under the given
// author and date.
func gitCommit(t *testing.T, repoPath, relPath, content, message, authorName, authorEmail string, when time.Time) {
	t.Helper()
	fullPath := filepath.Join(repoPath, relPath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		t.Fatalf("creating directory for %s: %v", relPath, err)
	}
	if err := os.WriteFile(fullPath, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", relPath, err)
	}
	runGitCommand(t, repoPath, "add", relPath)

	cmd := exec.Command("git", "commit", "-m", message)
	cmd.Dir = repoPath
	isoDate := when.Format(time.RFC3339)
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME="+authorName,
		"GIT_AUTHOR_EMAIL="+authorEmail,
		"GIT_AUTHOR_DATE="+isoDate,
		"GIT_COMMITTER_NAME="+authorName,
		"GIT_COMMITTER_EMAIL="+authorEmail,
		"GIT_COMMITTER_DATE="+isoDate,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git commit failed for %q: %v\nOutput: %s", message, err, string(output))
	}
}

func collect(t *testing.T, it *gitlog.Iter) []gitlog.Commit {
	t.Helper()
	var commits []gitlog.Commit
	for it.Next() {
		commits = append(commits, it.Commit())
	}
	if err := it.Err(); err != nil {
		t.Fatalf("iterating commits: %v", err)
	}
	return commits
}

func testTime(day, hour int) time.Time {
	return time.Date(2024, time.March, day, hour, 0, 0, 0, time.UTC)
}

func ptrTime(tm time.Time) *time.Time { return &tm }

// --- Test Cases ---

func TestExtract(t *testing.T) {
	repo := setupGitRepo(t)
	gitCommit(t, repo, "a.txt", "one\n", "first", "Alice Alpha", "alice@example.com", testTime(1, 10))
	gitCommit(t, repo, "b.txt", "two\n", "second", "Bob Bravo", "bob@example.com", testTime(2, 10))
	gitCommit(t, repo, "c.txt", "three\n", "third", "Alice Alpha", "alice@example.com", testTime(3, 10))

	it, err := gitlog.Extract(context.Background(), repo, gitlog.Filter{})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	commits := collect(t, it)

	if len(commits) != 3 {
		t.Fatalf("Extract() returned %d commits, want 3", len(commits))
	}

	// git log walks reverse-chronologically.
	wantNames := []string{"Alice Alpha", "Bob Bravo", "Alice Alpha"}
	wantEmails := []string{"alice@example.com", "bob@example.com", "alice@example.com"}
	wantTimes := []time.Time{testTime(3, 10), testTime(2, 10), testTime(1, 10)}
	for i, c := range commits {
		if len(c.Hash) != 40 {
			t.Errorf("commit %d hash = %q, want 40-char hex id", i, c.Hash)
		}
		if c.AuthorName != wantNames[i] {
			t.Errorf("commit %d name = %q, want %q", i, c.AuthorName, wantNames[i])
		}
		if c.AuthorEmail != wantEmails[i] {
			t.Errorf("commit %d email = %q, want %q", i, c.AuthorEmail, wantEmails[i])
		}
		if !c.Authored.Equal(wantTimes[i]) {
			t.Errorf("commit %d authored = %v, want %v", i, c.Authored, wantTimes[i])
		}
	}
}

func TestExtractExcludesMerges(t *testing.T) {
	repo := setupGitRepo(t)
	gitCommit(t, repo, "base.txt", "base\n", "base", "Alice Alpha", "alice@example.com", testTime(1, 10))
	runGitCommand(t, repo, "checkout", "-b", "feature")
	gitCommit(t, repo, "feat.txt", "feat\n", "feature work", "Bob Bravo", "bob@example.com", testTime(2, 10))
	runGitCommand(t, repo, "checkout", "main")
	gitCommit(t, repo, "main.txt", "main\n", "main work", "Alice Alpha", "alice@example.com", testTime(3, 10))
	runGitCommand(t, repo, "merge", "--no-ff", "-m", "merge feature", "feature")

	it, err := gitlog.Extract(context.Background(), repo, gitlog.Filter{})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	commits := collect(t, it)

	if len(commits) != 3 {
		t.Fatalf("Extract() returned %d commits, want 3 (merge excluded)", len(commits))
	}
	for _, c := range commits {
		if c.AuthorName == "" {
			t.Errorf("commit %s has empty author name", c.Hash)
		}
	}
}

func TestExtractDateRange(t *testing.T) {
	repo := setupGitRepo(t)
	gitCommit(t, repo, "a.txt", "1\n", "first", "Alice Alpha", "alice@example.com", testTime(1, 10))
	gitCommit(t, repo, "b.txt", "2\n", "second", "Alice Alpha", "alice@example.com", testTime(5, 10))
	gitCommit(t, repo, "c.txt", "3\n", "third", "Alice Alpha", "alice@example.com", testTime(9, 10))

	testCases := []struct {
		name   string
		filter gitlog.Filter
		want   int
	}{
		{name: "open-ended", filter: gitlog.Filter{}, want: 3},
		{name: "since only", filter: gitlog.Filter{Since: ptrTime(testTime(3, 0))}, want: 2},
		{name: "until only", filter: gitlog.Filter{Until: ptrTime(testTime(7, 0))}, want: 2},
		{
			name:   "both bounds",
			filter: gitlog.Filter{Since: ptrTime(testTime(3, 0)), Until: ptrTime(testTime(7, 0))},
			want:   1,
		},
		{
			name:   "range with no commits is success",
			filter: gitlog.Filter{Since: ptrTime(testTime(20, 0))},
			want:   0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			it, err := gitlog.Extract(context.Background(), repo, tc.filter)
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if got := len(collect(t, it)); got != tc.want {
				t.Errorf("Extract() returned %d commits, want %d", got, tc.want)
			}
		})
	}
}

func TestExtractSubdirFilter(t *testing.T) {
	repo := setupGitRepo(t)
	gitCommit(t, repo, "root.txt", "r\n", "root change", "Alice Alpha", "alice@example.com", testTime(1, 10))
	gitCommit(t, repo, "sub/inner.txt", "i\n", "sub change", "Bob Bravo", "bob@example.com", testTime(2, 10))

	it, err := gitlog.Extract(context.Background(), repo, gitlog.Filter{Subdir: "sub"})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	commits := collect(t, it)

	if len(commits) != 1 {
		t.Fatalf("Extract() returned %d commits, want 1", len(commits))
	}
	if commits[0].AuthorEmail != "bob@example.com" {
		t.Errorf("commit email = %q, want %q", commits[0].AuthorEmail, "bob@example.com")
	}
}

func TestExtractRefNotFound(t *testing.T) {
	repo := setupGitRepo(t)
	gitCommit(t, repo, "a.txt", "1\n", "first", "Alice Alpha", "alice@example.com", testTime(1, 10))

	_, err := gitlog.Extract(context.Background(), repo, gitlog.Filter{Ref: "no-such-branch"})
	if !errors.Is(err, gitlog.ErrRefNotFound) {
		t.Fatalf("Extract() error = %v, want ErrRefNotFound", err)
	}
}

func TestExtractEmptyRepository(t *testing.T) {
	repo := setupGitRepo(t)

	_, err := gitlog.Extract(context.Background(), repo, gitlog.Filter{})
	if !errors.Is(err, gitlog.ErrRefNotFound) {
		t.Fatalf("Extract() on empty repo error = %v, want ErrRefNotFound", err)
	}
}

func TestExtractSubdirNotFound(t *testing.T) {
	repo := setupGitRepo(t)
	gitCommit(t, repo, "a.txt", "1\n", "first", "Alice Alpha", "alice@example.com", testTime(1, 10))

	_, err := gitlog.Extract(context.Background(), repo, gitlog.Filter{Subdir: "never/existed"})
	if !errors.Is(err, gitlog.ErrSubdirNotFound) {
		t.Fatalf("Extract() error = %v, want ErrSubdirNotFound", err)
	}
}

func TestSubdirExistsDistinguishesHistoricalPaths(t *testing.T) {
	repo := setupGitRepo(t)
	gitCommit(t, repo, "sub/inner.txt", "i\n", "add", "Alice Alpha", "alice@example.com", testTime(1, 10))
	runGitCommand(t, repo, "rm", "sub/inner.txt")
	runGitCommand(t, repo, "commit", "-m", "remove sub")

	// The path is gone from the worktree but existed in history.
	ok, err := gitlog.SubdirExists(context.Background(), repo, "sub")
	if err != nil {
		t.Fatalf("SubdirExists() error = %v", err)
	}
	if !ok {
		t.Error("SubdirExists() = false for a path present in history, want true")
	}

	ok, err = gitlog.SubdirExists(context.Background(), repo, "never/existed")
	if err != nil {
		t.Fatalf("SubdirExists() error = %v", err)
	}
	if ok {
		t.Error("SubdirExists() = true for a path absent from history, want false")
	}
}

func TestResolveRef(t *testing.T) {
	repo := setupGitRepo(t)
	gitCommit(t, repo, "a.txt", "1\n", "first", "Alice Alpha", "alice@example.com", testTime(1, 10))

	hash, err := gitlog.ResolveRef(context.Background(), repo, "HEAD")
	if err != nil {
		t.Fatalf("ResolveRef(HEAD) error = %v", err)
	}
	if len(hash) != 40 {
		t.Errorf("ResolveRef(HEAD) = %q, want 40-char hash", hash)
	}

	if _, err := gitlog.ResolveRef(context.Background(), repo, "bogus"); !errors.Is(err, gitlog.ErrRefNotFound) {
		t.Errorf("ResolveRef(bogus) error = %v, want ErrRefNotFound", err)
	}
}

func TestLineStats(t *testing.T) {
	repo := setupGitRepo(t)
	gitCommit(t, repo, "f.txt", "a\nb\nc\n", "add three lines", "Alice Alpha", "alice@example.com", testTime(1, 10))
	gitCommit(t, repo, "f.txt", "a\nb\n", "drop one line", "Alice Alpha", "alice@example.com", testTime(2, 10))
	gitCommit(t, repo, "g.txt", "x\n", "other author", "Bob Bravo", "bob@example.com", testTime(3, 10))

	added, deleted, err := gitlog.LineStats(context.Background(), repo, gitlog.Filter{}, "alice@example.com")
	if err != nil {
		t.Fatalf("LineStats() error = %v", err)
	}
	if added != 3 {
		t.Errorf("added = %d, want 3", added)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	added, deleted, err = gitlog.LineStats(context.Background(), repo, gitlog.Filter{}, "bob@example.com")
	if err != nil {
		t.Fatalf("LineStats() error = %v", err)
	}
	if added != 1 || deleted != 0 {
		t.Errorf("bob stats = (%d, %d), want (1, 0)", added, deleted)
	}
}

func TestIterIsSingleUse(t *testing.T) {
	repo := setupGitRepo(t)
	gitCommit(t, repo, "a.txt", "1\n", "first", "Alice Alpha", "alice@example.com", testTime(1, 10))

	it, err := gitlog.Extract(context.Background(), repo, gitlog.Filter{})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	_ = collect(t, it)

	if it.Next() {
		t.Error("Next() after exhaustion = true, want false")
	}
	if err := it.Err(); err != nil {
		t.Errorf("Err() after exhaustion = %v, want nil", err)
	}
}

func TestIterCloseAbandonsStream(t *testing.T) {
	repo := setupGitRepo(t)
	for i := 0; i < 5; i++ {
		gitCommit(t, repo, fmt.Sprintf("f%d.txt", i), "x\n", fmt.Sprintf("c%d", i),
			"Alice Alpha", "alice@example.com", testTime(1+i, 10))
	}

	it, err := gitlog.Extract(context.Background(), repo, gitlog.Filter{})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !it.Next() {
		t.Fatalf("Next() = false, want at least one commit; err = %v", it.Err())
	}
	if err := it.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
