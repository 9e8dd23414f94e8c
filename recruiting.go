// Package recruiting analyzes the commit history of a git repository and
// produces a ranked contributor table for technical sourcing. It ties the
// pipeline together: resolve the repository locator, obtain a cached local
// mirror, extract the commit history and aggregate it per contributor.
package recruiting

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/arames/git-recruiting/internal/config"
	"github.com/arames/git-recruiting/pkg/gitcontributors"
	"github.com/arames/git-recruiting/pkg/gitlocator"
	"github.com/arames/git-recruiting/pkg/gitlog"
	"github.com/arames/git-recruiting/pkg/gitmirror"
)

// progressInterval is how many commits pass between progress callbacks.
const progressInterval = 100

// Options configures a contributor analysis run.
type Options struct {
	// Repo is the repository locator: a local path, a clone URL, or a
	// GitHub web URL (tree/blob links select a branch and subdirectory).
	Repo string

	// Branch limits the history to one ref. It overrides any branch
	// embedded in a web locator. Empty means the remote's default branch.
	Branch string

	// Subdir limits the history to commits touching one subdirectory,
	// relative to the repository root. If the locator also embeds a
	// subdirectory, Subdir is appended below it.
	Subdir string

	// Since and Until bound the analyzed history; nil means unbounded.
	Since *time.Time
	Until *time.Time

	// CacheRoot is where remote repositories are mirrored. Empty uses the
	// default cache location.
	CacheRoot string

	// LineStats also collects added/deleted line counts per contributor.
	// This runs one extra git pass per contributor and can be slow on
	// large histories.
	LineStats bool

	// AllowStale keeps going with the cached mirror when refreshing it
	// from the remote fails. Without it, a failed refresh aborts the run.
	AllowStale bool

	// Logger receives diagnostic output. If nil, logging is discarded.
	Logger *logrus.Logger

	// Progress, if set, is called with the running commit count as the
	// history is read.
	Progress func(commits int)
}

// Result is the outcome of an analysis run.
type Result struct {
	// Contributors is the ranked table, most commits first.
	Contributors []gitcontributors.Contributor

	// RepoPath is the local repository the history was read from: the
	// mirror path for remote locators, the path itself for local ones.
	RepoPath string

	// Warnings are non-fatal problems the caller should surface, such as
	// analyzing a stale mirror or a subdirectory with no history.
	Warnings []error
}

// Analyze runs the full pipeline for the repository named by opts.Repo.
func Analyze(ctx context.Context, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	target, err := gitlocator.Resolve(opts.Repo)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve repository locator %q: %w", opts.Repo, err)
	}

	branch := opts.Branch
	if branch == "" {
		branch = target.Branch
	}
	subdir := target.Subdir
	if opts.Subdir != "" {
		subdir = path.Join(subdir, opts.Subdir)
	}

	result := &Result{}

	cacheRoot := opts.CacheRoot
	if cacheRoot == "" {
		cacheRoot = config.DefaultCacheRoot()
	}
	manager, err := gitmirror.NewManager(cacheRoot, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open mirror cache at %s: %w", cacheRoot, err)
	}

	repoPath, err := manager.Obtain(ctx, target)
	if err != nil {
		var updateErr *gitmirror.UpdateError
		if errors.As(err, &updateErr) && opts.AllowStale {
			logger.WithError(updateErr).Warn("Mirror refresh failed; analyzing stale cached copy")
			result.Warnings = append(result.Warnings, updateErr)
		} else {
			return nil, fmt.Errorf("failed to obtain repository %s: %w", target.Canonical(), err)
		}
	}
	result.RepoPath = repoPath

	filter := gitlog.Filter{
		Ref:    branch,
		Subdir: subdir,
		Since:  opts.Since,
		Until:  opts.Until,
	}
	iter, err := gitlog.Extract(ctx, repoPath, filter)
	if err != nil {
		if errors.Is(err, gitlog.ErrSubdirNotFound) {
			logger.WithField("subdir", subdir).Warn("Subdirectory has no history in this repository")
			result.Warnings = append(result.Warnings, err)
			return result, nil
		}
		return nil, fmt.Errorf("failed to read history of %s: %w", repoPath, err)
	}
	defer iter.Close()

	src := &countingSource{iter: iter, progress: opts.Progress}
	contributors, err := gitcontributors.Aggregate(src)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate history of %s: %w", repoPath, err)
	}
	result.Contributors = contributors

	logger.WithFields(logrus.Fields{
		"commits":      src.count,
		"contributors": len(contributors),
	}).Info("History aggregated")

	if opts.LineStats {
		if err := fillLineStats(ctx, repoPath, filter, result.Contributors); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// fillLineStats runs one extra numstat pass per contributor.
func fillLineStats(ctx context.Context, repoPath string, filter gitlog.Filter, contributors []gitcontributors.Contributor) error {
	for i := range contributors {
		author := contributors[i].Email
		if author == "" {
			author = contributors[i].Name
		}
		added, deleted, err := gitlog.LineStats(ctx, repoPath, filter, author)
		if err != nil {
			return fmt.Errorf("failed to collect line stats for %s: %w", contributors[i].Name, err)
		}
		contributors[i].LinesAdded = added
		contributors[i].LinesDeleted = deleted
	}
	return nil
}

// countingSource forwards a gitlog iterator while reporting progress.
type countingSource struct {
	iter     *gitlog.Iter
	progress func(int)
	count    int
}

func (s *countingSource) Next() bool {
	if !s.iter.Next() {
		return false
	}
	s.count++
	if s.progress != nil && s.count%progressInterval == 0 {
		s.progress(s.count)
	}
	return true
}

func (s *countingSource) Commit() gitlog.Commit { return s.iter.Commit() }

func (s *countingSource) Err() error { return s.iter.Err() }
