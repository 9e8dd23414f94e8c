// Package gitmirror maintains local mirrors of remote repositories under a
// cache root. A remote's mirror directory is derived deterministically from
// its canonical URL, created with a full mirror clone on first use and
// refreshed with a remote update afterwards. Local repositories bypass the
// cache entirely.
package gitmirror

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/arames/git-recruiting/internal/gitexec"
	"github.com/arames/git-recruiting/pkg/gitlocator"
)

const (
	shortHashLen = 12
	lockSuffix   = ".lock"
	stagingInfix = ".staging-"

	lockWait     = 15 * time.Minute // clones of large repositories are slow
	lockPoll     = 250 * time.Millisecond
	staleLockAge = time.Hour
)

// CloneError indicates the initial mirror clone failed. The wrapped error
// carries git's diagnostic output.
type CloneError struct {
	URL string
	Err error
}

func (e *CloneError) Error() string { return fmt.Sprintf("cloning %s: %v", e.URL, e.Err) }
func (e *CloneError) Unwrap() error { return e.Err }

// UpdateError indicates refreshing an existing mirror failed. The mirror at
// Path is stale but intact; whether to proceed with it is the caller's call.
type UpdateError struct {
	Path string
	Err  error
}

func (e *UpdateError) Error() string { return fmt.Sprintf("updating mirror %s: %v", e.Path, e.Err) }
func (e *UpdateError) Unwrap() error { return e.Err }

// Manager maps canonical remote URLs to mirror directories under a cache
// root. A Manager is safe for concurrent use; clone and update operations
// for the same mirror are serialized within the process and across
// processes.
type Manager struct {
	root   string
	logger *logrus.Logger
	group  singleflight.Group
}

// NewManager creates the cache root if needed and returns a manager over it.
func NewManager(root string, logger *logrus.Logger) (*Manager, error) {
	if root == "" {
		return nil, errors.New("cache root cannot be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache root %q: %w", root, err)
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Manager{root: root, logger: logger}, nil
}

// Root returns the cache root directory.
func (m *Manager) Root() string { return m.root }

var slugDisallowed = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Key returns the deterministic cache key for a canonical remote URL: a
// human-readable repository slug joined with a short stable hash of the
// normalized URL. Two runs against the same canonical URL always map to the
// same key.
func Key(remoteURL string) string {
	normalized := normalizeURL(remoteURL)
	sum := sha256.Sum256([]byte(normalized))
	return slug(normalized) + "_" + hex.EncodeToString(sum[:])[:shortHashLen]
}

func normalizeURL(remoteURL string) string {
	s := strings.TrimSpace(remoteURL)
	s = strings.TrimRight(s, "/")
	return strings.TrimSuffix(s, ".git")
}

func slug(normalized string) string {
	base := normalized
	if i := strings.LastIndexAny(base, "/:"); i >= 0 {
		base = base[i+1:]
	}
	base = slugDisallowed.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-.")
	if base == "" {
		return "repo"
	}
	return base
}

// MirrorPath returns the on-disk mirror location for a remote URL without
// touching the cache.
func (m *Manager) MirrorPath(remoteURL string) string {
	return filepath.Join(m.root, Key(remoteURL))
}

// Obtain returns a local repository path for the target. Local targets are
// returned unchanged and never mutated. Remote targets are cloned on first
// use and refreshed on subsequent use.
//
// When a refresh fails but an intact mirror already exists, Obtain returns
// the stale mirror path together with an *UpdateError so the caller can
// choose between proceeding with stale data and aborting.
func (m *Manager) Obtain(ctx context.Context, target gitlocator.Target) (string, error) {
	if target.IsLocal() {
		return target.Path, nil
	}

	remoteURL := target.CloneURL
	path := m.MirrorPath(remoteURL)

	_, err, _ := m.group.Do(path, func() (any, error) {
		return nil, m.sync(ctx, remoteURL, path)
	})
	if err != nil {
		var updateErr *UpdateError
		if errors.As(err, &updateErr) {
			return path, err
		}
		return "", err
	}
	return path, nil
}

// sync brings the mirror at path current, cloning it first if necessary.
// The per-mirror lock file serializes invocations from other processes.
func (m *Manager) sync(ctx context.Context, remoteURL, path string) error {
	unlock, err := m.lock(path)
	if err != nil {
		return err
	}
	defer unlock()

	m.removeAbandonedStaging(path)

	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("inspecting mirror %q: %w", path, err)
		}
		return m.clone(ctx, remoteURL, path)
	}
	return m.update(ctx, remoteURL, path)
}

// clone stages a full mirror clone next to the final location and promotes
// it with an atomic rename, so an interrupted clone never leaves a partial
// mirror that later runs would treat as valid.
func (m *Manager) clone(ctx context.Context, remoteURL, path string) error {
	m.logger.WithField("url", remoteURL).Info("Cloning repository...")

	staging := fmt.Sprintf("%s%s%d", path, stagingInfix, os.Getpid())
	if _, err := gitexec.Run(ctx, m.root, "clone", "--mirror", remoteURL, staging); err != nil {
		_ = os.RemoveAll(staging)
		return &CloneError{URL: remoteURL, Err: err}
	}
	if err := os.Rename(staging, path); err != nil {
		_ = os.RemoveAll(staging)
		return fmt.Errorf("promoting staged clone into %q: %w", path, err)
	}

	if err := m.recordClone(remoteURL, path); err != nil {
		m.logger.WithError(err).Warn("Could not record mirror in cache index")
	}
	return nil
}

// update fetches all refs and prunes stale remote-tracking refs. The mirror
// is left untouched on failure.
func (m *Manager) update(ctx context.Context, remoteURL, path string) error {
	m.logger.WithField("path", path).Info("Updating cached mirror...")

	if _, err := gitexec.Run(ctx, path, "remote", "update", "--prune"); err != nil {
		return &UpdateError{Path: path, Err: err}
	}

	if err := m.recordUpdate(remoteURL, path); err != nil {
		m.logger.WithError(err).Warn("Could not record mirror update in cache index")
	}
	return nil
}

// removeAbandonedStaging clears staging directories left behind by
// interrupted clones of this mirror.
func (m *Manager) removeAbandonedStaging(path string) {
	matches, err := filepath.Glob(path + stagingInfix + "*")
	if err != nil {
		return
	}
	for _, stale := range matches {
		m.logger.WithField("path", stale).Debug("Removing abandoned staging directory")
		_ = os.RemoveAll(stale)
	}
}

// lock acquires the cross-process lock for a mirror path, waiting for a
// concurrent holder to finish. Locks older than staleLockAge are assumed
// abandoned by a killed process and taken over.
func (m *Manager) lock(path string) (func(), error) {
	lockPath := path + lockSuffix
	deadline := time.Now().Add(lockWait)

	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			_ = f.Close()
			return func() { _ = os.Remove(lockPath) }, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("acquiring mirror lock %q: %w", lockPath, err)
		}

		if info, statErr := os.Stat(lockPath); statErr == nil && time.Since(info.ModTime()) > staleLockAge {
			m.logger.WithField("lock", lockPath).Warn("Removing stale mirror lock")
			_ = os.Remove(lockPath)
			continue
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("timed out waiting for mirror lock %q", lockPath)
		}
		time.Sleep(lockPoll)
	}
}
