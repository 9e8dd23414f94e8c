// Package gitlog runs scoped history queries against a local repository and
// parses git's delimiter-separated log output into commit records. The field
// layout of the log format is treated as a fixed wire format: a line that
// does not split into exactly the expected fields aborts extraction instead
// of being skipped or misattributed.
package gitlog

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/arames/git-recruiting/internal/gitexec"
)

const (
	// logFormat is the wire format requested from git log. Changing it
	// requires changing fieldCount and parseLine together.
	logFormat  = "%H|%an|%ae|%at"
	fieldSep   = "|"
	fieldCount = 4

	defaultRef = "HEAD"
)

// ErrRefNotFound is returned when the requested branch or ref does not
// resolve to a commit in the repository.
var ErrRefNotFound = errors.New("ref not found")

// ErrSubdirNotFound is returned when a subdirectory filter matches no path
// anywhere in the repository's history. It distinguishes "path never
// existed" from "no commits in range" and is warning-level: callers usually
// report it and present an empty result.
var ErrSubdirNotFound = errors.New("subdirectory not found in repository history")

// MalformedLineError reports a git log line that violated the expected wire
// format. It is fatal for the extraction run.
type MalformedLineError struct {
	Line   string
	Reason string
}

func (e *MalformedLineError) Error() string {
	return fmt.Sprintf("malformed git log line (%s): %q", e.Reason, e.Line)
}

// Commit is one non-merge commit as reported by git log.
type Commit struct {
	Hash        string
	AuthorName  string
	AuthorEmail string
	Authored    time.Time
}

// Filter scopes a history query. The zero value queries the full history
// reachable from HEAD.
type Filter struct {
	// Ref is the branch or ref to walk; empty means HEAD.
	Ref string
	// Subdir restricts the query to commits touching this path.
	Subdir string
	// Since and Until bound the query by author date; nil means open-ended.
	Since *time.Time
	Until *time.Time
}

func (f Filter) ref() string {
	if f.Ref == "" {
		return defaultRef
	}
	return f.Ref
}

// ResolveRef verifies that ref names a commit in the repository and returns
// its hash. Failure wraps ErrRefNotFound with git's diagnostic.
func ResolveRef(ctx context.Context, repoPath, ref string) (string, error) {
	out, err := gitexec.Run(ctx, repoPath, "rev-parse", "--verify", ref+"^{commit}")
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrRefNotFound, ref, err)
	}
	return out, nil
}

// SubdirExists reports whether subdir ever matched a path anywhere in the
// repository's history, on any branch.
func SubdirExists(ctx context.Context, repoPath, subdir string) (bool, error) {
	out, err := gitexec.Run(ctx, repoPath,
		"log", "--all", "-1", "--format=%H", "--", subdir)
	if err != nil {
		return false, fmt.Errorf("probing subdirectory %q: %w", subdir, err)
	}
	return out != "", nil
}

// Extract starts a scoped history query and returns an iterator over the
// matching non-merge commits, ordered as git log returns them
// (reverse-chronological). The iterator is lazy, finite and single-use;
// callers needing a second pass re-invoke Extract.
//
// The ref is resolved up front so an unknown branch surfaces as
// ErrRefNotFound rather than a mid-stream failure, and a subdirectory filter
// that never matched any historical path surfaces as ErrSubdirNotFound.
func Extract(ctx context.Context, repoPath string, f Filter) (*Iter, error) {
	ref := f.ref()
	if _, err := ResolveRef(ctx, repoPath, ref); err != nil {
		return nil, err
	}

	if f.Subdir != "" {
		ok, err := SubdirExists(ctx, repoPath, f.Subdir)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrSubdirNotFound, f.Subdir)
		}
	}

	args := []string{"log", ref, "--no-merges", "--format=" + logFormat}
	args = appendRangeArgs(args, f)
	args = append(args, "--")
	if f.Subdir != "" {
		args = append(args, f.Subdir)
	}

	stream, err := gitexec.Start(ctx, repoPath, args...)
	if err != nil {
		return nil, err
	}

	return &Iter{
		stream:  stream,
		scanner: bufio.NewScanner(stream.Reader()),
	}, nil
}

func appendRangeArgs(args []string, f Filter) []string {
	if f.Since != nil {
		args = append(args, "--since="+f.Since.Format(time.RFC3339))
	}
	if f.Until != nil {
		args = append(args, "--until="+f.Until.Format(time.RFC3339))
	}
	return args
}

func parseLine(line string) (Commit, error) {
	parts := strings.Split(line, fieldSep)
	if len(parts) != fieldCount {
		return Commit{}, &MalformedLineError{
			Line:   line,
			Reason: fmt.Sprintf("%d fields, want %d", len(parts), fieldCount),
		}
	}

	ts, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return Commit{}, &MalformedLineError{Line: line, Reason: "bad author timestamp"}
	}

	return Commit{
		Hash:        parts[0],
		AuthorName:  parts[1],
		AuthorEmail: parts[2],
		Authored:    time.Unix(ts, 0).UTC(),
	}, nil
}
