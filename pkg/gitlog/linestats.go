package gitlog

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/arames/git-recruiting/internal/gitexec"
)

// LineStats sums the lines added and deleted by one author over the commits
// matching the filter, using git's numstat output. Binary file entries
// (reported as "-") are skipped. The author pattern is matched by git
// against "Name <email>"; pass the contributor's email when available, the
// exact name otherwise.
func LineStats(ctx context.Context, repoPath string, f Filter, author string) (added, deleted int, err error) {
	if author == "" {
		return 0, 0, fmt.Errorf("author pattern cannot be empty")
	}

	args := []string{
		"log", f.ref(),
		"--no-merges",
		"--numstat",
		"--format=",
		"--author=" + author,
	}
	args = appendRangeArgs(args, f)
	args = append(args, "--")
	if f.Subdir != "" {
		args = append(args, f.Subdir)
	}

	stream, err := gitexec.Start(ctx, repoPath, args...)
	if err != nil {
		return 0, 0, err
	}

	scanner := bufio.NewScanner(stream.Reader())
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		// numstat lines are "<added>\t<deleted>\t<path>".
		parts := strings.SplitN(line, "\t", 3)
		if len(parts) < 3 {
			continue
		}
		a, errA := strconv.Atoi(parts[0])
		d, errD := strconv.Atoi(parts[1])
		if errA != nil || errD != nil {
			continue
		}
		added += a
		deleted += d
	}
	if err := scanner.Err(); err != nil {
		_ = stream.Kill()
		return 0, 0, fmt.Errorf("reading numstat output: %w", err)
	}

	if err := stream.Wait(); err != nil {
		return 0, 0, err
	}
	return added, deleted, nil
}
