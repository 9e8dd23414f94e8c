package gitlog

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/arames/git-recruiting/internal/gitexec"
)

// Iter streams commit records from a running git log subprocess. Usage
// follows the bufio.Scanner pattern:
//
//	it, err := gitlog.Extract(ctx, repoPath, filter)
//	...
//	for it.Next() {
//	    c := it.Commit()
//	    ...
//	}
//	if err := it.Err(); err != nil { ... }
type Iter struct {
	stream  *gitexec.Stream
	scanner *bufio.Scanner
	current Commit
	err     error
	done    bool
}

// Next advances to the next commit record. It returns false when the stream
// is exhausted or a fatal error occurred; distinguish the two with Err.
func (it *Iter) Next() bool {
	if it.done || it.err != nil {
		return false
	}

	for it.scanner.Scan() {
		line := it.scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		commit, err := parseLine(line)
		if err != nil {
			it.fail(err)
			return false
		}
		it.current = commit
		return true
	}

	it.done = true
	if err := it.scanner.Err(); err != nil {
		it.fail(fmt.Errorf("reading git log output: %w", err))
		return false
	}
	if err := it.stream.Wait(); err != nil {
		it.err = err
	}
	return false
}

// Commit returns the record produced by the last successful Next.
func (it *Iter) Commit() Commit { return it.current }

// Err returns the first fatal error encountered by the iterator.
func (it *Iter) Err() error { return it.err }

// Close terminates the underlying subprocess. It only needs to be called
// when the iterator is abandoned before Next returned false.
func (it *Iter) Close() error {
	if !it.done {
		it.done = true
		_ = it.stream.Kill()
	}
	return it.err
}

func (it *Iter) fail(err error) {
	it.err = err
	it.done = true
	_ = it.stream.Kill()
}
