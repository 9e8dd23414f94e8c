// Package gitexec is the single seam between this module and the git
// command-line tool. Every history query and mirror operation goes through
// it, so the rest of the pipeline never touches os/exec or raw stderr.
package gitexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Error describes a git invocation that failed. It carries the argument
// vector, the process exit code and the captured error output so callers can
// surface git's own diagnostic verbatim.
type Error struct {
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("git %s exited with code %d", strings.Join(e.Args, " "), e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Run executes git with the given arguments in dir and returns the trimmed
// standard output. A non-zero exit is returned as an *Error.
func Run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", &Error{
			Args:     args,
			ExitCode: exitCode(err),
			Stderr:   stderr.String(),
			Err:      err,
		}
	}

	return strings.TrimSpace(stdout.String()), nil
}

// Stream is a running git subprocess whose standard output is consumed
// incrementally. Error output is buffered until Wait.
type Stream struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr bytes.Buffer
	args   []string
	done   bool
	err    error
}

// Start launches git with the given arguments in dir and returns a Stream
// over its standard output. Callers must finish with Wait or Kill to reap
// the subprocess.
func Start(ctx context.Context, dir string, args ...string) (*Stream, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	s := &Stream{cmd: cmd, args: args}
	cmd.Stderr = &s.stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("opening stdout pipe for git %s: %w", args[0], err)
	}
	s.stdout = stdout

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting git %s: %w", args[0], err)
	}

	return s, nil
}

// Reader exposes the subprocess standard output.
func (s *Stream) Reader() io.Reader { return s.stdout }

// Wait drains any remaining output and reaps the subprocess. A non-zero exit
// is returned as an *Error. Wait is idempotent.
func (s *Stream) Wait() error {
	if s.done {
		return s.err
	}
	s.done = true

	_, _ = io.Copy(io.Discard, s.stdout)
	if err := s.cmd.Wait(); err != nil {
		s.err = &Error{
			Args:     s.args,
			ExitCode: exitCode(err),
			Stderr:   s.stderr.String(),
			Err:      err,
		}
	}
	return s.err
}

// Kill terminates the subprocess early and reaps it. Used when a consumer
// abandons the stream before exhausting it.
func (s *Stream) Kill() error {
	if s.done {
		return s.err
	}
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	return s.Wait()
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
