package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// Runner executes read-only git queries scoped to a directory.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// ExecRunner is the default Runner; it shells out to the git binary.
type ExecRunner struct {
	binary string
}

// NewExecRunner creates an ExecRunner using the git found on PATH.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{binary: "git"}
}

// LookPath checks that the git binary is available.
func (r *ExecRunner) LookPath() error {
	if _, err := exec.LookPath(r.binary); err != nil {
		return fmt.Errorf("%w: %w", ErrGitNotFound, err)
	}
	return nil
}

// Run implements Runner. Failures are classified as ErrGitNotFound,
// ErrQueryTimeout or a *GitError wrapping ErrGitCommandFailed.
func (r *ExecRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, r.binary, append([]string{"-C", dir}, args...)...)
	// Keep output stable regardless of the user's pager or locale settings.
	cmd.Env = append(cmd.Environ(), "GIT_PAGER=cat", "LC_ALL=C", "GIT_TERMINAL_PROMPT=0")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.String(), nil
	}
	if errors.Is(err, exec.ErrNotFound) {
		return "", fmt.Errorf("%w: %w", ErrGitNotFound, err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %s in %s", ErrQueryTimeout, args[0], dir)
		}
		return "", ctxErr
	}

	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	return "", &GitError{
		Dir:      dir,
		Args:     args,
		ExitCode: exitCode,
		Stderr:   stderr.String(),
		Err:      fmt.Errorf("%w: %w", ErrGitCommandFailed, err),
	}
}
