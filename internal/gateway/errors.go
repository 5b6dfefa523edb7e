package gateway

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrGitNotFound means the git binary is missing; no repository can be processed.
	ErrGitNotFound = errors.New("git executable not found on PATH")
	// ErrGitCommandFailed means a git query exited with a non-zero status.
	ErrGitCommandFailed = errors.New("git command failed")
	// ErrQueryTimeout means a git query did not finish within its deadline.
	ErrQueryTimeout = errors.New("git query timed out")
	// ErrRootNotFound means the scan root does not exist or is not a directory.
	ErrRootNotFound = errors.New("scan root not found")
	// ErrMalformedOutput means git printed something the extractor could not parse.
	ErrMalformedOutput = errors.New("malformed git output")
	// ErrNoIdentity means neither configuration nor git names an author for a repository.
	ErrNoIdentity = errors.New("no git identity configured")
)

// GitError describes one failed git invocation against a repository.
type GitError struct {
	Dir      string
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *GitError) Error() string {
	op := ""
	if len(e.Args) > 0 {
		op = e.Args[0]
	}
	msg := fmt.Sprintf("git %s failed in %s (exit %d)", op, e.Dir, e.ExitCode)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg = fmt.Sprintf("%s: %s", msg, stderr)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *GitError) Unwrap() error {
	return e.Err
}

// ScanWarning is a non-fatal problem met while walking the scan root.
type ScanWarning struct {
	Path string
	Err  error
}

func (w *ScanWarning) Error() string {
	return fmt.Sprintf("skipped %s: %v", w.Path, w.Err)
}

func (w *ScanWarning) Unwrap() error {
	return w.Err
}
