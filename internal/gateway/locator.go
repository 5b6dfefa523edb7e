package gateway

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/AmariahAK/commit-checker/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

// LocateResult is the outcome of a repository scan.
type LocateResult struct {
	Repositories []domain.RepositoryRef
	Warnings     []*ScanWarning
}

// Locator walks a directory tree looking for git working trees.
type Locator struct {
	exclude map[string]struct{}
	logger  *zap.Logger
}

// NewLocator creates a Locator that never descends into directories
// whose base name is listed in exclude.
func NewLocator(exclude []string, logger *zap.Logger) *Locator {
	set := make(map[string]struct{}, len(exclude))
	for _, name := range exclude {
		set[name] = struct{}{}
	}
	return &Locator{exclude: set, logger: logger}
}

// NewRepositoryRef builds a RepositoryRef for an already canonical path.
func NewRepositoryRef(path string) domain.RepositoryRef {
	return domain.RepositoryRef{
		Path: path,
		Name: norm.NFC.String(filepath.Base(path)),
	}
}

// Locate finds every repository root under root. A repository's own subtree is
// not searched further, symlinked directories are followed once per canonical
// path, and unreadable directories become warnings.
func (l *Locator) Locate(ctx context.Context, root string) (*LocateResult, error) {
	canonical, err := canonicalize(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRootNotFound, root, err)
	}
	info, err := os.Stat(canonical)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRootNotFound, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrRootNotFound, root)
	}

	l.logger.Debug("scanning for repositories", zap.String("root", canonical))
	w := &walk{
		locator: l,
		visited: make(map[string]struct{}),
		found:   make(map[string]domain.RepositoryRef),
	}
	if err := w.visit(ctx, canonical); err != nil {
		return nil, err
	}

	result := &LocateResult{
		Repositories: make([]domain.RepositoryRef, 0, len(w.found)),
		Warnings:     w.warnings,
	}
	for _, ref := range w.found {
		result.Repositories = append(result.Repositories, ref)
	}
	sort.Slice(result.Repositories, func(i, j int) bool {
		return result.Repositories[i].Path < result.Repositories[j].Path
	})

	l.logger.Debug("scan complete",
		zap.Int("repositories", len(result.Repositories)),
		zap.Int("warnings", len(result.Warnings)))
	return result, nil
}

type walk struct {
	locator  *Locator
	visited  map[string]struct{}
	found    map[string]domain.RepositoryRef
	warnings []*ScanWarning
}

// visit expects dir to be canonical already.
func (w *walk) visit(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, seen := w.visited[dir]; seen {
		return nil
	}
	w.visited[dir] = struct{}{}

	if isRepositoryRoot(dir) {
		w.found[dir] = NewRepositoryRef(dir)
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		w.warn(dir, err)
		// ReadDir may still return the entries it read before failing.
	}
	for _, entry := range entries {
		if _, skip := w.locator.exclude[entry.Name()]; skip {
			continue
		}
		child := filepath.Join(dir, entry.Name())

		switch {
		case entry.IsDir():
			if err := w.visit(ctx, child); err != nil {
				return err
			}
		case entry.Type()&fs.ModeSymlink != 0:
			target, err := filepath.EvalSymlinks(child)
			if err != nil {
				w.warn(child, err)
				continue
			}
			info, err := os.Stat(target)
			if err != nil {
				w.warn(child, err)
				continue
			}
			if !info.IsDir() {
				continue
			}
			if err := w.visit(ctx, target); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *walk) warn(path string, err error) {
	w.locator.logger.Warn("skipping unreadable path", zap.String("path", path), zap.Error(err))
	w.warnings = append(w.warnings, &ScanWarning{Path: path, Err: err})
}

// isRepositoryRoot accepts both a .git directory and a gitfile (worktrees, submodules).
func isRepositoryRoot(dir string) bool {
	_, err := os.Lstat(filepath.Join(dir, ".git"))
	return err == nil
}

func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
