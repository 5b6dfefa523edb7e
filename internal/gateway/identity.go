package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AmariahAK/commit-checker/internal/domain"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"go.uber.org/zap"
)

// IdentityResolver determines which commits of a repository belong to the local user.
type IdentityResolver struct {
	runner   Runner
	override domain.Identity
	logger   *zap.Logger
}

// NewIdentityResolver creates a resolver. A non-zero override wins over git
// configuration. With a nil runner the configuration is read through go-git only.
func NewIdentityResolver(runner Runner, override domain.Identity, logger *zap.Logger) *IdentityResolver {
	return &IdentityResolver{runner: runner, override: override, logger: logger}
}

// Resolve returns the commit identity configured for the repository at path.
// git is asked first so that include and includeIf rules apply; if it cannot
// answer, repository-local configuration is merged over the global one with go-git.
func (r *IdentityResolver) Resolve(ctx context.Context, path string) (domain.Identity, error) {
	if !r.override.IsZero() {
		return r.override, nil
	}

	if r.runner != nil {
		id, err := r.fromGit(ctx, path)
		if err == nil {
			r.logResolved(path, id)
			return id, nil
		}
		if errors.Is(err, ErrGitNotFound) || ctx.Err() != nil {
			return domain.Identity{}, err
		}
		r.logger.Debug("git config lookup failed, reading configuration with go-git", zap.String("repo", path), zap.Error(err))
	}

	id, err := r.fromConfig(path)
	if err != nil {
		return domain.Identity{}, err
	}
	r.logResolved(path, id)
	return id, nil
}

func (r *IdentityResolver) fromGit(ctx context.Context, path string) (domain.Identity, error) {
	name, err := r.configValue(ctx, path, "user.name")
	if err != nil {
		return domain.Identity{}, err
	}
	email, err := r.configValue(ctx, path, "user.email")
	if err != nil {
		return domain.Identity{}, err
	}
	return domain.Identity{Name: name, Email: email}, nil
}

// configValue returns "" for an unset key; `git config --get` exits 1 without output then.
func (r *IdentityResolver) configValue(ctx context.Context, path, key string) (string, error) {
	out, err := r.runner.Run(ctx, path, "config", "--get", key)
	if err != nil {
		var gitErr *GitError
		if errors.As(err, &gitErr) && gitErr.ExitCode == 1 && strings.TrimSpace(gitErr.Stderr) == "" {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (r *IdentityResolver) fromConfig(path string) (domain.Identity, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("failed to open repository %s: %w", path, err)
	}
	cfg, err := repo.ConfigScoped(config.GlobalScope)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("failed to read git config of %s: %w", path, err)
	}
	return domain.Identity{Name: cfg.User.Name, Email: cfg.User.Email}, nil
}

func (r *IdentityResolver) logResolved(path string, id domain.Identity) {
	r.logger.Debug("resolved identity",
		zap.String("repo", path),
		zap.String("name", id.Name),
		zap.String("email", id.Email))
}
