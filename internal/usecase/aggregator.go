// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/AmariahAK/commit-checker/internal/domain"
	"github.com/AmariahAK/commit-checker/internal/gateway"
	"github.com/montanaflynn/stats"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultWorkers      = 8
	DefaultQueryTimeout = 30 * time.Second
)

// CommitExtractor reads commit statistics of one repository.
type CommitExtractor interface {
	Extract(ctx context.Context, repo domain.RepositoryRef, window domain.Window, now time.Time, id domain.Identity) (*domain.CommitWindowStats, error)
}

// IdentitySource resolves the git author of the repository at path.
type IdentitySource interface {
	Resolve(ctx context.Context, path string) (domain.Identity, error)
}

var (
	_ CommitExtractor = (*gateway.Extractor)(nil)
	_ IdentitySource  = (*gateway.IdentityResolver)(nil)
)

// Aggregator is the use case for aggregating commit activity across repositories.
// It fans the per-repository queries out and combines the results.
type Aggregator struct {
	extractor  CommitExtractor
	identities IdentitySource
	workers    int
	timeout    time.Duration
	logger     *zap.Logger
}

// NewAggregator creates a new Aggregator instance. Non-positive workers or
// timeout fall back to DefaultWorkers and DefaultQueryTimeout.
func NewAggregator(extractor CommitExtractor, identities IdentitySource, workers int, timeout time.Duration, logger *zap.Logger) *Aggregator {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return &Aggregator{
		extractor:  extractor,
		identities: identities,
		workers:    workers,
		timeout:    timeout,
		logger:     logger,
	}
}

// Aggregate queries every repository for timeframe and combines the results.
// A repository that fails is reported in Failures; only a missing git binary
// or cancellation of ctx aborts the whole aggregation.
func (a *Aggregator) Aggregate(ctx context.Context, repos []domain.RepositoryRef, tf domain.Timeframe, now time.Time) (*domain.Summary, error) {
	a.logger.Debug("starting aggregation", zap.Int("repositories", len(repos)), zap.String("timeframe", string(tf)))
	window := tf.Window(now)

	results := make([]*domain.CommitWindowStats, len(repos))
	errs := make([]error, len(repos))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(a.workers)
	for i, repo := range repos {
		eg.Go(func() error {
			repoCtx, cancel := context.WithTimeout(egCtx, a.timeout)
			defer cancel()

			id, err := resolveIdentity(repoCtx, a.identities, repo)
			if err == nil {
				var repoStats *domain.CommitWindowStats
				repoStats, err = a.extractor.Extract(repoCtx, repo, window, now, id)
				results[i] = repoStats
			}
			if err != nil {
				if errors.Is(err, gateway.ErrGitNotFound) {
					return err
				}
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				errs[i] = err
			}
			return nil
		})
	}
	// Barrier: nothing below runs before every repository is done.
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("failed to aggregate repositories: %w", err)
	}

	summary := &domain.Summary{Timeframe: tf, Repositories: []domain.CommitWindowStats{}}
	for i, repo := range repos {
		if errs[i] != nil {
			a.logger.Warn("skipping repository", zap.String("repo", repo.Path), zap.Error(errs[i]))
			summary.Failures = append(summary.Failures, domain.RepoFailure{Repo: repo, Error: errs[i].Error()})
			continue
		}
		summary.Repositories = append(summary.Repositories, *results[i])
	}

	sort.Slice(summary.Repositories, func(i, j int) bool {
		return lessRepo(summary.Repositories[i].Repo, summary.Repositories[j].Repo)
	})
	sort.Slice(summary.Failures, func(i, j int) bool {
		return lessRepo(summary.Failures[i].Repo, summary.Failures[j].Repo)
	})

	summary.MostActive = mostActive(summary.Repositories)
	summary.TotalToday = lo.SumBy(summary.Repositories, func(s domain.CommitWindowStats) int { return s.TodayCount })
	summary.TotalCommits = lo.SumBy(summary.Repositories, func(s domain.CommitWindowStats) int { return s.TotalCount })
	summary.TotalInWindow = lo.SumBy(summary.Repositories, func(s domain.CommitWindowStats) int { return s.WindowCount })

	counts := stats.LoadRawData(lo.Map(summary.Repositories, func(s domain.CommitWindowStats, _ int) int { return s.WindowCount }))
	if len(counts) > 0 {
		summary.WindowMean, _ = stats.Mean(counts)
		summary.WindowMedian, _ = stats.Median(counts)
	}

	a.logger.Debug("aggregation complete",
		zap.Int("repositories", len(summary.Repositories)),
		zap.Int("failures", len(summary.Failures)),
		zap.Int("in_window", summary.TotalInWindow))
	return summary, nil
}

// mostActive picks the repository with the most commits in the window; ties
// go to the most recent commit and then to the name. It returns nil when no
// repository has commits in the window.
func mostActive(repos []domain.CommitWindowStats) *domain.CommitWindowStats {
	var best *domain.CommitWindowStats
	for i := range repos {
		candidate := &repos[i]
		if candidate.WindowCount == 0 {
			continue
		}
		if best == nil || moreActive(candidate, best) {
			best = candidate
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}

func moreActive(a, b *domain.CommitWindowStats) bool {
	if a.WindowCount != b.WindowCount {
		return a.WindowCount > b.WindowCount
	}
	switch {
	case a.LastCommitAt != nil && b.LastCommitAt == nil:
		return true
	case a.LastCommitAt == nil && b.LastCommitAt != nil:
		return false
	case a.LastCommitAt != nil && !a.LastCommitAt.Equal(*b.LastCommitAt):
		return a.LastCommitAt.After(*b.LastCommitAt)
	}
	return lessRepo(a.Repo, b.Repo)
}

func lessRepo(a, b domain.RepositoryRef) bool {
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.Path < b.Path
}

// resolveIdentity fails when no author can be named for repo: counting every
// author would score other people's commits.
func resolveIdentity(ctx context.Context, source IdentitySource, repo domain.RepositoryRef) (domain.Identity, error) {
	id, err := source.Resolve(ctx, repo.Path)
	if err != nil {
		if errors.Is(err, gateway.ErrGitNotFound) {
			return domain.Identity{}, err
		}
		return domain.Identity{}, fmt.Errorf("%w: %w", gateway.ErrNoIdentity, err)
	}
	if id.IsZero() {
		return domain.Identity{}, gateway.ErrNoIdentity
	}
	return id, nil
}
