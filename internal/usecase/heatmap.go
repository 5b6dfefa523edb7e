package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/AmariahAK/commit-checker/internal/domain"
	"github.com/AmariahAK/commit-checker/internal/gateway"
	"github.com/montanaflynn/stats"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultHeatmapDays = 30
	trendWeeks         = 4
)

// DailyCounter counts commits per local day in one repository.
type DailyCounter interface {
	DailyCounts(ctx context.Context, repo domain.RepositoryRef, since time.Time, id domain.Identity) (map[domain.Date]int, error)
}

// HeatmapBuilder computes daily activity and the weekly trend across repositories.
type HeatmapBuilder struct {
	counter    DailyCounter
	identities IdentitySource
	workers    int
	timeout    time.Duration
	logger     *zap.Logger
}

// NewHeatmapBuilder creates a new HeatmapBuilder instance.
func NewHeatmapBuilder(counter DailyCounter, identities IdentitySource, workers int, timeout time.Duration, logger *zap.Logger) *HeatmapBuilder {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return &HeatmapBuilder{
		counter:    counter,
		identities: identities,
		workers:    workers,
		timeout:    timeout,
		logger:     logger,
	}
}

// Build returns the commit count of each of the last days days (today
// included, oldest first) and the totals of the last four rolling weeks.
func (h *HeatmapBuilder) Build(ctx context.Context, repos []domain.RepositoryRef, days int, now time.Time) (*domain.Heatmap, error) {
	if days <= 0 {
		return nil, fmt.Errorf("days must be positive, got %d", days)
	}
	today := domain.DateOf(now)
	span := max(days, trendWeeks*7)
	since := today.AddDays(-(span - 1)).Midnight()

	var mu sync.Mutex
	merged := make(map[domain.Date]int)
	var failures []domain.RepoFailure

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(h.workers)
	for _, repo := range repos {
		eg.Go(func() error {
			repoCtx, cancel := context.WithTimeout(egCtx, h.timeout)
			defer cancel()

			var counts map[domain.Date]int
			id, err := resolveIdentity(repoCtx, h.identities, repo)
			if err == nil {
				counts, err = h.counter.DailyCounts(repoCtx, repo, since, id)
			}
			if errors.Is(err, gateway.ErrGitNotFound) {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				h.logger.Warn("skipping repository", zap.String("repo", repo.Path), zap.Error(err))
				failures = append(failures, domain.RepoFailure{Repo: repo, Error: err.Error()})
				return nil
			}
			for d, n := range counts {
				merged[d] += n
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("failed to build heatmap: %w", err)
	}

	heatmap := &domain.Heatmap{Failures: failures}
	for i := days - 1; i >= 0; i-- {
		d := today.AddDays(-i)
		heatmap.Days = append(heatmap.Days, domain.DayCount{Date: d, Commits: merged[d]})
	}
	for w := trendWeeks - 1; w >= 0; w-- {
		end := today.AddDays(-7 * w)
		start := end.AddDays(-6)
		week := domain.WeekCount{Start: start, End: end}
		for d := start; !d.After(end); d = d.AddDays(1) {
			week.Commits += merged[d]
		}
		heatmap.Weeks = append(heatmap.Weeks, week)
	}

	perDay := lo.Map(heatmap.Days, func(d domain.DayCount, _ int) int { return d.Commits })
	heatmap.MaxPerDay = lo.Max(perDay)
	heatmap.MeanPerDay, _ = stats.Mean(stats.LoadRawData(perDay))
	heatmap.LastSevenDay = heatmap.Weeks[len(heatmap.Weeks)-1].Commits

	sort.Slice(heatmap.Failures, func(i, j int) bool {
		return lessRepo(heatmap.Failures[i].Repo, heatmap.Failures[j].Repo)
	})
	return heatmap, nil
}

var _ DailyCounter = (*gateway.Extractor)(nil)
