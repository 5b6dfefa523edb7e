package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/AmariahAK/commit-checker/internal/domain"
	"github.com/AmariahAK/commit-checker/internal/gateway"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const calendarSpan = 365 * 24 * time.Hour

// GitHubActivity is the use case for GitHub-hosted activity of a user.
type GitHubActivity struct {
	fetcher gateway.GitHubFetcher
	logger  *zap.Logger
}

// NewGitHubActivity creates a new GitHubActivity instance.
func NewGitHubActivity(fetcher gateway.GitHubFetcher, logger *zap.Logger) *GitHubActivity {
	return &GitHubActivity{fetcher: fetcher, logger: logger}
}

// Summarize fetches today's pushes and the contribution calendar of user
// concurrently. The calendar needs an authenticated client, so failing to
// fetch it only logs a warning.
func (g *GitHubActivity) Summarize(ctx context.Context, user string, now time.Time) (*domain.GitHubSummary, error) {
	g.logger.Debug("summarizing GitHub activity", zap.String("user", user))
	today := domain.DateOf(now)

	var pushes map[string]int
	var calendar []domain.DayCount

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		pushes, err = g.fetcher.FetchPushedCommits(egCtx, user, today)
		return err
	})
	eg.Go(func() error {
		var err error
		calendar, err = g.fetcher.FetchContributionCalendar(egCtx, user, now.Add(-calendarSpan), now)
		if err != nil {
			g.logger.Warn("contribution calendar unavailable", zap.Error(err))
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("failed to fetch GitHub activity: %w", err)
	}

	summary := &domain.GitHubSummary{
		User:        user,
		PushedToday: repoCounts(pushes),
		Calendar:    calendar,
	}
	summary.TotalToday = lo.SumBy(summary.PushedToday, func(r domain.RepoCount) int { return r.Commits })
	summary.CurrentStreak = calendarStreak(calendar, today, summary.TotalToday > 0)
	return summary, nil
}

// CommitsByRepo counts the commits user authored between from and to
// (inclusive, either may be nil for an open end) per repository.
func (g *GitHubActivity) CommitsByRepo(ctx context.Context, user string, from, to *domain.Date) ([]domain.RepoCount, error) {
	var dateRange string
	if from != nil || to != nil {
		fromQuery, toQuery := "*", "*"
		if from != nil {
			fromQuery = from.String()
		}
		if to != nil {
			toQuery = to.String()
		}
		// The leading space separates the qualifier from the author filter.
		dateRange = fmt.Sprintf(" author-date:%s..%s", fromQuery, toQuery)
	}
	counts, err := g.fetcher.FetchCommits(ctx, user, dateRange)
	if err != nil {
		return nil, err
	}
	return repoCounts(counts), nil
}

func repoCounts(counts map[string]int) []domain.RepoCount {
	out := make([]domain.RepoCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, domain.RepoCount{Name: name, Commits: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// calendarStreak counts consecutive days with contributions ending today.
// A today without contributions yet does not break the streak.
func calendarStreak(calendar []domain.DayCount, today domain.Date, pushedToday bool) int {
	byDay := lo.SliceToMap(calendar, func(d domain.DayCount) (domain.Date, int) { return d.Date, d.Commits })
	if pushedToday {
		byDay[today] = max(byDay[today], 1)
	}

	day := today
	if byDay[day] == 0 {
		day = day.AddDays(-1)
	}
	streak := 0
	for byDay[day] > 0 {
		streak++
		day = day.AddDays(-1)
	}
	return streak
}
