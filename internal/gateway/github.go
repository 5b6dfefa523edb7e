// Package gateway provides access to the outside world: the filesystem, the git
// binary, the user's git configuration, GitHub and the persisted state files.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/AmariahAK/commit-checker/internal/domain"
	"github.com/google/go-github/v62/github"
	"github.com/shurcooL/githubv4"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
)

// GitHubFetcher defines the behavior of a gateway for fetching activity from GitHub.
type GitHubFetcher interface {
	FetchCommits(ctx context.Context, user, dateRange string) (map[string]int, error)
	FetchPushedCommits(ctx context.Context, user string, day domain.Date) (map[string]int, error)
	FetchContributionCalendar(ctx context.Context, user string, from, to time.Time) ([]domain.DayCount, error)
}

// GitHubGateway is the concrete implementation of the GitHubFetcher interface.
type GitHubGateway struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	logger        *zap.Logger
}

// contributionCalendarQuery fetches the per-day contribution counts of a user.
type contributionCalendarQuery struct {
	User struct {
		ContributionsCollection struct {
			ContributionCalendar struct {
				TotalContributions githubv4.Int
				Weeks              []struct {
					ContributionDays []struct {
						Date              githubv4.String
						ContributionCount githubv4.Int
					}
				}
			}
		} `graphql:"contributionsCollection(from: $from, to: $to)"`
	} `graphql:"user(login: $login)"`
}

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
// The token may be empty, in which case only public REST endpoints work.
func NewGitHubGateway(token string, logger *zap.Logger) (GitHubFetcher, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(1*time.Hour, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	var transport http.RoundTripper = rateLimitWaiter
	if token != "" {
		transport = &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
		}
	}
	httpClient := &http.Client{Transport: transport, Timeout: 30 * time.Second}
	return &GitHubGateway{
		restClient:    github.NewClient(httpClient),
		graphqlClient: githubv4.NewClient(httpClient),
		logger:        logger,
	}, nil
}

// FetchCommits counts the user's commits per repository using the commit search API.
// dateRange is appended to the query verbatim, e.g. " author-date:2024-01-01..2024-01-31".
func (g *GitHubGateway) FetchCommits(ctx context.Context, user, dateRange string) (map[string]int, error) {
	g.logger.Debug("fetching commit search results", zap.String("user", user), zap.String("range", dateRange))
	query := fmt.Sprintf("author:%s%s", user, dateRange)
	opts := &github.SearchOptions{ListOptions: github.ListOptions{PerPage: 100}}
	commitCounts := make(map[string]int)
	for {
		result, resp, err := g.restClient.Search.Commits(ctx, query, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to search commits with REST API: %w", err)
		}
		for _, commit := range result.Commits {
			repoName := commit.GetRepository().GetFullName()
			commitCounts[repoName]++
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
		g.logger.Debug("fetching next page of commits", zap.Int("page", resp.NextPage))
	}
	return commitCounts, nil
}

// FetchPushedCommits counts commits the user pushed on day, per repository,
// from the user's public event feed.
func (g *GitHubGateway) FetchPushedCommits(ctx context.Context, user string, day domain.Date) (map[string]int, error) {
	g.logger.Debug("fetching push events", zap.String("user", user), zap.Stringer("day", day))
	opts := &github.ListOptions{PerPage: 100}
	pushCounts := make(map[string]int)
	for {
		events, resp, err := g.restClient.Activity.ListEventsPerformedByUser(ctx, user, false, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list events with REST API: %w", err)
		}
		olderSeen := false
		for _, event := range events {
			eventDay := domain.DateOf(event.GetCreatedAt().Time)
			if eventDay.Before(day) {
				olderSeen = true
				continue
			}
			if eventDay != day || event.GetType() != "PushEvent" {
				continue
			}
			payload, err := event.ParsePayload()
			if err != nil {
				g.logger.Warn("skipping push event with unreadable payload", zap.String("id", event.GetID()), zap.Error(err))
				continue
			}
			push, ok := payload.(*github.PushEvent)
			if !ok {
				continue
			}
			commits := len(push.Commits)
			if commits == 0 {
				commits = push.GetSize()
			}
			pushCounts[event.GetRepo().GetName()] += commits
		}
		// Events are returned newest first, so an older page ends the search.
		if olderSeen || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return pushCounts, nil
}

// FetchContributionCalendar returns the user's daily contribution counts
// between from and to, oldest first. It requires an authenticated client.
func (g *GitHubGateway) FetchContributionCalendar(ctx context.Context, user string, from, to time.Time) ([]domain.DayCount, error) {
	g.logger.Debug("fetching contribution calendar", zap.String("user", user))
	var q contributionCalendarQuery
	variables := map[string]interface{}{
		"login": githubv4.String(user),
		"from":  githubv4.DateTime{Time: from},
		"to":    githubv4.DateTime{Time: to},
	}
	if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
		return nil, fmt.Errorf("failed to execute GraphQL query for contributions: %w", err)
	}

	var days []domain.DayCount
	for _, week := range q.User.ContributionsCollection.ContributionCalendar.Weeks {
		for _, d := range week.ContributionDays {
			date, err := domain.ParseDate(string(d.Date))
			if err != nil {
				g.logger.Warn("skipping malformed calendar day", zap.String("date", string(d.Date)))
				continue
			}
			days = append(days, domain.DayCount{Date: date, Commits: int(d.ContributionCount)})
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })
	return days, nil
}
