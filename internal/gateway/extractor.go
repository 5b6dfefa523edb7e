package gateway

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/AmariahAK/commit-checker/internal/domain"
	"go.uber.org/zap"
)

const (
	recordStart = "\x1e"
	fieldSep    = "\x1f"
	// recordFormat prints hash, author date and subject; the subject goes last
	// so that separators inside it cannot shift the other fields.
	recordFormat = "--format=" + recordStart + "%H" + fieldSep + "%aI" + fieldSep + "%s"
	dateFormat   = "--format=%H" + fieldSep + "%aI"

	maxRevsPerCall = 256
)

// Extractor runs read-only git queries against a single repository.
type Extractor struct {
	runner Runner
	logger *zap.Logger
}

// NewExtractor creates a new Extractor instance.
func NewExtractor(runner Runner, logger *zap.Logger) *Extractor {
	return &Extractor{
		runner: runner,
		logger: logger,
	}
}

// Extract returns commit statistics of repo: total history size, the most recent
// commit, today's count and the commits inside window attributed to id.
// An empty repository yields zero counts and a nil LastCommitAt.
//
// Today and the window are both decided on author date, over the whole history:
// git's --since stops walking at the first commit with an older committer date,
// which hides commits behind a rebased or imported one.
func (e *Extractor) Extract(ctx context.Context, repo domain.RepositoryRef, window domain.Window, now time.Time, id domain.Identity) (*domain.CommitWindowStats, error) {
	stats := &domain.CommitWindowStats{Repo: repo, Commits: []domain.CommitRecord{}}

	empty, err := e.isEmpty(ctx, repo)
	if err != nil {
		return nil, err
	}
	if empty {
		e.logger.Debug("repository has no commits yet", zap.String("repo", repo.Path))
		return stats, nil
	}

	if stats.TotalCount, err = e.count(ctx, repo, "rev-list", "--count", "HEAD"); err != nil {
		return nil, err
	}

	last, err := e.lastCommitTime(ctx, repo)
	if err != nil {
		return nil, err
	}
	stats.LastCommitAt = &last

	authored, err := e.authorDates(ctx, repo, id)
	if err != nil {
		return nil, err
	}
	today := domain.DateOf(now)
	var hashes []string
	for _, c := range authored {
		if domain.DateOf(c.at) == today {
			stats.TodayCount++
		}
		if window.Contains(c.at) {
			hashes = append(hashes, c.hash)
		}
	}

	records, err := e.records(ctx, repo, hashes)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if window.Contains(r.Timestamp) {
			stats.Commits = append(stats.Commits, r)
		}
	}
	sortRecords(stats.Commits)
	stats.WindowCount = len(stats.Commits)

	e.logger.Debug("extracted repository stats",
		zap.String("repo", repo.Path),
		zap.Int("total", stats.TotalCount),
		zap.Int("today", stats.TodayCount),
		zap.Int("window", stats.WindowCount))
	return stats, nil
}

// LatestCommit returns the most recent commit of repo with its diff stats,
// or nil if the repository has no commits.
func (e *Extractor) LatestCommit(ctx context.Context, repo domain.RepositoryRef) (*domain.CommitRecord, error) {
	empty, err := e.isEmpty(ctx, repo)
	if err != nil || empty {
		return nil, err
	}
	out, err := e.runner.Run(ctx, repo.Path, "log", "-1", "--numstat", recordFormat, "HEAD")
	if err != nil {
		return nil, err
	}
	records, err := parseRecords(out, repo.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log of %s: %w", repo.Path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no commit in log -1 of %s", ErrMalformedOutput, repo.Path)
	}
	return &records[0], nil
}

// DailyCounts returns the number of commits by id per local day since the given time.
func (e *Extractor) DailyCounts(ctx context.Context, repo domain.RepositoryRef, since time.Time, id domain.Identity) (map[domain.Date]int, error) {
	counts := make(map[domain.Date]int)
	empty, err := e.isEmpty(ctx, repo)
	if err != nil {
		return nil, err
	}
	if empty {
		return counts, nil
	}

	authored, err := e.authorDates(ctx, repo, id)
	if err != nil {
		return nil, err
	}
	for _, c := range authored {
		if c.at.Before(since) {
			continue
		}
		counts[domain.DateOf(c.at)]++
	}
	return counts, nil
}

// Version returns the output of `git version`; it is used as a preflight
// check that the git binary works at all.
func (e *Extractor) Version(ctx context.Context) (string, error) {
	out, err := e.runner.Run(ctx, ".", "version")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// isEmpty reports whether HEAD does not resolve to a commit yet.
func (e *Extractor) isEmpty(ctx context.Context, repo domain.RepositoryRef) (bool, error) {
	_, err := e.runner.Run(ctx, repo.Path, "rev-parse", "--verify", "--quiet", "HEAD")
	if err == nil {
		return false, nil
	}
	// --quiet exits 1 without output when HEAD is unborn.
	var gitErr *GitError
	if errors.As(err, &gitErr) && gitErr.ExitCode == 1 && strings.TrimSpace(gitErr.Stderr) == "" {
		return true, nil
	}
	return false, err
}

func (e *Extractor) count(ctx context.Context, repo domain.RepositoryRef, args ...string) (int, error) {
	out, err := e.runner.Run(ctx, repo.Path, args...)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, fmt.Errorf("%w: %s returned %q", ErrMalformedOutput, args[0], strings.TrimSpace(out))
	}
	return n, nil
}

func (e *Extractor) lastCommitTime(ctx context.Context, repo domain.RepositoryRef) (time.Time, error) {
	out, err := e.runner.Run(ctx, repo.Path, "log", "-1", "--format=%aI", "HEAD")
	if err != nil {
		return time.Time{}, err
	}
	ts, err := time.Parse(time.RFC3339, strings.TrimSpace(out))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: last commit date %q", ErrMalformedOutput, strings.TrimSpace(out))
	}
	return ts, nil
}

type authoredCommit struct {
	hash string
	at   time.Time
}

// authorDates lists the hash and author date of every non-merge commit by id
// reachable from HEAD. Lines that do not parse are logged and skipped.
func (e *Extractor) authorDates(ctx context.Context, repo domain.RepositoryRef, id domain.Identity) ([]authoredCommit, error) {
	args := append([]string{"log", "--no-merges", dateFormat}, authorArgs(id)...)
	args = append(args, "HEAD")
	out, err := e.runner.Run(ctx, repo.Path, args...)
	if err != nil {
		return nil, err
	}
	var commits []authoredCommit
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		hash, date, ok := strings.Cut(line, fieldSep)
		if !ok {
			e.logger.Warn("skipping malformed commit line", zap.String("repo", repo.Path), zap.String("line", line))
			continue
		}
		ts, err := time.Parse(time.RFC3339, date)
		if err != nil {
			e.logger.Warn("skipping malformed commit date", zap.String("repo", repo.Path), zap.String("line", line))
			continue
		}
		commits = append(commits, authoredCommit{hash: hash, at: ts})
	}
	return commits, nil
}

// records reads the numstat records of the given commits without walking history.
func (e *Extractor) records(ctx context.Context, repo domain.RepositoryRef, hashes []string) ([]domain.CommitRecord, error) {
	var records []domain.CommitRecord
	for chunk := range slices.Chunk(hashes, maxRevsPerCall) {
		args := append([]string{"log", "--no-walk=unsorted", "--numstat", recordFormat}, chunk...)
		out, err := e.runner.Run(ctx, repo.Path, args...)
		if err != nil {
			return nil, err
		}
		parsed, err := parseRecords(out, repo.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse log of %s: %w", repo.Path, err)
		}
		records = append(records, parsed...)
	}
	return records, nil
}

// authorArgs restricts a query to id. The email is matched as a fixed string
// including its angle brackets so that "bob@x.io" does not match "jimbob@x.io".
func authorArgs(id domain.Identity) []string {
	switch {
	case id.Email != "":
		return []string{"--fixed-strings", "--author=<" + id.Email + ">"}
	case id.Name != "":
		return []string{"--fixed-strings", "--author=" + id.Name + " <"}
	default:
		return nil
	}
}

// parseRecords parses `git log --numstat` output produced with recordFormat.
func parseRecords(out, repoName string) ([]domain.CommitRecord, error) {
	var records []domain.CommitRecord
	var current *domain.CommitRecord
	exts := map[string]struct{}{}

	flush := func() {
		if current == nil {
			return
		}
		current.Extensions = sortedKeys(exts)
		records = append(records, *current)
		exts = map[string]struct{}{}
	}

	scanner := bufio.NewScanner(strings.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, recordStart) {
			flush()
			parts := strings.SplitN(strings.TrimPrefix(line, recordStart), fieldSep, 3)
			if len(parts) != 3 {
				return nil, fmt.Errorf("%w: commit header %q", ErrMalformedOutput, line)
			}
			ts, err := time.Parse(time.RFC3339, parts[1])
			if err != nil {
				return nil, fmt.Errorf("%w: commit date %q", ErrMalformedOutput, parts[1])
			}
			current = &domain.CommitRecord{
				Hash:      parts[0],
				Repo:      repoName,
				Timestamp: ts,
				Message:   parts[2],
			}
			continue
		}
		if strings.TrimSpace(line) == "" || current == nil {
			continue
		}

		// numstat: "<added>\t<deleted>\t<path>", "-" for binary files.
		fields := strings.SplitN(line, "\t", 3)
		if len(fields) != 3 {
			return nil, fmt.Errorf("%w: numstat line %q", ErrMalformedOutput, line)
		}
		current.Insertions += numstatValue(fields[0])
		current.Deletions += numstatValue(fields[1])
		current.FilesChanged++
		if ext := extensionOf(fields[2]); ext != "" {
			exts[ext] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return records, nil
}

func numstatValue(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// extensionOf handles rename notation such as "src/{a.py => b.go}".
func extensionOf(path string) string {
	if i := strings.LastIndex(path, "=>"); i >= 0 {
		path = strings.Trim(strings.TrimSpace(path[i+2:]), "}")
	}
	return strings.ToLower(filepath.Ext(path))
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// sortRecords orders records oldest first; the hash breaks ties.
func sortRecords(records []domain.CommitRecord) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].Timestamp.Equal(records[j].Timestamp) {
			return records[i].Timestamp.Before(records[j].Timestamp)
		}
		return records[i].Hash < records[j].Hash
	})
}
