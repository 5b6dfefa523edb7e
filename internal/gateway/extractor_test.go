package gateway

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/AmariahAK/commit-checker/internal/domain"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeRunner answers git queries by their first argument.
type fakeRunner struct {
	responses map[string]fakeResponse
	calls     [][]string
}

type fakeResponse struct {
	out string
	err error
}

func (f *fakeRunner) Run(_ context.Context, _ string, args ...string) (string, error) {
	f.calls = append(f.calls, args)
	key := queryKey(args)
	resp, ok := f.responses[key]
	if !ok {
		return "", errors.New("unexpected git call: " + strings.Join(args, " "))
	}
	return resp.out, resp.err
}

// queryKey names a git invocation the way the responses map does.
func queryKey(args []string) string {
	switch {
	case args[0] == "log" && args[1] == "-1":
		return "log-1"
	case args[0] == "log" && args[1] == "--no-walk=unsorted":
		return "log-numstat"
	case args[0] == "log" && slices.Contains(args, dateFormat):
		return "log-dates"
	case args[0] == "config":
		return "config " + args[len(args)-1]
	}
	return args[0]
}

func (f *fakeRunner) call(key string) []string {
	for _, c := range f.calls {
		if queryKey(c) == key {
			return c
		}
	}
	return nil
}

func dateLines(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

func dateLine(hash string, at time.Time) string {
	return hash + fieldSep + at.Format(time.RFC3339)
}

func logRecord(hash, date, subject string, numstat ...string) string {
	var b strings.Builder
	b.WriteString(recordStart + hash + fieldSep + date + fieldSep + subject + "\n\n")
	for _, line := range numstat {
		b.WriteString(line + "\n")
	}
	return b.String()
}

func TestExtractor_Extract(t *testing.T) {
	repo := domain.RepositoryRef{Path: "/src/api", Name: "api"}
	now := time.Date(2025, time.March, 14, 10, 5, 0, 0, time.UTC)
	window := domain.Window{Start: time.Date(2025, time.March, 7, 18, 0, 0, 0, time.UTC)}
	me := domain.Identity{Name: "Ada", Email: "ada+dev@example.com"}

	unborn := &GitError{Args: []string{"rev-parse"}, ExitCode: 1, Err: ErrGitCommandFailed}

	testCases := []struct {
		name        string
		responses   map[string]fakeResponse
		expected    *domain.CommitWindowStats
		expectedErr error
	}{
		{
			name:      "empty repository yields zero stats",
			responses: map[string]fakeResponse{"rev-parse": {err: unborn}},
			expected:  &domain.CommitWindowStats{Repo: repo, Commits: []domain.CommitRecord{}},
		},
		{
			name: "window commits are parsed and ordered oldest first",
			responses: map[string]fakeResponse{
				"rev-parse": {out: "abc\n"},
				"rev-list":  {out: "42\n"},
				"log-1":     {out: "2025-03-14T10:00:00Z\n"},
				"log-dates": {out: dateLines(
					dateLine("bbb", time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)),
					dateLine("aaa", time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)),
					dateLine("zzz", time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)),
					"garbage",
				)},
				"log-numstat": {out: logRecord("bbb", "2025-03-14T10:00:00Z", "feat: a\x1fb",
					"10\t2\tmain.go",
					"-\t-\tlogo.png",
					"3\t3\tsrc/{old.py => new.RS}",
				) + logRecord("aaa", "2025-03-10T09:00:00Z", "init",
					"5\t0\tREADME.md",
				)},
			},
			expected: &domain.CommitWindowStats{
				Repo:        repo,
				TodayCount:  1,
				TotalCount:  42,
				WindowCount: 2,
				Commits: []domain.CommitRecord{
					{Hash: "aaa", Repo: "api", Timestamp: time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC), Message: "init",
						Insertions: 5, FilesChanged: 1, Extensions: []string{".md"}},
					{Hash: "bbb", Repo: "api", Timestamp: time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC), Message: "feat: a\x1fb",
						Insertions: 13, Deletions: 5, FilesChanged: 3, Extensions: []string{".go", ".png", ".rs"}},
				},
			},
		},
		{
			name: "nothing in the window skips the numstat query",
			responses: map[string]fakeResponse{
				"rev-parse": {out: "abc\n"},
				"rev-list":  {out: "3\n"},
				"log-1":     {out: "2025-03-14T10:00:00Z\n"},
				"log-dates": {out: dateLines(dateLine("old", time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)))},
			},
			expected: &domain.CommitWindowStats{Repo: repo, TotalCount: 3, Commits: []domain.CommitRecord{}},
		},
		{
			name: "failing git command is reported",
			responses: map[string]fakeResponse{
				"rev-parse": {out: "abc\n"},
				"rev-list":  {err: &GitError{Args: []string{"rev-list"}, ExitCode: 128, Stderr: "fatal: bad object", Err: ErrGitCommandFailed}},
			},
			expectedErr: ErrGitCommandFailed,
		},
		{
			name: "unparseable count is malformed output",
			responses: map[string]fakeResponse{
				"rev-parse": {out: "abc\n"},
				"rev-list":  {out: "many\n"},
			},
			expectedErr: ErrMalformedOutput,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			runner := &fakeRunner{responses: tc.responses}
			extractor := NewExtractor(runner, zaptest.NewLogger(t))

			stats, err := extractor.Extract(context.Background(), repo, window, now, me)

			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				return
			}
			require.NoError(t, err)
			if tc.expected.TotalCount > 0 {
				require.NotNil(t, stats.LastCommitAt)
				assert.True(t, stats.LastCommitAt.Equal(time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)))
				stats.LastCommitAt = nil
				for i := range stats.Commits {
					stats.Commits[i].Timestamp = stats.Commits[i].Timestamp.UTC()
				}
			}
			assert.Equal(t, tc.expected, stats)
		})
	}
}

func TestExtractor_Extract_AuthorFilter(t *testing.T) {
	now := time.Date(2025, time.March, 14, 18, 0, 0, 0, time.UTC)
	runner := &fakeRunner{responses: map[string]fakeResponse{
		"rev-parse":   {out: "abc\n"},
		"rev-list":    {out: "1\n"},
		"log-1":       {out: "2025-03-14T10:00:00Z\n"},
		"log-dates":   {out: dateLines(dateLine("abc", now.Add(-time.Hour)))},
		"log-numstat": {out: logRecord("abc", now.Add(-time.Hour).Format(time.RFC3339), "fix", "1\t0\ta.go")},
	}}
	extractor := NewExtractor(runner, zaptest.NewLogger(t))

	_, err := extractor.Extract(context.Background(), domain.RepositoryRef{Path: "/r", Name: "r"},
		domain.TimeframeWeek.Window(now), now, domain.Identity{Email: "ada+dev@example.com"})
	require.NoError(t, err)

	datesCall := runner.call("log-dates")
	require.NotNil(t, datesCall)
	assert.Contains(t, datesCall, "--fixed-strings")
	assert.Contains(t, datesCall, "--author=<ada+dev@example.com>")
	assert.Contains(t, datesCall, "--no-merges")

	// Neither query may stop the history walk on committer date.
	for _, c := range runner.calls {
		for _, arg := range c {
			assert.False(t, strings.HasPrefix(arg, "--since"), "unexpected %q in %v", arg, c)
			assert.False(t, strings.HasPrefix(arg, "--until"), "unexpected %q in %v", arg, c)
		}
	}
	assert.Equal(t, []string{"log", "--no-walk=unsorted", "--numstat", recordFormat, "abc"}, runner.call("log-numstat"))
}

func TestExtractor_Extract_ChunksNumstatQueries(t *testing.T) {
	now := time.Date(2025, time.March, 14, 18, 0, 0, 0, time.UTC)
	var lines []string
	for i := 0; i < maxRevsPerCall+1; i++ {
		lines = append(lines, dateLine(fmt.Sprintf("h%03d", i), now.Add(-time.Duration(i+1)*time.Minute)))
	}
	runner := &fakeRunner{responses: map[string]fakeResponse{
		"rev-parse":   {out: "abc\n"},
		"rev-list":    {out: "300\n"},
		"log-1":       {out: now.Format(time.RFC3339) + "\n"},
		"log-dates":   {out: dateLines(lines...)},
		"log-numstat": {out: ""},
	}}
	extractor := NewExtractor(runner, zaptest.NewLogger(t))

	_, err := extractor.Extract(context.Background(), domain.RepositoryRef{Path: "/r", Name: "r"},
		domain.TimeframeWeek.Window(now), now, domain.Identity{Email: "me@example.com"})
	require.NoError(t, err)

	var numstatCalls int
	for _, c := range runner.calls {
		if queryKey(c) == "log-numstat" {
			numstatCalls++
		}
	}
	assert.Equal(t, 2, numstatCalls)
}

func TestAuthorArgs(t *testing.T) {
	assert.Equal(t, []string{"--fixed-strings", "--author=<a@b.io>"}, authorArgs(domain.Identity{Name: "A", Email: "a@b.io"}))
	assert.Equal(t, []string{"--fixed-strings", "--author=Ada L <"}, authorArgs(domain.Identity{Name: "Ada L"}))
	assert.Nil(t, authorArgs(domain.Identity{}))
}

func TestExtractor_LatestCommit(t *testing.T) {
	runner := &fakeRunner{responses: map[string]fakeResponse{
		"rev-parse": {out: "abc\n"},
		"log-1":     {out: logRecord("ccc", "2025-03-14T10:00:00Z", "fix", "400\t150\tapi/handler.go")},
	}}
	extractor := NewExtractor(runner, zaptest.NewLogger(t))

	commit, err := extractor.LatestCommit(context.Background(), domain.RepositoryRef{Path: "/r", Name: "r"})
	require.NoError(t, err)
	require.NotNil(t, commit)
	assert.Equal(t, "ccc", commit.Hash)
	assert.Equal(t, 550, commit.LinesChanged())
}

func TestExtractor_DailyCounts(t *testing.T) {
	since := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.Local)
	day := func(d int) time.Time { return time.Date(2025, time.March, d, 12, 0, 0, 0, time.Local) }
	runner := &fakeRunner{responses: map[string]fakeResponse{
		"rev-parse": {out: "abc\n"},
		"log-dates": {out: dateLines(
			dateLine("a", day(12)),
			dateLine("b", day(12).Add(time.Hour)),
			dateLine("c", day(13)),
			"d"+fieldSep+"not a date",
			dateLine("e", day(2)),
		)},
	}}
	extractor := NewExtractor(runner, zaptest.NewLogger(t))

	counts, err := extractor.DailyCounts(context.Background(), domain.RepositoryRef{Path: "/r", Name: "r"}, since, domain.Identity{})
	require.NoError(t, err)
	assert.Equal(t, map[domain.Date]int{
		domain.DateOf(day(12)): 2,
		domain.DateOf(day(13)): 1,
	}, counts)
}

// TestExtractor_Integration runs against a real repository built with go-git.
func TestExtractor_Integration(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	now := time.Now()
	commit := func(file, content, email string, when time.Time) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(content), 0o644))
		_, err := wt.Add(file)
		require.NoError(t, err)
		sig := &object.Signature{Name: "Someone", Email: email, When: when}
		_, err = wt.Commit("change "+file, &git.CommitOptions{Author: sig, Committer: sig})
		require.NoError(t, err)
	}
	commit("a.go", "package a\n", "me@example.com", now.Add(-72*time.Hour))
	commit("b.py", "print(1)\nprint(2)\n", "me@example.com", now.Add(-time.Minute))
	commit("c.txt", "x\n", "other@example.com", now.Add(-time.Minute))
	commit("d.go", "package d\n", "me@example.com", now.Add(-40*24*time.Hour))

	extractor := NewExtractor(NewExecRunner(), zaptest.NewLogger(t))
	ref := NewRepositoryRef(dir)
	stats, err := extractor.Extract(context.Background(), ref, domain.TimeframeWeek.Window(now), now, domain.Identity{Email: "me@example.com"})
	require.NoError(t, err)

	assert.Equal(t, 4, stats.TotalCount)
	assert.Equal(t, 2, stats.WindowCount)
	require.Len(t, stats.Commits, 2)
	assert.Equal(t, []string{".go"}, stats.Commits[0].Extensions)
	assert.Equal(t, 2, stats.Commits[1].Insertions)
	assert.Equal(t, ref.Name, stats.Commits[1].Repo)

	expectedToday := 0
	if domain.DateOf(now.Add(-time.Minute)) == domain.DateOf(now) {
		expectedToday = 1
	}
	assert.Equal(t, expectedToday, stats.TodayCount)
}

// TestExtractor_Integration_RebasedHead covers a HEAD whose dates are older than
// the commits behind it, as left by a rebase or an imported patch.
func TestExtractor_Integration_RebasedHead(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	now := time.Now()
	commit := func(file string, when time.Time) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte("x\n"), 0o644))
		_, err := wt.Add(file)
		require.NoError(t, err)
		sig := &object.Signature{Name: "Me", Email: "me@example.com", When: when}
		_, err = wt.Commit("change "+file, &git.CommitOptions{Author: sig, Committer: sig})
		require.NoError(t, err)
	}
	recent := now.Add(-time.Minute)
	commit("fresh.go", recent)
	commit("imported.go", now.Add(-10*24*time.Hour))

	extractor := NewExtractor(NewExecRunner(), zaptest.NewLogger(t))
	stats, err := extractor.Extract(context.Background(), NewRepositoryRef(dir), domain.TimeframeWeek.Window(now), now, domain.Identity{Email: "me@example.com"})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalCount)
	require.Equal(t, 1, stats.WindowCount)
	assert.Equal(t, []string{".go"}, stats.Commits[0].Extensions)
	if domain.DateOf(recent) == domain.DateOf(now) {
		assert.Equal(t, 1, stats.TodayCount)
	}

	counts, err := extractor.DailyCounts(context.Background(), NewRepositoryRef(dir), now.Add(-48*time.Hour), domain.Identity{Email: "me@example.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, counts[domain.DateOf(recent)])
}

func TestExtractor_Integration_EmptyRepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	extractor := NewExtractor(NewExecRunner(), zaptest.NewLogger(t))
	now := time.Now()
	stats, err := extractor.Extract(context.Background(), NewRepositoryRef(dir), domain.TimeframeToday.Window(now), now, domain.Identity{})
	require.NoError(t, err)
	assert.Zero(t, stats.TotalCount)
	assert.Nil(t, stats.LastCommitAt)
	assert.Empty(t, stats.Commits)
}
