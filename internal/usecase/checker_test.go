package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AmariahAK/commit-checker/internal/domain"
	"github.com/AmariahAK/commit-checker/internal/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeLocator struct {
	result *gateway.LocateResult
	err    error
}

func (f fakeLocator) Locate(context.Context, string) (*gateway.LocateResult, error) {
	return f.result, f.err
}

// memoryStore keeps the progress state in memory and counts saves.
type memoryStore struct {
	state domain.ProgressState
	saves int
}

func (m *memoryStore) Load() (domain.ProgressState, error) { return m.state.Clone(), nil }

func (m *memoryStore) Save(state domain.ProgressState) error {
	m.state = state.Clone()
	m.saves++
	return nil
}

type checkerFixture struct {
	checker *Checker
	store   *memoryStore
	journal *gateway.Journal
}

func newCheckerFixture(t *testing.T, commits []domain.CommitRecord, warnings ...*gateway.ScanWarning) checkerFixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	repo := ref("/src/api", "api")

	extractor := new(mockExtractor)
	extractor.On("Extract", mock.Anything, repo, mock.Anything, mock.Anything, mock.Anything).
		Return(&domain.CommitWindowStats{Repo: repo, TodayCount: len(commits), TotalCount: len(commits), WindowCount: len(commits), Commits: commits}, nil)

	journal, err := gateway.OpenJournal("", 0, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = journal.Close() })

	store := &memoryStore{}
	checker := NewChecker("/src",
		fakeLocator{result: &gateway.LocateResult{Repositories: []domain.RepositoryRef{repo}, Warnings: warnings}},
		NewAggregator(extractor, staticIdentities{id: me}, 2, time.Second, logger),
		NewEngine(DefaultWeights(), logger),
		store, journal, logger)
	return checkerFixture{checker: checker, store: store, journal: journal}
}

func TestChecker_Run(t *testing.T) {
	commits := []domain.CommitRecord{commitAt("h1", "api", wednesday.Add(-time.Hour), 500, 100, 10, ".go")}
	warning := &gateway.ScanWarning{Path: "/src/locked", Err: errors.New("permission denied")}
	f := newCheckerFixture(t, commits, warning)

	report, err := f.checker.Run(context.Background(), wednesday)

	require.NoError(t, err)
	assert.True(t, report.Saved)
	assert.Equal(t, 100, report.XPGained)
	assert.True(t, report.LevelUp)
	assert.Equal(t, "Code Apprentice", report.LevelTitle)
	assert.Equal(t, 100, report.XPToNextLevel)
	var ids []string
	for _, a := range report.NewAchievements {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"first_commit", "big_diff"}, ids)
	assert.Equal(t, []string{"big_diff", "first_commit"}, f.store.state.UnlockedAchievements)
	assert.Equal(t, 1, f.store.saves)
	assert.Equal(t, []string{warning.Error()}, report.Warnings)

	events, err := f.journal.Recent(0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, gateway.EventAchievementUnlock, events[0].Type)
	assert.Equal(t, []string{"first_commit", "big_diff"}, events[0].Achievements)
	assert.Equal(t, gateway.EventLevelUp, events[1].Type)
	assert.Equal(t, gateway.EventScoringPass, events[2].Type)
	assert.Equal(t, 100, events[2].XPGained)
}

func TestChecker_Run_SecondRunSameDayChangesNothing(t *testing.T) {
	commits := []domain.CommitRecord{commitAt("h1", "api", wednesday.Add(-time.Hour), 20, 0, 1)}
	f := newCheckerFixture(t, commits)

	_, err := f.checker.Run(context.Background(), wednesday)
	require.NoError(t, err)
	saved := f.store.state.Clone()

	report, err := f.checker.Run(context.Background(), wednesday.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, report.Saved)
	assert.Zero(t, report.XPGained)
	assert.Empty(t, report.NewAchievements)
	assert.Equal(t, 1, f.store.saves)
	assert.Equal(t, saved, f.store.state)

	events, err := f.journal.Recent(0)
	require.NoError(t, err)
	assert.Len(t, events, 2, "scoring pass and achievement unlock of the first run only")
}

func TestChecker_Run_InterruptedDoesNotPersist(t *testing.T) {
	commits := []domain.CommitRecord{commitAt("h1", "api", wednesday.Add(-time.Hour), 20, 0, 1)}
	f := newCheckerFixture(t, commits)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.checker.Run(ctx, wednesday)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.store.saves)
}

func TestChecker_Run_LocateFailure(t *testing.T) {
	logger := zaptest.NewLogger(t)
	checker := NewChecker("/missing", fakeLocator{err: gateway.ErrRootNotFound},
		NewAggregator(new(mockExtractor), staticIdentities{id: me}, 1, time.Second, logger),
		NewEngine(DefaultWeights(), logger), &memoryStore{}, nil, logger)

	_, err := checker.Run(context.Background(), wednesday)
	assert.ErrorIs(t, err, gateway.ErrRootNotFound)
}
