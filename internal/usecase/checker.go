package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/AmariahAK/commit-checker/internal/domain"
	"github.com/AmariahAK/commit-checker/internal/gateway"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// RepositoryLocator finds the repositories under a root directory.
type RepositoryLocator interface {
	Locate(ctx context.Context, root string) (*gateway.LocateResult, error)
}

// ProgressRepository loads and persists the gamification state.
type ProgressRepository interface {
	Load() (domain.ProgressState, error)
	Save(state domain.ProgressState) error
}

// EventJournal records what each scoring pass did.
type EventJournal interface {
	Append(events ...gateway.Event) error
}

// CheckReport is the outcome of one `check` run.
type CheckReport struct {
	Summary         *domain.Summary                `json:"summary"`
	State           domain.ProgressState           `json:"state"`
	LevelTitle      string                         `json:"level_title"`
	XPToNextLevel   int                            `json:"xp_to_next_level"`
	XPGained        int                            `json:"xp_gained"`
	Awards          []CommitAward                  `json:"awards,omitempty"`
	LevelUp         bool                           `json:"level_up"`
	PreviousLevel   int                            `json:"previous_level"`
	NewAchievements []domain.AchievementDefinition `json:"new_achievements"`
	Saved           bool                           `json:"saved"`
	Warnings        []string                       `json:"warnings,omitempty"`
}

// Checker runs a complete scoring pass: scan, aggregate today, score, evaluate
// achievements, persist and journal.
type Checker struct {
	root       string
	locator    RepositoryLocator
	aggregator *Aggregator
	engine     *Engine
	store      ProgressRepository
	journal    EventJournal
	logger     *zap.Logger
}

// NewChecker creates a new Checker. journal may be nil.
func NewChecker(root string, locator RepositoryLocator, aggregator *Aggregator, engine *Engine, store ProgressRepository, journal EventJournal, logger *zap.Logger) *Checker {
	return &Checker{
		root:       root,
		locator:    locator,
		aggregator: aggregator,
		engine:     engine,
		store:      store,
		journal:    journal,
		logger:     logger,
	}
}

// Run performs exactly one scoring pass. If ctx is canceled before the state
// is written, nothing is persisted.
func (c *Checker) Run(ctx context.Context, now time.Time) (*CheckReport, error) {
	located, err := c.locator.Locate(ctx, c.root)
	if err != nil {
		return nil, fmt.Errorf("failed to locate repositories: %w", err)
	}
	summary, err := c.aggregator.Aggregate(ctx, located.Repositories, domain.TimeframeToday, now)
	if err != nil {
		return nil, err
	}

	state, err := c.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}

	batch := lo.FlatMap(summary.Repositories, func(s domain.CommitWindowStats, _ int) []domain.CommitRecord {
		return s.Commits
	})
	scored := c.engine.Score(state, batch, now)
	unlockedIDs := Evaluate(scored.State, scored.Facts)
	final := Unlock(scored.State, unlockedIDs)

	report := &CheckReport{
		Summary:         summary,
		State:           final,
		LevelTitle:      LevelTitle(final.Level),
		XPToNextLevel:   XPForNextLevel(final.TotalXP),
		XPGained:        scored.XPGained,
		Awards:          scored.Awards,
		LevelUp:         scored.LevelUp,
		PreviousLevel:   scored.PreviousLevel,
		NewAchievements: []domain.AchievementDefinition{},
	}
	for _, id := range unlockedIDs {
		def, _ := Lookup(id)
		report.NewAchievements = append(report.NewAchievements, def)
	}
	for _, w := range located.Warnings {
		report.Warnings = append(report.Warnings, w.Error())
	}
	for _, f := range summary.Failures {
		report.Warnings = append(report.Warnings, fmt.Sprintf("%s: %s", f.Repo.Path, f.Error))
	}

	if !scored.Mutated && !scored.Sanitized && len(unlockedIDs) == 0 {
		c.logger.Debug("nothing new to score")
		return report, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scoring pass interrupted: %w", err)
	}
	if err := c.store.Save(final); err != nil {
		return nil, fmt.Errorf("failed to save progress: %w", err)
	}
	report.Saved = true

	c.record(now, scored, unlockedIDs, final)
	return report, nil
}

// record appends journal events; journal failures never fail the run.
func (c *Checker) record(now time.Time, scored ScoreResult, unlockedIDs []string, final domain.ProgressState) {
	if c.journal == nil {
		return
	}
	base := gateway.Event{
		Timestamp: now,
		TotalXP:   final.TotalXP,
		Level:     final.Level,
		Streak:    final.CurrentStreak,
	}
	var events []gateway.Event
	if scored.Mutated {
		e := base
		e.Type = gateway.EventScoringPass
		e.Commits = scored.Qualifying
		e.XPGained = scored.XPGained
		events = append(events, e)
	}
	if scored.LevelUp {
		e := base
		e.Type = gateway.EventLevelUp
		events = append(events, e)
	}
	if len(unlockedIDs) > 0 {
		e := base
		e.Type = gateway.EventAchievementUnlock
		e.Achievements = unlockedIDs
		events = append(events, e)
	}
	if len(events) == 0 {
		return
	}
	// Distinct timestamps keep the events of one pass in order.
	for i := range events {
		events[i].Timestamp = now.Add(time.Duration(i))
	}
	if err := c.journal.Append(events...); err != nil {
		c.logger.Warn("failed to append journal events", zap.Error(err))
	}
}
