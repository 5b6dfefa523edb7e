package usecase

import (
	"math"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/AmariahAK/commit-checker/internal/domain"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const (
	firstCommitBonus = 10
	weekendBonus     = 5
)

// Weights scale the diff stats of a commit into raw XP.
type Weights struct {
	Insertions float64
	Deletions  float64
	Files      float64
	// Projects multiplies the XP of commits in the named repositories.
	// Names are matched case-insensitively.
	Projects map[string]float64
}

// DefaultWeights returns the stock weights.
func DefaultWeights() Weights {
	return Weights{Insertions: 1, Deletions: 0.5, Files: 2}
}

// ProjectWeight returns the multiplier of repo, 1 when none is configured.
func (w Weights) ProjectWeight(repo string) float64 {
	if m, ok := w.Projects[strings.ToLower(repo)]; ok {
		return m
	}
	return 1
}

// CommitAward is the XP one commit earned in a scoring pass.
type CommitAward struct {
	Hash string `json:"hash"`
	Repo string `json:"repo"`
	Raw  int    `json:"raw"`
	XP   int    `json:"xp"`
}

// ScoreResult is the outcome of one scoring pass.
type ScoreResult struct {
	State         domain.ProgressState `json:"state"`
	XPGained      int                  `json:"xp_gained"`
	PreviousLevel int                  `json:"previous_level"`
	LevelUp       bool                 `json:"level_up"`
	Awards        []CommitAward        `json:"awards"`
	Qualifying    int                  `json:"qualifying"`
	Facts         domain.TodayFacts    `json:"facts"`
	// Mutated is false when nothing was scored.
	Mutated bool `json:"mutated"`
	// Sanitized is true when the input state had to be repaired.
	Sanitized bool `json:"sanitized"`
}

// Engine turns today's commits into XP, levels and streaks.
type Engine struct {
	weights Weights
	logger  *zap.Logger
}

// NewEngine creates a new Engine instance.
func NewEngine(weights Weights, logger *zap.Logger) *Engine {
	return &Engine{weights: weights, logger: logger}
}

// Score runs one scoring pass over batch. Only commits made on the local day
// of now that were not scored before count; when there are none, the returned
// state equals the (sanitized) input state.
func (e *Engine) Score(state domain.ProgressState, batch []domain.CommitRecord, now time.Time) ScoreResult {
	state, sanitized := e.Sanitize(state, now)
	today := domain.DateOf(now)
	result := ScoreResult{
		State:         state,
		PreviousLevel: state.Level,
		Sanitized:     sanitized,
		Facts:         domain.TodayFacts{Date: today},
	}

	scoredToday := map[string]struct{}{}
	if state.LastCommitDate != nil && *state.LastCommitDate == today {
		for _, h := range state.ScoredCommits {
			scoredToday[h] = struct{}{}
		}
	}

	qualifying := qualifyingCommits(batch, today, scoredToday)
	if len(qualifying) == 0 {
		return result
	}

	next := state.Clone()
	firstOfDay := len(scoredToday) == 0
	damping := 1 + float64(state.Level)/10
	ceiling := Ceiling(state.Level)

	for i, c := range qualifying {
		raw := (float64(c.Insertions)*e.weights.Insertions +
			float64(c.Deletions)*e.weights.Deletions +
			float64(c.FilesChanged)*e.weights.Files) * e.weights.ProjectWeight(c.Repo)
		if i == 0 && firstOfDay {
			raw += firstCommitBonus
		}
		if today.IsWeekend() {
			raw += weekendBonus
		}
		awarded := floorClamp(raw/damping, float64(ceiling))

		result.Awards = append(result.Awards, CommitAward{Hash: c.Hash, Repo: c.Repo, Raw: floorClamp(raw, math.MaxInt32), XP: awarded})
		result.XPGained += awarded
	}

	next.TotalXP += result.XPGained
	next.Level = DeriveLevel(next.TotalXP)
	result.LevelUp = next.Level > state.Level

	next.CurrentStreak = nextStreak(state, today)
	next.LongestStreak = max(next.LongestStreak, next.CurrentStreak)

	hashes := lo.Map(qualifying, func(c domain.CommitRecord, _ int) string { return c.Hash })
	if firstOfDay {
		next.ScoredCommits = nil
	}
	next.ScoredCommits = sortedUnion(next.ScoredCommits, hashes)
	next.LastCommitDate = &today
	next.CommitsTracked += len(qualifying)
	for _, c := range qualifying {
		next.Extensions = sortedUnion(next.Extensions, c.Extensions)
	}

	result.State = next
	result.Qualifying = len(qualifying)
	result.Facts = buildTodayFacts(today, qualifying)
	result.Mutated = true

	e.logger.Debug("scoring pass complete",
		zap.Int("qualifying", result.Qualifying),
		zap.Int("xp_gained", result.XPGained),
		zap.Int("level", next.Level),
		zap.Int("streak", next.CurrentStreak))
	return result
}

// Sanitize repairs a state that violates its invariants, logging a warning
// for each repair. The boolean reports whether anything changed.
func (e *Engine) Sanitize(state domain.ProgressState, now time.Time) (domain.ProgressState, bool) {
	s := state.Clone()
	changed := false
	repair := func(field string, from, to any) {
		e.logger.Warn("repairing corrupt progress state",
			zap.String("field", field), zap.Any("from", from), zap.Any("to", to))
		changed = true
	}

	clamp := func(field string, v *int) {
		if *v < 0 {
			repair(field, *v, 0)
			*v = 0
		}
	}
	clamp("total_xp", &s.TotalXP)
	clamp("current_streak", &s.CurrentStreak)
	clamp("longest_streak", &s.LongestStreak)
	clamp("commits_tracked", &s.CommitsTracked)

	today := domain.DateOf(now)
	if s.LastCommitDate == nil {
		if s.CurrentStreak != 0 {
			repair("current_streak", s.CurrentStreak, 0)
			s.CurrentStreak = 0
		}
		if len(s.ScoredCommits) > 0 {
			repair("scored_commits", len(s.ScoredCommits), 0)
			s.ScoredCommits = nil
		}
	} else if s.LastCommitDate.After(today) {
		repair("last_commit_date", s.LastCommitDate.String(), today.String())
		s.LastCommitDate = &today
	}
	if s.LongestStreak < s.CurrentStreak {
		repair("longest_streak", s.LongestStreak, s.CurrentStreak)
		s.LongestStreak = s.CurrentStreak
	}
	if level := DeriveLevel(s.TotalXP); s.Level != level {
		repair("level", s.Level, level)
		s.Level = level
	}
	if unlocked := sortedUnion(nil, s.UnlockedAchievements); !slices.Equal(unlocked, s.UnlockedAchievements) && len(s.UnlockedAchievements) > 0 {
		repair("unlocked_achievements", s.UnlockedAchievements, unlocked)
		s.UnlockedAchievements = unlocked
	}

	if !changed {
		return state, false
	}
	return s, true
}

// floorClamp converts x to an int in [0, hi]. Out-of-range float to int
// conversions are implementation-defined, so the clamp happens before it.
func floorClamp(x, hi float64) int {
	if math.IsNaN(x) || x <= 0 {
		return 0
	}
	return int(math.Floor(math.Min(x, hi)))
}

// EffectiveStreak is the streak as of today: a streak whose last commit is
// older than yesterday is already broken even though it has not been scored yet.
func EffectiveStreak(state domain.ProgressState, now time.Time) int {
	if state.LastCommitDate == nil {
		return 0
	}
	if domain.DateOf(now).DaysSince(*state.LastCommitDate) > 1 {
		return 0
	}
	return state.CurrentStreak
}

func nextStreak(state domain.ProgressState, today domain.Date) int {
	if state.LastCommitDate == nil {
		return 1
	}
	switch today.DaysSince(*state.LastCommitDate) {
	case 0:
		return max(state.CurrentStreak, 1)
	case 1:
		return state.CurrentStreak + 1
	default:
		return 1
	}
}

// qualifyingCommits returns today's unscored commits ordered by timestamp,
// then hash. A hash reached through two clones is counted once.
func qualifyingCommits(batch []domain.CommitRecord, today domain.Date, scored map[string]struct{}) []domain.CommitRecord {
	seen := map[string]struct{}{}
	var out []domain.CommitRecord
	for _, c := range batch {
		if domain.DateOf(c.Timestamp) != today {
			continue
		}
		if _, ok := scored[c.Hash]; ok {
			continue
		}
		if _, ok := seen[c.Hash]; ok {
			continue
		}
		seen[c.Hash] = struct{}{}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].Hash < out[j].Hash
	})
	return out
}

func buildTodayFacts(today domain.Date, commits []domain.CommitRecord) domain.TodayFacts {
	facts := domain.TodayFacts{Date: today, Commits: len(commits)}
	for _, c := range commits {
		facts.LargestDiff = max(facts.LargestDiff, c.LinesChanged())
		facts.CommitTimes = append(facts.CommitTimes, c.Timestamp)
	}
	return facts
}

func sortedUnion(a, b []string) []string {
	out := lo.Uniq(append(slices.Clone(a), b...))
	if len(out) == 0 {
		return nil
	}
	slices.Sort(out)
	return out
}
