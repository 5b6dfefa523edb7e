package usecase

import (
	"sort"
	"strconv"
	"time"

	"github.com/AmariahAK/commit-checker/internal/domain"
	"github.com/samber/lo"
)

const bigDiffLines = 500

// Definitions is the closed table of achievements.
var Definitions = []domain.AchievementDefinition{
	{
		ID: "first_commit", Name: "First Steps", Description: "Track your first commit",
		Rarity:   domain.RarityCommon,
		Unlocked: func(s domain.ProgressState, _ domain.TodayFacts) bool { return s.CommitsTracked >= 1 },
	},
	streakAchievement("streak_3", "Getting Started", 3, domain.RarityCommon),
	streakAchievement("streak_7", "Week Warrior", 7, domain.RarityCommon),
	{
		ID: "weekend_warrior", Name: "Weekend Warrior", Description: "Commit on a Saturday or Sunday",
		Rarity: domain.RarityCommon,
		Unlocked: func(_ domain.ProgressState, f domain.TodayFacts) bool {
			return f.Commits > 0 && f.Date.IsWeekend()
		},
	},
	streakAchievement("streak_14", "Fortnight Fighter", 14, domain.RarityRare),
	{
		ID: "hundred_commits", Name: "Centurion", Description: "Track 100 commits",
		Rarity:   domain.RarityRare,
		Unlocked: func(s domain.ProgressState, _ domain.TodayFacts) bool { return s.CommitsTracked >= 100 },
	},
	{
		ID: "night_owl", Name: "Night Owl", Description: "Commit between 2 AM and 4 AM",
		Rarity: domain.RarityRare,
		Secret: true,
		Unlocked: func(_ domain.ProgressState, f domain.TodayFacts) bool {
			return lo.ContainsBy(f.CommitTimes, func(t time.Time) bool {
				h := t.In(time.Local).Hour()
				return h >= 2 && h < 4
			})
		},
	},
	{
		ID: "level_5", Name: "Rising Star", Description: "Reach level 5",
		Rarity:   domain.RarityRare,
		Unlocked: func(s domain.ProgressState, _ domain.TodayFacts) bool { return s.Level >= 5 },
	},
	streakAchievement("streak_30", "Monthly Master", 30, domain.RarityEpic),
	{
		ID: "big_diff", Name: "Code Tsunami", Description: "Change 500 or more lines in one commit",
		Rarity:   domain.RarityEpic,
		Unlocked: func(_ domain.ProgressState, f domain.TodayFacts) bool { return f.LargestDiff >= bigDiffLines },
	},
	{
		ID: "polyglot", Name: "Polyglot", Description: "Commit files with 5 different extensions",
		Rarity:   domain.RarityEpic,
		Unlocked: func(s domain.ProgressState, _ domain.TodayFacts) bool { return len(s.Extensions) >= 5 },
	},
	streakAchievement("streak_90", "Quarter Champion", 90, domain.RarityLegendary),
	{
		ID: "thousand_commits", Name: "Commit Machine", Description: "Track 1000 commits",
		Rarity:   domain.RarityLegendary,
		Unlocked: func(s domain.ProgressState, _ domain.TodayFacts) bool { return s.CommitsTracked >= 1000 },
	},
	streakAchievement("streak_365", "Year-Long Legend", 365, domain.RarityMythic),
}

func streakAchievement(id, name string, days int, rarity domain.Rarity) domain.AchievementDefinition {
	return domain.AchievementDefinition{
		ID:          id,
		Name:        name,
		Description: "Commit " + lo.Ternary(days == 365, "every day for a year", strconv.Itoa(days)+" days in a row"),
		Rarity:      rarity,
		Unlocked: func(s domain.ProgressState, _ domain.TodayFacts) bool {
			return s.CurrentStreak >= days
		},
	}
}

// Lookup returns the definition of id.
func Lookup(id string) (domain.AchievementDefinition, bool) {
	return lo.Find(Definitions, func(d domain.AchievementDefinition) bool { return d.ID == id })
}

// Evaluate returns the IDs of achievements that state and facts satisfy and
// that are not unlocked yet, ordered by rarity and then ID.
func Evaluate(state domain.ProgressState, facts domain.TodayFacts) []string {
	matched := lo.Filter(Definitions, func(d domain.AchievementDefinition, _ int) bool {
		return !state.HasAchievement(d.ID) && d.Unlocked(state, facts)
	})
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Rarity != matched[j].Rarity {
			return matched[i].Rarity < matched[j].Rarity
		}
		return matched[i].ID < matched[j].ID
	})
	return lo.Map(matched, func(d domain.AchievementDefinition, _ int) string { return d.ID })
}

// Unlock returns a copy of state with ids added to the unlocked set.
// Unknown IDs are ignored and nothing is ever removed.
func Unlock(state domain.ProgressState, ids []string) domain.ProgressState {
	known := lo.Filter(ids, func(id string, _ int) bool {
		_, ok := Lookup(id)
		return ok
	})
	next := state.Clone()
	next.UnlockedAchievements = sortedUnion(next.UnlockedAchievements, known)
	return next
}
