package domain

import "slices"

// ProgressState is the persisted gamification state of the user.
// It is read once at the start of a run and written once after a complete scoring pass.
type ProgressState struct {
	TotalXP              int      `json:"total_xp"`
	Level                int      `json:"level"`
	CurrentStreak        int      `json:"current_streak"`
	LongestStreak        int      `json:"longest_streak"`
	LastCommitDate       *Date    `json:"last_commit_date"`
	UnlockedAchievements []string `json:"unlocked_achievements"`
	CommitsTracked       int      `json:"commits_tracked"`
	// ScoredCommits holds the hashes already scored on LastCommitDate,
	// so that re-running on the same day never awards a commit twice.
	ScoredCommits []string `json:"scored_commits,omitempty"`
	// Extensions is every file extension seen in a scored commit.
	Extensions []string `json:"extensions,omitempty"`
}

// HasAchievement reports whether id is already unlocked.
func (p ProgressState) HasAchievement(id string) bool {
	return slices.Contains(p.UnlockedAchievements, id)
}

// Clone returns a deep copy, so callers can mutate the result freely.
func (p ProgressState) Clone() ProgressState {
	out := p
	if p.LastCommitDate != nil {
		d := *p.LastCommitDate
		out.LastCommitDate = &d
	}
	out.UnlockedAchievements = slices.Clone(p.UnlockedAchievements)
	out.ScoredCommits = slices.Clone(p.ScoredCommits)
	out.Extensions = slices.Clone(p.Extensions)
	return out
}
