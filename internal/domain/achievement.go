package domain

import "time"

// Rarity ranks achievements; lower ranks are reported first.
type Rarity int

const (
	RarityCommon Rarity = iota
	RarityRare
	RarityEpic
	RarityLegendary
	RarityMythic
)

var rarityNames = [...]string{"common", "rare", "epic", "legendary", "mythic"}

func (r Rarity) String() string {
	if r < 0 || int(r) >= len(rarityNames) {
		return "unknown"
	}
	return rarityNames[r]
}

func (r Rarity) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// TodayFacts are the facts about today's qualifying commits that some
// achievements need in addition to ProgressState.
type TodayFacts struct {
	Date        Date        `json:"date"`
	Commits     int         `json:"commits"`
	LargestDiff int         `json:"largest_diff"`
	CommitTimes []time.Time `json:"commit_times"`
}

// AchievementDefinition is static reference data describing one badge.
type AchievementDefinition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Rarity      Rarity `json:"rarity"`
	// Secret achievements are hidden until unlocked.
	Secret bool `json:"secret"`
	// Unlocked is evaluated against the post-update state.
	Unlocked func(state ProgressState, facts TodayFacts) bool `json:"-"`
}
