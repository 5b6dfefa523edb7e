package cmd

import (
	"time"

	"github.com/AmariahAK/commit-checker/internal/domain"
	"github.com/AmariahAK/commit-checker/internal/gateway"
	"github.com/AmariahAK/commit-checker/internal/usecase"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// statusView is the read-only view of the progress state.
type statusView struct {
	TotalXP         int                            `json:"total_xp"`
	Level           int                            `json:"level"`
	LevelTitle      string                         `json:"level_title"`
	XPToNextLevel   int                            `json:"xp_to_next_level"`
	CurrentStreak   int                            `json:"current_streak"`
	LongestStreak   int                            `json:"longest_streak"`
	LastCommitDate  *domain.Date                   `json:"last_commit_date"`
	CommitsTracked  int                            `json:"commits_tracked"`
	Achievements    []domain.AchievementDefinition `json:"achievements"`
	LockedRemaining int                            `json:"locked_remaining"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Shows your XP, level, streak and achievements as JSON",
	Run: func(cmd *cobra.Command, args []string) {
		logger := newLogger(cmd)
		defer func() { _ = logger.Sync() }()
		cfg := loadConfig(cmd)

		now := time.Now()
		state, err := gateway.NewProgressStore(cfg.ProgressPath(), logger).Load()
		if err != nil {
			fail("Failed to load progress: %v", err)
		}
		state, _ = usecase.NewEngine(weightsFrom(cfg), logger).Sanitize(state, now)

		unlocked := lo.FilterMap(state.UnlockedAchievements, func(id string, _ int) (domain.AchievementDefinition, bool) {
			return usecase.Lookup(id)
		})
		printJSON(statusView{
			TotalXP:         state.TotalXP,
			Level:           state.Level,
			LevelTitle:      usecase.LevelTitle(state.Level),
			XPToNextLevel:   usecase.XPForNextLevel(state.TotalXP),
			CurrentStreak:   usecase.EffectiveStreak(state, now),
			LongestStreak:   state.LongestStreak,
			LastCommitDate:  state.LastCommitDate,
			CommitsTracked:  state.CommitsTracked,
			Achievements:    unlocked,
			LockedRemaining: len(usecase.Definitions) - len(unlocked),
		})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
