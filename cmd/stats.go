package cmd

import (
	"time"

	"github.com/AmariahAK/commit-checker/internal/domain"
	"github.com/AmariahAK/commit-checker/internal/usecase"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Aggregates local commit activity and outputs as JSON",
	Long: `Aggregates your commits per repository for a timeframe (today, a rolling
week or a rolling month) and outputs the result in JSON format. It never changes
your XP or streak.`,
	Run: func(cmd *cobra.Command, args []string) {
		logger := newLogger(cmd)
		defer func() { _ = logger.Sync() }()
		cfg := loadConfig(cmd)

		timeframeStr, _ := cmd.Flags().GetString("timeframe")
		timeframe, err := domain.ParseTimeframe(timeframeStr)
		if err != nil {
			fail("Invalid --timeframe: %v", err)
		}

		located := locate(cmd, cfg, logger)
		extractor, identities := newGit(cfg, logger)
		aggregator := usecase.NewAggregator(extractor, identities, cfg.Scan.Workers, cfg.Scan.Timeout, logger)

		summary, err := aggregator.Aggregate(cmd.Context(), located.Repositories, timeframe, time.Now())
		if err != nil {
			fail("Failed to aggregate stats: %v", err)
		}
		printJSON(summary)
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().StringP("timeframe", "t", string(domain.TimeframeToday), "Timeframe to aggregate: today, week or month")
}
