package cmd

import (
	"time"

	"github.com/AmariahAK/commit-checker/internal/usecase"
	"github.com/spf13/cobra"
)

var heatmapCmd = &cobra.Command{
	Use:   "heatmap",
	Short: "Outputs daily commit counts and the weekly trend as JSON",
	Run: func(cmd *cobra.Command, args []string) {
		logger := newLogger(cmd)
		defer func() { _ = logger.Sync() }()
		cfg := loadConfig(cmd)

		days, _ := cmd.Flags().GetInt("days")
		located := locate(cmd, cfg, logger)
		extractor, identities := newGit(cfg, logger)
		builder := usecase.NewHeatmapBuilder(extractor, identities, cfg.Scan.Workers, cfg.Scan.Timeout, logger)

		heatmap, err := builder.Build(cmd.Context(), located.Repositories, days, time.Now())
		if err != nil {
			fail("Failed to build heatmap: %v", err)
		}
		printJSON(heatmap)
	},
}

func init() {
	rootCmd.AddCommand(heatmapCmd)
	heatmapCmd.Flags().IntP("days", "d", usecase.DefaultHeatmapDays, "Number of days to include")
}
