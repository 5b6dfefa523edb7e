package cmd

import (
	"time"

	"github.com/AmariahAK/commit-checker/internal/config"
	"github.com/AmariahAK/commit-checker/internal/gateway"
	"github.com/AmariahAK/commit-checker/internal/usecase"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Scores today's commits and outputs the result as JSON",
	Long: `Scans the configured directory for git repositories, counts today's commits,
awards XP, updates your streak and unlocks achievements. Running it again on the
same day only scores commits made since the last run.`,
	Run: func(cmd *cobra.Command, args []string) {
		logger := newLogger(cmd)
		defer func() { _ = logger.Sync() }()
		cfg := loadConfig(cmd)

		extractor, identities := newGit(cfg, logger)
		aggregator := usecase.NewAggregator(extractor, identities, cfg.Scan.Workers, cfg.Scan.Timeout, logger)
		engine := usecase.NewEngine(weightsFrom(cfg), logger)
		store := gateway.NewProgressStore(cfg.ProgressPath(), logger)

		journal, closeJournal, err := openJournal(cfg, logger)
		if err != nil {
			fail("Failed to open journal: %v", err)
		}

		checker := usecase.NewChecker(cfg.LocalPath, gateway.NewLocator(cfg.Scan.Exclude, logger), aggregator, engine, store, journal, logger)
		report, err := checker.Run(cmd.Context(), time.Now())
		closeJournal()
		if err != nil {
			fail("Failed to check commits: %v", err)
		}
		printJSON(report)
	},
}

// openJournal returns a nil journal when journaling is disabled. fail exits the
// process without running deferred calls, so callers invoke the returned close
// function explicitly before reporting an error.
func openJournal(cfg *config.Config, logger *zap.Logger) (usecase.EventJournal, func(), error) {
	if !cfg.Journal.Enabled {
		return nil, func() {}, nil
	}
	j, err := gateway.OpenJournal(cfg.JournalPath(), gateway.DefaultJournalRetention, logger)
	if err != nil {
		return nil, nil, err
	}
	closeJournal := func() {
		if err := j.Close(); err != nil {
			logger.Warn("failed to close journal", zap.Error(err))
		}
	}
	return j, closeJournal, nil
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
