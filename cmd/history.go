package cmd

import (
	"github.com/AmariahAK/commit-checker/internal/gateway"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Outputs recent scoring events from the journal as JSON",
	Run: func(cmd *cobra.Command, args []string) {
		logger := newLogger(cmd)
		defer func() { _ = logger.Sync() }()
		cfg := loadConfig(cmd)

		if !cfg.Journal.Enabled {
			fail("Error: the journal is disabled (journal.enabled is false).")
		}
		limit, _ := cmd.Flags().GetInt("limit")

		journal, err := gateway.OpenJournal(cfg.JournalPath(), gateway.DefaultJournalRetention, logger)
		if err != nil {
			fail("Failed to open journal: %v", err)
		}
		events, err := journal.Recent(limit)
		closeErr := journal.Close()
		if err != nil {
			fail("Failed to read journal: %v", err)
		}
		if closeErr != nil {
			fail("Failed to close journal: %v", closeErr)
		}
		if events == nil {
			events = []gateway.Event{}
		}
		printJSON(events)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum number of events to show")
}
