// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/AmariahAK/commit-checker/internal/config"
	"github.com/AmariahAK/commit-checker/internal/domain"
	"github.com/AmariahAK/commit-checker/internal/gateway"
	"github.com/AmariahAK/commit-checker/internal/usecase"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "commit-checker",
	Short: "A CLI tool that tracks your daily git commits and gamifies them.",
	Long: `commit-checker scans a directory tree for git repositories, counts the
commits you made today, this week or this month, and turns today's commits
into XP, levels, streaks and achievements. Results are printed as JSON.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// An interrupt cancels the command context, so a scoring pass in flight is not persisted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Add a persistent flag for verbose output, available to all commands.
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to config.json (default ~/.commit-checker/config.json)")
}

// newLogger discards all logs unless --verbose is set, in which case
// development logs go to standard error.
func newLogger(cmd *cobra.Command) *zap.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		fail("Failed to create logger: %v", err)
	}
	return logger
}

func loadConfig(cmd *cobra.Command) *config.Config {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		fail("Failed to load configuration: %v", err)
	}
	return cfg
}

func weightsFrom(cfg *config.Config) usecase.Weights {
	return usecase.Weights{
		Insertions: cfg.XPWeights.Insertions,
		Deletions:  cfg.XPWeights.Deletions,
		Files:      cfg.XPWeights.Files,
		Projects:   cfg.XPWeights.Projects,
	}
}

func identityFrom(cfg *config.Config) domain.Identity {
	return domain.Identity{Name: cfg.Identity.Name, Email: cfg.Identity.Email}
}

// newGit checks for the git binary up front, since nothing works without it,
// and returns the extractor and identity resolver sharing one runner.
func newGit(cfg *config.Config, logger *zap.Logger) (*gateway.Extractor, *gateway.IdentityResolver) {
	runner := gateway.NewExecRunner()
	if err := runner.LookPath(); err != nil {
		fail("Error: %v", err)
	}
	return gateway.NewExtractor(runner, logger), gateway.NewIdentityResolver(runner, identityFrom(cfg), logger)
}

func locate(cmd *cobra.Command, cfg *config.Config, logger *zap.Logger) *gateway.LocateResult {
	locator := gateway.NewLocator(cfg.Scan.Exclude, logger)
	result, err := locator.Locate(cmd.Context(), cfg.LocalPath)
	if err != nil {
		fail("Failed to scan %s: %v", cfg.LocalPath, err)
	}
	return result
}

// printJSON writes v to standard output as pretty-printed JSON.
func printJSON(v any) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fail("Failed to marshal results to JSON: %v", err)
	}
	fmt.Println(string(jsonData))
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
