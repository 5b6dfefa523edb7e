package cmd

import (
	"time"

	"github.com/AmariahAK/commit-checker/internal/domain"
	"github.com/AmariahAK/commit-checker/internal/gateway"
	"github.com/AmariahAK/commit-checker/internal/usecase"
	"github.com/spf13/cobra"
)

const inputDateLayout = "2006/01/02"

// githubView adds the searched commit counts to the activity summary.
type githubView struct {
	*domain.GitHubSummary
	Commits []domain.RepoCount `json:"commits,omitempty"`
}

var githubCmd = &cobra.Command{
	Use:   "github",
	Short: "Outputs your GitHub activity as JSON",
	Long: `Outputs the commits you pushed to GitHub today per repository and your
contribution streak. With --from and/or --to it also counts the commits you
authored in that range, per repository. GITHUB_TOKEN is needed for the
contribution calendar and the commit search.`,
	Run: func(cmd *cobra.Command, args []string) {
		logger := newLogger(cmd)
		defer func() { _ = logger.Sync() }()
		cfg := loadConfig(cmd)

		user, _ := cmd.Flags().GetString("user")
		if user == "" {
			user = cfg.GitHubUsername
		}
		if user == "" {
			fail("Error: no GitHub user. Pass --user or set github_username in the config.")
		}
		from := parseDateFlag(cmd, "from")
		to := parseDateFlag(cmd, "to")

		githubGateway, err := gateway.NewGitHubGateway(cfg.GitHubToken, logger)
		if err != nil {
			fail("Failed to create GitHub gateway: %v", err)
		}
		activity := usecase.NewGitHubActivity(githubGateway, logger)

		summary, err := activity.Summarize(cmd.Context(), user, time.Now())
		if err != nil {
			fail("Failed to fetch GitHub activity: %v", err)
		}
		view := githubView{GitHubSummary: summary}
		if from != nil || to != nil {
			if cfg.GitHubToken == "" {
				fail("Error: GITHUB_TOKEN environment variable is not set.")
			}
			if view.Commits, err = activity.CommitsByRepo(cmd.Context(), user, from, to); err != nil {
				fail("Failed to search commits: %v", err)
			}
		}
		printJSON(view)
	},
}

// parseDateFlag returns nil when the flag is unset.
func parseDateFlag(cmd *cobra.Command, name string) *domain.Date {
	value, _ := cmd.Flags().GetString(name)
	if value == "" {
		return nil
	}
	t, err := time.ParseInLocation(inputDateLayout, value, time.Local)
	if err != nil {
		fail("Invalid --%s date format. Please use YYYY/MM/DD. Error: %v", name, err)
	}
	d := domain.DateOf(t)
	return &d
}

func init() {
	rootCmd.AddCommand(githubCmd)
	githubCmd.Flags().StringP("user", "u", "", "GitHub user name (default github_username from the config)")
	githubCmd.Flags().String("from", "", "Start date for the commit search (YYYY/MM/DD)")
	githubCmd.Flags().String("to", "", "End date for the commit search (YYYY/MM/DD)")
}
