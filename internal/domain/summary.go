package domain

// RepoFailure records a repository excluded from a run and why.
type RepoFailure struct {
	Repo  RepositoryRef `json:"repo"`
	Error string        `json:"error"`
}

// Summary is the aggregated activity across all scanned repositories.
type Summary struct {
	Timeframe     Timeframe           `json:"timeframe"`
	Repositories  []CommitWindowStats `json:"repositories"`
	MostActive    *CommitWindowStats  `json:"most_active"`
	TotalToday    int                 `json:"total_today"`
	TotalCommits  int                 `json:"total_commits"`
	TotalInWindow int                 `json:"total_in_window"`
	WindowMean    float64             `json:"window_mean"`
	WindowMedian  float64             `json:"window_median"`
	Failures      []RepoFailure       `json:"failures,omitempty"`
}

// DayCount is the number of commits on one day.
type DayCount struct {
	Date    Date `json:"date"`
	Commits int  `json:"commits"`
}

// WeekCount is the number of commits in a rolling 7 day bucket.
type WeekCount struct {
	Start   Date `json:"start"`
	End     Date `json:"end"`
	Commits int  `json:"commits"`
}

// Heatmap is daily commit activity over a range of days, oldest first.
type Heatmap struct {
	Days         []DayCount    `json:"days"`
	Weeks        []WeekCount   `json:"weeks"`
	MaxPerDay    int           `json:"max_per_day"`
	MeanPerDay   float64       `json:"mean_per_day"`
	LastSevenDay int           `json:"last_seven_days"`
	Failures     []RepoFailure `json:"failures,omitempty"`
}

// RepoCount pairs a repository name with a commit count.
type RepoCount struct {
	Name    string `json:"name"`
	Commits int    `json:"commits"`
}

// GitHubSummary is the GitHub-hosted activity of a user.
type GitHubSummary struct {
	User          string      `json:"user"`
	PushedToday   []RepoCount `json:"pushed_today"`
	TotalToday    int         `json:"total_today"`
	Calendar      []DayCount  `json:"calendar"`
	CurrentStreak int         `json:"current_streak"`
}
