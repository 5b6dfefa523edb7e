package domain

import "time"

// CommitRecord is a single commit read from git history, with its diff stats.
type CommitRecord struct {
	Hash         string    `json:"hash"`
	Repo         string    `json:"repo"`
	Timestamp    time.Time `json:"timestamp"`
	Message      string    `json:"message"`
	Insertions   int       `json:"insertions"`
	Deletions    int       `json:"deletions"`
	FilesChanged int       `json:"files_changed"`
	// Extensions lists the distinct lower-case file extensions the commit touched.
	Extensions []string `json:"extensions,omitempty"`
}

// LinesChanged is insertions plus deletions.
func (c CommitRecord) LinesChanged() int {
	return c.Insertions + c.Deletions
}

// CommitWindowStats holds commit activity of one repository for a timeframe.
// It is always computed from live git state.
type CommitWindowStats struct {
	Repo         RepositoryRef  `json:"repo"`
	TodayCount   int            `json:"today_count"`
	TotalCount   int            `json:"total_count"`
	WindowCount  int            `json:"window_count"`
	LastCommitAt *time.Time     `json:"last_commit_at"`
	Commits      []CommitRecord `json:"commits"`
}

// LastCommitDate returns the local date of the most recent commit, if any.
func (s CommitWindowStats) LastCommitDate() *Date {
	if s.LastCommitAt == nil {
		return nil
	}
	d := DateOf(*s.LastCommitAt)
	return &d
}
