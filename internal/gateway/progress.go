package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/AmariahAK/commit-checker/internal/domain"
	"go.uber.org/zap"
)

// ProgressStore persists ProgressState as a JSON file.
type ProgressStore struct {
	path   string
	logger *zap.Logger
}

// NewProgressStore creates a store backed by the file at path.
func NewProgressStore(path string, logger *zap.Logger) *ProgressStore {
	return &ProgressStore{path: path, logger: logger}
}

// Path returns the location of the state file.
func (s *ProgressStore) Path() string {
	return s.path
}

// Load reads the state. A missing file yields a fresh state. A file that is not
// a JSON object is moved aside to <path>.corrupt and a fresh state is returned.
// Fields that do not decode are reset to their zero value one by one, with the
// original file copied to <path>.corrupt; the remaining fields are kept.
func (s *ProgressStore) Load() (domain.ProgressState, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.ProgressState{}, nil
	}
	if err != nil {
		return domain.ProgressState{}, fmt.Errorf("failed to read progress: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		backup := s.path + ".corrupt"
		s.logger.Warn("progress file is corrupt, starting fresh",
			zap.String("path", s.path),
			zap.String("backup", backup),
			zap.Error(err))
		if renameErr := os.Rename(s.path, backup); renameErr != nil {
			s.logger.Warn("failed to move corrupt progress file aside", zap.Error(renameErr))
		}
		return domain.ProgressState{}, nil
	}

	state, invalid := decodeProgress(raw)
	if len(invalid) > 0 {
		backup := s.path + ".corrupt"
		for _, f := range invalid {
			s.logger.Warn("resetting unreadable progress field",
				zap.String("path", s.path),
				zap.String("field", f.name),
				zap.Error(f.err))
		}
		if err := os.WriteFile(backup, data, 0o644); err != nil {
			s.logger.Warn("failed to keep a copy of the progress file", zap.String("backup", backup), zap.Error(err))
		}
	}
	return state, nil
}

type invalidField struct {
	name string
	err  error
}

// decodeProgress decodes each known field on its own so that one bad value
// does not discard the others.
func decodeProgress(raw map[string]json.RawMessage) (domain.ProgressState, []invalidField) {
	var state domain.ProgressState
	var invalid []invalidField
	decodeField(raw, "total_xp", &state.TotalXP, &invalid)
	decodeField(raw, "level", &state.Level, &invalid)
	decodeField(raw, "current_streak", &state.CurrentStreak, &invalid)
	decodeField(raw, "longest_streak", &state.LongestStreak, &invalid)
	decodeField(raw, "last_commit_date", &state.LastCommitDate, &invalid)
	decodeField(raw, "unlocked_achievements", &state.UnlockedAchievements, &invalid)
	decodeField(raw, "commits_tracked", &state.CommitsTracked, &invalid)
	decodeField(raw, "scored_commits", &state.ScoredCommits, &invalid)
	decodeField(raw, "extensions", &state.Extensions, &invalid)
	return state, invalid
}

func decodeField[T any](raw map[string]json.RawMessage, name string, dst *T, invalid *[]invalidField) {
	data, ok := raw[name]
	if !ok {
		return
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		*invalid = append(*invalid, invalidField{name: name, err: err})
		return
	}
	*dst = v
}

// Save writes state atomically: the JSON goes to a temporary file in the same
// directory which is then renamed over the previous state.
func (s *ProgressStore) Save(state domain.ProgressState) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary progress file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write progress: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync progress: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close progress: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		cleanup()
		return fmt.Errorf("failed to rename progress: %w", err)
	}

	s.logger.Debug("progress saved", zap.String("path", s.path), zap.Int("total_xp", state.TotalXP))
	return nil
}
