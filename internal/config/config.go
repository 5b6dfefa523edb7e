// Package config loads the user's commit-checker configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	// DirName is the directory under the home directory holding config and state.
	DirName      = ".commit-checker"
	fileName     = "config"
	envPrefix    = "COMMIT_CHECKER"
	progressFile = "progress.json"
	journalDir   = "journal"
)

// Config represents the complete commit-checker configuration.
type Config struct {
	LocalPath      string         `json:"local_path" mapstructure:"local_path" validate:"required"`
	StateDir       string         `json:"state_dir" mapstructure:"state_dir" validate:"required"`
	GitHubUsername string         `json:"github_username" mapstructure:"github_username"`
	GitHubToken    string         `json:"github_token" mapstructure:"github_token"`
	Identity       IdentityConfig `json:"identity" mapstructure:"identity"`
	Scan           ScanConfig     `json:"scan" mapstructure:"scan"`
	XPWeights      XPWeights      `json:"xp_weights" mapstructure:"xp_weights"`
	Journal        JournalConfig  `json:"journal" mapstructure:"journal"`
}

// IdentityConfig overrides the git identity read from each repository.
type IdentityConfig struct {
	Name  string `json:"name" mapstructure:"name"`
	Email string `json:"email" mapstructure:"email" validate:"omitempty,email"`
}

// ScanConfig controls repository discovery and querying.
type ScanConfig struct {
	Workers int           `json:"workers" mapstructure:"workers" validate:"min=1,max=256"`
	Timeout time.Duration `json:"timeout" mapstructure:"timeout" validate:"min=1s"`
	Exclude []string      `json:"exclude" mapstructure:"exclude"`
}

// XPWeights scale commit diff stats into XP.
type XPWeights struct {
	Insertions float64 `json:"insertions" mapstructure:"insertions" validate:"gte=0"`
	Deletions  float64 `json:"deletions" mapstructure:"deletions" validate:"gte=0"`
	Files      float64 `json:"files" mapstructure:"files" validate:"gte=0"`
	// Projects keys are lower-cased repository names.
	Projects map[string]float64 `json:"projects" mapstructure:"projects" validate:"dive,gte=0"`
}

// JournalConfig toggles the event journal.
type JournalConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
}

// ProgressPath is the location of the persisted ProgressState.
func (c *Config) ProgressPath() string {
	return filepath.Join(c.StateDir, progressFile)
}

// JournalPath is the directory of the event journal database.
func (c *Config) JournalPath() string {
	return filepath.Join(c.StateDir, journalDir)
}

// DefaultDir returns ~/.commit-checker.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to find home directory: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

// Load reads the configuration. An empty path reads config.json from the
// default directory; a missing default file is not an error. Environment
// variables prefixed COMMIT_CHECKER_ and GITHUB_TOKEN override file values.
func Load(path string) (*Config, error) {
	dir, err := DefaultDir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v, dir)

	v.SetConfigType("json")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(fileName)
		v.AddConfigPath(dir)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("github_token", envPrefix+"_GITHUB_TOKEN", "GITHUB_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.LocalPath = expandHome(cfg.LocalPath)
	cfg.StateDir = expandHome(cfg.StateDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return &Error{Field: fe.Namespace(), Message: fmt.Sprintf("failed on %q (value %v)", fe.Tag(), fe.Value())}
		}
		return fmt.Errorf("failed to validate config: %w", err)
	}
	return nil
}

// Error represents a configuration error.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}

func setDefaults(v *viper.Viper, dir string) {
	v.SetDefault("local_path", "~/Documents")
	v.SetDefault("state_dir", dir)
	v.SetDefault("github_username", "")
	v.SetDefault("github_token", "")
	v.SetDefault("identity.name", "")
	v.SetDefault("identity.email", "")
	v.SetDefault("scan.workers", 8)
	v.SetDefault("scan.timeout", 30*time.Second)
	v.SetDefault("scan.exclude", []string{"node_modules"})
	v.SetDefault("xp_weights.insertions", 1.0)
	v.SetDefault("xp_weights.deletions", 0.5)
	v.SetDefault("xp_weights.files", 2.0)
	v.SetDefault("xp_weights.projects", map[string]float64{})
	v.SetDefault("journal.enabled", true)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
