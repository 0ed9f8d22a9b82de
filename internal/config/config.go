// Package config defines the Cadenza configuration surface: where state
// lives on disk, the context size limits, and session/artifact policies.
package config

import (
	"path/filepath"
	"time"
)

// Config is the root configuration for Cadenza.
type Config struct {
	Core      CoreConfig      `mapstructure:"core" yaml:"core" validate:"required"`
	Ledger    LedgerConfig    `mapstructure:"ledger" yaml:"ledger"`
	Context   ContextConfig   `mapstructure:"context" yaml:"context"`
	Sessions  SessionsConfig  `mapstructure:"sessions" yaml:"sessions"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts" yaml:"artifacts"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

// CoreConfig contains core application settings.
type CoreConfig struct {
	HomeDir string `mapstructure:"home_dir" yaml:"home_dir"`
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
	Debug   bool   `mapstructure:"debug" yaml:"debug"`
}

// LedgerConfig locates the decision ledger store.
type LedgerConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// ContextConfig bounds prompt assembly. Limits are hard byte budgets
// measured on the assembled UTF-8 text.
type ContextConfig struct {
	PlannerLimit     int `mapstructure:"planner_limit" yaml:"planner_limit" validate:"min=1024"`
	WorkerLimit      int `mapstructure:"worker_limit" yaml:"worker_limit" validate:"min=1024"`
	PlannerSummaries int `mapstructure:"planner_summaries" yaml:"planner_summaries" validate:"min=0"`
	WorkerSummaries  int `mapstructure:"worker_summaries" yaml:"worker_summaries" validate:"min=0"`
}

// SessionsConfig controls build session persistence and defaults.
type SessionsConfig struct {
	Dir             string        `mapstructure:"dir" yaml:"dir"`
	RunDir          string        `mapstructure:"run_dir" yaml:"run_dir"`
	ContinueOnError bool          `mapstructure:"continue_on_error" yaml:"continue_on_error"`
	CleanupAge      time.Duration `mapstructure:"cleanup_age" yaml:"cleanup_age" validate:"min=0"`
}

// ArtifactsConfig locates the artifact registry and its cleanup policy.
type ArtifactsConfig struct {
	RegistryPath string        `mapstructure:"registry_path" yaml:"registry_path"`
	CleanupAge   time.Duration `mapstructure:"cleanup_age" yaml:"cleanup_age" validate:"min=0"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"omitempty,oneof=text json"`
}

// LedgerDir returns the ledger directory, defaulting under the data dir.
func (c *Config) LedgerDir() string {
	if c.Ledger.Dir != "" {
		return c.Ledger.Dir
	}
	return filepath.Join(c.Core.DataDir, "ledger")
}

// SessionsDir returns the session store directory.
func (c *Config) SessionsDir() string {
	if c.Sessions.Dir != "" {
		return c.Sessions.Dir
	}
	return filepath.Join(c.Core.DataDir, "sessions")
}

// RunDir returns the directory holding the run lock.
func (c *Config) RunDir() string {
	if c.Sessions.RunDir != "" {
		return c.Sessions.RunDir
	}
	return filepath.Join(c.Core.HomeDir, "run")
}

// RegistryPath returns the artifact registry file path.
func (c *Config) RegistryPath() string {
	if c.Artifacts.RegistryPath != "" {
		return c.Artifacts.RegistryPath
	}
	return filepath.Join(c.Core.DataDir, "artifacts.json")
}

// SummariesDir returns the per-task summary directory.
func (c *Config) SummariesDir() string {
	return filepath.Join(c.Core.DataDir, "summaries")
}
