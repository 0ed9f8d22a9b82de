package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/cadenza-ai/cadenza/internal/prompt"
)

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	homeDir := DefaultHomeDir()

	return &Config{
		Core: CoreConfig{
			HomeDir: homeDir,
			DataDir: filepath.Join(homeDir, "data"),
			Debug:   false,
		},
		Ledger: LedgerConfig{
			Dir: filepath.Join(homeDir, "data", "ledger"),
		},
		Context: ContextConfig{
			PlannerLimit:     prompt.DefaultPlannerLimit,
			WorkerLimit:      prompt.DefaultWorkerLimit,
			PlannerSummaries: prompt.DefaultPlannerSummaries,
			WorkerSummaries:  prompt.DefaultWorkerSummaries,
		},
		Sessions: SessionsConfig{
			Dir:             filepath.Join(homeDir, "data", "sessions"),
			RunDir:          filepath.Join(homeDir, "run"),
			ContinueOnError: false,
			CleanupAge:      30 * 24 * time.Hour,
		},
		Artifacts: ArtifactsConfig{
			RegistryPath: filepath.Join(homeDir, "data", "artifacts.json"),
			CleanupAge:   30 * 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultHomeDir returns the default Cadenza home directory. It uses
// ~/.cadenza or falls back to a temporary directory if the user home
// cannot be determined.
func DefaultHomeDir() string {
	userHome, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".cadenza")
	}
	return filepath.Join(userHome, ".cadenza")
}

// DefaultConfigPath returns the default config file path for a given home
// directory.
func DefaultConfigPath(homeDir string) string {
	return filepath.Join(homeDir, "config.yaml")
}
