package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cadenza-ai/cadenza/cmd/cadenza/internal"
	"github.com/cadenza-ai/cadenza/internal/config"
	"github.com/cadenza-ai/cadenza/internal/util"
)

var (
	initForce   bool
	initHomeDir string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize Cadenza configuration and state directories",
	Long: `Initialize Cadenza by creating:
- The home directory structure (ledger, sessions, artifacts, run)
- A default configuration file`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing configuration")
	initCmd.Flags().StringVar(&initHomeDir, "home", "", "Custom home directory (default: ~/.cadenza)")
}

func runInit(cmd *cobra.Command, args []string) error {
	homeDir := initHomeDir
	if homeDir == "" {
		homeDir = globalFlags.HomeDir
	}
	if homeDir == "" {
		homeDir = config.DefaultHomeDir()
	}

	cmd.Printf("Initializing Cadenza in %s...\n", homeDir)

	// Anchor every default path under the chosen home.
	defaults := config.DefaultConfig()
	defaults.Core.HomeDir = homeDir
	defaults.Core.DataDir = filepath.Join(homeDir, "data")
	defaults.Ledger.Dir = filepath.Join(homeDir, "data", "ledger")
	defaults.Sessions.Dir = filepath.Join(homeDir, "data", "sessions")
	defaults.Sessions.RunDir = filepath.Join(homeDir, "run")
	defaults.Artifacts.RegistryPath = filepath.Join(homeDir, "data", "artifacts.json")

	for _, dir := range []string{
		defaults.Core.DataDir,
		defaults.LedgerDir(),
		defaults.SessionsDir(),
		defaults.RunDir(),
		defaults.SummariesDir(),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return internal.WrapError(internal.ExitError, "failed to create "+dir, err)
		}
	}

	configPath := config.DefaultConfigPath(homeDir)
	if _, err := os.Stat(configPath); err == nil && !initForce {
		cmd.Printf("Config already exists at %s (use --force to overwrite)\n", configPath)
		return nil
	}

	data, err := yaml.Marshal(defaults)
	if err != nil {
		return internal.WrapError(internal.ExitError, "failed to render default config", err)
	}
	if err := util.WriteFileAtomic(configPath, data, 0o644); err != nil {
		return internal.WrapError(internal.ExitError, "failed to write "+configPath, err)
	}

	return formatter(cmd).PrintSuccess("Cadenza initialized at " + homeDir)
}
