package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cadenza-ai/cadenza/cmd/cadenza/internal"
	"github.com/cadenza-ai/cadenza/internal/artifact"
	"github.com/cadenza-ai/cadenza/internal/config"
	"github.com/cadenza-ai/cadenza/internal/ledger"
	"github.com/cadenza-ai/cadenza/internal/session"
	"github.com/cadenza-ai/cadenza/pkg/version"
)

// cfg is the configuration loaded by the persistent pre-run hook.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "cadenza",
	Short: "Cadenza - state and consistency layer for AI-assisted build pipelines",
	Long: `Cadenza tracks what was decided, what may be rebuilt, what context an
AI call may see, and what build work can safely resume after interruption.

It maintains a fingerprinted decision ledger, assembles size-bounded
prompt context, runs resumable build sessions, and tracks artifact
freshness against configuration and source changes.`,
	PersistentPreRunE: loadConfig,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

// Execute runs the root command with signal handling
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return rootCmd.ExecuteContext(ctx)
}

// loadConfig is called before any command runs to load configuration
func loadConfig(cmd *cobra.Command, args []string) error {
	flags, err := ParseGlobalFlags(cmd)
	if err != nil {
		return err
	}
	internal.SetVerbose(flags.IsVerbose())

	homeDir := flags.HomeDir
	if homeDir == "" {
		homeDir = os.Getenv("CADENZA_HOME")
	}
	if homeDir == "" {
		homeDir = config.DefaultHomeDir()
	}

	configFile := flags.ConfigFile
	if configFile == "" {
		configFile = config.DefaultConfigPath(homeDir)
	}

	loaded, err := config.NewLoader(config.NewValidator()).LoadWithDefaults(configFile)
	if err != nil {
		return err
	}
	if flags.HomeDir != "" {
		loaded.Core.HomeDir = flags.HomeDir
	}
	cfg = loaded

	internal.SetupLogging(cfg.Logging.Level, cfg.Logging.Format)
	return nil
}

func init() {
	RegisterGlobalFlags(rootCmd)

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(decisionCmd)
	rootCmd.AddCommand(contextCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(artifactCmd)
	rootCmd.AddCommand(taskCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if globalFlags.GetOutputFormat() == internal.FormatJSON {
			_ = formatter(cmd).PrintJSON(version.Info())
			return
		}
		cmd.Println(version.String())
	},
}

// openLedger opens the decision ledger at the configured location.
func openLedger() (*ledger.Ledger, error) {
	return ledger.New(cfg.LedgerDir())
}

// openSessionManager opens the build session store.
func openSessionManager() (*session.Manager, error) {
	return session.NewManager(cfg.SessionsDir())
}

// openRegistry opens the artifact registry.
func openRegistry() (*artifact.Registry, error) {
	return artifact.NewRegistry(cfg.RegistryPath())
}
