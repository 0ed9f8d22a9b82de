package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cadenza-ai/cadenza/cmd/cadenza/internal"
	"github.com/cadenza-ai/cadenza/internal/driver"
	"github.com/cadenza-ai/cadenza/internal/plan"
	"github.com/cadenza-ai/cadenza/internal/types"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Run and manage build sessions",
}

func newDriver() (*driver.Driver, error) {
	l, err := openLedger()
	if err != nil {
		return nil, err
	}
	sm, err := openSessionManager()
	if err != nil {
		return nil, err
	}
	reg, err := openRegistry()
	if err != nil {
		return nil, err
	}
	return driver.New(l, sm, reg, &driver.ExecExecutor{}, cfg.RunDir()), nil
}

func printRunReport(cmd *cobra.Command, report *driver.RunReport) error {
	cmd.Printf("Session %s: %d built, %d skipped, %d failed\n",
		report.SessionID, len(report.Executed), len(report.Skipped), len(report.Failed))
	if report.Halted {
		return internal.NewCLIError(internal.ExitBuildFailed,
			fmt.Sprintf("build halted, resume with: cadenza build resume %s", report.SessionID))
	}
	if len(report.Failed) > 0 {
		return internal.NewCLIError(internal.ExitBuildFailed,
			fmt.Sprintf("%d unit(s) failed", len(report.Failed)))
	}
	return nil
}

var (
	buildRunContinue bool
	buildRunConfig   []string
)

var buildRunCmd = &cobra.Command{
	Use:   "run <plan.json>",
	Short: "Execute a plan in a new build session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := plan.Load(args[0])
		if err != nil {
			return err
		}

		d, err := newDriver()
		if err != nil {
			return err
		}

		buildConfig := make(map[string]string, len(buildRunConfig))
		for _, kv := range buildRunConfig {
			k, v, ok := splitKeyValue(kv)
			if !ok {
				return internal.NewCLIError(internal.ExitError, "invalid --set value, expected key=value: "+kv)
			}
			buildConfig[k] = v
		}

		report, err := d.RunPlan(cmd.Context(), p, driver.RunOptions{
			Config:          buildConfig,
			ContinueOnError: buildRunContinue || cfg.Sessions.ContinueOnError,
		})
		if err != nil {
			return err
		}
		return printRunReport(cmd, report)
	},
}

var buildResumeFrom string

var buildResumeCmd = &cobra.Command{
	Use:   "resume <session-id> <plan.json>",
	Short: "Resume an interrupted build session",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, err := types.ParseID(args[0])
		if err != nil {
			return internal.WrapError(internal.ExitError, "invalid session id", err)
		}

		p, err := plan.Load(args[1])
		if err != nil {
			return err
		}

		d, err := newDriver()
		if err != nil {
			return err
		}

		report, err := d.RunPlan(cmd.Context(), p, driver.RunOptions{
			ResumeSessionID: sessionID,
			FromUnit:        buildResumeFrom,
		})
		if err != nil {
			return err
		}
		return printRunReport(cmd, report)
	},
}

var buildStatusCmd = &cobra.Command{
	Use:   "status <session-id>",
	Short: "Show a session's progress summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, err := types.ParseID(args[0])
		if err != nil {
			return internal.WrapError(internal.ExitError, "invalid session id", err)
		}

		sm, err := openSessionManager()
		if err != nil {
			return err
		}
		sess, err := sm.LoadSession(sessionID)
		if err != nil {
			return err
		}
		return formatter(cmd).PrintJSON(sess.StatusSummary())
	},
}

var buildSessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List persisted build sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		sm, err := openSessionManager()
		if err != nil {
			return err
		}

		ids, err := sm.ListSessions()
		if err != nil {
			return err
		}

		rows := make([][]string, 0, len(ids))
		for _, id := range ids {
			sess, err := sm.LoadSession(id)
			if err != nil {
				continue
			}
			summary := sess.StatusSummary()
			rows = append(rows, []string{
				id.String(),
				summary.State,
				strconv.Itoa(summary.Completed) + "/" + strconv.Itoa(summary.TotalUnits),
				strconv.Itoa(summary.Failed),
				sess.StartTime.Format("2006-01-02 15:04"),
			})
		}
		return formatter(cmd).PrintTable(
			[]string{"session", "state", "built", "failed", "started"}, rows)
	},
}

var buildCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove session files older than the configured age",
	RunE: func(cmd *cobra.Command, args []string) error {
		sm, err := openSessionManager()
		if err != nil {
			return err
		}

		removed, err := sm.CleanupOlderThan(cfg.Sessions.CleanupAge)
		if err != nil {
			return err
		}
		return formatter(cmd).PrintSuccess(fmt.Sprintf("removed %d session file(s)", removed))
	},
}

// splitKeyValue splits "key=value" into its parts.
func splitKeyValue(s string) (string, string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '=' {
			return s[:i], s[i+1:], i > 0
		}
	}
	return "", "", false
}

func init() {
	buildRunCmd.Flags().BoolVar(&buildRunContinue, "keep-going", false, "Continue building past failed units")
	buildRunCmd.Flags().StringArrayVar(&buildRunConfig, "set", nil, "Build configuration as key=value (repeatable)")

	buildResumeCmd.Flags().StringVar(&buildResumeFrom, "from", "", "Unit to resume from (default: first unresolved)")

	buildCmd.AddCommand(buildRunCmd)
	buildCmd.AddCommand(buildResumeCmd)
	buildCmd.AddCommand(buildStatusCmd)
	buildCmd.AddCommand(buildSessionsCmd)
	buildCmd.AddCommand(buildCleanupCmd)
}
