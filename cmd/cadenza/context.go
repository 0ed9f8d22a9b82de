package main

import (
	"github.com/spf13/cobra"

	"github.com/cadenza-ai/cadenza/internal/prompt"
)

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Assemble size-bounded prompt context from the ledger",
	Long: `Assemble deterministic prompt context from ledger knowledge. When the
assembled text exceeds the configured byte budget the command fails with
the measured size instead of truncating.`,
}

func newBuilder() (*prompt.Builder, error) {
	l, err := openLedger()
	if err != nil {
		return nil, err
	}
	return prompt.NewBuilder(l, cfg.Context.PlannerLimit, cfg.Context.WorkerLimit), nil
}

var contextPlannerSummaries int

var contextPlannerCmd = &cobra.Command{
	Use:   "planner",
	Short: "Build context for the planner",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := newBuilder()
		if err != nil {
			return err
		}

		summaries := contextPlannerSummaries
		if summaries == 0 {
			summaries = cfg.Context.PlannerSummaries
		}
		text, err := b.BuildForPlanner(summaries)
		if err != nil {
			return err
		}
		cmd.Print(text)
		return nil
	},
}

var contextWorkerSummaries int

var contextWorkerCmd = &cobra.Command{
	Use:   "worker <task-id>",
	Short: "Build task-focused context for a worker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := newBuilder()
		if err != nil {
			return err
		}

		summaries := contextWorkerSummaries
		if summaries == 0 {
			summaries = cfg.Context.WorkerSummaries
		}
		text, err := b.BuildForWorker(args[0], summaries)
		if err != nil {
			return err
		}
		cmd.Print(text)
		return nil
	},
}

var contextInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show ledger record counts, estimated sizes, and limits",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := newBuilder()
		if err != nil {
			return err
		}
		return formatter(cmd).PrintJSON(b.UsageInfo())
	},
}

func init() {
	contextPlannerCmd.Flags().IntVar(&contextPlannerSummaries, "summaries", 0, "Trailing summary entries to include (default from config)")
	contextWorkerCmd.Flags().IntVar(&contextWorkerSummaries, "summaries", 0, "Dependency summary entries to include (default from config)")

	contextCmd.AddCommand(contextPlannerCmd)
	contextCmd.AddCommand(contextWorkerCmd)
	contextCmd.AddCommand(contextInfoCmd)
}
