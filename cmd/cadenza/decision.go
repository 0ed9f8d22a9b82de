package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/cadenza-ai/cadenza/internal/ledger"
)

var decisionCmd = &cobra.Command{
	Use:   "decision",
	Short: "Manage the decision ledger",
	Long: `Record, override, and inspect the append-only decision ledger.
Overriding never deletes: the old decision is marked superseded and a
replacement is created, changing the ledger fingerprint that gates plan
execution.`,
}

var (
	decisionAddCategory      string
	decisionAddDescription   string
	decisionAddJustification string
	decisionAddCreatedBy     string
	decisionAddEvidence      []string
)

var decisionAddCmd = &cobra.Command{
	Use:   "add <value>",
	Short: "Record a decision",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := openLedger()
		if err != nil {
			return err
		}

		id, err := l.AddDecision(decisionAddCategory, decisionAddDescription,
			args[0], decisionAddJustification, decisionAddCreatedBy, decisionAddEvidence)
		if err != nil {
			return err
		}
		return formatter(cmd).PrintSuccess("decision recorded: " + id)
	},
}

var (
	decisionOverrideReason    string
	decisionOverrideCreatedBy string
)

var decisionOverrideCmd = &cobra.Command{
	Use:   "override <decision-id> <new-value>",
	Short: "Supersede an active decision with a new value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := openLedger()
		if err != nil {
			return err
		}

		result, err := l.OverrideDecision(args[0], args[1], decisionOverrideReason,
			decisionOverrideCreatedBy, nil)
		if err != nil {
			return err
		}
		cmd.Printf("Superseded %s with %s\n", result.OldID, result.NewID)
		cmd.Printf("New fingerprint: %s\n", l.ComputeFingerprint())
		return nil
	},
}

var (
	decisionListCategory string
	decisionListStatus   string
)

var decisionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List decisions, optionally filtered by category or status",
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := openLedger()
		if err != nil {
			return err
		}

		decisions := l.ListDecisions(ledger.DecisionFilter{
			Category: decisionListCategory,
			Status:   ledger.DecisionStatus(decisionListStatus),
		})

		rows := make([][]string, 0, len(decisions))
		for _, d := range decisions {
			rows = append(rows, []string{
				d.DecisionID, d.Category, d.Value, string(d.Status),
				d.CreatedAt.Format("2006-01-02 15:04"),
			})
		}
		return formatter(cmd).PrintTable(
			[]string{"id", "category", "value", "status", "created"}, rows)
	},
}

var decisionFingerprintCmd = &cobra.Command{
	Use:   "fingerprint",
	Short: "Print the fingerprint of the active decision set",
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := openLedger()
		if err != nil {
			return err
		}
		cmd.Println(l.ComputeFingerprint())
		return nil
	},
}

var decisionCheckCmd = &cobra.Command{
	Use:   "check <category> <candidate-value>",
	Short: "Check a candidate value against the active decision for a category",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := openLedger()
		if err != nil {
			return err
		}

		conflict := l.CheckConflict(args[0], args[1])
		if conflict == nil {
			return formatter(cmd).PrintSuccess("no conflict for category " + args[0])
		}
		return formatter(cmd).PrintError(strings.Join([]string{
			"conflicts with", conflict.DecisionID,
			"(" + conflict.Category + "=" + conflict.Value + ")",
		}, " "))
	},
}

func init() {
	decisionAddCmd.Flags().StringVarP(&decisionAddCategory, "category", "c", "", "Decision category (e.g. engine_choice)")
	decisionAddCmd.Flags().StringVarP(&decisionAddDescription, "description", "d", "", "What is being decided")
	decisionAddCmd.Flags().StringVarP(&decisionAddJustification, "justification", "j", "", "Why this value was chosen")
	decisionAddCmd.Flags().StringVar(&decisionAddCreatedBy, "by", "cli", "Author of the decision")
	decisionAddCmd.Flags().StringSliceVar(&decisionAddEvidence, "evidence", nil, "Evidence references")
	_ = decisionAddCmd.MarkFlagRequired("category")

	decisionOverrideCmd.Flags().StringVarP(&decisionOverrideReason, "reason", "r", "", "Why the decision is overridden")
	decisionOverrideCmd.Flags().StringVar(&decisionOverrideCreatedBy, "by", "cli", "Author of the override")
	_ = decisionOverrideCmd.MarkFlagRequired("reason")

	decisionListCmd.Flags().StringVarP(&decisionListCategory, "category", "c", "", "Filter by category")
	decisionListCmd.Flags().StringVarP(&decisionListStatus, "status", "s", "", "Filter by status (active|superseded)")

	decisionCmd.AddCommand(decisionAddCmd)
	decisionCmd.AddCommand(decisionOverrideCmd)
	decisionCmd.AddCommand(decisionListCmd)
	decisionCmd.AddCommand(decisionFingerprintCmd)
	decisionCmd.AddCommand(decisionCheckCmd)
}
