package main

import (
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cadenza-ai/cadenza/cmd/cadenza/internal"
	"github.com/cadenza-ai/cadenza/internal/plan"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Create and verify build plans",
	Long: `Build plans record the decision fingerprint active at creation time.
A plan only passes verification while the ledger still computes the same
fingerprint; any override in between blocks execution until the plan is
regenerated.`,
}

// planUnitsFile is the YAML shape of a unit list handed to plan create.
type planUnitsFile struct {
	Name  string      `yaml:"name"`
	Units []plan.Unit `yaml:"units"`
}

var planCreateOutput string

var planCreateCmd = &cobra.Command{
	Use:   "create <units.yaml>",
	Short: "Create a plan from a unit list, recording the current fingerprint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return internal.WrapError(internal.ExitError, "failed to read unit list", err)
		}
		var spec planUnitsFile
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return internal.WrapError(internal.ExitError, "failed to parse unit list", err)
		}
		if spec.Name == "" || len(spec.Units) == 0 {
			return internal.NewCLIError(internal.ExitError, "unit list needs a name and at least one unit")
		}

		l, err := openLedger()
		if err != nil {
			return err
		}

		p := plan.New(spec.Name, spec.Units, l)
		if err := p.Save(planCreateOutput); err != nil {
			return err
		}
		cmd.Printf("Plan %s created with fingerprint %s\n", p.ID, p.DecisionFingerprint)
		return nil
	},
}

var planVerifyCmd = &cobra.Command{
	Use:   "verify <plan.json>",
	Short: "Verify a plan against the current decision fingerprint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := plan.Load(args[0])
		if err != nil {
			return err
		}

		l, err := openLedger()
		if err != nil {
			return err
		}

		if err := p.VerifyFingerprint(l); err != nil {
			return err
		}
		return formatter(cmd).PrintSuccess("plan " + p.Name + " matches the active decision set")
	},
}

func init() {
	planCreateCmd.Flags().StringVarP(&planCreateOutput, "out", "f", "plan.json", "Where to write the plan")

	planCmd.AddCommand(planCreateCmd)
	planCmd.AddCommand(planVerifyCmd)
}
