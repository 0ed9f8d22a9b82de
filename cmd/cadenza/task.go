package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cadenza-ai/cadenza/internal/task"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Inspect per-task summaries",
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded task summaries",
	RunE: func(cmd *cobra.Command, args []string) error {
		st := task.NewStore(cfg.SummariesDir())
		ids, err := st.List()
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(ids))
		for _, id := range ids {
			s, err := st.Load(id)
			if err != nil {
				return err
			}
			rows = append(rows, []string{
				s.TaskID,
				s.Timestamp.Format("2006-01-02 15:04"),
				fmt.Sprintf("%d", len(s.TargetFiles)),
				fmt.Sprintf("%d", len(s.Warnings)),
				fmt.Sprintf("%d", len(s.Errors)),
			})
		}
		return formatter(cmd).PrintTable(
			[]string{"task", "recorded", "targets", "warnings", "errors"}, rows)
	},
}

var taskShowCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show one task summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st := task.NewStore(cfg.SummariesDir())
		s, err := st.Load(args[0])
		if err != nil {
			return err
		}
		return formatter(cmd).PrintJSON(s)
	},
}

var taskChangedCmd = &cobra.Command{
	Use:   "changed <task-id>",
	Short: "List the files a task actually changed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st := task.NewStore(cfg.SummariesDir())
		s, err := st.Load(args[0])
		if err != nil {
			return err
		}
		changed := s.ChangedFiles()
		if len(changed) == 0 {
			cmd.Println("no file changes recorded")
			return nil
		}
		cmd.Println(strings.Join(changed, "\n"))
		return nil
	},
}

func init() {
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskChangedCmd)
}
