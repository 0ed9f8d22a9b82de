package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var artifactCmd = &cobra.Command{
	Use:   "artifact",
	Short: "Inspect and clean the artifact registry",
}

var (
	artifactListPackage string
	artifactListType    string
)

var artifactListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered artifacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openRegistry()
		if err != nil {
			return err
		}

		artifacts := reg.List()
		rows := make([][]string, 0, len(artifacts))
		for _, a := range artifacts {
			if artifactListPackage != "" && a.PackageName != artifactListPackage {
				continue
			}
			if artifactListType != "" && string(a.Type) != artifactListType {
				continue
			}
			rows = append(rows, []string{
				a.ID, a.Name, string(a.Type),
				strconv.FormatInt(a.Size, 10),
				a.Timestamp.Format("2006-01-02 15:04"),
			})
		}
		return formatter(cmd).PrintTable(
			[]string{"id", "name", "type", "size", "registered"}, rows)
	},
}

var artifactStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate registry statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openRegistry()
		if err != nil {
			return err
		}
		return formatter(cmd).PrintJSON(reg.UsageStats())
	},
}

var (
	artifactCleanupMissing bool
	artifactCleanupStale   string
)

var artifactCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove stale, missing, or aged-out registry entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openRegistry()
		if err != nil {
			return err
		}

		total := 0
		if artifactCleanupMissing {
			n, err := reg.RemoveMissing()
			if err != nil {
				return err
			}
			total += n
		}
		if artifactCleanupStale != "" {
			n, err := reg.RemoveStale(artifactCleanupStale)
			if err != nil {
				return err
			}
			total += n
		}
		if !artifactCleanupMissing && artifactCleanupStale == "" {
			n, err := reg.CleanupOlderThan(cfg.Artifacts.CleanupAge)
			if err != nil {
				return err
			}
			total += n
		}
		return formatter(cmd).PrintSuccess(fmt.Sprintf("removed %d registry entries", total))
	},
}

func init() {
	artifactListCmd.Flags().StringVar(&artifactListPackage, "package", "", "Filter by package name")
	artifactListCmd.Flags().StringVar(&artifactListType, "type", "", "Filter by artifact type")

	artifactCleanupCmd.Flags().BoolVar(&artifactCleanupMissing, "missing", false, "Remove entries whose file no longer exists")
	artifactCleanupCmd.Flags().StringVar(&artifactCleanupStale, "keep-config", "", "Remove entries not built under this config hash")

	artifactCmd.AddCommand(artifactListCmd)
	artifactCmd.AddCommand(artifactStatsCmd)
	artifactCmd.AddCommand(artifactCleanupCmd)
}
