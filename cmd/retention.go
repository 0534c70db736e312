package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var retentionDryRun bool

// retentionCmd groups retention policy operations
var retentionCmd = &cobra.Command{
	Use:   "retention",
	Short: "Apply the retention policy to the backup directory",
}

// retentionApplyCmd runs a retention sweep on demand
var retentionApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Delete backups older than the retention window",
	Long: `Delete every backup artifact older than the configured retention
window, along with its metadata sidecar. A sweep also runs automatically
after each successful backup; this command triggers one on demand.

Examples:
  # Show what would be deleted
  mysql-backup-engine retention apply --dry-run

  # Delete expired backups now
  mysql-backup-engine retention apply`,
	RunE: runRetentionApply,
}

func init() {
	retentionApplyCmd.Flags().BoolVar(&retentionDryRun, "dry-run", false, "list deletion candidates without deleting")
	retentionCmd.AddCommand(retentionApplyCmd)
	rootCmd.AddCommand(retentionCmd)
}

func runRetentionApply(cmd *cobra.Command, args []string) error {
	_, orchestrator, console, err := setup()
	if err != nil {
		return err
	}

	sweeper := orchestrator.Sweeper()

	if retentionDryRun {
		candidates, err := sweeper.Candidates()
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			console.Info("No backups are past the retention window")
			return nil
		}
		console.Info("Would delete %d backup(s):", len(candidates))
		for _, name := range candidates {
			console.Plain("  %s", name)
		}
		return nil
	}

	result := sweeper.Sweep()
	console.Success("Retention sweep done: %d deleted, %d skipped", len(result.Deleted), result.Skipped)
	for _, name := range result.Deleted {
		console.Plain("  deleted %s", name)
	}
	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			console.Warning("%s", e)
		}
		return fmt.Errorf("retention sweep finished with %d error(s)", len(result.Errors))
	}
	return nil
}
