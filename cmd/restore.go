package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"mysql-backup-engine/internal/confirmation"
)

var restoreAutoApprove bool

// restoreCmd restores the database from a backup artifact
var restoreCmd = &cobra.Command{
	Use:   "restore <filename>",
	Short: "Restore the database from a backup artifact",
	Long: `Restore the database from a backup in the backup directory.

The artifact is validated and its checksum verified before anything is
applied. A safety backup of the current database state is taken first;
if the restore fails after all retries, the engine restores from the
safety backup so the database is left no worse than before.

Examples:
  # Restore with interactive confirmation
  mysql-backup-engine restore manual_backup_20260115_103000.sql.gz

  # Restore without prompting (automation)
  mysql-backup-engine restore manual_backup_20260115_103000.sql.gz --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

func init() {
	restoreCmd.Flags().BoolVarP(&restoreAutoApprove, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, args []string) error {
	cfg, orchestrator, console, err := setup()
	if err != nil {
		return err
	}

	filename := args[0]

	console.Warning("This will overwrite the current contents of database %q.", cfg.Database.Name)
	approved, err := confirmation.NewPrompter().Confirm("Restore from "+filename+"?", restoreAutoApprove)
	if err != nil {
		return err
	}
	if !approved {
		console.Info("Restore cancelled")
		return nil
	}

	outcome, err := orchestrator.RestoreBackup(cmd.Context(), filename)
	for _, warning := range outcome.Warnings {
		console.Warning("%s", warning)
	}
	if err != nil {
		console.Failure("Restore failed: %s", outcome.Error)
		return err
	}

	console.Success("Database restored from %s in %v", filename, outcome.Duration.Round(time.Millisecond))
	return nil
}
