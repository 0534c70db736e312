package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"mysql-backup-engine/internal/backup"
	"mysql-backup-engine/internal/display"
)

var (
	// Backup creation flags
	backupDescription string
	backupCategory    string

	// Backup listing flags
	listFormat string

	// Status flags
	statusFormat   string
	statusDetailed bool
)

// backupCmd represents the backup command
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create, list, validate, and delete database backups",
	Long: `Manage database backup artifacts.

Backups are created with mysqldump, transformed according to the
configured compression and encryption settings, and stored in the backup
directory together with a metadata sidecar carrying size, checksum, and
provenance.

Examples:
  # Create a backup with a description
  mysql-backup-engine backup create --description "Pre-migration backup"

  # Create a migration backup
  mysql-backup-engine backup create --category migration

  # List all backups
  mysql-backup-engine backup list

  # Validate an artifact against its recorded checksum
  mysql-backup-engine backup validate manual_backup_20260115_103000.sql.gz

  # Delete a backup and its metadata
  mysql-backup-engine backup delete manual_backup_20260115_103000.sql.gz`,
}

// backupCreateCmd creates a new backup
var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new database backup",
	RunE:  runBackupCreate,
}

// backupListCmd lists existing backups
var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List existing backups",
	RunE:  runBackupList,
}

// backupValidateCmd validates a backup artifact
var backupValidateCmd = &cobra.Command{
	Use:   "validate <filename>",
	Short: "Validate a backup artifact and its checksum",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupValidate,
}

// backupDeleteCmd deletes a backup artifact
var backupDeleteCmd = &cobra.Command{
	Use:   "delete <filename>",
	Short: "Delete a backup artifact and its metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupDelete,
}

// backupStatusCmd reports backup directory metrics and health
var backupStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show backup directory statistics and health",
	RunE:  runBackupStatus,
}

func init() {
	backupCreateCmd.Flags().StringVarP(&backupDescription, "description", "d", "", "description stored in the backup metadata")
	backupCreateCmd.Flags().StringVar(&backupCategory, "category", string(backup.CategoryManual), "backup category (manual, automatic, migration, safety)")

	backupListCmd.Flags().StringVar(&listFormat, "format", "table", "output format (table, json)")

	backupStatusCmd.Flags().StringVar(&statusFormat, "format", "table", "output format (table, json)")
	backupStatusCmd.Flags().BoolVar(&statusDetailed, "detailed", false, "include the effective backup configuration")

	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupValidateCmd)
	backupCmd.AddCommand(backupDeleteCmd)
	backupCmd.AddCommand(backupStatusCmd)
	rootCmd.AddCommand(backupCmd)
}

func runBackupCreate(cmd *cobra.Command, args []string) error {
	_, orchestrator, console, err := setup()
	if err != nil {
		return err
	}

	outcome, err := orchestrator.CreateBackup(cmd.Context(), backupDescription, backup.Category(backupCategory))
	if err != nil {
		console.Failure("Backup failed: %s", outcome.Error)
		return err
	}

	console.Success("Backup created: %s (%d bytes in %v)", outcome.Descriptor.Filename, outcome.Size, outcome.Duration.Round(time.Millisecond))
	for _, warning := range outcome.Warnings {
		console.Warning("%s", warning)
	}

	return nil
}

func runBackupList(cmd *cobra.Command, args []string) error {
	_, orchestrator, console, err := setup()
	if err != nil {
		return err
	}

	descriptors, err := orchestrator.ListBackups()
	if err != nil {
		return err
	}

	if listFormat == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(descriptors)
	}

	if len(descriptors) == 0 {
		console.Info("No backups found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FILENAME\tCATEGORY\tSIZE\tCREATED\tDESCRIPTION")
	for _, d := range descriptors {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			d.Filename, d.Category, d.Size, d.CreatedAt.Format("2006-01-02 15:04:05"), d.Description)
	}
	return w.Flush()
}

func runBackupValidate(cmd *cobra.Command, args []string) error {
	_, orchestrator, console, err := setup()
	if err != nil {
		return err
	}

	findings, err := orchestrator.ValidateBackup(args[0])
	if err != nil {
		return err
	}

	if len(findings) == 0 {
		console.Success("Backup %s is valid", args[0])
		return nil
	}

	for _, finding := range findings {
		console.Warning("%s", finding)
	}
	console.Failure("Backup %s has %d finding(s)", args[0], len(findings))
	return fmt.Errorf("validation found %d problem(s)", len(findings))
}

func runBackupStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	monitor := backup.NewMonitor(cfg.Backup, logger)
	metrics, err := monitor.Refresh()
	if err != nil {
		return err
	}
	health := monitor.CheckHealth()

	if statusFormat == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(map[string]interface{}{
			"metrics": metrics,
			"health":  health,
		})
	}

	console := display.NewConsole()

	switch health.Overall {
	case backup.HealthHealthy:
		console.Success("Overall health: %s", health.Overall)
	case backup.HealthWarning:
		console.Warning("Overall health: %s", health.Overall)
	default:
		console.Failure("Overall health: %s", health.Overall)
	}
	for _, issue := range health.Issues {
		console.Warning("%s", issue)
	}

	console.Plain("")
	console.Plain("Backups:         %d", metrics.BackupCount)
	console.Plain("Total size:      %s", formatBytes(metrics.TotalSize))
	if metrics.LastBackupTime.IsZero() {
		console.Plain("Last backup:     none")
	} else {
		console.Plain("Last backup:     %s", metrics.LastBackupTime.Format("2006-01-02 15:04:05"))
	}
	console.Plain("Disk usage:      %.1f%%", metrics.DiskUsedPct)
	console.Plain("Available space: %s", formatBytes(int64(metrics.DiskFree)))
	for category, count := range metrics.ByCategory {
		console.Plain("  %-10s %d", category, count)
	}

	if statusDetailed {
		console.Plain("")
		console.Plain("Backup directory: %s", cfg.Backup.Dir)
		console.Plain("Retention days:   %d", cfg.Backup.RetentionDays)
		console.Plain("Compression:      %t", cfg.Backup.Compression.Enabled)
		console.Plain("Encryption:       %t", cfg.Backup.Encryption.Enabled)
	}

	return nil
}

// formatBytes renders a byte count in human units.
func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func runBackupDelete(cmd *cobra.Command, args []string) error {
	_, orchestrator, console, err := setup()
	if err != nil {
		return err
	}

	if err := orchestrator.DeleteBackup(args[0]); err != nil {
		return err
	}

	console.Success("Backup deleted: %s", args[0])
	return nil
}
