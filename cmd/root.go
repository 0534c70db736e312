package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mysql-backup-engine/internal/backup"
	"mysql-backup-engine/internal/config"
	"mysql-backup-engine/internal/display"
	"mysql-backup-engine/internal/logging"
)

var cfgFile string

// Global operation flags
var (
	verbose bool
	quiet   bool
	logFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mysql-backup-engine",
	Short: "A CLI tool to create, restore, and manage MySQL database backups",
	Long: `MySQL Backup Engine orchestrates database backups around the native
client tools: it dumps the database with mysqldump, compresses and
optionally encrypts the artifact, records a metadata sidecar with a
SHA-256 checksum, and enforces a retention policy on the backup
directory. Restores verify the artifact first, take a safety backup,
and fall back to it if the restore fails.

Examples:
  # Create a backup with a description
  mysql-backup-engine backup create --description "Pre-migration backup"

  # List backups and restore one
  mysql-backup-engine backup list
  mysql-backup-engine restore manual_backup_20260115_103000.sql.gz

  # Check what a retention sweep would delete
  mysql-backup-engine retention apply --dry-run

  # Generate a starter configuration file
  mysql-backup-engine config init`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./backup-engine.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file")

	rootCmd.AddCommand(createVersionCommand())
}

// loadConfig reads the configuration file and environment and applies the
// global CLI flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	if verbose {
		cfg.Logging.Level = string(logging.LogLevelVerbose)
	}
	if quiet {
		cfg.Logging.Level = string(logging.LogLevelQuiet)
	}
	if logFile != "" {
		cfg.Logging.LogFile = logFile
	}

	return cfg, nil
}

// newLogger builds a logger from the effective configuration.
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	return logging.NewLogger(logging.Config{
		Level:   logging.LogLevel(cfg.Logging.Level),
		Format:  cfg.Logging.Format,
		LogFile: cfg.Logging.LogFile,
	})
}

// setup wires the shared collaborators every operational subcommand needs.
func setup() (*config.Config, *backup.Orchestrator, *display.Console, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	if err := resolvePassphrase(cfg); err != nil {
		return nil, nil, nil, err
	}

	orchestrator, err := backup.NewOrchestrator(cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	return cfg, orchestrator, display.NewConsole(), nil
}

// Version information (set by main package)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// SetVersionInfo sets the version information from build flags
func SetVersionInfo(v, bt, gc string) {
	version = v
	buildTime = bt
	gitCommit = gc
}

func createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("mysql-backup-engine version %s\n", version)
			fmt.Printf("Built: %s\n", buildTime)
			fmt.Printf("Commit: %s\n", gitCommit)
		},
	}
}
