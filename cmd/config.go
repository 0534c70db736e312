package cmd

import (
	"github.com/spf13/cobra"

	"mysql-backup-engine/internal/config"
	"mysql-backup-engine/internal/display"
)

var configInitPath string

// configCmd groups configuration helpers
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration helpers",
}

// configInitCmd writes a starter configuration file
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a sample configuration file with engine defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.WriteSampleConfig(configInitPath); err != nil {
			return err
		}
		display.NewConsole().Success("Sample configuration written to %s", configInitPath)
		return nil
	},
}

func init() {
	configInitCmd.Flags().StringVarP(&configInitPath, "output", "o", "backup-engine.yaml", "path of the configuration file to write")
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
