package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load reads configuration from the given file (optional) and the
// environment, layered over engine defaults. Environment variables use the
// BACKUP_ENGINE prefix with underscores for nesting, e.g.
// BACKUP_ENGINE_DATABASE_HOST or BACKUP_ENGINE_BACKUP_MAX_RETRIES.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("BACKUP_ENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("backup-engine")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			// A missing default config file is fine, env and defaults apply.
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Backup.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "root")
	v.SetDefault("database.name", "app")

	v.SetDefault("backup.enabled", true)
	v.SetDefault("backup.dir", "./backups")
	v.SetDefault("backup.max_retries", 3)
	v.SetDefault("backup.retry_wait", time.Second)
	v.SetDefault("backup.retention_days", 30)
	v.SetDefault("backup.compression.enabled", true)
	v.SetDefault("backup.compression.level", 6)
	v.SetDefault("backup.encryption.enabled", false)
	v.SetDefault("backup.encryption.key_source", "passphrase")
	v.SetDefault("backup.validate_after_backup", true)
	v.SetDefault("backup.validate_before_restore", true)
	v.SetDefault("backup.notify_on_success", false)
	v.SetDefault("backup.notify_on_failure", true)

	v.SetDefault("logging.level", "normal")
	v.SetDefault("logging.format", "text")
}
