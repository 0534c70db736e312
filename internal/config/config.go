package config

import (
	"fmt"
	"time"
)

// Config is the top-level configuration for the backup engine.
type Config struct {
	Database      DatabaseConfig      `mapstructure:"database" yaml:"database"`
	Backup        BackupConfig        `mapstructure:"backup" yaml:"backup"`
	Logging       LoggingConfig       `mapstructure:"logging" yaml:"logging"`
	Notifications NotificationsConfig `mapstructure:"notifications" yaml:"notifications"`
}

// DatabaseConfig holds the connection parameters handed to the native client
// tools and the health-check connection.
type DatabaseConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	Name     string `mapstructure:"name" yaml:"name"`
}

// DSN builds a go-sql-driver/mysql connection string for the configured
// database.
func (dc *DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", dc.User, dc.Password, dc.Host, dc.Port, dc.Name)
}

// Validate validates the database configuration.
func (dc *DatabaseConfig) Validate() error {
	if dc.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if dc.Port <= 0 || dc.Port > 65535 {
		return fmt.Errorf("database port must be between 1 and 65535, got %d", dc.Port)
	}
	if dc.User == "" {
		return fmt.Errorf("database user is required")
	}
	if dc.Name == "" {
		return fmt.Errorf("database name is required")
	}
	return nil
}

// BackupConfig holds backup engine configuration.
type BackupConfig struct {
	Enabled    bool          `mapstructure:"enabled" yaml:"enabled"`
	Dir        string        `mapstructure:"dir" yaml:"dir"`
	MaxRetries int           `mapstructure:"max_retries" yaml:"max_retries"`
	RetryWait  time.Duration `mapstructure:"retry_wait" yaml:"retry_wait"`

	RetentionDays int `mapstructure:"retention_days" yaml:"retention_days"`

	Compression CompressionConfig `mapstructure:"compression" yaml:"compression"`
	Encryption  EncryptionConfig  `mapstructure:"encryption" yaml:"encryption"`

	ValidateAfterBackup   bool `mapstructure:"validate_after_backup" yaml:"validate_after_backup"`
	ValidateBeforeRestore bool `mapstructure:"validate_before_restore" yaml:"validate_before_restore"`

	NotifyOnSuccess bool `mapstructure:"notify_on_success" yaml:"notify_on_success"`
	NotifyOnFailure bool `mapstructure:"notify_on_failure" yaml:"notify_on_failure"`
}

// CompressionConfig defines gzip compression settings for backup artifacts.
type CompressionConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Level   int  `mapstructure:"level" yaml:"level"`
}

// EncryptionConfig defines artifact encryption settings. Exactly one key
// source is consulted: "passphrase" derives a key with PBKDF2, "file" reads a
// raw 32-byte key file, "env" reads a hex-encoded key from the environment.
type EncryptionConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	KeySource  string `mapstructure:"key_source" yaml:"key_source"`
	Passphrase string `mapstructure:"passphrase" yaml:"passphrase"`
	KeyPath    string `mapstructure:"key_path" yaml:"key_path"`
	KeyEnvVar  string `mapstructure:"key_env_var" yaml:"key_env_var"`
}

// LoggingConfig defines logger settings.
type LoggingConfig struct {
	Level   string `mapstructure:"level" yaml:"level"`
	Format  string `mapstructure:"format" yaml:"format"`
	LogFile string `mapstructure:"log_file" yaml:"log_file"`
}

// NotificationsConfig defines delivery channels for backup/restore events.
type NotificationsConfig struct {
	WebhookURL      string `mapstructure:"webhook_url" yaml:"webhook_url"`
	SlackWebhookURL string `mapstructure:"slack_webhook_url" yaml:"slack_webhook_url"`
	FilePath        string `mapstructure:"file_path" yaml:"file_path"`
}

// SetDefaults fills unset fields with engine defaults.
func (bc *BackupConfig) SetDefaults() {
	if bc.Dir == "" {
		bc.Dir = "./backups"
	}
	if bc.MaxRetries == 0 {
		bc.MaxRetries = 3
	}
	if bc.RetryWait == 0 {
		bc.RetryWait = time.Second
	}
	if bc.RetentionDays == 0 {
		bc.RetentionDays = 30
	}
	if bc.Compression.Level == 0 {
		bc.Compression.Level = 6
	}
	if bc.Encryption.KeySource == "" {
		bc.Encryption.KeySource = "passphrase"
	}
}

// Validate validates the backup configuration.
func (bc *BackupConfig) Validate() error {
	if !bc.Enabled {
		return nil // Skip validation if backups are disabled
	}
	if bc.Dir == "" {
		return fmt.Errorf("backup directory cannot be empty")
	}
	if bc.MaxRetries < 1 {
		return fmt.Errorf("max retries must be at least 1")
	}
	if bc.RetryWait < 0 {
		return fmt.Errorf("retry wait cannot be negative")
	}
	if bc.RetentionDays < 1 {
		return fmt.Errorf("retention days must be at least 1")
	}
	if bc.Compression.Enabled && (bc.Compression.Level < 1 || bc.Compression.Level > 9) {
		return fmt.Errorf("compression level must be between 1 and 9, got %d", bc.Compression.Level)
	}
	if bc.Encryption.Enabled {
		switch bc.Encryption.KeySource {
		case "passphrase":
			if bc.Encryption.Passphrase == "" {
				return fmt.Errorf("encryption passphrase required when key source is passphrase")
			}
		case "file":
			if bc.Encryption.KeyPath == "" {
				return fmt.Errorf("encryption key path required when key source is file")
			}
		case "env":
			if bc.Encryption.KeyEnvVar == "" {
				return fmt.Errorf("encryption key environment variable required when key source is env")
			}
		default:
			return fmt.Errorf("invalid encryption key source: %s", bc.Encryption.KeySource)
		}
	}
	return nil
}

// RetentionDuration returns the retention window as a duration.
func (bc *BackupConfig) RetentionDuration() time.Duration {
	return time.Duration(bc.RetentionDays) * 24 * time.Hour
}

// Validate validates the whole configuration.
func (c *Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Backup.Validate(); err != nil {
		return fmt.Errorf("backup: %w", err)
	}
	return nil
}

// Default returns a configuration populated with engine defaults.
func Default() *Config {
	cfg := &Config{
		Database: DatabaseConfig{
			Host: "localhost",
			Port: 3306,
			User: "root",
			Name: "app",
		},
		Backup: BackupConfig{
			Enabled:               true,
			ValidateAfterBackup:   true,
			ValidateBeforeRestore: true,
			Compression:           CompressionConfig{Enabled: true},
			NotifyOnFailure:       true,
		},
		Logging: LoggingConfig{
			Level:  "normal",
			Format: "text",
		},
	}
	cfg.Backup.SetDefaults()
	return cfg
}
