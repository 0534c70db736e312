package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   LogLevel
	}{
		{
			name: "default config",
			config: Config{
				Level:  LogLevelNormal,
				Format: "text",
			},
			want: LogLevelNormal,
		},
		{
			name: "verbose config",
			config: Config{
				Level:  LogLevelVerbose,
				Format: "json",
			},
			want: LogLevelVerbose,
		},
		{
			name: "quiet config",
			config: Config{
				Level:  LogLevelQuiet,
				Format: "text",
			},
			want: LogLevelQuiet,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.config.Output = &buf

			logger, err := NewLogger(tt.config)
			if err != nil {
				t.Errorf("NewLogger() error = %v", err)
				return
			}

			if logger.GetLevel() != tt.want {
				t.Errorf("NewLogger() level = %v, want %v", logger.GetLevel(), tt.want)
			}
		})
	}
}

func TestQuietLevelSuppressesInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: LogLevelQuiet, Output: &buf, Format: "text"})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.Info("backup started")
	if buf.Len() != 0 {
		t.Errorf("quiet logger emitted info output: %q", buf.String())
	}

	logger.Error("backup failed")
	if !strings.Contains(buf.String(), "backup failed") {
		t.Errorf("quiet logger dropped error output: %q", buf.String())
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: LogLevelNormal, Output: &buf, Format: "text"})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.Debug("hidden")
	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("normal level emitted debug output: %q", buf.String())
	}

	logger.SetLevel(LogLevelVerbose)
	if logger.GetLevel() != LogLevelVerbose {
		t.Errorf("SetLevel() level = %v, want %v", logger.GetLevel(), LogLevelVerbose)
	}

	logger.Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("verbose level dropped debug output: %q", buf.String())
	}
}

func TestJSONFormatCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: LogLevelNormal, Output: &buf, Format: "json"})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.LogBackupOutcome("manual_backup_20260115_103000.sql.gz", 4096, 2*time.Second, nil)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}

	if entry["operation"] != "backup_create" {
		t.Errorf("operation field = %v, want backup_create", entry["operation"])
	}
	if entry["filename"] != "manual_backup_20260115_103000.sql.gz" {
		t.Errorf("filename field = %v", entry["filename"])
	}
	if entry["size"] != float64(4096) {
		t.Errorf("size field = %v, want 4096", entry["size"])
	}
}

func TestLogBackupOutcomeError(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: LogLevelNormal, Output: &buf, Format: "text"})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.LogBackupOutcome("manual_backup_20260115_103000.sql", 0, time.Second, errors.New("dump failed"))

	output := buf.String()
	if !strings.Contains(output, "Backup creation failed") {
		t.Errorf("missing failure message: %q", output)
	}
	if !strings.Contains(output, "dump failed") {
		t.Errorf("missing error detail: %q", output)
	}
}

func TestLogRestoreOutcome(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: LogLevelNormal, Output: &buf, Format: "text"})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.LogRestoreOutcome("manual_backup_20260115_103000.sql", 3*time.Second, nil)

	if !strings.Contains(buf.String(), "Database restored successfully") {
		t.Errorf("missing restore message: %q", buf.String())
	}
}

func TestLogRetentionSweep(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: LogLevelNormal, Output: &buf, Format: "json"})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.LogRetentionSweep(2, 5, 100*time.Millisecond)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["deleted"] != float64(2) || entry["skipped"] != float64(5) {
		t.Errorf("sweep fields = %v", entry)
	}
}

func TestLogFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.log")

	var buf bytes.Buffer
	logger, err := NewLogger(Config{Level: LogLevelNormal, Output: &buf, Format: "text", LogFile: path})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}

	logger.Info("written to both sinks")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "written to both sinks") {
		t.Errorf("log file missing entry: %q", string(data))
	}
	if !strings.Contains(buf.String(), "written to both sinks") {
		t.Errorf("primary output missing entry: %q", buf.String())
	}
}

func TestNewDefaultLogger(t *testing.T) {
	logger := NewDefaultLogger()
	if logger == nil {
		t.Fatal("NewDefaultLogger() returned nil")
	}
	if logger.GetLevel() != LogLevelNormal {
		t.Errorf("default level = %v, want %v", logger.GetLevel(), LogLevelNormal)
	}
}
