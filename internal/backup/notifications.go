package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"mysql-backup-engine/internal/config"
	"mysql-backup-engine/internal/logging"
)

// EventType classifies notification events.
type EventType string

const (
	EventBackupSuccess  EventType = "backup_success"
	EventBackupFailure  EventType = "backup_failure"
	EventRestoreSuccess EventType = "restore_success"
	EventRestoreFailure EventType = "restore_failure"
)

// Event is the payload delivered to notification channels.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Filename  string    `json:"filename,omitempty"`
	Message   string    `json:"message"`
	Database  string    `json:"database,omitempty"`
	Size      int64     `json:"size,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NotificationChannel delivers events to one destination.
type NotificationChannel interface {
	Send(event Event) error
	Type() string
}

// NotificationManager fans events out to the configured channels. Delivery is
// best effort; failures are logged and never surface to the operation being
// reported.
type NotificationManager struct {
	logger   *logging.Logger
	channels []NotificationChannel
}

// NewNotificationManager creates a manager with channels built from config.
func NewNotificationManager(cfg config.NotificationsConfig, logger *logging.Logger) *NotificationManager {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	nm := &NotificationManager{logger: logger}

	if cfg.WebhookURL != "" {
		nm.channels = append(nm.channels, &WebhookChannel{URL: cfg.WebhookURL})
	}
	if cfg.SlackWebhookURL != "" {
		nm.channels = append(nm.channels, &SlackChannel{WebhookURL: cfg.SlackWebhookURL})
	}
	if cfg.FilePath != "" {
		nm.channels = append(nm.channels, &FileChannel{Path: cfg.FilePath})
	}

	return nm
}

// NotifyBackupSuccess reports a completed backup.
func (nm *NotificationManager) NotifyBackupSuccess(d *Descriptor) {
	nm.send(Event{
		Type:     EventBackupSuccess,
		Filename: d.Filename,
		Message:  fmt.Sprintf("Backup %s created (%d bytes, category %s)", d.Filename, d.Size, d.Category),
		Database: d.DatabaseName,
		Size:     d.Size,
	})
}

// NotifyBackupFailure reports a failed backup attempt.
func (nm *NotificationManager) NotifyBackupFailure(filename string, err error) {
	nm.send(Event{
		Type:     EventBackupFailure,
		Filename: filename,
		Message:  fmt.Sprintf("Backup failed: %v", err),
	})
}

// NotifyRestoreSuccess reports a completed restore.
func (nm *NotificationManager) NotifyRestoreSuccess(filename string, duration time.Duration) {
	nm.send(Event{
		Type:     EventRestoreSuccess,
		Filename: filename,
		Message:  fmt.Sprintf("Database restored from %s in %v", filename, duration),
	})
}

// NotifyRestoreFailure reports a failed restore.
func (nm *NotificationManager) NotifyRestoreFailure(filename string, err error) {
	nm.send(Event{
		Type:     EventRestoreFailure,
		Filename: filename,
		Message:  fmt.Sprintf("Restore from %s failed: %v", filename, err),
	})
}

func (nm *NotificationManager) send(event Event) {
	event.ID = uuid.New().String()
	event.Timestamp = time.Now()

	for _, channel := range nm.channels {
		if err := channel.Send(event); err != nil {
			nm.logger.Warnf("Failed to deliver %s notification via %s: %v", event.Type, channel.Type(), err)
		}
	}
}

// WebhookChannel posts the event as JSON to a generic webhook.
type WebhookChannel struct {
	URL    string
	Client *http.Client
}

func (wc *WebhookChannel) Send(event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	client := wc.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	resp, err := client.Post(wc.URL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}

func (wc *WebhookChannel) Type() string { return "webhook" }

// SlackChannel posts the event text to a Slack incoming webhook.
type SlackChannel struct {
	WebhookURL string
	Client     *http.Client
}

func (sc *SlackChannel) Send(event Event) error {
	payload, err := json.Marshal(map[string]string{"text": event.Message})
	if err != nil {
		return fmt.Errorf("failed to marshal slack payload: %w", err)
	}

	client := sc.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	resp, err := client.Post(sc.WebhookURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("slack request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}

	return nil
}

func (sc *SlackChannel) Type() string { return "slack" }

// FileChannel appends events as JSON lines to a local file.
type FileChannel struct {
	Path string
}

func (fc *FileChannel) Send(event Event) error {
	file, err := os.OpenFile(fc.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open notification file: %w", err)
	}
	defer file.Close()

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	return nil
}

func (fc *FileChannel) Type() string { return "file" }
