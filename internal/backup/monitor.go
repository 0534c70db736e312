package backup

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"mysql-backup-engine/internal/config"
	"mysql-backup-engine/internal/logging"
)

// recentBackupWindow is how far back a backup must exist for the system to be
// considered actively protected. One day plus slack for a slow nightly run.
const recentBackupWindow = 25 * time.Hour

// disk usage thresholds, in percent
const (
	diskWarningPct  = 85.0
	diskCriticalPct = 95.0
)

// Health state values reported by CheckHealth.
const (
	HealthHealthy  = "healthy"
	HealthWarning  = "warning"
	HealthCritical = "critical"
)

// Monitor reports point-in-time statistics and health for the backup
// directory. It holds no state beyond the last collected metrics; every
// refresh rescans the directory.
type Monitor struct {
	cfg    config.BackupConfig
	logger *logging.Logger

	mu      sync.RWMutex
	metrics *DirectoryMetrics
}

// DirectoryMetrics summarizes the backup directory at collection time.
type DirectoryMetrics struct {
	BackupCount    int              `json:"backup_count"`
	TotalSize      int64            `json:"total_size"`
	LastBackupTime time.Time        `json:"last_backup_time"`
	ByCategory     map[Category]int `json:"by_category"`
	DiskTotal      uint64           `json:"disk_total"`
	DiskFree       uint64           `json:"disk_free"`
	DiskUsedPct    float64          `json:"disk_used_pct"`
	CollectedAt    time.Time        `json:"collected_at"`
}

// HealthStatus is the per-concern health verdict for the backup system.
type HealthStatus struct {
	Overall      string    `json:"overall"`
	BackupDir    string    `json:"backup_dir"`
	DiskSpace    string    `json:"disk_space"`
	RecentBackup string    `json:"recent_backup"`
	Issues       []string  `json:"issues,omitempty"`
	CheckedAt    time.Time `json:"checked_at"`
}

// NewMonitor creates a monitor for the configured backup directory.
func NewMonitor(cfg config.BackupConfig, logger *logging.Logger) *Monitor {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Monitor{cfg: cfg, logger: logger}
}

// Refresh rescans the backup directory and returns the collected metrics.
func (m *Monitor) Refresh() (*DirectoryMetrics, error) {
	metrics := &DirectoryMetrics{
		ByCategory:  make(map[Category]int),
		CollectedAt: time.Now(),
	}

	entries, err := os.ReadDir(m.cfg.Dir)
	if err != nil && !os.IsNotExist(err) {
		return nil, NewStorageError("failed to read backup directory", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !IsValidBackupFilename(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			m.logger.Warnf("Failed to stat %s: %v", entry.Name(), err)
			continue
		}

		metrics.BackupCount++
		metrics.TotalSize += info.Size()
		if info.ModTime().After(metrics.LastBackupTime) {
			metrics.LastBackupTime = info.ModTime()
		}
		metrics.ByCategory[categoryOf(entry.Name())]++
	}

	if total, free, err := diskUsage(m.cfg.Dir); err != nil {
		m.logger.Warnf("Failed to read disk usage for %s: %v", m.cfg.Dir, err)
	} else {
		metrics.DiskTotal = total
		metrics.DiskFree = free
		if total > 0 {
			metrics.DiskUsedPct = float64(total-free) / float64(total) * 100
		}
	}

	m.mu.Lock()
	m.metrics = metrics
	m.mu.Unlock()

	return metrics, nil
}

// Metrics returns the last collected metrics, refreshing first if no
// collection has happened yet.
func (m *Monitor) Metrics() (*DirectoryMetrics, error) {
	m.mu.RLock()
	cached := m.metrics
	m.mu.RUnlock()

	if cached != nil {
		copied := *cached
		return &copied, nil
	}
	return m.Refresh()
}

// CheckHealth evaluates directory accessibility, disk headroom, and backup
// recency. Each concern degrades independently; the overall verdict is the
// worst of the three.
func (m *Monitor) CheckHealth() *HealthStatus {
	status := &HealthStatus{
		Overall:      HealthHealthy,
		BackupDir:    HealthHealthy,
		DiskSpace:    HealthHealthy,
		RecentBackup: HealthHealthy,
		CheckedAt:    time.Now(),
	}

	if _, err := os.Stat(m.cfg.Dir); err != nil {
		status.BackupDir = HealthCritical
		status.Overall = HealthCritical
		status.Issues = append(status.Issues, "Backup directory not accessible")
	}

	metrics, err := m.Refresh()
	if err != nil {
		if status.Overall == HealthHealthy {
			status.Overall = HealthWarning
		}
		status.Issues = append(status.Issues, fmt.Sprintf("Metrics collection failed: %v", err))
		return status
	}

	switch {
	case metrics.DiskUsedPct > diskCriticalPct:
		status.DiskSpace = HealthCritical
		status.Overall = HealthCritical
		status.Issues = append(status.Issues, fmt.Sprintf("Disk usage critical: %.1f%%", metrics.DiskUsedPct))
	case metrics.DiskUsedPct > diskWarningPct:
		status.DiskSpace = HealthWarning
		if status.Overall == HealthHealthy {
			status.Overall = HealthWarning
		}
		status.Issues = append(status.Issues, fmt.Sprintf("Disk usage high: %.1f%%", metrics.DiskUsedPct))
	}

	if metrics.LastBackupTime.IsZero() || time.Since(metrics.LastBackupTime) > recentBackupWindow {
		status.RecentBackup = HealthWarning
		if status.Overall == HealthHealthy {
			status.Overall = HealthWarning
		}
		status.Issues = append(status.Issues, fmt.Sprintf("No backup in the last %v", recentBackupWindow))
	}

	return status
}

// categoryOf derives the category tag from an artifact name. Names outside
// the <category>_backup_<timestamp> shape report an empty category.
func categoryOf(name string) Category {
	head, _, found := strings.Cut(name, "_backup_")
	if !found {
		return Category("")
	}
	return Category(head)
}

// diskUsage returns total and free bytes for the filesystem holding path.
func diskUsage(path string) (total, free uint64, err error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	bsize := uint64(stat.Bsize)
	return stat.Blocks * bsize, stat.Bavail * bsize, nil
}
