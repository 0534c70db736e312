package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mysql-backup-engine/internal/logging"
)

// Sweeper enforces the retention policy on the backup directory. It runs
// independently of any single backup or restore call; CreateBackup schedules
// it without waiting, so its failures are only observable through logs.
type Sweeper struct {
	dir       string
	retention time.Duration
	logger    *logging.Logger
}

// SweepResult summarizes a single retention sweep.
type SweepResult struct {
	Deleted []string `json:"deleted"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

// NewSweeper creates a sweeper deleting backup artifacts older than the
// retention window.
func NewSweeper(dir string, retention time.Duration, logger *logging.Logger) *Sweeper {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Sweeper{dir: dir, retention: retention, logger: logger}
}

// Candidates returns the artifact names a sweep would delete right now,
// without deleting anything.
func (s *Sweeper) Candidates() ([]string, error) {
	var candidates []string
	_, err := s.walk(func(name string, age time.Duration) error {
		candidates = append(candidates, name)
		return nil
	})
	return candidates, err
}

// Sweep deletes every regular file in the backup directory that matches the
// backup naming grammar and is older than the retention window, along with
// its descriptor sidecar. Non-matching or undeletable entries are skipped
// with a logged warning, never fatally.
func (s *Sweeper) Sweep() *SweepResult {
	start := time.Now()
	result := &SweepResult{}

	skipped, err := s.walk(func(name string, age time.Duration) error {
		path := filepath.Join(s.dir, name)
		if err := os.Remove(path); err != nil {
			s.logger.Warnf("Failed to delete old backup %s: %v", name, err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", name, err))
			return nil
		}

		// The sidecar has no independent lifecycle; it goes with the artifact.
		if err := os.Remove(path + MetadataSuffix); err != nil && !os.IsNotExist(err) {
			s.logger.Warnf("Failed to delete sidecar for %s: %v", name, err)
		}

		s.logger.Debugf("Deleted old backup: %s (age: %v)", name, age)
		result.Deleted = append(result.Deleted, name)
		return nil
	})
	result.Skipped = skipped
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
	}

	s.logger.LogRetentionSweep(len(result.Deleted), result.Skipped, time.Since(start))

	return result
}

// walk visits every expired backup artifact in the directory and returns the
// number of entries skipped as non-candidates.
func (s *Sweeper) walk(visit func(name string, age time.Duration) error) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		s.logger.Errorf("Failed to read backup directory: %v", err)
		return 0, NewStorageError("failed to read backup directory", err)
	}

	skipped := 0
	now := time.Now()
	for _, entry := range entries {
		if entry.IsDir() || !IsValidBackupFilename(entry.Name()) {
			skipped++
			continue
		}

		info, err := entry.Info()
		if err != nil {
			s.logger.Warnf("Failed to stat %s: %v", entry.Name(), err)
			skipped++
			continue
		}

		age := now.Sub(info.ModTime())
		if age <= s.retention {
			skipped++
			continue
		}

		if err := visit(entry.Name(), age); err != nil {
			return skipped, err
		}
	}

	return skipped, nil
}
