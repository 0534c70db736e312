package backup

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"mysql-backup-engine/internal/config"
	"mysql-backup-engine/internal/logging"
)

// Orchestrator coordinates backup creation and restoration around the
// checksum, transform, validation, metadata, and retention components. Its
// two primary operations are synchronous and request scoped; the only
// background work it starts is the fire-and-forget retention sweep.
type Orchestrator struct {
	cfg       config.BackupConfig
	dbCfg     config.DatabaseConfig
	runner    ProcessRunner
	meta      MetadataStore
	validator ArtifactValidator
	pipeline  *Pipeline
	notifier  Notifier
	sweeper   *Sweeper
	logger    *logging.Logger
}

// NewOrchestrator wires an orchestrator from configuration with production
// collaborators: the exec-based process runner, a sidecar metadata store, and
// a validator holding a lazily-connected database handle for health checks.
func NewOrchestrator(cfg *config.Config, logger *logging.Logger) (*Orchestrator, error) {
	if cfg == nil {
		return nil, NewConfigurationError("configuration is required", nil)
	}
	if err := cfg.Backup.Validate(); err != nil {
		return nil, NewConfigurationError("invalid backup configuration", err)
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	db, err := sql.Open("mysql", cfg.Database.DSN())
	if err != nil {
		return nil, NewDatabaseError("failed to open database handle", err)
	}

	return &Orchestrator{
		cfg:       cfg.Backup,
		dbCfg:     cfg.Database,
		runner:    NewExecRunner(),
		meta:      NewStore(cfg.Backup.Dir),
		validator: NewValidator(db, logger),
		pipeline:  NewPipeline(cfg.Backup.Compression, cfg.Backup.Encryption),
		notifier:  NewNotificationManager(cfg.Notifications, logger),
		sweeper:   NewSweeper(cfg.Backup.Dir, cfg.Backup.RetentionDuration(), logger),
		logger:    logger,
	}, nil
}

// NewOrchestratorWithDependencies creates an orchestrator with injected
// collaborators, primarily for tests.
func NewOrchestratorWithDependencies(
	cfg config.BackupConfig,
	dbCfg config.DatabaseConfig,
	runner ProcessRunner,
	meta MetadataStore,
	validator ArtifactValidator,
	pipeline *Pipeline,
	notifier Notifier,
	sweeper *Sweeper,
	logger *logging.Logger,
) *Orchestrator {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Orchestrator{
		cfg:       cfg,
		dbCfg:     dbCfg,
		runner:    runner,
		meta:      meta,
		validator: validator,
		pipeline:  pipeline,
		notifier:  notifier,
		sweeper:   sweeper,
		logger:    logger,
	}
}

// CreateBackup dumps the database into a uniquely named artifact, validates
// and transforms it, persists its descriptor, and schedules a retention
// sweep. Only directory creation, dump exhaustion, and transform failures are
// fatal; validation, checksum, and metadata problems degrade to warnings.
//
// The temporary dump file is removed on every exit path; the final artifact
// is the only file left behind on success.
func (o *Orchestrator) CreateBackup(ctx context.Context, description string, category Category) (*BackupOutcome, error) {
	start := time.Now()

	o.logger.Infof("Starting backup creation: category=%s, description=%s", category, description)

	if !category.IsKnown() {
		o.logger.Warnf("Unknown backup category %q, accepting verbatim", category)
	}

	outcome := &BackupOutcome{}

	filename := BackupFilename(category, start)
	finalBase := filepath.Join(o.cfg.Dir, filename)
	tempPath := finalBase + ".tmp"

	if err := os.MkdirAll(o.cfg.Dir, 0755); err != nil {
		outcome.Error = fmt.Sprintf("failed to create backup directory: %v", err)
		outcome.Duration = time.Since(start)
		return outcome, NewStorageError("failed to create backup directory", err)
	}

	// The pipeline consumes the temporary dump on success; on every other
	// path this removes it.
	defer os.Remove(tempPath)

	if err := o.runWithRetries(ctx, "mysqldump", func(ctx context.Context) error {
		_, err := o.runner.Run(ctx, DumpCommand(o.dbCfg, tempPath))
		return err
	}); err != nil {
		outcome.Error = fmt.Sprintf("backup failed after %d attempts: %v", o.cfg.MaxRetries, err)
		outcome.Duration = time.Since(start)
		if o.cfg.NotifyOnFailure {
			o.notifier.NotifyBackupFailure(filename, err)
		}
		return outcome, NewProcessError(outcome.Error, err)
	}

	fileInfo, err := os.Stat(tempPath)
	if err != nil {
		outcome.Error = fmt.Sprintf("failed to stat backup file: %v", err)
		outcome.Duration = time.Since(start)
		return outcome, NewStorageError("failed to stat backup file", err)
	}
	outcome.Size = fileInfo.Size()

	if o.cfg.ValidateAfterBackup {
		if err := o.validator.ValidateArtifact(tempPath); err != nil {
			o.logger.Warnf("Backup validation failed: %v", err)
			outcome.Warnings = append(outcome.Warnings, "Backup validation failed")
		} else {
			o.logger.Info("Backup validation successful")
		}
	}

	finalPath, transforms, err := o.pipeline.Apply(tempPath, finalBase)
	if err != nil {
		outcome.Error = fmt.Sprintf("failed to process backup: %v", err)
		outcome.Duration = time.Since(start)
		return outcome, err
	}

	finalInfo, err := os.Stat(finalPath)
	if err != nil {
		outcome.Error = fmt.Sprintf("failed to stat final backup: %v", err)
		outcome.Duration = time.Since(start)
		return outcome, NewStorageError("failed to stat final backup", err)
	}

	// The checksum covers the final artifact as it sits on disk, so restore
	// can verify the exact bytes it is about to reverse and apply.
	checksum, err := FileChecksum(finalPath)
	if err != nil {
		o.logger.Warnf("Failed to calculate backup checksum: %v", err)
		checksum = ""
	}

	descriptor := &Descriptor{
		Filename:     filepath.Base(finalPath),
		Size:         finalInfo.Size(),
		CreatedAt:    start,
		Description:  description,
		Compressed:   transforms.Compressed,
		Encrypted:    transforms.Encrypted,
		Validated:    o.cfg.ValidateAfterBackup,
		Checksum:     checksum,
		DatabaseName: o.dbCfg.Name,
		Version:      DescriptorVersion,
		Category:     category,
	}

	if err := o.meta.Save(descriptor); err != nil {
		o.logger.Warnf("Failed to save backup metadata: %v", err)
		outcome.Warnings = append(outcome.Warnings, "Failed to save metadata")
	}

	outcome.Success = true
	outcome.Descriptor = descriptor
	outcome.Size = descriptor.Size
	outcome.Duration = time.Since(start)

	o.logger.LogBackupOutcome(descriptor.Filename, descriptor.Size, outcome.Duration, nil)

	if o.cfg.NotifyOnSuccess {
		o.notifier.NotifyBackupSuccess(descriptor)
	}

	// Retention runs detached so backup latency is not polluted by
	// directory-scan cost. New artifacts carry the current timestamp, so a
	// concurrent sweep cannot touch them.
	go o.sweeper.Sweep()

	return outcome, nil
}

// RestoreBackup restores the database from the named artifact. A safety
// backup is taken before any destructive action; if the primary restore
// exhausts its retries, exactly one restore from that safety backup is
// attempted so the database is left no worse than before, while the original
// request still reports failure.
func (o *Orchestrator) RestoreBackup(ctx context.Context, filename string) (*RestoreOutcome, error) {
	start := time.Now()

	o.logger.Infof("Starting database restore from: %s", filename)

	outcome := &RestoreOutcome{}

	// Naming grammar doubles as the path traversal boundary; nothing touches
	// the filesystem before this check.
	if !IsValidBackupFilename(filename) {
		outcome.Error = "invalid backup filename"
		outcome.Duration = time.Since(start)
		return outcome, NewValidationError(outcome.Error, nil)
	}

	artifactPath := filepath.Join(o.cfg.Dir, filename)
	if _, err := os.Stat(artifactPath); os.IsNotExist(err) {
		outcome.Error = "backup file not found"
		outcome.Duration = time.Since(start)
		return outcome, NewNotFoundError(outcome.Error, err)
	}

	descriptor, err := o.meta.Load(filename)
	if err != nil {
		o.logger.Warnf("Failed to load backup metadata: %v", err)
		outcome.Warnings = append(outcome.Warnings, "Metadata not available")
		descriptor = nil
	}

	if o.cfg.ValidateBeforeRestore {
		if err := o.validator.ValidateArtifact(artifactPath); err != nil {
			outcome.Error = fmt.Sprintf("pre-restore validation failed: %v", err)
			outcome.Duration = time.Since(start)
			return outcome, NewValidationError(outcome.Error, err)
		}
		o.logger.Info("Pre-restore validation successful")
	}

	if descriptor != nil && descriptor.Checksum != "" {
		currentChecksum, err := FileChecksum(artifactPath)
		if err != nil {
			o.logger.Warnf("Failed to verify backup checksum: %v", err)
			outcome.Warnings = append(outcome.Warnings, "Checksum verification failed")
		} else if currentChecksum != descriptor.Checksum {
			outcome.Error = "backup file checksum mismatch - file may be corrupted"
			outcome.Duration = time.Since(start)
			return outcome, NewCorruptionError(outcome.Error, nil)
		} else {
			o.logger.Info("Backup checksum verified successfully")
		}
	}

	// The safety net must not block an explicitly requested restore; its
	// failure is flagged, not fatal.
	safety, err := o.CreateBackup(ctx, "Pre-restore safety backup", CategorySafety)
	if err != nil || !safety.Success {
		o.logger.Warnf("Failed to create safety backup: %v", err)
		outcome.Warnings = append(outcome.Warnings, "Safety backup failed")
		safety = nil
	} else {
		o.logger.Infof("Safety backup created: %s", safety.Descriptor.Filename)
	}

	plainPath, cleanup, err := o.pipeline.Reverse(artifactPath)
	if err != nil {
		outcome.Error = fmt.Sprintf("failed to preprocess backup: %v", err)
		outcome.Duration = time.Since(start)
		return outcome, err
	}
	defer cleanup()

	restoreErr := o.runWithRetries(ctx, "mysql", func(ctx context.Context) error {
		_, err := o.runner.Run(ctx, RestoreCommand(o.dbCfg, plainPath))
		return err
	})

	if restoreErr != nil {
		outcome.Error = fmt.Sprintf("restore failed after %d attempts: %v", o.cfg.MaxRetries, restoreErr)

		if safety != nil {
			o.logger.Info("Attempting to restore from safety backup...")
			if safetyErr := o.restoreFromSafety(ctx, safety.Descriptor.Filename); safetyErr != nil {
				o.logger.Errorf("Failed to restore from safety backup: %v", safetyErr)
				outcome.Warnings = append(outcome.Warnings, "Safety backup restore also failed")
			} else {
				o.logger.Info("Successfully restored from safety backup")
				outcome.Warnings = append(outcome.Warnings, "Restored from safety backup due to main restore failure")
			}
		}

		outcome.Duration = time.Since(start)
		if o.cfg.NotifyOnFailure {
			o.notifier.NotifyRestoreFailure(filename, restoreErr)
		}
		return outcome, NewProcessError(outcome.Error, restoreErr)
	}

	if err := o.validator.ValidateDatabaseHealth(ctx); err != nil {
		o.logger.Warnf("Post-restore database validation failed: %v", err)
		outcome.Warnings = append(outcome.Warnings, "Post-restore validation failed")
	}

	outcome.Success = true
	outcome.Duration = time.Since(start)

	o.logger.LogRestoreOutcome(filename, outcome.Duration, nil)

	o.notifier.NotifyRestoreSuccess(filename, outcome.Duration)

	return outcome, nil
}

// restoreFromSafety applies the safety artifact in a single attempt,
// reversing its transforms first.
func (o *Orchestrator) restoreFromSafety(ctx context.Context, safetyFilename string) error {
	safetyPath := filepath.Join(o.cfg.Dir, safetyFilename)

	plainPath, cleanup, err := o.pipeline.Reverse(safetyPath)
	if err != nil {
		return err
	}
	defer cleanup()

	_, err = o.runner.Run(ctx, RestoreCommand(o.dbCfg, plainPath))
	return err
}

// runWithRetries executes op up to MaxRetries times with a linearly scaling
// delay between attempts. A cancellation fired mid-attempt abandons the
// in-flight invocation and stops the loop instead of starting another retry.
func (o *Orchestrator) runWithRetries(ctx context.Context, name string, op func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= o.cfg.MaxRetries; attempt++ {
		if attempt > 1 {
			o.logger.Infof("%s attempt %d/%d", name, attempt, o.cfg.MaxRetries)
			select {
			case <-ctx.Done():
				return NewProcessError("operation cancelled", ctx.Err())
			case <-time.After(o.cfg.RetryWait * time.Duration(attempt)):
			}
		}

		attemptStart := time.Now()
		lastErr = op(ctx)
		o.logger.LogProcessInvocation(name, attempt, time.Since(attemptStart), lastErr)

		if lastErr == nil {
			return nil
		}

		if ctx.Err() != nil {
			return NewProcessError("operation cancelled", ctx.Err())
		}

		o.logger.Warnf("%s attempt %d failed: %v", name, attempt, lastErr)
	}

	return lastErr
}

// ListBackups returns the descriptors of every backup with a readable
// sidecar, newest first.
func (o *Orchestrator) ListBackups() ([]*Descriptor, error) {
	return o.meta.List()
}

// DeleteBackup removes the named artifact and its sidecar. The filename is
// validated against the naming grammar before any filesystem access.
func (o *Orchestrator) DeleteBackup(filename string) error {
	if !IsValidBackupFilename(filename) {
		return NewValidationError(fmt.Sprintf("invalid backup filename: %s", filename), nil)
	}

	artifactPath := filepath.Join(o.cfg.Dir, filename)
	if err := os.Remove(artifactPath); err != nil {
		if os.IsNotExist(err) {
			return NewNotFoundError(fmt.Sprintf("backup %s not found", filename), err)
		}
		return NewStorageError("failed to delete backup", err)
	}

	if err := o.meta.Delete(filename); err != nil {
		o.logger.Warnf("Failed to delete metadata for %s: %v", filename, err)
	}

	o.logger.Infof("Backup deleted: %s", filename)

	return nil
}

// ValidateBackup runs the structural artifact check and checksum
// verification for the named artifact without touching the database.
func (o *Orchestrator) ValidateBackup(filename string) ([]string, error) {
	if !IsValidBackupFilename(filename) {
		return nil, NewValidationError(fmt.Sprintf("invalid backup filename: %s", filename), nil)
	}

	artifactPath := filepath.Join(o.cfg.Dir, filename)
	if _, err := os.Stat(artifactPath); os.IsNotExist(err) {
		return nil, NewNotFoundError(fmt.Sprintf("backup %s not found", filename), err)
	}

	var findings []string

	if err := o.validator.ValidateArtifact(artifactPath); err != nil {
		findings = append(findings, fmt.Sprintf("artifact validation failed: %v", err))
	}

	descriptor, err := o.meta.Load(filename)
	switch {
	case err != nil:
		findings = append(findings, "metadata not available")
	case descriptor.Checksum == "":
		findings = append(findings, "no checksum recorded")
	default:
		currentChecksum, err := FileChecksum(artifactPath)
		if err != nil {
			findings = append(findings, fmt.Sprintf("checksum computation failed: %v", err))
		} else if currentChecksum != descriptor.Checksum {
			findings = append(findings, "checksum mismatch - file may be corrupted")
		}
	}

	return findings, nil
}

// Sweeper exposes the retention sweeper for explicit CLI-driven sweeps.
func (o *Orchestrator) Sweeper() *Sweeper {
	return o.sweeper
}
