// Package backup implements the backup and restore orchestration engine for
// a MySQL database.
//
// The engine produces consistent dumps through the database's native client
// tools, verifies and transforms the resulting artifacts (compression,
// optional encryption, checksums), persists a descriptor sidecar next to each
// artifact, enforces a retention policy, and restores a database safely. A
// restore is always preceded by an automatic safety backup; if the restore
// itself fails after exhausting its retries, the engine falls back to that
// safety backup so the database is left no worse than before.
//
// Core components:
//
//   - Orchestrator: coordinates CreateBackup and RestoreBackup, including
//     retry loops, the safety-backup path, and failure fallback
//   - Pipeline: applies gzip compression and AES-256-GCM encryption to a dump
//   - Validator: structural sanity checks on artifacts and a post-restore
//     database health check
//   - Store: descriptor sidecar persistence
//   - Sweeper: background retention cleanup of the backup directory
//
// External process invocation is abstracted behind the ProcessRunner
// interface and notifications behind Notifier, so the orchestration logic is
// fully testable without a real database.
//
// Example usage:
//
//	orch, err := backup.NewOrchestrator(cfg, logger)
//	if err != nil {
//		return err
//	}
//
//	outcome, err := orch.CreateBackup(ctx, "Pre-upgrade backup", backup.CategoryManual)
//	if err != nil {
//		return fmt.Errorf("backup creation failed: %w", err)
//	}
//
//	restore, err := orch.RestoreBackup(ctx, outcome.Descriptor.Filename)
//	if err != nil {
//		return fmt.Errorf("restore failed: %w", err)
//	}
package backup
