package backup

import (
	"context"
	"time"
)

// ProcessRunner abstracts invocation of the database's native client tools so
// the orchestration logic is testable without a real database. The in-flight
// invocation must be abandoned when ctx is cancelled.
type ProcessRunner interface {
	Run(ctx context.Context, spec CommandSpec) (output string, err error)
}

// CommandSpec describes a single client-tool invocation.
type CommandSpec struct {
	Name      string
	Args      []string
	Env       []string
	StdinPath string // optional file fed to the process on stdin
}

// Notifier receives success/failure events from the orchestrator. Delivery
// failures must never affect the outcome of the operation being reported.
type Notifier interface {
	NotifyBackupSuccess(d *Descriptor)
	NotifyBackupFailure(filename string, err error)
	NotifyRestoreSuccess(filename string, duration time.Duration)
	NotifyRestoreFailure(filename string, err error)
}

// MetadataStore persists descriptor sidecars next to backup artifacts.
type MetadataStore interface {
	Save(d *Descriptor) error
	// Load returns a NOT_FOUND_ERROR (see IsNotFound) when no sidecar exists
	// for the artifact; callers treat that as "metadata not available".
	Load(filename string) (*Descriptor, error)
	Delete(filename string) error
	List() ([]*Descriptor, error)
}

// ArtifactValidator performs light-weight structural checks on backup
// artifacts and a post-restore database health check.
type ArtifactValidator interface {
	ValidateArtifact(path string) error
	ValidateDatabaseHealth(ctx context.Context) error
}
