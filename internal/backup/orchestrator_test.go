package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mysql-backup-engine/internal/config"
)

// fakeRunner records every client-tool invocation and delegates behavior to a
// per-test handler.
type fakeRunner struct {
	mu      sync.Mutex
	calls   []CommandSpec
	handler func(ctx context.Context, spec CommandSpec) (string, error)
}

func (r *fakeRunner) Run(ctx context.Context, spec CommandSpec) (string, error) {
	r.mu.Lock()
	r.calls = append(r.calls, spec)
	r.mu.Unlock()
	if r.handler != nil {
		return r.handler(ctx, spec)
	}
	return "", nil
}

func (r *fakeRunner) callsFor(name string) []CommandSpec {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []CommandSpec
	for _, call := range r.calls {
		if call.Name == name {
			matched = append(matched, call)
		}
	}
	return matched
}

// writeDump emulates mysqldump by writing a plausible dump to the
// --result-file argument.
func writeDump(spec CommandSpec) error {
	for _, arg := range spec.Args {
		if path, ok := strings.CutPrefix(arg, "--result-file="); ok {
			return os.WriteFile(path, []byte("-- dump\nCREATE TABLE t (id INT);\nINSERT INTO t VALUES (1);\n"), 0644)
		}
	}
	return errors.New("no --result-file argument")
}

// fakeNotifier records which events fired.
type fakeNotifier struct {
	mu              sync.Mutex
	backupSuccess   []string
	backupFailure   []string
	restoreSuccess  []string
	restoreFailures []string
}

func (n *fakeNotifier) NotifyBackupSuccess(d *Descriptor) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.backupSuccess = append(n.backupSuccess, d.Filename)
}

func (n *fakeNotifier) NotifyBackupFailure(filename string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.backupFailure = append(n.backupFailure, filename)
}

func (n *fakeNotifier) NotifyRestoreSuccess(filename string, duration time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.restoreSuccess = append(n.restoreSuccess, filename)
}

func (n *fakeNotifier) NotifyRestoreFailure(filename string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.restoreFailures = append(n.restoreFailures, filename)
}

// fakeValidator returns canned results.
type fakeValidator struct {
	artifactErr error
	healthErr   error
}

func (v *fakeValidator) ValidateArtifact(path string) error { return v.artifactErr }

func (v *fakeValidator) ValidateDatabaseHealth(ctx context.Context) error { return v.healthErr }

type orchestratorFixture struct {
	dir      string
	cfg      config.BackupConfig
	runner   *fakeRunner
	notifier *fakeNotifier
	store    *Store
	o        *Orchestrator
}

func newFixture(t *testing.T, mutate func(cfg *config.BackupConfig)) *orchestratorFixture {
	t.Helper()

	dir := t.TempDir()
	cfg := config.BackupConfig{
		Enabled:               true,
		Dir:                   dir,
		MaxRetries:            3,
		RetryWait:             time.Millisecond,
		RetentionDays:         30,
		ValidateAfterBackup:   true,
		ValidateBeforeRestore: true,
		NotifyOnSuccess:       true,
		NotifyOnFailure:       true,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	runner := &fakeRunner{}
	notifier := &fakeNotifier{}
	store := NewStore(dir)

	o := NewOrchestratorWithDependencies(
		cfg,
		testDBConfig,
		runner,
		store,
		&fakeValidator{},
		NewPipeline(cfg.Compression, cfg.Encryption),
		notifier,
		NewSweeper(dir, time.Duration(cfg.RetentionDays)*24*time.Hour, nil),
		nil,
	)

	return &orchestratorFixture{dir: dir, cfg: cfg, runner: runner, notifier: notifier, store: store, o: o}
}

func TestCreateBackupSuccess(t *testing.T) {
	f := newFixture(t, nil)
	f.runner.handler = func(ctx context.Context, spec CommandSpec) (string, error) {
		return "", writeDump(spec)
	}

	outcome, err := f.o.CreateBackup(context.Background(), "nightly snapshot", CategoryManual)
	require.NoError(t, err)
	require.True(t, outcome.Success)
	assert.Empty(t, outcome.Warnings)

	d := outcome.Descriptor
	require.NotNil(t, d)
	assert.True(t, strings.HasPrefix(d.Filename, "manual_backup_"))
	assert.True(t, strings.HasSuffix(d.Filename, ".sql"))
	assert.Equal(t, "nightly snapshot", d.Description)
	assert.Equal(t, CategoryManual, d.Category)
	assert.Equal(t, testDBConfig.Name, d.DatabaseName)
	assert.False(t, d.Compressed)
	assert.False(t, d.Encrypted)
	assert.True(t, d.Validated)

	artifactPath := filepath.Join(f.dir, d.Filename)
	info, err := os.Stat(artifactPath)
	require.NoError(t, err)
	assert.Equal(t, info.Size(), d.Size)

	// The recorded checksum matches the artifact on disk.
	sum, err := FileChecksum(artifactPath)
	require.NoError(t, err)
	assert.Equal(t, sum, d.Checksum)

	// The descriptor sidecar is loadable and the temp file is gone.
	loaded, err := f.store.Load(d.Filename)
	require.NoError(t, err)
	assert.Equal(t, d, loaded)
	_, err = os.Stat(artifactPath + ".tmp")
	assert.True(t, os.IsNotExist(err))

	assert.Equal(t, []string{d.Filename}, f.notifier.backupSuccess)
}

func TestCreateBackupCompressed(t *testing.T) {
	f := newFixture(t, func(cfg *config.BackupConfig) {
		cfg.Compression = config.CompressionConfig{Enabled: true, Level: 6}
	})
	f.runner.handler = func(ctx context.Context, spec CommandSpec) (string, error) {
		return "", writeDump(spec)
	}

	outcome, err := f.o.CreateBackup(context.Background(), "", CategoryAutomatic)
	require.NoError(t, err)

	d := outcome.Descriptor
	assert.True(t, strings.HasSuffix(d.Filename, ".sql.gz"))
	assert.True(t, d.Compressed)
	assert.False(t, d.Encrypted)
}

func TestRestoreBackupCompressedRoundTrip(t *testing.T) {
	f := newFixture(t, func(cfg *config.BackupConfig) {
		cfg.Compression = config.CompressionConfig{Enabled: true, Level: 6}
	})
	var applied []byte
	f.runner.handler = func(ctx context.Context, spec CommandSpec) (string, error) {
		if spec.Name == "mysqldump" {
			return "", writeDump(spec)
		}
		// The intermediate plain file is gone once the restore returns, so
		// capture what the restore tool would have consumed.
		content, err := os.ReadFile(spec.StdinPath)
		if err != nil {
			return "", err
		}
		applied = content
		return "", nil
	}

	created, err := f.o.CreateBackup(context.Background(), "seed", CategoryManual)
	require.NoError(t, err)
	filename := created.Descriptor.Filename
	require.True(t, strings.HasSuffix(filename, ".sql.gz"))

	// The recorded checksum covers the compressed artifact on disk.
	sum, err := FileChecksum(filepath.Join(f.dir, filename))
	require.NoError(t, err)
	require.Equal(t, sum, created.Descriptor.Checksum)

	outcome, err := f.o.RestoreBackup(context.Background(), filename)
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.NotContains(t, outcome.Warnings, "Checksum verification failed")

	// The restore tool is fed the decompressed dump, not the gzip bytes.
	restores := f.runner.callsFor("mysql")
	require.Len(t, restores, 1)
	assert.NotEqual(t, filepath.Join(f.dir, filename), restores[0].StdinPath)
	assert.Contains(t, string(applied), "CREATE TABLE")

	// The intermediate plain file is removed before the call returns.
	_, err = os.Stat(restores[0].StdinPath)
	assert.True(t, os.IsNotExist(err))
}

func TestCreateBackupRetriesExhausted(t *testing.T) {
	f := newFixture(t, nil)
	f.runner.handler = func(ctx context.Context, spec CommandSpec) (string, error) {
		return "", errors.New("connection refused")
	}

	outcome, err := f.o.CreateBackup(context.Background(), "", CategoryManual)
	require.Error(t, err)
	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "backup failed after 3 attempts")
	assert.Equal(t, ErrorKindProcess, KindOf(err))

	// Exactly MaxRetries attempts, no more.
	assert.Len(t, f.runner.callsFor("mysqldump"), 3)
	assert.Len(t, f.notifier.backupFailure, 1)

	// Nothing is left behind.
	entries, readErr := os.ReadDir(f.dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestCreateBackupRetrySucceeds(t *testing.T) {
	f := newFixture(t, nil)
	var attempts int
	f.runner.handler = func(ctx context.Context, spec CommandSpec) (string, error) {
		attempts++
		if attempts == 1 {
			return "", errors.New("transient failure")
		}
		return "", writeDump(spec)
	}

	outcome, err := f.o.CreateBackup(context.Background(), "", CategoryManual)
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, 2, attempts)
}

func TestCreateBackupCancelledStopsRetries(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	f.runner.handler = func(ctx context.Context, spec CommandSpec) (string, error) {
		cancel()
		return "", errors.New("killed")
	}

	_, err := f.o.CreateBackup(ctx, "", CategoryManual)
	require.Error(t, err)

	// A cancellation fired during the first attempt prevents any retry.
	assert.Len(t, f.runner.callsFor("mysqldump"), 1)
}

func TestCreateBackupValidationWarning(t *testing.T) {
	f := newFixture(t, nil)
	f.runner.handler = func(ctx context.Context, spec CommandSpec) (string, error) {
		return "", writeDump(spec)
	}
	f.o.validator = &fakeValidator{artifactErr: NewValidationError("bad artifact", nil)}

	outcome, err := f.o.CreateBackup(context.Background(), "", CategoryManual)
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Contains(t, outcome.Warnings, "Backup validation failed")
}

func TestRestoreBackupSuccess(t *testing.T) {
	f := newFixture(t, nil)
	f.runner.handler = func(ctx context.Context, spec CommandSpec) (string, error) {
		if spec.Name == "mysqldump" {
			return "", writeDump(spec)
		}
		return "", nil
	}

	// Seed an artifact the way CreateBackup would have.
	created, err := f.o.CreateBackup(context.Background(), "seed", CategoryManual)
	require.NoError(t, err)
	filename := created.Descriptor.Filename

	outcome, err := f.o.RestoreBackup(context.Background(), filename)
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Empty(t, outcome.Warnings)

	restores := f.runner.callsFor("mysql")
	require.Len(t, restores, 1)
	assert.Equal(t, filepath.Join(f.dir, filename), restores[0].StdinPath)

	// A safety backup was taken before the restore.
	dumps := f.runner.callsFor("mysqldump")
	assert.Len(t, dumps, 2)
	descriptors, err := f.store.List()
	require.NoError(t, err)
	var sawSafety bool
	for _, d := range descriptors {
		if d.Category == CategorySafety {
			sawSafety = true
		}
	}
	assert.True(t, sawSafety)

	assert.Equal(t, []string{filename}, f.notifier.restoreSuccess)
}

func TestRestoreBackupRejectsInvalidFilename(t *testing.T) {
	f := newFixture(t, nil)

	tests := []string{
		"../../../etc/passwd.sql",
		"backup;rm -rf.sql",
		"no-extension",
		"",
	}

	for _, filename := range tests {
		outcome, err := f.o.RestoreBackup(context.Background(), filename)
		require.Error(t, err, "filename %q", filename)
		assert.Equal(t, "invalid backup filename", outcome.Error)
		assert.Equal(t, ErrorKindValidation, KindOf(err))
	}

	// Rejection happens before any process or filesystem work.
	assert.Empty(t, f.runner.calls)
}

func TestRestoreBackupNotFound(t *testing.T) {
	f := newFixture(t, nil)

	outcome, err := f.o.RestoreBackup(context.Background(), "manual_backup_20260115_103000.sql")
	require.Error(t, err)
	assert.Equal(t, "backup file not found", outcome.Error)
	assert.True(t, IsNotFound(err))
}

func TestRestoreBackupChecksumMismatch(t *testing.T) {
	f := newFixture(t, nil)

	filename := "manual_backup_20260115_103000.sql"
	artifactPath := filepath.Join(f.dir, filename)
	require.NoError(t, os.WriteFile(artifactPath, []byte("CREATE TABLE t (id INT);"), 0644))
	require.NoError(t, f.store.Save(&Descriptor{
		Filename:  filename,
		Size:      24,
		CreatedAt: time.Now(),
		Checksum:  strings.Repeat("0", 64),
		Version:   DescriptorVersion,
		Category:  CategoryManual,
	}))

	outcome, err := f.o.RestoreBackup(context.Background(), filename)
	require.Error(t, err)
	assert.Equal(t, "backup file checksum mismatch - file may be corrupted", outcome.Error)
	assert.Equal(t, ErrorKindCorruption, KindOf(err))

	// Corruption is detected before anything destructive happens.
	assert.Empty(t, f.runner.callsFor("mysql"))
}

func TestRestoreBackupMissingMetadataIsWarning(t *testing.T) {
	f := newFixture(t, nil)
	f.runner.handler = func(ctx context.Context, spec CommandSpec) (string, error) {
		if spec.Name == "mysqldump" {
			return "", writeDump(spec)
		}
		return "", nil
	}

	filename := "manual_backup_20260115_103000.sql"
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, filename), []byte("CREATE TABLE t (id INT);"), 0644))

	outcome, err := f.o.RestoreBackup(context.Background(), filename)
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Contains(t, outcome.Warnings, "Metadata not available")
}

func TestRestoreBackupFallsBackToSafety(t *testing.T) {
	f := newFixture(t, nil)

	filename := "manual_backup_20260115_103000.sql"
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, filename), []byte("CREATE TABLE t (id INT);"), 0644))

	mainPath := filepath.Join(f.dir, filename)
	f.runner.handler = func(ctx context.Context, spec CommandSpec) (string, error) {
		if spec.Name == "mysqldump" {
			return "", writeDump(spec)
		}
		if spec.StdinPath == mainPath {
			return "", errors.New("syntax error at line 3")
		}
		return "", nil // safety restore succeeds
	}

	outcome, err := f.o.RestoreBackup(context.Background(), filename)
	require.Error(t, err)
	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "restore failed after 3 attempts")
	assert.Contains(t, outcome.Warnings, "Restored from safety backup due to main restore failure")

	// Three failed attempts against the requested artifact, then exactly one
	// fallback attempt from the safety backup.
	restores := f.runner.callsFor("mysql")
	require.Len(t, restores, 4)
	for _, call := range restores[:3] {
		assert.Equal(t, mainPath, call.StdinPath)
	}
	assert.NotEqual(t, mainPath, restores[3].StdinPath)
	assert.Contains(t, restores[3].StdinPath, "safety_backup_")

	assert.Equal(t, []string{filename}, f.notifier.restoreFailures)
}

func TestRestoreBackupSafetyRestoreAlsoFails(t *testing.T) {
	f := newFixture(t, nil)

	filename := "manual_backup_20260115_103000.sql"
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, filename), []byte("CREATE TABLE t (id INT);"), 0644))

	f.runner.handler = func(ctx context.Context, spec CommandSpec) (string, error) {
		if spec.Name == "mysqldump" {
			return "", writeDump(spec)
		}
		return "", errors.New("server gone away")
	}

	outcome, err := f.o.RestoreBackup(context.Background(), filename)
	require.Error(t, err)
	assert.Contains(t, outcome.Warnings, "Safety backup restore also failed")

	// 3 retries against the artifact plus a single fallback attempt.
	assert.Len(t, f.runner.callsFor("mysql"), 4)
}

func TestRestoreBackupSafetyBackupFailureIsWarning(t *testing.T) {
	f := newFixture(t, nil)

	filename := "manual_backup_20260115_103000.sql"
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, filename), []byte("CREATE TABLE t (id INT);"), 0644))

	f.runner.handler = func(ctx context.Context, spec CommandSpec) (string, error) {
		if spec.Name == "mysqldump" {
			return "", errors.New("dump refused")
		}
		return "", nil
	}

	outcome, err := f.o.RestoreBackup(context.Background(), filename)
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Contains(t, outcome.Warnings, "Safety backup failed")
}

func TestRestoreBackupHealthCheckWarning(t *testing.T) {
	f := newFixture(t, nil)
	f.runner.handler = func(ctx context.Context, spec CommandSpec) (string, error) {
		if spec.Name == "mysqldump" {
			return "", writeDump(spec)
		}
		return "", nil
	}
	f.o.validator = &fakeValidator{healthErr: NewDatabaseError("schema is empty", nil)}

	filename := "manual_backup_20260115_103000.sql"
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, filename), []byte("CREATE TABLE t (id INT);"), 0644))

	outcome, err := f.o.RestoreBackup(context.Background(), filename)
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Contains(t, outcome.Warnings, "Post-restore validation failed")
}

func TestDeleteBackup(t *testing.T) {
	f := newFixture(t, nil)
	f.runner.handler = func(ctx context.Context, spec CommandSpec) (string, error) {
		return "", writeDump(spec)
	}

	created, err := f.o.CreateBackup(context.Background(), "", CategoryManual)
	require.NoError(t, err)
	filename := created.Descriptor.Filename

	require.NoError(t, f.o.DeleteBackup(filename))

	_, err = os.Stat(filepath.Join(f.dir, filename))
	assert.True(t, os.IsNotExist(err))
	_, err = f.store.Load(filename)
	assert.True(t, IsNotFound(err))

	err = f.o.DeleteBackup(filename)
	assert.True(t, IsNotFound(err))

	err = f.o.DeleteBackup("../escape.sql")
	assert.Equal(t, ErrorKindValidation, KindOf(err))
}

func TestValidateBackup(t *testing.T) {
	f := newFixture(t, nil)
	f.runner.handler = func(ctx context.Context, spec CommandSpec) (string, error) {
		return "", writeDump(spec)
	}

	created, err := f.o.CreateBackup(context.Background(), "", CategoryManual)
	require.NoError(t, err)
	filename := created.Descriptor.Filename

	findings, err := f.o.ValidateBackup(filename)
	require.NoError(t, err)
	assert.Empty(t, findings)

	// Corrupt the artifact after the fact.
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, filename), []byte("tampered content CREATE"), 0644))

	findings, err = f.o.ValidateBackup(filename)
	require.NoError(t, err)
	require.NotEmpty(t, findings)
	assert.Contains(t, findings, "checksum mismatch - file may be corrupted")
}
