package backup

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"

	"mysql-backup-engine/internal/logging"
)

// dump format markers looked for in the artifact prefix
var dumpMarkers = []string{"CREATE", "INSERT", "SET"}

// sniffSize bounds the prefix read used for format sniffing.
const sniffSize = 1024

// Validator performs structural sanity checks on backup artifacts and a
// minimal post-restore health check against the live database. It is a
// heuristic smoke test, not a full parse.
type Validator struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewValidator creates a validator. db may be nil, in which case
// ValidateDatabaseHealth reports that no connection is available.
func NewValidator(db *sql.DB, logger *logging.Logger) *Validator {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Validator{db: db, logger: logger}
}

// ValidateArtifact fails if the file is empty or its prefix does not match
// the format its extension chain promises: plain dumps must carry SQL
// markers, compressed dumps the gzip magic bytes. Encrypted artifacts are
// opaque, so only the size check applies.
func (v *Validator) ValidateArtifact(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return NewStorageError("failed to open backup file for validation", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return NewStorageError("failed to stat backup file", err)
	}
	if stat.Size() == 0 {
		return NewValidationError("backup file is empty", nil)
	}

	if strings.HasSuffix(path, ".enc") {
		return nil
	}

	buffer := make([]byte, sniffSize)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return NewStorageError("failed to read backup file prefix", err)
	}

	if strings.HasSuffix(path, ".gz") {
		if n < 2 || buffer[0] != 0x1f || buffer[1] != 0x8b {
			return NewValidationError("backup file does not appear to be gzip compressed", nil)
		}
		return nil
	}

	content := string(buffer[:n])
	for _, marker := range dumpMarkers {
		if strings.Contains(content, marker) {
			return nil
		}
	}

	return NewValidationError("backup file does not appear to contain valid SQL", nil)
}

// ValidateDatabaseHealth pings the database and runs a minimal
// system-catalog query to confirm the server is answering after a restore.
func (v *Validator) ValidateDatabaseHealth(ctx context.Context) error {
	if v.db == nil {
		return NewDatabaseError("no database connection available for health check", nil)
	}

	if err := v.db.PingContext(ctx); err != nil {
		return NewDatabaseError("database ping failed", err)
	}

	var tableCount int
	row := v.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE()")
	if err := row.Scan(&tableCount); err != nil {
		return NewDatabaseError("system catalog query failed", err)
	}

	v.logger.Debugf("Database health check passed: %d tables visible", tableCount)

	if tableCount == 0 {
		return NewDatabaseError(fmt.Sprintf("database reports %d tables after restore", tableCount), nil)
	}

	return nil
}
