package backup

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Category classifies why a backup was taken.
type Category string

const (
	CategoryManual    Category = "manual"
	CategoryAutomatic Category = "automatic"
	CategoryMigration Category = "migration"
	CategorySafety    Category = "safety"
)

// KnownCategories lists the categories the engine produces itself. Unknown
// categories are accepted verbatim on CreateBackup but reduce reporting
// quality.
var KnownCategories = []Category{CategoryManual, CategoryAutomatic, CategoryMigration, CategorySafety}

// IsKnown reports whether the category is one of the four known tags.
func (c Category) IsKnown() bool {
	switch c {
	case CategoryManual, CategoryAutomatic, CategoryMigration, CategorySafety:
		return true
	default:
		return false
	}
}

// Descriptor holds the persisted metadata for a single backup artifact. It is
// written once, immediately after the artifact is finalized, and read-only
// thereafter.
type Descriptor struct {
	Filename     string    `json:"filename"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"created_at"`
	Description  string    `json:"description"`
	Compressed   bool      `json:"compressed"`
	Encrypted    bool      `json:"encrypted"`
	Validated    bool      `json:"validated"`
	Checksum     string    `json:"checksum"`
	DatabaseName string    `json:"database_name"`
	Version      string    `json:"version"`
	Category     Category  `json:"category"`
}

// DescriptorVersion tags the descriptor schema format.
const DescriptorVersion = "1.0"

// Validate checks the descriptor for structural consistency.
func (d *Descriptor) Validate() error {
	if d.Filename == "" {
		return NewValidationError("descriptor filename is required", nil)
	}
	if !IsValidBackupFilename(d.Filename) {
		return NewValidationError(fmt.Sprintf("descriptor filename %q does not match the backup naming grammar", d.Filename), nil)
	}
	if d.Size < 0 {
		return NewValidationError("descriptor size cannot be negative", nil)
	}
	if d.CreatedAt.IsZero() {
		return NewValidationError("descriptor creation timestamp is required", nil)
	}
	return nil
}

// ToJSON serializes the descriptor for sidecar persistence.
func (d *Descriptor) ToJSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// FromJSON deserializes a descriptor from sidecar data.
func (d *Descriptor) FromJSON(data []byte) error {
	if err := json.Unmarshal(data, d); err != nil {
		return NewValidationError("failed to unmarshal descriptor JSON", err)
	}
	return nil
}

// BackupOutcome is the call-scoped result of a CreateBackup operation. It is
// never persisted.
type BackupOutcome struct {
	Success    bool          `json:"success"`
	Descriptor *Descriptor   `json:"descriptor,omitempty"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
	Size       int64         `json:"size"`
	Warnings   []string      `json:"warnings,omitempty"`
}

// RestoreOutcome is the call-scoped result of a RestoreBackup operation.
type RestoreOutcome struct {
	Success  bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
	Warnings []string      `json:"warnings,omitempty"`
}

// TransformResult records which transforms the pipeline actually applied to
// an artifact, independent of what the configuration enabled.
type TransformResult struct {
	Compressed bool
	Encrypted  bool
}

// filenamePattern is the strict naming grammar for backup artifacts. It
// doubles as the security boundary against path traversal: any name failing
// it is rejected before any filesystem access.
var filenamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+\.(sql|sql\.gz|sql\.enc|sql\.gz\.enc)$`)

// IsValidBackupFilename reports whether name matches the backup naming
// grammar and is free of traversal sequences.
func IsValidBackupFilename(name string) bool {
	return filenamePattern.MatchString(name) && !strings.Contains(name, "..")
}

// BackupFilename derives the artifact base name for a category and creation
// time. Timestamps have second resolution, so concurrent calls within the
// same second would collide; the engine relies on unique timestamps rather
// than locking, matching the established on-disk naming.
func BackupFilename(category Category, t time.Time) string {
	return fmt.Sprintf("%s_backup_%s.sql", category, t.Format("20060102_150405"))
}
