package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// MetadataSuffix is appended to an artifact filename to name its sidecar.
const MetadataSuffix = ".meta"

// Store persists descriptor sidecars as `<artifact-filename>.meta` JSON files
// in the backup directory.
type Store struct {
	dir string
}

// NewStore creates a metadata store rooted at the backup directory.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Save writes the descriptor sidecar for its artifact.
func (s *Store) Save(d *Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}

	data, err := d.ToJSON()
	if err != nil {
		return NewStorageError("failed to marshal descriptor", err)
	}

	path := filepath.Join(s.dir, d.Filename+MetadataSuffix)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return NewStorageError("failed to write descriptor sidecar", err)
	}

	return nil
}

// Load reads the descriptor sidecar for the named artifact. A missing sidecar
// yields a NOT_FOUND_ERROR, which callers treat as "metadata not available"
// rather than a hard failure.
func (s *Store) Load(filename string) (*Descriptor, error) {
	if !IsValidBackupFilename(filename) {
		return nil, NewValidationError(fmt.Sprintf("invalid backup filename: %s", filename), nil)
	}

	path := filepath.Join(s.dir, filename+MetadataSuffix)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewNotFoundError(fmt.Sprintf("metadata file not found for %s", filename), err)
		}
		return nil, NewStorageError("failed to read descriptor sidecar", err)
	}

	var d Descriptor
	if err := d.FromJSON(data); err != nil {
		return nil, err
	}

	return &d, nil
}

// Delete removes the sidecar for the named artifact. A missing sidecar is not
// an error.
func (s *Store) Delete(filename string) error {
	if !IsValidBackupFilename(filename) {
		return NewValidationError(fmt.Sprintf("invalid backup filename: %s", filename), nil)
	}

	path := filepath.Join(s.dir, filename+MetadataSuffix)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return NewStorageError("failed to delete descriptor sidecar", err)
	}

	return nil
}

// List loads every readable descriptor in the backup directory, newest first.
// Unreadable or malformed sidecars are skipped.
func (s *Store) List() ([]*Descriptor, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, NewStorageError("failed to read backup directory", err)
	}

	var descriptors []*Descriptor
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), MetadataSuffix) {
			continue
		}

		filename := strings.TrimSuffix(entry.Name(), MetadataSuffix)
		d, err := s.Load(filename)
		if err != nil {
			continue
		}
		descriptors = append(descriptors, d)
	}

	sort.Slice(descriptors, func(i, j int) bool {
		return descriptors[i].CreatedAt.After(descriptors[j].CreatedAt)
	})

	return descriptors, nil
}
