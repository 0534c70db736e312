package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// FileChecksum computes the SHA-256 digest of the file's full content,
// streaming it rather than loading it into memory, and returns the
// hex-encoded digest.
func FileChecksum(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", NewStorageError("failed to open file for checksum", err)
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", NewStorageError("failed to read file for checksum", err)
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}
