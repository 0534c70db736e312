package backup

import (
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"mysql-backup-engine/internal/config"
)

// Pipeline applies the configured transforms to a finished dump: gzip
// compression first, then optional AES-256-GCM encryption. The reverse
// direction undoes them in inverse order for restore.
type Pipeline struct {
	compression config.CompressionConfig
	encryption  config.EncryptionConfig
	cipher      *Cipher
}

// NewPipeline creates a transform pipeline for the given settings.
func NewPipeline(compression config.CompressionConfig, encryption config.EncryptionConfig) *Pipeline {
	return &Pipeline{
		compression: compression,
		encryption:  encryption,
		cipher:      NewCipher(encryption),
	}
}

// Apply transforms the temporary dump at tempPath into its final artifact.
// finalBase is the target path without transform extensions (the plain .sql
// location). The returned path carries the extension chain of the transforms
// that ran, and the result flags report what was actually applied, so a
// disabled transform always reports false.
//
// On success the temporary file has been consumed (moved or superseded); on
// failure intermediates created here are removed and tempPath is left for the
// caller's cleanup.
func (p *Pipeline) Apply(tempPath, finalBase string) (string, TransformResult, error) {
	var result TransformResult

	currentPath := tempPath
	finalPath := finalBase

	if p.compression.Enabled {
		compressedPath := finalBase + ".gz"
		if err := p.compressFile(currentPath, compressedPath); err != nil {
			os.Remove(compressedPath)
			return "", result, err
		}
		currentPath = compressedPath
		finalPath = compressedPath
		result.Compressed = true
	}

	if p.encryption.Enabled {
		encryptedPath := finalPath + ".enc"
		if err := p.cipher.EncryptFile(currentPath, encryptedPath); err != nil {
			os.Remove(encryptedPath)
			if currentPath != tempPath {
				os.Remove(currentPath)
			}
			return "", result, err
		}
		if currentPath != tempPath {
			os.Remove(currentPath) // intermediate compressed file
		}
		currentPath = encryptedPath
		finalPath = encryptedPath
		result.Encrypted = true
	}

	// With no transforms applied the dump still has to move from its
	// temporary location into place.
	if currentPath != finalPath {
		if err := os.Rename(currentPath, finalPath); err != nil {
			return "", result, NewStorageError("failed to move backup to final location", err)
		}
	}

	return finalPath, result, nil
}

// Reverse undoes the transforms encoded in the artifact's extension chain and
// returns the path of a plain SQL file usable by the restore tool. When the
// artifact needed no processing the original path is returned and cleanup is
// a no-op; otherwise cleanup removes every intermediate produced here and
// must be called before the restore operation returns.
func (p *Pipeline) Reverse(artifactPath string) (string, func(), error) {
	currentPath := artifactPath
	var intermediates []string

	cleanup := func() {
		for _, path := range intermediates {
			os.Remove(path)
		}
	}

	if strings.HasSuffix(currentPath, ".enc") {
		decryptedPath := strings.TrimSuffix(currentPath, ".enc") + ".tmp-dec"
		if err := p.cipher.DecryptFile(currentPath, decryptedPath); err != nil {
			os.Remove(decryptedPath)
			cleanup()
			return "", nil, err
		}
		intermediates = append(intermediates, decryptedPath)
		currentPath = decryptedPath
	}

	if strings.HasSuffix(strings.TrimSuffix(currentPath, ".tmp-dec"), ".gz") {
		decompressedPath := currentPath + ".tmp-plain"
		if err := p.decompressFile(currentPath, decompressedPath); err != nil {
			os.Remove(decompressedPath)
			cleanup()
			return "", nil, err
		}
		intermediates = append(intermediates, decompressedPath)
		currentPath = decompressedPath
	}

	return currentPath, cleanup, nil
}

// compressFile stream-compresses sourcePath into destPath at the configured
// gzip level.
func (p *Pipeline) compressFile(sourcePath, destPath string) error {
	source, err := os.Open(sourcePath)
	if err != nil {
		return NewCompressionError("failed to open file for compression", err)
	}
	defer source.Close()

	dest, err := os.Create(destPath)
	if err != nil {
		return NewCompressionError("failed to create compressed file", err)
	}
	defer dest.Close()

	writer, err := gzip.NewWriterLevel(dest, p.compression.Level)
	if err != nil {
		return NewCompressionError("failed to create gzip writer", err)
	}

	if _, err := io.Copy(writer, source); err != nil {
		writer.Close()
		return NewCompressionError("failed to compress file", err)
	}

	if err := writer.Close(); err != nil {
		return NewCompressionError("failed to finalize compressed file", err)
	}

	return nil
}

// decompressFile stream-decompresses sourcePath into destPath.
func (p *Pipeline) decompressFile(sourcePath, destPath string) error {
	source, err := os.Open(sourcePath)
	if err != nil {
		return NewCompressionError("failed to open compressed file", err)
	}
	defer source.Close()

	reader, err := gzip.NewReader(source)
	if err != nil {
		return NewCompressionError("failed to create gzip reader", err)
	}
	defer reader.Close()

	dest, err := os.Create(destPath)
	if err != nil {
		return NewCompressionError("failed to create decompressed file", err)
	}
	defer dest.Close()

	if _, err := io.Copy(dest, reader); err != nil {
		return NewCompressionError("failed to decompress file", err)
	}

	return nil
}
