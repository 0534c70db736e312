package backup

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/pbkdf2"

	"mysql-backup-engine/internal/config"
)

const (
	keySize    = 32 // AES-256
	saltSize   = 16
	pbkdf2Iter = 100000
)

// Cipher encrypts and decrypts backup artifacts with AES-256-GCM. Keys come
// from the configured source: a passphrase (PBKDF2-derived, salted per file),
// a raw key file, or a hex-encoded environment variable.
//
// Encrypted artifact layout: salt | nonce | GCM ciphertext.
type Cipher struct {
	cfg config.EncryptionConfig
}

// NewCipher creates a cipher for the given encryption configuration.
func NewCipher(cfg config.EncryptionConfig) *Cipher {
	return &Cipher{cfg: cfg}
}

// key resolves the encryption key for the configured source. The salt is only
// consulted for passphrase-derived keys.
func (c *Cipher) key(salt []byte) ([]byte, error) {
	switch c.cfg.KeySource {
	case "passphrase":
		if c.cfg.Passphrase == "" {
			return nil, NewEncryptionError("encryption passphrase is not configured", nil)
		}
		return pbkdf2.Key([]byte(c.cfg.Passphrase), salt, pbkdf2Iter, keySize, sha256.New), nil
	case "file":
		key, err := os.ReadFile(c.cfg.KeyPath)
		if err != nil {
			return nil, NewEncryptionError("failed to read key file", err)
		}
		if len(key) != keySize {
			return nil, NewEncryptionError(fmt.Sprintf("key file must contain %d bytes for AES-256", keySize), nil)
		}
		return key, nil
	case "env":
		hexKey := os.Getenv(c.cfg.KeyEnvVar)
		if hexKey == "" {
			return nil, NewEncryptionError(fmt.Sprintf("environment variable %s not set", c.cfg.KeyEnvVar), nil)
		}
		key, err := hex.DecodeString(hexKey)
		if err != nil {
			return nil, NewEncryptionError("failed to decode hex key from environment variable", err)
		}
		if len(key) != keySize {
			return nil, NewEncryptionError(fmt.Sprintf("key from environment variable must be %d bytes for AES-256", keySize), nil)
		}
		return key, nil
	default:
		return nil, NewEncryptionError(fmt.Sprintf("invalid key source: %s", c.cfg.KeySource), nil)
	}
}

// EncryptFile encrypts sourcePath into destPath.
func (c *Cipher) EncryptFile(sourcePath, destPath string) error {
	plaintext, err := os.ReadFile(sourcePath)
	if err != nil {
		return NewEncryptionError("failed to read file for encryption", err)
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return NewEncryptionError("failed to generate salt", err)
	}

	key, err := c.key(salt)
	if err != nil {
		return err
	}

	gcm, err := newGCM(key)
	if err != nil {
		return err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return NewEncryptionError("failed to generate nonce", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	out := make([]byte, 0, len(salt)+len(nonce)+len(ciphertext))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)

	if err := os.WriteFile(destPath, out, 0600); err != nil {
		return NewEncryptionError("failed to write encrypted file", err)
	}

	return nil
}

// DecryptFile decrypts sourcePath into destPath.
func (c *Cipher) DecryptFile(sourcePath, destPath string) error {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return NewEncryptionError("failed to read encrypted file", err)
	}

	if len(data) < saltSize {
		return NewEncryptionError("encrypted file too short", nil)
	}
	salt, rest := data[:saltSize], data[saltSize:]

	key, err := c.key(salt)
	if err != nil {
		return err
	}

	gcm, err := newGCM(key)
	if err != nil {
		return err
	}

	if len(rest) < gcm.NonceSize() {
		return NewEncryptionError("encrypted file too short", nil)
	}
	nonce, ciphertext := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return NewEncryptionError("failed to decrypt file", err)
	}

	if err := os.WriteFile(destPath, plaintext, 0600); err != nil {
		return NewEncryptionError("failed to write decrypted file", err)
	}

	return nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, NewEncryptionError("failed to create AES cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, NewEncryptionError("failed to create GCM cipher", err)
	}
	return gcm, nil
}

// GenerateKey generates a new random 256-bit key suitable for the "file" or
// "env" key sources.
func GenerateKey() ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, NewEncryptionError("failed to generate encryption key", err)
	}
	return key, nil
}
