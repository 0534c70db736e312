package cmd

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"mysql-backup-engine/internal/config"
)

// resolvePassphrase prompts for the encryption passphrase when encryption is
// enabled with a passphrase key source but no passphrase was supplied via
// config or environment. Non-interactive runs fail instead of hanging on a
// prompt that nothing will answer.
func resolvePassphrase(cfg *config.Config) error {
	enc := &cfg.Backup.Encryption
	if !enc.Enabled || enc.KeySource != "passphrase" || enc.Passphrase != "" {
		return nil
	}

	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return fmt.Errorf("encryption passphrase is required but stdin is not a terminal; set backup.encryption.passphrase or BACKUP_ENGINE_BACKUP_ENCRYPTION_PASSPHRASE")
	}

	fmt.Fprint(os.Stderr, "Encryption passphrase: ")
	passphrase, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to read passphrase: %w", err)
	}
	if len(passphrase) == 0 {
		return fmt.Errorf("passphrase cannot be empty")
	}

	enc.Passphrase = string(passphrase)
	return nil
}
