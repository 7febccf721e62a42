// Package keyfile persists signing keys on disk.
package keyfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ledgerjack/internal/pki"
)

// Write stores the private key as hex at path, mode 0600. The write is
// atomic: a temp file in the same directory is renamed over the target,
// so readers see either the old key or the new one, never a partial
// write.
func Write(path string, priv pki.PrivateKey) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	tmp, err := os.CreateTemp(dir, base+".tmp.*")
	if err != nil {
		return fmt.Errorf("failed to create temp key file: %w", err)
	}
	tmpPath := tmp.Name()

	defer func() {
		if tmp != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.WriteString(priv.String() + "\n"); err != nil {
		return fmt.Errorf("failed to write key: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync key file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close key file: %w", err)
	}
	tmp = nil

	if err := os.Chmod(tmpPath, 0o600); err != nil {
		return fmt.Errorf("failed to set key file permissions: %w", err)
	}
	// Rename within one directory is atomic on POSIX.
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename key file: %w", err)
	}
	return nil
}

// Read loads a private key written by Write.
func Read(path string) (pki.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pki.PrivateKey{}, fmt.Errorf("failed to read key file: %w", err)
	}
	priv, err := pki.ParsePrivateKey(strings.TrimSpace(string(data)))
	if err != nil {
		return pki.PrivateKey{}, fmt.Errorf("key file %s: %w", path, err)
	}
	return priv, nil
}
