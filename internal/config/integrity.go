package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrNoChecksums is returned by VerifyChecksumsStrict when no manifest exists.
var ErrNoChecksums = errors.New("no checksums manifest")

// VerifyChecksums checks the locked files in configDir against .checksums.
// A missing manifest is not an error; integrity checking is opt-in through
// 'kommobot config lock'.
func VerifyChecksums(configDir string) error {
	err := VerifyChecksumsStrict(configDir)
	if errors.Is(err, ErrNoChecksums) {
		return nil
	}
	return err
}

// VerifyChecksumsStrict is VerifyChecksums but reports a missing manifest.
func VerifyChecksumsStrict(configDir string) error {
	manifest, err := LoadChecksums(configDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNoChecksums
		}
		return err
	}

	for _, filename := range LockedFiles {
		filePath := filepath.Join(configDir, filename)
		expectedHash, inManifest := manifest.Hashes[filename]

		// File missing on disk must also be missing from the manifest
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			if inManifest {
				return fmt.Errorf("%s is in checksums but missing from disk", filename)
			}
			continue
		}

		if !inManifest {
			return fmt.Errorf("%s has no hash in checksums (run 'kommobot config lock')", filename)
		}

		if err := VerifyFileHash(filePath, expectedHash); err != nil {
			return fmt.Errorf("config integrity check failed: %w\n"+
				"If you edited this file intentionally, run: kommobot config lock", err)
		}
	}

	return nil
}
