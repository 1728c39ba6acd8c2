package progress

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Fingerprint returns the hex-encoded SHA-256 of the file's content.
// The fingerprint ties a progress file to the exact target it was
// recorded against; any change to the target invalidates prior
// attempt records.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("fingerprint target: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("fingerprint target %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
