package credential

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadPassphraseFile reads passphrase candidates from a plain text
// file, one per line. Blank lines and lines starting with '#' are
// skipped. Leading and trailing whitespace is trimmed.
func (b *Builder) LoadPassphraseFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("load passphrase file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	// Passphrases can be long; raise the line limit well past the
	// bufio default of 64KiB.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		b.AddPassphrases(line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("load passphrase file %s: %w", path, err)
	}
	return nil
}

// LoadKeyfileDir adds every regular file directly inside dir as a
// candidate keyfile. Subdirectories are not descended into.
func (b *Builder) LoadKeyfileDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("load keyfile dir: %w", err)
	}
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		b.AddKeyfiles(filepath.Join(dir, entry.Name()))
	}
	return nil
}
