// Package persist writes output files without ever leaving a truncated or
// half-written target behind.
package persist

import (
	"fmt"
	"os"
)

// TempSuffix is appended to the target path while writing
const TempSuffix = ".tmp"

// Saver is a document that can write itself to a path
type Saver interface {
	Save(path string) error
	Close() error
}

// Save writes doc to target through a temporary file. On failure the
// temporary file is removed and target is left as it was. On success doc is
// closed before target is replaced, since target may be the file doc was read
// from.
func Save(doc Saver, target string) error {
	tmp := target + TempSuffix

	if err := doc.Save(tmp); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}

	if err := doc.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close document: %w", err)
	}

	return replace(tmp, target)
}

// WriteFile writes data to path with the same guarantees as Save
func WriteFile(path string, data []byte) error {
	tmp := path + TempSuffix
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	return replace(tmp, path)
}

func replace(tmp, target string) error {
	if _, err := os.Stat(target); err == nil {
		if err := os.Remove(target); err != nil {
			os.Remove(tmp)
			return fmt.Errorf("failed to remove existing %s: %w", target, err)
		}
	}

	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp) // Clean up temp file on error
		return fmt.Errorf("failed to rename %s to %s: %w", tmp, target, err)
	}
	return nil
}
