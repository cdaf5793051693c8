// Package persist provides the write-back machinery shared by the task store
// and the knowledge graph: atomic file replacement and a batching scheduler
// that coalesces bursts of in-memory mutations into a single disk write.
package persist

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrWriteFailed wraps every failure of a scheduled write-back.
var ErrWriteFailed = errors.New("persist: write failed")

// WriteFileAtomic writes data to a temporary file in the same directory as
// path and renames it into place, so readers observe either the previous
// document or the new one, never a partial write.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	// Remove the temp file on every failure path.
	ok := false
	defer func() {
		if !ok {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming %s: %w", filepath.Base(path), err)
	}

	ok = true
	return nil
}
