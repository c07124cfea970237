package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// BackupPath returns the name under which the current file at path is
// preserved before being replaced: path + "." + its modification time in unix
// nanoseconds.
func BackupPath(path string) (string, error) {
	st, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	return path + "." + strconv.FormatInt(st.ModTime().UnixNano(), 10), nil
}

// writeWithBackup atomically replaces path with data, keeping the previous
// version next to it under BackupPath.
//
// The new content is written to a temp file in the same directory and synced
// first. The old file is then hard linked to its backup name, falling back to
// a rename on file systems without links, and finally the temp file is
// renamed over path.
func writeWithBackup(path string, data []byte) error {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := f.Name()
	if _, err := f.Write(data); err != nil {
		return errors.Join(fmt.Errorf("failed to write temp file: %w", err), f.Close(), os.Remove(tmpPath))
	}
	if err := f.Sync(); err != nil {
		return errors.Join(fmt.Errorf("failed to sync temp file: %w", err), f.Close(), os.Remove(tmpPath))
	}
	if err := f.Close(); err != nil {
		return errors.Join(fmt.Errorf("failed to close temp file: %w", err), os.Remove(tmpPath))
	}
	if err := backup(path); err != nil {
		return errors.Join(err, os.Remove(tmpPath))
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return errors.Join(fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err), os.Remove(tmpPath))
	}
	syncDir(dir)
	return nil
}

// backup preserves the current file at path. A missing file is not an error.
func backup(path string) error {
	name, err := BackupPath(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", filepath.Base(path), err)
	}
	// Two writes within the clock granularity share an mtime.
	base := name
	for i := 1; ; i++ {
		_, err := os.Lstat(name)
		if errors.Is(err, os.ErrNotExist) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to check backup name: %w", err)
		}
		name = base + "-" + strconv.Itoa(i)
	}
	if err := os.Link(path, name); err == nil {
		return nil
	}
	if err := os.Rename(path, name); err != nil {
		return fmt.Errorf("failed to back up %s: %w", filepath.Base(path), err)
	}
	return nil
}

// syncDir makes the renames durable where the platform allows it.
func syncDir(dir string) {
	d, err := os.Open(dir) //nolint:gosec // G304: dataset directory
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
