package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// writeAtomic persists JSON using the write-temp-then-rename pattern so a
// crash mid-write never corrupts the previous durable state.
// 1. Write to a temporary file in the same directory.
// 2. Sync to ensure data is on disk.
// 3. Rename temporary file to destination (atomic operation).
func writeAtomic(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create dir for %s: %w", path, err)
		}
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create temp file %s: %w", tmp, err)
	}

	if _, err := f.Write(b); err != nil {
		f.Close()
		return fmt.Errorf("write temp file %s: %w", tmp, err)
	}

	// Force sync to disk to prevent data loss on power failure before rename.
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync temp file %s: %w", tmp, err)
	}

	// Close explicitly before renaming (essential on Windows).
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// readJSON loads a JSON file into v. A missing file is not an error; the
// caller starts empty.
func readJSON(path string, v any) (found bool, err error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}
