package jsonstore

import (
	"fmt"
	"os"
	"path/filepath"
)

// writeFileAtomic writes data to a staging file next to path, fsyncs it and
// atomically replaces path. A crash mid-write leaves the previous file intact.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	staging := path + ".staging"
	f, err := os.OpenFile(staging, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("open staging file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(staging)
		return fmt.Errorf("write staging file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(staging)
		return fmt.Errorf("sync staging file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(staging)
		return fmt.Errorf("close staging file: %w", err)
	}
	if err := os.Rename(staging, path); err != nil {
		os.Remove(staging)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
