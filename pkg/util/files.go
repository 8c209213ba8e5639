package util

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// EnsureDir creates a directory if it doesn't exist
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// CleanupFiles removes multiple files, ignoring errors
func CleanupFiles(paths ...string) {
	for _, path := range paths {
		_ = os.Remove(path)
	}
}

// OutputName returns the file name for a finished short rendered at t
func OutputName(t time.Time, format string) string {
	return fmt.Sprintf("short_%s.%s", t.Format("20060102-150405"), format)
}

// SafeJoin joins name onto dir and rejects names that would escape dir
func SafeJoin(dir, name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	return filepath.Join(dir, name), nil
}
