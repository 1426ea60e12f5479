package util

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

var errNotWritable = errors.New("path is not writable")

// IsConfigured reports whether all provided values are non-empty.
func IsConfigured(values ...string) bool {
	for _, v := range values {
		if v == "" {
			return false
		}
	}
	return true
}

// ValidatePath rejects empty paths and paths that traverse upwards.
func ValidatePath(field, path string) error {
	if path == "" {
		return fmt.Errorf("%s: is required", field)
	}
	if strings.Contains(path, "..") || strings.Contains(filepath.Clean(path), "..") {
		return fmt.Errorf("%s: path cannot contain '..'", field)
	}
	return nil
}

// CheckPathWritable creates dir if needed and proves a file can be written
// and removed there.
func CheckPathWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Error("path writability check failed", "path", dir, "error", err, "step", "mkdir")
		return errNotWritable
	}

	f, err := os.CreateTemp(dir, ".intake-write-test-*")
	if err != nil {
		slog.Error("path writability check failed", "path", dir, "error", err, "step", "create")
		return errNotWritable
	}
	name := f.Name()

	_, werr := f.Write(make([]byte, 1024))
	cerr := f.Close()
	rerr := os.Remove(name)
	if err := errors.Join(werr, cerr, rerr); err != nil {
		slog.Error("path writability check failed", "path", dir, "error", err, "step", "write")
		return errNotWritable
	}
	return nil
}
