package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FallbackDir is used when the requested output directory is not writable.
func FallbackDir() string { return filepath.Join(os.TempDir(), "out") }

// EnsureOutDir creates dir and checks that it can be written to. On failure
// it logs a warning and returns FallbackDir instead.
func EnsureOutDir(dir string, log *slog.Logger) (string, error) {
	err := probe(dir)
	if err == nil {
		return dir, nil
	}
	fallback := FallbackDir()
	if log != nil {
		log.Warn("output directory not writable, using fallback", "dir", dir, "fallback", fallback, "error", err)
	}
	if err := os.MkdirAll(fallback, 0o755); err != nil {
		return "", fmt.Errorf("creating fallback output dir: %w", err)
	}
	return fallback, nil
}

func probe(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".write_test")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
