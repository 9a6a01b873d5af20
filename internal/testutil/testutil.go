// Package testutil provides filesystem helpers shared by relint's tests.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// WriteTree materializes files (relative path to content) under a fresh
// temp directory and returns its path. Parent directories are created as
// needed.
func WriteTree(tb testing.TB, files map[string]string) string {
	tb.Helper()

	dir := tb.TempDir()
	for name, content := range files {
		WriteFile(tb, dir, name, content)
	}
	return dir
}

// WriteFile writes one file under dir, creating parent directories.
func WriteFile(tb testing.TB, dir, name, content string) string {
	tb.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		tb.Fatalf("mkdir for %s: %v", name, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		tb.Fatalf("write %s: %v", name, err)
	}
	return path
}

// Script writes an executable shell script under dir and returns its path.
// Tests spawning fake linters use this; they skip on Windows.
func Script(tb testing.TB, dir, name, body string) string {
	tb.Helper()

	if runtime.GOOS == "windows" {
		tb.Skip("shell scripts are not runnable on windows")
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		tb.Fatalf("write script %s: %v", name, err)
	}
	return path
}
