// Package testutil provides shared test helpers for setting up project
// directories and history databases.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/faf/internal/history"
	"github.com/starford/faf/internal/storage"
)

// SampleFAF is a small but realistic structured file.
const SampleFAF = `faf_version: 2.5.0
project:
  name: demo
  goal: keep AI context in sync
  main_language: Go
human_context:
  who: developers
stack:
  frontend: None
  backend: chi
  database: SQLite
`

// TestDB creates a temporary history database that is automatically cleaned up.
func TestDB(t *testing.T) *history.DB {
	t.Helper()
	db, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestProject creates a temporary project directory with a storage.Provider.
func TestProject(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// WriteFile writes content to name under dir.
func WriteFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// ReadFile returns the content of name under dir.
func ReadFile(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}
