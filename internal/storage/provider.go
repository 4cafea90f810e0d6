// Package storage defines the file access abstraction used by the mirror
// engine, and its local file-system implementation with atomic writes.
package storage

import (
	"time"

	"github.com/starford/faf/internal/models"
)

// Provider is the interface for project file operations. Paths are relative
// to the provider's root.
type Provider interface {
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write replaces the file at path all-or-nothing.
	Write(path string, content []byte) error
	// List returns metadata for files matching a glob pattern.
	List(pattern string) ([]models.FileMeta, error)
	// Stat reports whether path exists and its modification time. A missing
	// file is not an error.
	Stat(path string) (models.FileStat, error)
	// Touch sets the modification time of path.
	Touch(path string, mtime time.Time) error
}

// Verify *FS satisfies Provider at compile time.
var _ Provider = (*FS)(nil)
