// Package models defines the file-level types shared across faf packages.
package models

import "time"

// FileMeta describes one file known to a storage provider.
type FileMeta struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FileStat is the result of a stat call: whether the file exists and when it
// was last modified.
type FileStat struct {
	Exists  bool      `json:"exists"`
	ModTime time.Time `json:"mtime"`
	Size    int64     `json:"size"`
}
