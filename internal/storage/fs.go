package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/starford/faf/internal/checksum"
	"github.com/starford/faf/internal/models"
)

// Suffixes of the transient files created around an atomic write.
const (
	TempSuffix   = ".tmp"
	BackupSuffix = ".backup"
)

// ErrVerifyMismatch means the temp file read back differs from what was
// written, e.g. a full disk truncated it.
var ErrVerifyMismatch = errors.New("written content does not match")

// WriteError is returned by Write after rollback has been attempted.
type WriteError struct {
	Op   string
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// fileOps are the file-system calls Write depends on; tests replace them to
// inject failures between steps.
type fileOps struct {
	writeFile func(name string, data []byte, perm os.FileMode) error
	rename    func(oldpath, newpath string) error
}

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to the project root
	ops  fileOps
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs, ops: fileOps{writeFile: writeSynced, rename: os.Rename}}, nil
}

// Root returns the absolute project root.
func (f *FS) Root() string {
	return f.root
}

// safePath resolves a relative path against the root and rejects any result
// that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	abs, err := filepath.Abs(filepath.Join(f.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes project root: %s", rel)
	}
	return abs, nil
}

// Read returns the raw bytes of a project file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// Stat reports existence and modification time of path.
func (f *FS) Stat(path string) (models.FileStat, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return models.FileStat{}, err
	}
	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return models.FileStat{}, nil
	}
	if err != nil {
		return models.FileStat{}, fmt.Errorf("storage: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return models.FileStat{}, fmt.Errorf("storage: %s is a directory", path)
	}
	return models.FileStat{Exists: true, ModTime: info.ModTime(), Size: info.Size()}, nil
}

// List returns metadata for every regular file matching pattern, sorted by path.
func (f *FS) List(pattern string) ([]models.FileMeta, error) {
	if _, err := f.safePath(pattern); err != nil {
		return nil, err
	}
	matches, err := filepath.Glob(filepath.Join(f.root, pattern))
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", pattern, err)
	}
	sort.Strings(matches)
	var out []models.FileMeta
	for _, p := range matches {
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("storage: list: %w", err)
		}
		rel, _ := filepath.Rel(f.root, p)
		out = append(out, models.FileMeta{
			Path:      rel,
			Checksum:  checksum.Sum(data),
			Size:      info.Size(),
			UpdatedAt: info.ModTime(),
		})
	}
	return out, nil
}

// Write replaces path with content so that readers observe either the old or
// the new bytes, never a partial file:
//
//  1. copy an existing target to <path>.backup
//  2. write content to <path>.tmp and fsync it
//  3. read <path>.tmp back and compare
//  4. rename <path>.tmp over path
//  5. remove the backup
//
// Any failure in 2-4 removes the temp file and restores the backup before
// returning a *WriteError.
func (f *FS) Write(path string, content []byte) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return &WriteError{Op: "mkdir", Path: path, Err: err}
	}

	tmp := abs + TempSuffix
	backup := abs + BackupSuffix
	perm := os.FileMode(0o644)

	hasBackup := false
	info, err := os.Stat(abs)
	switch {
	case err == nil:
		perm = info.Mode().Perm()
		if err := copyFile(abs, backup, perm); err != nil {
			_ = os.Remove(backup)
			return &WriteError{Op: "backup", Path: path, Err: err}
		}
		hasBackup = true
	case !errors.Is(err, fs.ErrNotExist):
		return &WriteError{Op: "stat", Path: path, Err: err}
	}

	rollback := func(op string, cause error) error {
		_ = os.Remove(tmp)
		if hasBackup {
			if rerr := os.Rename(backup, abs); rerr != nil {
				cause = errors.Join(cause, fmt.Errorf("restore backup: %w", rerr))
			}
		}
		return &WriteError{Op: op, Path: path, Err: cause}
	}

	if err := f.ops.writeFile(tmp, content, perm); err != nil {
		return rollback("write temp", err)
	}
	written, err := os.ReadFile(tmp)
	if err != nil {
		return rollback("verify", err)
	}
	if !bytes.Equal(written, content) {
		return rollback("verify", ErrVerifyMismatch)
	}
	if err := f.ops.rename(tmp, abs); err != nil {
		return rollback("rename", err)
	}
	if hasBackup {
		_ = os.Remove(backup)
	}
	return nil
}

// Touch sets the access and modification times of path to mtime.
func (f *FS) Touch(path string, mtime time.Time) error {
	abs, err := f.safePath(path)
	if err != nil {
		return err
	}
	if err := os.Chtimes(abs, mtime, mtime); err != nil {
		return fmt.Errorf("storage: touch %s: %w", path, err)
	}
	return nil
}

func writeSynced(name string, data []byte, perm os.FileMode) error {
	fh, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := fh.Write(data); err != nil {
		_ = fh.Close()
		return err
	}
	if err := fh.Sync(); err != nil {
		_ = fh.Close()
		return err
	}
	return fh.Close()
}

func copyFile(src, dst string, perm os.FileMode) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return writeSynced(dst, data, perm)
}
