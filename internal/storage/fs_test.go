package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func tempProject(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func assertNoTransient(t *testing.T, s *FS, path string) {
	t.Helper()
	for _, suffix := range []string{TempSuffix, BackupSuffix} {
		if _, err := os.Stat(filepath.Join(s.root, path+suffix)); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("leftover %s file for %s", suffix, path)
		}
	}
}

func TestWriteAndRead(t *testing.T) {
	s := tempProject(t)
	content := []byte("project:\n  name: Foo\n")
	if err := s.Write("project.faf", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("project.faf")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
	assertNoTransient(t, s, "project.faf")
}

func TestWriteOverwriteCleansUp(t *testing.T) {
	s := tempProject(t)
	_ = s.Write("CLAUDE.md", []byte("original content"))
	if err := s.Write("CLAUDE.md", []byte("updated content")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("CLAUDE.md")
	if string(got) != "updated content" {
		t.Errorf("expected updated content, got %q", got)
	}
	assertNoTransient(t, s, "CLAUDE.md")
}

func TestWritePreservesMode(t *testing.T) {
	s := tempProject(t)
	abs := filepath.Join(s.root, "script.faf")
	if err := os.WriteFile(abs, []byte("a"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := s.Write("script.faf", []byte("b")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestWriteRenameFailureRestoresOriginal(t *testing.T) {
	s := tempProject(t)
	original := []byte("original content")
	if err := s.Write("CLAUDE.md", original); err != nil {
		t.Fatal(err)
	}
	boom := errors.New("injected rename failure")
	s.ops.rename = func(string, string) error { return boom }

	err := s.Write("CLAUDE.md", []byte("new content that must not land"))
	var werr *WriteError
	if !errors.As(err, &werr) {
		t.Fatalf("err = %v, want *WriteError", err)
	}
	if werr.Op != "rename" || !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
	got, _ := s.Read("CLAUDE.md")
	if string(got) != string(original) {
		t.Errorf("target = %q, want original", got)
	}
	assertNoTransient(t, s, "CLAUDE.md")
}

func TestWriteFailureOnNewFileLeavesNothing(t *testing.T) {
	s := tempProject(t)
	s.ops.rename = func(string, string) error { return errors.New("disk gone") }

	if err := s.Write("project.faf", []byte("x: 1\n")); err == nil {
		t.Fatal("expected error")
	}
	st, err := s.Stat("project.faf")
	if err != nil {
		t.Fatal(err)
	}
	if st.Exists {
		t.Error("target should not exist after failed first write")
	}
	assertNoTransient(t, s, "project.faf")
}

func TestWriteVerifyMismatchRollsBack(t *testing.T) {
	s := tempProject(t)
	original := []byte("keep me")
	_ = s.Write("project.faf", original)

	s.ops.writeFile = func(name string, data []byte, perm os.FileMode) error {
		return os.WriteFile(name, data[:len(data)/2], perm)
	}
	err := s.Write("project.faf", []byte("a much longer replacement body"))
	if !errors.Is(err, ErrVerifyMismatch) {
		t.Fatalf("err = %v, want ErrVerifyMismatch", err)
	}
	got, _ := s.Read("project.faf")
	if string(got) != string(original) {
		t.Errorf("target = %q, want original", got)
	}
	assertNoTransient(t, s, "project.faf")
}

func TestWriteTempFailure(t *testing.T) {
	s := tempProject(t)
	_ = s.Write("project.faf", []byte("v1"))
	s.ops.writeFile = func(string, []byte, os.FileMode) error { return errors.New("no space left on device") }

	err := s.Write("project.faf", []byte("v2"))
	var werr *WriteError
	if !errors.As(err, &werr) || werr.Op != "write temp" {
		t.Fatalf("err = %v", err)
	}
	got, _ := s.Read("project.faf")
	if string(got) != "v1" {
		t.Errorf("target = %q, want v1", got)
	}
	assertNoTransient(t, s, "project.faf")
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempProject(t)
	if err := s.Write("docs/ai/CLAUDE.md", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("docs/ai/CLAUDE.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestTouch(t *testing.T) {
	s := tempProject(t)
	_ = s.Write("a.md", []byte("x"))
	want := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := s.Touch("a.md", want); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	st, err := s.Stat("a.md")
	if err != nil {
		t.Fatal(err)
	}
	if !st.ModTime.Equal(want) {
		t.Errorf("mtime = %v, want %v", st.ModTime, want)
	}
	if err := s.Touch("../escape.md", want); err == nil {
		t.Error("expected traversal error")
	}
}

func TestStat(t *testing.T) {
	s := tempProject(t)
	st, err := s.Stat("missing.md")
	if err != nil {
		t.Fatalf("Stat missing: %v", err)
	}
	if st.Exists {
		t.Error("missing file reported as existing")
	}
	_ = s.Write("here.md", []byte("abc"))
	st, err = s.Stat("here.md")
	if err != nil {
		t.Fatal(err)
	}
	if !st.Exists || st.Size != 3 || st.ModTime.IsZero() {
		t.Errorf("stat = %+v", st)
	}
}

func TestList(t *testing.T) {
	s := tempProject(t)
	_ = s.Write("project.faf", []byte("a"))
	_ = s.Write("other.faf", []byte("b"))
	_ = s.Write("CLAUDE.md", []byte("c"))
	_ = os.MkdirAll(filepath.Join(s.root, "dir.faf"), 0o755)

	items, err := s.List("*.faf")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].Path != "other.faf" || items[1].Path != "project.faf" {
		t.Errorf("paths = %s, %s", items[0].Path, items[1].Path)
	}
	if items[0].Checksum == "" {
		t.Error("missing checksum")
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempProject(t)
	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "does-not-exist"))
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp(t.TempDir(), "faf-test-*")
	_ = f.Close()
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
