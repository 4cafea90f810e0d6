package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

type recorder struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *recorder) cb(_ context.Context, changed []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, changed)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func startWatch(t *testing.T, dir string, rec *recorder) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, dir, []string{"project.faf", "CLAUDE.md"}, 50*time.Millisecond, logger, rec.cb)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(100 * time.Millisecond)
}

func TestWatch_DebouncesBurst(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	startWatch(t, dir, rec)

	for i := 0; i < 5; i++ {
		_ = os.WriteFile(filepath.Join(dir, "project.faf"), []byte("project:\n  name: x\n"), 0o644)
	}

	eventually(t, 3*time.Second, 20*time.Millisecond, func() bool { return rec.count() >= 1 }, "callback never ran")
	time.Sleep(200 * time.Millisecond)
	if n := rec.count(); n != 1 {
		t.Errorf("callback ran %d times, want 1", n)
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.calls[0]) != 1 || rec.calls[0][0] != "project.faf" {
		t.Errorf("changed = %v", rec.calls[0])
	}
}

func TestWatch_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	startWatch(t, dir, rec)

	_ = os.WriteFile(filepath.Join(dir, "README.md"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "CLAUDE.md.tmp"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "CLAUDE.md.backup"), []byte("x"), 0o644)

	time.Sleep(300 * time.Millisecond)
	if n := rec.count(); n != 0 {
		t.Errorf("callback ran %d times for unrelated files", n)
	}
}

func TestWatch_AtomicRenameSeen(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	startWatch(t, dir, rec)

	tmp := filepath.Join(dir, "CLAUDE.md.tmp")
	_ = os.WriteFile(tmp, []byte("# CLAUDE.md - x\n"), 0o644)
	if err := os.Rename(tmp, filepath.Join(dir, "CLAUDE.md")); err != nil {
		t.Fatal(err)
	}

	eventually(t, 3*time.Second, 20*time.Millisecond, func() bool { return rec.count() >= 1 }, "rename into place not observed")
}

func TestWatch_StopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- Watch(ctx, dir, []string{"CLAUDE.md"}, 0, slog.New(slog.DiscardHandler), func(context.Context, []string) {})
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not stop")
	}
}

func TestWatch_MissingRoot(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "nope"), nil, 0, slog.New(slog.DiscardHandler), nil)
	if err == nil {
		t.Error("expected error for missing root")
	}
}
