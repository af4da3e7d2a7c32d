package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func startWatcher(t *testing.T, name string) (<-chan struct{}, context.CancelFunc, <-chan error) {
	t.Helper()
	w, err := New(name, 200*time.Millisecond, quiet)
	if err != nil {
		t.Fatal(err)
	}
	calls := make(chan struct{}, 16)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(context.Context) error {
			calls <- struct{}{}
			return nil
		})
	}()
	t.Cleanup(cancel)
	return calls, cancel, done
}

func TestWatcher_Debounce(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "plan.svg")
	if err := os.WriteFile(name, []byte("<svg/>"), 0o644); err != nil {
		t.Fatal(err)
	}
	calls, cancel, done := startWatcher(t, name)

	for i := range 3 {
		if err := os.WriteFile(name, []byte("<svg/>"+string(rune('a'+i))), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case <-calls:
	case <-time.After(5 * time.Second):
		t.Fatal("action not called")
	}
	// the burst gives a single call
	select {
	case <-calls:
		t.Fatal("unexpected second call")
	case <-time.After(600 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher not stopped")
	}
}

func TestWatcher_OtherFiles(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "plan.svg")
	if err := os.WriteFile(name, []byte("<svg/>"), 0o644); err != nil {
		t.Fatal(err)
	}
	calls, _, _ := startWatcher(t, name)

	if err := os.WriteFile(filepath.Join(dir, "other.svg"), []byte("<svg/>"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-calls:
		t.Fatal("unexpected call")
	case <-time.After(600 * time.Millisecond):
	}
}

func TestNew_MissingDirectory(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "missing", "plan.svg"), 0, quiet); err == nil {
		t.Fatal("expected an error")
	}
}
