package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func start(t *testing.T, path string, opts Options, fn Func) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	opts.Ready = ready
	done := make(chan error, 1)
	go func() { done <- File(ctx, path, opts, fn) }()

	select {
	case <-ready:
	case err := <-done:
		cancel()
		t.Fatalf("watch exited early: %v", err)
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("watch never became ready")
	}
	return cancel, done
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestFileCallsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "speech.txt")
	write(t, path, "first")

	calls := make(chan struct{}, 10)
	cancel, done := start(t, path, Options{Interval: 10 * time.Millisecond}, func(context.Context) error {
		calls <- struct{}{}
		return nil
	})
	defer cancel()

	write(t, path, "second")
	select {
	case <-calls:
	case <-time.After(5 * time.Second):
		t.Fatal("expected a call after writing the file")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil error on cancel, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop on cancel")
	}
}

func TestFileIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "speech.txt")
	write(t, path, "first")

	calls := make(chan struct{}, 10)
	cancel, _ := start(t, path, Options{Interval: 10 * time.Millisecond}, func(context.Context) error {
		calls <- struct{}{}
		return nil
	})
	defer cancel()

	write(t, filepath.Join(dir, "other.txt"), "noise")
	select {
	case <-calls:
		t.Fatal("unexpected call for an unrelated file")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestFileStopsOnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "speech.txt")
	write(t, path, "first")

	boom := errors.New("boom")
	cancel, done := start(t, path, Options{Interval: 10 * time.Millisecond}, func(context.Context) error {
		return boom
	})
	defer cancel()

	write(t, path, "second")
	select {
	case err := <-done:
		if !errors.Is(err, boom) {
			t.Errorf("expected boom, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after a failed run")
	}
}

func TestFileKeepGoing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "speech.txt")
	write(t, path, "first")

	calls := make(chan struct{}, 10)
	opts := Options{Interval: 10 * time.Millisecond, KeepGoing: true}
	cancel, done := start(t, path, opts, func(context.Context) error {
		calls <- struct{}{}
		return errors.New("engine failed")
	})
	defer cancel()

	for i := 0; i < 2; i++ {
		write(t, path, "again")
		select {
		case <-calls:
		case err := <-done:
			t.Fatalf("watch stopped: %v", err)
		case <-time.After(5 * time.Second):
			t.Fatalf("expected call %d", i+1)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestRelevant(t *testing.T) {
	path := filepath.Join(string(filepath.Separator), "tmp", "speech.txt")
	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"write", fsnotify.Event{Name: path, Op: fsnotify.Write}, true},
		{"create", fsnotify.Event{Name: path, Op: fsnotify.Create}, true},
		{"chmod", fsnotify.Event{Name: path, Op: fsnotify.Chmod}, false},
		{"remove", fsnotify.Event{Name: path, Op: fsnotify.Remove}, false},
		{"other file", fsnotify.Event{Name: path + ".swp", Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := relevant(tt.event, path); got != tt.want {
				t.Errorf("relevant(%v) = %v, want %v", tt.event, got, tt.want)
			}
		})
	}
}
