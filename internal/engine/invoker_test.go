package engine

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgnsrekt/vp/internal/lock"
)

// fakeEngine fails its first failures calls and succeeds afterwards.
type fakeEngine struct {
	mu       sync.Mutex
	failures int
	calls    int
	delay    time.Duration
	stdout   string
	spans    []span
}

type span struct{ enter, exit time.Time }

func (f *fakeEngine) run(_ context.Context, _ string, _ []string, _ time.Duration) (*Output, error) {
	enter := time.Now()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.spans = append(f.spans, span{enter: enter, exit: time.Now()})
	if f.calls <= f.failures {
		return nil, &Error{Code: ErrorCodeExit, Message: "VOICEPEAK command failed", ExitCode: 1}
	}
	return &Output{Stdout: []byte(f.stdout), Stderr: []byte("engine log\n")}, nil
}

func newTestInvoker(t *testing.T, fake *fakeEngine, attempts int) (*Invoker, *bytes.Buffer, *bytes.Buffer, *int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	inv := NewInvoker(Options{
		Binary:      "voicepeak",
		LockPath:    filepath.Join(t.TempDir(), "vp.lock"),
		Timeout:     time.Second,
		MaxAttempts: attempts,
		Stdout:      &stdout,
		Stderr:      &stderr,
	})
	reaped := 0
	inv.run = fake.run
	inv.reap = func(context.Context, string) int {
		reaped++
		return 0
	}
	return inv, &stdout, &stderr, &reaped
}

func testRequest(t *testing.T) Request {
	t.Helper()
	req, err := NewBuilder().Text("テスト").Narrator("夏色花梨").Output("out.wav").Build()
	if err != nil {
		t.Fatal(err)
	}
	return req
}

func TestInvoker_SucceedsAfterFailures(t *testing.T) {
	for _, k := range []int{0, 1, 3, 9} {
		fake := &fakeEngine{failures: k}
		inv, _, stderr, reaped := newTestInvoker(t, fake, 10)

		if err := inv.Invoke(context.Background(), testRequest(t)); err != nil {
			t.Fatalf("k=%d: Invoke() error = %v", k, err)
		}
		if fake.calls != k+1 {
			t.Errorf("k=%d: engine called %d times, want %d", k, fake.calls, k+1)
		}
		if *reaped != k {
			t.Errorf("k=%d: reaped %d times, want %d", k, *reaped, k)
		}
		if got := strings.Count(stderr.String(), "retrying"); got != k {
			t.Errorf("k=%d: %d retry notices, want %d", k, got, k)
		}
	}
}

func TestInvoker_ExhaustsAttempts(t *testing.T) {
	fake := &fakeEngine{failures: 1 << 30}
	inv, _, stderr, reaped := newTestInvoker(t, fake, 4)

	err := inv.Invoke(context.Background(), testRequest(t))
	if err == nil {
		t.Fatal("Invoke() succeeded against an engine that always fails")
	}
	if fake.calls != 4 {
		t.Errorf("engine called %d times, want 4", fake.calls)
	}
	if *reaped != 3 {
		t.Errorf("reaped %d times, want 3 (not after the last attempt)", *reaped)
	}

	var engineErr *Error
	if !errors.As(err, &engineErr) || engineErr.Code != ErrorCodeExhausted {
		t.Fatalf("error = %v, want ATTEMPTS_EXHAUSTED", err)
	}
	if engineErr.Attempts != 4 {
		t.Errorf("Attempts = %d, want 4", engineErr.Attempts)
	}
	if engineErr.IsRetryable() {
		t.Error("terminal error should not be retryable")
	}
	if !strings.Contains(err.Error(), "after 4 attempts") || !strings.Contains(err.Error(), "VOICEPEAK command failed") {
		t.Errorf("error message %q should name the attempt count and last cause", err)
	}
	if !strings.Contains(stderr.String(), "attempt 3/4") {
		t.Errorf("stderr %q should report attempt numbers", stderr.String())
	}
}

func TestInvoker_VerboseForwarding(t *testing.T) {
	tests := []struct {
		verbose bool
		want    string
	}{
		{verbose: true, want: "synthesized\n"},
		{verbose: false, want: ""},
	}
	for _, tt := range tests {
		fake := &fakeEngine{stdout: "synthesized\n"}
		inv, stdout, stderr, _ := newTestInvoker(t, fake, 1)
		inv.opts.Verbose = tt.verbose

		if err := inv.Invoke(context.Background(), testRequest(t)); err != nil {
			t.Fatal(err)
		}
		if stdout.String() != tt.want {
			t.Errorf("verbose=%v: stdout = %q, want %q", tt.verbose, stdout.String(), tt.want)
		}
		if tt.verbose && stderr.String() != "engine log\n" {
			t.Errorf("verbose stderr = %q", stderr.String())
		}
	}
}

func TestInvoker_SerializesConcurrentInvocations(t *testing.T) {
	fake := &fakeEngine{delay: 50 * time.Millisecond}
	lockPath := filepath.Join(t.TempDir(), "vp.lock")

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		inv := NewInvoker(Options{Binary: "voicepeak", LockPath: lockPath, MaxAttempts: 1})
		inv.run = fake.run
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := inv.Invoke(context.Background(), testRequest(t)); err != nil {
				t.Errorf("Invoke() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if len(fake.spans) != 3 {
		t.Fatalf("got %d engine runs, want 3", len(fake.spans))
	}
	for i, a := range fake.spans {
		for j, b := range fake.spans {
			if i != j && a.enter.Before(b.exit) && b.enter.Before(a.exit) {
				t.Errorf("engine runs %d and %d overlapped", i, j)
			}
		}
	}
}

func TestInvoker_LockFailureSkipsEngine(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	fake := &fakeEngine{}
	inv := NewInvoker(Options{LockPath: filepath.Join(blocker, "vp.lock")})
	inv.run = fake.run

	err := inv.Invoke(context.Background(), testRequest(t))
	var lockErr *lock.Error
	if !errors.As(err, &lockErr) {
		t.Fatalf("error = %v, want *lock.Error", err)
	}
	if fake.calls != 0 {
		t.Errorf("engine ran %d times despite lock failure", fake.calls)
	}
}

func TestInvoker_CancelledDuringBackoff(t *testing.T) {
	fake := &fakeEngine{failures: 1 << 30}
	inv, _, _, _ := newTestInvoker(t, fake, 5)
	inv.opts.Backoff = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := inv.Invoke(ctx, testRequest(t))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want context.DeadlineExceeded", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("Invoke() did not return promptly after cancellation")
	}
	if fake.calls != 1 {
		t.Errorf("engine called %d times, want 1", fake.calls)
	}
}

func TestInvoker_CancelledWhileWaitingForLock(t *testing.T) {
	for _, name := range []string{"invoke", "query"} {
		t.Run(name, func(t *testing.T) {
			fake := &fakeEngine{}
			inv, _, _, _ := newTestInvoker(t, fake, 3)

			held, err := lock.Acquire(context.Background(), inv.opts.LockPath)
			if err != nil {
				t.Fatal(err)
			}
			defer held.Release() //nolint:errcheck

			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			done := make(chan error, 1)
			go func() {
				if name == "invoke" {
					done <- inv.Invoke(ctx, testRequest(t))
					return
				}
				_, err := inv.Narrators(ctx)
				done <- err
			}()

			select {
			case err := <-done:
				if !errors.Is(err, context.DeadlineExceeded) {
					t.Errorf("error = %v, want context.DeadlineExceeded", err)
				}
				var lockErr *lock.Error
				if !errors.As(err, &lockErr) {
					t.Errorf("error = %T, want *lock.Error", err)
				}
			case <-time.After(5 * time.Second):
				t.Fatal("still blocked on the lock after the context expired")
			}
			if fake.calls != 0 {
				t.Errorf("engine ran %d times without the lock", fake.calls)
			}
		})
	}
}

func TestInvoker_Query(t *testing.T) {
	fake := &fakeEngine{stdout: "夏色花梨\nJapanese Male 1\n"}
	inv, _, _, _ := newTestInvoker(t, fake, 1)

	out, err := inv.Narrators(context.Background())
	if err != nil {
		t.Fatalf("Narrators() error = %v", err)
	}
	if !strings.Contains(out, "夏色花梨") {
		t.Errorf("Narrators() = %q", out)
	}
}

func TestNewInvoker_Defaults(t *testing.T) {
	inv := NewInvoker(Options{LockPath: "x.lock"})
	opts := inv.Options()
	if opts.Binary != DefaultBinary || opts.Timeout != DefaultTimeout || opts.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("defaults not applied: %+v", opts)
	}
	if opts.Backoff != 0 {
		t.Errorf("Backoff = %v, zero value should be kept", opts.Backoff)
	}
}
