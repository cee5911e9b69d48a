package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// waitDelay bounds how long Wait keeps draining output after the process
// has been killed.
const waitDelay = 2 * time.Second

// Output is what a finished engine process left behind.
type Output struct {
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
}

// runFunc runs a single engine attempt.
type runFunc func(ctx context.Context, name string, args []string, timeout time.Duration) (*Output, error)

// runWithTimeout starts and waits for the process on its own goroutine while
// the caller waits on a timer. When the timer fires first the process is
// killed by pid and the attempt fails with ErrTimeout.
func runWithTimeout(ctx context.Context, name string, args []string, timeout time.Duration) (*Output, error) {
	var (
		stdout, stderr bytes.Buffer
		mu             sync.Mutex
		pid            int
		expired        bool
	)

	cmd := exec.Command(name, args...) //nolint:gosec
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		if err := cmd.Start(); err != nil {
			done <- &Error{Code: ErrorCodeStart, Message: "failed to start VOICEPEAK", Cause: err}
			return
		}

		mu.Lock()
		pid = cmd.Process.Pid
		late := expired
		mu.Unlock()
		if late {
			killPID(pid)
		}

		done <- cmd.Wait()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var cause error
	select {
	case err := <-done:
		out := &Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), Duration: time.Since(start)}
		logExecution(name, out.Duration, err)
		return out, classify(err, out)

	case <-timer.C:
		cause = ErrTimeout
		log.Warn("Engine timed out", "command", name, "timeout", timeout)

	case <-ctx.Done():
		cause = ctx.Err()
		log.Debug("Engine cancelled", "command", name, "error", cause)
	}

	mu.Lock()
	expired = true
	target := pid
	mu.Unlock()
	if target != 0 {
		killPID(target)
	}

	// Reap the killed child so it does not linger as a zombie.
	select {
	case <-done:
	case <-time.After(waitDelay):
		log.Warn("Killed engine did not exit", "pid", target)
	}

	if errors.Is(cause, ErrTimeout) {
		return nil, &Error{
			Code:    ErrorCodeTimeout,
			Message: fmt.Sprintf("command timed out after %v", timeout),
			Cause:   ErrTimeout,
		}
	}
	return nil, cause
}

// classify turns the result of Wait into an attempt error.
func classify(err error, out *Output) error {
	if err == nil {
		return nil
	}

	var engineErr *Error
	if errors.As(err, &engineErr) {
		return engineErr
	}

	e := &Error{
		Code:    ErrorCodeExit,
		Message: "VOICEPEAK command failed",
		Cause:   err,
		Stderr:  strings.TrimSpace(string(out.Stderr)),
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		e.ExitCode = exitErr.ExitCode()
	}
	if e.Stderr != "" {
		e.Message = fmt.Sprintf("VOICEPEAK command failed (%s)", firstLine(e.Stderr))
	}
	return e
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func logExecution(command string, duration time.Duration, err error) {
	if err != nil {
		log.Debug("Engine process failed", "command", command, "duration", duration, "error", err)
		return
	}
	log.Debug("Engine process finished", "command", command, "duration", duration)
}
