package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/vp/internal/lock"
)

const (
	// DefaultNarrator is the voice used when none is configured.
	DefaultNarrator = "夏色花梨"

	// DefaultBinary is where VOICEPEAK installs its command-line entry point.
	DefaultBinary = "/Applications/voicepeak.app/Contents/MacOS/voicepeak"

	// DefaultTimeout bounds a single attempt.
	DefaultTimeout = 15 * time.Second

	// DefaultMaxAttempts is the attempt budget for one request.
	DefaultMaxAttempts = 10

	// DefaultBackoff is the fixed pause between attempts.
	DefaultBackoff = 5 * time.Second
)

// Options configures an Invoker.
type Options struct {
	// Binary is the engine executable.
	Binary string

	// LockPath is the file used to serialize engine access system-wide.
	LockPath string

	// Timeout bounds each attempt. The process is killed when it expires.
	Timeout time.Duration

	// MaxAttempts is the number of attempts before giving up.
	MaxAttempts int

	// Backoff is the fixed wait between a failed attempt and the next one.
	Backoff time.Duration

	// Verbose forwards the engine's own output on success.
	Verbose bool

	Stdout io.Writer
	Stderr io.Writer
}

// DefaultOptions returns the stock invoker settings. LockPath is left empty
// and must be supplied by the caller.
func DefaultOptions() Options {
	return Options{
		Binary:      DefaultBinary,
		Timeout:     DefaultTimeout,
		MaxAttempts: DefaultMaxAttempts,
		Backoff:     DefaultBackoff,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
	}
}

// Invoker runs synthesis requests against the engine, one at a time across
// the whole system, retrying failed attempts.
type Invoker struct {
	opts Options
	run  runFunc
	reap reapFunc
}

// NewInvoker returns an invoker. An empty Binary, Timeout or MaxAttempts
// falls back to its default; a zero Backoff retries immediately.
func NewInvoker(opts Options) *Invoker {
	def := DefaultOptions()
	if opts.Binary == "" {
		opts.Binary = def.Binary
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = def.MaxAttempts
	}
	if opts.Backoff < 0 {
		opts.Backoff = 0
	}
	if opts.Stdout == nil {
		opts.Stdout = def.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = def.Stderr
	}
	return &Invoker{
		opts: opts,
		run:  runWithTimeout,
		reap: reapStrays,
	}
}

// Options returns the effective options.
func (inv *Invoker) Options() Options {
	return inv.opts
}

// Invoke synthesizes req. The engine lock is held across every attempt so
// no other invocation can interleave with the retries.
func (inv *Invoker) Invoke(ctx context.Context, req Request) error {
	h, err := lock.Acquire(ctx, inv.opts.LockPath)
	if err != nil {
		return err
	}
	defer h.Release() //nolint:errcheck

	budget := inv.opts.MaxAttempts
	var lastErr error
	for attempt := 1; attempt <= budget; attempt++ {
		out, err := inv.run(ctx, inv.opts.Binary, req.Args(), inv.opts.Timeout)
		if err == nil {
			if inv.opts.Verbose {
				inv.forward(out)
			}
			log.Debug("Synthesized chunk", "attempt", attempt, "output", req.Output(), "chars", len([]rune(req.Text())))
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		lastErr = err
		log.Warn("Engine attempt failed", "attempt", attempt, "max", budget, "error", err)
		if attempt == budget {
			break
		}

		fmt.Fprintf(inv.opts.Stderr, "VOICEPEAK command failed (attempt %d/%d), retrying in %s...\n", //nolint:errcheck
			attempt, budget, inv.opts.Backoff)
		inv.reap(ctx, inv.opts.Binary)

		if err := sleep(ctx, inv.opts.Backoff); err != nil {
			return err
		}
	}

	return exhaustedError(budget, lastErr)
}

// Query runs a single locked engine command that prints information, such
// as the narrator list, and returns its standard output.
func (inv *Invoker) Query(ctx context.Context, args ...string) (string, error) {
	h, err := lock.Acquire(ctx, inv.opts.LockPath)
	if err != nil {
		return "", err
	}
	defer h.Release() //nolint:errcheck

	out, err := inv.run(ctx, inv.opts.Binary, args, inv.opts.Timeout)
	if err != nil {
		return "", err
	}
	return string(out.Stdout), nil
}

// Narrators returns the engine's narrator list.
func (inv *Invoker) Narrators(ctx context.Context) (string, error) {
	return inv.Query(ctx, "--list-narrator")
}

// Emotions returns the emotions a narrator supports.
func (inv *Invoker) Emotions(ctx context.Context, narrator string) (string, error) {
	return inv.Query(ctx, "--list-emotion", narrator)
}

func (inv *Invoker) forward(out *Output) {
	if out == nil {
		return
	}
	if len(out.Stdout) > 0 {
		_, _ = inv.opts.Stdout.Write(out.Stdout)
	}
	if len(out.Stderr) > 0 {
		_, _ = inv.opts.Stderr.Write(out.Stderr)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
