// Package merge joins synthesized segments into one audio file with ffmpeg,
// placing a short silence between consecutive segments.
package merge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/otiai10/copy"
)

const (
	// DefaultBinary is the ffmpeg executable looked up on PATH.
	DefaultBinary = "ffmpeg"

	// DefaultSilence separates consecutive segments.
	DefaultSilence = time.Second

	// silenceSource matches the engine's mono 44.1 kHz output so the
	// segments can be stream-copied without re-encoding.
	silenceSource = "anullsrc=channel_layout=mono:sample_rate=44100"
)

// ErrNoInputs is returned when Merge is given nothing to merge.
var ErrNoInputs = errors.New("no input files provided")

// Error reports a missing merge tool or a failed merge step.
type Error struct {
	Op    string
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("merge %s: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Merger assembles segment files into a single output.
type Merger interface {
	// Available reports whether multi-segment merges can run.
	Available(ctx context.Context) error

	// Merge writes inputs, in order, to output.
	Merge(ctx context.Context, inputs []string, output string) error
}

// runFunc runs ffmpeg with args and returns its combined output.
type runFunc func(ctx context.Context, binary string, args ...string) ([]byte, error)

// FFmpeg merges with the ffmpeg concat demuxer.
type FFmpeg struct {
	binary  string
	silence time.Duration
	run     runFunc
}

// NewFFmpeg returns a merger using binary, inserting silence between
// segments. Empty values use the defaults.
func NewFFmpeg(binary string, silence time.Duration) *FFmpeg {
	if binary == "" {
		binary = DefaultBinary
	}
	if silence <= 0 {
		silence = DefaultSilence
	}
	return &FFmpeg{binary: binary, silence: silence, run: run}
}

// Available runs a trivial ffmpeg invocation.
func (f *FFmpeg) Available(ctx context.Context) error {
	if _, err := f.run(ctx, f.binary, "-version", "-loglevel", "error"); err != nil {
		return &Error{
			Op:    "check",
			Cause: fmt.Errorf("ffmpeg is required to merge multiple parts (install it with `brew install ffmpeg`): %w", err),
		}
	}
	return nil
}

// Merge concatenates inputs into output with silence between them. A single
// input is copied as is.
func (f *FFmpeg) Merge(ctx context.Context, inputs []string, output string) error {
	switch len(inputs) {
	case 0:
		return &Error{Op: "concat", Cause: ErrNoInputs}
	case 1:
		if err := copy.Copy(inputs[0], output); err != nil {
			return &Error{Op: "copy", Cause: err}
		}
		return nil
	}

	work, err := os.MkdirTemp("", "vp-merge-*")
	if err != nil {
		return &Error{Op: "concat", Cause: err}
	}
	defer os.RemoveAll(work) //nolint:errcheck

	silence := filepath.Join(work, "silence.wav")
	if err := f.generateSilence(ctx, silence); err != nil {
		return err
	}

	list := filepath.Join(work, "concat_list.txt")
	if err := WriteConcatList(list, ConcatEntries(inputs, silence)); err != nil {
		return &Error{Op: "concat", Cause: err}
	}

	start := time.Now()
	if out, err := f.run(ctx, f.binary,
		"-f", "concat",
		"-safe", "0",
		"-i", list,
		"-c", "copy",
		"-y",
		"-loglevel", "error",
		output,
	); err != nil {
		return &Error{Op: "concat", Cause: withOutput(err, out)}
	}

	log.Debug("Merged segments", "count", len(inputs), "output", output, "duration", time.Since(start))
	return nil
}

func (f *FFmpeg) generateSilence(ctx context.Context, path string) error {
	out, err := f.run(ctx, f.binary,
		"-f", "lavfi",
		"-i", silenceSource,
		"-t", formatSeconds(f.silence),
		"-y",
		"-loglevel", "error",
		path,
	)
	if err != nil {
		return &Error{Op: "silence", Cause: withOutput(err, out)}
	}
	return nil
}

// ConcatEntries interleaves silence between inputs: never before the first
// input or after the last.
func ConcatEntries(inputs []string, silence string) []string {
	entries := make([]string, 0, 2*len(inputs))
	for i, in := range inputs {
		if i > 0 {
			entries = append(entries, silence)
		}
		entries = append(entries, in)
	}
	return entries
}

// WriteConcatList writes a concat demuxer list naming each path in order.
func WriteConcatList(path string, entries []string) error {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString("file '")
		b.WriteString(escapeQuoted(e))
		b.WriteString("'\n")
	}
	return os.WriteFile(path, []byte(b.String()), 0o600)
}

// escapeQuoted escapes a path for a single-quoted concat list entry.
func escapeQuoted(s string) string {
	return strings.ReplaceAll(s, "'", `'\''`)
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

func withOutput(err error, out []byte) error {
	if msg := strings.TrimSpace(string(out)); msg != "" {
		return fmt.Errorf("%w: %s", err, msg)
	}
	return err
}

func run(ctx context.Context, binary string, args ...string) ([]byte, error) {
	var buf bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return buf.Bytes(), err
}
