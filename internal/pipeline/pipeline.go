// Package pipeline turns chunks of text into speech: each chunk is
// synthesized into a temporary WAV, then played one at a time or merged
// with silence into a single stream that is played or saved.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/vp/internal/audio"
	"github.com/dgnsrekt/vp/internal/engine"
	"github.com/dgnsrekt/vp/internal/merge"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/truncate"
	"github.com/schollz/progressbar/v3"
)

const previewWidth = 40

// ErrNoChunks is returned when Run is given nothing to speak.
var ErrNoChunks = errors.New("no text to speak")

// Mode selects how multiple chunks are delivered.
type Mode int

const (
	// Sequential plays each chunk as soon as it is synthesized.
	Sequential Mode = iota
	// Batch synthesizes every chunk, then plays one merged stream.
	Batch
)

// ParseMode parses "sequential" or "batch".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sequential":
		return Sequential, nil
	case "batch":
		return Batch, nil
	}
	return Sequential, fmt.Errorf("unknown playback mode %q (want sequential or batch)", s)
}

func (m Mode) String() string {
	if m == Batch {
		return "batch"
	}
	return "sequential"
}

// Destination is where the final audio goes: the player, or a file.
type Destination struct {
	path string
}

// Play sends audio to the player.
func Play() Destination {
	return Destination{}
}

// SaveTo writes audio to path instead of playing it.
func SaveTo(path string) Destination {
	return Destination{path: path}
}

// IsFile reports whether audio is saved rather than played.
func (d Destination) IsFile() bool {
	return d.path != ""
}

// Path returns the output file, or "" for playback.
func (d Destination) Path() string {
	return d.path
}

// Synthesizer renders one request into its output file.
type Synthesizer interface {
	Invoke(ctx context.Context, req engine.Request) error
}

// Error reports the chunk a run failed on.
type Error struct {
	Part  int
	Total int
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("part %d/%d: %v", e.Part, e.Total, e.Cause)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Pipeline runs chunks through synthesis, then playback or merging.
type Pipeline struct {
	synth  Synthesizer
	player audio.Player
	merger merge.Merger
	out    io.Writer

	newWorkspace func() (*audio.Workspace, error)
}

// New returns a pipeline. Progress is written to out.
func New(synth Synthesizer, player audio.Player, merger merge.Merger, out io.Writer) *Pipeline {
	if out == nil {
		out = io.Discard
	}
	return &Pipeline{
		synth:        synth,
		player:       player,
		merger:       merger,
		out:          out,
		newWorkspace: audio.NewWorkspace,
	}
}

// NeedsMerge reports whether a run must merge segments, and therefore
// needs the merge tool.
func NeedsMerge(chunks int, mode Mode, dest Destination) bool {
	return mode == Batch || (dest.IsFile() && chunks > 1)
}

// Run speaks chunks, in order, with voice. Temporary artifacts are removed
// on every path; a saved file is kept.
func (p *Pipeline) Run(ctx context.Context, chunks []string, voice engine.Voice, mode Mode, dest Destination) error {
	if len(chunks) == 0 {
		return ErrNoChunks
	}

	if NeedsMerge(len(chunks), mode, dest) {
		if err := p.merger.Available(ctx); err != nil {
			return err
		}
	}

	ws, err := p.newWorkspace()
	if err != nil {
		return err
	}
	defer ws.Close() //nolint:errcheck

	log.Debug("Running pipeline", "chunks", len(chunks), "mode", mode, "file", dest.Path())

	if mode == Sequential && !dest.IsFile() {
		return p.playEach(ctx, ws, chunks, voice)
	}
	return p.assemble(ctx, ws, chunks, voice, dest)
}

func (p *Pipeline) playEach(ctx context.Context, ws *audio.Workspace, chunks []string, voice engine.Voice) error {
	total := len(chunks)
	for i, text := range chunks {
		if total > 1 {
			fmt.Fprintf(p.out, "Playing part %d/%d: %s\n", i+1, total, preview(text))
		}

		part := ws.Part(i)
		err := p.synthesize(ctx, text, voice, part)
		if err == nil {
			err = p.player.Play(ctx, part)
		}
		ws.Remove(part)
		if err != nil {
			return &Error{Part: i + 1, Total: total, Cause: err}
		}
	}
	return nil
}

func (p *Pipeline) assemble(ctx context.Context, ws *audio.Workspace, chunks []string, voice engine.Voice, dest Destination) error {
	total := len(chunks)
	parts := make([]string, 0, total)
	defer func() {
		for _, part := range parts {
			ws.Remove(part)
		}
	}()

	var bar *progressbar.ProgressBar
	if total > 1 {
		bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetDescription("Synthesizing"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	for i, text := range chunks {
		part := ws.Part(i)
		parts = append(parts, part)
		if err := p.synthesize(ctx, text, voice, part); err != nil {
			return &Error{Part: i + 1, Total: total, Cause: err}
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}

	final := dest.Path()
	if !dest.IsFile() {
		final = ws.Merged()
		defer ws.Remove(final)
	}
	if err := p.merger.Merge(ctx, parts, final); err != nil {
		return err
	}
	for _, part := range parts {
		ws.Remove(part)
	}
	parts = nil

	if dest.IsFile() {
		if info, err := audio.Probe(final); err == nil {
			log.Info("Saved audio", "path", final, "duration", info.Duration, "size", humanize.Bytes(uint64(info.Size))) //nolint:gosec
		}
		fmt.Fprintf(p.out, "Saved to %s\n", final)
		return nil
	}
	return p.player.Play(ctx, final)
}

func (p *Pipeline) synthesize(ctx context.Context, text string, voice engine.Voice, out string) error {
	req, err := engine.NewBuilder().Voice(voice).Text(text).Output(out).Build()
	if err != nil {
		return err
	}
	if err := p.synth.Invoke(ctx, req); err != nil {
		return err
	}
	if info, err := audio.Probe(out); err == nil {
		log.Debug("Synthesized part", "path", out, "duration", info.Duration, "size", humanize.Bytes(uint64(info.Size))) //nolint:gosec
	}
	return nil
}

func preview(text string) string {
	return truncate.StringWithTail(strings.Join(strings.Fields(text), " "), previewWidth, "…")
}
