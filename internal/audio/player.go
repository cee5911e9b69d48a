package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultCommand plays a file with mpv, without a window and without chatter.
const DefaultCommand = "mpv --no-video --really-quiet"

// ErrNoCommand is returned when a command player has nothing to run.
var ErrNoCommand = errors.New("no audio player command configured")

// Player plays a finished audio file and returns once playback is over.
type Player interface {
	Play(ctx context.Context, path string) error
}

// PlaybackError reports a file that could not be played.
type PlaybackError struct {
	Path  string
	Cause error
}

// Error implements the error interface.
func (e *PlaybackError) Error() string {
	return fmt.Sprintf("failed to play audio %s: %v", e.Path, e.Cause)
}

// Unwrap returns the underlying error.
func (e *PlaybackError) Unwrap() error {
	return e.Cause
}

// CommandPlayer plays files through an external program such as mpv or
// afplay. The file path is appended as the last argument.
type CommandPlayer struct {
	name string
	args []string
}

// NewCommandPlayer parses command, e.g. "mpv --no-video", into a player.
func NewCommandPlayer(command string) (*CommandPlayer, error) {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return nil, ErrNoCommand
	}
	return &CommandPlayer{name: parts[0], args: parts[1:]}, nil
}

// Name returns the player executable.
func (p *CommandPlayer) Name() string {
	return p.name
}

// Play runs the player on path and waits for it to exit.
func (p *CommandPlayer) Play(ctx context.Context, path string) error {
	args := append(append([]string(nil), p.args...), path)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.name, args...) //nolint:gosec
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return &PlaybackError{Path: path, Cause: err}
	}

	log.Debug("Played audio", "player", p.name, "path", path, "duration", time.Since(start))
	return nil
}
