//go:build cgo

package audio

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

// oto allows a single context per process, fixed to the format of the
// first file played.
var (
	otoMu       sync.Mutex
	otoCtx      *oto.Context
	otoRate     int
	otoChannels int
)

// NativePlayer plays WAV files in-process through the system audio device.
type NativePlayer struct{}

// NewNativePlayer returns an in-process player.
func NewNativePlayer() (*NativePlayer, error) {
	return &NativePlayer{}, nil
}

// Play decodes path and blocks until it has been played.
func (p *NativePlayer) Play(ctx context.Context, path string) error {
	pcm, info, err := decodePCM16(path)
	if err != nil {
		return &PlaybackError{Path: path, Cause: err}
	}

	octx, err := context16(info.SampleRate, info.Channels)
	if err != nil {
		return &PlaybackError{Path: path, Cause: err}
	}

	player := octx.NewPlayer(bytes.NewReader(pcm))
	defer player.Close() //nolint:errcheck

	player.Play()
	log.Debug("Playing audio", "path", path, "duration", info.Duration, "rate", info.SampleRate)

	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-tick.C:
		}
	}
	return nil
}

func context16(rate, channels int) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		if rate != otoRate || channels != otoChannels {
			return nil, fmt.Errorf("audio device opened at %d Hz/%d ch, file is %d Hz/%d ch",
				otoRate, otoChannels, rate, channels)
		}
		return otoCtx, nil
	}

	c, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   rate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-ready

	otoCtx, otoRate, otoChannels = c, rate, channels
	return c, nil
}
