//go:build !cgo

package audio

import (
	"context"
	"errors"
)

// ErrNativeUnavailable is returned when vp was built without cgo.
var ErrNativeUnavailable = errors.New("native playback requires a cgo build; use an external player")

// NativePlayer is unavailable without cgo.
type NativePlayer struct{}

// NewNativePlayer always fails without cgo.
func NewNativePlayer() (*NativePlayer, error) {
	return nil, ErrNativeUnavailable
}

// Play always fails without cgo.
func (p *NativePlayer) Play(_ context.Context, path string) error {
	return &PlaybackError{Path: path, Cause: ErrNativeUnavailable}
}
