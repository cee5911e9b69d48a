package audio

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// MockPlayer implements Player for testing purposes.
// It records what would have been played without producing sound.
type MockPlayer struct {
	mu       sync.Mutex
	paths    []string
	contents [][]byte

	// Test callbacks
	callbacks MockCallbacks

	// Test configuration
	failOn map[int]error
	delay  time.Duration

	// Metrics for testing
	playCount   atomic.Int64
	failCount   atomic.Int64
	cancelCount atomic.Int64
}

// MockCallbacks provides hooks for testing.
type MockCallbacks struct {
	OnPlay func(path string, audio []byte)
}

// MockPlayerMetrics summarizes calls made to a MockPlayer.
type MockPlayerMetrics struct {
	PlayCount   int64
	FailCount   int64
	CancelCount int64
}

// NewMockPlayer creates a mock player with optional callbacks.
func NewMockPlayer(callbacks MockCallbacks) *MockPlayer {
	return &MockPlayer{callbacks: callbacks, failOn: map[int]error{}}
}

// FailOn makes the n-th Play call (1-based) return err.
func (mp *MockPlayer) FailOn(n int, err error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.failOn[n] = err
}

// SetDelay makes every Play call block for d, or until ctx is done.
func (mp *MockPlayer) SetDelay(d time.Duration) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.delay = d
}

// Play records path and a copy of its contents at the time of the call.
func (mp *MockPlayer) Play(ctx context.Context, path string) error {
	n := int(mp.playCount.Add(1))

	mp.mu.Lock()
	failure, delay := mp.failOn[n], mp.delay
	mp.mu.Unlock()

	if failure != nil {
		mp.failCount.Add(1)
		return &PlaybackError{Path: path, Cause: failure}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		mp.failCount.Add(1)
		return &PlaybackError{Path: path, Cause: err}
	}

	if delay > 0 {
		select {
		case <-ctx.Done():
			mp.cancelCount.Add(1)
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	mp.mu.Lock()
	mp.paths = append(mp.paths, path)
	mp.contents = append(mp.contents, data)
	mp.mu.Unlock()

	if mp.callbacks.OnPlay != nil {
		mp.callbacks.OnPlay(path, data)
	}
	return nil
}

// Played returns the paths played successfully, in order.
func (mp *MockPlayer) Played() []string {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return append([]string(nil), mp.paths...)
}

// Contents returns the bytes of each played file, in order.
func (mp *MockPlayer) Contents() [][]byte {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return append([][]byte(nil), mp.contents...)
}

// GetMetrics returns call counters.
func (mp *MockPlayer) GetMetrics() MockPlayerMetrics {
	return MockPlayerMetrics{
		PlayCount:   mp.playCount.Load(),
		FailCount:   mp.failCount.Load(),
		CancelCount: mp.cancelCount.Load(),
	}
}

// ErrMockPlayback is a convenience error for FailOn.
var ErrMockPlayback = errors.New("simulated playback error")
