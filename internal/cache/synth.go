package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/vp/internal/engine"
	"github.com/dustin/go-humanize"
)

// Invoker synthesizes a request into its output file.
type Invoker interface {
	Invoke(ctx context.Context, req engine.Request) error
}

// Synthesizer serves requests from the cache and falls through to the
// engine on a miss, storing what the engine produced.
type Synthesizer struct {
	next  Invoker
	store *DiskCache
}

// NewSynthesizer wraps next with store.
func NewSynthesizer(next Invoker, store *DiskCache) *Synthesizer {
	return &Synthesizer{next: next, store: store}
}

// Invoke writes the audio for req to req.Output().
func (s *Synthesizer) Invoke(ctx context.Context, req engine.Request) error {
	key := Key(req)

	if data, ok := s.store.Get(key); ok {
		if err := os.WriteFile(req.Output(), data, 0o600); err != nil {
			return fmt.Errorf("failed to restore cached audio: %w", err)
		}
		log.Debug("Cache hit", "key", key[:12], "size", humanize.Bytes(uint64(len(data))))
		return nil
	}

	if err := s.next.Invoke(ctx, req); err != nil {
		return err
	}

	data, err := os.ReadFile(req.Output())
	if err != nil {
		log.Warn("Synthesized audio not cached", "err", err)
		return nil
	}
	if err := s.store.Put(key, data); err != nil {
		log.Warn("Synthesized audio not cached", "err", err)
		return nil
	}
	log.Debug("Cached audio", "key", key[:12], "size", humanize.Bytes(uint64(len(data))))
	return nil
}

// Key identifies the audio a request produces. The output path is not
// part of it.
func Key(req engine.Request) string {
	h := sha256.New()
	write := func(s string) {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}

	write("v1")
	write(req.Text())
	write(req.Narrator())
	write(req.Emotion())
	if v, ok := req.Speed(); ok {
		write("speed=" + strconv.Itoa(v))
	} else {
		write("speed=")
	}
	if v, ok := req.Pitch(); ok {
		write("pitch=" + strconv.Itoa(v))
	} else {
		write("pitch=")
	}
	return hex.EncodeToString(h.Sum(nil))
}
