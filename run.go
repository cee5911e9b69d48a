package main

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/vp/internal/audio"
	"github.com/dgnsrekt/vp/internal/cache"
	"github.com/dgnsrekt/vp/internal/config"
	"github.com/dgnsrekt/vp/internal/engine"
	"github.com/dgnsrekt/vp/internal/envcheck"
	"github.com/dgnsrekt/vp/internal/merge"
	"github.com/dgnsrekt/vp/internal/pipeline"
	"github.com/dgnsrekt/vp/utils"
)

func newInvoker(c *config.Config) (*engine.Invoker, error) {
	binary := utils.ExpandPath(c.Engine.Path)
	if err := envcheck.RequireEngine(binary); err != nil {
		return nil, err
	}
	lockPath, err := c.LockPath()
	if err != nil {
		return nil, err
	}
	return engine.NewInvoker(engine.Options{
		Binary:      binary,
		LockPath:    utils.ExpandPath(lockPath),
		Timeout:     c.Engine.Timeout,
		MaxAttempts: c.Engine.Attempts,
		Backoff:     c.Engine.Backoff,
		Verbose:     verbose,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
	}), nil
}

func newPlayer(c *config.Config) (audio.Player, error) {
	if c.Player.Backend == config.BackendNative {
		return audio.NewNativePlayer()
	}
	return audio.NewCommandPlayer(c.Player.Command)
}

// newPipeline wires the engine, optional cache, player and merger. The
// returned func releases the cache.
func newPipeline(c *config.Config, out io.Writer) (*pipeline.Pipeline, func(), error) {
	inv, err := newInvoker(c)
	if err != nil {
		return nil, nil, err
	}

	player, err := newPlayer(c)
	if err != nil {
		return nil, nil, err
	}

	var synth pipeline.Synthesizer = inv
	closer := func() {}
	if c.Cache.Enabled {
		store, err := openCache(c)
		if err != nil {
			log.Warn("Audio cache disabled", "err", err)
		} else {
			synth = cache.NewSynthesizer(inv, store)
			closer = func() {
				if err := store.Close(); err != nil {
					log.Warn("Could not save cache index", "err", err)
				}
			}
		}
	}

	merger := merge.NewFFmpeg(utils.ExpandPath(c.Merge.FFmpeg), c.Merge.Silence)
	return pipeline.New(synth, player, merger, out), closer, nil
}

func openCache(c *config.Config) (*cache.DiskCache, error) {
	dir, err := c.CacheDir()
	if err != nil {
		return nil, err
	}
	cc := cache.DefaultConfig(utils.ExpandPath(dir))
	cc.Capacity = int64(c.Cache.MaxSize) * 1024 * 1024
	return cache.Open(cc)
}

// playerBinary returns the executable of the configured command player.
func playerBinary(c *config.Config) string {
	if fields := strings.Fields(c.Player.Command); len(fields) > 0 {
		return fields[0]
	}
	return ""
}
