// Package config loads vp settings and voice presets through viper and
// resolves command-line voice options into an engine voice.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgnsrekt/vp/internal/audio"
	"github.com/dgnsrekt/vp/internal/chunk"
	"github.com/dgnsrekt/vp/internal/engine"
	"github.com/dgnsrekt/vp/internal/merge"
	"github.com/spf13/viper"
)

// Speed and pitch bounds accepted by VOICEPEAK.
const (
	MinSpeed = 50
	MaxSpeed = 200
	MinPitch = -300
	MaxPitch = 300
)

// Player backends.
const (
	BackendCommand = "command"
	BackendNative  = "native"
)

// Config is the full vp configuration.
type Config struct {
	DefaultPreset   string         `mapstructure:"default_preset"`
	DefaultNarrator string         `mapstructure:"default_narrator"`
	Presets         []Preset       `mapstructure:"presets"`
	Engine          EngineConfig   `mapstructure:"engine"`
	Player          PlayerConfig   `mapstructure:"player"`
	Merge           MergeConfig    `mapstructure:"merge"`
	Playback        PlaybackConfig `mapstructure:"playback"`
	MaxChars        int            `mapstructure:"max_chars"`
	Cache           CacheConfig    `mapstructure:"cache"`
}

// EngineConfig controls how VOICEPEAK is run.
type EngineConfig struct {
	Path     string        `mapstructure:"path"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Attempts int           `mapstructure:"attempts"`
	Backoff  time.Duration `mapstructure:"backoff"`
	Lock     string        `mapstructure:"lock"`
}

// PlayerConfig selects the audio player.
type PlayerConfig struct {
	Backend string `mapstructure:"backend"`
	Command string `mapstructure:"command"`
}

// MergeConfig configures ffmpeg merging.
type MergeConfig struct {
	FFmpeg  string        `mapstructure:"ffmpeg"`
	Silence time.Duration `mapstructure:"silence"`
}

// PlaybackConfig holds the default playback mode.
type PlaybackConfig struct {
	Mode string `mapstructure:"mode"`
}

// CacheConfig configures the synthesized audio cache.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
	MaxSize int    `mapstructure:"max_size"` // MB
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("default_preset", "")
	v.SetDefault("default_narrator", engine.DefaultNarrator)
	v.SetDefault("engine.path", engine.DefaultBinary)
	v.SetDefault("engine.timeout", engine.DefaultTimeout)
	v.SetDefault("engine.attempts", engine.DefaultMaxAttempts)
	v.SetDefault("engine.backoff", engine.DefaultBackoff)
	v.SetDefault("engine.lock", "")
	v.SetDefault("player.backend", BackendCommand)
	v.SetDefault("player.command", audio.DefaultCommand)
	v.SetDefault("merge.ffmpeg", merge.DefaultBinary)
	v.SetDefault("merge.silence", merge.DefaultSilence)
	v.SetDefault("playback.mode", "sequential")
	v.SetDefault("max_chars", chunk.MaxChars)
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.dir", "")
	v.SetDefault("cache.max_size", 512)
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks value ranges and preset consistency.
func (c *Config) Validate() error {
	var errs []error
	if c.DefaultNarrator == "" {
		errs = append(errs, errors.New("default_narrator must not be empty"))
	}
	if c.Engine.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("engine.timeout must be positive, got %s", c.Engine.Timeout))
	}
	if c.Engine.Attempts < 1 {
		errs = append(errs, fmt.Errorf("engine.attempts must be at least 1, got %d", c.Engine.Attempts))
	}
	if c.Engine.Backoff < 0 {
		errs = append(errs, fmt.Errorf("engine.backoff must not be negative, got %s", c.Engine.Backoff))
	}
	if c.MaxChars < 1 {
		errs = append(errs, fmt.Errorf("max_chars must be at least 1, got %d", c.MaxChars))
	}
	if c.Cache.MaxSize < 1 || c.Cache.MaxSize > 10000 {
		errs = append(errs, fmt.Errorf("cache.max_size must be between 1 and 10000 MB, got %d", c.Cache.MaxSize))
	}
	switch c.Player.Backend {
	case BackendCommand, BackendNative:
	default:
		errs = append(errs, fmt.Errorf("player.backend must be %q or %q, got %q", BackendCommand, BackendNative, c.Player.Backend))
	}

	seen := make(map[string]bool, len(c.Presets))
	for _, p := range c.Presets {
		if p.Name == "" {
			errs = append(errs, errors.New("preset without a name"))
			continue
		}
		if seen[p.Name] {
			errs = append(errs, fmt.Errorf("duplicate preset %q", p.Name))
		}
		seen[p.Name] = true
		if err := p.validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.DefaultPreset != "" && !seen[c.DefaultPreset] {
		errs = append(errs, fmt.Errorf("default_preset %q is not defined", c.DefaultPreset))
	}

	return errors.Join(errs...)
}

// ValidateSpeed checks a speed value.
func ValidateSpeed(v int) error {
	if v < MinSpeed || v > MaxSpeed {
		return fmt.Errorf("speed must be between %d and %d, got %d", MinSpeed, MaxSpeed, v)
	}
	return nil
}

// ValidatePitch checks a pitch value.
func ValidatePitch(v int) error {
	if v < MinPitch || v > MaxPitch {
		return fmt.Errorf("pitch must be between %d and %d, got %d", MinPitch, MaxPitch, v)
	}
	return nil
}
