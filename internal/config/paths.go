package config

import (
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	gap "github.com/muesli/go-app-paths"
)

// AppName scopes config, cache and log directories.
const AppName = "vp"

// Env holds process settings read from the environment.
type Env struct {
	Debug      bool   `env:"VP_DEBUG"`
	LogFile    string `env:"VP_LOG_FILE"`
	ConfigHome string `env:"VP_CONFIG_HOME"`
}

// ReadEnv parses Env from the process environment.
func ReadEnv() (Env, error) {
	return env.ParseAs[Env]()
}

// ConfigDirs lists the directories searched for vp.yml, most specific first.
func ConfigDirs(e Env) ([]string, error) {
	dirs, err := gap.NewScope(gap.User, AppName).ConfigDirs()
	if err != nil {
		return nil, err
	}
	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, AppName)}, dirs...)
	}
	if e.ConfigHome != "" {
		dirs = append([]string{e.ConfigHome}, dirs...)
	}
	return dirs, nil
}

// LockPath returns the engine lock file: engine.lock when set, otherwise
// vp.lock next to the user config.
func (c *Config) LockPath() (string, error) {
	if c.Engine.Lock != "" {
		return c.Engine.Lock, nil
	}
	return gap.NewScope(gap.User, AppName).ConfigPath(AppName + ".lock")
}

// CacheDir returns cache.dir when set, otherwise the user cache directory.
func (c *Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	dir, err := gap.NewScope(gap.User, AppName).CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "audio"), nil
}
