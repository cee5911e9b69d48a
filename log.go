package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/vp/internal/config"
	"github.com/dgnsrekt/vp/utils"
	gap "github.com/muesli/go-app-paths"
)

func getLogFilePath(e config.Env) (string, error) {
	if e.LogFile != "" {
		return utils.ExpandPath(e.LogFile), nil
	}
	dir, err := gap.NewScope(gap.User, config.AppName).CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, config.AppName+".log"), nil
}

func setupLog() (func() error, error) {
	// Log to file only; the terminal is for speech progress.
	log.SetOutput(io.Discard)

	e, err := config.ReadEnv()
	if err != nil {
		return nil, err
	}
	logFile, err := getLogFilePath(e)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil { //nolint:gosec
		// log disabled
		return func() error { return nil }, nil
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644) //nolint:gosec
	if err != nil {
		return nil, err
	}
	log.SetOutput(f)
	log.SetLevel(log.InfoLevel)
	if e.Debug {
		log.SetLevel(log.DebugLevel)
	}
	return f.Close, nil
}
