package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/vp/internal/cache"
	"github.com/dgnsrekt/vp/internal/config"
	"github.com/dgnsrekt/vp/internal/envcheck"
	"github.com/dgnsrekt/vp/utils"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var doctorCmd = &cobra.Command{
	Use:     "doctor",
	Aliases: []string{"check"},
	Short:   "Check that VOICEPEAK and its helpers are installed",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		checkers := []envcheck.Checker{
			envcheck.Platform{},
			envcheck.Engine{Path: utils.ExpandPath(cfg.Engine.Path)},
		}
		if cfg.Player.Backend == config.BackendCommand {
			checkers = append(checkers, envcheck.Player(playerBinary(cfg)))
		}
		checkers = append(checkers, envcheck.FFmpeg(utils.ExpandPath(cfg.Merge.FFmpeg), false))

		report := envcheck.Run(cmd.Context(), checkers...)
		fmt.Print(report.String())
		fmt.Println()

		fmt.Println(keyword("Config:"), orNone(viper.ConfigFileUsed()))
		if lockPath, err := cfg.LockPath(); err == nil {
			fmt.Println(keyword("Lock:  "), utils.ExpandPath(lockPath))
		}
		fmt.Println(keyword("Player:"), cfg.Player.Backend)
		printCacheStats()

		return report.Err()
	},
}

func printCacheStats() {
	dir, err := cfg.CacheDir()
	if err != nil {
		log.Debug("No cache directory", "err", err)
		return
	}
	dir = utils.ExpandPath(dir)

	state := "disabled"
	if cfg.Cache.Enabled {
		state = "enabled"
	}
	if _, err := os.Stat(dir); err != nil {
		fmt.Println(keyword("Cache: "), state, dir, "(empty)")
		return
	}
	cc := cache.DefaultConfig(dir)
	cc.TTL = 0
	store, err := cache.Open(cc)
	if err != nil {
		fmt.Println(keyword("Cache: "), state, dir)
		return
	}
	defer store.Close() //nolint:errcheck

	s := store.Stats()
	fmt.Println(keyword("Cache: "), state, dir,
		fmt.Sprintf("(%d items, %s of %d MB)",
			s.ItemCount, humanize.Bytes(uint64(s.Size)), cfg.Cache.MaxSize)) //nolint:gosec
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
