package main

import (
	"os"

	"github.com/spf13/cobra"
)

var presetsCmd = &cobra.Command{
	Use:     "presets",
	Aliases: []string{"list-presets"},
	Short:   "List the voice presets defined in the config file",
	Args:    cobra.NoArgs,
	Run: func(*cobra.Command, []string) {
		cfg.WritePresets(os.Stdout)
	},
}
