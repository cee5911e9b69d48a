package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/vp/internal/input"
	"github.com/dgnsrekt/vp/internal/pipeline"
	"github.com/dgnsrekt/vp/internal/watch"
	"github.com/dgnsrekt/vp/utils"
	"github.com/spf13/cobra"
)

var (
	watchInterval  time.Duration
	watchSpeakNow  bool
	watchKeepGoing bool

	watchCmd = &cobra.Command{
		Use:     "watch FILE",
		Short:   "Speak a file every time it is saved",
		Example: paragraph("vp watch notes.txt\nvp -p karin-happy watch --now script.md --markdown"),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := utils.ExpandPath(args[0])
			run := func(ctx context.Context) error {
				text, err := input.Read(input.Options{
					File:     path,
					Encoding: encoding,
					Markdown: markdown,
				})
				if err != nil {
					return err
				}
				fmt.Printf("Speaking %s\n", path)
				// Voice flags are parsed on the root command.
				return speak(ctx, rootCmd, text, pipeline.Play())
			}

			ctx := cmd.Context()
			if watchSpeakNow {
				if err := run(ctx); err != nil && !watchKeepGoing {
					return err
				}
			}

			fmt.Printf("Watching %s, press Ctrl+C to stop\n", path)
			err := watch.File(ctx, path, watch.Options{
				Interval:  watchInterval,
				KeepGoing: watchKeepGoing,
			}, run)
			log.Debug("Stopped watching", "path", path, "err", err)
			return err
		},
	}
)

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", watch.DefaultInterval, "minimum time between two runs")
	watchCmd.Flags().BoolVar(&watchSpeakNow, "now", false, "speak the file once before waiting for changes")
	watchCmd.Flags().BoolVar(&watchKeepGoing, "keep-going", false, "keep watching after a failed run")
	watchCmd.Flags().BoolVar(&markdown, "markdown", false, "strip markdown formatting before speaking")
	watchCmd.Flags().StringVar(&encoding, "encoding", "auto", "input encoding")
}
