package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	narratorsCmd = &cobra.Command{
		Use:     "narrators",
		Aliases: []string{"list-narrator"},
		Short:   "List the narrators VOICEPEAK has installed",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			inv, err := newInvoker(cfg)
			if err != nil {
				return err
			}
			out, err := inv.Narrators(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(strings.TrimSpace(out))
			return nil
		},
	}

	emotionsCmd = &cobra.Command{
		Use:     "emotions NARRATOR",
		Aliases: []string{"list-emotion"},
		Short:   "List the emotions a narrator supports",
		Example: paragraph("vp emotions \"Japanese Female 1\""),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := newInvoker(cfg)
			if err != nil {
				return err
			}
			out, err := inv.Emotions(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(strings.TrimSpace(out))
			return nil
		},
	}
)
