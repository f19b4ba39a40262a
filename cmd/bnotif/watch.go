package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/garrettladley/bnotif/internal/schedule"
	"github.com/garrettladley/bnotif/internal/unread"
)

func watchCmd(flags *moderationFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Poll for unread notifications and print the badge when it changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, err := newDeps(ctx, flags)
			if err != nil {
				return err
			}
			defer d.Close()

			updates, unsubscribe := d.tracker.Subscribe()
			defer unsubscribe()

			out := cmd.OutOrStdout()
			go func() {
				for count := range updates {
					badge := unread.Badge(count)
					if badge == "" {
						badge = "0"
					}
					_, _ = fmt.Fprintln(out, badge)
				}
			}()

			err = d.tracker.Run(ctx, schedule.NewSignal())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
