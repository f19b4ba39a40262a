package main

import (
	"fmt"

	go_json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func findCmd(flags *moderationFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "find <post-uri>",
		Short: "Look up a post in the cached notification feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pages, err := cmd.Flags().GetInt(keyPages)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			d, err := newDeps(ctx, flags)
			if err != nil {
				return err
			}
			defer d.Close()

			if _, err := loadPages(cmd, d, pages); err != nil {
				return err
			}

			post, ok := d.feed.FindPost(ctx, args[0])
			if !ok {
				return fmt.Errorf("post %s is not in the first %d cached pages", args[0], pages)
			}

			out, err := go_json.MarshalIndent(post, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode post: %w", err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().Int(keyPages, 3, "number of pages to search")
	return cmd
}
