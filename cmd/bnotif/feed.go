package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/garrettladley/bnotif/internal/notification"
	"github.com/garrettladley/bnotif/internal/querycache"
	"github.com/garrettladley/bnotif/internal/unread"
	"github.com/garrettladley/bnotif/internal/xslog"
)

const keyPages = "pages"

func feedCmd(flags *moderationFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Print the notification feed",
		Long:  "Checks for unread notifications, then prints the feed. Viewing the feed marks it read.",
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

			if err := d.tracker.CheckUnread(ctx, unread.WithInvalidate()); err != nil {
				d.logger.WarnContext(ctx, "unread check failed", xslog.Error(err))
			}

			loaded, err := loadPages(cmd, d, pages)
			if err != nil {
				return err
			}
			for _, page := range loaded {
				printPage(cmd.OutOrStdout(), page)
			}
			return nil
		},
	}
	cmd.Flags().Int(keyPages, 1, "number of pages to load")
	return cmd
}

func loadPages(cmd *cobra.Command, d *deps, n int) ([]notification.Page, error) {
	ctx := cmd.Context()
	pages, err := d.feed.Pages(ctx)
	if err != nil {
		return nil, err
	}
	for len(pages) < n {
		pages, err = d.feed.FetchNextPage(ctx)
		if errors.Is(err, querycache.ErrNoMorePages) {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return pages, nil
}

func printPage(w io.Writer, page notification.Page) {
	for _, item := range page.Items {
		marker := " "
		if !item.IsRead() {
			marker = "*"
		}
		who := item.Notification.Author.Handle
		if n := len(item.Additional); n > 0 {
			who = fmt.Sprintf("%s and %d others", who, n)
		}
		_, _ = fmt.Fprintf(w, "%s %-18s %s %s\n", marker, item.Type, who, item.SubjectURI)
	}
}
