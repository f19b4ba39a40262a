// Package feed serves the paginated notification feed through the query
// cache, seeding its first page from the unread tracker.
package feed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/garrettladley/bnotif/internal/notification"
	"github.com/garrettladley/bnotif/internal/querycache"
	"github.com/garrettladley/bnotif/internal/xslog"
)

const PageSize = notification.PageSize

// UnreadSource is the part of the unread tracker the feed consumes.
type UnreadSource interface {
	CachedUnreadPage() (notification.Page, bool)
	MarkAllRead(ctx context.Context) error
}

// FetchError reports a page that could not be loaded from the network.
type FetchError struct {
	Cursor string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Cursor == "" {
		return fmt.Sprintf("fetching first notification page: %v", e.Err)
	}
	return fmt.Sprintf("fetching notification page at cursor %q: %v", e.Cursor, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type Cache struct {
	fetcher notification.PageFetcher
	tracker UnreadSource
	queries *querycache.Client[notification.Page]
	logger  *slog.Logger
}

// New registers the notification feed query on queries. tracker may be nil,
// in which case every first page comes from the network.
func New(fetcher notification.PageFetcher, tracker UnreadSource, queries *querycache.Client[notification.Page], logger *slog.Logger) *Cache {
	c := &Cache{
		fetcher: fetcher,
		tracker: tracker,
		queries: queries,
		logger:  xslog.OrDiscard(logger),
	}
	queries.Register(notification.FeedKey, querycache.InfiniteQuery[notification.Page]{
		Fetch:      c.LoadPage,
		NextCursor: notification.NextCursor,
	})
	return c
}

// LoadPage produces the page at cursor. The first page is the tracker's
// cached page when it has one, otherwise a fresh network page; it is never
// a mix of the two. Loading an unread first page marks everything read
// before returning.
func (c *Cache) LoadPage(ctx context.Context, cursor string) (notification.Page, error) {
	var (
		page notification.Page
		err  error
	)

	if cursor == "" && c.tracker != nil {
		if cached, ok := c.tracker.CachedUnreadPage(); ok {
			c.logger.DebugContext(ctx, "using cached unread page", xslog.Count(len(cached.Items)))
			page = cached
		}
	}
	if page.Empty() {
		page, err = c.fetcher.FetchPage(ctx, notification.PageParams{Limit: PageSize, Cursor: cursor})
		if err != nil {
			return notification.Page{}, &FetchError{Cursor: cursor, Err: err}
		}
	}

	if cursor == "" && page.HeadUnread() && c.tracker != nil {
		if err := c.tracker.MarkAllRead(ctx); err != nil {
			c.logger.WarnContext(ctx, "failed to mark notifications read", xslog.Error(err))
		}
	}
	return page, nil
}

// Pages returns every cached page, loading the first one when nothing is cached.
func (c *Cache) Pages(ctx context.Context) ([]notification.Page, error) {
	data, err := c.queries.Fetch(ctx, notification.FeedKey)
	if err != nil {
		return nil, err
	}
	return data.Pages, nil
}

// FetchNextPage appends the next page and returns every cached page. It
// returns querycache.ErrNoMorePages once the feed is exhausted.
func (c *Cache) FetchNextPage(ctx context.Context) ([]notification.Page, error) {
	data, err := c.queries.FetchNextPage(ctx, notification.FeedKey)
	if err != nil {
		return data.Pages, err
	}
	c.logger.DebugContext(ctx, "fetched next notification page", xslog.Pages(len(data.Pages)))
	return data.Pages, nil
}

// Refetch reloads every cached page from the first.
func (c *Cache) Refetch(ctx context.Context) ([]notification.Page, error) {
	data, err := c.queries.Refetch(ctx, notification.FeedKey)
	if err != nil {
		return nil, err
	}
	return data.Pages, nil
}
