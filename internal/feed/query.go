package feed

import (
	"context"
	"iter"

	"github.com/garrettladley/bnotif/internal/client/bsky"
	"github.com/garrettladley/bnotif/internal/notification"
	"github.com/garrettladley/bnotif/internal/querycache"
)

// Queries lists cached query data; *querycache.Client satisfies it.
type Queries interface {
	GetQueriesData(ctx context.Context, prefix querycache.Key) ([]querycache.Entry[notification.Page], error)
}

var _ Queries = (*querycache.Client[notification.Page])(nil)

// FindAllPosts yields every cached copy of the post at uri across all
// notification feeds, in key, page, then item order. An item can match
// twice: once through its subject and once through the post it quotes.
// Cached data is read when iteration starts; a failed read yields nothing.
func FindAllPosts(ctx context.Context, queries Queries, uri string) iter.Seq[bsky.PostView] {
	return func(yield func(bsky.PostView) bool) {
		entries, err := queries.GetQueriesData(ctx, notification.FeedKey)
		if err != nil {
			return
		}
		for _, e := range entries {
			for _, page := range e.Data.Pages {
				for _, item := range page.Items {
					if item.Subject == nil {
						continue
					}
					if item.Subject.URI == uri {
						if !yield(*item.Subject) {
							return
						}
					}
					if quoted, ok := bsky.EmbeddedPost(item.Subject.Embed); ok && quoted.URI == uri {
						if !yield(quoted.PostView()) {
							return
						}
					}
				}
			}
		}
	}
}

// FindPost returns the first cached copy of the post at uri.
func FindPost(ctx context.Context, queries Queries, uri string) (bsky.PostView, bool) {
	for post := range FindAllPosts(ctx, queries, uri) {
		return post, true
	}
	return bsky.PostView{}, false
}

func (c *Cache) FindAllPosts(ctx context.Context, uri string) iter.Seq[bsky.PostView] {
	return FindAllPosts(ctx, c.queries, uri)
}

func (c *Cache) FindPost(ctx context.Context, uri string) (bsky.PostView, bool) {
	return FindPost(ctx, c.queries, uri)
}
