package notification

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	go_json "github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/garrettladley/bnotif/internal/client/bsky"
	"github.com/garrettladley/bnotif/internal/moderation"
	"github.com/garrettladley/bnotif/internal/xslog"
)

const maxSubjectConcurrency = 3

type PageParams struct {
	Limit  int
	Cursor string
}

// PageFetcher loads one page of the notification feed from the network.
type PageFetcher interface {
	FetchPage(ctx context.Context, params PageParams) (Page, error)
}

type Fetcher struct {
	notifications bsky.NotificationService
	posts         bsky.FeedService
	moderation    atomic.Pointer[moderation.Options]
	threadMutes   *moderation.ThreadMutes
	logger        *slog.Logger
}

var _ PageFetcher = (*Fetcher)(nil)

type FetcherOption func(*Fetcher)

func WithModeration(opts moderation.Options) FetcherOption {
	return func(f *Fetcher) { f.moderation.Store(&opts) }
}

func WithThreadMutes(mutes *moderation.ThreadMutes) FetcherOption {
	return func(f *Fetcher) { f.threadMutes = mutes }
}

func WithLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) { f.logger = logger }
}

func NewFetcher(notifications bsky.NotificationService, posts bsky.FeedService, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		notifications: notifications,
		posts:         posts,
		logger:        xslog.Discard(),
	}
	f.moderation.Store(&moderation.Options{})
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// SetModeration swaps the moderation snapshot used by later fetches.
func (f *Fetcher) SetModeration(opts moderation.Options) {
	f.moderation.Store(&opts)
}

// FetchPage lists notifications, drops moderated ones, groups the rest,
// hydrates their subject posts, and drops items in muted threads.
func (f *Fetcher) FetchPage(ctx context.Context, params PageParams) (Page, error) {
	resp, err := f.notifications.List(ctx, &bsky.ListNotificationsParams{
		Limit:  params.Limit,
		Cursor: params.Cursor,
	})
	if err != nil {
		return Page{}, fmt.Errorf("listing notifications: %w", err)
	}

	modOpts := f.moderation.Load()
	notifs := make([]bsky.Notification, 0, len(resp.Notifications))
	for _, n := range resp.Notifications {
		if drop, reason := modOpts.ShouldFilter(n); drop {
			f.logger.DebugContext(ctx, "filtered notification", xslog.URI(n.URI), xslog.Reason(reason))
			continue
		}
		notifs = append(notifs, n)
	}

	items := group(notifs)

	subjects, err := f.fetchSubjects(ctx, items)
	if err != nil {
		return Page{}, err
	}

	kept := items[:0]
	for _, item := range items {
		if post, ok := subjects[item.SubjectURI]; ok {
			item.Subject = &post
		}
		if f.threadMutes.IsMuted(threadRoot(item.Subject)) {
			continue
		}
		kept = append(kept, item)
	}

	f.logger.DebugContext(ctx, "fetched notification page",
		xslog.Limit(params.Limit),
		xslog.Cursor(params.Cursor),
		xslog.Count(len(kept)))

	return Page{
		Items:  kept,
		Cursor: resp.Cursor,
		SeenAt: parseSeenAt(resp.SeenAt),
	}, nil
}

func (f *Fetcher) fetchSubjects(ctx context.Context, items []Item) (map[string]bsky.PostView, error) {
	seen := make(map[string]struct{})
	var uris []string
	for _, item := range items {
		if item.SubjectURI == "" {
			continue
		}
		if _, ok := seen[item.SubjectURI]; ok {
			continue
		}
		seen[item.SubjectURI] = struct{}{}
		uris = append(uris, item.SubjectURI)
	}

	var chunks [][]string
	for start := 0; start < len(uris); start += bsky.MaxGetPosts {
		end := min(start+bsky.MaxGetPosts, len(uris))
		chunks = append(chunks, uris[start:end])
	}

	results := make([][]bsky.PostView, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxSubjectConcurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			posts, err := f.posts.GetPosts(gctx, chunk)
			if err != nil {
				return fmt.Errorf("fetching subject posts: %w", err)
			}
			results[i] = posts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	subjects := make(map[string]bsky.PostView, len(uris))
	for _, posts := range results {
		for _, p := range posts {
			subjects[p.URI] = p
		}
	}
	return subjects, nil
}

// threadRoot is the reply root of a post, or the post itself when it is a root.
func threadRoot(post *bsky.PostView) string {
	if post == nil {
		return ""
	}
	var record struct {
		Reply *struct {
			Root struct {
				URI string `json:"uri"`
			} `json:"root"`
		} `json:"reply"`
	}
	if len(post.Record) > 0 {
		if err := go_json.Unmarshal(post.Record, &record); err == nil && record.Reply != nil && record.Reply.Root.URI != "" {
			return record.Reply.Root.URI
		}
	}
	return post.URI
}

func parseSeenAt(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
