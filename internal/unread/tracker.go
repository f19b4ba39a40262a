// Package unread polls the first page of the notification feed and owns the
// unread state derived from it.
package unread

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/garrettladley/bnotif/internal/notification"
	"github.com/garrettladley/bnotif/internal/querycache"
	"github.com/garrettladley/bnotif/internal/schedule"
	"github.com/garrettladley/bnotif/internal/xslog"
)

const (
	DefaultPollInterval = 30 * time.Second

	// badgeCap matches the page size: a full page can only say "at least this many".
	badgeCap = notification.PageSize

	pollKey = "unread"
)

var ErrClosed = errors.New("unread tracker closed")

// SeenUpdater tells the server how far the user has read.
// bsky.NotificationService satisfies it.
type SeenUpdater interface {
	UpdateSeen(ctx context.Context, seenAt string) error
}

type entry struct {
	Page        notification.Page
	FetchedAt   time.Time
	UnreadCount int
}

type poll struct {
	seq  uint64
	page notification.Page
}

type Tracker struct {
	fetcher      notification.PageFetcher
	seen         SeenUpdater
	cache        *querycache.Client[notification.Page]
	logger       *slog.Logger
	pollInterval time.Duration
	now          func() time.Time

	mu      sync.Mutex
	entry   *entry
	unread  int
	applied uint64

	seq   atomic.Uint64
	polls singleflight.Group

	// done is cancelled by Close and aborts polls still in flight.
	done   context.Context
	cancel context.CancelFunc
	closed atomic.Bool

	subsMu  sync.Mutex
	subs    map[int]chan int
	nextSub int
}

type Option func(*Tracker)

func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) { t.logger = xslog.OrDiscard(logger) }
}

func WithPollInterval(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.pollInterval = d
		}
	}
}

// New builds a Tracker. cache may be nil, in which case mark-read and
// invalidation only touch the tracker's own entry.
func New(fetcher notification.PageFetcher, seen SeenUpdater, cache *querycache.Client[notification.Page], opts ...Option) *Tracker {
	done, cancel := context.WithCancel(context.Background())
	t := &Tracker{
		fetcher:      fetcher,
		seen:         seen,
		cache:        cache,
		logger:       xslog.Discard(),
		pollInterval: DefaultPollInterval,
		now:          time.Now,
		done:         done,
		cancel:       cancel,
		subs:         make(map[int]chan int),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

type checkOptions struct {
	invalidate bool
}

type CheckOption func(*checkOptions)

// WithInvalidate makes CheckUnread refresh every cached notification feed
// after a successful poll.
func WithInvalidate() CheckOption {
	return func(o *checkOptions) { o.invalidate = true }
}

// CheckUnread polls the first page and replaces the cached entry with it.
// Concurrent calls share one network request.
func (t *Tracker) CheckUnread(ctx context.Context, opts ...CheckOption) error {
	var o checkOptions
	for _, opt := range opts {
		opt(&o)
	}

	if t.closed.Load() {
		return ErrClosed
	}

	v, err, shared := t.polls.Do(pollKey, func() (any, error) {
		return t.fetch(ctx)
	})
	if err != nil {
		if t.closed.Load() {
			return ErrClosed
		}
		return fmt.Errorf("checking unread: %w", err)
	}
	p := v.(poll)

	if t.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if t.apply(p) {
		t.logger.DebugContext(ctx, "applied unread poll",
			xslog.Unread(p.page.UnreadCount()),
			xslog.Count(len(p.page.Items)),
			xslog.Invalidate(o.invalidate),
			slog.Bool("shared", shared))
	}

	if o.invalidate && t.cache != nil {
		if err := t.cache.Invalidate(ctx, notification.FeedKey); err != nil {
			return fmt.Errorf("invalidating notification feed: %w", err)
		}
	}
	return nil
}

// fetch runs one network poll. It outlives the caller that started it so
// callers that joined it are not cancelled with the leader; Close aborts it.
func (t *Tracker) fetch(ctx context.Context) (poll, error) {
	seq := t.seq.Add(1)

	pctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()
	stop := context.AfterFunc(t.done, cancel)
	defer stop()

	page, err := t.fetcher.FetchPage(pctx, notification.PageParams{Limit: notification.PageSize})
	if err != nil {
		return poll{}, err
	}
	return poll{seq: seq, page: page}, nil
}

// apply installs p unless a newer poll or a mark-read already landed.
func (t *Tracker) apply(p poll) bool {
	t.mu.Lock()
	if p.seq <= t.applied {
		t.mu.Unlock()
		return false
	}
	t.applied = p.seq
	count := p.page.UnreadCount()
	t.entry = &entry{Page: p.page, FetchedAt: t.now(), UnreadCount: count}
	changed := t.unread != count
	t.unread = count
	t.mu.Unlock()

	if changed {
		t.publish(count)
	}
	return true
}

// CachedUnreadPage returns the page from the newest applied poll. An empty
// page is reported as absent.
func (t *Tracker) CachedUnreadPage() (notification.Page, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.entry == nil || t.entry.Page.Empty() {
		return notification.Page{}, false
	}
	return t.entry.Page, true
}

// MarkAllRead flags the cached entry and the first page of every cached
// feed read, then reports the new seen time to the server. Only the server
// error is returned; local state has advanced either way.
func (t *Tracker) MarkAllRead(ctx context.Context) error {
	now := t.now()

	t.mu.Lock()
	// polls that started before now would bring back read items as unread
	t.applied = t.seq.Add(1)
	if t.entry != nil {
		e := *t.entry
		e.Page = e.Page.MarkRead()
		e.UnreadCount = 0
		t.entry = &e
	}
	changed := t.unread != 0
	t.unread = 0
	t.mu.Unlock()

	if changed {
		t.publish(0)
	}

	if t.cache != nil {
		err := t.cache.SetQueriesData(ctx, notification.FeedKey, markFirstPageRead)
		if err != nil {
			t.logger.WarnContext(ctx, "failed to mark cached feeds read", xslog.Error(err))
		}
	}

	if err := t.seen.UpdateSeen(ctx, now.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("updating seen: %w", err)
	}
	return nil
}

func markFirstPageRead(data querycache.Data[notification.Page]) querycache.Data[notification.Page] {
	if len(data.Pages) > 0 {
		data.Pages[0] = data.Pages[0].MarkRead()
	}
	return data
}

func (t *Tracker) UnreadCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.unread
}

// Badge renders the unread count for display.
func (t *Tracker) Badge() string {
	return Badge(t.UnreadCount())
}

func Badge(count int) string {
	switch {
	case count <= 0:
		return ""
	case count >= badgeCap:
		return strconv.Itoa(badgeCap) + "+"
	default:
		return strconv.Itoa(count)
	}
}

// Subscribe delivers unread count changes. A listener that falls behind
// only sees the latest count. Call the returned func to unsubscribe.
func (t *Tracker) Subscribe() (<-chan int, func()) {
	ch := make(chan int, 1)

	t.subsMu.Lock()
	if t.closed.Load() {
		t.subsMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := t.nextSub
	t.nextSub++
	t.subs[id] = ch
	t.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.subsMu.Lock()
			if c, ok := t.subs[id]; ok {
				delete(t.subs, id)
				close(c)
			}
			t.subsMu.Unlock()
		})
	}
}

func (t *Tracker) publish(count int) {
	t.subsMu.Lock()
	defer t.subsMu.Unlock()
	for _, ch := range t.subs {
		select {
		case ch <- count:
		default:
			// replace the undelivered count with the newer one
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- count:
			default:
			}
		}
	}
}

// Run checks once, then polls every poll interval while activity is active.
// Poll failures are logged and retried on the next tick. Run returns when
// ctx is done.
func (t *Tracker) Run(ctx context.Context, activity schedule.Activity) error {
	t.logger.InfoContext(ctx, "starting unread poller", xslog.Interval(t.pollInterval))
	t.poll(ctx)
	return schedule.Every(ctx, t.pollInterval, activity, t.poll)
}

func (t *Tracker) poll(ctx context.Context) {
	err := t.CheckUnread(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrClosed), ctx.Err() != nil:
	default:
		t.logger.WarnContext(ctx, "unread poll failed", xslog.Error(err))
	}
}

// Close stops the tracker. Polls still in flight are aborted and their results discarded.
func (t *Tracker) Close() {
	if t.closed.Swap(true) {
		return
	}
	t.cancel()

	t.subsMu.Lock()
	for id, ch := range t.subs {
		delete(t.subs, id)
		close(ch)
	}
	t.subsMu.Unlock()
}
