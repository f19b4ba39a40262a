package querycache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/garrettladley/bnotif/internal/xslog"
)

// InfiniteQuery produces the pages of one cursor-paginated query.
type InfiniteQuery[P any] struct {
	// Fetch loads the page at cursor; "" is the first page.
	Fetch func(ctx context.Context, cursor string) (P, error)

	// NextCursor returns the cursor after p, or "" when p is the last page.
	NextCursor func(p P) string
}

// Client owns a Store and the queries registered against it. Cached data
// never goes stale on its own; it changes only through Fetch, FetchNextPage,
// Refetch, Invalidate and the Set methods.
type Client[P any] struct {
	store  Store[P]
	logger *slog.Logger

	queriesMu sync.RWMutex
	queries   map[string]InfiniteQuery[P]

	// writeMu serializes read-modify-write cycles against the store.
	// It is never held across a page fetch.
	writeMu sync.Mutex

	inflight singleflight.Group
	now      func() time.Time
	closed   atomic.Bool
}

func New[P any](store Store[P], logger *slog.Logger) *Client[P] {
	return &Client[P]{
		store:   store,
		logger:  xslog.OrDiscard(logger),
		queries: make(map[string]InfiniteQuery[P]),
		now:     time.Now,
	}
}

// Register binds q to key, replacing any earlier registration.
func (c *Client[P]) Register(key Key, q InfiniteQuery[P]) {
	c.queriesMu.Lock()
	c.queries[key.String()] = q
	c.queriesMu.Unlock()
}

func (c *Client[P]) query(key Key) (InfiniteQuery[P], error) {
	c.queriesMu.RLock()
	q, ok := c.queries[key.String()]
	c.queriesMu.RUnlock()
	if !ok {
		return InfiniteQuery[P]{}, fmt.Errorf("%w: %s", ErrNoQuery, key)
	}
	return q, nil
}

const (
	opLoad       = "load"
	opInvalidate = "invalidate"
)

// fetchPage runs q.Fetch, sharing one call between concurrent identical
// requests. Invalidations never join a load that started before them.
func (c *Client[P]) fetchPage(ctx context.Context, op string, key Key, q InfiniteQuery[P], cursor string) (P, error) {
	v, err, _ := c.inflight.Do(op+"\x00"+key.String()+"\x00"+cursor, func() (any, error) {
		return q.Fetch(ctx, cursor)
	})
	if err != nil {
		var zero P
		return zero, err
	}
	if c.closed.Load() {
		var zero P
		return zero, ErrClosed
	}
	return v.(P), nil
}

// Fetch returns the cached data for key, loading the first page when nothing is cached.
func (c *Client[P]) Fetch(ctx context.Context, key Key) (Data[P], error) {
	if c.closed.Load() {
		return Data[P]{}, ErrClosed
	}

	data, err := c.store.Get(ctx, key)
	if err == nil && !data.Empty() {
		return data, nil
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Data[P]{}, err
	}

	q, err := c.query(key)
	if err != nil {
		return Data[P]{}, err
	}

	page, err := c.fetchPage(ctx, opLoad, key, q, "")
	if err != nil {
		return Data[P]{}, err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	// a concurrent Fetch or Invalidate may have landed first
	if current, err := c.store.Get(ctx, key); err == nil && !current.Empty() {
		return current, nil
	}

	data = Data[P]{Pages: []P{page}, PageParams: []string{""}, UpdatedAt: c.now()}
	if err := c.store.Set(ctx, key, data); err != nil {
		return Data[P]{}, err
	}
	return data, nil
}

// FetchNextPage appends the page after the last cached one. It returns
// ErrNoMorePages when the last page has no next cursor.
func (c *Client[P]) FetchNextPage(ctx context.Context, key Key) (Data[P], error) {
	if c.closed.Load() {
		return Data[P]{}, ErrClosed
	}

	q, err := c.query(key)
	if err != nil {
		return Data[P]{}, err
	}

	data, err := c.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) || (err == nil && data.Empty()) {
		return c.Fetch(ctx, key)
	}
	if err != nil {
		return Data[P]{}, err
	}

	cursor := q.NextCursor(data.Pages[len(data.Pages)-1])
	if cursor == "" {
		return data, ErrNoMorePages
	}

	page, err := c.fetchPage(ctx, opLoad, key, q, cursor)
	if err != nil {
		return Data[P]{}, err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	current, err := c.store.Get(ctx, key)
	if err != nil {
		return Data[P]{}, err
	}
	// the query was truncated or extended while fetching; the page no longer follows the tail
	if current.Empty() || q.NextCursor(current.Pages[len(current.Pages)-1]) != cursor {
		c.logger.DebugContext(ctx, "discarding stale next page", xslog.Key(key), xslog.Cursor(cursor))
		return current, nil
	}

	current.Pages = append(current.Pages, page)
	current.PageParams = append(current.PageParams, cursor)
	current.UpdatedAt = c.now()
	if err := c.store.Set(ctx, key, current); err != nil {
		return Data[P]{}, err
	}
	return current, nil
}

// Refetch reloads as many pages as are currently cached, starting from the
// first, and replaces the cached data with the result.
func (c *Client[P]) Refetch(ctx context.Context, key Key) (Data[P], error) {
	if c.closed.Load() {
		return Data[P]{}, ErrClosed
	}

	q, err := c.query(key)
	if err != nil {
		return Data[P]{}, err
	}

	want := 1
	if current, err := c.store.Get(ctx, key); err == nil && len(current.Pages) > want {
		want = len(current.Pages)
	}

	data := Data[P]{}
	cursor := ""
	for range want {
		page, err := c.fetchPage(ctx, opLoad, key, q, cursor)
		if err != nil {
			return Data[P]{}, err
		}
		data.Pages = append(data.Pages, page)
		data.PageParams = append(data.PageParams, cursor)

		cursor = q.NextCursor(page)
		if cursor == "" {
			break
		}
	}
	data.UpdatedAt = c.now()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.store.Set(ctx, key, data); err != nil {
		return Data[P]{}, err
	}
	return data, nil
}

// Invalidate replaces every cached query under prefix with a refetched first
// page. Queries with no registered fetch are truncated to their first page,
// and queries with nothing cached are left to load lazily.
func (c *Client[P]) Invalidate(ctx context.Context, prefix Key) error {
	if c.closed.Load() {
		return ErrClosed
	}

	entries, err := c.store.List(ctx, prefix)
	if err != nil {
		return err
	}

	var errs []error
	for _, e := range entries {
		if err := c.invalidate(ctx, e.Key); err != nil {
			errs = append(errs, fmt.Errorf("invalidating %s: %w", e.Key, err))
		}
	}
	return errors.Join(errs...)
}

// invalidate replaces the cached data with a fresh first page. A failed
// fetch leaves the cached pages as they were.
func (c *Client[P]) invalidate(ctx context.Context, key Key) error {
	q, err := c.query(key)
	if errors.Is(err, ErrNoQuery) {
		return c.truncate(ctx, key)
	}
	if err != nil {
		return err
	}

	page, err := c.fetchPage(ctx, opInvalidate, key, q, "")
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.store.Set(ctx, key, Data[P]{Pages: []P{page}, PageParams: []string{""}, UpdatedAt: c.now()})
}

func (c *Client[P]) truncate(ctx context.Context, key Key) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	data, err := c.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(data.Pages) <= 1 {
		return nil
	}
	data.Pages = data.Pages[:1]
	data.PageParams = data.PageParams[:1]
	return c.store.Set(ctx, key, data)
}

// GetQueryData returns the cached data for key without fetching.
func (c *Client[P]) GetQueryData(ctx context.Context, key Key) (Data[P], bool, error) {
	data, err := c.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return Data[P]{}, false, nil
	}
	if err != nil {
		return Data[P]{}, false, err
	}
	return data, true, nil
}

func (c *Client[P]) SetQueryData(ctx context.Context, key Key, data Data[P]) error {
	if len(data.Pages) != len(data.PageParams) {
		return fmt.Errorf("query data for %s has %d pages but %d page params", key, len(data.Pages), len(data.PageParams))
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	data.UpdatedAt = c.now()
	return c.store.Set(ctx, key, data)
}

// SetQueriesData rewrites every cached query under prefix with fn.
func (c *Client[P]) SetQueriesData(ctx context.Context, prefix Key, fn func(Data[P]) Data[P]) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	entries, err := c.store.List(ctx, prefix)
	if err != nil {
		return err
	}
	for _, e := range entries {
		data := fn(e.Data)
		data.UpdatedAt = c.now()
		if err := c.store.Set(ctx, e.Key, data); err != nil {
			return err
		}
	}
	return nil
}

// GetQueriesData lists every cached query under prefix, ordered by key.
func (c *Client[P]) GetQueriesData(ctx context.Context, prefix Key) ([]Entry[P], error) {
	return c.store.List(ctx, prefix)
}

func (c *Client[P]) Remove(ctx context.Context, key Key) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.store.Delete(ctx, key)
}

// Close ends the cache session. Fetches still in flight have their results discarded.
func (c *Client[P]) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.queriesMu.Lock()
	clear(c.queries)
	c.queriesMu.Unlock()
	return c.store.Close()
}
