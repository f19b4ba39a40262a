package querycache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

type page struct {
	Items []string
	Next  string
}

func nextCursor(p page) string { return p.Next }

// pager serves fixed pages keyed by cursor and counts fetches.
type pager struct {
	mu     sync.Mutex
	pages  map[string]page
	err    error
	calls  []string
	before func(cursor string)
}

func (p *pager) fetch(_ context.Context, cursor string) (page, error) {
	if p.before != nil {
		p.before(cursor)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, cursor)
	if p.err != nil {
		return page{}, p.err
	}
	pg, ok := p.pages[cursor]
	if !ok {
		return page{}, fmt.Errorf("no page at %q", cursor)
	}
	return pg, nil
}

func (p *pager) setPage(cursor string, pg page) {
	p.mu.Lock()
	p.pages[cursor] = pg
	p.mu.Unlock()
}

func (p *pager) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func newPager() *pager {
	return &pager{pages: map[string]page{
		"":   {Items: []string{"a", "b"}, Next: "c2"},
		"c2": {Items: []string{"c", "d"}, Next: "c3"},
		"c3": {Items: []string{"e"}},
	}}
}

var testKey = Key{"feed"}

func newClient(t *testing.T, p *pager) *Client[page] {
	t.Helper()
	c := New[page](NewMemoryStore[page](), nil)
	c.Register(testKey, InfiniteQuery[page]{Fetch: p.fetch, NextCursor: nextCursor})
	t.Cleanup(func() { _ = c.Close() })
	return c
}

var ignoreUpdatedAt = cmpopts.IgnoreFields(Data[page]{}, "UpdatedAt")

func TestClientFetchCaches(t *testing.T) {
	t.Parallel()

	p := newPager()
	c := newClient(t, p)

	for range 3 {
		data, err := c.Fetch(t.Context(), testKey)
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		want := Data[page]{Pages: []page{p.pages[""]}, PageParams: []string{""}}
		if diff := cmp.Diff(want, data, ignoreUpdatedAt); diff != "" {
			t.Errorf("Fetch() mismatch (-want +got):\n%s", diff)
		}
	}

	if got := p.callCount(); got != 1 {
		t.Errorf("fetch calls = %d, want 1", got)
	}
}

func TestClientFetchNextPage(t *testing.T) {
	t.Parallel()

	p := newPager()
	c := newClient(t, p)

	// with nothing cached FetchNextPage loads the first page
	if _, err := c.FetchNextPage(t.Context(), testKey); err != nil {
		t.Fatalf("FetchNextPage() error = %v", err)
	}
	if _, err := c.FetchNextPage(t.Context(), testKey); err != nil {
		t.Fatalf("FetchNextPage() error = %v", err)
	}
	data, err := c.FetchNextPage(t.Context(), testKey)
	if err != nil {
		t.Fatalf("FetchNextPage() error = %v", err)
	}

	want := Data[page]{
		Pages:      []page{p.pages[""], p.pages["c2"], p.pages["c3"]},
		PageParams: []string{"", "c2", "c3"},
	}
	if diff := cmp.Diff(want, data, ignoreUpdatedAt); diff != "" {
		t.Errorf("FetchNextPage() mismatch (-want +got):\n%s", diff)
	}

	data, err = c.FetchNextPage(t.Context(), testKey)
	if !errors.Is(err, ErrNoMorePages) {
		t.Errorf("FetchNextPage() past the end error = %v, want ErrNoMorePages", err)
	}
	if len(data.Pages) != 3 {
		t.Errorf("FetchNextPage() past the end returned %d pages", len(data.Pages))
	}
	if diff := cmp.Diff([]string{"", "c2", "c3"}, p.calls); diff != "" {
		t.Errorf("fetch cursors mismatch (-want +got):\n%s", diff)
	}
}

func TestClientFetchErrorNotCached(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("boom")
	p := newPager()
	p.err = errBoom
	c := newClient(t, p)

	if _, err := c.Fetch(t.Context(), testKey); !errors.Is(err, errBoom) {
		t.Fatalf("Fetch() error = %v, want %v", err, errBoom)
	}
	if _, ok, _ := c.GetQueryData(t.Context(), testKey); ok {
		t.Error("failed fetch left data in the cache")
	}
}

func TestClientUnregisteredKey(t *testing.T) {
	t.Parallel()

	c := newClient(t, newPager())
	if _, err := c.Fetch(t.Context(), Key{"other"}); !errors.Is(err, ErrNoQuery) {
		t.Errorf("Fetch() error = %v, want ErrNoQuery", err)
	}
}

func TestClientNextPageDiscardedAfterInvalidate(t *testing.T) {
	t.Parallel()

	p := newPager()
	c := newClient(t, p)

	if _, err := c.FetchNextPage(t.Context(), testKey); err != nil {
		t.Fatal(err)
	}
	if _, err := c.FetchNextPage(t.Context(), testKey); err != nil {
		t.Fatal(err)
	}

	// while c3 is in flight the feed is invalidated and its first page now ends the feed
	p.before = func(cursor string) {
		if cursor != "c3" {
			return
		}
		p.before = nil
		p.setPage("", page{Items: []string{"z"}})
		if err := c.Invalidate(context.Background(), testKey); err != nil {
			t.Errorf("Invalidate() error = %v", err)
		}
	}

	data, err := c.FetchNextPage(t.Context(), testKey)
	if err != nil {
		t.Fatalf("FetchNextPage() error = %v", err)
	}
	want := Data[page]{Pages: []page{{Items: []string{"z"}}}, PageParams: []string{""}}
	if diff := cmp.Diff(want, data, ignoreUpdatedAt); diff != "" {
		t.Errorf("FetchNextPage() mismatch (-want +got):\n%s", diff)
	}
}

func TestClientRefetch(t *testing.T) {
	t.Parallel()

	p := newPager()
	c := newClient(t, p)

	for range 2 {
		if _, err := c.FetchNextPage(t.Context(), testKey); err != nil {
			t.Fatal(err)
		}
	}

	p.setPage("", page{Items: []string{"new"}, Next: "c2"})
	data, err := c.Refetch(t.Context(), testKey)
	if err != nil {
		t.Fatalf("Refetch() error = %v", err)
	}

	want := Data[page]{
		Pages:      []page{{Items: []string{"new"}, Next: "c2"}, p.pages["c2"]},
		PageParams: []string{"", "c2"},
	}
	if diff := cmp.Diff(want, data, ignoreUpdatedAt); diff != "" {
		t.Errorf("Refetch() mismatch (-want +got):\n%s", diff)
	}
}

func TestClientInvalidate(t *testing.T) {
	t.Parallel()

	p := newPager()
	c := newClient(t, p)

	// nothing cached: invalidate is a no-op
	if err := c.Invalidate(t.Context(), testKey); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if p.callCount() != 0 {
		t.Fatalf("Invalidate() on empty cache fetched %d pages", p.callCount())
	}

	for range 3 {
		if _, err := c.FetchNextPage(t.Context(), testKey); err != nil {
			t.Fatal(err)
		}
	}

	p.setPage("", page{Items: []string{"fresh"}, Next: "c2"})
	if err := c.Invalidate(t.Context(), testKey); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}

	data, ok, err := c.GetQueryData(t.Context(), testKey)
	if err != nil || !ok {
		t.Fatalf("GetQueryData() = %v, %v", ok, err)
	}
	want := Data[page]{Pages: []page{{Items: []string{"fresh"}, Next: "c2"}}, PageParams: []string{""}}
	if diff := cmp.Diff(want, data, ignoreUpdatedAt); diff != "" {
		t.Errorf("after Invalidate() mismatch (-want +got):\n%s", diff)
	}
}

func TestClientInvalidateFailureKeepsPages(t *testing.T) {
	t.Parallel()

	errNetwork := errors.New("network down")
	p := newPager()
	c := newClient(t, p)

	for range 3 {
		if _, err := c.FetchNextPage(t.Context(), testKey); err != nil {
			t.Fatal(err)
		}
	}
	before, _, err := c.GetQueryData(t.Context(), testKey)
	if err != nil {
		t.Fatal(err)
	}

	p.mu.Lock()
	p.err = errNetwork
	p.mu.Unlock()

	if err := c.Invalidate(t.Context(), testKey); !errors.Is(err, errNetwork) {
		t.Fatalf("Invalidate() error = %v, want %v", err, errNetwork)
	}

	after, ok, err := c.GetQueryData(t.Context(), testKey)
	if err != nil || !ok {
		t.Fatalf("GetQueryData() = %v, %v", ok, err)
	}
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("failed Invalidate() changed cached data (-before +after):\n%s", diff)
	}
}

func TestClientInvalidateUnregisteredTruncates(t *testing.T) {
	t.Parallel()

	c := newClient(t, newPager())
	other := Key{"feed", "mirror"}
	seeded := Data[page]{
		Pages:      []page{{Items: []string{"1"}, Next: "x"}, {Items: []string{"2"}}},
		PageParams: []string{"", "x"},
	}
	if err := c.SetQueryData(t.Context(), other, seeded); err != nil {
		t.Fatal(err)
	}

	if err := c.Invalidate(t.Context(), testKey); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}

	data, _, _ := c.GetQueryData(t.Context(), other)
	if len(data.Pages) != 1 || data.Pages[0].Items[0] != "1" {
		t.Errorf("unregistered query not truncated to first page: %+v", data)
	}
}

func TestClientSetQueriesData(t *testing.T) {
	t.Parallel()

	c := newClient(t, newPager())
	keys := []Key{{"feed"}, {"feed", "b"}, {"other"}}
	for _, k := range keys {
		data := Data[page]{Pages: []page{{Items: []string{k.String()}}}, PageParams: []string{""}}
		if err := c.SetQueryData(t.Context(), k, data); err != nil {
			t.Fatal(err)
		}
	}

	err := c.SetQueriesData(t.Context(), Key{"feed"}, func(d Data[page]) Data[page] {
		d.Pages[0].Items = append(d.Pages[0].Items, "patched")
		return d
	})
	if err != nil {
		t.Fatalf("SetQueriesData() error = %v", err)
	}

	entries, err := c.GetQueriesData(t.Context(), Key{"feed"})
	if err != nil {
		t.Fatal(err)
	}
	var got [][]string
	for _, e := range entries {
		got = append(got, e.Data.Pages[0].Items)
	}
	want := [][]string{{"feed", "patched"}, {"feed/b", "patched"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetQueriesData() mismatch (-want +got):\n%s", diff)
	}

	other, _, _ := c.GetQueryData(t.Context(), Key{"other"})
	if diff := cmp.Diff([]string{"other"}, other.Pages[0].Items); diff != "" {
		t.Errorf("key outside prefix was patched (-want +got):\n%s", diff)
	}
}

func TestClientSetQueryDataValidates(t *testing.T) {
	t.Parallel()

	c := newClient(t, newPager())
	err := c.SetQueryData(t.Context(), testKey, Data[page]{Pages: []page{{}}})
	if err == nil {
		t.Error("SetQueryData() with mismatched page params: want error")
	}
}

func TestClientDeduplicatesConcurrentFetches(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	release := make(chan struct{})
	c := New[page](NewMemoryStore[page](), nil)
	t.Cleanup(func() { _ = c.Close() })
	c.Register(testKey, InfiniteQuery[page]{
		Fetch: func(context.Context, string) (page, error) {
			calls.Add(1)
			<-release
			return page{Items: []string{"only"}}, nil
		},
		NextCursor: nextCursor,
	})

	var wg sync.WaitGroup
	for range 5 {
		wg.Go(func() {
			if _, err := c.Fetch(context.Background(), testKey); err != nil {
				t.Errorf("Fetch() error = %v", err)
			}
		})
	}

	// give every goroutine time to join the in-flight call
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("fetch calls = %d, want 1", got)
	}
}

func TestClientClose(t *testing.T) {
	t.Parallel()

	p := newPager()
	c := New[page](NewMemoryStore[page](), nil)
	c.Register(testKey, InfiniteQuery[page]{Fetch: p.fetch, NextCursor: nextCursor})

	p.before = func(string) { _ = c.Close() }
	if _, err := c.Fetch(t.Context(), testKey); !errors.Is(err, ErrClosed) {
		t.Errorf("Fetch() racing Close() error = %v, want ErrClosed", err)
	}
	if _, err := c.Fetch(t.Context(), testKey); !errors.Is(err, ErrClosed) {
		t.Errorf("Fetch() after Close() error = %v, want ErrClosed", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
