// Package querycache stores cursor-paginated query results under hierarchical
// keys, refetches them on demand, and lets readers enumerate them by key prefix.
package querycache

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"
)

var (
	ErrNotFound    = errors.New("query data not found")
	ErrNoQuery     = errors.New("no query registered for key")
	ErrNoMorePages = errors.New("no more pages")
	ErrClosed      = errors.New("query cache closed")
)

type Key []string

func (k Key) String() string {
	return strings.Join(k, "/")
}

func (k Key) HasPrefix(prefix Key) bool {
	return len(k) >= len(prefix) && slices.Equal(k[:len(prefix)], prefix)
}

func (k Key) Equal(other Key) bool {
	return slices.Equal(k, other)
}

// Data is an infinite query's state: pages in fetch order and the cursor
// each one was fetched with. PageParams[0] is always "".
type Data[P any] struct {
	Pages      []P       `json:"pages"`
	PageParams []string  `json:"pageParams"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (d Data[P]) clone() Data[P] {
	d.Pages = slices.Clone(d.Pages)
	d.PageParams = slices.Clone(d.PageParams)
	return d
}

func (d Data[P]) Empty() bool {
	return len(d.Pages) == 0
}

type Entry[P any] struct {
	Key  Key     `json:"key"`
	Data Data[P] `json:"data"`
}

type Store[P any] interface {
	// Get returns ErrNotFound when nothing is stored under key.
	Get(ctx context.Context, key Key) (Data[P], error)

	Set(ctx context.Context, key Key, data Data[P]) error

	Delete(ctx context.Context, key Key) error

	// List returns every entry whose key starts with prefix, ordered by key.
	List(ctx context.Context, prefix Key) ([]Entry[P], error)

	Close() error
}

func sortEntries[P any](entries []Entry[P]) {
	slices.SortFunc(entries, func(a, b Entry[P]) int {
		return strings.Compare(a.Key.String(), b.Key.String())
	})
}
