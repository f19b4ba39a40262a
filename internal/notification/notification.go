// Package notification holds the notification feed's domain types and the
// network PageFetcher that produces them.
package notification

import (
	"time"

	"github.com/garrettladley/bnotif/internal/client/bsky"
	"github.com/garrettladley/bnotif/internal/querycache"
)

// PageSize is applied to every network fetch of the notification feed.
const PageSize = 30

// FeedKey identifies the process-wide notification feed in the query cache.
// Every cached notification feed lives under this prefix.
var FeedKey = querycache.Key{"notification-feed"}

type Type string

const (
	TypePostLike          Type = "post-like"
	TypeRepost            Type = "repost"
	TypeMention           Type = "mention"
	TypeReply             Type = "reply"
	TypeQuote             Type = "quote"
	TypeFollow            Type = "follow"
	TypeStarterpackJoined Type = "starterpack-joined"
	TypeUnknown           Type = "unknown"
)

func typeOf(reason string) Type {
	switch reason {
	case "like":
		return TypePostLike
	case "repost":
		return TypeRepost
	case "mention":
		return TypeMention
	case "reply":
		return TypeReply
	case "quote":
		return TypeQuote
	case "follow":
		return TypeFollow
	case "starterpack-joined":
		return TypeStarterpackJoined
	default:
		return TypeUnknown
	}
}

// Item is one row of the feed: a notification, any notifications grouped
// under it, and the hydrated post it refers to.
type Item struct {
	Type         Type                `json:"type"`
	Notification bsky.Notification   `json:"notification"`
	Additional   []bsky.Notification `json:"additional,omitempty"`
	SubjectURI   string              `json:"subjectUri,omitempty"`
	Subject      *bsky.PostView      `json:"subject,omitempty"`
}

func (i Item) IsRead() bool {
	return i.Notification.IsRead
}

// UnreadCount counts the item's own notification and every grouped one.
func (i Item) UnreadCount() int {
	n := 0
	if !i.Notification.IsRead {
		n++
	}
	for _, a := range i.Additional {
		if !a.IsRead {
			n++
		}
	}
	return n
}

// MarkRead returns a copy with every notification flagged read.
func (i Item) MarkRead() Item {
	i.Notification.IsRead = true
	if i.Additional != nil {
		additional := make([]bsky.Notification, len(i.Additional))
		for j, a := range i.Additional {
			a.IsRead = true
			additional[j] = a
		}
		i.Additional = additional
	}
	return i
}

type Page struct {
	Items  []Item    `json:"items"`
	Cursor string    `json:"cursor,omitempty"`
	SeenAt time.Time `json:"seenAt"`
}

func (p Page) HasMore() bool {
	return p.Cursor != ""
}

func (p Page) Empty() bool {
	return len(p.Items) == 0
}

// HeadUnread reports whether the first item exists and is unread.
func (p Page) HeadUnread() bool {
	return len(p.Items) > 0 && !p.Items[0].IsRead()
}

func (p Page) UnreadCount() int {
	n := 0
	for _, item := range p.Items {
		n += item.UnreadCount()
	}
	return n
}

// MarkRead returns a copy of the page with every item read. The receiver is not modified.
func (p Page) MarkRead() Page {
	if p.Items == nil {
		return p
	}
	items := make([]Item, len(p.Items))
	for i, item := range p.Items {
		items[i] = item.MarkRead()
	}
	p.Items = items
	return p
}

// NextCursor adapts Page to querycache's cursor callback.
func NextCursor(p Page) string {
	return p.Cursor
}
