package notification

import (
	"time"

	"github.com/garrettladley/bnotif/internal/client/bsky"
)

const groupWindow = 48 * time.Hour

var groupableReasons = map[string]struct{}{
	"like":   {},
	"repost": {},
	"follow": {},
}

// group folds likes, reposts and follows on the same subject into the first
// matching item when they are within 48h of it, come from a different author
// and share its read state. Order of first appearance is kept.
func group(notifs []bsky.Notification) []Item {
	items := make([]Item, 0, len(notifs))

	for _, n := range notifs {
		if _, ok := groupableReasons[n.Reason]; ok {
			if i := findGroup(items, n); i >= 0 {
				items[i].Additional = append(items[i].Additional, n)
				continue
			}
		}

		t := typeOf(n.Reason)
		items = append(items, Item{
			Type:         t,
			Notification: n,
			SubjectURI:   subjectURI(t, n),
		})
	}

	return items
}

func findGroup(items []Item, n bsky.Notification) int {
	for i, item := range items {
		head := item.Notification
		delta := head.IndexedAt.Sub(n.IndexedAt)
		if delta < 0 {
			delta = -delta
		}
		if delta < groupWindow &&
			head.Reason == n.Reason &&
			head.ReasonSubject == n.ReasonSubject &&
			head.Author.DID != n.Author.DID &&
			head.IsRead == n.IsRead {
			return i
		}
	}
	return -1
}

func subjectURI(t Type, n bsky.Notification) string {
	switch t {
	case TypeReply, TypeQuote, TypeMention:
		return n.URI
	case TypePostLike, TypeRepost:
		return n.ReasonSubject
	default:
		return ""
	}
}
