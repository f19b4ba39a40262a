package bsky

import "context"

type NotificationService interface {
	List(ctx context.Context, params *ListNotificationsParams) (*ListNotificationsResponse, error)
	UpdateSeen(ctx context.Context, seenAt string) error
}

type FeedService interface {
	// GetPosts hydrates up to MaxGetPosts post URIs. Missing posts are omitted from the result.
	GetPosts(ctx context.Context, uris []string) ([]PostView, error)
}
