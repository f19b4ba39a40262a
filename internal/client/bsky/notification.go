package bsky

import (
	"context"
	"net/url"
	"strconv"
)

type notificationService struct {
	client *Client
}

func (p *ListNotificationsParams) values() url.Values {
	if p == nil {
		return nil
	}

	v := make(url.Values)

	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Cursor != "" {
		v.Set("cursor", p.Cursor)
	}

	return v
}

func (s *notificationService) List(ctx context.Context, params *ListNotificationsParams) (*ListNotificationsResponse, error) {
	const nsid = "app.bsky.notification.listNotifications"

	var resp ListNotificationsResponse
	if err := s.client.get(ctx, nsid, params.values(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *notificationService) UpdateSeen(ctx context.Context, seenAt string) error {
	const nsid = "app.bsky.notification.updateSeen"

	return s.client.post(ctx, nsid, updateSeenRequest{SeenAt: seenAt}, nil)
}
