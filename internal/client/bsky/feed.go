package bsky

import (
	"context"
	"fmt"
	"net/url"
)

// MaxGetPosts is the server's cap on uris per getPosts call.
const MaxGetPosts = 25

type feedService struct {
	client *Client
}

func (s *feedService) GetPosts(ctx context.Context, uris []string) ([]PostView, error) {
	const nsid = "app.bsky.feed.getPosts"

	if len(uris) == 0 {
		return nil, nil
	}
	if len(uris) > MaxGetPosts {
		return nil, fmt.Errorf("getPosts accepts at most %d uris, got %d", MaxGetPosts, len(uris))
	}

	q := make(url.Values)
	for _, uri := range uris {
		q.Add("uris", uri)
	}

	var resp getPostsResponse
	if err := s.client.get(ctx, nsid, q, &resp); err != nil {
		return nil, err
	}
	return resp.Posts, nil
}
