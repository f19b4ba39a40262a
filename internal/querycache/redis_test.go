package querycache

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"

	"github.com/garrettladley/bnotif/internal/session"
)

func TestRedisStore(t *testing.T) {
	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		t.Fatal(err)
	}

	ctx := t.Context()
	client := redis.NewClient(opt)
	s := NewRedisStore[page](client, "test-[ns]-"+session.NewID())
	t.Cleanup(func() {
		for _, k := range []Key{{"feed"}, {"feed", "b"}, {"feedx"}} {
			_ = s.Delete(context.Background(), k)
		}
		_ = s.Close()
	})

	if _, err := s.Get(ctx, Key{"feed"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() missing error = %v, want ErrNotFound", err)
	}

	for _, k := range []Key{{"feedx"}, {"feed", "b"}, {"feed"}} {
		data := Data[page]{Pages: []page{{Items: []string{k.String()}}}, PageParams: []string{""}}
		if err := s.Set(ctx, k, data); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := s.List(ctx, Key{"feed"})
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, e := range entries {
		got = append(got, e.Data.Pages[0].Items[0])
	}
	if diff := cmp.Diff([]string{"feed", "feed/b"}, got); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}
}

func TestEscapeGlob(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "querycache:default:notification-feed", want: "querycache:default:notification-feed"},
		{in: "ns[1]", want: `ns\[1\]`},
		{in: "a*b?c", want: `a\*b\?c`},
		{in: `back\slash`, want: `back\\slash`},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := escapeGlob(tt.in); got != tt.want {
				t.Errorf("escapeGlob(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
