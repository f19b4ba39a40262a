package querycache

import (
	"context"
	"errors"
	"fmt"
	"strings"

	go_json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "querycache:"

var _ Store[struct{}] = (*RedisStore[struct{}])(nil)

// RedisStore shares cached query data between client processes.
// Entries carry their decoded Key so prefix matching never relies on the
// flattened redis key alone.
type RedisStore[P any] struct {
	client    *redis.Client
	namespace string
}

func NewRedisStore[P any](client *redis.Client, namespace string) *RedisStore[P] {
	return &RedisStore[P]{
		client:    client,
		namespace: namespace,
	}
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// escapeGlob quotes the SCAN MATCH metacharacters in s.
func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}

func (s *RedisStore[P]) redisKey(key Key) string {
	return redisKeyPrefix + s.namespace + ":" + key.String()
}

func (s *RedisStore[P]) Get(ctx context.Context, key Key) (Data[P], error) {
	data, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Data[P]{}, ErrNotFound
	}
	if err != nil {
		return Data[P]{}, fmt.Errorf("failed to get query data: %w", err)
	}

	var e Entry[P]
	if err := go_json.Unmarshal(data, &e); err != nil {
		return Data[P]{}, fmt.Errorf("failed to unmarshal query data: %w", err)
	}
	return e.Data, nil
}

func (s *RedisStore[P]) Set(ctx context.Context, key Key, data Data[P]) error {
	payload, err := go_json.Marshal(Entry[P]{Key: key, Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal query data: %w", err)
	}

	if err := s.client.Set(ctx, s.redisKey(key), payload, 0).Err(); err != nil {
		return fmt.Errorf("failed to set query data: %w", err)
	}
	return nil
}

func (s *RedisStore[P]) Delete(ctx context.Context, key Key) error {
	if err := s.client.Del(ctx, s.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete query data: %w", err)
	}
	return nil
}

func (s *RedisStore[P]) List(ctx context.Context, prefix Key) ([]Entry[P], error) {
	var (
		entries []Entry[P]
		match   = escapeGlob(s.redisKey(prefix)) + "*"
		iter    = s.client.Scan(ctx, 0, match, 100).Iterator()
	)

	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			// expired or deleted between SCAN and GET
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get query data: %w", err)
		}

		var e Entry[P]
		if err := go_json.Unmarshal(data, &e); err != nil {
			continue
		}
		if e.Key.HasPrefix(prefix) {
			entries = append(entries, e)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan query data: %w", err)
	}

	sortEntries(entries)
	return entries, nil
}

func (s *RedisStore[P]) Close() error {
	return s.client.Close()
}
